// Package audit keeps a durable trail of account and game changes.
//
// Entries are written to the audit_logs table by a Recorder, which accepts
// them on a bounded channel and writes them serially so request handlers
// never wait on SQLite. The API exposes the trail read-only with filters
// and pagination.
package audit

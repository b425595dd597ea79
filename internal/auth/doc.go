// Package auth provides authentication for Game Circle Core.
//
// It covers the whole credential lifecycle of a user account:
//   - bcrypt password hashing with a configurable cost (Hasher)
//   - HS256 access tokens with an injectable clock (TokenService)
//   - strict "Bearer <token>" extraction and request identity (Authenticate)
//   - signup, login, credential update and account removal (Directory)
//
// There is a single token type and no refresh rotation. A verified token's
// Claims travel with the request context (WithIdentity, IdentityFromContext)
// and are never stored.
package auth

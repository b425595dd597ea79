package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gamecircle-core/internal/audit"
	"github.com/nerrad567/gamecircle-core/internal/auth"
	"github.com/nerrad567/gamecircle-core/internal/events"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ─── Request/Response Types ────────────────────────────────────────

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Message string     `json:"message"`
	User    *auth.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleWelcome answers the root path.
func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Game Circle backend"})
}

// handleSignup registers a new account.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, msgMissingParameter)
		return
	}

	user, err := s.directory.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.metrics.auth("signup", "rejected")
		s.writeDomainError(w, r, "signup", err)
		return
	}
	s.metrics.auth("signup", "success")

	s.auditLog(audit.ActionSignup, audit.EntityUser, user.ID, user.ID, nil)
	s.publish(events.UserCreated, "", user.ID, user.ID, user)

	writeJSON(w, http.StatusCreated, signupResponse{
		Message: "User successfully created.",
		User:    user,
	})
}

// handleLogin verifies credentials and returns a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, msgMissingParameter)
		return
	}

	result, err := s.directory.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			s.metrics.auth("login", "unknown_email")
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.metrics.auth("login", "wrong_password")
		default:
			s.metrics.auth("login", "error")
		}
		s.writeDomainError(w, r, "login", err)
		return
	}
	s.metrics.auth("login", "success")

	s.auditLog(audit.ActionLogin, audit.EntityUser, result.User.ID, result.User.ID, nil)
	s.publish(events.UserLoggedIn, "", result.User.ID, result.User.ID, nil)

	writeJSON(w, http.StatusOK, loginResponse{
		Message:     "User successfully logged in.",
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(result.ExpiresIn.Seconds()),
	})
}

// handleMe returns the caller's account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := identity(r)
	user, err := s.directory.Get(r.Context(), claims.SubjectID)
	if err != nil {
		s.writeDomainError(w, r, "get current user", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       user,
		"expires_at": claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
	})
}

// handleWSTicket issues a single-use WebSocket ticket bound to the caller.
// Browsers cannot set an Authorization header on the upgrade request, so the
// ticket travels in the query string instead of the bearer token.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	ticket := s.tickets.issue(identity(r).SubjectID, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// ─── Ticket Store ──────────────────────────────────────────────────

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use and expire after ticketTTL.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
}

type ticketEntry struct {
	userID    string
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

func (t *ticketStore) issue(userID string, now time.Time) string {
	ticket := generateTicket()
	t.mu.Lock()
	t.tickets[ticket] = ticketEntry{userID: userID, expiresAt: now.Add(ticketTTL)}
	t.mu.Unlock()
	return ticket
}

// consume validates a ticket and removes it (single-use).
func (t *ticketStore) consume(ticket string, now time.Time) (ticketEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}
	delete(t.tickets, ticket)
	if now.After(entry.expiresAt) {
		return ticketEntry{}, false
	}
	return entry, true
}

// purge removes expired tickets.
func (t *ticketStore) purge(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ticket, entry := range t.tickets {
		if now.After(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

func (t *ticketStore) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tickets)
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// cleanTicketsLoop purges expired tickets periodically until the context is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tickets.purge(now)
		}
	}
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gamecircle-core/internal/audit"
	"github.com/nerrad567/gamecircle-core/internal/auth"
	"github.com/nerrad567/gamecircle-core/internal/events"
	"github.com/nerrad567/gamecircle-core/internal/game"
)

// meAlias in a user path resolves to the caller.
const meAlias = "me"

// ─── Request/Response Types ────────────────────────────────────────

type updateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// gameSummary is the short form of a game listed under its owner.
type gameSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// userView is a user with the games they own.
type userView struct {
	auth.User
	Games []gameSummary `json:"games"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleListUsers returns every user ordered by name, each with their games.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.directory.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "list users", err)
		return
	}

	games, err := s.games.ListGames(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "list games", err)
		return
	}
	owned := gamesByOwner(games)

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{User: u, Games: orEmpty(owned[u.ID])})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Users successfully fetched.",
		"users":   views,
		"count":   len(views),
	})
}

// handleGetUser returns one user with their games.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := s.resolveUserID(r)

	user, err := s.directory.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "get user", err)
		return
	}

	games, err := s.games.ListOwnedBy(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, "list owned games", err)
		return
	}

	summaries := make([]gameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, gameSummary{ID: g.ID, Name: g.Name})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User successfully fetched.",
		"user":    userView{User: *user, Games: summaries},
	})
}

// handleUpdateUser changes the caller's email and/or password.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := identity(r)
	if s.resolveUserID(r) != claims.SubjectID {
		writeForbidden(w, msgForbidden)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, msgMissingParameter)
		return
	}

	user, err := s.directory.UpdateCredentials(r.Context(), claims, req.Email, req.Password)
	if err != nil {
		s.writeDomainError(w, r, "update user", err)
		return
	}

	changed := []string{}
	if req.Email != "" {
		changed = append(changed, "email")
	}
	if req.Password != "" {
		changed = append(changed, "password")
	}
	s.auditLog(audit.ActionUpdate, audit.EntityUser, user.ID, claims.SubjectID, map[string]any{"fields": changed})
	s.publish(events.UserUpdated, "", claims.SubjectID, user.ID, user)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User successfully updated.",
		"user":    user,
	})
}

// handleDeleteUser removes the caller's account. Ownerships go with it.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := identity(r)
	if s.resolveUserID(r) != claims.SubjectID {
		writeForbidden(w, msgForbidden)
		return
	}

	if err := s.directory.DeleteUser(r.Context(), claims); err != nil {
		s.writeDomainError(w, r, "delete user", err)
		return
	}

	s.auditLog(audit.ActionDelete, audit.EntityUser, claims.SubjectID, claims.SubjectID, nil)
	s.publish(events.UserDeleted, "", claims.SubjectID, claims.SubjectID, nil)

	w.WriteHeader(http.StatusNoContent)
}

// resolveUserID returns the {id} path parameter with "me" replaced by the caller.
func (s *Server) resolveUserID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if id == meAlias {
		return identity(r).SubjectID
	}
	return id
}

// gamesByOwner indexes games by each of their owners.
func gamesByOwner(games []game.Game) map[string][]gameSummary {
	out := make(map[string][]gameSummary)
	for _, g := range games {
		for _, o := range g.Owners {
			out[o.ID] = append(out[o.ID], gameSummary{ID: g.ID, Name: g.Name})
		}
	}
	return out
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gamecircle-core/internal/audit"
	"github.com/nerrad567/gamecircle-core/internal/events"
	"github.com/nerrad567/gamecircle-core/internal/game"
)

// ─── Request/Response Types ────────────────────────────────────────

type createGameRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       *string `json:"image,omitempty"`
}

// updateGameRequest carries the optional field changes plus the ownership
// toggle flag. The toggle runs first; the field update follows.
type updateGameRequest struct {
	game.Patch
	ToggleOwnership bool `json:"toggle_ownership"`
}

type gameResponse struct {
	Message string     `json:"message"`
	Game    *game.Game `json:"game"`
	Action  string     `json:"action,omitempty"`
}

// ownershipMessages are the responses for a toggle that ran.
var ownershipMessages = map[game.Action]string{
	game.ActionAdded:   "Owner added to owners list.",
	game.ActionRemoved: "Owner deleted from owners list.",
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleCreateGame adds a game owned by the caller.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, msgMissingParameter)
		return
	}

	callerID := identity(r).SubjectID
	g, err := s.games.CreateGame(r.Context(), req.Name, req.Description, req.Image, callerID)
	if err != nil {
		s.writeDomainError(w, r, "create game", err)
		return
	}

	s.auditLog(audit.ActionCreate, audit.EntityGame, g.ID, callerID, map[string]any{"name": g.Name})
	s.publish(events.GameCreated, "", callerID, g.ID, g)

	writeJSON(w, http.StatusCreated, gameResponse{Message: "Game successfully created.", Game: g})
}

// handleListGames returns all games ordered by name.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.games.ListGames(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "list games", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Games successfully fetched.",
		"games":   orEmpty(games),
		"count":   len(games),
	})
}

// handleGetGame returns a single game with its owners.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, "get game", err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse{Message: "Game successfully fetched.", Game: g})
}

// handleUpdateGame runs the optional ownership toggle for the caller and
// then the optional field update.
//
// With no fields and no toggle the request is missing its parameters. With
// only the toggle the response reports which way membership went.
func (s *Server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	var req updateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, msgMissingParameter)
		return
	}

	gameID := chi.URLParam(r, "id")
	callerID := identity(r).SubjectID

	toggleFor := ""
	if req.ToggleOwnership {
		toggleFor = callerID
	}

	toggled, action, err := s.toggleOwnership(r, gameID, toggleFor)
	if err != nil {
		s.writeDomainError(w, r, "toggle ownership", err)
		return
	}

	if req.Patch.IsEmpty() {
		if action == game.ActionSkipped {
			writeBadRequest(w, msgMissingParameter)
			return
		}
		writeJSON(w, http.StatusCreated, gameResponse{
			Message: ownershipMessages[action],
			Game:    toggled,
			Action:  string(action),
		})
		return
	}

	g, err := s.games.UpdateGame(r.Context(), gameID, req.Patch)
	if err != nil {
		s.writeDomainError(w, r, "update game", err)
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityGame, g.ID, callerID, map[string]any{"fields": patchFields(req.Patch)})
	s.publish(events.GameUpdated, "", callerID, g.ID, g)

	resp := gameResponse{Message: "Game successfully updated.", Game: g}
	if action != game.ActionSkipped {
		resp.Action = string(action)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleToggleOwnership flips the caller's membership of a game.
func (s *Server) handleToggleOwnership(w http.ResponseWriter, r *http.Request) {
	g, action, err := s.toggleOwnership(r, chi.URLParam(r, "id"), identity(r).SubjectID)
	if err != nil {
		s.writeDomainError(w, r, "toggle ownership", err)
		return
	}

	writeJSON(w, http.StatusCreated, gameResponse{
		Message: ownershipMessages[action],
		Game:    g,
		Action:  string(action),
	})
}

// handleDeleteGame removes a game.
func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	callerID := identity(r).SubjectID

	if err := s.games.DeleteGame(r.Context(), gameID); err != nil {
		s.writeDomainError(w, r, "delete game", err)
		return
	}

	s.auditLog(audit.ActionDelete, audit.EntityGame, gameID, callerID, nil)
	s.publish(events.GameDeleted, "", callerID, gameID, nil)

	w.WriteHeader(http.StatusNoContent)
}

// toggleOwnership runs the registry toggle and, unless it was skipped,
// records the outcome in metrics, audit and events. A flip that committed
// is recorded even when the game could not be reloaded afterwards.
func (s *Server) toggleOwnership(r *http.Request, gameID, userID string) (*game.Game, game.Action, error) {
	g, action, err := s.games.ToggleOwnership(r.Context(), gameID, userID)
	if action == game.ActionSkipped {
		return g, action, err
	}

	s.metrics.ownershipFlips.WithLabelValues(string(action)).Inc()
	s.auditLog(audit.ActionToggle, audit.EntityGame, gameID, userID, map[string]any{"action": string(action)})
	s.publish(events.GameOwnershipChanged, string(action), userID, gameID, g)

	return g, action, err
}

func patchFields(p game.Patch) []string {
	fields := []string{}
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Image != nil {
		fields = append(fields, "image")
	}
	return fields
}

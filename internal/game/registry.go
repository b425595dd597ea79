package game

import (
	"context"
	"fmt"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the service layer over a game Repository.
// It validates input and owns the ownership-toggle workflow.
type Registry struct {
	repo   Repository
	logger Logger
}

// NewRegistry creates a new game registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// CreateGame adds a game with creatorID as its first owner.
// Name and description are required.
func (r *Registry) CreateGame(ctx context.Context, name, description string, image *string, creatorID string) (*Game, error) {
	if name == "" || description == "" {
		return nil, ErrMissingParameter
	}

	g := &Game{Name: name, Description: description}
	Patch{Image: image}.Apply(g)

	if err := r.repo.Create(ctx, g, creatorID); err != nil {
		return nil, err
	}
	r.logger.Info("game created", "game_id", g.ID, "owner_id", creatorID)
	return g, nil
}

// GetGame returns a game with its owners.
func (r *Registry) GetGame(ctx context.Context, id string) (*Game, error) {
	return r.repo.GetByID(ctx, id)
}

// ListGames returns all games ordered by name.
func (r *Registry) ListGames(ctx context.Context) ([]Game, error) {
	return r.repo.List(ctx)
}

// ListOwnedBy returns the games userID owns.
func (r *Registry) ListOwnedBy(ctx context.Context, userID string) ([]Game, error) {
	return r.repo.ListByOwner(ctx, userID)
}

// UpdateGame applies patch to the game. An empty patch is ErrMissingParameter.
func (r *Registry) UpdateGame(ctx context.Context, id string, patch Patch) (*Game, error) {
	if patch.IsEmpty() {
		return nil, ErrMissingParameter
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrMissingParameter)
	}

	g, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(g)
	if err := r.repo.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGame removes a game.
func (r *Registry) DeleteGame(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.logger.Info("game deleted", "game_id", id)
	return nil
}

// ToggleOwnership flips userID's membership of gameID.
//
// An empty userID is ActionSkipped: nothing is loaded or written and the
// returned game is nil. Otherwise the membership test and the insert or
// delete happen in one transaction, and the updated game is returned. If
// reloading the game fails after the flip committed, the committed action
// is returned together with the error.
func (r *Registry) ToggleOwnership(ctx context.Context, gameID, userID string) (*Game, Action, error) {
	if userID == "" {
		return nil, ActionSkipped, nil
	}

	added, err := r.repo.ToggleOwner(ctx, gameID, userID)
	if err != nil {
		return nil, ActionSkipped, err
	}

	action := ActionRemoved
	if added {
		action = ActionAdded
	}

	r.logger.Info("game ownership toggled", "game_id", gameID, "user_id", userID, "action", string(action))

	g, err := r.repo.GetByID(ctx, gameID)
	if err != nil {
		return nil, action, fmt.Errorf("reloading game after toggle: %w", err)
	}
	return g, action, nil
}

package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gamecircle-core/internal/infrastructure/database"
)

// Repository defines the persistence contract for games and their owners.
type Repository interface {
	// Create inserts the game and, when initialOwnerID is non-empty, links
	// that user as its first owner in the same transaction.
	Create(ctx context.Context, game *Game, initialOwnerID string) error
	GetByID(ctx context.Context, id string) (*Game, error)
	List(ctx context.Context) ([]Game, error)
	ListByOwner(ctx context.Context, userID string) ([]Game, error)
	Update(ctx context.Context, game *Game) error
	Delete(ctx context.Context, id string) error

	// ToggleOwner flips userID's membership of gameID atomically and
	// reports whether the user was added (true) or removed (false).
	ToggleOwner(ctx context.Context, gameID, userID string) (added bool, err error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite game repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const gameColumns = "id, name, description, image, created_at, updated_at"

func (r *SQLiteRepository) timestamp() (time.Time, string) {
	now := r.now().UTC().Truncate(time.Second)
	return now, now.Format(time.RFC3339)
}

// Create inserts a new game. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, game *Game, initialOwnerID string) error {
	if game.ID == "" {
		game.ID = "gam-" + uuid.NewString()[:8]
	}
	now, ts := r.timestamp()

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO games (id, name, description, image, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			game.ID, game.Name, game.Description, nullableString(game.Image), ts, ts,
		); err != nil {
			return fmt.Errorf("inserting game: %w", err)
		}

		if initialOwnerID == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO game_owners (game_id, user_id, added_at) VALUES (?, ?, ?)",
			game.ID, initialOwnerID, ts,
		); err != nil {
			if isForeignKeyViolation(err) {
				return ErrOwnerNotFound
			}
			return fmt.Errorf("linking owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	game.CreatedAt = now
	game.UpdatedAt = now
	game.Owners, err = r.owners(ctx, game.ID)
	return err
}

// GetByID retrieves a game with its owners.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx, "SELECT "+gameColumns+" FROM games WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	g.Owners, err = r.owners(ctx, id)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// List returns all games ordered by name, each with its owners.
func (r *SQLiteRepository) List(ctx context.Context) ([]Game, error) {
	return r.queryGames(ctx, "SELECT "+gameColumns+" FROM games ORDER BY name ASC, id ASC")
}

// ListByOwner returns the games userID owns, ordered by name.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, userID string) ([]Game, error) {
	return r.queryGames(ctx, `
		SELECT g.id, g.name, g.description, g.image, g.created_at, g.updated_at
		FROM games g
		JOIN game_owners o ON o.game_id = g.id
		WHERE o.user_id = ?
		ORDER BY g.name ASC, g.id ASC`, userID)
}

// Update persists name, description and image.
func (r *SQLiteRepository) Update(ctx context.Context, game *Game) error {
	now, ts := r.timestamp()

	result, err := r.db.ExecContext(ctx,
		"UPDATE games SET name = ?, description = ?, image = ?, updated_at = ? WHERE id = ?",
		game.Name, game.Description, nullableString(game.Image), ts, game.ID,
	)
	if err != nil {
		return fmt.Errorf("updating game: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrGameNotFound
	}
	game.UpdatedAt = now
	return nil
}

// Delete removes a game and its ownership links.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM games WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting game: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrGameNotFound
	}
	return nil
}

// ToggleOwner flips membership inside one transaction.
func (r *SQLiteRepository) ToggleOwner(ctx context.Context, gameID, userID string) (bool, error) {
	var added bool
	_, ts := r.timestamp()

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var gameExists, isOwner bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM games WHERE id = ?)", gameID).Scan(&gameExists); err != nil {
			return fmt.Errorf("checking game: %w", err)
		}
		if !gameExists {
			return ErrGameNotFound
		}

		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM game_owners WHERE game_id = ? AND user_id = ?)", gameID, userID,
		).Scan(&isOwner); err != nil {
			return fmt.Errorf("checking ownership: %w", err)
		}

		if isOwner {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM game_owners WHERE game_id = ? AND user_id = ?", gameID, userID,
			); err != nil {
				return fmt.Errorf("removing owner: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO game_owners (game_id, user_id, added_at) VALUES (?, ?, ?)", gameID, userID, ts,
			); err != nil {
				if isForeignKeyViolation(err) {
					return ErrOwnerNotFound
				}
				return fmt.Errorf("adding owner: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, "UPDATE games SET updated_at = ? WHERE id = ?", ts, gameID); err != nil {
			return fmt.Errorf("touching game: %w", err)
		}
		added = !isOwner
		return nil
	})
	return added, err
}

// queryGames runs a game query and attaches owners with a single extra query.
func (r *SQLiteRepository) queryGames(ctx context.Context, query string, args ...any) ([]Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close()

	games := []Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating games: %w", err)
	}
	if len(games) == 0 {
		return games, nil
	}

	owners, err := r.ownersByGame(ctx)
	if err != nil {
		return nil, err
	}
	for i := range games {
		games[i].Owners = owners[games[i].ID]
		if games[i].Owners == nil {
			games[i].Owners = []Owner{}
		}
	}
	return games, nil
}

func (r *SQLiteRepository) owners(ctx context.Context, gameID string) ([]Owner, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name
		FROM game_owners o
		JOIN users u ON u.id = o.user_id
		WHERE o.game_id = ?
		ORDER BY u.name ASC, u.id ASC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying owners: %w", err)
	}
	defer rows.Close()

	owners := []Owner{}
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scanning owner: %w", err)
		}
		owners = append(owners, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating owners: %w", err)
	}
	return owners, nil
}

func (r *SQLiteRepository) ownersByGame(ctx context.Context) (map[string][]Owner, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.game_id, u.id, u.name
		FROM game_owners o
		JOIN users u ON u.id = o.user_id
		ORDER BY u.name ASC, u.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying owners: %w", err)
	}
	defer rows.Close()

	byGame := make(map[string][]Owner)
	for rows.Next() {
		var gameID string
		var o Owner
		if err := rows.Scan(&gameID, &o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scanning owner: %w", err)
		}
		byGame[gameID] = append(byGame[gameID], o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating owners: %w", err)
	}
	return byGame, nil
}

// rowScanner is an interface for sql.Row and sql.Rows Scan methods.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(s rowScanner) (*Game, error) {
	var g Game
	var image sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&g.ID, &g.Name, &g.Description, &image, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("scanning game: %w", err)
	}

	if image.Valid {
		g.Image = &image.String
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	g.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &g, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// isForeignKeyViolation checks if a SQLite error is a FOREIGN KEY constraint violation.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

package game

import "time"

// Game is an entry in the catalogue.
type Game struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       *string   `json:"image,omitempty"`
	Owners      []Owner   `json:"owners"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Owner is the public view of a user that owns a game.
type Owner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HasOwner reports whether userID is in the game's owner set.
func (g *Game) HasOwner(userID string) bool {
	for _, o := range g.Owners {
		if o.ID == userID {
			return true
		}
	}
	return false
}

// Patch holds the optional fields of a game update. Nil means unchanged.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Image == nil
}

// Apply copies the set fields onto g.
func (p Patch) Apply(g *Game) {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Image != nil {
		if *p.Image == "" {
			g.Image = nil
		} else {
			img := *p.Image
			g.Image = &img
		}
	}
}

// Action is the outcome of an ownership toggle.
type Action string

const (
	// ActionSkipped means no user was given and membership was not touched.
	ActionSkipped Action = "skipped"

	// ActionAdded means the user was not an owner and now is.
	ActionAdded Action = "added"

	// ActionRemoved means the user was an owner and no longer is.
	ActionRemoved Action = "removed"
)

package models

import (
	"time"
)

// GiveawayStatus represents the status of a giveaway
type GiveawayStatus string

const (
	GiveawayStatusActive   GiveawayStatus = "active"   // Accepting participants
	GiveawayStatusFinished GiveawayStatus = "finished" // Winners drawn
	GiveawayStatusExpired  GiveawayStatus = "expired"  // Ended without participants
)

// Giveaway is owned by the surrounding application; this service only reads it
// and moves it out of the active status when the draw completes.
type Giveaway struct {
	ID           string         `json:"id"`
	CreatorID    int64          `json:"creator_id"`
	Title        string         `json:"title"`
	WinnersCount int            `json:"winners_count"`
	EndsAt       time.Time      `json:"ends_at"`
	Status       GiveawayStatus `json:"status"`
	// Organizer-chosen winner; only has effect when the user participates.
	PredeterminedWinnerID *int64    `json:"-"`
	RequiredChannels      []int64   `json:"required_channels"`
	CaptchaEnabled        bool      `json:"captcha_enabled"`
	Weighted              bool      `json:"weighted"` // ticket counts act as draw weights
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (g *Giveaway) HasEnded(now time.Time) bool {
	return !now.Before(g.EndsAt)
}

func (g *Giveaway) IsCreator(userID int64) bool {
	return g.CreatorID == userID
}

// AcceptsTickets reports whether ticket counts may still change.
func (g *Giveaway) AcceptsTickets(now time.Time) bool {
	return g.Status == GiveawayStatusActive && !g.HasEnded(now)
}

// IsJoinableBy reports whether userID may register: the giveaway must be
// active, not yet ended, and the user must not be its creator.
func (g *Giveaway) IsJoinableBy(userID int64, now time.Time) bool {
	return g.AcceptsTickets(now) && !g.IsCreator(userID)
}

type Winner struct {
	ID         string    `json:"id"`
	GiveawayID string    `json:"giveaway_id"`
	UserID     int64     `json:"user_id"`
	Place      int       `json:"place"`
	CreatedAt  time.Time `json:"created_at"`
}

package models

import "time"

const (
	TicketCodeLength = 5
	// MaxTicketCodeAttempts bounds collision re-sampling per giveaway.
	MaxTicketCodeAttempts = 100
)

type Participant struct {
	GiveawayID   string    `json:"giveaway_id"`
	UserID       int64     `json:"user_id"`
	TicketsCount int       `json:"tickets_count"`
	ReferrerID   *int64    `json:"referrer_id,omitempty"`
	TicketCode   string    `json:"ticket_code"`
	JoinedAt     time.Time `json:"joined_at"`
}

// PoolEntry is one candidate of a draw with its ticket weight.
type PoolEntry struct {
	UserID  int64
	Tickets int
}

// PendingReferral stages an inviter until the invitee finishes registration.
type PendingReferral struct {
	GiveawayID string
	UserID     int64
	ReferrerID int64
	CreatedAt  time.Time
}

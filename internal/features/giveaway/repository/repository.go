package repository

import (
	"context"
	"errors"
	"time"

	"giveaway-draw-backend/internal/features/giveaway/models"
)

var (
	ErrGiveawayNotFound        = errors.New("giveaway not found")
	ErrParticipantNotFound     = errors.New("participant not found")
	ErrPendingReferralNotFound = errors.New("pending referral not found")
	ErrReferralLinkNotFound    = errors.New("referral link not found or expired")
	ErrTicketCodeTaken         = errors.New("ticket code already used in this giveaway")
	ErrLockTimeout             = errors.New("failed to acquire lock: timeout")
	ErrAlreadyLocked           = errors.New("resource is already locked")
)

type Transaction interface {
	Commit() error
	Rollback() error
}

type GiveawayRepository interface {
	BeginTx(ctx context.Context) (Transaction, error)

	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	GetByIDWithLock(ctx context.Context, tx Transaction, id string) (*models.Giveaway, error)
	// GetEndedActive returns ids of active giveaways whose end time has passed.
	GetEndedActive(ctx context.Context, now time.Time) ([]string, error)
	UpdateStatusTx(ctx context.Context, tx Transaction, id string, status models.GiveawayStatus) error
}

type ParticipantRepository interface {
	Get(ctx context.Context, giveawayID string, userID int64) (*models.Participant, error)
	TicketCodeExists(ctx context.Context, giveawayID, code string) (bool, error)
	// Create inserts the participant unless one already exists for the
	// (giveaway, user) pair. When a row is created and it carries a referrer,
	// the referrer's ticket count is incremented in the same transaction.
	Create(ctx context.Context, participant *models.Participant) (bool, error)
	GetPoolTx(ctx context.Context, tx Transaction, giveawayID string) ([]models.PoolEntry, error)
}

type ReferralRepository interface {
	Upsert(ctx context.Context, referral *models.PendingReferral) error
	// Take atomically reads and deletes the staged referral.
	Take(ctx context.Context, giveawayID string, userID int64) (*models.PendingReferral, error)
	DeleteForInactiveGiveaways(ctx context.Context) (int64, error)
}

type BonusRepository interface {
	Exists(ctx context.Context, giveawayID string, userID int64, category models.BonusCategory) (bool, error)
	// Create stores the grant and adds one ticket to the participant, or does
	// nothing when the grant already exists or the participant is missing.
	Create(ctx context.Context, grant *models.BonusGrant) (bool, error)
}

type WinnerRepository interface {
	CreateTx(ctx context.Context, tx Transaction, winners []models.Winner) error
	GetByGiveaway(ctx context.Context, giveawayID string) ([]models.Winner, error)
}

type Lock interface {
	Release(ctx context.Context) error
}

// Locker provides TTL-bounded mutual exclusion shared across processes.
type Locker interface {
	AcquireLock(ctx context.Context, key string, wait, ttl time.Duration) (Lock, error)
}

type ReferralLinkRepository interface {
	Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Resolve(ctx context.Context, token string) (int64, error)
}

type CaptchaRepository interface {
	SaveChallenge(ctx context.Context, giveawayID string, userID int64, answer string, ttl time.Duration) error
	// Confirm consumes the challenge and marks the user verified when answer matches.
	Confirm(ctx context.Context, giveawayID string, userID int64, answer string, ttl time.Duration) (bool, error)
	IsVerified(ctx context.Context, giveawayID string, userID int64) (bool, error)
}

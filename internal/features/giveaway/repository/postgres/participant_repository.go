package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"

	"github.com/lib/pq"
)

const (
	uniqueViolationCode      = "23505"
	ticketCodeConstraintName = "participants_ticket_code_key"
)

type participantRepository struct {
	db *sql.DB
}

func NewParticipantRepository(db *sql.DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Get(ctx context.Context, giveawayID string, userID int64) (*models.Participant, error) {
	query := `
		SELECT giveaway_id, user_id, tickets_count, referrer_id, ticket_code, joined_at
		FROM participants
		WHERE giveaway_id = $1 AND user_id = $2`

	var (
		p        models.Participant
		referrer sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, giveawayID, userID).Scan(
		&p.GiveawayID, &p.UserID, &p.TicketsCount, &referrer, &p.TicketCode, &p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if referrer.Valid {
		id := referrer.Int64
		p.ReferrerID = &id
	}
	return &p, nil
}

func (r *participantRepository) TicketCodeExists(ctx context.Context, giveawayID, code string) (bool, error) {
	query := "SELECT EXISTS(SELECT 1 FROM participants WHERE giveaway_id = $1 AND ticket_code = $2)"

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, giveawayID, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ticket code: %w", err)
	}
	return exists, nil
}

func (r *participantRepository) Create(ctx context.Context, p *models.Participant) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var referrer sql.NullInt64
	if p.ReferrerID != nil {
		referrer = sql.NullInt64{Int64: *p.ReferrerID, Valid: true}
	}

	insert := `
		INSERT INTO participants (giveaway_id, user_id, tickets_count, referrer_id, ticket_code, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (giveaway_id, user_id) DO NOTHING`

	res, err := tx.ExecContext(ctx, insert, p.GiveawayID, p.UserID, p.TicketsCount, referrer, p.TicketCode, p.JoinedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode && pqErr.Constraint == ticketCodeConstraintName {
			return false, repository.ErrTicketCodeTaken
		}
		return false, fmt.Errorf("failed to create participant: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if referrer.Valid {
		// Приглашающий получает билет только если сам участвует
		bump := `
			UPDATE participants SET tickets_count = tickets_count + 1
			WHERE giveaway_id = $1 AND user_id = $2`
		if _, err := tx.ExecContext(ctx, bump, p.GiveawayID, referrer.Int64); err != nil {
			return false, fmt.Errorf("failed to credit referrer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// GetPoolTx returns every participant with its ticket count in join order.
func (r *participantRepository) GetPoolTx(ctx context.Context, tx repository.Transaction, giveawayID string) ([]models.PoolEntry, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT user_id, tickets_count
		FROM participants
		WHERE giveaway_id = $1
		ORDER BY joined_at, user_id`

	rows, err := sqlTx.QueryContext(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants pool: %w", err)
	}
	defer rows.Close()

	var pool []models.PoolEntry
	for rows.Next() {
		var entry models.PoolEntry
		if err := rows.Scan(&entry.UserID, &entry.Tickets); err != nil {
			return nil, fmt.Errorf("failed to scan pool entry: %w", err)
		}
		pool = append(pool, entry)
	}
	return pool, rows.Err()
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"

	"github.com/lib/pq"
)

type postgresTransaction struct {
	tx *sql.Tx
}

func (t *postgresTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTransaction) Rollback() error {
	return t.tx.Rollback()
}

func unwrapTx(tx repository.Transaction) (*sql.Tx, error) {
	postgresTx, ok := tx.(*postgresTransaction)
	if !ok {
		return nil, fmt.Errorf("invalid transaction type")
	}
	return postgresTx.tx, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

type giveawayRepository struct {
	db *sql.DB
}

func NewGiveawayRepository(db *sql.DB) repository.GiveawayRepository {
	return &giveawayRepository{db: db}
}

const selectGiveaway = `
	SELECT id, creator_id, title, winners_count, ends_at, status,
		predetermined_winner_id, required_channels, captcha_enabled, weighted,
		created_at, updated_at
	FROM giveaways
	WHERE id = $1`

func (r *giveawayRepository) BeginTx(ctx context.Context) (repository.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTransaction{tx: tx}, nil
}

func (r *giveawayRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	return scanGiveaway(r.db.QueryRowContext(ctx, selectGiveaway, id))
}

// GetByIDWithLock получает гив с блокировкой строки до конца транзакции
func (r *giveawayRepository) GetByIDWithLock(ctx context.Context, tx repository.Transaction, id string) (*models.Giveaway, error) {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return scanGiveaway(sqlTx.QueryRowContext(ctx, selectGiveaway+" FOR UPDATE", id))
}

func scanGiveaway(row rowScanner) (*models.Giveaway, error) {
	var (
		g          models.Giveaway
		status     string
		rigged     sql.NullInt64
		channelIDs pq.Int64Array
	)
	err := row.Scan(&g.ID, &g.CreatorID, &g.Title, &g.WinnersCount, &g.EndsAt, &status,
		&rigged, &channelIDs, &g.CaptchaEnabled, &g.Weighted, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrGiveawayNotFound
		}
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}

	g.Status = models.GiveawayStatus(status)
	g.RequiredChannels = []int64(channelIDs)
	if rigged.Valid {
		winnerID := rigged.Int64
		g.PredeterminedWinnerID = &winnerID
	}
	return &g, nil
}

func (r *giveawayRepository) GetEndedActive(ctx context.Context, now time.Time) ([]string, error) {
	query := "SELECT id FROM giveaways WHERE status = $1 AND ends_at <= $2 ORDER BY ends_at"

	rows, err := r.db.QueryContext(ctx, query, models.GiveawayStatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get ended giveaways: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan giveaway id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *giveawayRepository) UpdateStatusTx(ctx context.Context, tx repository.Transaction, id string, status models.GiveawayStatus) error {
	sqlTx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := "UPDATE giveaways SET status = $2, updated_at = NOW() WHERE id = $1"
	if _, err := sqlTx.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("failed to update giveaway status: %w", err)
	}
	return nil
}

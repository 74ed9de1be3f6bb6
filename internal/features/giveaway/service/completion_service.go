package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"giveaway-draw-backend/internal/common/metrics"
	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CompletionService draws winners of ended giveaways, either on schedule or
// when the creator asks for it.
type CompletionService struct {
	ctx          context.Context
	cancel       context.CancelFunc
	giveaways    repository.GiveawayRepository
	participants repository.ParticipantRepository
	winners      repository.WinnerRepository
	referrals    repository.ReferralRepository
	locker       repository.Locker
	selector     *WinnerSelector
	notifier     Notifier
	settings     DrawSettings
	scheduler    *cron.Cron
	logger       zerolog.Logger
	processing   sync.Map
	semaphore    chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	stopped      bool
	now          func() time.Time
	retryDelay   time.Duration
}

func NewCompletionService(
	giveaways repository.GiveawayRepository,
	participants repository.ParticipantRepository,
	winners repository.WinnerRepository,
	referrals repository.ReferralRepository,
	locker repository.Locker,
	selector *WinnerSelector,
	notifier Notifier,
	settings DrawSettings,
	logger zerolog.Logger,
) *CompletionService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CompletionService{
		ctx:          ctx,
		cancel:       cancel,
		giveaways:    giveaways,
		participants: participants,
		winners:      winners,
		referrals:    referrals,
		locker:       locker,
		selector:     selector,
		notifier:     notifier,
		settings:     settings,
		scheduler:    cron.New(),
		logger:       logger.With().Str("service", "completion").Logger(),
		semaphore:    make(chan struct{}, MaxConcurrentProcessing),
		now:          time.Now,
		retryDelay:   RetryDelay,
	}
}

func (s *CompletionService) Start() error {
	s.logger.Info().Msg("Starting completion service")

	if _, err := s.scheduler.AddFunc(s.settings.Schedule, func() {
		if err := s.processEndedGiveaways(); err != nil {
			s.logger.Error().Err(err).Msg("Error processing ended giveaways")
		}
	}); err != nil {
		return fmt.Errorf("invalid draw schedule %q: %w", s.settings.Schedule, err)
	}

	if _, err := s.scheduler.AddFunc(s.settings.CleanupSchedule, s.cleanupPendingReferrals); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.settings.CleanupSchedule, err)
	}

	s.scheduler.Start()
	return nil
}

func (s *CompletionService) Stop() {
	s.logger.Info().Msg("Stopping completion service")
	s.cancel()
	<-s.scheduler.Stop().Done()

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("Completion service stopped")
}

func (s *CompletionService) processEndedGiveaways() error {
	ids, err := s.giveaways.GetEndedActive(s.ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to get ended giveaways: %w", err)
	}

	for _, giveawayID := range ids {
		if _, exists := s.processing.LoadOrStore(giveawayID, true); exists {
			continue
		}

		s.wg.Add(1)
		go func(id string) {
			defer s.wg.Done()
			defer s.processing.Delete(id)

			select {
			case s.semaphore <- struct{}{}:
				defer func() { <-s.semaphore }()
			case <-s.ctx.Done():
				return
			}

			if err := s.processGiveawayWithRetry(id); err != nil {
				s.logger.Error().Err(err).Str("giveaway_id", id).Msg("Failed to process giveaway")
			}
		}(giveawayID)
	}
	return nil
}

func (s *CompletionService) processGiveawayWithRetry(giveawayID string) error {
	var lastErr error
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		_, err := s.Draw(s.ctx, giveawayID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrLockContention):
			// другой экземпляр уже разыгрывает
			return nil
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrGiveawayNotEnded):
			return err
		}

		lastErr = err
		select {
		case <-time.After(s.retryDelay):
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
	return fmt.Errorf("failed after %d attempts, last error: %w", MaxRetries, lastErr)
}

// Draw selects and persists winners of an ended giveaway. Calling it for an
// already completed giveaway returns the stored winners.
func (s *CompletionService) Draw(ctx context.Context, giveawayID string) ([]models.Winner, error) {
	var winners []models.Winner
	err := withLock(ctx, s.locker, drawLockKey(giveawayID), 0, LockTimeout, s.logger, func() error {
		var err error
		winners, err = s.draw(ctx, giveawayID)
		return err
	})
	if errors.Is(err, ErrLockContention) {
		metrics.RecordLockContention("draw")
	}
	return winners, err
}

// DrawAsCreator runs the draw on the organizer's request.
func (s *CompletionService) DrawAsCreator(ctx context.Context, creatorID int64, giveawayID string) ([]models.Winner, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if !giveaway.IsCreator(creatorID) {
		return nil, ErrNotOwner
	}
	return s.Draw(ctx, giveawayID)
}

func (s *CompletionService) GetWinners(ctx context.Context, giveawayID string) ([]models.Winner, error) {
	if _, err := s.getGiveaway(ctx, giveawayID); err != nil {
		return nil, err
	}
	return s.winners.GetByGiveaway(ctx, giveawayID)
}

func (s *CompletionService) getGiveaway(ctx context.Context, giveawayID string) (*models.Giveaway, error) {
	giveaway, err := s.giveaways.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	return giveaway, nil
}

func (s *CompletionService) draw(ctx context.Context, giveawayID string) ([]models.Winner, error) {
	ctx, cancel := context.WithTimeout(ctx, ProcessingTimeout)
	defer cancel()

	tx, err := s.giveaways.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	giveaway, err := s.giveaways.GetByIDWithLock(ctx, tx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}

	if giveaway.Status != models.GiveawayStatusActive {
		return s.winners.GetByGiveaway(ctx, giveawayID)
	}
	if !giveaway.HasEnded(s.now()) {
		return nil, ErrGiveawayNotEnded
	}

	pool, err := s.participants.GetPoolTx(ctx, tx, giveawayID)
	if err != nil {
		return nil, err
	}

	if len(pool) == 0 {
		if err := s.giveaways.UpdateStatusTx(ctx, tx, giveawayID, models.GiveawayStatusExpired); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		metrics.RecordDraw(string(models.GiveawayStatusExpired), 0)
		s.logger.Info().Str("giveaway_id", giveawayID).Msg("Giveaway expired without participants")
		return []models.Winner{}, nil
	}

	ids, err := s.selector.SelectWinners(giveaway, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to select winners: %w", err)
	}

	now := s.now()
	winners := make([]models.Winner, len(ids))
	for i, userID := range ids {
		winners[i] = models.Winner{
			ID:         uuid.NewString(),
			GiveawayID: giveawayID,
			UserID:     userID,
			Place:      i + 1,
			CreatedAt:  now,
		}
	}

	if err := s.winners.CreateTx(ctx, tx, winners); err != nil {
		return nil, err
	}
	if err := s.giveaways.UpdateStatusTx(ctx, tx, giveawayID, models.GiveawayStatusFinished); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.RecordDraw(string(models.GiveawayStatusFinished), len(winners))
	s.logger.Info().
		Str("giveaway_id", giveawayID).
		Int("participants", len(pool)).
		Int("winners", len(winners)).
		Msg("Successfully completed giveaway")

	s.sendNotifications(giveaway, winners)
	return winners, nil
}

// sendNotifications notifies winners in the background. After Stop the
// messages are sent inline.
func (s *CompletionService) sendNotifications(giveaway *models.Giveaway, winners []models.Winner) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.notifyWinners(giveaway, winners)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.notifyWinners(giveaway, winners)
	}()
}

func (s *CompletionService) notifyWinners(giveaway *models.Giveaway, winners []models.Winner) {
	for _, winner := range winners {
		message := fmt.Sprintf(
			"🎉 Поздравляем! Вы заняли %d место в розыгрыше \"%s\"!\n\n👥 Организатор розыгрыша свяжется с вами для передачи приза.",
			winner.Place,
			html.EscapeString(giveaway.Title),
		)

		ctx, cancel := context.WithTimeout(context.Background(), NotificationTimeout)
		if err := s.notifier.Notify(ctx, winner.UserID, message); err != nil {
			s.logger.Error().Err(err).Int64("user_id", winner.UserID).Msg("Failed to notify winner")
		}
		cancel()
	}
}

// cleanupPendingReferrals drops staged referrals of giveaways that no longer accept participants.
func (s *CompletionService) cleanupPendingReferrals() {
	removed, err := s.referrals.DeleteForInactiveGiveaways(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error cleaning up pending referrals")
		return
	}
	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Msg("Pending referrals cleaned up")
	}
}

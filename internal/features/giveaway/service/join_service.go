package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"giveaway-draw-backend/internal/common/metrics"
	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"
	"giveaway-draw-backend/internal/utils/random"

	"github.com/rs/zerolog"
)

// JoinService registers participants. Registration of one user in one
// giveaway is serialized by a distributed lock and backed by an idempotent
// insert, so repeated or concurrent joins produce a single participant.
type JoinService struct {
	giveaways     repository.GiveawayRepository
	participants  repository.ParticipantRepository
	captcha       repository.CaptchaRepository
	locker        repository.Locker
	referrals     *ReferralLedger
	codes         *TicketCodeGenerator
	subscriptions SubscriptionChecker
	notifier      Notifier
	settings      ParticipationSettings
	source        *random.Source
	logger        zerolog.Logger
	now           func() time.Time
	wg            sync.WaitGroup
}

func NewJoinService(
	giveaways repository.GiveawayRepository,
	participants repository.ParticipantRepository,
	captcha repository.CaptchaRepository,
	locker repository.Locker,
	referrals *ReferralLedger,
	codes *TicketCodeGenerator,
	subscriptions SubscriptionChecker,
	notifier Notifier,
	settings ParticipationSettings,
	logger zerolog.Logger,
) *JoinService {
	return &JoinService{
		giveaways:     giveaways,
		participants:  participants,
		captcha:       captcha,
		locker:        locker,
		referrals:     referrals,
		codes:         codes,
		subscriptions: subscriptions,
		notifier:      notifier,
		settings:      settings,
		source:        random.Default,
		logger:        logger.With().Str("service", "join").Logger(),
		now:           time.Now,
	}
}

func (s *JoinService) Join(ctx context.Context, req *models.JoinRequest) (*models.JoinResult, error) {
	result, err := s.join(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.RecordJoin(string(result.Outcome))
	return result, nil
}

// ConfirmVerification checks the captcha answer and, when it is right,
// continues the registration.
func (s *JoinService) ConfirmVerification(ctx context.Context, giveawayID string, userID int64, answer string) (*models.JoinResult, error) {
	giveaway, err := s.getGiveaway(ctx, giveawayID)
	if err != nil {
		return nil, err
	}
	if !giveaway.IsJoinableBy(userID, s.now()) {
		return s.record(&models.JoinResult{Outcome: models.JoinOutcomeNotJoinable}), nil
	}

	// Повторная отправка ответа после регистрации
	existing, err := s.findParticipant(ctx, giveawayID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.record(models.ResultFromParticipant(models.JoinOutcomeAlreadyJoined, existing)), nil
	}

	if giveaway.CaptchaEnabled {
		ok, err := s.captcha.Confirm(ctx, giveawayID, userID, strings.TrimSpace(answer), s.settings.CaptchaTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			result, err := s.issueChallenge(ctx, giveawayID, userID)
			if err != nil {
				return nil, err
			}
			return s.record(result), nil
		}
	}

	return s.Join(ctx, &models.JoinRequest{GiveawayID: giveawayID, UserID: userID})
}

// Wait blocks until background notifications are sent.
func (s *JoinService) Wait() {
	s.wg.Wait()
}

func (s *JoinService) record(result *models.JoinResult) *models.JoinResult {
	metrics.RecordJoin(string(result.Outcome))
	return result
}

func (s *JoinService) join(ctx context.Context, req *models.JoinRequest) (*models.JoinResult, error) {
	giveaway, err := s.getGiveaway(ctx, req.GiveawayID)
	if err != nil {
		return nil, err
	}
	if !giveaway.IsJoinableBy(req.UserID, s.now()) {
		return &models.JoinResult{Outcome: models.JoinOutcomeNotJoinable}, nil
	}

	// Быстрый путь: пользователь уже участвует
	existing, err := s.findParticipant(ctx, req.GiveawayID, req.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return models.ResultFromParticipant(models.JoinOutcomeAlreadyJoined, existing), nil
	}

	err = s.withUserLock(ctx, req.GiveawayID, req.UserID, func() error {
		existing, err = s.findParticipant(ctx, req.GiveawayID, req.UserID)
		if err != nil || existing != nil {
			return err
		}
		if req.ReferralToken != "" {
			return s.stageReferral(ctx, req)
		}
		return nil
	})
	if errors.Is(err, ErrLockContention) {
		return &models.JoinResult{Outcome: models.JoinOutcomeTryAgain}, nil
	}
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return models.ResultFromParticipant(models.JoinOutcomeAlreadyJoined, existing), nil
	}

	// Проверки с участием пользователя идут без блокировки
	if result, err := s.checkPrerequisites(ctx, giveaway, req.UserID); err != nil || result != nil {
		return result, err
	}

	return s.finalize(ctx, giveaway, req.UserID)
}

func (s *JoinService) getGiveaway(ctx context.Context, giveawayID string) (*models.Giveaway, error) {
	giveaway, err := s.giveaways.GetByID(ctx, giveawayID)
	if err != nil {
		if errors.Is(err, repository.ErrGiveawayNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}
	return giveaway, nil
}

func (s *JoinService) findParticipant(ctx context.Context, giveawayID string, userID int64) (*models.Participant, error) {
	p, err := s.participants.Get(ctx, giveawayID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check participation: %w", err)
	}
	return p, nil
}

func (s *JoinService) withUserLock(ctx context.Context, giveawayID string, userID int64, fn func() error) error {
	err := withLock(ctx, s.locker, joinLockKey(giveawayID, userID), s.settings.LockWait, s.settings.LockTTL, s.logger, fn)
	if errors.Is(err, ErrLockContention) {
		metrics.RecordLockContention("join")
		s.logger.Warn().
			Str("giveaway_id", giveawayID).
			Int64("user_id", userID).
			Msg("Join lock is busy")
	}
	return err
}

// stageReferral resolves the link token and stages its owner as referrer.
// Unknown tokens and self links are ignored.
func (s *JoinService) stageReferral(ctx context.Context, req *models.JoinRequest) error {
	referrerID, ok, err := s.referrals.ResolveLink(ctx, req.ReferralToken)
	if err != nil {
		s.logger.Error().Err(err).Str("token", req.ReferralToken).Msg("Failed to resolve referral link")
		return nil
	}
	if !ok || referrerID == req.UserID {
		return nil
	}

	if err := s.referrals.Stage(ctx, req.GiveawayID, req.UserID, referrerID); err != nil {
		return fmt.Errorf("failed to stage referral: %w", err)
	}
	return nil
}

func (s *JoinService) checkPrerequisites(ctx context.Context, giveaway *models.Giveaway, userID int64) (*models.JoinResult, error) {
	var missing []int64
	for _, channelID := range giveaway.RequiredChannels {
		ok, err := s.subscriptions.IsSubscribed(ctx, channelID, userID)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrSubscriptionCheck, channelID, err)
		}
		if !ok {
			missing = append(missing, channelID)
		}
	}
	if len(missing) > 0 {
		return &models.JoinResult{
			Outcome:         models.JoinOutcomeSubscriptionRequired,
			MissingChannels: missing,
		}, nil
	}

	if !giveaway.CaptchaEnabled {
		return nil, nil
	}
	verified, err := s.captcha.IsVerified(ctx, giveaway.ID, userID)
	if err != nil {
		return nil, err
	}
	if verified {
		return nil, nil
	}
	return s.issueChallenge(ctx, giveaway.ID, userID)
}

func (s *JoinService) issueChallenge(ctx context.Context, giveawayID string, userID int64) (*models.JoinResult, error) {
	a, err := s.source.Intn(10)
	if err != nil {
		return nil, err
	}
	b, err := s.source.Intn(10)
	if err != nil {
		return nil, err
	}
	a, b = a+1, b+1

	if err := s.captcha.SaveChallenge(ctx, giveawayID, userID, strconv.Itoa(a+b), s.settings.CaptchaTTL); err != nil {
		return nil, err
	}
	return &models.JoinResult{
		Outcome:   models.JoinOutcomeVerificationRequired,
		Challenge: fmt.Sprintf("%d + %d", a, b),
	}, nil
}

func (s *JoinService) finalize(ctx context.Context, giveaway *models.Giveaway, userID int64) (*models.JoinResult, error) {
	var result *models.JoinResult

	err := s.withUserLock(ctx, giveaway.ID, userID, func() error {
		existing, err := s.findParticipant(ctx, giveaway.ID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = models.ResultFromParticipant(models.JoinOutcomeAlreadyJoined, existing)
			return nil
		}

		staged, hasReferral, err := s.referrals.Consume(ctx, giveaway.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to consume referral: %w", err)
		}

		var referrerID *int64
		if hasReferral {
			circular, err := s.referrals.IsCircular(ctx, giveaway.ID, userID, staged)
			if err != nil {
				s.restoreReferral(ctx, giveaway.ID, userID, staged)
				return err
			}
			if circular {
				metrics.RecordRejectedReferral()
				s.logger.Warn().
					Str("giveaway_id", giveaway.ID).
					Int64("user_id", userID).
					Int64("referrer_id", staged).
					Msg("Dropping circular referral")
			} else {
				referrerID = &staged
			}
		}

		participant, created, err := s.register(ctx, giveaway.ID, userID, referrerID)
		if err != nil {
			if hasReferral {
				s.restoreReferral(ctx, giveaway.ID, userID, staged)
			}
			return err
		}

		if !created {
			result = models.ResultFromParticipant(models.JoinOutcomeAlreadyJoined, participant)
			return nil
		}

		s.logger.Info().
			Str("giveaway_id", giveaway.ID).
			Int64("user_id", userID).
			Str("ticket_code", participant.TicketCode).
			Msg("Participant registered")

		// Билет начисляется только участвующему пригласившему, уведомляем только его
		if referrerID != nil {
			referrer, err := s.findParticipant(ctx, giveaway.ID, *referrerID)
			if err != nil {
				s.logger.Error().Err(err).Int64("referrer_id", *referrerID).Msg("Failed to load referrer")
			} else if referrer != nil {
				s.notifyReferrer(giveaway, *referrerID)
			}
		}
		result = models.ResultFromParticipant(models.JoinOutcomeJoined, participant)
		return nil
	})
	if errors.Is(err, ErrLockContention) {
		return &models.JoinResult{Outcome: models.JoinOutcomeTryAgain}, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// register inserts the participant and reads back the stored row. The
// returned flag is false when a concurrent registration won the insert.
func (s *JoinService) register(ctx context.Context, giveawayID string, userID int64, referrerID *int64) (*models.Participant, bool, error) {
	for attempt := 0; attempt < MaxTicketInsertAttempts; attempt++ {
		code, err := s.codes.Generate(ctx, giveawayID)
		if err != nil {
			return nil, false, err
		}

		created, err := s.participants.Create(ctx, &models.Participant{
			GiveawayID:   giveawayID,
			UserID:       userID,
			TicketsCount: 1,
			ReferrerID:   referrerID,
			TicketCode:   code,
			JoinedAt:     s.now(),
		})
		if errors.Is(err, repository.ErrTicketCodeTaken) {
			continue
		}
		if err != nil {
			return nil, false, err
		}

		stored, err := s.participants.Get(ctx, giveawayID, userID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read participant: %w", err)
		}
		return stored, created, nil
	}
	return nil, false, ErrTicketCodeExhausted
}

// restoreReferral puts a consumed referral back so the next attempt sees it.
func (s *JoinService) restoreReferral(ctx context.Context, giveawayID string, userID, referrerID int64) {
	if err := s.referrals.Stage(context.WithoutCancel(ctx), giveawayID, userID, referrerID); err != nil {
		s.logger.Error().Err(err).
			Str("giveaway_id", giveawayID).
			Int64("user_id", userID).
			Msg("Failed to restore pending referral")
	}
}

func (s *JoinService) notifyReferrer(giveaway *models.Giveaway, referrerID int64) {
	message := fmt.Sprintf(
		"👥 По вашей ссылке присоединился новый участник розыгрыша \"%s\"!\n\n🎟 Вы получили +1 билет.",
		html.EscapeString(giveaway.Title),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), NotificationTimeout)
		defer cancel()

		if err := s.notifier.Notify(ctx, referrerID, message); err != nil {
			s.logger.Error().Err(err).Int64("user_id", referrerID).Msg("Failed to notify referrer")
		}
	}()
}

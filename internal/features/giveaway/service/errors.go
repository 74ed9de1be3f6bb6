package service

import (
	"errors"

	"giveaway-draw-backend/internal/features/giveaway/models"
)

// Custom errors for giveaway service
var (
	ErrNotFound            = errors.New("giveaway not found")
	ErrNotOwner            = errors.New("you are not the owner of this giveaway")
	ErrGiveawayNotActive   = errors.New("giveaway is not active")
	ErrGiveawayNotEnded    = errors.New("giveaway has not ended yet")
	ErrLockContention      = errors.New("resource is busy, try again shortly")
	ErrTicketCodeExhausted = errors.New("failed to generate unique ticket code")
	ErrSubscriptionCheck   = errors.New("failed to check channel subscription")
	ErrInvalidCategory     = models.ErrInvalidBonusCategory
)

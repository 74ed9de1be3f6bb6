package service

import (
	"context"
	"fmt"

	"giveaway-draw-backend/internal/features/giveaway/models"
	"giveaway-draw-backend/internal/features/giveaway/repository"
	"giveaway-draw-backend/internal/utils/random"
)

// TicketCodeGenerator issues short codes unique within one giveaway.
type TicketCodeGenerator struct {
	participants repository.ParticipantRepository
	source       *random.Source
}

func NewTicketCodeGenerator(participants repository.ParticipantRepository) *TicketCodeGenerator {
	return &TicketCodeGenerator{
		participants: participants,
		source:       random.Default,
	}
}

func (g *TicketCodeGenerator) Generate(ctx context.Context, giveawayID string) (string, error) {
	for attempt := 0; attempt < models.MaxTicketCodeAttempts; attempt++ {
		code, err := g.source.String(random.UpperAlphaNumeric, models.TicketCodeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate ticket code: %w", err)
		}

		exists, err := g.participants.TicketCodeExists(ctx, giveawayID, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrTicketCodeExhausted
}

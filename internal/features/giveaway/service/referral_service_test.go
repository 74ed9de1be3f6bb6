package service

import (
	"context"
	"testing"

	"giveaway-draw-backend/internal/features/giveaway/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralLedger_StageAndConsume(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.referralLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Stage(ctx, "gw", 2, 1))
	// последняя запись побеждает
	require.NoError(t, ledger.Stage(ctx, "gw", 2, 3))

	referrerID, ok, err := ledger.Consume(ctx, "gw", 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), referrerID)

	_, ok, err = ledger.Consume(ctx, "gw", 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReferralLedger_IsCircular(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.referralLedger()
	env.store.addParticipant(models.Participant{GiveawayID: "gw", UserID: 2, TicketsCount: 1, ReferrerID: ptr(int64(1)), TicketCode: "AAAAA"})
	env.store.addParticipant(models.Participant{GiveawayID: "gw", UserID: 3, TicketsCount: 1, TicketCode: "BBBBB"})

	tests := []struct {
		name     string
		invitee  int64
		referrer int64
		want     bool
	}{
		{"self", 5, 5, true},
		{"direct cycle", 1, 2, true},
		{"referrer without referrer", 1, 3, false},
		{"referrer invited by someone else", 4, 2, false},
		{"referrer not participating", 1, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ledger.IsCircular(context.Background(), "gw", tt.invitee, tt.referrer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReferralLedger_Links(t *testing.T) {
	env := newTestEnv(t)
	ledger := env.referralLedger()
	ctx := context.Background()

	token, err := ledger.IssueLink(ctx, 77)
	require.NoError(t, err)

	userID, ok, err := ledger.ResolveLink(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(77), userID)

	_, ok, err = ledger.ResolveLink(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

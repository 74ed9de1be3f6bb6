package models

import (
	"errors"
	"time"
)

var ErrInvalidBonusCategory = errors.New("bonus category must be 1-64 characters")

const maxBonusCategoryLength = 64

// BonusCategory is an open tag naming one independently earnable source of
// extra tickets. It is only used as a uniqueness key.
type BonusCategory string

const (
	BonusCategorySocialRepost BonusCategory = "social-repost"
	BonusCategoryChannelBoost BonusCategory = "channel-boost"
	BonusCategoryStory        BonusCategory = "story"
	BonusCategoryReferral     BonusCategory = "referral"
)

func (c BonusCategory) Validate() error {
	if c == "" || len(c) > maxBonusCategoryLength {
		return ErrInvalidBonusCategory
	}
	return nil
}

type BonusGrant struct {
	GiveawayID string        `json:"giveaway_id"`
	UserID     int64         `json:"user_id"`
	Category   BonusCategory `json:"category"`
	Comment    string        `json:"comment,omitempty"`
	Verified   bool          `json:"verified"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type BonusDenyReason string

const (
	BonusDenyNone           BonusDenyReason = ""
	BonusDenyNotParticipant BonusDenyReason = "not_participant"
	BonusDenyAlreadyGranted BonusDenyReason = "already_granted"
	BonusDenyNotActive      BonusDenyReason = "not_active"
)

type BonusEligibility struct {
	Allowed bool            `json:"allowed"`
	Reason  BonusDenyReason `json:"reason,omitempty"`
}

type BonusGrantRequest struct {
	UserID   int64         `json:"user_id" binding:"required"`
	Category BonusCategory `json:"category" binding:"required,max=64"`
	Comment  string        `json:"comment" binding:"max=512"`
}

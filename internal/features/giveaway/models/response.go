package models

// Ответы API для swagger

type BonusGrantResponse struct {
	Granted bool `json:"granted"`
}

type ReferralLinkResponse struct {
	Token string `json:"token"`
}

type ReferralOwnerResponse struct {
	UserID int64 `json:"user_id"`
}

type WinnersResponse struct {
	GiveawayID string   `json:"giveaway_id"`
	Winners    []Winner `json:"winners"`
}

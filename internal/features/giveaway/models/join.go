package models

// JoinOutcome distinguishes the expected results of a join attempt. None of
// them are errors; storage failures are returned separately.
type JoinOutcome string

const (
	JoinOutcomeJoined               JoinOutcome = "joined"
	JoinOutcomeAlreadyJoined        JoinOutcome = "already_joined"
	JoinOutcomeNotJoinable          JoinOutcome = "not_joinable"
	JoinOutcomeTryAgain             JoinOutcome = "try_again"
	JoinOutcomeSubscriptionRequired JoinOutcome = "subscription_required"
	JoinOutcomeVerificationRequired JoinOutcome = "verification_required"
)

type JoinRequest struct {
	GiveawayID    string
	UserID        int64
	ReferralToken string
}

type JoinResult struct {
	Outcome         JoinOutcome `json:"outcome"`
	TicketCode      string      `json:"ticket_code,omitempty"`
	TicketsCount    int         `json:"tickets_count,omitempty"`
	MissingChannels []int64     `json:"missing_channels,omitempty"`
	Challenge       string      `json:"challenge,omitempty"`
}

// Participated reports whether the caller holds a participant record.
func (r *JoinResult) Participated() bool {
	return r.Outcome == JoinOutcomeJoined || r.Outcome == JoinOutcomeAlreadyJoined
}

func ResultFromParticipant(outcome JoinOutcome, p *Participant) *JoinResult {
	return &JoinResult{
		Outcome:      outcome,
		TicketCode:   p.TicketCode,
		TicketsCount: p.TicketsCount,
	}
}

type JoinBody struct {
	ReferralToken string `json:"referral_token" binding:"max=64"`
}

type VerifyBody struct {
	Answer string `json:"answer" binding:"required,max=16"`
}

package models

import "time"

// Notification types emitted by the engine. Advisory only: observers may
// consume them over SSE, but no state transition depends on one.
const (
	NotifyChallengeCreated  = "challenge_created"
	NotifySolutionSubmitted = "solution_submitted"
	NotifyBountyResolved    = "bounty_resolved"
	NotifyPayoutFinalized   = "payout_finalized"
)

// Notification is one advisory event record, written inside the same
// transaction as the action that produced it.
type Notification struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Type        string `gorm:"type:varchar(32);not null;index" json:"type"`
	HackathonID string `gorm:"index" json:"hackathon_id,omitempty"`
	Payload     string `gorm:"type:text" json:"payload"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

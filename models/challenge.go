package models

import "time"

// Challenge is a sponsored task with a reward locked on the sponsor's wallet
// under the reason "challenge:<id>". The lock is held for the challenge's
// entire lifetime; it is only ever released back to the sponsor or
// transferred out by finalization.
//
// IDs are small unsigned integers allocated from the "challenge" sequence.
// Allocation is monotonic and errors out when the uint16 space is exhausted
// instead of wrapping.
type Challenge struct {
	ID          uint16 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	HackathonID string `gorm:"index;not null" json:"hackathon_id"`
	Sponsor     string `gorm:"index;not null" json:"sponsor"`

	// Description is the sha-256 hex digest of the challenge brief stored in
	// the blob store (the on-ledger content pointer).
	Description string `gorm:"size:64;not null" json:"description"`
	Reward      int64  `gorm:"not null" json:"reward"`

	// JudgesAssigned is set once, either at creation or by a later
	// assign-judges call. The judge set is immutable afterwards.
	JudgesAssigned bool   `gorm:"default:false" json:"judges_assigned"`
	Submissions    uint32 `gorm:"default:0" json:"submissions"`

	Finalized    bool    `gorm:"default:false;index" json:"finalized"`
	WinnerTeamID *uint32 `json:"winner_team_id,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Judges []ChallengeJudge `json:"judges,omitempty" gorm:"foreignKey:ChallengeID"`
}

// ChallengeJudge is one account eligible to vote on a challenge. A challenge
// with no judge rows is open to votes from any account.
type ChallengeJudge struct {
	ID          string `gorm:"primaryKey" json:"id"`
	ChallengeID uint16 `gorm:"uniqueIndex:idx_challenge_judge;not null" json:"challenge_id"`
	Account     string `gorm:"uniqueIndex:idx_challenge_judge;not null" json:"account"`
}

package models

import "time"

// Bounty review states. A claim moves an open bounty straight to
// pending_review; a majority reject moves it back to open with a fresh
// review cycle, so neither "claimed" nor "rejected" is ever stored. Expired
// is a terminal sweep state for bounties that ran out before resolving.
const (
	BountyStateOpen          = "open"
	BountyStatePendingReview = "pending_review"
	BountyStateApproved      = "approved"
	BountyStateExpired       = "expired"
)

// Bounty is a sub-task a team offers to outside buidlers in exchange for a
// percentage of the team's eventual challenge winnings. The percentages of
// a team's non-expired bounties never sum past 100.
type Bounty struct {
	ID     uint32 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TeamID uint32 `gorm:"index;not null" json:"team_id"`
	Poster string `gorm:"not null" json:"poster"`

	// Description is the sha-256 hex digest of the bounty brief.
	Description  string `gorm:"size:64;not null" json:"description"`
	ExpiryHeight uint64 `gorm:"not null" json:"expiry_height"`
	Percentage   uint8  `gorm:"not null" json:"percentage"`

	State string `gorm:"type:varchar(16);default:'open';index" json:"state"`

	// Claimant and Solution are set while a claim is under review and once a
	// bounty is approved; a majority reject clears them.
	Claimant *string `json:"claimant,omitempty"`
	Solution *string `gorm:"size:64" json:"solution,omitempty"`

	// ReviewCycle increments every time a claim is cleared, so votes from a
	// previous review never leak into the next one.
	ReviewCycle int `gorm:"default:0" json:"review_cycle"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BountyVote is one team member's approve/reject on the current claim.
// Unique per (bounty, cycle, voter): each member votes at most once per
// review cycle.
type BountyVote struct {
	ID       string `gorm:"primaryKey" json:"id"`
	BountyID uint32 `gorm:"uniqueIndex:idx_bounty_vote;not null" json:"bounty_id"`
	Cycle    int    `gorm:"uniqueIndex:idx_bounty_vote;not null" json:"cycle"`
	Voter    string `gorm:"uniqueIndex:idx_bounty_vote;not null" json:"voter"`
	Approve  bool   `gorm:"not null" json:"approve"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

package models

import "time"

// JudgeVote is a judge's single active vote for one challenge. Re-voting
// overwrites the previous row; the (challenge_id, judge) pair stays unique.
type JudgeVote struct {
	ID          string `gorm:"primaryKey" json:"id"`
	ChallengeID uint16 `gorm:"uniqueIndex:idx_judge_vote;not null" json:"challenge_id"`
	Judge       string `gorm:"uniqueIndex:idx_judge_vote;not null" json:"judge"`
	TeamID      uint32 `gorm:"not null" json:"team_id"`
	Height      uint64 `gorm:"not null" json:"height"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

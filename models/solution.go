package models

import "time"

// SubmittedSolution is a team's final answer to a challenge. At most one per
// (challenge, team) pair, accepted only while the submission window is open.
// SubmittedHeight breaks judge-vote ties: earliest submission wins.
type SubmittedSolution struct {
	ID          string `gorm:"primaryKey" json:"id"`
	ChallengeID uint16 `gorm:"uniqueIndex:idx_challenge_team;not null" json:"challenge_id"`
	TeamID      uint32 `gorm:"uniqueIndex:idx_challenge_team;not null" json:"team_id"`

	// Solution is the sha-256 hex digest of the submitted artifact.
	Solution        string `gorm:"size:64;not null" json:"solution"`
	SubmittedHeight uint64 `gorm:"not null" json:"submitted_height"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Members []SolutionMember `json:"members,omitempty" gorm:"foreignKey:SolutionID"`
}

// SolutionMember is one contributing account, kept in submission order.
type SolutionMember struct {
	ID         string `gorm:"primaryKey" json:"id"`
	SolutionID string `gorm:"index;not null" json:"solution_id"`
	Account    string `gorm:"not null" json:"account"`
	Position   int    `gorm:"not null" json:"position"`
}

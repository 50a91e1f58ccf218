package models

import "time"

// Hackathon is the administrative root of one event. Challenges, teams,
// bounties and solutions all hang off it. The organizer's bond stays locked
// on their wallet for the lifetime of the event.
//
// Periods are expressed as ledger block heights: the submission window must
// strictly precede the voting window, and only admins may move the windows,
// only before submissions open.
type Hackathon struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null" json:"name"`
	Slug      string `gorm:"uniqueIndex;not null" json:"slug"`
	Organizer string `gorm:"index;not null" json:"organizer"`
	Bond      int64  `gorm:"not null" json:"bond"`

	SubmissionStart uint64 `gorm:"not null" json:"submission_start"`
	SubmissionEnd   uint64 `gorm:"not null" json:"submission_end"`
	VotingStart     uint64 `gorm:"not null" json:"voting_start"`
	VotingEnd       uint64 `gorm:"not null" json:"voting_end"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Admins []HackathonAdmin `json:"admins,omitempty" gorm:"foreignKey:HackathonID"`
}

// HackathonAdmin grants an account admin rights over one event.
type HackathonAdmin struct {
	ID          string `gorm:"primaryKey" json:"id"`
	HackathonID string `gorm:"uniqueIndex:idx_hackathon_admin;not null" json:"hackathon_id"`
	Account     string `gorm:"uniqueIndex:idx_hackathon_admin;not null" json:"account"`
}

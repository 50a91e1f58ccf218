package models

import "time"

// Team is a bounded group of accounts collaborating on an event's
// challenges. The founder is always a member; the roster never exceeds the
// configured maximum and never contains duplicates.
type Team struct {
	ID          uint32 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	HackathonID string `gorm:"index;not null" json:"hackathon_id"`
	Founder     string `gorm:"index;not null" json:"founder"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Members []TeamMember `json:"members,omitempty" gorm:"foreignKey:TeamID"`
}

// TeamMember is one roster entry. The (team_id, account) pair is unique.
type TeamMember struct {
	ID      string `gorm:"primaryKey" json:"id"`
	TeamID  uint32 `gorm:"uniqueIndex:idx_team_member;not null" json:"team_id"`
	Account string `gorm:"uniqueIndex:idx_team_member;not null" json:"account"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

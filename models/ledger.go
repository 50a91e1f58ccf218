// models/ledger.go
package models

import "time"

// Wallet mirrors one account's balance on the host ledger.
// Populated by the ledger sync worker; debited/credited locally when locked
// funds are transferred at finalization.
type Wallet struct {
	Account string `gorm:"primaryKey" json:"account"`
	Balance int64  `gorm:"not null" json:"balance"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// FundLock reserves part of an account's balance under a named reason
// (e.g. "challenge:7", "bond:<event>"). Free balance = balance minus the sum
// of the account's locks. One lock per (account, reason).
type FundLock struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Account string `gorm:"uniqueIndex:idx_fund_lock;not null" json:"account"`
	Reason  string `gorm:"uniqueIndex:idx_fund_lock;not null" json:"reason"`
	Amount  int64  `gorm:"not null" json:"amount"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// ChainCursor is the single row holding the last ledger height the engine
// has observed. The sync worker only ever moves it forward.
type ChainCursor struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Height uint64 `gorm:"not null" json:"height"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Sequence is a named monotonic counter for small-integer entity IDs
// (challenges, teams, bounties). Next holds the next unassigned value.
type Sequence struct {
	Name string `gorm:"primaryKey" json:"name"`
	Next uint64 `gorm:"not null" json:"next"`
}

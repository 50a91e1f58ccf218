package services

import (
	"testing"

	"buidl-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockRespectsFreeBalance(t *testing.T) {
	e := newTestEngine(t)
	e.fundWallet(t, "alice", 100)

	require.NoError(t, e.Ledger.Lock(e.DB, "alice", 60, "challenge:1"))

	// Free balance is now 40, a 50-unit lock must fail.
	err := e.Ledger.Lock(e.DB, "alice", 50, "challenge:2")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	require.NoError(t, e.Ledger.Lock(e.DB, "alice", 40, "challenge:2"))
	assert.Equal(t, int64(100), e.lockedSum(t, "challenge:"))
	assert.Equal(t, int64(100), e.walletBalance(t, "alice"))
}

func TestLockUnknownWallet(t *testing.T) {
	e := newTestEngine(t)
	err := e.Ledger.Lock(e.DB, "ghost", 10, "challenge:1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestReleaseReturnsFundsToFreeBalance(t *testing.T) {
	e := newTestEngine(t)
	e.fundWallet(t, "alice", 100)

	require.NoError(t, e.Ledger.Lock(e.DB, "alice", 100, "challenge:1"))
	require.NoError(t, e.Ledger.Release(e.DB, "alice", "challenge:1"))

	// The full balance is free again.
	require.NoError(t, e.Ledger.Lock(e.DB, "alice", 100, "challenge:2"))
	assert.Equal(t, int64(100), e.walletBalance(t, "alice"))
}

func TestReleaseAbsentLockIsNoop(t *testing.T) {
	e := newTestEngine(t)
	e.fundWallet(t, "alice", 100)
	require.NoError(t, e.Ledger.Release(e.DB, "alice", "challenge:9"))
	assert.Equal(t, int64(100), e.walletBalance(t, "alice"))
}

func TestTransferLockedMovesBalance(t *testing.T) {
	e := newTestEngine(t)
	e.fundWallet(t, "alice", 100)
	require.NoError(t, e.Ledger.Lock(e.DB, "alice", 60, "challenge:1"))

	// Bob has no wallet yet; the transfer creates one.
	require.NoError(t, e.Ledger.TransferLocked(e.DB, "alice", "challenge:1", "bob", 40))
	assert.Equal(t, int64(60), e.walletBalance(t, "alice"))
	assert.Equal(t, int64(40), e.walletBalance(t, "bob"))
	assert.Equal(t, int64(20), e.lockedSum(t, "challenge:"))

	// More than the lock holds.
	err := e.Ledger.TransferLocked(e.DB, "alice", "challenge:1", "bob", 30)
	assert.ErrorIs(t, err, ErrInsufficientLockedFunds)

	// Draining the lock removes the row.
	require.NoError(t, e.Ledger.TransferLocked(e.DB, "alice", "challenge:1", "bob", 20))
	var locks int64
	require.NoError(t, e.DB.Model(&models.FundLock{}).Count(&locks).Error)
	assert.Zero(t, locks)
	assert.Equal(t, int64(40), e.walletBalance(t, "alice"))
	assert.Equal(t, int64(60), e.walletBalance(t, "bob"))
}

func TestTransferLockedUnknownReason(t *testing.T) {
	e := newTestEngine(t)
	e.fundWallet(t, "alice", 100)
	err := e.Ledger.TransferLocked(e.DB, "alice", "challenge:404", "bob", 10)
	assert.ErrorIs(t, err, ErrInsufficientLockedFunds)
}

func TestCurrentHeightStartsAtZero(t *testing.T) {
	e := newTestEngine(t)
	height, err := e.Ledger.CurrentHeight(e.DB)
	require.NoError(t, err)
	assert.Zero(t, height)

	e.setHeight(t, 42)
	height, err = e.Ledger.CurrentHeight(e.DB)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), height)
}

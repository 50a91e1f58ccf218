// services/ledger_service.go
package services

import (
	"errors"
	"log"

	"buidl-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService is the fund lock adapter over the mirrored host ledger.
// Locking is conservative: a lock that would exceed the free balance fails
// atomically, and because every call runs inside the caller's transaction,
// the whole action is rejected with it.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// CurrentHeight reads the ledger height observed by the sync worker. All
// window and expiry checks inside an action use this single value.
func (s *LedgerService) CurrentHeight(tx *gorm.DB) (uint64, error) {
	var cursor models.ChainCursor
	if err := tx.Where(models.ChainCursor{ID: 1}).
		Attrs(models.ChainCursor{Height: 0}).
		FirstOrCreate(&cursor).Error; err != nil {
		return 0, err
	}
	return cursor.Height, nil
}

// Lock reserves amount of account's free balance under reason. Fails with
// ErrInsufficientFunds when the free balance (balance minus existing locks)
// cannot cover it.
func (s *LedgerService) Lock(tx *gorm.DB, account string, amount int64, reason string) error {
	if amount <= 0 {
		return ErrInsufficientFunds
	}

	var wallet models.Wallet
	if err := forUpdate(tx).
		First(&wallet, "account = ?", account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInsufficientFunds
		}
		return err
	}

	locked, err := s.lockedTotal(tx, account)
	if err != nil {
		return err
	}
	if amount > wallet.Balance-locked {
		return ErrInsufficientFunds
	}

	lock := &models.FundLock{
		ID:      uuid.NewString(),
		Account: account,
		Reason:  reason,
		Amount:  amount,
	}
	return tx.Create(lock).Error
}

// Release drops the lock held under reason, returning the amount to the
// account's free balance. Releasing an absent lock is a no-op.
func (s *LedgerService) Release(tx *gorm.DB, account, reason string) error {
	return tx.Where("account = ? AND reason = ?", account, reason).
		Delete(&models.FundLock{}).Error
}

// TransferLocked moves amount out of from's lock under reason into to's free
// balance. Fails with ErrInsufficientLockedFunds when the lock does not
// exist or holds less than amount. The lock row is removed once drained.
func (s *LedgerService) TransferLocked(tx *gorm.DB, from, reason, to string, amount int64) error {
	if amount <= 0 {
		return ErrInsufficientLockedFunds
	}

	var lock models.FundLock
	if err := forUpdate(tx).
		First(&lock, "account = ? AND reason = ?", from, reason).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInsufficientLockedFunds
		}
		return err
	}
	if lock.Amount < amount {
		return ErrInsufficientLockedFunds
	}

	var fromWallet models.Wallet
	if err := forUpdate(tx).
		First(&fromWallet, "account = ?", from).Error; err != nil {
		return err
	}
	fromWallet.Balance -= amount
	if err := tx.Save(&fromWallet).Error; err != nil {
		return err
	}

	var toWallet models.Wallet
	if err := tx.Where(models.Wallet{Account: to}).
		Attrs(models.Wallet{Balance: 0}).
		FirstOrCreate(&toWallet).Error; err != nil {
		return err
	}
	toWallet.Balance += amount
	if err := tx.Save(&toWallet).Error; err != nil {
		return err
	}

	lock.Amount -= amount
	if lock.Amount == 0 {
		return tx.Delete(&lock).Error
	}
	return tx.Save(&lock).Error
}

func (s *LedgerService) lockedTotal(tx *gorm.DB, account string) (int64, error) {
	var locked int64
	err := tx.Model(&models.FundLock{}).
		Where("account = ?", account).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&locked).Error
	return locked, err
}

// --- Read endpoints ---

// GetWallet returns an account's mirrored balance alongside its locks.
func (s *LedgerService) GetWallet(c *fiber.Ctx) error {
	account := c.Params("account")

	var wallet models.Wallet
	if err := s.DB.First(&wallet, "account = ?", account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrWalletNotFound)
		}
		log.Printf("DB error fetching wallet %s: %v", account, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var locks []models.FundLock
	if err := s.DB.Where("account = ?", account).Order("created_at ASC").Find(&locks).Error; err != nil {
		log.Printf("DB error fetching locks for %s: %v", account, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var locked int64
	for _, l := range locks {
		locked += l.Amount
	}

	return c.JSON(fiber.Map{
		"wallet": wallet,
		"locks":  locks,
		"free":   wallet.Balance - locked,
	})
}

// GetHeight returns the current observed ledger height.
func (s *LedgerService) GetHeight(c *fiber.Ctx) error {
	height, err := s.CurrentHeight(s.DB)
	if err != nil {
		log.Printf("DB error reading chain cursor: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"height": height})
}

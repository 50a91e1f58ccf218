// services/bounty_service.go
package services

import (
	"errors"
	"log"
	"math"
	"os"
	"strconv"

	"buidl-engine/models"
	"buidl-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BountyService runs the bounty review state machine:
//
//	open -> (claim) -> pending_review -> (majority approve) -> approved
//	                  pending_review -> (majority reject)  -> open, expiry reset
//	open | pending_review -> (past expiry, sweep) -> expired
//
// Majority is evaluated from the vote tally on every cast, never from a
// running counter.
type BountyService struct {
	DB              *gorm.DB
	Ledger          *LedgerService
	ExtensionBlocks uint64
}

func NewBountyService(db *gorm.DB, ledger *LedgerService) *BountyService {
	return &BountyService{DB: db, Ledger: ledger, ExtensionBlocks: extensionBlocksFromEnv()}
}

// extensionBlocksFromEnv reads the expiry-reset window applied after a
// majority reject.
func extensionBlocksFromEnv() uint64 {
	if v := os.Getenv("BOUNTY_EXTENSION_BLOCKS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			return n
		}
		log.Printf("⚠️  invalid BOUNTY_EXTENSION_BLOCKS=%q, using default 100", v)
	}
	return 100
}

// PostBounty issues a new open bounty for the caller's team. The percentage
// joins the team's issued equity, which may never exceed 100.
func (s *BountyService) PostBounty(caller string, teamID uint32, description string, expiryHeight uint64, percentage uint8) (*models.Bounty, error) {
	if !utils.ValidDigest(description) {
		return nil, ErrInvalidDigest
	}
	if percentage > 100 {
		return nil, ErrPercentageRange
	}

	var bounty *models.Bounty
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		member, err := isTeamMember(tx, teamID, caller)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotTeamMember
		}

		height, err := s.Ledger.CurrentHeight(tx)
		if err != nil {
			return err
		}
		if expiryHeight <= height {
			return ErrExpiryInPast
		}

		issued, err := issuedPercentage(tx, teamID)
		if err != nil {
			return err
		}
		if issued+int64(percentage) > 100 {
			return ErrEquityExceeded
		}

		next, err := nextSequenceValue(tx, "bounty", math.MaxUint32)
		if err != nil {
			return err
		}

		bounty = &models.Bounty{
			ID:           uint32(next),
			TeamID:       teamID,
			Poster:       caller,
			Description:  description,
			ExpiryHeight: expiryHeight,
			Percentage:   percentage,
			State:        models.BountyStateOpen,
		}
		return tx.Create(bounty).Error
	})
	if err != nil {
		return nil, err
	}
	return bounty, nil
}

// issuedPercentage sums a team's issued equity. Expired bounties are swept
// out of payout eligibility, so their percentage returns to the pool.
func issuedPercentage(tx *gorm.DB, teamID uint32) (int64, error) {
	var issued int64
	err := tx.Model(&models.Bounty{}).
		Where("team_id = ? AND state <> ?", teamID, models.BountyStateExpired).
		Select("COALESCE(SUM(percentage), 0)").
		Scan(&issued).Error
	return issued, err
}

// ClaimBounty records an individual buidler's work against an open bounty
// and puts the claim under team review. One active claimant at a time.
func (s *BountyService) ClaimBounty(claimant string, bountyID uint32, solution string) error {
	if !utils.ValidDigest(solution) {
		return ErrInvalidDigest
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		bounty, err := lockBounty(tx, bountyID)
		if err != nil {
			return err
		}
		if bounty.State != models.BountyStateOpen {
			return ErrBountyNotOpen
		}

		height, err := s.Ledger.CurrentHeight(tx)
		if err != nil {
			return err
		}
		if height >= bounty.ExpiryHeight {
			return ErrBountyExpired
		}

		bounty.Claimant = &claimant
		bounty.Solution = &solution
		bounty.State = models.BountyStatePendingReview
		return tx.Save(bounty).Error
	})
}

// VoteOnBounty casts one team member's approve/reject on the claim under
// review and resolves the state if either side reaches a strict majority of
// the eligible voters (team members minus the claimant).
func (s *BountyService) VoteOnBounty(caller string, bountyID uint32, approve bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		bounty, err := lockBounty(tx, bountyID)
		if err != nil {
			return err
		}
		if bounty.State != models.BountyStatePendingReview {
			return ErrBountyNotPendingReview
		}

		// The sweep may not have visited yet; an expired claim is not votable.
		height, err := s.Ledger.CurrentHeight(tx)
		if err != nil {
			return err
		}
		if height >= bounty.ExpiryHeight {
			return ErrBountyExpired
		}

		member, err := isTeamMember(tx, bounty.TeamID, caller)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotTeamMember
		}
		if bounty.Claimant != nil && caller == *bounty.Claimant {
			return ErrClaimantCannotVote
		}

		var existing int64
		if err := tx.Model(&models.BountyVote{}).
			Where("bounty_id = ? AND cycle = ? AND voter = ?", bountyID, bounty.ReviewCycle, caller).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyVoted
		}

		if err := tx.Create(&models.BountyVote{
			ID:       uuid.NewString(),
			BountyID: bountyID,
			Cycle:    bounty.ReviewCycle,
			Voter:    caller,
			Approve:  approve,
		}).Error; err != nil {
			return err
		}

		eligible, err := eligibleVoters(tx, bounty)
		if err != nil {
			return err
		}

		var votes []models.BountyVote
		if err := tx.Where("bounty_id = ? AND cycle = ?", bountyID, bounty.ReviewCycle).
			Find(&votes).Error; err != nil {
			return err
		}
		approvals, rejections := 0, 0
		for _, v := range votes {
			if v.Approve {
				approvals++
			} else {
				rejections++
			}
		}

		switch {
		case approvals*2 > eligible:
			return s.resolveApproved(tx, bounty)
		case rejections*2 > eligible:
			return s.resolveRejected(tx, bounty)
		default:
			// A single reject does not resolve the claim; review continues.
			return nil
		}
	})
}

// ApproveBounty is the founder's override: equivalent to the majority
// approve outcome, for breaking review deadlocks before expiry.
func (s *BountyService) ApproveBounty(caller string, bountyID uint32) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		bounty, err := lockBounty(tx, bountyID)
		if err != nil {
			return err
		}

		var team models.Team
		if err := tx.First(&team, "id = ?", bounty.TeamID).Error; err != nil {
			return err
		}
		if team.Founder != caller {
			return ErrNotFounder
		}

		if bounty.State != models.BountyStatePendingReview {
			return ErrBountyNotPendingReview
		}
		height, err := s.Ledger.CurrentHeight(tx)
		if err != nil {
			return err
		}
		if height >= bounty.ExpiryHeight {
			return ErrBountyExpired
		}
		return s.resolveApproved(tx, bounty)
	})
}

// ExtendBountyExpiry pushes the expiry strictly forward. Allowed in any
// non-approved state; extending an expired-swept bounty reopens it with a
// fresh review cycle. A reopen puts the percentage back into the team's
// issued equity, so it re-checks the cap and requires a future expiry.
func (s *BountyService) ExtendBountyExpiry(caller string, bountyID uint32, newExpiry uint64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		bounty, err := lockBounty(tx, bountyID)
		if err != nil {
			return err
		}

		member, err := isTeamMember(tx, bounty.TeamID, caller)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotTeamMember
		}

		if bounty.State == models.BountyStateApproved {
			return ErrBountyApproved
		}
		if newExpiry <= bounty.ExpiryHeight {
			return ErrExpiryNotExtended
		}

		if bounty.State == models.BountyStateExpired {
			height, err := s.Ledger.CurrentHeight(tx)
			if err != nil {
				return err
			}
			if newExpiry <= height {
				return ErrExpiryInPast
			}

			issued, err := issuedPercentage(tx, bounty.TeamID)
			if err != nil {
				return err
			}
			if issued+int64(bounty.Percentage) > 100 {
				return ErrEquityExceeded
			}

			bounty.State = models.BountyStateOpen
			bounty.Claimant = nil
			bounty.Solution = nil
			bounty.ReviewCycle++
		}
		bounty.ExpiryHeight = newExpiry
		return tx.Save(bounty).Error
	})
}

// SweepExpired moves unresolved bounties past their expiry into the expired
// state, dropping them from payout eligibility and the equity cap.
func (s *BountyService) SweepExpired(height uint64) (int64, error) {
	result := s.DB.Model(&models.Bounty{}).
		Where("state IN ? AND expiry_height <= ?",
			[]string{models.BountyStateOpen, models.BountyStatePendingReview}, height).
		Update("state", models.BountyStateExpired)
	return result.RowsAffected, result.Error
}

func (s *BountyService) resolveApproved(tx *gorm.DB, bounty *models.Bounty) error {
	bounty.State = models.BountyStateApproved
	if err := tx.Save(bounty).Error; err != nil {
		return err
	}
	return notify(tx, models.NotifyBountyResolved, "", fiber.Map{
		"bounty_id": bounty.ID,
		"team_id":   bounty.TeamID,
		"state":     bounty.State,
		"claimant":  bounty.Claimant,
	})
}

// resolveRejected returns the bounty to open with its expiry reset strictly
// forward, clearing the claim and starting a new review cycle.
func (s *BountyService) resolveRejected(tx *gorm.DB, bounty *models.Bounty) error {
	height, err := s.Ledger.CurrentHeight(tx)
	if err != nil {
		return err
	}

	rejectedClaimant := bounty.Claimant
	bounty.State = models.BountyStateOpen
	bounty.Claimant = nil
	bounty.Solution = nil
	bounty.ReviewCycle++
	bounty.ExpiryHeight = height + s.ExtensionBlocks
	if err := tx.Save(bounty).Error; err != nil {
		return err
	}
	return notify(tx, models.NotifyBountyResolved, "", fiber.Map{
		"bounty_id": bounty.ID,
		"team_id":   bounty.TeamID,
		"state":     "rejected",
		"claimant":  rejectedClaimant,
	})
}

// eligibleVoters counts the team members allowed to vote on the current
// claim: the whole roster, minus the claimant when the claimant is one of
// them. A single-member team resolves on the founder's lone vote.
func eligibleVoters(tx *gorm.DB, bounty *models.Bounty) (int, error) {
	var size int64
	if err := tx.Model(&models.TeamMember{}).
		Where("team_id = ?", bounty.TeamID).
		Count(&size).Error; err != nil {
		return 0, err
	}
	eligible := int(size)
	if bounty.Claimant != nil {
		member, err := isTeamMember(tx, bounty.TeamID, *bounty.Claimant)
		if err != nil {
			return 0, err
		}
		if member {
			eligible--
		}
	}
	return eligible, nil
}

func lockBounty(tx *gorm.DB, bountyID uint32) (*models.Bounty, error) {
	var bounty models.Bounty
	if err := forUpdate(tx).
		First(&bounty, "id = ?", bountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBountyNotFound
		}
		return nil, err
	}
	return &bounty, nil
}

// --- Endpoints ---

func (s *BountyService) PostBountyEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)

	var req struct {
		TeamID       uint32 `json:"team_id"`
		Description  string `json:"description"`
		ExpiryHeight uint64 `json:"expiry_height"`
		Percentage   uint8  `json:"percentage"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	bounty, err := s.PostBounty(caller, req.TeamID, req.Description, req.ExpiryHeight, req.Percentage)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bounty)
}

func (s *BountyService) ClaimBountyEndpoint(c *fiber.Ctx) error {
	claimant := c.Locals("account_id").(string)
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bounty ID"})
	}

	var req struct {
		Solution string `json:"solution"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.ClaimBounty(claimant, bountyID, req.Solution); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Claim recorded, pending team review"})
}

func (s *BountyService) VoteOnBountyEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bounty ID"})
	}

	var req struct {
		Approve *bool `json:"approve"`
	}
	if err := c.BodyParser(&req); err != nil || req.Approve == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Approve flag is required"})
	}

	if err := s.VoteOnBounty(caller, bountyID, *req.Approve); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Vote recorded"})
}

func (s *BountyService) ApproveBountyEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bounty ID"})
	}

	if err := s.ApproveBounty(caller, bountyID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Bounty approved"})
}

func (s *BountyService) ExtendBountyExpiryEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bounty ID"})
	}

	var req struct {
		ExpiryHeight uint64 `json:"expiry_height"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.ExtendBountyExpiry(caller, bountyID, req.ExpiryHeight); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Expiry extended"})
}

func (s *BountyService) GetBountyByID(c *fiber.Ctx) error {
	bountyID, err := parseBountyID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid bounty ID"})
	}

	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", bountyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrBountyNotFound)
		}
		log.Printf("DB error fetching bounty %d: %v", bountyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(bounty)
}

func (s *BountyService) ListTeamBounties(c *fiber.Ctx) error {
	teamID, err := parseTeamID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid team ID"})
	}

	var bounties []models.Bounty
	if err := s.DB.Where("team_id = ?", teamID).Order("id ASC").Find(&bounties).Error; err != nil {
		log.Printf("DB error listing bounties for team %d: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(bounties)
}

// services/challenge_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math"

	"buidl-engine/models"
	"buidl-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeService struct {
	DB        *gorm.DB
	Ledger    *LedgerService
	MaxJudges int
}

func NewChallengeService(db *gorm.DB, ledger *LedgerService) *ChallengeService {
	return &ChallengeService{DB: db, Ledger: ledger, MaxJudges: maxMembersFromEnv()}
}

func challengeLockReason(id uint16) string {
	return fmt.Sprintf("challenge:%d", id)
}

// dedupeAccounts keeps the first occurrence of each account, dropping
// blanks, the same way admin lists are cleaned at registration.
func dedupeAccounts(accounts []string) []string {
	seen := make(map[string]bool, len(accounts))
	deduped := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a != "" && !seen[a] {
			seen[a] = true
			deduped = append(deduped, a)
		}
	}
	return deduped
}

// CreateChallenge allocates the next challenge ID and locks the reward on
// the sponsor's wallet under it, atomically: if the lock fails, no challenge
// record is written. An optional judge set can be fixed at creation.
func (s *ChallengeService) CreateChallenge(sponsor, hackathonID, description string, reward int64, judges []string) (*models.Challenge, error) {
	if !utils.ValidDigest(description) {
		return nil, ErrInvalidDigest
	}
	judges = dedupeAccounts(judges)
	if len(judges) > s.MaxJudges {
		return nil, ErrTooManyJudges
	}

	var challenge *models.Challenge
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var hackathon models.Hackathon
		if err := tx.First(&hackathon, "id = ?", hackathonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHackathonNotFound
			}
			return err
		}

		next, err := nextSequenceValue(tx, "challenge", math.MaxUint16)
		if err != nil {
			return err
		}
		id := uint16(next)

		if err := s.Ledger.Lock(tx, sponsor, reward, challengeLockReason(id)); err != nil {
			return err
		}

		challenge = &models.Challenge{
			ID:             id,
			HackathonID:    hackathonID,
			Sponsor:        sponsor,
			Description:    description,
			Reward:         reward,
			JudgesAssigned: len(judges) > 0,
		}
		if err := tx.Create(challenge).Error; err != nil {
			return err
		}
		for _, j := range judges {
			judge := &models.ChallengeJudge{
				ID:          uuid.NewString(),
				ChallengeID: id,
				Account:     j,
			}
			if err := tx.Create(judge).Error; err != nil {
				return err
			}
		}

		return notify(tx, models.NotifyChallengeCreated, hackathonID, fiber.Map{
			"challenge_id": id,
			"sponsor":      sponsor,
			"reward":       reward,
		})
	})
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

// EditChallenge replaces the description pointer, nothing else. Reward and
// judge set stay immutable after creation so the fund lock invariant holds.
func (s *ChallengeService) EditChallenge(caller string, id uint16, newDescription string) error {
	if !utils.ValidDigest(newDescription) {
		return ErrInvalidDigest
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var challenge models.Challenge
		if err := tx.First(&challenge, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}
		if challenge.Sponsor != caller {
			return ErrNotAuthor
		}

		challenge.Description = newDescription
		return tx.Save(&challenge).Error
	})
}

// AssignJudges fixes the judge set after creation. Event-admin only,
// settable exactly once, and only before the voting window opens.
func (s *ChallengeService) AssignJudges(caller string, id uint16, judges []string) error {
	judges = dedupeAccounts(judges)
	if len(judges) == 0 {
		return ErrNotJudge
	}
	if len(judges) > s.MaxJudges {
		return ErrTooManyJudges
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var challenge models.Challenge
		if err := tx.First(&challenge, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}

		admin, err := isHackathonAdmin(tx, challenge.HackathonID, caller)
		if err != nil {
			return err
		}
		if !admin {
			return ErrNotAdmin
		}

		if challenge.JudgesAssigned {
			return ErrJudgesAlreadyAssigned
		}

		var hackathon models.Hackathon
		if err := tx.First(&hackathon, "id = ?", challenge.HackathonID).Error; err != nil {
			return err
		}
		height, err := s.Ledger.CurrentHeight(tx)
		if err != nil {
			return err
		}
		if height >= hackathon.VotingStart {
			return ErrVotingWindowOpen
		}

		for _, j := range judges {
			judge := &models.ChallengeJudge{
				ID:          uuid.NewString(),
				ChallengeID: id,
				Account:     j,
			}
			if err := tx.Create(judge).Error; err != nil {
				return err
			}
		}

		challenge.JudgesAssigned = true
		return tx.Save(&challenge).Error
	})
}

// --- Endpoints ---

func (s *ChallengeService) CreateChallengeEndpoint(c *fiber.Ctx) error {
	sponsor := c.Locals("account_id").(string)

	var req struct {
		HackathonID string   `json:"hackathon_id"`
		Description string   `json:"description"`
		Reward      int64    `json:"reward"`
		Judges      []string `json:"judges"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Reward <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Reward must be positive"})
	}

	challenge, err := s.CreateChallenge(sponsor, req.HackathonID, req.Description, req.Reward, req.Judges)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

func (s *ChallengeService) EditChallengeEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	id, err := parseChallengeID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid challenge ID"})
	}

	var req struct {
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.EditChallenge(caller, id, req.Description); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Challenge updated"})
}

func (s *ChallengeService) AssignJudgesEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	id, err := parseChallengeID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid challenge ID"})
	}

	var req struct {
		Judges []string `json:"judges"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.AssignJudges(caller, id, req.Judges); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Judges assigned"})
}

func (s *ChallengeService) GetChallengeByID(c *fiber.Ctx) error {
	id, err := parseChallengeID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid challenge ID"})
	}

	var challenge models.Challenge
	if err := s.DB.Preload("Judges").First(&challenge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrChallengeNotFound)
		}
		log.Printf("DB error fetching challenge %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(challenge)
}

func (s *ChallengeService) ListChallenges(c *fiber.Ctx) error {
	query := s.DB.Order("id ASC")
	if hid := c.Query("hackathon_id"); hid != "" {
		query = query.Where("hackathon_id = ?", hid)
	}

	var challenges []models.Challenge
	if err := query.Find(&challenges).Error; err != nil {
		log.Printf("DB error listing challenges: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(challenges)
}

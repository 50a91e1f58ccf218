// services/hackathon_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"buidl-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Windows is the ordered pair of event periods, in ledger heights.
type Windows struct {
	SubmissionStart uint64 `json:"submission_start"`
	SubmissionEnd   uint64 `json:"submission_end"`
	VotingStart     uint64 `json:"voting_start"`
	VotingEnd       uint64 `json:"voting_end"`
}

// validate enforces the window ordering invariant: the submission window
// strictly precedes the voting window.
func (w Windows) validate() error {
	if w.SubmissionStart >= w.SubmissionEnd ||
		w.SubmissionEnd > w.VotingStart ||
		w.VotingStart >= w.VotingEnd {
		return ErrInvalidWindows
	}
	return nil
}

type HackathonService struct {
	DB        *gorm.DB
	Ledger    *LedgerService
	MaxAdmins int
}

func NewHackathonService(db *gorm.DB, ledger *LedgerService) *HackathonService {
	return &HackathonService{DB: db, Ledger: ledger, MaxAdmins: maxMembersFromEnv()}
}

// maxMembersFromEnv reads the shared roster bound. Teams, judge sets, admin
// sets and solution member lists all use it; unbounded lists would make
// per-action cost unpredictable.
func maxMembersFromEnv() int {
	if v := os.Getenv("MAX_TEAM_MEMBERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("⚠️  invalid MAX_TEAM_MEMBERS=%q, using default 5", v)
	}
	return 5
}

func bondLockReason(hackathonID string) string {
	return fmt.Sprintf("bond:%s", hackathonID)
}

// RegisterHackathon creates an event root and locks the organizer's bond
// under it. The organizer is always an admin. If the bond lock fails the
// event is not written.
func (s *HackathonService) RegisterHackathon(organizer, name string, bond int64, admins []string, w Windows) (*models.Hackathon, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}

	// Dedupe admin accounts, organizer first.
	seen := map[string]bool{organizer: true}
	deduped := []string{organizer}
	for _, a := range admins {
		if a != "" && !seen[a] {
			seen[a] = true
			deduped = append(deduped, a)
		}
	}
	if len(deduped) > s.MaxAdmins {
		return nil, ErrTooManyAdmins
	}

	hackathon := &models.Hackathon{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            slug.Make(name),
		Organizer:       organizer,
		Bond:            bond,
		SubmissionStart: w.SubmissionStart,
		SubmissionEnd:   w.SubmissionEnd,
		VotingStart:     w.VotingStart,
		VotingEnd:       w.VotingEnd,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.Ledger.Lock(tx, organizer, bond, bondLockReason(hackathon.ID)); err != nil {
			return err
		}
		if err := tx.Create(hackathon).Error; err != nil {
			return err
		}
		for _, a := range deduped {
			admin := &models.HackathonAdmin{
				ID:          uuid.NewString(),
				HackathonID: hackathon.ID,
				Account:     a,
			}
			if err := tx.Create(admin).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hackathon, nil
}

// UpdatePeriods moves the event windows. Admin-only, and only while the
// submission window has not opened yet.
func (s *HackathonService) UpdatePeriods(caller, hackathonID string, w Windows) error {
	if err := w.validate(); err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var hackathon models.Hackathon
		if err := tx.First(&hackathon, "id = ?", hackathonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHackathonNotFound
			}
			return err
		}

		admin, err := isHackathonAdmin(tx, hackathonID, caller)
		if err != nil {
			return err
		}
		if !admin {
			return ErrNotAdmin
		}

		height, err := s.Ledger.CurrentHeight(tx)
		if err != nil {
			return err
		}
		if height >= hackathon.SubmissionStart {
			return ErrSubmissionWindowOpen
		}

		hackathon.SubmissionStart = w.SubmissionStart
		hackathon.SubmissionEnd = w.SubmissionEnd
		hackathon.VotingStart = w.VotingStart
		hackathon.VotingEnd = w.VotingEnd
		return tx.Save(&hackathon).Error
	})
}

func isHackathonAdmin(tx *gorm.DB, hackathonID, account string) (bool, error) {
	var count int64
	err := tx.Model(&models.HackathonAdmin{}).
		Where("hackathon_id = ? AND account = ?", hackathonID, account).
		Count(&count).Error
	return count > 0, err
}

// --- Endpoints ---

func (s *HackathonService) RegisterHackathonEndpoint(c *fiber.Ctx) error {
	organizer := c.Locals("account_id").(string)

	var req struct {
		Name   string   `json:"name"`
		Bond   int64    `json:"bond"`
		Admins []string `json:"admins"`
		Windows
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name is required"})
	}
	if req.Bond <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Bond must be positive"})
	}

	hackathon, err := s.RegisterHackathon(organizer, req.Name, req.Bond, req.Admins, req.Windows)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(hackathon)
}

func (s *HackathonService) UpdatePeriodsEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	id := c.Params("id")

	var req Windows
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.UpdatePeriods(caller, id, req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Periods updated"})
}

func (s *HackathonService) GetHackathonByID(c *fiber.Ctx) error {
	id := c.Params("id")

	var hackathon models.Hackathon
	if err := s.DB.Preload("Admins").First(&hackathon, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrHackathonNotFound)
		}
		log.Printf("DB error fetching hackathon %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(hackathon)
}

func (s *HackathonService) ListHackathons(c *fiber.Ctx) error {
	var hackathons []models.Hackathon
	if err := s.DB.Order("created_at DESC").Find(&hackathons).Error; err != nil {
		log.Printf("DB error listing hackathons: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(hackathons)
}

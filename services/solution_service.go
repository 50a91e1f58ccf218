// services/solution_service.go
package services

import (
	"errors"
	"log"

	"buidl-engine/models"
	"buidl-engine/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SolutionService struct {
	DB         *gorm.DB
	Ledger     *LedgerService
	MaxMembers int
}

func NewSolutionService(db *gorm.DB, ledger *LedgerService) *SolutionService {
	return &SolutionService{DB: db, Ledger: ledger, MaxMembers: maxMembersFromEnv()}
}

// SubmitSolution records a team's final solution against a challenge. One
// per (challenge, team), only while the submission window is open; the
// challenge's submission counter increments in the same transaction.
func (s *SolutionService) SubmitSolution(caller string, challengeID uint16, teamID uint32, solution string, members []string) (*models.SubmittedSolution, error) {
	if !utils.ValidDigest(solution) {
		return nil, ErrInvalidDigest
	}
	if len(members) > s.MaxMembers {
		return nil, ErrTooManyMembers
	}

	var submitted *models.SubmittedSolution
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var challenge models.Challenge
		if err := forUpdate(tx).
			First(&challenge, "id = ?", challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}

		var team models.Team
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if team.HackathonID != challenge.HackathonID {
			return ErrTeamNotInHackathon
		}

		member, err := isTeamMember(tx, teamID, caller)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotTeamMember
		}

		var hackathon models.Hackathon
		if err := tx.First(&hackathon, "id = ?", challenge.HackathonID).Error; err != nil {
			return err
		}
		height, err := s.Ledger.CurrentHeight(tx)
		if err != nil {
			return err
		}
		if height < hackathon.SubmissionStart || height >= hackathon.SubmissionEnd {
			return ErrOutsideSubmissionWindow
		}

		var existing int64
		if err := tx.Model(&models.SubmittedSolution{}).
			Where("challenge_id = ? AND team_id = ?", challengeID, teamID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateSubmission
		}

		submitted = &models.SubmittedSolution{
			ID:              uuid.NewString(),
			ChallengeID:     challengeID,
			TeamID:          teamID,
			Solution:        solution,
			SubmittedHeight: height,
		}
		if err := tx.Create(submitted).Error; err != nil {
			return err
		}
		for i, m := range members {
			row := &models.SolutionMember{
				ID:         uuid.NewString(),
				SolutionID: submitted.ID,
				Account:    m,
				Position:   i,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}

		challenge.Submissions++
		if err := tx.Save(&challenge).Error; err != nil {
			return err
		}

		return notify(tx, models.NotifySolutionSubmitted, challenge.HackathonID, fiber.Map{
			"challenge_id": challengeID,
			"team_id":      teamID,
			"submitter":    caller,
		})
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// --- Endpoints ---

func (s *SolutionService) SubmitSolutionEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	challengeID, err := parseChallengeID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid challenge ID"})
	}

	var req struct {
		TeamID   uint32   `json:"team_id"`
		Solution string   `json:"solution"`
		Members  []string `json:"members"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	submitted, err := s.SubmitSolution(caller, challengeID, req.TeamID, req.Solution, req.Members)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(submitted)
}

func (s *SolutionService) ListChallengeSolutions(c *fiber.Ctx) error {
	challengeID, err := parseChallengeID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid challenge ID"})
	}

	var solutions []models.SubmittedSolution
	if err := s.DB.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("challenge_id = ?", challengeID).
		Order("submitted_height ASC").
		Find(&solutions).Error; err != nil {
		log.Printf("DB error listing solutions for challenge %d: %v", challengeID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(solutions)
}

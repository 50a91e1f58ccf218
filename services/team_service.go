// services/team_service.go
package services

import (
	"errors"
	"log"
	"math"

	"buidl-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeamService struct {
	DB         *gorm.DB
	MaxMembers int
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{DB: db, MaxMembers: maxMembersFromEnv()}
}

// CreateTeam allocates a team ID and seeds the roster with the founder.
func (s *TeamService) CreateTeam(founder, hackathonID string) (*models.Team, error) {
	var team *models.Team
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var hackathon models.Hackathon
		if err := tx.First(&hackathon, "id = ?", hackathonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHackathonNotFound
			}
			return err
		}

		next, err := nextSequenceValue(tx, "team", math.MaxUint32)
		if err != nil {
			return err
		}

		team = &models.Team{
			ID:          uint32(next),
			HackathonID: hackathonID,
			Founder:     founder,
		}
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		return tx.Create(&models.TeamMember{
			ID:      uuid.NewString(),
			TeamID:  team.ID,
			Account: founder,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// AddMember grows the roster. Only existing members may add; the insert
// fails (rather than truncating) once the configured maximum is reached.
func (s *TeamService) AddMember(caller string, teamID uint32, account string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
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

		exists, err := isTeamMember(tx, teamID, account)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyMember
		}

		var size int64
		if err := tx.Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&size).Error; err != nil {
			return err
		}
		if size >= int64(s.MaxMembers) {
			return ErrTeamFull
		}

		return tx.Create(&models.TeamMember{
			ID:      uuid.NewString(),
			TeamID:  teamID,
			Account: account,
		}).Error
	})
}

func isTeamMember(tx *gorm.DB, teamID uint32, account string) (bool, error) {
	var count int64
	err := tx.Model(&models.TeamMember{}).
		Where("team_id = ? AND account = ?", teamID, account).
		Count(&count).Error
	return count > 0, err
}

// --- Endpoints ---

func (s *TeamService) CreateTeamEndpoint(c *fiber.Ctx) error {
	founder := c.Locals("account_id").(string)

	var req struct {
		HackathonID string `json:"hackathon_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	team, err := s.CreateTeam(founder, req.HackathonID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(team)
}

func (s *TeamService) AddMemberEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	teamID, err := parseTeamID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid team ID"})
	}

	var req struct {
		Account string `json:"account"`
	}
	if err := c.BodyParser(&req); err != nil || req.Account == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Account is required"})
	}

	if err := s.AddMember(caller, teamID, req.Account); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Member added"})
}

func (s *TeamService) GetTeamByID(c *fiber.Ctx) error {
	teamID, err := parseTeamID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid team ID"})
	}

	var team models.Team
	if err := s.DB.Preload("Members").First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, ErrTeamNotFound)
		}
		log.Printf("DB error fetching team %d: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(team)
}

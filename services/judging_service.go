// services/judging_service.go
package services

import (
	"errors"
	"log"
	"sort"

	"buidl-engine/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JudgingService records judge votes during the voting window and, once it
// closes, finalizes each challenge: picks the winning submission,
// distributes the locked reward to the winning team's approved bounty
// claimants and founder, or releases it back to the sponsor when no winner
// can be determined. Finalization is idempotent.
type JudgingService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewJudgingService(db *gorm.DB, ledger *LedgerService) *JudgingService {
	return &JudgingService{DB: db, Ledger: ledger}
}

// CastJudgeVote records (or overwrites) a judge's single active vote for a
// challenge. Accepted only inside the voting window and, when the challenge
// carries a judge set, only from accounts in it.
func (s *JudgingService) CastJudgeVote(judge string, challengeID uint16, teamID uint32) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var challenge models.Challenge
		if err := tx.First(&challenge, "id = ?", challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChallengeNotFound
			}
			return err
		}

		var hackathon models.Hackathon
		if err := tx.First(&hackathon, "id = ?", challenge.HackathonID).Error; err != nil {
			return err
		}
		height, err := s.Ledger.CurrentHeight(tx)
		if err != nil {
			return err
		}
		if height < hackathon.VotingStart || height >= hackathon.VotingEnd {
			return ErrOutsideVotingWindow
		}

		if challenge.JudgesAssigned {
			var count int64
			if err := tx.Model(&models.ChallengeJudge{}).
				Where("challenge_id = ? AND account = ?", challengeID, judge).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotJudge
			}
		}

		var submission int64
		if err := tx.Model(&models.SubmittedSolution{}).
			Where("challenge_id = ? AND team_id = ?", challengeID, teamID).
			Count(&submission).Error; err != nil {
			return err
		}
		if submission == 0 {
			return ErrSolutionNotFound
		}

		var vote models.JudgeVote
		err = tx.Where("challenge_id = ? AND judge = ?", challengeID, judge).First(&vote).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&models.JudgeVote{
				ID:          uuid.NewString(),
				ChallengeID: challengeID,
				Judge:       judge,
				TeamID:      teamID,
				Height:      height,
			}).Error
		case err != nil:
			return err
		default:
			vote.TeamID = teamID
			vote.Height = height
			return tx.Save(&vote).Error
		}
	})
}

// FinalizeDue finalizes every unfinalized challenge whose voting window has
// closed at the given height. Each challenge settles in its own transaction
// so one bad payout cannot wedge the rest of the sweep.
func (s *JudgingService) FinalizeDue(height uint64) (int, error) {
	var challenges []models.Challenge
	err := s.DB.
		Joins("JOIN hackathons ON hackathons.id = challenges.hackathon_id").
		Where("challenges.finalized = ? AND hackathons.voting_end <= ?", false, height).
		Find(&challenges).Error
	if err != nil {
		return 0, err
	}

	finalized := 0
	for i := range challenges {
		ch := challenges[i]
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			return s.finalizeChallenge(tx, ch.ID, height)
		})
		if err != nil {
			log.Printf("[Finalize] challenge %d failed: %v", ch.ID, err)
			continue
		}
		finalized++
	}
	return finalized, nil
}

// FinalizeHackathon is the lazy/manual trigger: settles all of one event's
// challenges. Idempotent; already-finalized challenges are skipped.
func (s *JudgingService) FinalizeHackathon(caller, hackathonID string) (int, error) {
	var hackathon models.Hackathon
	if err := s.DB.First(&hackathon, "id = ?", hackathonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrHackathonNotFound
		}
		return 0, err
	}

	admin, err := isHackathonAdmin(s.DB, hackathonID, caller)
	if err != nil {
		return 0, err
	}
	if !admin {
		return 0, ErrNotAdmin
	}

	height, err := s.Ledger.CurrentHeight(s.DB)
	if err != nil {
		return 0, err
	}
	if height < hackathon.VotingEnd {
		return 0, ErrVotingNotClosed
	}

	var challenges []models.Challenge
	if err := s.DB.Where("hackathon_id = ?", hackathonID).Find(&challenges).Error; err != nil {
		return 0, err
	}

	finalized := 0
	for i := range challenges {
		ch := challenges[i]
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			return s.finalizeChallenge(tx, ch.ID, height)
		})
		if err != nil {
			return finalized, err
		}
		finalized++
	}
	return finalized, nil
}

// finalizeChallenge settles a single challenge inside tx. Replaying after
// completion is a no-op: the finalized flag is checked under row lock before
// any funds move.
func (s *JudgingService) finalizeChallenge(tx *gorm.DB, challengeID uint16, height uint64) error {
	var challenge models.Challenge
	if err := forUpdate(tx).
		First(&challenge, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChallengeNotFound
		}
		return err
	}
	if challenge.Finalized {
		return nil
	}

	var hackathon models.Hackathon
	if err := tx.First(&hackathon, "id = ?", challenge.HackathonID).Error; err != nil {
		return err
	}
	if height < hackathon.VotingEnd {
		return ErrVotingNotClosed
	}

	winner, ok, err := s.pickWinner(tx, challengeID)
	if err != nil {
		return err
	}

	reason := challengeLockReason(challenge.ID)
	if !ok {
		// No qualifying submission, no votes, or an unresolved tie: the
		// locked reward goes back to the sponsor.
		if err := s.Ledger.Release(tx, challenge.Sponsor, reason); err != nil {
			return err
		}
		challenge.Finalized = true
		if err := tx.Save(&challenge).Error; err != nil {
			return err
		}
		return notify(tx, models.NotifyPayoutFinalized, challenge.HackathonID, fiber.Map{
			"challenge_id": challenge.ID,
			"released":     true,
			"sponsor":      challenge.Sponsor,
		})
	}

	var team models.Team
	if err := tx.First(&team, "id = ?", winner).Error; err != nil {
		return err
	}

	// Approved bounties hold durable claims on their stated percentage of
	// the prize; the remainder (including integer dust) goes to the founder.
	var bounties []models.Bounty
	if err := tx.Where("team_id = ? AND state = ?", winner, models.BountyStateApproved).
		Order("id ASC").
		Find(&bounties).Error; err != nil {
		return err
	}

	remaining := challenge.Reward
	for _, b := range bounties {
		if b.Claimant == nil {
			continue
		}
		amount := challenge.Reward * int64(b.Percentage) / 100
		if amount == 0 {
			continue
		}
		if err := s.Ledger.TransferLocked(tx, challenge.Sponsor, reason, *b.Claimant, amount); err != nil {
			return err
		}
		remaining -= amount
	}
	if remaining > 0 {
		if err := s.Ledger.TransferLocked(tx, challenge.Sponsor, reason, team.Founder, remaining); err != nil {
			return err
		}
	}

	challenge.Finalized = true
	challenge.WinnerTeamID = &team.ID
	if err := tx.Save(&challenge).Error; err != nil {
		return err
	}
	return notify(tx, models.NotifyPayoutFinalized, challenge.HackathonID, fiber.Map{
		"challenge_id": challenge.ID,
		"winner_team":  team.ID,
		"reward":       challenge.Reward,
	})
}

// pickWinner tallies judge votes for a challenge. Most votes wins; ties
// break to the earliest submission height; a tie that survives the height
// tiebreak (or no votes at all) yields no winner.
func (s *JudgingService) pickWinner(tx *gorm.DB, challengeID uint16) (uint32, bool, error) {
	var votes []models.JudgeVote
	if err := tx.Where("challenge_id = ?", challengeID).Find(&votes).Error; err != nil {
		return 0, false, err
	}
	if len(votes) == 0 {
		return 0, false, nil
	}

	tally := map[uint32]int{}
	for _, v := range votes {
		tally[v.TeamID]++
	}

	best := 0
	for _, n := range tally {
		if n > best {
			best = n
		}
	}
	var tied []uint32
	for team, n := range tally {
		if n == best {
			tied = append(tied, team)
		}
	}
	if len(tied) == 1 {
		return tied[0], true, nil
	}

	var solutions []models.SubmittedSolution
	if err := tx.Where("challenge_id = ? AND team_id IN ?", challengeID, tied).
		Find(&solutions).Error; err != nil {
		return 0, false, err
	}
	sort.Slice(solutions, func(i, j int) bool {
		return solutions[i].SubmittedHeight < solutions[j].SubmittedHeight
	})
	if len(solutions) < 2 || solutions[0].SubmittedHeight < solutions[1].SubmittedHeight {
		if len(solutions) == 0 {
			return 0, false, nil
		}
		return solutions[0].TeamID, true, nil
	}
	// Two tied teams submitted at the same height: unresolved.
	return 0, false, nil
}

// --- Endpoints ---

func (s *JudgingService) CastJudgeVoteEndpoint(c *fiber.Ctx) error {
	judge := c.Locals("account_id").(string)
	challengeID, err := parseChallengeID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid challenge ID"})
	}

	var req struct {
		TeamID uint32 `json:"team_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.CastJudgeVote(judge, challengeID, req.TeamID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Vote recorded"})
}

func (s *JudgingService) FinalizeHackathonEndpoint(c *fiber.Ctx) error {
	caller := c.Locals("account_id").(string)
	id := c.Params("id")

	finalized, err := s.FinalizeHackathon(caller, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Finalization complete", "challenges_settled": finalized})
}

package services

import (
	"fmt"
	"strings"
	"testing"

	"buidl-engine/models"
	"buidl-engine/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEngine bundles every service over one in-memory database, mirroring
// the wiring in main.go.
type testEngine struct {
	DB         *gorm.DB
	Ledger     *LedgerService
	Hackathons *HackathonService
	Challenges *ChallengeService
	Teams      *TeamService
	Bounties   *BountyService
	Solutions  *SolutionService
	Judging    *JudgingService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	// A named shared-cache DSN keeps gorm's pooled connections on the same
	// in-memory database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Hackathon{},
		&models.HackathonAdmin{},
		&models.Challenge{},
		&models.ChallengeJudge{},
		&models.Team{},
		&models.TeamMember{},
		&models.Bounty{},
		&models.BountyVote{},
		&models.SubmittedSolution{},
		&models.SolutionMember{},
		&models.JudgeVote{},
		&models.Wallet{},
		&models.FundLock{},
		&models.ChainCursor{},
		&models.Sequence{},
		&models.Notification{},
	))

	ledger := NewLedgerService(db)
	return &testEngine{
		DB:         db,
		Ledger:     ledger,
		Hackathons: NewHackathonService(db, ledger),
		Challenges: NewChallengeService(db, ledger),
		Teams:      NewTeamService(db),
		Bounties:   NewBountyService(db, ledger),
		Solutions:  NewSolutionService(db, ledger),
		Judging:    NewJudgingService(db, ledger),
	}
}

func (e *testEngine) setHeight(t *testing.T, height uint64) {
	t.Helper()
	var cursor models.ChainCursor
	err := e.DB.Where(models.ChainCursor{ID: 1}).
		Attrs(models.ChainCursor{Height: height}).
		FirstOrCreate(&cursor).Error
	require.NoError(t, err)
	if cursor.Height != height {
		cursor.Height = height
		require.NoError(t, e.DB.Save(&cursor).Error)
	}
}

func (e *testEngine) fundWallet(t *testing.T, account string, balance int64) {
	t.Helper()
	require.NoError(t, e.DB.Save(&models.Wallet{Account: account, Balance: balance}).Error)
}

func (e *testEngine) walletBalance(t *testing.T, account string) int64 {
	t.Helper()
	var wallet models.Wallet
	require.NoError(t, e.DB.First(&wallet, "account = ?", account).Error)
	return wallet.Balance
}

func (e *testEngine) lockedSum(t *testing.T, reasonPrefix string) int64 {
	t.Helper()
	var sum int64
	err := e.DB.Model(&models.FundLock{}).
		Where("reason LIKE ?", reasonPrefix+"%").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	require.NoError(t, err)
	return sum
}

// registerHackathon sets up a funded organizer and an event with the given
// windows, returning the hackathon.
func (e *testEngine) registerHackathon(t *testing.T, organizer string, w Windows) *models.Hackathon {
	t.Helper()
	e.fundWallet(t, organizer, 10_000)
	hackathon, err := e.Hackathons.RegisterHackathon(organizer, "Test Event", 100, nil, w)
	require.NoError(t, err)
	return hackathon
}

// teamOf creates a team and adds the extra members after the founder.
func (e *testEngine) teamOf(t *testing.T, hackathonID, founder string, others ...string) *models.Team {
	t.Helper()
	team, err := e.Teams.CreateTeam(founder, hackathonID)
	require.NoError(t, err)
	for _, m := range others {
		require.NoError(t, e.Teams.AddMember(founder, team.ID, m))
	}
	return team
}

func (e *testEngine) getBounty(t *testing.T, id uint32) *models.Bounty {
	t.Helper()
	var bounty models.Bounty
	require.NoError(t, e.DB.First(&bounty, "id = ?", id).Error)
	return &bounty
}

func digestOf(s string) string {
	return utils.Digest([]byte(s))
}

// defaultWindows: submissions 10..100, voting 100..200.
func defaultWindows() Windows {
	return Windows{
		SubmissionStart: 10,
		SubmissionEnd:   100,
		VotingStart:     100,
		VotingEnd:       200,
	}
}

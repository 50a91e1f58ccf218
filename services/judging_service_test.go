package services

import (
	"testing"

	"buidl-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// judgingFixture: funded sponsor, one 1000-unit challenge, two teams that
// both submitted during the window.
type judgingFixture struct {
	*testEngine
	Hackathon *models.Hackathon
	Challenge *models.Challenge
	TeamA     *models.Team
	TeamB     *models.Team
}

func newJudgingFixture(t *testing.T) *judgingFixture {
	e := newTestEngine(t)
	hackathon := e.registerHackathon(t, "org", defaultWindows())
	e.fundWallet(t, "sponsor", 2000)
	challenge, err := e.Challenges.CreateChallenge("sponsor", hackathon.ID, digestOf("brief"), 1000, nil)
	require.NoError(t, err)

	teamA := e.teamOf(t, hackathon.ID, "ana", "abe")
	teamB := e.teamOf(t, hackathon.ID, "ben", "bee")

	e.setHeight(t, 20)
	_, err = e.Solutions.SubmitSolution("ana", challenge.ID, teamA.ID, digestOf("solution a"), nil)
	require.NoError(t, err)
	e.setHeight(t, 30)
	_, err = e.Solutions.SubmitSolution("ben", challenge.ID, teamB.ID, digestOf("solution b"), nil)
	require.NoError(t, err)

	return &judgingFixture{testEngine: e, Hackathon: hackathon, Challenge: challenge, TeamA: teamA, TeamB: teamB}
}

func TestCastJudgeVoteOutsideWindow(t *testing.T) {
	f := newJudgingFixture(t)

	f.setHeight(t, 50)
	err := f.Judging.CastJudgeVote("judge1", f.Challenge.ID, f.TeamA.ID)
	assert.ErrorIs(t, err, ErrOutsideVotingWindow)

	f.setHeight(t, 200)
	err = f.Judging.CastJudgeVote("judge1", f.Challenge.ID, f.TeamA.ID)
	assert.ErrorIs(t, err, ErrOutsideVotingWindow)
}

func TestCastJudgeVoteRequiresSubmission(t *testing.T) {
	f := newJudgingFixture(t)
	f.setHeight(t, 100)

	err := f.Judging.CastJudgeVote("judge1", f.Challenge.ID, 999)
	assert.ErrorIs(t, err, ErrSolutionNotFound)
}

func TestCastJudgeVoteRestrictedSet(t *testing.T) {
	f := newJudgingFixture(t)
	require.NoError(t, f.Challenges.AssignJudges("org", f.Challenge.ID, []string{"judge1"}))
	f.setHeight(t, 100)

	err := f.Judging.CastJudgeVote("impostor", f.Challenge.ID, f.TeamA.ID)
	assert.ErrorIs(t, err, ErrNotJudge)

	require.NoError(t, f.Judging.CastJudgeVote("judge1", f.Challenge.ID, f.TeamA.ID))
}

func TestCastJudgeVoteOverwrites(t *testing.T) {
	f := newJudgingFixture(t)
	f.setHeight(t, 100)

	require.NoError(t, f.Judging.CastJudgeVote("judge1", f.Challenge.ID, f.TeamA.ID))
	require.NoError(t, f.Judging.CastJudgeVote("judge1", f.Challenge.ID, f.TeamB.ID))

	var votes []models.JudgeVote
	require.NoError(t, f.DB.Where("challenge_id = ?", f.Challenge.ID).Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, f.TeamB.ID, votes[0].TeamID)
}

func TestFinalizeDistributesReward(t *testing.T) {
	f := newJudgingFixture(t)

	// Team A carries an approved 25% bounty claimed by an outside hunter.
	f.setHeight(t, 20)
	bounty, err := f.Bounties.PostBounty("ana", f.TeamA.ID, digestOf("task"), 90, 25)
	require.NoError(t, err)
	require.NoError(t, f.Bounties.ClaimBounty("hunter", bounty.ID, digestOf("work")))
	require.NoError(t, f.Bounties.VoteOnBounty("ana", bounty.ID, true))
	require.NoError(t, f.Bounties.VoteOnBounty("abe", bounty.ID, true))

	// Three judges, two for team A and one for team B.
	f.setHeight(t, 100)
	require.NoError(t, f.Judging.CastJudgeVote("judge1", f.Challenge.ID, f.TeamA.ID))
	require.NoError(t, f.Judging.CastJudgeVote("judge2", f.Challenge.ID, f.TeamA.ID))
	require.NoError(t, f.Judging.CastJudgeVote("judge3", f.Challenge.ID, f.TeamB.ID))

	f.setHeight(t, 200)
	settled, err := f.Judging.FinalizeDue(200)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	// 25% of 1000 to the hunter, the remaining 750 to team A's founder.
	assert.Equal(t, int64(250), f.walletBalance(t, "hunter"))
	assert.Equal(t, int64(750), f.walletBalance(t, "ana"))
	assert.Equal(t, int64(1000), f.walletBalance(t, "sponsor"))
	assert.Zero(t, f.lockedSum(t, "challenge:"))

	var challenge models.Challenge
	require.NoError(t, f.DB.First(&challenge, "id = ?", f.Challenge.ID).Error)
	assert.True(t, challenge.Finalized)
	require.NotNil(t, challenge.WinnerTeamID)
	assert.Equal(t, f.TeamA.ID, *challenge.WinnerTeamID)

	// Replaying moves nothing.
	settled, err = f.Judging.FinalizeDue(200)
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, int64(250), f.walletBalance(t, "hunter"))
	assert.Equal(t, int64(750), f.walletBalance(t, "ana"))
}

func TestFinalizeNoVotesReleasesToSponsor(t *testing.T) {
	f := newJudgingFixture(t)
	f.setHeight(t, 200)

	settled, err := f.Judging.FinalizeDue(200)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	assert.Equal(t, int64(2000), f.walletBalance(t, "sponsor"))
	assert.Zero(t, f.lockedSum(t, "challenge:"))

	var challenge models.Challenge
	require.NoError(t, f.DB.First(&challenge, "id = ?", f.Challenge.ID).Error)
	assert.True(t, challenge.Finalized)
	assert.Nil(t, challenge.WinnerTeamID)
}

func TestFinalizeTieBreaksOnSubmissionHeight(t *testing.T) {
	f := newJudgingFixture(t)
	f.setHeight(t, 100)

	// One vote each. Team A submitted at height 20, team B at 30.
	require.NoError(t, f.Judging.CastJudgeVote("judge1", f.Challenge.ID, f.TeamA.ID))
	require.NoError(t, f.Judging.CastJudgeVote("judge2", f.Challenge.ID, f.TeamB.ID))

	f.setHeight(t, 200)
	_, err := f.Judging.FinalizeDue(200)
	require.NoError(t, err)

	var challenge models.Challenge
	require.NoError(t, f.DB.First(&challenge, "id = ?", f.Challenge.ID).Error)
	require.NotNil(t, challenge.WinnerTeamID)
	assert.Equal(t, f.TeamA.ID, *challenge.WinnerTeamID)
	assert.Equal(t, int64(1000), f.walletBalance(t, "ana"))
}

func TestFinalizeUnresolvedTieReleases(t *testing.T) {
	e := newTestEngine(t)
	hackathon := e.registerHackathon(t, "org", defaultWindows())
	e.fundWallet(t, "sponsor", 1000)
	challenge, err := e.Challenges.CreateChallenge("sponsor", hackathon.ID, digestOf("brief"), 1000, nil)
	require.NoError(t, err)

	teamA := e.teamOf(t, hackathon.ID, "ana")
	teamB := e.teamOf(t, hackathon.ID, "ben")

	// Both teams submit at the same height: the tiebreak cannot resolve.
	e.setHeight(t, 20)
	_, err = e.Solutions.SubmitSolution("ana", challenge.ID, teamA.ID, digestOf("a"), nil)
	require.NoError(t, err)
	_, err = e.Solutions.SubmitSolution("ben", challenge.ID, teamB.ID, digestOf("b"), nil)
	require.NoError(t, err)

	e.setHeight(t, 100)
	require.NoError(t, e.Judging.CastJudgeVote("judge1", challenge.ID, teamA.ID))
	require.NoError(t, e.Judging.CastJudgeVote("judge2", challenge.ID, teamB.ID))

	e.setHeight(t, 200)
	_, err = e.Judging.FinalizeDue(200)
	require.NoError(t, err)

	var got models.Challenge
	require.NoError(t, e.DB.First(&got, "id = ?", challenge.ID).Error)
	assert.True(t, got.Finalized)
	assert.Nil(t, got.WinnerTeamID)
	assert.Equal(t, int64(1000), e.walletBalance(t, "sponsor"))
}

func TestFinalizeHackathonManualTrigger(t *testing.T) {
	f := newJudgingFixture(t)
	f.setHeight(t, 100)
	require.NoError(t, f.Judging.CastJudgeVote("judge1", f.Challenge.ID, f.TeamA.ID))

	// Voting still open.
	_, err := f.Judging.FinalizeHackathon("org", f.Hackathon.ID)
	assert.ErrorIs(t, err, ErrVotingNotClosed)

	f.setHeight(t, 200)
	_, err = f.Judging.FinalizeHackathon("stranger", f.Hackathon.ID)
	assert.ErrorIs(t, err, ErrNotAdmin)

	settled, err := f.Judging.FinalizeHackathon("org", f.Hackathon.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)
	assert.Equal(t, int64(1000), f.walletBalance(t, "ana"))
}

func TestFinalizeSkipsDustBounty(t *testing.T) {
	e := newTestEngine(t)
	hackathon := e.registerHackathon(t, "org", defaultWindows())
	e.fundWallet(t, "sponsor", 1000)

	// A 10-unit reward with a 5% bounty pays integer 0 to the claimant;
	// the full reward lands with the founder.
	challenge, err := e.Challenges.CreateChallenge("sponsor", hackathon.ID, digestOf("brief"), 10, nil)
	require.NoError(t, err)
	team := e.teamOf(t, hackathon.ID, "ana")

	e.setHeight(t, 20)
	bounty, err := e.Bounties.PostBounty("ana", team.ID, digestOf("task"), 90, 5)
	require.NoError(t, err)
	require.NoError(t, e.Bounties.ClaimBounty("hunter", bounty.ID, digestOf("work")))
	require.NoError(t, e.Bounties.VoteOnBounty("ana", bounty.ID, true))

	_, err = e.Solutions.SubmitSolution("ana", challenge.ID, team.ID, digestOf("a"), nil)
	require.NoError(t, err)

	e.setHeight(t, 100)
	require.NoError(t, e.Judging.CastJudgeVote("judge1", challenge.ID, team.ID))

	e.setHeight(t, 200)
	_, err = e.Judging.FinalizeDue(200)
	require.NoError(t, err)

	assert.Equal(t, int64(10), e.walletBalance(t, "ana"))
	var hunter int64
	e.DB.Model(&models.Wallet{}).Where("account = ?", "hunter").Count(&hunter)
	assert.Zero(t, hunter)
}

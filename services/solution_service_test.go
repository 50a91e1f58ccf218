package services

import (
	"testing"

	"buidl-engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solutionFixture: event with one funded challenge and one team, height 20.
type solutionFixture struct {
	*testEngine
	Hackathon *models.Hackathon
	Challenge *models.Challenge
	Team      *models.Team
}

func newSolutionFixture(t *testing.T) *solutionFixture {
	e := newTestEngine(t)
	hackathon := e.registerHackathon(t, "org", defaultWindows())
	e.fundWallet(t, "sponsor", 1000)
	challenge, err := e.Challenges.CreateChallenge("sponsor", hackathon.ID, digestOf("brief"), 500, nil)
	require.NoError(t, err)
	team := e.teamOf(t, hackathon.ID, "alice", "bob")
	e.setHeight(t, 20)
	return &solutionFixture{testEngine: e, Hackathon: hackathon, Challenge: challenge, Team: team}
}

func TestSubmitSolution(t *testing.T) {
	f := newSolutionFixture(t)

	submitted, err := f.Solutions.SubmitSolution("alice", f.Challenge.ID, f.Team.ID, digestOf("repo"), []string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, uint64(20), submitted.SubmittedHeight)

	var challenge models.Challenge
	require.NoError(t, f.DB.First(&challenge, "id = ?", f.Challenge.ID).Error)
	assert.Equal(t, uint32(1), challenge.Submissions)

	// Member order is preserved.
	var members []models.SolutionMember
	require.NoError(t, f.DB.Where("solution_id = ?", submitted.ID).Order("position ASC").Find(&members).Error)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Account)
	assert.Equal(t, "bob", members[1].Account)
}

func TestSubmitSolutionBeforeWindow(t *testing.T) {
	f := newSolutionFixture(t)
	f.setHeight(t, 5)

	_, err := f.Solutions.SubmitSolution("alice", f.Challenge.ID, f.Team.ID, digestOf("repo"), nil)
	assert.ErrorIs(t, err, ErrOutsideSubmissionWindow)
}

func TestSubmitSolutionAfterWindow(t *testing.T) {
	f := newSolutionFixture(t)
	f.setHeight(t, 100)

	_, err := f.Solutions.SubmitSolution("alice", f.Challenge.ID, f.Team.ID, digestOf("repo"), nil)
	assert.ErrorIs(t, err, ErrOutsideSubmissionWindow)
}

func TestSubmitSolutionDuplicate(t *testing.T) {
	f := newSolutionFixture(t)

	_, err := f.Solutions.SubmitSolution("alice", f.Challenge.ID, f.Team.ID, digestOf("repo"), nil)
	require.NoError(t, err)

	_, err = f.Solutions.SubmitSolution("bob", f.Challenge.ID, f.Team.ID, digestOf("repo v2"), nil)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	var challenge models.Challenge
	require.NoError(t, f.DB.First(&challenge, "id = ?", f.Challenge.ID).Error)
	assert.Equal(t, uint32(1), challenge.Submissions)
}

func TestSubmitSolutionByOutsider(t *testing.T) {
	f := newSolutionFixture(t)

	_, err := f.Solutions.SubmitSolution("stranger", f.Challenge.ID, f.Team.ID, digestOf("repo"), nil)
	assert.ErrorIs(t, err, ErrNotTeamMember)
}

func TestSubmitSolutionTooManyMembers(t *testing.T) {
	f := newSolutionFixture(t)
	f.Solutions.MaxMembers = 2

	_, err := f.Solutions.SubmitSolution("alice", f.Challenge.ID, f.Team.ID, digestOf("repo"), []string{"alice", "bob", "carol"})
	assert.ErrorIs(t, err, ErrTooManyMembers)
}

func TestSubmitSolutionUnknownChallenge(t *testing.T) {
	f := newSolutionFixture(t)

	_, err := f.Solutions.SubmitSolution("alice", 999, f.Team.ID, digestOf("repo"), nil)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestSubmitSolutionWrongHackathon(t *testing.T) {
	f := newSolutionFixture(t)

	// A team registered under a different event cannot answer this challenge.
	other, err := f.Hackathons.RegisterHackathon("org", "Other Event", 100, nil, defaultWindows())
	require.NoError(t, err)
	outsiders := f.teamOf(t, other.ID, "zoe")

	_, err = f.Solutions.SubmitSolution("zoe", f.Challenge.ID, outsiders.ID, digestOf("repo"), nil)
	assert.ErrorIs(t, err, ErrTeamNotInHackathon)
}

func TestSubmitSolutionInvalidDigest(t *testing.T) {
	f := newSolutionFixture(t)

	_, err := f.Solutions.SubmitSolution("alice", f.Challenge.ID, f.Team.ID, "nope", nil)
	assert.ErrorIs(t, err, ErrInvalidDigest)
}

// services/errors.go
package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies every rejection the engine can produce, so callers
// can tell "try later" (temporal) apart from "never" (authorization,
// capacity) without parsing messages.
type ErrorKind string

const (
	KindAuthorization ErrorKind = "authorization"
	KindNotFound      ErrorKind = "not_found"
	KindState         ErrorKind = "state"
	KindCapacity      ErrorKind = "capacity"
	KindTemporal      ErrorKind = "temporal"
	KindFunds         ErrorKind = "funds"
)

// DomainError is the typed result every rejected action returns. Rejections
// never leave partial writes: services validate inside the transaction and
// returning a DomainError rolls the whole action back.
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func (e *DomainError) Error() string { return e.Message }

var (
	// Authorization
	ErrNotAuthor          = &DomainError{KindAuthorization, "not_author", "caller is not the challenge sponsor"}
	ErrNotAdmin           = &DomainError{KindAuthorization, "not_admin", "caller is not an event admin"}
	ErrNotTeamMember      = &DomainError{KindAuthorization, "not_team_member", "caller is not a member of the team"}
	ErrNotFounder         = &DomainError{KindAuthorization, "not_founder", "caller is not the team founder"}
	ErrNotJudge           = &DomainError{KindAuthorization, "not_judge", "caller is not in the challenge's judge set"}
	ErrClaimantCannotVote = &DomainError{KindAuthorization, "claimant_cannot_vote", "the claimant may not vote on their own claim"}

	// Not found
	ErrHackathonNotFound = &DomainError{KindNotFound, "hackathon_not_found", "hackathon does not exist"}
	ErrChallengeNotFound = &DomainError{KindNotFound, "challenge_not_found", "challenge does not exist"}
	ErrTeamNotFound      = &DomainError{KindNotFound, "team_not_found", "team does not exist"}
	ErrBountyNotFound    = &DomainError{KindNotFound, "bounty_not_found", "bounty does not exist"}
	ErrSolutionNotFound  = &DomainError{KindNotFound, "solution_not_found", "no solution submitted by that team for this challenge"}
	ErrWalletNotFound    = &DomainError{KindNotFound, "wallet_not_found", "wallet does not exist"}

	// State
	ErrInvalidWindows         = &DomainError{KindState, "invalid_windows", "submission window must strictly precede the voting window"}
	ErrInvalidDigest          = &DomainError{KindState, "invalid_digest", "content pointer must be a sha-256 hex digest"}
	ErrJudgesAlreadyAssigned  = &DomainError{KindState, "judges_already_assigned", "judge set is already assigned and immutable"}
	ErrAlreadyMember          = &DomainError{KindState, "already_member", "account is already on the roster"}
	ErrTeamNotInHackathon     = &DomainError{KindState, "team_not_in_hackathon", "team is registered under a different hackathon"}
	ErrBountyNotOpen          = &DomainError{KindState, "bounty_not_open", "bounty is not open for claims"}
	ErrBountyNotPendingReview = &DomainError{KindState, "bounty_not_pending_review", "bounty has no claim under review"}
	ErrBountyApproved         = &DomainError{KindState, "bounty_approved", "bounty is already approved"}
	ErrAlreadyVoted           = &DomainError{KindState, "already_voted", "member already voted in this review cycle"}
	ErrDuplicateSubmission    = &DomainError{KindState, "duplicate_submission", "team already submitted a solution for this challenge"}
	ErrExpiryNotExtended      = &DomainError{KindState, "expiry_not_extended", "new expiry must be strictly greater than the current one"}

	// Capacity
	ErrTeamFull         = &DomainError{KindCapacity, "team_full", "team roster is at the configured maximum"}
	ErrTooManyMembers   = &DomainError{KindCapacity, "too_many_members", "member list exceeds the configured maximum"}
	ErrTooManyJudges    = &DomainError{KindCapacity, "too_many_judges", "judge list exceeds the configured maximum"}
	ErrTooManyAdmins    = &DomainError{KindCapacity, "too_many_admins", "admin list exceeds the configured maximum"}
	ErrEquityExceeded   = &DomainError{KindCapacity, "equity_exceeded", "team's issued bounty percentages would exceed 100"}
	ErrPercentageRange  = &DomainError{KindCapacity, "percentage_out_of_range", "bounty percentage must be between 0 and 100"}
	ErrIDSpaceExhausted = &DomainError{KindCapacity, "id_space_exhausted", "no IDs left to allocate"}

	// Temporal
	ErrExpiryInPast            = &DomainError{KindTemporal, "expiry_in_past", "expiry height is not in the future"}
	ErrBountyExpired           = &DomainError{KindTemporal, "bounty_expired", "bounty expired before the claim"}
	ErrOutsideSubmissionWindow = &DomainError{KindTemporal, "outside_submission_window", "submission window is not open"}
	ErrOutsideVotingWindow     = &DomainError{KindTemporal, "outside_voting_window", "voting window is not open"}
	ErrVotingWindowOpen        = &DomainError{KindTemporal, "voting_window_open", "judge set can only change before voting opens"}
	ErrSubmissionWindowOpen    = &DomainError{KindTemporal, "submission_window_open", "periods can only change before submissions open"}
	ErrVotingNotClosed         = &DomainError{KindTemporal, "voting_not_closed", "voting window has not closed yet"}

	// Funds
	ErrInsufficientFunds       = &DomainError{KindFunds, "insufficient_funds", "free balance is too low for the requested lock"}
	ErrInsufficientLockedFunds = &DomainError{KindFunds, "insufficient_locked_funds", "locked amount is too low for the requested transfer"}
)

// httpStatus maps an error to the status the gateway should relay.
func httpStatus(err error) int {
	var de *DomainError
	if !errors.As(err, &de) {
		return fiber.StatusInternalServerError
	}
	switch de.Kind {
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindState:
		return fiber.StatusConflict
	case KindCapacity:
		return fiber.StatusUnprocessableEntity
	case KindTemporal:
		return fiber.StatusTooEarly
	case KindFunds:
		return fiber.StatusPaymentRequired
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes a rejected action as JSON. Unknown (non-domain) errors
// are reported as opaque internal failures.
func respondError(c *fiber.Ctx, err error) error {
	var de *DomainError
	if errors.As(err, &de) {
		return c.Status(httpStatus(err)).JSON(fiber.Map{
			"error": de.Message,
			"kind":  de.Kind,
			"code":  de.Code,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

package errors

// Sentinel errors for the marketplace core. Handlers match on these to pick
// response codes; the scheduler matches on them to decide whether a re-drive
// is worthwhile.
var (
	ErrTaskNotFound       = New(KindNotFound, "task not found")
	ErrSubmissionNotFound = New(KindNotFound, "submission not found")
	ErrChallengeNotFound  = New(KindNotFound, "challenge not found")
	ErrBallotNotFound     = New(KindNotFound, "jury ballot not found")
	ErrUserNotFound       = New(KindNotFound, "user not found")

	ErrTaskNotOpen            = New(KindStateConflict, "task does not accept submissions in its current status")
	ErrTaskNotInWindow        = New(KindStateConflict, "task is not in challenge window")
	ErrTaskTerminal           = New(KindStateConflict, "task is already closed or voided")
	ErrInvalidTransition      = New(KindStateConflict, "illegal task status transition")
	ErrRevisionLimitExceeded  = New(KindStateConflict, "revision limit exceeded")
	ErrSubmissionTerminal     = New(KindStateConflict, "submission is in a terminal state")
	ErrDuplicateChallenge     = New(KindStateConflict, "a challenge from this submission already exists")
	ErrChallengeRateLimited   = New(KindStateConflict, "challenge rate limit exceeded")
	ErrBallotAlreadyCast      = New(KindStateConflict, "ballot has already been cast")
	ErrResolutionNotReady     = New(KindStateConflict, "not all ballots have been cast")

	ErrSelfChallenge         = New(KindValidation, "provisional winner cannot challenge itself")
	ErrChallengerNotScored   = New(KindValidation, "challenger submission is not scored")
	ErrEmptyFeedback         = New(KindValidation, "ballot feedback must not be empty")
	ErrWinnerNotInPool       = New(KindValidation, "chosen winner is not in the ballot candidate pool")
	ErrMaliciousNotInPool    = New(KindValidation, "malicious tag references a submission outside the candidate pool")
	ErrWinnerTaggedMalicious = New(KindValidation, "chosen winner cannot also be tagged malicious")
	ErrTierCannotChallenge   = New(KindValidation, "trust tier is not permitted to challenge")

	ErrSettlementUnbalanced = New(KindInvariant, "settlement distributions do not sum to escrow total")
	ErrSettlementImmutable  = New(KindInvariant, "settlement record is immutable once written")

	ErrEscrowUnavailable = New(KindExternal, "payment rail unavailable")
	ErrOracleUnavailable = New(KindExternal, "oracle unavailable")
	ErrTierLookupFailed  = New(KindExternal, "trust tier lookup failed")
)

package services

// ErrorKind is a typed reason code for a denied operation. These are
// recoverable outcomes surfaced to the caller, never Go errors: nothing in
// the integrity path is a fatal fault.
type ErrorKind string

const (
	// Session ledger.
	ErrInvalidToken      ErrorKind = "INVALID_TOKEN"
	ErrUserMismatch      ErrorKind = "USER_MISMATCH"
	ErrContentMismatch   ErrorKind = "CONTENT_MISMATCH"
	ErrAlreadyCompleted  ErrorKind = "ALREADY_COMPLETED"
	ErrCooldownActive    ErrorKind = "COOLDOWN_ACTIVE"
	ErrWatchTimeTooShort ErrorKind = "WATCH_TIME_TOO_SHORT"

	// Daily quota.
	ErrDailyXPLimit        ErrorKind = "DAILY_XP_LIMIT_REACHED"
	ErrDailyAdViewLimit    ErrorKind = "DAILY_AD_VIEW_LIMIT_REACHED"
	ErrDailyQuizLimit      ErrorKind = "DAILY_QUIZ_LIMIT_REACHED"
	ErrQuizAlreadyAnswered ErrorKind = "QUIZ_ALREADY_ANSWERED_TODAY"

	// Challenge engine.
	ErrNoActiveChallenge  ErrorKind = "NO_ACTIVE_CHALLENGE"
	ErrInvalidChallengeID ErrorKind = "INVALID_CHALLENGE_ID"
	ErrChallengeExpired   ErrorKind = "CHALLENGE_EXPIRED"
	ErrWrongAnswer        ErrorKind = "WRONG_ANSWER"
	ErrChallengeLocked    ErrorKind = "CHALLENGE_LOCKED"

	// Escalation signals.
	ErrReVerificationRequired ErrorKind = "RE_VERIFICATION_REQUIRED"
	ErrAccountRestricted      ErrorKind = "ACCOUNT_RESTRICTED"

	// Rate limiting.
	ErrRateLimitExceeded ErrorKind = "RATE_LIMIT_EXCEEDED"
)

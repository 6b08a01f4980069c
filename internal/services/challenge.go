package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/store"
)

const (
	challengeKeyPrefix      = "challenge:"
	challengeStateKeyPrefix = "challengestate:"

	// Challenges are kept past their answer deadline so a late answer is
	// reported as CHALLENGE_EXPIRED (and counted as a failure) instead of
	// NO_ACTIVE_CHALLENGE.
	challengeRecordGrace = 10 * time.Minute

	challengeStateTTL = 24 * time.Hour
)

var challengePalette = []string{"red", "blue", "green", "yellow", "purple", "orange"}

// ChallengeConfig carries the engine's tunables.
type ChallengeConfig struct {
	ViewsPerChallenge int // consecutive views that force a challenge
	Timeout           time.Duration
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// VerifyResult is the typed outcome of a challenge answer.
type VerifyResult struct {
	Success       bool
	ErrorKind     ErrorKind
	Locked        bool
	LockRemaining time.Duration
}

// ChallengeStatus is what the device polls for.
type ChallengeStatus struct {
	NeedsChallenge bool
	Challenge      *models.Challenge
	IsLocked       bool
	LockRemaining  time.Duration
}

// ChallengeEngine issues randomized human-verification puzzles and locks
// out identities that keep failing them.
type ChallengeEngine struct {
	store store.Store
	locks keyedMutex
	now   func() time.Time
	cfg   ChallengeConfig
}

func NewChallengeEngine(s store.Store, cfg ChallengeConfig) *ChallengeEngine {
	return &ChallengeEngine{store: s, now: time.Now, cfg: cfg}
}

func (e *ChallengeEngine) state(ctx context.Context, identity string) (models.ChallengeState, error) {
	var st models.ChallengeState
	raw, ok, err := e.store.Get(ctx, challengeStateKeyPrefix+identity)
	if err != nil || !ok {
		return st, err
	}
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return models.ChallengeState{}, nil
	}
	return st, nil
}

func (e *ChallengeEngine) saveState(ctx context.Context, identity string, st models.ChallengeState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, challengeStateKeyPrefix+identity, string(raw), challengeStateTTL)
}

func (e *ChallengeEngine) active(ctx context.Context, identity string) (*models.Challenge, error) {
	raw, ok, err := e.store.Get(ctx, challengeKeyPrefix+identity)
	if err != nil || !ok {
		return nil, err
	}
	var ch models.Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return nil, nil
	}
	return &ch, nil
}

// RecordView bumps the consecutive-views-since-last-challenge counter.
// Called once per successfully completed view.
func (e *ChallengeEngine) RecordView(ctx context.Context, identity string) (int, error) {
	mu := e.locks.lock(identity)
	defer mu.Unlock()

	st, err := e.state(ctx, identity)
	if err != nil {
		return 0, err
	}
	st.ConsecutiveViews++
	return st.ConsecutiveViews, e.saveState(ctx, identity, st)
}

// ShouldIssue reports whether the identity is due for a challenge: either
// the consecutive-view counter reached its threshold (independent of the
// behavior score) or the analyzer recommends challenge or worse.
func (e *ChallengeEngine) ShouldIssue(ctx context.Context, identity string, rec models.Recommendation) (bool, error) {
	st, err := e.state(ctx, identity)
	if err != nil {
		return false, err
	}
	if st.ConsecutiveViews >= e.cfg.ViewsPerChallenge {
		return true, nil
	}
	return rec == models.RecommendChallenge || rec == models.RecommendReverify, nil
}

// Issue returns the identity's challenge, generating one if none is active.
// At most one challenge is outstanding per identity: re-issuing while one
// is live returns the live one. Locked identities get CHALLENGE_LOCKED.
func (e *ChallengeEngine) Issue(ctx context.Context, identity string, suspicionScore int) (*models.Challenge, *VerifyResult, error) {
	mu := e.locks.lock(identity)
	defer mu.Unlock()

	st, err := e.state(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	now := e.now()
	if now.Before(st.LockedUntil) {
		return nil, &VerifyResult{
			ErrorKind:     ErrChallengeLocked,
			Locked:        true,
			LockRemaining: st.LockedUntil.Sub(now),
		}, nil
	}

	if ch, err := e.active(ctx, identity); err == nil && ch != nil && now.Before(ch.ExpiresAt) {
		return ch, nil, nil
	}

	ch := e.generate(suspicionScore)
	raw, err := json.Marshal(ch)
	if err != nil {
		return nil, nil, err
	}
	if err := e.store.Set(ctx, challengeKeyPrefix+identity, string(raw), e.cfg.Timeout+challengeRecordGrace); err != nil {
		return nil, nil, err
	}

	st.ActiveChallengeID = ch.ID
	if err := e.saveState(ctx, identity, st); err != nil {
		return nil, nil, err
	}
	return &ch, nil, nil
}

// generate picks a random puzzle type. Higher suspicion means harder
// variants: more targets, longer sequences, shorter timeout.
func (e *ChallengeEngine) generate(suspicionScore int) models.Challenge {
	hard := suspicionScore >= 70
	timeout := e.cfg.Timeout
	if hard {
		timeout = timeout / 2
	}

	now := e.now()
	ch := models.Challenge{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(timeout),
	}

	switch rand.Intn(4) {
	case 0:
		ch.Type = models.ChallengeTapCount
		ch.TapTarget = 3 + rand.Intn(3)
		if hard {
			ch.TapTarget += 2
		}
		ch.Prompt = fmt.Sprintf("Tap the button exactly %d times", ch.TapTarget)
		ch.ExpectedAnswer = strconv.Itoa(ch.TapTarget)
	case 1:
		ch.Type = models.ChallengeArithmetic
		max := 10
		if hard {
			max = 30
		}
		ch.Operand1 = 1 + rand.Intn(max)
		ch.Operand2 = 1 + rand.Intn(max)
		ch.Operator = "+"
		answer := ch.Operand1 + ch.Operand2
		if hard && ch.Operand1 >= ch.Operand2 {
			ch.Operator = "-"
			answer = ch.Operand1 - ch.Operand2
		}
		ch.Prompt = fmt.Sprintf("What is %d %s %d?", ch.Operand1, ch.Operator, ch.Operand2)
		ch.ExpectedAnswer = strconv.Itoa(answer)
	case 2:
		ch.Type = models.ChallengeSwipeDirection
		dirs := []models.SwipeDirection{models.SwipeUp, models.SwipeDown, models.SwipeLeft, models.SwipeRight}
		ch.Direction = dirs[rand.Intn(len(dirs))]
		ch.Prompt = fmt.Sprintf("Swipe %s to continue", ch.Direction)
		ch.ExpectedAnswer = string(ch.Direction)
	default:
		ch.Type = models.ChallengeColorSequence
		length := 3
		if hard {
			length = 5
		}
		seq := make([]string, length)
		for i := range seq {
			seq[i] = challengePalette[rand.Intn(len(challengePalette))]
		}
		ch.ColorSequence = seq
		ch.Options = challengePalette
		ch.Prompt = "Repeat the color sequence"
		answer := seq[0]
		for _, c := range seq[1:] {
			answer += "," + c
		}
		ch.ExpectedAnswer = answer
	}
	return ch
}

// Verify checks an answer against the active challenge. Timeout, skip and
// wrong answers all count as failed attempts; MaxFailedAttempts consecutive
// failures lock the identity for the configured duration, during which all
// challenge interaction is rejected regardless of correctness.
func (e *ChallengeEngine) Verify(ctx context.Context, identity, challengeID, answer string, skip bool) (VerifyResult, error) {
	mu := e.locks.lock(identity)
	defer mu.Unlock()

	st, err := e.state(ctx, identity)
	if err != nil {
		return VerifyResult{ErrorKind: ErrNoActiveChallenge}, err
	}
	now := e.now()
	if now.Before(st.LockedUntil) {
		return VerifyResult{
			ErrorKind:     ErrChallengeLocked,
			Locked:        true,
			LockRemaining: st.LockedUntil.Sub(now),
		}, nil
	}

	ch, err := e.active(ctx, identity)
	if err != nil {
		return VerifyResult{ErrorKind: ErrNoActiveChallenge}, err
	}
	if ch == nil {
		return VerifyResult{ErrorKind: ErrNoActiveChallenge}, nil
	}
	if ch.ID != challengeID {
		return VerifyResult{ErrorKind: ErrInvalidChallengeID}, nil
	}

	switch {
	case now.After(ch.ExpiresAt):
		return e.fail(ctx, identity, st, ErrChallengeExpired)
	case skip:
		return e.fail(ctx, identity, st, ErrWrongAnswer)
	case answer != ch.ExpectedAnswer:
		return e.fail(ctx, identity, st, ErrWrongAnswer)
	}

	// Success resets both counters and clears the active challenge.
	st.ConsecutiveViews = 0
	st.FailedAttempts = 0
	st.ActiveChallengeID = ""
	if err := e.saveState(ctx, identity, st); err != nil {
		return VerifyResult{}, err
	}
	e.store.Delete(ctx, challengeKeyPrefix+identity)
	return VerifyResult{Success: true}, nil
}

func (e *ChallengeEngine) fail(ctx context.Context, identity string, st models.ChallengeState, kind ErrorKind) (VerifyResult, error) {
	st.FailedAttempts++
	res := VerifyResult{ErrorKind: kind}

	if st.FailedAttempts >= e.cfg.MaxFailedAttempts {
		st.LockedUntil = e.now().Add(e.cfg.LockoutDuration)
		st.FailedAttempts = 0
		st.ActiveChallengeID = ""
		e.store.Delete(ctx, challengeKeyPrefix+identity)
		res.Locked = true
		res.LockRemaining = e.cfg.LockoutDuration
	}

	if err := e.saveState(ctx, identity, st); err != nil {
		return res, err
	}
	return res, nil
}

// Status reports lock state and the live challenge, if any.
func (e *ChallengeEngine) Status(ctx context.Context, identity string) (ChallengeStatus, error) {
	st, err := e.state(ctx, identity)
	if err != nil {
		return ChallengeStatus{}, err
	}
	now := e.now()
	if now.Before(st.LockedUntil) {
		return ChallengeStatus{IsLocked: true, LockRemaining: st.LockedUntil.Sub(now)}, nil
	}

	ch, err := e.active(ctx, identity)
	if err != nil {
		return ChallengeStatus{}, err
	}
	if ch != nil && now.Before(ch.ExpiresAt) {
		return ChallengeStatus{NeedsChallenge: true, Challenge: ch}, nil
	}
	return ChallengeStatus{}, nil
}

// IsLocked reports whether challenge interaction is currently rejected.
func (e *ChallengeEngine) IsLocked(ctx context.Context, identity string) (bool, time.Duration, error) {
	st, err := e.state(ctx, identity)
	if err != nil {
		return false, 0, err
	}
	now := e.now()
	if now.Before(st.LockedUntil) {
		return true, st.LockedUntil.Sub(now), nil
	}
	return false, 0, nil
}

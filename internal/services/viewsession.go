package services

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/store"
	"github.com/Hiksang/rewardguard-backend/pkg/token"
)

const (
	viewSessionKeyPrefix = "viewsession:"
	cooldownKeyPrefix    = "cooldown:"
)

// CompleteResult is the typed outcome of a completion attempt. On failure
// XPAwarded is always 0; WatchedSeconds/RequiredSeconds are populated for
// WATCH_TIME_TOO_SHORT so the client can show how much is left.
type CompleteResult struct {
	Success         bool
	XPAwarded       int
	ErrorKind       ErrorKind
	WatchedSeconds  int
	RequiredSeconds int
}

// SessionLedger issues and consumes single-use view-session tokens, and
// enforces minimum dwell time and per-(identity, content) cooldown.
type SessionLedger struct {
	store store.Store
	locks keyedMutex
	now   func() time.Time

	ttl              time.Duration
	cooldown         time.Duration
	minWatchFraction float64
}

func NewSessionLedger(s store.Store, ttl, cooldown time.Duration, minWatchFraction float64) *SessionLedger {
	return &SessionLedger{
		store:            s,
		now:              time.Now,
		ttl:              ttl,
		cooldown:         cooldown,
		minWatchFraction: minWatchFraction,
	}
}

// Start issues an unguessable single-use token binding the identity to the
// claimed content view. The session is swept after the TTL regardless of
// completion state, bounding memory for abandoned views.
func (l *SessionLedger) Start(ctx context.Context, identity, contentID string, expectedDurationSeconds int) (string, error) {
	tok, err := token.New()
	if err != nil {
		return "", err
	}

	sess := models.ViewSession{
		Token:                   tok,
		Identity:                identity,
		ContentID:               contentID,
		ExpectedDurationSeconds: expectedDurationSeconds,
		StartedAt:               l.now(),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	if err := l.store.Set(ctx, viewSessionKeyPrefix+tok, string(raw), l.ttl); err != nil {
		return "", err
	}
	return tok, nil
}

// Complete validates and consumes a session token. Validation order: token
// exists → identity matches → content matches → not already completed →
// cooldown inactive → dwell time reached. Dwell and cooldown failures leave
// the session live (wall clock keeps accruing, so an honest client that
// kept watching can resubmit); only success consumes it.
func (l *SessionLedger) Complete(ctx context.Context, identity, contentID, tok string, claimedXP int) (CompleteResult, error) {
	mu := l.locks.lock(tok)
	defer mu.Unlock()

	raw, ok, err := l.store.Get(ctx, viewSessionKeyPrefix+tok)
	if err != nil {
		return CompleteResult{ErrorKind: ErrInvalidToken}, err
	}
	if !ok {
		return CompleteResult{ErrorKind: ErrInvalidToken}, nil
	}

	var sess models.ViewSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return CompleteResult{ErrorKind: ErrInvalidToken}, nil
	}

	if sess.Identity != identity {
		return CompleteResult{ErrorKind: ErrUserMismatch}, nil
	}
	if sess.ContentID != contentID {
		return CompleteResult{ErrorKind: ErrContentMismatch}, nil
	}
	if sess.Completed {
		return CompleteResult{ErrorKind: ErrAlreadyCompleted}, nil
	}

	now := l.now()
	cooldownKey := cooldownKeyPrefix + identity + ":" + contentID
	if _, active, err := l.store.Get(ctx, cooldownKey); err == nil && active {
		return CompleteResult{ErrorKind: ErrCooldownActive}, nil
	}

	watched := int(now.Sub(sess.StartedAt).Seconds())
	required := int(math.Ceil(float64(sess.ExpectedDurationSeconds) * l.minWatchFraction))
	if watched < required {
		return CompleteResult{
			ErrorKind:       ErrWatchTimeTooShort,
			WatchedSeconds:  watched,
			RequiredSeconds: required,
		}, nil
	}

	// Consume: keep a completed tombstone until the original TTL sweep so
	// a resubmitted token reports ALREADY_COMPLETED, never a second award.
	sess.Completed = true
	if tomb, err := json.Marshal(sess); err == nil {
		remaining := l.ttl - now.Sub(sess.StartedAt)
		if remaining < time.Second {
			remaining = time.Second
		}
		l.store.Set(ctx, viewSessionKeyPrefix+tok, string(tomb), remaining)
	}

	entry := models.CooldownEntry{Identity: identity, ContentID: contentID, LastCompletedAt: now}
	if rawEntry, err := json.Marshal(entry); err == nil {
		l.store.Set(ctx, cooldownKey, string(rawEntry), l.cooldown)
	}

	return CompleteResult{
		Success:        true,
		XPAwarded:      claimedXP,
		WatchedSeconds: watched,
	}, nil
}

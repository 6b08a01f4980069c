package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/store"
)

const (
	dailyKeyPrefix = "daily:"
	quizKeyPrefix  = "quizdone:"

	// Records outlive their day by a margin so a late read near midnight
	// still sees the old record and rolls it over explicitly.
	dailyRecordTTL = 48 * time.Hour
)

// ActionType distinguishes the two rewardable action families.
type ActionType string

const (
	ActionAdView     ActionType = "ad_view"
	ActionQuizAnswer ActionType = "quiz_answer"
)

// DailyCheckResult reports whether a proposed reward fits under all three
// daily ceilings. Check never commits; RecordEarned is the explicit commit.
type DailyCheckResult struct {
	Allowed          bool
	Reason           ErrorKind
	CurrentXP        int
	RemainingXP      int
	AdViews          int
	RemainingAdViews int
	QuizAnswers      int
	RemainingQuiz    int
}

// DailyQuotaTracker keeps per-identity-per-day counters with lazy wholesale
// rollover at the configured timezone's day boundary.
type DailyQuotaTracker struct {
	store store.Store
	locks keyedMutex
	now   func() time.Time

	loc        *time.Location
	maxXP      int
	maxAdViews int
	maxQuiz    int
}

func NewDailyQuotaTracker(s store.Store, loc *time.Location, maxXP, maxAdViews, maxQuiz int) *DailyQuotaTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyQuotaTracker{
		store:      s,
		now:        time.Now,
		loc:        loc,
		maxXP:      maxXP,
		maxAdViews: maxAdViews,
		maxQuiz:    maxQuiz,
	}
}

func (q *DailyQuotaTracker) today() string {
	return q.now().In(q.loc).Format("2006-01-02")
}

// record loads the identity's daily record, rolling it over wholesale when
// its stored date differs from today.
func (q *DailyQuotaTracker) record(ctx context.Context, identity string) (models.DailyRecord, error) {
	rec := models.DailyRecord{Identity: identity, Date: q.today()}

	raw, ok, err := q.store.Get(ctx, dailyKeyPrefix+identity)
	if err != nil || !ok {
		return rec, err
	}

	var stored models.DailyRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		// Corrupt record: start the day fresh rather than deny rewards.
		return rec, nil
	}
	if stored.Date != rec.Date {
		return rec, nil // day rolled over, counters reset wholesale
	}
	return stored, nil
}

func (q *DailyQuotaTracker) save(ctx context.Context, rec models.DailyRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return q.store.Set(ctx, dailyKeyPrefix+rec.Identity, string(raw), dailyRecordTTL)
}

// CheckDailyLimit verifies the proposed reward against all three ceilings
// without committing anything.
func (q *DailyQuotaTracker) CheckDailyLimit(ctx context.Context, identity string, proposedXP int, action ActionType) (DailyCheckResult, error) {
	rec, err := q.record(ctx, identity)
	if err != nil {
		return DailyCheckResult{}, err
	}

	res := DailyCheckResult{
		Allowed:          true,
		CurrentXP:        rec.XPEarned,
		RemainingXP:      q.maxXP - rec.XPEarned,
		AdViews:          rec.AdViews,
		RemainingAdViews: q.maxAdViews - rec.AdViews,
		QuizAnswers:      rec.QuizAnswers,
		RemainingQuiz:    q.maxQuiz - rec.QuizAnswers,
	}

	if rec.XPEarned+proposedXP > q.maxXP {
		res.Allowed = false
		res.Reason = ErrDailyXPLimit
		return res, nil
	}
	switch action {
	case ActionAdView:
		if rec.AdViews+1 > q.maxAdViews {
			res.Allowed = false
			res.Reason = ErrDailyAdViewLimit
		}
	case ActionQuizAnswer:
		if rec.QuizAnswers+1 > q.maxQuiz {
			res.Allowed = false
			res.Reason = ErrDailyQuizLimit
		}
	}
	return res, nil
}

// RecordEarned commits a granted reward. Called exactly once per reward
// event, only after the full pipeline has succeeded. Stored XP is clamped
// at the ceiling so a racing commit can never push it past MaxXPPerDay.
func (q *DailyQuotaTracker) RecordEarned(ctx context.Context, identity string, xp int, action ActionType) error {
	mu := q.locks.lock(identity)
	defer mu.Unlock()

	rec, err := q.record(ctx, identity)
	if err != nil {
		return err
	}

	rec.XPEarned += xp
	if rec.XPEarned > q.maxXP {
		rec.XPEarned = q.maxXP
	}
	switch action {
	case ActionAdView:
		rec.AdViews++
	case ActionQuizAnswer:
		rec.QuizAnswers++
	}
	return q.save(ctx, rec)
}

// MarkQuizAnswered records that the identity answered this question today.
// Returns false when it was already answered (the reward must be withheld).
func (q *DailyQuotaTracker) MarkQuizAnswered(ctx context.Context, identity, quizID string) (bool, error) {
	mu := q.locks.lock(identity)
	defer mu.Unlock()

	key := quizKeyPrefix + identity + ":" + q.today() + ":" + quizID
	_, ok, err := q.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}
	return true, q.store.Set(ctx, key, "1", dailyRecordTTL)
}

// UnmarkQuizAnswered reverts a mark whose reward was never credited, so an
// honest retry the same day is not rejected as already answered.
func (q *DailyQuotaTracker) UnmarkQuizAnswered(ctx context.Context, identity, quizID string) error {
	mu := q.locks.lock(identity)
	defer mu.Unlock()

	return q.store.Delete(ctx, quizKeyPrefix+identity+":"+q.today()+":"+quizID)
}

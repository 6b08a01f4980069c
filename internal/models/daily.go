package models

// DailyRecord holds one identity's reward counters for a single calendar
// day. Counters are reset wholesale on day rollover, never decayed, and
// never go negative.
type DailyRecord struct {
	Identity    string `json:"identity"`
	Date        string `json:"date"` // YYYY-MM-DD in the configured quota timezone
	XPEarned    int    `json:"xp_earned"`
	AdViews     int    `json:"ad_views"`
	QuizAnswers int    `json:"quiz_answers"`
}

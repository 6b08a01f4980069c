package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/Hiksang/rewardguard-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Reward pipeline
	r.Post("/api/session/start", handlers.StartSession)
	r.Post("/api/session/complete", handlers.CompleteSession)
	r.Post("/api/quiz/answer", handlers.AnswerQuiz)

	// Quota and ledger
	r.Get("/api/quota/status", handlers.GetQuotaStatus)
	r.Get("/api/ledger/balance", handlers.GetLedgerBalance)

	// Behavior ingest
	r.Post("/api/behavior/event", handlers.RecordBehaviorEvent)

	// Human verification
	r.Get("/api/challenge/status", handlers.GetChallengeStatus)
	r.Post("/api/challenge/verify", handlers.VerifyChallenge)

	// Re-verification
	r.Get("/api/reverify/pending", handlers.GetPendingReVerification)
	r.Post("/api/reverify/complete", handlers.CompleteReVerification)

	// Admin
	r.Post("/api/admin/signin", handlers.AdminSignin)
	r.Post("/api/admin/signout", handlers.AdminSignout)
	r.Get("/api/admin/violations", handlers.AdminGetViolations)
	r.Put("/api/admin/unrestrict", handlers.AdminUnrestrict)
}

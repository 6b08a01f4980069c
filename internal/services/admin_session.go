package services

import (
	"context"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/store"
	"github.com/Hiksang/rewardguard-backend/pkg/token"
)

const (
	adminSessionKeyPrefix = "admin_session:"
	adminSessionTTL       = 12 * time.Hour
)

// AdminSessions issues and validates short-lived tokens for the admin
// surface (violation listing, manual unrestrict).
type AdminSessions struct {
	store store.Store
}

func NewAdminSessions(s store.Store) *AdminSessions {
	return &AdminSessions{store: s}
}

// Create issues a fresh admin session token.
func (a *AdminSessions) Create(ctx context.Context, username string) (string, error) {
	tok, err := token.New()
	if err != nil {
		return "", err
	}
	if err := a.store.Set(ctx, adminSessionKeyPrefix+tok, username, adminSessionTTL); err != nil {
		return "", err
	}
	return tok, nil
}

// Validate returns the session's username when the token is live.
func (a *AdminSessions) Validate(ctx context.Context, tok string) (string, bool, error) {
	if tok == "" {
		return "", false, nil
	}
	return a.store.Get(ctx, adminSessionKeyPrefix+tok)
}

// Invalidate consumes an admin session (signout). Reports whether a live
// session was removed.
func (a *AdminSessions) Invalidate(ctx context.Context, tok string) (bool, error) {
	_, ok, err := a.store.GetDel(ctx, adminSessionKeyPrefix+tok)
	return ok, err
}

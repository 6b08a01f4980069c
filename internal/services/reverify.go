package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Hiksang/rewardguard-backend/internal/models"
	"github.com/Hiksang/rewardguard-backend/internal/store"
)

const reverifyKeyPrefix = "reverify:"

// ReVerificationCoordinator escalates high-suspicion identities to a fresh
// proof-of-personhood. The oracle action is namespaced by reason, so the
// pseudonym it issues is unlinkable to the flagged one anywhere outside
// this engine's own record.
type ReVerificationCoordinator struct {
	store  store.Store
	now    func() time.Time
	expiry time.Duration
}

func NewReVerificationCoordinator(s store.Store, expiry time.Duration) *ReVerificationCoordinator {
	return &ReVerificationCoordinator{store: s, now: time.Now, expiry: expiry}
}

// Request creates the identity's pending request. Requesting again before
// the first expires overwrites it; there is never more than one pending.
func (c *ReVerificationCoordinator) Request(ctx context.Context, identity, reason string) (models.ReVerificationRequest, error) {
	now := c.now()
	req := models.ReVerificationRequest{
		Identity:       identity,
		RequiredAction: "reverify_" + reason,
		Reason:         reason,
		CreatedAt:      now,
		ExpiresAt:      now.Add(c.expiry),
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return req, err
	}
	return req, c.store.Set(ctx, reverifyKeyPrefix+identity, string(raw), c.expiry)
}

// GetPending returns the identity's pending request, lazily discarding an
// expired one. An expired request clears but the identity stays denied
// until something re-requests.
func (c *ReVerificationCoordinator) GetPending(ctx context.Context, identity string) (*models.ReVerificationRequest, error) {
	raw, ok, err := c.store.Get(ctx, reverifyKeyPrefix+identity)
	if err != nil || !ok {
		return nil, err
	}

	var req models.ReVerificationRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		c.store.Delete(ctx, reverifyKeyPrefix+identity)
		return nil, nil
	}
	if !c.now().Before(req.ExpiresAt) {
		c.store.Delete(ctx, reverifyKeyPrefix+identity)
		return nil, nil
	}
	return &req, nil
}

// Complete clears the pending request once the oracle confirmed a fresh
// verification.
func (c *ReVerificationCoordinator) Complete(ctx context.Context, identity string) error {
	return c.store.Delete(ctx, reverifyKeyPrefix+identity)
}

package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Hiksang/rewardguard-backend/internal/database"
	"github.com/Hiksang/rewardguard-backend/internal/models"
)

const violationsCollection = "violations"

// RecordViolation writes one escalation decision to the audit trail.
// Best effort: when Mongo is not connected or the write fails, the event is
// logged and dropped. An audit outage never changes an integrity decision.
func RecordViolation(identity string, vtype models.ViolationType, score int, flags []string, actionTaken string) {
	if database.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	violation := models.IntegrityViolation{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now(),
		Identity:       identity,
		Type:           vtype,
		SuspicionScore: score,
		Flags:          flags,
		ActionTaken:    actionTaken,
	}

	if _, err := database.DB.Collection(violationsCollection).InsertOne(ctx, violation); err != nil {
		log.Printf("audit: failed to record %s for %s: %v", vtype, identity, err)
	}
}

// GetViolations returns the most recent audit records, optionally filtered
// by identity. Admin surface only.
func GetViolations(ctx context.Context, identity string, limit int64) ([]models.IntegrityViolation, error) {
	if database.DB == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	filter := bson.M{}
	if identity != "" {
		filter["identity"] = identity
	}

	findOptions := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cursor, err := database.DB.Collection(violationsCollection).Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var violations []models.IntegrityViolation
	if err := cursor.All(ctx, &violations); err != nil {
		return nil, err
	}
	return violations, nil
}

// CleanupOldViolations removes audit records older than maxAge.
func CleanupOldViolations(maxAge time.Duration) error {
	if database.DB == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := database.DB.Collection(violationsCollection).DeleteMany(ctx, bson.M{
		"created_at": bson.M{"$lt": time.Now().Add(-maxAge)},
	})
	return err
}

// StartViolationCleanup periodically prunes old audit records until the
// stop channel closes. Failures are logged and swallowed.
func StartViolationCleanup(interval, maxAge time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := CleanupOldViolations(maxAge); err != nil {
					log.Printf("audit: cleanup failed: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
}

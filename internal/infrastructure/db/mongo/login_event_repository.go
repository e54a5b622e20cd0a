package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fitlog/fitness-api/internal/core/domain"
)

const (
	collectionLoginEvents = "login_events"
	loginEventRetention   = 90 * 24 * time.Hour
)

// LoginEventRepository implements ports.LoginEventRepository using MongoDB.
type LoginEventRepository struct {
	col *mongo.Collection
}

// NewLoginEventRepository creates a new LoginEventRepository.
func NewLoginEventRepository(db *mongo.Database) *LoginEventRepository {
	return &LoginEventRepository{col: db.Collection(collectionLoginEvents)}
}

// Insert persists a login event to the login_events audit collection.
func (r *LoginEventRepository) Insert(ctx context.Context, event *domain.LoginEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"_id":         event.ID,
		"email":       event.Email,
		"method":      event.Method,
		"outcome":     event.Outcome,
		"occurred_at": event.OccurredAt.UTC(),
	}
	if event.UserID != "" {
		doc["user_id"] = event.UserID
	}
	if event.Reason != "" {
		doc["reason"] = event.Reason
	}
	if event.IP != "" {
		doc["ip"] = event.IP
	}
	if event.UserAgent != "" {
		doc["user_agent"] = event.UserAgent
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		// A redelivered event keeps its ID; the first write wins.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert login event: %w", err)
	}
	return nil
}

// EnsureIndexes indexes history by identity and expires old entries.
func (r *LoginEventRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "occurred_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(loginEventRetention / time.Second)),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

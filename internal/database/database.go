package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/himlearning/storyhub/internal/config"
	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrDuplicateKey is returned by stores when a unique index rejects a write.
var ErrDuplicateKey = errors.New("duplicate key")

// DB bundles the client with the application database handle.
type DB struct {
	Client *mongo.Client
	*mongo.Database
}

// Connect opens a MongoDB connection, verifies it and ensures indexes exist.
func Connect(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*DB, error) {
	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetConnectTimeout(cfg.Mongo.Timeout).
		SetServerSelectionTimeout(cfg.Mongo.Timeout).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	db := &DB{Client: client, Database: client.Database(cfg.Mongo.Database)}
	if err := db.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.Info("mongo connected", zap.String("database", cfg.Mongo.Database))
	return db, nil
}

// Close disconnects the client.
func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the stores rely on. The unique slug and
// email indexes are the source of truth for uniqueness.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		models.CollectionStories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true).SetName("slug_unique")},
			{Keys: bson.D{{Key: "likeCount", Value: -1}, {Key: "commentCount", Value: -1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("ranking")},
			{Keys: bson.D{{Key: "author", Value: 1}}},
			{Keys: bson.D{{Key: "privacy", Value: 1}}},
		},
		models.CollectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "readList", Value: 1}}},
			{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
			{Keys: bson.D{{Key: "emailVerificationToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		models.CollectionComments: {
			{Keys: bson.D{{Key: "story", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "author", Value: 1}}},
		},
		models.CollectionAnnouncements: {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
		},
		models.CollectionSlugTrackers: {
			{Keys: bson.D{{Key: "slug", Value: 1}, {Key: "type", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "targetId", Value: 1}}},
		},
	}

	for coll, indexes := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("%s: %w", coll, err)
		}
	}
	return nil
}

// Translate maps driver errors onto package sentinels.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var le mongo.LabeledError
	if errors.As(err, &le) {
		return le.HasErrorLabel("TransientTransactionError") || le.HasErrorLabel("RetryableWriteError")
	}
	return false
}

// Backoff configures WithRetry.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultBackoff retries three times starting at 50ms.
var DefaultBackoff = Backoff{Attempts: 3, Initial: 50 * time.Millisecond, Max: time.Second}

// WithRetry runs fn, retrying transient failures with exponential backoff.
func WithRetry(ctx context.Context, b Backoff, fn func(context.Context) error) error {
	if b.Attempts < 1 {
		b.Attempts = 1
	}
	delay := b.Initial
	var err error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		if err = fn(ctx); err == nil || !IsTransient(err) {
			return err
		}
		if attempt == b.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return err
}

// ToggleMembership is an update pipeline that adds id to the array field
// when absent, removes it when present and stores the resulting length in
// countField. It runs as one document write, so concurrent toggles by
// different members never lose each other's updates.
func ToggleMembership(field, countField string, id primitive.ObjectID) mongo.Pipeline {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: field, Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$in", Value: bson.A{id, current}}},
			without(current, id),
			bson.D{{Key: "$concatArrays", Value: bson.A{current, bson.A{id}}}},
		}}}}}}},
		{{Key: "$set", Value: bson.D{{Key: countField, Value: bson.D{{Key: "$size", Value: "$" + field}}}}}},
	}
}

// PullMembership removes id from the array field and recomputes countField.
// Applying it twice has the same effect as applying it once.
func PullMembership(field, countField string, id primitive.ObjectID) mongo.Pipeline {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: field, Value: without(current, id)}}}},
		{{Key: "$set", Value: bson.D{{Key: countField, Value: bson.D{{Key: "$size", Value: "$" + field}}}}}},
	}
}

// AddMembership appends id to the array field unless already present and
// recomputes countField.
func AddMembership(field, countField string, id primitive.ObjectID) mongo.Pipeline {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: field, Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$in", Value: bson.A{id, current}}},
			current,
			bson.D{{Key: "$concatArrays", Value: bson.A{current, bson.A{id}}}},
		}}}}}}},
		{{Key: "$set", Value: bson.D{{Key: countField, Value: bson.D{{Key: "$size", Value: "$" + field}}}}}},
	}
}

// PullMemberships is PullMembership for several ids at once.
func PullMemberships(field, countField string, ids []primitive.ObjectID) mongo.Pipeline {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, bson.A{}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: field, Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: current},
			{Key: "cond", Value: bson.D{{Key: "$not", Value: bson.A{bson.D{{Key: "$in", Value: bson.A{"$$this", ids}}}}}}},
		}}}}}}},
		{{Key: "$set", Value: bson.D{{Key: countField, Value: bson.D{{Key: "$size", Value: "$" + field}}}}}},
	}
}

func without(array interface{}, id primitive.ObjectID) bson.D {
	return bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: array},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$this", id}}}},
	}}}
}

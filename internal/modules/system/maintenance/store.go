package maintenance

import (
	"context"
	"time"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store holds the housekeeping writes.
type Store interface {
	// PruneTokens unsets verification and reset tokens that expired before now.
	PruneTokens(ctx context.Context, now time.Time) (int64, error)
	// RepairCounters rewrites every denormalized count that disagrees with
	// the length of its array.
	RepairCounters(ctx context.Context) (int64, error)
}

type MongoStore struct {
	users   *mongo.Collection
	stories *mongo.Collection
	backoff database.Backoff
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:   db.Collection(models.CollectionUsers),
		stories: db.Collection(models.CollectionStories),
		backoff: database.DefaultBackoff,
	}
}

func (m *MongoStore) PruneTokens(ctx context.Context, now time.Time) (int64, error) {
	pairs := [][2]string{
		{"emailVerificationToken", "emailVerificationExpire"},
		{"resetPasswordToken", "resetPasswordExpire"},
	}
	var total int64
	for _, p := range pairs {
		token, expire := p[0], p[1]
		err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
			res, err := m.users.UpdateMany(ctx,
				bson.M{expire: bson.M{"$lt": now}},
				bson.M{"$unset": bson.M{token: "", expire: ""}},
			)
			if err != nil {
				return err
			}
			total += res.ModifiedCount
			return nil
		})
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (m *MongoStore) RepairCounters(ctx context.Context) (int64, error) {
	targets := []struct {
		coll  *mongo.Collection
		array string
		count string
	}{
		{m.stories, "likes", "likeCount"},
		{m.stories, "comments", "commentCount"},
		{m.users, "readList", "readListLength"},
	}
	var total int64
	for _, t := range targets {
		size := bson.M{"$size": bson.M{"$ifNull": bson.A{"$" + t.array, bson.A{}}}}
		filter := bson.M{"$expr": bson.M{"$ne": bson.A{"$" + t.count, size}}}
		update := mongo.Pipeline{{{Key: "$set", Value: bson.M{t.count: size}}}}
		err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
			res, err := t.coll.UpdateMany(ctx, filter, update)
			if err != nil {
				return err
			}
			total += res.ModifiedCount
			return nil
		})
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

var _ Store = (*MongoStore)(nil)

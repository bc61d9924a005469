package admin

import (
	"context"
	"time"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore is the Store backed by MongoDB.
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

func (m *MongoStore) count(ctx context.Context, coll *mongo.Collection, filter bson.M) (int64, error) {
	var n int64
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		var err error
		n, err = coll.CountDocuments(ctx, filter)
		return err
	})
	return n, err
}

func (m *MongoStore) CountUsers(ctx context.Context, role models.Role, since time.Time) (int64, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	if !since.IsZero() {
		filter["createdAt"] = bson.M{"$gte": since}
	}
	return m.count(ctx, m.users, filter)
}

func (m *MongoStore) CountStories(ctx context.Context, author primitive.ObjectID, since time.Time) (int64, error) {
	filter := bson.M{}
	if !author.IsZero() {
		filter["author"] = author
	}
	if !since.IsZero() {
		filter["createdAt"] = bson.M{"$gte": since}
	}
	return m.count(ctx, m.stories, filter)
}

func (m *MongoStore) PullLikes(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	var n int64
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		res, err := m.stories.UpdateMany(ctx, bson.M{"likes": userID}, database.PullMembership("likes", "likeCount", userID))
		if err != nil {
			return err
		}
		n = res.ModifiedCount
		return nil
	})
	return n, err
}

var _ Store = (*MongoStore)(nil)

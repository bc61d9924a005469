package announcement

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the Store backed by MongoDB.
type MongoStore struct {
	announcements *mongo.Collection
	users         *mongo.Collection
	backoff       database.Backoff
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		announcements: db.Collection(models.CollectionAnnouncements),
		users:         db.Collection(models.CollectionUsers),
		backoff:       database.DefaultBackoff,
	}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

func (m *MongoStore) Insert(ctx context.Context, a *models.Announcement) error {
	_, err := m.announcements.InsertOne(ctx, a)
	return database.Translate(err)
}

func (m *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	var a models.Announcement
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		return m.announcements.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (m *MongoStore) Update(ctx context.Context, a *models.Announcement) error {
	res, err := m.announcements.UpdateByID(ctx, a.ID, bson.M{"$set": bson.M{
		"title":       a.Title,
		"content":     a.Content,
		"isActive":    a.IsActive,
		"visibility":  a.Visibility,
		"expiresAt":   a.ExpiresAt,
		"expiresTime": a.ExpiresTime,
		"updatedAt":   a.UpdatedAt,
	}})
	if err != nil {
		return database.Translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	var n int64
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		res, err := m.announcements.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		n = res.DeletedCount
		return nil
	})
	return n > 0, err
}

func (m *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Announcement, error) {
	var out []models.Announcement
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		cur, err := m.announcements.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &out)
	})
	return out, err
}

func (m *MongoStore) Active(ctx context.Context, since time.Time) ([]models.Announcement, error) {
	filter := bson.M{
		"isActive": true,
		"$or": bson.A{
			bson.M{"expiresAt": nil},
			bson.M{"expiresAt": bson.M{"$gte": since}},
		},
	}
	return m.find(ctx, filter, options.Find().SetSort(newestFirst))
}

func (m *MongoStore) Search(ctx context.Context, q Query) ([]models.Announcement, int64, error) {
	filter := bson.M{}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"content": pattern}}
	}
	switch q.Status {
	case StatusActive:
		filter["isActive"] = true
	case StatusInactive:
		filter["isActive"] = false
	}

	var total int64
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		var err error
		total, err = m.announcements.CountDocuments(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	out, err := m.find(ctx, filter, options.Find().SetSort(newestFirst).SetSkip(q.Skip).SetLimit(q.Limit))
	return out, total, err
}

func (m *MongoStore) Authors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.UserSummary
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		cur, err := m.users.Find(ctx,
			bson.M{"_id": bson.M{"$in": ids}},
			options.Find().SetProjection(bson.M{"username": 1, "photo": 1}),
		)
		if err != nil {
			return err
		}
		return cur.All(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

var _ Store = (*MongoStore)(nil)

package comment

import (
	"context"
	"errors"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the Store backed by MongoDB.
type MongoStore struct {
	comments *mongo.Collection
	stories  *mongo.Collection
	users    *mongo.Collection
	backoff  database.Backoff
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		comments: db.Collection(models.CollectionComments),
		stories:  db.Collection(models.CollectionStories),
		users:    db.Collection(models.CollectionUsers),
		backoff:  database.DefaultBackoff,
	}
}

func (m *MongoStore) Insert(ctx context.Context, c *models.Comment) error {
	_, err := m.comments.InsertOne(ctx, c)
	return database.Translate(err)
}

func (m *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var c models.Comment
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		return m.comments.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MongoStore) find(ctx context.Context, filter bson.M) ([]models.Comment, error) {
	var out []models.Comment
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		cur, err := m.comments.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &out)
	})
	return out, err
}

func (m *MongoStore) ListByStory(ctx context.Context, storyID primitive.ObjectID) ([]models.Comment, error) {
	return m.find(ctx, bson.M{"story": storyID})
}

func (m *MongoStore) ListByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Comment, error) {
	return m.find(ctx, bson.M{"author": author})
}

func (m *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		_, err := m.comments.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

func (m *MongoStore) DeleteByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error) {
	var n int64
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		res, err := m.comments.DeleteMany(ctx, bson.M{"author": author})
		if err != nil {
			return err
		}
		n = res.DeletedCount
		return nil
	})
	return n, err
}

func (m *MongoStore) count(ctx context.Context, filter bson.M) (int64, error) {
	var n int64
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		var err error
		n, err = m.comments.CountDocuments(ctx, filter)
		return err
	})
	return n, err
}

func (m *MongoStore) CountByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error) {
	return m.count(ctx, bson.M{"author": author})
}

func (m *MongoStore) Count(ctx context.Context) (int64, error) {
	return m.count(ctx, bson.M{})
}

func (m *MongoStore) Attach(ctx context.Context, storyID, commentID primitive.ObjectID) error {
	return database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		_, err := m.stories.UpdateByID(ctx, storyID, database.AddMembership("comments", "commentCount", commentID))
		return err
	})
}

func (m *MongoStore) Detach(ctx context.Context, storyID primitive.ObjectID, commentIDs ...primitive.ObjectID) error {
	if len(commentIDs) == 0 {
		return nil
	}
	return database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		_, err := m.stories.UpdateByID(ctx, storyID, database.PullMemberships("comments", "commentCount", commentIDs))
		return err
	})
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

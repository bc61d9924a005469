package story

import (
	"context"
	"errors"
	"regexp"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/slug"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the Store backed by MongoDB.
type MongoStore struct {
	stories  *mongo.Collection
	users    *mongo.Collection
	comments *mongo.Collection
	backoff  database.Backoff
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		stories:  db.Collection(models.CollectionStories),
		users:    db.Collection(models.CollectionUsers),
		comments: db.Collection(models.CollectionComments),
		backoff:  database.DefaultBackoff,
	}
}

func (m *MongoStore) Insert(ctx context.Context, s *models.Story) error {
	if s.Likes == nil {
		s.Likes = []primitive.ObjectID{}
	}
	if s.Comments == nil {
		s.Comments = []primitive.ObjectID{}
	}
	_, err := m.stories.InsertOne(ctx, s)
	return database.Translate(err)
}

func (m *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.Story, error) {
	var s models.Story
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		return m.stories.FindOne(ctx, filter).Decode(&s)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MongoStore) FindBySlug(ctx context.Context, slug string) (*models.Story, error) {
	return m.findOne(ctx, bson.M{"slug": slug})
}

func (m *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Story, error) {
	var stories []models.Story
	if len(ids) == 0 {
		return stories, nil
	}
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		cur, err := m.stories.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return err
		}
		return cur.All(ctx, &stories)
	})
	return stories, err
}

func (m *MongoStore) SlugsLike(ctx context.Context, base string, exclude primitive.ObjectID) ([]string, error) {
	filter := bson.M{"slug": primitive.Regex{Pattern: slug.Pattern(base)}}
	if !exclude.IsZero() {
		filter["_id"] = bson.M{"$ne": exclude}
	}
	var rows []struct {
		Slug string `bson:"slug"`
	}
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		cur, err := m.stories.Find(ctx, filter, options.Find().SetProjection(bson.M{"slug": 1}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Slug
	}
	return out, nil
}

func (m *MongoStore) UpdateContent(ctx context.Context, s *models.Story) error {
	res, err := m.stories.UpdateOne(ctx, bson.M{"_id": s.ID}, bson.M{"$set": bson.M{
		"title":          s.Title,
		"slug":           s.Slug,
		"content":        s.Content,
		"readtime":       s.Readtime,
		"privacy":        s.Privacy,
		"image":          s.Image,
		"mediaType":      s.MediaType,
		"mediaId":        s.MediaID,
		"videoThumbnail": s.VideoThumbnail,
		"videoDuration":  s.VideoDuration,
		"updatedAt":      s.UpdatedAt,
	}})
	if err != nil {
		return database.Translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*models.Story, error) {
	var s models.Story
	err := m.stories.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		database.ToggleMembership("likes", "likeCount", userID),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MongoStore) List(ctx context.Context, q Query) ([]models.Story, int64, error) {
	filter := ListFilter(q.Viewer)
	if q.Search != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
	}
	if !q.Author.IsZero() {
		filter["author"] = q.Author
	}

	var (
		total   int64
		stories []models.Story
	)
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		var err error
		if total, err = m.stories.CountDocuments(ctx, filter); err != nil {
			return err
		}
		opts := options.Find().SetSort(sortSpec(q.Sort)).SetSkip(q.Skip)
		if q.Limit > 0 {
			opts.SetLimit(q.Limit)
		}
		cur, err := m.stories.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &stories)
	})
	if err != nil {
		return nil, 0, err
	}
	return stories, total, nil
}

func (m *MongoStore) ListByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Story, error) {
	stories, _, err := m.List(ctx, Query{Viewer: models.Viewer{ID: author, Role: models.RoleAdmin}, Author: author, Sort: SortNewest})
	return stories, err
}

func (m *MongoStore) DeleteComments(ctx context.Context, storyID primitive.ObjectID) (int64, error) {
	var n int64
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		res, err := m.comments.DeleteMany(ctx, bson.M{"story": storyID})
		if err != nil {
			return err
		}
		n = res.DeletedCount
		return nil
	})
	return n, err
}

func (m *MongoStore) PullFromReadLists(ctx context.Context, storyID primitive.ObjectID) (int64, error) {
	var n int64
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		res, err := m.users.UpdateMany(ctx,
			bson.M{"readList": storyID},
			database.PullMembership("readList", "readListLength", storyID),
		)
		if err != nil {
			return err
		}
		n = res.ModifiedCount
		return nil
	})
	return n, err
}

// Delete is a no-op for a story that is already gone.
func (m *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		_, err := m.stories.DeleteOne(ctx, bson.M{"_id": id})
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

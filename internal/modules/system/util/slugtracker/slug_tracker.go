package slugtracker

import (
	"context"
	"errors"
	"time"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TypeStory is the tracker type for story slugs.
const TypeStory = "story"

// Service provides slug tracking operations.
type Service struct{ coll *mongo.Collection }

func NewService(db *mongo.Database) *Service {
	return &Service{coll: db.Collection(models.CollectionSlugTrackers)}
}

// Track records that oldSlug for the given content type now points to targetID.
func (s *Service) Track(ctx context.Context, oldSlug, refType string, targetID primitive.ObjectID) error {
	now := time.Now()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"slug": oldSlug, "type": refType},
		bson.M{
			"$set":         bson.M{"targetId": targetID, "updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return database.Translate(err)
}

// FindBySlug returns the current target for the given old slug, or a zero id.
func (s *Service) FindBySlug(ctx context.Context, slug, refType string) (primitive.ObjectID, error) {
	var tracker models.SlugTracker
	err := s.coll.FindOne(ctx, bson.M{"slug": slug, "type": refType}).Decode(&tracker)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, nil
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return tracker.TargetID, nil
}

// DeleteByTargetID removes all tracker entries for a given content item.
func (s *Service) DeleteByTargetID(ctx context.Context, targetID primitive.ObjectID) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"targetId": targetID})
	return err
}

package user

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by writes addressed to a missing account.
var ErrNotFound = errors.New("user not found")

// MongoStore is the Store backed by MongoDB.
type MongoStore struct {
	users   *mongo.Collection
	backoff database.Backoff
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{users: db.Collection(models.CollectionUsers), backoff: database.DefaultBackoff}
}

func (m *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		return m.users.FindOne(ctx, filter).Decode(&u)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (m *MongoStore) FindByVerificationToken(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, nil
	}
	return m.findOne(ctx, bson.M{"emailVerificationToken": hash})
}

func (m *MongoStore) FindByResetToken(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, nil
	}
	return m.findOne(ctx, bson.M{"resetPasswordToken": hash})
}

func (m *MongoStore) Insert(ctx context.Context, u *models.User) error {
	if u.ReadList == nil {
		u.ReadList = []primitive.ObjectID{}
	}
	_, err := m.users.InsertOne(ctx, u)
	return database.Translate(err)
}

func (m *MongoStore) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	if set, ok := update["$set"].(bson.M); ok {
		set["updatedAt"] = time.Now()
	} else {
		update["$set"] = bson.M{"updatedAt": time.Now()}
	}
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return database.Translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, username, photo, photoID string) error {
	return m.update(ctx, id, bson.M{"$set": bson.M{"username": username, "photo": photo, "photoId": photoID}})
}

func (m *MongoStore) UpdateAccount(ctx context.Context, id primitive.ObjectID, username, email string, role models.Role) error {
	return m.update(ctx, id, bson.M{"$set": bson.M{
		"username": username,
		"email":    strings.ToLower(strings.TrimSpace(email)),
		"role":     role,
	}})
}

func (m *MongoStore) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return m.update(ctx, id, bson.M{
		"$set":   bson.M{"password": hash},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
}

func (m *MongoStore) SetVerificationToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	if hash == "" {
		return m.update(ctx, id, bson.M{"$unset": bson.M{"emailVerificationToken": "", "emailVerificationExpire": ""}})
	}
	return m.update(ctx, id, bson.M{"$set": bson.M{"emailVerificationToken": hash, "emailVerificationExpire": expire}})
}

func (m *MongoStore) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	return m.update(ctx, id, bson.M{
		"$set":   bson.M{"isEmailVerified": true},
		"$unset": bson.M{"emailVerificationToken": "", "emailVerificationExpire": ""},
	})
}

func (m *MongoStore) SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error {
	if hash == "" {
		return m.update(ctx, id, bson.M{"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""}})
	}
	return m.update(ctx, id, bson.M{"$set": bson.M{"resetPasswordToken": hash, "resetPasswordExpire": expire}})
}

func (m *MongoStore) ToggleReadList(ctx context.Context, id, storyID primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := m.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		database.ToggleMembership("readList", "readListLength", storyID),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *MongoStore) List(ctx context.Context, search string, skip, limit int64) ([]models.User, int64, error) {
	filter := bson.M{}
	if search = strings.TrimSpace(search); search != "" {
		filter["username"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}
	var (
		total int64
		users []models.User
	)
	err := database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		var err error
		if total, err = m.users.CountDocuments(ctx, filter); err != nil {
			return err
		}
		opts := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip(skip).
			SetProjection(bson.M{"password": 0})
		if limit > 0 {
			opts.SetLimit(limit)
		}
		cur, err := m.users.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &users)
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (m *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return database.WithRetry(ctx, m.backoff, func(ctx context.Context) error {
		_, err := m.users.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

var _ Store = (*MongoStore)(nil)

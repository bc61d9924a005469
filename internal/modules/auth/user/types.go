package user

import (
	"context"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const minPasswordLen = 6

// Store persists user accounts. Find methods return (nil, nil) when nothing matches.
type Store interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, hash string) (*models.User, error)
	FindByResetToken(ctx context.Context, hash string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, username, photo, photoID string) error
	UpdateAccount(ctx context.Context, id primitive.ObjectID, username, email string, role models.Role) error
	// SetPassword stores a new hash and clears any pending reset token.
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	// SetVerificationToken stores a token hash; an empty hash clears it.
	SetVerificationToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error
	// MarkVerified flags the email as verified and clears the token.
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	// SetResetToken stores a reset token hash; an empty hash clears it.
	SetResetToken(ctx context.Context, id primitive.ObjectID, hash string, expire time.Time) error
	// ToggleReadList atomically flips membership of storyID in the read list.
	ToggleReadList(ctx context.Context, id, storyID primitive.ObjectID) (*models.User, error)
	List(ctx context.Context, search string, skip, limit int64) ([]models.User, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// StoryReader resolves stories on behalf of a viewer.
type StoryReader interface {
	Readable(ctx context.Context, viewer models.Viewer, slug string) (*models.Story, error)
	ReadableByIDs(ctx context.Context, viewer models.Viewer, ids []primitive.ObjectID) ([]models.Story, error)
}

// ChangePasswordDTO is the body of PUT /user/changePassword.
type ChangePasswordDTO struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// EditProfileDTO is the form of POST /user/editProfile.
type EditProfileDTO struct {
	Username string `form:"username" json:"username"`
}

type userResponse struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Photo           string    `json:"photo"`
	Role            string    `json:"role"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	ReadList        []string  `json:"readList"`
	ReadListLength  int       `json:"readListLength"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ToResponse is the JSON shape of an account.
func ToResponse(u *models.User) interface{} {
	ids := make([]string, len(u.ReadList))
	for i, id := range u.ReadList {
		ids[i] = id.Hex()
	}
	return userResponse{
		ID:              u.ID.Hex(),
		Username:        u.Username,
		Email:           u.Email,
		Photo:           u.Photo,
		Role:            string(u.Role),
		IsEmailVerified: u.IsEmailVerified,
		ReadList:        ids,
		ReadListLength:  u.ReadListLength,
		CreatedAt:       u.CreatedAt,
	}
}

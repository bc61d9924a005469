package admin

import (
	"context"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/content/story"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultPageSize = 10
	minPasswordLen  = 6
	recentWindow    = 30 * 24 * time.Hour
)

// UserStore is the part of the account store the console needs.
type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	UpdateAccount(ctx context.Context, id primitive.ObjectID, username, email string, role models.Role) error
	List(ctx context.Context, search string, skip, limit int64) ([]models.User, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Stories is the story service as used by the console.
type Stories interface {
	AdminList(ctx context.Context, viewer models.Viewer, in story.ListInput) ([]story.View, response.Pagination, error)
	Get(ctx context.Context, id primitive.ObjectID) (*story.View, error)
	DeleteByID(ctx context.Context, viewer models.Viewer, id primitive.ObjectID) error
	DeleteByAuthor(ctx context.Context, viewer models.Viewer, author primitive.ObjectID) (int, error)
	EditPage(ctx context.Context, viewer models.Viewer, slug string) (*models.Story, error)
	Update(ctx context.Context, viewer models.Viewer, slug string, in story.UpdateInput, up *media.Upload) (*models.Story, error)
}

// Comments is the comment service as used by the console.
type Comments interface {
	DeleteByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error)
	CountByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Store holds the console's own queries.
type Store interface {
	// CountUsers counts accounts with role (any when empty) created at or after since.
	CountUsers(ctx context.Context, role models.Role, since time.Time) (int64, error)
	// CountStories counts stories by author (any when zero) created at or after since.
	CountStories(ctx context.Context, author primitive.ObjectID, since time.Time) (int64, error)
	// PullLikes removes a user's likes from every story.
	PullLikes(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// Stats summarises the platform for the dashboard.
type Stats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalAdmins   int64 `json:"totalAdmins"`
	TotalStories  int64 `json:"totalStories"`
	TotalComments int64 `json:"totalComments"`
	RecentUsers   int64 `json:"recentUsers"`
	RecentStories int64 `json:"recentStories"`
}

type ListInput struct {
	Search string
	Page   int
	Size   int
}

// UserDetail is an account with its activity counts.
type UserDetail struct {
	*models.User
	StoriesCount  int64
	CommentsCount int64
}

type CreateUserDTO struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type UpdateUserDTO struct {
	Username *string      `json:"username"`
	Email    *string      `json:"email"`
	Role     *models.Role `json:"role"`
}

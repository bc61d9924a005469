package announcement

import (
	"context"
	"errors"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxTitleLen     = 200
	maxContentLen   = 2000
	defaultPageSize = 10
)

// Status filters the admin listing.
type Status string

const (
	StatusAny      Status = ""
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var ErrNotFound = errors.New("announcement not found")

// Store persists announcements.
type Store interface {
	Insert(ctx context.Context, a *models.Announcement) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error)
	Update(ctx context.Context, a *models.Announcement) error
	// Delete reports whether a document was removed.
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	// Active returns active announcements expiring on or after since, or never,
	// newest first. The exact cutoff is applied by the caller.
	Active(ctx context.Context, since time.Time) ([]models.Announcement, error)
	Search(ctx context.Context, q Query) ([]models.Announcement, int64, error)
	Authors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

// Query is an admin listing request.
type Query struct {
	Search string
	Status Status
	Skip   int64
	Limit  int64
}

type CreateDTO struct {
	Title       string                        `json:"title"`
	Content     string                        `json:"content"`
	Visibility  models.AnnouncementVisibility `json:"visibility"`
	ExpiresAt   string                        `json:"expiresAt"`
	ExpiresTime string                        `json:"expiresTime"`
}

// UpdateDTO changes only the fields that are present.
type UpdateDTO struct {
	Title       *string                        `json:"title"`
	Content     *string                        `json:"content"`
	Visibility  *models.AnnouncementVisibility `json:"visibility"`
	IsActive    *bool                          `json:"isActive"`
	ExpiresAt   *string                        `json:"expiresAt"`
	ExpiresTime *string                        `json:"expiresTime"`
}

type ListInput struct {
	Search string
	Status Status
	Page   int
	Size   int
}

// View is an announcement with its author resolved.
type View struct {
	models.Announcement
	Author *models.UserSummary
}

type announcementResponse struct {
	ID          string                        `json:"id"`
	Title       string                        `json:"title"`
	Content     string                        `json:"content"`
	IsActive    bool                          `json:"isActive"`
	Visibility  models.AnnouncementVisibility `json:"visibility"`
	ExpiresAt   *time.Time                    `json:"expiresAt"`
	ExpiresTime string                        `json:"expiresTime"`
	IsExpired   bool                          `json:"isExpired"`
	Author      *models.UserSummary           `json:"author"`
	CreatedAt   time.Time                     `json:"createdAt"`
	UpdatedAt   time.Time                     `json:"updatedAt"`
}

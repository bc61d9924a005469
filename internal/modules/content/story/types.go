package story

import (
	"context"
	"errors"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	minTitleLen   = 4
	minContentLen = 10
	maxPrice      = 10000

	// DefaultListSize is the page size of the public story list.
	DefaultListSize = 6

	maxSlugAttempts = 5
)

// ErrNotFound is returned by Store writes addressed to a missing story.
var ErrNotFound = errors.New("story not found")

// Sort selects the ordering of a story listing.
type Sort int

const (
	// SortRanking orders by likes, then comments, then recency.
	SortRanking Sort = iota
	SortNewest
)

// Query describes a story listing.
type Query struct {
	Viewer models.Viewer
	Search string
	Author primitive.ObjectID
	Sort   Sort
	Skip   int64
	Limit  int64
}

// Store persists stories. Find methods return (nil, nil) when nothing matches.
type Store interface {
	Insert(ctx context.Context, s *models.Story) error
	FindBySlug(ctx context.Context, slug string) (*models.Story, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Story, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Story, error)
	// SlugsLike returns slugs equal to base or base-N, ignoring the exclude story.
	SlugsLike(ctx context.Context, base string, exclude primitive.ObjectID) ([]string, error)
	// UpdateContent writes the mutable fields of s.
	UpdateContent(ctx context.Context, s *models.Story) error
	// ToggleLike atomically flips membership of userID in the story's likes.
	ToggleLike(ctx context.Context, id, userID primitive.ObjectID) (*models.Story, error)
	List(ctx context.Context, q Query) ([]models.Story, int64, error)
	ListByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Story, error)
	DeleteComments(ctx context.Context, storyID primitive.ObjectID) (int64, error)
	PullFromReadLists(ctx context.Context, storyID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Authors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

// SlugHistory remembers slugs a story used before a title edit.
type SlugHistory interface {
	Track(ctx context.Context, oldSlug, refType string, targetID primitive.ObjectID) error
	FindBySlug(ctx context.Context, slug, refType string) (primitive.ObjectID, error)
	DeleteByTargetID(ctx context.Context, targetID primitive.ObjectID) error
}

// Options configures a Service.
type Options struct {
	DefaultImage  string
	UploadTimeout time.Duration
}

// CreateInput is the payload of a new story.
type CreateInput struct {
	Title   string         `form:"title"   json:"title"`
	Content string         `form:"content" json:"content"`
	Privacy models.Privacy `form:"privacy" json:"privacy"`
	IsPaid  bool           `form:"isPaid"  json:"isPaid"`
	Price   float64        `form:"price"   json:"price"`
}

// UpdateInput carries the editable fields; nil leaves a field unchanged.
type UpdateInput struct {
	Title   *string         `form:"title"   json:"title"`
	Content *string         `form:"content" json:"content"`
	Privacy *models.Privacy `form:"privacy" json:"privacy"`
}

// ListInput is the public listing request.
type ListInput struct {
	Search string
	Page   int
	Size   int
}

// View is a story prepared for a particular viewer.
type View struct {
	Story       *models.Story
	Author      *models.UserSummary
	Likers      []models.UserSummary
	LikeStatus  bool
	ContentHTML string
}

type storyResponse struct {
	ID             string           `json:"id"`
	Slug           string           `json:"slug"`
	Title          string           `json:"title"`
	Content        string           `json:"content"`
	ContentHTML    string           `json:"contentHtml,omitempty"`
	Image          string           `json:"image"`
	MediaType      models.MediaType `json:"mediaType"`
	VideoThumbnail *string          `json:"videoThumbnail"`
	VideoDuration  *float64         `json:"videoDuration"`
	Readtime       int              `json:"readtime"`
	Author         interface{}      `json:"author"`
	Likes          interface{}      `json:"likes"`
	LikeCount      int              `json:"likeCount"`
	CommentCount   int              `json:"commentCount"`
	LikeStatus     bool             `json:"likeStatus"`
	Privacy        models.Privacy   `json:"privacy"`
	IsPaid         bool             `json:"isPaid"`
	Price          float64          `json:"price"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// ToResponse is the JSON shape of a story.
func ToResponse(v *View) interface{} { return toResponse(v) }

func toResponse(v *View) storyResponse {
	s := v.Story
	r := storyResponse{
		ID:             s.ID.Hex(),
		Slug:           s.Slug,
		Title:          s.Title,
		Content:        s.Content,
		ContentHTML:    v.ContentHTML,
		Image:          s.Image,
		MediaType:      s.MediaType,
		VideoThumbnail: s.VideoThumbnail,
		VideoDuration:  s.VideoDuration,
		Readtime:       s.Readtime,
		Author:         s.Author.Hex(),
		Likes:          likeIDs(s.Likes),
		LikeCount:      s.LikeCount,
		CommentCount:   s.CommentCount,
		LikeStatus:     v.LikeStatus,
		Privacy:        s.Privacy,
		IsPaid:         s.IsPaid,
		Price:          s.Price,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if v.Author != nil {
		r.Author = v.Author
	}
	if v.Likers != nil {
		r.Likes = v.Likers
	}
	return r
}

func likeIDs(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

package comment

import (
	"context"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxContentLen = 2000

// Store persists comments and their references on stories.
type Store interface {
	Insert(ctx context.Context, c *models.Comment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	// ListByStory returns the comments of a story, newest first.
	ListByStory(ctx context.Context, storyID primitive.ObjectID) ([]models.Comment, error)
	ListByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Comment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error)
	CountByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error)
	Count(ctx context.Context) (int64, error)
	// Attach adds a comment to the story's comments and recomputes commentCount.
	Attach(ctx context.Context, storyID, commentID primitive.ObjectID) error
	// Detach removes comments from the story and recomputes commentCount.
	Detach(ctx context.Context, storyID primitive.ObjectID, commentIDs ...primitive.ObjectID) error
	Authors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

// StoryReader resolves a story on behalf of a viewer.
type StoryReader interface {
	Readable(ctx context.Context, viewer models.Viewer, slug string) (*models.Story, error)
}

type AddCommentDTO struct {
	Content string `json:"content"`
}

// View is a comment with its author resolved.
type View struct {
	models.Comment
	Author *models.UserSummary
}

type commentResponse struct {
	ID        string              `json:"id"`
	Story     string              `json:"story"`
	Author    *models.UserSummary `json:"author"`
	Content   string              `json:"content"`
	CreatedAt time.Time           `json:"createdAt"`
}

func toResponse(v *View) commentResponse {
	author := v.Author
	if author == nil {
		author = &models.UserSummary{ID: v.Comment.Author}
	}
	return commentResponse{
		ID:        v.ID.Hex(),
		Story:     v.Story.Hex(),
		Author:    author,
		Content:   v.Content,
		CreatedAt: v.CreatedAt,
	}
}

func toResponses(views []View) []commentResponse {
	out := make([]commentResponse, len(views))
	for i := range views {
		out[i] = toResponse(&views[i])
	}
	return out
}

package user_test

import (
	"context"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStories serves a fixed set of stories keyed by slug.
type fakeStories struct {
	bySlug map[string]*models.Story
}

func (f *fakeStories) Readable(_ context.Context, viewer models.Viewer, slug string) (*models.Story, error) {
	st, ok := f.bySlug[slug]
	if !ok {
		return nil, apperr.NotFound("Story not found")
	}
	if st.Privacy == models.PrivacyPrivate && !viewer.Owns(st.Author) && !viewer.IsAdmin() {
		return nil, apperr.Forbidden("This story is private.")
	}
	return st, nil
}

func (f *fakeStories) ReadableByIDs(ctx context.Context, viewer models.Viewer, ids []primitive.ObjectID) ([]models.Story, error) {
	var out []models.Story
	for _, id := range ids {
		for slug, st := range f.bySlug {
			if st.ID == id {
				if _, err := f.Readable(ctx, viewer, slug); err == nil {
					out = append(out, *st)
				}
			}
		}
	}
	return out, nil
}

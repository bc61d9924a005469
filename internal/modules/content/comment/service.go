package comment

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Service struct {
	store   Store
	stories StoryReader
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, stories StoryReader, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, stories: stories, log: log.Named("comment"), now: time.Now}
}

// Add posts a comment on a story the viewer can read.
func (s *Service) Add(ctx context.Context, viewer models.Viewer, slug, content string) (*View, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperr.Unauthenticated("Please sign in first.")
	}
	content = trim(content)
	if content == "" {
		return nil, apperr.Validation("Please provide a comment")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return nil, apperr.Validation("Comments can be at most 2000 characters")
	}
	st, err := s.stories.Readable(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}

	c := &models.Comment{Story: st.ID, Author: viewer.ID, Content: content}
	c.Touch(s.now())
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.store.Attach(ctx, st.ID, c.ID); err != nil {
		if delErr := s.store.Delete(ctx, c.ID); delErr != nil {
			s.log.Error("orphaned comment", zap.String("comment", c.ID.Hex()), zap.Error(delErr))
		}
		return nil, apperr.Internal(err).WithRetry()
	}

	authors, err := s.store.Authors(ctx, []primitive.ObjectID{viewer.ID})
	if err != nil {
		s.log.Warn("resolve comment author", zap.Error(err))
	}
	return view(c, authors), nil
}

// List returns the comments of a readable story, newest first.
func (s *Service) List(ctx context.Context, viewer models.Viewer, slug string) ([]View, error) {
	st, err := s.stories.Readable(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListByStory(ctx, st.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ids := make([]primitive.ObjectID, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.Author)
	}
	authors, err := s.store.Authors(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]View, len(comments))
	for i := range comments {
		out[i] = *view(&comments[i], authors)
	}
	return out, nil
}

// Delete removes a comment. Only its author or an admin may do so.
func (s *Service) Delete(ctx context.Context, viewer models.Viewer, rawID string) error {
	if !viewer.IsAuthenticated() {
		return apperr.Unauthenticated("Please sign in first.")
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return apperr.NotFound("Comment not found")
	}
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if c == nil {
		return apperr.NotFound("Comment not found")
	}
	if !viewer.Owns(c.Author) && !viewer.IsAdmin() {
		return apperr.Forbidden("You can only delete your own comments")
	}
	if err := s.store.Detach(ctx, c.Story, c.ID); err != nil {
		return apperr.StepFailed("story", err)
	}
	if err := s.store.Delete(ctx, c.ID); err != nil {
		return apperr.StepFailed("comment", err)
	}
	return nil
}

// DeleteByAuthor removes every comment written by author and unlinks them
// from their stories.
func (s *Service) DeleteByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error) {
	comments, err := s.store.ListByAuthor(ctx, author)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	byStory := map[primitive.ObjectID][]primitive.ObjectID{}
	for _, c := range comments {
		byStory[c.Story] = append(byStory[c.Story], c.ID)
	}
	for storyID, ids := range byStory {
		if err := s.store.Detach(ctx, storyID, ids...); err != nil {
			return 0, apperr.StepFailed("stories", err)
		}
	}
	n, err := s.store.DeleteByAuthor(ctx, author)
	if err != nil {
		return 0, apperr.StepFailed("comments", err)
	}
	return n, nil
}

func (s *Service) CountByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error) {
	return s.store.CountByAuthor(ctx, author)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

func view(c *models.Comment, authors map[primitive.ObjectID]models.UserSummary) *View {
	v := &View{Comment: *c}
	if a, ok := authors[c.Author]; ok {
		v.Author = &a
	}
	return v
}

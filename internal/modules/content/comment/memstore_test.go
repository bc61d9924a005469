package comment

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memStore struct {
	mu        sync.Mutex
	comments  map[primitive.ObjectID]models.Comment
	stories   map[string]*models.Story
	users     map[primitive.ObjectID]models.UserSummary
	attachErr error
}

func newMemStore() *memStore {
	return &memStore{
		comments: map[primitive.ObjectID]models.Comment{},
		stories:  map[string]*models.Story{},
		users:    map[primitive.ObjectID]models.UserSummary{},
	}
}

func (m *memStore) Insert(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.ID] = *c
	return nil
}

func (m *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.comments[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) filter(match func(models.Comment) bool) []models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Comment
	for _, c := range m.comments {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListByStory(_ context.Context, storyID primitive.ObjectID) ([]models.Comment, error) {
	return m.filter(func(c models.Comment) bool { return c.Story == storyID }), nil
}

func (m *memStore) ListByAuthor(_ context.Context, author primitive.ObjectID) ([]models.Comment, error) {
	return m.filter(func(c models.Comment) bool { return c.Author == author }), nil
}

func (m *memStore) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, id)
	return nil
}

func (m *memStore) DeleteByAuthor(_ context.Context, author primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.comments {
		if c.Author == author {
			delete(m.comments, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountByAuthor(ctx context.Context, author primitive.ObjectID) (int64, error) {
	list, _ := m.ListByAuthor(ctx, author)
	return int64(len(list)), nil
}

func (m *memStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.comments)), nil
}

func (m *memStore) story(id primitive.ObjectID) *models.Story {
	for _, s := range m.stories {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *memStore) Attach(_ context.Context, storyID, commentID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attachErr != nil {
		return m.attachErr
	}
	s := m.story(storyID)
	if s == nil {
		return nil
	}
	if !models.ContainsID(s.Comments, commentID) {
		s.Comments = append(s.Comments, commentID)
	}
	s.CommentCount = len(s.Comments)
	return nil
}

func (m *memStore) Detach(_ context.Context, storyID primitive.ObjectID, commentIDs ...primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.story(storyID)
	if s == nil {
		return nil
	}
	kept := s.Comments[:0]
	for _, id := range s.Comments {
		if !models.ContainsID(commentIDs, id) {
			kept = append(kept, id)
		}
	}
	s.Comments = kept
	s.CommentCount = len(kept)
	return nil
}

func (m *memStore) Authors(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]models.UserSummary{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// Readable lets memStore double as the StoryReader.
func (m *memStore) Readable(_ context.Context, viewer models.Viewer, slug string) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[slug]
	if !ok {
		return nil, apperr.NotFound("Story not found")
	}
	if s.Privacy == models.PrivacyPrivate && !viewer.Owns(s.Author) && !viewer.IsAdmin() {
		return nil, apperr.Forbidden("This story is private.")
	}
	if s.Privacy == models.PrivacyUser && !viewer.IsAuthenticated() {
		return nil, apperr.Unauthenticated("Please sign in to read this story.")
	}
	c := *s
	return &c, nil
}

func (m *memStore) addUser(name string, role models.Role) models.Viewer {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := primitive.NewObjectID()
	m.users[id] = models.UserSummary{ID: id, Username: name}
	return models.Viewer{ID: id, Role: role}
}

func (m *memStore) addStory(slug string, author primitive.ObjectID, privacy models.Privacy) *models.Story {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &models.Story{Slug: slug, Author: author, Privacy: privacy, Comments: []primitive.ObjectID{}}
	s.ID = primitive.NewObjectID()
	m.stories[slug] = s
	return s
}

func (m *memStore) storySnapshot(slug string) models.Story {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.stories[slug]
	s.Comments = append([]primitive.ObjectID{}, s.Comments...)
	return s
}

var errInjected = errors.New("injected failure")

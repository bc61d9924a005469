package story

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore mirrors MongoStore semantics: a unique slug index, atomic
// membership toggles and idempotent deletes.
type memStore struct {
	mu       sync.Mutex
	stories  map[primitive.ObjectID]*models.Story
	users    map[primitive.ObjectID]*models.User
	comments map[primitive.ObjectID][]primitive.ObjectID

	// failStep makes the named cascade step fail once.
	failStep string
	// dupWrites makes the next N slug writes report a duplicate key.
	dupWrites int
}

func newMemStore() *memStore {
	return &memStore{
		stories:  map[primitive.ObjectID]*models.Story{},
		users:    map[primitive.ObjectID]*models.User{},
		comments: map[primitive.ObjectID][]primitive.ObjectID{},
	}
}

func clone(s *models.Story) *models.Story {
	c := *s
	c.Likes = append([]primitive.ObjectID{}, s.Likes...)
	c.Comments = append([]primitive.ObjectID{}, s.Comments...)
	return &c
}

func (m *memStore) slugTaken(slugStr string, except primitive.ObjectID) bool {
	for id, s := range m.stories {
		if id != except && s.Slug == slugStr {
			return true
		}
	}
	return false
}

func (m *memStore) Insert(_ context.Context, s *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dupWrites > 0 {
		m.dupWrites--
		return fmt.Errorf("%w: injected", database.ErrDuplicateKey)
	}
	if m.slugTaken(s.Slug, primitive.NilObjectID) {
		return fmt.Errorf("%w: slug %s", database.ErrDuplicateKey, s.Slug)
	}
	m.stories[s.ID] = clone(s)
	return nil
}

func (m *memStore) FindBySlug(_ context.Context, slugStr string) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stories {
		if s.Slug == slugStr {
			return clone(s), nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stories[id]; ok {
		return clone(s), nil
	}
	return nil, nil
}

func (m *memStore) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Story
	for _, id := range ids {
		if s, ok := m.stories[id]; ok {
			out = append(out, *clone(s))
		}
	}
	return out, nil
}

func (m *memStore) SlugsLike(_ context.Context, base string, exclude primitive.ObjectID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	re := regexp.MustCompile(slug.Pattern(base))
	var out []string
	for id, s := range m.stories {
		if id != exclude && re.MatchString(s.Slug) {
			out = append(out, s.Slug)
		}
	}
	return out, nil
}

func (m *memStore) UpdateContent(_ context.Context, s *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.stories[s.ID]
	if !ok {
		return ErrNotFound
	}
	if m.dupWrites > 0 {
		m.dupWrites--
		return fmt.Errorf("%w: injected", database.ErrDuplicateKey)
	}
	if m.slugTaken(s.Slug, s.ID) {
		return fmt.Errorf("%w: slug %s", database.ErrDuplicateKey, s.Slug)
	}
	cur.Title, cur.Slug, cur.Content, cur.Readtime = s.Title, s.Slug, s.Content, s.Readtime
	cur.Privacy, cur.Image, cur.MediaType, cur.MediaID = s.Privacy, s.Image, s.MediaType, s.MediaID
	cur.VideoThumbnail, cur.VideoDuration, cur.UpdatedAt = s.VideoThumbnail, s.VideoDuration, s.UpdatedAt
	return nil
}

func (m *memStore) ToggleLike(_ context.Context, id, userID primitive.ObjectID) (*models.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stories[id]
	if !ok {
		return nil, nil
	}
	if models.ContainsID(s.Likes, userID) {
		kept := s.Likes[:0]
		for _, l := range s.Likes {
			if l != userID {
				kept = append(kept, l)
			}
		}
		s.Likes = kept
	} else {
		s.Likes = append(s.Likes, userID)
	}
	s.LikeCount = len(s.Likes)
	return clone(s), nil
}

func (m *memStore) List(_ context.Context, q Query) ([]models.Story, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Story
	for _, s := range m.stories {
		if CanRead(s, q.Viewer) != nil {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(s.Title), strings.ToLower(q.Search)) {
			continue
		}
		if !q.Author.IsZero() && s.Author != q.Author {
			continue
		}
		matched = append(matched, *clone(s))
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if q.Sort == SortRanking {
			if a.LikeCount != b.LikeCount {
				return a.LikeCount > b.LikeCount
			}
			if a.CommentCount != b.CommentCount {
				return a.CommentCount > b.CommentCount
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	total := int64(len(matched))
	start := q.Skip
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return matched[start:end], total, nil
}

func (m *memStore) ListByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Story, error) {
	stories, _, err := m.List(ctx, Query{Viewer: models.Viewer{ID: author, Role: models.RoleAdmin}, Author: author, Sort: SortNewest})
	return stories, err
}

func (m *memStore) fail(step string) error {
	if m.failStep == step {
		m.failStep = ""
		return errors.New("injected " + step + " failure")
	}
	return nil
}

func (m *memStore) DeleteComments(_ context.Context, storyID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("comments"); err != nil {
		return 0, err
	}
	n := int64(len(m.comments[storyID]))
	delete(m.comments, storyID)
	return n, nil
}

func (m *memStore) PullFromReadLists(_ context.Context, storyID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("read_lists"); err != nil {
		return 0, err
	}
	var n int64
	for _, u := range m.users {
		if !models.ContainsID(u.ReadList, storyID) {
			continue
		}
		kept := u.ReadList[:0]
		for _, id := range u.ReadList {
			if id != storyID {
				kept = append(kept, id)
			}
		}
		u.ReadList = kept
		u.ReadListLength = len(kept)
		n++
	}
	return n, nil
}

func (m *memStore) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("story"); err != nil {
		return err
	}
	delete(m.stories, id)
	return nil
}

func (m *memStore) Authors(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]models.UserSummary{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = models.UserSummary{ID: u.ID, Username: u.Username, Photo: u.Photo}
		}
	}
	return out, nil
}

func (m *memStore) addUser(name string, role models.Role) models.Viewer {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{Username: name, Role: role}
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = u
	return u.Viewer()
}

func (m *memStore) addComments(storyID primitive.ObjectID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		id := primitive.NewObjectID()
		m.comments[storyID] = append(m.comments[storyID], id)
		s := m.stories[storyID]
		s.Comments = append(s.Comments, id)
		s.CommentCount = len(s.Comments)
	}
}

func (m *memStore) bookmark(userID, storyID primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.ReadList = append(u.ReadList, storyID)
	u.ReadListLength = len(u.ReadList)
}

func (m *memStore) user(id primitive.ObjectID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

type memHistory struct {
	mu      sync.Mutex
	entries map[string]primitive.ObjectID
}

func newMemHistory() *memHistory {
	return &memHistory{entries: map[string]primitive.ObjectID{}}
}

func (h *memHistory) Track(_ context.Context, oldSlug, refType string, targetID primitive.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[refType+"/"+oldSlug] = targetID
	return nil
}

func (h *memHistory) FindBySlug(_ context.Context, slugStr, refType string) (primitive.ObjectID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[refType+"/"+slugStr], nil
}

func (h *memHistory) DeleteByTargetID(_ context.Context, targetID primitive.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k, v := range h.entries {
		if v == targetID {
			delete(h.entries, k)
		}
	}
	return nil
}

type fakeMedia struct {
	mu        sync.Mutex
	uploads   int
	deleted   []string
	thumbErr  error
	uploadErr error
}

func (f *fakeMedia) Upload(_ context.Context, folder string, up *media.Upload) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	kind, _ := media.Classify(up.ContentType)
	id := fmt.Sprintf("%s/%s_%d", folder, up.Prefix, f.uploads)
	return &media.Asset{URL: "https://cdn.test/" + id, ID: id, Type: kind}, nil
}

func (f *fakeMedia) Thumbnail(_ context.Context, a *media.Asset) (string, error) {
	if f.thumbErr != nil {
		return "", f.thumbErr
	}
	return a.URL + ".jpg", nil
}

func (f *fakeMedia) Duration(context.Context, *media.Asset) (float64, error) { return 0, nil }

func (f *fakeMedia) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

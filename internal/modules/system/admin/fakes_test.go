package admin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/auth/user/usertest"
	"github.com/himlearning/storyhub/internal/modules/content/story"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInjected = errors.New("injected failure")

// platform is one in-memory world shared by the store, story and comment fakes.
type platform struct {
	mu       sync.Mutex
	users    *usertest.Store
	stories  map[primitive.ObjectID]*models.Story
	comments map[primitive.ObjectID]primitive.ObjectID // comment -> author
	calls    []string

	failStories  bool
	failComments bool
	failLikes    bool
}

func newPlatform() *platform {
	return &platform{
		users:    usertest.NewStore(),
		stories:  map[primitive.ObjectID]*models.Story{},
		comments: map[primitive.ObjectID]primitive.ObjectID{},
	}
}

func (p *platform) CountUsers(ctx context.Context, role models.Role, since time.Time) (int64, error) {
	all, _, err := p.users.List(ctx, "", 0, 0)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, u := range all {
		if (role == "" || u.Role == role) && !u.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (p *platform) CountStories(_ context.Context, author primitive.ObjectID, since time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int64
	for _, s := range p.stories {
		if (author.IsZero() || s.Author == author) && !s.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (p *platform) PullLikes(_ context.Context, userID primitive.ObjectID) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "likes")
	if p.failLikes {
		p.failLikes = false
		return 0, errInjected
	}
	var n int64
	for _, s := range p.stories {
		if !models.ContainsID(s.Likes, userID) {
			continue
		}
		kept := s.Likes[:0]
		for _, id := range s.Likes {
			if id != userID {
				kept = append(kept, id)
			}
		}
		s.Likes = kept
		s.LikeCount = len(kept)
		n++
	}
	return n, nil
}

// stories

func (p *platform) AdminList(_ context.Context, viewer models.Viewer, _ story.ListInput) ([]story.View, response.Pagination, error) {
	if !viewer.IsAdmin() {
		return nil, response.Pagination{}, apperr.Forbidden("Administrator access required.")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []story.View
	for _, s := range p.stories {
		c := *s
		out = append(out, story.View{Story: &c})
	}
	return out, response.Pagination{Total: int64(len(out)), CurrentPage: 1}, nil
}

func (p *platform) Get(_ context.Context, id primitive.ObjectID) (*story.View, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stories[id]
	if !ok {
		return nil, apperr.NotFound("Story not found")
	}
	c := *s
	return &story.View{Story: &c}, nil
}

func (p *platform) DeleteByID(_ context.Context, _ models.Viewer, id primitive.ObjectID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.stories[id]; !ok {
		return apperr.NotFound("Story not found")
	}
	delete(p.stories, id)
	return nil
}

func (p *platform) DeleteByAuthor(_ context.Context, viewer models.Viewer, author primitive.ObjectID) (int, error) {
	if !viewer.IsAdmin() {
		return 0, apperr.Forbidden("Only an administrator can do that.")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "stories")
	if p.failStories {
		p.failStories = false
		return 0, apperr.StepFailed("comments", errInjected)
	}
	n := 0
	for id, s := range p.stories {
		if s.Author == author {
			delete(p.stories, id)
			n++
		}
	}
	return n, nil
}

func (p *platform) bySlug(slug string) *models.Story {
	for _, s := range p.stories {
		if s.Slug == slug {
			return s
		}
	}
	return nil
}

func (p *platform) EditPage(_ context.Context, _ models.Viewer, slug string) (*models.Story, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.bySlug(slug)
	if s == nil {
		return nil, apperr.NotFound("Story not found")
	}
	c := *s
	return &c, nil
}

func (p *platform) Update(_ context.Context, _ models.Viewer, slug string, in story.UpdateInput, _ *media.Upload) (*models.Story, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.bySlug(slug)
	if s == nil {
		return nil, apperr.NotFound("Story not found")
	}
	if in.Title != nil {
		s.Title = *in.Title
	}
	c := *s
	return &c, nil
}

// comments

func (p *platform) deleteComments(author primitive.ObjectID) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "comments")
	if p.failComments {
		p.failComments = false
		return 0, errInjected
	}
	var n int64
	for id, a := range p.comments {
		if a == author {
			delete(p.comments, id)
			n++
		}
	}
	return n, nil
}

type commentFake struct{ p *platform }

func (c commentFake) DeleteByAuthor(_ context.Context, author primitive.ObjectID) (int64, error) {
	return c.p.deleteComments(author)
}

func (c commentFake) CountByAuthor(_ context.Context, author primitive.ObjectID) (int64, error) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	var n int64
	for _, a := range c.p.comments {
		if a == author {
			n++
		}
	}
	return n, nil
}

func (c commentFake) Count(context.Context) (int64, error) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	return int64(len(c.p.comments)), nil
}

func (p *platform) addStory(author primitive.ObjectID, slug string, created time.Time, likes ...primitive.ObjectID) *models.Story {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &models.Story{Title: slug, Slug: slug, Author: author, Likes: likes, LikeCount: len(likes)}
	s.Touch(created)
	p.stories[s.ID] = s
	return s
}

func (p *platform) addComment(author primitive.ObjectID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments[primitive.NewObjectID()] = author
}

var (
	_ Store    = (*platform)(nil)
	_ Stories  = (*platform)(nil)
	_ Comments = commentFake{}
)

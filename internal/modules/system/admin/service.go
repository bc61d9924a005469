package admin

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"github.com/himlearning/storyhub/internal/modules/content/story"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/himlearning/storyhub/internal/pkg/pagination"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service backs the administration console.
type Service struct {
	store         Store
	users         UserStore
	stories       Stories
	comments      Comments
	defaultAvatar string
	log           *zap.Logger
	now           func() time.Time
}

func NewService(store Store, users UserStore, stories Stories, comments Comments, defaultAvatar string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:         store,
		users:         users,
		stories:       stories,
		comments:      comments,
		defaultAvatar: defaultAvatar,
		log:           log.Named("admin"),
		now:           time.Now,
	}
}

// Stats counts accounts, stories and comments, plus what was created in
// the last 30 days.
func (s *Service) Stats(ctx context.Context, viewer models.Viewer) (*Stats, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	since := s.now().Add(-recentWindow)
	var st Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalUsers, err = s.store.CountUsers(gctx, "", time.Time{})
		return
	})
	g.Go(func() (err error) {
		st.TotalAdmins, err = s.store.CountUsers(gctx, models.RoleAdmin, time.Time{})
		return
	})
	g.Go(func() (err error) {
		st.TotalStories, err = s.store.CountStories(gctx, primitive.NilObjectID, time.Time{})
		return
	})
	g.Go(func() (err error) {
		st.TotalComments, err = s.comments.Count(gctx)
		return
	})
	g.Go(func() (err error) {
		st.RecentUsers, err = s.store.CountUsers(gctx, "", since)
		return
	})
	g.Go(func() (err error) {
		st.RecentStories, err = s.store.CountStories(gctx, primitive.NilObjectID, since)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}
	return &st, nil
}

// ListUsers pages through accounts, newest first, filtered by username.
func (s *Service) ListUsers(ctx context.Context, viewer models.Viewer, in ListInput) ([]models.User, response.Pagination, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, response.Pagination{}, err
	}
	q := pagination.New(in.Page, in.Size, defaultPageSize)
	users, total, err := s.users.List(ctx, strings.TrimSpace(in.Search), q.Skip(), int64(q.Size))
	if err != nil {
		return nil, response.Pagination{}, apperr.Internal(err)
	}
	return users, q.Meta(total), nil
}

// GetUser returns an account with its story and comment counts.
func (s *Service) GetUser(ctx context.Context, viewer models.Viewer, rawID string) (*UserDetail, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	u, err := s.findUser(ctx, rawID)
	if err != nil {
		return nil, err
	}
	d := &UserDetail{User: u}
	if d.StoriesCount, err = s.store.CountStories(ctx, u.ID, time.Time{}); err != nil {
		return nil, apperr.Internal(err)
	}
	if d.CommentsCount, err = s.comments.CountByAuthor(ctx, u.ID); err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

// CreateUser adds an account with a chosen role. Accounts created here
// skip email verification.
func (s *Service) CreateUser(ctx context.Context, viewer models.Viewer, in CreateUserDTO) (*models.User, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, apperr.Validation("Please provide username, email and password")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperr.Validation("Please provide a valid email")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperr.Validation("Password must be at least 6 characters")
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.Validation("role must be user or admin")
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict("A user with this email already exists")
	}

	hash, err := user.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u := &models.User{
		Username:        username,
		Email:           email,
		Password:        hash,
		Photo:           s.defaultAvatar,
		Role:            role,
		IsEmailVerified: true,
	}
	u.Touch(s.now())
	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return nil, apperr.Conflict("A user with this email already exists")
		}
		return nil, apperr.Internal(err)
	}
	s.log.Info("user created", zap.String("user", u.ID.Hex()), zap.String("role", string(role)))
	return u, nil
}

// UpdateUser changes username, email or role. Omitted fields keep their value.
func (s *Service) UpdateUser(ctx context.Context, viewer models.Viewer, rawID string, in UpdateUserDTO) (*models.User, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	u, err := s.findUser(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return nil, apperr.Validation("Username cannot be empty")
		}
		u.Username = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !emailPattern.MatchString(email) {
			return nil, apperr.Validation("Please provide a valid email")
		}
		if email != u.Email {
			other, err := s.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, apperr.Internal(err)
			}
			if other != nil && other.ID != u.ID {
				return nil, apperr.Conflict("Email is already in use")
			}
		}
		u.Email = email
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Validation("role must be user or admin")
		}
		if u.ID == viewer.ID && *in.Role != models.RoleAdmin {
			return nil, apperr.Validation("You cannot remove your own admin role")
		}
		u.Role = *in.Role
	}
	if err := s.users.UpdateAccount(ctx, u.ID, u.Username, u.Email, u.Role); err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateKey):
			return nil, apperr.Conflict("Email is already in use")
		case errors.Is(err, user.ErrNotFound):
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// DeleteUser removes an account and everything it authored: stories with
// their own cascade, then comments, then likes, then the account. A
// failure stops the sequence with the step name; every step can be
// repeated.
func (s *Service) DeleteUser(ctx context.Context, viewer models.Viewer, rawID string) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	u, err := s.findUser(ctx, rawID)
	if err != nil {
		return err
	}
	if u.ID == viewer.ID {
		return apperr.Validation("You cannot delete your own account")
	}

	stories, err := s.stories.DeleteByAuthor(ctx, viewer, u.ID)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return err
		}
		return apperr.StepFailed("stories", err)
	}
	comments, err := s.comments.DeleteByAuthor(ctx, u.ID)
	if err != nil {
		return apperr.StepFailed("comments", err)
	}
	likes, err := s.store.PullLikes(ctx, u.ID)
	if err != nil {
		return apperr.StepFailed("likes", err)
	}
	if err := s.users.Delete(ctx, u.ID); err != nil && !errors.Is(err, user.ErrNotFound) {
		return apperr.StepFailed("user", err)
	}
	s.log.Info("user deleted",
		zap.String("user", u.ID.Hex()),
		zap.Int("stories", stories),
		zap.Int64("comments", comments),
		zap.Int64("likes", likes),
	)
	return nil
}

// ListStories pages through every story, newest first.
func (s *Service) ListStories(ctx context.Context, viewer models.Viewer, in ListInput) ([]story.View, response.Pagination, error) {
	return s.stories.AdminList(ctx, viewer, story.ListInput{Search: in.Search, Page: in.Page, Size: in.Size})
}

func (s *Service) GetStory(ctx context.Context, viewer models.Viewer, rawID string) (*story.View, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, apperr.NotFound("Story not found")
	}
	return s.stories.Get(ctx, id)
}

func (s *Service) DeleteStory(ctx context.Context, viewer models.Viewer, rawID string) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return apperr.NotFound("Story not found")
	}
	return s.stories.DeleteByID(ctx, viewer, id)
}

func (s *Service) EditStoryPage(ctx context.Context, viewer models.Viewer, slug string) (*models.Story, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	return s.stories.EditPage(ctx, viewer, slug)
}

func (s *Service) UpdateStory(ctx context.Context, viewer models.Viewer, slug string, in story.UpdateInput, up *media.Upload) (*models.Story, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	return s.stories.Update(ctx, viewer, slug, in, up)
}

func (s *Service) findUser(ctx context.Context, rawID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, apperr.NotFound("User not found")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

func requireAdmin(viewer models.Viewer) error {
	if !viewer.IsAuthenticated() {
		return apperr.Unauthenticated("Please sign in first.")
	}
	if !viewer.IsAdmin() {
		return apperr.Forbidden("Administrator access required.")
	}
	return nil
}

package announcement

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/himlearning/storyhub/internal/pkg/pagination"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Service struct {
	store Store
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates the service. Expiry cutoffs are interpreted in loc.
func NewService(store Store, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, loc: loc, log: log.Named("announcement"), now: time.Now}
}

// Public returns the live announcements the viewer may see, newest first.
func (s *Service) Public(ctx context.Context, viewer models.Viewer) ([]View, error) {
	now := s.now().In(s.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	candidates, err := s.store.Active(ctx, startOfDay)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	visible := candidates[:0]
	for _, a := range candidates {
		if !a.LiveAt(now, s.loc) {
			continue
		}
		if a.Visibility == models.AnnouncementUsers && !viewer.IsAuthenticated() {
			continue
		}
		visible = append(visible, a)
	}
	return s.views(ctx, visible)
}

// AdminList pages through every announcement with optional search and status filter.
func (s *Service) AdminList(ctx context.Context, viewer models.Viewer, in ListInput) ([]View, response.Pagination, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, response.Pagination{}, err
	}
	switch in.Status {
	case StatusAny, StatusActive, StatusInactive:
	default:
		return nil, response.Pagination{}, apperr.Validation("status must be active or inactive")
	}
	q := pagination.New(in.Page, in.Size, defaultPageSize)
	items, total, err := s.store.Search(ctx, Query{
		Search: strings.TrimSpace(in.Search),
		Status: in.Status,
		Skip:   q.Skip(),
		Limit:  int64(q.Size),
	})
	if err != nil {
		return nil, response.Pagination{}, apperr.Internal(err)
	}
	views, err := s.views(ctx, items)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return views, q.Meta(total), nil
}

// Create publishes a new announcement authored by the admin viewer.
func (s *Service) Create(ctx context.Context, viewer models.Viewer, dto CreateDTO) (*View, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	a := &models.Announcement{
		Title:       strings.TrimSpace(dto.Title),
		Content:     strings.TrimSpace(dto.Content),
		IsActive:    true,
		Visibility:  dto.Visibility,
		ExpiresTime: strings.TrimSpace(dto.ExpiresTime),
		Author:      viewer.ID,
	}
	if a.Visibility == "" {
		a.Visibility = models.AnnouncementPublic
	}
	if a.ExpiresTime == "" {
		a.ExpiresTime = models.DefaultExpiresTime
	}
	expires, err := s.parseDate(dto.ExpiresAt)
	if err != nil {
		return nil, err
	}
	a.ExpiresAt = expires
	if err := validate(a); err != nil {
		return nil, err
	}

	a.Touch(s.now())
	if err := s.store.Insert(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.view(ctx, a)
}

// Update applies the present fields of dto.
func (s *Service) Update(ctx context.Context, viewer models.Viewer, rawID string, dto UpdateDTO) (*View, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	a, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if dto.Title != nil {
		a.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.Content != nil {
		a.Content = strings.TrimSpace(*dto.Content)
	}
	if dto.Visibility != nil {
		a.Visibility = *dto.Visibility
	}
	if dto.IsActive != nil {
		a.IsActive = *dto.IsActive
	}
	if dto.ExpiresTime != nil {
		a.ExpiresTime = strings.TrimSpace(*dto.ExpiresTime)
		if a.ExpiresTime == "" {
			a.ExpiresTime = models.DefaultExpiresTime
		}
	}
	if dto.ExpiresAt != nil {
		if a.ExpiresAt, err = s.parseDate(*dto.ExpiresAt); err != nil {
			return nil, err
		}
	}
	if err := validate(a); err != nil {
		return nil, err
	}

	a.Touch(s.now())
	if err := s.store.Update(ctx, a); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("Announcement not found")
		}
		return nil, apperr.Internal(err)
	}
	return s.view(ctx, a)
}

func (s *Service) Delete(ctx context.Context, viewer models.Viewer, rawID string) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return apperr.NotFound("Announcement not found")
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if !deleted {
		return apperr.NotFound("Announcement not found")
	}
	return nil
}

// IsExpired reports whether a has passed its cutoff.
func (s *Service) IsExpired(a *models.Announcement) bool {
	end, ok := a.Expiry(s.loc)
	return ok && s.now().After(end)
}

func (s *Service) find(ctx context.Context, rawID string) (*models.Announcement, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, apperr.NotFound("Announcement not found")
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if a == nil {
		return nil, apperr.NotFound("Announcement not found")
	}
	return a, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty clears it.
func (s *Service) parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, s.loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Validation("expiresAt must be a date like 2025-12-31")
	}
	return &t, nil
}

func (s *Service) view(ctx context.Context, a *models.Announcement) (*View, error) {
	views, err := s.views(ctx, []models.Announcement{*a})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) views(ctx context.Context, items []models.Announcement) ([]View, error) {
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.Author)
	}
	authors, err := s.store.Authors(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]View, len(items))
	for i, a := range items {
		out[i] = View{Announcement: a}
		if u, ok := authors[a.Author]; ok {
			out[i].Author = &u
		}
	}
	return out, nil
}

func (s *Service) toResponse(v *View) announcementResponse {
	return announcementResponse{
		ID:          v.ID.Hex(),
		Title:       v.Title,
		Content:     v.Content,
		IsActive:    v.IsActive,
		Visibility:  v.Visibility,
		ExpiresAt:   v.ExpiresAt,
		ExpiresTime: v.ExpiresTime,
		IsExpired:   s.IsExpired(&v.Announcement),
		Author:      v.Author,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func validate(a *models.Announcement) error {
	switch {
	case a.Title == "":
		return apperr.Validation("Please provide announcement title")
	case utf8.RuneCountInString(a.Title) > maxTitleLen:
		return apperr.Validation("Title cannot be more than 200 characters")
	case a.Content == "":
		return apperr.Validation("Please provide announcement content")
	case utf8.RuneCountInString(a.Content) > maxContentLen:
		return apperr.Validation("Content cannot be more than 2000 characters")
	case a.Visibility != models.AnnouncementPublic && a.Visibility != models.AnnouncementUsers:
		return apperr.Validation("visibility must be public or users")
	}
	if _, err := time.Parse("15:04", a.ExpiresTime); err != nil {
		return apperr.Validation("expiresTime must use the HH:MM 24-hour format")
	}
	return nil
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

package story

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/himlearning/storyhub/internal/database"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/processing/markdown"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/modules/system/util/slugtracker"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/himlearning/storyhub/internal/pkg/pagination"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"github.com/himlearning/storyhub/internal/pkg/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service implements the story lifecycle.
type Service struct {
	store   Store
	history SlugHistory
	media   media.Provider
	limits  media.Limits
	opts    Options
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, history SlugHistory, provider media.Provider, limits media.Limits, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 5 * time.Minute
	}
	return &Service{
		store:   store,
		history: history,
		media:   provider,
		limits:  limits,
		opts:    opts,
		log:     log.Named("story"),
		now:     time.Now,
	}
}

// Create validates the input, uploads media and persists a new story under a
// unique slug. Nothing is written when the upload fails.
func (s *Service) Create(ctx context.Context, viewer models.Viewer, in CreateInput, up *media.Upload) (*models.Story, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperr.Unauthenticated("Please sign in first.")
	}
	title := strings.TrimSpace(in.Title)
	if err := validateText(title, in.Content); err != nil {
		return nil, err
	}
	privacy := in.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	if !privacy.Valid() {
		return nil, apperr.Validation("privacy must be one of public, user, private")
	}
	price := 0.0
	if in.IsPaid {
		if in.Price <= 0 || in.Price > maxPrice {
			return nil, apperr.Validation("Price must be a positive number not exceeding 10000")
		}
		price = in.Price
	}

	st := &models.Story{
		Author:    viewer.ID,
		Title:     title,
		Content:   in.Content,
		Image:     s.opts.DefaultImage,
		MediaType: models.MediaImage,
		Readtime:  markdown.ReadTime(in.Content),
		Likes:     []primitive.ObjectID{},
		Comments:  []primitive.ObjectID{},
		Privacy:   privacy,
		IsPaid:    in.IsPaid,
		Price:     price,
	}

	var asset *media.Asset
	if up != nil {
		var err error
		if asset, err = s.upload(ctx, up); err != nil {
			return nil, err
		}
		s.applyMedia(ctx, st, asset)
	}

	st.Touch(s.now())
	err := s.writeWithSlug(ctx, st, func(ctx context.Context) error {
		return s.store.Insert(ctx, st)
	})
	if err != nil {
		if asset != nil {
			s.release(asset.ID)
		}
		return nil, asAppError(err)
	}
	s.log.Info("story created", zap.String("slug", st.Slug), zap.String("author", viewer.ID.Hex()))
	return st, nil
}

// Update applies an edit by the author or an administrator. A title change
// regenerates the slug; the previous slug stays resolvable.
func (s *Service) Update(ctx context.Context, viewer models.Viewer, slugStr string, in UpdateInput, up *media.Upload) (*models.Story, error) {
	st, err := s.editable(ctx, viewer, slugStr)
	if err != nil {
		return nil, err
	}

	title, content := st.Title, st.Content
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		content = *in.Content
	}
	if err := validateText(title, content); err != nil {
		return nil, err
	}
	if in.Privacy != nil && *in.Privacy != "" {
		if !in.Privacy.Valid() {
			return nil, apperr.Validation("privacy must be one of public, user, private")
		}
		st.Privacy = *in.Privacy
	}

	oldSlug, oldMediaID := st.Slug, st.MediaID
	titleChanged := title != st.Title
	st.Title = title
	st.Content = content
	st.Readtime = markdown.ReadTime(content)

	var asset *media.Asset
	if up != nil {
		if asset, err = s.upload(ctx, up); err != nil {
			return nil, err
		}
		s.applyMedia(ctx, st, asset)
	}
	st.UpdatedAt = s.now()

	write := func(ctx context.Context) error { return s.store.UpdateContent(ctx, st) }
	if titleChanged {
		err = s.writeWithSlug(ctx, st, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		if asset != nil {
			s.release(asset.ID)
		}
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("Story not found")
		}
		return nil, asAppError(err)
	}

	if st.Slug != oldSlug && s.history != nil {
		if err := s.history.Track(ctx, oldSlug, slugtracker.TypeStory, st.ID); err != nil {
			s.log.Warn("track old slug", zap.String("slug", oldSlug), zap.Error(err))
		}
	}
	if asset != nil && oldMediaID != "" && oldMediaID != st.MediaID {
		s.release(oldMediaID)
	}
	return st, nil
}

// Delete removes a story and everything that references it.
func (s *Service) Delete(ctx context.Context, viewer models.Viewer, slugStr string) error {
	st, err := s.editable(ctx, viewer, slugStr)
	if err != nil {
		return err
	}
	return s.cascade(ctx, st)
}

// DeleteByID is Delete addressed by id, used by the admin console.
func (s *Service) DeleteByID(ctx context.Context, viewer models.Viewer, id primitive.ObjectID) error {
	st, err := s.store.FindByID(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if st == nil {
		return apperr.NotFound("Story not found")
	}
	if err := CanEdit(st, viewer); err != nil {
		return err
	}
	return s.cascade(ctx, st)
}

// DeleteByAuthor cascades every story of author. It stops at the first
// failing story so the caller can retry.
func (s *Service) DeleteByAuthor(ctx context.Context, viewer models.Viewer, author primitive.ObjectID) (int, error) {
	if !viewer.IsAdmin() && !viewer.Owns(author) {
		return 0, apperr.Forbidden("Only an administrator can do that.")
	}
	stories, err := s.store.ListByAuthor(ctx, author)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	for i := range stories {
		if err := s.cascade(ctx, &stories[i]); err != nil {
			return i, err
		}
	}
	return len(stories), nil
}

// cascade deletes comments, read-list references and the story itself in
// that order. Each step is idempotent so a failed delete can be repeated.
func (s *Service) cascade(ctx context.Context, st *models.Story) error {
	comments, err := s.store.DeleteComments(ctx, st.ID)
	if err != nil {
		return apperr.StepFailed("comments", err)
	}
	readers, err := s.store.PullFromReadLists(ctx, st.ID)
	if err != nil {
		return apperr.StepFailed("read_lists", err)
	}
	if err := s.store.Delete(ctx, st.ID); err != nil {
		return apperr.StepFailed("story", err)
	}

	if st.MediaID != "" {
		s.release(st.MediaID)
	}
	if s.history != nil {
		if err := s.history.DeleteByTargetID(ctx, st.ID); err != nil {
			s.log.Warn("drop slug history", zap.String("story", st.ID.Hex()), zap.Error(err))
		}
	}
	s.log.Info("story deleted",
		zap.String("slug", st.Slug),
		zap.Int64("comments", comments),
		zap.Int64("read_lists", readers),
	)
	return nil
}

// Detail returns a readable story with its author and likers populated.
func (s *Service) Detail(ctx context.Context, viewer models.Viewer, slugStr string) (*View, error) {
	st, err := s.resolve(ctx, slugStr)
	if err != nil {
		return nil, err
	}
	if err := CanRead(st, viewer); err != nil {
		return nil, err
	}
	ids := append([]primitive.ObjectID{st.Author}, st.Likes...)
	people, err := s.store.Authors(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	v := &View{
		Story:       st,
		LikeStatus:  st.LikedBy(viewer.ID),
		Likers:      make([]models.UserSummary, 0, len(st.Likes)),
		ContentHTML: markdown.Render(st.Content),
	}
	if a, ok := people[st.Author]; ok {
		v.Author = &a
	}
	for _, id := range st.Likes {
		if p, ok := people[id]; ok {
			v.Likers = append(v.Likers, p)
		}
	}
	return v, nil
}

// EditPage returns the raw story for its editor.
func (s *Service) EditPage(ctx context.Context, viewer models.Viewer, slugStr string) (*models.Story, error) {
	return s.editable(ctx, viewer, slugStr)
}

// Get loads a story by id for an administrator.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*View, error) {
	st, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if st == nil {
		return nil, apperr.NotFound("Story not found")
	}
	v := &View{Story: st}
	people, err := s.store.Authors(ctx, []primitive.ObjectID{st.Author})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if a, ok := people[st.Author]; ok {
		v.Author = &a
	}
	return v, nil
}

// List returns the stories the viewer may see in ranking order.
func (s *Service) List(ctx context.Context, viewer models.Viewer, in ListInput) ([]View, response.Pagination, error) {
	return s.list(ctx, viewer, in, SortRanking, viewer.IsAuthenticated())
}

// AdminList lists every story, newest first.
func (s *Service) AdminList(ctx context.Context, viewer models.Viewer, in ListInput) ([]View, response.Pagination, error) {
	if !viewer.IsAdmin() {
		return nil, response.Pagination{}, apperr.Forbidden("Administrator access required.")
	}
	return s.list(ctx, viewer, in, SortNewest, true)
}

func (s *Service) list(ctx context.Context, viewer models.Viewer, in ListInput, sort Sort, withAuthors bool) ([]View, response.Pagination, error) {
	q := pagination.New(in.Page, in.Size, DefaultListSize)
	stories, total, err := s.store.List(ctx, Query{
		Viewer: viewer,
		Search: strings.TrimSpace(in.Search),
		Sort:   sort,
		Skip:   q.Skip(),
		Limit:  int64(q.Size),
	})
	if err != nil {
		return nil, response.Pagination{}, apperr.Internal(err)
	}

	var people map[primitive.ObjectID]models.UserSummary
	if withAuthors && len(stories) > 0 {
		ids := make([]primitive.ObjectID, 0, len(stories))
		for i := range stories {
			ids = append(ids, stories[i].Author)
		}
		if people, err = s.store.Authors(ctx, ids); err != nil {
			return nil, response.Pagination{}, apperr.Internal(err)
		}
	}

	views := make([]View, len(stories))
	for i := range stories {
		views[i] = View{Story: &stories[i], LikeStatus: stories[i].LikedBy(viewer.ID)}
		if a, ok := people[stories[i].Author]; ok {
			views[i].Author = &a
		}
	}
	return views, q.Meta(total), nil
}

// ListByAuthor returns every story written by author.
func (s *Service) ListByAuthor(ctx context.Context, author primitive.ObjectID) ([]models.Story, error) {
	stories, err := s.store.ListByAuthor(ctx, author)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return stories, nil
}

// ToggleLike flips the viewer's like on a story they can read.
func (s *Service) ToggleLike(ctx context.Context, viewer models.Viewer, slugStr string) (*View, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperr.Unauthenticated("Please sign in first.")
	}
	st, err := s.find(ctx, slugStr)
	if err != nil {
		return nil, err
	}
	if err := CanRead(st, viewer); err != nil {
		return nil, err
	}
	updated, err := s.store.ToggleLike(ctx, st.ID, viewer.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if updated == nil {
		return nil, apperr.NotFound("Story not found")
	}
	return &View{Story: updated, LikeStatus: updated.LikedBy(viewer.ID)}, nil
}

// Readable loads a story by slug and checks that viewer may read it.
func (s *Service) Readable(ctx context.Context, viewer models.Viewer, slugStr string) (*models.Story, error) {
	st, err := s.find(ctx, slugStr)
	if err != nil {
		return nil, err
	}
	if err := CanRead(st, viewer); err != nil {
		return nil, err
	}
	return st, nil
}

// ReadableByIDs loads the stories with the given ids that viewer may read,
// in the order of ids. Missing stories are skipped.
func (s *Service) ReadableByIDs(ctx context.Context, viewer models.Viewer, ids []primitive.ObjectID) ([]models.Story, error) {
	found, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byID := make(map[primitive.ObjectID]models.Story, len(found))
	for _, st := range found {
		byID[st.ID] = st
	}
	out := make([]models.Story, 0, len(ids))
	for _, id := range ids {
		st, ok := byID[id]
		if !ok || CanRead(&st, viewer) != nil {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// writeWithSlug assigns the first free slug for the story title and runs
// write, picking the next candidate whenever the unique index rejects it.
func (s *Service) writeWithSlug(ctx context.Context, st *models.Story, write func(context.Context) error) error {
	base := slug.Make(st.Title)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		taken, err := s.store.SlugsLike(ctx, base, st.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		st.Slug = slug.NextFree(base, taken)
		err = write(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, database.ErrDuplicateKey) {
			return err
		}
		s.log.Debug("slug collision", zap.String("slug", st.Slug), zap.Int("attempt", attempt+1))
	}
	return apperr.Conflict("Another story with this title was saved at the same time, please try again.").WithRetry()
}

func (s *Service) upload(ctx context.Context, up *media.Upload) (*media.Asset, error) {
	if _, err := s.limits.Validate(up); err != nil {
		return nil, err
	}
	if s.media == nil {
		return nil, apperr.UploadRejected("media uploads are disabled")
	}
	uctx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	defer cancel()
	asset, err := s.media.Upload(uctx, media.FolderStories, up)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.KindInternal, "media upload timed out", err).WithRetry()
		}
		if apperr.KindOf(err) == apperr.KindUploadRejected {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindInternal, "media upload failed", err)
	}
	return asset, nil
}

// applyMedia copies an uploaded asset onto the story. Video thumbnails are
// best-effort and the duration is filled in later.
func (s *Service) applyMedia(ctx context.Context, st *models.Story, asset *media.Asset) {
	st.Image = asset.URL
	st.MediaID = asset.ID
	st.MediaType = asset.Type
	if asset.Type != models.MediaVideo {
		st.VideoThumbnail = nil
		st.VideoDuration = nil
		return
	}

	st.VideoThumbnail = nil
	if thumb, err := s.media.Thumbnail(ctx, asset); err != nil {
		s.log.Warn("video thumbnail", zap.String("media", asset.ID), zap.Error(err))
	} else if thumb != "" {
		st.VideoThumbnail = &thumb
	}
	duration, err := s.media.Duration(ctx, asset)
	if err != nil {
		duration = 0
	}
	st.VideoDuration = &duration
}

func (s *Service) release(id string) {
	if s.media == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.media.Delete(ctx, id); err != nil {
		s.log.Warn("release media", zap.String("media", id), zap.Error(err))
	}
}

func (s *Service) find(ctx context.Context, slugStr string) (*models.Story, error) {
	st, err := s.store.FindBySlug(ctx, slugStr)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if st == nil {
		return nil, apperr.NotFound("Story not found")
	}
	return st, nil
}

// resolve is find with a fallback to slugs the story used to have.
func (s *Service) resolve(ctx context.Context, slugStr string) (*models.Story, error) {
	st, err := s.find(ctx, slugStr)
	if err == nil || !apperr.Is(err, apperr.KindNotFound) || s.history == nil {
		return st, err
	}
	id, herr := s.history.FindBySlug(ctx, slugStr, slugtracker.TypeStory)
	if herr != nil {
		return nil, apperr.Internal(herr)
	}
	if id.IsZero() {
		return nil, err
	}
	st, ferr := s.store.FindByID(ctx, id)
	if ferr != nil {
		return nil, apperr.Internal(ferr)
	}
	if st == nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) editable(ctx context.Context, viewer models.Viewer, slugStr string) (*models.Story, error) {
	if !viewer.IsAuthenticated() {
		return nil, apperr.Unauthenticated("Please sign in first.")
	}
	st, err := s.find(ctx, slugStr)
	if err != nil {
		return nil, err
	}
	if err := CanEdit(st, viewer); err != nil {
		return nil, err
	}
	return st, nil
}

func validateText(title, content string) error {
	if utf8.RuneCountInString(title) < minTitleLen {
		return apperr.Validation("Title must be at least 4 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(content)) < minContentLen {
		return apperr.Validation("Content must be at least 10 characters")
	}
	return nil
}

func asAppError(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err)
}

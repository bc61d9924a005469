package story

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/storage/media"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const body = "Once upon a time there was a story worth telling."

type fixture struct {
	store   *memStore
	history *memHistory
	media   *fakeMedia
	svc     *Service
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), history: newMemHistory(), media: &fakeMedia{}}
	f.svc = NewService(f.store, f.history, f.media,
		media.Limits{MaxImageBytes: 10 << 20, MaxVideoBytes: 200 << 20},
		Options{DefaultImage: "https://cdn.test/default.jpg", UploadTimeout: time.Minute}, nil)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

func (f *fixture) create(t *testing.T, v models.Viewer, title string, privacy models.Privacy) *models.Story {
	t.Helper()
	st, err := f.svc.Create(context.Background(), v, CreateInput{Title: title, Content: body, Privacy: privacy}, nil)
	require.NoError(t, err)
	return st
}

func imageUpload() *media.Upload {
	return &media.Upload{Reader: strings.NewReader("img"), Size: 3, ContentType: "image/png", Filename: "a.png", Prefix: "story"}
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)

	st := f.create(t, a, "Hello World", "")
	assert.Equal(t, "hello-world", st.Slug)
	assert.Equal(t, models.PrivacyPublic, st.Privacy)
	assert.Equal(t, models.MediaImage, st.MediaType)
	assert.Equal(t, "https://cdn.test/default.jpg", st.Image)
	assert.Nil(t, st.VideoThumbnail)
	assert.Nil(t, st.VideoDuration)
	assert.Equal(t, a.ID, st.Author)
	assert.Equal(t, 0, st.Readtime)
	assert.Empty(t, st.Likes)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	ctx := context.Background()

	cases := []CreateInput{
		{Title: "abc", Content: body},
		{Title: "Long enough", Content: "too short"},
		{Title: "Long enough", Content: body, IsPaid: true},
		{Title: "Long enough", Content: body, IsPaid: true, Price: 10001},
		{Title: "Long enough", Content: body, IsPaid: true, Price: -5},
		{Title: "Long enough", Content: body, Privacy: "friends"},
	}
	for _, in := range cases {
		_, err := f.svc.Create(ctx, a, in, nil)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v: %v", in, err)
	}

	st, err := f.svc.Create(ctx, a, CreateInput{Title: "Paid story", Content: body, IsPaid: true, Price: 10000}, nil)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, st.Price)

	_, err = f.svc.Create(ctx, models.Anonymous(), CreateInput{Title: "Anonymous", Content: body}, nil)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestSlugUniqueness(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)

	const n = 12
	slugs := map[string]bool{}
	for i := 0; i < n; i++ {
		st := f.create(t, a, "Hello World", models.PrivacyPublic)
		assert.False(t, slugs[st.Slug], "duplicate slug %s", st.Slug)
		slugs[st.Slug] = true
		assert.Regexp(t, regexp.MustCompile(`^hello-world(-[0-9]+)?$`), st.Slug)
	}
	assert.Len(t, slugs, n)
}

func TestSlugUniquenessConcurrent(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)

	const n = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		slugs = map[string]int{}
		fails int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := f.svc.Create(context.Background(), a, CreateInput{Title: "Same Title", Content: body}, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.True(t, apperr.Is(err, apperr.KindConflict))
				fails++
				return
			}
			slugs[st.Slug]++
		}()
	}
	wg.Wait()
	for s, count := range slugs {
		assert.Equal(t, 1, count, s)
	}
	assert.Equal(t, n, len(slugs)+fails)
}

func TestSlugRetryExhaustion(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)

	f.store.dupWrites = 2
	st := f.create(t, a, "Retry Me", "")
	assert.Equal(t, "retry-me", st.Slug)

	f.store.dupWrites = maxSlugAttempts
	_, err := f.svc.Create(context.Background(), a, CreateInput{Title: "Retry Me Again", Content: body}, nil)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.True(t, e.Retryable)
}

func TestTitleEditScenario(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	ctx := context.Background()

	first := f.create(t, a, "Hello World", "")
	second := f.create(t, a, "Hello World", "")
	assert.Equal(t, "hello-world", first.Slug)
	assert.Equal(t, "hello-world-1", second.Slug)

	same := "Hello World"
	edited, err := f.svc.Update(ctx, a, second.Slug, UpdateInput{Title: &same}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello-world-1", edited.Slug)

	content := body + " Edited."
	edited, err = f.svc.Update(ctx, a, second.Slug, UpdateInput{Content: &content}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello-world-1", edited.Slug)
	assert.Equal(t, content, edited.Content)

	renamed := "A Brand New Title"
	edited, err = f.svc.Update(ctx, a, second.Slug, UpdateInput{Title: &renamed}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a-brand-new-title", edited.Slug)

	// the old slug still resolves
	v, err := f.svc.Detail(ctx, a, "hello-world-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, v.Story.ID)
}

func TestUpdateForeignStory(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	admin := f.store.addUser("root", models.RoleAdmin)
	ctx := context.Background()

	st := f.create(t, a, "Alice Writes", "")
	title := "Bob Was Here"
	_, err := f.svc.Update(ctx, b, st.Slug, UpdateInput{Title: &title}, nil)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	private := models.PrivacyPrivate
	edited, err := f.svc.Update(ctx, admin, st.Slug, UpdateInput{Privacy: &private}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PrivacyPrivate, edited.Privacy)
	assert.Equal(t, a.ID, edited.Author)
}

func TestMediaReplacement(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	ctx := context.Background()

	st, err := f.svc.Create(ctx, a, CreateInput{Title: "With Media", Content: body}, imageUpload())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/stories/story_1", st.Image)
	firstID := st.MediaID

	// no upload keeps the media
	title := "With Media Still"
	st, err = f.svc.Update(ctx, a, st.Slug, UpdateInput{Title: &title}, nil)
	require.NoError(t, err)
	assert.Equal(t, firstID, st.MediaID)
	assert.Empty(t, f.media.deleted)

	video := &media.Upload{Reader: strings.NewReader("vid"), Size: 3, ContentType: "video/mp4", Filename: "a.mp4", Prefix: "story"}
	st, err = f.svc.Update(ctx, a, st.Slug, UpdateInput{}, video)
	require.NoError(t, err)
	assert.Equal(t, models.MediaVideo, st.MediaType)
	require.NotNil(t, st.VideoThumbnail)
	assert.Equal(t, st.Image+".jpg", *st.VideoThumbnail)
	require.NotNil(t, st.VideoDuration)
	assert.Equal(t, 0.0, *st.VideoDuration)
	assert.Equal(t, []string{firstID}, f.media.deleted)
}

func TestVideoThumbnailIsBestEffort(t *testing.T) {
	f := newFixture()
	f.media.thumbErr = errors.New("transcoder offline")
	a := f.store.addUser("alice", models.RoleUser)

	video := &media.Upload{Reader: strings.NewReader("vid"), Size: 3, ContentType: "video/webm", Filename: "a.webm", Prefix: "story"}
	st, err := f.svc.Create(context.Background(), a, CreateInput{Title: "Video Story", Content: body}, video)
	require.NoError(t, err)
	assert.Equal(t, models.MediaVideo, st.MediaType)
	assert.Nil(t, st.VideoThumbnail)
	require.NotNil(t, st.VideoDuration)
}

func TestUploadFailureWritesNothing(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	ctx := context.Background()

	f.media.uploadErr = context.DeadlineExceeded
	_, err := f.svc.Create(ctx, a, CreateInput{Title: "Slow Upload", Content: body}, imageUpload())
	require.Error(t, err)
	assert.Empty(t, f.store.stories)

	f.media.uploadErr = nil
	big := &media.Upload{Reader: strings.NewReader("x"), Size: 11 << 20, ContentType: "image/jpeg", Filename: "a.jpg"}
	_, err = f.svc.Create(ctx, a, CreateInput{Title: "Big Upload", Content: body}, big)
	assert.True(t, apperr.Is(err, apperr.KindUploadRejected))
	assert.Empty(t, f.store.stories)
}

func TestInsertFailureReleasesMedia(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)

	f.store.dupWrites = maxSlugAttempts
	_, err := f.svc.Create(context.Background(), a, CreateInput{Title: "Contended", Content: body}, imageUpload())
	require.Error(t, err)
	assert.Equal(t, []string{"stories/story_1"}, f.media.deleted)
}

func TestToggleLikeIdempotence(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	ctx := context.Background()
	st := f.create(t, a, "Likeable Story", "")

	v, err := f.svc.ToggleLike(ctx, b, st.Slug)
	require.NoError(t, err)
	assert.True(t, v.LikeStatus)
	assert.Equal(t, 1, v.Story.LikeCount)

	v, err = f.svc.ToggleLike(ctx, b, st.Slug)
	require.NoError(t, err)
	assert.False(t, v.LikeStatus)
	assert.Equal(t, 0, v.Story.LikeCount)
	assert.Empty(t, v.Story.Likes)

	_, err = f.svc.ToggleLike(ctx, models.Anonymous(), st.Slug)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestToggleLikeConcurrent(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	st := f.create(t, a, "Popular Story", "")

	const n = 20
	users := make([]models.Viewer, n)
	for i := range users {
		users[i] = f.store.addUser(fmt.Sprintf("reader%d", i), models.RoleUser)
	}
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u models.Viewer) {
			defer wg.Done()
			_, err := f.svc.ToggleLike(context.Background(), u, st.Slug)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	got, err := f.store.FindByID(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, n)
	assert.Equal(t, len(got.Likes), got.LikeCount)
	seen := map[primitive.ObjectID]bool{}
	for _, id := range got.Likes {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestToggleLikeRespectsVisibility(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	st := f.create(t, a, "Secret Story", models.PrivacyPrivate)

	_, err := f.svc.ToggleLike(context.Background(), b, st.Slug)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestDeleteCascade(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	c := f.store.addUser("carol", models.RoleUser)
	ctx := context.Background()

	st := f.create(t, a, "Doomed Story", "")
	keep := f.create(t, a, "Surviving Story", "")
	f.store.addComments(st.ID, 3)
	f.store.bookmark(b.ID, st.ID)
	f.store.bookmark(c.ID, keep.ID)
	f.store.bookmark(c.ID, st.ID)

	require.NoError(t, f.svc.Delete(ctx, a, st.Slug))

	assert.Empty(t, f.store.comments[st.ID])
	bu, cu := f.store.user(b.ID), f.store.user(c.ID)
	assert.Empty(t, bu.ReadList)
	assert.Equal(t, 0, bu.ReadListLength)
	assert.Equal(t, []primitive.ObjectID{keep.ID}, cu.ReadList)
	assert.Equal(t, 1, cu.ReadListLength)

	_, err := f.svc.Detail(ctx, a, st.Slug)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteReportsFailedStepAndRetries(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	ctx := context.Background()
	st := f.create(t, a, "Stubborn Story", "")
	f.store.addComments(st.ID, 2)

	f.store.failStep = "story"
	err := f.svc.Delete(ctx, a, st.Slug)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "story", e.Step)
	assert.True(t, e.Retryable)
	assert.Empty(t, f.store.comments[st.ID])

	require.NoError(t, f.svc.Delete(ctx, a, st.Slug))
	_, err = f.svc.Detail(ctx, a, st.Slug)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteAuthorization(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	admin := f.store.addUser("root", models.RoleAdmin)
	ctx := context.Background()
	st := f.create(t, a, "Protected Story", "")

	assert.True(t, apperr.Is(f.svc.Delete(ctx, b, st.Slug), apperr.KindForbidden))
	assert.True(t, apperr.Is(f.svc.Delete(ctx, models.Anonymous(), st.Slug), apperr.KindUnauthenticated))
	require.NoError(t, f.svc.DeleteByID(ctx, admin, st.ID))
}

func TestDeleteByAuthor(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	admin := f.store.addUser("root", models.RoleAdmin)
	ctx := context.Background()
	f.create(t, a, "First Story", "")
	f.create(t, a, "Second Story", models.PrivacyPrivate)

	n, err := f.svc.DeleteByAuthor(ctx, admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, f.store.stories)
}

func TestListVisibility(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	admin := f.store.addUser("root", models.RoleAdmin)
	ctx := context.Background()

	f.create(t, a, "Private Thoughts", models.PrivacyPrivate)
	f.create(t, a, "Members Only", models.PrivacyUser)
	pub := f.create(t, a, "Open Letter", models.PrivacyPublic)

	views, pag, err := f.svc.List(ctx, models.Anonymous(), ListInput{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, pub.ID, views[0].Story.ID)
	assert.Nil(t, views[0].Author)
	assert.Equal(t, int64(1), pag.Total)

	views, _, err = f.svc.List(ctx, b, ListInput{})
	require.NoError(t, err)
	assert.Len(t, views, 2)
	require.NotNil(t, views[0].Author)
	assert.Equal(t, "alice", views[0].Author.Username)

	views, _, err = f.svc.List(ctx, a, ListInput{})
	require.NoError(t, err)
	assert.Len(t, views, 3)

	views, _, err = f.svc.List(ctx, admin, ListInput{})
	require.NoError(t, err)
	assert.Len(t, views, 3)
}

func TestListRankingSearchAndPaging(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	ctx := context.Background()

	old := f.create(t, a, "Old Favourite", "")
	commented := f.create(t, a, "Much Discussed", "")
	newest := f.create(t, a, "Fresh (Draft)?", "")
	_, err := f.svc.ToggleLike(ctx, b, old.Slug)
	require.NoError(t, err)
	f.store.addComments(commented.ID, 2)

	views, _, err := f.svc.List(ctx, b, ListInput{})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, old.ID, views[0].Story.ID)
	assert.True(t, views[0].LikeStatus)
	assert.Equal(t, commented.ID, views[1].Story.ID)
	assert.Equal(t, newest.ID, views[2].Story.ID)

	views, _, err = f.svc.List(ctx, b, ListInput{Search: "(draft)?"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, newest.ID, views[0].Story.ID)

	views, pag, err := f.svc.List(ctx, b, ListInput{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Len(t, views, 1)
	assert.Equal(t, 2, pag.TotalPage)
	assert.False(t, pag.HasNextPage)
}

func TestDetailScenario(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	admin := f.store.addUser("root", models.RoleAdmin)
	ctx := context.Background()

	st := f.create(t, a, "Private Diary", models.PrivacyPrivate)

	_, err := f.svc.Detail(ctx, b, st.Slug)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	v, err := f.svc.Detail(ctx, admin, st.Slug)
	require.NoError(t, err)
	require.NotNil(t, v.Author)
	assert.Equal(t, "alice", v.Author.Username)
	assert.Contains(t, v.ContentHTML, "<p>")

	members := f.create(t, a, "Members Diary", models.PrivacyUser)
	_, err = f.svc.Detail(ctx, models.Anonymous(), members.Slug)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestEditPage(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	ctx := context.Background()
	st := f.create(t, a, "Work In Progress", "")

	got, err := f.svc.EditPage(ctx, a, st.Slug)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)

	_, err = f.svc.EditPage(ctx, b, st.Slug)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.EditPage(ctx, a, "missing-story")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestReadableByIDs(t *testing.T) {
	f := newFixture()
	a := f.store.addUser("alice", models.RoleUser)
	b := f.store.addUser("bob", models.RoleUser)
	ctx := context.Background()

	first := f.create(t, a, "First Bookmark", "")
	hidden := f.create(t, a, "Hidden Bookmark", models.PrivacyPrivate)
	second := f.create(t, a, "Second Bookmark", models.PrivacyUser)

	got, err := f.svc.ReadableByIDs(ctx, b, []primitive.ObjectID{second.ID, hidden.ID, primitive.NewObjectID(), first.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

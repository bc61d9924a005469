package admin

import (
	"context"
	"testing"
	"time"

	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/content/story"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	p     *platform
	svc   *Service
	admin models.Viewer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := newPlatform()
	svc := NewService(p, p.users, p, commentFake{p}, "https://cdn.test/avatar.png", nil)
	svc.now = func() time.Time { return testNow }
	f := &fixture{p: p, svc: svc}
	f.admin = f.addUser(t, "root", "root@example.com", models.RoleAdmin, testNow.AddDate(-1, 0, 0)).Viewer()
	return f
}

func (f *fixture) addUser(t *testing.T, name, email string, role models.Role, created time.Time) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: email, Role: role, IsEmailVerified: true}
	u.Touch(created)
	require.NoError(t, f.p.users.Insert(context.Background(), u))
	return u
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.addUser(t, "old", "old@example.com", models.RoleUser, testNow.AddDate(0, -3, 0))
	fresh := f.addUser(t, "fresh", "fresh@example.com", models.RoleUser, testNow.AddDate(0, 0, -2))
	f.p.addStory(old.ID, "old-story", testNow.AddDate(0, -2, 0))
	f.p.addStory(fresh.ID, "new-story", testNow.AddDate(0, 0, -1))
	f.p.addComment(old.ID)
	f.p.addComment(fresh.ID)
	f.p.addComment(fresh.ID)

	st, err := f.svc.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalUsers:    3,
		TotalAdmins:   1,
		TotalStories:  2,
		TotalComments: 3,
		RecentUsers:   1,
		RecentStories: 1,
	}, *st)
}

func TestConsoleRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plain := f.addUser(t, "bob", "bob@example.com", models.RoleUser, testNow).Viewer()

	_, err := f.svc.Stats(ctx, plain)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.Stats(ctx, models.Anonymous())
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	assert.True(t, apperr.Is(f.svc.DeleteUser(ctx, plain, f.admin.ID.Hex()), apperr.KindForbidden))
	_, err = f.svc.CreateUser(ctx, plain, CreateUserDTO{Username: "x", Email: "x@example.com", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestListAndGetUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i, name := range []string{"ann", "anna", "ben"} {
		f.addUser(t, name, name+"@example.com", models.RoleUser, testNow.Add(time.Duration(i)*time.Minute))
	}

	users, pag, err := f.svc.ListUsers(ctx, f.admin, ListInput{Search: "ann", Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "anna", users[0].Username)
	assert.Equal(t, int64(2), pag.Total)

	u, err := f.p.users.FindByEmail(ctx, "ben@example.com")
	require.NoError(t, err)
	f.p.addStory(u.ID, "s1", testNow)
	f.p.addComment(u.ID)
	d, err := f.svc.GetUser(ctx, f.admin, u.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.StoriesCount)
	assert.Equal(t, int64(1), d.CommentsCount)

	_, err = f.svc.GetUser(ctx, f.admin, "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = f.svc.GetUser(ctx, f.admin, primitive.NewObjectID().Hex())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, f.admin, CreateUserDTO{Username: " eve ", Email: "Eve@Example.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "eve", u.Username)
	assert.Equal(t, "eve@example.com", u.Email)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, u.IsEmailVerified)
	assert.Equal(t, "https://cdn.test/avatar.png", u.Photo)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret1")))

	_, err = f.svc.CreateUser(ctx, f.admin, CreateUserDTO{Username: "eve2", Email: "eve@example.com", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	cases := []CreateUserDTO{
		{Username: "", Email: "a@example.com", Password: "secret1"},
		{Username: "a", Email: "bad", Password: "secret1"},
		{Username: "a", Email: "a@example.com", Password: "123"},
		{Username: "a", Email: "a@example.com", Password: "secret1", Role: "owner"},
	}
	for _, in := range cases {
		_, err := f.svc.CreateUser(ctx, f.admin, in)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "%+v", in)
	}

	def, err := f.svc.CreateUser(ctx, f.admin, CreateUserDTO{Username: "frank", Email: "frank@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, def.Role)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.addUser(t, "bob", "bob@example.com", models.RoleUser, testNow)
	f.addUser(t, "carol", "carol@example.com", models.RoleUser, testNow)

	role := models.RoleAdmin
	name := "robert"
	u, err := f.svc.UpdateUser(ctx, f.admin, bob.ID.Hex(), UpdateUserDTO{Username: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "robert", u.Username)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.Equal(t, models.RoleAdmin, u.Role)

	stored, err := f.p.users.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "robert", stored.Username)

	taken := "carol@example.com"
	_, err = f.svc.UpdateUser(ctx, f.admin, bob.ID.Hex(), UpdateUserDTO{Email: &taken})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	same := "BOB@example.com"
	_, err = f.svc.UpdateUser(ctx, f.admin, bob.ID.Hex(), UpdateUserDTO{Email: &same})
	assert.NoError(t, err)

	demote := models.RoleUser
	_, err = f.svc.UpdateUser(ctx, f.admin, f.admin.ID.Hex(), UpdateUserDTO{Role: &demote})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.addUser(t, "bob", "bob@example.com", models.RoleUser, testNow)
	carol := f.addUser(t, "carol", "carol@example.com", models.RoleUser, testNow)

	f.p.addStory(bob.ID, "bobs", testNow)
	kept := f.p.addStory(carol.ID, "carols", testNow, bob.ID, carol.ID)
	f.p.addComment(bob.ID)
	f.p.addComment(carol.ID)

	require.NoError(t, f.svc.DeleteUser(ctx, f.admin, bob.ID.Hex()))
	assert.Equal(t, []string{"stories", "comments", "likes"}, f.p.calls)

	gone, err := f.p.users.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Len(t, f.p.stories, 1)
	assert.Len(t, f.p.comments, 1)
	assert.Equal(t, []primitive.ObjectID{carol.ID}, f.p.stories[kept.ID].Likes)
	assert.Equal(t, 1, f.p.stories[kept.ID].LikeCount)
}

func TestDeleteUserStopsAtFailedStepAndResumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.addUser(t, "bob", "bob@example.com", models.RoleUser, testNow)
	f.p.addStory(bob.ID, "bobs", testNow)
	f.p.addComment(bob.ID)

	f.p.failComments = true
	err := f.svc.DeleteUser(ctx, f.admin, bob.ID.Hex())
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "comments", e.Step)
	assert.True(t, e.Retryable)
	still, _ := f.p.users.FindByID(ctx, bob.ID)
	assert.NotNil(t, still)

	require.NoError(t, f.svc.DeleteUser(ctx, f.admin, bob.ID.Hex()))
	assert.Empty(t, f.p.comments)

	f.p.failStories = true
	carol := f.addUser(t, "carol", "carol@example.com", models.RoleUser, testNow)
	err = f.svc.DeleteUser(ctx, f.admin, carol.ID.Hex())
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "stories", e.Step)
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteUser(context.Background(), f.admin, f.admin.ID.Hex())
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, f.p.calls)
}

func TestStoryConsole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.p.addStory(f.admin.ID, "hello", testNow)

	v, err := f.svc.GetStory(ctx, f.admin, s.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "hello", v.Story.Slug)

	_, err = f.svc.GetStory(ctx, f.admin, "zzz")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	title := "Hello again"
	st, err := f.svc.UpdateStory(ctx, f.admin, "hello", storyTitle(title), nil)
	require.NoError(t, err)
	assert.Equal(t, title, st.Title)

	views, _, err := f.svc.ListStories(ctx, f.admin, ListInput{})
	require.NoError(t, err)
	assert.Len(t, views, 1)

	require.NoError(t, f.svc.DeleteStory(ctx, f.admin, s.ID.Hex()))
	assert.True(t, apperr.Is(f.svc.DeleteStory(ctx, f.admin, s.ID.Hex()), apperr.KindNotFound))
}

func storyTitle(title string) story.UpdateInput {
	return story.UpdateInput{Title: &title}
}

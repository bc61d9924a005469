package user_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/middleware"
	"github.com/himlearning/storyhub/internal/models"
	"github.com/himlearning/storyhub/internal/modules/auth/user"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testRouter(f *fixture, viewer models.Viewer) *gin.Engine {
	authMW := func(c *gin.Context) {
		if c.GetHeader("X-Test-User") == "" {
			response.Unauthorized(c)
			return
		}
		c.Set(middleware.ContextKeyViewer, viewer)
		c.Next()
	}
	r := gin.New()
	user.NewHandler(f.svc).RegisterRoutes(r.Group("/api/v1"), authMW)
	return r
}

func call(t *testing.T, r http.Handler, method, path string, signedIn bool, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if signedIn {
		req.Header.Set("X-Test-User", "1")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestHandlerReadListFlow(t *testing.T) {
	f := newFixture()
	v := f.addUser(t, "alice", "secret1")
	st := f.addStory("first-post", primitive.NewObjectID(), models.PrivacyPublic)
	r := testRouter(f, v)

	code, _ := call(t, r, http.MethodGet, "/api/v1/user/profile", false, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, out := call(t, r, http.MethodPost, "/api/v1/user/first-post/addStoryToReadList", true, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["status"])
	data := out["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{st.ID.Hex()}, data["readList"])
	assert.EqualValues(t, 1, data["readListLength"])

	code, out = call(t, r, http.MethodGet, "/api/v1/user/readList", true, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, out["readListLength"])

	code, out = call(t, r, http.MethodPost, "/api/v1/user/first-post/addStoryToReadList", true, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["status"])

	code, _ = call(t, r, http.MethodPost, "/api/v1/user/nope/addStoryToReadList", true, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHandlerChangePassword(t *testing.T) {
	f := newFixture()
	v := f.addUser(t, "alice", "secret1")
	r := testRouter(f, v)

	code, _ := call(t, r, http.MethodPut, "/api/v1/user/changePassword", true, map[string]string{"oldPassword": "secret1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, r, http.MethodPut, "/api/v1/user/changePassword", true, map[string]string{"oldPassword": "nope-nope", "newPassword": "another1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, out := call(t, r, http.MethodPut, "/api/v1/user/changePassword", true, map[string]string{"oldPassword": "secret1", "newPassword": "another1"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Your password has been changed", out["message"])
}

package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func serve(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h(c)

	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.NotFound("missing"), http.StatusNotFound},
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.UploadRejected("too big"), http.StatusBadRequest},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.Unauthenticated("login"), http.StatusUnauthorized},
		{apperr.Conflict("dup"), http.StatusConflict},
		{apperr.RateLimited("wait", time.Minute), http.StatusTooManyRequests},
		{errors.New("raw"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w, body := serve(t, func(c *gin.Context) { Error(c, tc.err) })
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.EqualValues(t, 0, body["ok"])
		assert.EqualValues(t, tc.status, body["code"])
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	SetDebug(false)
	_, body := serve(t, func(c *gin.Context) { Error(c, errors.New("mongo: socket closed")) })
	assert.NotContains(t, body["message"], "socket")
	assert.Equal(t, "internal", body["category"])

	SetDebug(true)
	defer SetDebug(false)
	_, body = serve(t, func(c *gin.Context) { Error(c, errors.New("mongo: socket closed")) })
	assert.Contains(t, body["message"], "socket")
}

func TestErrorIncludesStepAndRetryHints(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) { Error(c, apperr.StepFailed("comments", errors.New("x"))) })
	assert.Equal(t, "comments", body["step"])

	w, body := serve(t, func(c *gin.Context) { Error(c, apperr.Conflict("slug busy").WithRetry()) })
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "slug busy", body["message"])
	assert.Empty(t, w.Header().Get("Retry-After"))

	w, _ = serve(t, func(c *gin.Context) { Error(c, apperr.RateLimited("wait", 5*time.Minute)) })
	assert.Equal(t, "300", w.Header().Get("Retry-After"))
}

func TestOKWrapsSlices(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) { OK(c, []string{"a"}) })
	assert.Contains(t, body, "data")

	_, body = serve(t, func(c *gin.Context) { OK(c, gin.H{"slug": "a"}) })
	assert.Equal(t, "a", body["slug"])
}

func TestErrorKeepsPublicInternalMessage(t *testing.T) {
	SetDebug(false)
	_, body := serve(t, func(c *gin.Context) {
		Error(c, apperr.Wrap(apperr.KindInternal, "Email could not be sent", errors.New("smtp: 554")))
	})
	assert.Equal(t, "Email could not be sent", body["message"])

	_, body = serve(t, func(c *gin.Context) { Error(c, apperr.Internal(errors.New("smtp: 554"))) })
	assert.Equal(t, "Something went wrong on our side.", body["message"])
}

package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/pkg/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	pruned   int
	repaired int
	err      error
}

func (f *fakeStore) PruneTokens(context.Context, time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned++
	return 2, f.err
}

func (f *fakeStore) RepairCounters(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repaired++
	return 0, f.err
}

func (f *fakeStore) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pruned, f.repaired
}

func setup(store Store) (*cron.Scheduler, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	sched := cron.New(nil)
	Register(sched, store, nil)
	r := gin.New()
	NewHandler(sched).RegisterAdminRoutes(r.Group("/admin"))
	return sched, r
}

func do(r http.Handler, method, path string) (int, map[string]interface{}) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func TestJobsRegistered(t *testing.T) {
	sched, _ := setup(&fakeStore{})
	items := sched.List()
	require.Len(t, items, 2)
	assert.Equal(t, JobPruneTokens, items[0].Name)
	assert.Equal(t, JobRepairCounters, items[1].Name)
}

func TestRunJobFromConsole(t *testing.T) {
	store := &fakeStore{}
	sched, r := setup(store)

	code, _ := do(r, http.MethodPost, "/admin/jobs/"+JobPruneTokens+"/run")
	require.Equal(t, http.StatusOK, code)
	assert.Eventually(t, func() bool {
		p, _ := store.counts()
		return p == 1
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		res, _ := sched.GetTask(JobPruneTokens)
		return res.Status == cron.StatusFulfill
	}, time.Second, 5*time.Millisecond)

	code, body := do(r, http.MethodGet, "/admin/jobs/"+JobPruneTokens)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "fulfill", body["status"])

	code, body = do(r, http.MethodGet, "/admin/jobs")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 2)

	code, _ = do(r, http.MethodPost, "/admin/jobs/nope/run")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFailedJobIsRecorded(t *testing.T) {
	store := &fakeStore{err: errors.New("mongo down")}
	sched, r := setup(store)

	code, _ := do(r, http.MethodPost, "/admin/jobs/"+JobRepairCounters+"/run")
	require.Equal(t, http.StatusOK, code)
	assert.Eventually(t, func() bool {
		res, _ := sched.GetTask(JobRepairCounters)
		return res.Status == cron.StatusReject && res.Message == "mongo down"
	}, time.Second, 5*time.Millisecond)
}

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/songplay-etl/api/handlers"
	"github.com/feichai0017/songplay-etl/internal/catalog/dbt"
	"github.com/feichai0017/songplay-etl/internal/models"
	"github.com/feichai0017/songplay-etl/pkg/logger"
	"github.com/feichai0017/songplay-etl/pkg/metrics"
	"github.com/feichai0017/songplay-etl/pkg/queue"
)

type fakeQueue struct {
	mu   sync.Mutex
	runs map[string]*models.Run
	last *queue.Task
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{runs: make(map[string]*models.Run)}
}

func (q *fakeQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.last = task
	q.runs[task.ID] = &models.Run{ID: task.ID, Status: models.StatusPending, CreatedAt: task.CreatedAt}
	return nil
}

func (q *fakeQueue) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	run, ok := q.runs[runID]
	if !ok {
		return nil, queue.ErrRunNotFound
	}
	return run, nil
}

func (q *fakeQueue) CancelRun(ctx context.Context, runID string) error {
	run, err := q.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	run.Status = models.StatusCancelled
	return nil
}

func (q *fakeQueue) SaveRun(ctx context.Context, run *models.Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.runs[run.ID] = run
	return nil
}

func newRouter(q queue.Queue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	metrics.New(reg).RunStarted()(nil)

	log := logger.NewTestLogger()
	h := handlers.NewHandlers(q, dbt.NewGenerator("sparkify", "spark", log), "s3a://udacity-dend/ash_rahman/", log)
	r := gin.New()
	SetupRoutes(r, h, reg, "https://app.example.com")
	return r
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRunLifecycle(t *testing.T) {
	q := newFakeQueue()
	r := newRouter(q)

	w := serve(r, http.MethodPost, "/api/v1/runs", `{"priority":1,"metadata":{"trigger":"manual"}}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var started handlers.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.NotEmpty(t, started.RunID)
	assert.Equal(t, "pending", started.Status)
	assert.Equal(t, 1, q.last.Priority)
	assert.Equal(t, "manual", q.last.Metadata["trigger"])

	w = serve(r, http.MethodGet, "/api/v1/runs/"+started.RunID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var run models.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, models.StatusPending, run.Status)

	w = serve(r, http.MethodDelete, "/api/v1/runs/"+started.RunID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusCancelled, q.runs[started.RunID].Status)
}

func TestStartRunWithoutBody(t *testing.T) {
	w := serve(newRouter(newFakeQueue()), http.MethodPost, "/api/v1/runs", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestStartRunRejectsBadBody(t *testing.T) {
	w := serve(newRouter(newFakeQueue()), http.MethodPost, "/api/v1/runs", `{"priority":"high"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnknownRun(t *testing.T) {
	r := newRouter(newFakeQueue())
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/runs/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, "/api/v1/runs/nope", "").Code)
}

func TestCatalog(t *testing.T) {
	r := newRouter(newFakeQueue())

	w := serve(r, http.MethodGet, "/api/v1/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "name: songplays")
	assert.Contains(t, w.Body.String(), "s3a://udacity-dend/ash_rahman/songplays_table/")

	w = serve(r, http.MethodGet, "/api/v1/catalog?format=json", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sources models.DbtSources
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sources))
	require.Len(t, sources.Sources, 1)
	assert.Len(t, sources.Sources[0].Tables, len(models.StarSchema))
}

func TestCORS(t *testing.T) {
	r := newRouter(newFakeQueue())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newRouter(newFakeQueue())
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", "").Code)

	w := serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "songplay_etl_runs_total")
}

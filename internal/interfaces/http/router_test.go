package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemXGen/internal/application/billing"
	"github.com/turtacn/ChemXGen/internal/application/identity"
	"github.com/turtacn/ChemXGen/internal/application/queue"
	"github.com/turtacn/ChemXGen/internal/application/render"
	"github.com/turtacn/ChemXGen/internal/domain/user"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/middleware"
	"github.com/turtacn/ChemXGen/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type tokenSessions map[string]*user.User

func (s tokenSessions) Session(_ context.Context, token string) identity.Session {
	return identity.Session{User: s[token]}
}

type stubBilling struct{}

func (stubBilling) Checkout(context.Context, *user.User, string) (*billing.Redirect, error) {
	return &billing.Redirect{URL: "https://checkout.example"}, nil
}

func (stubBilling) Portal(context.Context, *user.User) (*billing.Redirect, error) {
	return &billing.Redirect{URL: "https://portal.example"}, nil
}

type httpCounts struct {
	mu    sync.Mutex
	paths []string
}

func (h *httpCounts) RecordHTTPRequest(_, path string, _ int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, path)
}

func testRouter(t *testing.T, rec middleware.HTTPRecorder) *gin.Engine {
	t.Helper()
	log := testutil.NewMockLogger()
	return NewRouter(RouterConfig{
		RenderHandler:  handlers.NewRenderHandler(render.NewRenderer(render.NewEngine(render.Options{}), log), nil, 0, nil, log),
		BillingHandler: handlers.NewBillingHandler(stubBilling{}),
		HealthHandler:  handlers.NewHealthHandler("test"),
		Sessions:       tokenSessions{"good": {ID: "u-1", Email: "ada@example.com"}},
		CORS:           middleware.DefaultCORSConfig(),
		Logging:        middleware.DefaultLoggingConfig(),
		Recorder:       rec,
		MetricsUI: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		Logger: log,
	})
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func serveJSON(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r := testRouter(t, nil)

	w := serve(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestRouter_BillingRequiresUser(t *testing.T) {
	r := testRouter(t, nil)

	w := serve(r, http.MethodPost, "/api/v1/billing/portal", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/billing/portal", "unknown")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/billing/portal", "good")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_TaskChangesRequireUser(t *testing.T) {
	log := testutil.NewMockLogger()
	q := queue.New(queue.Config{}, testutil.NewMemStore(), nil, log)
	r := NewRouter(RouterConfig{
		TaskHandler: handlers.NewTaskHandler(q, log),
		Sessions:    tokenSessions{"good": {ID: "u-1", Email: "ada@example.com"}},
		CORS:        middleware.DefaultCORSConfig(),
		Logging:     middleware.DefaultLoggingConfig(),
		Logger:      log,
	})
	body := `{"id":"t1","tool":"toxicity","molecule":"CCO"}`

	w := serveJSON(r, http.MethodPost, "/api/v1/tasks", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, q.List())

	w = serveJSON(r, http.MethodPost, "/api/v1/tasks", "unknown", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serveJSON(r, http.MethodPost, "/api/v1/tasks", "good", body)
	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, q.List(), 1)

	// reads stay open
	w = serve(r, http.MethodGet, "/api/v1/tasks", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodDelete, "/api/v1/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, q.List(), 1)

	w = serve(r, http.MethodDelete, "/api/v1/tasks", "good")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, q.List())
}

func TestRouter_TasksOpenWithoutSessions(t *testing.T) {
	log := testutil.NewMockLogger()
	q := queue.New(queue.Config{}, testutil.NewMemStore(), nil, log)
	r := NewRouter(RouterConfig{
		TaskHandler: handlers.NewTaskHandler(q, log),
		CORS:        middleware.DefaultCORSConfig(),
		Logging:     middleware.DefaultLoggingConfig(),
		Logger:      log,
	})

	w := serveJSON(r, http.MethodPost, "/api/v1/tasks", "", `{"tool":"property","molecule":"CCN"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRouter_UnmountedAndUnknownRoutes(t *testing.T) {
	r := testRouter(t, nil)

	w := serve(r, http.MethodGet, "/api/v1/tasks", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "COMMON_005")
}

func TestRouter_RecordsRouteTemplates(t *testing.T) {
	rec := &httpCounts{}
	r := testRouter(t, rec)

	serve(r, http.MethodGet, "/healthz", "")
	serve(r, http.MethodGet, "/nowhere", "")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.paths, 2)
	assert.Equal(t, "/healthz", rec.paths[0])
	assert.Equal(t, "unmatched", rec.paths[1])
}

package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdelivery "github.com/erp/gs1bridge/internal/application/delivery"
	appgs1 "github.com/erp/gs1bridge/internal/application/gs1"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/infrastructure/queue"
	"github.com/erp/gs1bridge/internal/interfaces/http/handler"
	"github.com/erp/gs1bridge/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithPrefix("/api"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group)
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("gs1", "/gs1")
		assert.Equal(t, "gs1", g.Name())
		assert.Equal(t, "/gs1", g.Prefix())
	})

	t.Run("middleware applies to group and subgroups", func(t *testing.T) {
		engine := gin.New()
		var hits int
		g := NewDomainGroup("test", "/test").Use(func(c *gin.Context) {
			hits++
			c.Next()
		})
		g.POST("/a", func(c *gin.Context) { c.Status(http.StatusCreated) })
		g.Group("sub", "/sub").GET("/b", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group(""))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test/a", nil))
		assert.Equal(t, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test/sub/b", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, hits)
	})
}

type stubProcessor struct{}

func (stubProcessor) ProcessDespatchAdvice(ctx context.Context, msg *gs1.DespatchAdviceMessage) (*appgs1.DespatchResult, error) {
	return &appgs1.DespatchResult{}, nil
}

func (stubProcessor) ProcessOrderResponse(ctx context.Context, msg *gs1.OrderResponseMessage) (*appgs1.OrderResponseResult, error) {
	return &appgs1.OrderResponseResult{}, nil
}

func newEngine(t *testing.T, maxBody int64) *gin.Engine {
	t.Helper()
	qm := queue.NewMemoryQueueManager()
	engine, err := New(Config{ServiceName: "gs1bridge-test", MaxBodySize: maxBody}, Handlers{
		GS1:         handler.NewGS1Handler(stubProcessor{}, stubProcessor{}, nil, nil),
		DeadLetters: handler.NewDeadLetterHandler(appdelivery.NewDeadLetterService(qm, "gs1", nil)),
		Health:      handler.NewHealthHandler("test", nil),
	})
	require.NoError(t, err)
	return engine
}

func TestNewRegistersRoutes(t *testing.T) {
	engine := newEngine(t, 0)

	routes := map[string]bool{}
	for _, ri := range engine.Routes() {
		routes[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"POST /gs1/despatchAdvice",
		"POST /gs1/orderResponse",
		"GET /gs1/dead-letters",
		"POST /gs1/dead-letters/requeue",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestNewServesHealthWithRequestID(t *testing.T) {
	engine := newEngine(t, 0)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestNewAppliesBodyLimitToGS1Routes(t *testing.T) {
	engine := newEngine(t, 64)

	req := httptest.NewRequest(http.MethodPost, "/gs1/despatchAdvice", strings.NewReader(strings.Repeat("x", 1024)))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusBadGateway, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		l, logs := observed()
		r := gin.New()
		r.Use(GinMiddleware(l))
		r.GET("/x", func(c *gin.Context) { c.Status(tt.status) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, tt.level, entry.Level)
		assert.EqualValues(t, tt.status, entry.ContextMap()["status"])
		assert.Equal(t, "/x", entry.ContextMap()["path"])
	}
}

func TestGinMiddleware_RequestScopedLogger(t *testing.T) {
	l, logs := observed()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("request_id", "req-42")
		c.Next()
	})
	r.Use(GinMiddleware(l))

	var ctxRequestID string
	r.POST("/inbound", func(c *gin.Context) {
		ctxRequestID = GetRequestID(c.Request.Context())
		L(c.Request.Context()).Info("handled")
		GetGinLogger(c).Debug("gin logger")
		c.Status(http.StatusAccepted)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/inbound", nil))

	assert.Equal(t, "req-42", ctxRequestID)
	require.Equal(t, 3, logs.Len())
	for _, e := range logs.All() {
		assert.Equal(t, "req-42", e.ContextMap()["request_id"])
	}
}

func TestRecovery(t *testing.T) {
	l, logs := observed()
	r := gin.New()
	r.Use(Recovery(l))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Panic recovered", logs.All()[0].Message)
}

func TestGetGinLogger_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}

package utils

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestMiddlewares(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := NewLogger(&buf, true)

	router := gin.New()
	router.Use(RequestID(), LoggerMiddleware(logger), ContextLogger(logger))
	router.GET("/ping", func(c *gin.Context) {
		GetLoggerFromContext(c, nil).Info("Handling ping")
		c.String(http.StatusOK, GetRequestID(c))
	})
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	tests := []struct {
		name      string
		path      string
		requestID string
		wantLevel string
	}{
		{name: "generated id", path: "/ping", wantLevel: `"level":"INFO"`},
		{name: "propagated id", path: "/ping", requestID: "req-42", wantLevel: `"level":"INFO"`},
		{name: "server error logged as error", path: "/boom", requestID: "req-43", wantLevel: `"level":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			id := w.Header().Get(RequestIDHeader)
			assert.NotEmpty(t, id)
			if tt.requestID != "" {
				assert.Equal(t, tt.requestID, id)
			}
			assert.Contains(t, buf.String(), "HTTP Request")
			assert.Contains(t, buf.String(), tt.wantLevel)
			assert.Contains(t, buf.String(), id)
		})
	}
}

func TestGetLoggerFromContextFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fallback := NewLogger(&bytes.Buffer{}, false)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Same(t, fallback, GetLoggerFromContext(c, fallback))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORSMiddlewareHandlePreflight(t *testing.T) {
	router := gin.New()
	cors := NewCORSMiddleware([]string{"*"})
	router.Use(cors.Handle())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewareAllowsExpectedHeaders(t *testing.T) {
	router := gin.New()
	cors := NewCORSMiddleware([]string{"*"})
	router.Use(cors.Handle())
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	router.ServeHTTP(w, req)

	methods := w.Header().Get("Access-Control-Allow-Methods")
	assert.Contains(t, methods, "POST")
	assert.Contains(t, methods, "DELETE")

	headers := w.Header().Get("Access-Control-Allow-Headers")
	assert.Contains(t, headers, "Authorization")
	assert.NotContains(t, headers, "X-API-Key", "this project authenticates only via bearer token, not an X-API-Key header")
}

func TestCORSWithSpecificOrigin(t *testing.T) {
	router := gin.New()
	cors := NewCORSMiddleware([]string{"http://localhost:3000"})
	router.Use(cors.Handle())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsUnlistedOrigin(t *testing.T) {
	router := gin.New()
	cors := NewCORSMiddleware([]string{"http://localhost:3000"})
	router.Use(cors.Handle())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingMiddlewareLog(t *testing.T) {
	logging := NewLoggingMiddleware(zap.NewNop())

	router := gin.New()
	router.Use(logging.Log())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecoveryMiddlewareCatchesPanic(t *testing.T) {
	recovery := NewRecoveryMiddleware(zap.NewNop())

	router := gin.New()
	router.Use(recovery.Recover())
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRealIPPrefersCloudflareHeader(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	var got string
	r.GET("/", func(c *gin.Context) { got = c.GetString("real_ip") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-Connecting-IP", "203.0.113.7")
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "203.0.113.7", got)
}

func TestRealIPFallsBackToForwardedFor(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	var got string
	r.GET("/", func(c *gin.Context) { got = c.GetString("real_ip") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "198.51.100.1", got)
}

func TestRealIPIgnoresGarbageHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	var got string
	r.GET("/", func(c *gin.Context) { got = c.GetString("real_ip") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-Connecting-IP", "not-an-ip")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotEqual(t, "not-an-ip", got)
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var got string
	r.GET("/", func(c *gin.Context) { got = c.GetString("request_id") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, got)
	require.Equal(t, got, w.Header().Get("X-Request-ID"))
}

func TestRequestIDPreservesInbound(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "upstream-id", w.Header().Get("X-Request-ID"))
}

func TestRateLimitNilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute, KeyByIP(), nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestKeyFuncs(t *testing.T) {
	r := gin.New()
	var byIP, byPath, byUser string
	r.GET("/things/:id", func(c *gin.Context) {
		c.Set("real_ip", "203.0.113.7")
		byIP = KeyByIP()(c)
		byPath = KeyByIPAndPath()(c)
		c.Set(CtxUserIDKey, "u1")
		byUser = KeyByUserID()(c)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/42", nil))

	require.Equal(t, "rl:ip:203.0.113.7", byIP)
	require.Equal(t, "rl:path:/things/:id:ip:203.0.113.7", byPath)
	require.Equal(t, "rl:user:u1", byUser)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"carbuy-api/internal/domain"
)

type fakeAuth map[string]*domain.User

func (f fakeAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	u, ok := f[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	return u, nil
}

func engine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/who", func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.JSON(http.StatusOK, gin.H{"id": u.ID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": nil})
	})
	return r
}

func get(r http.Handler, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSession_Required(t *testing.T) {
	auth := fakeAuth{"tok": {ID: 7}}
	r := engine(Session(auth, true))

	w := get(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"session token missing"}`, w.Body.String())

	w = get(r, map[string]string{HeaderSessionToken: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, map[string]string{HeaderSessionToken: "tok"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
}

func TestSession_Optional(t *testing.T) {
	r := engine(Session(fakeAuth{"tok": {ID: 3}}, false))

	w := get(r, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":null}`, w.Body.String())

	// 带了错误令牌不能静默降级为匿名
	w = get(r, map[string]string{HeaderSessionToken: "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimit(t *testing.T) {
	r := engine(RateLimit(0, 1))
	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, nil).Code)

	r = engine(RateLimitPerIP(0, 1))
	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, nil).Code)
}

func TestMaxBodyBytes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := engine(RequestID(), AccessLog(zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/who?password=secret&brand=vw", nil)
	req.Header.Set(HeaderSessionToken, "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	rid := w.Header().Get(KeyRequestID)
	assert.NotEmpty(t, rid)

	entries := logs.FilterMessage("HTTP").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, rid, ctx["rid"])
	assert.Equal(t, "****", ctx["session"])
	q := ctx["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["password"])
	assert.Equal(t, []string{"vw"}, q["brand"])
}

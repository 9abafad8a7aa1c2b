package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-reservation/internal/config"
)

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": c.Get(CtxUserID)})
}

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func serve(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", okHandler, JWTAuth("s3cret"), RequireRole("CUSTOMER"))
	exp := time.Now().Add(time.Hour).Unix()

	rec := serve(e, http.MethodGet, "/me", sign(t, "s3cret", jwt.MapClaims{"sub": 42, "role": "CUSTOMER", "exp": exp}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":42}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/me", sign(t, "s3cret", jwt.MapClaims{"sub": "42", "role": "CUSTOMER", "exp": exp}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", sign(t, "other", jwt.MapClaims{"sub": 42, "role": "CUSTOMER", "exp": exp}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", sign(t, "s3cret", jwt.MapClaims{"sub": 42, "role": "CUSTOMER", "exp": time.Now().Add(-time.Minute).Unix()}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", sign(t, "s3cret", jwt.MapClaims{"sub": "alice", "role": "CUSTOMER", "exp": exp}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/me", sign(t, "s3cret", jwt.MapClaims{"sub": 42, "role": "OPERATOR", "exp": exp}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubject(t *testing.T) {
	for _, v := range []interface{}{float64(0), float64(1.5), "", "-3", nil, true} {
		_, ok := subject(v)
		assert.False(t, ok, "%v", v)
	}
	id, ok := subject(float64(9))
	assert.True(t, ok)
	assert.Equal(t, uint64(9), id)
}

func withUser(id uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(CtxUserID, id)
			return next(c)
		}
	}
}

func TestTokenBucket(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 5, RefillTokens: 1,
		RefillInterval: 2 * time.Second, TTL: time.Minute, Prefix: "rl",
	}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	e := echo.New()
	e.POST("/v1/occurrences/:id/holds", okHandler, withUser(7), newTokenBucket(cfg, rdb, func() time.Time { return now }))

	key := "rl:user:7:route:POST /v1/occurrences/:id/holds"
	args := []interface{}{now.UnixMilli(), 5, 1, int64(2000), int64(60)}
	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(1), int64(4), int64(0)})
	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(0), int64(0), int64(1500)})
	mock.ExpectEvalSha(tokenBucketScript.Hash(), []string{key}, args...).SetErr(errors.New("connection refused"))

	rec := serve(e, http.MethodPost, "/v1/occurrences/3/holds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/v1/occurrences/3/holds", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	rec = serve(e, http.MethodPost, "/v1/occurrences/3/holds", "")
	assert.Equal(t, http.StatusOK, rec.Code, "redis errors fail open")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/x", okHandler, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", "").Code)
}

func layoutKey(e *echo.Echo, cfg config.CacheConfig, id string) string {
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/occurrences/"+id+"/layout", nil), httptest.NewRecorder())
	c.SetPath("/v1/occurrences/:id/layout")
	c.SetParamNames("id")
	c.SetParamValues(id)
	return cacheKey(cfg, c)
}

func TestRedisCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "layout"}
	calls := 0
	e := echo.New()
	e.GET("/v1/occurrences/:id/layout", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, NewRedisCache(cfg, rdb))

	key5 := layoutKey(e, cfg, "5")
	key6 := layoutKey(e, cfg, "6")
	require.NotEqual(t, key5, key6)

	mock.ExpectGet(key5).RedisNil()
	mock.CustomMatch(func(expected, actual []interface{}) error {
		if len(actual) != 4 || actual[0] != "setex" || actual[1] != key5 {
			return errors.New("unexpected setex")
		}
		return nil
	}).ExpectSetEx(key5, "", time.Minute).SetVal("OK")

	rec := serve(e, http.MethodGet, "/v1/occurrences/5/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)

	payload, err := packResponse(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{"id":"6"}`))
	require.NoError(t, err)
	mock.ExpectGet(key6).SetVal(string(payload))

	rec = serve(e, http.MethodGet, "/v1/occurrences/6/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"id":"6"}`, rec.Body.String())
	assert.Equal(t, 1, calls)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPackResponse(t *testing.T) {
	payload, err := packResponse(http.StatusOK, http.Header{"X-A": {"1"}}, []byte("body"))
	require.NoError(t, err)
	status, header, body, ok := unpackResponse(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1", header.Get("X-A"))
	assert.Equal(t, "body", string(body))

	_, _, _, ok = unpackResponse(payload[:5])
	assert.False(t, ok)
}

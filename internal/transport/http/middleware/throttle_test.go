package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/residency-registry/internal/core/port"
	redisrepo "github.com/arklim/residency-registry/internal/repository/redis"
)

type fakeAttemptStore struct {
	window     port.AttemptWindow
	acquireErr error

	acquired []string
	resets   []string
}

func (f *fakeAttemptStore) Acquire(_ context.Context, key string, _ int, _ time.Duration, _ time.Time) (port.AttemptWindow, error) {
	f.acquired = append(f.acquired, key)
	return f.window, f.acquireErr
}

func (f *fakeAttemptStore) Reset(_ context.Context, key string) error {
	f.resets = append(f.resets, key)
	return nil
}

func fixedKey(id string) KeyFunc {
	return func(*gin.Context) (string, bool) { return id, true }
}

func newThrottledRouter(t *testing.T, store port.AttemptStore, now time.Time, status int, rules ...ThrottleRule) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	throttle := NewThrottle(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
	router := gin.New()
	router.Use(EnrichContext())
	router.POST("/login", throttle.Limit(rules...), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(status, string(body))
	})
	return router
}

func TestThrottleAllowsWhenBelowLimit(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	oldest := now.Add(-30 * time.Second)
	store := &fakeAttemptStore{window: port.AttemptWindow{Allowed: true, Count: 3, Oldest: oldest}}

	router := newThrottledRouter(t, store, now, http.StatusUnauthorized, ThrottleRule{
		Name: "login_ip", Limit: 5, Window: time.Minute, Key: fixedKey("192.0.2.1"),
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected handler status 401, got %d", rr.Code)
	}
	if len(store.acquired) != 1 || store.acquired[0] != "login_ip:192.0.2.1" {
		t.Fatalf("unexpected acquired keys %v", store.acquired)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "2" {
		t.Fatalf("expected remaining header 2, got %q", got)
	}
	expectedReset := oldest.Add(time.Minute).Unix()
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(expectedReset, 10) {
		t.Fatalf("expected reset header %d, got %q", expectedReset, got)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after header, got %q", got)
	}
}

func TestThrottleBlocksWhenWindowIsFull(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	store := &fakeAttemptStore{window: port.AttemptWindow{Allowed: false, Count: 5, Oldest: now.Add(-30 * time.Second)}}

	router := newThrottledRouter(t, store, now, http.StatusOK, ThrottleRule{
		Name: "login_ip", Limit: 5, Window: time.Minute, Key: fixedKey("192.0.2.1"), ResetOnSuccess: true,
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected retry-after 30, got %q", got)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !strings.Contains(body.Message, "30 seconds") || body.TraceID == "" {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(store.resets) != 0 {
		t.Fatalf("rejected request must not reset, got %v", store.resets)
	}
}

func TestThrottleFailsOpenOnStoreError(t *testing.T) {
	store := &fakeAttemptStore{acquireErr: errors.New("redis down")}

	router := newThrottledRouter(t, store, time.Now(), http.StatusOK, ThrottleRule{
		Name: "login_ip", Limit: 5, Window: time.Minute, Key: fixedKey("192.0.2.1"),
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when failing open, got %d", rr.Code)
	}
}

func TestThrottleResetsOnlyAfterSuccess(t *testing.T) {
	store := &fakeAttemptStore{window: port.AttemptWindow{Allowed: true, Count: 1}}
	rules := []ThrottleRule{
		{Name: "login_account", Limit: 5, Window: time.Minute, Key: fixedKey("192.0.2.1|alice"), ResetOnSuccess: true},
		{Name: "login_ip", Limit: 50, Window: time.Minute, Key: fixedKey("192.0.2.1")},
	}

	failed := newThrottledRouter(t, store, time.Now(), http.StatusUnauthorized, rules...)
	failed.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil))
	if len(store.resets) != 0 {
		t.Fatalf("failed login must not reset, got %v", store.resets)
	}

	ok := newThrottledRouter(t, store, time.Now(), http.StatusOK, rules...)
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil))
	if len(store.resets) != 1 || store.resets[0] != "login_account:192.0.2.1|alice" {
		t.Fatalf("expected only the account window reset, got %v", store.resets)
	}
}

func TestLoginAccountKeyRestoresBody(t *testing.T) {
	store := &fakeAttemptStore{window: port.AttemptWindow{Allowed: true, Count: 1}}
	router := newThrottledRouter(t, store, time.Now(), http.StatusOK, ThrottleRule{
		Name: "login_account", Limit: 5, Window: time.Minute, Key: LoginAccount(),
	})

	payload := `{"username":"  alice ","password":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(payload))
	req.RemoteAddr = "198.51.100.7:4321"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Body.String() != payload {
		t.Fatalf("handler saw body %q", rr.Body.String())
	}
	if len(store.acquired) != 1 || store.acquired[0] != "login_account:198.51.100.7|alice" {
		t.Fatalf("unexpected acquired keys %v", store.acquired)
	}

	store.acquired = nil
	garbage := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("not json"))
	router.ServeHTTP(httptest.NewRecorder(), garbage)
	if len(store.acquired) != 0 {
		t.Fatalf("unparseable body must skip the account rule, got %v", store.acquired)
	}
}

func TestThrottleSlidingWindowWithRedisStore(t *testing.T) {
	server := miniredis.RunT(t)
	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisrepo.NewAttemptStore(client, redisrepo.AttemptStoreConfig{})
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	gin.SetMode(gin.TestMode)
	throttle := NewThrottle(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(EnrichContext())
	router.POST("/login", throttle.Limit(ThrottleRule{
		Name: "login_ip", Limit: 2, Window: time.Minute, Key: ClientIP(),
	}), func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.7:4321"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send(); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, code)
		}
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", code)
	}

	now = now.Add(61 * time.Second)
	if code := send(); code != http.StatusUnauthorized {
		t.Fatalf("expected window to slide, got %d", code)
	}
}

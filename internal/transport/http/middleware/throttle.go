package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/logger"
)

// maxPeekBody bounds how much of a login body is buffered to read the username.
const maxPeekBody = 64 << 10

// KeyFunc derives the throttle key for a request. False skips the rule.
type KeyFunc func(*gin.Context) (string, bool)

// ThrottleRule is one sliding-window limit.
type ThrottleRule struct {
	Name   string
	Limit  int
	Window time.Duration
	Key    KeyFunc
	// ResetOnSuccess clears the window once the handler answers 2xx.
	ResetOnSuccess bool
}

// Throttle enforces sliding-window limits on top of an AttemptStore.
type Throttle struct {
	store  port.AttemptStore
	logger *zap.Logger
	now    func() time.Time
}

func NewThrottle(store port.AttemptStore, log *zap.Logger) *Throttle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Throttle{store: store, logger: log, now: time.Now}
}

// WithClock replaces the time source.
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	if now != nil {
		t.now = now
	}
	return t
}

// ClientIP keys a rule by the caller address.
func ClientIP() KeyFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// LoginAccount keys a rule by client address plus the username in the JSON body.
// The body is restored for the handler. Unreadable bodies skip the rule.
func LoginAccount() KeyFunc {
	return func(c *gin.Context) (string, bool) {
		if c.Request.Body == nil {
			return "", false
		}
		head, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPeekBody))
		c.Request.Body = readCloser{io.MultiReader(bytes.NewReader(head), c.Request.Body), c.Request.Body}
		if err != nil {
			return "", false
		}

		var body struct {
			Username string `json:"username"`
		}
		if json.Unmarshal(head, &body) != nil {
			return "", false
		}
		username, err := domain.NormalizeUsername(body.Username)
		if err != nil {
			return "", false
		}
		return c.ClientIP() + "|" + username, true
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

type verdict struct {
	rule      ThrottleRule
	id        string
	remaining int
	reset     time.Time
}

// Limit evaluates every rule before the handler. A store failure lets the request through.
func (t *Throttle) Limit(rules ...ThrottleRule) gin.HandlerFunc {
	active := make([]ThrottleRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Limit > 0 && rule.Window > 0 && rule.Key != nil {
			active = append(active, rule)
		}
	}

	return func(c *gin.Context) {
		if len(active) == 0 {
			c.Next()
			return
		}

		now := t.now()
		var (
			tightest *verdict
			resets   []string
		)
		for _, rule := range active {
			id, ok := rule.Key(c)
			if !ok {
				continue
			}
			key := rule.Name + ":" + id

			window, err := t.store.Acquire(c.Request.Context(), key, rule.Limit, rule.Window, now)
			if err != nil {
				t.logger.Warn("throttle check failed",
					zap.String("rule", rule.Name),
					zap.String("key", maskKey(id)),
					zap.Error(err),
				)
				continue
			}

			v := verdict{rule: rule, id: id, remaining: max(rule.Limit-window.Count, 0), reset: now.Add(rule.Window)}
			if !window.Oldest.IsZero() {
				v.reset = window.Oldest.Add(rule.Window)
			}
			if !window.Allowed {
				t.reject(c, v, now)
				return
			}
			if tightest == nil || v.remaining < tightest.remaining {
				tightest = &v
			}
			if rule.ResetOnSuccess {
				resets = append(resets, key)
			}
		}

		if tightest != nil {
			setLimitHeaders(c, *tightest)
		}
		c.Next()

		if status := c.Writer.Status(); status < 200 || status >= 300 {
			return
		}
		for _, key := range resets {
			if err := t.store.Reset(c.Request.Context(), key); err != nil {
				t.logger.Warn("throttle reset failed", zap.Error(err))
			}
		}
	}
}

func (t *Throttle) reject(c *gin.Context, v verdict, now time.Time) {
	wait := max(int(math.Ceil(v.reset.Sub(now).Seconds())), 1)

	setLimitHeaders(c, v)
	c.Header("Retry-After", strconv.Itoa(wait))

	t.logger.Info("request throttled",
		zap.String("rule", v.rule.Name),
		zap.String("key", maskKey(v.id)),
		zap.Int("retry_after_seconds", wait),
		zap.String("trace_id", GetTraceID(c)),
	)

	c.AbortWithStatusJSON(http.StatusTooManyRequests,
		newErrorResponse(c, fmt.Sprintf("too many requests, try again in %d seconds", wait)))
}

func setLimitHeaders(c *gin.Context, v verdict) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(v.rule.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))
}

// maskKey masks the address part of "ip" or "ip|username" keys.
func maskKey(id string) string {
	ip, user, found := strings.Cut(id, "|")
	if !found {
		return logger.MaskIP(id)
	}
	return logger.MaskIP(ip) + "|" + user
}

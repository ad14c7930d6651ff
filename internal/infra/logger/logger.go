package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// New returns the process-wide logger. JSON in production, colored console otherwise.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.DisableStacktrace = env == "production"

		lg, err = cfg.Build(zap.Fields(zap.String("env", env)))
	})

	return lg, err
}

// RequestIDKey stores the request identifier on a context.
type RequestIDKey struct{}

// UsernameKey stores the authenticated username on a context.
type UsernameKey struct{}

// WithContext returns the logger annotated with request-scoped fields.
func WithContext(ctx context.Context) *zap.Logger {
	base := lg
	if base == nil {
		base = zap.NewNop()
	}
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 2)
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if user, ok := ctx.Value(UsernameKey{}).(string); ok && user != "" {
		fields = append(fields, zap.String("username", user))
	}
	return base.With(fields...)
}

// MaskEmail keeps the first character of the local part and the domain.
// ana.cruz@example.com -> a***@example.com
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	switch {
	case email == "":
		return ""
	case !ok || local == "":
		return "***"
	}
	return local[:1] + "***@" + domain
}

// MaskPhone keeps the last four digits of a contact number.
func MaskPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if len(digits) <= 4 {
		if phone == "" {
			return ""
		}
		return "***"
	}
	return "***" + digits[len(digits)-4:]
}

// MaskIP hides the host part: the last two IPv4 octets or all but four IPv6 groups.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if parts := strings.Split(ip, "."); len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".*.*"
	}
	if parts := strings.Split(ip, ":"); len(parts) >= 4 {
		return strings.Join(parts[:4], ":") + ":*:*:*:*"
	}
	return "***"
}

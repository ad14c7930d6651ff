package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/security"
	"github.com/arklim/residency-registry/internal/repository"
)

const tokenTypeBearer = "Bearer"

// dummyPassword is hashed once so unknown usernames cost the same as wrong passwords.
const dummyPassword = "registry-timing-equaliser"

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	Username  string
	Role      domain.Role
}

// AuthService authenticates accounts and verifies session tokens.
type AuthService struct {
	users     port.UserRepository
	hasher    *security.PasswordHasher
	tokens    *security.TokenManager
	denylist  port.TokenDenylist
	logger    *zap.Logger
	now       func() time.Time
	dummyHash string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithTokenDenylist enables jti revocation checks.
func WithTokenDenylist(denylist port.TokenDenylist) AuthOption {
	return func(s *AuthService) {
		s.denylist = denylist
	}
}

// WithAuthClock overrides the clock used to compute revocation TTLs.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService constructs AuthService.
func NewAuthService(users port.UserRepository, hasher *security.PasswordHasher, tokens *security.TokenManager, logger *zap.Logger, opts ...AuthOption) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if hash, err := hasher.Hash(dummyPassword); err == nil {
		s.dummyHash = hash
	} else {
		logger.Warn("failed to prepare dummy password hash", zap.Error(err))
	}
	return s
}

// RevocationEnabled reports whether tokens can be revoked before expiry.
func (s *AuthService) RevocationEnabled() bool {
	return s.denylist != nil
}

// Login checks the credentials and issues a session token. It never touches the activity log.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	ctx, span := startSpan(ctx, "AuthService.Login")
	var err error
	defer func() { endSpan(span, err) }()

	name, nameErr := domain.NormalizeUsername(username)
	if nameErr != nil {
		s.burnVerify(password)
		err = ErrUserNotFound
		return LoginResult{}, err
	}

	user, err := s.users.Get(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.burnVerify(password)
			err = ErrUserNotFound
			return LoginResult{}, err
		}
		err = fmt.Errorf("load user: %w", err)
		return LoginResult{}, err
	}

	ok, verifyErr := s.hasher.Verify(password, user.PasswordHash)
	if verifyErr != nil {
		s.logger.Warn("stored password hash is unreadable",
			zap.String("username", user.Username),
			zap.Error(verifyErr),
		)
		err = ErrInvalidCredentials
		return LoginResult{}, err
	}
	if !ok {
		err = ErrInvalidCredentials
		return LoginResult{}, err
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	token, claims, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		err = fmt.Errorf("issue token: %w", err)
		return LoginResult{}, err
	}
	span.SetAttributes(attribute.String("registry.role", user.Role.String()))

	return LoginResult{
		Token:     token,
		TokenType: tokenTypeBearer,
		ExpiresAt: claims.ExpiresAt.Time,
		Username:  user.Username,
		Role:      user.Role,
	}, nil
}

// upgradeHash replaces a legacy hash after a successful login. Failures only cost
// another upgrade attempt on the next login.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	encoded, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", zap.String("username", user.Username), zap.Error(err))
		return
	}
	changedAt := user.PasswordChangedAt
	if changedAt.IsZero() {
		changedAt = s.now().UTC()
	}
	if err := s.users.UpdatePassword(ctx, user.Username, encoded, changedAt); err != nil {
		s.logger.Warn("failed to store upgraded password hash", zap.String("username", user.Username), zap.Error(err))
		return
	}
	s.logger.Info("password hash upgraded", zap.String("username", user.Username))
}

func (s *AuthService) burnVerify(password string) {
	if s.dummyHash == "" {
		return
	}
	_, _ = s.hasher.Verify(password, s.dummyHash)
}

// ParseAccessToken verifies the token and returns the caller identity.
//
// Errors wrap both the usecase sentinel and the underlying security error so callers
// can map the response and still log the precise reason.
func (s *AuthService) ParseAccessToken(ctx context.Context, raw string) (domain.Identity, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return domain.Identity{}, fmt.Errorf("%w: %w", ErrExpiredAccessToken, err)
		}
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}

	if s.denylist != nil {
		revoked, reason, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return domain.Identity{}, fmt.Errorf("check token revocation: %w", err)
		}
		if revoked {
			return domain.Identity{}, fmt.Errorf("%w: %s", ErrRevokedAccessToken, reason)
		}
	}

	identity := domain.Identity{
		Username: claims.Username,
		Role:     claims.Role,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// Revoke denylists the identity's token for the rest of its lifetime. It is a no-op when
// revocation is disabled or the token has already expired.
func (s *AuthService) Revoke(ctx context.Context, identity domain.Identity, reason string) error {
	if s.denylist == nil || identity.TokenID == "" {
		return nil
	}
	ttl := identity.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.MarkRevoked(ctx, identity.TokenID, reason, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

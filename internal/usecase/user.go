package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/domain"
	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/security"
	"github.com/arklim/residency-registry/internal/repository"
)

const passwordChangeRevocationReason = "password changed"

// TokenRevoker invalidates the token an identity was derived from.
type TokenRevoker interface {
	Revoke(ctx context.Context, identity domain.Identity, reason string) error
}

// UserService handles account administration and self-service password changes.
type UserService struct {
	users    port.UserRepository
	hasher   *security.PasswordHasher
	policy   *security.PasswordPolicy
	activity *ActivityService
	revoker  TokenRevoker
	logger   *zap.Logger
	now      func() time.Time
}

// UserOption customises a UserService.
type UserOption func(*UserService)

// WithTokenRevoker revokes the caller's token after a password change.
func WithTokenRevoker(revoker TokenRevoker) UserOption {
	return func(s *UserService) {
		s.revoker = revoker
	}
}

// NewUserService constructs UserService.
func NewUserService(users port.UserRepository, hasher *security.PasswordHasher, policy *security.PasswordPolicy, activity *ActivityService, logger *zap.Logger, opts ...UserOption) *UserService {
	if policy == nil {
		policy = security.NewPasswordPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &UserService{
		users:    users,
		hasher:   hasher,
		policy:   policy,
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListUsers returns every account as username and role, sorted by username.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]domain.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// SetRole changes the role of an existing account. It never recreates a deleted one.
func (s *UserService) SetRole(ctx context.Context, actor, username, role string) error {
	ctx, span := startSpan(ctx, "UserService.SetRole", attribute.String("registry.actor", actor))
	var err error
	defer func() { endSpan(span, err) }()

	parsed, err := domain.ParseRole(role)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidRole, err)
		return err
	}
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		err = ErrUserNotFound
		return err
	}

	if err = s.users.UpdateRole(ctx, name, parsed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrUserNotFound
			return err
		}
		err = fmt.Errorf("update role: %w", err)
		return err
	}

	s.logger.Info("user role updated",
		zap.String("username", name),
		zap.String("role", parsed.String()),
		zap.String("performed_by", actor),
	)
	s.record(ctx, domain.ActivityEntry{
		Action:          domain.ActionRoleUpdated,
		SubjectUsername: name,
		PerformedBy:     actor,
	})
	return nil
}

// DeleteUser removes an account.
func (s *UserService) DeleteUser(ctx context.Context, actor, username string) error {
	ctx, span := startSpan(ctx, "UserService.DeleteUser", attribute.String("registry.actor", actor))
	var err error
	defer func() { endSpan(span, err) }()

	name, err := domain.NormalizeUsername(username)
	if err != nil {
		err = ErrUserNotFound
		return err
	}

	if err = s.users.Delete(ctx, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrUserNotFound
			return err
		}
		err = fmt.Errorf("delete user: %w", err)
		return err
	}

	s.logger.Info("user deleted", zap.String("username", name), zap.String("performed_by", actor))
	s.record(ctx, domain.ActivityEntry{
		Action:          domain.ActionUserDeleted,
		SubjectUsername: name,
		PerformedBy:     actor,
	})
	return nil
}

// UpdateOwnPassword replaces the caller's password hash. The target account is taken
// from the verified identity only.
func (s *UserService) UpdateOwnPassword(ctx context.Context, identity domain.Identity, newPassword string) error {
	ctx, span := startSpan(ctx, "UserService.UpdateOwnPassword")
	var err error
	defer func() { endSpan(span, err) }()

	if err = s.policy.Validate(newPassword); err != nil {
		err = fmt.Errorf("%w: %v", ErrValidation, err)
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return err
	}

	if err = s.users.UpdatePassword(ctx, identity.Username, hash, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrUserNotFound
			return err
		}
		err = fmt.Errorf("update password: %w", err)
		return err
	}

	s.logger.Info("password changed", zap.String("username", identity.Username))
	s.record(ctx, domain.ActivityEntry{
		Action:          domain.ActionPasswordChanged,
		SubjectUsername: identity.Username,
		PerformedBy:     identity.Username,
	})

	if s.revoker != nil {
		if revokeErr := s.revoker.Revoke(ctx, identity, passwordChangeRevocationReason); revokeErr != nil {
			s.logger.Error("failed to revoke token after password change",
				zap.String("username", identity.Username),
				zap.Error(revokeErr),
			)
		}
	}
	return nil
}

func (s *UserService) record(ctx context.Context, entry domain.ActivityEntry) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, entry)
}

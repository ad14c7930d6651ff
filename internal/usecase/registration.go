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

// RegistrationService creates accounts.
type RegistrationService struct {
	users  port.UserRepository
	hasher *security.PasswordHasher
	policy *security.PasswordPolicy
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistrationService wires the registration flow. A nil policy falls back to the default one.
func NewRegistrationService(users port.UserRepository, hasher *security.PasswordHasher, policy *security.PasswordPolicy, logger *zap.Logger) *RegistrationService {
	if policy == nil {
		policy = security.NewPasswordPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		users:  users,
		hasher: hasher,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// Register validates the input, hashes the password and atomically creates the account.
func (s *RegistrationService) Register(ctx context.Context, username, password, role string) (domain.UserSummary, error) {
	ctx, span := startSpan(ctx, "RegistrationService.Register")
	var err error
	defer func() { endSpan(span, err) }()

	user, err := s.prepare(username, password, role)
	if err != nil {
		return domain.UserSummary{}, err
	}
	span.SetAttributes(attribute.String("registry.role", user.Role.String()))

	if err = s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			err = ErrUsernameTaken
			return domain.UserSummary{}, err
		}
		err = fmt.Errorf("create user: %w", err)
		return domain.UserSummary{}, err
	}

	s.logger.Info("user registered",
		zap.String("username", user.Username),
		zap.String("role", user.Role.String()),
	)
	return user.Summary(), nil
}

func (s *RegistrationService) prepare(username, password, role string) (domain.User, error) {
	name, err := domain.NormalizeUsername(username)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrInvalidRole, err)
	}
	if err := s.policy.Validate(password); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if score := s.policy.Strength(password, name); security.IsWeak(score) {
		s.logger.Info("weak password accepted", zap.String("username", name), zap.Int("score", score))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	return domain.User{
		Username:          name,
		PasswordHash:      hash,
		Role:              parsedRole,
		CreatedAt:         now,
		PasswordChangedAt: now,
	}, nil
}

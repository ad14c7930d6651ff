package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/arklim/residency-registry/internal/core/port"
	"github.com/arklim/residency-registry/internal/infra/config"
	"github.com/arklim/residency-registry/internal/infra/security"
	"github.com/arklim/residency-registry/internal/infra/telemetry"
	"github.com/arklim/residency-registry/internal/transport/http/routes"
	"github.com/arklim/residency-registry/internal/usecase"
)

// NewServices builds the use case layer on top of the opened stores.
func NewServices(cfg *config.AppConfig, stores *Stores, publisher port.EventPublisher, metrics *telemetry.Metrics, log *zap.Logger) (routes.ServiceSet, error) {
	hasher, err := security.NewPasswordHasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return routes.ServiceSet{}, fmt.Errorf("configure argon2: %w", err)
	}

	tokens, err := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return routes.ServiceSet{}, fmt.Errorf("init token manager: %w", err)
	}

	var authOpts []usecase.AuthOption
	if stores.Denylist != nil {
		authOpts = append(authOpts, usecase.WithTokenDenylist(stores.Denylist))
	} else if cfg.JWT.RevocationEnabled {
		log.Warn("token revocation requested but no denylist store is available")
	}

	policy := security.NewPasswordPolicy()
	auth := usecase.NewAuthService(stores.Users, hasher, tokens, log, authOpts...)
	activity := usecase.NewActivityService(stores.Activity, publisher, metrics, log)

	return routes.ServiceSet{
		Auth:         auth,
		Registration: usecase.NewRegistrationService(stores.Users, hasher, policy, log),
		Users:        usecase.NewUserService(stores.Users, hasher, policy, activity, log, usecase.WithTokenRevoker(auth)),
		Activity:     activity,
		Records:      usecase.NewRecordService(stores.Records, activity, log),
	}, nil
}

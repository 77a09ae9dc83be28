package providers

import (
	"github.com/samber/do/v2"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/config"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/ratelimit"
	"github.com/libraryapp/library-server/internal/service"
)

// AuthKey wraps the credential signing key bytes.
type AuthKey []byte

// ProvideAuthKey uses JWT_SECRET when set and otherwise loads or generates
// the key file under the data path.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if len(cfg.Auth.Secret) > 0 {
		log.Info("Authentication key loaded from configuration")
		return AuthKey(cfg.Auth.Secret), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Storage.DataPath)
	if err != nil {
		return nil, err
	}
	cfg.Auth.Secret = key

	log.Info("Authentication key loaded", "token_format", cfg.Auth.TokenFormat)
	return AuthKey(key), nil
}

// ProvideTokenIssuer provides the JWT or PASETO issuer.
func ProvideTokenIssuer(i do.Injector) (auth.TokenIssuer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenIssuer(cfg.Auth.TokenFormat, key)
}

// ProvideSharedPassword hashes the shared login password once at startup.
func ProvideSharedPassword(i do.Injector) (*auth.SharedPassword, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewSharedPassword(cfg.Auth.LoginPassword)
}

// LoginLimiterHandle wraps the login rate limiter with shutdown capability.
type LoginLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *LoginLimiterHandle) Shutdown() error {
	if h.KeyedRateLimiter != nil {
		h.Stop()
	}
	return nil
}

// Limiter returns the limiter for the account service, or nil when login
// rate limiting is disabled.
func (h *LoginLimiterHandle) Limiter() service.LoginLimiter {
	if h.KeyedRateLimiter == nil {
		return nil
	}
	return h.KeyedRateLimiter
}

// ProvideLoginLimiter provides the per-client failed-login limiter. The
// handle is empty when LOGIN_RATE_LIMIT is zero.
func ProvideLoginLimiter(i do.Injector) (*LoginLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.LoginRateLimit == 0 {
		log.Info("Login rate limiting disabled")
		return &LoginLimiterHandle{}, nil
	}

	limiter := ratelimit.New(cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateBurst)
	log.Info("Login rate limiting enabled",
		"rate", cfg.Auth.LoginRateLimit,
		"burst", cfg.Auth.LoginRateBurst)
	return &LoginLimiterHandle{KeyedRateLimiter: limiter}, nil
}

// ProvideContextBuilder provides the per-request credential resolver.
func ProvideContextBuilder(i do.Injector) (*auth.ContextBuilder, error) {
	issuer := do.MustInvoke[auth.TokenIssuer](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return auth.NewContextBuilder(issuer, storeHandle.Gateway, log.Logger), nil
}

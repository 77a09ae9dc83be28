// Package di provides dependency injection configuration for the library server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/config"
	"github.com/libraryapp/library-server/internal/di/providers"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/metrics"
	"github.com/libraryapp/library-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Persistence and events
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideEventBus)
	do.Provide(injector, providers.ProvideSSEManager)

	// Auth layer
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenIssuer)
	do.Provide(injector, providers.ProvideSharedPassword)
	do.Provide(injector, providers.ProvideLoginLimiter)
	do.Provide(injector, providers.ProvideContextBuilder)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideAccountService)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services. Any provider error aborts startup.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.BusHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)

	if _, err := do.Invoke[auth.TokenIssuer](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.SharedPassword](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*auth.ContextBuilder](injector)

	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*service.AccountService](injector)

	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	return nil
}

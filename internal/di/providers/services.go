package providers

import (
	"github.com/samber/do/v2"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/service"
	"github.com/libraryapp/library-server/internal/validation"
)

// ProvideValidator provides the record validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCatalogService provides the book and author service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bus := do.MustInvoke[*BusHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.Gateway, bus.Bus, v, log.Logger), nil
}

// ProvideAccountService provides the user and login service.
func ProvideAccountService(i do.Injector) (*service.AccountService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	issuer := do.MustInvoke[auth.TokenIssuer](i)
	password := do.MustInvoke[*auth.SharedPassword](i)
	limiter := do.MustInvoke[*LoginLimiterHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAccountService(storeHandle.Gateway, issuer, password, limiter.Limiter(), v, log.Logger), nil
}

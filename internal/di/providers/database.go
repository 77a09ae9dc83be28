package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/libraryapp/library-server/internal/config"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/service"
	"github.com/libraryapp/library-server/internal/store"
	"github.com/libraryapp/library-server/internal/store/sqlite"
)

var (
	_ service.Gateway = (*store.Store)(nil)
	_ service.Gateway = (*sqlite.Store)(nil)
)

// StoreHandle wraps the selected persistence backend with shutdown capability.
type StoreHandle struct {
	service.Gateway
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the backend named by STORE_BACKEND.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	gateway, path, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "backend", cfg.Storage.Backend, "path", path)
	return &StoreHandle{Gateway: gateway}, nil
}

// OpenStore opens the configured backend under the data path. The seed
// command shares it with the server.
func OpenStore(cfg *config.Config, log *logger.Logger) (service.Gateway, string, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		path := filepath.Join(cfg.Storage.DataPath, "library.db")
		db, err := sqlite.Open(path, log.Logger)
		return db, path, err
	default:
		path := filepath.Join(cfg.Storage.DataPath, "db")
		db, err := store.New(path, log.Logger)
		return db, path, err
	}
}

package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/libraryapp/library-server/internal/config"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/search"
	"github.com/libraryapp/library-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability. The
// index is nil when search is disabled.
type SearchIndexHandle struct {
	*search.SearchIndex
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	if h.SearchIndex == nil {
		return nil
	}
	h.cancel()
	return h.Close()
}

// ProvideSearchIndex opens the bleve index, rebuilds it from the catalog
// in the background and keeps it current from the event bus.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Search.Enabled {
		log.Info("Search index disabled by configuration")
		return &SearchIndexHandle{}, nil
	}

	catalog := do.MustInvoke[*service.CatalogService](i)
	bus := do.MustInvoke[*BusHandle](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Storage.DataPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	ctx, cancel := context.WithCancel(context.Background())
	indexer := search.NewIndexer(index, catalog, bus.Bus, log.Logger)

	// Subscribe before the rebuild so books added meanwhile are not missed.
	go indexer.Run(ctx)
	go func() {
		if err := indexer.Reindex(ctx); err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		count, _ := index.DocumentCount()
		log.Info("Initial search reindex completed", "documents", count)
	}()

	return &SearchIndexHandle{SearchIndex: index, cancel: cancel}, nil
}

package graph

import (
	"context"
	"log/slog"

	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/service"
)

// Subscriber opens a stream of bus events.
type Subscriber interface {
	Subscribe(ctx context.Context, topic pubsub.Topic) (<-chan pubsub.Event, func())
}

// Resolver is the root resolver. It holds the services every field
// resolves through.
type Resolver struct {
	catalog  *service.CatalogService
	accounts *service.AccountService
	events   Subscriber
	logger   *slog.Logger
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(catalog *service.CatalogService, accounts *service.AccountService, events Subscriber, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog:  catalog,
		accounts: accounts,
		events:   events,
		logger:   logger,
	}
}

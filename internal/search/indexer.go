package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/service"
)

// Catalog lists the books to load into a fresh index.
type Catalog interface {
	AllBooks(ctx context.Context, filter service.BookFilter) ([]*domain.PopulatedBook, error)
}

// Subscriber opens a stream of bus events.
type Subscriber interface {
	Subscribe(ctx context.Context, topic pubsub.Topic) (<-chan pubsub.Event, func())
}

// Indexer fills the index from the catalog and then follows BOOK_ADDED
// events so new books become searchable as soon as they are stored.
type Indexer struct {
	index   *SearchIndex
	catalog Catalog
	events  Subscriber
	logger  *slog.Logger
}

// NewIndexer creates an indexer writing into index.
func NewIndexer(index *SearchIndex, catalog Catalog, events Subscriber, logger *slog.Logger) *Indexer {
	return &Indexer{
		index:   index,
		catalog: catalog,
		events:  events,
		logger:  logger,
	}
}

// Reindex replaces the index content with every book in the catalog. The
// index is cleared before the catalog is listed, so a book indexed by a
// running Run loop is never lost to the rebuild.
func (i *Indexer) Reindex(ctx context.Context) error {
	if err := i.index.Rebuild(); err != nil {
		return err
	}

	books, err := i.catalog.AllBooks(ctx, service.BookFilter{})
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	docs := make([]*BookDocument, 0, len(books))
	for _, b := range books {
		docs = append(docs, FromBook(b))
	}
	if err := i.index.IndexBooks(docs); err != nil {
		return err
	}

	i.logger.Info("search index loaded", slog.Int("books", len(docs)))
	return nil
}

// Run subscribes to the bus and indexes each added book until ctx is done.
func (i *Indexer) Run(ctx context.Context) {
	events, cancel := i.events.Subscribe(ctx, pubsub.TopicBookAdded)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if evt.Book == nil {
				continue
			}
			if err := i.index.IndexBook(FromBook(evt.Book)); err != nil {
				i.logger.Error("failed to index book",
					slog.String("book_id", evt.Book.ID),
					slog.String("error", err.Error()))
				continue
			}
			i.logger.Debug("book indexed", slog.String("book_id", evt.Book.ID))
		}
	}
}

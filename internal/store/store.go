// Package store provides the badger-backed persistence gateway for the catalog.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/libraryapp/library-server/internal/domain"
)

// Key prefixes per record kind.
const (
	authorPrefix = "author:"
	bookPrefix   = "book:"
	userPrefix   = "user:"
)

// Index names.
const (
	indexName     = "name"
	indexTitle    = "title"
	indexAuthor   = "author"
	indexGenre    = "genre"
	indexUsername = "username"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	authors *Entity[domain.Author]
	books   *Entity[domain.Book]
	users   *Entity[domain.User]
}

// New opens (or creates) the badger database at path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Badger's internal logging is too chatty
	opts.SyncWrites = true       // Survive crashes without losing acknowledged writes
	opts.CompactL0OnClose = true // Faster startup next time

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{db: db, logger: logger}

	s.authors = NewEntity[domain.Author](s, authorPrefix).
		WithUniqueIndex(indexName, func(a *domain.Author) []string {
			return []string{a.Name}
		})

	s.books = NewEntity[domain.Book](s, bookPrefix).
		WithUniqueIndex(indexTitle, func(b *domain.Book) []string {
			return []string{b.Title}
		}).
		WithMemberIndex(indexAuthor, func(b *domain.Book) []string {
			return []string{b.AuthorID}
		}).
		WithMemberIndex(indexGenre, func(b *domain.Book) []string {
			return uniqueStrings(b.Genres)
		})

	s.users = NewEntity[domain.User](s, userPrefix).
		WithUniqueIndex(indexUsername, func(u *domain.User) []string {
			return []string{u.Username}
		})

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping verifies the database answers a read.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(userPrefix))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func collect[T any](seq iter.Seq2[*T, error]) ([]*T, error) {
	out := make([]*T, 0)
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// inCreationOrder sorts records oldest first. Primary keys are random ids,
// so key order says nothing about when a record was written.
func inCreationOrder[T any](items []*T, err error, record func(*T) *domain.Record) ([]*T, error) {
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b *T) int {
		return domain.CompareCreated(record(a), record(b))
	})
	return items, nil
}

func bookRecord(b *domain.Book) *domain.Record { return &b.Record }

func authorRecord(a *domain.Author) *domain.Record { return &a.Record }

// uniqueStrings drops repeated values so a book tagged twice with the same
// genre writes its membership key once.
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

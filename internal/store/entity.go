package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for any domain type stored as JSON.
type Entity[T any] struct {
	store   *Store
	prefix  string
	unique  []Index[T]
	members []Index[T]
}

// Index defines a secondary index on an entity.
// Unique indexes map one value to one id; membership indexes map a value to
// any number of ids.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T under key prefix.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// WithUniqueIndex adds a unique secondary index. Create and Update fail with
// ErrAlreadyExists when another record already holds one of the values.
func (e *Entity[T]) WithUniqueIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.unique = append(e.unique, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithMemberIndex adds a non-unique secondary index.
func (e *Entity[T]) WithMemberIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.members = append(e.members, Index[T]{name: name, keyGen: keyGen})
	return e
}

// Create stores a new entity with the given ID.
// Returns ErrAlreadyExists if the ID or any unique index value is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(entityKey(e.prefix, id))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := e.checkUnique(txn, entity, nil); err != nil {
			return err
		}

		if err := txn.Set(entityKey(e.prefix, id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}

		return e.writeIndexes(txn, id, entity)
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetByIndex retrieves an entity through a unique index.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		id, err := e.lookupTxn(txn, indexName, value)
		if err != nil {
			return err
		}
		entity, err = e.getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// UpdateByIndex finds an entity through a unique index, applies mutate and
// writes the result back, all inside one transaction. Badger aborts the
// commit with ErrConflict if another writer touched the record concurrently,
// so the read and the write can never interleave with a competing update.
func (e *Entity[T]) UpdateByIndex(ctx context.Context, indexName, value string, mutate func(*T) error) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated *T
	err := e.store.db.Update(func(txn *badger.Txn) error {
		id, err := e.lookupTxn(txn, indexName, value)
		if err != nil {
			return err
		}

		current, err := e.getTxn(txn, id)
		if err != nil {
			return err
		}
		old := *current

		if err := mutate(current); err != nil {
			return err
		}

		if err := e.deleteIndexes(txn, id, &old); err != nil {
			return err
		}
		if err := e.checkUnique(txn, current, &old); err != nil {
			return err
		}

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to marshal entity: %w", err)
		}
		if err := txn.Set(entityKey(e.prefix, id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		if err := e.writeIndexes(txn, id, current); err != nil {
			return err
		}

		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				item := it.Item()
				if isIndexKey(e.prefix, item.Key()) {
					continue
				}

				var entity T
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				}); err != nil {
					err = fmt.Errorf("failed to unmarshal entity: %w", err)
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil
				}
			}
			return nil
		})
	}
}

// ListByIndex returns every entity whose membership index holds value.
func (e *Entity[T]) ListByIndex(ctx context.Context, indexName, value string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := memberIndexPrefix(e.prefix, indexName, value)
	out := make([]*T, 0)

	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			id := string(it.Item().Key()[len(prefix):])
			entity, err := e.getTxn(txn, id)
			if err != nil {
				return fmt.Errorf("resolve index %s entry %s: %w", indexName, id, err)
			}
			out = append(out, entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stored entities without decoding them.
func (e *Entity[T]) Count(ctx context.Context) (int, error) {
	return e.countPrefix(ctx, []byte(e.prefix), true)
}

// CountByIndex returns how many entities a membership index holds under value.
func (e *Entity[T]) CountByIndex(ctx context.Context, indexName, value string) (int, error) {
	return e.countPrefix(ctx, memberIndexPrefix(e.prefix, indexName, value), false)
}

func (e *Entity[T]) countPrefix(ctx context.Context, prefix []byte, skipIndexes bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipIndexes && isIndexKey(e.prefix, it.Item().Key()) {
				continue
			}
			count++
		}
		return nil
	})
	return count, err
}

func (e *Entity[T]) getTxn(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(entityKey(e.prefix, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

func (e *Entity[T]) lookupTxn(txn *badger.Txn, indexName, value string) (string, error) {
	item, err := txn.Get(uniqueIndexKey(e.prefix, indexName, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get index key: %w", err)
	}

	var id string
	err = item.Value(func(val []byte) error {
		id = string(val)
		return nil
	})
	return id, err
}

// checkUnique fails when a unique value of entity is held by another record.
// Values that old already held are skipped, since they belong to the record being rewritten.
func (e *Entity[T]) checkUnique(txn *badger.Txn, entity, old *T) error {
	for _, idx := range e.unique {
		held := make(map[string]bool)
		if old != nil {
			for _, v := range idx.keyGen(old) {
				held[v] = true
			}
		}

		for _, v := range idx.keyGen(entity) {
			if held[v] {
				continue
			}
			_, err := txn.Get(uniqueIndexKey(e.prefix, idx.name, v))
			if err == nil {
				return Duplicate(idx.name, v)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) writeIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.unique {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Set(uniqueIndexKey(e.prefix, idx.name, v), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	for _, idx := range e.members {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Set(memberIndexKey(e.prefix, idx.name, v, id), []byte{}); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) deleteIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.unique {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Delete(uniqueIndexKey(e.prefix, idx.name, v)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	for _, idx := range e.members {
		for _, v := range idx.keyGen(entity) {
			if err := txn.Delete(memberIndexKey(e.prefix, idx.name, v, id)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}

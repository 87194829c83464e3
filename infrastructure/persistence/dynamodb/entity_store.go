package dynamodb

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
	pkgerrors "handswers-backend/pkg/errors"
)

// EntityStore reads and writes the polymorphic Entities table. Items
// cross this boundary only as entities.Record values.
type EntityStore struct {
	table  *Table
	logger *zap.Logger
}

// NewEntityStore creates the Entities table store.
func NewEntityStore(client DBClient, tableName string, retry RetryPolicy, logger *zap.Logger) *EntityStore {
	return &EntityStore{
		table:  NewTable(client, tableName, entities.AttrPK, retry, logger),
		logger: logger,
	}
}

// Get returns the record at key or ports.ErrNotFound.
func (s *EntityStore) Get(ctx context.Context, key valueobjects.Key) (entities.Record, error) {
	item, err := s.table.Get(ctx, keyItem(key))
	if err != nil {
		return nil, err
	}
	return s.decode(item)
}

// Put writes rec, overwriting any item at the same key.
func (s *EntityStore) Put(ctx context.Context, rec entities.Record) error {
	item, err := encodeRecord(rec)
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode record").WithCause(err)
	}
	_, err = s.table.Create(ctx, item)
	return err
}

// Delete removes the record at key and returns it as it was.
func (s *EntityStore) Delete(ctx context.Context, key valueobjects.Key) (entities.Record, error) {
	item, err := s.table.Delete(ctx, keyItem(key))
	if err != nil {
		return nil, err
	}
	return s.decode(item)
}

// Update applies a partial update to an existing record.
func (s *EntityStore) Update(ctx context.Context, key valueobjects.Key, upd entities.Update) (entities.Record, error) {
	item, err := s.table.Update(ctx, keyItem(key), upd)
	if err != nil {
		return nil, err
	}
	return s.decode(item)
}

// Query returns one page of records.
func (s *EntityStore) Query(ctx context.Context, spec QuerySpec, page, pageSize int) ([]entities.Record, error) {
	items, err := s.table.Query(ctx, spec, page, pageSize)
	if err != nil {
		return nil, err
	}
	out := make([]entities.Record, 0, len(items))
	for _, item := range items {
		rec, err := s.decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// QueryKeys returns the primary keys of one page. Index queries return
// the table key attributes alongside the index ones.
func (s *EntityStore) QueryKeys(ctx context.Context, spec QuerySpec, page, pageSize int) ([]valueobjects.Key, error) {
	items, err := s.table.Query(ctx, spec, page, pageSize)
	if err != nil {
		return nil, err
	}
	keys := make([]valueobjects.Key, 0, len(items))
	for _, item := range items {
		k, err := keyFromItem(item)
		if err != nil {
			return nil, pkgerrors.NewInternalError("malformed entity key").WithCause(err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// DeleteKeys batch-deletes keys; see Table.BatchDelete.
func (s *EntityStore) DeleteKeys(ctx context.Context, keys []valueobjects.Key) (ports.BatchResult, error) {
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, keyItem(k))
	}
	return s.table.BatchDelete(ctx, items)
}

func (s *EntityStore) decode(item Item) (entities.Record, error) {
	rec, err := decodeRecord(item)
	if err != nil {
		s.logger.Error("Undecodable entity item", zap.Error(err))
		return nil, pkgerrors.NewInternalError("malformed entity item").WithCause(err)
	}
	return rec, nil
}

// as narrows a decoded record to the variant a repository expects.
func as[T entities.Record](rec entities.Record, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := rec.(T)
	if !ok {
		return zero, pkgerrors.NewInternalError("unexpected record kind").
			WithCause(fmt.Errorf("want %T, got %s at %s", zero, rec.Kind(), rec.Key()))
	}
	return v, nil
}

func asSlice[T entities.Record](recs []entities.Record, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := as[T](rec, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

var _ ports.EntityCleaner = (*EntityStore)(nil)

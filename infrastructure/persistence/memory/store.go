// Package memory keeps every table in process memory. It backs the
// STORAGE_BACKEND=memory mode used for local runs and service tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
)

// Store holds the Entities, Users and Schools tables.
type Store struct {
	mu       sync.RWMutex
	entities map[string]map[string]entities.Record // PK -> SK -> record
	users    map[string]entities.User
	schools  map[string]entities.School

	deleteBatches []int
}

func NewStore() *Store {
	return &Store{
		entities: make(map[string]map[string]entities.Record),
		users:    make(map[string]entities.User),
		schools:  make(map[string]entities.School),
	}
}

// DeleteBatchSizes lists the size of every DeleteKeys call so far.
func (s *Store) DeleteBatchSizes() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.deleteBatches)
}

// EntityCount is the number of records under partitions with prefix.
func (s *Store) EntityCount(pkPrefix string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for pk, part := range s.entities {
		if strings.HasPrefix(pk, pkPrefix) {
			n += len(part)
		}
	}
	return n
}

func clone(rec entities.Record) entities.Record {
	switch r := rec.(type) {
	case *entities.Room:
		c := *r
		return &c
	case *entities.Question:
		c := *r
		return &c
	case *entities.Message:
		c := *r
		return &c
	}
	return rec
}

func (s *Store) put(rec entities.Record) {
	k := rec.Key()
	part, ok := s.entities[k.PK]
	if !ok {
		part = make(map[string]entities.Record)
		s.entities[k.PK] = part
	}
	part[k.SK] = clone(rec)
}

func (s *Store) get(k valueobjects.Key) (entities.Record, bool) {
	rec, ok := s.entities[k.PK][k.SK]
	if !ok {
		return nil, false
	}
	return clone(rec), true
}

func (s *Store) remove(k valueobjects.Key) (entities.Record, bool) {
	part := s.entities[k.PK]
	rec, ok := part[k.SK]
	if !ok {
		return nil, false
	}
	delete(part, k.SK)
	if len(part) == 0 {
		delete(s.entities, k.PK)
	}
	return rec, true
}

// partition returns records of pk whose SK has prefix, ordered by SK.
func (s *Store) partition(pk, skPrefix string, descending bool) []entities.Record {
	part := s.entities[pk]
	sks := make([]string, 0, len(part))
	for sk := range part {
		if strings.HasPrefix(sk, skPrefix) {
			sks = append(sks, sk)
		}
	}
	sort.Strings(sks)
	if descending {
		slices.Reverse(sks)
	}
	out := make([]entities.Record, 0, len(sks))
	for _, sk := range sks {
		out = append(out, clone(part[sk]))
	}
	return out
}

// all returns every record matching keep in key order.
func (s *Store) all(keep func(entities.Record) bool) []entities.Record {
	var out []entities.Record
	for _, part := range s.entities {
		for _, rec := range part {
			if keep(rec) {
				out = append(out, clone(rec))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().String() < out[j].Key().String() })
	return out
}

func pageOf[T any](items []T, page, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 15
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+pageSize, len(items))
	return slices.Clone(items[start:end])
}

func narrow[T entities.Record](recs []entities.Record) []T {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// DeleteKeys removes keys in one call; there is no partial failure.
func (s *Store) DeleteKeys(_ context.Context, keys []valueobjects.Key) (ports.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteBatches = append(s.deleteBatches, len(keys))
	for _, k := range keys {
		s.remove(k)
	}
	return ports.BatchResult{Requested: len(keys), Processed: len(keys), Requests: 1}, nil
}

var _ ports.EntityCleaner = (*Store)(nil)

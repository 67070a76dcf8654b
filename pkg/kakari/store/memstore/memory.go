package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/kakari/pkg/kakari/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu       sync.RWMutex
	records  map[string]store.Record
	features map[string]int64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		records:  make(map[string]store.Record),
		features: make(map[string]int64),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// PutRecord inserts or replaces a record, keyed by ID.
func (s *Store) PutRecord(ctx context.Context, r store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return nil
	}

	if old, ok := s.records[r.ID]; ok {
		s.countFeatures(old, -1)
	}
	r = copyRecord(r)
	s.records[r.ID] = r
	s.countFeatures(r, 1)
	return nil
}

func (s *Store) countFeatures(r store.Record, delta int64) {
	for _, c := range r.Chunks {
		for _, f := range c.Features {
			s.features[f] += delta
			if s.features[f] <= 0 {
				delete(s.features, f)
			}
		}
	}
}

// GetRecord returns a record by ID.
func (s *Store) GetRecord(ctx context.Context, id string) (store.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.records[id]; ok {
		return copyRecord(r), true, nil
	}
	return store.Record{}, false, nil
}

// CountRecords returns the number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// TopFeatures returns the k most frequent features starting with prefix.
func (s *Store) TopFeatures(ctx context.Context, prefix string, k int) ([]store.FeatureCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 {
		k = 20
	}

	var out []store.FeatureCount
	for f, n := range s.features {
		if strings.HasPrefix(f, prefix) {
			out = append(out, store.FeatureCount{Feature: f, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Feature < out[j].Feature
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func copyRecord(r store.Record) store.Record {
	chunks := make([]store.ChunkRecord, len(r.Chunks))
	for i, c := range r.Chunks {
		c.Features = append([]string(nil), c.Features...)
		chunks[i] = c
	}
	r.Chunks = chunks
	return r
}

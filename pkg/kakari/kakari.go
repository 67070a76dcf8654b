package kakari

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/kakari/pkg/kakari/internalerr"
	"github.com/cognicore/kakari/pkg/kakari/selector"
	"github.com/cognicore/kakari/pkg/kakari/store"
	"github.com/cognicore/kakari/pkg/kakari/tree"
)

// Kakari runs head/function selection over sentences and records the
// emitted features
type Kakari struct {
	selector *selector.Selector
	store    store.Store
	now      func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Kakari instance
type Options struct {
	Selector *selector.Selector
	Store    store.Store      // optional; records are not persisted when nil
	Now      func() time.Time // optional; defaults to time.Now
}

// New creates a Kakari instance with the given dependencies
func New(opts Options) *Kakari {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Kakari{
		selector: opts.Selector,
		store:    opts.Store,
		now:      now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Close cleanly shuts down the Kakari instance
func (k *Kakari) Close() error {
	if k.selector != nil {
		if err := k.selector.Close(); err != nil {
			return err
		}
	}
	if k.store != nil {
		return k.store.Close()
	}
	return nil
}

// Process selects heads and features for t and returns the resulting record.
// The record is persisted when a store is configured.
func (k *Kakari) Process(ctx context.Context, t *tree.Tree) (store.Record, error) {
	if t == nil {
		return store.Record{}, fmt.Errorf("process: nil tree: %w", internalerr.ErrInvalidInput)
	}
	if k.selector == nil {
		return store.Record{}, fmt.Errorf("process: no selector: %w", internalerr.ErrInvalidConfig)
	}
	if err := k.selector.Parse(t); err != nil {
		return store.Record{}, err
	}

	rec := NewRecord(t)
	rec.CreatedAt = k.now().UTC()
	rec.ID = k.newID(rec.CreatedAt)

	if k.store != nil {
		if err := k.store.PutRecord(ctx, rec); err != nil {
			return store.Record{}, fmt.Errorf("store record %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

// Record returns a stored record by ID
func (k *Kakari) Record(ctx context.Context, id string) (store.Record, error) {
	if k.store == nil {
		return store.Record{}, fmt.Errorf("record %s: no store: %w", id, internalerr.ErrNotFound)
	}
	rec, ok, err := k.store.GetRecord(ctx, id)
	if err != nil {
		return store.Record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	if !ok {
		return store.Record{}, fmt.Errorf("record %s: %w", id, internalerr.ErrNotFound)
	}
	return rec, nil
}

func (k *Kakari) newID(at time.Time) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), k.entropy).String()
}

// NewRecord copies the selection results of t into a record without an ID
func NewRecord(t *tree.Tree) store.Record {
	rec := store.Record{
		PosSet: t.PosSet().String(),
		Chunks: make([]store.ChunkRecord, t.ChunkSize()),
	}
	for i := range rec.Chunks {
		c := t.Chunk(i)
		rec.Chunks[i] = store.ChunkRecord{
			Index:     i,
			TokenPos:  c.TokenPos,
			TokenSize: c.TokenSize,
			HeadPos:   c.HeadPos,
			FuncPos:   c.FuncPos,
			Features:  append([]string(nil), c.FeatureList...),
		}
	}
	return rec
}

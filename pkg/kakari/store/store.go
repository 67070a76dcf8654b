package store

import (
	"context"
	"strings"
	"time"
)

// Store persists the feature records produced by selection
type Store interface {
	Close() error

	// Records
	PutRecord(ctx context.Context, r Record) error
	GetRecord(ctx context.Context, id string) (Record, bool, error)
	CountRecords(ctx context.Context) (int64, error)

	// Features
	TopFeatures(ctx context.Context, prefix string, k int) ([]FeatureCount, error)
}

// Record is the selection result of one sentence
type Record struct {
	ID        string
	PosSet    string
	CreatedAt time.Time
	Chunks    []ChunkRecord
}

// ChunkRecord is the selection result of one chunk. HeadPos and FuncPos
// are offsets from TokenPos.
type ChunkRecord struct {
	Index     int
	TokenPos  int
	TokenSize int
	HeadPos   int
	FuncPos   int
	Features  []string
}

// FeatureCount is how often a feature occurs across stored chunks
type FeatureCount struct {
	Feature string
	Count   int64
}

// FeatureName returns the NAME part of a NAME:VALUE feature
func FeatureName(feature string) string {
	if i := strings.IndexByte(feature, ':'); i >= 0 {
		return feature[:i]
	}
	return feature
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/kakari/pkg/kakari/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	posset TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	record_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	token_pos INTEGER NOT NULL,
	token_size INTEGER NOT NULL,
	head_pos INTEGER NOT NULL,
	func_pos INTEGER NOT NULL,
	PRIMARY KEY(record_id, idx),
	FOREIGN KEY(record_id) REFERENCES records(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS chunk_features (
	record_id TEXT NOT NULL,
	chunk_idx INTEGER NOT NULL,
	ord INTEGER NOT NULL,
	feature TEXT NOT NULL,
	PRIMARY KEY(record_id, chunk_idx, ord),
	FOREIGN KEY(record_id) REFERENCES records(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS chunk_features_feature ON chunk_features(feature);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// PutRecord inserts or replaces a record and its chunks
func (s *sqliteStore) PutRecord(ctx context.Context, r store.Record) error {
	if r.ID == "" {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO records (id, posset, created_at)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	posset=excluded.posset,
	created_at=excluded.created_at;
`
	if _, err := tx.ExecContext(ctx, stmt, r.ID, r.PosSet, r.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}

	if err := replaceChunks(ctx, tx, r.ID, r.Chunks); err != nil {
		return err
	}

	return tx.Commit()
}

func replaceChunks(ctx context.Context, tx *sql.Tx, id string, chunks []store.ChunkRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_features WHERE record_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE record_id=?`, id); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (record_id, idx, token_pos, token_size, head_pos, func_pos)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	featStmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunk_features (record_id, chunk_idx, ord, feature) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer featStmt.Close()

	for _, c := range chunks {
		if _, err := chunkStmt.ExecContext(ctx, id, c.Index, c.TokenPos, c.TokenSize, c.HeadPos, c.FuncPos); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
		for ord, f := range c.Features {
			if _, err := featStmt.ExecContext(ctx, id, c.Index, ord, f); err != nil {
				return fmt.Errorf("insert feature %q: %w", f, err)
			}
		}
	}
	return nil
}

// GetRecord retrieves a record by ID
func (s *sqliteStore) GetRecord(ctx context.Context, id string) (store.Record, bool, error) {
	var (
		r         store.Record
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, posset, created_at FROM records WHERE id = ?`, id,
	).Scan(&r.ID, &r.PosSet, &createdAt)
	if err == sql.ErrNoRows {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, err
	}

	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return store.Record{}, false, fmt.Errorf("record %s: created_at: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT idx, token_pos, token_size, head_pos, func_pos
FROM chunks WHERE record_id = ?
ORDER BY idx`, id)
	if err != nil {
		return store.Record{}, false, err
	}
	defer rows.Close()

	pos := make(map[int]int)
	for rows.Next() {
		var c store.ChunkRecord
		if err := rows.Scan(&c.Index, &c.TokenPos, &c.TokenSize, &c.HeadPos, &c.FuncPos); err != nil {
			return store.Record{}, false, err
		}
		pos[c.Index] = len(r.Chunks)
		r.Chunks = append(r.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return store.Record{}, false, err
	}

	frows, err := s.db.QueryContext(ctx, `
SELECT chunk_idx, feature
FROM chunk_features WHERE record_id = ?
ORDER BY chunk_idx, ord`, id)
	if err != nil {
		return store.Record{}, false, err
	}
	defer frows.Close()

	for frows.Next() {
		var (
			idx     int
			feature string
		)
		if err := frows.Scan(&idx, &feature); err != nil {
			return store.Record{}, false, err
		}
		if i, ok := pos[idx]; ok {
			r.Chunks[i].Features = append(r.Chunks[i].Features, feature)
		}
	}
	if err := frows.Err(); err != nil {
		return store.Record{}, false, err
	}

	return r, true, nil
}

// CountRecords returns the number of stored records
func (s *sqliteStore) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

// TopFeatures returns the k most frequent features starting with prefix
func (s *sqliteStore) TopFeatures(ctx context.Context, prefix string, k int) ([]store.FeatureCount, error) {
	if k <= 0 {
		k = 20
	}

	var (
		rows *sql.Rows
		err  error
	)
	if prefix == "" {
		rows, err = s.db.QueryContext(ctx, `
SELECT feature, COUNT(*) AS n
FROM chunk_features
GROUP BY feature
ORDER BY n DESC, feature ASC
LIMIT ?;
`, k)
	} else {
		// instr rather than LIKE: LIKE folds ASCII case
		rows, err = s.db.QueryContext(ctx, `
SELECT feature, COUNT(*) AS n
FROM chunk_features
WHERE instr(feature, ?) = 1
GROUP BY feature
ORDER BY n DESC, feature ASC
LIMIT ?;
`, prefix, k)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.FeatureCount
	for rows.Next() {
		var fc store.FeatureCount
		if err := rows.Scan(&fc.Feature, &fc.Count); err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

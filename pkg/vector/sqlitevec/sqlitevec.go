// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/vector"
)

// SQLiteVecDriver implements vector.Driver using SQLite with sqlite-vec.
type SQLiteVecDriver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database (the default for docschat,
	// since the index is rebuilt from the corpus on every run).
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewSQLiteVecDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewSQLiteVecDriver(c Config, logger *zap.Logger) (*SQLiteVecDriver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// Create the passage mapping table.
	// vec0 virtual tables use integer rowids, so we need a mapping from
	// string passage IDs to integer rowids. Text, link and group live here
	// so Query can return full matches without a second lookup.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_passages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			passage_id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			group_id TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating passages table: %w", err)
	}

	// Create the vec0 virtual table for vector storage and KNN queries.
	// Cosine distance keeps scores monotonic with cosine similarity.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &SQLiteVecDriver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Add stores passages with their embeddings.
// If a passage with the same ID already exists, it is updated.
func (d *SQLiteVecDriver) Add(ctx context.Context, passages []vector.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range passages {
		embBlob := serializeFloat32(p.Embedding)

		// Check if the passage already exists
		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_passages WHERE passage_id = ?`, p.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			// Passage exists — update fields and embedding
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_passages SET text = ?, link = ?, group_id = ? WHERE rowid = ?`,
				p.Text, p.Link, p.GroupID, existingRowID,
			); err != nil {
				return fmt.Errorf("updating passage %s: %w", p.ID, err)
			}

			// Update embedding in vec0 table via DELETE + INSERT
			// (vec0 does not support UPDATE)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for passage %s: %w", p.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existingRowID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for passage %s: %w", p.ID, err)
			}
		case sql.ErrNoRows:
			// New passage — insert into mapping table first to get the rowid
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_passages(passage_id, text, link, group_id) VALUES (?, ?, ?, ?)`,
				p.ID, p.Text, p.Link, p.GroupID,
			)
			if err != nil {
				return fmt.Errorf("inserting passage %s: %w", p.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for passage %s: %w", p.ID, err)
			}

			// Insert embedding into vec0 table with matching rowid
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for passage %s: %w", p.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing passage %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("added passages to sqlite-vec",
		zap.Int("count", len(passages)),
	)

	return nil
}

// Query finds the topK most similar passages to the given embedding with a
// score of at least minScore.
func (d *SQLiteVecDriver) Query(ctx context.Context, embedding []float32, topK int, minScore float32) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	queryBlob := serializeFloat32(embedding)

	// KNN query via vec0 MATCH, then JOIN back to get the passage fields.
	// Ties resolve by rowid, which mirrors ingestion order.
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			p.passage_id,
			p.text,
			p.link,
			p.group_id,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_passages p ON p.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance, ve.rowid
	`, queryBlob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var m vector.Match
		var distance float64
		if err := rows.Scan(&m.ID, &m.Text, &m.Link, &m.GroupID, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		// Cosine distance to cosine similarity: lower distance = higher score.
		m.Score = float32(1.0 - distance)
		if m.Score < minScore {
			continue
		}

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// Count returns the number of stored passages.
func (d *SQLiteVecDriver) Count(ctx context.Context) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_passages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (d *SQLiteVecDriver) Close() error {
	return d.db.Close()
}

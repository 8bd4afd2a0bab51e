package storage

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/haasonsaas/rlm-go/core"
	"github.com/haasonsaas/rlm-go/rlmerr"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS buffers (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	content       TEXT NOT NULL,
	content_type  TEXT NOT NULL DEFAULT '',
	chunk_count   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chunks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	buffer_id   INTEGER NOT NULL REFERENCES buffers(id),
	idx         INTEGER NOT NULL,
	byte_start  INTEGER NOT NULL,
	byte_end    INTEGER NOT NULL,
	content     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_buffer ON chunks(buffer_id, idx);
`

// SQLiteStorage is a reference Storage implementation backed by
// modernc.org/sqlite (pure Go, no cgo). Suitable for a single-process
// deployment or as an in-memory backend for tests.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (or creates) a SQLite database at path and
// initializes its schema. Pass ":memory:" for an ephemeral in-process
// database.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "open sqlite storage", err)
	}
	s := &SQLiteStorage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStorage) init() error {
	if _, err := s.db.Exec(schema); err != nil {
		return rlmerr.Wrap(rlmerr.KindOrchestration, "create sqlite schema", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) AddBuffer(ctx context.Context, buffer *core.Buffer) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO buffers (name, content, content_type, chunk_count) VALUES (?, ?, ?, ?)`,
		buffer.Name, buffer.Content, buffer.Metadata.ContentType, buffer.Metadata.ChunkCount)
	if err != nil {
		return 0, rlmerr.Wrap(rlmerr.KindOrchestration, "add buffer", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStorage) AddChunks(ctx context.Context, bufferID int64, chunks []core.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rlmerr.Wrap(rlmerr.KindOrchestration, "begin add chunks transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (buffer_id, idx, byte_start, byte_end, content) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return rlmerr.Wrap(rlmerr.KindOrchestration, "prepare add chunks statement", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, bufferID, c.Index, c.ByteRange.Start, c.ByteRange.End, c.Content); err != nil {
			return rlmerr.Wrap(rlmerr.KindOrchestration, "insert chunk", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, id int64) (*core.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, buffer_id, idx, byte_start, byte_end, content FROM chunks WHERE id = ?`, id)
	return scanChunk(row)
}

func (s *SQLiteStorage) GetChunks(ctx context.Context, bufferID int64) ([]core.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, buffer_id, idx, byte_start, byte_end, content FROM chunks WHERE buffer_id = ? ORDER BY idx`, bufferID)
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "get chunks", err)
	}
	defer rows.Close()

	var chunks []core.Chunk
	for rows.Next() {
		var c core.Chunk
		if err := rows.Scan(&c.ID, &c.BufferID, &c.Index, &c.ByteRange.Start, &c.ByteRange.End, &c.Content); err != nil {
			return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "scan chunk row", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) GetBuffer(ctx context.Context, id int64) (*core.Buffer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, content, content_type, chunk_count FROM buffers WHERE id = ?`, id)
	return scanBuffer(row)
}

func (s *SQLiteStorage) GetBufferByName(ctx context.Context, name string) (*core.Buffer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, content, content_type, chunk_count FROM buffers WHERE name = ?`, name)
	return scanBuffer(row)
}

func (s *SQLiteStorage) ListBuffers(ctx context.Context) ([]core.Buffer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, content, content_type, chunk_count FROM buffers ORDER BY id`)
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "list buffers", err)
	}
	defer rows.Close()

	var buffers []core.Buffer
	for rows.Next() {
		var b core.Buffer
		if err := rows.Scan(&b.ID, &b.Name, &b.Content, &b.Metadata.ContentType, &b.Metadata.ChunkCount); err != nil {
			return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "scan buffer row", err)
		}
		b.Metadata.Size = len(b.Content)
		buffers = append(buffers, b)
	}
	return buffers, rows.Err()
}

func (s *SQLiteStorage) Stats(ctx context.Context) (core.StorageStats, error) {
	var stats core.StorageStats
	stats.SchemaVersion = schemaVersion

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM buffers`).Scan(&stats.BufferCount); err != nil {
		return stats, rlmerr.Wrap(rlmerr.KindOrchestration, "count buffers", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.ChunkCount); err != nil {
		return stats, rlmerr.Wrap(rlmerr.KindOrchestration, "count chunks", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(LENGTH(content)), 0) FROM buffers`).Scan(&stats.TotalContentBytes); err != nil {
		return stats, rlmerr.Wrap(rlmerr.KindOrchestration, "sum buffer content size", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*core.Chunk, error) {
	var c core.Chunk
	err := row.Scan(&c.ID, &c.BufferID, &c.Index, &c.ByteRange.Start, &c.ByteRange.End, &c.Content)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "scan chunk", err)
	}
	return &c, nil
}

func scanBuffer(row rowScanner) (*core.Buffer, error) {
	var b core.Buffer
	err := row.Scan(&b.ID, &b.Name, &b.Content, &b.Metadata.ContentType, &b.Metadata.ChunkCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, rlmerr.Wrap(rlmerr.KindOrchestration, "scan buffer", err)
	}
	b.Metadata.Size = len(b.Content)
	return &b, nil
}

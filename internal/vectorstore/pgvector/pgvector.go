// Package pgvector stores index entries in PostgreSQL with the pgvector
// extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookrec/internal/domain"
	"bookrec/internal/vectorstore"
)

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// DB is the subset of *pgxpool.Pool used by Storage.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Storage struct {
	db    DB
	table string
}

// New wraps an open connection. table must be a plain lower-case identifier.
func New(db DB, table string) (*Storage, error) {
	if table == "" {
		table = "book_entries"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Storage{db: db, table: pgx.Identifier{table}.Sanitize()}, nil
}

// Open connects a pool to dsn.
func Open(ctx context.Context, dsn, table string) (*Storage, func(), error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := New(pool, table)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if _, err := s.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  seq         bigserial,
  entry_id    text PRIMARY KEY,
  book_id     text NOT NULL,
  chunk_index int NOT NULL,
  text        text NOT NULL,
  embedding   vector(%d) NOT NULL
)`, s.table, dimension)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, entries []domain.IndexEntry, vectors [][]float64) error {
	if len(entries) != len(vectors) {
		return errors.New("entries and vectors length mismatch")
	}
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx upsert entries: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	sql := fmt.Sprintf(`
INSERT INTO %s (entry_id, book_id, chunk_index, text, embedding)
VALUES ($1, $2, $3, $4, $5::vector)
ON CONFLICT (entry_id)
DO UPDATE SET
  book_id = EXCLUDED.book_id,
  chunk_index = EXCLUDED.chunk_index,
  text = EXCLUDED.text,
  embedding = EXCLUDED.embedding`, s.table)
	for i, e := range entries {
		if _, err := tx.Exec(ctx, sql, e.ID, e.BookID, e.Index, e.Text, ToLiteral(vectors[i])); err != nil {
			return fmt.Errorf("upsert entry %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit entries tx: %w", err)
	}
	return nil
}

// Search orders by cosine distance; equal distances keep insertion order.
func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	query := fmt.Sprintf(`
SELECT entry_id, book_id, chunk_index, text,
       1 - (embedding <=> $1::vector) AS score
FROM %s
ORDER BY embedding <=> $1::vector, seq
LIMIT $2`, s.table)
	rows, err := s.db.Query(ctx, query, ToLiteral(vector), topK)
	if err != nil {
		return nil, s.wrap(err)
	}
	defer rows.Close()

	results := make([]domain.SearchResult, 0, topK)
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.Entry.ID, &r.Entry.BookID, &r.Entry.Index, &r.Entry.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, vectorstore.ErrEmpty)
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, s.wrap(err)
	}
	return n, nil
}

// Clear drops the table so the next Init may change the dimension.
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)); err != nil {
		return fmt.Errorf("drop table %s: %w", s.table, err)
	}
	return nil
}

func (s *Storage) wrap(err error) error {
	if IsUndefinedTable(err) {
		return fmt.Errorf("%w: table %s does not exist", domain.ErrIndexUnavailable, s.table)
	}
	return fmt.Errorf("query %s: %w", s.table, err)
}

// IsUndefinedTable reports whether err is Postgres' missing-relation error.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// ToLiteral renders v in pgvector's text input format.
func ToLiteral(v []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var _ vectorstore.Storage = (*Storage)(nil)

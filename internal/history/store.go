// Package history keeps a local ledger of reviews in SQLite: what was
// submitted, through which channel, and how it ended. It never stores
// document content.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// MemoryPath opens a private in-memory database, used by tests.
const MemoryPath = ":memory:"

// OutcomeOK marks a review that produced a report. Failures record the
// acquire.KindName of the failure instead.
const OutcomeOK = "ok"

// defaultListLimit caps List when the caller passes a non-positive limit.
const defaultListLimit = 50

const (
	sqlInsertReview = `INSERT INTO reviews
		(id, created_at, channel, provenance, source, file_name, size_bytes,
		 page_count, outcome, error, stored_key, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlListReviews = `SELECT id, created_at, channel, provenance, source, file_name,
		size_bytes, page_count, outcome, error, stored_key, duration_ms
		FROM reviews ORDER BY created_at DESC, id LIMIT ?`
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Record is one review attempt.
type Record struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	Channel    string        `json:"channel"`
	Provenance string        `json:"provenance,omitempty"`
	Source     string        `json:"source"`
	FileName   string        `json:"file_name,omitempty"`
	SizeBytes  int64         `json:"size_bytes,omitempty"`
	PageCount  int           `json:"page_count,omitempty"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	StoredKey  string        `json:"stored_key,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Store is the review ledger. It is safe for concurrent use; writes are
// serialized through a single connection.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := "file::memory:?_pragma=foreign_keys(ON)"

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("history: creating directory for %s: %w", path, err)
		}

		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"+
				"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
			path,
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", path, err)
	}

	// One connection: sole writer, and the in-memory database lives only as
	// long as its connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history store opened", slog.String("db_path", path))

	return &Store{db: db, logger: logger}, nil
}

func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("history: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("history: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("history: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Add inserts rec. ID and CreatedAt must be set.
func (s *Store) Add(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, sqlInsertReview,
		rec.ID,
		rec.CreatedAt.UnixNano(),
		rec.Channel,
		nullString(rec.Provenance),
		rec.Source,
		nullString(rec.FileName),
		nullInt(rec.SizeBytes),
		nullInt(int64(rec.PageCount)),
		rec.Outcome,
		nullString(rec.Error),
		nullString(rec.StoredKey),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("history: inserting review %s: %w", rec.ID, err)
	}

	return nil
}

// List returns up to limit records, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, sqlListReviews, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing reviews: %w", err)
	}
	defer rows.Close()

	var out []Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating reviews: %w", err)
	}

	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: closing database: %w", err)
	}

	return nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		rec        Record
		createdAt  int64
		provenance sql.NullString
		fileName   sql.NullString
		size       sql.NullInt64
		pages      sql.NullInt64
		errText    sql.NullString
		storedKey  sql.NullString
		durationMS int64
	)

	err := rows.Scan(
		&rec.ID, &createdAt, &rec.Channel, &provenance, &rec.Source, &fileName,
		&size, &pages, &rec.Outcome, &errText, &storedKey, &durationMS,
	)
	if err != nil {
		return nil, fmt.Errorf("history: scanning review row: %w", err)
	}

	rec.CreatedAt = time.Unix(0, createdAt)
	rec.Provenance = provenance.String
	rec.FileName = fileName.String
	rec.SizeBytes = size.Int64
	rec.PageCount = int(pages.Int64)
	rec.Error = errText.String
	rec.StoredKey = storedKey.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}

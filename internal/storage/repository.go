package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tweetcompare/internal/core"
	"tweetcompare/internal/log"
	ports "tweetcompare/internal/sources"

	_ "modernc.org/sqlite"
)

// columns maps the canonical source header to the posts table columns.
var columns = []struct{ header, column string }{
	{core.ColCreatedAt, "created_at"},
	{core.ColFullText, "full_text"},
	{core.ColLikeCount, "like_count"},
	{core.ColRetweetCount, "retweet_count"},
	{core.ColIsRetweet, "is_retweet"},
	{core.ColIsReply, "is_reply"},
}

const (
	selectPosts = `SELECT created_at, full_text, like_count, retweet_count, is_retweet, is_reply FROM posts ORDER BY id`
	insertPost  = `INSERT INTO posts (created_at, full_text, like_count, retweet_count, is_retweet, is_reply) VALUES (?, ?, ?, ?, ?, ?)`
	deletePosts = `DELETE FROM posts`
	countPosts  = `SELECT COUNT(*) FROM posts`
)

var (
	_ ports.TableReader = (*SQLiteRepository)(nil)
	_ ports.TableWriter = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteRepository opens dbPath, creating the file and its directory when
// missing, and runs the embedded migrations.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReadTable implements sources.TableReader. NULL cells read back empty.
func (r *SQLiteRepository) ReadTable(ctx context.Context) (core.Table, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, selectPosts)
	if err != nil {
		return core.Table{}, fmt.Errorf("%w: query posts: %w", core.ErrDataUnavailable, err)
	}
	defer rows.Close()

	t := core.Table{Header: header()}
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return core.Table{}, fmt.Errorf("%w: scan post: %w", core.ErrDataUnavailable, err)
		}
		row := make([]string, len(columns))
		for i, c := range cells {
			row[i] = c.String
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return core.Table{}, fmt.Errorf("%w: iterate posts: %w", core.ErrDataUnavailable, err)
	}

	r.logger.DebugContext(ctx, "Posts read from SQLite",
		"rows", len(t.Rows),
		log.FieldDuration, time.Since(start).Milliseconds())
	return t, nil
}

// ImportTable implements sources.TableWriter. The stored rows are replaced
// by the rows of t in one transaction; columns are matched by header name
// and missing ones are stored as NULL.
func (r *SQLiteRepository) ImportTable(ctx context.Context, t core.Table) (int, error) {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.header
	}
	idx := t.Index(names...)
	if idx[core.ColCreatedAt] < 0 {
		return 0, fmt.Errorf("%w: missing column %s", core.ErrDataUnavailable, core.ColCreatedAt)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deletePosts); err != nil {
		return 0, fmt.Errorf("clear posts: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertPost)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for n, row := range t.Rows {
		args := make([]any, len(columns))
		for i, c := range columns {
			j := idx[c.header]
			if j < 0 || j >= len(row) || row[j] == "" {
				args[i] = nil
				continue
			}
			args[i] = row[j]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", n+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	r.logger.InfoContext(ctx, "Posts imported",
		log.FieldOperation, log.OpImport,
		log.FieldPostCount, len(t.Rows))
	return len(t.Rows), nil
}

// Count returns the number of stored rows.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countPosts).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func header() []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = c.header
	}
	return h
}

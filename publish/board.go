package publish

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"diagcompare/report"
)

// Board is a local stand-in for a pull request thread: it keeps the latest
// report per context in a SQLite file. It holds the rendered text only,
// never metric history.
type Board struct {
	db      *sql.DB
	log     *zap.Logger
	context string
}

// Post is one stored report.
type Post struct {
	ID        int64
	Context   string
	Body      string
	UpdatedAt time.Time
}

// OpenBoard opens (or creates) the SQLite file at dbPath, creating the
// parent directory and the reports table when needed. Reports are stored
// under boardContext. The caller must call Close().
func OpenBoard(dbPath, boardContext string, log *zap.Logger) (*Board, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create board dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	b := &Board{db: db, log: log, context: boardContext}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return b, nil
}

func (b *Board) migrate() error {
	const stmt = `
CREATE TABLE IF NOT EXISTS reports (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    context    TEXT NOT NULL,
    body       TEXT NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_context ON reports(context);
`
	if _, err := b.db.Exec(stmt); err != nil {
		return fmt.Errorf("create reports table: %w", err)
	}
	b.log.Debug("SQLite migration applied")
	return nil
}

// Upsert replaces the report of the board's context in a single
// transaction, or inserts it.
func (b *Board) Upsert(ctx context.Context, body string) (Result, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM reports WHERE context = ? AND instr(body, ?) > 0 ORDER BY id LIMIT 1`,
		b.context, report.Marker,
	).Scan(&id)

	var res Result
	switch {
	case errors.Is(err, sql.ErrNoRows):
		r, err := tx.ExecContext(ctx,
			`INSERT INTO reports (context, body, updated_at) VALUES (?, ?, ?)`, b.context, body, now)
		if err != nil {
			return Result{}, fmt.Errorf("insert report: %w", err)
		}
		if id, err = r.LastInsertId(); err != nil {
			return Result{}, fmt.Errorf("insert id: %w", err)
		}
		res = Result{ID: id, Created: true}
	case err != nil:
		return Result{}, fmt.Errorf("find report: %w", err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE reports SET body = ?, updated_at = ? WHERE id = ?`, body, now, id); err != nil {
			return Result{}, fmt.Errorf("update report %d: %w", id, err)
		}
		res = Result{ID: id}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit tx: %w", err)
	}
	b.log.Info("report stored on board",
		zap.String("context", b.context), zap.Int64("id", res.ID), zap.Bool("created", res.Created))
	return res, nil
}

// Posts returns every report stored under the board's context.
func (b *Board) Posts(ctx context.Context) ([]Post, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, context, body, updated_at FROM reports WHERE context = ? ORDER BY id`, b.context)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Context, &p.Body, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Close shuts down the database connection.
func (b *Board) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

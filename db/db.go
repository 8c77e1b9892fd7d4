package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tadeyemo32/outreach-batcher/models"
)

const exportRunsDDL = `CREATE TABLE IF NOT EXISTS export_runs (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL DEFAULT '',
	file_name   TEXT NOT NULL,
	link        TEXT NOT NULL,
	row_count   INTEGER NOT NULL DEFAULT 0,
	batched     INTEGER NOT NULL DEFAULT 0,
	future      INTEGER NOT NULL DEFAULT 0,
	unbatchable INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL
)`

// InitDB opens the SQLite ledger database and makes sure its tables exist.
func InitDB(dataSourceName string) (*sql.DB, error) {
	if dir := filepath.Dir(dataSourceName); dir != "." && dataSourceName != ":memory:" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite3 db %s: %w", dataSourceName, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging db: %w", err)
	}
	if _, err := db.Exec(exportRunsDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create export_runs: %w", err)
	}
	return db, nil
}

// Ledger records every exported sheet.
type Ledger struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db)}
}

func (l *Ledger) Record(ctx context.Context, run models.ExportRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := l.sb.Insert("export_runs").
		Columns("id", "project_id", "file_name", "link", "row_count", "batched", "future", "unbatchable", "created_at").
		Values(run.ID, run.ProjectID, run.FileName, run.Link, run.Rows, run.Batched, run.Future, run.Unbatchable, run.CreatedAt.UTC()).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("record export %s: %w", run.FileName, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first, optionally for one project.
func (l *Ledger) Recent(ctx context.Context, projectID string, limit int) ([]models.ExportRun, error) {
	q := l.sb.Select("id", "project_id", "file_name", "link", "row_count", "batched", "future", "unbatchable", "created_at").
		From("export_runs").
		OrderBy("created_at DESC", "id")
	if projectID != "" {
		q = q.Where(sq.Eq{"project_id": projectID})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var out []models.ExportRun
	for rows.Next() {
		var r models.ExportRun
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.FileName, &r.Link, &r.Rows, &r.Batched, &r.Future, &r.Unbatchable, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

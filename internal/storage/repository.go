package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "moneytracker/internal/log"
	"moneytracker/internal/workspace"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores form suggestions. It holds only the vocabulary of
// free-entry fields (field, value, use count), never submitted records.
type SQLiteRepository struct {
	db *sql.DB
}

// Ensure interface conformance
var _ workspace.SuggestionStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Suggestions schema ready", applog.FieldComponent, applog.ComponentStorage, "db_path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Remember implements workspace.SuggestionStore
func (r *SQLiteRepository) Remember(ctx context.Context, field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suggestions (field, value, uses, last_used_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (field, value) DO UPDATE SET
			uses = uses + 1,
			last_used_at = excluded.last_used_at`,
		field, value, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("remember suggestion %s: %w", field, err)
	}

	slog.DebugContext(ctx, "Suggestion saved to SQLite", "field", field)
	return nil
}

// Suggestions implements workspace.SuggestionStore
func (r *SQLiteRepository) Suggestions(ctx context.Context, field string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT value FROM suggestions
		WHERE field = ?
		ORDER BY uses DESC, last_used_at DESC, value ASC
		LIMIT ?`, field, limit)
	if err != nil {
		return nil, fmt.Errorf("list suggestions %s: %w", field, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}
	return out, nil
}

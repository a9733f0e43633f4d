package regions

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/blobstack/pkg/errors"
)

// WriteSQLite exports t into a new SQLite database at path, as table
// "regions" with columns id, area, cz, cy, cx, int0, int1, ... The export is
// a one-shot file; an existing path is an OUTPUT_EXISTS error.
func WriteSQLite(ctx context.Context, path string, t *Table) error {
	if err := t.validate(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return errors.New(errors.ErrCodeOutputExists, "database %s already exists", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cols := []string{"id INTEGER PRIMARY KEY", "area INTEGER NOT NULL", "cz REAL", "cy REAL", "cx REAL"}
	names := []string{"id", "area", "cz", "cy", "cx"}
	for c := 0; c < t.Channels; c++ {
		cols = append(cols, fmt.Sprintf("int%d REAL", c))
		names = append(names, fmt.Sprintf("int%d", c))
	}
	schema := fmt.Sprintf("CREATE TABLE regions (\n\t%s\n)", strings.Join(cols, ",\n\t"))
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO regions (%s) VALUES (%s)", strings.Join(names, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(names))
	for _, r := range t.Rows {
		args[0] = int64(r.ID)
		args[1] = r.Area
		args[2], args[3], args[4] = r.Centroid[0], r.Centroid[1], r.Centroid[2]
		for c, m := range r.Means {
			args[5+c] = m
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert region %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// ReadSQLite loads a table written by WriteSQLite.
func ReadSQLite(ctx context.Context, path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "database %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT * FROM regions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) < 5 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "regions table has %d columns, want at least 5", len(cols))
	}
	t := &Table{Channels: len(cols) - 5}
	for rows.Next() {
		var (
			id   int64
			area int
			r    = Row{Means: make([]float64, t.Channels)}
		)
		dest := []any{&id, &area, &r.Centroid[0], &r.Centroid[1], &r.Centroid[2]}
		for c := range r.Means {
			dest = append(dest, &r.Means[c])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		r.ID = uint32(id)
		r.Area = area
		t.Rows = append(t.Rows, r)
	}
	return t, rows.Err()
}

package extract

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/docrag/internal/domain/commonModels"
	"github.com/akolanti/docrag/internal/domain/ragErrors"
	_ "modernc.org/sqlite" // SQLite driver
)

const listTablesQuery = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`

// extractSQLite renders every user table as one database unit. Rows past the cap are counted but not rendered.
func (e *Extractor) extractSQLite(ctx context.Context, path string) ([]commonModels.ExtractedUnit, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("opening database: %w", err))
	}
	defer db.Close()

	tables, err := listTables(ctx, db)
	if err != nil {
		return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("listing tables: %w", err))
	}
	if len(tables) == 0 {
		return nil, ragErrors.ErrNoTables
	}

	units := make([]commonModels.ExtractedUnit, 0, len(tables))
	for _, table := range tables {
		unit, err := e.renderTable(ctx, db, table)
		if err != nil {
			return nil, ragErrors.Kind(ragErrors.ErrFormat, fmt.Errorf("reading table %s: %w", table, err))
		}
		units = append(units, unit)
	}
	e.logger.WithTrace(ctx).Debug("extractSQLite", "tables", len(tables))
	return units, nil
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (e *Extractor) renderTable(ctx context.Context, db *sql.DB, table string) (commonModels.ExtractedUnit, error) {
	quoted := quoteIdentifier(table)

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&total); err != nil {
		return commonModels.ExtractedUnit{}, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoted, e.rowCap))
	if err != nil {
		return commonModels.ExtractedUnit{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return commonModels.ExtractedUnit{}, err
	}

	var body strings.Builder
	w := csv.NewWriter(&body)
	if err := w.Write(columns); err != nil {
		return commonModels.ExtractedUnit{}, err
	}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	record := make([]string, len(columns))
	shown := 0
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return commonModels.ExtractedUnit{}, err
		}
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return commonModels.ExtractedUnit{}, err
		}
		shown++
	}
	if err := rows.Err(); err != nil {
		return commonModels.ExtractedUnit{}, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return commonModels.ExtractedUnit{}, err
	}

	label := fmt.Sprintf("Table: %s (%d rows)", table, total)
	if shown < total {
		label = fmt.Sprintf("Table: %s (%d rows, showing first %d)", table, total, shown)
	}

	return commonModels.ExtractedUnit{
		Content:    label + "\n" + strings.TrimRight(body.String(), "\n"),
		SourceType: commonModels.SourceDatabase,
		TableName:  table,
		RowCount:   total,
	}, nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return fmt.Sprintf("<blob %d bytes>", len(val))
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

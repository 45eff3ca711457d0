package executor

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"go.uber.org/zap"
)

// LogStore persists strategy logs as CSV through an in-memory DuckDB
// instance. Writing through the database gives one canonical formatting for
// every cell type, so two identical runs always serialize identically.
type LogStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewLogStore opens the backing database.
func NewLogStore(logger *logger.Logger) (*LogStore, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to open database", err)
	}

	return &LogStore{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close releases the backing database.
func (s *LogStore) Close() error {
	return s.db.Close()
}

// WriteCSV persists a table to path with its exact column order, overwriting
// any previous file.
func (s *LogStore) WriteCSV(table *types.Table, path string) error {
	if err := table.Validate(); err != nil {
		return err
	}

	name := "log_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	columnDefs := make([]string, len(table.Columns))
	quoted := make([]string, len(table.Columns))

	for i, column := range table.Columns {
		quoted[i] = quoteIdent(column)
		columnDefs[i] = quoted[i] + " " + columnType(table, i)
	}

	if _, err := s.db.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(columnDefs, ", "))); err != nil {
		return errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to create log table", err)
	}

	defer func() {
		if _, err := s.db.Exec("DROP TABLE IF EXISTS " + name); err != nil {
			s.logger.Warn("failed to drop log table", zap.String("table", name), zap.Error(err))
		}
	}()

	if len(table.Rows) > 0 {
		insert := s.sq.Insert(name).Columns(quoted...)
		for _, row := range table.Rows {
			insert = insert.Values(row...)
		}

		if _, err := insert.RunWith(s.db).Exec(); err != nil {
			return errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to insert log rows", err)
		}
	}

	// Squirrel does not support COPY, so raw SQL with an escaped path.
	copyStmt := fmt.Sprintf("COPY %s TO '%s' (FORMAT CSV, HEADER)", name, escapeLiteral(path))
	if _, err := s.db.Exec(copyStmt); err != nil {
		return errors.Wrapf(errors.ErrCodeDataQueryFailed, err, "failed to write %s", path)
	}

	return nil
}

// ReadCSV reads a persisted log back with every cell as text, preserving the
// file's exact formatting for comparison.
func (s *LogStore) ReadCSV(path string) (*types.Table, error) {
	query := fmt.Sprintf("SELECT * FROM read_csv('%s', all_varchar=true, header=true)", escapeLiteral(path))

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataQueryFailed, err, "failed to read %s", path)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to resolve columns", err)
	}

	table := types.NewTable(columns...)

	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to scan log row", err)
		}

		row := make([]any, len(columns))
		for i, cell := range cells {
			if cell.Valid {
				row[i] = cell.String
			}
		}

		if err := table.AppendRow(row...); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to iterate log rows", err)
	}

	return table, nil
}

// columnType infers the storage type for one column from its cells.
func columnType(table *types.Table, idx int) string {
	var hasFloat, hasInt, hasBool, hasText bool

	for _, row := range table.Rows {
		switch row[idx].(type) {
		case nil:
		case float64, float32:
			hasFloat = true
		case int, int32, int64:
			hasInt = true
		case bool:
			hasBool = true
		default:
			hasText = true
		}
	}

	switch {
	case hasText:
		return "VARCHAR"
	case hasFloat:
		return "DOUBLE"
	case hasInt:
		return "BIGINT"
	case hasBool:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

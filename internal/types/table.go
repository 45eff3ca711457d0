package types

import (
	"encoding/json"

	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// Table is the canonical columnar log shape produced by strategy execution.
// Column order is significant: logs are persisted with exactly the column
// order the strategy emitted.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// TradeLogColumns is the minimum column set of a trade log.
var TradeLogColumns = []string{
	"trade_id", "instrument", "side", "entry_time", "entry_price",
	"exit_time", "exit_price", "pnl", "pnl_pct",
}

// AuditLogColumns is the minimum column set of an audit log. Strategies add
// a message column or indicator columns on top of these.
var AuditLogColumns = []string{"datetime", "equity", "signal"}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{
		Columns: columns,
		Rows:    nil,
	}
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}

	return -1
}

// HasColumn reports whether the table contains the named column.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// MissingColumns returns the subset of required that is absent from the table.
func (t *Table) MissingColumns(required []string) []string {
	var missing []string

	for _, name := range required {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}

	return missing
}

// AppendRow appends a row to the table. The row length must match the
// column count.
func (t *Table) AppendRow(row ...any) error {
	if len(row) != len(t.Columns) {
		return errors.Newf(errors.ErrCodeInvalidResultShape,
			"row has %d cells, table has %d columns", len(row), len(t.Columns))
	}

	t.Rows = append(t.Rows, row)

	return nil
}

// Cell returns the value at (row, column name). The second return value is
// false when the row or column does not exist.
func (t *Table) Cell(row int, column string) (any, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return nil, false
	}

	return t.Rows[row][idx], true
}

// Column returns all values of the named column in row order.
func (t *Table) Column(name string) ([]any, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}

	values := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, row[idx])
	}

	return values, true
}

// Validate checks that every row matches the column count.
func (t *Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return errors.Newf(errors.ErrCodeInvalidResultShape,
				"row %d has %d cells, table has %d columns", i, len(row), len(t.Columns))
		}
	}

	return nil
}

// RunResult is the normalized output of one strategy execution: the two
// canonical logs in wire form.
type RunResult struct {
	TradeLog Table `json:"trade_log"`
	AuditLog Table `json:"audit_log"`
}

// DecodeRunResult parses the strategy's raw result payload. A payload that is
// not a JSON object with tabular trade_log and audit_log fields is a schema
// violation, not a runtime failure.
func DecodeRunResult(payload []byte) (*RunResult, error) {
	var result RunResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotTabular,
			"strategy result is not a tabular log pair", err)
	}

	if result.TradeLog.Columns == nil {
		return nil, errors.New(errors.ErrCodeNotTabular, "trade_log must be a columnar table")
	}

	if result.AuditLog.Columns == nil {
		return nil, errors.New(errors.ErrCodeNotTabular, "audit_log must be a columnar table")
	}

	if err := result.TradeLog.Validate(); err != nil {
		return nil, err
	}

	if err := result.AuditLog.Validate(); err != nil {
		return nil, err
	}

	return &result, nil
}

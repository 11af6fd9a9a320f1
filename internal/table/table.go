// Package table decodes tabular attachments into an in-memory row/column structure and
// canonicalizes their column labels.
package table

// Row maps a column label to its cell. Cells are string, int64, float64 or nil.
type Row map[string]any

// Table is a decoded attachment. Every row holds exactly the keys listed in Columns.
type Table struct {
	Columns []string
	Rows    []Row
}

// Normalized is a Table whose labels are canonical and whose rows all carry the same
// timestamp column.
type Normalized struct {
	Table
	Timestamp string
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

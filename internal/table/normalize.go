package table

import (
	"regexp"
	"strings"
	"time"
)

const (
	// TimestampColumn is appended to every normalized table
	TimestampColumn = "timestamp"
	// TimestampLayout formats the normalization time
	TimestampLayout = "2006-01-02 15:04:05"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeLabel lower-cases a label, collapses every run of characters outside [a-z0-9]
// into one underscore and trims underscores from both ends
func NormalizeLabel(label string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(label), "_"), "_")
}

// Normalizer canonicalizes column labels and stamps rows with the time of the call
type Normalizer struct {
	Now func() time.Time
}

// NewNormalizer returns a Normalizer on the wall clock
func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Normalize rewrites every label with NormalizeLabel and appends the timestamp column.
// Labels that collapse onto the same name keep the first column's position and the last
// column's value; the appended timestamp therefore wins over a source "Timestamp" column.
func (n *Normalizer) Normalize(t *Table) *Normalized {
	now := time.Now
	if n != nil && n.Now != nil {
		now = n.Now
	}
	stamp := now().Format(TimestampLayout)

	if t == nil {
		t = &Table{}
	}

	sources := append(append([]string(nil), t.Columns...), TimestampColumn)
	targets := make([]string, len(sources))
	columns := make([]string, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for i, label := range sources {
		targets[i] = NormalizeLabel(label)
		if !seen[targets[i]] {
			seen[targets[i]] = true
			columns = append(columns, targets[i])
		}
	}

	rows := make([]Row, len(t.Rows))
	for r, src := range t.Rows {
		row := make(Row, len(columns))
		for i, label := range t.Columns {
			row[targets[i]] = src[label]
		}
		row[TimestampColumn] = stamp
		rows[r] = row
	}

	return &Normalized{
		Table:     Table{Columns: columns, Rows: rows},
		Timestamp: stamp,
	}
}

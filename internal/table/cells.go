package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// missingMarkers are cell texts read as an absent value
var missingMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(cell string) bool {
	_, ok := missingMarkers[strings.TrimSpace(cell)]
	return ok
}

// headerLabels turns a raw header row into unique column labels. Blank cells become
// "Unnamed: <index>" and repeats get a ".<n>" suffix.
func headerLabels(header []string) []string {
	labels := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, label := range header {
		if strings.TrimSpace(label) == "" {
			label = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := label
		for n := 1; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s.%d", label, n)
		}
		used[candidate] = true
		labels[i] = candidate
	}
	return labels
}

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindString
)

// inferKind picks the narrowest type every non-missing cell of a column fits
func inferKind(cells []string) columnKind {
	kind := kindInt
	for _, cell := range cells {
		if isMissing(cell) {
			continue
		}
		v := strings.TrimSpace(cell)
		if kind == kindInt {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				continue
			}
			kind = kindFloat
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			continue
		}
		return kindString
	}
	return kind
}

func convert(cell string, kind columnKind) any {
	if isMissing(cell) {
		return nil
	}
	switch kind {
	case kindInt:
		v, _ := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
		return v
	case kindFloat:
		v, _ := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		return v
	default:
		return cell
	}
}

// build assembles a Table from a header row and ragged data rows. Short rows are padded
// with nil; callers reject rows wider than the header before calling.
func build(header []string, records [][]string) *Table {
	columns := headerLabels(header)

	kinds := make([]columnKind, len(columns))
	column := make([]string, len(records))
	for c := range columns {
		for r, record := range records {
			column[r] = ""
			if c < len(record) {
				column[r] = record[c]
			}
		}
		kinds[c] = inferKind(column)
	}

	rows := make([]Row, 0, len(records))
	for _, record := range records {
		row := make(Row, len(columns))
		for c, label := range columns {
			if c < len(record) {
				row[label] = convert(record[c], kinds[c])
			} else {
				row[label] = nil
			}
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

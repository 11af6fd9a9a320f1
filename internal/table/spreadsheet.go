package table

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var ErrNoSheets = errors.New("workbook has no sheets")

// SpreadsheetStrategy reads the first sheet of an OOXML workbook (.xlsx); its first row is
// the header
type SpreadsheetStrategy struct{}

func (SpreadsheetStrategy) Name() string { return "spreadsheet" }

func (s SpreadsheetStrategy) Decode(data []byte) (*Table, error) {
	fail := func(err error) (*Table, error) {
		return nil, &StrategyError{Strategy: s.Name(), Err: err}
	}

	if len(data) == 0 {
		return fail(ErrEmpty)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return fail(fmt.Errorf("open workbook: %w", err))
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fail(ErrNoSheets)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return fail(fmt.Errorf("read sheet %q: %w", sheets[0], err))
	}

	return fromRows(s.Name(), rows)
}

// fromRows turns sheet rows into a table: leading blank rows are dropped, the next row is
// the header and blank rows below it are skipped
func fromRows(strategy string, rows [][]string) (*Table, error) {
	for len(rows) > 0 && isBlank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, &StrategyError{Strategy: strategy, Err: ErrNoHeader}
	}

	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		// Data wider than the header gets "Unnamed" columns
		if len(row) > len(header) {
			header = widen(header, len(row))
		}
		records = append(records, row)
	}

	return build(header, records), nil
}

// widen pads the header so unlabeled data columns get an "Unnamed" label
func widen(header []string, width int) []string {
	out := make([]string, width)
	copy(out, header)
	return out
}

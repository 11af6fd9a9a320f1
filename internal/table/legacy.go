package table

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"
)

// cfbSignature opens every compound file, the container of BIFF workbooks
var cfbSignature = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

// BIFF8 sheets hold at most 256 columns
const legacyMaxColumns = 256

var ErrNotCompoundFile = errors.New("not a compound file")

// LegacySpreadsheetStrategy reads the first sheet of a BIFF workbook (.xls); its first row
// is the header
type LegacySpreadsheetStrategy struct{}

func (LegacySpreadsheetStrategy) Name() string { return "xls" }

func (s LegacySpreadsheetStrategy) Decode(data []byte) (t *Table, err error) {
	fail := func(err error) (*Table, error) {
		return nil, &StrategyError{Strategy: s.Name(), Err: err}
	}

	if len(data) == 0 {
		return fail(ErrEmpty)
	}
	if !bytes.HasPrefix(data, cfbSignature) {
		return fail(ErrNotCompoundFile)
	}

	// the BIFF reader panics on some corrupt records
	defer func() {
		if r := recover(); r != nil {
			t, err = fail(fmt.Errorf("corrupt workbook: %v", r))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return fail(fmt.Errorf("open workbook: %w", err))
	}
	if wb == nil || wb.NumSheets() == 0 {
		return fail(ErrNoSheets)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return fail(ErrNoSheets)
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, legacyMaxColumns)
		for c := range cells {
			cells[c] = row.Col(c)
		}
		rows = append(rows, trimTrailingBlanks(cells))
	}

	return fromRows(s.Name(), rows)
}

func trimTrailingBlanks(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}

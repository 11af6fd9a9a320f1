package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	ErrEmpty        = errors.New("empty content")
	ErrBinary       = errors.New("content is binary")
	ErrNoHeader     = errors.New("no header row")
	ErrRaggedRecord = errors.New("record has more fields than the header")
)

// DelimitedStrategy reads delimited text whose first record is the header
type DelimitedStrategy struct {
	Comma rune
}

func (DelimitedStrategy) Name() string { return "delimited" }

func (s DelimitedStrategy) Decode(data []byte) (*Table, error) {
	fail := func(err error) (*Table, error) {
		return nil, &StrategyError{Strategy: s.Name(), Err: err}
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return fail(ErrEmpty)
	}
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return fail(ErrBinary)
	}

	r := csv.NewReader(bytes.NewReader(data))
	if s.Comma != 0 {
		r.Comma = s.Comma
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return fail(ErrNoHeader)
	} else if err != nil {
		return fail(err)
	}
	if isBlank(header) {
		return fail(ErrNoHeader)
	}

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return fail(err)
		}
		if len(record) > len(header) {
			line, _ := r.FieldPos(0)
			return fail(fmt.Errorf("line %d: %w (%d > %d)", line, ErrRaggedRecord, len(record), len(header)))
		}
		if isBlank(record) {
			continue
		}
		records = append(records, record)
	}

	return build(header, records), nil
}

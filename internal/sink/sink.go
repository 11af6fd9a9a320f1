// Package sink serializes normalized tables as newline-delimited JSON and stores them.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"attachment-ingestor/internal/storage"
	"attachment-ingestor/internal/table"
)

// ContentType of every object the sink writes
const ContentType = "application/json"

// Encode renders one JSON object per row, keys in column order, each followed by a newline
func Encode(t *table.Normalized) ([]byte, error) {
	var buf bytes.Buffer
	for i, row := range t.Rows {
		buf.WriteByte('{')
		for c, column := range t.Columns {
			if c > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(column)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(row[column])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, column, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteString("}\n")
	}
	return buf.Bytes(), nil
}

// DestinationKey places the output for filename under prefix: the base name without its
// extension, the invocation suffix and ".json"
func DestinationKey(prefix, filename string, suffix int64) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if stem := strings.TrimSuffix(base, path.Ext(base)); stem != "" {
		base = stem
	}
	name := fmt.Sprintf("%s_%d.json", base, suffix)
	if prefix = strings.Trim(prefix, "/"); prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Writer stores encoded tables in an object store
type Writer struct {
	Store  storage.ObjectStore
	Prefix string
}

// NewWriter returns a Writer placing outputs under prefix
func NewWriter(store storage.ObjectStore, prefix string) *Writer {
	return &Writer{Store: store, Prefix: prefix}
}

// Write encodes t and stores it in bucket under the destination key for filename, which is
// returned
func (w *Writer) Write(ctx context.Context, bucket, filename string, t *table.Normalized, suffix int64) (string, error) {
	key := DestinationKey(w.Prefix, filename, suffix)
	body, err := Encode(t)
	if err != nil {
		return key, fmt.Errorf("encode %s: %w", filename, err)
	}
	if err := w.Store.Put(ctx, bucket, key, body, ContentType); err != nil {
		return key, err
	}
	return key, nil
}

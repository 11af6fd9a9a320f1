package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"attachment-ingestor/internal/storage"
	"attachment-ingestor/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *table.Normalized {
	return &table.Normalized{
		Table: table.Table{
			Columns: []string{"order_id", "qty", "price", "timestamp"},
			Rows: []table.Row{
				{"order_id": "A1", "qty": int64(5), "price": 1.5, "timestamp": "2024-05-01 08:00:00"},
				{"order_id": "A\"2", "qty": nil, "price": nil, "timestamp": "2024-05-01 08:00:00"},
			},
		},
		Timestamp: "2024-05-01 08:00:00",
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(sample())
	require.NoError(t, err)

	assert.Equal(t,
		`{"order_id":"A1","qty":5,"price":1.5,"timestamp":"2024-05-01 08:00:00"}`+"\n"+
			`{"order_id":"A\"2","qty":null,"price":null,"timestamp":"2024-05-01 08:00:00"}`+"\n",
		string(data))

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lines := 0
	for scanner.Scan() {
		var record map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		assert.Contains(t, record, "timestamp")
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(&table.Normalized{Table: table.Table{Columns: []string{"timestamp"}}})
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestEncode_EmptyLabel(t *testing.T) {
	n := &table.Normalized{Table: table.Table{
		Columns: []string{"", "timestamp"},
		Rows:    []table.Row{{"": "b", "timestamp": "2024-05-01 08:00:00"}},
	}}

	data, err := Encode(n)
	require.NoError(t, err)
	assert.Equal(t, `{"":"b","timestamp":"2024-05-01 08:00:00"}`+"\n", string(data))
}

func TestDestinationKey(t *testing.T) {
	tests := []struct {
		prefix, filename string
		want             string
	}{
		{"emails/processed", "data.csv", "emails/processed/data_1700000000.json"},
		{"emails/processed/", "report.final.xlsx", "emails/processed/report.final_1700000000.json"},
		{"emails/processed", "noext", "emails/processed/noext_1700000000.json"},
		{"emails/processed", ".hidden", "emails/processed/.hidden_1700000000.json"},
		{"emails/processed", "../../etc/data.csv", "emails/processed/data_1700000000.json"},
		{"emails/processed", `C:\reports\daily.csv`, "emails/processed/daily_1700000000.json"},
		{"", "data.csv", "data_1700000000.json"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, DestinationKey(tt.prefix, tt.filename, 1700000000))
		})
	}
}

func TestWriter_Write(t *testing.T) {
	store := storage.NewBlobStore(storage.MemOpener())
	defer func() {
		_ = store.Close()
	}()
	w := NewWriter(store, "emails/processed")

	key, err := w.Write(context.Background(), "inbound", "data.csv", sample(), 42)
	require.NoError(t, err)
	assert.Equal(t, "emails/processed/data_42.json", key)

	body, err := store.Get(context.Background(), "inbound", key)
	require.NoError(t, err)
	want, _ := Encode(sample())
	assert.Equal(t, want, body)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string, string) ([]byte, error) { return nil, nil }

func (brokenStore) Put(context.Context, string, string, []byte, string) error {
	return errors.New("disk full")
}

func TestWriter_StoreFailure(t *testing.T) {
	key, err := NewWriter(brokenStore{}, "out").Write(context.Background(), "b", "x.csv", sample(), 1)
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, "out/x_1.json", key)
}

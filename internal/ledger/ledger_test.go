package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteLedger_RecordRecent(t *testing.T) {
	l, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer func() {
		_ = l.Close()
	}()

	ctx := context.Background()
	started := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, Entry{
		TraceID: "t1", Bucket: "inbound", Key: "emails/1.eml", Sender: "unknown@nowhere.com",
		StatusCode: 200, Message: "Sender not in whitelist.", StartedAt: started, Duration: 12 * time.Millisecond,
	}))
	require.NoError(t, l.Record(ctx, Entry{
		TraceID: "t2", Bucket: "inbound", Key: "emails/2.eml", Sender: "example_brand@example.com", Brand: "ExampleBrand",
		StatusCode: 200, Message: "Email processed successfully.", Outputs: 2, Skipped: 1, StartedAt: started.Add(time.Minute),
	}))

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "t2", entries[0].TraceID)
	assert.Equal(t, "ExampleBrand", entries[0].Brand)
	assert.Equal(t, 2, entries[0].Outputs)
	assert.Equal(t, 1, entries[0].Skipped)
	assert.True(t, started.Add(time.Minute).Equal(entries[0].StartedAt))

	assert.Equal(t, "t1", entries[1].TraceID)
	assert.Equal(t, 12*time.Millisecond, entries[1].Duration)

	entries, err = l.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSQLiteLedger_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(context.Background(), Entry{TraceID: "kept", StartedAt: time.Now()}))
	require.NoError(t, l.Close())

	l, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() {
		_ = l.Close()
	}()

	entries, err := l.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].TraceID)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Entry{}))
}

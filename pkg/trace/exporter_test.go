package trace

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(op string) *TraceRecord {
	return &TraceRecord{
		Timestamp:   time.Now().UTC(),
		OperationID: "op-1",
		Operation:   op,
		ContextID:   "c1",
		DurationMs:  12,
		Status:      "success",
		Spans: []SpanRecord{
			{Name: "adapter:text", DurationMs: 8, OK: true,
				Counters: map[string]int64{"nodesAdded": 3, "rejections": 0}},
			{Name: "enrichment", DurationMs: 2, OK: true,
				Counters: map[string]int64{"rounds": 1}},
		},
	}
}

func TestFileExporterWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	fe, err := NewFileExporter(path)
	require.NoError(t, err)

	require.NoError(t, fe.Export(context.Background(), sampleRecord("ingest")))
	require.NoError(t, fe.Export(context.Background(), sampleRecord("retract")))
	require.NoError(t, fe.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []TraceRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r TraceRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		records = append(records, r)
	}
	require.Equal(t, 2, len(records))
	assert.Equal(t, "ingest", records[0].Operation)
	assert.Equal(t, "retract", records[1].Operation)
	assert.Equal(t, "c1", records[0].ContextID)
	require.Equal(t, 2, len(records[0].Spans))
	assert.Equal(t, int64(3), records[0].Spans[0].Counters["nodesAdded"])
	assert.Equal(t, int64(1), records[1].Spans[1].Counters["rounds"])
}

func TestFileExporterRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	fe, err := NewFileExporter(path, WithMaxSize(200), WithMaxRotatedFiles(2))
	require.NoError(t, err)
	defer fe.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, fe.Export(context.Background(), sampleRecord("ingest")))
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "expected at least one rotated file")
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err), "rotation kept more files than configured")
}

func TestFileExporterClosedRejectsExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	fe, err := NewFileExporter(path)
	require.NoError(t, err)
	require.NoError(t, fe.Close())

	assert.Error(t, fe.Export(context.Background(), sampleRecord("emit")))
	// Second close is a no-op.
	assert.NoError(t, fe.Close())
}

func TestNoopExporter(t *testing.T) {
	ne := NewNoopExporter()
	assert.NoError(t, ne.Export(context.Background(), sampleRecord("ingest")))
	assert.NoError(t, ne.Close())
}

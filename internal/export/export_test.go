// internal/export/export_test.go
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

func sampleEntries() []model.LogEntry {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	return []model.LogEntry{
		{
			Timestamp: ts,
			Direction: model.DirectionSent,
			Data:      []byte("AT+GMR"),
			Format:    model.DataFormatText,
			PortName:  "COM3",
		},
		{
			Timestamp: ts.Add(120 * time.Millisecond),
			Direction: model.DirectionReceived,
			Data:      []byte("OK"),
			Format:    model.DataFormatText,
			PortName:  "COM3",
		},
	}
}

func TestWriteTxt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleEntries(), model.ExportFormatTxt, 0))

	out := buf.String()
	assert.Contains(t, out, "RSerial Debug Assistant - Log Export")
	assert.Contains(t, out, "Generated: ")
	assert.Contains(t, out, strings.Repeat("=", 60))
	assert.Contains(t, out, "[09:26:53.589] TX: AT+GMR\n")
	assert.Contains(t, out, "[09:26:53.709] RX: OK\n")
}

func TestWriteTxtAppliesTimezoneOffset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleEntries(), model.ExportFormatTxt, 480))

	assert.Contains(t, buf.String(), "[17:26:53.589] TX: AT+GMR\n")
}

func TestWriteCsv(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleEntries(), model.ExportFormatCsv, 0))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"timestamp", "direction", "port", "data"}, records[0])
	assert.Equal(t, []string{"2025-03-14 09:26:53.589", "sent", "COM3", "AT+GMR"}, records[1])
	assert.Equal(t, "received", records[2][1])
}

func TestWriteCsvEscapesQuotesAndCommas(t *testing.T) {
	entries := []model.LogEntry{{
		Timestamp: time.Now().UTC(),
		Direction: model.DirectionReceived,
		Data:      []byte(`say "hi", please`),
		Format:    model.DataFormatText,
		PortName:  "COM1",
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, model.ExportFormatCsv, 0))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `say "hi", please`, records[1][3])
}

func TestWriteJson(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleEntries(), model.ExportFormatJson, 0))

	var decoded []model.LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, model.DirectionSent, decoded[0].Direction)
	assert.Equal(t, []byte("AT+GMR"), decoded[0].Data)
}

func TestWriteJsonEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, model.ExportFormatJson, 0))
	assert.Equal(t, "[]", strings.TrimSpace(buf.String()))
}

func TestWriteUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, sampleEntries(), model.ExportFormat("xml"), 0)
	assert.Error(t, err)
}

func TestWriteFileCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "2025", "log.txt")
	require.NoError(t, WriteFile(path, sampleEntries(), model.ExportFormatTxt, 0))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "TX: AT+GMR")
}

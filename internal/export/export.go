// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

// WriteFile renders the ordered log sequence to a file in the requested
// format, creating parent directories as needed. Timestamps are shifted by
// the given timezone offset in minutes.
func WriteFile(path string, entries []model.LogEntry, format model.ExportFormat, tzOffsetMinutes int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := Write(file, entries, format, tzOffsetMinutes); err != nil {
		return err
	}
	return file.Sync()
}

// Write renders the log sequence in the requested format to w
func Write(w io.Writer, entries []model.LogEntry, format model.ExportFormat, tzOffsetMinutes int) error {
	switch format {
	case model.ExportFormatTxt:
		return writeTxt(w, entries, tzOffsetMinutes)
	case model.ExportFormatCsv:
		return writeCsv(w, entries, tzOffsetMinutes)
	case model.ExportFormatJson:
		return writeJson(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %q", format)
	}
}

// writeTxt renders a banner followed by one directional line per entry
func writeTxt(w io.Writer, entries []model.LogEntry, tzOffsetMinutes int) error {
	zone := time.FixedZone("", tzOffsetMinutes*60)

	if _, err := fmt.Fprintf(w, "RSerial Debug Assistant - Log Export\nGenerated: %s\n%s\n\n",
		time.Now().In(zone).Format("2006-01-02 15:04:05 -0700"),
		strings.Repeat("=", 60),
	); err != nil {
		return err
	}

	for _, entry := range entries {
		ts := entry.Timestamp.In(zone).Format("15:04:05.000")
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", ts, entry.Direction.Label(), string(entry.Data)); err != nil {
			return err
		}
	}
	return nil
}

// writeCsv renders timestamp,direction,port,data rows with quote escaping
func writeCsv(w io.Writer, entries []model.LogEntry, tzOffsetMinutes int) error {
	zone := time.FixedZone("", tzOffsetMinutes*60)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "direction", "port", "data"}); err != nil {
		return err
	}
	for _, entry := range entries {
		record := []string{
			entry.Timestamp.In(zone).Format("2006-01-02 15:04:05.000"),
			string(entry.Direction),
			entry.PortName,
			string(entry.Data),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJson renders the entries as a pretty-printed array
func writeJson(w io.Writer, entries []model.LogEntry) error {
	if entries == nil {
		entries = []model.LogEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

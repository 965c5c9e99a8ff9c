// internal/serial/display.go
package serial

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

// FormatForDisplay renders a byte payload according to the display settings.
// The result is deterministic for a given payload and settings.
func FormatForDisplay(data []byte, settings model.DisplaySettings) string {
	switch settings.Format {
	case model.DisplayFormatHex:
		return formatHex(data)
	default:
		return formatText(data, settings.Encoding, settings.SpecialCharConfig)
	}
}

// formatHex renders each byte as two uppercase hex digits, space separated
func formatHex(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// formatText decodes the payload under the selected encoding and applies
// special-character substitution. A payload that fails decoding is rendered
// as hex instead of producing replacement characters, so the display never
// misrepresents the bytes on the wire.
func formatText(data []byte, encoding model.TextEncoding, special model.SpecialCharConfig) string {
	var text string
	switch encoding {
	case model.EncodingGBK:
		decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data)
		if err != nil || strings.ContainsRune(string(decoded), utf8.RuneError) {
			return formatHex(data)
		}
		text = string(decoded)
	default:
		if !utf8.Valid(data) {
			return formatHex(data)
		}
		text = string(data)
	}

	if !special.Enabled {
		return text
	}
	return visualizeSpecialChars(text, special)
}

// visualizeSpecialChars substitutes control characters in a fixed order:
// newline glyphs first, space visualization last. A space ahead of a newline
// therefore counts as interior, not trailing, once the LF has become ␊.
func visualizeSpecialChars(text string, cfg model.SpecialCharConfig) string {
	if cfg.ConvertLF {
		text = strings.ReplaceAll(text, "\n", "␊")
	}
	if cfg.ConvertCR {
		text = strings.ReplaceAll(text, "\r", "␍")
	}
	if cfg.ConvertTab {
		text = strings.ReplaceAll(text, "\t", "␉")
	}
	if cfg.ConvertNull {
		text = strings.ReplaceAll(text, "\x00", "␀")
	}
	if cfg.ConvertEsc {
		text = strings.ReplaceAll(text, "\x1B", "␛")
	}
	if cfg.ConvertSpace {
		text = visualizeSpaces(text)
	}
	return text
}

// visualizeSpaces marks trailing spaces and runs of two or more interior
// spaces with a visible glyph. Single interior spaces stay untouched so
// normal prose is not cluttered, while alignment-significant whitespace
// remains visible.
func visualizeSpaces(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " ")
		trailing := len(line) - len(trimmed)
		lines[i] = markSpaceRuns(trimmed) + strings.Repeat("␣", trailing)
	}
	return strings.Join(lines, "\n")
}

func markSpaceRuns(line string) string {
	var sb strings.Builder
	run := 0
	for _, r := range line {
		if r == ' ' {
			run++
			continue
		}
		sb.WriteString(spaceRun(run))
		run = 0
		sb.WriteRune(r)
	}
	sb.WriteString(spaceRun(run))
	return sb.String()
}

func spaceRun(n int) string {
	if n >= 2 {
		return strings.Repeat("␣", n)
	}
	return strings.Repeat(" ", n)
}

// FormatTimestamp renders the current wall clock as HH:MM:SS.mmm with the
// configured timezone offset applied.
func FormatTimestamp(offsetMinutes int) string {
	return timeInOffset(time.Now(), offsetMinutes).Format("15:04:05.000")
}

// FormatFilenameTimestamp renders the current wall clock for use in
// recording filenames.
func FormatFilenameTimestamp(offsetMinutes int) string {
	return timeInOffset(time.Now(), offsetMinutes).Format("2006-01-02_15-04-05")
}

func timeInOffset(t time.Time, offsetMinutes int) time.Time {
	return t.UTC().In(time.FixedZone("", offsetMinutes*60))
}

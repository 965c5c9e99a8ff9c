// internal/model/settings.go
package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// FrameSegmentationMode selects how the reader loop cuts the byte stream
// into frames
type FrameSegmentationMode string

const (
	// SegmentationTimeout emits a frame after timeout_ms of line silence
	SegmentationTimeout FrameSegmentationMode = "timeout"
	// SegmentationDelimiter emits a frame as soon as the delimiter is seen
	SegmentationDelimiter FrameSegmentationMode = "delimiter"
	// SegmentationCombined arms both triggers at once
	SegmentationCombined FrameSegmentationMode = "combined"
)

// HonorsDelimiter reports whether the mode scans for delimiters
func (m FrameSegmentationMode) HonorsDelimiter() bool {
	return m == SegmentationDelimiter || m == SegmentationCombined
}

// HonorsTimeout reports whether the mode flushes on idle
func (m FrameSegmentationMode) HonorsTimeout() bool {
	return m == SegmentationTimeout || m == SegmentationCombined
}

// Valid reports whether the mode is one of the known variants
func (m FrameSegmentationMode) Valid() bool {
	return m == SegmentationTimeout || m == SegmentationDelimiter || m == SegmentationCombined
}

// DelimiterType names the frame boundary variant
type DelimiterType string

const (
	DelimiterAnyNewline DelimiterType = "any_newline"
	DelimiterCR         DelimiterType = "cr"
	DelimiterLF         DelimiterType = "lf"
	DelimiterCRLF       DelimiterType = "crlf"
	DelimiterCustom     DelimiterType = "custom"
)

// FrameDelimiter is the configured frame boundary. For DelimiterCustom the
// byte sequence is carried as an even-length hex string.
type FrameDelimiter struct {
	Type      DelimiterType `json:"type"`
	CustomHex string        `json:"custom_hex,omitempty"`
}

// IsAnyNewline reports whether the delimiter is the any-newline pseudo
// delimiter, which matches CR, LF, or CRLF as a single boundary.
func (d FrameDelimiter) IsAnyNewline() bool {
	return d.Type == DelimiterAnyNewline
}

// Bytes returns the concrete delimiter byte sequence. For the any-newline
// pseudo delimiter there is no single sequence and nil is returned.
func (d FrameDelimiter) Bytes() []byte {
	switch d.Type {
	case DelimiterCR:
		return []byte{0x0D}
	case DelimiterLF:
		return []byte{0x0A}
	case DelimiterCRLF:
		return []byte{0x0D, 0x0A}
	case DelimiterCustom:
		b, err := hex.DecodeString(strings.ReplaceAll(d.CustomHex, " ", ""))
		if err != nil {
			return nil
		}
		return b
	default:
		return nil
	}
}

// Validate checks the delimiter variant and custom byte encoding
func (d FrameDelimiter) Validate() error {
	switch d.Type {
	case DelimiterAnyNewline, DelimiterCR, DelimiterLF, DelimiterCRLF:
		return nil
	case DelimiterCustom:
		cleaned := strings.ReplaceAll(d.CustomHex, " ", "")
		if cleaned == "" {
			return fmt.Errorf("custom delimiter is empty")
		}
		if _, err := hex.DecodeString(cleaned); err != nil {
			return fmt.Errorf("custom delimiter is not valid hex: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid delimiter type: %q", d.Type)
	}
}

// FrameSegmentationConfig drives the frame segmentation engine. It is
// mutable at runtime and re-read on every reader-loop iteration.
type FrameSegmentationConfig struct {
	Mode      FrameSegmentationMode `json:"mode"`
	TimeoutMs uint64                `json:"timeout_ms"`
	Delimiter FrameDelimiter        `json:"delimiter"`
}

// Clamped returns a copy with timeout_ms forced into [10,1000]
func (c FrameSegmentationConfig) Clamped() FrameSegmentationConfig {
	out := c
	if out.TimeoutMs < 10 {
		out.TimeoutMs = 10
	}
	if out.TimeoutMs > 1000 {
		out.TimeoutMs = 1000
	}
	return out
}

// DefaultFrameSegmentationConfig returns the startup segmentation rule
func DefaultFrameSegmentationConfig() FrameSegmentationConfig {
	return FrameSegmentationConfig{
		Mode:      SegmentationCombined,
		TimeoutMs: 50,
		Delimiter: FrameDelimiter{Type: DelimiterAnyNewline},
	}
}

// DisplayFormat selects how received and sent bytes are rendered
type DisplayFormat string

const (
	DisplayFormatText DisplayFormat = "text"
	DisplayFormatHex  DisplayFormat = "hex"
)

// Valid reports whether the format is one of the known variants
func (f DisplayFormat) Valid() bool {
	return f == DisplayFormatText || f == DisplayFormatHex
}

// TextEncoding selects the character encoding for text rendering
type TextEncoding string

const (
	EncodingUTF8 TextEncoding = "utf-8"
	EncodingGBK  TextEncoding = "gbk"
)

// Valid reports whether the encoding is supported
func (e TextEncoding) Valid() bool {
	return e == EncodingUTF8 || e == EncodingGBK
}

// SpecialCharConfig toggles visible glyph substitution per control character
type SpecialCharConfig struct {
	Enabled      bool `json:"enabled"`
	ConvertLF    bool `json:"convert_lf"`
	ConvertCR    bool `json:"convert_cr"`
	ConvertTab   bool `json:"convert_tab"`
	ConvertNull  bool `json:"convert_null"`
	ConvertEsc   bool `json:"convert_esc"`
	ConvertSpace bool `json:"convert_spaces"`
}

// DisplaySettings govern byte-to-text rendering. Mutations affect only
// entries produced afterwards; each entry freezes its own display text.
type DisplaySettings struct {
	Format            DisplayFormat     `json:"format"`
	Encoding          TextEncoding      `json:"encoding"`
	SpecialCharConfig SpecialCharConfig `json:"special_char_config"`
	ShowTimestamps    bool              `json:"show_timestamps"`
}

// DefaultDisplaySettings returns the startup display settings
func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{
		Format:         DisplayFormatText,
		Encoding:       EncodingUTF8,
		ShowTimestamps: true,
	}
}

// RecordingStatus reports the two independent recording channels
type RecordingStatus struct {
	TextRecordingActive bool    `json:"text_recording_active"`
	RawRecordingActive  bool    `json:"raw_recording_active"`
	TextFilePath        *string `json:"text_file_path,omitempty"`
	RawFilePath         *string `json:"raw_file_path,omitempty"`
}

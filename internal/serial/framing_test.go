// internal/serial/framing_test.go
package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

func delimiterCfg(d model.FrameDelimiter) model.FrameSegmentationConfig {
	return model.FrameSegmentationConfig{
		Mode:      model.SegmentationDelimiter,
		TimeoutMs: 50,
		Delimiter: d,
	}
}

func TestFindDelimiter(t *testing.T) {
	assert.Equal(t, 2, findDelimiter([]byte("ab\r\ncd"), []byte("\r\n")))
	assert.Equal(t, -1, findDelimiter([]byte("abcd"), []byte("\r\n")))
	assert.Equal(t, -1, findDelimiter([]byte("ab"), nil))
	assert.Equal(t, -1, findDelimiter([]byte("a"), []byte("ab")))
	assert.Equal(t, 0, findDelimiter([]byte{0xAA, 0x55, 0x01}, []byte{0xAA, 0x55}))
}

func TestFindAnyNewline(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		pos    int
		length int
	}{
		{"none", []byte("abc"), -1, 0},
		{"bare lf", []byte("ab\ncd"), 2, 1},
		{"bare cr", []byte("ab\rcd"), 2, 1},
		{"crlf is one boundary", []byte("ab\r\ncd"), 2, 2},
		{"lf before cr", []byte("\n\r"), 0, 1},
		{"leading crlf", []byte("\r\nx"), 0, 2},
		{"empty", nil, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, length := findAnyNewline(tt.input)
			assert.Equal(t, tt.pos, pos)
			assert.Equal(t, tt.length, length)
		})
	}
}

func TestSegmenterCRLFSingleFrame(t *testing.T) {
	s := NewSegmenter()
	s.Append([]byte("hello\r\n"))

	frames := s.Frames(delimiterCfg(model.FrameDelimiter{Type: model.DelimiterAnyNewline}))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("hello\r\n"), frames[0])
	assert.Zero(t, s.Pending())
}

func TestSegmenterSpansReadBoundaries(t *testing.T) {
	s := NewSegmenter()
	cfg := delimiterCfg(model.FrameDelimiter{Type: model.DelimiterAnyNewline})

	s.Append([]byte("AB"))
	assert.Empty(t, s.Frames(cfg))
	assert.Equal(t, 2, s.Pending())

	s.Append([]byte("CD\n"))
	frames := s.Frames(cfg)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("ABCD\n"), frames[0])
}

func TestSegmenterMultipleFramesPerRead(t *testing.T) {
	s := NewSegmenter()
	s.Append([]byte("one\ntwo\r\nthree"))

	frames := s.Frames(delimiterCfg(model.FrameDelimiter{Type: model.DelimiterAnyNewline}))
	require.Len(t, frames, 2)
	assert.Equal(t, []byte("one\n"), frames[0])
	assert.Equal(t, []byte("two\r\n"), frames[1])
	assert.Equal(t, 5, s.Pending())
}

func TestSegmenterCustomDelimiter(t *testing.T) {
	s := NewSegmenter()
	s.Append([]byte{0x01, 0x02, 0xAA, 0x55, 0x03})

	cfg := delimiterCfg(model.FrameDelimiter{Type: model.DelimiterCustom, CustomHex: "AA55"})
	frames := s.Frames(cfg)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x01, 0x02, 0xAA, 0x55}, frames[0])
	assert.Equal(t, 1, s.Pending())
}

func TestSegmenterTimeoutModeIgnoresDelimiters(t *testing.T) {
	s := NewSegmenter()
	s.Append([]byte("line\nline\n"))

	cfg := model.FrameSegmentationConfig{
		Mode:      model.SegmentationTimeout,
		TimeoutMs: 50,
		Delimiter: model.FrameDelimiter{Type: model.DelimiterAnyNewline},
	}
	assert.Empty(t, s.Frames(cfg))
	assert.Equal(t, 10, s.Pending())
}

func TestSegmenterFlushIdle(t *testing.T) {
	s := NewSegmenter()
	cfg := model.FrameSegmentationConfig{
		Mode:      model.SegmentationTimeout,
		TimeoutMs: 50,
		Delimiter: model.FrameDelimiter{Type: model.DelimiterAnyNewline},
	}

	s.Append([]byte("partial"))

	// Not idle long enough yet
	assert.Nil(t, s.FlushIdle(cfg, time.Now().Add(20*time.Millisecond)))
	assert.Equal(t, 7, s.Pending())

	frame := s.FlushIdle(cfg, time.Now().Add(100*time.Millisecond))
	require.NotNil(t, frame)
	assert.Equal(t, []byte("partial"), frame)
	assert.Zero(t, s.Pending())

	// Nothing pending, nothing to flush
	assert.Nil(t, s.FlushIdle(cfg, time.Now().Add(time.Second)))
}

func TestSegmenterFlushIdleDelimiterModeNeverFlushes(t *testing.T) {
	s := NewSegmenter()
	s.Append([]byte("partial"))

	cfg := delimiterCfg(model.FrameDelimiter{Type: model.DelimiterLF})
	assert.Nil(t, s.FlushIdle(cfg, time.Now().Add(time.Minute)))
	assert.Equal(t, 7, s.Pending())
}

func TestSegmenterCombinedMode(t *testing.T) {
	s := NewSegmenter()
	cfg := model.FrameSegmentationConfig{
		Mode:      model.SegmentationCombined,
		TimeoutMs: 50,
		Delimiter: model.FrameDelimiter{Type: model.DelimiterAnyNewline},
	}

	// "a\r\nb": the delimiter emits "a\r\n" immediately, "b" waits for idle
	s.Append([]byte("a\r\nb"))
	frames := s.Frames(cfg)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("a\r\n"), frames[0])
	assert.Equal(t, 1, s.Pending())

	frame := s.FlushIdle(cfg, time.Now().Add(100*time.Millisecond))
	require.NotNil(t, frame)
	assert.Equal(t, []byte("b"), frame)
}

func TestSegmenterConfigChangeAppliesToBufferedBytes(t *testing.T) {
	s := NewSegmenter()
	s.Append([]byte("ab;cd"))

	// No frame under the newline delimiter
	assert.Empty(t, s.Frames(delimiterCfg(model.FrameDelimiter{Type: model.DelimiterAnyNewline})))

	// Switching the delimiter re-evaluates the same buffered bytes
	frames := s.Frames(delimiterCfg(model.FrameDelimiter{Type: model.DelimiterCustom, CustomHex: "3B"}))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("ab;"), frames[0])
}

// internal/serial/framing.go
package serial

import (
	"bytes"
	"time"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

// findDelimiter returns the first byte offset where delimiter occurs as a
// contiguous subsequence, or -1 if the delimiter is empty or longer than buf.
func findDelimiter(buf, delimiter []byte) int {
	if len(delimiter) == 0 || len(buf) < len(delimiter) {
		return -1
	}
	return bytes.Index(buf, delimiter)
}

// findAnyNewline scans left to right for CR, LF, or CRLF and returns the
// offset and length of the first boundary, or (-1, 0) when none is present.
// CRLF is always reported as one boundary of length 2, never as two of
// length 1, so a CRLF pair can never produce an empty extra frame.
func findAnyNewline(buf []byte) (pos, length int) {
	for i, b := range buf {
		switch b {
		case 0x0D:
			if i+1 < len(buf) && buf[i+1] == 0x0A {
				return i, 2
			}
			return i, 1
		case 0x0A:
			// A bare LF; an LF preceded by CR was caught above.
			return i, 1
		}
	}
	return -1, 0
}

// Segmenter is the frame segmentation state carried across reader-loop
// iterations: the accumulation buffer and the monotonic time of the last
// byte received. It is owned by a single goroutine and needs no locking.
type Segmenter struct {
	buf      []byte
	lastData time.Time
}

// NewSegmenter returns an empty segmenter
func NewSegmenter() *Segmenter {
	return &Segmenter{lastData: time.Now()}
}

// Append adds newly read bytes to the accumulation buffer and refreshes the
// last-received time.
func (s *Segmenter) Append(p []byte) {
	s.buf = append(s.buf, p...)
	s.lastData = time.Now()
}

// Pending returns the number of accumulated, not-yet-emitted bytes
func (s *Segmenter) Pending() int {
	return len(s.buf)
}

// Frames drains and returns every complete frame currently in the
// accumulation buffer under cfg, in arrival order. A frame includes its
// delimiter; the remainder stays accumulated. Modes that do not honor
// delimiters return nothing.
func (s *Segmenter) Frames(cfg model.FrameSegmentationConfig) [][]byte {
	if !cfg.Mode.HonorsDelimiter() {
		return nil
	}

	var frames [][]byte
	if cfg.Delimiter.IsAnyNewline() {
		for {
			pos, length := findAnyNewline(s.buf)
			if pos < 0 {
				break
			}
			frames = append(frames, s.drain(pos+length))
		}
		return frames
	}

	delim := cfg.Delimiter.Bytes()
	for {
		pos := findDelimiter(s.buf, delim)
		if pos < 0 {
			break
		}
		frames = append(frames, s.drain(pos+len(delim)))
	}
	return frames
}

// FlushIdle returns the whole accumulation buffer as one frame when the mode
// honors timeouts, data is pending, and the line has been silent for longer
// than timeout_ms. Otherwise it returns nil and leaves the buffer untouched.
func (s *Segmenter) FlushIdle(cfg model.FrameSegmentationConfig, now time.Time) []byte {
	if !cfg.Mode.HonorsTimeout() || len(s.buf) == 0 {
		return nil
	}
	if now.Sub(s.lastData) <= time.Duration(cfg.TimeoutMs)*time.Millisecond {
		return nil
	}
	return s.drain(len(s.buf))
}

// drain removes and returns the first n buffered bytes
func (s *Segmenter) drain(n int) []byte {
	frame := make([]byte, n)
	copy(frame, s.buf[:n])
	s.buf = s.buf[:copy(s.buf, s.buf[n:])]
	return frame
}

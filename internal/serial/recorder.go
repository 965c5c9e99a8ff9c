// internal/serial/recorder.go
package serial

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

var (
	// ErrTextRecordingActive is returned when text recording is started twice
	ErrTextRecordingActive = errors.New("text recording is already active")
	// ErrRawRecordingActive is returned when raw recording is started twice
	ErrRawRecordingActive = errors.New("raw recording is already active")
)

// Recorder owns the two independent recording channels: a human-readable
// text file with one timestamped, directional line per frame, and an
// unframed raw binary dump. Either, both, or neither may be active. All file
// access is serialized through the recorder's lock, so a concurrent
// start/stop can never race a write.
type Recorder struct {
	mu        sync.Mutex
	directory string
	textFile  *os.File
	textPath  string
	rawFile   *os.File
	rawPath   string
	logger    *zap.Logger
}

// NewRecorder creates a recorder writing under the given directory
func NewRecorder(directory string, logger *zap.Logger) *Recorder {
	return &Recorder{
		directory: directory,
		logger:    logger.With(zap.String("component", "recorder")),
	}
}

// SetDirectory changes the directory used for newly started recordings
func (r *Recorder) SetDirectory(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directory = dir
}

// Directory returns the current recording directory
func (r *Recorder) Directory() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.directory
}

// StartText opens a new text recording file and returns its path. Starting
// while a text recording is active fails and leaves the existing recording
// untouched.
func (r *Recorder) StartText(portName string, tzOffsetMinutes int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.textFile != nil {
		return "", ErrTextRecordingActive
	}

	path, file, err := r.openRecordingFile(portName, tzOffsetMinutes, "txt")
	if err != nil {
		return "", err
	}

	r.textFile = file
	r.textPath = path
	r.logger.Info("Started text recording", zap.String("path", path))
	return path, nil
}

// StopText flushes and closes the text recording file. Stopping an inactive
// channel is a no-op.
func (r *Recorder) StopText() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopTextLocked()
}

// StartRaw opens a new raw binary recording file and returns its path
func (r *Recorder) StartRaw(portName string, tzOffsetMinutes int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rawFile != nil {
		return "", ErrRawRecordingActive
	}

	path, file, err := r.openRecordingFile(portName, tzOffsetMinutes, "bin")
	if err != nil {
		return "", err
	}

	r.rawFile = file
	r.rawPath = path
	r.logger.Info("Started raw recording", zap.String("path", path))
	return path, nil
}

// StopRaw flushes and closes the raw recording file
func (r *Recorder) StopRaw() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRawLocked()
}

// StopAll closes both channels; called on disconnect
func (r *Recorder) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.stopTextLocked(); err != nil {
		r.logger.Warn("Error closing text recording", zap.Error(err))
	}
	if err := r.stopRawLocked(); err != nil {
		r.logger.Warn("Error closing raw recording", zap.Error(err))
	}
}

// WriteText appends one formatted line for a frame to the text channel.
// Write errors are logged and swallowed: a dropped line is preferable to
// killing the connection.
func (r *Recorder) WriteText(data []byte, direction model.Direction, tzOffsetMinutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.textFile == nil {
		return
	}

	line := fmt.Sprintf("[%s] %s: %s\n", FormatTimestamp(tzOffsetMinutes), direction.Label(), string(data))
	if _, err := r.textFile.WriteString(line); err != nil {
		r.logger.Warn("Error writing to text recording file", zap.Error(err))
	}
}

// WriteRaw appends unframed bytes to the raw channel, best effort
func (r *Recorder) WriteRaw(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rawFile == nil {
		return
	}

	if _, err := r.rawFile.Write(data); err != nil {
		r.logger.Warn("Error writing to raw recording file", zap.Error(err))
	}
}

// Status reports both channels
func (r *Recorder) Status() model.RecordingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := model.RecordingStatus{
		TextRecordingActive: r.textFile != nil,
		RawRecordingActive:  r.rawFile != nil,
	}
	if r.textFile != nil {
		path := r.textPath
		status.TextFilePath = &path
	}
	if r.rawFile != nil {
		path := r.rawPath
		status.RawFilePath = &path
	}
	return status
}

func (r *Recorder) stopTextLocked() error {
	if r.textFile == nil {
		return nil
	}
	err := r.textFile.Close()
	r.logger.Info("Stopped text recording", zap.String("path", r.textPath))
	r.textFile = nil
	r.textPath = ""
	return err
}

func (r *Recorder) stopRawLocked() error {
	if r.rawFile == nil {
		return nil
	}
	err := r.rawFile.Close()
	r.logger.Info("Stopped raw recording", zap.String("path", r.rawPath))
	r.rawFile = nil
	r.rawPath = ""
	return err
}

// openRecordingFile builds the <sanitized-port>_<timestamp>.<ext> path,
// creates the directory if needed, and opens the file for appending.
func (r *Recorder) openRecordingFile(portName string, tzOffsetMinutes int, extension string) (string, *os.File, error) {
	if err := os.MkdirAll(r.directory, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create recording directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.%s", sanitizePortName(portName), FormatFilenameTimestamp(tzOffsetMinutes), extension)
	path := filepath.Join(r.directory, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open recording file: %w", err)
	}
	return path, file, nil
}

// sanitizePortName replaces filesystem-hostile characters in a port name
func sanitizePortName(portName string) string {
	if portName == "" {
		return "UNKNOWN"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, portName)
}

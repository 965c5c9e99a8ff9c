// internal/serial/recorder_test.go
package serial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

func TestRecorderTextLifecycle(t *testing.T) {
	r := NewRecorder(t.TempDir(), zap.NewNop())

	path, err := r.StartText("COM3", 0)
	require.NoError(t, err)
	assert.Regexp(t, `COM3_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.txt$`, path)

	// Starting again while active fails and keeps the original file
	_, err = r.StartText("COM3", 0)
	assert.ErrorIs(t, err, ErrTextRecordingActive)

	r.WriteText([]byte("hello"), model.DirectionSent, 0)
	r.WriteText([]byte("world"), model.DirectionReceived, 0)
	require.NoError(t, r.StopText())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^\[\d{2}:\d{2}:\d{2}\.\d{3}\] TX: hello$`, string(content))
	assert.Regexp(t, `(?m)^\[\d{2}:\d{2}:\d{2}\.\d{3}\] RX: world$`, string(content))

	// Stopping an inactive channel is a no-op
	require.NoError(t, r.StopText())
}

func TestRecorderRawPreservesBytes(t *testing.T) {
	r := NewRecorder(t.TempDir(), zap.NewNop())

	path, err := r.StartRaw("/dev/ttyUSB0", 0)
	require.NoError(t, err)
	assert.Regexp(t, `_dev_ttyUSB0_.*\.bin$`, filepath.Base(path))

	_, err = r.StartRaw("/dev/ttyUSB0", 0)
	assert.ErrorIs(t, err, ErrRawRecordingActive)

	payload := []byte{0x00, 0xFF, 0x0D, 0x0A, 0x7F}
	r.WriteRaw(payload)
	require.NoError(t, r.StopRaw())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, content)
}

func TestRecorderChannelsAreIndependent(t *testing.T) {
	r := NewRecorder(t.TempDir(), zap.NewNop())

	_, err := r.StartText("COM1", 0)
	require.NoError(t, err)

	status := r.Status()
	assert.True(t, status.TextRecordingActive)
	assert.False(t, status.RawRecordingActive)
	assert.NotNil(t, status.TextFilePath)
	assert.Nil(t, status.RawFilePath)

	_, err = r.StartRaw("COM1", 0)
	require.NoError(t, err)
	assert.True(t, r.Status().RawRecordingActive)

	require.NoError(t, r.StopText())
	status = r.Status()
	assert.False(t, status.TextRecordingActive)
	assert.True(t, status.RawRecordingActive)

	r.StopAll()
	status = r.Status()
	assert.False(t, status.TextRecordingActive)
	assert.False(t, status.RawRecordingActive)
}

func TestRecorderWriteWhenInactiveIsNoop(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, zap.NewNop())

	r.WriteText([]byte("dropped"), model.DirectionSent, 0)
	r.WriteRaw([]byte("dropped"))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRecorderCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	r := NewRecorder(dir, zap.NewNop())

	_, err := r.StartText("COM9", 0)
	require.NoError(t, err)
	require.NoError(t, r.StopText())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSanitizePortName(t *testing.T) {
	assert.Equal(t, "COM3", sanitizePortName("COM3"))
	assert.Equal(t, "_dev_ttyUSB0", sanitizePortName("/dev/ttyUSB0"))
	assert.Equal(t, "a_b_c", sanitizePortName(`a:b*c`))
	assert.Equal(t, "UNKNOWN", sanitizePortName(""))
}

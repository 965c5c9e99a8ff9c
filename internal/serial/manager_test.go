// internal/serial/manager_test.go
package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goserial "go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/config"
	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

// fakePort is an in-memory transport. Reads block on an inbound channel
// until data arrives, the read timeout elapses (n=0, err=nil), or the port
// is closed.
type fakePort struct {
	mu          sync.Mutex
	inbound     chan []byte
	written     [][]byte
	closed      chan struct{}
	closeOnce   sync.Once
	readTimeout time.Duration
	readErr     error
}

func newFakePort() *fakePort {
	return &fakePort{
		inbound:     make(chan []byte, 64),
		closed:      make(chan struct{}),
		readTimeout: 50 * time.Millisecond,
	}
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	readErr := p.readErr
	timeout := p.readTimeout
	p.mu.Unlock()
	if readErr != nil {
		return 0, readErr
	}

	select {
	case data := <-p.inbound:
		return copy(buf, data), nil
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-time.After(timeout):
		return 0, nil
	}
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	p.written = append(p.written, cp)
	return len(data), nil
}

func (p *fakePort) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = t
	return nil
}

func (p *fakePort) failReads(err error) {
	p.mu.Lock()
	p.readErr = err
	p.mu.Unlock()
}

func (p *fakePort) writtenData() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.written))
	copy(out, p.written)
	return out
}

func (p *fakePort) SetMode(mode *goserial.Mode) error { return nil }
func (p *fakePort) Drain() error                      { return nil }
func (p *fakePort) ResetInputBuffer() error           { return nil }
func (p *fakePort) ResetOutputBuffer() error          { return nil }
func (p *fakePort) SetDTR(dtr bool) error             { return nil }
func (p *fakePort) SetRTS(rts bool) error             { return nil }
func (p *fakePort) Break(d time.Duration) error       { return nil }
func (p *fakePort) GetModemStatusBits() (*goserial.ModemStatusBits, error) {
	return &goserial.ModemStatusBits{}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Serial: config.SerialConfig{
			ReadTimeout:     10 * time.Millisecond,
			DisconnectGrace: 500 * time.Millisecond,
			ReadBufferSize:  1024,
		},
		Recording: config.RecordingConfig{
			Directory: t.TempDir(),
		},
	}
}

func newTestManager(t *testing.T) (*Manager, *fakePort) {
	t.Helper()
	port := newFakePort()
	m := NewManager(testConfig(t), zap.NewNop())
	m.openPort = func(name string, mode *goserial.Mode) (goserial.Port, error) {
		return port, nil
	}
	t.Cleanup(func() { m.Disconnect() })
	return m, port
}

func connect(t *testing.T, m *Manager) {
	t.Helper()
	require.NoError(t, m.Connect("COM3", model.DefaultSerialConfig()))
}

// waitForLogs polls until the buffer holds at least n entries
func waitForLogs(t *testing.T, m *Manager, n int) []model.LogEntry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		logs := m.Logs()
		if len(logs) >= n {
			return logs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d log entries, have %d", n, len(m.Logs()))
	return nil
}

func TestConnectRejectsInvalidConfig(t *testing.T) {
	m, _ := newTestManager(t)

	cfg := model.DefaultSerialConfig()
	cfg.BaudRate = 0
	err := m.Connect("COM3", cfg)
	require.Error(t, err)
	assert.False(t, m.Status().IsConnected)
}

func TestConnectOpenFailureLeavesDisconnected(t *testing.T) {
	m := NewManager(testConfig(t), zap.NewNop())
	m.openPort = func(name string, mode *goserial.Mode) (goserial.Port, error) {
		return nil, errors.New("port busy")
	}

	err := m.Connect("COM3", model.DefaultSerialConfig())
	require.Error(t, err)
	assert.False(t, m.Status().IsConnected)
}

func TestConnectDisconnectLifecycle(t *testing.T) {
	m, _ := newTestManager(t)

	connect(t, m)
	status := m.Status()
	assert.True(t, status.IsConnected)
	require.NotNil(t, status.PortName)
	assert.Equal(t, "COM3", *status.PortName)
	require.NotNil(t, status.ConnectionTime)

	require.NoError(t, m.Disconnect())
	status = m.Status()
	assert.False(t, status.IsConnected)
	assert.Nil(t, status.PortName)
	assert.Nil(t, status.ConnectionTime)

	// Disconnecting again is a no-op
	require.NoError(t, m.Disconnect())
}

func TestReconnectTearsDownPreviousConnection(t *testing.T) {
	first := newFakePort()
	second := newFakePort()
	ports := []*fakePort{first, second}

	m := NewManager(testConfig(t), zap.NewNop())
	var calls int
	m.openPort = func(name string, mode *goserial.Mode) (goserial.Port, error) {
		p := ports[calls]
		calls++
		return p, nil
	}
	t.Cleanup(func() { m.Disconnect() })

	connect(t, m)
	connect(t, m)

	select {
	case <-first.closed:
	default:
		t.Fatal("first port was not closed on reconnect")
	}
	assert.True(t, m.Status().IsConnected)
	assert.Equal(t, 2, calls)
}

func TestSendNotConnected(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.Send([]byte("hello"), model.DataFormatText)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSendWritesAndLogs(t *testing.T) {
	m, port := newTestManager(t)
	connect(t, m)

	require.NoError(t, m.Send([]byte("hello"), model.DataFormatText))

	written := port.writtenData()
	require.Len(t, written, 1)
	assert.Equal(t, []byte("hello"), written[0])

	logs := waitForLogs(t, m, 1)
	entry := logs[0]
	assert.Equal(t, model.DirectionSent, entry.Direction)
	assert.Equal(t, "hello", entry.DisplayText)
	assert.Equal(t, "COM3", entry.PortName)

	assert.Equal(t, uint64(5), m.Status().BytesSent)
}

func TestReceiveDelimitedFrame(t *testing.T) {
	m, port := newTestManager(t)
	connect(t, m)

	port.inbound <- []byte("pong\r\n")

	logs := waitForLogs(t, m, 1)
	entry := logs[0]
	assert.Equal(t, model.DirectionReceived, entry.Direction)
	assert.Equal(t, []byte("pong\r\n"), entry.Data)
	assert.Equal(t, uint64(6), m.Status().BytesReceived)
}

func TestReceiveFrameSpansReads(t *testing.T) {
	m, port := newTestManager(t)
	connect(t, m)

	port.inbound <- []byte("AB")
	port.inbound <- []byte("CD\n")

	logs := waitForLogs(t, m, 1)
	assert.Equal(t, []byte("ABCD\n"), logs[0].Data)
}

func TestReceiveIdleFlush(t *testing.T) {
	m, port := newTestManager(t)
	connect(t, m)

	m.SetSegmentation(model.FrameSegmentationConfig{
		Mode:      model.SegmentationTimeout,
		TimeoutMs: 20,
		Delimiter: model.FrameDelimiter{Type: model.DelimiterAnyNewline},
	})

	port.inbound <- []byte("no newline here")

	logs := waitForLogs(t, m, 1)
	assert.Equal(t, []byte("no newline here"), logs[0].Data)
}

func TestStatsResetOnReconnect(t *testing.T) {
	m, _ := newTestManager(t)
	connect(t, m)

	require.NoError(t, m.Send([]byte("xxxx"), model.DataFormatText))
	assert.Equal(t, uint64(4), m.Status().BytesSent)

	connect(t, m)
	assert.Equal(t, uint64(0), m.Status().BytesSent)
}

func TestConnectionLostOnReadFailure(t *testing.T) {
	m, port := newTestManager(t)

	lost := make(chan string, 1)
	m.SetEventHooks(nil, func(portName string, err error) {
		lost <- portName
	})
	connect(t, m)

	port.failReads(errors.New("device unplugged"))

	select {
	case name := <-lost:
		assert.Equal(t, "COM3", name)
	case <-time.After(2 * time.Second):
		t.Fatal("connection-lost hook was not invoked")
	}

	// Status flips to disconnected without an explicit Disconnect call
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && m.Status().IsConnected {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, m.Status().IsConnected)
}

func TestClearLogs(t *testing.T) {
	m, _ := newTestManager(t)
	connect(t, m)

	require.NoError(t, m.Send([]byte("a"), model.DataFormatText))
	waitForLogs(t, m, 1)

	m.ClearLogs()
	assert.Empty(t, m.Logs())
}

func TestSetMaxLogEntriesClamps(t *testing.T) {
	m, _ := newTestManager(t)

	assert.Equal(t, 100, m.SetMaxLogEntries(1))
	assert.Equal(t, 10000, m.SetMaxLogEntries(999999))
	assert.Equal(t, 500, m.SetMaxLogEntries(500))
	assert.Equal(t, 500, m.MaxLogEntries())
}

func TestLoweringLimitEvictsOldest(t *testing.T) {
	m, _ := newTestManager(t)
	connect(t, m)

	for i := 0; i < 150; i++ {
		require.NoError(t, m.Send([]byte(fmt.Sprintf("msg-%03d", i)), model.DataFormatText))
	}
	waitForLogs(t, m, 150)

	m.SetMaxLogEntries(100)

	logs := m.Logs()
	require.Len(t, logs, 100)
	// The 100 most recent entries survive, still in arrival order
	assert.Equal(t, "msg-050", logs[0].DisplayText)
	assert.Equal(t, "msg-149", logs[99].DisplayText)
}

func TestEvictionKeepsMostRecent(t *testing.T) {
	m, _ := newTestManager(t)
	connect(t, m)
	m.SetMaxLogEntries(100)

	for i := 0; i < 120; i++ {
		require.NoError(t, m.Send([]byte(fmt.Sprintf("e-%03d", i)), model.DataFormatText))
	}

	logs := m.Logs()
	require.Len(t, logs, 100)
	assert.Equal(t, "e-020", logs[0].DisplayText)
	assert.Equal(t, "e-119", logs[99].DisplayText)
}

func TestSetSegmentationClampsTimeout(t *testing.T) {
	m, _ := newTestManager(t)

	applied := m.SetSegmentation(model.FrameSegmentationConfig{
		Mode:      model.SegmentationTimeout,
		TimeoutMs: 5,
		Delimiter: model.FrameDelimiter{Type: model.DelimiterAnyNewline},
	})
	assert.Equal(t, uint64(10), applied.TimeoutMs)

	applied = m.SetSegmentation(model.FrameSegmentationConfig{
		Mode:      model.SegmentationTimeout,
		TimeoutMs: 50000,
		Delimiter: model.FrameDelimiter{Type: model.DelimiterAnyNewline},
	})
	assert.Equal(t, uint64(1000), applied.TimeoutMs)
}

func TestDisplaySettingsAffectNewEntriesOnly(t *testing.T) {
	m, _ := newTestManager(t)
	connect(t, m)

	require.NoError(t, m.Send([]byte("Hi"), model.DataFormatText))
	waitForLogs(t, m, 1)

	settings := m.DisplaySettings()
	settings.Format = model.DisplayFormatHex
	m.SetDisplaySettings(settings)

	require.NoError(t, m.Send([]byte("Hi"), model.DataFormatText))
	logs := waitForLogs(t, m, 2)

	assert.Equal(t, "Hi", logs[0].DisplayText)
	assert.Equal(t, "48 69", logs[1].DisplayText)
}

func TestEntryHookFires(t *testing.T) {
	m, _ := newTestManager(t)

	entries := make(chan model.LogEntry, 8)
	m.SetEventHooks(func(e model.LogEntry) { entries <- e }, nil)
	connect(t, m)

	require.NoError(t, m.Send([]byte("ping"), model.DataFormatText))

	select {
	case e := <-entries:
		assert.Equal(t, model.DirectionSent, e.Direction)
	case <-time.After(time.Second):
		t.Fatal("entry hook was not invoked")
	}
}

func TestDisconnectStopsRecordings(t *testing.T) {
	m, _ := newTestManager(t)
	connect(t, m)

	_, err := m.StartTextRecording()
	require.NoError(t, err)
	_, err = m.StartRawRecording()
	require.NoError(t, err)

	require.NoError(t, m.Disconnect())

	status := m.RecordingStatus()
	assert.False(t, status.TextRecordingActive)
	assert.False(t, status.RawRecordingActive)
}

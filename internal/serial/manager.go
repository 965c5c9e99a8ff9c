// internal/serial/manager.go
package serial

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	goserial "go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/config"
	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

// ErrNotConnected is returned by operations that require an open port
var ErrNotConnected = errors.New("no port is currently open")

const (
	minLogEntries     = 100
	maxLogEntries     = 10000
	defaultLogEntries = 1000
	idleSleep         = time.Millisecond
)

// PortOpener opens a serial transport. The manager defaults to the real
// hardware opener; tests inject a fake.
type PortOpener func(name string, mode *goserial.Mode) (goserial.Port, error)

// Manager owns the serial transport and the lifecycle of its reader loop,
// and is the single mediator between foreground callers and the background
// reader. Shared mutable state is split into independently locked field
// groups so the reader keeps making progress on I/O while callers adjust
// settings; no lock is ever held across a blocking read or write.
type Manager struct {
	logger   *zap.Logger
	openPort PortOpener

	readTimeout     time.Duration
	disconnectGrace time.Duration
	readBufferSize  int

	// opMu serializes caller-facing lifecycle operations (connect,
	// disconnect, send). The reader loop never takes it.
	opMu sync.Mutex

	// stateMu guards the connection identity, shared with the reader
	// loop's failure path.
	stateMu    sync.Mutex
	port       goserial.Port
	portName   string
	config     *model.SerialConfig
	connected  bool
	readerDone chan struct{}

	shutdown atomic.Bool

	logMu      sync.Mutex
	entries    []model.LogEntry
	maxEntries int

	statsMu        sync.Mutex
	bytesSent      uint64
	bytesReceived  uint64
	connectionTime *time.Time

	segMu  sync.Mutex
	segCfg model.FrameSegmentationConfig

	dispMu  sync.Mutex
	display model.DisplaySettings

	tzMu            sync.Mutex
	tzOffsetMinutes int

	recorder *Recorder

	onEntry          func(model.LogEntry)
	onConnectionLost func(portName string, err error)
}

// NewManager creates a connection manager with no open transport
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		logger:          logger.With(zap.String("component", "serial-manager")),
		openPort:        defaultOpenPort,
		readTimeout:     cfg.Serial.ReadTimeout,
		disconnectGrace: cfg.Serial.DisconnectGrace,
		readBufferSize:  cfg.Serial.ReadBufferSize,
		maxEntries:      defaultLogEntries,
		segCfg:          model.DefaultFrameSegmentationConfig(),
		display:         model.DefaultDisplaySettings(),
		tzOffsetMinutes: cfg.Recording.TimezoneOffsetMinutes,
		recorder:        NewRecorder(cfg.Recording.Directory, logger),
	}
}

// SetEventHooks installs the log-entry and connection-lost callbacks. Must
// be called before the first Connect.
func (m *Manager) SetEventHooks(onEntry func(model.LogEntry), onConnectionLost func(portName string, err error)) {
	m.onEntry = onEntry
	m.onConnectionLost = onConnectionLost
}

// Connect opens the transport and starts the reader loop. An existing
// connection is torn down first, so reconnecting is idempotent. Traffic
// statistics are reset and the connection start time recorded.
func (m *Manager) Connect(portName string, serialCfg model.SerialConfig) error {
	if err := serialCfg.Validate(); err != nil {
		return fmt.Errorf("invalid serial config: %w", err)
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.disconnectLocked()

	mode := buildMode(serialCfg)
	if serialCfg.FlowControl != model.FlowControlNone {
		m.logger.Warn("Flow control is not supported by the transport, ignoring",
			zap.String("flow_control", string(serialCfg.FlowControl)),
		)
	}

	port, err := m.openPort(portName, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	// Short fixed read timeout keeps the loop responsive to the shutdown
	// flag, independent of the segmentation timeout.
	if err := port.SetReadTimeout(m.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	m.shutdown.Store(false)
	done := make(chan struct{})

	m.stateMu.Lock()
	m.port = port
	m.portName = portName
	cfgCopy := serialCfg
	m.config = &cfgCopy
	m.connected = true
	m.readerDone = done
	m.stateMu.Unlock()

	now := time.Now().UTC()
	m.statsMu.Lock()
	m.bytesSent = 0
	m.bytesReceived = 0
	m.connectionTime = &now
	m.statsMu.Unlock()

	go m.runReaderLoop(port, portName, done)

	m.logger.Info("Connected to serial port",
		zap.String("port", portName),
		zap.Int("baud_rate", serialCfg.BaudRate),
	)
	return nil
}

// Disconnect tears down the connection. Idempotent when already
// disconnected.
func (m *Manager) Disconnect() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.disconnectLocked()
	return nil
}

// disconnectLocked runs the teardown sequence: signal the loop, stop both
// recording channels, close the port to break any in-flight read, wait a
// bounded grace for the loop to observe the flag, then reset identity and
// statistics. Caller holds opMu.
func (m *Manager) disconnectLocked() {
	m.stateMu.Lock()
	if !m.connected {
		m.stateMu.Unlock()
		return
	}
	port := m.port
	portName := m.portName
	done := m.readerDone
	m.stateMu.Unlock()

	m.shutdown.Store(true)
	m.recorder.StopAll()

	if port != nil {
		port.Close()
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(m.disconnectGrace):
			m.logger.Warn("Reader loop did not exit within grace period",
				zap.String("port", portName),
			)
		}
	}

	m.clearConnection()
	m.logger.Info("Disconnected from serial port", zap.String("port", portName))
}

// clearConnection resets the connection identity and statistics
func (m *Manager) clearConnection() {
	m.stateMu.Lock()
	m.port = nil
	m.portName = ""
	m.config = nil
	m.connected = false
	m.readerDone = nil
	m.stateMu.Unlock()

	m.statsMu.Lock()
	m.bytesSent = 0
	m.bytesReceived = 0
	m.connectionTime = nil
	m.statsMu.Unlock()
}

// Send writes bytes synchronously to the transport, mirrors them into both
// recording channels, updates sent statistics, and appends a sent log entry
// rendered through the same display pipeline as received frames. A write
// failure is surfaced to the caller; the connection is considered still
// open.
func (m *Manager) Send(data []byte, format model.DataFormat) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.stateMu.Lock()
	port := m.port
	portName := m.portName
	connected := m.connected
	m.stateMu.Unlock()

	if !connected || port == nil {
		return ErrNotConnected
	}

	if _, err := port.Write(data); err != nil {
		return fmt.Errorf("failed to write to serial port: %w", err)
	}

	tz := m.TimezoneOffset()
	m.recorder.WriteText(data, model.DirectionSent, tz)
	m.recorder.WriteRaw(data)

	m.statsMu.Lock()
	m.bytesSent += uint64(len(data))
	m.statsMu.Unlock()

	m.appendEntry(m.newEntry(data, model.DirectionSent, format, portName))
	return nil
}

// Status reports the current connection snapshot
func (m *Manager) Status() model.ConnectionStatus {
	m.stateMu.Lock()
	status := model.ConnectionStatus{IsConnected: m.connected}
	if m.connected {
		name := m.portName
		status.PortName = &name
		if m.config != nil {
			cfg := *m.config
			status.Config = &cfg
		}
	}
	m.stateMu.Unlock()

	m.statsMu.Lock()
	status.BytesSent = m.bytesSent
	status.BytesReceived = m.bytesReceived
	if m.connectionTime != nil {
		t := *m.connectionTime
		status.ConnectionTime = &t
	}
	m.statsMu.Unlock()

	return status
}

// Logs returns a copy of the buffered entries in arrival order
func (m *Manager) Logs() []model.LogEntry {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	out := make([]model.LogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// ClearLogs drops all buffered entries
func (m *Manager) ClearLogs() {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	m.entries = nil
}

// SetMaxLogEntries clamps n to [100,10000], updates the bound, and
// immediately evicts the oldest entries until the buffer satisfies it. The
// applied value is returned.
func (m *Manager) SetMaxLogEntries(n int) int {
	if n < minLogEntries {
		n = minLogEntries
	}
	if n > maxLogEntries {
		n = maxLogEntries
	}

	m.logMu.Lock()
	m.maxEntries = n
	m.evictLocked()
	m.logMu.Unlock()
	return n
}

// MaxLogEntries returns the current log buffer bound
func (m *Manager) MaxLogEntries() int {
	m.logMu.Lock()
	defer m.logMu.Unlock()
	return m.maxEntries
}

// SetSegmentation replaces the live segmentation config, clamping the
// timeout into [10,1000] ms. Takes effect on the next reader-loop iteration;
// already-buffered bytes are reprocessed under the new rule.
func (m *Manager) SetSegmentation(cfg model.FrameSegmentationConfig) model.FrameSegmentationConfig {
	cfg = cfg.Clamped()
	m.segMu.Lock()
	m.segCfg = cfg
	m.segMu.Unlock()
	return cfg
}

// Segmentation returns a copy of the live segmentation config
func (m *Manager) Segmentation() model.FrameSegmentationConfig {
	m.segMu.Lock()
	defer m.segMu.Unlock()
	return m.segCfg
}

// SetDisplaySettings replaces the live display settings. Affects only
// entries produced after the change.
func (m *Manager) SetDisplaySettings(settings model.DisplaySettings) {
	m.dispMu.Lock()
	m.display = settings
	m.dispMu.Unlock()
}

// DisplaySettings returns a copy of the live display settings
func (m *Manager) DisplaySettings() model.DisplaySettings {
	m.dispMu.Lock()
	defer m.dispMu.Unlock()
	return m.display
}

// SetTimezoneOffset sets the offset in minutes applied to recording and
// display timestamps.
func (m *Manager) SetTimezoneOffset(offsetMinutes int) {
	m.tzMu.Lock()
	m.tzOffsetMinutes = offsetMinutes
	m.tzMu.Unlock()
}

// TimezoneOffset returns the configured offset in minutes
func (m *Manager) TimezoneOffset() int {
	m.tzMu.Lock()
	defer m.tzMu.Unlock()
	return m.tzOffsetMinutes
}

// SetLogDirectory changes the directory for newly started recordings
func (m *Manager) SetLogDirectory(dir string) {
	m.recorder.SetDirectory(dir)
}

// LogDirectory returns the current recording directory
func (m *Manager) LogDirectory() string {
	return m.recorder.Directory()
}

// StartTextRecording opens the text recording channel
func (m *Manager) StartTextRecording() (string, error) {
	return m.recorder.StartText(m.currentPortName(), m.TimezoneOffset())
}

// StopTextRecording closes the text recording channel
func (m *Manager) StopTextRecording() error {
	return m.recorder.StopText()
}

// StartRawRecording opens the raw recording channel
func (m *Manager) StartRawRecording() (string, error) {
	return m.recorder.StartRaw(m.currentPortName(), m.TimezoneOffset())
}

// StopRawRecording closes the raw recording channel
func (m *Manager) StopRawRecording() error {
	return m.recorder.StopRaw()
}

// RecordingStatus reports both recording channels
func (m *Manager) RecordingStatus() model.RecordingStatus {
	return m.recorder.Status()
}

func (m *Manager) currentPortName() string {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.portName
}

// newEntry builds a log entry with display text and timestamp frozen under
// the settings active right now.
func (m *Manager) newEntry(data []byte, direction model.Direction, format model.DataFormat, portName string) model.LogEntry {
	disp := m.DisplaySettings()
	entry := model.LogEntry{
		Timestamp:   time.Now().UTC(),
		Direction:   direction,
		Data:        data,
		Format:      format,
		PortName:    portName,
		DisplayText: FormatForDisplay(data, disp),
	}
	if disp.ShowTimestamps {
		ts := FormatTimestamp(m.TimezoneOffset())
		entry.TimestampFormatted = &ts
	}
	return entry
}

// appendEntry pushes an entry, enforces the buffer bound, and notifies the
// entry sink.
func (m *Manager) appendEntry(entry model.LogEntry) {
	m.logMu.Lock()
	m.entries = append(m.entries, entry)
	m.evictLocked()
	m.logMu.Unlock()

	if m.onEntry != nil {
		m.onEntry(entry)
	}
}

// evictLocked drops oldest-first until the bound holds. Caller holds logMu.
func (m *Manager) evictLocked() {
	if excess := len(m.entries) - m.maxEntries; excess > 0 {
		m.entries = append(m.entries[:0], m.entries[excess:]...)
	}
}

// buildMode maps the line parameters onto the transport's mode struct
func buildMode(cfg model.SerialConfig) *goserial.Mode {
	mode := &goserial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}

	switch cfg.Parity {
	case model.ParityOdd:
		mode.Parity = goserial.OddParity
	case model.ParityEven:
		mode.Parity = goserial.EvenParity
	case model.ParityMark:
		mode.Parity = goserial.MarkParity
	case model.ParitySpace:
		mode.Parity = goserial.SpaceParity
	default:
		mode.Parity = goserial.NoParity
	}

	switch cfg.StopBits {
	case model.StopBitsOnePointFive:
		mode.StopBits = goserial.OnePointFiveStopBits
	case model.StopBitsTwo:
		mode.StopBits = goserial.TwoStopBits
	default:
		mode.StopBits = goserial.OneStopBit
	}

	return mode
}

func defaultOpenPort(name string, mode *goserial.Mode) (goserial.Port, error) {
	return goserial.Open(name, mode)
}

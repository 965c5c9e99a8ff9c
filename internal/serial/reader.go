// internal/serial/reader.go
package serial

import (
	"time"

	goserial "go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

// runReaderLoop is the background half of one connection. Each iteration it
// checks the shutdown flag, snapshots the live segmentation and display
// settings (lock-and-copy, never held across I/O), performs one
// bounded-timeout read, and turns accumulated bytes into frames. The
// transport's read timeout surfaces as a zero-byte read, which drives the
// idle-flush rule. Any other read error is fatal to the loop.
func (m *Manager) runReaderLoop(port goserial.Port, portName string, done chan struct{}) {
	defer close(done)

	buf := make([]byte, m.readBufferSize)
	seg := NewSegmenter()

	m.logger.Debug("Reader loop started", zap.String("port", portName))

	for {
		if m.shutdown.Load() {
			m.logger.Debug("Reader loop shutting down", zap.String("port", portName))
			return
		}

		segCfg := m.Segmentation()

		n, err := port.Read(buf)
		if err != nil {
			m.handleReadFailure(portName, err)
			return
		}

		if n > 0 {
			chunk := buf[:n]
			seg.Append(chunk)

			// Raw bytes go to the raw channel unconditionally, before
			// any framing decision.
			m.recorder.WriteRaw(chunk)

			for _, frame := range seg.Frames(segCfg) {
				m.emitReceived(frame, portName)
			}
			continue
		}

		// Zero-byte read: the bounded read timeout elapsed with no data.
		if frame := seg.FlushIdle(segCfg, time.Now()); frame != nil {
			m.emitReceived(frame, portName)
		}
		time.Sleep(idleSleep)
	}
}

// emitReceived turns one completed frame into exactly one log entry and one
// statistics update, plus a text-channel recording line.
func (m *Manager) emitReceived(frame []byte, portName string) {
	m.recorder.WriteText(frame, model.DirectionReceived, m.TimezoneOffset())

	m.statsMu.Lock()
	m.bytesReceived += uint64(len(frame))
	m.statsMu.Unlock()

	m.appendEntry(m.newEntry(frame, model.DirectionReceived, model.DataFormatText, portName))
}

// handleReadFailure terminates the connection when the transport read fails
// for a reason other than an orderly shutdown. The connection status flips
// to disconnected and the loss is published, so callers never observe
// "connected" with a dead loop.
func (m *Manager) handleReadFailure(portName string, err error) {
	if m.shutdown.Load() {
		// Orderly teardown: the port was closed under us by disconnect.
		return
	}

	m.logger.Error("Error reading from serial port, terminating connection",
		zap.String("port", portName),
		zap.Error(err),
	)

	m.stateMu.Lock()
	if !m.connected {
		m.stateMu.Unlock()
		return
	}
	port := m.port
	m.stateMu.Unlock()

	m.shutdown.Store(true)
	m.recorder.StopAll()
	if port != nil {
		port.Close()
	}
	m.clearConnection()

	if m.onConnectionLost != nil {
		m.onConnectionLost(portName, err)
	}
}

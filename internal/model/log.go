// internal/model/log.go
package model

import "time"

// Direction indicates whether a log entry was transmitted or received
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Label returns the short recording/export label for the direction
func (d Direction) Label() string {
	if d == DirectionSent {
		return "TX"
	}
	return "RX"
}

// DataFormat declares how the payload of a log entry or an outbound send
// request is to be interpreted
type DataFormat string

const (
	DataFormatText DataFormat = "text"
	DataFormatHex  DataFormat = "hex"
)

// LogEntry is one framed unit of traffic. Entries are immutable once created;
// the display text is frozen at creation time under the settings active then.
type LogEntry struct {
	ID                 *int64     `json:"id,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
	Direction          Direction  `json:"direction"`
	Data               []byte     `json:"data"`
	Format             DataFormat `json:"format"`
	PortName           string     `json:"port_name"`
	DisplayText        string     `json:"display_text"`
	TimestampFormatted *string    `json:"timestamp_formatted,omitempty"`
}

// ExportFormat selects the on-disk representation for exported logs
type ExportFormat string

const (
	ExportFormatTxt  ExportFormat = "txt"
	ExportFormatCsv  ExportFormat = "csv"
	ExportFormatJson ExportFormat = "json"
)

// ConnectionStatus is the snapshot reported by the connection manager
type ConnectionStatus struct {
	IsConnected    bool          `json:"is_connected"`
	PortName       *string       `json:"port_name,omitempty"`
	Config         *SerialConfig `json:"config,omitempty"`
	BytesSent      uint64        `json:"bytes_sent"`
	BytesReceived  uint64        `json:"bytes_received"`
	ConnectionTime *time.Time    `json:"connection_time,omitempty"`
}

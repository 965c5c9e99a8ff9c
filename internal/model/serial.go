// internal/model/serial.go
package model

import "fmt"

// Parity represents the parity bit setting of a serial line
type Parity string

const (
	ParityNone  Parity = "none"
	ParityOdd   Parity = "odd"
	ParityEven  Parity = "even"
	ParityMark  Parity = "mark"
	ParitySpace Parity = "space"
)

// StopBits represents the number of stop bits
type StopBits string

const (
	StopBitsOne          StopBits = "1"
	StopBitsOnePointFive StopBits = "1.5"
	StopBitsTwo          StopBits = "2"
)

// FlowControl represents the flow control setting
type FlowControl string

const (
	FlowControlNone     FlowControl = "none"
	FlowControlSoftware FlowControl = "software"
	FlowControlHardware FlowControl = "hardware"
)

// SerialConfig is an immutable snapshot of the line parameters for one
// connection. Changing it requires a fresh connect.
type SerialConfig struct {
	BaudRate    int         `json:"baud_rate"`
	DataBits    int         `json:"data_bits"`
	Parity      Parity      `json:"parity"`
	StopBits    StopBits    `json:"stop_bits"`
	FlowControl FlowControl `json:"flow_control"`
	TimeoutMs   uint64      `json:"timeout"`
}

// DefaultSerialConfig returns the default line parameters
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BaudRate:    115200,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    StopBitsOne,
		FlowControl: FlowControlNone,
		TimeoutMs:   1000,
	}
}

// Validate checks the configuration against the supported parameter sets
func (c *SerialConfig) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate: %d", c.BaudRate)
	}
	switch c.DataBits {
	case 5, 6, 7, 8:
	default:
		return fmt.Errorf("invalid data bits: %d", c.DataBits)
	}
	switch c.Parity {
	case ParityNone, ParityOdd, ParityEven, ParityMark, ParitySpace:
	default:
		return fmt.Errorf("invalid parity: %q", c.Parity)
	}
	switch c.StopBits {
	case StopBitsOne, StopBitsOnePointFive, StopBitsTwo:
	default:
		return fmt.Errorf("invalid stop bits: %q", c.StopBits)
	}
	switch c.FlowControl {
	case FlowControlNone, FlowControlSoftware, FlowControlHardware:
	default:
		return fmt.Errorf("invalid flow control: %q", c.FlowControl)
	}
	return nil
}

// PortInfo describes one enumerated serial port
type PortInfo struct {
	PortName     string  `json:"port_name"`
	PortType     string  `json:"port_type"`
	Description  *string `json:"description,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	Product      *string `json:"product,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	VID          *string `json:"vid,omitempty"`
	PID          *string `json:"pid,omitempty"`
}

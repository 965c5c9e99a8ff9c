// internal/serial/ports.go
package serial

import (
	"fmt"
	"strings"

	"github.com/google/gousb"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"github.com/Gyanano/RSerialDebugAssistant/internal/model"
)

// ListPorts enumerates the host's serial ports. USB-attached ports carry
// VID/PID, serial number, and product name from the platform enumerator;
// manufacturer and product strings are filled in from the USB descriptors
// when the device can be opened. Descriptor enrichment is best effort and
// never fails the enumeration.
func ListPorts(logger *zap.Logger) ([]model.PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]model.PortInfo, 0, len(details))
	for _, d := range details {
		info := model.PortInfo{
			PortName: d.Name,
			PortType: "Unknown",
		}
		if d.IsUSB {
			info.PortType = "USB"
			if d.VID != "" {
				vid := d.VID
				info.VID = &vid
			}
			if d.PID != "" {
				pid := d.PID
				info.PID = &pid
			}
			if d.SerialNumber != "" {
				sn := d.SerialNumber
				info.SerialNumber = &sn
			}
			if d.Product != "" {
				product := d.Product
				info.Product = &product
				info.Description = &product
			}
		}
		ports = append(ports, info)
	}

	enrichUSBDescriptors(ports, logger)
	return ports, nil
}

// enrichUSBDescriptors fills manufacturer/product strings for USB ports by
// matching VID/PID pairs against the attached USB devices.
func enrichUSBDescriptors(ports []model.PortInfo, logger *zap.Logger) {
	needsLookup := false
	for i := range ports {
		if ports[i].VID != nil && ports[i].Manufacturer == nil {
			needsLookup = true
			break
		}
	}
	if !needsLookup {
		return
	}

	ctx := gousb.NewContext()
	defer ctx.Close()

	for i := range ports {
		p := &ports[i]
		if p.VID == nil || p.PID == nil {
			continue
		}

		devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
			return strings.EqualFold(desc.Vendor.String(), *p.VID) &&
				strings.EqualFold(desc.Product.String(), *p.PID)
		})
		if err != nil {
			logger.Debug("USB descriptor lookup failed",
				zap.String("port", p.PortName),
				zap.Error(err),
			)
		}

		for _, dev := range devices {
			if p.Manufacturer == nil {
				if manufacturer, err := dev.Manufacturer(); err == nil && manufacturer != "" {
					p.Manufacturer = &manufacturer
				}
			}
			if p.Product == nil {
				if product, err := dev.Product(); err == nil && product != "" {
					p.Product = &product
					if p.Description == nil {
						p.Description = &product
					}
				}
			}
			dev.Close()
		}
	}
}

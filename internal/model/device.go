package model

import (
	"fmt"
	"net"
	"strconv"
)

const defaultDevicePort = 80

// DeviceAddressRequest is the HTTP body that points the relay at a new device.
type DeviceAddressRequest struct {
	IP   string `json:"ip" binding:"required"`
	Port int    `json:"port"`
}

// Validate checks that IP is a dotted IPv4 address and Port is usable.
// A zero Port means the default HTTP port.
func (r *DeviceAddressRequest) Validate() error {
	if ip := net.ParseIP(r.IP); ip == nil || ip.To4() == nil {
		return fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidDeviceAddress, r.IP)
	}
	if r.Port == 0 {
		r.Port = defaultDevicePort
	}
	if r.Port < 1 || r.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidDeviceAddress, r.Port)
	}
	return nil
}

// BaseURL returns the device URL for the address. The default port is omitted.
func (r *DeviceAddressRequest) BaseURL() string {
	if r.Port == 0 || r.Port == defaultDevicePort {
		return "http://" + r.IP
	}
	return "http://" + net.JoinHostPort(r.IP, strconv.Itoa(r.Port))
}

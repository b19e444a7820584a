package network

import (
	"fmt"
	"strings"
)

// Device identifies where the parameters of a network live and where
// its forward pass is computed.
type Device string

// CPU is the host device, the default placement of every network
const CPU Device = "cpu"

// ParseDevice returns the Device named by name. The empty string names
// the CPU. CUDA devices ("cuda" or "cuda:N") are recognized, but are
// unavailable since this build of Gorgonia executes only on the CPU.
func ParseDevice(name string) (Device, error) {
	n := strings.ToLower(strings.TrimSpace(name))

	switch {
	case n == "" || n == string(CPU):
		return CPU, nil

	case n == "cuda" || strings.HasPrefix(n, "cuda:"):
		return "", fmt.Errorf("parsedevice: device %q unavailable: "+
			"gorgonia was built without cuda support", name)

	default:
		return "", fmt.Errorf("parsedevice: unknown device %q", name)
	}
}

// String implements the fmt.Stringer interface
func (d Device) String() string {
	return string(d)
}

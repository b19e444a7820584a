package network

import (
	"fmt"

	"github.com/samuelfneumann/brace/initwfn"
)

// Config describes a DualHeadMLP. Zero values of the optional fields
// select the defaults: DefaultHidden hidden units, the CPU, and the
// default fan-in uniform weight initializer.
type Config struct {
	ObsDim int
	Hidden int
	Device Device
	Init   *initwfn.InitWFn
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.ObsDim <= 0 {
		return fmt.Errorf("validate: observation dimension must be "+
			"positive, have(%v)", c.ObsDim)
	}
	if c.Hidden < 0 {
		return fmt.Errorf("validate: hidden size must be positive, have(%v)",
			c.Hidden)
	}
	if _, err := ParseDevice(string(c.Device)); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// Create returns the DualHeadMLP described by the Config
func (c Config) Create() (*DualHeadMLP, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	hidden := c.Hidden
	if hidden == 0 {
		hidden = DefaultHidden
	}

	device := c.Device
	if device == "" {
		device = CPU
	}

	return NewDualHeadMLP(c.ObsDim, hidden, device, c.Init)
}

package initwfn

import G "gorgonia.org/gorgonia"

// GlorotUConfig configures Glorot (Xavier) uniform initialization
// scaled by Gain.
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns GlorotU
func (g GlorotUConfig) Type() Type { return GlorotU }

// Create returns the Gorgonia GlorotU InitWFn
func (g GlorotUConfig) Create() G.InitWFn { return G.GlorotU(g.Gain) }

// GlorotNConfig configures Glorot (Xavier) normal initialization
// scaled by Gain.
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// Type returns GlorotN
func (g GlorotNConfig) Type() Type { return GlorotN }

// Create returns the Gorgonia GlorotN InitWFn
func (g GlorotNConfig) Create() G.InitWFn { return G.GlorotN(g.Gain) }

// HeUConfig configures He (Kaiming) uniform initialization scaled by
// Gain. He initialization suits layers followed by a ReLU.
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64) (*InitWFn, error) {
	return newInitWFn(HeUConfig{Gain: gain})
}

// Type returns HeU
func (h HeUConfig) Type() Type { return HeU }

// Create returns the Gorgonia HeU InitWFn
func (h HeUConfig) Create() G.InitWFn { return G.HeU(h.Gain) }

// HeNConfig configures He (Kaiming) normal initialization scaled by
// Gain.
type HeNConfig struct {
	Gain float64
}

// NewHeN returns a new He normal weight initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return newInitWFn(HeNConfig{Gain: gain})
}

// Type returns HeN
func (h HeNConfig) Type() Type { return HeN }

// Create returns the Gorgonia HeN InitWFn
func (h HeNConfig) Create() G.InitWFn { return G.HeN(h.Gain) }

package initwfn

import G "gorgonia.org/gorgonia"

// UniformConfig configures a weight initializer that draws every
// weight from U(Low, High) regardless of the layer's size.
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	return newInitWFn(UniformConfig{Low: low, High: high})
}

// Type returns Uniform
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create returns the Gorgonia Uniform InitWFn
func (u UniformConfig) Create() G.InitWFn {
	return G.Uniform(u.Low, u.High)
}

// GaussianConfig configures a weight initializer that draws every
// weight from N(Mean, StdDev²).
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev})
}

// Type returns Gaussian
func (g GaussianConfig) Type() Type {
	return Gaussian
}

// Create returns the Gorgonia Gaussian InitWFn
func (g GaussianConfig) Create() G.InitWFn {
	return G.Gaussian(g.Mean, g.StdDev)
}

package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// FanInUniformConfig implements a configuration of a seeded weight
// initializer which draws both weights and biases of a layer with n
// inputs from U(-1/√n, 1/√n).
type FanInUniformConfig struct {
	Seed uint64
}

// NewFanInUniform returns a new fan-in uniform weight initializer
// drawing from a source seeded with seed.
func NewFanInUniform(seed uint64) (*InitWFn, error) {
	config := FanInUniformConfig{
		Seed: seed,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (f FanInUniformConfig) Type() Type {
	return FanInUniform
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn. Since the returned InitWFn is not told which layer it is
// initializing, the fan-in is taken to be the first dimension of the
// shape it is called with.
func (f FanInUniformConfig) Create() G.InitWFn {
	src := rand.NewSource(f.Seed)
	return func(dt tensor.Dtype, s ...int) interface{} {
		fanIn := 1
		if len(s) > 0 && s[0] > 0 {
			fanIn = s[0]
		}
		return f.createForLayer(fanIn, src)(dt, s...)
	}
}

func (f FanInUniformConfig) seed() uint64 {
	return f.Seed
}

// createForLayer returns an InitWFn for a layer with fanIn inputs that
// draws from src.
func (f FanInUniformConfig) createForLayer(fanIn int,
	src rand.Source) G.InitWFn {
	bound := 1.0 / math.Sqrt(float64(fanIn))
	dist := distuv.Uniform{Min: -bound, Max: bound, Src: src}

	return func(dt tensor.Dtype, s ...int) interface{} {
		size := tensor.Shape(s).TotalSize()

		switch dt {
		case tensor.Float64:
			retVal := make([]float64, size)
			for i := range retVal {
				retVal[i] = dist.Rand()
			}
			return retVal

		case tensor.Float32:
			retVal := make([]float32, size)
			for i := range retVal {
				retVal[i] = float32(dist.Rand())
			}
			return retVal

		default:
			panic(fmt.Sprintf("faninuniform: dtype %v not supported", dt))
		}
	}
}

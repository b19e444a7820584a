package network

import (
	"github.com/samuelfneumann/brace/initwfn"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network: act(x·W + b)
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newfcLayer adds the learnables of a fully connected layer with
// inputs inputs and outputs outputs to the graph g. The weights have
// shape (inputs, outputs) and the bias, if any, has shape (1, outputs)
// so that it can be broadcast along the batch dimension.
func newfcLayer(g *G.ExprGraph, inputs, outputs int, bias bool,
	act *Activation, init *initwfn.InitWFn, name string) *fcLayer {
	layerInit := init.ForLayer(inputs)

	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(inputs, outputs),
		G.WithName(name+"W"),
		G.WithInit(layerInit),
	)

	var b *G.Node
	if bias {
		b = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, outputs),
			G.WithName(name+"B"),
			G.WithInit(layerInit),
		)
	}

	return &fcLayer{
		weights: weights,
		bias:    b,
		act:     act,
	}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	var err error
	if x, err = G.Mul(x, f.Weights()); err != nil {
		return nil, err
	}

	if f.Bias() != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		if x, err = G.BroadcastAdd(x, f.Bias(), nil, []byte{0}); err != nil {
			return nil, err
		}
	}

	if f.Activation().IsNil() {
		return x, nil
	}
	return f.Activation().fwd(x)
}

// cloneTo clones an fcLayer to a new computational graph. The learnables
// of the clone hold copies of the values of the original learnables.
func (f *fcLayer) cloneTo(g *G.ExprGraph) *fcLayer {
	var newBias *G.Node
	if f.Bias() != nil {
		newBias = f.Bias().CloneTo(g)
	}

	return &fcLayer{
		weights: f.Weights().CloneTo(g),
		bias:    newBias,
		act:     f.act,
	}
}

// Activation returns the activation applied to the layer output
func (f *fcLayer) Activation() *Activation {
	return f.act
}

// Bias returns the bias node, which is nil for layers without a bias
func (f *fcLayer) Bias() *G.Node {
	return f.bias
}

// Weights returns the weight node
func (f *fcLayer) Weights() *G.Node {
	return f.weights
}

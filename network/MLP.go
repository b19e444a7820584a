package network

import (
	"fmt"

	"github.com/samuelfneumann/brace/initwfn"
	G "gorgonia.org/gorgonia"
)

// mlp implements a multi-layered perceptron sub-network which is
// attached to some input node of a larger network. The DualHeadMLP
// is built out of three of these: a backbone and two heads.
type mlp struct {
	layers []*fcLayer

	// Architecture, needed for gobbing and cloning
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	prediction *G.Node
}

// newMLPFromInput returns a new mlp which takes the input node as
// input. The input must be a matrix of shape (batch, features).
//
// The mlp has len(hiddenSizes) layers. For index i, hiddenSizes[i] is
// the number of nodes in layer i; biases[i] is true if layer i has a
// bias unit; and activations[i] is the activation function of layer i.
// The parameter init determines the weight initialization scheme and
// prefix is prepended to the name of every learnable.
func newMLPFromInput(input *G.Node, hiddenSizes []int, biases []bool,
	activations []*Activation, init *initwfn.InitWFn,
	prefix string) (*mlp, error) {
	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmlpfrominput: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newmlpfrominput: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	if !input.IsMatrix() {
		return nil, fmt.Errorf("newmlpfrominput: input must be a matrix")
	}

	layers := make([]*fcLayer, len(hiddenSizes))
	inputs := input.Shape()[1]
	for i, outputs := range hiddenSizes {
		if outputs <= 0 {
			return nil, fmt.Errorf("newmlpfrominput: layer %v must have "+
				"a positive number of units, have(%v)", i, outputs)
		}

		name := fmt.Sprintf("%vL%d", prefix, i)
		layers[i] = newfcLayer(input.Graph(), inputs, outputs, biases[i],
			activations[i], init, name)
		inputs = outputs
	}

	net := &mlp{
		layers:      layers,
		hiddenSizes: hiddenSizes,
		biases:      biases,
		activations: activations,
	}
	if _, err := net.fwd(input); err != nil {
		msg := "newmlpfrominput: could not compute forward pass: %w"
		return nil, fmt.Errorf(msg, err)
	}

	return net, nil
}

// cloneWithInputTo clones the mlp onto the graph of input and runs the
// forward pass of the clone on input.
func (m *mlp) cloneWithInputTo(input *G.Node) (*mlp, error) {
	if !input.IsMatrix() {
		return nil, fmt.Errorf("clonewithinputto: input must be a matrix node")
	}

	layers := make([]*fcLayer, len(m.layers))
	for i := range m.layers {
		layers[i] = m.layers[i].cloneTo(input.Graph())
	}

	net := &mlp{
		layers:      layers,
		hiddenSizes: m.hiddenSizes,
		biases:      m.biases,
		activations: m.activations,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithinputto: %w", err)
	}

	return net, nil
}

// fwd performs the forward pass of the mlp on the input node
func (m *mlp) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %w"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	return pred, nil
}

// outputs returns the number of units in the final layer
func (m *mlp) outputs() int {
	return m.hiddenSizes[len(m.hiddenSizes)-1]
}

// learnables returns the learnable nodes of the mlp, layer by layer
// with each layer's weights before its bias
func (m *mlp) learnables() G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(m.layers))

	for i := range m.layers {
		learnables = append(learnables, m.layers[i].Weights())
		if bias := m.layers[i].Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return G.Nodes(learnables)
}

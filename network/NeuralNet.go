// Package network implements neural networks as Gorgonia computational
// graphs. The main network is the DualHeadMLP, the actor-critic network
// used for BRACE arbitration: a shared ReLU backbone feeding a sigmoid
// arbitration head and a linear state value head.
package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass is a node in a
// Gorgonia computational graph. An external learner can attach a loss
// to the nodes returned by Prediction() and step a solver on Model().
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() []G.Value
	Prediction() []*G.Node
}

// Set sets the learnables of dest to copies of the values of the
// learnables of source. Both networks must have the same architecture.
func Set(dest, source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: invalid number of learnables \n\twant(%v)"+
			"\n\thave(%v)", len(nodes), len(sourceNodes))
	}

	for i, destLearnable := range nodes {
		if !destLearnable.Shape().Eq(sourceNodes[i].Shape()) {
			return fmt.Errorf("set: learnable %v has shape %v, cannot set "+
				"to shape %v", destLearnable.Name(), destLearnable.Shape(),
				sourceNodes[i].Shape())
		}

		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

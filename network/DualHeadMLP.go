package network

import (
	"fmt"

	"github.com/samuelfneumann/brace/initwfn"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DefaultHidden is the default width of both backbone layers
const DefaultHidden = 256

// DualHeadMLP implements the BRACE dual-head actor-critic network. A
// shared backbone of two fully connected ReLU layers feeds two
// independent linear heads. A diagram of the network:
//
//	                                   ╭─→ γ-head → sigmoid ─→ γ ∈ (0, 1)
//	Input ─→ Linear → ReLU → Linear → ReLU
//	                                   ╰─→ value-head        ─→ V(s)
//
// The γ-head predicts the arbitration weight γ, which is bounded in
// (0, 1). The value-head predicts the unbounded state value V(s). Both
// predictions have shape (batch, 1).
//
// A DualHeadMLP owns a computational graph holding its learnables, with
// an input node of a fixed batch size. Forward evaluates the network on
// a batch of any size without touching that graph.
type DualHeadMLP struct {
	g      *G.ExprGraph
	input  *G.Node
	device Device

	backbone  *mlp
	gammaHead *mlp
	valueHead *mlp

	numInputs int
	hidden    int
	batchSize int

	// Store learnables and model so that they don't need to be computed
	// each time a gradient step is taken
	learnables G.Nodes
	model      []G.ValueGrad

	gamma    *G.Node
	value    *G.Node
	gammaVal G.Value
	valueVal G.Value
}

// NewDefaultDualHeadMLP returns a new DualHeadMLP with hidden layers
// of DefaultHidden units, placed on the CPU, and initialized with the
// default fan-in uniform weight initializer.
func NewDefaultDualHeadMLP(obsDim int) (*DualHeadMLP, error) {
	return NewDualHeadMLP(obsDim, DefaultHidden, CPU, nil)
}

// NewDualHeadMLP returns a new DualHeadMLP which takes observations
// of obsDim features and has backbone layers of hidden units each.
// All learnables are placed on device. If init is nil, weights and
// biases are drawn from the default fan-in uniform initializer.
//
// The returned network's own graph has an input batch size of 1. Use
// CloneWithBatch to construct a graph for a different batch size, or
// Forward to evaluate a batch directly.
func NewDualHeadMLP(obsDim, hidden int, device Device,
	init *initwfn.InitWFn) (*DualHeadMLP, error) {
	net, err := newDualHeadMLP(obsDim, hidden, 1, device, init)
	if err != nil {
		return nil, fmt.Errorf("newdualheadmlp: %v", err)
	}
	return net, nil
}

// newDualHeadMLP constructs a DualHeadMLP with a given batch size
func newDualHeadMLP(obsDim, hidden, batch int, device Device,
	init *initwfn.InitWFn) (*DualHeadMLP, error) {
	if obsDim <= 0 {
		return nil, fmt.Errorf("observation dimension must be positive, "+
			"have(%v)", obsDim)
	}
	if hidden <= 0 {
		return nil, fmt.Errorf("hidden size must be positive, have(%v)",
			hidden)
	}
	if batch <= 0 {
		return nil, fmt.Errorf("batch size must be positive, have(%v)",
			batch)
	}

	device, err := ParseDevice(string(device))
	if err != nil {
		return nil, err
	}

	if init == nil {
		if init, err = initwfn.NewDefault(); err != nil {
			return nil, err
		}
	}

	// Set up the input node
	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, obsDim),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	backbone, err := newMLPFromInput(input, []int{hidden, hidden},
		[]bool{true, true}, []*Activation{ReLU(), ReLU()}, init, "Backbone")
	if err != nil {
		return nil, fmt.Errorf("could not construct backbone: %v", err)
	}

	gammaHead, err := newMLPFromInput(backbone.prediction, []int{1},
		[]bool{true}, []*Activation{Sigmoid()}, init, "Gamma")
	if err != nil {
		return nil, fmt.Errorf("could not construct γ-head: %v", err)
	}

	valueHead, err := newMLPFromInput(backbone.prediction, []int{1},
		[]bool{true}, []*Activation{Identity()}, init, "Value")
	if err != nil {
		return nil, fmt.Errorf("could not construct value head: %v", err)
	}

	net := &DualHeadMLP{
		g:         g,
		input:     input,
		device:    device,
		backbone:  backbone,
		gammaHead: gammaHead,
		valueHead: valueHead,
		numInputs: obsDim,
		hidden:    hidden,
		batchSize: batch,
	}
	net.fwd()

	return net, nil
}

// fwd records the predictions of both heads so that their values can
// be read after running a VM on the graph. Because of the way the
// DualHeadMLP is constructed, the sub-networks have already added
// their forward passes to the graph.
func (d *DualHeadMLP) fwd() {
	d.gamma = d.gammaHead.prediction
	d.value = d.valueHead.prediction

	G.Read(d.gamma, &d.gammaVal)
	G.Read(d.value, &d.valueVal)
}

// Forward computes the arbitration weight γ and state value V for a
// batch of observations of shape (batch, obsDim). Both returned tensors
// have shape (batch, 1).
//
// Forward copies the current learnable values into a new graph sized
// for the batch, so it neither depends on nor mutates the network's own
// graph. Concurrent calls are safe as long as the learnables are not
// modified while they run. Observations of the wrong shape or data type
// result in the error reported by Gorgonia.
func (d *DualHeadMLP) Forward(obs tensor.Tensor) (gamma, value *tensor.Dense,
	err error) {
	// Gorgonia panics on some ill-formed graphs; report those as errors
	defer func() {
		if r := recover(); r != nil {
			gamma, value = nil, nil
			err = fmt.Errorf("forward: %v", r)
		}
	}()

	if obs == nil {
		return nil, nil, fmt.Errorf("forward: nil observations")
	}
	if obs.Dims() != 2 {
		return nil, nil, fmt.Errorf("forward: observations must be a "+
			"matrix, have shape %v", obs.Shape())
	}

	// The VM sets the engine of every bound value, so the input node
	// holds a copy of obs
	obs, ok := obs.Clone().(tensor.Tensor)
	if !ok {
		return nil, nil, fmt.Errorf("forward: could not copy observations")
	}

	g := G.NewGraph()
	input := G.NewMatrix(g, obs.Dtype(), G.WithShape(obs.Shape()...),
		G.WithName("input"), G.WithValue(obs))

	net, err := d.cloneWithInputTo(input)
	if err != nil {
		return nil, nil, fmt.Errorf("forward: %w", err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, nil, fmt.Errorf("forward: %w", err)
	}

	return denseOf(net.gammaVal), denseOf(net.valueVal), nil
}

// ForwardMat is Forward for gonum matrices. Each row of obs is an
// observation. The i-th elements of the returned vectors are γ and V
// for the i-th row.
func (d *DualHeadMLP) ForwardMat(obs *mat.Dense) (gamma,
	value *mat.VecDense, err error) {
	if obs == nil {
		return nil, nil, fmt.Errorf("forwardmat: nil observations")
	}

	rows, cols := obs.Dims()
	backing := mat.DenseCopyOf(obs).RawMatrix().Data
	obsTensor := tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(backing),
	)

	gammaTensor, valueTensor, err := d.Forward(obsTensor)
	if err != nil {
		return nil, nil, fmt.Errorf("forwardmat: %w", err)
	}

	gamma = mat.NewVecDense(rows, gammaTensor.Data().([]float64))
	value = mat.NewVecDense(rows, valueTensor.Data().([]float64))
	return gamma, value, nil
}

// denseOf returns a copy of v as a *tensor.Dense, so that the returned
// value does not alias memory owned by a VM.
func denseOf(v G.Value) *tensor.Dense {
	if dense, ok := v.(*tensor.Dense); ok {
		return dense.Clone().(*tensor.Dense)
	}

	return tensor.New(
		tensor.WithShape(v.Shape().Clone()...),
		tensor.WithBacking(v.Data()),
	)
}

// cloneWithInputTo clones the DualHeadMLP to the graph of input with
// input as the input node. The clone's learnables hold copies of the
// current learnable values.
func (d *DualHeadMLP) cloneWithInputTo(input *G.Node) (*DualHeadMLP, error) {
	if !input.IsMatrix() {
		return nil, fmt.Errorf("clonewithinputto: input must be a matrix node")
	}

	backbone, err := d.backbone.cloneWithInputTo(input)
	if err != nil {
		return nil, fmt.Errorf("clonewithinputto: could not clone "+
			"backbone: %w", err)
	}

	gammaHead, err := d.gammaHead.cloneWithInputTo(backbone.prediction)
	if err != nil {
		return nil, fmt.Errorf("clonewithinputto: could not clone "+
			"γ-head: %w", err)
	}

	valueHead, err := d.valueHead.cloneWithInputTo(backbone.prediction)
	if err != nil {
		return nil, fmt.Errorf("clonewithinputto: could not clone "+
			"value head: %w", err)
	}

	net := &DualHeadMLP{
		g:         input.Graph(),
		input:     input,
		device:    d.device,
		backbone:  backbone,
		gammaHead: gammaHead,
		valueHead: valueHead,
		numInputs: d.numInputs,
		hidden:    d.hidden,
		batchSize: input.Shape()[0],
	}
	net.fwd()

	return net, nil
}

// Clone clones a DualHeadMLP
func (d *DualHeadMLP) Clone() (NeuralNet, error) {
	return d.CloneWithBatch(d.batchSize)
}

// CloneWithBatch clones a DualHeadMLP onto a new graph with a new
// input batch size.
func (d *DualHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("clonewithbatch: batch size must be "+
			"positive, have(%v)", batchSize)
	}

	graph := G.NewGraph()
	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, d.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	net, err := d.cloneWithInputTo(input)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: %v", err)
	}
	return net, nil
}

// Graph returns the computational graph of the DualHeadMLP
func (d *DualHeadMLP) Graph() *G.ExprGraph {
	return d.g
}

// BatchSize returns the batch size of the input node of the network's
// graph
func (d *DualHeadMLP) BatchSize() int {
	return d.batchSize
}

// Features returns the number of features in a single observation
// vector that the network takes as input.
func (d *DualHeadMLP) Features() int {
	return d.numInputs
}

// Hidden returns the number of units in each backbone layer
func (d *DualHeadMLP) Hidden() int {
	return d.hidden
}

// Device returns the device the network is placed on
func (d *DualHeadMLP) Device() Device {
	return d.device
}

// SetInput sets the value of the input node before running a VM on the
// network's graph. The input must hold BatchSize() observations laid
// out row after row.
func (d *DualHeadMLP) SetInput(input []float64) error {
	if len(input) != d.numInputs*d.batchSize {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", d.numInputs*d.batchSize, len(input))
	}

	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(d.input.Shape()...),
	)
	return G.Let(d.input, inputTensor)
}

// Set sets the learnables of the DualHeadMLP to be equal to the
// learnables of another network with the same architecture
func (d *DualHeadMLP) Set(source NeuralNet) error {
	return Set(d, source)
}

// SetLearnable sets the value of the learnable named name, which must
// be one of the names of the nodes returned by Learnables(). The value
// must have the same shape as the learnable.
func (d *DualHeadMLP) SetLearnable(name string, value tensor.Tensor) error {
	for _, learnable := range d.Learnables() {
		if learnable.Name() != name {
			continue
		}

		if !value.Shape().Eq(learnable.Shape()) {
			return fmt.Errorf("setlearnable: learnable %v has shape %v, "+
				"cannot set to shape %v", name, learnable.Shape(),
				value.Shape())
		}
		return G.Let(learnable, value)
	}
	return fmt.Errorf("setlearnable: no learnable named %q", name)
}

// Learnables returns the learnable nodes of the DualHeadMLP: the
// backbone's weights and biases followed by those of the γ-head and
// then those of the value head.
func (d *DualHeadMLP) Learnables() G.Nodes {
	// Lazy instantiation
	if d.learnables == nil {
		learnables := make([]*G.Node, 0, 8)
		learnables = append(learnables, d.backbone.learnables()...)
		learnables = append(learnables, d.gammaHead.learnables()...)
		learnables = append(learnables, d.valueHead.learnables()...)
		d.learnables = G.Nodes(learnables)
	}
	return d.learnables
}

// Model returns the learnable nodes with their gradients.
func (d *DualHeadMLP) Model() []G.ValueGrad {
	// Lazy instantiation
	if d.model == nil {
		model := make([]G.ValueGrad, 0, len(d.Learnables()))
		for _, node := range d.Learnables() {
			model = append(model, node)
		}
		d.model = model
	}
	return d.model
}

// Output returns the values of γ and V computed by the last VM run on
// the network's graph, in that order.
func (d *DualHeadMLP) Output() []G.Value {
	return []G.Value{d.gammaVal, d.valueVal}
}

// Prediction returns the nodes of the computational graph that store
// γ and V, in that order.
func (d *DualHeadMLP) Prediction() []*G.Node {
	return []*G.Node{d.gamma, d.value}
}

// Gamma returns the node holding the arbitration weight γ
func (d *DualHeadMLP) Gamma() *G.Node {
	return d.gamma
}

// Value returns the node holding the state value V
func (d *DualHeadMLP) Value() *G.Node {
	return d.value
}

// String implements the fmt.Stringer interface
func (d *DualHeadMLP) String() string {
	return fmt.Sprintf("DualHeadMLP{features: %v, hidden: %v, batch: %v, "+
		"device: %v}", d.numInputs, d.hidden, d.batchSize, d.device)
}

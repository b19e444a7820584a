package network

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/samuelfneumann/brace/initwfn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sigmoidOf(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func newTestNet(t testing.TB, obsDim, hidden int, seed uint64) *DualHeadMLP {
	t.Helper()

	init, err := initwfn.NewFanInUniform(seed)
	require.NoError(t, err)

	net, err := NewDualHeadMLP(obsDim, hidden, CPU, init)
	require.NoError(t, err)
	return net
}

// randomObs returns a batch of observations drawn from N(0, 4)
func randomObs(rows, cols int, seed uint64) *tensor.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: 2, Src: rand.NewSource(seed)}

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))
}

func row(obs *tensor.Dense, i int) *tensor.Dense {
	cols := obs.Shape()[1]
	data := make([]float64, cols)
	copy(data, obs.Data().([]float64)[i*cols:(i+1)*cols])
	return tensor.New(tensor.WithShape(1, cols), tensor.WithBacking(data))
}

func learnable(t *testing.T, net *DualHeadMLP, name string) []float64 {
	t.Helper()

	for _, node := range net.Learnables() {
		if node.Name() == name {
			return node.Value().Data().([]float64)
		}
	}
	t.Fatalf("no learnable named %v", name)
	return nil
}

func TestForwardShapesAndRanges(t *testing.T) {
	tests := []struct {
		name                  string
		obsDim, hidden, batch int
	}{
		{"minimal", 1, 1, 1},
		{"small", 4, 8, 2},
		{"odd sizes", 3, 17, 7},
		{"default hidden", 10, DefaultHidden, 32},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			net := newTestNet(t, test.obsDim, test.hidden, 3)
			obs := randomObs(test.batch, test.obsDim, 11)

			gamma, value, err := net.Forward(obs)
			require.NoError(t, err)

			assert.Equal(t, tensor.Shape{test.batch, 1}, gamma.Shape())
			assert.Equal(t, tensor.Shape{test.batch, 1}, value.Shape())

			for _, g := range gamma.Data().([]float64) {
				assert.Greater(t, g, 0.0)
				assert.Less(t, g, 1.0)
			}

			values := value.Data().([]float64)
			assert.False(t, floats.HasNaN(values))
			for _, v := range values {
				assert.False(t, math.IsInf(v, 0))
			}
		})
	}
}

func TestForwardDeterministic(t *testing.T) {
	net := newTestNet(t, 6, 32, 5)
	obs := randomObs(4, 6, 2)

	gamma1, value1, err := net.Forward(obs)
	require.NoError(t, err)
	gamma2, value2, err := net.Forward(obs)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(gamma1.Data(), gamma2.Data()))
	assert.Empty(t, cmp.Diff(value1.Data(), value2.Data()))
}

func TestForwardRowIndependent(t *testing.T) {
	const batch, obsDim = 5, 4
	net := newTestNet(t, obsDim, 16, 8)
	obs := randomObs(batch, obsDim, 13)

	gamma, value, err := net.Forward(obs)
	require.NoError(t, err)

	rowGammas := make([]float64, 0, batch)
	rowValues := make([]float64, 0, batch)
	for i := 0; i < batch; i++ {
		g, v, err := net.Forward(row(obs, i))
		require.NoError(t, err)
		rowGammas = append(rowGammas, g.Data().([]float64)...)
		rowValues = append(rowValues, v.Data().([]float64)...)
	}

	approx := cmpopts.EquateApprox(0, 1e-12)
	assert.Empty(t, cmp.Diff(rowGammas, gamma.Data(), approx))
	assert.Empty(t, cmp.Diff(rowValues, value.Data(), approx))
}

func TestForwardZeroObservations(t *testing.T) {
	net := newTestNet(t, 4, 8, 21)
	obs := tensor.New(tensor.WithShape(2, 4), tensor.Of(tensor.Float64))

	gamma, value, err := net.Forward(obs)
	require.NoError(t, err)

	g := gamma.Data().([]float64)
	v := value.Data().([]float64)
	assert.Equal(t, g[0], g[1])
	assert.Equal(t, v[0], v[1])
}

func TestForwardZeroWeights(t *testing.T) {
	net := newTestNet(t, 4, 8, 34)

	// Zero every weight matrix but keep the biases
	for _, node := range net.Learnables() {
		if node.Name()[len(node.Name())-1] != 'W' {
			continue
		}
		zeroes := tensor.New(tensor.WithShape(node.Shape().Clone()...),
			tensor.Of(tensor.Float64))
		require.NoError(t, net.SetLearnable(node.Name(), zeroes))
	}

	gammaBias := learnable(t, net, "GammaL0B")[0]
	valueBias := learnable(t, net, "ValueL0B")[0]

	gamma, value, err := net.Forward(randomObs(3, 4, 55))
	require.NoError(t, err)

	for _, g := range gamma.Data().([]float64) {
		assert.InDelta(t, sigmoidOf(gammaBias), g, 1e-12)
	}
	for _, v := range value.Data().([]float64) {
		assert.InDelta(t, valueBias, v, 1e-12)
	}
}

func TestForwardShapeMismatch(t *testing.T) {
	net := newTestNet(t, 4, 8, 1)

	_, _, err := net.Forward(randomObs(2, 5, 1))
	assert.Error(t, err)

	_, _, err = net.Forward(randomObs(2, 3, 1))
	assert.Error(t, err)

	vector := tensor.New(tensor.WithShape(4),
		tensor.WithBacking([]float64{1, 2, 3, 4}))
	_, _, err = net.Forward(vector)
	assert.Error(t, err)

	_, _, err = net.Forward(nil)
	assert.Error(t, err)
}

func TestForwardDtypeMismatch(t *testing.T) {
	net := newTestNet(t, 2, 4, 1)
	obs := tensor.New(tensor.WithShape(1, 2),
		tensor.WithBacking([]float32{1, 2}))

	_, _, err := net.Forward(obs)
	assert.Error(t, err)
}

func TestForwardDoesNotMutate(t *testing.T) {
	net := newTestNet(t, 3, 8, 4)
	obs := randomObs(4, 3, 9)
	obsBefore := obs.Clone().(*tensor.Dense)

	before := make([][]float64, 0, len(net.Learnables()))
	for _, node := range net.Learnables() {
		data := node.Value().Data().([]float64)
		before = append(before, append([]float64(nil), data...))
	}

	_, _, err := net.Forward(obs)
	require.NoError(t, err)

	for i, node := range net.Learnables() {
		assert.Equal(t, before[i], node.Value().Data().([]float64))
	}
	assert.Equal(t, obsBefore.Data(), obs.Data())
}

// The concurrency tests below are only meaningful under the race
// detector: go test -race ./network/...

// TestForwardSharedInput checks that Forward never writes to its
// argument, so goroutines may evaluate one observation tensor at once.
func TestForwardSharedInput(t *testing.T) {
	obs := randomObs(4, 5, 1)
	nets := make([]*DualHeadMLP, 8)
	for i := range nets {
		nets[i] = newTestNet(t, 5, 16, uint64(i))
	}

	var group errgroup.Group
	for _, net := range nets {
		net := net
		group.Go(func() error {
			gamma, value, err := net.Forward(obs)
			if err != nil {
				return err
			}
			if !gamma.Shape().Eq(tensor.Shape{4, 1}) ||
				!value.Shape().Eq(tensor.Shape{4, 1}) {
				return fmt.Errorf("unexpected output shapes %v and %v",
					gamma.Shape(), value.Shape())
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())
}

func TestForwardConcurrent(t *testing.T) {
	net := newTestNet(t, 5, 32, 77)
	obs := randomObs(8, 5, 6)

	wantGamma, wantValue, err := net.Forward(obs)
	require.NoError(t, err)

	gammas := make([]*tensor.Dense, 16)
	values := make([]*tensor.Dense, 16)
	var group errgroup.Group
	for i := range gammas {
		i := i
		group.Go(func() error {
			var err error
			gammas[i], values[i], err = net.Forward(obs)
			return err
		})
	}
	require.NoError(t, group.Wait())

	for i := range gammas {
		assert.Empty(t, cmp.Diff(wantGamma.Data(), gammas[i].Data()))
		assert.Empty(t, cmp.Diff(wantValue.Data(), values[i].Data()))
	}
}

func TestForwardMat(t *testing.T) {
	net := newTestNet(t, 3, 8, 12)
	obs := randomObs(4, 3, 3)

	wantGamma, wantValue, err := net.Forward(obs)
	require.NoError(t, err)

	gamma, value, err := net.ForwardMat(mat.NewDense(4, 3,
		obs.Data().([]float64)))
	require.NoError(t, err)

	assert.Equal(t, wantGamma.Data(), gamma.RawVector().Data)
	assert.Equal(t, wantValue.Data(), value.RawVector().Data)

	_, _, err = net.ForwardMat(mat.NewDense(4, 2, nil))
	assert.Error(t, err)
}

func TestNewDualHeadMLPErrors(t *testing.T) {
	tests := []struct {
		name           string
		obsDim, hidden int
		device         Device
	}{
		{"zero observation dimension", 0, 8, CPU},
		{"negative observation dimension", -3, 8, CPU},
		{"zero hidden", 4, 0, CPU},
		{"cuda", 4, 8, Device("cuda:0")},
		{"unknown device", 4, 8, Device("tpu")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewDualHeadMLP(test.obsDim, test.hidden, test.device,
				nil)
			assert.Error(t, err)
		})
	}
}

func TestNewDefaultDualHeadMLP(t *testing.T) {
	net, err := NewDefaultDualHeadMLP(7)
	require.NoError(t, err)

	assert.Equal(t, 7, net.Features())
	assert.Equal(t, DefaultHidden, net.Hidden())
	assert.Equal(t, CPU, net.Device())
	assert.Equal(t, 1, net.BatchSize())

	want := map[string]tensor.Shape{
		"BackboneL0W": {7, DefaultHidden},
		"BackboneL0B": {1, DefaultHidden},
		"BackboneL1W": {DefaultHidden, DefaultHidden},
		"BackboneL1B": {1, DefaultHidden},
		"GammaL0W":    {DefaultHidden, 1},
		"GammaL0B":    {1, 1},
		"ValueL0W":    {DefaultHidden, 1},
		"ValueL0B":    {1, 1},
	}
	require.Len(t, net.Learnables(), len(want))
	require.Len(t, net.Model(), len(want))
	for _, node := range net.Learnables() {
		assert.Equal(t, want[node.Name()], node.Shape(), node.Name())
	}

	// Default initialization is bounded by 1/√fanIn
	for _, w := range learnable(t, net, "BackboneL1W") {
		assert.LessOrEqual(t, math.Abs(w), 1/math.Sqrt(DefaultHidden))
	}
}

func TestCloneWithBatch(t *testing.T) {
	net := newTestNet(t, 3, 8, 90)
	obs := randomObs(3, 3, 4)

	wantGamma, wantValue, err := net.Forward(obs)
	require.NoError(t, err)

	clone, err := net.CloneWithBatch(3)
	require.NoError(t, err)
	assert.Equal(t, 3, clone.BatchSize())
	assert.Equal(t, 3, clone.Features())

	require.NoError(t, clone.SetInput(obs.Data().([]float64)))
	vm := G.NewTapeMachine(clone.Graph())
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	output := clone.Output()
	require.Len(t, output, 2)
	assert.Empty(t, cmp.Diff(wantGamma.Data(), output[0].Data(),
		cmpopts.EquateApprox(0, 1e-12)))
	assert.Empty(t, cmp.Diff(wantValue.Data(), output[1].Data(),
		cmpopts.EquateApprox(0, 1e-12)))

	assert.Error(t, clone.SetInput([]float64{1, 2}))

	_, err = net.CloneWithBatch(0)
	assert.Error(t, err)
}

func TestCloneIndependent(t *testing.T) {
	net := newTestNet(t, 2, 4, 31)

	clone, err := net.Clone()
	require.NoError(t, err)
	cloned := clone.(*DualHeadMLP)

	zeroes := tensor.New(tensor.WithShape(1, 1), tensor.Of(tensor.Float64))
	require.NoError(t, cloned.SetLearnable("ValueL0B", zeroes))

	assert.Equal(t, []float64{0}, learnable(t, cloned, "ValueL0B"))
	assert.NotEqual(t, []float64{0}, learnable(t, net, "ValueL0B"))
}

func TestSet(t *testing.T) {
	source := newTestNet(t, 4, 8, 1)
	dest := newTestNet(t, 4, 8, 2)
	obs := randomObs(2, 4, 3)

	require.NoError(t, dest.Set(source))

	wantGamma, wantValue, err := source.Forward(obs)
	require.NoError(t, err)
	gamma, value, err := dest.Forward(obs)
	require.NoError(t, err)

	assert.Equal(t, wantGamma.Data(), gamma.Data())
	assert.Equal(t, wantValue.Data(), value.Data())

	other := newTestNet(t, 5, 8, 1)
	assert.Error(t, dest.Set(other))
}

func TestSetLearnableErrors(t *testing.T) {
	net := newTestNet(t, 2, 4, 1)

	value := tensor.New(tensor.WithShape(1, 1), tensor.Of(tensor.Float64))
	assert.Error(t, net.SetLearnable("NoSuchLayer", value))
	assert.Error(t, net.SetLearnable("BackboneL0W", value))
}

// TestModelTrainable checks that an external learner can attach a loss
// to the predictions of a clone and step a Gorgonia solver on its model.
func TestModelTrainable(t *testing.T) {
	net := newTestNet(t, 3, 8, 14)
	obs := randomObs(4, 3, 15)

	clone, err := net.CloneWithBatch(4)
	require.NoError(t, err)
	pred := clone.Prediction()
	require.Len(t, pred, 2)

	gammaLoss := G.Must(G.Mean(G.Must(G.Square(G.Must(
		G.Sub(pred[0], G.NewConstant(0.9)))))))
	valueLoss := G.Must(G.Mean(G.Must(G.Square(G.Must(
		G.Sub(pred[1], G.NewConstant(1.0)))))))
	loss := G.Must(G.Add(gammaLoss, valueLoss))

	var lossVal G.Value
	G.Read(loss, &lossVal)

	_, err = G.Grad(loss, clone.Learnables()...)
	require.NoError(t, err)

	vm := G.NewTapeMachine(clone.Graph(),
		G.BindDualValues(clone.Learnables()...))
	defer vm.Close()
	solver := G.NewVanillaSolver(G.WithLearnRate(1e-3))

	require.NoError(t, clone.SetInput(obs.Data().([]float64)))
	require.NoError(t, vm.RunAll())
	before := lossVal.Data().(float64)
	require.NoError(t, solver.Step(clone.Model()))
	vm.Reset()

	require.NoError(t, vm.RunAll())
	after := lossVal.Data().(float64)
	vm.Reset()

	assert.Less(t, after, before)
}

func BenchmarkForward(b *testing.B) {
	net := newTestNet(b, 16, DefaultHidden, 1)
	obs := randomObs(32, 16, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := net.Forward(obs); err != nil {
			b.Fatal(err)
		}
	}
}

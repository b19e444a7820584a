package initwfn

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestFanInUniformBounds(t *testing.T) {
	init, err := NewFanInUniform(42)
	require.NoError(t, err)

	for _, fanIn := range []int{1, 4, 256} {
		bound := 1 / math.Sqrt(float64(fanIn))
		values := init.ForLayer(fanIn)(tensor.Float64, fanIn, 8).([]float64)
		require.Len(t, values, fanIn*8)

		for _, v := range values {
			assert.GreaterOrEqual(t, v, -bound)
			assert.Less(t, v, bound)
		}
	}
}

func TestFanInUniformSeeded(t *testing.T) {
	draw := func(seed uint64) ([]float64, []float64) {
		init, err := NewFanInUniform(seed)
		require.NoError(t, err)
		first := init.ForLayer(4)(tensor.Float64, 4, 3).([]float64)
		second := init.ForLayer(4)(tensor.Float64, 4, 3).([]float64)
		return first, second
	}

	a1, a2 := draw(7)
	b1, b2 := draw(7)
	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)

	// Successive layers continue the same stream rather than restarting
	assert.NotEqual(t, a1, a2)

	c1, _ := draw(8)
	assert.NotEqual(t, a1, c1)
}

func TestFanInUniformFloat32(t *testing.T) {
	init, err := NewFanInUniform(1)
	require.NoError(t, err)

	values := init.ForLayer(16)(tensor.Float32, 2, 2).([]float32)
	require.Len(t, values, 4)
	for _, v := range values {
		assert.LessOrEqual(t, math.Abs(float64(v)), 0.25)
	}
}

func TestForLayerWithoutFanIn(t *testing.T) {
	init, err := NewConstant(3)
	require.NoError(t, err)

	values := init.ForLayer(100)(tensor.Float64, 2, 3).([]float64)
	assert.Equal(t, []float64{3, 3, 3, 3, 3, 3}, values)
}

func TestUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Config
	}{
		{"glorot", `{"Type": "GlorotU", "Config": {"Gain": 2}}`,
			GlorotUConfig{Gain: 2}},
		{"he", `{"Type": "HeN", "Config": {"Gain": 1.5}}`,
			HeNConfig{Gain: 1.5}},
		{"zeroes without config", `{"Type": "Zeroes"}`, ZeroesConfig{}},
		{"fan in", `{"Type": "FanInUniform", "Config": {"Seed": 9}}`,
			FanInUniformConfig{Seed: 9}},
		{"gaussian", `{"Type": "Gaussian", "Config": {"Mean": 1, "StdDev": 0.5}}`,
			GaussianConfig{Mean: 1, StdDev: 0.5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var init InitWFn
			require.NoError(t, json.Unmarshal([]byte(test.in), &init))
			assert.Equal(t, test.want, init.Config)
			assert.Equal(t, test.want.Type(), init.Type)
			assert.NotNil(t, init.InitWFn())
		})
	}
}

func TestMarshalJSONRoundTrip(t *testing.T) {
	init, err := NewUniform(-0.5, 0.5)
	require.NoError(t, err)

	data, err := json.Marshal(init)
	require.NoError(t, err)

	var decoded InitWFn
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, init.Config, decoded.Config)
}

func TestMarshalJSONLargeSeed(t *testing.T) {
	// Seeds from NewDefault are nanosecond timestamps, well above 2^53
	seed := uint64(1<<62 + 1)
	init, err := NewFanInUniform(seed)
	require.NoError(t, err)

	data, err := json.Marshal(init)
	require.NoError(t, err)

	var decoded InitWFn
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, FanInUniformConfig{Seed: seed}, decoded.Config)

	want := init.ForLayer(4)(tensor.Float64, 4, 3).([]float64)
	have := decoded.ForLayer(4)(tensor.Float64, 4, 3).([]float64)
	assert.Equal(t, want, have)
}

func TestUnmarshalJSONUnknownType(t *testing.T) {
	var init InitWFn
	err := json.Unmarshal([]byte(`{"Type": "Orthogonal"}`), &init)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"Config": {}}`), &init)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"Type": 3}`), &init)
	assert.Error(t, err)
}

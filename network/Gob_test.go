package network

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGobSnapshot(t *testing.T) {
	net := newTestNet(t, 5, 16, 101)
	obs := randomObs(3, 5, 4)

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(net))

	var decoded DualHeadMLP
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	assert.Equal(t, net.Features(), decoded.Features())
	assert.Equal(t, net.Hidden(), decoded.Hidden())
	assert.Equal(t, net.BatchSize(), decoded.BatchSize())
	assert.Equal(t, net.Device(), decoded.Device())

	wantGamma, wantValue, err := net.Forward(obs)
	require.NoError(t, err)
	gamma, value, err := decoded.Forward(obs)
	require.NoError(t, err)

	assert.Equal(t, wantGamma.Data(), gamma.Data())
	assert.Equal(t, wantValue.Data(), value.Data())
}

func TestGobDecodeTruncated(t *testing.T) {
	net := newTestNet(t, 2, 4, 1)

	encoded, err := net.GobEncode()
	require.NoError(t, err)

	var decoded DualHeadMLP
	assert.Error(t, decoded.GobDecode(encoded[:len(encoded)/2]))
	assert.Error(t, decoded.GobDecode(nil))
}

func TestActivationGob(t *testing.T) {
	activations := []*Activation{ReLU(), Identity(), TanH(), Sigmoid(), Nil()}

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(activations))

	var decoded []*Activation
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	assert.True(t, sameActivations(activations, decoded))
	assert.True(t, decoded[1].IsIdentity())
	assert.True(t, decoded[4].IsNil())

	var a Activation
	assert.Error(t, a.GobDecode([]byte("softplus")))
}

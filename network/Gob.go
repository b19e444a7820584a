package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/samuelfneumann/brace/initwfn"
	"gorgonia.org/tensor"
)

// GobEncode implements the gob.GobEncoder interface. The encoding holds
// the architecture of the network followed by the value of each
// learnable, in the order of Learnables().
func (d *DualHeadMLP) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	err := enc.Encode(d.numInputs)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of inputs")
	}

	err = enc.Encode(d.hidden)
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden size")
	}

	err = enc.Encode(d.BatchSize())
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size")
	}

	err = enc.Encode(string(d.device))
	if err != nil {
		return nil, fmt.Errorf("gobencode: could not encode device")
	}

	for _, sub := range []*mlp{d.backbone, d.gammaHead, d.valueHead} {
		err = enc.Encode(sub.activations)
		if err != nil {
			return nil, fmt.Errorf("gobencode: could not encode "+
				"activations: %v", err)
		}
	}

	for _, learnable := range d.Learnables() {
		value, ok := learnable.Value().(*tensor.Dense)
		if !ok {
			return nil, fmt.Errorf("gobencode: learnable %v has no dense "+
				"value", learnable.Name())
		}

		err = enc.Encode(value)
		if err != nil {
			msg := "gobencode: could not encode learnable %v: %v"
			return nil, fmt.Errorf(msg, learnable.Name(), err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (d *DualHeadMLP) GobDecode(in []byte) error {
	buf := bytes.NewReader(in)
	dec := gob.NewDecoder(buf)

	var numInputs int
	err := dec.Decode(&numInputs)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode number of inputs")
	}

	var hidden int
	err = dec.Decode(&hidden)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden size")
	}

	var batchSize int
	err = dec.Decode(&batchSize)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size")
	}

	var device string
	err = dec.Decode(&device)
	if err != nil {
		return fmt.Errorf("gobdecode: could not decode device")
	}

	// Create a new network to fill with the decoded learnables
	init, err := initwfn.NewZeroes()
	if err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}
	newNet, err := newDualHeadMLP(numInputs, hidden, batchSize,
		Device(device), init)
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct network: %v", err)
	}

	// The architecture is fixed, so the encoded activations must match
	// the ones the constructor used
	for _, sub := range []*mlp{newNet.backbone, newNet.gammaHead,
		newNet.valueHead} {
		var activations []*Activation
		err = dec.Decode(&activations)
		if err != nil {
			return fmt.Errorf("gobdecode: could not decode activations: "+
				"%v", err)
		}
		if !sameActivations(activations, sub.activations) {
			return fmt.Errorf("gobdecode: unexpected activations %v, "+
				"want %v", activations, sub.activations)
		}
	}

	for _, learnable := range newNet.Learnables() {
		var value tensor.Dense
		err = dec.Decode(&value)
		if err != nil {
			return fmt.Errorf("gobdecode: could not decode learnable %v: %v",
				learnable.Name(), err)
		}

		if !value.Shape().Eq(learnable.Shape()) {
			return fmt.Errorf("gobdecode: learnable %v has shape %v, "+
				"decoded shape %v", learnable.Name(), learnable.Shape(),
				value.Shape())
		}

		if err = newNet.SetLearnable(learnable.Name(), &value); err != nil {
			return fmt.Errorf("gobdecode: %v", err)
		}
	}

	*d = *newNet
	return nil
}

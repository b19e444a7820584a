package batch

import (
	"encoding/json"
	"fmt"
	"io"

	"gorgonia.org/tensor"
)

// Result holds the predictions of a dual-head network for a Batch:
// Gamma[i] and Value[i] are the arbitration weight and state value of
// observation i.
type Result struct {
	Gamma []float64 `json:"gamma"`
	Value []float64 `json:"value"`
}

// NewResult returns the Result stored in the (size, 1) tensors gamma
// and value.
func NewResult(gamma, value tensor.Tensor) (Result, error) {
	g, err := column(gamma)
	if err != nil {
		return Result{}, fmt.Errorf("newresult: γ: %v", err)
	}

	v, err := column(value)
	if err != nil {
		return Result{}, fmt.Errorf("newresult: value: %v", err)
	}

	if len(g) != len(v) {
		return Result{}, fmt.Errorf("newresult: %v arbitration weights but "+
			"%v values", len(g), len(v))
	}
	return Result{Gamma: g, Value: v}, nil
}

// column returns a copy of the data of a float64 (size, 1) tensor
func column(t tensor.Tensor) ([]float64, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tensor")
	}

	shape := t.Shape()
	if len(shape) != 2 || shape[1] != 1 {
		return nil, fmt.Errorf("want shape (size, 1), have %v", shape)
	}

	data, ok := t.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("want float64 data, have %v", t.Dtype())
	}
	return append([]float64(nil), data...), nil
}

// Len returns the number of observations the Result holds predictions
// for
func (r Result) Len() int {
	return len(r.Gamma)
}

// WriteJSON writes the Result as a JSON object
func (r Result) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Package batch implements batches of observation vectors and the
// conversions between the representations used to store them: gonum
// matrices, Gorgonia tensors, row slices and JSON documents.
package batch

import (
	"encoding/json"
	"fmt"
	"io"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

// Batch is an ordered collection of observation vectors of equal
// length. Row i of the underlying matrix is observation i.
type Batch struct {
	obs *mat.Dense
}

// FromDense returns a Batch holding the rows of obs. The Batch shares
// obs' memory.
func FromDense(obs *mat.Dense) (*Batch, error) {
	if obs == nil || obs.IsEmpty() {
		return nil, fmt.Errorf("fromdense: empty observation matrix")
	}
	return &Batch{obs: obs}, nil
}

// FromRows returns a Batch holding a copy of each row. All rows must
// have the same, non-zero, length.
func FromRows(rows [][]float64) (*Batch, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fromrows: no observations")
	}

	features := len(rows[0])
	if features == 0 {
		return nil, fmt.Errorf("fromrows: observations have no features")
	}

	obs := mat.NewDense(len(rows), features, nil)
	for i, row := range rows {
		if len(row) != features {
			return nil, fmt.Errorf("fromrows: observation %v has %v "+
				"features \n\twant(%v) \n\thave(%v)", i, len(row), features,
				len(row))
		}
		obs.SetRow(i, row)
	}

	return &Batch{obs: obs}, nil
}

// FromTensor returns a Batch holding a copy of a float64 matrix tensor
func FromTensor(t tensor.Tensor) (*Batch, error) {
	if t == nil || t.Dims() != 2 {
		return nil, fmt.Errorf("fromtensor: observations must be a matrix")
	}

	data, ok := t.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("fromtensor: observations must be float64, "+
			"have %v", t.Dtype())
	}

	shape := t.Shape()
	backing := make([]float64, len(data))
	copy(backing, data)
	return FromDense(mat.NewDense(shape[0], shape[1], backing))
}

// Dims returns the number of observations and the number of features
// in each observation.
func (b *Batch) Dims() (size, features int) {
	return b.obs.Dims()
}

// Len returns the number of observations in the Batch
func (b *Batch) Len() int {
	size, _ := b.Dims()
	return size
}

// Matrix returns the observations as a gonum matrix
func (b *Batch) Matrix() *mat.Dense {
	return b.obs
}

// Row returns a copy of observation i
func (b *Batch) Row(i int) []float64 {
	return mat.Row(nil, i, b.obs)
}

// Rows returns a copy of each observation
func (b *Batch) Rows() [][]float64 {
	rows := make([][]float64, b.Len())
	for i := range rows {
		rows[i] = b.Row(i)
	}
	return rows
}

// Tensor returns the observations as a (size, features) tensor which
// does not share memory with the Batch.
func (b *Batch) Tensor() *tensor.Dense {
	size, features := b.Dims()
	return tensor.New(
		tensor.WithShape(size, features),
		tensor.WithBacking(mat.DenseCopyOf(b.obs).RawMatrix().Data),
	)
}

// ReadJSON reads a Batch encoded as a JSON array of observations, each
// of which is an array of numbers.
func ReadJSON(r io.Reader) (*Batch, error) {
	var rows [][]float64
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("readjson: %v", err)
	}

	b, err := FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("readjson: %v", err)
	}
	return b, nil
}

// WriteJSON writes the Batch as a JSON array of observations
func (b *Batch) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(b.Rows())
}

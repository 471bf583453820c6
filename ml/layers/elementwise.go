/*
 *	Copyright 2026 The Weft Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package layers

import (
	"github.com/pkg/errors"

	"github.com/weftml/weft/backends"
	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/tensors"
)

// broadcastSignature merges the input signatures of an n-ary elementwise
// layer with NumPy broadcasting rules, right-aligned. Unknown dimensions
// merge with anything; a pair of known dimensions must be equal or one of
// them 1.
func broadcastSignature(inputs []shapes.Shape) (shapes.Shape, error) {
	if len(inputs) == 0 {
		return shapes.Invalid(), errors.New("requires at least one input")
	}
	dtype := inputs[0].DType
	rank := 0
	for ii, s := range inputs {
		if s.DType != dtype {
			return shapes.Invalid(), errors.Errorf("mixed dtypes %s and %s (input #%d)", dtype, s.DType, ii)
		}
		rank = max(rank, s.Rank())
	}
	dims := make([]int, rank)
	for axis := range dims {
		dim := 1
		for ii, s := range inputs {
			offset := axis - (rank - s.Rank())
			if offset < 0 {
				continue
			}
			d := s.Dimensions[offset]
			switch {
			case d == dim || d == 1:
				// Keep current merge.
			case dim == 1 || dim == shapes.UnknownDim && d != shapes.UnknownDim:
				dim = d
			case d == shapes.UnknownDim:
				// Unknown yields to any known merge.
			default:
				return shapes.Invalid(), errors.Errorf(
					"dimension mismatch on axis %d: input #%d has %d, previous inputs broadcast to %d",
					axis, ii, d, dim)
			}
		}
		dims[axis] = dim
	}
	result := shapes.Shape{DType: dtype, Dimensions: dims}
	return result, nil
}

// foldBinary left-folds a binary backend op over the inputs.
func foldBinary(backend backends.Backend, op backends.BinaryOp, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	acc := inputs[0]
	for _, t := range inputs[1:] {
		var err error
		acc, err = backend.Binary(op, acc, t)
		if err != nil {
			return nil, err
		}
	}
	if acc == inputs[0] {
		acc = acc.Clone()
	}
	return []*tensors.Tensor{acc}, nil
}

// Add sums its inputs elementwise, broadcasting per NumPy rules.
// It has no parameters.
type Add struct {
	baseLayer
}

// NewAdd creates an elementwise addition layer named "add_<n>".
func NewAdd() *Add {
	return &Add{baseLayer{name: NextName("add")}}
}

// Rename sets the layer name and returns the layer.
func (l *Add) Rename(name string) *Add {
	l.rename(name)
	return l
}

// InferSignature implements Layer.
func (l *Add) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) < 2 {
		return nil, errors.Errorf("Add requires at least 2 inputs, got %d", len(inputs))
	}
	out, err := broadcastSignature(inputs)
	if err != nil {
		return nil, err
	}
	return []shapes.Shape{out}, nil
}

// Compute implements Layer.
func (l *Add) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	return foldBinary(backend, backends.BinaryAdd, inputs)
}

// Multiply multiplies its inputs elementwise, broadcasting per NumPy
// rules. It has no parameters.
type Multiply struct {
	baseLayer
}

// NewMultiply creates an elementwise multiplication layer named
// "multiply_<n>".
func NewMultiply() *Multiply {
	return &Multiply{baseLayer{name: NextName("multiply")}}
}

// Rename sets the layer name and returns the layer.
func (l *Multiply) Rename(name string) *Multiply {
	l.rename(name)
	return l
}

// InferSignature implements Layer.
func (l *Multiply) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) < 2 {
		return nil, errors.Errorf("Multiply requires at least 2 inputs, got %d", len(inputs))
	}
	out, err := broadcastSignature(inputs)
	if err != nil {
		return nil, err
	}
	return []shapes.Shape{out}, nil
}

// Compute implements Layer.
func (l *Multiply) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	return foldBinary(backend, backends.BinaryMul, inputs)
}

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

// Concatenate joins its inputs along one axis. All inputs must share
// dtype, rank and every non-axis dimension; unknown dimensions match
// anything. No parameters.
type Concatenate struct {
	baseLayer
	axis int
}

// NewConcatenate creates a concatenation layer along axis (negative axes
// count from the end), named "concatenate_<n>".
func NewConcatenate(axis int) *Concatenate {
	return &Concatenate{baseLayer: baseLayer{name: NextName("concatenate")}, axis: axis}
}

// Rename sets the layer name and returns the layer.
func (l *Concatenate) Rename(name string) *Concatenate {
	l.rename(name)
	return l
}

// InferSignature implements Layer.
func (l *Concatenate) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) < 2 {
		return nil, errors.Errorf("Concatenate requires at least 2 inputs, got %d", len(inputs))
	}
	first := inputs[0]
	axis, err := adjustAxis(l.axis, first.Rank())
	if err != nil {
		return nil, err
	}
	output := first.Clone()
	for ii, s := range inputs[1:] {
		if s.DType != first.DType {
			return nil, errors.Errorf("mixed dtypes %s and %s (input #%d)", first.DType, s.DType, ii+1)
		}
		if s.Rank() != first.Rank() {
			return nil, errors.Errorf("mixed ranks: input #0 is %s, input #%d is %s", first, ii+1, s)
		}
		for a, d := range s.Dimensions {
			if a == axis {
				continue
			}
			switch {
			case d == output.Dimensions[a]:
			case output.Dimensions[a] == shapes.UnknownDim:
				output.Dimensions[a] = d
			case d == shapes.UnknownDim:
			default:
				return nil, errors.Errorf(
					"dimension mismatch on non-concatenation axis %d: input #0 is %s, input #%d is %s",
					a, first, ii+1, s)
			}
		}
	}
	total := 0
	for _, s := range inputs {
		d := s.Dimensions[axis]
		if d == shapes.UnknownDim {
			total = shapes.UnknownDim
			break
		}
		total += d
	}
	output.Dimensions[axis] = total
	return []shapes.Shape{output}, nil
}

// Compute implements Layer.
func (l *Concatenate) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	axis, err := adjustAxis(l.axis, inputs[0].Rank())
	if err != nil {
		return nil, err
	}
	output, err := backend.Concat(axis, inputs...)
	if err != nil {
		return nil, err
	}
	return []*tensors.Tensor{output}, nil
}

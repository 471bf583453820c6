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

// Reshape reinterprets the input with new dimensions of the same total
// size. At most one target dimension may be the wildcard -1, inferred
// from the remaining ones. No parameters.
type Reshape struct {
	baseLayer
	dimensions []int
	wildcard   int
}

// NewReshape creates a reshape layer targeting the given dimensions,
// named "reshape_<n>". A single dimension may be -1, to be inferred from
// the input size.
func NewReshape(dimensions ...int) *Reshape {
	l := &Reshape{
		baseLayer:  baseLayer{name: NextName("reshape")},
		dimensions: append([]int(nil), dimensions...),
		wildcard:   -1,
	}
	for ii, d := range dimensions {
		if d == -1 && l.wildcard == -1 {
			l.wildcard = ii
		}
	}
	return l
}

// Rename sets the layer name and returns the layer.
func (l *Reshape) Rename(name string) *Reshape {
	l.rename(name)
	return l
}

// target resolves the wildcard against a total element count; total is
// shapes.UnknownDim when the input has a symbolic dimension.
func (l *Reshape) target(total int) ([]int, error) {
	known := 1
	wildcards := 0
	for _, d := range l.dimensions {
		switch {
		case d == -1:
			wildcards++
		case d <= 0:
			return nil, errors.Errorf("invalid target dimension %d", d)
		default:
			known *= d
		}
	}
	if wildcards > 1 {
		return nil, errors.Errorf("at most one -1 wildcard allowed, got dimensions %v", l.dimensions)
	}
	dims := append([]int(nil), l.dimensions...)
	switch {
	case wildcards == 0:
		if total != shapes.UnknownDim && total != known {
			return nil, errors.Errorf("cannot reshape %d elements into %v (%d elements)", total, l.dimensions, known)
		}
	case total == shapes.UnknownDim:
		dims[l.wildcard] = shapes.UnknownDim
	default:
		if total%known != 0 {
			return nil, errors.Errorf("cannot reshape %d elements into %v", total, l.dimensions)
		}
		dims[l.wildcard] = total / known
	}
	return dims, nil
}

// InferSignature implements Layer.
func (l *Reshape) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("Reshape takes exactly 1 input, got %d", len(inputs))
	}
	input := inputs[0]
	total := input.Size()
	if !input.IsFullyDefined() {
		if l.wildcard == -1 {
			return nil, errors.Errorf("reshaping %s with a symbolic dimension requires a -1 wildcard target", input)
		}
		total = shapes.UnknownDim
	}
	dims, err := l.target(total)
	if err != nil {
		return nil, err
	}
	return []shapes.Shape{{DType: input.DType, Dimensions: dims}}, nil
}

// Compute implements Layer.
func (l *Reshape) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	dims, err := l.target(inputs[0].Size())
	if err != nil {
		return nil, err
	}
	output, err := backend.Reshape(inputs[0], dims...)
	if err != nil {
		return nil, err
	}
	return []*tensors.Tensor{output}, nil
}

// Flatten collapses all axes but the leading (batch) one, turning
// [batch, d1, ..., dn] into [batch, d1*...*dn]. The batch dimension may
// be symbolic. No parameters.
type Flatten struct {
	baseLayer
}

// NewFlatten creates a flatten layer named "flatten_<n>".
func NewFlatten() *Flatten {
	return &Flatten{baseLayer{name: NextName("flatten")}}
}

// Rename sets the layer name and returns the layer.
func (l *Flatten) Rename(name string) *Flatten {
	l.rename(name)
	return l
}

// InferSignature implements Layer.
func (l *Flatten) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("Flatten takes exactly 1 input, got %d", len(inputs))
	}
	input := inputs[0]
	if input.Rank() < 1 {
		return nil, errors.Errorf("Flatten requires rank >= 1, got %s", input)
	}
	features := 1
	for _, d := range input.Dimensions[1:] {
		if d == shapes.UnknownDim {
			return nil, errors.Errorf("Flatten requires known non-batch dimensions, got %s", input)
		}
		features *= d
	}
	out := shapes.Shape{DType: input.DType, Dimensions: []int{input.Dimensions[0], features}}
	return []shapes.Shape{out}, nil
}

// Compute implements Layer.
func (l *Flatten) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	input := inputs[0]
	features := input.Size()
	batch := input.Shape().Dim(0)
	if batch > 0 {
		features /= batch
	}
	output, err := backend.Reshape(input, batch, features)
	if err != nil {
		return nil, err
	}
	return []*tensors.Tensor{output}, nil
}

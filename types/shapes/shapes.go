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

// Package shapes defines Shape and associated tools.
//
// A Shape is the signature of a value flowing through a traced computation:
// a DType (the type of the unit element, see github.com/gomlx/gopjrt/dtypes)
// plus an ordered list of axis dimensions. It is used both by concrete
// tensors (see types/tensors) and by symbolic values during tracing (see
// the graph package), where individual dimensions may still be unknown --
// typically the batch axis.
//
// ## Glossary
//
//   - Rank: number of axes of a value.
//   - Axis: the index of a dimension. We refer to the dimension index as
//     "axis" (plural axes), and its size as its dimension.
//   - DType: the data type of the unit element.
//   - Scalar: a shape with no axes (rank 0), a single value of the DType.
//
// Example: `[][]int32{{0, 1, 2}, {3, 4, 5}}` converted to a tensor has
// shape `(Int32)[2 3]`: rank 2, axis 0 has dimension 2 and axis 1 has
// dimension 3. It is created with `shapes.Make(dtypes.Int32, 2, 3)`.
// A shape for a batch of 4-feature rows, batch size not yet known, is
// `shapes.Make(dtypes.Float32, shapes.UnknownDim, 4)`.
package shapes

import (
	"encoding/gob"
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// UnknownDim marks an axis whose dimension is not yet determined during
// tracing. Concrete tensors never carry unknown dimensions.
const UnknownDim = -1

// Shape represents the signature of a concrete tensor or of a symbolic
// value in a traced computation.
//
// Use Make to create a new Shape. Shape is a value type: it is never
// mutated after creation, only new shapes are derived.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// HasShape is an interface for things that have an associated Shape.
// Both concrete tensors and symbolic values implement it.
type HasShape interface {
	Shape() Shape
}

// Make returns a Shape with the given dtype and dimensions. Any dimension
// may be UnknownDim. It panics on dimensions <= 0 other than UnknownDim.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{DType: dtype, Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim <= 0 && dim != UnknownDim {
			exceptions.Panicf("shapes.Make(%s): dimensions must be positive or UnknownDim", s)
		}
	}
	return s
}

// Scalar returns a scalar Shape for the given type.
func Scalar[T dtypes.NumberNotComplex]() Shape {
	return Shape{DType: dtypes.FromGenericsType[T]()}
}

// Invalid returns an invalid shape.
//
// Invalid().Ok() == false.
func Invalid() Shape {
	return Shape{DType: dtypes.InvalidDType}
}

// Ok returns whether this is a valid Shape. The zero value Shape{} is invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of axes.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar: no axes (rank 0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. Negative axes count from
// the end, so axis=-1 refers to the last axis. Like slice indexing, it
// panics for an out-of-bounds axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// IsFullyDefined reports whether no axis has an unknown dimension.
// Scalars are fully defined.
func (s Shape) IsFullyDefined() bool {
	for _, dim := range s.Dimensions {
		if dim == UnknownDim {
			return false
		}
	}
	return s.Ok()
}

// Size returns the number of elements of DType needed for this shape, the
// product of all dimensions. Unknown dimensions count as 1, so Size is only
// meaningful for fully defined shapes.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		if d == UnknownDim {
			continue
		}
		size *= d
	}
	return
}

// Memory returns the bytes needed to store a concrete value of this shape.
func (s Shape) Memory() uintptr {
	return s.DType.Memory() * uintptr(s.Size())
}

// String implements fmt.Stringer, pretty-printing the shape. Unknown
// dimensions print as "?".
func (s Shape) String() string {
	if !s.Ok() {
		return "(invalid shape)"
	}
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	parts := make([]string, 0, s.Rank())
	for _, dim := range s.Dimensions {
		if dim == UnknownDim {
			parts = append(parts, "?")
		} else {
			parts = append(parts, fmt.Sprintf("%d", dim))
		}
	}
	return fmt.Sprintf("(%s)[%s]", s.DType, strings.Join(parts, " "))
}

// Equal compares two shapes for equality: dtype and dimensions must match
// exactly -- an unknown dimension only equals another unknown dimension.
func (s Shape) Equal(s2 Shape) bool {
	if s.DType != s2.DType {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Compatible reports whether a value with shape s2 can be bound where s is
// declared: the dtypes and ranks must match, and each axis must either have
// equal dimensions or an unknown dimension on at least one side.
func (s Shape) Compatible(s2 Shape) bool {
	if s.DType != s2.DType || s.Rank() != s2.Rank() {
		return false
	}
	for axis, dim := range s.Dimensions {
		dim2 := s2.Dimensions[axis]
		if dim != dim2 && dim != UnknownDim && dim2 != UnknownDim {
			return false
		}
	}
	return true
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// GobSerialize shape in binary format.
func (s Shape) GobSerialize(encoder *gob.Encoder) (err error) {
	enc := func(e any) {
		if err != nil {
			return
		}
		err = encoder.Encode(e)
		if err != nil {
			err = errors.Wrapf(err, "failed to serialize Shape %s", s)
		}
	}
	enc(s.DType)
	enc(s.Dimensions)
	return
}

// GobDeserialize a Shape. Returns the new Shape or an error.
func GobDeserialize(decoder *gob.Decoder) (s Shape, err error) {
	dec := func(data any) {
		if err != nil {
			return
		}
		err = decoder.Decode(data)
		if err != nil {
			err = errors.Wrapf(err, "failed to deserialize Shape")
		}
	}
	dec(&s.DType)
	dec(&s.Dimensions)
	return
}

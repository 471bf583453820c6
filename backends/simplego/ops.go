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

package simplego

import (
	"math"
	"reflect"
	"slices"

	"github.com/pkg/errors"

	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/tensors"

	"github.com/gomlx/gopjrt/dtypes"
)

// Concat implements backends.Backend. It is dtype-agnostic: data is copied
// with reflection in contiguous chunks.
func (b *Backend) Concat(axis int, operands ...*tensors.Tensor) (*tensors.Tensor, error) {
	if len(operands) == 0 {
		return nil, errors.Errorf("Concat: no operands")
	}
	first := operands[0].Shape()
	if axis < 0 {
		axis += first.Rank()
	}
	if axis < 0 || axis >= first.Rank() {
		return nil, errors.Errorf("Concat: axis %d out-of-bounds for rank %d", axis, first.Rank())
	}
	concatDim := 0
	for _, operand := range operands {
		s := operand.Shape()
		if s.DType != first.DType || s.Rank() != first.Rank() {
			return nil, errors.Errorf("Concat: operands must share dtype and rank, got %s and %s", first, s)
		}
		for otherAxis := 0; otherAxis < first.Rank(); otherAxis++ {
			if otherAxis != axis && s.Dimensions[otherAxis] != first.Dimensions[otherAxis] {
				return nil, errors.Errorf("Concat: operand shape %s doesn't match %s on axis %d", s, first, otherAxis)
			}
		}
		concatDim += s.Dimensions[axis]
	}
	outDims := slices.Clone(first.Dimensions)
	outDims[axis] = concatDim
	out := tensors.FromShape(shapes.Make(first.DType, outDims...))

	// Elements per step of the axes before (outer) and after (inner) the
	// concatenation axis.
	inner := 1
	for _, dim := range first.Dimensions[axis+1:] {
		inner *= dim
	}
	outer := 1
	for _, dim := range first.Dimensions[:axis] {
		outer *= dim
	}

	out.MutableFlatData(func(outFlat any) {
		outV := reflect.ValueOf(outFlat)
		outChunk := concatDim * inner
		for outerIdx := 0; outerIdx < outer; outerIdx++ {
			outOffset := outerIdx * outChunk
			for _, operand := range operands {
				chunk := operand.Shape().Dimensions[axis] * inner
				operand.ConstFlatData(func(inFlat any) {
					inV := reflect.ValueOf(inFlat)
					reflect.Copy(
						outV.Slice(outOffset, outOffset+chunk),
						inV.Slice(outerIdx*chunk, (outerIdx+1)*chunk))
				})
				outOffset += chunk
			}
		}
	})
	return out, nil
}

// Reshape implements backends.Backend.
func (b *Backend) Reshape(x *tensors.Tensor, dimensions ...int) (*tensors.Tensor, error) {
	if x == nil {
		return nil, errors.Errorf("Reshape: nil operand")
	}
	newShape := shapes.Make(x.DType(), dimensions...)
	if newShape.Size() != x.Size() {
		return nil, errors.Errorf("Reshape: cannot reshape %s to %s, sizes differ", x.Shape(), newShape)
	}
	out := tensors.FromShape(newShape)
	out.MutableFlatData(func(outFlat any) {
		x.ConstFlatData(func(inFlat any) {
			reflect.Copy(reflect.ValueOf(outFlat), reflect.ValueOf(inFlat))
		})
	})
	return out, nil
}

// Softmax implements backends.Backend.
func (b *Backend) Softmax(x *tensors.Tensor, axis int) (*tensors.Tensor, error) {
	if x == nil {
		return nil, errors.Errorf("Softmax: nil operand")
	}
	if axis < 0 {
		axis += x.Rank()
	}
	if axis < 0 || axis >= x.Rank() {
		return nil, errors.Errorf("Softmax: axis %d out-of-bounds for shape %s", axis, x.Shape())
	}
	switch x.DType() {
	case dtypes.Float32:
		return softmaxImpl[float32](x, axis), nil
	case dtypes.Float64:
		return softmaxImpl[float64](x, axis), nil
	case dtypes.Float16:
		return throughFloat32(x, func(x32 *tensors.Tensor) (*tensors.Tensor, error) {
			return softmaxImpl[float32](x32, axis), nil
		})
	default:
		return nil, errors.Errorf("Softmax: dtype %s not supported by backend %q", x.DType(), BackendName)
	}
}

func softmaxImpl[T float32 | float64](x *tensors.Tensor, axis int) *tensors.Tensor {
	out := tensors.FromShape(x.Shape())
	dim := x.Shape().Dimensions[axis]
	inner := 1
	for _, d := range x.Shape().Dimensions[axis+1:] {
		inner *= d
	}
	outer := x.Size() / (dim * inner)
	tensors.ConstFlatData(x, func(inFlat []T) {
		tensors.MutableFlatData(out, func(outFlat []T) {
			for outerIdx := 0; outerIdx < outer; outerIdx++ {
				for innerIdx := 0; innerIdx < inner; innerIdx++ {
					base := outerIdx*dim*inner + innerIdx
					maxValue := inFlat[base]
					for ii := 1; ii < dim; ii++ {
						maxValue = max(maxValue, inFlat[base+ii*inner])
					}
					var sum float64
					for ii := 0; ii < dim; ii++ {
						e := math.Exp(float64(inFlat[base+ii*inner] - maxValue))
						outFlat[base+ii*inner] = T(e)
						sum += e
					}
					for ii := 0; ii < dim; ii++ {
						outFlat[base+ii*inner] = T(float64(outFlat[base+ii*inner]) / sum)
					}
				}
			}
		})
	})
	return out
}

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

	"github.com/pkg/errors"

	"github.com/weftml/weft/backends"
	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/tensors"
)

func unaryFloat[T float32 | float64](op backends.UnaryOp, x *tensors.Tensor) (*tensors.Tensor, error) {
	var fn func(T) T
	switch op {
	case backends.UnaryNeg:
		fn = func(v T) T { return -v }
	case backends.UnaryAbs:
		fn = func(v T) T {
			if v < 0 {
				return -v
			}
			return v
		}
	case backends.UnaryExp:
		fn = func(v T) T { return T(math.Exp(float64(v))) }
	case backends.UnaryRelu:
		fn = func(v T) T {
			if v < 0 {
				return 0
			}
			return v
		}
	case backends.UnarySigmoid:
		fn = func(v T) T { return T(1.0 / (1.0 + math.Exp(-float64(v)))) }
	case backends.UnaryTanh:
		fn = func(v T) T { return T(math.Tanh(float64(v))) }
	default:
		return nil, errors.Errorf("unary op %s not supported by backend %q", op, BackendName)
	}
	return mapUnary(x, fn), nil
}

func unaryInt[T int | int8 | int16 | int32 | int64](op backends.UnaryOp, x *tensors.Tensor) (*tensors.Tensor, error) {
	var fn func(T) T
	switch op {
	case backends.UnaryNeg:
		fn = func(v T) T { return -v }
	case backends.UnaryAbs:
		fn = func(v T) T {
			if v < 0 {
				return -v
			}
			return v
		}
	default:
		return nil, errors.Errorf("unary op %s not supported for dtype %s by backend %q", op, x.DType(), BackendName)
	}
	return mapUnary(x, fn), nil
}

func mapUnary[T interface {
	int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}](x *tensors.Tensor, fn func(T) T) *tensors.Tensor {
	out := tensors.FromShape(x.Shape())
	tensors.ConstFlatData(x, func(in []T) {
		tensors.MutableFlatData(out, func(outFlat []T) {
			for ii, v := range in {
				outFlat[ii] = fn(v)
			}
		})
	})
	return out
}

// broadcastShape returns the NumPy-style broadcast of the two shapes: ranks
// are aligned to the right, and each axis pair must be equal or have a 1 on
// either side.
func broadcastShape(lhs, rhs shapes.Shape) (shapes.Shape, error) {
	rank := max(lhs.Rank(), rhs.Rank())
	dims := make([]int, rank)
	for axis := rank - 1; axis >= 0; axis-- {
		lhsDim, rhsDim := 1, 1
		if fromEnd := rank - 1 - axis; fromEnd < lhs.Rank() {
			lhsDim = lhs.Dimensions[lhs.Rank()-1-fromEnd]
		}
		if fromEnd := rank - 1 - axis; fromEnd < rhs.Rank() {
			rhsDim = rhs.Dimensions[rhs.Rank()-1-fromEnd]
		}
		switch {
		case lhsDim == rhsDim:
			dims[axis] = lhsDim
		case lhsDim == 1:
			dims[axis] = rhsDim
		case rhsDim == 1:
			dims[axis] = lhsDim
		default:
			return shapes.Invalid(), errors.Errorf("shapes %s and %s are not broadcast-compatible", lhs, rhs)
		}
	}
	return shapes.Make(lhs.DType, dims...), nil
}

// broadcastStrides returns, for an operand with the given shape, the strides
// to use for each axis of the broadcast output shape: 0 for broadcast axes.
func broadcastStrides(operand, out shapes.Shape) []int {
	strides := make([]int, out.Rank())
	stride := 1
	for axis := operand.Rank() - 1; axis >= 0; axis-- {
		outAxis := out.Rank() - (operand.Rank() - axis)
		if operand.Dimensions[axis] != 1 {
			strides[outAxis] = stride
		}
		stride *= operand.Dimensions[axis]
	}
	return strides
}

func binaryNumeric[T interface {
	int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}](op backends.BinaryOp, lhs, rhs *tensors.Tensor, outShape shapes.Shape) (*tensors.Tensor, error) {
	var fn func(a, b T) T
	switch op {
	case backends.BinaryAdd:
		fn = func(a, b T) T { return a + b }
	case backends.BinarySub:
		fn = func(a, b T) T { return a - b }
	case backends.BinaryMul:
		fn = func(a, b T) T { return a * b }
	case backends.BinaryDiv:
		fn = func(a, b T) T { return a / b }
	case backends.BinaryMax:
		fn = func(a, b T) T {
			if a > b {
				return a
			}
			return b
		}
	case backends.BinaryMin:
		fn = func(a, b T) T {
			if a < b {
				return a
			}
			return b
		}
	default:
		return nil, errors.Errorf("binary op %s not supported by backend %q", op, BackendName)
	}

	out := tensors.FromShape(outShape)
	lhsStrides := broadcastStrides(lhs.Shape(), outShape)
	rhsStrides := broadcastStrides(rhs.Shape(), outShape)
	indices := make([]int, outShape.Rank())
	tensors.ConstFlatData(lhs, func(lhsFlat []T) {
		tensors.ConstFlatData(rhs, func(rhsFlat []T) {
			tensors.MutableFlatData(out, func(outFlat []T) {
				lhsOffset, rhsOffset := 0, 0
				for ii := range outFlat {
					outFlat[ii] = fn(lhsFlat[lhsOffset], rhsFlat[rhsOffset])
					// Advance the odometer and the operand offsets.
					for axis := outShape.Rank() - 1; axis >= 0; axis-- {
						indices[axis]++
						lhsOffset += lhsStrides[axis]
						rhsOffset += rhsStrides[axis]
						if indices[axis] < outShape.Dimensions[axis] {
							break
						}
						indices[axis] = 0
						lhsOffset -= lhsStrides[axis] * outShape.Dimensions[axis]
						rhsOffset -= rhsStrides[axis] * outShape.Dimensions[axis]
					}
				}
			})
		})
	})
	return out, nil
}

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
	"slices"

	"github.com/pkg/errors"

	"github.com/weftml/weft/internal/workers"
	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/tensors"

	"github.com/gomlx/gopjrt/dtypes"
)

// MatMul implements backends.Backend.
//
// It contracts the last axis of lhs with the second-to-last axis of rhs.
// Ranks must be >= 2; leading (batch) axes must match exactly, or one of
// the operands may omit them entirely, in which case it is reused for every
// batch element.
func (b *Backend) MatMul(lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	if lhs == nil || rhs == nil {
		return nil, errors.Errorf("MatMul: nil operand")
	}
	if lhs.DType() != rhs.DType() {
		return nil, errors.Errorf("MatMul: operands have different dtypes: %s and %s", lhs.DType(), rhs.DType())
	}
	if lhs.Rank() < 2 || rhs.Rank() < 2 {
		return nil, errors.Errorf("MatMul: operands must have rank >= 2, got %s and %s", lhs.Shape(), rhs.Shape())
	}
	contractDim := lhs.Shape().Dim(-1)
	if rhs.Shape().Dim(-2) != contractDim {
		return nil, errors.Errorf("MatMul: contracting dimensions don't match: %s x %s", lhs.Shape(), rhs.Shape())
	}
	lhsBatch := lhs.Shape().Dimensions[:lhs.Rank()-2]
	rhsBatch := rhs.Shape().Dimensions[:rhs.Rank()-2]
	var batchDims []int
	switch {
	case slices.Equal(lhsBatch, rhsBatch):
		batchDims = lhsBatch
	case len(lhsBatch) == 0:
		batchDims = rhsBatch
	case len(rhsBatch) == 0:
		batchDims = lhsBatch
	default:
		return nil, errors.Errorf("MatMul: batch dimensions don't match: %s x %s", lhs.Shape(), rhs.Shape())
	}

	outDims := append(slices.Clone(batchDims), lhs.Shape().Dim(-2), rhs.Shape().Dim(-1))
	outShape := shapes.Make(lhs.DType(), outDims...)
	switch lhs.DType() {
	case dtypes.Float32:
		return matMulImpl[float32](b.pool, lhs, rhs, outShape, len(lhsBatch) > 0, len(rhsBatch) > 0), nil
	case dtypes.Float64:
		return matMulImpl[float64](b.pool, lhs, rhs, outShape, len(lhsBatch) > 0, len(rhsBatch) > 0), nil
	case dtypes.Float16:
		lhs32, err := convertFloat16To32(lhs)
		if err != nil {
			return nil, err
		}
		rhs32, err := convertFloat16To32(rhs)
		if err != nil {
			return nil, err
		}
		out32, err := b.MatMul(lhs32, rhs32)
		if err != nil {
			return nil, err
		}
		return convertFloat32To16(out32)
	default:
		return nil, errors.Errorf("MatMul: dtype %s not supported by backend %q", lhs.DType(), BackendName)
	}
}

// matMulRowWork is the minimum number of multiply-adds one parallel chunk
// should amortize.
const matMulRowWork = 1 << 14

func matMulImpl[T float32 | float64](pool *workers.Pool, lhs, rhs *tensors.Tensor, outShape shapes.Shape, lhsBatched, rhsBatched bool) *tensors.Tensor {
	out := tensors.FromShape(outShape)
	m := lhs.Shape().Dim(-2)
	k := lhs.Shape().Dim(-1)
	n := rhs.Shape().Dim(-1)
	numBatch := outShape.Size() / (m * n)
	tensors.ConstFlatData(lhs, func(lhsFlat []T) {
		tensors.ConstFlatData(rhs, func(rhsFlat []T) {
			tensors.MutableFlatData(out, func(outFlat []T) {
				// Split the numBatch*m output rows across workers: each row
				// writes a disjoint slice of outFlat.
				minRows := matMulRowWork/(k*n) + 1
				pool.Range(numBatch*m, minRows, func(startRow, endRow int) {
					for globalRow := startRow; globalRow < endRow; globalRow++ {
						batch, row := globalRow/m, globalRow%m
						lhsBase, rhsBase := 0, 0
						if lhsBatched {
							lhsBase = batch * m * k
						}
						if rhsBatched {
							rhsBase = batch * k * n
						}
						outBase := batch * m * n
						for inner := 0; inner < k; inner++ {
							lhsValue := lhsFlat[lhsBase+row*k+inner]
							if lhsValue == 0 {
								continue
							}
							rhsRow := rhsFlat[rhsBase+inner*n : rhsBase+(inner+1)*n]
							outRow := outFlat[outBase+row*n : outBase+(row+1)*n]
							for col, rhsValue := range rhsRow {
								outRow[col] += lhsValue * rhsValue
							}
						}
					}
				})
			})
		})
	})
	return out
}

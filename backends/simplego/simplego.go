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

// Package simplego implements a simple, and not very fast, pure Go backend.
// It is registered under the name "go".
//
// Float32 and Float64 are fully supported. Elementwise operations also work
// on Int32 and Int64. Float16 is supported by converting to Float32,
// computing, and converting the result back.
package simplego

import (
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"k8s.io/klog/v2"

	"github.com/weftml/weft/backends"
	"github.com/weftml/weft/internal/workers"
	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/tensors"

	"github.com/gomlx/gopjrt/dtypes"
)

// BackendName is the name this backend registers itself under.
const BackendName = "go"

func init() {
	backends.Register(BackendName, New)
}

// Backend is a pure Go implementation of backends.Backend.
// It is safe for concurrent use.
type Backend struct {
	pool *workers.Pool
}

// New constructs a simplego Backend. It takes no configuration.
func New(config string) (backends.Backend, error) {
	if config != "" {
		return nil, errors.Errorf("backend %q takes no configuration, got %q", BackendName, config)
	}
	klog.V(1).Infof("simplego: backend created")
	return &Backend{pool: workers.New()}, nil
}

// Name implements backends.Backend.
func (b *Backend) Name() string { return BackendName }

// Description implements backends.Backend.
func (b *Backend) Description() string {
	return "simplego: a simple, and not very fast, pure Go backend"
}

// Unary implements backends.Backend.
func (b *Backend) Unary(op backends.UnaryOp, x *tensors.Tensor) (*tensors.Tensor, error) {
	if x == nil {
		return nil, errors.Errorf("Unary(%s): nil operand", op)
	}
	switch x.DType() {
	case dtypes.Float32:
		return unaryFloat[float32](op, x)
	case dtypes.Float64:
		return unaryFloat[float64](op, x)
	case dtypes.Float16:
		return throughFloat32(x, func(x32 *tensors.Tensor) (*tensors.Tensor, error) {
			return unaryFloat[float32](op, x32)
		})
	case dtypes.Int32:
		return unaryInt[int32](op, x)
	case dtypes.Int64:
		return unaryInt[int64](op, x)
	default:
		return nil, errors.Errorf("Unary(%s): dtype %s not supported by backend %q", op, x.DType(), BackendName)
	}
}

// Binary implements backends.Backend.
func (b *Backend) Binary(op backends.BinaryOp, lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	if lhs == nil || rhs == nil {
		return nil, errors.Errorf("Binary(%s): nil operand", op)
	}
	if lhs.DType() != rhs.DType() {
		return nil, errors.Errorf("Binary(%s): operands have different dtypes: %s and %s", op, lhs.DType(), rhs.DType())
	}
	outShape, err := broadcastShape(lhs.Shape(), rhs.Shape())
	if err != nil {
		return nil, errors.WithMessagef(err, "Binary(%s)", op)
	}
	switch lhs.DType() {
	case dtypes.Float32:
		return binaryNumeric[float32](op, lhs, rhs, outShape)
	case dtypes.Float64:
		return binaryNumeric[float64](op, lhs, rhs, outShape)
	case dtypes.Float16:
		lhs32, err := convertFloat16To32(lhs)
		if err != nil {
			return nil, err
		}
		rhs32, err := convertFloat16To32(rhs)
		if err != nil {
			return nil, err
		}
		out32, err := binaryNumeric[float32](op, lhs32, rhs32, shapes.Make(dtypes.Float32, outShape.Dimensions...))
		if err != nil {
			return nil, err
		}
		return convertFloat32To16(out32)
	case dtypes.Int32:
		return binaryNumeric[int32](op, lhs, rhs, outShape)
	case dtypes.Int64:
		return binaryNumeric[int64](op, lhs, rhs, outShape)
	default:
		return nil, errors.Errorf("Binary(%s): dtype %s not supported by backend %q", op, lhs.DType(), BackendName)
	}
}

// throughFloat32 runs fn on a Float32 conversion of x and converts the result
// back to Float16.
func throughFloat32(x *tensors.Tensor, fn func(x32 *tensors.Tensor) (*tensors.Tensor, error)) (*tensors.Tensor, error) {
	x32, err := convertFloat16To32(x)
	if err != nil {
		return nil, err
	}
	out32, err := fn(x32)
	if err != nil {
		return nil, err
	}
	return convertFloat32To16(out32)
}

func convertFloat16To32(x *tensors.Tensor) (*tensors.Tensor, error) {
	if x.DType() != dtypes.Float16 {
		return nil, errors.Errorf("cannot convert %s tensor to Float32, expected Float16", x.DType())
	}
	out := tensors.FromShape(shapes.Make(dtypes.Float32, x.Shape().Dimensions...))
	tensors.ConstFlatData(x, func(in []float16.Float16) {
		tensors.MutableFlatData(out, func(outFlat []float32) {
			for ii, v := range in {
				outFlat[ii] = v.Float32()
			}
		})
	})
	return out, nil
}

func convertFloat32To16(x *tensors.Tensor) (*tensors.Tensor, error) {
	if x.DType() != dtypes.Float32 {
		return nil, errors.Errorf("cannot convert %s tensor to Float16, expected Float32", x.DType())
	}
	out := tensors.FromShape(shapes.Make(dtypes.Float16, x.Shape().Dimensions...))
	tensors.ConstFlatData(x, func(in []float32) {
		tensors.MutableFlatData(out, func(outFlat []float16.Float16) {
			for ii, v := range in {
				outFlat[ii] = float16.Fromfloat32(v)
			}
		})
	})
	return out, nil
}

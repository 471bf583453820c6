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

// Package tensors implements Tensor, a representation of a multi-dimensional
// array held in host memory.
//
// Tensors are defined by their shape (a data type and its axes' dimensions)
// and their content, stored as a flat (1D) Go slice of the corresponding
// dtype. They are the concrete values fed to and returned from replaying a
// finalized model (see ml/model); their symbolic counterparts during tracing
// only carry a shapes.Shape.
//
// There are various ways to construct a Tensor from local data:
//
//   - FromShape(shape): a tensor of the given shape, zero-initialized.
//   - FromScalarAndDimensions(value, dimensions...): filled with a scalar.
//   - FromFlatDataAndDimensions(data, dimensions...): from flat data.
//   - FromValue(value): from a (nested) Go slice or scalar, shape inferred.
//     Slices of rank > 1 must be regular (all sub-slices the same length).
//
// Access to the data goes through ConstFlatData / MutableFlatData, either
// the generic package functions (typed) or the any-valued methods.
package tensors

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/x448/float16"

	"github.com/weftml/weft/types/shapes"
)

// Tensor is a multidimensional array (from scalar with 0 dimensions to
// arbitrarily large ranks) of one of the supported dtypes.
//
// The shape is fixed and fully defined at creation: a Tensor never carries
// unknown dimensions. The flat data is mutable through MutableFlatData --
// layer parameters rely on that for training-time updates.
type Tensor struct {
	shape shapes.Shape

	// flat is a []T slice, where T is the Go type corresponding to shape.DType,
	// of length shape.Size(), in row-major order.
	flat any
}

// FromShape returns a Tensor of the given shape, with the data zero-initialized.
// It panics if the shape is invalid or not fully defined.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	if !shape.IsFullyDefined() {
		exceptions.Panicf("tensors.FromShape(%s): concrete tensors require fully defined dimensions", shape)
	}
	size := shape.Size()
	flat := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, size).Interface()
	return &Tensor{shape: shape.Clone(), flat: flat}
}

// Shape of the Tensor, includes the DType.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType returns the DType of the tensor's shape.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank returns the rank of the tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// IsScalar returns whether the tensor represents a scalar value.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Size returns the number of elements in the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Memory returns the number of bytes used to store the tensor data.
func (t *Tensor) Memory() uintptr { return t.shape.Memory() }

// AssertValid panics if the tensor is nil or has no data.
func (t *Tensor) AssertValid() {
	if t == nil {
		exceptions.Panicf("Tensor is nil")
	}
	if t.flat == nil {
		exceptions.Panicf("Tensor (shape=%s) has no data", t.shape)
	}
}

// LayoutStrides returns the row-major strides for each axis.
func (t *Tensor) LayoutStrides() (strides []int) {
	rank := t.shape.Rank()
	if rank == 0 {
		return
	}
	strides = make([]int, rank)
	currentStride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= t.shape.Dimensions[axis]
	}
	return
}

// ConstFlatData calls accessFn with the flat data of the tensor, a []T of the
// tensor's dtype. The slice must not be modified -- see MutableFlatData.
func (t *Tensor) ConstFlatData(accessFn func(flat any)) {
	t.AssertValid()
	accessFn(t.flat)
}

// MutableFlatData calls accessFn with the flat data of the tensor, a []T of
// the tensor's dtype, which may be modified in place.
func (t *Tensor) MutableFlatData(accessFn func(flat any)) {
	t.AssertValid()
	accessFn(t.flat)
}

// ConstFlatData gives access to the typed flat data of the tensor.
// It panics if T doesn't match the tensor's dtype.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	t.AssertValid()
	if t.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("tensors.ConstFlatData[%T]: tensor dtype is %s", v, t.shape.DType)
	}
	accessFn(t.flat.([]T))
}

// MutableFlatData gives mutable access to the typed flat data of the tensor.
// It panics if T doesn't match the tensor's dtype.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	t.AssertValid()
	if t.shape.DType != dtypes.FromGenericsType[T]() {
		var v T
		exceptions.Panicf("tensors.MutableFlatData[%T]: tensor dtype is %s", v, t.shape.DType)
	}
	accessFn(t.flat.([]T))
}

// CopyFlatData returns a copy of the typed flat data of the tensor.
// It panics if T doesn't match the tensor's dtype.
func CopyFlatData[T dtypes.Supported](t *Tensor) (data []T) {
	ConstFlatData(t, func(flat []T) {
		data = make([]T, len(flat))
		copy(data, flat)
	})
	return
}

// ToScalar returns the value of a scalar tensor.
// It panics if the tensor is not a scalar or T doesn't match its dtype.
func ToScalar[T dtypes.Supported](t *Tensor) (value T) {
	t.AssertValid()
	if !t.IsScalar() {
		exceptions.Panicf("tensors.ToScalar: tensor has shape %s, not a scalar", t.shape)
	}
	ConstFlatData(t, func(flat []T) {
		value = flat[0]
	})
	return
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	t.AssertValid()
	t2 := FromShape(t.shape)
	reflect.Copy(reflect.ValueOf(t2.flat), reflect.ValueOf(t.flat))
	return t2
}

// Equal checks whether t == otherTensor: same shape, same values.
// It panics if either is invalid.
func (t *Tensor) Equal(otherTensor *Tensor) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if t == otherTensor {
		return true
	}
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	t0V := reflect.ValueOf(t.flat)
	t1V := reflect.ValueOf(otherTensor.flat)
	for ii := range t0V.Len() {
		if !t0V.Index(ii).Equal(t1V.Index(ii)) {
			return false
		}
	}
	return true
}

// InDelta checks whether |t - otherTensor| < delta for every element.
// Shapes must match. It panics if the dtype is not a float.
func (t *Tensor) InDelta(otherTensor *Tensor, delta float64) bool {
	t.AssertValid()
	otherTensor.AssertValid()
	if !t.shape.Equal(otherTensor.shape) {
		return false
	}
	if !t.shape.DType.IsFloat() {
		exceptions.Panicf("Tensor.InDelta only supports float dtypes, tensor is %s", t.shape)
	}
	t0V := reflect.ValueOf(t.flat)
	t1V := reflect.ValueOf(otherTensor.flat)
	for ii := range t0V.Len() {
		v0 := toFloat64(t0V.Index(ii))
		v1 := toFloat64(t1V.Index(ii))
		diff := v0 - v1
		if diff < -delta || diff > delta {
			return false
		}
	}
	return true
}

// MaxSizeForString is the largest tensor whose values are printed by String().
var MaxSizeForString = 500

// String converts the tensor to string. Large tensors print only the shape
// and memory usage.
func (t *Tensor) String() string {
	if t == nil || t.flat == nil {
		return "Tensor(invalid)"
	}
	if t.Size() > MaxSizeForString {
		return fmt.Sprintf("Tensor(%s: %s)", t.shape, humanize.Bytes(uint64(t.Memory())))
	}
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Tensor(%s): ", t.shape)
	flatV := reflect.ValueOf(t.flat)
	if t.IsScalar() {
		_, _ = fmt.Fprintf(&sb, "%v", flatV.Index(0).Interface())
		return sb.String()
	}
	_, _ = fmt.Fprintf(&sb, "%v", t.Value())
	return sb.String()
}

// GoStr is an alias to String.
func (t *Tensor) GoStr() string { return t.String() }

func toFloat64(v reflect.Value) float64 {
	// Float16 is backed by uint16 bits, a direct numeric conversion would be wrong.
	if f16, ok := v.Interface().(float16.Float16); ok {
		return float64(f16.Float32())
	}
	return v.Convert(reflect.TypeOf(float64(0))).Float()
}

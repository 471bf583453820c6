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

package tensors

import (
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"

	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/xslices"
)

// MultiDimensionSlice lists the Go types a Tensor can be converted to/from
// with FromValue. There are no recursions in generics constraints
// definitions, so we enumerate up to 5 levels of slices -- FromAnyValue
// works with any arbitrary nesting.
type MultiDimensionSlice interface {
	bool | int32 | int64 | float32 | float64 |
		[]bool | []int32 | []int64 | []float32 | []float64 |
		[][]bool | [][]int32 | [][]int64 | [][]float32 | [][]float64 |
		[][][]bool | [][][]int32 | [][][]int64 | [][][]float32 | [][][]float64 |
		[][][][]bool | [][][][]int32 | [][][][]int64 | [][][][]float32 | [][][][]float64 |
		[][][][][]bool | [][][][][]int32 | [][][][][]int64 | [][][][][]float32 | [][][][][]float64
}

// FromScalar creates a scalar tensor with the given value.
// The DType is inferred from the value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a tensor with the given dimensions, filled
// with the scalar value replicated everywhere. The DType is inferred from
// the value.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) (t *Tensor) {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	t = FromShape(shape)
	MutableFlatData(t, func(flat []T) {
		xslices.FillSlice(flat, value)
	})
	return
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions,
// filled with the flattened values given in data, which are copied.
// The DType is inferred from the data type.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) (t *Tensor) {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	t = FromShape(shape)
	MutableFlatData(t, func(flat []T) {
		copy(flat, data)
	})
	return
}

// FromValue returns a tensor constructed from the given multi-dimension
// slice (or scalar). If the rank of value is larger than 1, the shape of
// all sub-slices must be the same.
//
// It panics if the shape is not regular.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is a non-generic version of FromValue. The input is expected
// to be either a scalar or a slice of slices with homogeneous dimensions.
// If the input is a *Tensor already, it is returned unchanged.
//
// It panics if the value type is unsupported or the shape is not regular.
func FromAnyValue(value any) (t *Tensor) {
	if valueT, ok := value.(*Tensor); ok {
		return valueT
	}
	shape, err := shapeForValue(value)
	if err != nil {
		panic(errors.Wrapf(err, "cannot create a tensor from %T", value))
	}
	t = FromShape(shape)
	flatV := reflect.ValueOf(t.flat)
	if shape.IsScalar() {
		flatV.Index(0).Set(reflect.ValueOf(value))
		return
	}
	copySlicesRecursively(flatV, reflect.ValueOf(value), t.LayoutStrides())
	return
}

// Value returns a multidimensional slice (or scalar) with a copy of the
// tensor values. The inverse of FromAnyValue.
func (t *Tensor) Value() any {
	t.AssertValid()
	flatCopyV := reflect.MakeSlice(reflect.TypeOf(t.flat), t.Size(), t.Size())
	reflect.Copy(flatCopyV, reflect.ValueOf(t.flat))
	if t.IsScalar() {
		return flatCopyV.Index(0).Interface()
	}
	if t.Rank() == 1 {
		return flatCopyV.Interface()
	}
	return convertDataToSlices(flatCopyV, t.shape.Dimensions...).Interface()
}

// copySlicesRecursively copies values of a multi-dimensional slice to a flat
// data slice, given the strides of each dimension.
func copySlicesRecursively(data reflect.Value, mdSlice reflect.Value, strides []int) {
	if len(strides) == 1 {
		reflect.Copy(data, mdSlice)
		return
	}
	numElements := mdSlice.Len()
	subStrides := strides[1:]
	for ii := 0; ii < numElements; ii++ {
		start := ii * strides[0]
		end := (ii + 1) * strides[0]
		copySlicesRecursively(data.Slice(start, end), mdSlice.Index(ii), subStrides)
	}
}

// convertDataToSlices takes data as a flat slice and creates multidimensional
// slices of the given dimensions pointing to the data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	strides := make([]int, len(dimensions))
	currentStride := 1
	for axis := len(dimensions) - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= dimensions[axis]
	}
	return createSlicesRecursively(resultT, dataV, dimensions, strides)
}

func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(strides) == 1 {
		return data
	}
	numElements := dimensions[0]
	slice := reflect.MakeSlice(resultT, numElements, numElements)
	subStrides := strides[1:]
	subDimensions := dimensions[1:]
	subResultT := resultT.Elem()
	for ii := 0; ii < numElements; ii++ {
		start := ii * strides[0]
		end := (ii + 1) * strides[0]
		subSlice := createSlicesRecursively(subResultT, data.Slice(start, end), subDimensions, subStrides)
		slice.Index(ii).Set(subSlice)
	}
	return slice
}

func shapeForValue(v any) (shape shapes.Shape, err error) {
	err = shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return
}

func shapeForValueRecursive(shape *shapes.Shape, v reflect.Value, t reflect.Type) error {
	if t.Kind() == reflect.Slice {
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()

		if v.Len() == 0 {
			return errors.Errorf("value with empty slice not valid for tensor conversion: %v", v)
		}
		// The first element is the reference.
		if err := shapeForValueRecursive(shape, v.Index(0), t); err != nil {
			return err
		}
		// All other elements must have the same shape as the first one.
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			if err := shapeForValueRecursive(&shapeTest, v.Index(ii), t); err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %q and %q", shape, shapeTest)
			}
		}
	} else if t.Kind() == reflect.Pointer {
		return errors.Errorf("cannot convert pointer (%s) to a concrete tensor value", t)
	} else if t.Kind() == reflect.Int || t.Kind() == reflect.Uint {
		// Platform-dependent width, no unique dtype: require a sized type.
		return errors.Errorf("cannot convert %s to a tensor value, use a sized type like int32 or int64", t)
	} else {
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("cannot convert type %s to a concrete tensor type", t)
		}
	}
	return nil
}

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

package layers_test

import (
	"strings"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftml/weft/backends"
	_ "github.com/weftml/weft/backends/simplego"
	"github.com/weftml/weft/ml/layers"
	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/tensors"
)

func testBackend(t *testing.T) backends.Backend {
	backend, err := backends.NewWithConfig("go")
	require.NoError(t, err)
	return backend
}

func TestNaming(t *testing.T) {
	a, b := layers.NewAdd(), layers.NewAdd()
	assert.NotEqual(t, a.Name(), b.Name())
	assert.True(t, strings.HasPrefix(a.Name(), "add_"))
	assert.Equal(t, "merge", a.Rename("merge").Name())
}

func TestAdd(t *testing.T) {
	backend := testBackend(t)
	layer := layers.NewAdd()

	s := shapes.Make(dtypes.Float32, shapes.UnknownDim, 4)
	out, err := layer.InferSignature([]shapes.Shape{s, s})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, s.Equal(out[0]))

	// Broadcasting merges [batch, 4] with [4].
	out, err = layer.InferSignature([]shapes.Shape{s, shapes.Make(dtypes.Float32, 4)})
	require.NoError(t, err)
	assert.True(t, s.Equal(out[0]))

	_, err = layer.InferSignature([]shapes.Shape{s})
	require.Error(t, err)
	_, err = layer.InferSignature([]shapes.Shape{s, shapes.Make(dtypes.Float64, 4)})
	require.Error(t, err, "mixed dtypes")
	_, err = layer.InferSignature([]shapes.Shape{s, shapes.Make(dtypes.Float32, 3)})
	require.Error(t, err, "incompatible dimensions")

	ones := tensors.FromScalarAndDimensions[float32](1, 2, 4)
	got := must.M1(layer.Compute(backend, []*tensors.Tensor{ones, ones}))
	require.Len(t, got, 1)
	assert.True(t, got[0].Equal(tensors.FromScalarAndDimensions[float32](2, 2, 4)))
}

func TestMultiply(t *testing.T) {
	backend := testBackend(t)
	layer := layers.NewMultiply()
	a := tensors.FromValue([][]float32{{1, 2}, {3, 4}})
	b := tensors.FromValue([]float32{10, 100})
	got := must.M1(layer.Compute(backend, []*tensors.Tensor{a, b}))
	assert.True(t, got[0].Equal(tensors.FromValue([][]float32{{10, 200}, {30, 400}})))
}

func TestDense(t *testing.T) {
	backend := testBackend(t)
	layer := layers.NewDense(3)

	assert.Nil(t, layer.Parameters(), "unbuilt layer has no parameters")
	input := shapes.Make(dtypes.Float32, shapes.UnknownDim, 2)
	out, err := layer.InferSignature([]shapes.Shape{input})
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Float32, shapes.UnknownDim, 3).Equal(out[0]))

	params := layer.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, layer.Name()+"/weights", params[0].Name())
	assert.Equal(t, layer.Name()+"/bias", params[1].Name())
	assert.True(t, shapes.Make(dtypes.Float32, 2, 3).Equal(params[0].Value().Shape()))
	assert.True(t, shapes.Make(dtypes.Float32, 3).Equal(params[1].Value().Shape()))

	// Re-inference with another batch size is fine, another feature dim is not.
	_, err = layer.InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 7, 2)})
	require.NoError(t, err)
	_, err = layer.InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 7, 5)})
	require.Error(t, err)

	// Parameters keep their shape for life.
	err = params[0].SetValue(tensors.FromValue([]float32{1, 2}))
	require.ErrorContains(t, err, "holds shape")

	// With identity-like fixed parameters the affine map is exact.
	require.NoError(t, params[0].SetValue(tensors.FromValue([][]float32{{1, 0, 0}, {0, 1, 0}})))
	require.NoError(t, params[1].SetValue(tensors.FromValue([]float32{0, 0, 10})))
	x := tensors.FromValue([][]float32{{3, 5}})
	got := must.M1(layer.Compute(backend, []*tensors.Tensor{x}))
	assert.True(t, got[0].Equal(tensors.FromValue([][]float32{{3, 5, 10}})))
}

func TestDenseDeterministicInit(t *testing.T) {
	build := func(name string) *tensors.Tensor {
		layer := layers.NewDense(4).Rename(name)
		_ = must.M1(layer.InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 1, 8)}))
		return layer.Parameters()[0].Value()
	}
	assert.True(t, build("twin").Equal(build("twin")))
	assert.False(t, build("twin").Equal(build("other")))
}

func TestDenseWithActivation(t *testing.T) {
	backend := testBackend(t)
	layer := layers.NewDense(2).WithoutBias().WithActivation(layers.ActivationRelu)
	out := must.M1(layer.InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 1, 2)}))
	assert.True(t, shapes.Make(dtypes.Float32, 1, 2).Equal(out[0]))
	params := layer.Parameters()
	require.Len(t, params, 1, "no bias parameter")
	require.NoError(t, params[0].SetValue(tensors.FromValue([][]float32{{1, 0}, {0, -1}})))

	x := tensors.FromValue([][]float32{{5, 3}})
	got := must.M1(layer.Compute(backend, []*tensors.Tensor{x}))
	assert.True(t, got[0].Equal(tensors.FromValue([][]float32{{5, 0}})), "relu clips the negative unit")
}

func TestActivationAndSoftmax(t *testing.T) {
	backend := testBackend(t)
	relu := layers.NewActivation(layers.ActivationRelu)
	assert.True(t, strings.HasPrefix(relu.Name(), "relu_"))
	x := tensors.FromValue([]float32{-1, 2})
	got := must.M1(relu.Compute(backend, []*tensors.Tensor{x}))
	assert.True(t, got[0].Equal(tensors.FromValue([]float32{0, 2})))

	softmax := layers.NewSoftmax()
	out := must.M1(softmax.InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 2, 3)}))
	assert.True(t, shapes.Make(dtypes.Float32, 2, 3).Equal(out[0]))
	got = must.M1(softmax.Compute(backend, []*tensors.Tensor{tensors.FromValue([]float32{0, 0})}))
	assert.True(t, got[0].InDelta(tensors.FromValue([]float32{0.5, 0.5}), 1e-6))

	_, err := softmax.WithAxis(3).InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 2, 3)})
	require.Error(t, err, "axis out of range")
}

func TestActivationFromName(t *testing.T) {
	got, err := layers.ActivationFromName("tanh")
	require.NoError(t, err)
	assert.Equal(t, layers.ActivationTanh, got)
	_, err = layers.ActivationFromName("swish")
	require.Error(t, err)
}

func TestConcatenate(t *testing.T) {
	backend := testBackend(t)
	layer := layers.NewConcatenate(-1)

	a := shapes.Make(dtypes.Float32, shapes.UnknownDim, 2)
	b := shapes.Make(dtypes.Float32, shapes.UnknownDim, 3)
	out, err := layer.InferSignature([]shapes.Shape{a, b})
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Float32, shapes.UnknownDim, 5).Equal(out[0]))

	_, err = layer.InferSignature([]shapes.Shape{a})
	require.Error(t, err)
	_, err = layer.InferSignature([]shapes.Shape{a, shapes.Make(dtypes.Float32, 3)})
	require.Error(t, err, "mixed ranks")

	got := must.M1(layer.Compute(backend, []*tensors.Tensor{
		tensors.FromValue([][]float32{{1, 2}}),
		tensors.FromValue([][]float32{{3, 4, 5}}),
	}))
	assert.True(t, got[0].Equal(tensors.FromValue([][]float32{{1, 2, 3, 4, 5}})))
}

func TestReshape(t *testing.T) {
	backend := testBackend(t)

	layer := layers.NewReshape(-1, 6)
	out, err := layer.InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 2, 3, 2)})
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Float32, 2, 6).Equal(out[0]))

	// A symbolic input keeps the wildcard symbolic.
	out, err = layer.InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, shapes.UnknownDim, 3, 2)})
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Float32, shapes.UnknownDim, 6).Equal(out[0]))

	_, err = layers.NewReshape(4, 4).InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 2, 3)})
	require.Error(t, err, "size mismatch")
	_, err = layers.NewReshape(-1, -1).InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, 4)})
	require.Error(t, err, "two wildcards")

	x := tensors.FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})
	got := must.M1(layer.Compute(backend, []*tensors.Tensor{x}))
	assert.True(t, got[0].Equal(tensors.FromValue([][]float32{{1, 2, 3, 4, 5, 6}})))
}

func TestFlatten(t *testing.T) {
	backend := testBackend(t)
	layer := layers.NewFlatten()
	out, err := layer.InferSignature([]shapes.Shape{shapes.Make(dtypes.Float32, shapes.UnknownDim, 2, 3)})
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Float32, shapes.UnknownDim, 6).Equal(out[0]))

	x := tensors.FromScalarAndDimensions[float32](1, 2, 2, 3)
	got := must.M1(layer.Compute(backend, []*tensors.Tensor{x}))
	assert.True(t, got[0].Equal(tensors.FromScalarAndDimensions[float32](1, 2, 6)))
}

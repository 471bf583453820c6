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
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/weftml/weft/backends"
	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/tensors"
)

// Dense is a fully connected layer: output = activation(input · weights +
// bias), with weights of shape [inputDim, units].
//
// Parameters are built lazily on the first InferSignature call, when the
// input dimension becomes known; from then on the layer only accepts
// inputs with the same trailing dimension and dtype. Configuration calls
// (WithoutBias, WithActivation, WithInitSeed) must happen before the
// first use.
type Dense struct {
	baseLayer
	units      int
	useBias    bool
	activation ActivationType
	seed       uint64
	seedSet    bool

	// Built on first InferSignature.
	built    bool
	inputDim int
	dtype    dtypes.DType
	weights  *Parameter
	bias     *Parameter
}

// NewDense creates a dense layer with the given number of output units,
// named "dense_<n>". Bias is enabled and no activation is applied by
// default.
func NewDense(units int) *Dense {
	if units <= 0 {
		exceptions.Panicf("layers.NewDense(units=%d): units must be positive", units)
	}
	return &Dense{
		baseLayer: baseLayer{name: NextName("dense")},
		units:     units,
		useBias:   true,
	}
}

// Rename sets the layer name and returns the layer. Must be called before
// the first use: parameter names embed the layer name.
func (l *Dense) Rename(name string) *Dense {
	l.rename(name)
	return l
}

// WithoutBias disables the bias term.
func (l *Dense) WithoutBias() *Dense {
	l.useBias = false
	return l
}

// WithActivation applies the given activation after the affine transform.
func (l *Dense) WithActivation(activation ActivationType) *Dense {
	l.activation = activation
	return l
}

// WithInitSeed fixes the weight-initialization seed. The default seed is
// derived from the layer name, so equally named layers initialize equally.
func (l *Dense) WithInitSeed(seed uint64) *Dense {
	l.seed = seed
	l.seedSet = true
	return l
}

// InferSignature implements Layer. The first call fixes the input
// dimension and dtype and builds the parameters.
func (l *Dense) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("Dense takes exactly 1 input, got %d", len(inputs))
	}
	input := inputs[0]
	if input.Rank() < 2 {
		return nil, errors.Errorf("Dense requires rank >= 2 (batch and features), got %s", input)
	}
	if !input.DType.IsFloat() {
		return nil, errors.Errorf("Dense requires a float dtype, got %s", input)
	}
	featureDim := input.Dim(-1)
	if featureDim == shapes.UnknownDim {
		return nil, errors.Errorf("Dense requires a known trailing (feature) dimension, got %s", input)
	}
	if !l.built {
		l.build(featureDim, input.DType)
	} else if featureDim != l.inputDim || input.DType != l.dtype {
		return nil, errors.Errorf("Dense %q was built for (%s)[.., %d], got input %s",
			l.name, l.dtype, l.inputDim, input)
	}
	output := input.Clone()
	output.Dimensions[output.Rank()-1] = l.units
	return []shapes.Shape{output}, nil
}

func (l *Dense) build(inputDim int, dtype dtypes.DType) {
	l.built = true
	l.inputDim = inputDim
	l.dtype = dtype
	seed := l.seed
	if !l.seedSet {
		h := fnv.New64a()
		_, _ = h.Write([]byte(l.name))
		seed = h.Sum64()
	}
	rng := rand.New(rand.NewPCG(seed, 0x77656674)) // "weft"

	// Glorot uniform.
	limit := math.Sqrt(6.0 / float64(inputDim+l.units))
	weights := tensors.FromShape(shapes.Make(dtype, inputDim, l.units))
	fillUniform(weights, rng, limit)
	l.weights = &Parameter{name: l.name + "/weights", value: weights}
	if l.useBias {
		bias := tensors.FromShape(shapes.Make(dtype, l.units))
		l.bias = &Parameter{name: l.name + "/bias", value: bias}
	}
}

// fillUniform fills t with uniform values in [-limit, limit). Only float
// dtypes are supported, matching the Dense contract.
func fillUniform(t *tensors.Tensor, rng *rand.Rand, limit float64) {
	sample := func() float64 { return (2*rng.Float64() - 1) * limit }
	switch t.DType() {
	case dtypes.Float64:
		tensors.MutableFlatData(t, func(flat []float64) {
			for ii := range flat {
				flat[ii] = sample()
			}
		})
	case dtypes.Float32:
		tensors.MutableFlatData(t, func(flat []float32) {
			for ii := range flat {
				flat[ii] = float32(sample())
			}
		})
	case dtypes.Float16:
		tensors.MutableFlatData(t, func(flat []float16.Float16) {
			for ii := range flat {
				flat[ii] = float16.Fromfloat32(float32(sample()))
			}
		})
	default:
		exceptions.Panicf("layers: cannot initialize weights of dtype %s", t.DType())
	}
}

// Compute implements Layer.
func (l *Dense) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	if !l.built {
		return nil, errors.Errorf("Dense %q used before its signature was inferred", l.name)
	}
	output, err := backend.MatMul(inputs[0], l.weights.Value())
	if err != nil {
		return nil, err
	}
	if l.bias != nil {
		output, err = backend.Binary(backends.BinaryAdd, output, l.bias.Value())
		if err != nil {
			return nil, err
		}
	}
	if l.activation != ActivationNone {
		output, err = applyActivation(backend, l.activation, output)
		if err != nil {
			return nil, err
		}
	}
	return []*tensors.Tensor{output}, nil
}

// Parameters implements ParameterizedLayer. It returns nil before the
// layer is built.
func (l *Dense) Parameters() []*Parameter {
	if !l.built {
		return nil
	}
	params := []*Parameter{l.weights}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return params
}

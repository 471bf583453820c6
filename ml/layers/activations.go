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

// ActivationType is an enum for the supported activation functions.
type ActivationType int

const (
	// ActivationNone applies no activation, it is the Dense default.
	ActivationNone ActivationType = iota
	ActivationRelu
	ActivationSigmoid
	ActivationTanh
)

// String implements fmt.Stringer.
func (t ActivationType) String() string {
	switch t {
	case ActivationNone:
		return "none"
	case ActivationRelu:
		return "relu"
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationTanh:
		return "tanh"
	}
	return "invalid"
}

// ActivationFromName converts an activation name ("relu", "sigmoid",
// "tanh", "none") to its type.
func ActivationFromName(name string) (ActivationType, error) {
	for _, t := range []ActivationType{ActivationNone, ActivationRelu, ActivationSigmoid, ActivationTanh} {
		if t.String() == name {
			return t, nil
		}
	}
	return ActivationNone, errors.Errorf("unknown activation %q: options are none, relu, sigmoid, tanh", name)
}

func (t ActivationType) unaryOp() (backends.UnaryOp, error) {
	switch t {
	case ActivationRelu:
		return backends.UnaryRelu, nil
	case ActivationSigmoid:
		return backends.UnarySigmoid, nil
	case ActivationTanh:
		return backends.UnaryTanh, nil
	}
	return backends.UnaryInvalid, errors.Errorf("activation %q has no backend op", t)
}

func applyActivation(backend backends.Backend, activation ActivationType, x *tensors.Tensor) (*tensors.Tensor, error) {
	op, err := activation.unaryOp()
	if err != nil {
		return nil, err
	}
	return backend.Unary(op, x)
}

// Activation applies an elementwise activation function. Shape preserving,
// no parameters.
type Activation struct {
	baseLayer
	activation ActivationType
}

// NewActivation creates an activation layer, named after the activation
// ("relu_<n>").
func NewActivation(activation ActivationType) *Activation {
	return &Activation{
		baseLayer:  baseLayer{name: NextName(activation.String())},
		activation: activation,
	}
}

// Rename sets the layer name and returns the layer.
func (l *Activation) Rename(name string) *Activation {
	l.rename(name)
	return l
}

// InferSignature implements Layer.
func (l *Activation) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("Activation takes exactly 1 input, got %d", len(inputs))
	}
	if !inputs[0].DType.IsFloat() {
		return nil, errors.Errorf("Activation requires a float dtype, got %s", inputs[0])
	}
	if _, err := l.activation.unaryOp(); err != nil {
		return nil, err
	}
	return []shapes.Shape{inputs[0]}, nil
}

// Compute implements Layer.
func (l *Activation) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	output, err := applyActivation(backend, l.activation, inputs[0])
	if err != nil {
		return nil, err
	}
	return []*tensors.Tensor{output}, nil
}

// Softmax normalizes the input to a probability distribution along one
// axis. Shape preserving, no parameters.
type Softmax struct {
	baseLayer
	axis int
}

// NewSoftmax creates a softmax layer over the last axis, named
// "softmax_<n>".
func NewSoftmax() *Softmax {
	return &Softmax{baseLayer: baseLayer{name: NextName("softmax")}, axis: -1}
}

// WithAxis sets the normalization axis. Negative axes count from the end.
func (l *Softmax) WithAxis(axis int) *Softmax {
	l.axis = axis
	return l
}

// Rename sets the layer name and returns the layer.
func (l *Softmax) Rename(name string) *Softmax {
	l.rename(name)
	return l
}

// InferSignature implements Layer.
func (l *Softmax) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("Softmax takes exactly 1 input, got %d", len(inputs))
	}
	input := inputs[0]
	if !input.DType.IsFloat() {
		return nil, errors.Errorf("Softmax requires a float dtype, got %s", input)
	}
	if _, err := adjustAxis(l.axis, input.Rank()); err != nil {
		return nil, err
	}
	return []shapes.Shape{input}, nil
}

// Compute implements Layer.
func (l *Softmax) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	axis, err := adjustAxis(l.axis, inputs[0].Rank())
	if err != nil {
		return nil, err
	}
	output, err := backend.Softmax(inputs[0], axis)
	if err != nil {
		return nil, err
	}
	return []*tensors.Tensor{output}, nil
}

// adjustAxis resolves a possibly negative axis against rank.
func adjustAxis(axis, rank int) (int, error) {
	adjusted := axis
	if adjusted < 0 {
		adjusted += rank
	}
	if adjusted < 0 || adjusted >= rank {
		return 0, errors.Errorf("axis %d out of range for rank %d", axis, rank)
	}
	return adjusted, nil
}

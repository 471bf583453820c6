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

// Package layers defines the Layer contract used by graph tracing and
// model replay, and a catalog of concrete layers: Dense, Add, Multiply,
// Concatenate, Activation, Softmax, Reshape and Flatten.
//
// A layer splits its behavior in two phases. At trace time only
// InferSignature runs: it maps input shape signatures to output shape
// signatures, with no numeric work. At execution time Compute runs on
// concrete tensors, deferring all math to a backends.Backend.
//
// Layers are shared, not copied: applying the same layer instance at two
// points of a trace shares its parameters (weight sharing). Layer names
// are unique within a model namespace, enforced at model finalization;
// layers created without an explicit name get "<type>_<n>".
package layers

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/weftml/weft/backends"
	"github.com/weftml/weft/graph"
	"github.com/weftml/weft/types/tensors"
)

// Layer is the full layer contract: the shape-inference capability the
// tracer requires (see graph.Layer) plus concrete computation.
type Layer interface {
	graph.Layer

	// Compute executes the layer on concrete tensors, in the same arity as
	// InferSignature: the output tensors must match the inferred
	// signatures. All numeric work is deferred to backend.
	Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error)
}

// ParameterizedLayer is implemented by layers carrying trainable state.
type ParameterizedLayer interface {
	Layer

	// Parameters returns the layer's parameters. The slice is stable once
	// the layer is built; the parameter values are mutable (training
	// updates them in place).
	Parameters() []*Parameter
}

// Parameter is one named trainable tensor of a layer. Its identity is
// stable across training steps; only the value changes.
type Parameter struct {
	name  string
	value *tensors.Tensor
}

// Name of the parameter, qualified by the owning layer ("dense_0/weights").
func (p *Parameter) Name() string { return p.name }

// Value returns the current tensor held by the parameter.
func (p *Parameter) Value() *tensors.Tensor { return p.value }

// SetValue replaces the parameter's tensor. The new value must keep the
// original shape.
func (p *Parameter) SetValue(value *tensors.Tensor) error {
	if !p.value.Shape().Equal(value.Shape()) {
		return errors.Errorf("parameter %q holds shape %s, cannot assign %s",
			p.name, p.value.Shape(), value.Shape())
	}
	p.value = value
	return nil
}

// String implements fmt.Stringer.
func (p *Parameter) String() string {
	return fmt.Sprintf("%s%s", p.name, p.value.Shape())
}

var (
	muNames      sync.Mutex
	nameCounters = make(map[string]int)
)

// NextName generates a process-unique default layer name "<prefix>_<n>".
// Counters are per prefix and never reset.
func NextName(prefix string) string {
	muNames.Lock()
	defer muNames.Unlock()
	n := nameCounters[prefix]
	nameCounters[prefix]++
	return fmt.Sprintf("%s_%d", prefix, n)
}

// baseLayer carries the name handling shared by the catalog layers.
type baseLayer struct {
	name string
}

// Name implements Layer.
func (l *baseLayer) Name() string { return l.name }

func (l *baseLayer) rename(name string) { l.name = name }

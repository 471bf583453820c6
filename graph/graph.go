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

// Package graph is the core tracing package for Weft: it builds symbolic
// computation graphs from layer calls, and compiles them into deterministic
// execution plans.
//
// The main elements in the package are:
//
//   - Tracer: a tracing session. Calling layers through Tracer.Apply on
//     symbolic values records the dependency graph, without executing any
//     numeric computation.
//
//   - Value: a symbolic placeholder for the result of a computation step.
//     Each Value has a fixed shape signature, decided at trace time from the
//     layer's shape-inference contract. Values are created either as
//     declared trace inputs (Tracer.Inputs) or as outputs of Tracer.Apply;
//     they carry no numeric data.
//
//   - Record: one recorded layer invocation, linking its symbolic inputs,
//     the layer and its freshly created symbolic outputs. Records are
//     append-only: once recorded they are never removed or mutated, so
//     compiling a plan is deterministic regardless of when it happens.
//
//   - Plan: a compiled (inputs, outputs, ordered records) triple, produced
//     by Compile. The ml/model package wraps a Plan into a Model that can
//     replay it on concrete tensors.
//
// ## Delayed execution
//
// It is helpful to keep the two different "times" in mind: trace time, when
// layers are called on Values and only shapes are checked -- tracing is very
// fast since no data is manipulated -- and execution time, when a finalized
// model replays the plan on concrete tensors (see ml/model). Most errors are
// caught at trace time, where they are easiest to debug.
//
// ## Concurrency
//
// A Tracer is not safe for concurrent symbolic calls: tracing is a
// single-threaded, cooperative process. Concurrent tracing sessions must
// use independent Tracer instances -- they share nothing, so that is always
// safe. A compiled Plan is immutable and safe to share.
package graph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/weftml/weft/types/shapes"
)

// Layer is the capability the tracer requires from a layer to record its
// calls: a name, and a pure shape-inference contract. The full layer
// contract, including concrete computation, is defined in ml/layers; the
// tracer deliberately only sees this narrow slice of it.
type Layer interface {
	// Name identifies the layer. It must be unique within a model's
	// namespace (enforced at model finalization).
	Name() string

	// InferSignature returns the output shapes for the given input shapes.
	// It must be deterministic, side-effect free on the numeric state, and
	// must not depend on concrete values.
	InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error)
}

// Tracer accumulates the Records of one tracing session and owns every
// Value created in it.
//
// The zero value is not usable; create one with New. A Tracer is not safe
// for concurrent use.
type Tracer struct {
	sessionID uuid.UUID

	// values is the arena of all Values of this session, indexed by ValueID.
	values []*Value

	// records is the arena of all Records, indexed by creation index.
	// Strictly append-only.
	records []*Record

	// inputs are the declared trace inputs, in declaration order.
	inputs     []*Value
	inputNames map[string]bool
}

// New creates an empty tracing session.
func New() *Tracer {
	return &Tracer{
		sessionID:  uuid.New(),
		inputNames: make(map[string]bool),
	}
}

// SessionID uniquely identifies this tracing session. It is used to
// diagnose symbolic values mixed across unrelated traces.
func (t *Tracer) SessionID() uuid.UUID { return t.sessionID }

// InputSpec declares one trace input for Tracer.Inputs.
type InputSpec struct {
	Name  string
	Shape shapes.Shape
}

// Input is a shortcut to build an InputSpec.
func Input(name string, shape shapes.Shape) InputSpec {
	return InputSpec{Name: name, Shape: shape}
}

// Inputs registers declared graph inputs: Values with no producing Record.
// Inputs with an empty name are named "input#<n>" after their position.
//
// It returns ErrConfiguration if called with zero inputs, a duplicate name
// or an invalid shape. It may be called more than once on the same session
// to register additional inputs.
func (t *Tracer) Inputs(specs ...InputSpec) ([]*Value, error) {
	if len(specs) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "Tracer.Inputs requires at least one input")
	}
	// Validate everything before touching the tracer state, so a failed
	// call can be corrected and retried on the same session.
	names := make([]string, len(specs))
	batch := make(map[string]bool, len(specs))
	for ii, spec := range specs {
		if !spec.Shape.Ok() {
			return nil, errors.Wrapf(ErrConfiguration, "input %q has an invalid shape", spec.Name)
		}
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("input#%d", len(t.inputs)+ii)
		}
		if t.inputNames[name] || batch[name] {
			return nil, errors.Wrapf(ErrConfiguration, "duplicate input name %q", name)
		}
		batch[name] = true
		names[ii] = name
	}
	values := make([]*Value, 0, len(specs))
	for ii, spec := range specs {
		t.inputNames[names[ii]] = true
		values = append(values, t.newValue(spec.Shape, names[ii], inputProducer))
	}
	t.inputs = append(t.inputs, values...)
	return values, nil
}

// Apply records a symbolic invocation of layer on the given inputs and
// returns the freshly created output Values. No numeric computation
// happens; the output shapes come from the layer's InferSignature.
//
// It returns ErrUnresolvedInput if any input Value belongs to a different
// tracing session, and ErrConfiguration if the layer rejects the input
// signatures.
func (t *Tracer) Apply(layer Layer, inputs ...*Value) ([]*Value, error) {
	if layer == nil {
		return nil, errors.Wrap(ErrConfiguration, "Tracer.Apply with a nil layer")
	}
	if len(inputs) == 0 {
		return nil, errors.Wrapf(ErrConfiguration, "Tracer.Apply(%q) requires at least one input", layer.Name())
	}
	inputShapes := make([]shapes.Shape, len(inputs))
	for ii, input := range inputs {
		if input == nil {
			return nil, errors.Wrapf(ErrConfiguration, "Tracer.Apply(%q): input #%d is nil", layer.Name(), ii)
		}
		if input.tracer != t {
			return nil, errors.Wrapf(ErrUnresolvedInput,
				"Tracer.Apply(%q): input #%d (%s) belongs to trace session %s, not to this session %s",
				layer.Name(), ii, input, input.tracer.sessionID, t.sessionID)
		}
		inputShapes[ii] = input.shape
	}

	outputShapes, err := layer.InferSignature(inputShapes)
	if err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "layer %q rejected input signatures %v: %v",
			layer.Name(), inputShapes, err)
	}
	if len(outputShapes) == 0 {
		return nil, errors.Wrapf(ErrConfiguration, "layer %q inferred no outputs", layer.Name())
	}

	record := &Record{
		tracer: t,
		index:  len(t.records),
		layer:  layer,
		inputs: inputs,
	}
	record.outputs = make([]*Value, len(outputShapes))
	for ii, shape := range outputShapes {
		if !shape.Ok() {
			return nil, errors.Wrapf(ErrConfiguration, "layer %q inferred an invalid shape for output #%d",
				layer.Name(), ii)
		}
		name := layer.Name()
		if len(outputShapes) > 1 {
			name = fmt.Sprintf("%s:%d", layer.Name(), ii)
		}
		record.outputs[ii] = t.newValue(shape, name, record.index)
	}
	t.records = append(t.records, record)
	return record.outputs, nil
}

// Apply1 is like Apply for layers with exactly one output.
func (t *Tracer) Apply1(layer Layer, inputs ...*Value) (*Value, error) {
	outputs, err := t.Apply(layer, inputs...)
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errors.Wrapf(ErrConfiguration, "Apply1(%q): layer produced %d outputs, want exactly 1",
			layer.Name(), len(outputs))
	}
	return outputs[0], nil
}

// newValue registers a new Value in the session arena.
func (t *Tracer) newValue(shape shapes.Shape, name string, producer int) *Value {
	v := &Value{
		tracer:   t,
		id:       ValueID(len(t.values)),
		shape:    shape.Clone(),
		name:     name,
		producer: producer,
	}
	t.values = append(t.values, v)
	return v
}

// NumValues returns the number of Values created in this session so far.
// ValueIDs are dense in [0, NumValues).
func (t *Tracer) NumValues() int { return len(t.values) }

// NumRecords returns the number of Records accumulated so far.
func (t *Tracer) NumRecords() int { return len(t.records) }

// Records returns the accumulated Records in creation order. The returned
// slice must not be modified.
func (t *Tracer) Records() []*Record { return t.records }

// DeclaredInputs returns the trace inputs registered so far, in declaration
// order.
func (t *Tracer) DeclaredInputs() []*Value { return t.inputs }

// String converts the Tracer to a multi-line listing of its records.
func (t *Tracer) String() string {
	parts := []string{fmt.Sprintf("Trace %s: %d inputs, %d records",
		t.sessionID, len(t.inputs), len(t.records))}
	for _, input := range t.inputs {
		parts = append(parts, fmt.Sprintf("\tinput\t%s", input))
	}
	for _, record := range t.records {
		parts = append(parts, fmt.Sprintf("\t#%d\t%s", record.index, record))
	}
	return strings.Join(parts, "\n")
}

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

// Package model finalizes a traced graph into a Model that replays its
// execution plan on concrete tensors.
//
// A Model is created with Finalize from a graph.Tracer plus declared
// input and output values. Finalizing compiles the topology once; from
// then on the model is an immutable function object: Invoke feeds
// concrete tensors through the plan on any backends.Backend.
//
// A Model itself implements layers.Layer, so a finalized model can be
// applied inside another trace as a sub-graph; replaying the outer model
// runs the inner plan once per application.
package model

import (
	"fmt"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/weftml/weft/backends"
	"github.com/weftml/weft/graph"
	"github.com/weftml/weft/ml/layers"
	"github.com/weftml/weft/types/shapes"
	"github.com/weftml/weft/types/tensors"
)

// Model is a finalized computation graph: a compiled execution plan plus
// the participating layers.
//
// The topology is immutable after Finalize; the layer parameters remain
// mutable (training updates them in place). Invocations that only read
// parameters may run concurrently; an invocation concurrent with
// parameter updates is the caller's responsibility to serialize.
type Model struct {
	name string
	plan *graph.Plan

	// steps pairs each plan record with its layer, asserted to the full
	// compute contract at finalization.
	steps []step

	// layers deduplicated in first-use order.
	layers []layers.Layer
}

type step struct {
	record *graph.Record
	layer  layers.Layer
}

// Option configures Finalize.
type Option func(*Model)

// WithName sets the model name, instead of the default "model_<n>".
func WithName(name string) Option {
	return func(m *Model) { m.name = name }
}

// Finalize compiles the traced graph into a Model computing the declared
// outputs from the declared inputs.
//
// The topology resolution errors of graph.Compile propagate unchanged
// (ErrConfiguration, ErrUnresolvedInput, ErrCyclicGraph,
// ErrDisconnectedGraph). Additionally every traced layer must implement
// the full layers.Layer contract and layer names must be unique within
// the model; violations return graph.ErrConfiguration.
func Finalize(tracer *graph.Tracer, inputs, outputs []*graph.Value, opts ...Option) (*Model, error) {
	plan, err := graph.Compile(tracer, inputs, outputs)
	if err != nil {
		return nil, err
	}
	m := &Model{plan: plan}
	seen := make(map[layers.Layer]bool)
	names := make(map[string]bool)
	for _, record := range plan.Records() {
		layer, ok := record.Layer().(layers.Layer)
		if !ok {
			return nil, errors.Wrapf(graph.ErrConfiguration,
				"layer %q (%T) was traced but cannot compute: it does not implement layers.Layer",
				record.Layer().Name(), record.Layer())
		}
		m.steps = append(m.steps, step{record: record, layer: layer})
		if seen[layer] {
			continue
		}
		seen[layer] = true
		if names[layer.Name()] {
			return nil, errors.Wrapf(graph.ErrConfiguration,
				"two distinct layers named %q: layer names must be unique within a model", layer.Name())
		}
		names[layer.Name()] = true
		m.layers = append(m.layers, layer)
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.name == "" {
		m.name = layers.NextName("model")
	}
	if klog.V(2).Enabled() {
		klog.Infof("model.Finalize: %q with %d steps, %d layers, %d inputs, %d outputs",
			m.name, len(m.steps), len(m.layers), len(inputs), len(outputs))
	}
	return m, nil
}

// Name implements layers.Layer.
func (m *Model) Name() string { return m.name }

// Rename sets the model name and returns the model.
func (m *Model) Rename(name string) *Model {
	m.name = name
	return m
}

// Plan returns the compiled execution plan.
func (m *Model) Plan() *graph.Plan { return m.plan }

// Layers returns the participating layers, deduplicated in first-use
// order. A layer applied at several points of the graph appears once.
func (m *Model) Layers() []layers.Layer {
	return append([]layers.Layer(nil), m.layers...)
}

// Parameters returns the parameters of all participating layers, in layer
// order. Shared layers contribute their parameters once.
func (m *Model) Parameters() []*layers.Parameter {
	var params []*layers.Parameter
	for _, layer := range m.layers {
		if pl, ok := layer.(layers.ParameterizedLayer); ok {
			params = append(params, pl.Parameters()...)
		}
	}
	return params
}

// NumParameters returns the total element count over all parameters.
func (m *Model) NumParameters() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Value().Size()
	}
	return total
}

// Invoke replays the plan on concrete tensors: inputs correspond
// positionally to the declared inputs, the result to the declared
// outputs. It either returns all outputs or none.
//
// Input tensors must be compatible with the declared signatures (same
// dtype and rank, dimensions equal where declared); mismatches return
// graph.ErrShapeMismatch.
func (m *Model) Invoke(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	if backend == nil {
		return nil, errors.Wrapf(graph.ErrConfiguration, "Model %q invoked with a nil backend", m.name)
	}
	declared := m.plan.Inputs()
	if len(inputs) != len(declared) {
		return nil, errors.Wrapf(graph.ErrShapeMismatch,
			"Model %q takes %d inputs, got %d", m.name, len(declared), len(inputs))
	}
	table := make([]*tensors.Tensor, m.plan.Tracer().NumValues())
	for ii, input := range inputs {
		if input == nil {
			return nil, errors.Wrapf(graph.ErrShapeMismatch, "Model %q: input #%d is nil", m.name, ii)
		}
		value := declared[ii]
		if !value.Shape().Compatible(input.Shape()) {
			return nil, errors.Wrapf(graph.ErrShapeMismatch,
				"Model %q: input #%d (%q) declared as %s, got tensor %s",
				m.name, ii, value.Name(), value.Shape(), input.Shape())
		}
		table[value.ID()] = input
	}

	for _, s := range m.steps {
		stepInputs := make([]*tensors.Tensor, len(s.record.Inputs()))
		for ii, value := range s.record.Inputs() {
			stepInputs[ii] = table[value.ID()]
		}
		stepOutputs, err := s.layer.Compute(backend, stepInputs)
		if err != nil {
			return nil, errors.WithMessagef(err, "Model %q: layer %q (step #%d) failed",
				m.name, s.layer.Name(), s.record.Index())
		}
		recordOutputs := s.record.Outputs()
		if len(stepOutputs) != len(recordOutputs) {
			return nil, errors.Wrapf(graph.ErrShapeMismatch,
				"Model %q: layer %q computed %d outputs, signature promised %d",
				m.name, s.layer.Name(), len(stepOutputs), len(recordOutputs))
		}
		for ii, output := range stepOutputs {
			if output == nil {
				return nil, errors.Wrapf(graph.ErrShapeMismatch,
					"Model %q: layer %q output #%d is nil", m.name, s.layer.Name(), ii)
			}
			if !recordOutputs[ii].Shape().Compatible(output.Shape()) {
				return nil, errors.Wrapf(graph.ErrShapeMismatch,
					"Model %q: layer %q output #%d is %s, signature promised %s",
					m.name, s.layer.Name(), ii, output.Shape(), recordOutputs[ii].Shape())
			}
			table[recordOutputs[ii].ID()] = output
		}
	}

	outputs := make([]*tensors.Tensor, len(m.plan.Outputs()))
	for ii, value := range m.plan.Outputs() {
		outputs[ii] = table[value.ID()]
	}
	if klog.V(2).Enabled() {
		klog.Infof("model.Invoke: %q replayed %d steps on backend %q", m.name, len(m.steps), backend.Name())
	}
	return outputs, nil
}

// InferSignature implements layers.Layer, letting a finalized model be
// applied inside another trace as a sub-graph. The inputs must be
// compatible with the model's declared input signatures; the outputs are
// the declared output signatures.
func (m *Model) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	declared := m.plan.Inputs()
	if len(inputs) != len(declared) {
		return nil, errors.Errorf("model %q takes %d inputs, got %d", m.name, len(declared), len(inputs))
	}
	for ii, s := range inputs {
		if !declared[ii].Shape().Compatible(s) {
			return nil, errors.Errorf("model %q input #%d (%q) declared as %s, got %s",
				m.name, ii, declared[ii].Name(), declared[ii].Shape(), s)
		}
	}
	outputs := make([]shapes.Shape, len(m.plan.Outputs()))
	for ii, value := range m.plan.Outputs() {
		outputs[ii] = value.Shape().Clone()
	}
	return outputs, nil
}

// Compute implements layers.Layer: it replays the model's plan, running
// the inner plan once per outer application.
func (m *Model) Compute(backend backends.Backend, inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	return m.Invoke(backend, inputs)
}

// String implements fmt.Stringer.
func (m *Model) String() string {
	return fmt.Sprintf("Model %q: %d layers, %d steps, %d parameters",
		m.name, len(m.layers), len(m.steps), m.NumParameters())
}

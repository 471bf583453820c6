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

package graph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Plan is a compiled execution plan: the declared input and output Values
// and a topologically ordered sequence of Records sufficient to compute
// all outputs from all inputs.
//
// A Plan is immutable once compiled: re-tracing is required to change
// topology. It is safe to share across goroutines.
type Plan struct {
	tracer  *Tracer
	inputs  []*Value
	outputs []*Value

	// records in execution order: every record's inputs are either declared
	// plan inputs or outputs of an earlier record.
	records []*Record

	// unusedInputs are declared inputs no output depends on.
	unusedInputs []*Value
}

// visitState marks the progress of the depth-first traversal in Compile.
type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	visited
)

// Compile resolves the declared inputs and outputs against the trace
// accumulated in tracer, returning the execution Plan.
//
// The resolution traverses depth-first backward from each declared output,
// in declaration order, following each Value's producing-Record
// back-reference; the post-order sequence is the execution order. A Record
// reachable through multiple paths is included exactly once; ties among
// independent Records follow their creation index. The result is
// deterministic: compiling the identical (inputs, outputs, trace) triple
// always yields the identical sequence.
//
// Errors:
//   - ErrConfiguration: no inputs or no outputs declared, duplicates in
//     either list.
//   - ErrUnresolvedInput: a declared input or output belongs to a
//     different tracing session.
//   - ErrCyclicGraph: the traversal revisited an in-progress Record. This
//     cannot happen on traces built only through Tracer.Apply, which only
//     derives values forward, but guards against pathological record
//     surgery -- it fails rather than hanging.
//   - ErrDisconnectedGraph: a declared output (transitively) depends on an
//     input-like Value that was not declared as a plan input.
func Compile(tracer *Tracer, inputs, outputs []*Value) (*Plan, error) {
	if tracer == nil {
		return nil, errors.Wrap(ErrConfiguration, "Compile with a nil tracer")
	}
	if len(inputs) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "Compile requires at least one declared input")
	}
	if len(outputs) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "Compile requires at least one declared output")
	}

	declaredInputs := make(map[ValueID]bool, len(inputs))
	for ii, input := range inputs {
		if input == nil {
			return nil, errors.Wrapf(ErrConfiguration, "declared input #%d is nil", ii)
		}
		if input.tracer != tracer {
			return nil, errors.Wrapf(ErrUnresolvedInput,
				"declared input #%d (%s) belongs to trace session %s, not to the session %s being compiled",
				ii, input, input.tracer.sessionID, tracer.sessionID)
		}
		if declaredInputs[input.id] {
			return nil, errors.Wrapf(ErrConfiguration, "value %s declared twice as input", input)
		}
		declaredInputs[input.id] = true
	}
	for ii, output := range outputs {
		if output == nil {
			return nil, errors.Wrapf(ErrConfiguration, "declared output #%d is nil", ii)
		}
		if output.tracer != tracer {
			return nil, errors.Wrapf(ErrUnresolvedInput,
				"declared output #%d (%s) belongs to trace session %s, not to the session %s being compiled",
				ii, output, output.tracer.sessionID, tracer.sessionID)
		}
	}

	plan := &Plan{
		tracer:  tracer,
		inputs:  inputs,
		outputs: outputs,
	}
	states := make([]visitState, len(tracer.records))
	usedInputs := make(map[ValueID]bool, len(inputs))
	for _, output := range outputs {
		if declaredInputs[output.id] {
			// Output is directly a declared input, a passthrough.
			usedInputs[output.id] = true
			continue
		}
		if output.IsInput() {
			return nil, errors.Wrapf(ErrDisconnectedGraph,
				"declared output %s is a trace input that was not declared as a plan input", output)
		}
		if err := plan.visit(output.Producer(), states, declaredInputs, usedInputs); err != nil {
			return nil, err
		}
	}
	for _, input := range inputs {
		if !usedInputs[input.id] {
			plan.unusedInputs = append(plan.unusedInputs, input)
		}
	}
	if klog.V(2).Enabled() {
		klog.Infof("graph.Compile: session %s, %d records (%d traced), %d inputs (%d unused), %d outputs",
			tracer.sessionID, len(plan.records), len(tracer.records), len(inputs), len(plan.unusedInputs), len(outputs))
	}
	return plan, nil
}

// visit runs the depth-first traversal from record, appending the post-order
// to plan.records. Implemented with an explicit stack: pathological record
// surgery must fail with ErrCyclicGraph, not exhaust the goroutine stack.
func (p *Plan) visit(record *Record, states []visitState, declaredInputs, usedInputs map[ValueID]bool) error {
	type frame struct {
		record    *Record
		nextInput int
	}
	if states[record.index] == visited {
		return nil
	}
	states[record.index] = inProgress
	stack := []frame{{record: record}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.nextInput >= len(top.record.inputs) {
			// Post-order: all dependencies emitted.
			states[top.record.index] = visited
			p.records = append(p.records, top.record)
			stack = stack[:len(stack)-1]
			continue
		}
		input := top.record.inputs[top.nextInput]
		top.nextInput++
		if declaredInputs[input.id] {
			usedInputs[input.id] = true
			continue
		}
		if input.IsInput() {
			return errors.Wrapf(ErrDisconnectedGraph,
				"record #%d (%s) depends on trace input %s, which was not declared as a plan input",
				top.record.index, top.record.layer.Name(), input)
		}
		producer := input.Producer()
		switch states[producer.index] {
		case visited:
			continue
		case inProgress:
			return errors.Wrapf(ErrCyclicGraph,
				"record #%d (%s) participates in a dependency cycle",
				producer.index, producer.layer.Name())
		default:
			states[producer.index] = inProgress
			stack = append(stack, frame{record: producer})
		}
	}
	return nil
}

// Tracer returns the tracing session the Plan was compiled from.
func (p *Plan) Tracer() *Tracer { return p.tracer }

// Inputs returns the declared plan inputs, in declaration order.
func (p *Plan) Inputs() []*Value { return p.inputs }

// Outputs returns the declared plan outputs, in declaration order.
func (p *Plan) Outputs() []*Value { return p.outputs }

// Records returns the Records in execution order. The returned slice must
// not be modified.
func (p *Plan) Records() []*Record { return p.records }

// UnusedInputs returns declared inputs that no declared output depends on.
func (p *Plan) UnusedInputs() []*Value { return p.unusedInputs }

// String converts the Plan to a multi-line listing of its execution order.
func (p *Plan) String() string {
	parts := []string{fmt.Sprintf("Plan: %d inputs, %d outputs, %d steps",
		len(p.inputs), len(p.outputs), len(p.records))}
	for ii, record := range p.records {
		parts = append(parts, fmt.Sprintf("\t%d:\t%s", ii, record))
	}
	return strings.Join(parts, "\n")
}

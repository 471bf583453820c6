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

	"github.com/weftml/weft/types/shapes"
)

// ValueID is a unique Value id within a Tracer session. IDs are dense:
// the n-th Value created has id n.
type ValueID int

// InvalidValueID indicates a value that failed to be created.
const InvalidValueID = ValueID(-1)

// inputProducer is the producer index of declared trace inputs, which have
// no producing Record.
const inputProducer = -1

// Value is a symbolic placeholder for the result of a computation step.
//
// It carries a shape signature fixed at creation and a back-reference to
// the Record that produced it -- an index into the owning Tracer's record
// arena, so Values can be freely shared and serialized without ownership
// cycles. Declared trace inputs have no producer.
//
// Values never hold numeric data: concrete tensors only appear when a
// finalized model replays the plan (see ml/model).
type Value struct {
	tracer *Tracer
	id     ValueID
	shape  shapes.Shape
	name   string

	// producer is the creation index of the Record that produced this
	// value, or inputProducer for declared trace inputs.
	producer int
}

// ID is the unique id of this Value within its tracing session.
func (v *Value) ID() ValueID {
	if v == nil {
		return InvalidValueID
	}
	return v.id
}

// Shape of the Value's signature, fixed at creation.
func (v *Value) Shape() shapes.Shape {
	if v == nil {
		return shapes.Shape{}
	}
	return v.shape
}

// Name returns the human-readable name of the Value: the declared input
// name, or a name derived from the producing layer.
func (v *Value) Name() string {
	if v == nil {
		return ""
	}
	return v.name
}

// IsInput reports whether the Value is a declared trace input, with no
// producing Record.
func (v *Value) IsInput() bool { return v.producer == inputProducer }

// Producer returns the Record that produced this Value, or nil for
// declared trace inputs.
func (v *Value) Producer() *Record {
	if v == nil || v.producer == inputProducer {
		return nil
	}
	return v.tracer.records[v.producer]
}

// Tracer returns the session that owns this Value.
func (v *Value) Tracer() *Tracer { return v.tracer }

// String implements fmt.Stringer.
func (v *Value) String() string {
	if v == nil {
		return "Value(nil)"
	}
	return fmt.Sprintf("%s%s", v.name, v.shape)
}

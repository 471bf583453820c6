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

	"github.com/weftml/weft/types/xslices"
)

// Record is one recorded symbolic layer invocation: the invoked layer
// (shared -- the same layer may appear in many Records), the ordered input
// Values, the ordered freshly created output Values, and a monotonically
// increasing creation index used to break ordering ties deterministically.
//
// Records are immutable after creation and owned by the Tracer that
// created them.
type Record struct {
	tracer *Tracer

	// index is the creation index of the record within its session.
	index int

	layer   Layer
	inputs  []*Value
	outputs []*Value
}

// Index is the creation index of the Record: the n-th recorded call has
// index n.
func (r *Record) Index() int { return r.index }

// Layer returns the invoked layer. Layers are shared, not owned: the same
// layer instance may appear in many Records (weight sharing).
func (r *Record) Layer() Layer { return r.layer }

// Inputs returns the ordered symbolic inputs of the call. The returned
// slice must not be modified.
func (r *Record) Inputs() []*Value { return r.inputs }

// Outputs returns the ordered symbolic outputs of the call. Outputs are
// always freshly created by the call that recorded them. The returned
// slice must not be modified.
func (r *Record) Outputs() []*Value { return r.outputs }

// String implements fmt.Stringer.
func (r *Record) String() string {
	ins := strings.Join(xslices.Map(r.inputs, func(v *Value) string { return v.Name() }), ", ")
	outs := strings.Join(xslices.Map(r.outputs, (*Value).String), ", ")
	return fmt.Sprintf("%s(%s) -> %s", r.layer.Name(), ins, outs)
}

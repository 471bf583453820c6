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

import "github.com/pkg/errors"

// Error kinds surfaced by tracing, plan compilation and model replay.
// They are always returned wrapped with context; test with errors.Is.
var (
	// ErrConfiguration indicates malformed trace inputs: zero inputs,
	// duplicate names, invalid shapes, or a layer rejecting its input
	// signatures.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnresolvedInput indicates a symbolic call referencing values that
	// don't belong to the current trace session.
	ErrUnresolvedInput = errors.New("unresolved symbolic input")

	// ErrCyclicGraph indicates the resolver found a dependency cycle.
	ErrCyclicGraph = errors.New("cyclic graph")

	// ErrDisconnectedGraph indicates a declared output is not reachable
	// from the declared inputs.
	ErrDisconnectedGraph = errors.New("disconnected graph")

	// ErrShapeMismatch indicates concrete inputs that disagree with the
	// plan's declared signatures.
	ErrShapeMismatch = errors.New("shape mismatch")
)

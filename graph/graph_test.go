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
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftml/weft/types/shapes"
)

// testLayer is a stub layer for tracing tests: it returns its input shapes
// unchanged, fanned out numOutputs times from the first input.
type testLayer struct {
	name       string
	numOutputs int
	err        error
}

func (l *testLayer) Name() string { return l.name }

func (l *testLayer) InferSignature(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if l.err != nil {
		return nil, l.err
	}
	n := l.numOutputs
	if n == 0 {
		n = 1
	}
	outputs := make([]shapes.Shape, n)
	for ii := range outputs {
		outputs[ii] = inputs[0]
	}
	return outputs, nil
}

func TestTracerInputs(t *testing.T) {
	tracer := New()
	s := shapes.Make(dtypes.Float32, shapes.UnknownDim, 4)
	values, err := tracer.Inputs(Input("x", s), Input("", s))
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "x", values[0].Name())
	assert.Equal(t, "input#1", values[1].Name())
	assert.True(t, values[0].IsInput())
	assert.Nil(t, values[0].Producer())
	assert.True(t, s.Equal(values[0].Shape()))
	assert.Equal(t, ValueID(0), values[0].ID())
	assert.Equal(t, ValueID(1), values[1].ID())
	assert.Equal(t, 2, tracer.NumValues())
	assert.Len(t, tracer.DeclaredInputs(), 2)

	// Incremental registration keeps positional naming dense.
	more, err := tracer.Inputs(Input("", s))
	require.NoError(t, err)
	assert.Equal(t, "input#2", more[0].Name())

	_, err = tracer.Inputs()
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = tracer.Inputs(Input("x", s))
	assert.ErrorIs(t, err, ErrConfiguration, "duplicate name must be rejected")
	_, err = tracer.Inputs(Input("bad", shapes.Shape{}))
	assert.ErrorIs(t, err, ErrConfiguration, "invalid shape must be rejected")
}

func TestTracerInputsFailedCallLeavesNoState(t *testing.T) {
	tracer := New()
	s := shapes.Make(dtypes.Float32, 2, 3)

	// A batch with an internal duplicate fails as a whole: the valid
	// leading spec must not claim its name or grow the arena.
	_, err := tracer.Inputs(Input("a", s), Input("a", s))
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, 0, tracer.NumValues())
	assert.Empty(t, tracer.DeclaredInputs())

	// A corrected retry on the same session succeeds.
	values, err := tracer.Inputs(Input("a", s), Input("b", s))
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "a", values[0].Name())
	assert.Equal(t, "b", values[1].Name())

	// Same for a batch that clashes with an already registered name
	// or carries an invalid shape after valid specs.
	_, err = tracer.Inputs(Input("c", s), Input("b", s))
	require.ErrorIs(t, err, ErrConfiguration)
	_, err = tracer.Inputs(Input("d", s), Input("bad", shapes.Shape{}))
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, 2, tracer.NumValues())
	more, err := tracer.Inputs(Input("c", s), Input("d", s))
	require.NoError(t, err)
	assert.Len(t, more, 2)
}

func TestTracerApply(t *testing.T) {
	tracer := New()
	s := shapes.Make(dtypes.Float32, 2, 3)
	values, err := tracer.Inputs(Input("x", s), Input("y", s))
	require.NoError(t, err)

	sum, err := tracer.Apply1(&testLayer{name: "add"}, values[0], values[1])
	require.NoError(t, err)
	assert.Equal(t, "add", sum.Name())
	assert.True(t, s.Equal(sum.Shape()))
	assert.False(t, sum.IsInput())
	require.NotNil(t, sum.Producer())
	assert.Equal(t, 0, sum.Producer().Index())
	assert.Equal(t, values[:2], sum.Producer().Inputs())
	assert.Same(t, tracer, sum.Tracer())
	assert.Equal(t, 1, tracer.NumRecords())

	// Multi-output layers name their outputs positionally.
	outs, err := tracer.Apply(&testLayer{name: "split", numOutputs: 2}, sum)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, "split:0", outs[0].Name())
	assert.Equal(t, "split:1", outs[1].Name())

	// Apply1 on a multi-output layer is a configuration error.
	_, err = tracer.Apply1(&testLayer{name: "split2", numOutputs: 2}, sum)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestTracerApplyErrors(t *testing.T) {
	tracer := New()
	s := shapes.Make(dtypes.Float32, 2)
	values, err := tracer.Inputs(Input("x", s))
	require.NoError(t, err)

	_, err = tracer.Apply(nil)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = tracer.Apply(&testLayer{name: "id"})
	assert.ErrorIs(t, err, ErrConfiguration, "zero inputs must be rejected")
	_, err = tracer.Apply(&testLayer{name: "id"}, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	// A layer rejecting its input signatures surfaces as configuration.
	rejected := errors.New("rank mismatch")
	_, err = tracer.Apply(&testLayer{name: "picky", err: rejected}, values[0])
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "rank mismatch")

	// Values from another session are unresolved here.
	other := New()
	foreign, err := other.Inputs(Input("z", s))
	require.NoError(t, err)
	_, err = tracer.Apply(&testLayer{name: "id"}, foreign[0])
	assert.ErrorIs(t, err, ErrUnresolvedInput)
	assert.Contains(t, err.Error(), other.SessionID().String())
}

func TestTracerString(t *testing.T) {
	tracer := New()
	s := shapes.Make(dtypes.Float32, 2)
	values, err := tracer.Inputs(Input("x", s))
	require.NoError(t, err)
	_, err = tracer.Apply1(&testLayer{name: "relu"}, values[0])
	require.NoError(t, err)
	got := tracer.String()
	assert.Contains(t, got, "1 inputs, 1 records")
	assert.Contains(t, got, "relu(x) -> relu(Float32)[2]")
	assert.Contains(t, got, fmt.Sprintf("Trace %s", tracer.SessionID()))
}

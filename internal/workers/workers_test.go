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

package workers

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeCoversOnce(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(4)
	const n = 1001
	var hits [n]atomic.Int32
	pool.Range(n, 10, func(start, end int) {
		require.LessOrEqual(t, start, end)
		for ii := start; ii < end; ii++ {
			hits[ii].Add(1)
		}
	})
	for ii := range hits {
		assert.Equal(t, int32(1), hits[ii].Load(), "element %d", ii)
	}
}

func TestRangeInline(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(0)
	var calls int
	pool.Range(100, 1, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 100, end)
	})
	assert.Equal(t, 1, calls, "disabled pool runs a single inline chunk")

	// Too little work for the minimum chunk size also stays inline.
	pool.SetMaxParallelism(8)
	calls = 0
	pool.Range(5, 10, func(start, end int) { calls++ })
	assert.Equal(t, 1, calls)

	pool.Range(0, 1, func(start, end int) { t.Fatal("empty range must not call fn") })
}

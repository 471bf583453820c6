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

// Package workers provides a small worker pool used by the pure Go backend
// kernels to split flat-data loops across CPUs.
package workers

import (
	"runtime"
	"sync"
)

// Pool limits the parallelism of data-splitting loops.
//
// SetMaxParallelism must only be called before the pool is used; during
// execution the pool is safe for concurrent Range calls.
type Pool struct {
	maxParallelism int
}

// New returns a Pool with the default parallelism, runtime.NumCPU().
func New() *Pool {
	return &Pool{maxParallelism: runtime.NumCPU()}
}

// MaxParallelism is the target number of concurrent chunks.
// 0 disables parallelism.
func (p *Pool) MaxParallelism() int { return p.maxParallelism }

// SetMaxParallelism changes the target parallelism. Set 0 to force all
// Range calls inline.
func (p *Pool) SetMaxParallelism(maxParallelism int) {
	p.maxParallelism = maxParallelism
}

// IsEnabled returns whether parallelism is enabled.
func (p *Pool) IsEnabled() bool { return p.maxParallelism > 1 }

// Range runs fn over contiguous chunks covering [0, n), concurrently where
// worth it, and returns when every chunk finished. Chunks have at least
// minChunk elements, so callers can keep per-element bookkeeping coarse
// enough to amortize the goroutine cost. fn must be safe to run
// concurrently on disjoint ranges.
func (p *Pool) Range(n, minChunk int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if minChunk < 1 {
		minChunk = 1
	}
	numChunks := min(p.maxParallelism, n/minChunk)
	if !p.IsEnabled() || numChunks <= 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	wg.Add(numChunks)
	chunkSize := n / numChunks
	remainder := n % numChunks
	start := 0
	for chunk := 0; chunk < numChunks; chunk++ {
		end := start + chunkSize
		if chunk < remainder {
			end++
		}
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
		start = end
	}
	wg.Wait()
}

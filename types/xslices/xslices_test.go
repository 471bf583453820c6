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

package xslices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	in := Iota(0, 17)
	out := Map(in, func(v int) int32 { return int32(v + 1) })
	for ii := range in {
		assert.Equalf(t, int32(ii+1), out[ii], "element %d doesn't match", ii)
	}
}

func TestAtAndLast(t *testing.T) {
	slice := []int{0, 1, 2, 3, 4, 5}
	assert.Equal(t, 5, At(slice, -1))
	assert.Equal(t, 4, At(slice, -2))
	assert.Equal(t, 1, At(slice, 1))
	assert.Equal(t, 5, Last(slice))
	SetAt(slice, -1, 10)
	assert.Equal(t, 10, Last(slice))
}

func TestFillSlice(t *testing.T) {
	s := make([]float32, 13)
	FillSlice(s, float32(3))
	for _, v := range s {
		assert.Equal(t, float32(3), v)
	}
	assert.Equal(t, []int{7, 7, 7}, SliceWithValue(3, 7))
}

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

package shapes

import (
	"fmt"

	"github.com/pkg/errors"
)

// CheckDims checks that the shape has the given dimensions and rank. A value
// of -1 in dimensions means the axis can take any value and is not checked.
//
// It returns an error if the rank or any checked dimension differs.
func (s Shape) CheckDims(dimensions ...int) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape (%s) has incompatible rank %d -- wanted %d", s, s.Rank(), len(dimensions))
	}
	for axis, wantDim := range dimensions {
		if wantDim != -1 && s.Dimensions[axis] != wantDim {
			return errors.Errorf("shape (%s) axis %d has dimension %d -- wanted %d", s, axis, s.Dimensions[axis], wantDim)
		}
	}
	return nil
}

// AssertDims checks that the shape has the given dimensions and rank. A value
// of -1 in dimensions means the axis can take any value and is not checked.
//
// It panics if it doesn't match.
func (s Shape) AssertDims(dimensions ...int) {
	if err := s.CheckDims(dimensions...); err != nil {
		panic(fmt.Sprintf("shapes.AssertDims(%v): %+v", dimensions, err))
	}
}

// CheckDims checks that shaped has the given dimensions and rank. A value of
// -1 in dimensions means the axis can take any value and is not checked.
func CheckDims(shaped HasShape, dimensions ...int) error {
	return shaped.Shape().CheckDims(dimensions...)
}

// AssertDims checks that shaped has the given dimensions and rank, and
// panics otherwise. A value of -1 in dimensions means the axis is unchecked.
func AssertDims(shaped HasShape, dimensions ...int) {
	shaped.Shape().AssertDims(dimensions...)
}

// CheckRank checks that the shape has the given rank.
func (s Shape) CheckRank(rank int) error {
	if s.Rank() != rank {
		return errors.Errorf("shape (%s) has incompatible rank %d -- wanted %d", s, s.Rank(), rank)
	}
	return nil
}

// AssertRank checks that the shape has the given rank. It panics otherwise.
func (s Shape) AssertRank(rank int) {
	if err := s.CheckRank(rank); err != nil {
		panic(fmt.Sprintf("shapes.AssertRank(%d): %+v", rank, err))
	}
}

// CheckRank checks that shaped has the given rank.
func CheckRank(shaped HasShape, rank int) error {
	return shaped.Shape().CheckRank(rank)
}

// AssertRank checks that shaped has the given rank. It panics otherwise.
func AssertRank(shaped HasShape, rank int) {
	shaped.Shape().AssertRank(rank)
}

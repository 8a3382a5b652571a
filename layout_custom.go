// Copyright 2024 The DynaHist-Go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the
// License. You may obtain a copy of the License at
//   http://www.apache.org/licenses/LICENSE-2.0
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an "AS
// IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language
// governing permissions and limitations under the License.

package dynahist

import (
	"fmt"
	"math"
	"sort"
)

// customLayoutSerialVersion is the built-in serial version tag for
// CustomLayout's wire format.
const customLayoutSerialVersion = uint64(4)

// CustomLayout buckets values using an explicit, caller-supplied set of
// strictly increasing bin boundaries instead of an error-limit formula.
// Bin 0 is the underflow bin, covering everything strictly below
// boundaries[0]; bin len(boundaries) is the overflow bin, covering
// everything at or above boundaries[len-1]; regular bin i (for 0 < i <
// len(boundaries)) covers [boundaries[i-1], boundaries[i]). Unlike the
// Log* layouts, its bin boundaries are exact rather than approximated,
// so it needs no search-based inverse.
type CustomLayout struct {
	boundaries []float64
}

// NewCustomLayout builds a CustomLayout from a non-empty, strictly
// increasing list of finite bin boundaries.
func NewCustomLayout(boundaries []float64) (*CustomLayout, error) {
	if len(boundaries) == 0 {
		return nil, invalidArgumentf("custom layout requires at least one bin boundary")
	}
	cp := make([]float64, len(boundaries))
	for i, b := range boundaries {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, invalidArgumentf("bin boundary %d must be finite, got %v", i, b)
		}
		if i > 0 && b <= boundaries[i-1] {
			return nil, invalidArgumentf("bin boundaries must be strictly increasing, boundary %d (%v) is not greater than boundary %d (%v)", i, b, i-1, boundaries[i-1])
		}
		cp[i] = b
	}
	if len(cp) > math.MaxInt32-1 {
		return nil, invalidArgumentf("custom layout has too many bin boundaries: %d", len(cp))
	}
	return &CustomLayout{boundaries: cp}, nil
}

// MapToBinIndex returns the smallest index i such that boundaries[i] >
// value, or len(boundaries) if no boundary exceeds value. Negative
// infinity naturally lands at index 0 (the underflow bin), since every
// boundary compares greater than it; NaN lands at the overflow bin
// instead, since every comparison against it is false. Callers reject
// NaN before it reaches a Layout.
func (l *CustomLayout) MapToBinIndex(value float64) int32 {
	idx := sort.Search(len(l.boundaries), func(i int) bool {
		return l.boundaries[i] > value
	})
	return int32(idx)
}

func (l *CustomLayout) UnderflowBinIndex() int32 { return 0 }
func (l *CustomLayout) OverflowBinIndex() int32  { return int32(len(l.boundaries)) }

func (l *CustomLayout) BinLowerBound(binIndex int32) float64 {
	if binIndex <= l.UnderflowBinIndex() {
		return negInf
	}
	effective := binIndex
	if effective > l.OverflowBinIndex() {
		effective = l.OverflowBinIndex()
	}
	return l.boundaries[effective-1]
}

func (l *CustomLayout) BinUpperBound(binIndex int32) float64 {
	if binIndex >= l.OverflowBinIndex() {
		return posInf
	}
	effective := binIndex
	if effective < 0 {
		effective = 0
	}
	return predecessor(l.boundaries[effective])
}

func (l *CustomLayout) NormalRangeLowerBound() float64 { return l.BinLowerBound(1) }
func (l *CustomLayout) NormalRangeUpperBound() float64 {
	return l.BinUpperBound(l.OverflowBinIndex() - 1)
}

func (l *CustomLayout) Equal(other Layout) bool {
	o, ok := other.(*CustomLayout)
	if !ok || len(l.boundaries) != len(o.boundaries) {
		return false
	}
	for i, b := range l.boundaries {
		if mapDoubleToLong(b) != mapDoubleToLong(o.boundaries[i]) {
			return false
		}
	}
	return true
}

func (l *CustomLayout) String() string {
	return fmt.Sprintf("CustomLayout [boundaries=%v]", l.boundaries)
}

func (l *CustomLayout) serialVersion() uint64 { return customLayoutSerialVersion }

func (l *CustomLayout) writeBody(sink Sink) error {
	if err := sink.WriteUnsignedVarint(uint64(len(l.boundaries))); err != nil {
		return err
	}
	for _, b := range l.boundaries {
		if err := sink.WriteDouble(b); err != nil {
			return err
		}
	}
	return nil
}

func readCustomLayout(source Source) (Layout, error) {
	count, err := source.ReadUnsignedVarint()
	if err != nil {
		return nil, err
	}
	boundaries := make([]float64, count)
	for i := range boundaries {
		b, err := source.ReadDouble()
		if err != nil {
			return nil, err
		}
		boundaries[i] = b
	}
	return NewCustomLayout(boundaries)
}

func init() {
	mustRegisterBuiltinLayout(customLayoutSerialVersion, "CustomLayout", func(l Layout, sink Sink) error {
		return l.writeBody(sink)
	}, readCustomLayout)
}

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
	"math"
	"strings"
	"testing"
)

func TestEffectiveLowerBoundClampsOnlyFirstNonEmpty(t *testing.T) {
	if got := effectiveLowerBound(5, true, 7); got != 7 {
		t.Errorf("effectiveLowerBound(first) = %v, want 7", got)
	}
	if got := effectiveLowerBound(5, false, 7); got != 5 {
		t.Errorf("effectiveLowerBound(non-first) = %v, want 5", got)
	}
}

func TestEffectiveUpperBoundClampsOnlyLastNonEmpty(t *testing.T) {
	if got := effectiveUpperBound(5, true, 3); got != 3 {
		t.Errorf("effectiveUpperBound(last) = %v, want 3", got)
	}
	if got := effectiveUpperBound(5, false, 3); got != 5 {
		t.Errorf("effectiveUpperBound(non-last) = %v, want 5", got)
	}
}

func TestNewBinSoleOccupantIsFirstAndLast(t *testing.T) {
	l, err := NewCustomLayout([]float64{0, 10, 20})
	if err != nil {
		t.Fatal(err)
	}
	b := newBin(l, 1, 0, 1, 1, 5, 5)
	if !b.IsFirstNonEmptyBin() || !b.IsLastNonEmptyBin() {
		t.Errorf("sole occupied bin must be both first and last non-empty")
	}
	if b.LowerBound() != 5 || b.UpperBound() != 5 {
		t.Errorf("sole bin bounds = [%v, %v], want clamped to [5, 5]", b.LowerBound(), b.UpperBound())
	}
	if b.LessCount() != 0 || b.GreaterCount() != 0 {
		t.Errorf("sole bin LessCount/GreaterCount = %d/%d, want 0/0", b.LessCount(), b.GreaterCount())
	}
}

func TestNewBinMiddleBinIsNeitherFirstNorLast(t *testing.T) {
	l, err := NewCustomLayout([]float64{0, 10, 20})
	if err != nil {
		t.Fatal(err)
	}
	// totalCount=3, lessCount=1, count=1: one value below, one at this
	// bin, one above - this bin is neither the first nor the last.
	b := newBin(l, 1, 1, 1, 3, 4, 16)
	if b.IsFirstNonEmptyBin() || b.IsLastNonEmptyBin() {
		t.Errorf("middle bin incorrectly flagged first/last")
	}
	if b.LessCount() != 1 || b.GreaterCount() != 1 {
		t.Errorf("middle bin LessCount/GreaterCount = %d/%d, want 1/1", b.LessCount(), b.GreaterCount())
	}
	if b.LowerBound() != l.BinLowerBound(1) || b.UpperBound() != l.BinUpperBound(1) {
		t.Errorf("middle bin bounds must be the layout's own bounds, unclamped")
	}
}

func TestNewBinUnderflowOverflowFlags(t *testing.T) {
	l, err := NewCustomLayout([]float64{0, 10, 20})
	if err != nil {
		t.Fatal(err)
	}
	underflow := newBin(l, l.UnderflowBinIndex(), 0, 2, 5, math.Inf(-1), -3)
	if !underflow.IsUnderflow() || underflow.IsOverflow() {
		t.Errorf("underflow bin misclassified: isUnderflow=%v isOverflow=%v", underflow.IsUnderflow(), underflow.IsOverflow())
	}

	overflow := newBin(l, l.OverflowBinIndex(), 3, 2, 5, -3, math.Inf(1))
	if overflow.IsUnderflow() || !overflow.IsOverflow() {
		t.Errorf("overflow bin misclassified: isUnderflow=%v isOverflow=%v", overflow.IsUnderflow(), overflow.IsOverflow())
	}
}

func TestBinStringIncludesKeyFields(t *testing.T) {
	l, err := NewCustomLayout([]float64{0, 10, 20})
	if err != nil {
		t.Fatal(err)
	}
	b := newBin(l, 1, 2, 3, 5, 4, 16)
	s := b.String()
	if s == "" {
		t.Errorf("Bin.String() returned empty string")
	}
	for _, field := range []string{"binIndex=1", "count=3", "lessCount=2"} {
		if !strings.Contains(s, field) {
			t.Errorf("Bin.String() = %q, missing %q", s, field)
		}
	}
}

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

import "fmt"

// Bin is an immutable, self-contained snapshot of one histogram bin:
// its index, its count, the running counts of values strictly below
// and above it, its bounds, and whether it is the underflow or
// overflow bin. Materializing a snapshot instead of keeping a live
// back-reference to the owning Histogram avoids an ownership cycle
// between Bin and Histogram (see the package design notes).
type Bin struct {
	index          int32
	count          uint64
	lessCount      uint64
	greaterCount   uint64
	lowerBound     float64
	upperBound     float64
	isUnderflow    bool
	isOverflow     bool
	isFirstNonEmpty bool
	isLastNonEmpty  bool
}

// BinIndex returns the bin's index under its histogram's Layout.
func (b Bin) BinIndex() int32 { return b.index }

// Count returns the number of recorded values that fell into this bin.
func (b Bin) Count() uint64 { return b.count }

// LessCount returns the number of recorded values strictly less than
// this bin's lower bound.
func (b Bin) LessCount() uint64 { return b.lessCount }

// GreaterCount returns the number of recorded values strictly greater
// than this bin's upper bound.
func (b Bin) GreaterCount() uint64 { return b.greaterCount }

// LowerBound returns the bin's lower bound, clamped to the owning
// histogram's recorded minimum when this is the first non-empty bin.
func (b Bin) LowerBound() float64 { return b.lowerBound }

// UpperBound returns the bin's upper bound, clamped to the owning
// histogram's recorded maximum when this is the last non-empty bin.
func (b Bin) UpperBound() float64 { return b.upperBound }

// IsUnderflow reports whether this is the layout's underflow bin.
func (b Bin) IsUnderflow() bool { return b.isUnderflow }

// IsOverflow reports whether this is the layout's overflow bin.
func (b Bin) IsOverflow() bool { return b.isOverflow }

// IsFirstNonEmptyBin reports whether this is the first non-empty bin
// in the owning histogram, in ascending bin-index order.
func (b Bin) IsFirstNonEmptyBin() bool { return b.isFirstNonEmpty }

// IsLastNonEmptyBin reports whether this is the last non-empty bin in
// the owning histogram, in ascending bin-index order.
func (b Bin) IsLastNonEmptyBin() bool { return b.isLastNonEmpty }

func (b Bin) String() string {
	return fmt.Sprintf("Bin [binIndex=%d, count=%d, lessCount=%d, greaterCount=%d, lowerBound=%v, upperBound=%v, isUnderflow=%v, isOverflow=%v]",
		b.index, b.count, b.lessCount, b.greaterCount, b.lowerBound, b.upperBound, b.isUnderflow, b.isOverflow)
}

// newBin materializes the immutable Bin snapshot for binIndex given the
// running count of values strictly below it and the bin's own count,
// shared by Histogram and Preprocessed so both compute the exact same
// first/last-non-empty clamping rules from one place.
func newBin(layout Layout, binIndex int32, lessCount, count, totalCount uint64, min, max float64) Bin {
	lessOrEqual := lessCount + count
	isFirst := lessCount == 0 && count > 0
	isLast := lessOrEqual == totalCount && count > 0

	return Bin{
		index:           binIndex,
		count:           count,
		lessCount:       lessCount,
		greaterCount:    totalCount - lessOrEqual,
		lowerBound:      effectiveLowerBound(layout.BinLowerBound(binIndex), isFirst, min),
		upperBound:      effectiveUpperBound(layout.BinUpperBound(binIndex), isLast, max),
		isUnderflow:     binIndex <= layout.UnderflowBinIndex(),
		isOverflow:      binIndex >= layout.OverflowBinIndex(),
		isFirstNonEmpty: isFirst,
		isLastNonEmpty:  isLast,
	}
}

// effectiveLowerBound clamps a bin's layout-defined lower bound to the
// histogram's recorded minimum when the bin is the first non-empty
// bin, per the rule that recorded extrema are reported exactly even
// when they fall inside a wider bin.
func effectiveLowerBound(layoutLowerBound float64, isFirstNonEmpty bool, histogramMin float64) float64 {
	if isFirstNonEmpty {
		return histogramMin
	}
	return layoutLowerBound
}

// effectiveUpperBound is the symmetric clamp for a bin's upper bound.
func effectiveUpperBound(layoutUpperBound float64, isLastNonEmpty bool, histogramMax float64) float64 {
	if isLastNonEmpty {
		return histogramMax
	}
	return layoutUpperBound
}

// BinIterator is a cursor over a histogram's non-empty bins. It is
// invalidated by any mutation of the underlying histogram; behavior
// after such a mutation is undefined, matching the single-writer,
// no-concurrent-readers contract the rest of the package assumes.
type BinIterator interface {
	// BinCopy returns an immutable snapshot of the bin the cursor
	// currently points to.
	BinCopy() Bin

	// Next advances the cursor to the next non-empty bin. It fails
	// with ErrNoSuchElement if the cursor is already on the last
	// non-empty bin.
	Next() error

	// Previous moves the cursor to the previous non-empty bin. It
	// fails with ErrNoSuchElement if the cursor is already on the
	// first non-empty bin.
	Previous() error

	// IsFirstNonEmptyBin reports whether the cursor is on the first
	// non-empty bin in ascending bin-index order.
	IsFirstNonEmptyBin() bool

	// IsLastNonEmptyBin reports whether the cursor is on the last
	// non-empty bin in ascending bin-index order.
	IsLastNonEmptyBin() bool
}

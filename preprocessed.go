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

// Preprocessed is a read-only snapshot of a Histogram, flattened into a
// sorted array of non-empty bins and their prefix-sum counts. It
// answers the same rank and quantile queries as Histogram but with a
// binary search in place of a scan over the live store's allocation
// window, at the cost of being frozen at the moment it was taken:
// mutators fail with ErrUnsupportedOperation rather than silently
// diverging from the Histogram that produced it.
type Preprocessed struct {
	layout Layout

	underflowCount uint64
	overflowCount  uint64
	totalCount     uint64
	min            float64
	max            float64

	// binIndices, counts and prefixCounts describe every non-empty bin
	// (including the underflow/overflow bins when they hold values) in
	// ascending bin-index order. prefixCounts has one more element than
	// counts: prefixCounts[i] is the total count strictly below
	// binIndices[i].
	binIndices   []int32
	counts       []uint64
	prefixCounts []uint64
}

// Layout returns the Histogram layout this snapshot was taken from.
func (p *Preprocessed) Layout() Layout { return p.layout }

// IsEmpty reports whether the source histogram had recorded no values.
func (p *Preprocessed) IsEmpty() bool { return p.totalCount == 0 }

// GetTotalCount returns the number of values recorded in the source
// histogram at the time of the snapshot.
func (p *Preprocessed) GetTotalCount() uint64 { return p.totalCount }

// GetUnderflowCount returns the snapshotted underflow count.
func (p *Preprocessed) GetUnderflowCount() uint64 { return p.underflowCount }

// GetOverflowCount returns the snapshotted overflow count.
func (p *Preprocessed) GetOverflowCount() uint64 { return p.overflowCount }

// GetMin returns the snapshotted minimum recorded value.
func (p *Preprocessed) GetMin() float64 { return p.min }

// GetMax returns the snapshotted maximum recorded value.
func (p *Preprocessed) GetMax() float64 { return p.max }

// GetCount returns the snapshotted count for binIndex.
func (p *Preprocessed) GetCount(binIndex int32) uint64 {
	switch {
	case binIndex <= p.layout.UnderflowBinIndex():
		return p.underflowCount
	case binIndex >= p.layout.OverflowBinIndex():
		return p.overflowCount
	default:
		i := sort.Search(len(p.binIndices), func(i int) bool { return p.binIndices[i] >= binIndex })
		if i < len(p.binIndices) && p.binIndices[i] == binIndex {
			return p.counts[i]
		}
		return 0
	}
}

// GetBinByRank returns the bin containing the value at the given
// zero-based rank in O(log B) time, B being the number of non-empty
// bins, via binary search over the precomputed prefix sums.
func (p *Preprocessed) GetBinByRank(rank uint64) (Bin, error) {
	if rank >= p.totalCount {
		return Bin{}, invalidArgumentf("rank %d is out of range [0, %d)", rank, p.totalCount)
	}
	i := sort.Search(len(p.counts), func(i int) bool { return p.prefixCounts[i+1] > rank })
	return newBin(p.layout, p.binIndices[i], p.prefixCounts[i], p.counts[i], p.totalCount, p.min, p.max), nil
}

// GetValue mirrors Histogram.GetValue against the frozen snapshot.
func (p *Preprocessed) GetValue(rank uint64, estimator ...ValueEstimator) (float64, error) {
	if rank >= p.totalCount {
		return 0, invalidArgumentf("rank %d is out of range [0, %d)", rank, p.totalCount)
	}
	if rank == 0 {
		return p.min, nil
	}
	if rank+1 == p.totalCount {
		return p.max, nil
	}
	bin, err := p.GetBinByRank(rank)
	if err != nil {
		return 0, err
	}
	ve := DefaultValueEstimator
	if len(estimator) > 0 && estimator[0] != nil {
		ve = estimator[0]
	}
	return ve.EstimateValue(bin, rank), nil
}

// GetQuantile mirrors Histogram.GetQuantile against the frozen
// snapshot.
func (p *Preprocessed) GetQuantile(prob float64, quantileEstimator QuantileEstimator, valueEstimator ValueEstimator) float64 {
	if quantileEstimator == nil {
		quantileEstimator = DefaultQuantileEstimator
	}
	if valueEstimator == nil {
		valueEstimator = DefaultValueEstimator
	}
	return quantileEstimator.Estimate(prob, p.totalCount, func(rank uint64) float64 {
		v, err := p.GetValue(rank, valueEstimator)
		if err != nil {
			return math.NaN()
		}
		return v
	})
}

// GetFirstNonEmptyBin returns an iterator positioned at the first
// non-empty bin. It fails with ErrNoSuchElement if the snapshot is
// empty.
func (p *Preprocessed) GetFirstNonEmptyBin() (BinIterator, error) {
	return p.NonEmptyBinsAscending()
}

// GetLastNonEmptyBin returns an iterator positioned at the last
// non-empty bin. It fails with ErrNoSuchElement if the snapshot is
// empty.
func (p *Preprocessed) GetLastNonEmptyBin() (BinIterator, error) {
	return p.NonEmptyBinsDescending()
}

// NonEmptyBinsAscending returns an iterator starting at the first
// non-empty bin.
func (p *Preprocessed) NonEmptyBinsAscending() (BinIterator, error) {
	if p.totalCount == 0 {
		return nil, noSuchElementf("preprocessed histogram has no recorded values")
	}
	return &preprocessedBinIterator{p: p, pos: 0}, nil
}

// NonEmptyBinsDescending returns an iterator starting at the last
// non-empty bin.
func (p *Preprocessed) NonEmptyBinsDescending() (BinIterator, error) {
	if p.totalCount == 0 {
		return nil, noSuchElementf("preprocessed histogram has no recorded values")
	}
	return &preprocessedBinIterator{p: p, pos: len(p.counts) - 1}, nil
}

// preprocessedBinIterator is the O(1)-step BinIterator backing a
// Preprocessed snapshot's traversal: pos directly indexes binIndices,
// counts and prefixCounts, with no scanning involved.
type preprocessedBinIterator struct {
	p   *Preprocessed
	pos int
}

func (it *preprocessedBinIterator) BinCopy() Bin {
	return newBin(it.p.layout, it.p.binIndices[it.pos], it.p.prefixCounts[it.pos], it.p.counts[it.pos], it.p.totalCount, it.p.min, it.p.max)
}

func (it *preprocessedBinIterator) IsFirstNonEmptyBin() bool { return it.pos == 0 }

func (it *preprocessedBinIterator) IsLastNonEmptyBin() bool { return it.pos == len(it.p.counts)-1 }

func (it *preprocessedBinIterator) Next() error {
	if it.IsLastNonEmptyBin() {
		return noSuchElementf("already on the last non-empty bin")
	}
	it.pos++
	return nil
}

func (it *preprocessedBinIterator) Previous() error {
	if it.IsFirstNonEmptyBin() {
		return noSuchElementf("already on the first non-empty bin")
	}
	it.pos--
	return nil
}

// AddValue always fails: Preprocessed is an immutable snapshot.
func (p *Preprocessed) AddValue(float64) error {
	return unsupportedOperationf("Preprocessed is immutable, build a new Histogram and call GetPreprocessedCopy again")
}

// AddValueCount always fails: Preprocessed is an immutable snapshot.
func (p *Preprocessed) AddValueCount(float64, int64) error {
	return unsupportedOperationf("Preprocessed is immutable, build a new Histogram and call GetPreprocessedCopy again")
}

// AddHistogram always fails: Preprocessed is an immutable snapshot.
func (p *Preprocessed) AddHistogram(*Histogram, ...ValueEstimator) error {
	return unsupportedOperationf("Preprocessed is immutable, build a new Histogram and call GetPreprocessedCopy again")
}

func (p *Preprocessed) String() string {
	return fmt.Sprintf("Preprocessed [layout=%v, underflowCount=%d, overflowCount=%d, totalCount=%d, min=%v, max=%v]",
		p.layout, p.underflowCount, p.overflowCount, p.totalCount, p.min, p.max)
}

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

	"github.com/pkg/errors"
)

// maxTotalCount bounds Histogram.totalCount to 2^63-1 so rank
// arithmetic never has to reason about uint64 wraparound.
const maxTotalCount = uint64(math.MaxInt64)

// Histogram accumulates values into the fixed set of bins defined by a
// Layout, tracking enough auxiliary state - counts below/above the
// layout's normal range, the exact minimum and maximum ever recorded,
// and a running total - to answer rank and quantile queries without
// ever materializing the original values. It is not safe for
// concurrent use; callers that need that must synchronize externally.
type Histogram struct {
	layout Layout
	store  binCountStore

	underflowCount uint64
	overflowCount  uint64
	totalCount     uint64

	min float64
	max float64
}

// NewStaticHistogram creates an empty Histogram backed by a StaticStore
// sized to l's entire regular bin range: constant-time updates at a
// memory cost fixed by the layout regardless of the data observed.
func NewStaticHistogram(l Layout) *Histogram {
	return &Histogram{
		layout: l,
		store:  NewStaticStore(l.UnderflowBinIndex(), l.OverflowBinIndex()),
		min:    math.Inf(1),
		max:    math.Inf(-1),
	}
}

// NewDynamicHistogram creates an empty Histogram backed by a
// DynamicStore, whose memory footprint grows only over the bin-index
// range actually observed and at the narrowest count width that fits.
func NewDynamicHistogram(l Layout) *Histogram {
	return &Histogram{
		layout: l,
		store:  NewDynamicStore(),
		min:    math.Inf(1),
		max:    math.Inf(-1),
	}
}

// Layout returns the histogram's Layout.
func (h *Histogram) Layout() Layout { return h.layout }

// IsEmpty reports whether the histogram has recorded no values.
func (h *Histogram) IsEmpty() bool { return h.totalCount == 0 }

// GetTotalCount returns the number of values recorded.
func (h *Histogram) GetTotalCount() uint64 { return h.totalCount }

// GetUnderflowCount returns the number of recorded values that fell
// below the layout's normal range.
func (h *Histogram) GetUnderflowCount() uint64 { return h.underflowCount }

// GetOverflowCount returns the number of recorded values that fell
// above the layout's normal range.
func (h *Histogram) GetOverflowCount() uint64 { return h.overflowCount }

// GetMin returns the smallest value recorded, or +Inf if the histogram
// is empty.
func (h *Histogram) GetMin() float64 { return h.min }

// GetMax returns the largest value recorded, or -Inf if the histogram
// is empty.
func (h *Histogram) GetMax() float64 { return h.max }

// GetCount returns the number of recorded values mapped to binIndex by
// the histogram's layout, including the underflow and overflow bins.
func (h *Histogram) GetCount(binIndex int32) uint64 {
	switch {
	case binIndex <= h.layout.UnderflowBinIndex():
		return h.underflowCount
	case binIndex >= h.layout.OverflowBinIndex():
		return h.overflowCount
	default:
		return h.store.count(binIndex)
	}
}

// AddValue records one occurrence of value.
func (h *Histogram) AddValue(value float64) error {
	return h.AddValueCount(value, 1)
}

// AddValueCount records count occurrences of value. count must be
// non-negative; a count of 0 is a no-op. Recording would be rejected
// with ErrArithmetic rather than silently overflow the 63-bit total
// count budget.
func (h *Histogram) AddValueCount(value float64, count int64) error {
	if count < 0 {
		return invalidArgumentf("count must be non-negative, got %d", count)
	}
	if count == 0 {
		return nil
	}
	if math.IsNaN(value) {
		return invalidArgumentf("cannot add NaN to a histogram")
	}
	return h.addRawCount(value, uint64(count))
}

// addRawCount is the shared tail of AddValueCount and the cross-layout
// path of AddHistogram: value has already been validated as non-NaN
// and delta as representing a genuine non-zero, non-negative count.
func (h *Histogram) addRawCount(value float64, delta uint64) error {
	if h.totalCount > maxTotalCount-delta {
		return arithmeticf("total count would exceed %d", maxTotalCount)
	}

	if value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}
	h.totalCount += delta
	h.addToBin(value, delta)
	return nil
}

// addToBin classifies value into the underflow bin, the overflow bin,
// or a regular bin of the store, and adds delta to its count. It
// touches none of totalCount/min/max, so batch callers that already
// know those bounds up front (AddAscendingSequence) can update them
// once instead of on every element.
func (h *Histogram) addToBin(value float64, delta uint64) {
	binIndex := h.layout.MapToBinIndex(value)
	switch {
	case binIndex <= h.layout.UnderflowBinIndex():
		h.underflowCount += delta
	case binIndex >= h.layout.OverflowBinIndex():
		h.overflowCount += delta
	default:
		h.store.increaseCount(binIndex, delta)
	}
}

// AddAscendingSequence records n values produced by rankToValue(0),
// rankToValue(1), ..., rankToValue(n-1), which must be given in
// non-decreasing order. This lets a caller that already holds a sorted
// sample (e.g. replaying another histogram's ranks) build a Histogram
// without allocating an intermediate slice. Because the sequence is
// known to be sorted, min/max only need to be compared against the
// first and last elements rather than every element, and the total
// count budget only needs to be checked once for the whole batch
// rather than once per element.
func (h *Histogram) AddAscendingSequence(n uint64, rankToValue func(rank uint64) float64) error {
	if n == 0 {
		return nil
	}
	if h.totalCount > maxTotalCount-n {
		return arithmeticf("total count would exceed %d", maxTotalCount)
	}

	first := rankToValue(0)
	if math.IsNaN(first) {
		return invalidArgumentf("cannot add NaN to a histogram")
	}
	h.addToBin(first, 1)
	prev := first
	committed := uint64(1)

	// commitPrefix folds in every element added to a bin so far,
	// whether the loop below runs to completion or stops partway on a
	// validation failure: a prefix that was actually binned must always
	// be reflected in totalCount/min/max, so a rejected element never
	// leaves the histogram's aggregates out of sync with its bins.
	commitPrefix := func() {
		if first < h.min {
			h.min = first
		}
		if prev > h.max {
			h.max = prev
		}
		h.totalCount += committed
	}

	for i := uint64(1); i < n; i++ {
		v := rankToValue(i)
		if math.IsNaN(v) {
			commitPrefix()
			return invalidArgumentf("cannot add NaN to a histogram")
		}
		if v < prev {
			commitPrefix()
			return invalidArgumentf("add_ascending_sequence requires non-decreasing values, got %v after %v", v, prev)
		}
		h.addToBin(v, 1)
		prev = v
		committed++
	}

	commitPrefix()
	return nil
}

// AddHistogram merges other's recorded values into h. If other uses
// the identical layout (per Layout.Equal), bin counts are transferred
// directly and the merge is exact. Otherwise each of other's bins is
// redistributed into h's layout using a single representative value
// per bin, estimated with estimator (DefaultValueEstimator if none is
// given); this is necessarily approximate since other's original
// values are no longer available.
func (h *Histogram) AddHistogram(other *Histogram, estimator ...ValueEstimator) error {
	if other == nil || other.totalCount == 0 {
		return nil
	}
	if h.totalCount > maxTotalCount-other.totalCount {
		return arithmeticf("total count would exceed %d", maxTotalCount)
	}

	if h.layout.Equal(other.layout) {
		return h.addHistogramSameLayout(other)
	}

	ve := DefaultValueEstimator
	if len(estimator) > 0 && estimator[0] != nil {
		ve = estimator[0]
	}
	return h.addHistogramCrossLayout(other, ve)
}

func (h *Histogram) addHistogramSameLayout(other *Histogram) error {
	if other.min < h.min {
		h.min = other.min
	}
	if other.max > h.max {
		h.max = other.max
	}

	h.totalCount += other.totalCount
	h.underflowCount += other.underflowCount
	h.overflowCount += other.overflowCount

	lo := other.store.minAllocatedBinIndexInclusive()
	hi := other.store.maxAllocatedBinIndexExclusive()
	for idx := lo; idx < hi; idx++ {
		c := other.store.count(idx)
		if c > 0 {
			h.store.increaseCount(idx, c)
		}
	}
	return nil
}

func (h *Histogram) addHistogramCrossLayout(other *Histogram, ve ValueEstimator) error {
	it, err := other.NonEmptyBinsAscending()
	if err != nil {
		return err
	}
	for {
		bin := it.BinCopy()
		v := representativeValue(other, bin, ve)
		if err := h.addRawCount(v, bin.Count()); err != nil {
			return err
		}
		if err := it.Next(); err != nil {
			if errors.Is(err, ErrNoSuchElement) {
				break
			}
			return err
		}
	}
	return nil
}

// representativeValue picks one synthetic value standing in for an
// entire bin's worth of recorded values, for use when redistributing
// bin counts across differing layouts. It mirrors the rank-0/rank-last
// special casing GetValue applies, so a bin holding the source
// histogram's recorded min or max is never perturbed by interpolation
// against an unclamped bound.
func representativeValue(h *Histogram, bin Bin, ve ValueEstimator) float64 {
	rank := bin.LessCount() + (bin.Count()-1)/2
	if rank == 0 {
		return h.min
	}
	if rank+1 == h.totalCount {
		return h.max
	}
	return ve.EstimateValue(bin, rank)
}

// GetValue estimates the value at the given zero-based rank among all
// recorded values, using estimator (DefaultValueEstimator if none is
// given) to interpolate within whichever bin that rank falls in. Rank 0
// and rank GetTotalCount()-1 always return the exact recorded min and
// max.
func (h *Histogram) GetValue(rank uint64, estimator ...ValueEstimator) (float64, error) {
	if rank >= h.totalCount {
		return 0, invalidArgumentf("rank %d is out of range [0, %d)", rank, h.totalCount)
	}
	if rank == 0 {
		return h.min, nil
	}
	if rank+1 == h.totalCount {
		return h.max, nil
	}
	bin, err := h.GetBinByRank(rank)
	if err != nil {
		return 0, err
	}
	ve := DefaultValueEstimator
	if len(estimator) > 0 && estimator[0] != nil {
		ve = estimator[0]
	}
	return ve.EstimateValue(bin, rank), nil
}

// GetQuantile estimates the p-quantile (0 <= p <= 1) of the recorded
// distribution, using quantileEstimator (DefaultQuantileEstimator if
// none is given) to interpolate between adjacent ranks and
// valueEstimator (DefaultValueEstimator if none is given) to resolve
// each rank to a value.
func (h *Histogram) GetQuantile(p float64, quantileEstimator QuantileEstimator, valueEstimator ValueEstimator) float64 {
	if quantileEstimator == nil {
		quantileEstimator = DefaultQuantileEstimator
	}
	if valueEstimator == nil {
		valueEstimator = DefaultValueEstimator
	}
	return quantileEstimator.Estimate(p, h.totalCount, func(rank uint64) float64 {
		v, err := h.GetValue(rank, valueEstimator)
		if err != nil {
			return math.NaN()
		}
		return v
	})
}

// GetBinByRank returns an immutable snapshot of the bin containing the
// value at the given zero-based rank among all recorded values. It
// scans from whichever end of the allocated store window is closer to
// rank, which is optimal when ranks near either extreme are queried
// far more often than interior ones, as is typical for quantile
// estimation.
func (h *Histogram) GetBinByRank(rank uint64) (Bin, error) {
	if rank >= h.totalCount {
		return Bin{}, invalidArgumentf("rank %d is out of range [0, %d)", rank, h.totalCount)
	}

	if rank < h.underflowCount {
		return h.binAt(h.layout.UnderflowBinIndex(), 0, h.underflowCount), nil
	}
	if rank >= h.totalCount-h.overflowCount {
		return h.binAt(h.layout.OverflowBinIndex(), h.totalCount-h.overflowCount, h.totalCount), nil
	}

	lo := h.store.minAllocatedBinIndexInclusive()
	hi := h.store.maxAllocatedBinIndexExclusive()

	if rank < h.totalCount/2 {
		less := h.underflowCount
		for idx := lo; idx < hi; idx++ {
			c := h.store.count(idx)
			if c == 0 {
				continue
			}
			if rank < less+c {
				return h.binAt(idx, less, less+c), nil
			}
			less += c
		}
	} else {
		greaterBoundary := h.totalCount - h.overflowCount
		for idx := hi - 1; idx >= lo; idx-- {
			c := h.store.count(idx)
			if c == 0 {
				continue
			}
			if rank >= greaterBoundary-c {
				return h.binAt(idx, greaterBoundary-c, greaterBoundary), nil
			}
			greaterBoundary -= c
		}
	}

	return Bin{}, noSuchElementf("rank %d not found in any allocated bin", rank)
}

// binAt materializes the immutable Bin snapshot for binIndex, given the
// running count of values strictly below it (lessCount) and the
// exclusive upper running count (lessCount+count).
func (h *Histogram) binAt(binIndex int32, lessCount, lessOrEqualCount uint64) Bin {
	return newBin(h.layout, binIndex, lessCount, lessOrEqualCount-lessCount, h.totalCount, h.min, h.max)
}

// GetFirstNonEmptyBin returns an iterator positioned at the smallest
// bin index holding a recorded value. It fails with ErrNoSuchElement if
// the histogram is empty.
func (h *Histogram) GetFirstNonEmptyBin() (BinIterator, error) {
	return h.NonEmptyBinsAscending()
}

// GetLastNonEmptyBin returns an iterator positioned at the largest bin
// index holding a recorded value. It fails with ErrNoSuchElement if the
// histogram is empty.
func (h *Histogram) GetLastNonEmptyBin() (BinIterator, error) {
	return h.NonEmptyBinsDescending()
}

// histogramBinIterator is the BinIterator implementation backing
// NonEmptyBinsAscending and NonEmptyBinsDescending. It walks the
// store's allocated window directly rather than re-deriving rank
// boundaries with GetBinByRank on every step, so a full ascending or
// descending traversal costs O(allocated width) rather than O(bins *
// log bins).
type histogramBinIterator struct {
	h          *Histogram
	binIndex   int32
	lessCount  uint64 // running count of values strictly below binIndex
}

func (h *Histogram) firstNonEmptyBinIndex() (int32, bool) {
	if h.underflowCount > 0 {
		return h.layout.UnderflowBinIndex(), true
	}
	lo := h.store.minAllocatedBinIndexInclusive()
	hi := h.store.maxAllocatedBinIndexExclusive()
	for idx := lo; idx < hi; idx++ {
		if h.store.count(idx) > 0 {
			return idx, true
		}
	}
	if h.overflowCount > 0 {
		return h.layout.OverflowBinIndex(), true
	}
	return 0, false
}

func (h *Histogram) lastNonEmptyBinIndex() (int32, bool) {
	if h.overflowCount > 0 {
		return h.layout.OverflowBinIndex(), true
	}
	lo := h.store.minAllocatedBinIndexInclusive()
	hi := h.store.maxAllocatedBinIndexExclusive()
	for idx := hi - 1; idx >= lo; idx-- {
		if h.store.count(idx) > 0 {
			return idx, true
		}
	}
	if h.underflowCount > 0 {
		return h.layout.UnderflowBinIndex(), true
	}
	return 0, false
}

// NonEmptyBinsAscending returns an iterator starting at the first
// non-empty bin in ascending bin-index order. It fails with
// ErrNoSuchElement if the histogram is empty.
func (h *Histogram) NonEmptyBinsAscending() (BinIterator, error) {
	idx, ok := h.firstNonEmptyBinIndex()
	if !ok {
		return nil, noSuchElementf("histogram has no recorded values")
	}
	return &histogramBinIterator{h: h, binIndex: idx, lessCount: 0}, nil
}

// NonEmptyBinsDescending returns an iterator starting at the last
// non-empty bin in ascending bin-index order (i.e. Previous walks
// toward the first bin). It fails with ErrNoSuchElement if the
// histogram is empty.
func (h *Histogram) NonEmptyBinsDescending() (BinIterator, error) {
	idx, ok := h.lastNonEmptyBinIndex()
	if !ok {
		return nil, noSuchElementf("histogram has no recorded values")
	}
	count := h.binCountAt(idx)
	return &histogramBinIterator{h: h, binIndex: idx, lessCount: h.totalCount - count}, nil
}

func (h *Histogram) binCountAt(binIndex int32) uint64 {
	switch {
	case binIndex <= h.layout.UnderflowBinIndex():
		return h.underflowCount
	case binIndex >= h.layout.OverflowBinIndex():
		return h.overflowCount
	default:
		return h.store.count(binIndex)
	}
}

func (it *histogramBinIterator) BinCopy() Bin {
	count := it.h.binCountAt(it.binIndex)
	return it.h.binAt(it.binIndex, it.lessCount, it.lessCount+count)
}

func (it *histogramBinIterator) IsFirstNonEmptyBin() bool {
	return it.lessCount == 0
}

func (it *histogramBinIterator) IsLastNonEmptyBin() bool {
	return it.lessCount+it.h.binCountAt(it.binIndex) == it.h.totalCount
}

func (it *histogramBinIterator) Next() error {
	if it.IsLastNonEmptyBin() {
		return noSuchElementf("already on the last non-empty bin")
	}
	it.lessCount += it.h.binCountAt(it.binIndex)

	overflow := it.h.layout.OverflowBinIndex()
	lo := it.h.store.minAllocatedBinIndexInclusive()
	hi := it.h.store.maxAllocatedBinIndexExclusive()

	next := it.binIndex + 1
	if next < lo {
		next = lo
	}
	for next < overflow && next < hi {
		if it.h.store.count(next) > 0 {
			it.binIndex = next
			return nil
		}
		next++
	}
	if it.h.overflowCount > 0 {
		it.binIndex = overflow
		return nil
	}
	return noSuchElementf("already on the last non-empty bin")
}

func (it *histogramBinIterator) Previous() error {
	if it.IsFirstNonEmptyBin() {
		return noSuchElementf("already on the first non-empty bin")
	}

	underflow := it.h.layout.UnderflowBinIndex()
	lo := it.h.store.minAllocatedBinIndexInclusive()
	hi := it.h.store.maxAllocatedBinIndexExclusive()

	cur := it.binIndex
	if cur >= it.h.layout.OverflowBinIndex() {
		cur = hi
	}
	cur--
	for cur > underflow && cur >= lo {
		if it.h.store.count(cur) > 0 {
			it.binIndex = cur
			it.lessCount -= it.h.binCountAt(cur)
			return nil
		}
		cur--
	}
	if it.h.underflowCount > 0 {
		it.binIndex = underflow
		it.lessCount -= it.h.underflowCount
		return nil
	}
	return noSuchElementf("already on the first non-empty bin")
}

// GetEstimatedFootprintInBytes returns a rough estimate of the
// histogram's in-memory size, for capacity planning and diagnostics.
func (h *Histogram) GetEstimatedFootprintInBytes() int64 {
	const baseOverhead = 64
	switch s := h.store.(type) {
	case *StaticStore:
		return baseOverhead + int64(len(s.counts))*8
	case *DynamicStore:
		return baseOverhead + int64(len(s.data))
	default:
		return baseOverhead
	}
}

// Equal reports whether h and other have recorded the same values: the
// same layout, the same min/max/total/underflow/overflow counts, and
// identical per-bin counts.
func (h *Histogram) Equal(other *Histogram) bool {
	if other == nil {
		return false
	}
	if h.totalCount != other.totalCount ||
		h.underflowCount != other.underflowCount ||
		h.overflowCount != other.overflowCount {
		return false
	}
	if h.totalCount > 0 && (h.min != other.min || h.max != other.max) {
		return false
	}
	if !h.layout.Equal(other.layout) {
		return false
	}
	if h.totalCount == 0 {
		return true
	}

	itA, errA := h.NonEmptyBinsAscending()
	itB, errB := other.NonEmptyBinsAscending()
	if errA != nil || errB != nil {
		return (errA == nil) == (errB == nil)
	}
	for {
		a, b := itA.BinCopy(), itB.BinCopy()
		if a.BinIndex() != b.BinIndex() || a.Count() != b.Count() {
			return false
		}
		errA = itA.Next()
		errB = itB.Next()
		if errA != nil || errB != nil {
			return (errA == nil) == (errB == nil)
		}
	}
}

// HashCode returns a deterministic hash suitable for grouping
// histograms. It combines the total, underflow and overflow counts,
// the bit patterns of min and max, and the (bin index, count) pairs in
// ascending bin order. The layout is not part of the hash: histograms
// that differ only in their Layout hash alike although Equal reports
// them as different.
func (h *Histogram) HashCode() uint64 {
	hash := xxhashSeed
	hash = hashCombine(hash, h.totalCount)
	hash = hashCombine(hash, h.underflowCount)
	hash = hashCombine(hash, h.overflowCount)
	if h.totalCount > 0 {
		hash = hashCombine(hash, math.Float64bits(h.min))
		hash = hashCombine(hash, math.Float64bits(h.max))
	}
	it, err := h.NonEmptyBinsAscending()
	if err != nil {
		return hash
	}
	for {
		b := it.BinCopy()
		hash = hashCombine(hash, uint64(uint32(b.BinIndex())))
		hash = hashCombine(hash, b.Count())
		if err := it.Next(); err != nil {
			break
		}
	}
	return hash
}

const xxhashSeed = uint64(14695981039346656037)

func hashCombine(h, v uint64) uint64 {
	h ^= v
	h *= 1099511628211
	return h
}

// GetPreprocessedCopy takes an immutable snapshot of h optimized for
// repeated rank and quantile queries: bin lookups drop from the
// allocation-window scan GetBinByRank performs to a binary search over
// a flat prefix-sum array.
func (h *Histogram) GetPreprocessedCopy() *Preprocessed {
	p := &Preprocessed{
		layout:         h.layout,
		underflowCount: h.underflowCount,
		overflowCount:  h.overflowCount,
		totalCount:     h.totalCount,
		min:            h.min,
		max:            h.max,
	}
	if h.totalCount == 0 {
		return p
	}

	it, err := h.NonEmptyBinsAscending()
	if err != nil {
		return p
	}
	for {
		b := it.BinCopy()
		p.binIndices = append(p.binIndices, b.BinIndex())
		p.counts = append(p.counts, b.Count())
		if err := it.Next(); err != nil {
			break
		}
	}

	p.prefixCounts = make([]uint64, len(p.counts)+1)
	for i, c := range p.counts {
		p.prefixCounts[i+1] = p.prefixCounts[i] + c
	}
	return p
}

func (h *Histogram) String() string {
	return fmt.Sprintf("Histogram [layout=%v, underflowCount=%d, overflowCount=%d, totalCount=%d, min=%v, max=%v]",
		h.layout, h.underflowCount, h.overflowCount, h.totalCount, h.min, h.max)
}

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

import "math"

const histogramWireVersion byte = 1

const (
	flagHasAggregates byte = 1 << 0 // totalCount > 0, so min/max exist
	flagMinDiffers     byte = 1 << 1 // min is written explicitly rather than recomputed from the layout
	flagMaxDiffers     byte = 1 << 2
	flagDynamicStore   byte = 1 << 3 // payload is packed-width (dynamic) rather than fixed uint64 (static)
	flagHasRegularBins byte = 1 << 4 // at least one non-underflow/non-overflow bin is non-empty
)

// Write serializes h to sink. The written stream does not embed h's
// Layout; ReadAsStatic/ReadAsDynamic/ReadAsPreprocessed must be given
// the same Layout used to write it.
func (h *Histogram) Write(sink Sink) error {
	if err := sink.WriteByte(histogramWireVersion); err != nil {
		return err
	}

	empty := h.totalCount == 0
	regFirst, regLast, hasRegularBins := h.firstAndLastNonEmptyRegularBinIndex()

	var minDiffers, maxDiffers bool
	if !empty {
		if hasRegularBins {
			minDiffers = h.min != h.layout.BinLowerBound(regFirst)
			maxDiffers = h.max != h.layout.BinUpperBound(regLast)
		} else {
			minDiffers, maxDiffers = true, true
		}
	}

	_, dynamic := h.store.(*DynamicStore)

	var flags byte
	if !empty {
		flags |= flagHasAggregates
	}
	if minDiffers {
		flags |= flagMinDiffers
	}
	if maxDiffers {
		flags |= flagMaxDiffers
	}
	if dynamic {
		flags |= flagDynamicStore
	}
	if hasRegularBins {
		flags |= flagHasRegularBins
	}
	if err := sink.WriteByte(flags); err != nil {
		return err
	}

	if minDiffers {
		if err := sink.WriteDouble(h.min); err != nil {
			return err
		}
	}
	if maxDiffers {
		if err := sink.WriteDouble(h.max); err != nil {
			return err
		}
	}

	if err := sink.WriteUnsignedVarint(h.underflowCount); err != nil {
		return err
	}
	if err := sink.WriteUnsignedVarint(h.overflowCount); err != nil {
		return err
	}
	if err := sink.WriteUnsignedVarint(h.totalCount); err != nil {
		return err
	}

	if !hasRegularBins {
		return nil
	}
	if err := sink.WriteSignedVarint(int64(regFirst)); err != nil {
		return err
	}
	if err := sink.WriteSignedVarint(int64(regLast)); err != nil {
		return err
	}
	if dynamic {
		return h.writeDynamicCountPayload(sink, regFirst, regLast)
	}
	return h.writeStaticCountPayload(sink, regFirst, regLast)
}

func (h *Histogram) writeStaticCountPayload(sink Sink, first, last int32) error {
	for idx := first; idx <= last; idx++ {
		if err := sink.WriteUint64(h.store.count(idx)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Histogram) writeDynamicCountPayload(sink Sink, first, last int32) error {
	var maxCount uint64
	for idx := first; idx <= last; idx++ {
		if c := h.store.count(idx); c > maxCount {
			maxCount = c
		}
	}
	width := 1
	for maxCount > maxForWidth(width) {
		width *= 2
	}
	if err := sink.WriteByte(byte(width)); err != nil {
		return err
	}
	var buf [8]byte
	for idx := first; idx <= last; idx++ {
		writeWidth(buf[:], 0, width, h.store.count(idx))
		if err := sink.WriteBytes(buf[:width]); err != nil {
			return err
		}
	}
	return nil
}

// firstAndLastNonEmptyRegularBinIndex scans the store's allocation
// window for the narrowest [first, last] range of non-underflow,
// non-overflow bin indices holding a non-zero count. The underflow and
// overflow aggregates are always serialized separately, so they are
// deliberately excluded here.
func (h *Histogram) firstAndLastNonEmptyRegularBinIndex() (first, last int32, ok bool) {
	lo := h.store.minAllocatedBinIndexInclusive()
	hi := h.store.maxAllocatedBinIndexExclusive()
	for idx := lo; idx < hi; idx++ {
		if h.store.count(idx) > 0 {
			first = idx
			ok = true
			break
		}
	}
	if !ok {
		return 0, 0, false
	}
	for idx := hi - 1; idx >= lo; idx-- {
		if h.store.count(idx) > 0 {
			last = idx
			break
		}
	}
	return first, last, true
}

func readHistogram(layout Layout, source Source, newStore func() binCountStore) (*Histogram, error) {
	version, err := source.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != histogramWireVersion {
		return nil, dataFormatf("unsupported histogram wire version %d", version)
	}

	flags, err := source.ReadByte()
	if err != nil {
		return nil, err
	}
	hasAggregates := flags&flagHasAggregates != 0
	minDiffers := flags&flagMinDiffers != 0
	maxDiffers := flags&flagMaxDiffers != 0
	dynamic := flags&flagDynamicStore != 0
	hasRegularBins := flags&flagHasRegularBins != 0

	var rawMin, rawMax float64
	if minDiffers {
		if rawMin, err = source.ReadDouble(); err != nil {
			return nil, err
		}
	}
	if maxDiffers {
		if rawMax, err = source.ReadDouble(); err != nil {
			return nil, err
		}
	}

	underflowCount, err := source.ReadUnsignedVarint()
	if err != nil {
		return nil, err
	}
	overflowCount, err := source.ReadUnsignedVarint()
	if err != nil {
		return nil, err
	}
	totalCount, err := source.ReadUnsignedVarint()
	if err != nil {
		return nil, err
	}

	h := &Histogram{
		layout:         layout,
		store:          newStore(),
		underflowCount: underflowCount,
		overflowCount:  overflowCount,
		totalCount:     totalCount,
		min:            math.Inf(1),
		max:            math.Inf(-1),
	}
	if !hasAggregates {
		return h, nil
	}

	if !hasRegularBins {
		h.min, h.max = rawMin, rawMax
		return h, nil
	}

	first64, err := source.ReadSignedVarint()
	if err != nil {
		return nil, err
	}
	last64, err := source.ReadSignedVarint()
	if err != nil {
		return nil, err
	}
	first, last := int32(first64), int32(last64)

	if minDiffers {
		h.min = rawMin
	} else {
		h.min = layout.BinLowerBound(first)
	}
	if maxDiffers {
		h.max = rawMax
	} else {
		h.max = layout.BinUpperBound(last)
	}

	if dynamic {
		err = readDynamicCountPayload(source, h.store, first, last)
	} else {
		err = readStaticCountPayload(source, h.store, first, last)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func readStaticCountPayload(source Source, store binCountStore, first, last int32) error {
	for idx := first; idx <= last; idx++ {
		v, err := source.ReadUint64()
		if err != nil {
			return err
		}
		if v > 0 {
			store.increaseCount(idx, v)
		}
	}
	return nil
}

func readDynamicCountPayload(source Source, store binCountStore, first, last int32) error {
	widthByte, err := source.ReadByte()
	if err != nil {
		return err
	}
	width := int(widthByte)
	for idx := first; idx <= last; idx++ {
		raw, err := source.ReadBytes(width)
		if err != nil {
			return err
		}
		v := readWidth(raw, 0, width)
		if v > 0 {
			store.increaseCount(idx, v)
		}
	}
	return nil
}

// ReadAsStatic reads back a Histogram written by Write, backed by a
// StaticStore sized to layout's full regular bin range.
func ReadAsStatic(layout Layout, source Source) (*Histogram, error) {
	return readHistogram(layout, source, func() binCountStore {
		return NewStaticStore(layout.UnderflowBinIndex(), layout.OverflowBinIndex())
	})
}

// ReadAsDynamic reads back a Histogram written by Write, backed by a
// DynamicStore that allocates only over the bin range actually
// present in the stream.
func ReadAsDynamic(layout Layout, source Source) (*Histogram, error) {
	return readHistogram(layout, source, func() binCountStore {
		return NewDynamicStore()
	})
}

// ReadAsPreprocessed reads back a Histogram written by Write and
// immediately freezes it into a Preprocessed view, skipping the
// intermediate mutable Histogram's store representation from the
// caller's perspective.
func ReadAsPreprocessed(layout Layout, source Source) (*Preprocessed, error) {
	h, err := ReadAsDynamic(layout, source)
	if err != nil {
		return nil, err
	}
	return h.GetPreprocessedCopy(), nil
}

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
	"bytes"
	"sync"
)

// Layout is an immutable value object defining the bins of a Histogram:
// a deterministic, monotone, reversible map between a float64 value and
// an integer bin index. All implementations must be safe for concurrent
// use by any number of readers, since Layouts are shared freely.
type Layout interface {
	// MapToBinIndex maps value to the index of the bin it belongs to.
	// It must be monotone non-decreasing on finite doubles. NaN must
	// map to an index outside (UnderflowBinIndex(), OverflowBinIndex()).
	MapToBinIndex(value float64) int32

	// UnderflowBinIndex returns the maximum index associated with the
	// underflow bin. UnderflowBinIndex() < OverflowBinIndex() always.
	UnderflowBinIndex() int32

	// OverflowBinIndex returns the minimum index associated with the
	// overflow bin.
	OverflowBinIndex() int32

	// BinLowerBound returns the smallest value mapped to binIndex. It
	// is NegInf for binIndex <= UnderflowBinIndex() and constant for
	// binIndex >= OverflowBinIndex().
	BinLowerBound(binIndex int32) float64

	// BinUpperBound returns the largest value mapped to binIndex,
	// symmetric to BinLowerBound.
	BinUpperBound(binIndex int32) float64

	// NormalRangeLowerBound returns the smallest value that can be
	// mapped into a regular (non-underflow, non-overflow) bin.
	NormalRangeLowerBound() float64

	// NormalRangeUpperBound returns the largest value that can be
	// mapped into a regular bin.
	NormalRangeUpperBound() float64

	// Equal reports whether other is a Layout of the same variant with
	// identical construction parameters.
	Equal(other Layout) bool

	// String returns a human-readable representation, mirroring the
	// original DynaHist toString() conventions.
	String() string

	// serialVersion identifies the variant's wire format.
	serialVersion() uint64

	// writeBody serializes only the variant-specific parameters; the
	// serial_version tag and fingerprint framing are handled by
	// WriteLayoutWithTypeInfo.
	writeBody(sink Sink) error
}

// layoutReaderFunc reconstructs a Layout from its serialized body.
type layoutReaderFunc func(source Source) (Layout, error)

// layoutWriterFunc serializes a Layout's variant-specific body. It has
// the same signature as Layout.writeBody. A LayoutSerializationDefinition
// stores it next to the reader, but WriteLayoutWithTypeInfo always calls
// the Layout's own writeBody, so the stored writer is not used when
// writing.
type layoutWriterFunc func(l Layout, sink Sink) error

// LayoutSerializationDefinition represents the serialization definition
// for a Layout variant: a unique serial version tag paired with a
// writer and a reader for that variant's wire body.
type LayoutSerializationDefinition struct {
	serialVersion uint64
	typeName      string
	writer        layoutWriterFunc
	reader        layoutReaderFunc
}

// DefineLayoutSerialization builds a new LayoutSerializationDefinition
// that can be passed to RegisterLayoutSerializations. serialVersion
// should be a randomly chosen constant unique to typeName.
func DefineLayoutSerialization(serialVersion uint64, typeName string, writer layoutWriterFunc, reader layoutReaderFunc) LayoutSerializationDefinition {
	return LayoutSerializationDefinition{
		serialVersion: serialVersion,
		typeName:      typeName,
		writer:        writer,
		reader:        reader,
	}
}

var (
	layoutRegistryMu  sync.Mutex
	layoutRegistry    = map[uint64]LayoutSerializationDefinition{}
	reservedSerialMin = uint64(0)
	reservedSerialMax = uint64(15) // reserved for built-in variants, see init()
)

// RegisterLayoutSerializations registers the given layout serialization
// definitions so they are known to subsequent WriteLayoutWithTypeInfo
// and ReadLayoutWithTypeInfo calls. Registering an identical binding
// (same serialVersion and typeName) twice succeeds idempotently;
// registering a different typeName under an already-bound serialVersion
// fails. Serial versions in the reserved built-in range cannot be
// (re-)registered by callers.
func RegisterLayoutSerializations(defs ...LayoutSerializationDefinition) error {
	layoutRegistryMu.Lock()
	defer layoutRegistryMu.Unlock()
	for _, def := range defs {
		if err := registerLocked(def, false); err != nil {
			return err
		}
	}
	return nil
}

// mustRegisterBuiltinLayout registers one of the built-in Layout
// variants under a reserved serial version tag. It panics on failure,
// which can only happen if two built-in variants are mistakenly given
// the same tag - a programmer error caught at package init time.
func mustRegisterBuiltinLayout(serialVersion uint64, typeName string, writer layoutWriterFunc, reader layoutReaderFunc) {
	layoutRegistryMu.Lock()
	defer layoutRegistryMu.Unlock()
	def := DefineLayoutSerialization(serialVersion, typeName, writer, reader)
	if err := registerLocked(def, true); err != nil {
		panic(err)
	}
}

func registerLocked(def LayoutSerializationDefinition, builtin bool) error {
	if !builtin && def.serialVersion >= reservedSerialMin && def.serialVersion <= reservedSerialMax {
		return invalidArgumentf("serial version %d is reserved for built-in layouts", def.serialVersion)
	}
	existing, ok := layoutRegistry[def.serialVersion]
	if ok {
		if existing.typeName != def.typeName {
			return invalidArgumentf("serial version %d already registered for layout type %q, cannot register %q", def.serialVersion, existing.typeName, def.typeName)
		}
		return nil // idempotent re-registration of an identical binding
	}
	layoutRegistry[def.serialVersion] = def
	return nil
}

// WriteLayoutWithTypeInfo writes l preceded by its serial_version tag
// and a content fingerprint over the serialized body, so a reader can
// detect a corrupted or truncated body before parsing it.
func WriteLayoutWithTypeInfo(l Layout, sink Sink) error {
	var bodyBuf bytes.Buffer
	bodySink := NewSink(&bodyBuf)
	if err := l.writeBody(bodySink); err != nil {
		return err
	}
	body := bodyBuf.Bytes()

	if err := sink.WriteUnsignedVarint(l.serialVersion()); err != nil {
		return err
	}
	if err := sink.WriteUint64(fingerprintBytes(body)); err != nil {
		return err
	}
	if err := sink.WriteUnsignedVarint(uint64(len(body))); err != nil {
		return err
	}
	return sink.WriteBytes(body)
}

// ReadLayoutWithTypeInfo reads back a Layout written by
// WriteLayoutWithTypeInfo, dispatching to the reader registered for its
// serial_version tag.
func ReadLayoutWithTypeInfo(source Source) (Layout, error) {
	serialVersion, err := source.ReadUnsignedVarint()
	if err != nil {
		return nil, err
	}
	wantFingerprint, err := source.ReadUint64()
	if err != nil {
		return nil, err
	}
	bodyLen, err := source.ReadUnsignedVarint()
	if err != nil {
		return nil, err
	}
	body, err := source.ReadBytes(int(bodyLen))
	if err != nil {
		return nil, err
	}
	if got := fingerprintBytes(body); got != wantFingerprint {
		return nil, dataFormatf("layout body fingerprint mismatch: want %x, got %x", wantFingerprint, got)
	}

	layoutRegistryMu.Lock()
	def, ok := layoutRegistry[serialVersion]
	layoutRegistryMu.Unlock()
	if !ok {
		return nil, dataFormatf("unknown layout serial version %d", serialVersion)
	}
	return def.reader(NewSource(bytes.NewReader(body)))
}

// binLowerBoundViaSearch implements Layout.BinLowerBound in terms of
// MapToBinIndex alone via monotone bisection seeded with hint. Variants
// with a cheap analytic approximate inverse (see layout_base.go) pass
// their approximation as hint to gallop straight to the exact answer;
// variants without one pass negativeInfinityMappedToLong, from which the
// search gallops forward before bisecting.
func binLowerBoundViaSearch(l Layout, binIndex int32, hint int64) float64 {
	if binIndex <= l.UnderflowBinIndex() {
		return negInf
	}
	effective := binIndex
	if l.OverflowBinIndex() < effective {
		effective = l.OverflowBinIndex()
	}
	key := findFirst(func(key int64) bool {
		return l.MapToBinIndex(mapLongToDouble(key)) >= effective
	}, negativeInfinityMappedToLong, positiveInfinityMappedToLong, hint)
	return mapLongToDouble(key)
}

// defaultBinLowerBound is binLowerBoundViaSearch with no acceleration
// hint, for variants with no cheaper analytic inverse.
func defaultBinLowerBound(l Layout, binIndex int32) float64 {
	return binLowerBoundViaSearch(l, binIndex, negativeInfinityMappedToLong)
}

// defaultBinUpperBound implements Layout.BinUpperBound as
// predecessor(BinLowerBound(binIndex+1)), exactly as spec'd for the
// round-trip invariant: the upper bound of a regular bin is the double
// immediately below the lower bound of the next bin.
func defaultBinUpperBound(l Layout, binIndex int32) float64 {
	if binIndex >= l.OverflowBinIndex() {
		return posInf
	}
	return predecessor(defaultBinLowerBound(l, binIndex+1))
}

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
)

// openTelemetrySerialVersion is the built-in serial version tag for
// OpenTelemetryExponentialBucketsLayout's wire format.
const openTelemetrySerialVersion = uint64(5)

// minOTelPrecision and maxOTelPrecision bound the OpenTelemetry
// exponential histogram "scale" parameter to the range the OTel
// metrics SDK itself accepts; outside it the base 2^(2^-precision) is
// either indistinguishable from 1 or grows too coarse to be useful.
const (
	minOTelPrecision = int32(-10)
	maxOTelPrecision = int32(20)
)

// otelNearZeroThreshold is the smallest positive normal double
// (2^-1022). OpenTelemetryExponentialBucketsLayout collapses the
// subnormal range below it into the single bin adjoining zero, so that
// unsignedIndex stays bounded (equal to 0) as v approaches zero instead
// of diverging to -Inf. Without that floor, mirroring the formula
// around zero to cover negative values as well would not be monotone:
// a magnitude-driven log scale has no finite limit at zero, so two
// tiny values of opposite sign would otherwise land on opposite sides
// of the entire index range instead of next to each other.
var otelNearZeroThreshold = math.Ldexp(1, -1022)

// OpenTelemetryExponentialBucketsLayout reproduces the bucketing
// function of the OpenTelemetry exponential histogram data point: bin
// boundaries are consecutive powers of the base b = 2^(2^-precision),
// so value v falls in bin ceil(log_b(v) - log_b(otelNearZeroThreshold))
// above that threshold, and in a single flat bin below it. Unlike the
// other Log* layouts it takes no value range or error limits - it
// buckets the entire representable double range uniformly in log
// space. It exists to let a Histogram built on dynahist's engine
// interoperate with systems that already speak the OpenTelemetry
// bucket layout.
type OpenTelemetryExponentialBucketsLayout struct {
	precision    int32
	scaleFactor  float64 // 2^precision
	logThreshold float64 // log2(otelNearZeroThreshold)

	underflowBinIndex int32
	overflowBinIndex  int32
}

// NewOpenTelemetryExponentialBucketsLayout builds a layout with the
// given OpenTelemetry precision parameter (their "scale"), covering the
// full range of representable non-zero doubles.
func NewOpenTelemetryExponentialBucketsLayout(precision int32) (*OpenTelemetryExponentialBucketsLayout, error) {
	if precision < minOTelPrecision || precision > maxOTelPrecision {
		return nil, invalidArgumentf("precision %d is outside the supported range [%d, %d]", precision, minOTelPrecision, maxOTelPrecision)
	}

	l := &OpenTelemetryExponentialBucketsLayout{
		precision:    precision,
		scaleFactor:  math.Exp2(float64(precision)),
		logThreshold: math.Log2(otelNearZeroThreshold),
	}

	underflow := int64(l.signedIndex(-math.MaxFloat64)) - 1
	overflow := int64(l.signedIndex(math.MaxFloat64)) + 1
	if overflow-underflow-1 > math.MaxInt32 {
		return nil, invalidArgumentf("precision %d would require more than %d regular bins to cover the double range", precision, math.MaxInt32)
	}
	l.underflowBinIndex = clampInt32(underflow)
	l.overflowBinIndex = clampInt32(overflow)
	return l, nil
}

// unsignedIndex maps v > 0 to its bucket offset above otelNearZeroThreshold,
// floored at 0 for v at or below the threshold so that signedIndex stays
// monotone across zero.
func (l *OpenTelemetryExponentialBucketsLayout) unsignedIndex(v float64) int64 {
	if math.IsInf(v, 1) {
		return math.MaxInt64 / 2
	}
	if v <= otelNearZeroThreshold {
		return 0
	}
	return int64(math.Ceil((math.Log2(v) - l.logThreshold) * l.scaleFactor))
}

func (l *OpenTelemetryExponentialBucketsLayout) signedIndex(value float64) int32 {
	switch {
	case math.IsNaN(value):
		return math.MaxInt32
	case value == 0:
		return 0
	case value > 0:
		return clampInt32(l.unsignedIndex(value))
	default:
		return clampInt32(-1 - l.unsignedIndex(-value))
	}
}

func (l *OpenTelemetryExponentialBucketsLayout) MapToBinIndex(value float64) int32 {
	return l.signedIndex(value)
}

func (l *OpenTelemetryExponentialBucketsLayout) UnderflowBinIndex() int32 { return l.underflowBinIndex }
func (l *OpenTelemetryExponentialBucketsLayout) OverflowBinIndex() int32 { return l.overflowBinIndex }

// binLowerBoundApproximation inverts unsignedIndex: the positive bin
// with index i has approximate lower bound
// 2^(logThreshold + i/scaleFactor), mirrored for negative indices. It
// is only ever used to seed the exact bisection in layout_base.go, so
// approximate is all it needs to be.
func (l *OpenTelemetryExponentialBucketsLayout) binLowerBoundApproximation(binIndex int32) float64 {
	if binIndex >= 0 {
		return math.Exp2(l.logThreshold + float64(binIndex)/l.scaleFactor)
	}
	return -math.Exp2(l.logThreshold + float64(-1-binIndex)/l.scaleFactor)
}

func (l *OpenTelemetryExponentialBucketsLayout) BinLowerBound(binIndex int32) float64 {
	return approxBinLowerBound(l, binIndex)
}
func (l *OpenTelemetryExponentialBucketsLayout) BinUpperBound(binIndex int32) float64 {
	return approxBinUpperBound(l, binIndex)
}

func (l *OpenTelemetryExponentialBucketsLayout) NormalRangeLowerBound() float64 {
	return l.BinLowerBound(l.underflowBinIndex + 1)
}

func (l *OpenTelemetryExponentialBucketsLayout) NormalRangeUpperBound() float64 {
	return l.BinUpperBound(l.overflowBinIndex - 1)
}

func (l *OpenTelemetryExponentialBucketsLayout) Equal(other Layout) bool {
	o, ok := other.(*OpenTelemetryExponentialBucketsLayout)
	if !ok {
		return false
	}
	return l.precision == o.precision
}

func (l *OpenTelemetryExponentialBucketsLayout) String() string {
	return fmt.Sprintf("OpenTelemetryExponentialBucketsLayout [precision=%d]", l.precision)
}

func (l *OpenTelemetryExponentialBucketsLayout) serialVersion() uint64 { return openTelemetrySerialVersion }

func (l *OpenTelemetryExponentialBucketsLayout) writeBody(sink Sink) error {
	return sink.WriteSignedVarint(int64(l.precision))
}

func readOpenTelemetryExponentialBucketsLayout(source Source) (Layout, error) {
	precision, err := source.ReadSignedVarint()
	if err != nil {
		return nil, err
	}
	return NewOpenTelemetryExponentialBucketsLayout(int32(precision))
}

func init() {
	mustRegisterBuiltinLayout(openTelemetrySerialVersion, "OpenTelemetryExponentialBucketsLayout", func(l Layout, sink Sink) error {
		return l.writeBody(sink)
	}, readOpenTelemetryExponentialBucketsLayout)
}

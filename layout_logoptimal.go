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

// logOptimalSerialVersion is the built-in serial version tag for
// LogOptimalLayout's wire format.
const logOptimalSerialVersion = uint64(3)

// LogOptimalLayout computes the log position with the real logarithm,
// achieving the minimal bin count a log-ratio bucketer can reach for
// the given error budget at the cost of an actual math.Log2 call per
// lookup. Prefer LogLinearLayout or LogQuadraticLayout unless memory is
// the binding constraint.
type LogOptimalLayout struct {
	logLayout
}

// NewLogOptimalLayout builds a LogOptimalLayout covering
// [valueRangeLowerBound, valueRangeUpperBound] such that every bin's
// width satisfies the absoluteError or relativeError limit.
func NewLogOptimalLayout(absoluteError, relativeError, valueRangeLowerBound, valueRangeUpperBound float64) (*LogOptimalLayout, error) {
	core, err := newLogLayout("LogOptimalLayout", exactLog2, absoluteError, relativeError, valueRangeLowerBound, valueRangeUpperBound)
	if err != nil {
		return nil, err
	}
	return &LogOptimalLayout{logLayout: core}, nil
}

func (l *LogOptimalLayout) BinLowerBound(binIndex int32) float64 {
	return approxBinLowerBound(l, binIndex)
}
func (l *LogOptimalLayout) BinUpperBound(binIndex int32) float64 {
	return approxBinUpperBound(l, binIndex)
}

func (l *LogOptimalLayout) Equal(other Layout) bool {
	o, ok := other.(*LogOptimalLayout)
	if !ok {
		return false
	}
	return logParamsEqual(l.core, o.core) && l.lo == o.lo && l.hi == o.hi
}

func (l *LogOptimalLayout) serialVersion() uint64 { return logOptimalSerialVersion }

func (l *LogOptimalLayout) writeBody(sink Sink) error {
	return writeLogParams(sink, l.lo, l.hi, l.core)
}

func readLogOptimalLayout(source Source) (Layout, error) {
	absoluteError, relativeError, lo, hi, err := readLogParams(source)
	if err != nil {
		return nil, err
	}
	return NewLogOptimalLayout(absoluteError, relativeError, lo, hi)
}

func init() {
	mustRegisterBuiltinLayout(logOptimalSerialVersion, "LogOptimalLayout", func(l Layout, sink Sink) error {
		return l.writeBody(sink)
	}, readLogOptimalLayout)
}

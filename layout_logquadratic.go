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

// logQuadraticSerialVersion is the built-in serial version tag for
// LogQuadraticLayout's wire format.
const logQuadraticSerialVersion = uint64(2)

// LogQuadraticLayout is like LogLinearLayout but approximates the log
// position with a quadratic correction to the mantissa, giving tighter
// bin packing (fewer bins for the same error budget) at the cost of one
// extra multiply per lookup.
type LogQuadraticLayout struct {
	logLayout
}

// NewLogQuadraticLayout builds a LogQuadraticLayout covering
// [valueRangeLowerBound, valueRangeUpperBound] such that every bin's
// width satisfies the absoluteError or relativeError limit.
func NewLogQuadraticLayout(absoluteError, relativeError, valueRangeLowerBound, valueRangeUpperBound float64) (*LogQuadraticLayout, error) {
	core, err := newLogLayout("LogQuadraticLayout", approxLog2Quadratic, absoluteError, relativeError, valueRangeLowerBound, valueRangeUpperBound)
	if err != nil {
		return nil, err
	}
	return &LogQuadraticLayout{logLayout: core}, nil
}

func (l *LogQuadraticLayout) BinLowerBound(binIndex int32) float64 {
	return approxBinLowerBound(l, binIndex)
}
func (l *LogQuadraticLayout) BinUpperBound(binIndex int32) float64 {
	return approxBinUpperBound(l, binIndex)
}

func (l *LogQuadraticLayout) Equal(other Layout) bool {
	o, ok := other.(*LogQuadraticLayout)
	if !ok {
		return false
	}
	return logParamsEqual(l.core, o.core) && l.lo == o.lo && l.hi == o.hi
}

func (l *LogQuadraticLayout) serialVersion() uint64 { return logQuadraticSerialVersion }

func (l *LogQuadraticLayout) writeBody(sink Sink) error {
	return writeLogParams(sink, l.lo, l.hi, l.core)
}

func readLogQuadraticLayout(source Source) (Layout, error) {
	absoluteError, relativeError, lo, hi, err := readLogParams(source)
	if err != nil {
		return nil, err
	}
	return NewLogQuadraticLayout(absoluteError, relativeError, lo, hi)
}

func init() {
	mustRegisterBuiltinLayout(logQuadraticSerialVersion, "LogQuadraticLayout", func(l Layout, sink Sink) error {
		return l.writeBody(sink)
	}, readLogQuadraticLayout)
}

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

// logLinearSerialVersion is the built-in serial version tag for
// LogLinearLayout's wire format.
const logLinearSerialVersion = uint64(1)

// LogLinearLayout buckets values using linear bins of width
// 2*absoluteError near zero and log-ratio bins above a normal
// threshold, where the log position is approximated by a linear
// function of the IEEE-754 mantissa. It is the cheapest of the three
// logarithmic layouts to evaluate, trading a slightly looser bin
// packing for speed.
type LogLinearLayout struct {
	logLayout
}

// NewLogLinearLayout builds a LogLinearLayout covering [valueRangeLowerBound,
// valueRangeUpperBound] such that every bin's width satisfies the
// absoluteError or relativeError limit.
func NewLogLinearLayout(absoluteError, relativeError, valueRangeLowerBound, valueRangeUpperBound float64) (*LogLinearLayout, error) {
	core, err := newLogLayout("LogLinearLayout", approxLog2Linear, absoluteError, relativeError, valueRangeLowerBound, valueRangeUpperBound)
	if err != nil {
		return nil, err
	}
	return &LogLinearLayout{logLayout: core}, nil
}

func (l *LogLinearLayout) BinLowerBound(binIndex int32) float64 { return approxBinLowerBound(l, binIndex) }
func (l *LogLinearLayout) BinUpperBound(binIndex int32) float64 { return approxBinUpperBound(l, binIndex) }

func (l *LogLinearLayout) Equal(other Layout) bool {
	o, ok := other.(*LogLinearLayout)
	if !ok {
		return false
	}
	return logParamsEqual(l.core, o.core) && l.lo == o.lo && l.hi == o.hi
}

func (l *LogLinearLayout) serialVersion() uint64 { return logLinearSerialVersion }

func (l *LogLinearLayout) writeBody(sink Sink) error {
	return writeLogParams(sink, l.lo, l.hi, l.core)
}

func readLogLinearLayout(source Source) (Layout, error) {
	absoluteError, relativeError, lo, hi, err := readLogParams(source)
	if err != nil {
		return nil, err
	}
	return NewLogLinearLayout(absoluteError, relativeError, lo, hi)
}

func init() {
	mustRegisterBuiltinLayout(logLinearSerialVersion, "LogLinearLayout", func(l Layout, sink Sink) error {
		return l.writeBody(sink)
	}, readLogLinearLayout)
}

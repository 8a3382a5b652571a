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

// approximatingLayout is implemented by layout variants that can cheaply
// compute an approximate lower bound for a bin index from a closed-form
// formula. approxBinLowerBound/approxBinUpperBound use that
// approximation purely as a search hint and always snap to the exact
// value via monotone bisection (see numeric.go's findFirst), so the
// round-trip invariant in spec.md §3 holds regardless of how good the
// approximation is.
type approximatingLayout interface {
	Layout
	// binLowerBoundApproximation gives an approximation of the lower
	// bound of the bin with the given index. It must be defined for
	// every index in (UnderflowBinIndex(), OverflowBinIndex()] and must
	// never return NaN.
	binLowerBoundApproximation(binIndex int32) float64
}

// approxBinLowerBound is the shared Layout.BinLowerBound implementation
// for approximatingLayout variants, ported from AbstractLayout's
// getBinLowerBound in the original DynaHist sources.
func approxBinLowerBound(l approximatingLayout, binIndex int32) float64 {
	if binIndex <= l.UnderflowBinIndex() {
		return negInf
	}
	effective := binIndex
	if l.OverflowBinIndex() < effective {
		effective = l.OverflowBinIndex()
	}
	hint := mapDoubleToLong(l.binLowerBoundApproximation(effective))
	return binLowerBoundViaSearch(l, binIndex, hint)
}

// approxBinUpperBound is the shared Layout.BinUpperBound implementation
// for approximatingLayout variants.
func approxBinUpperBound(l approximatingLayout, binIndex int32) float64 {
	if binIndex >= l.OverflowBinIndex() {
		return posInf
	}
	effective := binIndex
	if l.UnderflowBinIndex() > effective {
		effective = l.UnderflowBinIndex()
	}
	hint := mapDoubleToLong(l.binLowerBoundApproximation(effective + 1))
	return predecessor(binLowerBoundViaSearch(l, effective+1, hint))
}

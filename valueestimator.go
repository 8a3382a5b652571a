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

// ValueEstimator places a synthetic sample within a bin given the
// bin's counts and bounds, for a given zero-based rank that is known
// to fall within that bin. Implementations need not return the
// histogram's minimum for rank 0 or its maximum for the last rank:
// Histogram.GetValue and Preprocessed.GetValue return those extrema
// themselves. UniformValueEstimator returns them anyway, because the
// first and last non-empty bins' bounds are already clamped to the
// extrema (see effectiveLowerBound/effectiveUpperBound).
type ValueEstimator interface {
	EstimateValue(bin Bin, rank uint64) float64
}

// UniformValueEstimator places the synthetic sample at an evenly
// spaced point within the bin, X/2 in from each end, unless that end
// is the histogram's global extremum, in which case the sample is
// exactly that extremum. This is the default value estimator.
type UniformValueEstimator struct{}

func (UniformValueEstimator) EstimateValue(bin Bin, rank uint64) float64 {
	c := float64(bin.Count())
	k := float64(rank - bin.LessCount())

	x0 := -(c - boolToFloat(bin.IsFirstNonEmptyBin()))
	x1 := c - boolToFloat(bin.IsLastNonEmptyBin())
	return interpolate(2*k-(c-1), x0, bin.LowerBound(), x1, bin.UpperBound())
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// LowerBoundValueEstimator always returns the bin's lower bound.
type LowerBoundValueEstimator struct{}

func (LowerBoundValueEstimator) EstimateValue(bin Bin, _ uint64) float64 {
	return bin.LowerBound()
}

// UpperBoundValueEstimator always returns the bin's upper bound.
type UpperBoundValueEstimator struct{}

func (UpperBoundValueEstimator) EstimateValue(bin Bin, _ uint64) float64 {
	return bin.UpperBound()
}

// MidPointValueEstimator returns the midpoint of the bin's bounds,
// clamped to [lowerBound, upperBound] to guard against floating-point
// overshoot when the bounds are very large in magnitude.
type MidPointValueEstimator struct{}

func (MidPointValueEstimator) EstimateValue(bin Bin, _ uint64) float64 {
	mid := bin.LowerBound() + (bin.UpperBound()-bin.LowerBound())/2
	if mid < bin.LowerBound() {
		return bin.LowerBound()
	}
	if mid > bin.UpperBound() {
		return bin.UpperBound()
	}
	return mid
}

// DefaultValueEstimator is the value estimator Histogram.GetValue and
// Histogram.GetQuantile use when none is supplied explicitly.
var DefaultValueEstimator ValueEstimator = UniformValueEstimator{}

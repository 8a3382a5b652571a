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

// QuantileEstimator computes a quantile of a sorted population of n
// values given random access to the value at each zero-based rank,
// without requiring the whole population to be materialized.
type QuantileEstimator interface {
	Estimate(p float64, n uint64, rankToValue func(rank uint64) float64) float64
}

// SciPyQuantileEstimator is the plotting-position quantile estimator
// SciPy's numpy-compatible `mstats.mquantiles`/`stats.mstats` family
// uses, parameterized by the two plotting-position constants alpha and
// beta. (alpha, beta) = (0.4, 0.4) reproduces SciPy's own default.
type SciPyQuantileEstimator struct {
	alpha, beta float64
}

// NewSciPyQuantileEstimator builds a SciPyQuantileEstimator; alpha and
// beta must both lie in [0, 1].
func NewSciPyQuantileEstimator(alpha, beta float64) (*SciPyQuantileEstimator, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, invalidArgumentf("alpha must be in [0, 1], got %v", alpha)
	}
	if math.IsNaN(beta) || beta < 0 || beta > 1 {
		return nil, invalidArgumentf("beta must be in [0, 1], got %v", beta)
	}
	return &SciPyQuantileEstimator{alpha: alpha, beta: beta}, nil
}

// Estimate implements QuantileEstimator.
func (e *SciPyQuantileEstimator) Estimate(p float64, n uint64, rankToValue func(rank uint64) float64) float64 {
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return rankToValue(0)
	}

	nf := float64(n)
	z := interpolate(p, 0, e.alpha-1, 1, nf-e.beta)
	if z <= 0 {
		return rankToValue(0)
	}
	if z >= nf-1 {
		return rankToValue(n - 1)
	}

	k := uint64(math.Floor(z))
	f := z - math.Floor(z)
	if f == 0 {
		return rankToValue(k)
	}
	return interpolate(f, 0, rankToValue(k), 1, rankToValue(k+1))
}

// defaultSciPyQuantileEstimator backs Histogram.GetQuantile when no
// estimator is supplied explicitly.
var defaultSciPyQuantileEstimator, _ = NewSciPyQuantileEstimator(0.4, 0.4)

// DefaultQuantileEstimator is the SciPy alpha=beta=0.4 estimator.
var DefaultQuantileEstimator QuantileEstimator = defaultSciPyQuantileEstimator

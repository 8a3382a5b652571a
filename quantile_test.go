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
	"math"
	"testing"
)

func TestSciPyQuantileEstimatorMatchesReferenceLiterals(t *testing.T) {
	sorted := []float64{6, 7, 15, 36, 39, 40, 41, 42, 43, 47, 49}
	rankToValue := func(rank uint64) float64 { return sorted[rank] }

	e, err := NewSciPyQuantileEstimator(0.4, 0.4)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		p    float64
		want float64
	}{
		{0.25, 19.200000000000003},
		{0.5, 40},
		{0.75, 42.8},
	}
	for _, c := range cases {
		if got := e.Estimate(c.p, uint64(len(sorted)), rankToValue); got != c.want {
			t.Errorf("Estimate(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestSciPyQuantileEstimatorEmptyPopulationIsNaN(t *testing.T) {
	e, err := NewSciPyQuantileEstimator(0.4, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	got := e.Estimate(0.5, 0, func(uint64) float64 { return 0 })
	if !math.IsNaN(got) {
		t.Errorf("Estimate on n=0 = %v, want NaN", got)
	}
}

func TestSciPyQuantileEstimatorSingleValuePopulation(t *testing.T) {
	e, err := NewSciPyQuantileEstimator(0.4, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []float64{0, 0.1, 0.5, 0.9, 1} {
		if got := e.Estimate(p, 1, func(uint64) float64 { return 7.5 }); got != 7.5 {
			t.Errorf("Estimate(%v) on a single-value population = %v, want 7.5", p, got)
		}
	}
}

func TestSciPyQuantileEstimatorClampsAtExtremes(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	rankToValue := func(rank uint64) float64 { return sorted[rank] }
	e, err := NewSciPyQuantileEstimator(0.4, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	if got := e.Estimate(0, uint64(len(sorted)), rankToValue); got != 1 {
		t.Errorf("Estimate(0) = %v, want 1", got)
	}
	if got := e.Estimate(1, uint64(len(sorted)), rankToValue); got != 5 {
		t.Errorf("Estimate(1) = %v, want 5", got)
	}
}

func TestNewSciPyQuantileEstimatorValidatesParameters(t *testing.T) {
	if _, err := NewSciPyQuantileEstimator(-0.1, 0.4); err == nil {
		t.Error("expected error for alpha < 0")
	}
	if _, err := NewSciPyQuantileEstimator(0.4, 1.1); err == nil {
		t.Error("expected error for beta > 1")
	}
	if _, err := NewSciPyQuantileEstimator(math.NaN(), 0.4); err == nil {
		t.Error("expected error for NaN alpha")
	}
}

func TestDefaultQuantileEstimatorIsSciPy04(t *testing.T) {
	if _, ok := DefaultQuantileEstimator.(*SciPyQuantileEstimator); !ok {
		t.Errorf("DefaultQuantileEstimator = %T, want *SciPyQuantileEstimator", DefaultQuantileEstimator)
	}
}

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

// Package dynahist records a stream of finite real-valued observations
// into a fixed-index bucketed histogram from which quantiles, counts,
// and bounded-error value estimates can be extracted, merged across
// shards, and serialized to a compact binary form.
//
// A Histogram is built against an immutable Layout, which maps every
// finite float64 to an integer bin index so that every bin honors an
// absolute and/or relative error budget. Layouts are safe to share
// across any number of histograms and goroutines; a Histogram itself
// follows a single-writer contract and must be externally synchronized
// if read and written concurrently.
package dynahist

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
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Histograms is a map of histograms keyed by an arbitrary caller
// identifier (a metric name, a shard label, a request route). It
// exists so a process collecting many distinct distributions can
// merge and print them as a unit instead of one at a time.
type Histograms map[string]*Histogram

// String renders every entry, one per line, as "name: <Histogram>".
// Map iteration order is unspecified, so the output's line order is
// too; callers that need stable output should sort the keys
// themselves before formatting.
func (hs Histograms) String() string {
	lines := make([]string, 0, len(hs))
	for name, h := range hs {
		lines = append(lines, name+": "+h.String())
	}
	return strings.Join(lines, "\n")
}

// Fprint writes String's output to w.
func (hs Histograms) Fprint(w io.Writer) (int, error) {
	return w.Write([]byte(hs.String()))
}

// AddAll merges every histogram in src into the correspondingly named
// entry of hs, creating a fresh empty histogram on src's layout (using
// the same store mode as src's entry) for any name not already present
// in hs. Entries that share src's exact layout merge exactly; entries
// on a different layout merge approximately via estimator
// (DefaultValueEstimator if none is given), exactly as Histogram.AddHistogram
// does for a single pair.
func (hs Histograms) AddAll(src Histograms, estimator ...ValueEstimator) error {
	for name, srcH := range src {
		if hs[name] == nil {
			hs[name] = cloneEmptyLike(srcH)
		}
	}
	for name, srcH := range src {
		if err := hs[name].AddHistogram(srcH, estimator...); err != nil {
			return errors.Wrapf(err, "merging histogram %q", name)
		}
	}
	return nil
}

// cloneEmptyLike returns a new, empty Histogram on h's layout, using
// the same store representation (static or dynamic) as h.
func cloneEmptyLike(h *Histogram) *Histogram {
	if _, static := h.store.(*StaticStore); static {
		return NewStaticHistogram(h.layout)
	}
	return NewDynamicHistogram(h.layout)
}

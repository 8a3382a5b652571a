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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistogramsStringIncludesEveryEntry(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	a := NewDynamicHistogram(l)
	require.NoError(t, a.AddValue(1))
	b := NewDynamicHistogram(l)
	require.NoError(t, b.AddValue(2))

	hs := Histograms{"requests": a, "errors": b}
	out := hs.String()

	require.Contains(t, out, "requests: ")
	require.Contains(t, out, "errors: ")
	require.Equal(t, 2, len(strings.Split(out, "\n")))
}

func TestHistogramsFprintMatchesString(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	h := NewDynamicHistogram(l)
	require.NoError(t, h.AddValue(1))
	hs := Histograms{"only": h}

	var buf bytes.Buffer
	n, err := hs.Fprint(&buf)
	require.NoError(t, err)
	require.Equal(t, hs.String(), buf.String())
	require.Equal(t, len(buf.Bytes()), n)
}

func TestHistogramsAddAllCreatesMissingEntries(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	src := NewDynamicHistogram(l)
	require.NoError(t, src.AddValue(5))
	require.NoError(t, src.AddValue(7))

	dst := Histograms{}
	require.NoError(t, dst.AddAll(Histograms{"new-metric": src}))

	require.NotNil(t, dst["new-metric"])
	require.True(t, dst["new-metric"].Equal(src))
}

func TestHistogramsAddAllMergesExistingSameLayoutEntry(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)

	existing := NewDynamicHistogram(l)
	require.NoError(t, existing.AddValue(1))
	dst := Histograms{"metric": existing}

	incoming := NewDynamicHistogram(l)
	require.NoError(t, incoming.AddValue(2))
	src := Histograms{"metric": incoming}

	require.NoError(t, dst.AddAll(src))

	want := NewDynamicHistogram(l)
	require.NoError(t, want.AddValue(1))
	require.NoError(t, want.AddValue(2))
	require.True(t, dst["metric"].Equal(want))
}

func TestHistogramsAddAllMergesAcrossDifferentLayouts(t *testing.T) {
	lDst, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	lSrc, err := NewLogLinearLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)

	existing := NewDynamicHistogram(lDst)
	require.NoError(t, existing.AddValue(1))
	dst := Histograms{"metric": existing}

	incoming := NewDynamicHistogram(lSrc)
	require.NoError(t, incoming.AddValue(100))
	src := Histograms{"metric": incoming}

	require.NoError(t, dst.AddAll(src))

	require.Equal(t, uint64(2), dst["metric"].GetTotalCount())
}

func TestHistogramsAddAllPreservesStoreModeForNewEntries(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	src := NewStaticHistogram(l)
	require.NoError(t, src.AddValue(1))

	dst := Histograms{}
	require.NoError(t, dst.AddAll(Histograms{"metric": src}))

	_, isStatic := dst["metric"].store.(*StaticStore)
	require.True(t, isStatic)
}

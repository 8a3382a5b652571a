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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func roundTripHistogram(t *testing.T, l Layout, h *Histogram, readBack func(Layout, Source) (*Histogram, error)) *Histogram {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, h.Write(NewSink(&buf)))
	got, err := readBack(l, NewSource(&buf))
	require.NoError(t, err)
	return got
}

func TestHistogramSerializationRoundTripEmpty(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	h := NewDynamicHistogram(l)

	static := roundTripHistogram(t, l, h, ReadAsStatic)
	dynamic := roundTripHistogram(t, l, h, ReadAsDynamic)

	require.True(t, h.Equal(static))
	require.True(t, h.Equal(dynamic))
}

func TestHistogramSerializationRoundTripAllUnderflowOverflow(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -10, 10)
	require.NoError(t, err)
	h := NewDynamicHistogram(l)
	require.NoError(t, h.AddValue(-1e9))
	require.NoError(t, h.AddValue(1e9))
	require.NoError(t, h.AddValue(-1e9))

	static := roundTripHistogram(t, l, h, ReadAsStatic)
	dynamic := roundTripHistogram(t, l, h, ReadAsDynamic)

	require.True(t, h.Equal(static))
	require.True(t, h.Equal(dynamic))
	require.Equal(t, h.GetUnderflowCount(), static.GetUnderflowCount())
	require.Equal(t, h.GetOverflowCount(), static.GetOverflowCount())
}

func TestHistogramSerializationRoundTripNormalValues(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	values := []float64{-900, -3, -3, 0, 1, 1, 1, 42, 42, 1e5}

	buildStatic := NewStaticHistogram(l)
	buildDynamic := NewDynamicHistogram(l)
	for _, v := range values {
		require.NoError(t, buildStatic.AddValue(v))
		require.NoError(t, buildDynamic.AddValue(v))
	}

	for _, src := range []*Histogram{buildStatic, buildDynamic} {
		static := roundTripHistogram(t, l, src, ReadAsStatic)
		dynamic := roundTripHistogram(t, l, src, ReadAsDynamic)
		require.True(t, src.Equal(static))
		require.True(t, src.Equal(dynamic))
		require.Equal(t, src.HashCode(), static.HashCode())
		require.Equal(t, src.HashCode(), dynamic.HashCode())
	}
}

func TestHistogramSerializationRoundTripAsPreprocessed(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	h := NewDynamicHistogram(l)
	for _, v := range []float64{-3, 1, 42} {
		require.NoError(t, h.AddValue(v))
	}

	var buf bytes.Buffer
	require.NoError(t, h.Write(NewSink(&buf)))

	p, err := ReadAsPreprocessed(l, NewSource(&buf))
	require.NoError(t, err)

	want := h.GetPreprocessedCopy()
	if diff := cmp.Diff(want, p, cmp.AllowUnexported(Preprocessed{})); diff != "" {
		t.Errorf("ReadAsPreprocessed result mismatch (-want +got):\n%s", diff)
	}
}

func TestHistogramSerializationRejectsWrongVersion(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	h := NewDynamicHistogram(l)
	require.NoError(t, h.AddValue(1))

	var buf bytes.Buffer
	require.NoError(t, h.Write(NewSink(&buf)))
	raw := buf.Bytes()
	raw[0] = 0xFF

	_, err = ReadAsDynamic(l, NewSource(bytes.NewReader(raw)))
	require.ErrorIs(t, err, ErrDataFormat)
}

func TestCompressedEnvelopeRoundTrip(t *testing.T) {
	l, err := NewLogQuadraticLayout(1e-3, 1e-2, -1e6, 1e6)
	require.NoError(t, err)
	h := NewDynamicHistogram(l)
	for _, v := range []float64{-3, 1, 42, 1e5} {
		require.NoError(t, h.AddValue(v))
	}

	var payload bytes.Buffer
	require.NoError(t, h.Write(NewSink(&payload)))

	var envelope bytes.Buffer
	require.NoError(t, WriteCompressedEnvelope(&envelope, payload.Bytes(), true))

	got, err := ReadCompressedEnvelope(&envelope)
	require.NoError(t, err)
	require.Equal(t, payload.Bytes(), got)

	restored, err := ReadAsDynamic(l, NewSource(bytes.NewReader(got)))
	require.NoError(t, err)
	require.True(t, h.Equal(restored))
}

func TestCompressedEnvelopeRoundTripUncompressed(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	var envelope bytes.Buffer
	require.NoError(t, WriteCompressedEnvelope(&envelope, payload, false))

	got, err := ReadCompressedEnvelope(&envelope)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

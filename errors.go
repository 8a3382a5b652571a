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

import "github.com/pkg/errors"

// Sentinel errors identifying the distinct, user-observable failure
// kinds described by the histogram and layout contracts. Call sites
// wrap these with errors.Wrapf to attach context; callers should match
// on the kind with errors.Is.
var (
	// ErrInvalidArgument signals a NaN value, a negative count, bad
	// layout construction parameters, a rank outside [0, totalCount),
	// a bin index outside a layout's range where one was required,
	// malformed custom boundaries, or a conflicting registry entry.
	ErrInvalidArgument = errors.New("dynahist: invalid argument")

	// ErrArithmetic signals that total_count would exceed the 63-bit
	// range a Histogram guarantees for its counters.
	ErrArithmetic = errors.New("dynahist: arithmetic overflow")

	// ErrIO signals a short read/write or an underlying stream failure
	// while serializing or deserializing.
	ErrIO = errors.New("dynahist: io error")

	// ErrDataFormat signals a stream that cannot be decoded: an
	// unsupported histogram wire or envelope version, an unknown layout
	// serial-version tag, a layout body fingerprint mismatch, an envelope
	// length mismatch, or an over-long varint. The store mode a stream
	// was written with is not checked: every read function accepts either.
	ErrDataFormat = errors.New("dynahist: data format error")

	// ErrUnsupportedOperation signals a mutator invoked on a Preprocessed
	// view.
	ErrUnsupportedOperation = errors.New("dynahist: unsupported operation")

	// ErrNoSuchElement signals a BinIterator advanced past the last or
	// first non-empty bin.
	ErrNoSuchElement = errors.New("dynahist: no such element")
)

// invalidArgumentf wraps ErrInvalidArgument with a formatted message.
func invalidArgumentf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// arithmeticf wraps ErrArithmetic with a formatted message.
func arithmeticf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrArithmetic, format, args...)
}

// ioErrorf wraps ErrIO with a formatted message.
func ioErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrIO, format, args...)
}

// dataFormatf wraps ErrDataFormat with a formatted message.
func dataFormatf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDataFormat, format, args...)
}

// unsupportedOperationf wraps ErrUnsupportedOperation with a formatted
// message.
func unsupportedOperationf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnsupportedOperation, format, args...)
}

// noSuchElementf wraps ErrNoSuchElement with a formatted message.
func noSuchElementf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNoSuchElement, format, args...)
}

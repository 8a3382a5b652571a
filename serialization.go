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
	"encoding/binary"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/flate"
)

// Sink is the write-side byte stream adapter the serialization layer
// depends on instead of assuming any particular transport. Any
// io.Writer can be turned into one with NewSink.
type Sink interface {
	WriteByte(b byte) error
	WriteBytes(b []byte) error
	WriteUint16(v uint16) error
	WriteUint32(v uint32) error
	WriteUint64(v uint64) error
	WriteDouble(v float64) error
	WriteUnsignedVarint(v uint64) error
	WriteSignedVarint(v int64) error
}

// Source is the read-side byte stream adapter. It fails with ErrIO on
// short input, mirroring the sink's big-endian, fixed- and variable-
// width primitives.
type Source interface {
	ReadByte() (byte, error)
	ReadBytes(n int) ([]byte, error)
	ReadUint16() (uint16, error)
	ReadUint32() (uint32, error)
	ReadUint64() (uint64, error)
	ReadDouble() (float64, error)
	ReadUnsignedVarint() (uint64, error)
	ReadSignedVarint() (int64, error)
}

type writerSink struct {
	w io.Writer
}

// NewSink adapts an io.Writer into a Sink.
func NewSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

func (s *writerSink) WriteByte(b byte) error {
	_, err := s.w.Write([]byte{b})
	if err != nil {
		return ioErrorf("write byte: %v", err)
	}
	return nil
}

func (s *writerSink) WriteBytes(b []byte) error {
	if _, err := s.w.Write(b); err != nil {
		return ioErrorf("write bytes: %v", err)
	}
	return nil
}

func (s *writerSink) WriteUint16(v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return s.WriteBytes(buf[:])
}

func (s *writerSink) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return s.WriteBytes(buf[:])
}

func (s *writerSink) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return s.WriteBytes(buf[:])
}

func (s *writerSink) WriteDouble(v float64) error {
	return s.WriteUint64(math.Float64bits(v))
}

// WriteUnsignedVarint writes v as a little-endian base-128 varint, the
// same encoding protobuf and most Go serialization code in the wild
// use for variable width integers.
func (s *writerSink) WriteUnsignedVarint(v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return s.WriteBytes(buf[:n])
}

// WriteSignedVarint zig-zag encodes v so small magnitude negative
// numbers (common for bin indices around zero) stay compact, then
// writes it as an unsigned varint.
func (s *writerSink) WriteSignedVarint(v int64) error {
	return s.WriteUnsignedVarint(zigZagEncode(v))
}

type readerSource struct {
	r io.Reader
}

// NewSource adapts an io.Reader into a Source.
func NewSource(r io.Reader) Source {
	return &readerSource{r: r}
}

func (s *readerSource) ReadByte() (byte, error) {
	b, err := s.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *readerSource) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, ioErrorf("read %d bytes: %v", n, err)
	}
	return buf, nil
}

func (s *readerSource) ReadUint16() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (s *readerSource) ReadUint32() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (s *readerSource) ReadUint64() (uint64, error) {
	b, err := s.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (s *readerSource) ReadDouble() (float64, error) {
	bits, err := s.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func (s *readerSource) ReadUnsignedVarint() (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, dataFormatf("varint too long")
		}
	}
}

func (s *readerSource) ReadSignedVarint() (int64, error) {
	v, err := s.ReadUnsignedVarint()
	if err != nil {
		return 0, err
	}
	return zigZagDecode(v), nil
}

func zigZagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigZagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// WriteCompressedEnvelope wraps payload (typically the output of
// Histogram.Write or WriteLayoutWithTypeInfo) in a length-prefixed
// envelope, optionally deflating it first with klauspost/compress's
// flate implementation. Envelope layout:
//
//	versionByte(1) | flagsByte(1) | uncompressedLen(varint) | body
//
// flagsByte bit 0 is set when body is deflate-compressed.
func WriteCompressedEnvelope(w io.Writer, payload []byte, compress bool) error {
	sink := NewSink(w)
	if err := sink.WriteByte(envelopeVersion); err != nil {
		return err
	}

	var flags byte
	body := payload
	if compress {
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return ioErrorf("create deflate writer: %v", err)
		}
		if _, err := fw.Write(payload); err != nil {
			return ioErrorf("deflate payload: %v", err)
		}
		if err := fw.Close(); err != nil {
			return ioErrorf("close deflate writer: %v", err)
		}
		flags |= envelopeFlagCompressed
		body = buf.Bytes()
	}

	if err := sink.WriteByte(flags); err != nil {
		return err
	}
	if err := sink.WriteUnsignedVarint(uint64(len(payload))); err != nil {
		return err
	}
	return sink.WriteBytes(body)
}

// ReadCompressedEnvelope reads back an envelope written by
// WriteCompressedEnvelope and returns the original payload bytes.
func ReadCompressedEnvelope(r io.Reader) ([]byte, error) {
	source := NewSource(r)
	version, err := source.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != envelopeVersion {
		return nil, dataFormatf("unsupported envelope version %d", version)
	}

	flags, err := source.ReadByte()
	if err != nil {
		return nil, err
	}
	uncompressedLen, err := source.ReadUnsignedVarint()
	if err != nil {
		return nil, err
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, ioErrorf("read envelope body: %v", err)
	}

	if flags&envelopeFlagCompressed == 0 {
		if uint64(len(rest)) != uncompressedLen {
			return nil, dataFormatf("envelope length mismatch: header says %d, got %d", uncompressedLen, len(rest))
		}
		return rest, nil
	}

	fr := flate.NewReader(bytes.NewReader(rest))
	defer fr.Close()
	payload, err := io.ReadAll(fr)
	if err != nil {
		return nil, ioErrorf("inflate envelope body: %v", err)
	}
	if uint64(len(payload)) != uncompressedLen {
		return nil, dataFormatf("envelope length mismatch: header says %d, got %d", uncompressedLen, len(payload))
	}
	return payload, nil
}

const (
	envelopeVersion        byte = 1
	envelopeFlagCompressed byte = 1 << 0
)

// fingerprintBytes computes the 64-bit content fingerprint used to
// frame a layout's serialized body so a reader can detect a corrupted
// or truncated body before deserializing it.
func fingerprintBytes(body []byte) uint64 {
	return xxhash.Sum64(body)
}

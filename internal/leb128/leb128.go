// Package leb128 implements the LEB128 variable-length integer encoding used throughout the WebAssembly binary format.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#integers%E2%91%A4
package leb128

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	maxVarintLen32 = 5
	maxVarintLen64 = 10
)

// ErrOverflow is returned when an encoded integer does not fit into the requested width, or it uses more bytes than
// the width permits.
var ErrOverflow = errors.New("integer overflow")

// EncodeInt32 encodes the signed value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt32(value int32) []byte {
	return EncodeInt64(int64(value))
}

// EncodeInt64 encodes the signed value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt64(value int64) (buf []byte) {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		// Stop once the remaining bits are pure sign extension of bit 6.
		if (value == 0 && b&0x40 == 0) || (value == -1 && b&0x40 != 0) {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// EncodeUint32 encodes the value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint32(value uint32) []byte {
	return EncodeUint64(uint64(value))
}

// EncodeUint64 encodes the value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint64(value uint64) (buf []byte) {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// DecodeUint32 reads an unsigned 32-bit integer, returning it along with the count of bytes consumed.
func DecodeUint32(r io.ByteReader) (ret uint32, num uint64, err error) {
	var v uint64
	v, num, err = decodeUnsigned(r, 32, maxVarintLen32)
	return uint32(v), num, err
}

// DecodeUint64 reads an unsigned 64-bit integer, returning it along with the count of bytes consumed.
func DecodeUint64(r io.ByteReader) (ret uint64, num uint64, err error) {
	return decodeUnsigned(r, 64, maxVarintLen64)
}

// DecodeInt32 reads a signed 32-bit integer, returning it along with the count of bytes consumed.
func DecodeInt32(r io.ByteReader) (ret int32, num uint64, err error) {
	var v int64
	v, num, err = decodeSigned(r, 32, maxVarintLen32)
	return int32(v), num, err
}

// DecodeInt64 reads a signed 64-bit integer, returning it along with the count of bytes consumed.
func DecodeInt64(r io.ByteReader) (ret int64, num uint64, err error) {
	return decodeSigned(r, 64, maxVarintLen64)
}

// LoadUint32 is like DecodeUint32, but reads from the head of buf.
func LoadUint32(buf []byte) (ret uint32, num uint64, err error) {
	return DecodeUint32(bytes.NewReader(buf))
}

// LoadUint64 is like DecodeUint64, but reads from the head of buf.
func LoadUint64(buf []byte) (ret uint64, num uint64, err error) {
	return DecodeUint64(bytes.NewReader(buf))
}

// LoadInt32 is like DecodeInt32, but reads from the head of buf.
func LoadInt32(buf []byte) (ret int32, num uint64, err error) {
	return DecodeInt32(bytes.NewReader(buf))
}

// LoadInt64 is like DecodeInt64, but reads from the head of buf.
func LoadInt64(buf []byte) (ret int64, num uint64, err error) {
	return DecodeInt64(bytes.NewReader(buf))
}

func decodeUnsigned(r io.ByteReader, bits uint, maxLen uint64) (ret uint64, num uint64, err error) {
	for shift := uint(0); ; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", unexpectedEOF(err))
		}
		num++
		if num == maxLen {
			// The final byte may only carry the bits left over from the width.
			if b&0x80 != 0 || b>>(bits-shift) != 0 {
				return 0, 0, ErrOverflow
			}
		}
		ret |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return ret, num, nil
		}
	}
}

func decodeSigned(r io.ByteReader, bits uint, maxLen uint64) (ret int64, num uint64, err error) {
	var shift uint
	var b byte
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, 0, fmt.Errorf("readByte failed: %w", unexpectedEOF(err))
		}
		num++
		if num == maxLen {
			// Unused high bits of the final byte must all equal the sign bit.
			rest := bits - shift - 1
			if b&0x80 != 0 {
				return 0, 0, ErrOverflow
			} else if signAndUnused := b >> rest; signAndUnused != 0 && signAndUnused != 0x7f>>rest {
				return 0, 0, ErrOverflow
			}
		}
		ret |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		ret |= -1 << shift
	}
	return
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

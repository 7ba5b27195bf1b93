package wasm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wasmprep/internal/leb128"
)

// Instruction is one raw instruction of a function body, with its immediates decoded.
type Instruction struct {
	Opcode Opcode
	// Misc is the secondary opcode when Opcode is OpcodeMiscPrefix.
	Misc OpcodeMisc
	// Offset is the position of Opcode in the body.
	Offset uint64

	// U1 is the first immediate: the block type, label depth, index, call_indirect type index, memarg alignment
	// exponent, or constant bits. Signed constants are sign-extended to 64 bits.
	U1 uint64
	// U2 is the memarg offset.
	U2 uint64
	// Targets are the br_table label depths, with the default depth last. The slice is reused by the next call to
	// BodyReader.Next.
	Targets []uint32
}

// Name returns the mnemonic, such as "i32.add".
func (in *Instruction) Name() string {
	if in.Opcode == OpcodeMiscPrefix {
		return MiscInstructionName(in.Misc)
	}
	return InstructionName(in.Opcode)
}

// FloatClass returns the float width class of the instruction.
func (in *Instruction) FloatClass() FloatClass {
	if in.Opcode == OpcodeMiscPrefix {
		return MiscFloatClassOf(in.Misc)
	}
	return FloatClassOf(in.Opcode)
}

// BodyReader iterates over the raw instructions of Code.Body. Structure is not checked: an "end" is returned like any
// other instruction.
type BodyReader struct {
	r    *bytes.Reader
	body []byte
}

// NewBodyReader returns a BodyReader positioned at the first instruction of body.
func NewBodyReader(body []byte) *BodyReader {
	return &BodyReader{r: bytes.NewReader(body), body: body}
}

// HasNext returns true unless every byte of the body was read.
func (br *BodyReader) HasNext() bool {
	return br.r.Len() > 0
}

// Offset returns the position of the next instruction.
func (br *BodyReader) Offset() uint64 {
	return uint64(len(br.body) - br.r.Len())
}

// Next reads one instruction into in, or returns an Error of ErrorKindMalformed.
func (br *BodyReader) Next(in *Instruction) *Error {
	in.Offset = br.Offset()
	in.Misc, in.U1, in.U2 = 0, 0, 0
	in.Targets = in.Targets[:0]

	op, err := br.r.ReadByte()
	if err != nil {
		return &Error{Kind: ErrorKindMalformed, Offset: in.Offset, Msg: "unexpected end of body"}
	}
	in.Opcode = op

	if op == OpcodeMiscPrefix {
		misc, _, err := leb128.DecodeUint32(br.r)
		if err != nil {
			return br.malformedPrefix(in, "read misc opcode: %v", err)
		} else if misc > 0xff || MiscInstructionName(OpcodeMisc(misc)) == "" {
			return br.malformedPrefix(in, "invalid misc opcode %#x", misc)
		}
		in.Misc = OpcodeMisc(misc)
		return nil
	}

	info := &instructionTable[op]
	if info.name == "" {
		return br.malformed(in, "invalid opcode %#x", op)
	}

	switch info.immediate {
	case immediateNone:
	case immediateBlockType:
		bt, err := br.r.ReadByte()
		if err != nil {
			return br.malformed(in, "read block type: %v", err)
		}
		switch bt {
		case BlockTypeEmpty, ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		default:
			return br.malformed(in, "invalid block type %#x", bt)
		}
		in.U1 = uint64(bt)
	case immediateLabel, immediateIndex:
		v, _, err := leb128.DecodeUint32(br.r)
		if err != nil {
			return br.malformed(in, "read immediate: %v", err)
		}
		in.U1 = uint64(v)
	case immediateBrTable:
		count, _, err := leb128.DecodeUint32(br.r)
		if err != nil {
			return br.malformed(in, "read br_table size: %v", err)
		}
		// Each target needs at least one byte.
		if uint64(count) >= uint64(br.r.Len()) {
			return br.malformed(in, "br_table size %d exceeds the body", count)
		}
		for i := uint32(0); i <= count; i++ {
			l, _, err := leb128.DecodeUint32(br.r)
			if err != nil {
				return br.malformed(in, "read br_table target: %v", err)
			}
			in.Targets = append(in.Targets, l)
		}
	case immediateCallIndirect:
		typeIdx, _, err := leb128.DecodeUint32(br.r)
		if err != nil {
			return br.malformed(in, "read type index: %v", err)
		}
		in.U1 = uint64(typeIdx)
		if rerr := br.readReserved(in); rerr != nil {
			return rerr
		}
	case immediateMemArg:
		align, _, err := leb128.DecodeUint32(br.r)
		if err != nil {
			return br.malformed(in, "read memory alignment: %v", err)
		}
		offset, _, err := leb128.DecodeUint32(br.r)
		if err != nil {
			return br.malformed(in, "read memory offset: %v", err)
		}
		in.U1, in.U2 = uint64(align), uint64(offset)
	case immediateReserved:
		return br.readReserved(in)
	case immediateI32:
		v, _, err := leb128.DecodeInt32(br.r)
		if err != nil {
			return br.malformed(in, "read i32: %v", err)
		}
		in.U1 = uint64(v)
	case immediateI64:
		v, _, err := leb128.DecodeInt64(br.r)
		if err != nil {
			return br.malformed(in, "read i64: %v", err)
		}
		in.U1 = uint64(v)
	case immediateF32:
		var buf [4]byte
		if err := br.readFull(buf[:]); err != nil {
			return br.malformed(in, "read f32: %v", err)
		}
		in.U1 = uint64(binary.LittleEndian.Uint32(buf[:]))
	case immediateF64:
		var buf [8]byte
		if err := br.readFull(buf[:]); err != nil {
			return br.malformed(in, "read f64: %v", err)
		}
		in.U1 = binary.LittleEndian.Uint64(buf[:])
	}
	return nil
}

func (br *BodyReader) readReserved(in *Instruction) *Error {
	b, err := br.r.ReadByte()
	if err != nil {
		return br.malformed(in, "read reserved byte: %v", err)
	}
	if b != 0 {
		return br.malformed(in, "zero byte expected, but got %#x", b)
	}
	return nil
}

func (br *BodyReader) readFull(buf []byte) error {
	if br.r.Len() < len(buf) {
		return fmt.Errorf("need %d bytes, but %d remain", len(buf), br.r.Len())
	}
	_, err := br.r.Read(buf)
	return err
}

func (br *BodyReader) malformed(in *Instruction, format string, args ...interface{}) *Error {
	return &Error{
		Kind:        ErrorKindMalformed,
		Offset:      in.Offset,
		Instruction: in.Name(),
		Msg:         fmt.Sprintf(format, args...),
	}
}

// malformedPrefix is like malformed, but names the prefix byte as the secondary opcode couldn't be read.
func (br *BodyReader) malformedPrefix(in *Instruction, format string, args ...interface{}) *Error {
	err := br.malformed(in, format, args...)
	err.Instruction = fmt.Sprintf("%#x", in.Opcode)
	return err
}

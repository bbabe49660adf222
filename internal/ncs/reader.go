package ncs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"fortio.org/safecast"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrBadMagic is returned when the stream does not open with the
	// NCS V1.0 signature.
	ErrBadMagic = errors.New("ncs: bad magic")
	// ErrTruncated is returned when the stream ends inside a header or
	// an instruction.
	ErrTruncated = errors.New("ncs: truncated bytecode")
)

// UnknownOpcodeError reports an opcode byte outside the NCS V1.0 set.
type UnknownOpcodeError struct {
	Op     byte
	Offset int32
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("ncs: unknown opcode 0x%02x at offset %08x", e.Op, e.Offset)
}

// Decode parses a complete NCS byte stream into its instruction list.
// Offsets are absolute file offsets; the first instruction sits at
// HeaderSize. Multi-byte operands are big-endian.
func Decode(data []byte) ([]Instr, error) {
	if len(data) < HeaderSize {
		if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
			return nil, ErrBadMagic
		}
		return nil, ErrTruncated
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}
	if data[8] != 0x42 {
		return nil, ErrBadMagic
	}
	total := binary.BigEndian.Uint32(data[9:13])
	if int(total) > len(data) {
		return nil, ErrTruncated
	}
	if int(total) < len(data) {
		// Trailing garbage is tolerated; the size header wins.
		data = data[:total]
	}

	r := &reader{data: data, pos: HeaderSize}
	var instrs []Instr
	for r.remaining() > 0 {
		in, err := r.readInstr()
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, in)
	}
	return instrs, nil
}

// reader wraps a byte slice with a position cursor.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) offset() int32 {
	off, err := safecast.Conv[int32](r.pos)
	if err != nil {
		panic(fmt.Errorf("ncs: offset overflow: %w", err))
	}
	return off
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrTruncated
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, ErrTruncated
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readUint16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) readInt32() (int32, error) {
	v, err := r.readUint32()
	return int32(v), err
}

func (r *reader) readInt16() (int16, error) {
	v, err := r.readUint16()
	return int16(v), err
}

func (r *reader) readInstr() (Instr, error) {
	start := r.offset()
	opByte, err := r.readByte()
	if err != nil {
		return Instr{}, err
	}
	op := Op(opByte)
	if !known(op) {
		return Instr{}, &UnknownOpcodeError{Op: opByte, Offset: start}
	}
	t, err := r.readByte()
	if err != nil {
		return Instr{}, ErrTruncated
	}

	in := Instr{Offset: start, Op: op, T: t}
	switch opLayouts[op] {
	case layNone:
		// no operand bytes

	case layConst:
		if err := r.readConst(&in); err != nil {
			return Instr{}, err
		}

	case layAction:
		if in.Action, err = r.readUint16(); err != nil {
			return Instr{}, err
		}
		if in.Argc, err = r.readByte(); err != nil {
			return Instr{}, err
		}

	case layOffSize:
		if in.Disp, err = r.readInt32(); err != nil {
			return Instr{}, err
		}
		if in.CopySize, err = r.readUint16(); err != nil {
			return Instr{}, err
		}

	case layDisp:
		if in.Disp, err = r.readInt32(); err != nil {
			return Instr{}, err
		}

	case layDestruct:
		var sz int16
		if sz, err = r.readInt16(); err != nil {
			return Instr{}, err
		}
		in.Disp = int32(sz)
		if in.SaveOff, err = r.readInt16(); err != nil {
			return Instr{}, err
		}
		if in.SaveSize, err = r.readInt16(); err != nil {
			return Instr{}, err
		}

	case layEqual:
		if t == TypeTT {
			if in.CopySize, err = r.readUint16(); err != nil {
				return Instr{}, err
			}
		}

	case layState:
		if in.BPSize, err = r.readUint32(); err != nil {
			return Instr{}, err
		}
		if in.SPSize, err = r.readUint32(); err != nil {
			return Instr{}, err
		}
	}

	in.Len = r.offset() - start
	return in, nil
}

func (r *reader) readConst(in *Instr) error {
	switch in.T {
	case TypeInt, TypeObject:
		v, err := r.readInt32()
		if err != nil {
			return err
		}
		in.Disp = v
	case TypeFloat:
		bits, err := r.readUint32()
		if err != nil {
			return err
		}
		in.F = math.Float32frombits(bits)
	case TypeString:
		n, err := r.readUint16()
		if err != nil {
			return err
		}
		raw, err := r.readBytes(int(n))
		if err != nil {
			return err
		}
		s, err := decodeString(raw)
		if err != nil {
			return err
		}
		in.Str = s
	default:
		return &UnknownOpcodeError{Op: byte(OpCONST), Offset: in.Offset}
	}
	return nil
}

// decodeString lifts a raw string-constant payload to UTF-8. Script
// strings are Windows-1252, not UTF-8; the difference matters for the
// accented names common in localized game scripts.
func decodeString(raw []byte) (string, error) {
	for _, b := range raw {
		if b >= 0x80 {
			out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
			if err != nil {
				return "", err
			}
			return string(out), nil
		}
	}
	return string(raw), nil
}

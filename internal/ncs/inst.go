package ncs

import "fmt"

// Instr is a single decoded NCS instruction. Instructions are created by
// the reader and never mutated; later stages keep their own side tables.
type Instr struct {
	Offset int32 // absolute byte offset of the opcode byte
	Op     Op
	T      uint8 // raw type byte
	Len    int32 // total encoded length including opcode and type bytes

	// Disp holds the int32 operand where one exists: the stack
	// displacement of MOVSP/INCISP/..., the relative target of branches,
	// the slot offset of CPxxSP/CPxxBP, or an int/object constant.
	Disp int32

	// CopySize is the byte count of CPxxSP/CPxxBP copies and of
	// struct (TT) comparisons.
	CopySize uint16

	// DESTRUCT operands: the preserved sub-range. The total size removed
	// is held in Disp.
	SaveOff  int16
	SaveSize int16

	// Constant payloads.
	F   float32
	Str string

	// ACTION operands.
	Action uint16
	Argc   uint8

	// STORESTATE operands: sizes of the BP and SP ranges captured.
	BPSize uint32
	SPSize uint32
}

// Next returns the offset of the first byte after this instruction.
// Branch displacements are relative to this position.
func (in *Instr) Next() int32 {
	return in.Offset + in.Len
}

// Target returns the absolute offset a branch instruction jumps to.
// Meaningless for non-branch opcodes.
func (in *Instr) Target() int32 {
	return in.Next() + in.Disp
}

func (in *Instr) String() string {
	switch {
	case in.Op == OpCONST && in.T == TypeString:
		return fmt.Sprintf("%08x %s.%02x %q", in.Offset, in.Op, in.T, in.Str)
	case in.Op == OpCONST && in.T == TypeFloat:
		return fmt.Sprintf("%08x %s.%02x %g", in.Offset, in.Op, in.T, in.F)
	case in.Op == OpCONST:
		return fmt.Sprintf("%08x %s.%02x %d", in.Offset, in.Op, in.T, in.Disp)
	case in.Op == OpACTION:
		return fmt.Sprintf("%08x %s %d, %d", in.Offset, in.Op, in.Action, in.Argc)
	case in.Op.IsBranch():
		return fmt.Sprintf("%08x %s %08x", in.Offset, in.Op, in.Target())
	case opLayouts[in.Op] == layOffSize:
		return fmt.Sprintf("%08x %s.%02x %d, %d", in.Offset, in.Op, in.T, in.Disp, in.CopySize)
	case in.Op == OpDESTRUCT:
		return fmt.Sprintf("%08x %s %d, %d, %d", in.Offset, in.Op, in.Disp, in.SaveOff, in.SaveSize)
	case in.Op == OpSTORESTATE:
		return fmt.Sprintf("%08x %s %d, %d", in.Offset, in.Op, in.BPSize, in.SPSize)
	case opLayouts[in.Op] == layDisp:
		return fmt.Sprintf("%08x %s %d", in.Offset, in.Op, in.Disp)
	}
	return fmt.Sprintf("%08x %s.%02x", in.Offset, in.Op, in.T)
}

package ncs

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"
)

// Asm assembles an NCS byte stream from instruction calls. It exists for
// fixtures and tests: hand-written bytecode exercises the decoder and the
// pipeline without an external compiler. Branch targets are symbolic
// labels resolved on Bytes.
type Asm struct {
	buf    []byte
	labels map[string]int32
	fixups []fixup
}

type fixup struct {
	at    int   // byte index of the int32 displacement
	next  int32 // offset of the instruction after the branch
	label string
}

func NewAsm() *Asm {
	a := &Asm{labels: make(map[string]int32)}
	a.buf = append(a.buf, make([]byte, HeaderSize)...)
	return a
}

// Here returns the offset the next emitted instruction will occupy.
func (a *Asm) Here() int32 {
	off, err := safecast.Conv[int32](len(a.buf))
	if err != nil {
		panic(fmt.Errorf("ncs: assembly too large: %w", err))
	}
	return off
}

// Label binds a name to the current offset.
func (a *Asm) Label(name string) {
	a.labels[name] = a.Here()
}

func (a *Asm) op(op Op, t uint8) {
	a.buf = append(a.buf, byte(op), t)
}

func (a *Asm) u16(v uint16) {
	a.buf = binary.BigEndian.AppendUint16(a.buf, v)
}

func (a *Asm) u32(v uint32) {
	a.buf = binary.BigEndian.AppendUint32(a.buf, v)
}

func (a *Asm) i32(v int32) {
	a.u32(uint32(v))
}

func (a *Asm) ConstInt(v int32) {
	a.op(OpCONST, TypeInt)
	a.i32(v)
}

func (a *Asm) ConstFloat(v float32) {
	a.op(OpCONST, TypeFloat)
	a.u32(math.Float32bits(v))
}

func (a *Asm) ConstObject(v int32) {
	a.op(OpCONST, TypeObject)
	a.i32(v)
}

func (a *Asm) ConstString(s string) {
	a.op(OpCONST, TypeString)
	n, err := safecast.Conv[uint16](len(s))
	if err != nil {
		panic(fmt.Errorf("ncs: string constant too long: %w", err))
	}
	a.u16(n)
	a.buf = append(a.buf, s...)
}

func (a *Asm) RSAdd(t uint8) {
	a.op(OpRSADD, t)
}

func (a *Asm) CopyDownSP(off int32, size uint16) { a.copy(OpCPDOWNSP, off, size) }
func (a *Asm) CopyTopSP(off int32, size uint16)  { a.copy(OpCPTOPSP, off, size) }
func (a *Asm) CopyDownBP(off int32, size uint16) { a.copy(OpCPDOWNBP, off, size) }
func (a *Asm) CopyTopBP(off int32, size uint16)  { a.copy(OpCPTOPBP, off, size) }

func (a *Asm) copy(op Op, off int32, size uint16) {
	a.op(op, TypeNone)
	a.i32(off)
	a.u16(size)
}

func (a *Asm) MovSP(disp int32) {
	a.op(OpMOVSP, TypeNone)
	a.i32(disp)
}

// Binary emits an operator instruction such as ADD.II or EQUAL.FF.
func (a *Asm) Binary(op Op, t uint8) {
	a.op(op, t)
}

// EqualTT emits a struct comparison over size bytes.
func (a *Asm) EqualTT(size uint16) {
	a.op(OpEQUAL, TypeTT)
	a.u16(size)
}

func (a *Asm) Unary(op Op, t uint8) {
	a.op(op, t)
}

func (a *Asm) branch(op Op, label string) {
	a.op(op, TypeNone)
	a.fixups = append(a.fixups, fixup{at: len(a.buf), next: a.Here() + 4, label: label})
	a.i32(0)
}

func (a *Asm) Jmp(label string) { a.branch(OpJMP, label) }
func (a *Asm) Jsr(label string) { a.branch(OpJSR, label) }
func (a *Asm) Jz(label string)  { a.branch(OpJZ, label) }
func (a *Asm) Jnz(label string) { a.branch(OpJNZ, label) }

func (a *Asm) Retn() {
	a.op(OpRETN, TypeNone)
}

func (a *Asm) Action(id uint16, argc uint8) {
	a.op(OpACTION, TypeNone)
	a.u16(id)
	a.buf = append(a.buf, argc)
}

func (a *Asm) Destruct(size, keepOff, keepSize int16) {
	a.op(OpDESTRUCT, TypeNone)
	a.u16(uint16(size))
	a.u16(uint16(keepOff))
	a.u16(uint16(keepSize))
}

func (a *Asm) StoreState(bpSize, spSize uint32) {
	a.op(OpSTORESTATE, 0x10)
	a.u32(bpSize)
	a.u32(spSize)
}

func (a *Asm) SaveBP()    { a.op(OpSAVEBP, TypeNone) }
func (a *Asm) RestoreBP() { a.op(OpRESTOREBP, TypeNone) }

func (a *Asm) IncISP(disp int32) { a.adjust(OpINCISP, disp) }
func (a *Asm) DecISP(disp int32) { a.adjust(OpDECISP, disp) }
func (a *Asm) IncIBP(disp int32) { a.adjust(OpINCIBP, disp) }
func (a *Asm) DecIBP(disp int32) { a.adjust(OpDECIBP, disp) }

func (a *Asm) adjust(op Op, disp int32) {
	a.op(op, TypeInt)
	a.i32(disp)
}

func (a *Asm) Nop() {
	a.op(OpNOP, TypeNone)
}

// Raw appends arbitrary bytes, for malformed-input fixtures.
func (a *Asm) Raw(b ...byte) {
	a.buf = append(a.buf, b...)
}

// Bytes resolves labels and returns the finished stream with its header.
func (a *Asm) Bytes() ([]byte, error) {
	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("ncs: undefined label %q", f.label)
		}
		binary.BigEndian.PutUint32(a.buf[f.at:], uint32(target-f.next))
	}
	copy(a.buf, Magic)
	a.buf[8] = 0x42
	total, err := safecast.Conv[uint32](len(a.buf))
	if err != nil {
		return nil, fmt.Errorf("ncs: assembly too large: %w", err)
	}
	binary.BigEndian.PutUint32(a.buf[9:], total)
	return a.buf, nil
}

// MustBytes is Bytes for fixtures that are known to be label-complete.
func (a *Asm) MustBytes() []byte {
	b, err := a.Bytes()
	if err != nil {
		panic(err)
	}
	return b
}

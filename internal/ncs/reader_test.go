package ncs

import (
	"errors"
	"testing"
)

func TestDecodeRoundTrip(t *testing.T) {
	a := NewAsm()
	a.ConstInt(7)
	a.ConstFloat(1.5)
	a.ConstString("hello")
	a.Binary(OpADD, TypeII)
	a.MovSP(-4)
	a.Retn()
	data := a.MustBytes()

	instrs, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(instrs) != 6 {
		t.Fatalf("decoded %d instructions, want 6", len(instrs))
	}
	if instrs[0].Offset != HeaderSize {
		t.Fatalf("first offset = %d, want %d", instrs[0].Offset, HeaderSize)
	}
	if instrs[0].Op != OpCONST || instrs[0].Disp != 7 {
		t.Fatalf("instrs[0] = %v", instrs[0])
	}
	if instrs[1].F != 1.5 {
		t.Fatalf("float constant = %g, want 1.5", instrs[1].F)
	}
	if instrs[2].Str != "hello" {
		t.Fatalf("string constant = %q", instrs[2].Str)
	}
	if instrs[3].Op != OpADD || instrs[3].T != TypeII {
		t.Fatalf("instrs[3] = %v", instrs[3])
	}
	if instrs[4].Op != OpMOVSP || instrs[4].Disp != -4 {
		t.Fatalf("instrs[4] = %v", instrs[4])
	}

	// Offsets are strictly monotonic and contiguous.
	for i := 1; i < len(instrs); i++ {
		if instrs[i].Offset != instrs[i-1].Next() {
			t.Fatalf("offset gap between %v and %v", instrs[i-1], instrs[i])
		}
	}
}

func TestDecodeBranchTarget(t *testing.T) {
	a := NewAsm()
	a.Label("top")
	a.ConstInt(1)
	a.Jz("done")
	a.Jmp("top")
	a.Label("done")
	a.Retn()

	instrs, err := Decode(a.MustBytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	jz := instrs[1]
	if jz.Op != OpJZ {
		t.Fatalf("instrs[1] = %v", jz)
	}
	if jz.Target() != instrs[3].Offset {
		t.Fatalf("JZ target = %08x, want %08x", jz.Target(), instrs[3].Offset)
	}
	jmp := instrs[2]
	if jmp.Target() != instrs[0].Offset {
		t.Fatalf("JMP target = %08x, want %08x (backward)", jmp.Target(), instrs[0].Offset)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	_, err := Decode([]byte("NOT A SCRIPT AT ALL"))
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	a := NewAsm()
	a.ConstInt(7)
	data := a.MustBytes()
	_, err := Decode(data[:len(data)-2])
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestDecodeTruncatedInsideInstruction(t *testing.T) {
	a := NewAsm()
	a.Retn()
	a.Raw(byte(OpCONST), TypeInt, 0x00) // int32 payload cut short
	data, err := a.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if _, err := Decode(data); !errors.Is(err, ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	a := NewAsm()
	a.Raw(0x7F, 0x00)
	data, err := a.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	_, err = Decode(data)
	var unk *UnknownOpcodeError
	if !errors.As(err, &unk) {
		t.Fatalf("err = %v, want UnknownOpcodeError", err)
	}
	if unk.Op != 0x7F || unk.Offset != HeaderSize {
		t.Fatalf("unknown opcode = %+v", unk)
	}
}

func TestDecodeWindows1252String(t *testing.T) {
	a := NewAsm()
	a.op(OpCONST, TypeString)
	a.u16(4)
	a.Raw('c', 'a', 0xE9, 's') // "café" mangled: 0xE9 is é in cp1252
	a.Retn()
	instrs, err := Decode(a.MustBytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instrs[0].Str != "caés" {
		t.Fatalf("string = %q, want cp1252-decoded form", instrs[0].Str)
	}
}

func TestDecodeDestruct(t *testing.T) {
	a := NewAsm()
	a.Destruct(12, 4, 4)
	a.Retn()
	instrs, err := Decode(a.MustBytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	in := instrs[0]
	if in.Disp != 12 || in.SaveOff != 4 || in.SaveSize != 4 {
		t.Fatalf("DESTRUCT operands = %d, %d, %d", in.Disp, in.SaveOff, in.SaveSize)
	}
}

func TestDecodeEqualTTCarriesSize(t *testing.T) {
	a := NewAsm()
	a.EqualTT(8)
	a.Binary(OpEQUAL, TypeII)
	a.Retn()
	instrs, err := Decode(a.MustBytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if instrs[0].CopySize != 8 {
		t.Fatalf("EQUAL.TT size = %d, want 8", instrs[0].CopySize)
	}
	if instrs[1].Len != 2 {
		t.Fatalf("EQUAL.II length = %d, want 2", instrs[1].Len)
	}
}

package link

import (
	"errors"
	"testing"

	"ncsdec/internal/diag"
	"ncsdec/internal/ncs"
)

func decode(t *testing.T, a *ncs.Asm) []ncs.Instr {
	t.Helper()
	instrs, err := ncs.Decode(a.MustBytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return instrs
}

func TestLinkDiscoversSubroutines(t *testing.T) {
	a := ncs.NewAsm()
	a.Jsr("main") // _start shim
	a.Retn()
	a.Label("main")
	a.Jsr("helper")
	a.Retn()
	a.Label("helper")
	a.Retn()

	bag := diag.NewBag(16)
	p, err := Link(decode(t, a), diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if len(p.Order) != 3 {
		t.Fatalf("found %d subroutines, want 3 (shim, main, helper)", len(p.Order))
	}
	main := p.Sub(p.Entry)
	if main == nil {
		t.Fatalf("no subroutine at entry %08x", p.Entry)
	}
	if main.Instrs[0].Op != ncs.OpJSR {
		t.Fatalf("entry sub starts with %v", main.Instrs[0].Op)
	}

	helper := p.Sub(main.Instrs[0].Target())
	if helper == nil {
		t.Fatalf("helper not discovered")
	}
	if len(helper.State.Callers) != 1 || helper.State.Callers[0] != p.Entry {
		t.Fatalf("helper callers = %v, want [%08x]", helper.State.Callers, p.Entry)
	}
}

func TestLinkEntryIsFirstInstruction(t *testing.T) {
	a := ncs.NewAsm()
	a.Jsr("main")
	a.Retn()
	a.Label("main")
	a.Retn()

	p, err := Link(decode(t, a), diag.NopReporter{})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if p.Entry != p.Instrs[0].Offset {
		t.Fatalf("entry = %08x, want %08x", p.Entry, p.Instrs[0].Offset)
	}
	// The JSR target is still its own subroutine.
	if p.Sub(p.Instrs[0].Target()) == nil {
		t.Fatalf("JSR target not a subroutine")
	}
}

func TestLinkOwnerTagging(t *testing.T) {
	a := ncs.NewAsm()
	a.Jsr("fn")
	a.Retn()
	a.Label("fn")
	a.ConstInt(1)
	a.Retn()

	p, err := Link(decode(t, a), diag.NopReporter{})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	fnEntry := p.Instrs[2].Offset
	if got := p.OwnerOf(p.Instrs[3].Offset); got != fnEntry {
		t.Fatalf("owner of RETN = %08x, want %08x", got, fnEntry)
	}
	if got := p.OwnerOf(p.Instrs[1].Offset); got == fnEntry {
		t.Fatalf("shim RETN owned by fn")
	}
}

func TestLinkUnresolvedJumpFatal(t *testing.T) {
	a := ncs.NewAsm()
	a.ConstInt(1)
	// JMP -16 from offset 25 lands at offset 9, inside the file header
	// before the first instruction.
	a.Raw(byte(ncs.OpJMP), 0x00, 0xFF, 0xFF, 0xFF, 0xF0)
	a.Retn()

	bag := diag.NewBag(16)
	_, err := Link(decode(t, a), diag.BagReporter{Bag: bag})
	var unres *UnresolvedJumpError
	if !errors.As(err, &unres) {
		t.Fatalf("err = %v, want UnresolvedJumpError", err)
	}
	if !bag.HasErrors() {
		t.Fatalf("no error diagnostic recorded")
	}
}

func TestLinkDeadCodeAfterRetn(t *testing.T) {
	a := ncs.NewAsm()
	a.Retn()
	a.Nop() // unreachable
	a.Nop()

	p, err := Link(decode(t, a), diag.NopReporter{})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !p.IsDead(p.Instrs[1].Offset) || !p.IsDead(p.Instrs[2].Offset) {
		t.Fatalf("trailing NOPs not marked dead")
	}
	if p.IsDead(p.Instrs[0].Offset) {
		t.Fatalf("RETN marked dead")
	}
}

func TestLinkBranchTargetRevivesSweep(t *testing.T) {
	a := ncs.NewAsm()
	a.ConstInt(1)
	a.Jz("else")
	a.ConstInt(2)
	a.MovSP(-4)
	a.Jmp("end")
	a.Label("else")
	a.ConstInt(3)
	a.MovSP(-4)
	a.Label("end")
	a.Retn()

	p, err := Link(decode(t, a), diag.NopReporter{})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	for _, in := range p.Instrs {
		if p.IsDead(in.Offset) {
			t.Fatalf("%v wrongly marked dead", in)
		}
	}
}

package infer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ncsdec/internal/actions"
	"ncsdec/internal/callgraph"
	"ncsdec/internal/diag"
	"ncsdec/internal/link"
	"ncsdec/internal/ncs"
	"ncsdec/internal/nss"
)

const testActions = `
// 0. Random
int Random(int nMaxInteger);
// 1. PrintString
void PrintString(string sString);
`

func testTable(t *testing.T) *actions.Table {
	t.Helper()
	tbl, err := actions.Load(strings.NewReader(testActions))
	if err != nil {
		t.Fatalf("actions.Load: %v", err)
	}
	return tbl
}

func analyze(t *testing.T, asm *ncs.Asm, opts Options) (*link.Program, error) {
	t.Helper()
	instrs, err := ncs.Decode(asm.MustBytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p, err := link.Link(instrs, diag.NopReporter{})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	g := callgraph.Build(p)
	comps := callgraph.Condense(g)
	return p, Run(context.Background(), p, g, comps, testTable(t), opts, diag.NopReporter{})
}

// emitCountdown writes a subroutine of shape
//
//	int fn(int n) { if (n < 1) return 1; return other(n - 1); }
func emitCountdown(a *ncs.Asm, name, other string) {
	a.Label(name)
	a.CopyTopSP(-4, 4)
	a.ConstInt(1)
	a.Binary(ncs.OpLT, ncs.TypeII)
	a.Jz(name + "_rec")
	a.ConstInt(1)
	a.Retn()
	a.Label(name + "_rec")
	a.CopyTopSP(-4, 4)
	a.ConstInt(1)
	a.Binary(ncs.OpSUB, ncs.TypeII)
	a.Jsr(other)
	a.Retn()
}

func TestEmptySubroutineIsVoid(t *testing.T) {
	a := ncs.NewAsm()
	a.Label("main")
	a.Retn()

	p, err := analyze(t, a, Options{Strict: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sig := p.Sub(p.Entry).State.Sig
	if sig.ParamCount != 0 || sig.Return.Kind != nss.TVoid {
		t.Fatalf("sig = %+v, want void()", sig)
	}
	if p.Sub(p.Entry).State.Status != link.ProtoDone {
		t.Fatalf("status = %v", p.Sub(p.Entry).State.Status)
	}
}

func TestUnreadParametersAreNotInvented(t *testing.T) {
	a := ncs.NewAsm()
	a.Label("main")
	a.ConstInt(5)
	a.MovSP(-4)
	a.Retn()

	p, err := analyze(t, a, Options{Strict: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := p.Sub(p.Entry).State.Sig.ParamCount; got != 0 {
		t.Fatalf("ParamCount = %d, want 0", got)
	}
}

func TestMutualRecursionConverges(t *testing.T) {
	a := ncs.NewAsm()
	a.Jsr("main")
	a.Retn()
	a.Label("main")
	a.ConstInt(3)
	a.Jsr("fn_a")
	a.MovSP(-4)
	a.Retn()
	emitCountdown(a, "fn_a", "fn_b")
	emitCountdown(a, "fn_b", "fn_a")

	for _, strict := range []bool{false, true} {
		p, err := analyze(t, a, Options{Strict: strict})
		if err != nil {
			t.Fatalf("Run(strict=%v): %v", strict, err)
		}

		var sigs []link.Signature
		for _, entry := range p.Order {
			sub := p.Sub(entry)
			if len(sub.Instrs) > 8 { // the two countdown bodies
				sigs = append(sigs, sub.State.Sig)
			}
		}
		if len(sigs) != 2 {
			t.Fatalf("found %d countdown subs", len(sigs))
		}
		for _, sig := range sigs {
			if sig.ParamCount != 1 || !nss.Equal(sig.Params[0], nss.Int) || !nss.Equal(sig.Return, nss.Int) {
				t.Fatalf("sig = %+v, want int(int)", sig)
			}
		}
		if !sigs[0].Equal(sigs[1]) {
			t.Fatalf("mutually recursive signatures differ: %+v vs %+v", sigs[0], sigs[1])
		}
	}
}

func TestTailSelfRecursion(t *testing.T) {
	a := ncs.NewAsm()
	a.Jsr("main")
	a.Retn()
	a.Label("main")
	a.ConstInt(4)
	a.Jsr("fn")
	a.MovSP(-4)
	a.Retn()
	emitCountdown(a, "fn", "fn")

	p, err := analyze(t, a, Options{Strict: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var fn *link.Subroutine
	for _, entry := range p.Order {
		if len(p.Sub(entry).Instrs) > 8 {
			fn = p.Sub(entry)
		}
	}
	sig := fn.State.Sig
	if sig.ParamCount != 1 || !nss.Equal(sig.Return, nss.Int) {
		t.Fatalf("sig = %+v, want int(int)", sig)
	}
}

func TestStrictModeRejectsAny(t *testing.T) {
	// fn receives a parameter it forwards to an untyped copy, so its
	// type is never pinned; the return stays untyped too.
	a := ncs.NewAsm()
	a.Jsr("main")
	a.Retn()
	a.Label("main")
	a.ConstInt(1)
	a.Jsr("fn")
	a.Retn()
	a.Label("fn")
	a.CopyTopSP(-4, 4)
	a.Retn()

	_, err := analyze(t, a, Options{Strict: true})
	var unres *UnresolvedSignatureError
	if !errors.As(err, &unres) {
		t.Fatalf("err = %v, want UnresolvedSignatureError", err)
	}

	if _, err := analyze(t, a, Options{Strict: false}); err != nil {
		t.Fatalf("non-strict Run: %v", err)
	}
}

func TestActionCallTypesArguments(t *testing.T) {
	// main(p0) { PrintString(p0); } pins p0 to string via the table.
	a := ncs.NewAsm()
	a.Jsr("main")
	a.Retn()
	a.Label("main")
	a.CopyTopSP(-4, 4)
	a.Action(1, 1)
	a.Retn()

	p, err := analyze(t, a, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sig := p.Sub(p.Entry).State.Sig
	if sig.ParamCount != 1 || !nss.Equal(sig.Params[0], nss.String) {
		t.Fatalf("sig = %+v, want (string)", sig)
	}
}

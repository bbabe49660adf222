package decomp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ncsdec/internal/actions"
	"ncsdec/internal/infer"
	"ncsdec/internal/link"
	"ncsdec/internal/ncs"
)

const testActions = `
// 0. Random
int Random(int nMaxInteger);
// 1. PrintString
void PrintString(string sString);
// 2. Yawn
void Yawn();
`

func testTable(t *testing.T) *actions.Table {
	t.Helper()
	tbl, err := actions.Load(strings.NewReader(testActions))
	if err != nil {
		t.Fatalf("actions.Load: %v", err)
	}
	return tbl
}

// callPair is scenario S1: main calls an empty helper.
func callPair() []byte {
	a := ncs.NewAsm()
	a.Jsr("fn")
	a.Retn()
	a.Label("fn")
	a.Retn()
	return a.MustBytes()
}

// emitCountdown mirrors int fn(int n) { if (n < 1) return 1; return
// other(n - 1); } in slot form.
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

func mutualRecursion() []byte {
	a := ncs.NewAsm()
	a.ConstInt(3)
	a.Jsr("fn_a")
	a.MovSP(-4)
	a.Retn()
	emitCountdown(a, "fn_a", "fn_b")
	emitCountdown(a, "fn_b", "fn_a")
	return a.MustBytes()
}

func TestDecompileCallPair(t *testing.T) {
	text, diags, err := Decompile(context.Background(), callPair(), testTable(t), Config{})
	if err != nil {
		t.Fatalf("Decompile: %v (diags %v)", err, diags)
	}

	// The helper is defined before its caller; both are void.
	fnIdx := strings.Index(text, "void fn_")
	mainIdx := strings.Index(text, "void main() {")
	if fnIdx < 0 || mainIdx < 0 {
		t.Fatalf("output:\n%s", text)
	}
	if fnIdx > mainIdx {
		t.Fatalf("callee defined after caller:\n%s", text)
	}
	if !strings.Contains(text, "    fn_") {
		t.Fatalf("main body missing call:\n%s", text)
	}
}

func TestDecompileDeterministic(t *testing.T) {
	data := mutualRecursion()
	tbl := testTable(t)

	first, _, err := Decompile(context.Background(), data, tbl, Config{})
	if err != nil {
		t.Fatalf("Decompile: %v", err)
	}
	for range 5 {
		again, _, err := Decompile(context.Background(), data, tbl, Config{})
		if err != nil {
			t.Fatalf("Decompile: %v", err)
		}
		if again != first {
			t.Fatalf("output differs between identical runs:\n%s\n---\n%s", first, again)
		}
	}
}

func TestDecompileMutualRecursionBothModes(t *testing.T) {
	data := mutualRecursion()
	tbl := testTable(t)

	for _, strict := range []bool{false, true} {
		text, _, err := Decompile(context.Background(), data, tbl, Config{StrictSignatures: strict})
		if err != nil {
			t.Fatalf("Decompile(strict=%v): %v", strict, err)
		}
		if !strings.Contains(text, "int fn_") {
			t.Fatalf("missing typed recursive defs:\n%s", text)
		}
		if strings.Contains(text, "param1, int param2") {
			t.Fatalf("phantom parameters:\n%s", text)
		}
	}
}

func TestDecompileUnresolvedJumpFatal(t *testing.T) {
	a := ncs.NewAsm()
	a.ConstInt(1)
	a.Raw(byte(ncs.OpJMP), 0x00, 0x7F, 0xFF, 0xFF, 0x00) // into nowhere
	a.Retn()

	text, diags, err := Decompile(context.Background(), a.MustBytes(), testTable(t), Config{})
	var unres *link.UnresolvedJumpError
	if !errors.As(err, &unres) {
		t.Fatalf("err = %v, want UnresolvedJumpError", err)
	}
	if text != "" {
		t.Fatalf("partial output produced: %q", text)
	}
	if len(diags) == 0 {
		t.Fatalf("no diagnostics surfaced")
	}
}

func TestDecompileBadMagic(t *testing.T) {
	_, _, err := Decompile(context.Background(), []byte("garbage"), testTable(t), Config{})
	if !errors.Is(err, ncs.ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestDecompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Decompile(ctx, callPair(), testTable(t), Config{})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
}

func TestDecompilePruneDead(t *testing.T) {
	a := ncs.NewAsm()
	a.Retn() // main returns immediately
	a.Label("orphan")
	a.ConstString("never")
	a.Action(1, 1)
	a.Retn()

	// Nothing names the orphan region, so it is dead straight-line code
	// inside the entry subroutine and must not surface in the output.
	data := a.MustBytes()
	tbl := testTable(t)

	text, _, err := Decompile(context.Background(), data, tbl, Config{})
	if err != nil {
		t.Fatalf("Decompile: %v", err)
	}
	if strings.Contains(text, "never") {
		t.Fatalf("dead code survived pruning:\n%s", text)
	}
}

func TestDecompileStrictFailureKeepsDiagnostics(t *testing.T) {
	a := ncs.NewAsm()
	a.ConstInt(1)
	a.Jsr("fn")
	a.Retn()
	a.Label("fn")
	a.CopyTopSP(-4, 4)
	a.Retn()

	_, diags, err := Decompile(context.Background(), a.MustBytes(), testTable(t), Config{StrictSignatures: true})
	var unres *infer.UnresolvedSignatureError
	if !errors.As(err, &unres) {
		t.Fatalf("err = %v, want UnresolvedSignatureError", err)
	}
	if len(diags) == 0 {
		t.Fatalf("strict failure produced no diagnostics")
	}
}

func TestGlobalsLayout(t *testing.T) {
	a := ncs.NewAsm()
	a.Jsr("ginit")
	a.Retn()
	a.Label("ginit")
	a.RSAdd(ncs.TypeInt) // int var
	a.ConstInt(7)
	a.CopyDownSP(-8, 4)
	a.MovSP(-4)
	a.SaveBP()
	a.Jsr("realmain")
	a.RestoreBP()
	a.MovSP(-4)
	a.Retn()
	a.Label("realmain")
	a.CopyTopBP(-4, 4) // read the global
	a.Action(0, 1)     // Random(g)
	a.MovSP(-4)
	a.Retn()

	text, _, err := Decompile(context.Background(), a.MustBytes(), testTable(t), Config{})
	if err != nil {
		t.Fatalf("Decompile: %v", err)
	}
	if !strings.Contains(text, "int var_") {
		t.Fatalf("no global declaration:\n%s", text)
	}
	if !strings.Contains(text, "void main() {") {
		t.Fatalf("real main not promoted:\n%s", text)
	}
	if !strings.Contains(text, "Random(var_") {
		t.Fatalf("global not read through BP:\n%s", text)
	}
	if strings.Contains(text, "SAVEBP") || strings.Contains(text, "ginit") {
		t.Fatalf("initializer leaked into output:\n%s", text)
	}
}

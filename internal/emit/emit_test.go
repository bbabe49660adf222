package emit

import (
	"strings"
	"testing"

	"ncsdec/internal/nss"
)

func TestFormatFloat(t *testing.T) {
	cases := []struct {
		in   float32
		want string
	}{
		{0, "0.0"},
		{float32(negZero()), "0.0"},
		{1.5, "1.5"},
		{2, "2.0"},
		{0.25, "0.25"},
		{10, "10.0"},
	}
	for _, c := range cases {
		if got := formatFloat(c.in); got != c.want {
			t.Errorf("formatFloat(%g) = %q, want %q", c.in, got, c.want)
		}
	}
}

func negZero() float64 {
	z := 0.0
	return -z
}

func TestQuoteString(t *testing.T) {
	if got := quoteString(`he said "hi" \ bye`); got != `"he said \"hi\" \\ bye"` {
		t.Fatalf("quoteString = %s", got)
	}
}

func TestPrecedenceParens(t *testing.T) {
	e := &Emitter{}
	// (1 + 2) * 3: the child binds looser than the parent.
	sum := nss.Binary(nss.OpAdd, nss.IntLit(1), nss.IntLit(2), nss.Int)
	prod := nss.Binary(nss.OpMul, sum, nss.IntLit(3), nss.Int)
	if got := e.expr(prod, 0); got != "(1 + 2) * 3" {
		t.Fatalf("expr = %q", got)
	}

	// 1 + 2 * 3 needs no parens.
	prod2 := nss.Binary(nss.OpMul, nss.IntLit(2), nss.IntLit(3), nss.Int)
	sum2 := nss.Binary(nss.OpAdd, nss.IntLit(1), prod2, nss.Int)
	if got := e.expr(sum2, 0); got != "1 + 2 * 3" {
		t.Fatalf("expr = %q", got)
	}

	// Left-associative subtraction parenthesizes the right child.
	l := nss.Binary(nss.OpSub, nss.IntLit(1), nss.IntLit(2), nss.Int)
	r := nss.Binary(nss.OpSub, l, nss.Binary(nss.OpSub, nss.IntLit(3), nss.IntLit(4), nss.Int), nss.Int)
	if got := e.expr(r, 0); got != "1 - 2 - (3 - 4)" {
		t.Fatalf("expr = %q", got)
	}
}

func TestElseIfCollapse(t *testing.T) {
	e := &Emitter{}
	inner := nss.If(nss.IntLit(2), []*nss.Stmt{nss.Return(nil)}, nil)
	outer := nss.If(nss.IntLit(1), []*nss.Stmt{nss.Return(nil)}, []*nss.Stmt{inner})
	fn := &nss.Function{Name: "main", Return: nss.Void, Body: []*nss.Stmt{outer}}
	out := string(e.Emit(&nss.Script{Funcs: []*nss.Function{fn}}))

	if !strings.Contains(out, "} else if (2) {") {
		t.Fatalf("no else-if collapse:\n%s", out)
	}
	if strings.Contains(out, "else {\n        if") {
		t.Fatalf("nested else-if not collapsed:\n%s", out)
	}
}

func TestEmitWhitespaceDiscipline(t *testing.T) {
	e := &Emitter{}
	body := []*nss.Stmt{
		nss.VarDecl(nss.Int, "loc_20", nss.IntLit(0)),
		nss.While(nss.Binary(nss.OpLt, nss.Ident("loc_20", nss.Int), nss.IntLit(10), nss.Int),
			[]*nss.Stmt{nss.ExprStmt(nss.Assign(nss.Ident("loc_20", nss.Int), nss.IntLit(1)))}),
	}
	fn := &nss.Function{Name: "main", Return: nss.Void, Body: body}
	out := string(e.Emit(&nss.Script{Funcs: []*nss.Function{fn}}))

	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("missing final newline")
	}
	for i, line := range strings.Split(out, "\n") {
		if line != strings.TrimRight(line, " \t") {
			t.Fatalf("trailing whitespace on line %d: %q", i+1, line)
		}
		if strings.Contains(line, "\t") {
			t.Fatalf("tab on line %d: %q", i+1, line)
		}
	}
	if !strings.Contains(out, "    while (loc_20 < 10) {") {
		t.Fatalf("indentation unexpected:\n%s", out)
	}
	if !strings.Contains(out, "        loc_20 = 1;") {
		t.Fatalf("nested indentation unexpected:\n%s", out)
	}
}

func TestEmitFunctionOrderAndSignature(t *testing.T) {
	e := &Emitter{Names: map[int32]string{32: "fn_20"}}
	callee := &nss.Function{Name: "fn_20", Entry: 32, Return: nss.Void, Body: nil}
	caller := &nss.Function{
		Name:   "main",
		Return: nss.Void,
		Body:   []*nss.Stmt{nss.ExprStmt(nss.UserCall(32, nil, nss.Void))},
	}
	out := string(e.Emit(&nss.Script{Funcs: []*nss.Function{callee, caller}}))

	want := "void fn_20();\n\nvoid fn_20() {\n}\n\nvoid main() {\n    fn_20();\n}\n"
	if out != want {
		t.Fatalf("emitted:\n%q\nwant:\n%q", out, want)
	}
}

package emit

import (
	"fmt"
	"strconv"

	"ncsdec/internal/nss"
)

// Emitter is a pure tree-to-text pass. Names maps a callee entry offset
// to its emitted identifier (functions and stored-state bodies).
type Emitter struct {
	Names map[int32]string
}

// Emit serializes a whole script: globals, forward prototypes for every
// synthesized function (mutual recursion must compile), then the
// definitions in the given order, separated by blank lines.
func (e *Emitter) Emit(script *nss.Script) []byte {
	w := NewWriter()
	for _, g := range script.Globals {
		e.stmt(w, g)
	}

	wrotePrototypes := false
	for _, fn := range script.Funcs {
		if fn.Name == "main" {
			continue
		}
		if !wrotePrototypes && len(script.Globals) > 0 {
			w.BlankLine()
		}
		wrotePrototypes = true
		e.signature(w, fn)
		w.WriteString(";")
		w.Newline()
	}

	for i, fn := range script.Funcs {
		if i > 0 || wrotePrototypes || len(script.Globals) > 0 {
			w.BlankLine()
		}
		e.function(w, fn)
	}
	return w.Bytes()
}

func (e *Emitter) signature(w *Writer, fn *nss.Function) {
	w.WriteString(fn.Return.Keyword())
	w.WriteString(" ")
	w.WriteString(fn.Name)
	w.WriteString("(")
	for i, p := range fn.Params {
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteString(p.Type.Keyword())
		w.WriteString(" ")
		w.WriteString(p.Name)
	}
	w.WriteString(")")
}

func (e *Emitter) function(w *Writer, fn *nss.Function) {
	e.signature(w, fn)
	w.WriteString(" {")
	w.Newline()
	w.IndentPush()

	body := fn.Body
	// A bare return closing a function body is implied.
	if n := len(body); n > 0 && body[n-1].Kind == nss.StmtReturn && body[n-1].Expr == nil {
		body = body[:n-1]
	}
	for _, st := range body {
		e.stmt(w, st)
	}
	w.IndentPop()
	w.WriteString("}")
	w.Newline()
}

func (e *Emitter) block(w *Writer, body []*nss.Stmt) {
	w.WriteString("{")
	w.Newline()
	w.IndentPush()
	for _, st := range body {
		e.stmt(w, st)
	}
	w.IndentPop()
	w.WriteString("}")
}

func (e *Emitter) stmt(w *Writer, st *nss.Stmt) {
	switch st.Kind {
	case nss.StmtBlock:
		e.block(w, st.Body)
		w.Newline()

	case nss.StmtIf:
		e.ifStmt(w, st)
		w.Newline()

	case nss.StmtWhile:
		w.WriteString("while (")
		w.WriteString(e.expr(st.Cond, 0))
		w.WriteString(") ")
		e.block(w, st.Body)
		w.Newline()

	case nss.StmtDoWhile:
		w.WriteString("do ")
		e.block(w, st.Body)
		w.WriteString(" while (")
		w.WriteString(e.expr(st.Cond, 0))
		w.WriteString(");")
		w.Newline()

	case nss.StmtFor:
		w.WriteString("for (")
		if st.Init != nil {
			w.WriteString(e.expr(st.Init, 0))
		}
		w.WriteString("; ")
		w.WriteString(e.expr(st.Cond, 0))
		w.WriteString("; ")
		if st.Step != nil {
			w.WriteString(e.expr(st.Step, 0))
		}
		w.WriteString(") ")
		e.block(w, st.Body)
		w.Newline()

	case nss.StmtSwitch:
		w.WriteString("switch (")
		w.WriteString(e.expr(st.Disc, 0))
		w.WriteString(") {")
		w.Newline()
		w.IndentPush()
		for _, cs := range st.Cases {
			if cs.Value != nil {
				w.WriteString("case ")
				w.WriteString(e.expr(cs.Value, 0))
				w.WriteString(":")
			} else {
				w.WriteString("default:")
			}
			w.Newline()
			w.IndentPush()
			for _, s := range cs.Body {
				e.stmt(w, s)
			}
			w.IndentPop()
		}
		w.IndentPop()
		w.WriteString("}")
		w.Newline()

	case nss.StmtBreak:
		w.WriteString("break;")
		w.Newline()

	case nss.StmtContinue:
		w.WriteString("continue;")
		w.Newline()

	case nss.StmtReturn:
		if st.Expr != nil {
			w.WriteString("return ")
			w.WriteString(e.expr(st.Expr, 0))
			w.WriteString(";")
		} else {
			w.WriteString("return;")
		}
		w.Newline()

	case nss.StmtExpr:
		w.WriteString(e.expr(st.Expr, 0))
		w.WriteString(";")
		w.Newline()

	case nss.StmtVarDecl:
		w.WriteString(st.DeclType.Keyword())
		w.WriteString(" ")
		w.WriteString(st.DeclName)
		if st.DeclInit != nil {
			w.WriteString(" = ")
			w.WriteString(e.expr(st.DeclInit, 0))
		}
		w.WriteString(";")
		w.Newline()

	case nss.StmtGoto:
		w.WriteString("goto ")
		w.WriteString(st.Label)
		w.WriteString(";")
		w.Newline()

	case nss.StmtLabel:
		w.WriteString(st.Label)
		w.WriteString(":")
		w.Newline()
	}
}

// ifStmt emits a conditional, collapsing a lone nested if in the else
// arm to `else if`.
func (e *Emitter) ifStmt(w *Writer, st *nss.Stmt) {
	w.WriteString("if (")
	w.WriteString(e.expr(st.Cond, 0))
	w.WriteString(") ")
	e.block(w, st.Then)
	if len(st.Else) == 0 {
		return
	}
	if len(st.Else) == 1 && st.Else[0].Kind == nss.StmtIf {
		w.WriteString(" else ")
		e.ifStmt(w, st.Else[0])
		return
	}
	w.WriteString(" else ")
	e.block(w, st.Else)
}

// expr renders an expression. parent is the precedence of the enclosing
// operator; parenthesization is purely a formatting decision made here.
func (e *Emitter) expr(x *nss.Expr, parent int) string {
	switch x.Kind {
	case nss.ExprIntLit:
		return strconv.FormatInt(int64(x.Int), 10)

	case nss.ExprFloatLit:
		return formatFloat(x.Float)

	case nss.ExprStringLit:
		return quoteString(x.Str)

	case nss.ExprObjectLit:
		switch x.Int {
		case 0:
			return "OBJECT_SELF"
		case 1:
			return "OBJECT_INVALID"
		}
		return fmt.Sprintf("0x%x", uint32(x.Int))

	case nss.ExprIdent:
		return x.Name

	case nss.ExprUnary:
		inner := e.expr(x.Lhs, 100)
		return x.Unary.Token() + inner

	case nss.ExprBinary:
		prec := x.Binary.Precedence()
		s := e.expr(x.Lhs, prec) + " " + x.Binary.Token() + " " + e.expr(x.Rhs, prec+1)
		if prec < parent {
			return "(" + s + ")"
		}
		return s

	case nss.ExprAssign:
		s := e.expr(x.Lhs, 1) + " = " + e.expr(x.Rhs, 0)
		if parent > 0 {
			return "(" + s + ")"
		}
		return s

	case nss.ExprActionCall:
		return x.Name + e.args(x.Args)

	case nss.ExprUserCall:
		name, ok := e.Names[x.Callee]
		if !ok {
			name = nss.FuncName(x.Callee)
		}
		return name + e.args(x.Args)

	case nss.ExprVectorCtor:
		return "[" + e.expr(x.X, 0) + ", " + e.expr(x.Y, 0) + ", " + e.expr(x.Z, 0) + "]"

	case nss.ExprField:
		return e.expr(x.Lhs, 100) + "." + x.Field
	}
	return "/*?*/"
}

func (e *Emitter) args(args []*nss.Expr) string {
	s := "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += e.expr(a, 0)
	}
	return s + ")"
}

package cfg

import "ncsdec/internal/nss"

// Tidy applies the block rewrites to a free-standing statement list
// (global initializers, stored-state bodies).
func Tidy(stmts []*nss.Stmt) []*nss.Stmt {
	tidyBlock(&stmts)
	return stmts
}

// tidyBlock applies cosmetic rewrites the stack machine obscured:
// a while loop bracketed by a canonical init and step collapses to for,
// and a declaration immediately followed by its first assignment folds
// into an initialized declaration. Applied bottom-up.
func tidyBlock(stmts *[]*nss.Stmt) {
	for _, st := range *stmts {
		tidyNested(st)
	}
	rewriteFor(stmts)
	mergeDeclInit(stmts)
}

func tidyNested(st *nss.Stmt) {
	switch st.Kind {
	case nss.StmtBlock:
		tidyBlock(&st.Body)
	case nss.StmtIf:
		tidyBlock(&st.Then)
		tidyBlock(&st.Else)
	case nss.StmtWhile, nss.StmtDoWhile, nss.StmtFor:
		tidyBlock(&st.Body)
		dropTrailingContinue(&st.Body)
	case nss.StmtSwitch:
		for _, cs := range st.Cases {
			tidyBlock(&cs.Body)
		}
	}
}

// rewriteFor turns
//
//	v = init; while (cond(v)) { ...; v = step; }
//
// into for (v = init; cond(v); v = step) { ... }.
func rewriteFor(stmts *[]*nss.Stmt) {
	out := *stmts
	for i := 1; i < len(out); i++ {
		loop := out[i]
		// A body holding only the step is an idiomatic while, not a for.
		if loop.Kind != nss.StmtWhile || len(loop.Body) < 2 {
			continue
		}
		initStmt := out[i-1]
		initAsg := assignTo(initStmt)
		if initAsg == nil {
			continue
		}
		v := initAsg.Lhs.Name
		if !mentions(loop.Cond, v) {
			continue
		}
		stepStmt := loop.Body[len(loop.Body)-1]
		stepAsg := assignTo(stepStmt)
		if stepAsg == nil || stepAsg.Lhs.Name != v {
			continue
		}
		body := loop.Body[:len(loop.Body)-1]
		out[i] = nss.For(initAsg, loop.Cond, stepAsg, body)
		out = append(out[:i-1], out[i:]...)
		i--
	}
	*stmts = out
}

// assignTo returns the assignment expression of an ExpressionStatement
// whose target is a plain identifier.
func assignTo(st *nss.Stmt) *nss.Expr {
	if st.Kind != nss.StmtExpr || st.Expr.Kind != nss.ExprAssign {
		return nil
	}
	if st.Expr.Lhs.Kind != nss.ExprIdent {
		return nil
	}
	return st.Expr
}

func mentions(e *nss.Expr, name string) bool {
	if e == nil {
		return false
	}
	if e.Kind == nss.ExprIdent && e.Name == name {
		return true
	}
	for _, child := range []*nss.Expr{e.Lhs, e.Rhs, e.X, e.Y, e.Z} {
		if mentions(child, name) {
			return true
		}
	}
	for _, a := range e.Args {
		if mentions(a, name) {
			return true
		}
	}
	return false
}

// mergeDeclInit folds `int x; x = e;` into `int x = e;`.
func mergeDeclInit(stmts *[]*nss.Stmt) {
	out := *stmts
	for i := 0; i+1 < len(out); i++ {
		decl := out[i]
		if decl.Kind != nss.StmtVarDecl || decl.DeclInit != nil {
			continue
		}
		asg := assignTo(out[i+1])
		if asg == nil || asg.Lhs.Name != decl.DeclName {
			continue
		}
		decl.DeclInit = asg.Rhs
		out = append(out[:i+1], out[i+2:]...)
	}
	*stmts = out
}

// dropTrailingContinue removes a redundant continue closing a loop body.
func dropTrailingContinue(stmts *[]*nss.Stmt) {
	out := *stmts
	if n := len(out); n > 0 && out[n-1].Kind == nss.StmtContinue {
		*stmts = out[:n-1]
	}
}

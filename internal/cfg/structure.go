package cfg

import (
	"fmt"

	"ncsdec/internal/diag"
	"ncsdec/internal/link"
	"ncsdec/internal/ncs"
	"ncsdec/internal/nss"
	"ncsdec/internal/sim"
)

// ctx carries the enclosing construct's jump targets through recursion.
type ctx struct {
	breakOff int32 // break target (loop exit / switch end)
	contOff  int32 // continue target (loop head or do-while latch)
	mergeOff int32 // enclosing if/else merge point
	loopHead int   // block index of the loop being structured, -1 outside
}

var topCtx = ctx{breakOff: -1, contOff: -1, mergeOff: -1, loopHead: -1}

type structurer struct {
	g      *Graph
	res    *sim.SubResult
	rep    diag.Reporter
	idom   []int
	loops  map[int]*Loop
	labels map[int32]bool
}

// Structure lifts a simulated subroutine into a statement tree. It never
// fails: jumps that fit no construct degrade to goto artifacts with a
// diagnostic.
func Structure(p *link.Program, sub *link.Subroutine, res *sim.SubResult, rep diag.Reporter) []*nss.Stmt {
	g := BuildGraph(p, sub, res)
	if len(g.Blocks) == 0 {
		return nil
	}
	idom := Dominators(g)
	s := &structurer{
		g:      g,
		res:    res,
		rep:    rep,
		idom:   idom,
		loops:  FindLoops(g, idom),
		labels: make(map[int32]bool),
	}
	out := s.structRange(0, len(g.Blocks), topCtx)
	tidyBlock(&out)
	return out
}

func (s *structurer) stmtsOf(b *Block) []*nss.Stmt {
	var out []*nss.Stmt
	for _, in := range b.Instrs {
		out = append(out, s.res.Stmts[in.Offset]...)
	}
	return out
}

func (s *structurer) structRange(i, j int, c ctx) []*nss.Stmt {
	var out []*nss.Stmt
	k := i
	for k >= 0 && k < j {
		b := &s.g.Blocks[k]
		if s.labels[b.Offset] {
			out = append(out, nss.LabelAt(nss.LocalName(b.Offset)))
		}
		if l, ok := s.loops[k]; ok && c.loopHead != k {
			stmts, next := s.structLoop(k, l, c)
			out = append(out, stmts...)
			if next <= k {
				next = k + 1
			}
			k = next
			continue
		}

		switch b.Term {
		case TermFall, TermRet:
			out = append(out, s.stmtsOf(b)...)
			k++

		case TermJump:
			out = append(out, s.stmtsOf(b)...)
			t := b.Branch.Target()
			switch {
			case t == c.breakOff:
				out = append(out, nss.Break())
			case t == c.contOff:
				if k != j-1 {
					out = append(out, nss.Continue())
				}
				// the closing latch jump is the loop itself
			case t == c.mergeOff:
				// end of a then-branch; the else-arm follows
			default:
				s.unstructured(&out, b, t)
			}
			k++

		case TermCond:
			if stmts, next, ok := s.trySwitch(k, j, c); ok {
				out = append(out, stmts...)
				k = next
				continue
			}
			out = append(out, s.stmtsOf(b)...)
			stmts, next := s.structIf(k, j, c)
			out = append(out, stmts...)
			if next <= k {
				next = k + 1
			}
			k = next
		}
	}
	return out
}

// structIf reconstructs a conditional headed at block k and returns the
// statements plus the index structuring resumes at.
func (s *structurer) structIf(k, j int, c ctx) ([]*nss.Stmt, int) {
	b := &s.g.Blocks[k]
	cond := s.res.Conds[b.Branch.Offset]
	if b.Branch.Op == ncs.OpJNZ {
		// JNZ skips the fall-through arm when the condition holds.
		cond = nss.Unary(nss.OpNot, cond, nss.Int)
	}

	tIdx, ok := s.g.IndexAt(b.Branch.Target())
	if !ok || tIdx <= k || tIdx > j {
		var out []*nss.Stmt
		s.unstructured(&out, b, b.Branch.Target())
		return out, k + 1
	}

	// A then-arm closed by a forward JMP past the else target is an
	// if/else; the jump lands on the shared merge point.
	lb := &s.g.Blocks[tIdx-1]
	if tIdx-1 > k && lb.Term == TermJump {
		m := lb.Branch.Target()
		// A closing jump that is really a break or continue leaves a
		// single-arm if; the loop context owns that jump.
		if mIdx, ok := s.g.IndexAt(m); ok && m > b.Branch.Target() && mIdx <= j &&
			m != c.breakOff && m != c.contOff {
			thenCtx := c
			thenCtx.mergeOff = m
			thenStmts := s.structRange(k+1, tIdx, thenCtx)
			elseStmts := s.structRange(tIdx, mIdx, c)
			return []*nss.Stmt{nss.If(cond, thenStmts, elseStmts)}, mIdx
		}
	}

	thenStmts := s.structRange(k+1, tIdx, c)
	return []*nss.Stmt{nss.If(cond, thenStmts, nil)}, tIdx
}

// structLoop reconstructs the loop headed at block k.
func (s *structurer) structLoop(k int, l *Loop, c ctx) ([]*nss.Stmt, int) {
	head := &s.g.Blocks[k]
	exitOff := int32(-1)
	next := l.Latch + 1
	if l.Exit >= 0 {
		exitOff = s.g.Blocks[l.Exit].Offset
		next = l.Exit
	}

	// Conditional head with one in-loop target: a while loop. The head's
	// exit edge is the break target.
	if head.Term == TermCond {
		if tIdx, ok := s.g.IndexAt(head.Branch.Target()); ok && !l.Body[tIdx] {
			exitOff = head.Branch.Target()
			next = tIdx
			cond := s.res.Conds[head.Branch.Offset]
			if head.Branch.Op == ncs.OpJNZ {
				cond = nss.Unary(nss.OpNot, cond, nss.Int)
			}
			bodyCtx := ctx{breakOff: exitOff, contOff: head.Offset, mergeOff: -1, loopHead: k}
			body := s.structRange(k+1, l.Latch+1, bodyCtx)
			out := s.stmtsOf(head)
			out = append(out, nss.While(cond, body))
			return out, next
		}
	}

	// Unconditional head with a conditional latch: a do-while loop. The
	// latch's fall-through is the break target.
	latch := &s.g.Blocks[l.Latch]
	if latch.Term == TermCond {
		if l.Latch+1 < len(s.g.Blocks) {
			exitOff = s.g.Blocks[l.Latch+1].Offset
			next = l.Latch + 1
		}
		cond := s.res.Conds[latch.Branch.Offset]
		if latch.Branch.Op == ncs.OpJZ {
			cond = nss.Unary(nss.OpNot, cond, nss.Int)
		}
		bodyCtx := ctx{breakOff: exitOff, contOff: latch.Offset, mergeOff: -1, loopHead: k}
		body := s.structRange(k, l.Latch, bodyCtx)
		body = append(body, s.stmtsOf(latch)...)
		return []*nss.Stmt{nss.DoWhile(body, cond)}, next
	}

	// Neither shape fits; a loop we cannot classify becomes while (TRUE)
	// with explicit breaks where its exits jump out.
	diag.ReportWarning(s.rep, diag.FlowIrreducibleLoop, diag.Offset(head.Offset),
		"loop shape not recognized; emitting while (TRUE)")
	bodyCtx := ctx{breakOff: exitOff, contOff: head.Offset, mergeOff: -1, loopHead: k}
	body := s.structRange(k, l.Latch+1, bodyCtx)
	return []*nss.Stmt{nss.While(nss.IntLit(1), body)}, next
}

// trySwitch recognizes a chain of equality tests against one
// discriminant with a shared merge point.
func (s *structurer) trySwitch(k, j int, c ctx) ([]*nss.Stmt, int, bool) {
	first := &s.g.Blocks[k]
	disc, val, ok := eqCase(s.res.Conds[first.Branch.Offset])
	if !ok || first.Branch.Op != ncs.OpJNZ {
		return nil, 0, false
	}

	type arm struct {
		val *nss.Expr
		off int32
	}
	arms := []arm{{val: val, off: first.Branch.Target()}}
	pre := s.stmtsOf(first)

	m := k + 1
	for m < j {
		b := &s.g.Blocks[m]
		if b.Term != TermCond || b.Branch.Op != ncs.OpJNZ || len(s.stmtsOf(b)) != 0 {
			break
		}
		d, v, ok := eqCase(s.res.Conds[b.Branch.Offset])
		if !ok || !sameExpr(d, disc) {
			break
		}
		arms = append(arms, arm{val: v, off: b.Branch.Target()})
		m++
	}
	if len(arms) < 2 || m >= j {
		return nil, 0, false
	}

	// The chain must end with an unconditional jump to the default arm
	// or past the whole construct.
	tail := &s.g.Blocks[m]
	if tail.Term != TermJump || len(s.stmtsOf(tail)) != 0 {
		return nil, 0, false
	}
	dflt := tail.Branch.Target()

	// The switch ends at the common break target: the furthest forward
	// jump out of the arm bodies, or the default target when nothing
	// breaks past it.
	maxArm := dflt
	for _, a := range arms {
		if a.off > maxArm {
			maxArm = a.off
		}
	}
	end := dflt
	for b := m + 1; b < j; b++ {
		bb := &s.g.Blocks[b]
		if bb.Offset >= maxArm && bb.Term != TermJump {
			break
		}
		if bb.Term == TermJump && bb.Branch.Target() > end {
			end = bb.Branch.Target()
		}
	}
	endIdx, ok := s.g.IndexAt(end)
	if !ok || endIdx > j {
		endIdx = j
	}

	// Arm bodies in offset order; default (if distinct from end) last.
	starts := make([]arm, len(arms))
	copy(starts, arms)
	for i := range starts {
		for n := i + 1; n < len(starts); n++ {
			if starts[n].off < starts[i].off {
				starts[i], starts[n] = starts[n], starts[i]
			}
		}
	}
	if dflt != end {
		starts = append(starts, arm{val: nil, off: dflt})
	}

	armCtx := c
	armCtx.breakOff = end
	armCtx.contOff = -1
	var cases []*nss.SwitchCase
	for i, a := range starts {
		startIdx, ok := s.g.IndexAt(a.off)
		if !ok {
			return nil, 0, false
		}
		stopIdx := endIdx
		if i+1 < len(starts) {
			if si, ok := s.g.IndexAt(starts[i+1].off); ok {
				stopIdx = si
			}
		}
		body := s.structRange(startIdx, stopIdx, armCtx)
		falls := true
		if n := len(body); n > 0 && (body[n-1].Kind == nss.StmtBreak || body[n-1].Kind == nss.StmtReturn) {
			falls = false
		}
		cases = append(cases, &nss.SwitchCase{Value: a.val, Body: body, FallsThrough: falls})
	}

	out := pre
	out = append(out, nss.Switch(disc, cases))
	return out, endIdx, true
}

// eqCase splits an equality comparison against a literal into
// (discriminant, literal).
func eqCase(cond *nss.Expr) (disc, val *nss.Expr, ok bool) {
	if cond == nil || cond.Kind != nss.ExprBinary || cond.Binary != nss.OpEq {
		return nil, nil, false
	}
	if cond.Rhs.IsLiteral() {
		return cond.Lhs, cond.Rhs, true
	}
	if cond.Lhs.IsLiteral() {
		return cond.Rhs, cond.Lhs, true
	}
	return nil, nil, false
}

// sameExpr reports structural equality, enough to recognize repeated
// reads of one discriminant.
func sameExpr(a, b *nss.Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case nss.ExprIntLit, nss.ExprObjectLit:
		return a.Int == b.Int
	case nss.ExprFloatLit:
		return a.Float == b.Float
	case nss.ExprStringLit:
		return a.Str == b.Str
	case nss.ExprIdent:
		return a.Name == b.Name
	case nss.ExprField:
		return a.Field == b.Field && sameExpr(a.Lhs, b.Lhs)
	case nss.ExprUnary:
		return a.Unary == b.Unary && sameExpr(a.Lhs, b.Lhs)
	case nss.ExprBinary:
		return a.Binary == b.Binary && sameExpr(a.Lhs, b.Lhs) && sameExpr(a.Rhs, b.Rhs)
	}
	return false
}

func (s *structurer) unstructured(out *[]*nss.Stmt, b *Block, target int32) {
	diag.ReportWarning(s.rep, diag.FlowUnstructuredJump, diag.Offset(b.Branch.Offset),
		fmt.Sprintf("jump to %08x fits no structured construct", target))
	if target > b.Offset {
		s.labels[target] = true
	}
	*out = append(*out, nss.Goto(nss.LocalName(target)))
}

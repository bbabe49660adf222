package sim

import (
	"fmt"

	"ncsdec/internal/actions"
	"ncsdec/internal/diag"
	"ncsdec/internal/link"
	"ncsdec/internal/ncs"
	"ncsdec/internal/nss"
	"ncsdec/internal/ops"
)

// entry is one slot of the symbolic stack.
type entry struct {
	t       nss.Type
	expr    *nss.Expr
	varName string // set when the slot is a variable's storage
	call    bool   // side-effecting producer, must not be dropped silently
	used    bool   // already rooted in a statement or larger expression
}

// Options adjust a simulation run.
type Options struct {
	// Globals describes the global frame under BP, in push order.
	Globals []Global
	// GlobalInit treats RSADD slots as global definitions (var_ names);
	// used for the initializer subroutine that runs before SAVEBP.
	GlobalInit bool
}

type simulator struct {
	prog  *link.Program
	sub   *link.Subroutine
	table *actions.Table
	opts  Options
	rep   diag.Reporter

	sig   link.Signature
	res   *SubResult
	stack []entry
	below int
	state *nss.Expr // pending stored-state closure for the next ACTION

	snapshots map[int32][]entry
	snapBelow map[int32]int
	stateBody bool // walking a stored-state body, which the linker marks dead

	err error
}

// Simulate interprets one subroutine. Every JSR target must already be
// prototyped; the prototype engine guarantees this.
func Simulate(p *link.Program, sub *link.Subroutine, table *actions.Table,
	opts Options, rep diag.Reporter) (*SubResult, error) {

	if sub.State.Status != link.ProtoDone {
		panic(fmt.Sprintf("sim: subroutine %08x simulated before prototyping", sub.Entry))
	}
	s := &simulator{
		prog:  p,
		sub:   sub,
		table: table,
		opts:  opts,
		rep:   rep,
		sig:   sub.State.Sig,
		res: &SubResult{
			Entry: sub.Entry,
			Stmts: make(map[int32][]*nss.Stmt),
			Conds: make(map[int32]*nss.Expr),
			Elide: make(map[int32]bool),
		},
		snapshots: make(map[int32][]entry),
		snapBelow: make(map[int32]int),
	}
	s.run(sub.Instrs)
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

func (s *simulator) run(instrs []ncs.Instr) {
	skipUntil := int32(-1)
	ended := false
	for i := range instrs {
		in := &instrs[i]
		if s.err != nil {
			return
		}
		// A stored-state body follows its guarding JMP, so the linker's
		// sweep marks it dead; the nested walk over that body still runs it.
		if s.prog.IsDead(in.Offset) && !s.stateBody {
			continue
		}
		if skipUntil >= 0 {
			if in.Offset < skipUntil {
				s.res.Elide[in.Offset] = true
				continue
			}
			skipUntil = -1
		}
		if ended {
			if snap, ok := s.snapshots[in.Offset]; ok {
				s.stack = append(s.stack[:0], snap...)
				s.below = s.snapBelow[in.Offset]
			} else {
				s.stack = s.stack[:0]
			}
		}
		ended = in.Op == ncs.OpRETN || in.Op == ncs.OpJMP

		if in.Op == ncs.OpSTORESTATE {
			skipUntil = s.storeState(instrs, i)
			continue
		}
		s.step(in)
	}
}

// fail records the first fatal simulation error.
func (s *simulator) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// snapshot records the stack shape flowing along a branch edge.
func (s *simulator) snapshot(target int32) {
	if _, ok := s.snapshots[target]; ok {
		return
	}
	snap := make([]entry, len(s.stack))
	copy(snap, s.stack)
	s.snapshots[target] = snap
	s.snapBelow[target] = s.below
}

// paramEntry materializes the parameter slot depthBelow under the frame.
func (s *simulator) paramEntry(at int32, depthBelow int) entry {
	idx := depthBelow + s.below - 1
	if idx < 0 || idx >= s.sig.ParamCount {
		s.fail(&StackUnderflowError{Offset: at})
		return entry{t: nss.Any, expr: nss.Ident("?", nss.Any)}
	}
	t := nss.Any
	if idx < len(s.sig.Params) {
		t = s.sig.Params[idx]
	}
	name := nss.ParamName(idx)
	return entry{t: t, expr: nss.Ident(name, t), varName: name}
}

func (s *simulator) pop(at int32) entry {
	if len(s.stack) == 0 {
		e := s.paramEntry(at, 1)
		s.below++
		return e
	}
	e := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return e
}

// popTyped pops a slot and checks its type against the consuming use.
func (s *simulator) popTyped(at int32, want nss.Type) entry {
	e := s.pop(at)
	if conflicts(e.t, want) {
		s.fail(&TypeConflictError{Offset: at, Want: want, Got: e.t})
	}
	return e
}

// conflicts reports a join that would need to widen two concrete types.
func conflicts(got, want nss.Type) bool {
	if got.Kind == nss.TAny || want.Kind == nss.TAny {
		return false
	}
	if got.Kind == nss.TStruct || want.Kind == nss.TStruct {
		return false
	}
	return got.Kind != want.Kind
}

func (s *simulator) push(e entry) {
	s.stack = append(s.stack, e)
}

// at reads the slot at 1-based depth without removing it.
func (s *simulator) at(offset int32, depth int) entry {
	if depth <= len(s.stack) {
		return s.stack[len(s.stack)-depth]
	}
	return s.paramEntry(offset, depth-len(s.stack))
}

func (s *simulator) step(in *ncs.Instr) {
	switch in.Op {
	case ncs.OpCONST:
		s.push(s.constant(in))

	case ncs.OpRSADD:
		t := nss.TypeForEngine(in.T)
		name := nss.LocalName(in.Offset)
		if s.opts.GlobalInit {
			name = nss.GlobalName(in.Offset)
		}
		s.push(entry{t: t, expr: nss.Ident(name, t), varName: name})
		s.res.add(in.Offset, nss.VarDecl(t, name, nil))

	case ncs.OpCPTOPSP:
		s.copyUp(in)

	case ncs.OpCPDOWNSP:
		s.copyDown(in)

	case ncs.OpCPTOPBP:
		s.globalRead(in)

	case ncs.OpCPDOWNBP:
		s.globalWrite(in)

	case ncs.OpMOVSP:
		for range int(-in.Disp) / 4 {
			e := s.pop(in.Offset)
			if e.call && !e.used {
				s.res.add(in.Offset, nss.ExprStmt(e.expr))
			}
		}

	case ncs.OpJZ, ncs.OpJNZ:
		cond := s.popTyped(in.Offset, nss.Int)
		s.res.Conds[in.Offset] = cond.expr
		s.snapshot(in.Target())

	case ncs.OpJMP:
		s.snapshot(in.Target())

	case ncs.OpJSR:
		s.call(in)

	case ncs.OpACTION:
		s.action(in)

	case ncs.OpRETN:
		if s.sig.Return.Slots() > 0 && len(s.stack) > 0 {
			v := s.pop(in.Offset)
			s.res.add(in.Offset, nss.Return(v.expr))
		} else {
			s.res.add(in.Offset, nss.Return(nil))
		}

	case ncs.OpDESTRUCT:
		s.destruct(in)

	case ncs.OpNEG, ncs.OpCOMP, ncs.OpNOT:
		t := ops.UnaryType(in.T)
		op, _ := ops.Unary(in.Op)
		operand := s.popTyped(in.Offset, t)
		s.push(entry{t: t, expr: nss.Unary(op, operand.expr, t), call: operand.call})

	case ncs.OpINCISP, ncs.OpDECISP:
		s.adjust(in, false)

	case ncs.OpINCIBP, ncs.OpDECIBP:
		s.adjust(in, true)

	case ncs.OpSAVEBP, ncs.OpRESTOREBP, ncs.OpNOP, ncs.OpSTORESTA:
		// frame bookkeeping; no observable statement

	default:
		s.binary(in)
	}
}

func (s *simulator) constant(in *ncs.Instr) entry {
	switch in.T {
	case ncs.TypeInt:
		return entry{t: nss.Int, expr: nss.IntLit(in.Disp)}
	case ncs.TypeFloat:
		return entry{t: nss.Float, expr: nss.FloatLit(in.F)}
	case ncs.TypeString:
		return entry{t: nss.String, expr: nss.StringLit(in.Str)}
	case ncs.TypeObject:
		return entry{t: nss.Object, expr: nss.ObjectLit(in.Disp)}
	}
	return entry{t: nss.Any, expr: nss.IntLit(in.Disp)}
}

func (s *simulator) copyUp(in *ncs.Instr) {
	depth := int(-in.Disp) / 4
	n := int(in.CopySize) / 4
	base := len(s.stack)
	for i := range n {
		d := depth - i
		var src entry
		if d <= base {
			src = s.stack[base-d]
		} else {
			src = s.paramEntry(in.Offset, d-base)
		}
		// A copy is a value, not the variable's storage.
		s.push(entry{t: src.t, expr: src.expr})
	}
}

func (s *simulator) copyDown(in *ncs.Instr) {
	depth := int(-in.Disp) / 4
	n := int(in.CopySize) / 4
	for i := range n {
		src := s.at(in.Offset, n-i)
		dstDepth := depth - i
		if dstDepth > len(s.stack) {
			// Writing through the frame bottom assigns a parameter.
			dst := s.paramEntry(in.Offset, dstDepth-len(s.stack))
			s.res.add(in.Offset, nss.ExprStmt(nss.Assign(dst.expr, src.expr)))
			s.markUsed(n - i)
			continue
		}
		dst := &s.stack[len(s.stack)-dstDepth]
		if conflicts(dst.t, src.t) {
			s.fail(&TypeConflictError{Offset: in.Offset, Want: dst.t, Got: src.t})
			return
		}
		if dst.varName != "" {
			s.res.add(in.Offset, nss.ExprStmt(nss.Assign(nss.Ident(dst.varName, dst.t), src.expr)))
			s.markUsed(n - i)
		} else {
			dst.expr = src.expr
			dst.t = nss.Join(dst.t, src.t)
		}
	}
}

// markUsed flags the slot at 1-based depth as consumed by a statement.
func (s *simulator) markUsed(depth int) {
	if depth <= len(s.stack) {
		s.stack[len(s.stack)-depth].used = true
	}
}

func (s *simulator) globalRead(in *ncs.Instr) {
	n := int(in.CopySize) / 4
	if in.Disp >= 0 {
		// Parameter area addressed through BP.
		idx := int(in.Disp) / 4
		for range n {
			t := nss.Any
			if idx < len(s.sig.Params) {
				t = s.sig.Params[idx]
			}
			name := nss.ParamName(idx)
			s.push(entry{t: t, expr: nss.Ident(name, t), varName: name})
			idx++
		}
		return
	}
	idx := len(s.opts.Globals) - int(-in.Disp)/4
	for range n {
		if idx < 0 || idx >= len(s.opts.Globals) {
			s.fail(&StackUnderflowError{Offset: in.Offset})
			return
		}
		g := s.opts.Globals[idx]
		s.push(entry{t: g.Type, expr: nss.Ident(g.Name, g.Type), varName: g.Name})
		idx++
	}
}

func (s *simulator) globalWrite(in *ncs.Instr) {
	n := int(in.CopySize) / 4
	if in.Disp >= 0 {
		idx := int(in.Disp) / 4
		src := s.at(in.Offset, 1)
		name := nss.ParamName(idx)
		s.res.add(in.Offset, nss.ExprStmt(nss.Assign(nss.Ident(name, src.t), src.expr)))
		s.markUsed(1)
		return
	}
	idx := len(s.opts.Globals) - int(-in.Disp)/4
	for i := range n {
		if idx < 0 || idx >= len(s.opts.Globals) {
			s.fail(&StackUnderflowError{Offset: in.Offset})
			return
		}
		g := s.opts.Globals[idx]
		src := s.at(in.Offset, n-i)
		if conflicts(g.Type, src.t) {
			s.fail(&TypeConflictError{Offset: in.Offset, Want: g.Type, Got: src.t})
			return
		}
		s.res.add(in.Offset, nss.ExprStmt(nss.Assign(nss.Ident(g.Name, g.Type), src.expr)))
		s.markUsed(n - i)
		idx++
	}
}

func (s *simulator) adjust(in *ncs.Instr, bp bool) {
	var name string
	var t nss.Type
	if bp {
		idx := len(s.opts.Globals) - int(-in.Disp)/4
		if idx < 0 || idx >= len(s.opts.Globals) {
			s.fail(&StackUnderflowError{Offset: in.Offset})
			return
		}
		name, t = s.opts.Globals[idx].Name, s.opts.Globals[idx].Type
	} else {
		depth := int(-in.Disp) / 4
		e := s.at(in.Offset, depth)
		if e.varName == "" {
			// Adjusting an anonymous value; fold into its expression.
			if depth >= 1 && depth <= len(s.stack) {
				op := nss.OpAdd
				if in.Op == ncs.OpDECISP {
					op = nss.OpSub
				}
				slot := &s.stack[len(s.stack)-depth]
				slot.expr = nss.Binary(op, slot.expr, nss.IntLit(1), nss.Int)
			}
			return
		}
		name, t = e.varName, e.t
	}
	op := nss.OpAdd
	if in.Op == ncs.OpDECISP || in.Op == ncs.OpDECIBP {
		op = nss.OpSub
	}
	lhs := nss.Ident(name, t)
	s.res.add(in.Offset, nss.ExprStmt(
		nss.Assign(lhs, nss.Binary(op, nss.Ident(name, t), nss.IntLit(1), nss.Int))))
}

// popValue pops a whole value of the given type, folding vector slots
// back into a single expression.
func (s *simulator) popValue(at int32, t nss.Type) *nss.Expr {
	if t.Kind != nss.TVector {
		e := s.popTyped(at, t)
		return e.expr
	}
	z := s.popTyped(at, nss.Float)
	y := s.popTyped(at, nss.Float)
	x := s.popTyped(at, nss.Float)
	return foldVector(x.expr, y.expr, z.expr)
}

// foldVector recognizes three slots carrying the components of one vector
// value and collapses them; otherwise it builds a constructor.
func foldVector(x, y, z *nss.Expr) *nss.Expr {
	if x.Kind == nss.ExprField && y.Kind == nss.ExprField && z.Kind == nss.ExprField &&
		x.Field == "x" && y.Field == "y" && z.Field == "z" &&
		x.Lhs == y.Lhs && y.Lhs == z.Lhs {
		return x.Lhs
	}
	return nss.VectorCtor(x, y, z)
}

// pushValue pushes a whole value, spreading vectors over three slots.
func (s *simulator) pushValue(v *nss.Expr, t nss.Type, isCall bool) {
	if t.Kind != nss.TVector {
		s.push(entry{t: t, expr: v, call: isCall})
		return
	}
	for _, f := range [...]string{"x", "y", "z"} {
		s.push(entry{t: nss.Float, expr: nss.FieldAccess(v, f, nss.Float)})
	}
}

func (s *simulator) binary(in *ncs.Instr) {
	lt, rt, res, ok := ops.Operator(in.Op, in.T)
	if !ok {
		return
	}
	op, _ := ops.Binary(in.Op)

	if in.T == ncs.TypeTT {
		// Struct comparison: both operands span CopySize bytes. Compare
		// the deepest slot expressions as representatives.
		n := int(in.CopySize) / 4
		var rhsRep, lhsRep *nss.Expr
		for i := range n {
			e := s.pop(in.Offset)
			if i == n-1 {
				rhsRep = e.expr
			}
		}
		for i := range n {
			e := s.pop(in.Offset)
			if i == n-1 {
				lhsRep = e.expr
			}
		}
		s.push(entry{t: nss.Int, expr: nss.Binary(op, lhsRep, rhsRep, nss.Int)})
		return
	}

	rhs := s.popValue(in.Offset, rt)
	lhs := s.popValue(in.Offset, lt)
	s.pushValue(nss.Binary(op, lhs, rhs, res), res, false)
}

func (s *simulator) call(in *ncs.Instr) {
	callee := s.prog.Sub(in.Target())
	if callee == nil || callee.State.Status != link.ProtoDone {
		panic(fmt.Sprintf("sim: JSR at %08x into unprototyped %08x", in.Offset, in.Target()))
	}
	sig := callee.State.Sig
	args := make([]*nss.Expr, 0, sig.ParamCount)
	for i := 0; i < sig.ParamCount; i++ {
		t := nss.Any
		if i < len(sig.Params) {
			t = sig.Params[i]
		}
		args = append(args, s.popValue(in.Offset, t))
	}
	call := nss.UserCall(in.Target(), args, sig.Return)
	if sig.Return.Slots() == 0 {
		s.res.add(in.Offset, nss.ExprStmt(call))
		return
	}
	s.pushValue(call, sig.Return, true)
}

func (s *simulator) action(in *ncs.Instr) {
	act, err := s.table.Action(int(in.Action))
	if err != nil {
		diag.ReportError(s.rep, diag.ActTableMissing, diag.Offset(in.Offset),
			fmt.Sprintf("ACTION %d has no table entry", in.Action))
		s.fail(err)
		return
	}
	args := make([]*nss.Expr, 0, int(in.Argc))
	for i := 0; i < int(in.Argc) && i < len(act.Params); i++ {
		p := act.Params[i]
		if p.Kind == nss.TAction {
			if s.state == nil {
				s.fail(&StackUnderflowError{Offset: in.Offset})
				return
			}
			args = append(args, s.state)
			s.state = nil
			continue
		}
		args = append(args, s.popValue(in.Offset, p))
	}
	call := nss.ActionCall(act.Name, int(in.Action), args, act.Return)
	if act.Return.Slots() == 0 {
		s.res.add(in.Offset, nss.ExprStmt(call))
		return
	}
	s.pushValue(call, act.Return, true)
}

func (s *simulator) destruct(in *ncs.Instr) {
	total := int(in.Disp) / 4
	keepOff := int(in.SaveOff) / 4
	keepN := int(in.SaveSize) / 4
	if total <= 0 || keepOff < 0 || keepOff+keepN > total {
		s.fail(fmt.Errorf("sim: malformed DESTRUCT at %08x", in.Offset))
		diag.ReportError(s.rep, diag.SimBadDestruct, diag.Offset(in.Offset), "malformed DESTRUCT operands")
		return
	}
	popped := make([]entry, 0, total)
	for range total {
		e := s.pop(in.Offset)
		e.used = true
		popped = append(popped, e)
	}
	// popped[0] is the old top; the kept run is addressed from the
	// bottom of the destroyed region and re-pushed deepest first,
	// preserving field order.
	for i := keepOff; i < keepOff+keepN; i++ {
		at := total - 1 - i
		kept := popped[at]
		kept.used = false
		s.push(kept)
	}
}

// storeState lifts the region guarded by the JMP after STORESTATE into a
// synthesized void subroutine and leaves its call pending for the next
// action-typed argument. Returns the offset where the main walk resumes.
func (s *simulator) storeState(instrs []ncs.Instr, i int) int32 {
	in := &instrs[i]
	if i+2 >= len(instrs) || instrs[i+1].Op != ncs.OpJMP {
		s.fail(fmt.Errorf("sim: STORESTATE at %08x without guarding JMP", in.Offset))
		return -1
	}
	guard := &instrs[i+1]
	bodyStart := instrs[i+2].Offset
	end := guard.Target()

	var body []ncs.Instr
	for j := i + 2; j < len(instrs) && instrs[j].Offset < end; j++ {
		body = append(body, instrs[j])
	}

	s.res.Elide[guard.Offset] = true
	for _, bin := range body {
		s.res.Elide[bin.Offset] = true
	}

	// The body closes over the current frame: simulate it against a copy
	// of the live stack.
	nested := &simulator{
		prog:  s.prog,
		sub:   s.sub,
		table: s.table,
		opts:  s.opts,
		rep:   s.rep,
		sig:   link.Signature{Return: nss.Void},
		res: &SubResult{
			Entry: bodyStart,
			Stmts: make(map[int32][]*nss.Stmt),
			Conds: make(map[int32]*nss.Expr),
			Elide: make(map[int32]bool),
		},
		snapshots: make(map[int32][]entry),
		snapBelow: make(map[int32]int),
		stateBody: true,
		stack:     append([]entry(nil), s.stack...),
	}
	nested.run(body)
	if nested.err != nil {
		s.fail(nested.err)
		return -1
	}

	sb := &StateBody{
		Name:   nss.StateName(bodyStart),
		Entry:  bodyStart,
		Instrs: body,
		Stmts:  flatten(nested.res, body),
	}
	s.res.States = append(s.res.States, sb)
	s.res.States = append(s.res.States, nested.res.States...)

	s.state = nss.UserCall(bodyStart, nil, nss.Void)
	return end
}

// Linearize serializes a result's statements in instruction order,
// dropping bare returns. Used for regions known to be straight-line:
// stored-state bodies and global initializer prefixes.
func Linearize(res *SubResult, instrs []ncs.Instr) []*nss.Stmt {
	return flatten(res, instrs)
}

// flatten serializes a result's statements in instruction order; stored
// state bodies are straight-line by construction, so no structuring pass
// is needed.
func flatten(res *SubResult, instrs []ncs.Instr) []*nss.Stmt {
	var out []*nss.Stmt
	for _, in := range instrs {
		for _, st := range res.Stmts[in.Offset] {
			if st.Kind == nss.StmtReturn && st.Expr == nil {
				continue
			}
			out = append(out, st)
		}
	}
	return out
}

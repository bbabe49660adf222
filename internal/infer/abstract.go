package infer

import (
	"ncsdec/internal/actions"
	"ncsdec/internal/link"
	"ncsdec/internal/ncs"
	"ncsdec/internal/nss"
	"ncsdec/internal/ops"
)

// slot is one abstract stack slot. param >= 0 tags slots copied up from
// below the frame, so a later typed use refines that parameter.
type slot struct {
	t     nss.Type
	param int
}

func anon(t nss.Type) slot { return slot{t: t, param: -1} }

// observations collects what one linear pass over a subroutine saw.
type observations struct {
	params map[int]nss.Type
	ret    nss.Type
	retSet bool
}

func (o *observations) seeParam(idx int, t nss.Type) {
	if idx < 0 {
		return
	}
	if prev, ok := o.params[idx]; ok {
		o.params[idx] = nss.Join(prev, t)
	} else {
		o.params[idx] = t
	}
}

func (o *observations) seeReturn(t nss.Type) {
	if !o.retSet {
		o.ret = t
		o.retSet = true
		return
	}
	o.ret = nss.Join(o.ret, t)
}

// walker is the lightweight abstract interpreter behind the prototype
// engine. It walks a subroutine linearly in program order, tracking slot
// depth and slot types only; branches do not fork the walk. That is
// enough because script compilers keep the stack balanced along program
// order, and the full simulator re-checks everything branch-aware.
type walker struct {
	prog  *link.Program
	table *actions.Table
	sigOf func(entry int32) link.Signature

	stack []slot
	below int // argument slots already consumed from under the frame
	obs   observations

	// snapshots record the stack shape branch edges carry to forward
	// targets, so a path resuming after RETN/JMP starts at the depth
	// its incoming edge established.
	snapshots map[int32][]slot
	snapBelow map[int32]int
}

func newWalker(p *link.Program, table *actions.Table, sigOf func(int32) link.Signature) *walker {
	return &walker{
		prog:      p,
		table:     table,
		sigOf:     sigOf,
		obs:       observations{params: make(map[int]nss.Type), ret: nss.Any},
		snapshots: make(map[int32][]slot),
		snapBelow: make(map[int32]int),
	}
}

// paramAt maps a depth below the current frame to a parameter index.
// The slot immediately under the frame at entry is parameter 0.
func (w *walker) paramAt(depthBelow int) int {
	return depthBelow + w.below - 1
}

// pop removes one slot, reaching under the frame when the walk has
// drained its own pushes (callee-side argument cleanup).
func (w *walker) pop() slot {
	if len(w.stack) == 0 {
		w.below++
		return slot{t: nss.Any, param: w.below - 1}
	}
	s := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	return s
}

// popTyped pops a slot whose use implies a type, refining parameter slots.
func (w *walker) popTyped(t nss.Type) {
	s := w.pop()
	if s.param >= 0 {
		w.obs.seeParam(s.param, t)
	}
}

func (w *walker) push(t nss.Type) {
	w.stack = append(w.stack, anon(t))
}

// at reads the slot at 1-based depth from the top without removing it.
func (w *walker) at(depth int) slot {
	if depth <= len(w.stack) {
		return w.stack[len(w.stack)-depth]
	}
	idx := w.paramAt(depth - len(w.stack))
	w.obs.seeParam(idx, nss.Any)
	return slot{t: nss.Any, param: idx}
}

// run walks the subroutine and returns its observations.
func (w *walker) run(sub *link.Subroutine) observations {
	ended := false
	for i := range sub.Instrs {
		in := &sub.Instrs[i]
		if w.prog.IsDead(in.Offset) {
			continue
		}
		if ended {
			// The previous path ended; resume with the shape its
			// incoming branch edge recorded, or empty if none did.
			if snap, ok := w.snapshots[in.Offset]; ok {
				w.stack = append(w.stack[:0], snap...)
				w.below = w.snapBelow[in.Offset]
			} else {
				w.stack = w.stack[:0]
			}
		}
		ended = in.Op == ncs.OpRETN || in.Op == ncs.OpJMP
		w.step(in)
	}
	return w.obs
}

// snapshot records the stack shape flowing along a branch edge.
func (w *walker) snapshot(target int32) {
	if _, ok := w.snapshots[target]; ok {
		return
	}
	w.snapshots[target] = append([]slot(nil), w.stack...)
	w.snapBelow[target] = w.below
}

func (w *walker) step(in *ncs.Instr) {
	switch in.Op {
	case ncs.OpCONST:
		w.push(nss.TypeForEngine(in.T))

	case ncs.OpRSADD:
		w.push(nss.TypeForEngine(in.T))

	case ncs.OpCPTOPSP:
		w.copyUp(int(-in.Disp)/4, int(in.CopySize)/4)

	case ncs.OpCPDOWNSP:
		w.copyDown(int(-in.Disp)/4, int(in.CopySize)/4)

	case ncs.OpCPTOPBP:
		// Positive offsets address the parameter area; negative ones the
		// global frame under BP.
		if in.Disp >= 0 {
			idx := int(in.Disp) / 4
			w.obs.seeParam(idx, nss.Any)
			for range int(in.CopySize) / 4 {
				w.stack = append(w.stack, slot{t: nss.Any, param: idx})
				idx++
			}
		} else {
			for range int(in.CopySize) / 4 {
				w.push(nss.Any)
			}
		}

	case ncs.OpCPDOWNBP:
		// Writes to globals or parameters; depth is unchanged.
		if in.Disp >= 0 {
			top := w.at(1)
			w.obs.seeParam(int(in.Disp)/4, top.t)
		}

	case ncs.OpMOVSP:
		for range int(-in.Disp) / 4 {
			w.pop()
		}

	case ncs.OpJZ, ncs.OpJNZ:
		w.popTyped(nss.Int)
		w.snapshot(in.Target())

	case ncs.OpJMP:
		w.snapshot(in.Target())

	case ncs.OpNOP, ncs.OpSAVEBP, ncs.OpRESTOREBP, ncs.OpSTORESTA:
		// no stack effect in the abstract walk

	case ncs.OpSTORESTATE:
		// captures existing slots without consuming them

	case ncs.OpJSR:
		sig := w.sigOf(in.Target())
		for i := 0; i < sig.ParamCount; i++ {
			t := nss.Any
			if i < len(sig.Params) {
				t = sig.Params[i]
			}
			w.popTyped(t)
		}
		if sig.Return.Slots() > 0 {
			w.push(sig.Return)
		}

	case ncs.OpACTION:
		w.action(in)

	case ncs.OpRETN:
		if len(w.stack) > 0 {
			w.obs.seeReturn(w.stack[len(w.stack)-1].t)
		} else {
			w.obs.seeReturn(nss.Void)
		}

	case ncs.OpDESTRUCT:
		w.destruct(int(in.Disp)/4, int(in.SaveOff)/4, int(in.SaveSize)/4)

	case ncs.OpNEG, ncs.OpCOMP, ncs.OpNOT:
		t := ops.UnaryType(in.T)
		w.popTyped(t)
		w.push(t)

	case ncs.OpINCISP, ncs.OpDECISP:
		s := w.at(int(-in.Disp) / 4)
		if s.param >= 0 {
			w.obs.seeParam(s.param, nss.Int)
		}

	case ncs.OpINCIBP, ncs.OpDECIBP:
		// global int adjust, no stack effect

	default:
		if lhs, rhs, res, ok := ops.Operator(in.Op, in.T); ok {
			for range rhs.Slots() {
				w.popTyped(ops.Elem(rhs))
			}
			for range lhs.Slots() {
				w.popTyped(ops.Elem(lhs))
			}
			// TT comparisons consume two CopySize-byte runs.
			if in.T == ncs.TypeTT {
				for range int(in.CopySize) / 4 * 2 {
					w.pop()
				}
			}
			for range res.Slots() {
				w.push(ops.Elem(res))
			}
		}
	}
}

func (w *walker) copyUp(depth, n int) {
	if n <= 0 {
		return
	}
	// The addressed run spans depths [depth .. depth-n+1] measured
	// against the stack before any push; copies preserve slot order.
	base := len(w.stack)
	for i := range n {
		w.stack = append(w.stack, w.atFixed(base, depth-i))
	}
}

// atFixed reads a 1-based depth measured against a stack of length base.
func (w *walker) atFixed(base, depth int) slot {
	if depth <= 0 {
		return anon(nss.Any)
	}
	if depth <= base {
		return w.stack[base-depth]
	}
	idx := w.paramAt(depth - base)
	w.obs.seeParam(idx, nss.Any)
	return slot{t: nss.Any, param: idx}
}

func (w *walker) copyDown(depth, n int) {
	if n <= 0 {
		return
	}
	// Copies the top n slots down over [depth .. depth-n+1], deepest
	// first; writes below the frame refine parameter types.
	for i := range n {
		srcDepth := n - i
		dstDepth := depth - i
		src := w.at(srcDepth)
		if dstDepth > len(w.stack) {
			idx := w.paramAt(dstDepth - len(w.stack))
			w.obs.seeParam(idx, src.t)
			continue
		}
		dst := &w.stack[len(w.stack)-dstDepth]
		if dst.param >= 0 {
			w.obs.seeParam(dst.param, src.t)
		}
		dst.t = nss.Join(dst.t, src.t)
	}
}

func (w *walker) destruct(total, keepOff, keepN int) {
	if total <= 0 {
		return
	}
	popped := make([]slot, 0, total)
	for range total {
		popped = append(popped, w.pop())
	}
	// popped[0] is the old top; the kept range is addressed from the
	// bottom of the destroyed region and re-pushed deepest first.
	for i := keepOff; i < keepOff+keepN; i++ {
		at := total - 1 - i
		if at >= 0 && at < len(popped) {
			w.stack = append(w.stack, popped[at])
		}
	}
}

func (w *walker) action(in *ncs.Instr) {
	act, err := w.table.Action(int(in.Action))
	if err != nil {
		// The simulator reports this fatally; the abstract walk just
		// keeps depth plausible.
		for range int(in.Argc) {
			w.pop()
		}
		return
	}
	for i := 0; i < int(in.Argc) && i < len(act.Params); i++ {
		p := act.Params[i]
		for range p.Slots() {
			w.popTyped(ops.Elem(p))
		}
	}
	if act.Return.Slots() > 0 {
		for range act.Return.Slots() {
			w.push(ops.Elem(act.Return))
		}
	}
}

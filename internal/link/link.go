package link

import (
	"fmt"
	"sort"

	"ncsdec/internal/diag"
	"ncsdec/internal/ncs"
)

// Program is the linked view of an instruction stream: branch targets
// resolved, subroutines discovered, every instruction owned.
type Program struct {
	Instrs []ncs.Instr
	Entry  int32

	// Order lists subroutine entries in ascending offset; Subs maps an
	// entry offset to its subroutine.
	Order []int32
	Subs  map[int32]*Subroutine

	index  map[int32]int // instruction offset -> index in Instrs
	owner  map[int32]int32
	dead   map[int32]bool
	target map[int32]int // branch offset -> target instruction index
}

// Sub returns the subroutine at the given entry offset.
func (p *Program) Sub(entry int32) *Subroutine {
	return p.Subs[entry]
}

// At returns the instruction starting at the given offset.
func (p *Program) At(offset int32) (ncs.Instr, bool) {
	i, ok := p.index[offset]
	if !ok {
		return ncs.Instr{}, false
	}
	return p.Instrs[i], true
}

// TargetOf returns the resolved target instruction of a branch.
func (p *Program) TargetOf(branch ncs.Instr) (ncs.Instr, bool) {
	i, ok := p.target[branch.Offset]
	if !ok {
		return ncs.Instr{}, false
	}
	return p.Instrs[i], true
}

// OwnerOf returns the entry offset of the subroutine owning the
// instruction at the given offset.
func (p *Program) OwnerOf(offset int32) int32 {
	return p.owner[offset]
}

// IsDead reports whether the instruction at offset is unreachable
// straight-line padding after a RETN or JMP.
func (p *Program) IsDead(offset int32) bool {
	return p.dead[offset]
}

// Link resolves the instruction stream. Unresolvable branches are fatal.
// Non-fatal findings (dead code) go to the reporter.
func Link(instrs []ncs.Instr, r diag.Reporter) (*Program, error) {
	if len(instrs) == 0 {
		diag.ReportError(r, diag.LinkNoEntry, diag.NoOffset, "empty instruction stream")
		return nil, fmt.Errorf("link: empty instruction stream")
	}

	p := &Program{
		Instrs: instrs,
		Subs:   make(map[int32]*Subroutine),
		index:  make(map[int32]int, len(instrs)),
		owner:  make(map[int32]int32, len(instrs)),
		dead:   make(map[int32]bool),
		target: make(map[int32]int),
	}
	for i, in := range instrs {
		p.index[in.Offset] = i
	}

	// Resolve branch targets; collect them for the dead sweep.
	isTarget := make(map[int32]bool)
	for _, in := range instrs {
		if !in.Op.IsBranch() {
			continue
		}
		ti, ok := p.index[in.Target()]
		if !ok {
			diag.ReportError(r, diag.LinkUnresolvedJump, diag.Offset(in.Offset),
				fmt.Sprintf("%s targets %08x, not an instruction boundary", in.Op, in.Target()))
			return nil, &UnresolvedJumpError{From: in.Offset, Target: in.Target()}
		}
		p.target[in.Offset] = ti
		isTarget[in.Target()] = true
	}

	// Program entry: always the first instruction. A leading JSR+RETN
	// trampoline decompiles as a main() that calls its target, which is
	// what the bytecode says it is.
	p.Entry = instrs[0].Offset

	// Subroutine entries: program entry plus every JSR destination.
	entrySet := map[int32]bool{p.Entry: true}
	for _, in := range instrs {
		if in.Op == ncs.OpJSR {
			entrySet[in.Target()] = true
		}
	}
	for e := range entrySet {
		p.Order = append(p.Order, e)
	}
	sort.Slice(p.Order, func(i, j int) bool { return p.Order[i] < p.Order[j] })

	// Owner tagging: nearest preceding entry at or before each offset.
	// Dead sweep: straight-line code after a RETN or JMP stays dead
	// until an entry or a branch target revives the walk.
	cur := int32(-1)
	deadRun := false
	for _, in := range instrs {
		if entrySet[in.Offset] {
			cur = in.Offset
			deadRun = false
		} else if isTarget[in.Offset] {
			deadRun = false
		}
		p.owner[in.Offset] = cur
		if deadRun {
			p.dead[in.Offset] = true
			diag.ReportInfo(r, diag.LinkDeadCode, diag.Offset(in.Offset),
				fmt.Sprintf("unreachable %s after subroutine end", in.Op))
		}
		if in.Op == ncs.OpRETN || in.Op == ncs.OpJMP {
			deadRun = true
		}
	}

	// Materialize subroutines: entry to just before the next entry.
	for i, e := range p.Order {
		startIdx := p.index[e]
		endIdx := len(instrs)
		if i+1 < len(p.Order) {
			endIdx = p.index[p.Order[i+1]]
		}
		p.Subs[e] = &Subroutine{
			Entry:  e,
			Instrs: instrs[startIdx:endIdx],
		}
	}

	// Caller back-links.
	for _, in := range instrs {
		if in.Op == ncs.OpJSR && !p.dead[in.Offset] {
			callee := p.Subs[in.Target()]
			callee.State.Callers = append(callee.State.Callers, p.owner[in.Offset])
		}
	}

	return p, nil
}

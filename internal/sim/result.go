// Package sim interprets a subroutine's instructions over a symbolic
// stack, producing typed expression trees rooted at each observable
// effect: assignments, calls, branch conditions and returns.
package sim

import (
	"fmt"

	"ncsdec/internal/ncs"
	"ncsdec/internal/nss"
)

// StackUnderflowError reports a pop past the bottom of the frame and its
// parameters. Post-prototype, this indicates malformed input.
type StackUnderflowError struct {
	Offset int32
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("sim: stack underflow at %08x", e.Offset)
}

// TypeConflictError reports a use requiring a join of two incompatible
// concrete types, with no Any to absorb the mismatch.
type TypeConflictError struct {
	Offset int32
	Want   nss.Type
	Got    nss.Type
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("sim: type conflict at %08x: %s where %s is required",
		e.Offset, e.Got.Kind, e.Want.Kind)
}

// Global describes one slot of the global frame, in push order.
type Global struct {
	Name string
	Type nss.Type
}

// StateBody is a stored-state region lifted into a synthesized void
// subroutine; ACTION passes a call to it as the action-typed argument.
type StateBody struct {
	Name   string
	Entry  int32
	Instrs []ncs.Instr
	Stmts  []*nss.Stmt
}

// SubResult carries everything the structurer needs for one subroutine:
// statements anchored at their producing instruction offsets, branch
// condition expressions, and instruction ranges elided from control flow
// (stored-state bodies and their guarding jumps).
type SubResult struct {
	Entry  int32
	Stmts  map[int32][]*nss.Stmt
	Conds  map[int32]*nss.Expr
	Elide  map[int32]bool
	States []*StateBody
}

func (r *SubResult) add(offset int32, s *nss.Stmt) {
	r.Stmts[offset] = append(r.Stmts[offset], s)
}

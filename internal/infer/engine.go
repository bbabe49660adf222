// Package infer assigns every subroutine a signature before any
// decompilation happens. Components of the call graph are processed
// leaves-first; within a component, inference iterates to a fixed point.
// Deferring all signature work to this globally ordered pass is what lets
// the simulator assume every JSR target is prototyped.
package infer

import (
	"context"
	"fmt"

	"ncsdec/internal/actions"
	"ncsdec/internal/callgraph"
	"ncsdec/internal/diag"
	"ncsdec/internal/link"
	"ncsdec/internal/nss"
)

// DefaultMaxIterations caps fixed-point passes within one component. The
// type lattice is finite-height, so the cap is a safety net rather than a
// correctness requirement.
const DefaultMaxIterations = 16

// UnresolvedSignatureError reports a reachable subroutine that kept an
// Any slot under strict mode.
type UnresolvedSignatureError struct {
	Sub  int32
	Slot string
}

func (e *UnresolvedSignatureError) Error() string {
	return fmt.Sprintf("infer: subroutine %08x has unresolved %s", e.Sub, e.Slot)
}

// Options configures the engine.
type Options struct {
	MaxIterations int
	Strict        bool
}

// Run infers a signature for every subroutine, mutating each
// Subroutine's State in place. Components must be in leaves-first order.
// Under strict mode an Any slot in an entry-reachable subroutine is
// fatal; otherwise it degrades to a warning diagnostic. Cancellation is
// checked between components; a cancelled run leaves no partial output
// contract — callers must discard the program.
func Run(ctx context.Context, p *link.Program, g *callgraph.Graph, comps []callgraph.Component,
	table *actions.Table, opts Options, r diag.Reporter) error {

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	sigOf := func(entry int32) link.Signature {
		return p.Sub(entry).State.Sig
	}

	for _, comp := range comps {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, entry := range comp.Members {
			st := &p.Sub(entry).State
			st.Status = link.ProtoInferring
			st.Sig = link.Signature{Return: nss.Any}
		}

		converged := false
		for pass := 0; pass < maxIter && !converged; pass++ {
			converged = true
			for _, entry := range comp.Members {
				sub := p.Sub(entry)
				prev := sub.State.Sig.Clone()
				obs := newWalker(p, table, sigOf).run(sub)
				widen(&sub.State.Sig, obs)
				if !sub.State.Sig.Equal(prev) {
					converged = false
				}
			}
			// A non-recursive singleton needs exactly one pass.
			if !comp.Recursive(g) {
				break
			}
		}
		if !converged && comp.Recursive(g) {
			diag.ReportInfo(r, diag.InferIterationCap, diag.Offset(comp.Members[0]),
				fmt.Sprintf("fixed point not reached after %d passes; freezing", maxIter))
		}

		// Freeze: unresolved slots stay Any; an Any return on the program
		// entry, when nothing calls it, becomes void.
		for _, entry := range comp.Members {
			st := &p.Sub(entry).State
			if st.Sig.Return.Kind == nss.TAny && len(st.Callers) == 0 && entry == p.Entry {
				// The program entry returns nothing observable.
				st.Sig.Return = nss.Void
			}
			st.Status = link.ProtoDone
		}
	}

	return check(p, g, opts.Strict, r)
}

// widen joins one pass's observations into the signature.
func widen(sig *link.Signature, obs observations) {
	for idx, t := range obs.params {
		if idx+1 > sig.ParamCount {
			sig.ParamCount = idx + 1
		}
		for len(sig.Params) < idx+1 {
			sig.Params = append(sig.Params, nss.Any)
		}
		sig.Params[idx] = nss.Join(sig.Params[idx], t)
	}
	for len(sig.Params) < sig.ParamCount {
		sig.Params = append(sig.Params, nss.Any)
	}
	if obs.retSet {
		sig.Return = nss.Join(sig.Return, obs.ret)
	}
}

// check enforces the post-inference contract: every reachable subroutine
// has a fully resolved signature or an explicitly Any slot, never an
// absent one. Strict mode turns surviving Any slots into a failure.
func check(p *link.Program, g *callgraph.Graph, strict bool, r diag.Reporter) error {
	reach := g.ReachableFrom(p.Entry)
	var firstErr error
	for _, entry := range p.Order {
		if !reach[entry] {
			continue
		}
		st := &p.Sub(entry).State
		if st.Status != link.ProtoDone {
			panic(fmt.Sprintf("infer: subroutine %08x left %s", entry, st.Status))
		}
		sev := diag.SevWarning
		for i, t := range st.Sig.Params {
			if t.Kind != nss.TAny {
				continue
			}
			r.Report(diag.InferAnyParameter, sev, diag.Offset(entry),
				fmt.Sprintf("parameter %d of %s not narrowed", i, nss.FuncName(entry)), nil)
			if strict && firstErr == nil {
				firstErr = &UnresolvedSignatureError{Sub: entry, Slot: fmt.Sprintf("parameter %d", i)}
			}
		}
		if st.Sig.Return.Kind == nss.TAny {
			r.Report(diag.InferAnyReturn, sev, diag.Offset(entry),
				fmt.Sprintf("return type of %s not narrowed", nss.FuncName(entry)), nil)
			if strict && firstErr == nil {
				firstErr = &UnresolvedSignatureError{Sub: entry, Slot: "return"}
			}
		}
	}
	return firstErr
}

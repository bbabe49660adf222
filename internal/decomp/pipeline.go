package decomp

import (
	"context"
	"errors"
	"fmt"

	"ncsdec/internal/actions"
	"ncsdec/internal/callgraph"
	"ncsdec/internal/cfg"
	"ncsdec/internal/diag"
	"ncsdec/internal/emit"
	"ncsdec/internal/infer"
	"ncsdec/internal/link"
	"ncsdec/internal/ncs"
	"ncsdec/internal/nss"
	"ncsdec/internal/sim"
)

// ErrCancelled is returned when the driver's context is cancelled
// between stages; no partial output is produced.
var ErrCancelled = errors.New("decomp: cancelled")

// Decompile turns an NCS byte stream into NSS source text. Identical
// inputs yield byte-identical output; non-fatal findings are returned as
// sorted diagnostics alongside the text.
func Decompile(ctx context.Context, data []byte, table *actions.Table, conf Config) (string, []diag.Diagnostic, error) {
	conf = conf.withDefaults()
	bag := diag.NewBag(conf.MaxDiagnostics)
	rep := diag.BagReporter{Bag: bag}

	fail := func(err error) (string, []diag.Diagnostic, error) {
		bag.Sort()
		return "", bag.Items(), err
	}
	cancelled := func() (bool, error) {
		if err := ctx.Err(); err != nil {
			return true, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return false, nil
	}
	if stop, err := cancelled(); stop {
		return fail(err)
	}

	instrs, err := ncs.Decode(data)
	if err != nil {
		reportDecodeError(rep, err)
		return fail(err)
	}
	if stop, err := cancelled(); stop {
		return fail(err)
	}

	p, err := link.Link(instrs, rep)
	if err != nil {
		return fail(err)
	}
	g := callgraph.Build(p)
	comps := callgraph.Condense(g)
	if stop, err := cancelled(); stop {
		return fail(err)
	}

	opts := infer.Options{MaxIterations: conf.MaxIterations, Strict: conf.StrictSignatures}
	if err := infer.Run(ctx, p, g, comps, table, opts, rep); err != nil {
		if stop, cerr := cancelled(); stop {
			return fail(cerr)
		}
		return fail(err)
	}

	layout, err := scanGlobals(p, table, rep)
	if err != nil {
		return fail(err)
	}
	if stop, err := cancelled(); stop {
		return fail(err)
	}

	script, names, err := build(p, g, comps, table, layout, conf, rep)
	if err != nil {
		return fail(err)
	}
	if stop, err := cancelled(); stop {
		return fail(err)
	}

	em := &emit.Emitter{Names: names}
	text := string(em.Emit(script))
	bag.Sort()
	return text, bag.Items(), nil
}

func reportDecodeError(rep diag.Reporter, err error) {
	var unk *ncs.UnknownOpcodeError
	switch {
	case errors.Is(err, ncs.ErrBadMagic):
		diag.ReportError(rep, diag.NcsBadMagic, diag.NoOffset, "not an NCS V1.0 stream")
	case errors.Is(err, ncs.ErrTruncated):
		diag.ReportError(rep, diag.NcsTruncated, diag.NoOffset, "bytecode ends inside an instruction or header")
	case errors.As(err, &unk):
		diag.ReportError(rep, diag.NcsUnknownOpcode, diag.Offset(unk.Offset),
			fmt.Sprintf("unknown opcode 0x%02x", unk.Op))
	}
}

// build simulates and structures every emitted subroutine in leaves-first
// order, so callees are defined before their callers in the output.
func build(p *link.Program, g *callgraph.Graph, comps []callgraph.Component,
	table *actions.Table, layout *globalLayout, conf Config, rep diag.Reporter) (*nss.Script, map[int32]string, error) {

	reach := g.ReachableFrom(p.Entry)

	names := make(map[int32]string)
	var order []int32
	for _, comp := range comps {
		for _, entry := range comp.Members {
			if entry == layout.tramp || entry == layout.initSub {
				continue
			}
			if !reach[entry] && entry != layout.main && !conf.PreserveDeadSubroutines {
				diag.ReportInfo(rep, diag.DrvDeadSubroutine, diag.Offset(entry),
					fmt.Sprintf("pruning %s: unreachable from entry", nss.FuncName(entry)))
				continue
			}
			order = append(order, entry)
			if entry == layout.main {
				names[entry] = "main"
			} else {
				names[entry] = nss.FuncName(entry)
			}
		}
	}

	script := &nss.Script{Globals: layout.decls}
	for _, entry := range order {
		sub := p.Sub(entry)
		res, err := sim.Simulate(p, sub, table, sim.Options{Globals: layout.globals}, rep)
		if err != nil {
			return nil, nil, err
		}
		for _, sb := range res.States {
			names[sb.Entry] = sb.Name
			script.Funcs = append(script.Funcs, &nss.Function{
				Name:   sb.Name,
				Entry:  sb.Entry,
				Return: nss.Void,
				Body:   cfg.Tidy(sb.Stmts),
			})
		}
		script.Funcs = append(script.Funcs, &nss.Function{
			Name:   names[entry],
			Entry:  entry,
			Return: sub.State.Sig.Return,
			Params: paramsOf(sub.State.Sig),
			Body:   cfg.Structure(p, sub, res, rep),
		})
	}
	return script, names, nil
}

func paramsOf(sig link.Signature) []nss.Param {
	params := make([]nss.Param, 0, sig.ParamCount)
	for i := 0; i < sig.ParamCount; i++ {
		t := nss.Any
		if i < len(sig.Params) {
			t = sig.Params[i]
		}
		params = append(params, nss.Param{Type: t, Name: nss.ParamName(i)})
	}
	return params
}

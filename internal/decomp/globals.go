package decomp

import (
	"ncsdec/internal/actions"
	"ncsdec/internal/cfg"
	"ncsdec/internal/diag"
	"ncsdec/internal/link"
	"ncsdec/internal/ncs"
	"ncsdec/internal/nss"
	"ncsdec/internal/sim"
)

// globalLayout describes the global frame discovered in the entry
// subroutine. Scripts without globals leave initSub and tramp at -1 and
// main at the program entry.
type globalLayout struct {
	globals []sim.Global
	decls   []*nss.Stmt
	main    int32
	initSub int32
	tramp   int32
}

// scanGlobals recognizes the global-initializer shape: an initializer
// subroutine that reserves slots, runs initializer code, anchors BP with
// SAVEBP and then calls the real main. The prefix before SAVEBP becomes
// global declarations; later subroutines address those slots through BP.
// Compilers reach the initializer through a JSR+RETN trampoline at the
// stream head; both shells disappear from the output.
func scanGlobals(p *link.Program, table *actions.Table, rep diag.Reporter) (*globalLayout, error) {
	layout := &globalLayout{main: p.Entry, initSub: -1, tramp: -1}

	initEntry := p.Entry
	entrySub := p.Sub(p.Entry)
	tramp := int32(-1)
	if len(entrySub.Instrs) >= 2 &&
		entrySub.Instrs[0].Op == ncs.OpJSR && entrySub.Instrs[1].Op == ncs.OpRETN {
		target := entrySub.Instrs[0].Target()
		if cand := p.Sub(target); cand != nil && hasSaveBP(p, cand) {
			tramp = p.Entry
			initEntry = target
			entrySub = cand
		}
	}

	saveIdx := -1
	for i, in := range entrySub.Instrs {
		if in.Op == ncs.OpSAVEBP && !p.IsDead(in.Offset) {
			saveIdx = i
			break
		}
	}
	if saveIdx < 0 {
		return layout, nil
	}
	layout.tramp = tramp

	prefix := entrySub.Instrs[:saveIdx]
	for _, in := range prefix {
		if in.Op == ncs.OpRSADD {
			layout.globals = append(layout.globals, sim.Global{
				Name: nss.GlobalName(in.Offset),
				Type: nss.TypeForEngine(in.T),
			})
		}
	}

	pseudo := &link.Subroutine{
		Entry:  initEntry,
		Instrs: prefix,
		State: link.State{
			Status: link.ProtoDone,
			Sig:    link.Signature{Return: nss.Void},
		},
	}
	res, err := sim.Simulate(p, pseudo, table, sim.Options{GlobalInit: true}, rep)
	if err != nil {
		return nil, err
	}
	layout.decls = cfg.Tidy(sim.Linearize(res, prefix))
	layout.initSub = initEntry

	// The real main is the first call made under the anchored frame.
	for _, in := range entrySub.Instrs[saveIdx:] {
		if in.Op == ncs.OpJSR && !p.IsDead(in.Offset) {
			layout.main = in.Target()
			break
		}
	}
	return layout, nil
}

func hasSaveBP(p *link.Program, sub *link.Subroutine) bool {
	for _, in := range sub.Instrs {
		if in.Op == ncs.OpSAVEBP && !p.IsDead(in.Offset) {
			return true
		}
	}
	return false
}

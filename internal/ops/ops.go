// Package ops maps NCS operator opcodes and their pair codes to operand
// and result types in the NSS lattice, and to output-side operators.
package ops

import (
	"ncsdec/internal/ncs"
	"ncsdec/internal/nss"
)

// Operator returns the operand and result types of a binary operator
// given its pair code. Comparisons always yield int. ok is false for
// opcodes that are not binary operators or for unknown pair codes.
func Operator(op ncs.Op, t uint8) (lhs, rhs, res nss.Type, ok bool) {
	switch op {
	case ncs.OpADD, ncs.OpSUB, ncs.OpMUL, ncs.OpDIV, ncs.OpMOD,
		ncs.OpLOGAND, ncs.OpLOGOR, ncs.OpINCOR, ncs.OpEXCOR, ncs.OpBOOLAND,
		ncs.OpSHLEFT, ncs.OpSHRIGHT, ncs.OpUSHRIGHT,
		ncs.OpEQUAL, ncs.OpNEQUAL, ncs.OpGEQ, ncs.OpGT, ncs.OpLT, ncs.OpLEQ:
	default:
		return nss.Any, nss.Any, nss.Any, false
	}

	cmp := op.IsCompare()
	switch t {
	case ncs.TypeII:
		return nss.Int, nss.Int, nss.Int, true
	case ncs.TypeFF:
		if cmp {
			return nss.Float, nss.Float, nss.Int, true
		}
		return nss.Float, nss.Float, nss.Float, true
	case ncs.TypeIF:
		return nss.Int, nss.Float, nss.Float, true
	case ncs.TypeFI:
		return nss.Float, nss.Int, nss.Float, true
	case ncs.TypeSS:
		if cmp {
			return nss.String, nss.String, nss.Int, true
		}
		return nss.String, nss.String, nss.String, true
	case ncs.TypeOO:
		return nss.Object, nss.Object, nss.Int, true
	case ncs.TypeEFEF:
		return nss.Effect, nss.Effect, nss.Int, true
	case ncs.TypeEVEV:
		return nss.Event, nss.Event, nss.Int, true
	case ncs.TypeLOCLOC:
		return nss.Location, nss.Location, nss.Int, true
	case ncs.TypeTALTAL:
		return nss.Talent, nss.Talent, nss.Int, true
	case ncs.TypeVV:
		if cmp {
			return nss.Vector, nss.Vector, nss.Int, true
		}
		return nss.Vector, nss.Vector, nss.Vector, true
	case ncs.TypeVF:
		return nss.Vector, nss.Float, nss.Vector, true
	case ncs.TypeFV:
		return nss.Float, nss.Vector, nss.Vector, true
	case ncs.TypeTT:
		// Struct comparison; operands are sized by the instruction's
		// CopySize operand, not by these types.
		return nss.Void, nss.Void, nss.Int, true
	}
	return nss.Any, nss.Any, nss.Any, false
}

// UnaryType returns the operand/result type of NEG, COMP and NOT from
// the instruction's type byte.
func UnaryType(t uint8) nss.Type {
	switch t {
	case ncs.TypeInt, ncs.TypeII:
		return nss.Int
	case ncs.TypeFloat, ncs.TypeFF:
		return nss.Float
	}
	return nss.Any
}

// Binary maps an operator opcode to the output-side operator.
func Binary(op ncs.Op) (nss.BinaryOp, bool) {
	switch op {
	case ncs.OpADD:
		return nss.OpAdd, true
	case ncs.OpSUB:
		return nss.OpSub, true
	case ncs.OpMUL:
		return nss.OpMul, true
	case ncs.OpDIV:
		return nss.OpDiv, true
	case ncs.OpMOD:
		return nss.OpMod, true
	case ncs.OpLOGAND:
		return nss.OpLogAnd, true
	case ncs.OpLOGOR:
		return nss.OpLogOr, true
	case ncs.OpINCOR:
		return nss.OpBitOr, true
	case ncs.OpEXCOR:
		return nss.OpBitXor, true
	case ncs.OpBOOLAND:
		return nss.OpBitAnd, true
	case ncs.OpSHLEFT:
		return nss.OpShl, true
	case ncs.OpSHRIGHT:
		return nss.OpShr, true
	case ncs.OpUSHRIGHT:
		return nss.OpUshr, true
	case ncs.OpEQUAL:
		return nss.OpEq, true
	case ncs.OpNEQUAL:
		return nss.OpNeq, true
	case ncs.OpGEQ:
		return nss.OpGeq, true
	case ncs.OpGT:
		return nss.OpGt, true
	case ncs.OpLT:
		return nss.OpLt, true
	case ncs.OpLEQ:
		return nss.OpLeq, true
	}
	return 0, false
}

// Unary maps an operator opcode to the output-side operator.
func Unary(op ncs.Op) (nss.UnaryOp, bool) {
	switch op {
	case ncs.OpNEG:
		return nss.OpNeg, true
	case ncs.OpNOT:
		return nss.OpNot, true
	case ncs.OpCOMP:
		return nss.OpComp, true
	}
	return 0, false
}

// Elem returns the per-slot element type of a value: vectors decompose
// to float slots, everything else occupies itself.
func Elem(t nss.Type) nss.Type {
	if t.Kind == nss.TVector {
		return nss.Float
	}
	return t
}

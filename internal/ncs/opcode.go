// Package ncs provides types and decoding for the compiled NWScript
// bytecode format (NCS) used by the Aurora and Odyssey engines.
package ncs

// Op is an NCS opcode.
type Op byte

// All NCS V1.0 opcodes.
const (
	OpCPDOWNSP  Op = 0x01 // copy top down to a stack slot
	OpRSADD     Op = 0x02 // reserve a slot of the instruction's type
	OpCPTOPSP   Op = 0x03 // copy a stack slot up to the top
	OpCONST     Op = 0x04 // push a constant
	OpACTION    Op = 0x05 // call an engine action
	OpLOGAND    Op = 0x06
	OpLOGOR     Op = 0x07
	OpINCOR     Op = 0x08
	OpEXCOR     Op = 0x09
	OpBOOLAND   Op = 0x0A
	OpEQUAL     Op = 0x0B
	OpNEQUAL    Op = 0x0C
	OpGEQ       Op = 0x0D
	OpGT        Op = 0x0E
	OpLT        Op = 0x0F
	OpLEQ       Op = 0x10
	OpSHLEFT    Op = 0x11
	OpSHRIGHT   Op = 0x12
	OpUSHRIGHT  Op = 0x13
	OpADD       Op = 0x14
	OpSUB       Op = 0x15
	OpMUL       Op = 0x16
	OpDIV       Op = 0x17
	OpMOD       Op = 0x18
	OpNEG       Op = 0x19
	OpCOMP      Op = 0x1A // bitwise complement
	OpMOVSP     Op = 0x1B
	OpSTORESTA  Op = 0x1C // STORE_STATEALL, legacy, operand-less
	OpJMP       Op = 0x1D
	OpJSR       Op = 0x1E
	OpJZ        Op = 0x1F
	OpRETN      Op = 0x20
	OpDESTRUCT  Op = 0x21
	OpNOT       Op = 0x22
	OpDECISP    Op = 0x23
	OpINCISP    Op = 0x24
	OpJNZ       Op = 0x25
	OpCPDOWNBP  Op = 0x26
	OpCPTOPBP   Op = 0x27
	OpDECIBP    Op = 0x28
	OpINCIBP    Op = 0x29
	OpSAVEBP    Op = 0x2A
	OpRESTOREBP Op = 0x2B
	OpSTORESTATE Op = 0x2C
	OpNOP       Op = 0x2D

	MaxOp = OpNOP + 1
)

// Type bytes. Value types identify the operand of CONST/RSADD; pair codes
// identify the operand types of binary operators.
const (
	TypeNone   uint8 = 0x00
	TypeInt    uint8 = 0x03
	TypeFloat  uint8 = 0x04
	TypeString uint8 = 0x05
	TypeObject uint8 = 0x06
	TypeEffect   uint8 = 0x10
	TypeEvent    uint8 = 0x11
	TypeLocation uint8 = 0x12
	TypeTalent   uint8 = 0x13

	TypeII uint8 = 0x20
	TypeFF uint8 = 0x21
	TypeOO uint8 = 0x22
	TypeSS uint8 = 0x23
	TypeTT uint8 = 0x24 // struct = struct comparison, carries a size operand
	TypeIF uint8 = 0x25
	TypeFI uint8 = 0x26

	TypeEFEF   uint8 = 0x30
	TypeEVEV   uint8 = 0x31
	TypeLOCLOC uint8 = 0x32
	TypeTALTAL uint8 = 0x33

	TypeVV uint8 = 0x3A
	TypeVF uint8 = 0x3B
	TypeFV uint8 = 0x3C
)

// Magic is the 8-byte signature opening every NCS V1.0 file, followed by
// the 0x42 size marker and a big-endian uint32 of the total file length.
const Magic = "NCS V1.0"

// HeaderSize is the byte offset of the first instruction.
const HeaderSize = 13

var opNames = [MaxOp]string{
	OpCPDOWNSP: "CPDOWNSP", OpRSADD: "RSADD", OpCPTOPSP: "CPTOPSP",
	OpCONST: "CONST", OpACTION: "ACTION",
	OpLOGAND: "LOGAND", OpLOGOR: "LOGOR",
	OpINCOR: "INCOR", OpEXCOR: "EXCOR", OpBOOLAND: "BOOLAND",
	OpEQUAL: "EQUAL", OpNEQUAL: "NEQUAL",
	OpGEQ: "GEQ", OpGT: "GT", OpLT: "LT", OpLEQ: "LEQ",
	OpSHLEFT: "SHLEFT", OpSHRIGHT: "SHRIGHT", OpUSHRIGHT: "USHRIGHT",
	OpADD: "ADD", OpSUB: "SUB", OpMUL: "MUL", OpDIV: "DIV", OpMOD: "MOD",
	OpNEG: "NEG", OpCOMP: "COMP",
	OpMOVSP: "MOVSP", OpSTORESTA: "STORESTATEALL",
	OpJMP: "JMP", OpJSR: "JSR", OpJZ: "JZ", OpRETN: "RETN",
	OpDESTRUCT: "DESTRUCT", OpNOT: "NOT",
	OpDECISP: "DECISP", OpINCISP: "INCISP", OpJNZ: "JNZ",
	OpCPDOWNBP: "CPDOWNBP", OpCPTOPBP: "CPTOPBP",
	OpDECIBP: "DECIBP", OpINCIBP: "INCIBP",
	OpSAVEBP: "SAVEBP", OpRESTOREBP: "RESTOREBP",
	OpSTORESTATE: "STORESTATE", OpNOP: "NOP",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "???"
}

// IsBranch reports whether the opcode carries a relative code offset.
func (op Op) IsBranch() bool {
	switch op {
	case OpJMP, OpJSR, OpJZ, OpJNZ:
		return true
	}
	return false
}

// IsConditional reports whether the opcode branches on a popped condition.
func (op Op) IsConditional() bool {
	return op == OpJZ || op == OpJNZ
}

// IsCompare reports whether the opcode is a comparison operator.
func (op Op) IsCompare() bool {
	switch op {
	case OpEQUAL, OpNEQUAL, OpGEQ, OpGT, OpLT, OpLEQ:
		return true
	}
	return false
}

// operand payload layouts, dispatched by opcode
type layout uint8

const (
	layNone     layout = iota // no operand bytes
	layConst                  // type-dependent constant payload
	layAction                 // uint16 action id + uint8 arg count
	layOffSize                // int32 offset + uint16 size
	layDisp                   // int32 displacement or relative target
	layDestruct               // three int16: size, keep-offset, keep-size
	layEqual                  // uint16 size for TT comparisons, else none
	layState                  // two uint32: BP range, SP range
)

var opLayouts = [MaxOp]layout{
	OpCPDOWNSP: layOffSize, OpCPTOPSP: layOffSize,
	OpCPDOWNBP: layOffSize, OpCPTOPBP: layOffSize,
	OpCONST:  layConst,
	OpACTION: layAction,
	OpEQUAL:  layEqual, OpNEQUAL: layEqual,
	OpMOVSP: layDisp,
	OpJMP:   layDisp, OpJSR: layDisp, OpJZ: layDisp, OpJNZ: layDisp,
	OpDECISP: layDisp, OpINCISP: layDisp,
	OpDECIBP: layDisp, OpINCIBP: layDisp,
	OpDESTRUCT:   layDestruct,
	OpSTORESTATE: layState,
}

// known reports whether the opcode byte names a real instruction.
func known(op Op) bool {
	return int(op) < len(opNames) && opNames[op] != ""
}

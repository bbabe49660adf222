// Package nss holds the output-side data model of the decompiler: the
// NWScript type lattice and the expression/statement trees that the
// emitter serializes to source text.
package nss

// TypeKind enumerates the NWScript value types plus the lattice top (Any)
// used while inference has not narrowed a slot.
type TypeKind uint8

const (
	TVoid TypeKind = iota
	TInt
	TFloat
	TString
	TObject
	TVector
	TEffect
	TEvent
	TLocation
	TTalent
	TAction
	TStruct
	TAny
)

// Type is a point in the NWScript type lattice. Fields is non-nil only for
// TStruct; struct values decompose to a flat run of field slots.
type Type struct {
	Kind   TypeKind
	Fields []Type
}

var (
	Void     = Type{Kind: TVoid}
	Int      = Type{Kind: TInt}
	Float    = Type{Kind: TFloat}
	String   = Type{Kind: TString}
	Object   = Type{Kind: TObject}
	Vector   = Type{Kind: TVector}
	Effect   = Type{Kind: TEffect}
	Event    = Type{Kind: TEvent}
	Location = Type{Kind: TLocation}
	Talent   = Type{Kind: TTalent}
	Action   = Type{Kind: TAction}
	Any      = Type{Kind: TAny}
)

func StructOf(fields []Type) Type {
	return Type{Kind: TStruct, Fields: fields}
}

func (t Type) Is(k TypeKind) bool { return t.Kind == k }

// Slots returns the number of stack slots a value of this type occupies.
// Action-typed values live in stored state, not on the stack.
func (t Type) Slots() int {
	switch t.Kind {
	case TVoid, TAction:
		return 0
	case TVector:
		return 3
	case TStruct:
		n := 0
		for _, f := range t.Fields {
			n += f.Slots()
		}
		return n
	default:
		return 1
	}
}

// Join computes the least upper bound of two lattice points:
// Join(T, T) = T, Join(T, Any) = T, otherwise Any.
func Join(a, b Type) Type {
	if a.Kind == TAny {
		return b
	}
	if b.Kind == TAny {
		return a
	}
	if a.Kind != b.Kind {
		return Any
	}
	if a.Kind != TStruct {
		return a
	}
	if len(a.Fields) != len(b.Fields) {
		return Any
	}
	fields := make([]Type, len(a.Fields))
	for i := range a.Fields {
		fields[i] = Join(a.Fields[i], b.Fields[i])
	}
	return StructOf(fields)
}

// Equal reports structural equality of two types.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind || len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if !Equal(a.Fields[i], b.Fields[i]) {
			return false
		}
	}
	return true
}

var typeNames = [...]string{
	TVoid:     "void",
	TInt:      "int",
	TFloat:    "float",
	TString:   "string",
	TObject:   "object",
	TVector:   "vector",
	TEffect:   "effect",
	TEvent:    "event",
	TLocation: "location",
	TTalent:   "talent",
	TAction:   "action",
	TStruct:   "struct",
	TAny:      "int", // Any freezes to int in emitted source; see emitter
}

// Keyword returns the NSS keyword for the type. Struct types synthesize
// their name from the defining offset at emission time.
func (t Type) Keyword() string {
	if int(t.Kind) < len(typeNames) {
		return typeNames[t.Kind]
	}
	return "int"
}

func (t TypeKind) String() string {
	if t == TAny {
		return "any"
	}
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "?"
}

// ParseKeyword maps an NSS type keyword from an action-table signature to
// a lattice point. Unknown keywords (engine structs such as "itemproperty"
// in later games) widen to Any.
func ParseKeyword(kw string) Type {
	switch kw {
	case "void":
		return Void
	case "int":
		return Int
	case "float":
		return Float
	case "string":
		return String
	case "object":
		return Object
	case "vector":
		return Vector
	case "effect":
		return Effect
	case "event":
		return Event
	case "location":
		return Location
	case "talent":
		return Talent
	case "action":
		return Action
	}
	return Any
}

// Engine type bytes carried by NCS instructions. The reader exposes these
// raw; TypeForEngine lifts them into the lattice.
const (
	engInt      = 0x03
	engFloat    = 0x04
	engString   = 0x05
	engObject   = 0x06
	engEffect   = 0x10
	engEvent    = 0x11
	engLocation = 0x12
	engTalent   = 0x13
)

// TypeForEngine maps an NCS instruction type byte to a lattice point.
// Bytes that do not name a value type (operator pair codes such as II or
// VV) map to Any.
func TypeForEngine(code uint8) Type {
	switch code {
	case engInt:
		return Int
	case engFloat:
		return Float
	case engString:
		return String
	case engObject:
		return Object
	case engEffect:
		return Effect
	case engEvent:
		return Event
	case engLocation:
		return Location
	case engTalent:
		return Talent
	}
	return Any
}

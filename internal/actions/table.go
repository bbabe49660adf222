// Package actions parses and exposes the engine-action catalogue from a
// companion nwscript source file. Decompilation uses this metadata to size
// the stack for ACTION calls and to type their results.
package actions

import (
	"fmt"

	"ncsdec/internal/nss"
)

// Action is one immutable engine-action signature.
type Action struct {
	Name     string
	Return   nss.Type
	Params   []nss.Type
	Defaults []string // "" = no default for that parameter
}

// MissingActionError reports a lookup of an index the table has no
// signature for. Indices may legitimately be absent: the catalogue skips
// numbers and interleaves non-action declarations.
type MissingActionError struct {
	Index int
}

func (e *MissingActionError) Error() string {
	return fmt.Sprintf("actions: no signature for action %d", e.Index)
}

// ParamSlots returns the total stack slots the action's arguments occupy.
func (a *Action) ParamSlots() int {
	n := 0
	for _, p := range a.Params {
		n += p.Slots()
	}
	return n
}

// Required returns the number of required parameters: the count before
// the first trailing run of defaults.
func (a *Action) Required() int {
	count := 0
	for i, d := range a.Defaults {
		if d == "" {
			count = i + 1
		}
	}
	return count
}

// Dump returns the serialized debug form: `"<name>" <ret-code> <size>`.
func (a *Action) Dump() string {
	return fmt.Sprintf("%q %d %d", a.Name, typeCode(a.Return), a.ParamSlots())
}

// typeCode mirrors the engine's type byte values for the dump form.
func typeCode(t nss.Type) int {
	switch t.Kind {
	case nss.TVoid:
		return 0
	case nss.TInt:
		return 3
	case nss.TFloat:
		return 4
	case nss.TString:
		return 5
	case nss.TObject:
		return 6
	case nss.TEffect:
		return 0x10
	case nss.TEvent:
		return 0x11
	case nss.TLocation:
		return 0x12
	case nss.TTalent:
		return 0x13
	case nss.TVector:
		return 0x3A
	case nss.TAction:
		return 0x2C
	}
	return 0xFF
}

// Table is the indexed action catalogue. Entries may be nil where the
// source skipped an index.
type Table struct {
	entries []*Action
}

// Len returns the table size (max index + 1).
func (t *Table) Len() int {
	return len(t.entries)
}

// Action returns the signature bound to index i.
func (t *Table) Action(i int) (*Action, error) {
	if i < 0 || i >= len(t.entries) || t.entries[i] == nil {
		return nil, &MissingActionError{Index: i}
	}
	return t.entries[i], nil
}

// Dump returns the serialized form of entry i, or an error for absent
// entries (the original exposed this through its debug tree).
func (t *Table) Dump(i int) (string, error) {
	a, err := t.Action(i)
	if err != nil {
		return "", err
	}
	return a.Dump(), nil
}

// Snapshot exposes the raw entry slice (nil where an index is absent)
// for cache serialization.
func (t *Table) Snapshot() []*Action {
	return t.entries
}

// Restore rebuilds a table from a snapshot.
func Restore(entries []*Action) *Table {
	return &Table{entries: entries}
}

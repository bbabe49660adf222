package actions

import (
	"errors"
	"strings"
	"testing"

	"ncsdec/internal/nss"
)

const sampleTable = `
// This block precedes the table and must be ignored.
int GLOBAL_CONSTANT = 42;

// 0. Random
// Returns a random integer.
int Random(int nMaxInteger);

// 1. PrintString
void PrintString(string sString);

// Not an action header, skip.
// 3. Delayed
void DelayCommand(float fSeconds, action aActionToDelay);

// 5. SetFacing
void SetFacing(float fDirection, int bLockToThisOrientation = FALSE);

// 6. Vectors
vector VectorNormalize(vector vVector);
`

func load(t *testing.T) *Table {
	t.Helper()
	tbl, err := Load(strings.NewReader(sampleTable))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tbl
}

func TestLoadBindsExplicitIndices(t *testing.T) {
	tbl := load(t)
	if tbl.Len() != 7 {
		t.Fatalf("Len = %d, want 7", tbl.Len())
	}

	a, err := tbl.Action(3)
	if err != nil {
		t.Fatalf("Action(3): %v", err)
	}
	if a.Name != "DelayCommand" {
		t.Fatalf("Action(3).Name = %q, want DelayCommand", a.Name)
	}

	// Index 2 and 4 were skipped by the source.
	for _, idx := range []int{2, 4} {
		_, err := tbl.Action(idx)
		var missing *MissingActionError
		if !errors.As(err, &missing) {
			t.Fatalf("Action(%d) err = %v, want MissingActionError", idx, err)
		}
		if missing.Index != idx {
			t.Fatalf("missing index = %d, want %d", missing.Index, idx)
		}
	}
}

func TestLoadSignatureTypes(t *testing.T) {
	tbl := load(t)

	random, err := tbl.Action(0)
	if err != nil {
		t.Fatalf("Action(0): %v", err)
	}
	if !nss.Equal(random.Return, nss.Int) {
		t.Fatalf("Random return = %v", random.Return)
	}
	if len(random.Params) != 1 || !nss.Equal(random.Params[0], nss.Int) {
		t.Fatalf("Random params = %v", random.Params)
	}

	delay, _ := tbl.Action(3)
	if delay.ParamSlots() != 1 {
		// float = 1 slot, action = 0 slots (lives in stored state)
		t.Fatalf("DelayCommand slots = %d, want 1", delay.ParamSlots())
	}

	norm, _ := tbl.Action(6)
	if norm.ParamSlots() != 3 {
		t.Fatalf("VectorNormalize slots = %d, want 3", norm.ParamSlots())
	}
}

func TestRequiredParamCount(t *testing.T) {
	tbl := load(t)

	facing, _ := tbl.Action(5)
	if got := facing.Required(); got != 1 {
		t.Fatalf("SetFacing required = %d, want 1", got)
	}
	if facing.Defaults[1] != "FALSE" {
		t.Fatalf("SetFacing default[1] = %q", facing.Defaults[1])
	}

	random, _ := tbl.Action(0)
	if got := random.Required(); got != 1 {
		t.Fatalf("Random required = %d, want 1", got)
	}
}

func TestDumpForm(t *testing.T) {
	tbl := load(t)
	got, err := tbl.Dump(0)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if got != `"Random" 3 1` {
		t.Fatalf("Dump(0) = %s", got)
	}
	if _, err := tbl.Dump(2); err == nil {
		t.Fatalf("Dump(2) succeeded for absent entry")
	}
}

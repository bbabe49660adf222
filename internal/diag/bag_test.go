package diag

import "testing"

func TestBagCap(t *testing.T) {
	b := NewBag(2)
	if !b.Add(NewError(NcsTruncated, 0, "a")) {
		t.Fatalf("first add dropped")
	}
	if !b.Add(NewError(NcsTruncated, 4, "b")) {
		t.Fatalf("second add dropped")
	}
	if b.Add(NewError(NcsTruncated, 8, "c")) {
		t.Fatalf("add past cap accepted")
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
}

func TestBagHasErrors(t *testing.T) {
	b := NewBag(8)
	b.Add(New(SevInfo, LinkDeadCode, 12, "dead"))
	if b.HasErrors() {
		t.Fatalf("info-only bag reports errors")
	}
	b.Add(New(SevWarning, InferAnyParameter, 0, "any"))
	if b.HasErrors() {
		t.Fatalf("warning bag reports errors")
	}
	if !b.HasWarnings() {
		t.Fatalf("warning bag reports no warnings")
	}
	b.Add(NewError(LinkUnresolvedJump, 20, "bad"))
	if !b.HasErrors() {
		t.Fatalf("error bag reports no errors")
	}
}

func TestBagSortDeterministic(t *testing.T) {
	b := NewBag(8)
	b.Add(New(SevWarning, InferAnyReturn, 16, "w"))
	b.Add(NewError(SimStackUnderflow, 4, "u"))
	b.Add(New(SevInfo, LinkDeadCode, 4, "d"))
	b.Sort()

	items := b.Items()
	if items[0].Primary != 4 || items[0].Severity != SevError {
		t.Fatalf("items[0] = %v", items[0])
	}
	if items[1].Primary != 4 || items[1].Severity != SevInfo {
		t.Fatalf("items[1] = %v", items[1])
	}
	if items[2].Primary != 16 {
		t.Fatalf("items[2] = %v", items[2])
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(8)
	b.Add(NewError(LinkUnresolvedJump, 8, "x"))
	b.Add(NewError(LinkUnresolvedJump, 8, "x again"))
	b.Add(NewError(LinkUnresolvedJump, 12, "y"))
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("Len = %d after dedup, want 2", b.Len())
	}
}

package diff

import (
	"strings"
	"testing"
)

func TestNormalizeStripsCommentsAndWhitespace(t *testing.T) {
	src := `
// header comment
void   main()   {
    int x = TRUE;   // trailing
    /* block
       comment */
    float f = 2.0f;
    PrintString("keep // this /* too */");
}
`
	lines := Normalize(src)
	want := []string{
		"void main() {",
		"int x = 1;",
		"float f = 2.0;",
		`PrintString("keep // this /* too */");`,
		"}",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEqualModuloNormalization(t *testing.T) {
	a := "void main() {\n    if (TRUE) {\n        SetDelay(1.5f);\n    }\n}\n"
	b := "// regenerated\nvoid main() {\n    if (1)  {\n        SetDelay(1.5);\n    }\n}\n"
	if !Equal(a, b) {
		t.Fatalf("normalized sources differ:\n%s", Unified("a", a, "b", b))
	}
}

func TestUnifiedReportsChanges(t *testing.T) {
	a := "void main() {\n    x = 1;\n}\n"
	b := "void main() {\n    x = 2;\n}\n"
	out := Unified("a.nss", a, "b.nss", b)
	if out == "" {
		t.Fatalf("differing inputs produced empty diff")
	}
	if !strings.Contains(out, "-x = 1;") || !strings.Contains(out, "+x = 2;") {
		t.Fatalf("diff missing edits:\n%s", out)
	}
	if !strings.HasPrefix(out, "--- a.nss\n+++ b.nss\n") {
		t.Fatalf("diff missing header:\n%s", out)
	}
}

func TestUnifiedEmptyOnEqual(t *testing.T) {
	a := "void main() {}\n"
	if out := Unified("a", a, "b", a); out != "" {
		t.Fatalf("equal inputs produced diff:\n%s", out)
	}
}

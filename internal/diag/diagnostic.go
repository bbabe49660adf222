package diag

import "fmt"

// Severity ranks how serious a diagnostic is. Errors abort the pipeline;
// warnings and infos ride along with the output.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Offset locates a diagnostic in the input byte stream. NoOffset marks
// diagnostics with no meaningful position (e.g. table-wide failures).
type Offset int32

const NoOffset Offset = -1

func (o Offset) String() string {
	if o == NoOffset {
		return "-"
	}
	return fmt.Sprintf("%08x", int32(o))
}

type Note struct {
	Offset Offset
	Msg    string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Offset
	Notes    []Note
}

func New(sev Severity, code Code, primary Offset, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary Offset, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(at Offset, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Offset: at, Msg: msg})
	return d
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s[%s] at %s: %s", d.Severity, d.Code, d.Primary, d.Message)
}

package nss

import "fmt"

// Identifier synthesis is deterministic: every generated name is a
// function of the entity's defining offset. Hex is lowercase with no
// zero padding.

func FuncName(entry int32) string  { return fmt.Sprintf("fn_%x", entry) }
func LocalName(offset int32) string { return fmt.Sprintf("loc_%x", offset) }
func GlobalName(offset int32) string { return fmt.Sprintf("var_%x", offset) }
func StateName(entry int32) string  { return fmt.Sprintf("sta_%x", entry) }

// ParamName names parameter i of any subroutine; parameters have no
// defining offset of their own.
func ParamName(i int) string { return fmt.Sprintf("param%d", i+1) }

// StructName names a synthesized struct type by its defining offset.
func StructName(offset int32) string { return fmt.Sprintf("struct_%x", offset) }

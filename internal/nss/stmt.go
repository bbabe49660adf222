package nss

// StmtKind discriminates statement nodes.
type StmtKind uint8

const (
	StmtBlock StmtKind = iota
	StmtIf
	StmtWhile
	StmtDoWhile
	StmtFor
	StmtSwitch
	StmtBreak
	StmtContinue
	StmtReturn
	StmtExpr
	StmtVarDecl

	// Unstructured-jump fallbacks. NSS has no goto; these are emitted
	// only as a last resort alongside a diagnostic.
	StmtGoto
	StmtLabel
)

// Stmt is a statement node. Exactly the fields selected by Kind are
// meaningful.
type Stmt struct {
	Kind StmtKind

	// Block body (StmtBlock) or loop/branch bodies.
	Body []*Stmt

	// Conditionals and loops.
	Cond *Expr
	Then []*Stmt
	Else []*Stmt

	// For-loop clauses.
	Init *Expr
	Step *Expr

	// Switch.
	Disc  *Expr
	Cases []*SwitchCase

	// Return value (nil for void) and expression statements.
	Expr *Expr

	// Variable declarations.
	DeclType Type
	DeclName string
	DeclInit *Expr

	// Goto/label fallback target.
	Label string
}

// SwitchCase is one arm of a switch. A nil Value marks the default arm.
// FallsThrough is set when the arm has no terminating break and execution
// continues into the next arm.
type SwitchCase struct {
	Value        *Expr
	Body         []*Stmt
	FallsThrough bool
}

func Block(body []*Stmt) *Stmt { return &Stmt{Kind: StmtBlock, Body: body} }

func If(cond *Expr, then, els []*Stmt) *Stmt {
	return &Stmt{Kind: StmtIf, Cond: cond, Then: then, Else: els}
}

func While(cond *Expr, body []*Stmt) *Stmt {
	return &Stmt{Kind: StmtWhile, Cond: cond, Body: body}
}

func DoWhile(body []*Stmt, cond *Expr) *Stmt {
	return &Stmt{Kind: StmtDoWhile, Cond: cond, Body: body}
}

func For(init *Expr, cond *Expr, step *Expr, body []*Stmt) *Stmt {
	return &Stmt{Kind: StmtFor, Init: init, Cond: cond, Step: step, Body: body}
}

func Switch(disc *Expr, cases []*SwitchCase) *Stmt {
	return &Stmt{Kind: StmtSwitch, Disc: disc, Cases: cases}
}

func Break() *Stmt    { return &Stmt{Kind: StmtBreak} }
func Continue() *Stmt { return &Stmt{Kind: StmtContinue} }

func Return(value *Expr) *Stmt { return &Stmt{Kind: StmtReturn, Expr: value} }

func ExprStmt(e *Expr) *Stmt { return &Stmt{Kind: StmtExpr, Expr: e} }

func VarDecl(t Type, name string, init *Expr) *Stmt {
	return &Stmt{Kind: StmtVarDecl, DeclType: t, DeclName: name, DeclInit: init}
}

func Goto(label string) *Stmt  { return &Stmt{Kind: StmtGoto, Label: label} }
func LabelAt(label string) *Stmt { return &Stmt{Kind: StmtLabel, Label: label} }

// Param is one parameter of a function signature.
type Param struct {
	Type Type
	Name string
}

// Function is a top-level function definition ready for emission.
type Function struct {
	Name   string
	Entry  int32 // defining bytecode offset
	Return Type
	Params []Param
	Body   []*Stmt
}

// Script is a whole decompiled compilation unit: global declarations in
// program order followed by function definitions in emission order.
type Script struct {
	Globals []*Stmt
	Funcs   []*Function
}

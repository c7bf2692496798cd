// Package ast defines the tagged tree of expressions and statements
// produced by the parser. Each node category is a Go interface implemented
// by one payload struct per variant; dispatch is by type switch rather than
// an enum discriminant. Every child is owned exclusively by its parent.
package ast

import "overcast/src/types"

// Pos carries a node's source location for diagnostics.
type Pos struct {
	Line int
	Col  int
}

// Expr is the sum type of expression nodes.
type Expr interface {
	Position() Pos
}

// Stmt is the sum type of statement nodes.
type Stmt interface {
	Position() Pos
}

// --- Expressions ---

// IntLit is an integer literal.
type IntLit struct {
	Pos   Pos
	Value int32
}

func (n *IntLit) Position() Pos { return n.Pos }

// StringLit is a string literal, already unescaped.
type StringLit struct {
	Pos   Pos
	Value string
}

func (n *StringLit) Position() Pos { return n.Pos }

// VarUse references a name that resolves to a variable or a function.
// IsFuncResolved is set by the binder.
type VarUse struct {
	Pos            Pos
	Name           string
	IsFuncResolved bool
}

func (n *VarUse) Position() Pos { return n.Pos }

// Binary is a binary operator expression.
type Binary struct {
	Pos Pos
	LHS Expr
	Op  string
	RHS Expr
}

func (n *Binary) Position() Pos { return n.Pos }

// Call is a function or member-function invocation. IsMemberCallResolved is
// set by the binder when Callee resolves to a struct member function.
type Call struct {
	Pos                  Pos
	Callee               Expr
	Args                 []Expr
	IsMemberCallResolved bool
}

func (n *Call) Position() Pos { return n.Pos }

// StructCtor is a `new Name(args...)` construction expression.
type StructCtor struct {
	Pos      Pos
	TypeName string
	Args     []Expr
}

func (n *StructCtor) Position() Pos { return n.Pos }

// StructAccess is a `lhs -> member` expression.
type StructAccess struct {
	Pos        Pos
	LHS        Expr
	MemberName string
}

func (n *StructAccess) Position() Pos { return n.Pos }

// IncDec is a postfix `++`/`--` expression. Parsed per the precedence
// table (spec §4.1 row 13) but rejected by lowering as a LoweringError
// (spec §9 open question (c): no lowering is defined for it).
type IncDec struct {
	Pos    Pos
	Target Expr
	Op     string
}

func (n *IncDec) Position() Pos { return n.Pos }

// --- Statements ---

// Param is a single function parameter.
type Param struct {
	Name string
	Type types.Type
}

// FuncDecl is a function or extern declaration, and doubles as a struct
// member-function declaration once IsStructMember is set by the binder.
type FuncDecl struct {
	Pos            Pos
	Name           string
	Params         []Param
	RetType        types.Type
	Body           []Stmt
	IsExtern       bool
	IsStructMember bool
	Variadic       bool
}

func (n *FuncDecl) Position() Pos { return n.Pos }

// StructField is a single struct field declaration.
type StructField struct {
	Name string
	Type types.Type
}

// StructDecl is a struct type declaration. Fields must precede member
// functions in source order; the parser enforces that at parse time.
type StructDecl struct {
	Pos         Pos
	Name        string
	Fields      []StructField
	MemberFuncs []*FuncDecl
}

func (n *StructDecl) Position() Pos { return n.Pos }

// VarDecl declares a local or global variable, with an optional initializer.
type VarDecl struct {
	Pos  Pos
	Name string
	Type types.Type
	Init Expr
}

func (n *VarDecl) Position() Pos { return n.Pos }

// Assign is a plain or member-access assignment statement.
type Assign struct {
	Pos Pos
	LHS Expr
	RHS Expr
}

func (n *Assign) Position() Pos { return n.Pos }

// If is an if/else statement. Else is nil when there is no else-branch.
type If struct {
	Pos  Pos
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (n *If) Position() Pos { return n.Pos }

// While is a while-loop statement.
type While struct {
	Pos  Pos
	Cond Expr
	Body []Stmt
}

func (n *While) Position() Pos { return n.Pos }

// Return is a return statement with an optional value.
type Return struct {
	Pos   Pos
	Value Expr
}

func (n *Return) Position() Pos { return n.Pos }

// ExprStmt is an expression evaluated for effect (e.g. a bare call).
type ExprStmt struct {
	Pos  Pos
	Expr Expr
}

func (n *ExprStmt) Position() Pos { return n.Pos }

// Use is a module-level `use` directive, captured but ignored by lowering.
type Use struct {
	Pos  Pos
	Name string
}

func (n *Use) Position() Pos { return n.Pos }

// PackageDecl is a module-level `package` directive, captured but ignored
// by lowering.
type PackageDecl struct {
	Pos  Pos
	Name string
}

func (n *PackageDecl) Position() Pos { return n.Pos }

// ConstDecl is recognised by the parser but rejected by the lowering
// engine with a LoweringError (spec open question (b)).
type ConstDecl struct {
	Pos  Pos
	Name string
	Type types.Type
	Init Expr
}

func (n *ConstDecl) Position() Pos { return n.Pos }

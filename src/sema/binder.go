// Package sema implements the two-pass semantic binder (C5): scope
// resolution and type checking over a parsed file's statements, annotating
// the AST in place. Grounded on OvercastC's SemanticAnalysis/binder.cc —
// the dispatch shape (bind-by-statement-kind, bind-by-expression-kind) and
// the binding rules below follow it closely, re-expressed as Go type
// switches instead of dynamic_cast chains.
package sema

import (
	"overcast/src/ast"
	"overcast/src/symtab"
	"overcast/src/types"
	"overcast/src/util"
)

// invalidFunction is the CurrentFunction sentinel the binder restores on
// function exit, mirroring the original's Symbol("<INVALID>", ...).
var invalidFunction = symtab.Symbol{Name: "<INVALID>"}

// Binder resolves names, type-checks, and annotates the AST with
// resolution hints for a single file.
type Binder struct {
	scopes          *symtab.Stack
	currentFunction symtab.Symbol
	currentStruct   string
}

// NewBinder returns a binder whose lookups fall back to global when a name
// is not found in the local scope stack.
func NewBinder(global *symtab.Global) *Binder {
	return &Binder{
		scopes:          symtab.NewStack(global),
		currentFunction: invalidFunction,
	}
}

// Run opens a fresh root scope, injects the variadic builtin `print`, binds
// every top-level statement, and closes the scope (spec §4.3).
func (b *Binder) Run(stmts []ast.Stmt) error {
	b.scopes.Enter()
	defer b.scopes.Leave()

	b.scopes.Add(symtab.Symbol{
		Name:     "print",
		Kind:     symtab.Function,
		Type:     types.NewIdent("int"),
		Variadic: true,
	})

	for _, s := range stmts {
		if err := b.bindStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *Binder) bindStatement(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.FuncDecl:
		return b.bindFuncDecl(n)
	case *ast.StructDecl:
		return b.bindStructDecl(n)
	case *ast.VarDecl:
		return b.bindVarDecl(n)
	case *ast.ConstDecl:
		// spec §9 open question (b): const is recognised but rejected at
		// lowering, not at binding time — it still needs a symbol so uses
		// of the constant resolve.
		if n.Init != nil {
			if _, err := b.bindExpr(n.Init); err != nil {
				return err
			}
		}
		b.scopes.Add(symtab.Symbol{Name: n.Name, Kind: symtab.Variable, Type: n.Type})
		return nil
	case *ast.Assign:
		return b.bindAssign(n)
	case *ast.If:
		return b.bindIf(n)
	case *ast.While:
		return b.bindWhile(n)
	case *ast.Return:
		return b.bindReturn(n)
	case *ast.ExprStmt:
		_, err := b.bindExpr(n.Expr)
		return err
	case *ast.Use, *ast.PackageDecl:
		return nil
	default:
		p := s.Position()
		return &util.ResolutionError{Line: p.Line, Col: p.Col, Name: "<statement>", Reason: "unrecognised statement kind"}
	}
}

// bindFuncDecl mirrors BindFunctionDecl: duplicate-name tolerance covers
// either a struct-member function or an exactly-matching signature (the
// two-phase global-table + file-local definition case).
func (b *Binder) bindFuncDecl(fn *ast.FuncDecl) error {
	paramTypes := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		paramTypes[i] = p.Type
	}
	sym := symtab.Symbol{
		Name:               fn.Name,
		Kind:               symtab.Function,
		Type:               fn.RetType,
		ParamTypes:         paramTypes,
		Variadic:           fn.Variadic,
		IsStructMemberFunc: fn.IsStructMember,
		IsExtern:           fn.IsExtern,
	}

	if existing, ok := b.scopes.LookupInnermost(fn.Name); ok {
		if !existing.IsStructMemberFunc && !sameSignature(existing.ParamTypes, paramTypes) {
			p := fn.Position()
			return &util.ResolutionError{Line: p.Line, Col: p.Col, Name: fn.Name, Reason: "duplicate function declaration"}
		}
	}
	b.scopes.Add(sym)

	prevFunc := b.currentFunction
	b.currentFunction = sym
	b.scopes.Enter()
	for _, p := range fn.Params {
		b.scopes.Add(symtab.Symbol{Name: p.Name, Kind: symtab.Variable, Type: p.Type})
	}
	for _, s := range fn.Body {
		if err := b.bindStatement(s); err != nil {
			b.scopes.Leave()
			b.currentFunction = invalidFunction
			return err
		}
	}
	b.scopes.Leave()
	b.currentFunction = prevFunc
	return nil
}

func sameSignature(a, b []types.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// bindStructDecl mirrors BindStructDecl: appends the implicit `this`
// parameter to every member function exactly once, then recursively binds
// each member function (spec §4.3, §9 "this parameter append").
func (b *Binder) bindStructDecl(sd *ast.StructDecl) error {
	if _, ok := b.scopes.LookupInnermost(sd.Name); ok {
		p := sd.Position()
		return &util.ResolutionError{Line: p.Line, Col: p.Col, Name: sd.Name, Reason: "duplicate struct declaration"}
	}

	members := make([]symtab.Symbol, len(sd.Fields))
	for i, f := range sd.Fields {
		members[i] = symtab.Symbol{Name: f.Name, Kind: symtab.Variable, Type: f.Type}
	}

	prevStruct := b.currentStruct
	b.currentStruct = sd.Name

	memberFuncSyms := make([]symtab.Symbol, 0, len(sd.MemberFuncs))
	for _, mf := range sd.MemberFuncs {
		mf.IsStructMember = true
		mf.Params = append(mf.Params, ast.Param{Name: "this", Type: types.NewPointer(types.NewIdent(sd.Name))})
		paramTypes := make([]types.Type, len(mf.Params))
		for i, p := range mf.Params {
			paramTypes[i] = p.Type
		}
		memberFuncSyms = append(memberFuncSyms, symtab.Symbol{
			Name:               mf.Name,
			Kind:               symtab.Function,
			Type:               mf.RetType,
			ParamTypes:         paramTypes,
			IsStructMemberFunc: true,
		})
	}

	b.scopes.Add(symtab.Symbol{
		Name:    sd.Name,
		Kind:    symtab.Struct,
		Type:    types.NewIdent(sd.Name),
		Members: append(members, memberFuncSyms...),
	})

	for _, mf := range sd.MemberFuncs {
		if err := b.bindFuncDecl(mf); err != nil {
			b.currentStruct = prevStruct
			return err
		}
	}
	b.currentStruct = prevStruct
	return nil
}

// bindVarDecl mirrors BindVariableDecl.
func (b *Binder) bindVarDecl(vd *ast.VarDecl) error {
	p := vd.Position()
	if _, ok := b.scopes.LookupInnermost(vd.Name); ok {
		return &util.ResolutionError{Line: p.Line, Col: p.Col, Name: vd.Name, Reason: "duplicate variable declaration"}
	}
	if ident, ok := vd.Type.(*types.Ident); ok && ident.String() == string(types.Void) {
		return &util.TypeError{Line: p.Line, Col: p.Col, Message: "variable cannot have type void"}
	}
	if vd.Init != nil {
		initSym, err := b.bindExpr(vd.Init)
		if err != nil {
			return err
		}
		if !types.Equal(initSym.Type, vd.Type) {
			return &util.TypeError{Line: p.Line, Col: p.Col, Message: "initializer type " + typeString(initSym.Type) + " does not match declared type " + vd.Type.String()}
		}
	}
	b.scopes.Add(symtab.Symbol{Name: vd.Name, Kind: symtab.Variable, Type: vd.Type})
	return nil
}

func typeString(t types.Type) string {
	if t == nil {
		return "<unknown>"
	}
	return t.String()
}

// bindAssign mirrors the LHS/RHS type-string comparison in BindStatement's
// Assignment case.
func (b *Binder) bindAssign(as *ast.Assign) error {
	lhsSym, err := b.bindExpr(as.LHS)
	if err != nil {
		return err
	}
	rhsSym, err := b.bindExpr(as.RHS)
	if err != nil {
		return err
	}
	if !types.Equal(lhsSym.Type, rhsSym.Type) {
		p := as.Position()
		return &util.TypeError{Line: p.Line, Col: p.Col, Message: "cannot assign " + typeString(rhsSym.Type) + " to " + typeString(lhsSym.Type)}
	}
	return nil
}

// bindIf mirrors BindStatement's If case; bodies bind in the same scope as
// the enclosing function, per spec §9 "Scope for control-flow blocks".
func (b *Binder) bindIf(n *ast.If) error {
	condSym, err := b.bindExpr(n.Cond)
	if err != nil {
		return err
	}
	if typeString(condSym.Type) != string(types.Bool) {
		p := n.Cond.Position()
		return &util.TypeError{Line: p.Line, Col: p.Col, Message: "if condition must be bool, got " + typeString(condSym.Type)}
	}
	for _, s := range n.Then {
		if err := b.bindStatement(s); err != nil {
			return err
		}
	}
	for _, s := range n.Else {
		if err := b.bindStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *Binder) bindWhile(n *ast.While) error {
	condSym, err := b.bindExpr(n.Cond)
	if err != nil {
		return err
	}
	if typeString(condSym.Type) != string(types.Bool) {
		p := n.Cond.Position()
		return &util.TypeError{Line: p.Line, Col: p.Col, Message: "while condition must be bool, got " + typeString(condSym.Type)}
	}
	for _, s := range n.Body {
		if err := b.bindStatement(s); err != nil {
			return err
		}
	}
	return nil
}

// bindReturn mirrors the Return case: allowed only inside a function whose
// return type is not void, and the value's type must match.
func (b *Binder) bindReturn(n *ast.Return) error {
	p := n.Position()
	if b.currentFunction.Name == invalidFunction.Name {
		return &util.TypeError{Line: p.Line, Col: p.Col, Message: "return outside function"}
	}
	retVoid := typeString(b.currentFunction.Type) == string(types.Void)
	if n.Value == nil {
		if !retVoid {
			return &util.TypeError{Line: p.Line, Col: p.Col, Message: "missing return value for non-void function " + b.currentFunction.Name}
		}
		return nil
	}
	if retVoid {
		return &util.TypeError{Line: p.Line, Col: p.Col, Message: "void function " + b.currentFunction.Name + " cannot return a value"}
	}
	valSym, err := b.bindExpr(n.Value)
	if err != nil {
		return err
	}
	if !types.Equal(valSym.Type, b.currentFunction.Type) {
		return &util.TypeError{Line: p.Line, Col: p.Col, Message: "return type " + typeString(valSym.Type) + " does not match function return type " + typeString(b.currentFunction.Type)}
	}
	return nil
}

// --- Expression binding ---

func (b *Binder) bindExpr(e ast.Expr) (symtab.Symbol, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return symtab.Symbol{Kind: symtab.Variable, Type: types.NewIdent(string(types.Int))}, nil
	case *ast.StringLit:
		return symtab.Symbol{Kind: symtab.Variable, Type: types.NewIdent(string(types.String))}, nil
	case *ast.VarUse:
		return b.bindVarUse(n)
	case *ast.Binary:
		return b.bindBinary(n)
	case *ast.Call:
		return b.bindCall(n)
	case *ast.StructCtor:
		return b.bindStructCtor(n)
	case *ast.StructAccess:
		return b.bindStructAccess(n)
	case *ast.IncDec:
		return b.bindExpr(n.Target)
	default:
		p := e.Position()
		return symtab.Symbol{}, &util.ResolutionError{Line: p.Line, Col: p.Col, Name: "<expr>", Reason: "unrecognised expression kind"}
	}
}

// bindVarUse mirrors BindVariableUse.
func (b *Binder) bindVarUse(n *ast.VarUse) (symtab.Symbol, error) {
	sym, ok := b.scopes.Lookup(n.Name)
	if !ok {
		p := n.Position()
		return symtab.Symbol{}, &util.ResolutionError{Line: p.Line, Col: p.Col, Name: n.Name, Reason: "undefined name"}
	}
	if sym.Kind != symtab.Variable && sym.Kind != symtab.Function {
		p := n.Position()
		return symtab.Symbol{}, &util.ResolutionError{Line: p.Line, Col: p.Col, Name: n.Name, Reason: "name does not refer to a variable or function"}
	}
	n.IsFuncResolved = sym.Kind == symtab.Function
	return sym, nil
}

// bindBinary mirrors BindBinaryExpr: both operands must share a type
// string; comparisons yield bool, everything else yields the operand type.
func (b *Binder) bindBinary(n *ast.Binary) (symtab.Symbol, error) {
	lhs, err := b.bindExpr(n.LHS)
	if err != nil {
		return symtab.Symbol{}, err
	}
	rhs, err := b.bindExpr(n.RHS)
	if err != nil {
		return symtab.Symbol{}, err
	}
	if !types.Equal(lhs.Type, rhs.Type) {
		p := n.Position()
		return symtab.Symbol{}, &util.TypeError{Line: p.Line, Col: p.Col, Message: "binary operand type mismatch: " + typeString(lhs.Type) + " vs " + typeString(rhs.Type)}
	}
	switch n.Op {
	case "<", "<=", ">", ">=", "==", "!=":
		return symtab.Symbol{Kind: symtab.Variable, Type: types.NewIdent(string(types.Bool))}, nil
	default:
		return symtab.Symbol{Kind: symtab.Variable, Type: lhs.Type}, nil
	}
}

// bindCall mirrors BindFuncInvoke.
func (b *Binder) bindCall(n *ast.Call) (symtab.Symbol, error) {
	callee, err := b.bindExpr(n.Callee)
	if err != nil {
		return symtab.Symbol{}, err
	}
	p := n.Position()
	if callee.Kind != symtab.Function {
		return symtab.Symbol{}, &util.ResolutionError{Line: p.Line, Col: p.Col, Name: "<call>", Reason: "callee is not a function"}
	}
	n.IsMemberCallResolved = callee.IsStructMemberFunc

	if !callee.Variadic {
		expectedArgc := len(callee.ParamTypes)
		if callee.IsStructMemberFunc {
			expectedArgc--
		}
		if len(n.Args) != expectedArgc {
			return symtab.Symbol{}, &util.ArityError{Line: p.Line, Col: p.Col, Name: "<call>", Expected: expectedArgc, Got: len(n.Args)}
		}
		for i, arg := range n.Args {
			argSym, err := b.bindExpr(arg)
			if err != nil {
				return symtab.Symbol{}, err
			}
			if !types.Equal(argSym.Type, callee.ParamTypes[i]) {
				return symtab.Symbol{}, &util.TypeError{Line: p.Line, Col: p.Col, Message: "argument " + typeString(argSym.Type) + " does not match parameter type " + typeString(callee.ParamTypes[i])}
			}
		}
	} else {
		for _, arg := range n.Args {
			if _, err := b.bindExpr(arg); err != nil {
				return symtab.Symbol{}, err
			}
		}
	}
	return symtab.Symbol{Kind: symtab.Variable, Type: callee.Type}, nil
}

// bindStructCtor mirrors BindStructCtor: a `ctor` member function, if
// present, gates the argument check; otherwise zero arguments are required.
func (b *Binder) bindStructCtor(n *ast.StructCtor) (symtab.Symbol, error) {
	p := n.Position()
	structSym, ok := b.scopes.Lookup(n.TypeName)
	if !ok || structSym.Kind != symtab.Struct {
		return symtab.Symbol{}, &util.ResolutionError{Line: p.Line, Col: p.Col, Name: n.TypeName, Reason: "not a struct type"}
	}

	var ctor *symtab.Symbol
	for i := range structSym.Members {
		if structSym.Members[i].Name == "ctor" && structSym.Members[i].Kind == symtab.Function {
			ctor = &structSym.Members[i]
			break
		}
	}

	if ctor != nil {
		expected := len(ctor.ParamTypes) - 1
		if len(n.Args) != expected {
			return symtab.Symbol{}, &util.ArityError{Line: p.Line, Col: p.Col, Name: n.TypeName + "::ctor", Expected: expected, Got: len(n.Args)}
		}
		for i, arg := range n.Args {
			argSym, err := b.bindExpr(arg)
			if err != nil {
				return symtab.Symbol{}, err
			}
			if !types.Equal(argSym.Type, ctor.ParamTypes[i]) {
				return symtab.Symbol{}, &util.TypeError{Line: p.Line, Col: p.Col, Message: "constructor argument " + typeString(argSym.Type) + " does not match parameter type " + typeString(ctor.ParamTypes[i])}
			}
		}
	} else if len(n.Args) != 0 {
		return symtab.Symbol{}, &util.ArityError{Line: p.Line, Col: p.Col, Name: n.TypeName, Expected: 0, Got: len(n.Args)}
	}
	return symtab.Symbol{Kind: symtab.Variable, Type: types.NewIdent(n.TypeName)}, nil
}

// bindStructAccess mirrors BindStructAccess.
func (b *Binder) bindStructAccess(n *ast.StructAccess) (symtab.Symbol, error) {
	lhsSym, err := b.bindExpr(n.LHS)
	if err != nil {
		return symtab.Symbol{}, err
	}
	p := n.Position()
	if lhsSym.Type == nil {
		// spec §9 open question (e): fail with TypeError rather than a nil
		// dereference when the semantic type is absent.
		return symtab.Symbol{}, &util.TypeError{Line: p.Line, Col: p.Col, Message: "struct access on expression with no semantic type"}
	}
	structName := lhsSym.Type.BaseOf().String()
	structSym, ok := b.scopes.Lookup(structName)
	if !ok || structSym.Kind != symtab.Struct {
		return symtab.Symbol{}, &util.ResolutionError{Line: p.Line, Col: p.Col, Name: structName, Reason: "not a struct type"}
	}
	for _, m := range structSym.Members {
		if m.Name == n.MemberName {
			return m, nil
		}
	}
	return symtab.Symbol{}, &util.ResolutionError{Line: p.Line, Col: p.Col, Name: n.MemberName, Reason: "no such member on " + structName}
}

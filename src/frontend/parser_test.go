package frontend

import (
	"errors"
	"testing"

	"overcast/src/ast"
	"overcast/src/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSrc(t *testing.T, src string) []ast.Stmt {
	toks, err := LexAll(src)
	require.NoError(t, err)
	stmts, err := Parse(toks)
	require.NoError(t, err)
	return stmts
}

func TestParseHelloWorld(t *testing.T) {
	stmts := parseSrc(t, `package hi
func main() -> int { print("Hi\n"); return 0; }`)
	require.Len(t, stmts, 2)
	pkg, ok := stmts[0].(*ast.PackageDecl)
	require.True(t, ok)
	assert.Equal(t, "hi", pkg.Name)

	fn, ok := stmts[1].(*ast.FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "main", fn.Name)
	assert.Equal(t, "int", fn.RetType.String())
	require.Len(t, fn.Body, 2)
}

func TestParseOperatorPrecedence(t *testing.T) {
	stmts := parseSrc(t, `var x:int = 1 + 2 * 3;`)
	vd := stmts[0].(*ast.VarDecl)
	bin := vd.Init.(*ast.Binary)
	assert.Equal(t, "+", bin.Op)
	rhs := bin.RHS.(*ast.Binary)
	assert.Equal(t, "*", rhs.Op)
}

func TestParseIfElse(t *testing.T) {
	stmts := parseSrc(t, `func f() -> void { if (a == 0) { b = 1; } else { b = 2; } }`)
	fn := stmts[0].(*ast.FuncDecl)
	ifs := fn.Body[0].(*ast.If)
	require.Len(t, ifs.Then, 1)
	require.Len(t, ifs.Else, 1)
}

func TestParseElseIfSingleBranch(t *testing.T) {
	stmts := parseSrc(t, `func f() -> void { if (a) { x = 1; } else if (b) { x = 2; } }`)
	fn := stmts[0].(*ast.FuncDecl)
	ifs := fn.Body[0].(*ast.If)
	require.Len(t, ifs.Else, 1)
	_, ok := ifs.Else[0].(*ast.If)
	assert.True(t, ok, "else-if must produce a single nested If, not a duplicated body")
}

func TestParseWhile(t *testing.T) {
	stmts := parseSrc(t, `func f() -> void { var i:int = 0; while (i < 10) { i = i + 1; } }`)
	fn := stmts[0].(*ast.FuncDecl)
	wh := fn.Body[1].(*ast.While)
	cond := wh.Cond.(*ast.Binary)
	assert.Equal(t, "<", cond.Op)
}

func TestParseStructDecl(t *testing.T) {
	stmts := parseSrc(t, `P -> struct { x:int; func ctor(v:int) -> void { this->x = v; } }`)
	sd := stmts[0].(*ast.StructDecl)
	assert.Equal(t, "P", sd.Name)
	require.Len(t, sd.Fields, 1)
	require.Len(t, sd.MemberFuncs, 1)
	assert.Equal(t, "ctor", sd.MemberFuncs[0].Name)
	assert.True(t, sd.MemberFuncs[0].IsStructMember)
}

func TestParseStructFieldAfterMemberFuncIsError(t *testing.T) {
	toks, err := LexAll(`P -> struct { func ctor() -> void { } y:int; }`)
	require.NoError(t, err)
	_, err = Parse(toks)
	require.Error(t, err)
}

func TestParseStructCtorCall(t *testing.T) {
	stmts := parseSrc(t, `func f() -> void { var p:P = new P(7); }`)
	fn := stmts[0].(*ast.FuncDecl)
	vd := fn.Body[0].(*ast.VarDecl)
	ctor := vd.Init.(*ast.StructCtor)
	assert.Equal(t, "P", ctor.TypeName)
	require.Len(t, ctor.Args, 1)
}

func TestParseMemberAccessAssignment(t *testing.T) {
	stmts := parseSrc(t, `func f() -> void { this->x = v; }`)
	fn := stmts[0].(*ast.FuncDecl)
	as := fn.Body[0].(*ast.Assign)
	acc := as.LHS.(*ast.StructAccess)
	assert.Equal(t, "x", acc.MemberName)
}

func TestParsePointerType(t *testing.T) {
	stmts := parseSrc(t, `extern f(p: *int) -> void;`)
	fn := stmts[0].(*ast.FuncDecl)
	assert.Equal(t, "*int", fn.Params[0].Type.String())
	assert.True(t, fn.IsExtern)
}

func TestParseSyntaxErrorHasLocation(t *testing.T) {
	toks, err := LexAll("func f( -> int { }")
	require.NoError(t, err)
	_, err = Parse(toks)
	require.Error(t, err)
	var synErr *util.SyntaxError
	require.True(t, errors.As(err, &synErr))
	assert.Equal(t, 1, synErr.Line)
	assert.Equal(t, 9, synErr.Col)
}

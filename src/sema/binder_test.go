package sema

import (
	"testing"

	"overcast/src/frontend"
	"overcast/src/symtab"
	"overcast/src/types"
	"overcast/src/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindSrc(t *testing.T, src string) error {
	toks, err := frontend.LexAll(src)
	require.NoError(t, err)
	stmts, err := frontend.Parse(toks)
	require.NoError(t, err)
	b := NewBinder(symtab.NewGlobal())
	return b.Run(stmts)
}

func TestBindHelloWorld(t *testing.T) {
	err := bindSrc(t, `package hi
func main() -> int { print("Hi\n"); return 0; }`)
	assert.NoError(t, err)
}

func TestBindUndefinedName(t *testing.T) {
	err := bindSrc(t, `func main() -> int { return missing; }`)
	require.Error(t, err)
	_, ok := err.(*util.ResolutionError)
	assert.True(t, ok)
}

func TestBindStructThisInjection(t *testing.T) {
	err := bindSrc(t, `P -> struct { x:int; func ctor(v:int) -> void { this->x = v; } }
func main() -> int { var p:P = new P(7); return 0; }`)
	assert.NoError(t, err)
}

func TestBindArityMismatch(t *testing.T) {
	err := bindSrc(t, `func add(a:int, b:int) -> int { return a + b; }
func main() -> int { return add(1); }`)
	require.Error(t, err)
	_, ok := err.(*util.ArityError)
	assert.True(t, ok)
}

func TestBindIfConditionMustBeBool(t *testing.T) {
	err := bindSrc(t, `func main() -> int { if (1) { } return 0; } `)
	require.Error(t, err)
	_, ok := err.(*util.TypeError)
	assert.True(t, ok)
}

// TestBindCrossFileForwardReference mirrors spec §8 scenario 6: file A's
// top-level declaration is summarized into the global table exactly as
// the build driver's Wave 1 would, before file B's binder ever runs.
func TestBindCrossFileForwardReference(t *testing.T) {
	global := symtab.NewGlobal()
	fileA := symtab.NewScope()
	fileA.Add(symtab.Symbol{
		Name:       "add",
		Kind:       symtab.Function,
		Type:       types.NewIdent("int"),
		ParamTypes: []types.Type{types.NewIdent("int"), types.NewIdent("int")},
	})
	global.Merge(fileA)

	toksB, err := frontend.LexAll(`func main() -> int { return add(1,2); }`)
	require.NoError(t, err)
	stmtsB, err := frontend.Parse(toksB)
	require.NoError(t, err)

	b := NewBinder(global)
	assert.NoError(t, b.Run(stmtsB))
}

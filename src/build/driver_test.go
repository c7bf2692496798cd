package build

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"overcast/src/frontend"
	"overcast/src/symtab"
	"overcast/src/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summarizeSrc(t *testing.T, src string) *symtab.Scope {
	t.Helper()
	toks, err := frontend.LexAll(src)
	require.NoError(t, err)
	stmts, err := frontend.Parse(toks)
	require.NoError(t, err)
	return summarize(stmts)
}

func TestSummarizeStructAppendsThisParam(t *testing.T) {
	scope := summarizeSrc(t, `P -> struct { x:int; func ctor(v:int) -> void { this->x = v; } }`)
	sym, ok := scope.TryGet("P")
	require.True(t, ok)
	assert.Equal(t, symtab.Struct, sym.Kind)

	var ctor *symtab.Symbol
	for i := range sym.Members {
		if sym.Members[i].Name == "ctor" {
			ctor = &sym.Members[i]
		}
	}
	require.NotNil(t, ctor)
	require.Len(t, ctor.ParamTypes, 2)
	assert.Equal(t, "*P", ctor.ParamTypes[1].String())
	assert.True(t, ctor.IsStructMemberFunc)
}

func TestGlobalMergeExcludesMain(t *testing.T) {
	scope := summarizeSrc(t, `func main() -> int { return 0; }
func add(a:int, b:int) -> int { return a + b; }`)
	global := symtab.NewGlobal()
	global.Merge(scope)

	_, ok := global.TryGet("main")
	assert.False(t, ok)
	sym, ok := global.TryGet("add")
	require.True(t, ok)
	assert.Equal(t, symtab.Function, sym.Kind)
}

func TestRunWave1DependencyFailureShortCircuits(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.oc"), []byte(`func broken( -> int { }`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.oc"), []byte(`func ok() -> int { return 1; }`), 0644))

	d, err := NewDriver(2)
	require.NoError(t, err)
	defer d.Release()

	procs := map[string]*BuildProcess{
		"a.oc": {Path: filepath.Join(dir, "a.oc"), future: make(chan *BuildResult, 1)},
		"b.oc": {Path: filepath.Join(dir, "b.oc"), Deps: []string{"a.oc"}, future: make(chan *BuildResult, 1)},
	}
	require.NoError(t, d.runWave1(procs))

	resA := <-procs["a.oc"].future
	assert.Equal(t, StatusFailure, resA.Status)
	resB := <-procs["b.oc"].future
	assert.Equal(t, StatusFailure, resB.Status)
	assert.Equal(t, "Dependency failed", resB.Message)
}

func TestRunWave1MissingFileIsIOError(t *testing.T) {
	d, err := NewDriver(1)
	require.NoError(t, err)
	defer d.Release()

	bp := &BuildProcess{Path: "/no/such/file.oc", future: make(chan *BuildResult, 1)}
	res := d.wave1One(bp)
	assert.Equal(t, StatusFailure, res.Status)
	assert.Contains(t, res.Message, "io error")
}

// TestRunBuildTwoFiles drives the full two-wave pipeline over a temp
// project: util.oc defines add, main.oc calls it across the file boundary
// (spec §8 scenario 6). A missing host linker is tolerated; object emission
// is not.
func TestRunBuildTwoFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "util.oc"),
		[]byte(`func add(a:int, b:int) -> int { return a + b; }`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.oc"),
		[]byte(`package demo
func main() -> int { return add(1, 2); }`), 0644))

	d, err := NewDriver(2)
	require.NoError(t, err)
	defer d.Release()

	summary, err := d.RunBuild(root, "demo", nil, "bin", true)
	if err != nil {
		var linkErr *util.LinkError
		require.True(t, errors.As(err, &linkErr), "only a link failure is tolerable, got %v", err)
	}
	require.NotNil(t, summary)
	assert.Len(t, summary.ObjFiles, 2)
	mainLL, readErr := os.ReadFile(filepath.Join(root, "obj", "main.ll"))
	require.NoError(t, readErr)
	assert.Contains(t, string(mainLL), "define i32 @main()")
	for _, obj := range summary.ObjFiles {
		info, statErr := os.Stat(obj)
		require.NoError(t, statErr)
		assert.Greater(t, info.Size(), int64(0))
	}
	for path, res := range summary.Results {
		assert.Equal(t, StatusSuccess, res.Status, path)
	}
}

// Package build implements the two-wave build driver (C7): parallel
// parse+summarize, a global-table merge, parallel bind+lower+emit, and a
// final link step. Grounded on ZupIT-horusec-engine's engine.go — an
// ants.Pool submitting work whose completion an errgroup.Group tracks —
// generalized from "one rule over one file" to "one compile pipeline over
// one file, with Wave 2 gated on Wave 1's global-table merge" per spec §5.
package build

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"overcast/src/ast"
	"overcast/src/codegen"
	"overcast/src/frontend"
	"overcast/src/sema"
	"overcast/src/symtab"
	"overcast/src/util"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

// Status is a BuildResult's outcome.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
)

// BuildResult is one file's outcome, delivered through its future channel
// (spec §5 "each task produces a BuildResult delivered through a shared
// future").
type BuildResult struct {
	Status  Status
	Message string
	ObjPath string
}

// BuildProcess is one file's unit of work across both waves.
type BuildProcess struct {
	Path    string
	Deps    []string
	stmts   []ast.Stmt
	summary *symtab.Scope
	future  chan *BuildResult
}

// Summary is the outcome of a full RunBuild call.
type Summary struct {
	Results    map[string]*BuildResult
	ObjFiles   []string
	FirstError error
	BinPath    string
}

// Driver runs the two-wave pipeline over a project root directory.
type Driver struct {
	pool      *ants.Pool
	printer   *util.Printer
	collector *util.ErrorCollector
}

const defaultPoolSize = 8

// NewDriver returns a driver backed by an ants.Pool sized to threads (or a
// default, or NumCPU, whichever applies).
func NewDriver(threads int) (*Driver, error) {
	size := threads
	if size <= 0 {
		size = runtime.NumCPU()
		if size <= 0 {
			size = defaultPoolSize
		}
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &Driver{
		pool:      pool,
		printer:   util.NewPrinter(),
		collector: util.NewErrorCollector(),
	}, nil
}

// Release returns the driver's pooled goroutines.
func (d *Driver) Release() { d.pool.Release() }

// RunBuild discovers every `.oc` file under root, runs Wave 1, merges the
// global table, runs Wave 2, and links the resulting objects (spec §4.5).
func (d *Driver) RunBuild(root, projectName string, deps map[string][]string, outputDir string, emitLLVM bool) (*Summary, error) {
	files, err := doublestar.Glob(os.DirFS(root), "**/*.oc")
	if err != nil {
		return nil, &util.IOError{Path: root, Err: err}
	}

	procs := make(map[string]*BuildProcess, len(files))
	for _, rel := range files {
		procs[rel] = &BuildProcess{
			Path:   filepath.Join(root, rel),
			Deps:   deps[rel],
			future: make(chan *BuildResult, 1),
		}
	}

	if err := d.runWave1(procs); err != nil {
		return nil, err
	}

	results := make(map[string]*BuildResult, len(procs))
	var firstErr error
	global := symtab.NewGlobal()
	for path, bp := range procs {
		res := <-bp.future
		results[path] = res
		if res.Status == StatusFailure && firstErr == nil {
			firstErr = fmt.Errorf("%s: %s", path, res.Message)
		}
		if res.Status == StatusSuccess && bp.summary != nil {
			global.Merge(bp.summary)
		}
	}
	if firstErr != nil {
		return &Summary{Results: results, FirstError: firstErr}, firstErr
	}

	objDir := filepath.Join(root, "obj")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return nil, &util.IOError{Path: objDir, Err: err}
	}

	objFiles, err := d.runWave2(procs, global, objDir, emitLLVM)
	if err != nil {
		return &Summary{Results: results, FirstError: err}, err
	}

	binDir := filepath.Join(root, outputDir)
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return nil, &util.IOError{Path: binDir, Err: err}
	}
	binPath := binPathFor(binDir, projectName)
	linkErr := link(objFiles, binPath)
	if linkErr != nil {
		d.printer.Errorln(linkErr.Error())
	}

	return &Summary{Results: results, ObjFiles: objFiles, BinPath: binPath}, linkErr
}

// runWave1 lexes, parses, and summarizes each file in parallel, honoring
// dependency futures and short-circuiting dependents of a failed
// dependency (spec §5 "Cancellation").
func (d *Driver) runWave1(procs map[string]*BuildProcess) error {
	var group errgroup.Group
	var dispatched sync.WaitGroup
	for path, bp := range procs {
		path, bp := path, bp
		dispatched.Add(1)
		err := d.pool.Submit(func() {
			defer dispatched.Done()
			group.Go(func() error {
				for _, depRel := range bp.Deps {
					dep, ok := procs[depRel]
					if !ok {
						continue
					}
					depRes := <-dep.future
					dep.future <- depRes
					if depRes.Status == StatusFailure {
						res := &BuildResult{Status: StatusFailure, Message: "Dependency failed"}
						bp.future <- res
						d.collector.Append(fmt.Errorf("%s: dependency failed", path))
						return nil
					}
				}

				res := d.wave1One(bp)
				bp.future <- res
				if res.Status == StatusFailure {
					d.collector.Append(fmt.Errorf("%s: %s", path, res.Message))
				}
				return nil
			})
		})
		if err != nil {
			dispatched.Done()
			return fmt.Errorf("submit after pool shutdown: %w", err)
		}
	}
	// group.Go registration happens inside pooled goroutines; wait for every
	// submission to reach the group before waiting on the group itself.
	dispatched.Wait()
	return group.Wait()
}

func (d *Driver) wave1One(bp *BuildProcess) *BuildResult {
	src, err := os.ReadFile(bp.Path)
	if err != nil {
		return &BuildResult{Status: StatusFailure, Message: (&util.IOError{Path: bp.Path, Err: err}).Error()}
	}
	toks, err := frontend.LexAll(string(src))
	if err != nil {
		return &BuildResult{Status: StatusFailure, Message: err.Error()}
	}
	stmts, err := frontend.Parse(toks)
	if err != nil {
		return &BuildResult{Status: StatusFailure, Message: err.Error()}
	}
	bp.stmts = stmts
	bp.summary = summarize(stmts)
	return &BuildResult{Status: StatusSuccess}
}

// runWave2 binds, lowers, and emits every file in parallel against the
// frozen global table (spec §5 "read-only during Wave 2").
func (d *Driver) runWave2(procs map[string]*BuildProcess, global *symtab.Global, objDir string, emitLLVM bool) ([]string, error) {
	var group errgroup.Group
	var dispatched sync.WaitGroup
	objCh := make(chan string, len(procs))

	for path, bp := range procs {
		path, bp := path, bp
		dispatched.Add(1)
		err := d.pool.Submit(func() {
			defer dispatched.Done()
			group.Go(func() error {
				obj, err := d.wave2One(path, bp, global, objDir, emitLLVM)
				if err != nil {
					d.collector.Append(err)
					return err
				}
				objCh <- obj
				return nil
			})
		})
		if err != nil {
			dispatched.Done()
			return nil, fmt.Errorf("submit after pool shutdown: %w", err)
		}
	}
	dispatched.Wait()
	waitErr := group.Wait()
	close(objCh)

	var objFiles []string
	for obj := range objCh {
		objFiles = append(objFiles, obj)
	}
	if waitErr != nil {
		return objFiles, waitErr
	}
	return objFiles, nil
}

func (d *Driver) wave2One(path string, bp *BuildProcess, global *symtab.Global, objDir string, emitLLVM bool) (string, error) {
	b := sema.NewBinder(global)
	if err := b.Run(bp.stmts); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	moduleName := filepath.Base(path)
	engine, err := codegen.Generate(moduleName, global, bp.stmts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	defer engine.Dispose()

	if emitLLVM {
		llPath := filepath.Join(objDir, objStem(path)+".ll")
		if err := os.WriteFile(llPath, []byte(engine.VerifyString()), 0644); err != nil {
			return "", &util.IOError{Path: llPath, Err: err}
		}
	}

	objPath := filepath.Join(objDir, objStem(path)+objExt())
	if err := engine.EmitObject(objPath); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return objPath, nil
}

func objStem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

func objExt() string {
	if runtime.GOOS == "windows" {
		return ".obj"
	}
	return ".o"
}

func binPathFor(binDir, projectName string) string {
	name := projectName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(binDir, name)
}

// link invokes the host C compiler to produce the final executable. A
// missing linker is reported but not fatal for object outputs (spec §4.5).
func link(objFiles []string, binPath string) error {
	if len(objFiles) == 0 {
		return nil
	}
	cc, err := exec.LookPath("clang")
	if err != nil {
		cc, err = exec.LookPath("cc")
	}
	if err != nil {
		return &util.LinkError{Message: "no C compiler found on PATH", Err: err}
	}
	args := append([]string{"-o", binPath}, objFiles...)
	cmd := exec.Command(cc, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &util.LinkError{Message: string(out), Err: err}
	}
	return nil
}

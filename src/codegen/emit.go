package codegen

import (
	"fmt"
	"os"

	"overcast/src/util"

	"tinygo.org/x/go-llvm"
)

// EmitObject lowers this engine's module to a native object file at path,
// mirroring the teacher's ir/llvm/transform.go target-machine setup: host
// default triple, generic CPU, no optimisation level, object file type
// written to disk in one shot (spec §4.4 "Object emission", C8).
func (e *Engine) EmitObject(path string) error {
	llvm.InitializeAllTargetInfos()
	llvm.InitializeAllTargets()
	llvm.InitializeAllTargetMCs()
	llvm.InitializeAllAsmParsers()
	llvm.InitializeAllAsmPrinters()

	triple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return &util.LoweringError{Message: fmt.Sprintf("no target for triple %q: %v", triple, err)}
	}

	tm := target.CreateTargetMachine(triple, "generic", "",
		llvm.CodeGenLevelNone,
		llvm.RelocDefault,
		llvm.CodeModelDefault)
	defer tm.Dispose()

	td := tm.CreateTargetData()
	defer td.Dispose()

	e.module.SetDataLayout(td.String())
	e.module.SetTarget(tm.Triple())

	buf, err := tm.EmitToMemoryBuffer(e.module, llvm.ObjectFile)
	if err != nil {
		return &util.LoweringError{Message: "object emission failed: " + err.Error()}
	}
	defer buf.Dispose()
	if buf.IsNil() {
		return &util.LoweringError{Message: "object emission produced an empty buffer"}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return &util.IOError{Path: path, Err: err}
	}
	return nil
}

// VerifyString returns the module's textual IR, used by tests that check
// IR shape without invoking the system toolchain.
func (e *Engine) VerifyString() string {
	return e.module.String()
}

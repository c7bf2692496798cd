package codegen

import (
	"overcast/src/ast"
	"overcast/src/types"
	"overcast/src/util"

	"tinygo.org/x/go-llvm"
)

// loweredExpr is the small record expression lowering yields (spec §4.4):
// a value, its IR type, its semantic type, and — for a member call's
// callee lowered in function-access mode — the receiver pointer.
type loweredExpr struct {
	Value    llvm.Value
	IRType   llvm.Type
	SemType  types.Type
	Receiver llvm.Value
}

// lowerFuncBody lowers one function's body into fi's already-materialized
// IR function (spec §4.4 Phase B, "Function body").
func (e *Engine) lowerFuncBody(fn *ast.FuncDecl, fi *funcInfo) error {
	e.locals = make(map[string]*localSlot)
	e.phiTable = make(map[string]llvm.Value)
	e.curFunc = fi.value
	e.curFuncRet = fi.retType

	retIR, err := e.translateType(fi.retType)
	if err != nil {
		return err
	}
	e.curFuncRetIR = retIR

	entry := llvm.AddBasicBlock(fi.value, "entry")
	e.builder.SetInsertPointAtEnd(entry)

	for i, p := range fn.Params {
		param := fi.value.Param(i)
		irT, err := e.translateType(p.Type)
		if err != nil {
			return err
		}
		alloca := e.builder.CreateAlloca(irT, "var:"+p.Name)
		e.builder.CreateStore(param, alloca)
		e.locals[p.Name] = &localSlot{ptr: alloca, irType: irT, semType: p.Type}
	}

	for _, s := range fn.Body {
		if err := e.lowerStmt(s); err != nil {
			return err
		}
	}

	if e.curFuncRetIR.TypeKind() == llvm.VoidTypeKind && !e.blockTerminated() {
		e.builder.CreateRetVoid()
	}
	return nil
}

// blockTerminated reports whether the current insertion block already
// ends with a terminator (Invariant 3: every block B being lowered into
// has no terminator yet).
func (e *Engine) blockTerminated() bool {
	bb := e.builder.GetInsertBlock()
	last := bb.LastInstruction()
	if last.IsNil() {
		return false
	}
	switch last.InstructionOpcode() {
	case llvm.Ret, llvm.Br, llvm.Switch, llvm.Unreachable:
		return true
	}
	return false
}

func (e *Engine) lowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.VarDecl:
		return e.lowerVarDecl(n)
	case *ast.ConstDecl:
		p := n.Position()
		// spec §9 open question (b): const is recognised but rejected at
		// lowering time.
		return &util.LoweringError{Line: p.Line, Col: p.Col, Message: "const declarations are not supported by the lowering engine"}
	case *ast.Assign:
		return e.lowerAssign(n)
	case *ast.If:
		return e.lowerIf(n, llvm.BasicBlock{})
	case *ast.While:
		return e.lowerWhile(n)
	case *ast.Return:
		return e.lowerReturn(n)
	case *ast.ExprStmt:
		_, err := e.lowerExprValue(n.Expr)
		return err
	case *ast.Use, *ast.PackageDecl:
		return nil
	default:
		p := s.Position()
		return &util.LoweringError{Line: p.Line, Col: p.Col, Message: "unsupported statement kind"}
	}
}

// lowerVarDecl mirrors CGEngine's GenerateVarDecl: a fresh name gets an
// entry-block alloca (Invariant 4); a name that already exists is a loop
// re-declaration (spec §9 "Scope for control-flow blocks") and reuses the
// existing slot, feeding an open φ-node if one is live for this name.
func (e *Engine) lowerVarDecl(n *ast.VarDecl) error {
	irT, err := e.translateType(n.Type)
	if err != nil {
		return err
	}
	slot, exists := e.locals[n.Name]
	if !exists {
		// Place the slot at the head of the function's entry block.
		entryBuilder := e.ctx.NewBuilder()
		entry := e.curFunc.EntryBasicBlock()
		if first := entry.FirstInstruction(); first.IsNil() {
			entryBuilder.SetInsertPointAtEnd(entry)
		} else {
			entryBuilder.SetInsertPointBefore(first)
		}
		alloca := entryBuilder.CreateAlloca(irT, "var:"+n.Name)
		entryBuilder.Dispose()
		slot = &localSlot{ptr: alloca, irType: irT, semType: n.Type}
		e.locals[n.Name] = slot
		if n.Init == nil {
			return nil
		}
		if ctor, ok := n.Init.(*ast.StructCtor); ok {
			_, err := e.lowerStructCtor(ctor, alloca)
			return err
		}
		val, err := e.lowerExprValue(n.Init)
		if err != nil {
			return err
		}
		e.builder.CreateStore(val.Value, alloca)
		return nil
	}

	if n.Init == nil {
		return nil
	}
	var val llvm.Value
	if ctor, ok := n.Init.(*ast.StructCtor); ok {
		lv, err := e.lowerStructCtor(ctor, slot.ptr)
		if err != nil {
			return err
		}
		val = lv.Value
	} else {
		lv, err := e.lowerExprValue(n.Init)
		if err != nil {
			return err
		}
		val = lv.Value
		e.builder.CreateStore(val, slot.ptr)
	}
	if phi, ok := e.phiTable[n.Name]; ok {
		phi.AddIncoming([]llvm.Value{val}, []llvm.BasicBlock{e.builder.GetInsertBlock()})
	}
	return nil
}

// lowerAssign mirrors GenerateVarSet: the LHS lowers in pointer-access
// mode; a StructCtor RHS targeting a struct-access LHS writes directly
// into the field address without an extra alloca.
func (e *Engine) lowerAssign(n *ast.Assign) error {
	lv, err := e.lowerExpr(n.LHS, true, false)
	if err != nil {
		return err
	}
	_, lhsIsStructAccess := n.LHS.(*ast.StructAccess)
	if ctor, ok := n.RHS.(*ast.StructCtor); ok && lhsIsStructAccess {
		_, err := e.lowerStructCtor(ctor, lv.Value)
		return err
	}
	rv, err := e.lowerExprValue(n.RHS)
	if err != nil {
		return err
	}
	e.builder.CreateStore(rv.Value, lv.Value)
	if varUse, ok := n.LHS.(*ast.VarUse); ok {
		if phi, ok2 := e.phiTable[varUse.Name]; ok2 {
			phi.AddIncoming([]llvm.Value{rv.Value}, []llvm.BasicBlock{e.builder.GetInsertBlock()})
		}
	}
	return nil
}

// lowerIf mirrors GenerateIfStatement: merge accepts an optional override
// so a chained `else if` reuses the outer merge block instead of creating
// its own (spec §9 open question (d)).
func (e *Engine) lowerIf(n *ast.If, mergeOverride llvm.BasicBlock) error {
	condV, err := e.lowerExprValue(n.Cond)
	if err != nil {
		return err
	}

	thenBB := llvm.AddBasicBlock(e.curFunc, "then")
	hasElse := len(n.Else) > 0
	var elseBB llvm.BasicBlock
	if hasElse {
		elseBB = llvm.AddBasicBlock(e.curFunc, "else")
	}
	mergeBB := mergeOverride
	if mergeBB.IsNil() {
		mergeBB = llvm.AddBasicBlock(e.curFunc, "ifcont")
	}

	if hasElse {
		e.builder.CreateCondBr(condV.Value, thenBB, elseBB)
	} else {
		e.builder.CreateCondBr(condV.Value, thenBB, mergeBB)
	}

	e.builder.SetInsertPointAtEnd(thenBB)
	for _, s := range n.Then {
		if err := e.lowerStmt(s); err != nil {
			return err
		}
	}
	if !e.blockTerminated() {
		e.builder.CreateBr(mergeBB)
	}

	if hasElse {
		e.builder.SetInsertPointAtEnd(elseBB)
		if len(n.Else) == 1 {
			if nested, ok := n.Else[0].(*ast.If); ok {
				if err := e.lowerIf(nested, mergeBB); err != nil {
					return err
				}
				e.builder.SetInsertPointAtEnd(mergeBB)
				return nil
			}
		}
		for _, s := range n.Else {
			if err := e.lowerStmt(s); err != nil {
				return err
			}
		}
		if !e.blockTerminated() {
			e.builder.CreateBr(mergeBB)
		}
	}

	e.builder.SetInsertPointAtEnd(mergeBB)
	return nil
}

// lowerWhile mirrors GenerateWhileStatement and the loop φ-analysis design
// note: pre-analyse the body for declared/assigned names, create a φ-node
// per name in cond primed with a load from the pre-loop block, lower the
// body with phi_table live, then restore the saved phi_table on exit so
// nested loops nest correctly.
func (e *Engine) lowerWhile(n *ast.While) error {
	preheader := e.builder.GetInsertBlock()

	condBB := llvm.AddBasicBlock(e.curFunc, "cond")
	bodyBB := llvm.AddBasicBlock(e.curFunc, "body")
	mergeBB := llvm.AddBasicBlock(e.curFunc, "merge")

	names := collectAssignedOrDeclared(n.Body)
	preVals := make(map[string]llvm.Value, len(names))
	for _, name := range names {
		slot, ok := e.locals[name]
		if !ok {
			continue
		}
		preVals[name] = e.builder.CreateLoad(slot.ptr, name+".pre")
	}

	e.builder.CreateBr(condBB)
	e.builder.SetInsertPointAtEnd(condBB)

	savedPhi := e.phiTable
	e.phiTable = make(map[string]llvm.Value)
	for _, name := range names {
		slot, ok := e.locals[name]
		if !ok {
			continue
		}
		phi := e.builder.CreatePHI(slot.irType, name+".phi")
		phi.AddIncoming([]llvm.Value{preVals[name]}, []llvm.BasicBlock{preheader})
		e.phiTable[name] = phi
	}

	condV, err := e.lowerExprValue(n.Cond)
	if err != nil {
		e.phiTable = savedPhi
		return err
	}
	e.builder.CreateCondBr(condV.Value, bodyBB, mergeBB)

	e.builder.SetInsertPointAtEnd(bodyBB)
	for _, s := range n.Body {
		if err := e.lowerStmt(s); err != nil {
			e.phiTable = savedPhi
			return err
		}
	}
	if !e.blockTerminated() {
		e.builder.CreateBr(condBB)
	}

	e.builder.SetInsertPointAtEnd(mergeBB)
	e.phiTable = savedPhi
	return nil
}

// collectAssignedOrDeclared walks a loop body's direct statements only
// (not nested blocks), mirroring AnalyzePHIVariables.
func collectAssignedOrDeclared(body []ast.Stmt) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, s := range body {
		switch n := s.(type) {
		case *ast.VarDecl:
			add(n.Name)
		case *ast.Assign:
			if vu, ok := n.LHS.(*ast.VarUse); ok {
				add(vu.Name)
			}
		}
	}
	return names
}

func (e *Engine) lowerReturn(n *ast.Return) error {
	if n.Value == nil {
		e.builder.CreateRetVoid()
		return nil
	}
	val, err := e.lowerExprValue(n.Value)
	if err != nil {
		return err
	}
	e.builder.CreateRet(val.Value)
	return nil
}

func (e *Engine) lowerExprValue(expr ast.Expr) (loweredExpr, error) {
	return e.lowerExpr(expr, false, false)
}

// lowerExpr is the recursive expression lowering entry point. ptrMode and
// fnMode are explicit, stack-scoped parameters (spec §9 "Shared mutable
// context during lowering") rather than ambient engine fields.
func (e *Engine) lowerExpr(expr ast.Expr, ptrMode, fnMode bool) (loweredExpr, error) {
	switch n := expr.(type) {
	case *ast.IntLit:
		ty := e.ctx.Int32Type()
		return loweredExpr{Value: llvm.ConstInt(ty, uint64(uint32(n.Value)), false), IRType: ty, SemType: types.NewIdent(string(types.Int))}, nil
	case *ast.StringLit:
		strPtr := e.builder.CreateGlobalStringPtr(n.Value, ".str")
		ty := llvm.PointerType(e.ctx.Int8Type(), 0)
		return loweredExpr{Value: strPtr, IRType: ty, SemType: types.NewIdent(string(types.String))}, nil
	case *ast.VarUse:
		return e.lowerVarUse(n, ptrMode, fnMode)
	case *ast.Binary:
		return e.lowerBinary(n)
	case *ast.Call:
		return e.lowerCall(n)
	case *ast.StructCtor:
		return e.lowerStructCtor(n, llvm.Value{})
	case *ast.StructAccess:
		return e.lowerStructAccess(n, ptrMode, fnMode)
	case *ast.IncDec:
		p := n.Position()
		return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "postfix " + n.Op + " has no defined lowering"}
	default:
		p := expr.Position()
		return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "unsupported expression kind"}
	}
}

// lowerVarUse mirrors the VariableUseExpr case of GenerateExpression.
func (e *Engine) lowerVarUse(n *ast.VarUse, ptrMode, fnMode bool) (loweredExpr, error) {
	if n.IsFuncResolved || fnMode {
		if n.Name == "print" {
			return loweredExpr{Value: e.printfFn, SemType: types.NewIdent(string(types.Int))}, nil
		}
		fi, ok := e.funcTable[funcKey("", n.Name)]
		if !ok {
			p := n.Position()
			return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "unknown function " + n.Name}
		}
		return loweredExpr{Value: fi.value, SemType: fi.retType}, nil
	}
	slot, ok := e.locals[n.Name]
	if !ok {
		p := n.Position()
		return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "unknown variable " + n.Name}
	}
	if ptrMode {
		return loweredExpr{Value: slot.ptr, IRType: slot.irType, SemType: slot.semType}, nil
	}
	loaded := e.builder.CreateLoad(slot.ptr, n.Name)
	return loweredExpr{Value: loaded, IRType: slot.irType, SemType: slot.semType}, nil
}

func (e *Engine) lowerBinary(n *ast.Binary) (loweredExpr, error) {
	lv, err := e.lowerExprValue(n.LHS)
	if err != nil {
		return loweredExpr{}, err
	}
	rv, err := e.lowerExprValue(n.RHS)
	if err != nil {
		return loweredExpr{}, err
	}
	p := n.Position()
	var val llvm.Value
	isComparison := false
	switch n.Op {
	case "+":
		val = e.builder.CreateAdd(lv.Value, rv.Value, "add")
	case "-":
		val = e.builder.CreateSub(lv.Value, rv.Value, "sub")
	case "*":
		val = e.builder.CreateMul(lv.Value, rv.Value, "mul")
	case "/":
		val = e.builder.CreateSDiv(lv.Value, rv.Value, "div")
	case "%":
		val = e.builder.CreateSRem(lv.Value, rv.Value, "rem")
	case "&&":
		val = e.builder.CreateAnd(lv.Value, rv.Value, "and")
	case "||":
		val = e.builder.CreateOr(lv.Value, rv.Value, "or")
	case "==":
		val, isComparison = e.builder.CreateICmp(llvm.IntEQ, lv.Value, rv.Value, "cmp"), true
	case "!=":
		val, isComparison = e.builder.CreateICmp(llvm.IntNE, lv.Value, rv.Value, "cmp"), true
	case "<":
		val, isComparison = e.builder.CreateICmp(llvm.IntSLT, lv.Value, rv.Value, "cmp"), true
	case "<=":
		val, isComparison = e.builder.CreateICmp(llvm.IntSLE, lv.Value, rv.Value, "cmp"), true
	case ">":
		val, isComparison = e.builder.CreateICmp(llvm.IntSGT, lv.Value, rv.Value, "cmp"), true
	case ">=":
		val, isComparison = e.builder.CreateICmp(llvm.IntSGE, lv.Value, rv.Value, "cmp"), true
	default:
		return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "unsupported operator " + n.Op}
	}
	if isComparison {
		return loweredExpr{Value: val, IRType: e.ctx.Int1Type(), SemType: types.NewIdent(string(types.Bool))}, nil
	}
	return loweredExpr{Value: val, IRType: lv.IRType, SemType: lv.SemType}, nil
}

// lowerCall mirrors GenerateFunctionCall: the callee lowers in
// function-access mode; member calls append the receiver pointer as the
// last argument, matching the implicit `this`.
func (e *Engine) lowerCall(n *ast.Call) (loweredExpr, error) {
	callee, err := e.lowerExpr(n.Callee, false, true)
	if err != nil {
		return loweredExpr{}, err
	}
	args := make([]llvm.Value, 0, len(n.Args)+1)
	for _, a := range n.Args {
		av, err := e.lowerExprValue(a)
		if err != nil {
			return loweredExpr{}, err
		}
		args = append(args, av.Value)
	}
	if n.IsMemberCallResolved {
		args = append(args, callee.Receiver)
	}
	callVal := e.builder.CreateCall(callee.Value, args, "")
	return loweredExpr{Value: callVal, SemType: callee.SemType}, nil
}

// lowerStructCtor mirrors GenerateStructCtor: an override destination
// pointer (supplied by a VarDecl/Assign routing a ctor directly into a
// field or variable slot) avoids a second alloca; otherwise a fresh
// alloca of the struct type is the destination.
func (e *Engine) lowerStructCtor(n *ast.StructCtor, overrideDest llvm.Value) (loweredExpr, error) {
	sd, ok := e.structDefTable[n.TypeName]
	if !ok {
		p := n.Position()
		return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "unknown struct " + n.TypeName}
	}
	dest := overrideDest
	if dest.IsNil() {
		dest = e.builder.CreateAlloca(sd.irType, "struct:"+n.TypeName)
	}
	if fi, ok := e.funcTable[funcKey(n.TypeName, "ctor")]; ok {
		args := make([]llvm.Value, 0, len(n.Args)+1)
		for _, a := range n.Args {
			av, err := e.lowerExprValue(a)
			if err != nil {
				return loweredExpr{}, err
			}
			args = append(args, av.Value)
		}
		args = append(args, dest)
		e.builder.CreateCall(fi.value, args, "")
	}
	return loweredExpr{Value: dest, IRType: llvm.PointerType(sd.irType, 0), SemType: types.NewIdent(n.TypeName)}, nil
}

// lowerStructAccess mirrors the StructAccessExpr case of
// GenerateExpression: the LHS always lowers in pointer-access mode to
// recover the struct address; pointer-access, function-access, or plain
// value mode then determines what this call returns.
func (e *Engine) lowerStructAccess(n *ast.StructAccess, ptrMode, fnMode bool) (loweredExpr, error) {
	lhs, err := e.lowerExpr(n.LHS, true, false)
	if err != nil {
		return loweredExpr{}, err
	}
	p := n.Position()
	if lhs.SemType == nil {
		return loweredExpr{}, &util.TypeError{Line: p.Line, Col: p.Col, Message: "struct access on expression with no semantic type"}
	}
	// A pointer-typed LHS (`this`, or a pointer field/variable) lowered in
	// pointer-access mode yields the address of the pointer, one
	// indirection above the struct pointer the GEP needs.
	structPtr := lhs.Value
	if _, isPtr := lhs.SemType.(*types.Pointer); isPtr {
		structPtr = e.builder.CreateLoad(structPtr, n.MemberName+".deref")
	}
	structName := lhs.SemType.BaseOf().String()
	sd, ok := e.structDefTable[structName]
	if !ok {
		return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "unknown struct " + structName}
	}

	if fnMode {
		fi, ok := e.funcTable[funcKey(structName, n.MemberName)]
		if !ok {
			return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "unknown member function " + structName + "::" + n.MemberName}
		}
		return loweredExpr{Value: fi.value, SemType: fi.retType, Receiver: structPtr}, nil
	}

	var member *structMember
	for i := range sd.members {
		if sd.members[i].name == n.MemberName {
			member = &sd.members[i]
			break
		}
	}
	if member == nil {
		return loweredExpr{}, &util.LoweringError{Line: p.Line, Col: p.Col, Message: "no such member " + n.MemberName + " on " + structName}
	}
	gep := e.builder.CreateStructGEP(structPtr, member.index, ".gep."+structName+"."+n.MemberName)
	if ptrMode {
		return loweredExpr{Value: gep, IRType: member.irType, SemType: member.semType}, nil
	}
	loaded := e.builder.CreateLoad(gep, n.MemberName)
	return loweredExpr{Value: loaded, IRType: member.irType, SemType: member.semType}, nil
}

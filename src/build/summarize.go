package build

import (
	"overcast/src/ast"
	"overcast/src/symtab"
	"overcast/src/types"
)

// summarize walks one file's top-level statements and produces the
// per-file symbol scope Wave 1 promotes into the global table (spec
// §4.5). It mirrors sema.Binder's bindFuncDecl/bindStructDecl symbol
// shapes but never mutates the AST — the this-parameter append on struct
// member functions happens exactly once, in Wave 2's real binder run.
func summarize(stmts []ast.Stmt) *symtab.Scope {
	scope := symtab.NewScope()
	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.FuncDecl:
			scope.Add(summarizeFunc(n))
		case *ast.StructDecl:
			scope.Add(summarizeStruct(n))
		}
	}
	return scope
}

func summarizeFunc(fn *ast.FuncDecl) symtab.Symbol {
	paramTypes := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		paramTypes[i] = p.Type
	}
	return symtab.Symbol{
		Name:               fn.Name,
		Kind:               symtab.Function,
		Type:               fn.RetType,
		ParamTypes:         paramTypes,
		Variadic:           fn.Variadic,
		IsStructMemberFunc: fn.IsStructMember,
		IsExtern:           fn.IsExtern,
	}
}

func summarizeStruct(sd *ast.StructDecl) symtab.Symbol {
	members := make([]symtab.Symbol, 0, len(sd.Fields)+len(sd.MemberFuncs))
	for _, f := range sd.Fields {
		members = append(members, symtab.Symbol{Name: f.Name, Kind: symtab.Variable, Type: f.Type})
	}
	this := types.NewPointer(types.NewIdent(sd.Name))
	for _, mf := range sd.MemberFuncs {
		paramTypes := make([]types.Type, len(mf.Params), len(mf.Params)+1)
		for i, p := range mf.Params {
			paramTypes[i] = p.Type
		}
		paramTypes = append(paramTypes, this)
		members = append(members, symtab.Symbol{
			Name:               mf.Name,
			Kind:               symtab.Function,
			Type:               mf.RetType,
			ParamTypes:         paramTypes,
			IsStructMemberFunc: true,
		})
	}
	return symtab.Symbol{
		Name:    sd.Name,
		Kind:    symtab.Struct,
		Type:    types.NewIdent(sd.Name),
		Members: members,
	}
}

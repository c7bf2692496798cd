// parser.go implements the recursive-descent parser with Pratt-style
// operator precedence described in spec §4.1: parse a postfix-primary,
// then repeatedly consume binary operators whose precedence is at least
// the current level, recursing at the same precedence for right-assoc
// operators and at precedence+1 for left-assoc ones.
package frontend

import (
	"strconv"

	"overcast/src/ast"
	"overcast/src/types"
	"overcast/src/util"
)

type parser struct {
	tokens []Token
	pos    int
}

// Parse turns a finite, immutable token sequence into a sequence of
// top-level statements. It fails on the first unexpected token; no
// recovery is attempted (spec §4.1, §1 Non-goals).
func Parse(tokens []Token) ([]ast.Stmt, error) {
	p := &parser{tokens: tokens}
	var stmts []ast.Stmt
	for !p.atEOF() {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (p *parser) atEOF() bool { return p.cur().Kind == EOF }

func (p *parser) cur() Token { return p.peekAt(0) }

// peekAt(k) must succeed if k tokens remain, else the caller gets an EOF
// token. Because the token slice always ends in an explicit EOF entry,
// over-running simply yields repeated EOFs rather than panicking, which
// keeps every caller's error path uniform.
func (p *parser) peekAt(k int) Token {
	i := p.pos + k
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k Kind) (Token, error) {
	t := p.cur()
	if t.Kind != k {
		return t, &util.SyntaxError{Line: t.Line, Col: t.Col, Expected: k.String(), Actual: t.Lexeme}
	}
	return p.advance(), nil
}

func pos(t Token) ast.Pos { return ast.Pos{Line: t.Line, Col: t.Col} }

// --- Statements ---

func (p *parser) parseStatement() (ast.Stmt, error) {
	t := p.cur()
	switch t.Kind {
	case KwFunc:
		return p.parseFuncDecl(false)
	case KwExtern:
		return p.parseFuncDecl(true)
	case KwVar, KwLet:
		return p.parseVarDecl()
	case KwConst:
		return p.parseConstDecl()
	case KwReturn:
		return p.parseReturn()
	case KwIf:
		return p.parseIf()
	case KwWhile:
		return p.parseWhile()
	case KwUse:
		p.advance()
		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if err := p.expectSemi(); err != nil {
			return nil, err
		}
		return &ast.Use{Pos: pos(t), Name: name.Lexeme}, nil
	case KwPackage:
		p.advance()
		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		// The trailing `;` is optional after a package directive.
		if p.cur().Kind == Semi {
			p.advance()
		}
		return &ast.PackageDecl{Pos: pos(t), Name: name.Lexeme}, nil
	case Ident:
		return p.parseIdentLedStatement()
	default:
		return nil, &util.SyntaxError{Line: t.Line, Col: t.Col, Expected: "a statement", Actual: t.Lexeme}
	}
}

// expectSemi requires a trailing `;`, per spec §4.1: "All non-control
// statements in a block must be terminated by ;".
func (p *parser) expectSemi() error {
	_, err := p.expect(Semi)
	return err
}

// parseIdentLedStatement disambiguates the four identifier-led statement
// forms of spec §4.1 by looking ahead past the identifier.
func (p *parser) parseIdentLedStatement() (ast.Stmt, error) {
	next := p.peekAt(1)
	switch next.Kind {
	case Arrow:
		// `Name -> struct { ... }` or `lhs -> member = rhs`.
		if p.peekAt(2).Kind == KwStruct {
			return p.parseStructDecl()
		}
		return p.parseAssignmentStatement()
	case Assign:
		return p.parseAssignmentStatement()
	default:
		// Expression statement, e.g. a bare call: `foo(1,2);`.
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		start := e.Position()
		if err := p.expectSemi(); err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Pos: start, Expr: e}, nil
	}
}

func (p *parser) parseAssignmentStatement() (ast.Stmt, error) {
	lhs, err := p.parsePostfixPrimary()
	if err != nil {
		return nil, err
	}
	eq, err := p.expect(Assign)
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if err := p.expectSemi(); err != nil {
		return nil, err
	}
	return &ast.Assign{Pos: pos(eq), LHS: lhs, RHS: rhs}, nil
}

func (p *parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	var params []ast.Param
	for p.cur().Kind != RParen {
		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Colon); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: name.Lexeme, Type: typ})
		if p.cur().Kind == Comma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *parser) parseFuncDecl(isExtern bool) (ast.Stmt, error) {
	start := p.advance() // consume `func` or `extern`
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Arrow); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	fd := &ast.FuncDecl{Pos: pos(start), Name: name.Lexeme, Params: params, RetType: retType, IsExtern: isExtern}
	if isExtern {
		if err := p.expectSemi(); err != nil {
			return nil, err
		}
		return fd, nil
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fd.Body = body
	return fd, nil
}

func (p *parser) parseStructDecl() (ast.Stmt, error) {
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Arrow); err != nil {
		return nil, err
	}
	if _, err := p.expect(KwStruct); err != nil {
		return nil, err
	}
	if _, err := p.expect(LBrace); err != nil {
		return nil, err
	}
	sd := &ast.StructDecl{Pos: pos(name), Name: name.Lexeme}
	seenMemberFunc := false
	for p.cur().Kind != RBrace {
		if p.cur().Kind == KwFunc {
			fn, err := p.parseFuncDecl(false)
			if err != nil {
				return nil, err
			}
			f := fn.(*ast.FuncDecl)
			f.IsStructMember = true
			sd.MemberFuncs = append(sd.MemberFuncs, f)
			seenMemberFunc = true
			continue
		}
		if seenMemberFunc {
			t := p.cur()
			return nil, &util.SyntaxError{Line: t.Line, Col: t.Col, Expected: "member function (fields must precede member functions)", Actual: t.Lexeme}
		}
		fname, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(Colon); err != nil {
			return nil, err
		}
		ftyp, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expectSemi(); err != nil {
			return nil, err
		}
		sd.Fields = append(sd.Fields, ast.StructField{Name: fname.Lexeme, Type: ftyp})
	}
	if _, err := p.expect(RBrace); err != nil {
		return nil, err
	}
	return sd, nil
}

func (p *parser) parseVarDecl() (ast.Stmt, error) {
	start := p.advance() // `var` or `let`
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Colon); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	vd := &ast.VarDecl{Pos: pos(start), Name: name.Lexeme, Type: typ}
	if p.cur().Kind == Assign {
		p.advance()
		init, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		vd.Init = init
	}
	if err := p.expectSemi(); err != nil {
		return nil, err
	}
	return vd, nil
}

func (p *parser) parseConstDecl() (ast.Stmt, error) {
	start := p.advance() // `const`
	name, err := p.expect(Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(Colon); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	cd := &ast.ConstDecl{Pos: pos(start), Name: name.Lexeme, Type: typ}
	if p.cur().Kind == Assign {
		p.advance()
		init, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		cd.Init = init
	}
	if err := p.expectSemi(); err != nil {
		return nil, err
	}
	return cd, nil
}

func (p *parser) parseReturn() (ast.Stmt, error) {
	start := p.advance()
	r := &ast.Return{Pos: pos(start)}
	if p.cur().Kind != Semi {
		v, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		r.Value = v
	}
	if err := p.expectSemi(); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *parser) parseIf() (ast.Stmt, error) {
	start := p.advance()
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	ifs := &ast.If{Pos: pos(start), Cond: cond, Then: then}
	if p.cur().Kind == KwElse {
		p.advance()
		if p.cur().Kind == KwIf {
			// spec §9 open question (d): keep a single nested-if branch so
			// `else if` does not duplicate the body into both If.Then and
			// If.Else.
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			ifs.Else = []ast.Stmt{nested}
		} else {
			elseBody, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			ifs.Else = elseBody
		}
	}
	return ifs, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	start := p.advance()
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Pos: pos(start), Cond: cond, Body: body}, nil
}

// parseBlock reads a `{` ... `}` sequence of statements. Per spec §9
// ("Scope for control-flow blocks"), the parser does not open a scope here
// — that is a binder concern, not a parsing one — but it does enforce
// structural nesting of braces.
func (p *parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(LBrace); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.cur().Kind != RBrace {
		if p.atEOF() {
			t := p.cur()
			return nil, &util.SyntaxError{Line: t.Line, Col: t.Col, Expected: "}", Actual: t.Lexeme}
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(RBrace); err != nil {
		return nil, err
	}
	return stmts, nil
}

// --- Types ---

func (p *parser) parseType() (types.Type, error) {
	if p.cur().Kind == Star {
		p.advance()
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return types.NewPointer(inner), nil
	}
	name, err := p.expect(Ident)
	if err != nil {
		// Primitive type names lex as identifiers, so this also covers them.
		return nil, err
	}
	return types.NewIdent(name.Lexeme), nil
}

// --- Expressions: Pratt precedence parsing ---

// binOps maps a binary operator token kind to (precedence, rightAssoc),
// mirroring the table in spec §4.1. Row 1 (`=`) is handled at the
// statement level, not here.
type opInfo struct {
	prec       int
	rightAssoc bool
}

var binOps = map[Kind]opInfo{
	OrOr:       {3, false},
	AndAnd:     {4, false},
	Eq:         {5, false},
	Ne:         {6, false},
	Le:         {7, false},
	Ge:         {7, false},
	Lt:         {8, false},
	Gt:         {8, false},
	Plus:       {9, false},
	Minus:      {9, false},
	Star:       {10, false},
	Slash:      {10, false},
	PlusEq:     {11, true},
	MinusEq:    {11, true},
	StarEq:     {11, true},
	SlashEq:    {11, true},
	PercentEq:  {11, true},
	AndEq:      {11, true},
	OrEq:       {11, true},
	XorEq:      {11, true},
	Caret:      {12, true},
}

// parseExpr implements the Pratt loop: parse a postfix-primary, then
// repeatedly consume binary operators whose precedence is at least
// minPrec. Right-associative operators recurse at the same precedence;
// left-associative operators recurse at precedence+1.
func (p *parser) parseExpr(minPrec int) (ast.Expr, error) {
	lhs, err := p.parsePostfixPrimary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := binOps[p.cur().Kind]
		if !ok || op.prec < minPrec {
			break
		}
		opTok := p.advance()
		nextMin := op.prec + 1
		if op.rightAssoc {
			nextMin = op.prec
		}
		rhs, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binary{Pos: pos(opTok), LHS: lhs, Op: opTok.Lexeme, RHS: rhs}
	}
	return lhs, nil
}

// parsePostfixPrimary parses a primary expression followed by any
// sequence of `->member` and `(args...)`, then an optional trailing
// `++`/`--` (spec §4.1 row 13).
func (p *parser) parsePostfixPrimary() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case Arrow:
			arrow := p.advance()
			member, err := p.expect(Ident)
			if err != nil {
				return nil, err
			}
			e = &ast.StructAccess{Pos: pos(arrow), LHS: e, MemberName: member.Lexeme}
		case LParen:
			lp := p.advance()
			var args []ast.Expr
			for p.cur().Kind != RParen {
				a, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.cur().Kind == Comma {
					p.advance()
					continue
				}
				break
			}
			if _, err := p.expect(RParen); err != nil {
				return nil, err
			}
			e = &ast.Call{Pos: pos(lp), Callee: e, Args: args}
		case PlusPlus, MinusMinus:
			op := p.advance()
			e = &ast.IncDec{Pos: pos(op), Target: e, Op: op.Lexeme}
		default:
			return e, nil
		}
	}
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case IntLit:
		p.advance()
		v, err := strconv.ParseInt(t.Lexeme, 10, 32)
		if err != nil {
			return nil, &util.SyntaxError{Line: t.Line, Col: t.Col, Expected: "integer literal", Actual: t.Lexeme}
		}
		return &ast.IntLit{Pos: pos(t), Value: int32(v)}, nil
	case StringLit:
		p.advance()
		return &ast.StringLit{Pos: pos(t), Value: t.Lexeme}, nil
	case Ident:
		p.advance()
		return &ast.VarUse{Pos: pos(t), Name: t.Lexeme}, nil
	case KwNew:
		p.advance()
		name, err := p.expect(Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(LParen); err != nil {
			return nil, err
		}
		var args []ast.Expr
		for p.cur().Kind != RParen {
			a, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur().Kind == Comma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
		return &ast.StructCtor{Pos: pos(t), TypeName: name.Lexeme, Args: args}, nil
	case LParen:
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, &util.SyntaxError{Line: t.Line, Col: t.Col, Expected: "an expression", Actual: t.Lexeme}
	}
}

package syntax

// Parser builds an AST from a token stream, managing the scope tree as it
// descends. Name uses are recorded as references in the scope where they
// appear; Parse resolves them once the tree is complete.
type Parser struct {
	lex    *Lexer
	scope  *Scope
	global *Scope
	module bool

	hasDefault  bool
	inFunction  int
	inIteration int
	inSwitch    int
	noIn        bool
}

// Options configure a parse.
type Options struct {
	// File names error positions; empty suppresses them.
	File string
	// StartLine seeds line numbering, for sources embedded mid-file.
	StartLine int
	// Module enables import/export and marks the global scope.
	Module bool
	// Trailer stops the parse at the first unmatched closing brace, for
	// scripts embedded in a larger document.
	Trailer bool
}

// Parse parses src into a tree. prev, when non-nil, donates its global
// scope's variables to the new parse (accumulative mode): names declared by
// earlier chunks keep their indices and resolve without redeclaration.
func Parse(src string, opts Options, prev *Tree) (*Tree, error) {
	p := &Parser{
		lex:    NewLexer(src, opts.File, opts.StartLine),
		module: opts.Module,
	}

	p.global = NewScope(ScopeGlobal, nil)
	p.global.Module = opts.Module
	if prev != nil {
		p.global.Import(prev.Global)
	}
	p.scope = p.global

	var top *Node
	for {
		tok, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEnd {
			break
		}
		if tok.Type == TokenCloseBrace && opts.Trailer {
			break
		}
		if err := p.statementChain(&top); err != nil {
			return nil, err
		}
	}

	// Inner scopes closed as the parser left them, escalating unresolved
	// references upward; closing the global scope materializes late
	// bindings for whatever is still unbound.
	p.global.Close()

	return &Tree{Root: top, Global: p.global, Module: opts.Module}, nil
}

func (p *Parser) syntaxError(format string, args ...any) error {
	return p.lex.syntaxError(format, args...)
}

func (p *Parser) next() (Token, error) { return p.lex.Next() }
func (p *Parser) peek() (Token, error) { return p.lex.Peek() }

// expect consumes the next token, failing unless it has type t.
func (p *Parser) expect(t TokenType) (Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if tok.Type != t {
		return tok, p.syntaxError("Unexpected token %q, expected %q", tok.Type.String(), t.String())
	}
	return tok, nil
}

// accept consumes the next token if it has type t.
func (p *Parser) accept(t TokenType) (bool, error) {
	tok, err := p.peek()
	if err != nil {
		return false, err
	}
	if tok.Type != t {
		return false, nil
	}
	_, err = p.next()
	return true, err
}

func (p *Parser) scopeBegin(t ScopeType) (*Scope, error) {
	s := NewScope(t, p.scope)
	if t == ScopeFunction {
		s.Nesting = p.scope.functionScope().Nesting + 1
		if s.Nesting > MaxFunctionNesting {
			return nil, p.syntaxError("The maximum function nesting level is %d", MaxFunctionNesting)
		}
	}
	p.scope = s
	return s, nil
}

func (p *Parser) scopeEnd() {
	p.scope.Close()
	p.scope = p.scope.Parent
}

// statementChain parses one statement and links it into the chain rooted at
// *top through a statement node (prev, current). Hoisted statements are
// spliced to the front of the chain instead, which lifts function
// declarations and imports to the start of their scope regardless of
// textual position.
func (p *Parser) statementChain(top **Node) error {
	node, err := p.statement()
	if err != nil {
		return err
	}
	if node == nil {
		return nil
	}

	st := &Node{Type: TokenStatement, Line: node.Line, Scope: p.scope, Right: node}

	if node.Hoist && *top != nil {
		bottom := *top
		for bottom.Left != nil {
			bottom = bottom.Left
		}
		bottom.Left = st
		return nil
	}

	st.Left = *top
	*top = st
	return nil
}

// statement dispatches on the first token. A nil node with nil error is an
// empty statement.
func (p *Parser) statement() (*Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenSemicolon:
		_, err = p.next()
		return nil, err
	case TokenOpenBrace:
		return p.blockStatement()
	case TokenFunction:
		return p.functionDeclaration()
	case TokenVar:
		return p.varStatement()
	case TokenIf:
		return p.ifStatement()
	case TokenSwitch:
		return p.switchStatement()
	case TokenWhile:
		return p.whileStatement()
	case TokenDo:
		return p.doWhileStatement()
	case TokenFor:
		return p.forStatement()
	case TokenTry:
		return p.tryStatement()
	case TokenReturn:
		return p.returnStatement()
	case TokenThrow:
		return p.throwStatement()
	case TokenBreak, TokenContinue:
		return p.breakContinueStatement(tok.Type)
	case TokenImport:
		return p.importStatement()
	case TokenExport:
		return p.exportStatement()
	case TokenName:
		if labelled, err := p.labelledStatement(); labelled != nil || err != nil {
			return labelled, err
		}
	}

	return p.expressionStatement()
}

// semicolon applies automatic semicolon insertion: an explicit ';' is
// consumed; otherwise the statement must be followed by '}', end of input,
// or a line terminator.
func (p *Parser) semicolon() error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	switch tok.Type {
	case TokenSemicolon:
		_, err = p.next()
		return err
	case TokenCloseBrace, TokenEnd:
		return nil
	}
	if p.lex.NewlineBeforePeek() {
		return nil
	}
	return p.syntaxError("Unexpected token %q", tok.Text)
}

func (p *Parser) expressionStatement() (*Node, error) {
	node, err := p.expression()
	if err != nil {
		return nil, err
	}
	return node, p.semicolon()
}

func (p *Parser) blockStatement() (*Node, error) {
	open, err := p.expect(TokenOpenBrace)
	if err != nil {
		return nil, err
	}

	if _, err := p.scopeBegin(ScopeBlock); err != nil {
		return nil, err
	}

	var top *Node
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenCloseBrace {
			break
		}
		if tok.Type == TokenEnd {
			return nil, p.syntaxError("Unexpected end of input")
		}
		if err := p.statementChain(&top); err != nil {
			return nil, err
		}
	}
	if _, err := p.next(); err != nil {
		return nil, err
	}

	block := &Node{Type: TokenBlock, Line: open.Line, Scope: p.scope, Left: top}
	p.scopeEnd()
	return block, nil
}

// varStatement parses `var name [= expr][, ...]`. Declarations always land
// in the nearest function or global scope.
func (p *Parser) varStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}

	var first, last *Node
	for {
		name, err := p.expect(TokenName)
		if err != nil {
			return nil, err
		}
		v := p.scope.functionScope().AddVariable(name.UniqueID, name.Text, VarVar)
		v.State = StateDeclared

		ref := p.reference(name)
		decl := &Node{Type: TokenVar, Line: name.Line, Scope: p.scope, Left: ref}

		if ok, err := p.accept(TokenAssignment); err != nil {
			return nil, err
		} else if ok {
			init, err := p.assignmentExpression()
			if err != nil {
				return nil, err
			}
			decl.Right = init
		}

		arg := &Node{Type: TokenArgument, Line: decl.Line, Left: decl}
		if first == nil {
			first = arg
		} else {
			last.Right = arg
		}
		last = arg

		if ok, err := p.accept(TokenComma); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}

	node := &Node{Type: TokenVar, Line: kw.Line, Scope: p.scope, Left: first}
	return node, p.semicolon()
}

func (p *Parser) ifStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}
	cond, err := p.parenthesizedExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.statement()
	if err != nil {
		return nil, err
	}

	node := &Node{Type: TokenIf, Line: kw.Line, Scope: p.scope, Left: cond}

	if ok, err := p.accept(TokenElse); err != nil {
		return nil, err
	} else if ok {
		alt, err := p.statement()
		if err != nil {
			return nil, err
		}
		node.Right = &Node{Type: TokenElse, Line: kw.Line, Left: then, Right: alt}
	} else {
		node.Right = &Node{Type: TokenElse, Line: kw.Line, Left: then}
	}
	return node, nil
}

func (p *Parser) parenthesizedExpression() (*Node, error) {
	if _, err := p.expect(TokenOpenParenthesis); err != nil {
		return nil, err
	}
	node, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenCloseParenthesis); err != nil {
		return nil, err
	}
	return node, nil
}

// switchStatement parses a case list with at most one default clause.
func (p *Parser) switchStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}
	disc, err := p.parenthesizedExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenOpenBrace); err != nil {
		return nil, err
	}

	if _, err := p.scopeBegin(ScopeBlock); err != nil {
		return nil, err
	}
	p.inSwitch++

	var first, last *Node
	seenDefault := false

	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}

		var clause *Node
		switch tok.Type {
		case TokenCloseBrace:
			p.inSwitch--
			node := &Node{Type: TokenSwitch, Line: kw.Line, Scope: p.scope, Left: disc, Right: first}
			p.scopeEnd()
			return node, nil
		case TokenCase:
			test, err := p.expression()
			if err != nil {
				return nil, err
			}
			clause = &Node{Type: TokenCase, Line: tok.Line, Left: test}
		case TokenDefault:
			if seenDefault {
				return nil, p.syntaxError("More than one default clause in switch statement")
			}
			seenDefault = true
			clause = &Node{Type: TokenDefault, Line: tok.Line}
		default:
			return nil, p.syntaxError("Unexpected token %q", tok.Text)
		}

		if _, err := p.expect(TokenColon); err != nil {
			return nil, err
		}

		var body *Node
		for {
			tok, err := p.peek()
			if err != nil {
				return nil, err
			}
			if tok.Type == TokenCase || tok.Type == TokenDefault || tok.Type == TokenCloseBrace {
				break
			}
			if err := p.statementChain(&body); err != nil {
				return nil, err
			}
		}
		clause.Right = body

		arg := &Node{Type: TokenArgument, Line: clause.Line, Left: clause}
		if first == nil {
			first = arg
		} else {
			last.Right = arg
		}
		last = arg
	}
}

func (p *Parser) whileStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}
	cond, err := p.parenthesizedExpression()
	if err != nil {
		return nil, err
	}

	p.inIteration++
	body, err := p.statement()
	p.inIteration--
	if err != nil {
		return nil, err
	}
	return &Node{Type: TokenWhile, Line: kw.Line, Scope: p.scope, Left: body, Right: cond}, nil
}

func (p *Parser) doWhileStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}

	p.inIteration++
	body, err := p.statement()
	p.inIteration--
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenWhile); err != nil {
		return nil, err
	}
	cond, err := p.parenthesizedExpression()
	if err != nil {
		return nil, err
	}
	return &Node{Type: TokenDo, Line: kw.Line, Scope: p.scope, Left: body, Right: cond}, p.semicolon()
}

// forStatement parses the three for forms. A `var` binding of a for-in is
// hoisted to the enclosing function or global scope, not the for body.
func (p *Parser) forStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenOpenParenthesis); err != nil {
		return nil, err
	}

	if _, err := p.scopeBegin(ScopeBlock); err != nil {
		return nil, err
	}
	defer p.scopeEnd()

	var init *Node
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenSemicolon:
		// no init

	case TokenVar:
		if _, err := p.next(); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenName)
		if err != nil {
			return nil, err
		}

		v := p.scope.functionScope().AddVariable(name.UniqueID, name.Text, VarVar)
		v.State = StateDeclared
		ref := p.reference(name)

		if ok, err := p.accept(TokenIn); err != nil {
			return nil, err
		} else if ok {
			decl := &Node{Type: TokenVar, Line: name.Line, Scope: p.scope, Left: ref}
			return p.forInTail(kw, decl)
		}

		decl := &Node{Type: TokenVar, Line: name.Line, Scope: p.scope, Left: ref}
		if ok, err := p.accept(TokenAssignment); err != nil {
			return nil, err
		} else if ok {
			decl.Right, err = p.assignmentExpression()
			if err != nil {
				return nil, err
			}
		}

		first := &Node{Type: TokenArgument, Line: decl.Line, Left: decl}
		last := first
		for {
			if ok, err := p.accept(TokenComma); err != nil {
				return nil, err
			} else if !ok {
				break
			}
			name, err := p.expect(TokenName)
			if err != nil {
				return nil, err
			}
			v := p.scope.functionScope().AddVariable(name.UniqueID, name.Text, VarVar)
			v.State = StateDeclared
			more := &Node{Type: TokenVar, Line: name.Line, Scope: p.scope, Left: p.reference(name)}
			if ok, err := p.accept(TokenAssignment); err != nil {
				return nil, err
			} else if ok {
				more.Right, err = p.assignmentExpression()
				if err != nil {
					return nil, err
				}
			}
			arg := &Node{Type: TokenArgument, Line: more.Line, Left: more}
			last.Right = arg
			last = arg
		}
		init = &Node{Type: TokenVar, Line: kw.Line, Scope: p.scope, Left: first}

	default:
		p.noIn = true
		init, err = p.expression()
		p.noIn = false
		if err != nil {
			return nil, err
		}
		if ok, err := p.accept(TokenIn); err != nil {
			return nil, err
		} else if ok {
			return p.forInTail(kw, init)
		}
	}

	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}

	var cond *Node
	if tok, err := p.peek(); err != nil {
		return nil, err
	} else if tok.Type != TokenSemicolon {
		cond, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}

	var step *Node
	if tok, err := p.peek(); err != nil {
		return nil, err
	} else if tok.Type != TokenCloseParenthesis {
		step, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenCloseParenthesis); err != nil {
		return nil, err
	}

	p.inIteration++
	body, err := p.statement()
	p.inIteration--
	if err != nil {
		return nil, err
	}

	// for(init; cond; step) body => FOR(init, FOR(cond, FOR(step, body)))
	inner := &Node{Type: TokenFor, Line: kw.Line, Left: step, Right: body}
	mid := &Node{Type: TokenFor, Line: kw.Line, Left: cond, Right: inner}
	return &Node{Type: TokenFor, Line: kw.Line, Scope: p.scope, Left: init, Right: mid}, nil
}

func (p *Parser) forInTail(kw Token, left *Node) (*Node, error) {
	obj, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenCloseParenthesis); err != nil {
		return nil, err
	}

	p.inIteration++
	body, err := p.statement()
	p.inIteration--
	if err != nil {
		return nil, err
	}

	head := &Node{Type: TokenIn, Line: kw.Line, Left: left, Right: obj}
	return &Node{Type: TokenForIn, Line: kw.Line, Scope: p.scope, Left: head, Right: body}, nil
}

// tryStatement requires at least one of catch and finally.
func (p *Parser) tryStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}

	if tok, err := p.peek(); err != nil {
		return nil, err
	} else if tok.Type != TokenOpenBrace {
		return nil, p.syntaxError("Unexpected token %q, expected %q", tok.Text, "{")
	}
	block, err := p.blockStatement()
	if err != nil {
		return nil, err
	}

	node := &Node{Type: TokenTry, Line: kw.Line, Scope: p.scope, Left: block}

	var catchNode *Node
	if ok, err := p.accept(TokenCatch); err != nil {
		return nil, err
	} else if ok {
		if _, err := p.expect(TokenOpenParenthesis); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenName)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenCloseParenthesis); err != nil {
			return nil, err
		}

		if _, err := p.scopeBegin(ScopeBlock); err != nil {
			return nil, err
		}
		v := p.scope.AddVariable(name.UniqueID, name.Text, VarCatch)
		v.State = StateDeclared
		binding := p.reference(name)

		if tok, err := p.peek(); err != nil {
			return nil, err
		} else if tok.Type != TokenOpenBrace {
			return nil, p.syntaxError("Unexpected token %q, expected %q", tok.Text, "{")
		}
		body, err := p.blockStatement()
		if err != nil {
			return nil, err
		}
		catchNode = &Node{Type: TokenCatch, Line: name.Line, Scope: p.scope, Left: binding, Right: body}
		p.scopeEnd()
	}

	var finallyNode *Node
	if ok, err := p.accept(TokenFinally); err != nil {
		return nil, err
	} else if ok {
		if tok, err := p.peek(); err != nil {
			return nil, err
		} else if tok.Type != TokenOpenBrace {
			return nil, p.syntaxError("Unexpected token %q, expected %q", tok.Text, "{")
		}
		body, err := p.blockStatement()
		if err != nil {
			return nil, err
		}
		finallyNode = &Node{Type: TokenFinally, Line: kw.Line, Right: body}
	}

	if catchNode == nil && finallyNode == nil {
		return nil, p.syntaxError("Missing catch or finally after try")
	}

	if finallyNode != nil {
		finallyNode.Left = catchNode
		node.Right = finallyNode
	} else {
		node.Right = catchNode
	}
	return node, nil
}

func (p *Parser) returnStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}
	if p.inFunction == 0 {
		return nil, p.syntaxError("Illegal return statement")
	}

	node := &Node{Type: TokenReturn, Line: kw.Line, Scope: p.scope}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenSemicolon && tok.Type != TokenCloseBrace && tok.Type != TokenEnd &&
		!p.lex.NewlineBeforePeek() {
		node.Right, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	return node, p.semicolon()
}

func (p *Parser) throwStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}

	if _, err := p.peek(); err != nil {
		return nil, err
	}
	if p.lex.NewlineBeforePeek() {
		return nil, p.syntaxError("Illegal newline after throw")
	}

	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &Node{Type: TokenThrow, Line: kw.Line, Scope: p.scope, Right: value}, p.semicolon()
}

func (p *Parser) breakContinueStatement(t TokenType) (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}

	node := &Node{Type: t, Line: kw.Line, Scope: p.scope}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenName && !p.lex.NewlineBeforePeek() {
		if _, ok := p.scope.FindLabel(tok.UniqueID); !ok {
			return nil, p.syntaxError("Undefined label %q", tok.Text)
		}
		node.Name = tok.Text
		if _, err := p.next(); err != nil {
			return nil, err
		}
	} else if p.inIteration == 0 && (t == TokenContinue || p.inSwitch == 0) {
		if t == TokenContinue {
			return nil, p.syntaxError("Illegal continue statement")
		}
		return nil, p.syntaxError("Illegal break statement")
	}

	return node, p.semicolon()
}

// labelledStatement handles `name:`. It returns (nil, nil) when the next
// tokens are not a label, leaving the stream untouched.
func (p *Parser) labelledStatement() (*Node, error) {
	mark := p.lex.save()

	name, err := p.next()
	if err != nil {
		return nil, err
	}
	colon, err := p.peek()
	if err != nil {
		p.lex.restore(mark)
		return nil, nil
	}
	if colon.Type != TokenColon {
		p.lex.restore(mark)
		return nil, nil
	}
	if _, err := p.next(); err != nil {
		return nil, err
	}

	if !p.scope.AddLabel(name.UniqueID, name.Text) {
		return nil, p.syntaxError("Label %q has already been declared", name.Text)
	}

	body, err := p.statement()
	p.scope.RemoveLabel(name.UniqueID)
	if err != nil {
		return nil, err
	}

	return &Node{Type: TokenLabel, Line: name.Line, Scope: p.scope, Name: name.Text, Right: body}, nil
}

// importStatement parses `import name from "module"`, module scope only.
// The binding receives the named module's default export.
func (p *Parser) importStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}
	if !p.module || p.scope != p.global {
		return nil, p.syntaxError("Cannot use import statement outside a module")
	}

	name, err := p.expect(TokenName)
	if err != nil {
		return nil, err
	}
	from, err := p.expect(TokenName)
	if err != nil || from.Text != "from" {
		return nil, p.syntaxError("Unexpected token, expected \"from\"")
	}
	module, err := p.expect(TokenString)
	if err != nil {
		return nil, err
	}

	v := p.scope.AddVariable(name.UniqueID, name.Text, VarVar)
	v.State = StateDeclared

	node := &Node{
		Type:  TokenImport,
		Line:  kw.Line,
		Scope: p.scope,
		Hoist: true,
		Name:  module.Text,
		Left:  p.reference(name),
	}
	return node, p.semicolon()
}

// exportStatement parses `export default expr`, once per module.
func (p *Parser) exportStatement() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}
	if !p.module || p.scope != p.global {
		return nil, p.syntaxError("Unexpected token \"export\"")
	}

	if _, err := p.expect(TokenDefault); err != nil {
		return nil, err
	}
	if p.hasDefault {
		return nil, p.syntaxError("Duplicate default export")
	}
	p.hasDefault = true

	value, err := p.assignmentExpression()
	if err != nil {
		return nil, err
	}
	return &Node{Type: TokenExport, Line: kw.Line, Scope: p.scope, Right: value}, p.semicolon()
}

// reference builds a name node and records it in the current scope for
// later resolution.
func (p *Parser) reference(tok Token) *Node {
	ref := &Reference{UniqueID: tok.UniqueID, Name: tok.Text, Scope: p.scope, Index: NoIndex}
	node := &Node{Type: TokenName, Line: tok.Line, Scope: p.scope, Ref: ref}
	p.scope.AddReference(ref)
	return node
}

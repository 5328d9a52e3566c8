package syntax

// Function forms: declarations, expressions (named ones get a shim scope),
// and arrow functions with their parenthesized-parameter lookahead.

func (p *Parser) functionDeclaration() (*Node, error) {
	kw, err := p.next()
	if err != nil {
		return nil, err
	}

	name, err := p.expect(TokenName)
	if err != nil {
		return nil, err
	}

	v := p.scope.AddVariable(name.UniqueID, name.Text, VarFunction)
	v.State = StateDeclared

	node := &Node{
		Type:  TokenFunctionDeclaration,
		Line:  kw.Line,
		Scope: p.scope,
		Hoist: true,
		Name:  name.Text,
	}
	node.Lambda, err = p.functionLambda(name.Text, false)
	if err != nil {
		return nil, err
	}
	v.Value = node
	return node, nil
}

// functionExpression parses `function [name](params) {body}` in expression
// position. A name wraps the lambda in a shim scope so the name binds
// inside the body only.
func (p *Parser) functionExpression(kw Token) (*Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	if tok.Type == TokenName {
		if _, err := p.next(); err != nil {
			return nil, err
		}

		if _, err := p.scopeBegin(ScopeShim); err != nil {
			return nil, err
		}
		v := p.scope.AddVariable(tok.UniqueID, tok.Text, VarShim)
		v.State = StateDeclared

		node := &Node{Type: TokenFunctionExpression, Line: kw.Line, Scope: p.scope, Name: tok.Text}
		node.Lambda, err = p.functionLambda(tok.Text, false)
		if err != nil {
			return nil, err
		}
		v.Value = node
		p.scopeEnd()
		return node, nil
	}

	return p.functionExpressionNamed(kw.Line, "")
}

// functionExpressionNamed builds an anonymous function expression node; it
// also backs object literal methods.
func (p *Parser) functionExpressionNamed(line int, name string) (*Node, error) {
	node := &Node{Type: TokenFunctionExpression, Line: line, Scope: p.scope, Name: name}
	var err error
	node.Lambda, err = p.functionLambda(name, false)
	return node, err
}

// functionLambda parses `(params) {body}` in a fresh function scope.
func (p *Parser) functionLambda(name string, arrow bool) (*Lambda, error) {
	s, err := p.scopeBegin(ScopeFunction)
	if err != nil {
		return nil, err
	}
	s.Arrow = arrow
	p.inFunction++

	nargs, rest, err := p.parameters()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenOpenBrace); err != nil {
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

	p.inFunction--
	lambda := &Lambda{NArgs: nargs, Rest: rest, Body: top, Scope: s, Name: name}
	p.scopeEnd()
	return lambda, nil
}

// parameters parses a parenthesized parameter list. A rest parameter is
// accepted only in last position; duplicate names fail.
func (p *Parser) parameters() (int, bool, error) {
	if _, err := p.expect(TokenOpenParenthesis); err != nil {
		return 0, false, err
	}

	nargs := 0
	rest := false

	for {
		tok, err := p.peek()
		if err != nil {
			return 0, false, err
		}
		if tok.Type == TokenCloseParenthesis {
			break
		}
		if rest {
			return 0, false, p.syntaxError("Rest parameter must be last formal parameter")
		}

		if tok.Type == TokenEllipsis {
			if _, err := p.next(); err != nil {
				return 0, false, err
			}
			rest = true
			tok, err = p.peek()
			if err != nil {
				return 0, false, err
			}
			if tok.Type != TokenName {
				return 0, false, p.syntaxError("Rest parameter must be a name")
			}
		}

		name, err := p.expect(TokenName)
		if err != nil {
			return 0, false, err
		}
		if _, exists := p.scope.Variable(name.UniqueID); exists {
			return 0, false, p.syntaxError("Duplicate parameter names")
		}
		v := p.scope.AddVariable(name.UniqueID, name.Text, VarArgument)
		v.State = StateDeclared
		if !rest {
			nargs++
		}

		if ok, err := p.accept(TokenComma); err != nil {
			return 0, false, err
		} else if !ok {
			break
		}
	}

	if _, err := p.expect(TokenCloseParenthesis); err != nil {
		return 0, false, err
	}
	return nargs, rest, nil
}

// tryArrowFunction recognizes `name =>` and `(params) =>`. The arrow must
// appear on the same line as the parameter list's close; a newline before
// `=>` aborts recognition and the tokens re-parse as an ordinary
// expression. Returns (nil, nil) when the lookahead does not see an arrow.
func (p *Parser) tryArrowFunction() (*Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenName:
		mark := p.lex.save()
		name, err := p.next()
		if err != nil {
			return nil, err
		}
		after, err := p.peek()
		if err != nil || after.Type != TokenArrow || p.lex.NewlineBeforePeek() {
			p.lex.restore(mark)
			return nil, nil
		}
		return p.arrowFunction(name.Line, &name)

	case TokenOpenParenthesis:
		if !p.arrowAhead() {
			return nil, nil
		}
		return p.arrowFunction(tok.Line, nil)
	}
	return nil, nil
}

// arrowAhead skims the parenthesized group and reports whether `=>`
// follows on the same line. The lexer is restored in every case.
func (p *Parser) arrowAhead() bool {
	mark := p.lex.save()
	defer p.lex.restore(mark)

	if _, err := p.next(); err != nil {
		return false
	}
	depth := 1
	for depth > 0 {
		tok, err := p.next()
		if err != nil {
			return false
		}
		switch tok.Type {
		case TokenOpenParenthesis:
			depth++
		case TokenCloseParenthesis:
			depth--
		case TokenEnd:
			return false
		}
	}

	after, err := p.peek()
	return err == nil && after.Type == TokenArrow && !p.lex.NewlineBeforePeek()
}

// arrowFunction parses the parameter list (already consumed when single is
// non-nil), the arrow, and the body.
func (p *Parser) arrowFunction(line int, single *Token) (*Node, error) {
	s, err := p.scopeBegin(ScopeFunction)
	if err != nil {
		return nil, err
	}
	s.Arrow = true
	p.inFunction++

	nargs := 0
	rest := false
	if single != nil {
		v := p.scope.AddVariable(single.UniqueID, single.Text, VarArgument)
		v.State = StateDeclared
		nargs = 1
	} else {
		nargs, rest, err = p.parameters()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(TokenArrow); err != nil {
		return nil, err
	}

	var body *Node
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenOpenBrace {
		if _, err := p.next(); err != nil {
			return nil, err
		}
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
			if err := p.statementChain(&body); err != nil {
				return nil, err
			}
		}
		if _, err := p.next(); err != nil {
			return nil, err
		}
	} else {
		// Expression body: an implicit return.
		value, err := p.assignmentExpression()
		if err != nil {
			return nil, err
		}
		ret := &Node{Type: TokenReturn, Line: value.Line, Scope: p.scope, Right: value}
		body = &Node{Type: TokenStatement, Line: ret.Line, Scope: p.scope, Right: ret}
	}

	p.inFunction--
	node := &Node{Type: TokenArrowFunction, Line: line, Scope: p.scope.Parent}
	node.Lambda = &Lambda{NArgs: nargs, Rest: rest, Body: body, Scope: s}
	p.scopeEnd()
	return node, nil
}

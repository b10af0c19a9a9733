// Package parser implements the syntactic analyzer for the Panda programming language.
//
// The parser takes a stream of tokens from the lexer and constructs an Abstract
// Syntax Tree (AST) that represents the structure of the program.
// It implements a recursive descent parser with Pratt parsing (precedence climbing) for expressions.
//
// Key features:
//   - Top-down parsing of statements and expressions
//   - Precedence-based expression parsing
//   - Error reporting for syntax errors
//   - Support for all language constructs (statements, expressions, literals, etc.)
//
// The main entry point is the [New] function, which creates a new [Parser] instance,
// and the [Parser.ParseProgram] method, which parses a complete Panda program and returns
// an AST.
package parser

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/dr8co/panda/ast"
	"github.com/dr8co/panda/lexer"
	"github.com/dr8co/panda/token"
)

const (
	_ int = iota

	// Lowest represents the lowest possible precedence for parsing expressions in the syntax tree.
	Lowest

	// Assign is the precedence for assignment expressions. It binds right-associatively.
	Assign // x = 5

	// LogicOr is the precedence for the logical OR operator.
	LogicOr // ||

	// LogicAnd is the precedence for the logical AND operator.
	LogicAnd // &&

	// Equals is the precedence for the equality operators.
	Equals // == or !=

	// LessGreater is the precedence for the relational operators.
	LessGreater // >, <, >=, <=

	// BitOr is the precedence for bitwise OR.
	BitOr // |

	// BitXor is the precedence for bitwise XOR.
	BitXor // ^

	// BitAnd is the precedence for bitwise AND.
	BitAnd // &

	// Shift is the precedence for the shift operators.
	Shift // << or >>

	// RangeBound is the precedence for the range operator.
	RangeBound // 0..10

	// Sum is the precedence for the sum operators.
	Sum // + or -

	// Product is the precedence for the product operators.
	Product // *, /, %

	// Prefix is the precedence for prefix operators.
	Prefix // -x or !x

	// Call is the precedence for function calls.
	Call // myFunc(x)

	// Index is the precedence for array indexing.
	Index // array[index]

	// Member is the precedence for method access and module scope resolution.
	Member // value.method, module::member
)

// precedences maps token types to their respective precedence levels.
var precedences = map[token.Type]int{
	token.ASSIGN:   Assign,
	token.OR:       LogicOr,
	token.AND:      LogicAnd,
	token.EQ:       Equals,
	token.NOT_EQ:   Equals,
	token.LT:       LessGreater,
	token.LTE:      LessGreater,
	token.GT:       LessGreater,
	token.GTE:      LessGreater,
	token.PIPE:     BitOr,
	token.CARET:    BitXor,
	token.AMP:      BitAnd,
	token.SHL:      Shift,
	token.SHR:      Shift,
	token.RANGE:    RangeBound,
	token.PLUS:     Sum,
	token.MINUS:    Sum,
	token.SLASH:    Product,
	token.ASTERISK: Product,
	token.PERCENT:  Product,
	token.LPAREN:   Call,
	token.LBRACKET: Index,
	token.DOT:      Member,
	token.SCOPE:    Member,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser represents a Panda parser.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a new [Parser] for the token stream produced by l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []string{},
	}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.CHAR, p.parseCharLiteral)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.NULL, p.parseNullLiteral)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.IF, p.parseIfExpression)
	p.registerPrefix(token.FUNCTION, p.parseLambda)
	p.registerPrefix(token.NEW, p.parseConstructor)
	p.registerPrefix(token.LBRACKET, p.parseArrayLiteral)
	p.registerPrefix(token.LBRACE, p.parseHashLiteral)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	p.registerInfix(token.PLUS, p.parseInfixExpression)
	p.registerInfix(token.MINUS, p.parseInfixExpression)
	p.registerInfix(token.SLASH, p.parseInfixExpression)
	p.registerInfix(token.ASTERISK, p.parseInfixExpression)
	p.registerInfix(token.PERCENT, p.parseInfixExpression)
	p.registerInfix(token.CARET, p.parseInfixExpression)
	p.registerInfix(token.AMP, p.parseInfixExpression)
	p.registerInfix(token.PIPE, p.parseInfixExpression)
	p.registerInfix(token.SHL, p.parseInfixExpression)
	p.registerInfix(token.SHR, p.parseInfixExpression)
	p.registerInfix(token.EQ, p.parseInfixExpression)
	p.registerInfix(token.NOT_EQ, p.parseInfixExpression)
	p.registerInfix(token.LT, p.parseInfixExpression)
	p.registerInfix(token.LTE, p.parseInfixExpression)
	p.registerInfix(token.GT, p.parseInfixExpression)
	p.registerInfix(token.GTE, p.parseInfixExpression)
	p.registerInfix(token.AND, p.parseInfixExpression)
	p.registerInfix(token.OR, p.parseInfixExpression)
	p.registerInfix(token.ASSIGN, p.parseAssignExpression)
	p.registerInfix(token.RANGE, p.parseRangeExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACKET, p.parseIndexExpression)
	p.registerInfix(token.DOT, p.parseMethodExpression)
	p.registerInfix(token.SCOPE, p.parseScopeExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns the list of error messages collected during parsing.
func (p *Parser) Errors() []string {
	return p.errors
}

// peekError appends an error message for an unexpected peek token.
func (p *Parser) peekError(t token.Type) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead %s",
		t, p.peekToken.Type, p.peekToken.Pos)
	p.errors = append(p.errors, msg)
}

// nextToken advances the parser to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// ParseProgram parses the complete token stream and returns the program's AST.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.VAR, token.CONST:
		return p.parseDeclaration()
	case token.RETURN:
		return p.parseReturn()
	case token.DELETE:
		return p.parseDelete()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.CLASS:
		return p.parseClassDecl()
	case token.IMPORT:
		return p.parseImport()
	case token.BREAK:
		stmt := &ast.Break{Token: p.curToken}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		return stmt
	case token.CONTINUE:
		stmt := &ast.Continue{Token: p.curToken}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		return stmt
	case token.FUNCTION:
		// A named "fn name(...) {...}" is a function declaration statement;
		// a bare "fn(...) {...}" is a lambda expression.
		if p.peekTokenIs(token.IDENT) {
			return p.parseFunction()
		}
		return p.parseExpressionStatement()
	case token.SEMICOLON:
		// An empty statement, such as the ";" after a loop body.
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseDeclaration() *ast.Declaration {
	stmt := &ast.Declaration{
		Token:   p.curToken,
		Mutable: p.curToken.Type == token.VAR,
	}

	if !p.expectPeek(token.IDENT) {
		return nil
	}

	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}

	p.nextToken()
	stmt.Value = p.parseExpression(Lowest)

	if fl, ok := stmt.Value.(*ast.Lambda); ok {
		fl.Name = stmt.Name.Value
	}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseReturn() *ast.Return {
	stmt := &ast.Return{Token: p.curToken}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return stmt
	}

	p.nextToken()
	stmt.ReturnValue = p.parseExpression(Lowest)

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseDelete() *ast.Delete {
	stmt := &ast.Delete{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() *ast.ExpressionStatement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseExpression(Lowest)

	// A trailing semicolon discards the value; its absence marks the
	// expression as the implicit result of the enclosing block.
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	} else {
		stmt.Returns = true
	}
	return stmt
}

func (p *Parser) parseWhile() *ast.While {
	stmt := &ast.While{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseExpression(Lowest)

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseFor() *ast.For {
	stmt := &ast.For{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	stmt.Iterator = p.parseExpression(Lowest)

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

func (p *Parser) parseFunction() *ast.Function {
	stmt := &ast.Function{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	stmt.Parameters = p.parseFunctionParameters()

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	return stmt
}

// parseClassDecl parses "class(x, y) Name { ... }". The parenthesized
// identifiers are the constructor parameters, copied into each new
// instance's fields.
func (p *Parser) parseClassDecl() *ast.ClassDecl {
	stmt := &ast.ClassDecl{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	stmt.Initializers = p.parseFunctionParameters()

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = p.curToken.Literal

	if !p.expectPeek(token.LBRACE) {
		return nil
	}

	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		var s ast.Statement
		switch p.curToken.Type {
		case token.VAR, token.CONST:
			s = p.parseDeclaration()
		case token.FUNCTION:
			s = p.parseFunction()
		default:
			p.errors = append(p.errors,
				fmt.Sprintf("only declarations and functions are allowed in a class body, got %s %s",
					p.curToken.Type, p.curToken.Pos))
			return nil
		}
		if s != nil {
			stmt.Body = append(stmt.Body, s)
		}
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseImport() *ast.Import {
	stmt := &ast.Import{Token: p.curToken}

	if !p.expectPeek(token.STRING) {
		return nil
	}
	stmt.Path = p.curToken.Literal

	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		stmt.Alias = p.curToken.Literal
	}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	leftExp := prefix()

	for !p.peekTokenIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}
	return leftExp
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}

	value, ok := new(big.Int).SetString(p.curToken.Literal, 10)
	if !ok {
		msg := fmt.Sprintf("could not parse %q as integer %s", p.curToken.Literal, p.curToken.Pos)
		p.errors = append(p.errors, msg)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		msg := fmt.Sprintf("could not parse %q as float %s", p.curToken.Literal, p.curToken.Pos)
		p.errors = append(p.errors, msg)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseCharLiteral() ast.Expression {
	runes := []rune(p.curToken.Literal)
	if len(runes) != 1 {
		msg := fmt.Sprintf("char literal must contain exactly one character %s", p.curToken.Pos)
		p.errors = append(p.errors, msg)
		return nil
	}
	return &ast.CharLiteral{Token: p.curToken, Value: runes[0]}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Boolean{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.Prefix{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}

	p.nextToken()
	expression.Right = p.parseExpression(Prefix)
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.Infix{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	return expression
}

// parseAssignExpression parses "target = value". The target must be an
// identifier, an index expression, or a field access; everything else is a
// syntax error. Assignment binds right-associatively.
func (p *Parser) parseAssignExpression(left ast.Expression) ast.Expression {
	expression := &ast.Assign{Token: p.curToken, To: left}

	switch left.(type) {
	case *ast.Identifier, *ast.Index, *ast.Method:
	default:
		p.errors = append(p.errors,
			fmt.Sprintf("invalid assignment target %s", p.curToken.Pos))
		return nil
	}

	p.nextToken()
	expression.Value = p.parseExpression(Assign - 1)
	return expression
}

// parseRangeExpression parses "start..stop" and the optional "..step" suffix.
func (p *Parser) parseRangeExpression(left ast.Expression) ast.Expression {
	expression := &ast.Range{Token: p.curToken, Start: left}

	p.nextToken()
	expression.Stop = p.parseExpression(RangeBound)

	if p.peekTokenIs(token.RANGE) {
		p.nextToken()
		p.nextToken()
		expression.Step = p.parseExpression(RangeBound)
	}
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(Lowest)

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseIfExpression() ast.Expression {
	expression := &ast.If{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	p.nextToken()
	expression.Condition = p.parseExpression(Lowest)

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}

	expression.Consequence = p.parseBlockStatement()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()

		// "else if" chains nest as an alternative holding a single if expression.
		if p.peekTokenIs(token.IF) {
			p.nextToken()
			nested := p.parseIfExpression()
			if nested == nil {
				return nil
			}
			expression.Alternative = &ast.BlockStatement{
				Token: p.curToken,
				Statements: []ast.Statement{
					&ast.ExpressionStatement{Token: p.curToken, Expression: nested, Returns: true},
				},
			}
			return expression
		}

		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		expression.Alternative = p.parseBlockStatement()
	}
	return expression
}

func (p *Parser) parseLambda() ast.Expression {
	lit := &ast.Lambda{Token: p.curToken}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	lit.Parameters = p.parseFunctionParameters()

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	lit.Body = p.parseBlockStatement()
	return lit
}

func (p *Parser) parseConstructor() ast.Expression {
	expression := &ast.Constructor{Token: p.curToken}

	p.nextToken()
	expression.Constructable = p.parseExpression(Prefix)

	switch expression.Constructable.(type) {
	case *ast.Identifier, *ast.Call, *ast.Scope:
	default:
		p.errors = append(p.errors,
			fmt.Sprintf("cannot construct %s %s", expression.Constructable.String(), p.curToken.Pos))
		return nil
	}
	return expression
}

func (p *Parser) parseFunctionParameters() []*ast.Identifier {
	identifiers := []*ast.Identifier{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return identifiers
	}

	p.nextToken()

	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	identifiers = append(identifiers, ident)

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
		identifiers = append(identifiers, ident)
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return identifiers
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	exp := &ast.Call{Token: p.curToken, Function: function}
	exp.Arguments = p.parseExpressionList(token.RPAREN)
	return exp
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	exp := &ast.Index{Token: p.curToken, Left: left}

	p.nextToken()
	exp.Index = p.parseExpression(Lowest)

	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return exp
}

// parseMethodExpression parses "receiver.name" and "receiver.name(args)".
// A bare name is a field/property access; a parenthesized form is a call.
func (p *Parser) parseMethodExpression(left ast.Expression) ast.Expression {
	exp := &ast.Method{Token: p.curToken, Left: left}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	exp.Name = p.curToken.Literal

	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		exp.HasArgs = true
		exp.Arguments = p.parseExpressionList(token.RPAREN)
	}
	return exp
}

// parseScopeExpression parses "module::member".
func (p *Parser) parseScopeExpression(left ast.Expression) ast.Expression {
	exp := &ast.Scope{Token: p.curToken}

	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.errors = append(p.errors,
			fmt.Sprintf("expected module name before '::', got %s %s", left.String(), p.curToken.Pos))
		return nil
	}
	exp.Module = ident.Value

	p.nextToken()
	exp.Member = p.parseExpression(Member)
	return exp
}

func (p *Parser) parseExpressionList(end token.Type) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(Lowest))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(Lowest))
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	array := &ast.ArrayLiteral{Token: p.curToken}
	array.Elements = p.parseExpressionList(token.RBRACKET)
	return array
}

func (p *Parser) parseHashLiteral() ast.Expression {
	hash := &ast.HashLiteral{Token: p.curToken}

	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		key := p.parseExpression(Lowest)

		if !p.expectPeek(token.COLON) {
			return nil
		}

		p.nextToken()
		value := p.parseExpression(Lowest)

		hash.Pairs = append(hash.Pairs, ast.HashPair{Key: key, Value: value})

		if !p.peekTokenIs(token.RBRACE) && !p.expectPeek(token.COMMA) {
			return nil
		}
	}

	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return hash
}

func (p *Parser) registerPrefix(tokenType token.Type, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.Type, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken.Type == t
}

// expectPeek advances to the next token if it matches the expected type,
// recording an error otherwise.
func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekPrecedence() int {
	if p, ok := precedences[p.peekToken.Type]; ok {
		return p
	}
	return Lowest
}

func (p *Parser) curPrecedence() int {
	if p, ok := precedences[p.curToken.Type]; ok {
		return p
	}
	return Lowest
}

func (p *Parser) noPrefixParseFnError(t token.Type) {
	msg := fmt.Sprintf("no prefix parse function for %s found %s", t, p.curToken.Pos)
	p.errors = append(p.errors, msg)
}

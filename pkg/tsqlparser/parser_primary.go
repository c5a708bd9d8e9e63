package tsqlparser

import (
	"strings"

	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// parsePrimary parses a primary expression: literal, variable, column
// reference, parenthesized expression/subquery, function call, or one of
// the special forms (CASE/CAST/CONVERT/COALESCE/NULLIF/EXISTS).
func (p *Parser) parsePrimary() tsqlast.Expr {
	start := p.tok.Pos
	switch p.tok.Type {
	case tsqltoken.NUMBER:
		lit := p.tok.Literal
		p.next()
		return &tsqlast.Literal{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Kind: tsqlast.LiteralNumber, Value: lit}
	case tsqltoken.STRING:
		lit := p.tok.Literal
		p.next()
		return &tsqlast.Literal{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Kind: tsqlast.LiteralString, Value: lit}
	case tsqltoken.BINARY:
		lit := p.tok.Literal
		p.next()
		return &tsqlast.Literal{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Kind: tsqlast.LiteralBinary, Value: lit}
	case tsqltoken.NULL_KW:
		p.next()
		return &tsqlast.Literal{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Kind: tsqlast.LiteralNull, Value: "NULL"}
	case tsqltoken.VARIABLE:
		name := p.tok.Literal
		p.next()
		return &tsqlast.Variable{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Name: name}
	case tsqltoken.STAR:
		p.next()
		return &tsqlast.StarExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}}
	case tsqltoken.LPAREN:
		return p.parseParenOrSubquery(start)
	case tsqltoken.CASE:
		return p.parseCaseExpr()
	case tsqltoken.CAST, tsqltoken.TRY_CAST:
		return p.parseCastExpr()
	case tsqltoken.CONVERT, tsqltoken.TRY_CONVERT:
		return p.parseConvertExpr()
	case tsqltoken.COALESCE:
		return p.parseCoalesceExpr()
	case tsqltoken.NULLIF:
		return p.parseNullIfExpr()
	case tsqltoken.EXISTS:
		return p.parseExistsExpr()
	case tsqltoken.IDENT:
		return p.parseIdentLedExpr()
	}
	p.errorf("unexpected token %s %q in expression", p.tok.Type, p.tok.Literal)
	tok := p.tok
	p.next()
	return &tsqlast.Literal{NodeInfo: tsqlast.NodeInfo{Span: tsqltoken.Span{Start: start, End: p.tok.Pos}}, Kind: tsqlast.LiteralNull, Value: tok.Literal}
}

// parseIdentLedExpr parses an expression that begins with a bare
// identifier: a qualified column reference (a.b.c), a table-star (t.*), or
// a function call.
func (p *Parser) parseIdentLedExpr() tsqlast.Expr {
	start := p.tok.Pos
	parts := []string{p.tok.Literal}
	p.next()

	if p.at(tsqltoken.LPAREN) {
		return p.parseFuncCallTail(parts[0], start)
	}

	for p.at(tsqltoken.DOT) {
		p.next()
		if p.at(tsqltoken.STAR) {
			p.next()
			return &tsqlast.StarExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Table: strings.Join(parts, ".")}
		}
		if p.tok.Type != tsqltoken.IDENT {
			p.errorf("expected identifier after '.', found %s", p.tok.Type)
			break
		}
		parts = append(parts, p.tok.Literal)
		p.next()
	}

	col := parts[len(parts)-1]
	table := strings.Join(parts[:len(parts)-1], ".")
	return &tsqlast.ColumnRef{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Table: table, Column: col}
}

// parseFuncCallTail parses the '(' args ')' [OVER (...)] tail of a function
// call whose name has already been consumed.
func (p *Parser) parseFuncCallTail(name string, start tsqltoken.Position) tsqlast.Expr {
	fn := &tsqlast.FuncCall{Name: strings.ToUpper(name)}
	p.expect(tsqltoken.LPAREN)
	if p.accept(tsqltoken.DISTINCT) {
		fn.Distinct = true
	}
	if p.at(tsqltoken.STAR) {
		p.next()
		fn.Star = true
	} else if !p.at(tsqltoken.RPAREN) {
		fn.Args = p.parseExprList()
	}
	p.expect(tsqltoken.RPAREN)
	if p.at(tsqltoken.OVER) {
		fn.Window = p.parseWindowSpec()
	}
	fn.Span = p.span(start)
	return fn
}

// parseParenOrSubquery parses '(' expr ')' or '(' SELECT ... ')' (a scalar
// subquery in an expression position).
func (p *Parser) parseParenOrSubquery(start tsqltoken.Position) tsqlast.Expr {
	p.expect(tsqltoken.LPAREN)
	if p.at(tsqltoken.SELECT) || p.at(tsqltoken.WITH) {
		sel := p.parseSelectStmt()
		p.expect(tsqltoken.RPAREN)
		return &tsqlast.SubqueryExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Select: sel}
	}
	inner := p.parseExpr()
	p.expect(tsqltoken.RPAREN)
	return &tsqlast.ParenExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Expr: inner}
}


package tsqlparser

import (
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// parseCaseExpr parses CASE [operand] WHEN cond THEN result ... [ELSE else] END.
func (p *Parser) parseCaseExpr() tsqlast.Expr {
	start := p.tok.Pos
	p.expect(tsqltoken.CASE)
	ce := &tsqlast.CaseExpr{}
	if !p.at(tsqltoken.WHEN) {
		ce.Operand = p.parseExpr()
	}
	for p.at(tsqltoken.WHEN) {
		p.next()
		cond := p.parseExpr()
		p.expect(tsqltoken.THEN)
		result := p.parseExpr()
		ce.Whens = append(ce.Whens, tsqlast.WhenClause{Condition: cond, Result: result})
	}
	if p.accept(tsqltoken.ELSE) {
		ce.Else = p.parseExpr()
	}
	p.expect(tsqltoken.END)
	ce.Span = p.span(start)
	return ce
}

// parseCastExpr parses CAST|TRY_CAST(expr AS typeName).
func (p *Parser) parseCastExpr() tsqlast.Expr {
	start := p.tok.Pos
	try := p.tok.Type == tsqltoken.TRY_CAST
	p.next()
	p.expect(tsqltoken.LPAREN)
	expr := p.parseExpr()
	p.expect(tsqltoken.AS)
	typeName := p.parseTypeName()
	p.expect(tsqltoken.RPAREN)
	return &tsqlast.CastExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Expr: expr, TypeName: typeName, Try: try}
}

// parseConvertExpr parses CONVERT|TRY_CONVERT(type, expr [, style]).
func (p *Parser) parseConvertExpr() tsqlast.Expr {
	start := p.tok.Pos
	try := p.tok.Type == tsqltoken.TRY_CONVERT
	p.next()
	p.expect(tsqltoken.LPAREN)
	typeName := p.parseTypeName()
	p.expect(tsqltoken.COMMA)
	expr := p.parseExpr()
	var style tsqlast.Expr
	if p.accept(tsqltoken.COMMA) {
		style = p.parseExpr()
	}
	p.expect(tsqltoken.RPAREN)
	return &tsqlast.ConvertExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, TypeName: typeName, Expr: expr, Style: style, Try: try}
}

// parseCoalesceExpr parses COALESCE(expr, expr, ...).
func (p *Parser) parseCoalesceExpr() tsqlast.Expr {
	start := p.tok.Pos
	p.expect(tsqltoken.COALESCE)
	p.expect(tsqltoken.LPAREN)
	args := p.parseExprList()
	p.expect(tsqltoken.RPAREN)
	return &tsqlast.CoalesceExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Args: args}
}

// parseNullIfExpr parses NULLIF(expr1, expr2).
func (p *Parser) parseNullIfExpr() tsqlast.Expr {
	start := p.tok.Pos
	p.expect(tsqltoken.NULLIF)
	p.expect(tsqltoken.LPAREN)
	e1 := p.parseExpr()
	p.expect(tsqltoken.COMMA)
	e2 := p.parseExpr()
	p.expect(tsqltoken.RPAREN)
	return &tsqlast.NullIfExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Expr1: e1, Expr2: e2}
}

// parseExistsExpr parses [NOT] EXISTS (subquery). The leading NOT, if any,
// has already been wrapped by the caller (UnaryExpr{NOT, ...}); this parses
// the bare EXISTS form.
func (p *Parser) parseExistsExpr() tsqlast.Expr {
	start := p.tok.Pos
	p.expect(tsqltoken.EXISTS)
	p.expect(tsqltoken.LPAREN)
	sel := p.parseSelectStmt()
	p.expect(tsqltoken.RPAREN)
	return &tsqlast.ExistsExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Select: sel}
}

// parseTypeName reads a SQL type name, including an optional (n)/(p,s) size
// specifier, e.g. VARCHAR(50), DECIMAL(18,2).
func (p *Parser) parseTypeName() string {
	name := p.tok.Literal
	if p.tok.Type == tsqltoken.IDENT || isTypeKeyword(p.tok.Type) {
		p.next()
	} else {
		p.errorf("expected type name, found %s", p.tok.Type)
		p.next()
	}
	if p.at(tsqltoken.LPAREN) {
		p.next()
		name += "("
		first := true
		for !p.at(tsqltoken.RPAREN) && !p.at(tsqltoken.EOF) {
			if !first {
				name += ","
			}
			first = false
			if p.atKeywordText("MAX") {
				name += "MAX"
				p.next()
			} else {
				name += p.tok.Literal
				p.next()
			}
			if !p.accept(tsqltoken.COMMA) {
				break
			}
		}
		p.expect(tsqltoken.RPAREN)
		name += ")"
	}
	return name
}

func isTypeKeyword(t tsqltoken.Type) bool {
	switch t {
	case tsqltoken.IDENTITY:
		return false
	}
	return false
}

package tsqlparser

// Operator-precedence expression parsing, lowest to highest:
//
//  1. OR
//  2. AND
//  3. NOT
//  4. comparison / IN / BETWEEN / LIKE / IS [NOT] NULL
//  5. addition: +, -
//  6. multiplication: *, /, %
//  7. unary: -, +
//  8. primary: literals, column refs, function calls, CASE/CAST/..., parens

import (
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

func (p *Parser) parseExpr() tsqlast.Expr {
	return p.parseOrExpr()
}

func (p *Parser) parseOrExpr() tsqlast.Expr {
	start := p.tok.Pos
	left := p.parseAndExpr()
	for p.at(tsqltoken.OR) {
		p.next()
		right := p.parseAndExpr()
		left = &tsqlast.BinaryExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Left: left, Op: tsqltoken.OR, Right: right}
	}
	return left
}

func (p *Parser) parseAndExpr() tsqlast.Expr {
	start := p.tok.Pos
	left := p.parseNotExpr()
	for p.at(tsqltoken.AND) {
		p.next()
		right := p.parseNotExpr()
		left = &tsqlast.BinaryExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Left: left, Op: tsqltoken.AND, Right: right}
	}
	return left
}

func (p *Parser) parseNotExpr() tsqlast.Expr {
	start := p.tok.Pos
	if p.at(tsqltoken.NOT) {
		p.next()
		inner := p.parseNotExpr()
		return &tsqlast.UnaryExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Op: tsqltoken.NOT, Expr: inner}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() tsqlast.Expr {
	start := p.tok.Pos
	left := p.parseAddition()

	if p.at(tsqltoken.NOT) && (p.peekAt(tsqltoken.IN) || p.peekAt(tsqltoken.BETWEEN) || p.peekAt(tsqltoken.LIKE)) {
		p.next() // consume NOT
		return p.parsePostfixPredicate(left, start, true)
	}
	switch p.tok.Type {
	case tsqltoken.IN, tsqltoken.BETWEEN, tsqltoken.LIKE:
		return p.parsePostfixPredicate(left, start, false)
	case tsqltoken.IS:
		p.next()
		not := p.accept(tsqltoken.NOT)
		p.expect(tsqltoken.NULL_KW)
		return &tsqlast.IsNullExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Expr: left, Not: not}
	}

	switch p.tok.Type {
	case tsqltoken.EQ, tsqltoken.NE, tsqltoken.LT, tsqltoken.GT, tsqltoken.LE, tsqltoken.GE:
		op := p.tok.Type
		p.next()
		right := p.parseAddition()
		return &tsqlast.BinaryExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parsePostfixPredicate(left tsqlast.Expr, start tsqltoken.Position, not bool) tsqlast.Expr {
	switch p.tok.Type {
	case tsqltoken.IN:
		p.next()
		p.expect(tsqltoken.LPAREN)
		in := &tsqlast.InExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Expr: left, Not: not}
		if p.at(tsqltoken.SELECT) || p.at(tsqltoken.WITH) {
			in.Query = p.parseSelectStmt()
		} else {
			in.Values = p.parseExprList()
		}
		p.expect(tsqltoken.RPAREN)
		return in
	case tsqltoken.BETWEEN:
		p.next()
		low := p.parseAddition()
		p.expect(tsqltoken.AND)
		high := p.parseAddition()
		return &tsqlast.BetweenExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Expr: left, Not: not, Low: low, High: high}
	case tsqltoken.LIKE:
		p.next()
		pattern := p.parseAddition()
		like := &tsqlast.LikeExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Expr: left, Not: not, Pattern: pattern}
		if p.at(tsqltoken.ESCAPE) {
			p.next()
			like.Escape = p.parseAddition()
		}
		return like
	}
	return left
}

func (p *Parser) parseExprList() []tsqlast.Expr {
	var list []tsqlast.Expr
	list = append(list, p.parseExpr())
	for p.accept(tsqltoken.COMMA) {
		list = append(list, p.parseExpr())
	}
	return list
}

func (p *Parser) parseAddition() tsqlast.Expr {
	start := p.tok.Pos
	left := p.parseMultiplication()
	for p.tok.Type == tsqltoken.PLUS || p.tok.Type == tsqltoken.MINUS {
		op := p.tok.Type
		p.next()
		right := p.parseMultiplication()
		left = &tsqlast.BinaryExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplication() tsqlast.Expr {
	start := p.tok.Pos
	left := p.parseUnary()
	for p.tok.Type == tsqltoken.STAR || p.tok.Type == tsqltoken.SLASH || p.tok.Type == tsqltoken.PERCENT {
		op := p.tok.Type
		p.next()
		right := p.parseUnary()
		left = &tsqlast.BinaryExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() tsqlast.Expr {
	start := p.tok.Pos
	switch p.tok.Type {
	case tsqltoken.MINUS, tsqltoken.PLUS:
		op := p.tok.Type
		p.next()
		inner := p.parseUnary()
		return &tsqlast.UnaryExpr{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Op: op, Expr: inner}
	}
	return p.parsePrimary()
}

package tsqlparser

import (
	"strings"

	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// parseFromClause parses FROM source [JOIN ...]*.
func (p *Parser) parseFromClause() *tsqlast.FromClause {
	start := p.tok.Pos
	p.expect(tsqltoken.FROM)
	fc := &tsqlast.FromClause{Source: p.parseTableRefItem()}
	for {
		j := p.tryParseJoin()
		if j == nil {
			break
		}
		fc.Joins = append(fc.Joins, j)
	}
	fc.Span = p.span(start)
	return fc
}

// tryParseJoin consumes one JOIN (or comma-join, or APPLY) if present.
func (p *Parser) tryParseJoin() *tsqlast.Join {
	start := p.tok.Pos
	var jt tsqlast.JoinType
	switch {
	case p.at(tsqltoken.COMMA):
		p.next()
		jt = tsqlast.JoinComma
	case p.at(tsqltoken.JOIN):
		p.next()
		jt = tsqlast.JoinInner
	case p.at(tsqltoken.INNER):
		p.next()
		p.expect(tsqltoken.JOIN)
		jt = tsqlast.JoinInner
	case p.at(tsqltoken.LEFT):
		p.next()
		p.accept(tsqltoken.OUTER)
		p.expect(tsqltoken.JOIN)
		jt = tsqlast.JoinLeft
	case p.at(tsqltoken.RIGHT):
		p.next()
		p.accept(tsqltoken.OUTER)
		p.expect(tsqltoken.JOIN)
		jt = tsqlast.JoinRight
	case p.at(tsqltoken.FULL):
		p.next()
		p.accept(tsqltoken.OUTER)
		p.expect(tsqltoken.JOIN)
		jt = tsqlast.JoinFull
	case p.at(tsqltoken.CROSS):
		p.next()
		if p.accept(tsqltoken.APPLY) {
			j := &tsqlast.Join{Type: tsqlast.JoinApply, Right: p.parseTableRefItem()}
			j.Span = p.span(start)
			return j
		}
		p.expect(tsqltoken.JOIN)
		jt = tsqlast.JoinCross
	case p.at(tsqltoken.OUTER) && p.peekAt(tsqltoken.APPLY):
		p.next()
		p.next()
		j := &tsqlast.Join{Type: tsqlast.JoinApply, Right: p.parseTableRefItem()}
		j.Span = p.span(start)
		return j
	default:
		return nil
	}

	right := p.parseTableRefItem()
	j := &tsqlast.Join{Type: jt}
	j.Right = right
	if jt != tsqlast.JoinComma && jt != tsqlast.JoinCross {
		if p.accept(tsqltoken.ON) {
			j.Condition = p.parseExpr()
		} else if p.accept(tsqltoken.USING) {
			p.expect(tsqltoken.LPAREN)
			j.Using = p.parseIdentList()
			p.expect(tsqltoken.RPAREN)
		}
	}
	j.Span = p.span(start)
	return j
}

func (p *Parser) parseIdentList() []string {
	var list []string
	list = append(list, p.expect(tsqltoken.IDENT).Literal)
	for p.accept(tsqltoken.COMMA) {
		list = append(list, p.expect(tsqltoken.IDENT).Literal)
	}
	return list
}

// parseTableRefItem parses one FROM/JOIN source: a derived table, a named
// table (possibly a temp table, global temp table, or table variable), or a
// table-valued function call, followed by an optional alias.
func (p *Parser) parseTableRefItem() tsqlast.TableRef {
	start := p.tok.Pos
	if p.at(tsqltoken.LPAREN) {
		p.next()
		defer p.enterQuery()()
		sel := p.parseSelectStmt()
		p.expect(tsqltoken.RPAREN)
		alias := p.parseOptionalAlias()
		return &tsqlast.DerivedTable{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Select: sel, Alias: alias}
	}

	if p.at(tsqltoken.VARIABLE) {
		name := p.tok.Literal
		p.next()
		tn := &tsqlast.TableName{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Name: name, Kind: tsqlast.TableVariable}
		tn.Alias = p.parseOptionalAlias()
		return tn
	}

	tn := p.parseTableName()
	if p.at(tsqltoken.LPAREN) {
		// Table-valued function call, e.g. OPENQUERY(srv, 'sql') or a UDF.
		p.next()
		var args []tsqlast.Expr
		if !p.at(tsqltoken.RPAREN) {
			args = p.parseExprList()
		}
		p.expect(tsqltoken.RPAREN)
		tvf := &tsqlast.TableValuedFunc{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Name: tn.Name, Args: args}
		tvf.Alias = p.parseOptionalAlias()
		return tvf
	}
	tn.Alias = p.parseOptionalAlias()
	return tn
}

// parseOptionalAlias parses '[AS] alias' if present. T-SQL allows the alias
// to follow directly, with or without AS.
func (p *Parser) parseOptionalAlias() string {
	if p.accept(tsqltoken.AS) {
		return p.expect(tsqltoken.IDENT).Literal
	}
	if p.tok.Type == tsqltoken.IDENT && !p.atClauseKeyword() {
		lit := p.tok.Literal
		p.next()
		return lit
	}
	return ""
}

// atClauseKeyword reports whether the current IDENT-typed token is actually
// a clause-introducing soft keyword that must not be swallowed as an alias
// (none of these lex as IDENT today, kept for forward compatibility with
// soft keywords added later).
func (p *Parser) atClauseKeyword() bool { return false }

// parseTableName parses a possibly multi-part table name:
// [[[server.]database.]schema.]name, classifying it as a temp table,
// global temp table, or ordinary table from its leading '#'/'##'.
func (p *Parser) parseTableName() *tsqlast.TableName {
	start := p.tok.Pos
	parts := []string{p.expect(tsqltoken.IDENT).Literal}
	for p.at(tsqltoken.DOT) {
		p.next()
		if p.tok.Type == tsqltoken.IDENT {
			parts = append(parts, p.tok.Literal)
			p.next()
		} else {
			parts = append(parts, "")
		}
	}
	tn := &tsqlast.TableName{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}}
	switch len(parts) {
	case 1:
		tn.Name = parts[0]
	case 2:
		tn.Schema, tn.Name = parts[0], parts[1]
	case 3:
		tn.Database, tn.Schema, tn.Name = parts[0], parts[1], parts[2]
	default:
		tn.Server, tn.Database, tn.Schema, tn.Name = parts[0], parts[1], parts[2], parts[3]
	}
	switch {
	case strings.HasPrefix(tn.Name, "##"):
		tn.Kind = tsqlast.TableGlobalTemp
	case strings.HasPrefix(tn.Name, "#"):
		tn.Kind = tsqlast.TableTemp
	default:
		tn.Kind = tsqlast.TableOrdinary
	}
	return tn
}

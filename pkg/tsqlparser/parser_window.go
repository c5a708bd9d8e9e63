package tsqlparser

import (
	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// parseWindowSpec parses OVER (PARTITION BY ... ORDER BY ... [ROWS|RANGE BETWEEN ...]).
func (p *Parser) parseWindowSpec() *tsqlast.WindowSpec {
	p.expect(tsqltoken.OVER)
	p.expect(tsqltoken.LPAREN)
	ws := &tsqlast.WindowSpec{}
	if p.at(tsqltoken.PARTITION) {
		p.next()
		p.expect(tsqltoken.BY)
		ws.PartitionBy = p.parseExprList()
	}
	if p.at(tsqltoken.ORDER) {
		p.next()
		p.expect(tsqltoken.BY)
		ws.OrderBy = p.parseOrderByList()
	}
	if p.at(tsqltoken.ROWS_KW) || p.at(tsqltoken.RANGE) {
		ws.Frame = p.parseFrameSpec()
	}
	p.expect(tsqltoken.RPAREN)
	return ws
}

func (p *Parser) parseOrderByList() []tsqlast.OrderByItem {
	var items []tsqlast.OrderByItem
	for {
		e := p.parseExpr()
		desc := false
		if p.accept(tsqltoken.DESC) {
			desc = true
		} else {
			p.accept(tsqltoken.ASC)
		}
		items = append(items, tsqlast.OrderByItem{Expr: e, Desc: desc})
		if !p.accept(tsqltoken.COMMA) {
			break
		}
	}
	return items
}

// parseFrameSpec parses ROWS|RANGE BETWEEN bound AND bound, or the
// single-bound shorthand ROWS|RANGE bound (implicitly ... AND CURRENT ROW).
func (p *Parser) parseFrameSpec() *tsqlast.FrameSpec {
	fs := &tsqlast.FrameSpec{}
	if p.at(tsqltoken.RANGE) {
		fs.Type = tsqlast.FrameRange
	} else {
		fs.Type = tsqlast.FrameRows
	}
	p.next() // consume ROWS/RANGE

	if p.accept(tsqltoken.BETWEEN) {
		fs.Start = p.parseFrameBound()
		p.expect(tsqltoken.AND)
		fs.End = p.parseFrameBound()
		return fs
	}
	fs.Start = p.parseFrameBound()
	fs.End = tsqlast.FrameBound{Kind: tsqlast.BoundCurrentRow}
	return fs
}

func (p *Parser) parseFrameBound() tsqlast.FrameBound {
	switch {
	case p.at(tsqltoken.UNBOUNDED):
		p.next()
		if p.accept(tsqltoken.PRECEDING) {
			return tsqlast.FrameBound{Kind: tsqlast.BoundUnboundedPreceding}
		}
		p.expect(tsqltoken.FOLLOWING)
		return tsqlast.FrameBound{Kind: tsqlast.BoundUnboundedFollowing}
	case p.at(tsqltoken.CURRENT):
		p.next()
		p.expect(tsqltoken.ROW)
		return tsqlast.FrameBound{Kind: tsqlast.BoundCurrentRow}
	default:
		offset := p.parseAddition()
		if p.accept(tsqltoken.PRECEDING) {
			return tsqlast.FrameBound{Kind: tsqlast.BoundExprPreceding, Offset: offset}
		}
		p.expect(tsqltoken.FOLLOWING)
		return tsqlast.FrameBound{Kind: tsqlast.BoundExprFollowing, Offset: offset}
	}
}

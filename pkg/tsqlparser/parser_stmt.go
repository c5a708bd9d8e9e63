package tsqlparser

import (
	"strings"

	"github.com/lineagekit/tsql-lineage/pkg/tsqlast"
	"github.com/lineagekit/tsql-lineage/pkg/tsqltoken"
)

// parseStmt dispatches on the leading token of a statement. On a syntax
// error it synchronizes to the next statement boundary and returns nil so
// the caller's batch loop keeps making progress.
func (p *Parser) parseStmt() tsqlast.Stmt {
	errsBefore := len(p.errors)
	stmt := p.parseStmtInner()
	if len(p.errors) > errsBefore {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) parseStmtInner() tsqlast.Stmt {
	switch p.tok.Type {
	case tsqltoken.WITH:
		return p.parseSelectStmt()
	case tsqltoken.SELECT:
		return p.parseSelectOrIntoStmt()
	case tsqltoken.INSERT:
		return p.parseInsertStmt()
	case tsqltoken.UPDATE:
		return p.parseUpdateStmt()
	case tsqltoken.DELETE:
		return p.parseDeleteStmt()
	case tsqltoken.MERGE:
		return p.parseMergeStmt()
	case tsqltoken.DECLARE:
		return p.parseDeclareStmt()
	case tsqltoken.SET:
		return p.parseSetStmt()
	case tsqltoken.IF:
		return p.parseIfStmt()
	case tsqltoken.WHILE:
		return p.parseWhileStmt()
	case tsqltoken.BEGIN:
		return p.parseBlockStmt()
	case tsqltoken.EXEC, tsqltoken.EXECUTE:
		return p.parseExecuteStmt()
	case tsqltoken.PRINT:
		return p.parsePrintStmt()
	case tsqltoken.CREATE:
		return p.parseCreateStmt()
	case tsqltoken.ALTER:
		return p.parseAlterTableStmt()
	case tsqltoken.SEMI:
		return nil
	default:
		p.errorf("unexpected token %s %q at start of statement", p.tok.Type, p.tok.Literal)
		p.next()
		return nil
	}
}

// ---------- SELECT ----------

// parseSelectStmt parses [WITH ...] select_body, without handling the
// top-level SELECT...INTO form (see parseSelectOrIntoStmt).
func (p *Parser) parseSelectStmt() *tsqlast.SelectStmt {
	start := p.tok.Pos
	defer p.enterQuery()()
	stmt := &tsqlast.SelectStmt{}
	if p.at(tsqltoken.WITH) {
		stmt.With = p.parseWithClause()
	}
	stmt.Body = p.parseSelectBody(false)
	stmt.Span = p.span(start)
	return stmt
}

// parseSelectOrIntoStmt handles the top-level `SELECT ... INTO #t FROM ...`
// form, which is structurally a SelectIntoStmt rather than a SelectStmt.
func (p *Parser) parseSelectOrIntoStmt() tsqlast.Stmt {
	start := p.tok.Pos
	defer p.enterQuery()()
	body, into := p.parseSelectBodyDetectInto()
	if into != nil {
		return &tsqlast.SelectIntoStmt{
			NodeInfo: tsqlast.NodeInfo{Span: p.span(start)},
			Target:   into,
			Select:   &tsqlast.SelectStmt{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Body: body},
		}
	}
	return &tsqlast.SelectStmt{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Body: body}
}

func (p *Parser) parseWithClause() *tsqlast.WithClause {
	start := p.tok.Pos
	p.expect(tsqltoken.WITH)
	wc := &tsqlast.WithClause{}
	wc.Recursive = p.accept(tsqltoken.RECURSIVE)
	for {
		wc.CTEs = append(wc.CTEs, p.parseCTE())
		if !p.accept(tsqltoken.COMMA) {
			break
		}
	}
	wc.Span = p.span(start)
	return wc
}

func (p *Parser) parseCTE() *tsqlast.CTE {
	start := p.tok.Pos
	cte := &tsqlast.CTE{Name: p.expect(tsqltoken.IDENT).Literal}
	if p.accept(tsqltoken.LPAREN) {
		cte.Columns = p.parseIdentList()
		p.expect(tsqltoken.RPAREN)
	}
	p.expect(tsqltoken.AS)
	p.expect(tsqltoken.LPAREN)
	cte.Select = p.parseSelectStmt()
	p.expect(tsqltoken.RPAREN)
	cte.Span = p.span(start)
	return cte
}

// parseSelectBody parses select_core [(UNION|INTERSECT|EXCEPT) [ALL] select_core]*
// plus a trailing ORDER BY/OFFSET/FETCH attached to the last core parsed.
func (p *Parser) parseSelectBody(_ bool) *tsqlast.SelectBody {
	body, _ := p.parseSelectBodyDetectInto()
	return body
}

func (p *Parser) parseSelectBodyDetectInto() (*tsqlast.SelectBody, *tsqlast.TableName) {
	start := p.tok.Pos
	firstCore, into := p.parseSelectCore()
	body := &tsqlast.SelectBody{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Left: firstCore}
	last := body
	for {
		var op tsqlast.SetOpType
		switch {
		case p.at(tsqltoken.UNION):
			p.next()
			if p.accept(tsqltoken.ALL) {
				op = tsqlast.SetOpUnionAll
			} else {
				op = tsqlast.SetOpUnion
			}
		case p.at(tsqltoken.INTERSECT):
			p.next()
			op = tsqlast.SetOpIntersect
		case p.at(tsqltoken.EXCEPT):
			p.next()
			op = tsqlast.SetOpExcept
		default:
			goto done
		}
		{
			rightCore, _ := p.parseSelectCore()
			right := &tsqlast.SelectBody{Left: rightCore}
			last.Op = op
			last.Right = right
			last = right
		}
	}
done:
	p.parseTrailingOrderAndFetch(last.Left)
	body.Span = p.span(start)
	return body, into
}

// parseTrailingOrderAndFetch parses ORDER BY ... [OFFSET n ROWS [FETCH NEXT m ROWS ONLY]]
// on the final SELECT core of a (possibly UNIONed) select body.
func (p *Parser) parseTrailingOrderAndFetch(core *tsqlast.SelectCore) {
	if core == nil {
		return
	}
	if p.at(tsqltoken.ORDER) {
		p.next()
		p.expect(tsqltoken.BY)
		core.OrderBy = p.parseOrderByList()
	}
	if p.at(tsqltoken.OFFSET) {
		p.next()
		core.Offset = p.parseAddition()
		p.accept(tsqltoken.ROWS_KW)
		if p.at(tsqltoken.FETCH) {
			p.next()
			p.accept(tsqltoken.NEXT)
			fc := &tsqlast.FetchClause{}
			if !p.at(tsqltoken.ROWS_KW) {
				fc.Count = p.parseAddition()
			}
			p.accept(tsqltoken.ROWS_KW)
			p.accept(tsqltoken.ONLY)
			core.Fetch = fc
		}
	}
}

// parseSelectCore parses SELECT [DISTINCT] [TOP (n) [PERCENT] [WITH TIES]]
// select_list [INTO target] [FROM ...] [WHERE ...] [GROUP BY ...] [HAVING ...].
// It returns the detected INTO target, if any, for the caller to decide
// whether this is a plain SELECT or a SELECT...INTO.
func (p *Parser) parseSelectCore() (*tsqlast.SelectCore, *tsqlast.TableName) {
	start := p.tok.Pos
	p.expect(tsqltoken.SELECT)
	core := &tsqlast.SelectCore{}
	core.Distinct = p.accept(tsqltoken.DISTINCT)
	p.accept(tsqltoken.ALL)

	if p.at(tsqltoken.TOP) {
		core.Top = p.parseTopClause()
	}

	core.Columns = p.parseSelectList()

	var into *tsqlast.TableName
	if p.at(tsqltoken.INTO) {
		p.next()
		into = p.parseTableName()
	}

	if p.at(tsqltoken.FROM) {
		core.From = p.parseFromClause()
	}
	if p.accept(tsqltoken.WHERE) {
		core.Where = p.parseExpr()
	}
	if p.at(tsqltoken.GROUP) {
		p.next()
		p.expect(tsqltoken.BY)
		core.GroupBy = p.parseExprList()
	}
	if p.accept(tsqltoken.HAVING) {
		core.Having = p.parseExpr()
	}
	core.Span = p.span(start)
	return core, into
}

func (p *Parser) parseTopClause() *tsqlast.TopClause {
	p.expect(tsqltoken.TOP)
	tc := &tsqlast.TopClause{}
	paren := p.accept(tsqltoken.LPAREN)
	tc.Count = p.parseAddition()
	if paren {
		p.expect(tsqltoken.RPAREN)
	}
	tc.Percent = p.accept(tsqltoken.PERCENT_KW)
	if p.at(tsqltoken.WITH) {
		p.next()
		if p.atKeywordText("TIES") {
			p.next()
			tc.WithTies = true
		}
	}
	return tc
}

// parseSelectList parses the comma-separated SELECT list, including the
// T-SQL "alias = expr" and "col = expr" select-item forms.
func (p *Parser) parseSelectList() []tsqlast.SelectItem {
	var items []tsqlast.SelectItem
	for {
		items = append(items, p.parseSelectItem())
		if !p.accept(tsqltoken.COMMA) {
			break
		}
	}
	return items
}

func (p *Parser) parseSelectItem() tsqlast.SelectItem {
	if p.at(tsqltoken.STAR) {
		p.next()
		return tsqlast.SelectItem{Star: true}
	}
	// table.* lookahead: IDENT DOT STAR.
	if p.at(tsqltoken.IDENT) && p.peekAt(tsqltoken.DOT) && p.peek2.Type == tsqltoken.STAR {
		table := p.tok.Literal
		p.next()
		p.next()
		p.next()
		return tsqlast.SelectItem{TableStar: table}
	}
	// "alias = expr" form: IDENT EQ not-followed-by comparison context.
	if p.at(tsqltoken.IDENT) && p.peekAt(tsqltoken.EQ) {
		assignName := p.tok.Literal
		p.next()
		p.next() // '='
		expr := p.parseExpr()
		return tsqlast.SelectItem{Expr: expr, ColumnAssign: assignName}
	}

	expr := p.parseExpr()
	item := tsqlast.SelectItem{Expr: expr}
	if p.accept(tsqltoken.AS) {
		item.Alias = p.expect(tsqltoken.IDENT).Literal
	} else if p.tok.Type == tsqltoken.IDENT {
		item.Alias = p.tok.Literal
		p.next()
	} else if p.tok.Type == tsqltoken.STRING {
		item.Alias = p.tok.Literal
		p.next()
	}
	return item
}

// ---------- INSERT ----------

func (p *Parser) parseInsertStmt() *tsqlast.InsertStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.INSERT)
	p.accept(tsqltoken.INTO)
	ins := &tsqlast.InsertStmt{Target: p.parseTableRefItem()}
	if p.accept(tsqltoken.LPAREN) {
		ins.Columns = p.parseIdentList()
		p.expect(tsqltoken.RPAREN)
	}
	if p.at(tsqltoken.OUTPUT) {
		ins.Output, ins.OutputInto = p.parseOutputClause()
	}
	switch {
	case p.at(tsqltoken.VALUES):
		p.next()
		for {
			p.expect(tsqltoken.LPAREN)
			row := p.parseExprList()
			p.expect(tsqltoken.RPAREN)
			ins.Values = append(ins.Values, row)
			if !p.accept(tsqltoken.COMMA) {
				break
			}
		}
	case p.at(tsqltoken.SELECT) || p.at(tsqltoken.WITH):
		ins.Select = p.parseSelectStmt()
	case p.at(tsqltoken.EXEC) || p.at(tsqltoken.EXECUTE):
		ins.Exec = p.parseExecuteStmt()
	case p.at(tsqltoken.DEFAULT_KW):
		p.next()
		p.expect(tsqltoken.VALUES)
	default:
		p.errorf("expected VALUES, SELECT, or EXEC after INSERT target")
	}
	if p.at(tsqltoken.OUTPUT) && ins.Output == nil {
		ins.Output, ins.OutputInto = p.parseOutputClause()
	}
	ins.Span = p.span(start)
	return ins
}

// parseOutputClause parses OUTPUT select_list [INTO target].
func (p *Parser) parseOutputClause() ([]tsqlast.SelectItem, tsqlast.TableRef) {
	p.expect(tsqltoken.OUTPUT)
	items := p.parseSelectList()
	var into tsqlast.TableRef
	if p.accept(tsqltoken.INTO) {
		into = p.parseTableRefItem()
	}
	return items, into
}

// ---------- UPDATE / DELETE ----------

func (p *Parser) parseUpdateStmt() *tsqlast.UpdateStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.UPDATE)
	upd := &tsqlast.UpdateStmt{Target: p.parseTableRefItem()}
	p.expect(tsqltoken.SET)
	upd.Assigns = p.parseAssignList()
	if p.at(tsqltoken.OUTPUT) {
		upd.Output, _ = p.parseOutputClause()
	}
	if p.at(tsqltoken.FROM) {
		upd.From = p.parseFromClause()
	}
	if p.accept(tsqltoken.WHERE) {
		upd.Where = p.parseExpr()
	}
	upd.Span = p.span(start)
	return upd
}

func (p *Parser) parseAssignList() []tsqlast.UpdateAssign {
	var list []tsqlast.UpdateAssign
	for {
		if p.at(tsqltoken.VARIABLE) {
			name := p.tok.Literal
			p.next()
			p.expect(tsqltoken.EQ)
			list = append(list, tsqlast.UpdateAssign{Variable: name, Expr: p.parseExpr()})
		} else {
			col := p.expect(tsqltoken.IDENT).Literal
			p.expect(tsqltoken.EQ)
			list = append(list, tsqlast.UpdateAssign{Column: col, Expr: p.parseExpr()})
		}
		if !p.accept(tsqltoken.COMMA) {
			break
		}
	}
	return list
}

func (p *Parser) parseDeleteStmt() *tsqlast.DeleteStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.DELETE)
	p.accept(tsqltoken.FROM)
	del := &tsqlast.DeleteStmt{Target: p.parseTableRefItem()}
	if p.at(tsqltoken.OUTPUT) {
		del.Output, _ = p.parseOutputClause()
	}
	if p.at(tsqltoken.FROM) {
		del.From = p.parseFromClause()
	}
	if p.accept(tsqltoken.WHERE) {
		del.Where = p.parseExpr()
	}
	del.Span = p.span(start)
	return del
}

// ---------- MERGE ----------

func (p *Parser) parseMergeStmt() *tsqlast.MergeStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.MERGE)
	p.accept(tsqltoken.INTO)
	m := &tsqlast.MergeStmt{Target: p.parseTableRefItem()}
	p.expect(tsqltoken.USING)
	m.Source = p.parseTableRefItem()
	p.expect(tsqltoken.ON)
	m.On = p.parseExpr()

	for p.at(tsqltoken.WHEN) {
		m.Clauses = append(m.Clauses, p.parseMergeClause())
	}
	if p.at(tsqltoken.OUTPUT) {
		m.Output, _ = p.parseOutputClause()
	}
	m.Span = p.span(start)
	return m
}

func (p *Parser) parseMergeClause() tsqlast.MergeClause {
	p.expect(tsqltoken.WHEN)
	mc := tsqlast.MergeClause{Matched: true}
	if p.accept(tsqltoken.NOT) {
		mc.Matched = false
	}
	p.expect(tsqltoken.MATCHED)
	if !mc.Matched && p.at(tsqltoken.BY) {
		p.next()
		if p.at(tsqltoken.TARGET) {
			p.next()
		} else if p.atKeywordText("SOURCE") {
			mc.BySource = true
			p.next()
		}
	}
	if p.accept(tsqltoken.AND) {
		mc.ExtraCond = p.parseExpr()
	}
	p.expect(tsqltoken.THEN)
	switch {
	case p.at(tsqltoken.UPDATE):
		p.next()
		p.expect(tsqltoken.SET)
		mc.Action = tsqlast.MergeUpdate
		mc.Assigns = p.parseAssignList()
	case p.at(tsqltoken.DELETE):
		p.next()
		mc.Action = tsqlast.MergeDelete
	case p.at(tsqltoken.INSERT):
		p.next()
		mc.Action = tsqlast.MergeInsert
		if p.accept(tsqltoken.LPAREN) {
			mc.Columns = p.parseIdentList()
			p.expect(tsqltoken.RPAREN)
		}
		if p.at(tsqltoken.DEFAULT_KW) {
			p.next()
			p.expect(tsqltoken.VALUES)
		} else {
			p.expect(tsqltoken.VALUES)
			p.expect(tsqltoken.LPAREN)
			mc.Values = p.parseExprList()
			p.expect(tsqltoken.RPAREN)
		}
	default:
		p.errorf("expected UPDATE, DELETE, or INSERT in MERGE clause")
	}
	return mc
}

// ---------- DECLARE / SET ----------

func (p *Parser) parseDeclareStmt() *tsqlast.DeclareStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.DECLARE)
	ds := &tsqlast.DeclareStmt{}
	for {
		ds.Variables = append(ds.Variables, p.parseDeclareVariable())
		if !p.accept(tsqltoken.COMMA) {
			break
		}
	}
	ds.Span = p.span(start)
	return ds
}

func (p *Parser) parseDeclareVariable() tsqlast.DeclareVariable {
	name := p.expect(tsqltoken.VARIABLE).Literal
	dv := tsqlast.DeclareVariable{Name: name}
	if p.at(tsqltoken.TABLE) {
		p.next()
		p.expect(tsqltoken.LPAREN)
		dv.TableColumns = p.parseColumnDefNames()
		p.expect(tsqltoken.RPAREN)
		return dv
	}
	dv.TypeName = p.parseTypeName()
	if p.accept(tsqltoken.EQ) {
		dv.Default = p.parseExpr()
	}
	return dv
}

// parseColumnDefNames parses a DECLARE @t TABLE (...) column list, keeping
// only the column names (types aren't load-bearing for lineage since the
// table variable's columns are known by name alone).
func (p *Parser) parseColumnDefNames() []string {
	var names []string
	depth := 0
	for !(depth == 0 && p.at(tsqltoken.RPAREN)) && !p.at(tsqltoken.EOF) {
		if p.at(tsqltoken.LPAREN) {
			depth++
		}
		if p.at(tsqltoken.RPAREN) {
			depth--
		}
		if depth == 0 && p.tok.Type == tsqltoken.IDENT && len(names) == 0 {
			names = append(names, p.tok.Literal)
		} else if depth == 0 && p.at(tsqltoken.COMMA) {
			p.next()
			if p.tok.Type == tsqltoken.IDENT {
				names = append(names, p.tok.Literal)
			}
			continue
		}
		p.next()
	}
	return names
}

func (p *Parser) parseSetStmt() tsqlast.Stmt {
	start := p.tok.Pos
	p.expect(tsqltoken.SET)
	if !p.at(tsqltoken.VARIABLE) {
		// SET options (e.g. SET NOCOUNT ON) carry no lineage; skip to statement end.
		for !p.at(tsqltoken.SEMI) && !p.at(tsqltoken.EOF) && !p.at(tsqltoken.GO) && !p.startsStmt() {
			p.next()
		}
		return nil
	}
	name := p.tok.Literal
	p.next()
	op := "="
	if p.at(tsqltoken.PLUSEQ) {
		op = "+="
		p.next()
	} else {
		p.expect(tsqltoken.EQ)
	}
	ss := &tsqlast.SetStmt{Variable: name, Op: op, Expr: p.parseExpr()}
	ss.Span = p.span(start)
	return ss
}

// startsStmt reports whether the current token can begin a new statement,
// used by parseSetStmt's skip-unrecognized-option loop to avoid over-consuming.
func (p *Parser) startsStmt() bool {
	switch p.tok.Type {
	case tsqltoken.SELECT, tsqltoken.INSERT, tsqltoken.UPDATE, tsqltoken.DELETE,
		tsqltoken.MERGE, tsqltoken.WITH, tsqltoken.DECLARE, tsqltoken.IF,
		tsqltoken.WHILE, tsqltoken.BEGIN, tsqltoken.EXEC, tsqltoken.EXECUTE,
		tsqltoken.CREATE, tsqltoken.ALTER, tsqltoken.PRINT, tsqltoken.END:
		return true
	}
	return false
}

// ---------- control flow ----------

func (p *Parser) parseIfStmt() *tsqlast.IfStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.IF)
	cond := p.parseExpr()
	then := p.parseStmt()
	ifs := &tsqlast.IfStmt{Condition: cond, Then: then}
	if p.accept(tsqltoken.ELSE) {
		ifs.Else = p.parseStmt()
	}
	ifs.Span = p.span(start)
	return ifs
}

func (p *Parser) parseWhileStmt() *tsqlast.WhileStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.WHILE)
	cond := p.parseExpr()
	body := p.parseStmt()
	return &tsqlast.WhileStmt{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Condition: cond, Body: body}
}

func (p *Parser) parseBlockStmt() *tsqlast.BlockStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.BEGIN)
	blk := &tsqlast.BlockStmt{}
	for !p.at(tsqltoken.END) && !p.at(tsqltoken.EOF) && !p.at(tsqltoken.GO) {
		s := p.parseStmt()
		if s != nil {
			blk.Statements = append(blk.Statements, s)
		}
		p.accept(tsqltoken.SEMI)
	}
	p.expect(tsqltoken.END)
	blk.Span = p.span(start)
	return blk
}

func (p *Parser) parsePrintStmt() *tsqlast.PrintStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.PRINT)
	return &tsqlast.PrintStmt{NodeInfo: tsqlast.NodeInfo{Span: p.span(start)}, Expr: p.parseExpr()}
}

// ---------- EXEC ----------

func (p *Parser) parseExecuteStmt() *tsqlast.ExecuteStmt {
	start := p.tok.Pos
	if !p.accept(tsqltoken.EXEC) {
		p.expect(tsqltoken.EXECUTE)
	}
	es := &tsqlast.ExecuteStmt{}
	// Optional "@retval =" result-variable assignment; the variable itself
	// doesn't carry parameter lineage so only the procedure name is kept.
	if p.at(tsqltoken.VARIABLE) && p.peekAt(tsqltoken.EQ) {
		p.next()
		p.next()
	}
	es.Procedure = p.parseProcName()
	if !p.atStmtEnd() {
		for {
			es.Args = append(es.Args, p.parseExecuteArg())
			if !p.accept(tsqltoken.COMMA) {
				break
			}
		}
	}
	es.Span = p.span(start)
	return es
}

func (p *Parser) parseProcName() string {
	parts := []string{p.expect(tsqltoken.IDENT).Literal}
	for p.at(tsqltoken.DOT) {
		p.next()
		parts = append(parts, p.expect(tsqltoken.IDENT).Literal)
	}
	return strings.Join(parts, ".")
}

func (p *Parser) parseExecuteArg() tsqlast.ExecuteArg {
	arg := tsqlast.ExecuteArg{}
	if p.at(tsqltoken.VARIABLE) && p.peekAt(tsqltoken.EQ) {
		arg.Name = p.tok.Literal
		p.next()
		p.next()
	}
	arg.Expr = p.parseExpr()
	if p.atKeywordText("OUT") || p.at(tsqltoken.OUTPUT) {
		arg.Output = true
		p.next()
	}
	return arg
}

func (p *Parser) atStmtEnd() bool {
	return p.at(tsqltoken.SEMI) || p.at(tsqltoken.EOF) || p.at(tsqltoken.GO) || p.at(tsqltoken.END)
}

// ---------- DDL ----------

func (p *Parser) parseCreateStmt() tsqlast.Stmt {
	p.expect(tsqltoken.CREATE)
	if p.accept(tsqltoken.OR) { // "CREATE OR ALTER ..."
		p.accept(tsqltoken.ALTER)
	}
	switch {
	case p.at(tsqltoken.TABLE):
		return p.parseCreateTableStmt()
	case p.at(tsqltoken.PROCEDURE) || p.at(tsqltoken.PROC):
		return p.parseCreateProcedureStmt()
	case p.at(tsqltoken.VIEW):
		// Views aren't named in spec.md's handler list; parse and discard the
		// body's SELECT for its own internal lineage isn't tracked (no target).
		p.next()
		p.parseProcName()
		p.accept(tsqltoken.AS)
		if p.at(tsqltoken.SELECT) || p.at(tsqltoken.WITH) {
			p.parseSelectStmt()
		}
		return nil
	default:
		p.errorf("unsupported CREATE statement")
		return nil
	}
}

func (p *Parser) parseCreateTableStmt() *tsqlast.CreateTableStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.TABLE)
	ct := &tsqlast.CreateTableStmt{Table: p.parseTableName()}
	p.expect(tsqltoken.LPAREN)
	for {
		if p.at(tsqltoken.CONSTRAINT) ||
			p.at(tsqltoken.PRIMARY) || p.at(tsqltoken.FOREIGN) || p.at(tsqltoken.UNIQUE) {
			p.parseTableConstraint(ct)
		} else {
			ct.Columns = append(ct.Columns, p.parseColumnDef())
		}
		if !p.accept(tsqltoken.COMMA) {
			break
		}
	}
	p.expect(tsqltoken.RPAREN)
	ct.Span = p.span(start)
	return ct
}

func (p *Parser) parseColumnDef() tsqlast.ColumnDef {
	cd := tsqlast.ColumnDef{Name: p.expect(tsqltoken.IDENT).Literal}
	if p.at(tsqltoken.AS) {
		p.next()
		cd.Computed = p.parseExpr()
		if p.at(tsqltoken.PERSISTED) {
			p.next()
			cd.Persisted = true
		}
		return cd
	}
	cd.TypeName = p.parseTypeName()
	for {
		switch {
		case p.at(tsqltoken.IDENTITY):
			p.next()
			cd.Identity = true
			if p.accept(tsqltoken.LPAREN) {
				for !p.at(tsqltoken.RPAREN) && !p.at(tsqltoken.EOF) {
					p.next()
				}
				p.expect(tsqltoken.RPAREN)
			}
		case p.at(tsqltoken.NOT):
			p.next()
			p.expect(tsqltoken.NULL_KW)
			f := false
			cd.Nullable = &f
		case p.at(tsqltoken.NULL_KW):
			p.next()
			t := true
			cd.Nullable = &t
		case p.at(tsqltoken.DEFAULT_KW):
			p.next()
			cd.Default = p.parseAddition()
		case p.at(tsqltoken.PRIMARY):
			p.next()
			p.expect(tsqltoken.KEY)
			cd.PrimaryKey = true
		case p.at(tsqltoken.UNIQUE):
			p.next()
			cd.Unique = true
		default:
			return cd
		}
	}
}

func (p *Parser) parseTableConstraint(ct *tsqlast.CreateTableStmt) {
	if p.accept(tsqltoken.CONSTRAINT) {
		p.expect(tsqltoken.IDENT)
	}
	switch {
	case p.at(tsqltoken.PRIMARY):
		p.next()
		p.expect(tsqltoken.KEY)
		p.expect(tsqltoken.LPAREN)
		cols := p.parseIdentList()
		p.expect(tsqltoken.RPAREN)
		for _, c := range cols {
			for i := range ct.Columns {
				if strings.EqualFold(ct.Columns[i].Name, c) {
					ct.Columns[i].PrimaryKey = true
				}
			}
		}
	case p.at(tsqltoken.UNIQUE):
		p.next()
		p.expect(tsqltoken.LPAREN)
		cols := p.parseIdentList()
		p.expect(tsqltoken.RPAREN)
		for _, c := range cols {
			for i := range ct.Columns {
				if strings.EqualFold(ct.Columns[i].Name, c) {
					ct.Columns[i].Unique = true
				}
			}
		}
	case p.at(tsqltoken.FOREIGN):
		fk := p.parseForeignKeyDef()
		ct.ForeignKeys = append(ct.ForeignKeys, fk)
	}
}

func (p *Parser) parseForeignKeyDef() tsqlast.ForeignKeyDef {
	p.expect(tsqltoken.FOREIGN)
	p.expect(tsqltoken.KEY)
	p.expect(tsqltoken.LPAREN)
	fk := tsqlast.ForeignKeyDef{Columns: p.parseIdentList()}
	p.expect(tsqltoken.RPAREN)
	p.expect(tsqltoken.REFERENCES)
	fk.RefTable = p.parseTableName()
	if p.accept(tsqltoken.LPAREN) {
		fk.RefColumns = p.parseIdentList()
		p.expect(tsqltoken.RPAREN)
	}
	return fk
}

func (p *Parser) parseAlterTableStmt() *tsqlast.AlterTableStmt {
	start := p.tok.Pos
	p.expect(tsqltoken.ALTER)
	p.expect(tsqltoken.TABLE)
	at := &tsqlast.AlterTableStmt{Table: p.parseTableName()}
	switch {
	case p.at(tsqltoken.ADD):
		p.next()
		if p.at(tsqltoken.CONSTRAINT) || p.at(tsqltoken.FOREIGN) || p.at(tsqltoken.PRIMARY) {
			at.Action = tsqlast.AlterAddForeignKey
			if p.accept(tsqltoken.CONSTRAINT) {
				p.expect(tsqltoken.IDENT)
			}
			fk := p.parseForeignKeyDef()
			at.ForeignKey = &fk
		} else {
			at.Action = tsqlast.AlterAddColumn
			cd := p.parseColumnDef()
			at.Column = &cd
		}
	case p.at(tsqltoken.ALTER):
		p.next()
		p.expect(tsqltoken.COLUMN)
		at.Action = tsqlast.AlterAlterColumn
		cd := p.parseColumnDef()
		at.Column = &cd
	case p.at(tsqltoken.DROP):
		p.next()
		p.expect(tsqltoken.COLUMN)
		at.Action = tsqlast.AlterDropColumn
		at.DropColumn = p.expect(tsqltoken.IDENT).Literal
	default:
		p.errorf("unsupported ALTER TABLE action")
	}
	at.Span = p.span(start)
	return at
}

func (p *Parser) parseCreateProcedureStmt() *tsqlast.CreateProcedureStmt {
	start := p.tok.Pos
	if !p.accept(tsqltoken.PROCEDURE) {
		p.expect(tsqltoken.PROC)
	}
	cp := &tsqlast.CreateProcedureStmt{Name: p.parseProcName()}
	if p.at(tsqltoken.VARIABLE) {
		for {
			cp.Params = append(cp.Params, p.parseProcParam())
			if !p.accept(tsqltoken.COMMA) {
				break
			}
		}
	}
	p.expect(tsqltoken.AS)
	cp.Body = p.parseStmt()
	cp.Span = p.span(start)
	return cp
}

func (p *Parser) parseProcParam() tsqlast.ProcParam {
	pp := tsqlast.ProcParam{Name: p.expect(tsqltoken.VARIABLE).Literal}
	pp.TypeName = p.parseTypeName()
	if p.accept(tsqltoken.EQ) {
		pp.Default = p.parseExpr()
	}
	if p.atKeywordText("OUT") || p.at(tsqltoken.OUTPUT) {
		p.next()
		pp.Output = true
	}
	return pp
}

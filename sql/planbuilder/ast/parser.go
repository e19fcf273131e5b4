package ast

import (
	"regexp"
	"strconv"
	"strings"

	errors "gopkg.in/src-d/go-errors.v1"
)

// ErrSyntax is raised on a malformed statement.
var ErrSyntax = errors.NewKind("syntax error: %s")

// killJobRe and showJobsRe mirror db.rs's KILL_JOB_RE/SHOW_JOB_RE: these
// two statements are intercepted ahead of SQL parsing entirely, so a
// job-id UUID never has to round-trip through the expression grammar.
var (
	killJobRe  = regexp.MustCompile(`(?i)^kill job ([\da-fA-F-]+);*$`)
	showJobsRe = regexp.MustCompile(`(?i)^show jobs;*$`)
)

// Parse tokenizes and parses one SQL statement (trailing semicolon
// optional).
func Parse(sql string) (Statement, error) {
	trimmed := strings.TrimSpace(sql)
	if m := killJobRe.FindStringSubmatch(trimmed); m != nil {
		return KillJob{JobID: m[1]}, nil
	}
	if showJobsRe.MatchString(trimmed) {
		return ShowJobs{}, nil
	}
	p := &parser{lex: newLexer(sql)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.skipSemicolons()
	if p.cur.kind != tokEOF {
		return nil, ErrSyntax.New("unexpected trailing input near " + p.cur.text)
	}
	return stmt, nil
}

type parser struct {
	lex *lexer
	cur token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) skipSemicolons() {
	for p.cur.is(tokPunct, ";") {
		p.advance()
	}
}

func (p *parser) expectPunct(text string) error {
	if !p.cur.is(tokPunct, text) {
		return ErrSyntax.New("expected " + text + ", got " + p.cur.text)
	}
	return p.advance()
}

func (p *parser) expectKeyword(kw string) error {
	if p.cur.kind != tokIdent || !strings.EqualFold(p.cur.text, kw) {
		return ErrSyntax.New("expected " + kw + ", got " + p.cur.text)
	}
	return p.advance()
}

func (p *parser) peekKeyword(kw string) bool {
	return p.cur.kind == tokIdent && strings.EqualFold(p.cur.text, kw)
}

func (p *parser) parseIdent() (string, error) {
	if p.cur.kind != tokIdent {
		return "", ErrSyntax.New("expected identifier, got " + p.cur.text)
	}
	name := p.cur.text
	return name, p.advance()
}

func (p *parser) parseStatement() (Statement, error) {
	switch {
	case p.peekKeyword("CREATE"):
		return p.parseCreateTable()
	case p.peekKeyword("DROP"):
		return p.parseDropTable()
	case p.peekKeyword("INSERT"):
		return p.parseInsert()
	case p.peekKeyword("SELECT"):
		return p.parseSelect()
	default:
		return nil, ErrSyntax.New("expected a statement, got " + p.cur.text)
	}
}

func (p *parser) parseCreateTable() (Statement, error) {
	if err := p.expectKeyword("CREATE"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var cols []ColumnDef
	for {
		colName, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		typeName, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		col := ColumnDef{Name: colName, Type: strings.ToUpper(typeName), Nullable: true}
		for p.peekKeyword("NOT") || p.peekKeyword("NULL") || p.peekKeyword("PRIMARY") {
			switch {
			case p.peekKeyword("NOT"):
				p.advance()
				if err := p.expectKeyword("NULL"); err != nil {
					return nil, err
				}
				col.Nullable = false
			case p.peekKeyword("NULL"):
				p.advance()
			case p.peekKeyword("PRIMARY"):
				p.advance()
				if err := p.expectKeyword("KEY"); err != nil {
					return nil, err
				}
				col.Primary = true
				col.Nullable = false
			}
		}
		cols = append(cols, col)
		if p.cur.is(tokPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	options := map[string]string{}
	if p.peekKeyword("WITH") {
		p.advance()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		for {
			key, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			if p.cur.kind != tokString {
				return nil, ErrSyntax.New("expected string option value, got " + p.cur.text)
			}
			options[key] = p.cur.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.is(tokPunct, ",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	return CreateTable{Name: name, Columns: cols, Options: options}, nil
}

func (p *parser) parseDropTable() (Statement, error) {
	if err := p.expectKeyword("DROP"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	ifExists := false
	if p.peekKeyword("IF") {
		p.advance()
		if err := p.expectKeyword("EXISTS"); err != nil {
			return nil, err
		}
		ifExists = true
	}
	name, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	return DropTable{Name: name, IfExists: ifExists}, nil
}

func (p *parser) parseInsert() (Statement, error) {
	if err := p.expectKeyword("INSERT"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.parseIdent()
	if err != nil {
		return nil, err
	}
	var columns []string
	if p.cur.is(tokPunct, "(") {
		p.advance()
		for {
			c, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			columns = append(columns, c)
			if p.cur.is(tokPunct, ",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	if p.peekKeyword("SELECT") {
		stmt, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		sel := stmt.(Select)
		return Insert{Table: table, Columns: columns, Query: &sel}, nil
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	var rows [][]Expr
	for {
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var row []Expr
		for {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			row = append(row, e)
			if p.cur.is(tokPunct, ",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if p.cur.is(tokPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	return Insert{Table: table, Columns: columns, Values: rows}, nil
}

func (p *parser) parseSelect() (Statement, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	var items []SelectItem
	for {
		if p.cur.is(tokPunct, "*") {
			p.advance()
			items = append(items, SelectItem{Star: true})
		} else {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			item := SelectItem{Expr: e}
			if p.peekKeyword("AS") {
				p.advance()
				alias, err := p.parseIdent()
				if err != nil {
					return nil, err
				}
				item.Alias = alias
			}
			items = append(items, item)
		}
		if p.cur.is(tokPunct, ",") {
			p.advance()
			continue
		}
		break
	}
	sel := Select{Projection: items}
	if p.peekKeyword("FROM") {
		p.advance()
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		sel.From = name
	}
	if p.peekKeyword("WHERE") {
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		sel.Where = e
	}
	if p.peekKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			sel.GroupBy = append(sel.GroupBy, e)
			if p.cur.is(tokPunct, ",") {
				p.advance()
				continue
			}
			break
		}
	}
	if p.peekKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			desc := false
			if p.peekKeyword("DESC") {
				p.advance()
				desc = true
			} else if p.peekKeyword("ASC") {
				p.advance()
			}
			sel.OrderBy = append(sel.OrderBy, OrderItem{Expr: e, Desc: desc})
			if p.cur.is(tokPunct, ",") {
				p.advance()
				continue
			}
			break
		}
	}
	if p.peekKeyword("LIMIT") {
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		sel.Limit = e
	}
	if p.peekKeyword("OFFSET") {
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		sel.Offset = e
	}
	return sel, nil
}

// binaryPrec implements simple precedence-climbing over the engine's
// small operator set.
func binaryPrec(op string) int {
	switch strings.ToUpper(op) {
	case "OR":
		return 1
	case "AND":
		return 2
	case "=", "<>", "!=", "<", "<=", ">", ">=":
		return 3
	case "+", "-":
		return 4
	case "*", "/":
		return 5
	default:
		return -1
	}
}

func (p *parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.currentOperator()
		prec := binaryPrec(op)
		if op == "" || prec < minPrec {
			return left, nil
		}
		if err := p.advanceOperator(op); err != nil {
			return nil, err
		}
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: strings.ToUpper(op), Left: left, Right: right}
	}
}

func (p *parser) currentOperator() string {
	if p.cur.kind == tokPunct {
		return p.cur.text
	}
	if p.cur.kind == tokIdent && (p.peekKeyword("AND") || p.peekKeyword("OR")) {
		return strings.ToUpper(p.cur.text)
	}
	return ""
}

func (p *parser) advanceOperator(op string) error {
	return p.advance()
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur.is(tokPunct, "-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", Operand: operand}, nil
	}
	if p.peekKeyword("NOT") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "NOT", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch {
	case p.cur.is(tokPunct, "("):
		p.advance()
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case p.cur.kind == tokNumber:
		n, err := strconv.ParseInt(p.cur.text, 10, 32)
		if err != nil {
			return nil, ErrSyntax.New("invalid integer literal " + p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return IntLit{Value: int32(n)}, nil
	case p.cur.kind == tokString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return StringLit{Value: s}, nil
	case p.peekKeyword("NULL"):
		p.advance()
		return NullLit{}, nil
	case p.peekKeyword("TRUE"):
		p.advance()
		return BoolLit{Value: true}, nil
	case p.peekKeyword("FALSE"):
		p.advance()
		return BoolLit{Value: false}, nil
	case p.cur.kind == tokIdent:
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		if p.cur.is(tokPunct, "(") {
			return p.parseFuncCallArgs(name)
		}
		parts := []string{name}
		for p.cur.is(tokPunct, ".") {
			p.advance()
			part, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		if len(parts) == 1 {
			return Identifier{Name: parts[0]}, nil
		}
		return CompoundIdentifier{Parts: parts}, nil
	default:
		return nil, ErrSyntax.New("expected an expression, got " + p.cur.text)
	}
}

func (p *parser) parseFuncCallArgs(name string) (Expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if p.cur.is(tokPunct, "*") {
		p.advance()
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return FuncCall{Name: strings.ToUpper(name), Star: true}, nil
	}
	var args []Expr
	if !p.cur.is(tokPunct, ")") {
		for {
			a, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur.is(tokPunct, ",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return FuncCall{Name: strings.ToUpper(name), Args: args}, nil
}

// Package parser implements the hand-written, recursive-descent Cypher
// parser described in spec.md §4.2: one-token lookahead over internal/lexer,
// operator-precedence climbing for expressions, and a grammar for
// node/relationship patterns. On the first syntax error, parsing stops and
// the partially built AST is discarded (no error recovery), matching
// spec.md's explicit design choice.
//
// Grounded on the teacher's clause-by-clause, position-tracking style in
// pkg/cypher/ast_builder.go, replacing the teacher's regex-driven clause
// splitting with a true token-stream parser, per spec.md's requirement for
// "a hand-written Cypher lexer and parser producing a typed AST".
package parser

import (
	"strings"

	"github.com/orneryd/cygraph/internal/ast"
	"github.com/orneryd/cygraph/internal/errs"
	"github.com/orneryd/cygraph/internal/lexer"
	"github.com/orneryd/cygraph/internal/token"
)

// MaxVariableLengthHops is the safety cap spec.md §4.4/§9 recommends for an
// unbounded variable-length relationship pattern (e.g. "-[:KNOWS*]->").
const MaxVariableLengthHops = 15

// Parser consumes a token stream and builds an *ast.Query.
type Parser struct {
	lex   *lexer.Lexer
	cur   token.Token
	ahead token.Token
	have  bool // true once `ahead` has been filled by peek()
}

// New creates a Parser over Cypher source text.
func New(src string) *Parser {
	p := &Parser{lex: lexer.New(src)}
	p.cur = p.lex.Next()
	return p
}

func (p *Parser) pos() errs.Pos { return errs.Pos{Line: p.cur.Line, Column: p.cur.Column} }

func (p *Parser) peek() token.Token {
	if !p.have {
		p.ahead = p.lex.Next()
		p.have = true
	}
	return p.ahead
}

func (p *Parser) advance() token.Token {
	t := p.cur
	if p.have {
		p.cur = p.ahead
		p.have = false
	} else {
		p.cur = p.lex.Next()
	}
	return t
}

func (p *Parser) at(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.cur.Kind == k {
			return true
		}
	}
	return false
}

func (p *Parser) expect(k token.Kind, want string) (token.Token, error) {
	if p.cur.Kind != k {
		return token.Token{}, errs.At(errs.Syntax, p.pos(), "expected %s, got %q", want, p.cur.Lexeme)
	}
	return p.advance(), nil
}

// identLike accepts IDENT and any soft keyword as a variable/alias/label
// name, per spec.md §4.2's identifier policy: keywords are reserved for
// their clause positions but accepted in variable positions, with "end"
// being the canonical regression (it must parse as a variable even though
// END closes CASE).
func (p *Parser) identLike() (string, bool) {
	if p.cur.Kind == token.IDENT {
		t := p.advance()
		return t.Lexeme, true
	}
	if token.IsSoftKeyword(p.cur.Kind) {
		t := p.advance()
		return t.Lexeme, true
	}
	return "", false
}

// Parse parses a full query, including UNION [ALL] joins.
func Parse(src string) (*ast.Query, error) {
	p := New(src)
	return p.parseQuery()
}

func (p *Parser) parseQuery() (*ast.Query, error) {
	if p.lex.Err() != nil {
		return nil, p.lex.Err()
	}
	q := &ast.Query{}
	part, err := p.parseSinglePartQuery()
	if err != nil {
		return nil, err
	}
	q.Parts = append(q.Parts, part)

	for p.at(token.UNION) {
		p.advance()
		all := false
		if p.at(token.ALL) {
			p.advance()
			all = true
		}
		q.UnionAll = append(q.UnionAll, all)
		next, err := p.parseSinglePartQuery()
		if err != nil {
			return nil, err
		}
		q.Parts = append(q.Parts, next)
	}

	if !p.at(token.EOF) {
		return nil, errs.At(errs.Syntax, p.pos(), "unexpected token %q after query", p.cur.Lexeme)
	}
	return q, nil
}

func (p *Parser) parseSinglePartQuery() (*ast.SinglePartQuery, error) {
	part := &ast.SinglePartQuery{}
	for {
		switch {
		case p.at(token.MATCH, token.OPTIONAL):
			c, err := p.parseMatch()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.CREATE):
			c, err := p.parseCreate()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.MERGE):
			c, err := p.parseMerge()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.SET):
			c, err := p.parseSet()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.REMOVE):
			c, err := p.parseRemove()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.DELETE, token.DETACH):
			c, err := p.parseDelete()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.WITH):
			c, err := p.parseWith()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.UNWIND):
			c, err := p.parseUnwind()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.FOREACH):
			c, err := p.parseForeach()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.CALL):
			c, err := p.parseCall()
			if err != nil {
				return nil, err
			}
			part.Clauses = append(part.Clauses, c)
		case p.at(token.RETURN):
			r, err := p.parseReturn()
			if err != nil {
				return nil, err
			}
			part.Return = r
			return part, nil
		default:
			return part, nil
		}
	}
}

// ---- MATCH ----

func (p *Parser) parseMatch() (*ast.Match, error) {
	m := &ast.Match{}
	m.Pos = p.pos()
	if p.at(token.OPTIONAL) {
		p.advance()
		m.Optional = true
		if _, err := p.expect(token.MATCH, "MATCH"); err != nil {
			return nil, err
		}
	} else {
		p.advance() // MATCH
	}
	paths, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	m.Patterns = paths
	if p.at(token.WHERE) {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Where = expr
	}
	return m, nil
}

func (p *Parser) parsePatternList() ([]*ast.Path, error) {
	var paths []*ast.Path
	for {
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return paths, nil
}

// parsePath parses "var = (n)-[r]->(m)-...", shortestPath(...)/
// allShortestPaths(...), or a bare pattern without a path variable.
func (p *Parser) parsePath() (*ast.Path, error) {
	path := &ast.Path{}

	if p.cur.Kind == token.IDENT && p.peek().Kind == token.EQ {
		path.Variable = p.advance().Lexeme
		p.advance() // '='
	}

	if p.at(token.SHORTESTPATH) || p.at(token.ALLSHORTESTPATHS) {
		all := p.at(token.ALLSHORTESTPATHS)
		p.advance()
		if _, err := p.expect(token.LPAREN, "("); err != nil {
			return nil, err
		}
		inner, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, ")"); err != nil {
			return nil, err
		}
		for _, r := range inner.Rels {
			r.ShortestPath = !all
			r.AllShortest = all
		}
		path.Nodes, path.Rels = inner.Nodes, inner.Rels
		return path, nil
	}

	chain, err := p.parseChain()
	if err != nil {
		return nil, err
	}
	path.Nodes, path.Rels = chain.Nodes, chain.Rels
	return path, nil
}

func (p *Parser) parseChain() (*ast.Path, error) {
	chain := &ast.Path{}
	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	chain.Nodes = append(chain.Nodes, node)

	for p.at(token.DASH, token.ARROW_LEFT, token.ARROW_BOTH) {
		rel, err := p.parseRelationshipPattern()
		if err != nil {
			return nil, err
		}
		chain.Rels = append(chain.Rels, rel)
		next, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		chain.Nodes = append(chain.Nodes, next)
	}
	return chain, nil
}

func (p *Parser) parseNodePattern() (*ast.NodePattern, error) {
	n := &ast.NodePattern{}
	n.Pos = p.pos()
	if _, err := p.expect(token.LPAREN, "("); err != nil {
		return nil, err
	}
	if name, ok := p.identLike(); ok {
		n.Variable = name
	}
	for p.at(token.COLON) {
		p.advance()
		label, ok := p.identLike()
		if !ok {
			return nil, errs.At(errs.Syntax, p.pos(), "expected label name")
		}
		n.Labels = append(n.Labels, label)
		for p.at(token.AMP) {
			p.advance()
			n.LabelsAll = true
			label2, ok := p.identLike()
			if !ok {
				return nil, errs.At(errs.Syntax, p.pos(), "expected label name")
			}
			n.Labels = append(n.Labels, label2)
		}
	}
	if p.at(token.LBRACE) {
		m, err := p.parseMapLiteral()
		if err != nil {
			return nil, err
		}
		n.Properties = m
	}
	if _, err := p.expect(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseRelationshipPattern() (*ast.RelationshipPattern, error) {
	r := &ast.RelationshipPattern{}
	r.Pos = p.pos()

	leftArrow := false
	if p.at(token.ARROW_LEFT) {
		leftArrow = true
		p.advance()
	} else if p.at(token.ARROW_BOTH) {
		r.Direction = ast.DirBoth
		p.advance()
		return r, nil // bidirectional shorthand has no bracket body in this grammar
	} else {
		p.advance() // '-'
	}

	hasBracket := p.at(token.LBRACKET)
	if hasBracket {
		p.advance()
		if name, ok := p.identLike(); ok {
			r.Variable = name
		}
		if p.at(token.COLON) {
			p.advance()
			for {
				t, ok := p.identLike()
				if !ok {
					return nil, errs.At(errs.Syntax, p.pos(), "expected relationship type")
				}
				r.Types = append(r.Types, t)
				if p.at(token.PIPE) {
					p.advance()
					continue
				}
				break
			}
		}
		if p.at(token.STAR) {
			p.advance()
			r.VarLength = true
			if p.cur.Kind == token.INTEGER {
				v := p.advance().IntValue
				r.MinHops = &v
			}
			if p.at(token.DOTDOT) {
				p.advance()
				if p.cur.Kind == token.INTEGER {
					v := p.advance().IntValue
					r.MaxHops = &v
				}
			} else if r.MinHops != nil {
				r.MaxHops = r.MinHops
			}
			if r.MinHops == nil {
				one := int64(1)
				r.MinHops = &one
			}
			if r.MaxHops == nil {
				capHops := int64(MaxVariableLengthHops)
				r.MaxHops = &capHops
			}
		}
		if p.at(token.LBRACE) {
			m, err := p.parseMapLiteral()
			if err != nil {
				return nil, err
			}
			r.Properties = m
		}
		if _, err := p.expect(token.RBRACKET, "]"); err != nil {
			return nil, err
		}
	}

	if p.at(token.ARROW_RIGHT) {
		p.advance()
		if leftArrow {
			r.Direction = ast.DirBoth
		} else {
			r.Direction = ast.DirRight
		}
	} else if p.at(token.DASH) {
		p.advance()
		if leftArrow {
			r.Direction = ast.DirLeft
		} else {
			r.Direction = ast.DirNone
		}
	} else {
		return nil, errs.At(errs.Syntax, p.pos(), "expected relationship arrow")
	}
	return r, nil
}

// ---- CREATE ----

func (p *Parser) parseCreate() (*ast.Create, error) {
	c := &ast.Create{}
	c.Pos = p.pos()
	p.advance() // CREATE
	paths, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	c.Patterns = paths
	return c, nil
}

// ---- MERGE ----

func (p *Parser) parseMerge() (*ast.Merge, error) {
	m := &ast.Merge{}
	m.Pos = p.pos()
	p.advance() // MERGE
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	m.Pattern = path

	for p.at(token.ON) {
		p.advance()
		if p.at(token.CREATE) {
			p.advance()
			if _, err := p.expect(token.SET, "SET"); err != nil {
				return nil, err
			}
			items, err := p.parseSetItems()
			if err != nil {
				return nil, err
			}
			m.OnCreate = append(m.OnCreate, items...)
		} else if p.at(token.MATCH) {
			p.advance()
			if _, err := p.expect(token.SET, "SET"); err != nil {
				return nil, err
			}
			items, err := p.parseSetItems()
			if err != nil {
				return nil, err
			}
			m.OnMatch = append(m.OnMatch, items...)
		} else {
			return nil, errs.At(errs.Syntax, p.pos(), "expected CREATE or MATCH after ON")
		}
	}
	return m, nil
}

// ---- SET / REMOVE / DELETE ----

func (p *Parser) parseSet() (*ast.Set, error) {
	s := &ast.Set{}
	s.Pos = p.pos()
	p.advance() // SET
	items, err := p.parseSetItems()
	if err != nil {
		return nil, err
	}
	s.Items = items
	return s, nil
}

func (p *Parser) parseSetItems() ([]*ast.SetItem, error) {
	var items []*ast.SetItem
	for {
		item, err := p.parseSetItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseSetItem() (*ast.SetItem, error) {
	variable, ok := p.identLike()
	if !ok {
		return nil, errs.At(errs.Syntax, p.pos(), "expected variable in SET")
	}
	item := &ast.SetItem{Variable: variable}

	switch {
	case p.at(token.DOT):
		p.advance()
		prop, ok := p.identLike()
		if !ok {
			return nil, errs.At(errs.Syntax, p.pos(), "expected property name")
		}
		item.Property = prop
		item.Kind = ast.SetProperty
		if _, err := p.expect(token.EQ, "="); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item.Value = val
	case p.at(token.COLON):
		item.Kind = ast.SetLabel
		for p.at(token.COLON) {
			p.advance()
			label, ok := p.identLike()
			if !ok {
				return nil, errs.At(errs.Syntax, p.pos(), "expected label")
			}
			item.Labels = append(item.Labels, label)
		}
	case p.at(token.PLUS_EQ):
		p.advance()
		item.Kind = ast.SetMergeMap
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item.Value = val
	case p.at(token.EQ):
		p.advance()
		item.Kind = ast.SetVariable
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item.Value = val
	default:
		return nil, errs.At(errs.Syntax, p.pos(), "expected '.', ':', '=' or '+=' in SET item")
	}
	return item, nil
}

func (p *Parser) parseRemove() (*ast.Remove, error) {
	r := &ast.Remove{}
	r.Pos = p.pos()
	p.advance() // REMOVE
	for {
		variable, ok := p.identLike()
		if !ok {
			return nil, errs.At(errs.Syntax, p.pos(), "expected variable in REMOVE")
		}
		item := &ast.RemoveItem{Variable: variable}
		if p.at(token.DOT) {
			p.advance()
			prop, ok := p.identLike()
			if !ok {
				return nil, errs.At(errs.Syntax, p.pos(), "expected property name")
			}
			item.Property = prop
		} else {
			for p.at(token.COLON) {
				p.advance()
				label, ok := p.identLike()
				if !ok {
					return nil, errs.At(errs.Syntax, p.pos(), "expected label")
				}
				item.Labels = append(item.Labels, label)
			}
		}
		r.Items = append(r.Items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return r, nil
}

func (p *Parser) parseDelete() (*ast.Delete, error) {
	d := &ast.Delete{}
	d.Pos = p.pos()
	if p.at(token.DETACH) {
		d.Detach = true
		p.advance()
	}
	if _, err := p.expect(token.DELETE, "DELETE"); err != nil {
		return nil, err
	}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		d.Expressions = append(d.Expressions, expr)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return d, nil
}

// ---- WITH / UNWIND / FOREACH / CALL ----

func (p *Parser) parseWith() (*ast.With, error) {
	w := &ast.With{}
	w.Pos = p.pos()
	p.advance() // WITH
	if p.at(token.DISTINCT) {
		w.Distinct = true
		p.advance()
	}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	w.Items = items

	if p.at(token.WHERE) {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		w.Where = expr
	}
	ob, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	w.OrderBy, w.Skip, w.Limit = ob, skip, limit
	return w, nil
}

func (p *Parser) parseUnwind() (*ast.Unwind, error) {
	u := &ast.Unwind{}
	u.Pos = p.pos()
	p.advance() // UNWIND
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	u.Expression = expr
	if _, err := p.expect(token.AS, "AS"); err != nil {
		return nil, err
	}
	name, ok := p.identLike()
	if !ok {
		return nil, errs.At(errs.Syntax, p.pos(), "expected variable after AS")
	}
	u.Variable = name
	return u, nil
}

// parseForeach accepts only a list literal as the iteration source, per
// spec.md §4.4/§9: expressions like collect(n.name) are not accepted in
// that position in this implementation; widening this is left as an open
// question, not guessed at.
func (p *Parser) parseForeach() (*ast.Foreach, error) {
	f := &ast.Foreach{}
	f.Pos = p.pos()
	p.advance() // FOREACH
	if _, err := p.expect(token.LPAREN, "("); err != nil {
		return nil, err
	}
	name, ok := p.identLike()
	if !ok {
		return nil, errs.At(errs.Syntax, p.pos(), "expected variable in FOREACH")
	}
	f.Variable = name
	if _, err := p.expect(token.IN, "IN"); err != nil {
		return nil, err
	}
	if !p.at(token.LBRACKET) {
		return nil, errs.At(errs.Syntax, p.pos(), "FOREACH iteration source must be a list literal")
	}
	list, err := p.parseListLiteral()
	if err != nil {
		return nil, err
	}
	f.List = list
	if _, err := p.expect(token.PIPE, "|"); err != nil {
		return nil, err
	}
	for !p.at(token.RPAREN) {
		var c ast.Clause
		var err error
		switch {
		case p.at(token.SET):
			c, err = p.parseSet()
		case p.at(token.CREATE):
			c, err = p.parseCreate()
		case p.at(token.MERGE):
			c, err = p.parseMerge()
		case p.at(token.DELETE, token.DETACH):
			c, err = p.parseDelete()
		case p.at(token.REMOVE):
			c, err = p.parseRemove()
		default:
			return nil, errs.At(errs.Syntax, p.pos(), "unsupported FOREACH update clause")
		}
		if err != nil {
			return nil, err
		}
		f.Clauses = append(f.Clauses, c)
	}
	if _, err := p.expect(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *Parser) parseCall() (*ast.Call, error) {
	c := &ast.Call{}
	c.Pos = p.pos()
	p.advance() // CALL
	name, ok := p.identLike()
	if !ok {
		return nil, errs.At(errs.Syntax, p.pos(), "expected procedure name")
	}
	c.Procedure = name
	for p.at(token.DOT) {
		p.advance()
		part, ok := p.identLike()
		if !ok {
			return nil, errs.At(errs.Syntax, p.pos(), "expected procedure name segment")
		}
		c.Procedure += "." + part
	}
	if _, err := p.expect(token.LPAREN, "("); err != nil {
		return nil, err
	}
	for !p.at(token.RPAREN) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Arguments = append(c.Arguments, arg)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	if p.at(token.YIELD) {
		p.advance()
		for {
			name, ok := p.identLike()
			if !ok {
				return nil, errs.At(errs.Syntax, p.pos(), "expected yield name")
			}
			c.Yield = append(c.Yield, name)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	return c, nil
}

// ---- RETURN ----

func (p *Parser) parseReturn() (*ast.Return, error) {
	r := &ast.Return{}
	r.Pos = p.pos()
	p.advance() // RETURN
	if p.at(token.DISTINCT) {
		r.Distinct = true
		p.advance()
	}
	if p.at(token.STAR) {
		p.advance()
		r.Items = append(r.Items, &ast.ReturnItem{Star: true})
	} else {
		items, err := p.parseReturnItems()
		if err != nil {
			return nil, err
		}
		r.Items = items
	}
	ob, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	r.OrderBy, r.Skip, r.Limit = ob, skip, limit
	return r, nil
}

func (p *Parser) parseReturnItems() ([]*ast.ReturnItem, error) {
	var items []*ast.ReturnItem
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item := &ast.ReturnItem{Expression: expr}
		if p.at(token.AS) {
			p.advance()
			alias, ok := p.identLike()
			if !ok {
				return nil, errs.At(errs.Syntax, p.pos(), "expected alias after AS")
			}
			item.Alias = alias
		}
		items = append(items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseOrderSkipLimit() ([]*ast.OrderItem, ast.Expression, ast.Expression, error) {
	var orderBy []*ast.OrderItem
	var skip, limit ast.Expression

	if p.at(token.ORDER) {
		p.advance()
		if _, err := p.expect(token.BY, "BY"); err != nil {
			return nil, nil, nil, err
		}
		for {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, nil, nil, err
			}
			item := &ast.OrderItem{Expression: expr}
			if p.at(token.ASC) {
				p.advance()
			} else if p.at(token.DESC) {
				item.Descending = true
				p.advance()
			}
			orderBy = append(orderBy, item)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	if p.at(token.SKIP) {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, nil, nil, err
		}
		skip = expr
	}
	if p.at(token.LIMIT) {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, nil, nil, err
		}
		limit = expr
	}
	return orderBy, skip, limit, nil
}

// ---- Expressions: precedence climbing, loose to tight per spec.md §4.2 ----
//
//	OR, XOR, AND, NOT, comparison, STARTS/ENDS/CONTAINS/IN/=~,
//	IS NULL/IS NOT NULL, +/-, * / %, ^, unary -/+,
//	postfix (., [i], [a..b], (), {..}), atoms

func (p *Parser) parseExpression() (ast.Expression, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expression, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		pos := p.pos()
		p.advance()
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = newBinary(pos, "OR", left, right)
	}
	return left, nil
}

func (p *Parser) parseXor() (ast.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.XOR) {
		pos := p.pos()
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = newBinary(pos, "XOR", left, right)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		pos := p.pos()
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = newBinary(pos, "AND", left, right)
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expression, error) {
	if p.at(token.NOT) {
		pos := p.pos()
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return newUnary(pos, "NOT", operand), nil
	}
	return p.parseComparison()
}

var comparisonOps = map[token.Kind]string{
	token.EQ: "=", token.NEQ: "<>", token.LT: "<",
	token.LE: "<=", token.GT: ">", token.GE: ">=",
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	left, err := p.parseStringPredicate()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.cur.Kind]
		if !ok {
			break
		}
		pos := p.pos()
		p.advance()
		right, err := p.parseStringPredicate()
		if err != nil {
			return nil, err
		}
		left = newBinary(pos, op, left, right)
	}
	return left, nil
}

// parseStringPredicate handles STARTS WITH / ENDS WITH / CONTAINS / IN / =~.
func (p *Parser) parseStringPredicate() (ast.Expression, error) {
	left, err := p.parseIsNull()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(token.STARTS):
			pos := p.pos()
			p.advance()
			if _, err := p.expectIdentUpper("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseIsNull()
			if err != nil {
				return nil, err
			}
			left = newStringMatch(pos, "STARTS", left, right)
		case p.at(token.ENDS):
			pos := p.pos()
			p.advance()
			if _, err := p.expectIdentUpper("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseIsNull()
			if err != nil {
				return nil, err
			}
			left = newStringMatch(pos, "ENDS", left, right)
		case p.at(token.CONTAINS):
			pos := p.pos()
			p.advance()
			right, err := p.parseIsNull()
			if err != nil {
				return nil, err
			}
			left = newStringMatch(pos, "CONTAINS", left, right)
		case p.at(token.REGEX_EQ):
			pos := p.pos()
			p.advance()
			right, err := p.parseIsNull()
			if err != nil {
				return nil, err
			}
			left = newStringMatch(pos, "REGEX", left, right)
		case p.at(token.IN):
			pos := p.pos()
			p.advance()
			right, err := p.parseIsNull()
			if err != nil {
				return nil, err
			}
			left = newInList(pos, left, right)
		default:
			return left, nil
		}
	}
}

// expectIdentUpper matches an IDENT or WITH keyword token whose upper-cased
// lexeme equals want (used for the two-word "STARTS WITH"/"ENDS WITH"
// keywords, which the lexer does not fuse into a single token).
func (p *Parser) expectIdentUpper(want string) (token.Token, error) {
	if (p.cur.Kind == token.IDENT || p.cur.Kind == token.WITH) && strings.EqualFold(p.cur.Lexeme, want) {
		return p.advance(), nil
	}
	return token.Token{}, errs.At(errs.Syntax, p.pos(), "expected %s", want)
}

func (p *Parser) parseIsNull() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(token.IS) {
		pos := p.pos()
		p.advance()
		negated := false
		if p.at(token.NOT) {
			negated = true
			p.advance()
		}
		if _, err := p.expect(token.NULL, "NULL"); err != nil {
			return nil, err
		}
		left = newIsNull(pos, left, negated)
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS, token.DASH) {
		op := "+"
		if p.cur.Kind == token.DASH {
			op = "-"
		}
		pos := p.pos()
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = newBinary(pos, op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR, token.SLASH, token.PERCENT) {
		op := map[token.Kind]string{token.STAR: "*", token.SLASH: "/", token.PERCENT: "%"}[p.cur.Kind]
		pos := p.pos()
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = newBinary(pos, op, left, right)
	}
	return left, nil
}

func (p *Parser) parsePower() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.at(token.CARET) {
		pos := p.pos()
		p.advance()
		right, err := p.parsePower() // right-associative
		if err != nil {
			return nil, err
		}
		left = newBinary(pos, "^", left, right)
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.at(token.DASH, token.PLUS) {
		op := "-"
		if p.cur.Kind == token.PLUS {
			op = "+"
		}
		pos := p.pos()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return newUnary(pos, op, operand), nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(token.DOT):
			p.advance()
			if p.at(token.STAR) {
				p.advance()
				mp := newMapProjection(expr.Position(), expr)
				mp.Items = []ast.MapProjectionItem{{AllProps: true}}
				expr = mp
				continue
			}
			prop, ok := p.identLike()
			if !ok {
				return nil, errs.At(errs.Syntax, p.pos(), "expected property name")
			}
			expr = newPropertyAccess(expr.Position(), expr, prop)
		case p.at(token.LBRACKET):
			pos := p.pos()
			p.advance()
			if p.at(token.DOTDOT) {
				p.advance()
				to, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(token.RBRACKET, "]"); err != nil {
					return nil, err
				}
				expr = newListSlice(pos, expr, nil, to)
				continue
			}
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if p.at(token.DOTDOT) {
				p.advance()
				var to ast.Expression
				if !p.at(token.RBRACKET) {
					to, err = p.parseExpression()
					if err != nil {
						return nil, err
					}
				}
				if _, err := p.expect(token.RBRACKET, "]"); err != nil {
					return nil, err
				}
				expr = newListSlice(pos, expr, idx, to)
				continue
			}
			if _, err := p.expect(token.RBRACKET, "]"); err != nil {
				return nil, err
			}
			expr = newListIndex(pos, expr, idx)
		case p.at(token.LBRACE):
			proj, err := p.parseMapProjectionBody(expr)
			if err != nil {
				return nil, err
			}
			expr = proj
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseMapProjectionBody(target ast.Expression) (ast.Expression, error) {
	pos := p.pos()
	p.advance() // '{'
	proj := newMapProjection(pos, target)
	for !p.at(token.RBRACE) {
		switch {
		case p.at(token.DOT):
			p.advance()
			if p.at(token.STAR) {
				p.advance()
				proj.Items = append(proj.Items, ast.MapProjectionItem{AllProps: true})
			} else {
				name, ok := p.identLike()
				if !ok {
					return nil, errs.At(errs.Syntax, p.pos(), "expected property name")
				}
				proj.Items = append(proj.Items, ast.MapProjectionItem{Property: name})
			}
		default:
			name, ok := p.identLike()
			if !ok {
				return nil, errs.At(errs.Syntax, p.pos(), "expected map projection item")
			}
			if p.at(token.COLON) {
				p.advance()
				val, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				proj.Items = append(proj.Items, ast.MapProjectionItem{Alias: name, Value: val})
			} else {
				proj.Items = append(proj.Items, ast.MapProjectionItem{Alias: name, Value: newIdentifier(pos, name)})
			}
		}
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACE, "}"); err != nil {
		return nil, err
	}
	return proj, nil
}

func (p *Parser) parseAtom() (ast.Expression, error) {
	pos := p.pos()
	switch {
	case p.cur.Kind == token.INTEGER:
		t := p.advance()
		return newLiteral(pos, t.IntValue), nil
	case p.cur.Kind == token.FLOAT:
		t := p.advance()
		return newLiteral(pos, t.FloatValue), nil
	case p.cur.Kind == token.STRING:
		t := p.advance()
		return newLiteral(pos, t.Lexeme), nil
	case p.at(token.NULL):
		p.advance()
		return newLiteral(pos, nil), nil
	case p.cur.Kind == token.IDENT && strings.EqualFold(p.cur.Lexeme, "true"):
		p.advance()
		return newLiteral(pos, true), nil
	case p.cur.Kind == token.IDENT && strings.EqualFold(p.cur.Lexeme, "false"):
		p.advance()
		return newLiteral(pos, false), nil
	case p.cur.Kind == token.PARAM:
		t := p.advance()
		return newParam(pos, t.Lexeme), nil
	case p.at(token.LPAREN):
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, ")"); err != nil {
			return nil, err
		}
		return expr, nil
	case p.at(token.LBRACKET):
		return p.parseListLiteral()
	case p.at(token.LBRACE):
		m, err := p.parseMapLiteral()
		if err != nil {
			return nil, err
		}
		return m, nil
	case p.at(token.CASE):
		return p.parseCase()
	case p.at(token.COUNT):
		return p.parseCountStar(pos)
	case p.at(token.EXISTS):
		return p.parseExistsExpr(pos)
	case p.cur.Kind == token.IDENT || token.IsSoftKeyword(p.cur.Kind):
		return p.parseIdentOrCall(pos)
	default:
		return nil, errs.At(errs.Syntax, pos, "unexpected token %q in expression", p.cur.Lexeme)
	}
}

// parseCountStar handles every COUNT call: count(*) becomes a call with a
// single "*" literal argument, and count(expr) / count(DISTINCT expr) a call
// with the parsed argument.
func (p *Parser) parseCountStar(pos errs.Pos) (ast.Expression, error) {
	p.advance() // COUNT
	if _, err := p.expect(token.LPAREN, "("); err != nil {
		return nil, err
	}
	if p.at(token.STAR) {
		p.advance()
		if _, err := p.expect(token.RPAREN, ")"); err != nil {
			return nil, err
		}
		return newFunctionCall(pos, "count", []ast.Expression{newLiteral(pos, "*")}, false), nil
	}
	distinct := false
	if p.at(token.DISTINCT) {
		distinct = true
		p.advance()
	}
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	return newFunctionCall(pos, "count", []ast.Expression{arg}, distinct), nil
}

// parseExistsExpr handles exists(pattern-or-expr) as a boolean predicate.
func (p *Parser) parseExistsExpr(pos errs.Pos) (ast.Expression, error) {
	p.advance() // EXISTS
	if _, err := p.expect(token.LPAREN, "("); err != nil {
		return nil, err
	}
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	return newFunctionCall(pos, "exists", []ast.Expression{arg}, false), nil
}

func (p *Parser) parseIdentOrCall(pos errs.Pos) (ast.Expression, error) {
	name, _ := p.identLike()
	if p.at(token.LPAREN) {
		p.advance()
		var args []ast.Expression
		distinct := false
		if p.at(token.DISTINCT) {
			distinct = true
			p.advance()
		}
		for !p.at(token.RPAREN) {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(token.RPAREN, ")"); err != nil {
			return nil, err
		}
		return newFunctionCall(pos, name, args, distinct), nil
	}
	return newIdentifier(pos, name), nil
}

func (p *Parser) parseListLiteral() (ast.Expression, error) {
	pos := p.pos()
	p.advance() // '['
	list := newListLiteral(pos)
	for !p.at(token.RBRACKET) {
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACKET, "]"); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseMapLiteral() (*ast.MapLiteral, error) {
	pos := p.pos()
	p.advance() // '{'
	m := newMapLiteral(pos)
	for !p.at(token.RBRACE) {
		key, ok := p.identLike()
		if !ok {
			return nil, errs.At(errs.Syntax, p.pos(), "expected map key")
		}
		if _, err := p.expect(token.COLON, ":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, key)
		m.Values = append(m.Values, val)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBRACE, "}"); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Parser) parseCase() (ast.Expression, error) {
	pos := p.pos()
	p.advance() // CASE
	ce := newCaseExpr(pos)
	if !p.at(token.WHEN) {
		operand, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.Operand = operand
	}
	for p.at(token.WHEN) {
		p.advance()
		when, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.THEN, "THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, when)
		ce.Thens = append(ce.Thens, then)
	}
	if len(ce.Whens) == 0 {
		return nil, errs.At(errs.Syntax, p.pos(), "CASE requires at least one WHEN")
	}
	if p.at(token.ELSE) {
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.ElseClause = e
	}
	if _, err := p.expect(token.END, "END"); err != nil {
		return nil, err
	}
	return ce, nil
}

// ---- AST construction helpers ----
//
// ast.Expression nodes embed an unexported position-carrying base, so a
// package outside ast cannot set it via a keyed struct literal; these
// helpers build the node first and then assign the promoted Pos field,
// which Go permits across packages as long as the field itself is exported.

func newBinary(pos errs.Pos, op string, left, right ast.Expression) *ast.BinaryOp {
	n := &ast.BinaryOp{Op: op, Left: left, Right: right}
	n.Pos = pos
	return n
}

func newUnary(pos errs.Pos, op string, operand ast.Expression) *ast.UnaryOp {
	n := &ast.UnaryOp{Op: op, Operand: operand}
	n.Pos = pos
	return n
}

func newStringMatch(pos errs.Pos, op string, operand, arg ast.Expression) *ast.StringMatch {
	n := &ast.StringMatch{Op: op, Operand: operand, Argument: arg}
	n.Pos = pos
	return n
}

func newInList(pos errs.Pos, operand, list ast.Expression) *ast.InList {
	n := &ast.InList{Operand: operand, List: list}
	n.Pos = pos
	return n
}

func newIsNull(pos errs.Pos, operand ast.Expression, negated bool) *ast.IsNull {
	n := &ast.IsNull{Operand: operand, Negated: negated}
	n.Pos = pos
	return n
}

func newLiteral(pos errs.Pos, v any) *ast.Literal {
	n := &ast.Literal{Value: v}
	n.Pos = pos
	return n
}

func newParam(pos errs.Pos, name string) *ast.ParameterRef {
	n := &ast.ParameterRef{Name: name}
	n.Pos = pos
	return n
}

func newPropertyAccess(pos errs.Pos, target ast.Expression, prop string) *ast.PropertyAccess {
	n := &ast.PropertyAccess{Target: target, Property: prop}
	n.Pos = pos
	return n
}

func newListIndex(pos errs.Pos, list, index ast.Expression) *ast.ListIndex {
	n := &ast.ListIndex{List: list, Index: index}
	n.Pos = pos
	return n
}

func newListSlice(pos errs.Pos, list, from, to ast.Expression) *ast.ListSlice {
	n := &ast.ListSlice{List: list, From: from, To: to}
	n.Pos = pos
	return n
}

func newIdentifier(pos errs.Pos, name string) *ast.Identifier {
	n := &ast.Identifier{Name: name}
	n.Pos = pos
	return n
}

func newFunctionCall(pos errs.Pos, name string, args []ast.Expression, distinct bool) *ast.FunctionCall {
	n := &ast.FunctionCall{Name: name, Args: args, Distinct: distinct}
	n.Pos = pos
	return n
}

func newListLiteral(pos errs.Pos) *ast.ListLiteral {
	n := &ast.ListLiteral{}
	n.Pos = pos
	return n
}

func newMapLiteral(pos errs.Pos) *ast.MapLiteral {
	n := &ast.MapLiteral{}
	n.Pos = pos
	return n
}

func newMapProjection(pos errs.Pos, target ast.Expression) *ast.MapProjection {
	n := &ast.MapProjection{Target: target}
	n.Pos = pos
	return n
}

func newCaseExpr(pos errs.Pos) *ast.CaseExpr {
	n := &ast.CaseExpr{}
	n.Pos = pos
	return n
}

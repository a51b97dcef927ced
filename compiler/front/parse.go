package front

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/linglang/ling/compiler/ast"
	"github.com/linglang/ling/compiler/lex"
)

type (
	parser struct {
		toks  []lex.Token
		i     int
		depth int
	}

	ParseError struct {
		Got  lex.Token
		Want []lex.Kind
	}

	// DepthError is a parse failure on source nested beyond what
	// recursive descent is allowed to follow.
	DepthError struct {
		Pos int
	}
)

// Parse builds the program tree from a token stream. The first
// structural mismatch aborts; no partial tree is returned.
func Parse(ctx context.Context, toks []lex.Token) (p *ast.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "tokens", len(toks))
	defer tr.Finish("err", &err)

	s := &parser{toks: toks}

	p = &ast.Program{}

	for s.peek().Kind != lex.EOF {
		f, err := s.parseFunc(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "at pos 0x%x", s.peek().Pos)
		}

		p.Funcs = append(p.Funcs, f)

		tr.V("func").Printw("func", "name", f.Name, "params", len(f.Params))
	}

	return p, nil
}

func (s *parser) parseFunc(ctx context.Context) (f *ast.Func, err error) {
	mark, err := s.expect(ctx, lex.Func)
	if err != nil {
		return nil, err
	}

	name, err := s.expect(ctx, lex.Ident)
	if err != nil {
		return nil, errors.Wrap(err, "func name")
	}

	params, err := s.parseParams(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "func %v params", name.Text)
	}

	_, err = s.expect(ctx, lex.Arrow)
	if err != nil {
		return nil, err
	}

	body, err := s.parseBlock(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "func %v body", name.Text)
	}

	f = &ast.Func{
		Base:   ast.Base{Pos: mark.Pos, End: body.End},
		Name:   name.Text,
		Params: params,
		Body:   body,
	}

	return f, nil
}

func (s *parser) parseParams(ctx context.Context) (params []ast.Param, err error) {
	_, err = s.expect(ctx, lex.Open)
	if err != nil {
		return nil, err
	}

	for s.peek().Kind != lex.Close {
		if len(params) != 0 {
			_, err = s.expect(ctx, lex.Comma)
			if err != nil {
				return nil, err
			}
		}

		name, err := s.expect(ctx, lex.Ident)
		if err != nil {
			return nil, err
		}

		params = append(params, ast.Param{
			Base: ast.Base{Pos: name.Pos, End: name.End},
			Name: name.Text,
		})
	}

	s.next(ctx)

	return params, nil
}

// maxNesting caps recursive descent so pathological inputs fail with
// a reported error instead of exhausting the host stack.
const maxNesting = 500

func (s *parser) enter(pos int) error {
	if s.depth++; s.depth > maxNesting {
		return DepthError{Pos: pos}
	}

	return nil
}

func (s *parser) leave() { s.depth-- }

func (s *parser) parseBlock(ctx context.Context) (b *ast.Block, err error) {
	open, err := s.expect(ctx, lex.Open)
	if err != nil {
		return nil, err
	}

	if err = s.enter(open.Pos); err != nil {
		return nil, err
	}
	defer s.leave()

	b = &ast.Block{
		Base: ast.Base{Pos: open.Pos},
	}

	for {
		switch s.peek().Kind {
		case lex.Close:
			tk := s.next(ctx)
			b.End = tk.End

			return b, nil
		case lex.EOF:
			return nil, NewUnexpected(s.peek(), lex.Close)
		}

		stmt, err := s.parseStatement(ctx)
		if err != nil {
			return nil, err
		}

		_, err = s.expect(ctx, lex.Term)
		if err != nil {
			return nil, errors.Wrap(err, "statement terminator")
		}

		b.Stmts = append(b.Stmts, stmt)
	}
}

func (s *parser) parseStatement(ctx context.Context) (x ast.Stmt, err error) {
	switch tk := s.peek(); tk.Kind {
	case lex.Var:
		return s.parseVarDecl(ctx)
	case lex.If:
		return s.parseIf(ctx)
	case lex.While:
		return s.parseWhile(ctx)
	case lex.Return:
		s.next(ctx)

		e, err := s.parseExpr(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "return value")
		}

		_, end := e.Span()

		return &ast.Return{Base: ast.Base{Pos: tk.Pos, End: end}, X: e}, nil
	case lex.Print:
		s.next(ctx)

		e, err := s.parseExpr(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "print value")
		}

		_, end := e.Span()

		return &ast.Print{Base: ast.Base{Pos: tk.Pos, End: end}, X: e}, nil
	default:
		e, err := s.parseExpr(ctx)
		if err != nil {
			return nil, err
		}

		pos, end := e.Span()

		return &ast.ExprStmt{Base: ast.Base{Pos: pos, End: end}, X: e}, nil
	}
}

func (s *parser) parseVarDecl(ctx context.Context) (x ast.Stmt, err error) {
	mark := s.next(ctx)

	name, err := s.expect(ctx, lex.Ident)
	if err != nil {
		return nil, errors.Wrap(err, "var name")
	}

	_, err = s.expect(ctx, lex.Assign)
	if err != nil {
		return nil, err
	}

	e, err := s.parseExpr(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "var %v value", name.Text)
	}

	_, end := e.Span()

	return &ast.VarDecl{
		Base: ast.Base{Pos: mark.Pos, End: end},
		Name: name.Text,
		X:    e,
	}, nil
}

func (s *parser) parseIf(ctx context.Context) (x ast.Stmt, err error) {
	mark := s.next(ctx)

	cond, err := s.parseExpr(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "if condition")
	}

	_, err = s.expect(ctx, lex.Then)
	if err != nil {
		return nil, err
	}

	then, err := s.parseBlock(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "then block")
	}

	stmt := &ast.If{
		Base: ast.Base{Pos: mark.Pos, End: then.End},
		Cond: cond,
		Then: then,
	}

	if s.peek().Kind == lex.Else {
		s.next(ctx)

		stmt.Else, err = s.parseBlock(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "else block")
		}

		stmt.End = stmt.Else.End
	}

	return stmt, nil
}

func (s *parser) parseWhile(ctx context.Context) (x ast.Stmt, err error) {
	mark := s.next(ctx)

	cond, err := s.parseExpr(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "while condition")
	}

	body, err := s.parseBlock(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "while body")
	}

	return &ast.While{
		Base: ast.Base{Pos: mark.Pos, End: body.End},
		Cond: cond,
		Body: body,
	}, nil
}

// Expressions climb from comparison through additive to
// multiplicative, all left-associative.

func (s *parser) parseExpr(ctx context.Context) (x ast.Expr, err error) {
	if err = s.enter(s.peek().Pos); err != nil {
		return nil, err
	}
	defer s.leave()

	return s.parseCmp(ctx)
}

func (s *parser) parseCmp(ctx context.Context) (x ast.Expr, err error) {
	return s.parseBin(ctx, s.parseSum, map[lex.Kind]ast.Op{
		lex.Eq: ast.Eq,
		lex.Ne: ast.Ne,
		lex.Lt: ast.Lt,
		lex.Gt: ast.Gt,
	})
}

func (s *parser) parseSum(ctx context.Context) (x ast.Expr, err error) {
	return s.parseBin(ctx, s.parseProd, map[lex.Kind]ast.Op{
		lex.Add: ast.Add,
		lex.Sub: ast.Sub,
	})
}

func (s *parser) parseProd(ctx context.Context) (x ast.Expr, err error) {
	return s.parseBin(ctx, s.parsePrimary, map[lex.Kind]ast.Op{
		lex.Mul: ast.Mul,
		lex.Div: ast.Div,
	})
}

func (s *parser) parseBin(ctx context.Context, sub func(context.Context) (ast.Expr, error), ops map[lex.Kind]ast.Op) (x ast.Expr, err error) {
	x, err = sub(ctx)
	if err != nil {
		return nil, err
	}

	for {
		op, ok := ops[s.peek().Kind]
		if !ok {
			return x, nil
		}

		s.next(ctx)

		r, err := sub(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "operand of %v", op)
		}

		pos, _ := x.Span()
		_, end := r.Span()

		x = &ast.BinOp{
			Base: ast.Base{Pos: pos, End: end},
			Op:   op,
			L:    x,
			R:    r,
		}
	}
}

func (s *parser) parsePrimary(ctx context.Context) (x ast.Expr, err error) {
	switch tk := s.peek(); tk.Kind {
	case lex.Number:
		s.next(ctx)

		return &ast.Lit{Base: ast.Base{Pos: tk.Pos, End: tk.End}, Value: tk.Val}, nil
	case lex.Ident:
		s.next(ctx)

		if s.peek().Kind != lex.Open {
			return &ast.Ident{Base: ast.Base{Pos: tk.Pos, End: tk.End}, Name: tk.Text}, nil
		}

		return s.parseCall(ctx, tk)
	default:
		return nil, NewUnexpected(tk, lex.Number, lex.Ident)
	}
}

func (s *parser) parseCall(ctx context.Context, name lex.Token) (x ast.Expr, err error) {
	s.next(ctx) // open

	call := &ast.Call{
		Base: ast.Base{Pos: name.Pos},
		Name: name.Text,
	}

	for s.peek().Kind != lex.Close {
		if len(call.Args) != 0 {
			_, err = s.expect(ctx, lex.Comma)
			if err != nil {
				return nil, err
			}
		}

		a, err := s.parseExpr(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "call %v arg %d", name.Text, len(call.Args))
		}

		call.Args = append(call.Args, a)
	}

	tk := s.next(ctx)
	call.End = tk.End

	return call, nil
}

func (s *parser) peek() lex.Token {
	return s.toks[s.i]
}

func (s *parser) next(ctx context.Context) (tk lex.Token) {
	tk = s.toks[s.i]

	if s.i+1 < len(s.toks) {
		s.i++
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("next_token") {
		tr.Printw("next token", "i", s.i, "kind", tk.Kind, "text", tk.Text, "from", loc.Callers(1, 3))
	}

	return tk
}

func (s *parser) expect(ctx context.Context, k lex.Kind) (tk lex.Token, err error) {
	if tk = s.peek(); tk.Kind != k {
		return tk, NewUnexpected(tk, k)
	}

	return s.next(ctx), nil
}

func NewUnexpected(got lex.Token, want ...lex.Kind) error {
	return ParseError{
		Got:  got,
		Want: want,
	}
}

func (e DepthError) Error() string {
	return fmt.Sprintf("nesting too deep at 0x%x", e.Pos)
}

func (e ParseError) Error() string {
	l := make([]string, len(e.Want))

	for i := range e.Want {
		l[i] = e.Want[i].String()
	}

	return fmt.Sprintf("unexpected %v at 0x%x, want: %v", e.Got.Kind, e.Got.Pos, strings.Join(l, ", "))
}

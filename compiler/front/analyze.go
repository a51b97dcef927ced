package front

import (
	"context"
	"fmt"

	"tlog.app/go/tlog"

	"github.com/linglang/ling/compiler/ast"
)

type (
	// Checked is a resolved program: every identifier, call and arity
	// validated, the entry function found.
	Checked struct {
		Prog  *ast.Program
		Funcs map[string]*ast.Func
		Entry *ast.Func
	}

	SemKind int

	SemError struct {
		Kind SemKind
		Name string
		Pos  int
	}

	scope struct {
		names map[string]struct{}
		par   *scope
	}
)

// EntryName is the reserved name of the program entry function.
const EntryName = "主"

const (
	DupFunc SemKind = iota
	DupParam
	DupVar
	UndefVar
	UndefFunc
	BadArity
	NoEntry
)

// Resolve validates the whole program eagerly, before anything runs.
// The first violation aborts.
func Resolve(ctx context.Context, p *ast.Program) (c *Checked, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "resolve", "funcs", len(p.Funcs))
	defer tr.Finish("err", &err)

	c = &Checked{
		Prog:  p,
		Funcs: make(map[string]*ast.Func, len(p.Funcs)),
	}

	for _, f := range p.Funcs {
		if _, ok := c.Funcs[f.Name]; ok {
			return nil, SemError{Kind: DupFunc, Name: f.Name, Pos: f.Pos}
		}

		c.Funcs[f.Name] = f
	}

	c.Entry = c.Funcs[EntryName]
	if c.Entry == nil {
		return nil, SemError{Kind: NoEntry, Name: EntryName}
	}

	for _, f := range p.Funcs {
		err = c.resolveFunc(ctx, f)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Checked) resolveFunc(ctx context.Context, f *ast.Func) (err error) {
	tr := tlog.SpanFromContext(ctx)

	top := newScope(nil)

	for _, p := range f.Params {
		if top.declared(p.Name) {
			return SemError{Kind: DupParam, Name: p.Name, Pos: p.Pos}
		}

		top.declare(p.Name)
	}

	err = c.resolveBlock(ctx, f.Body, top)
	if err != nil {
		return err
	}

	tr.V("func").Printw("resolved", "name", f.Name, "params", len(f.Params))

	return nil
}

func (c *Checked) resolveBlock(ctx context.Context, b *ast.Block, par *scope) (err error) {
	s := newScope(par)

	for _, stmt := range b.Stmts {
		switch stmt := stmt.(type) {
		case *ast.VarDecl:
			err = c.resolveExpr(ctx, stmt.X, s)
			if err != nil {
				return err
			}

			if s.declared(stmt.Name) {
				return SemError{Kind: DupVar, Name: stmt.Name, Pos: stmt.Pos}
			}

			s.declare(stmt.Name)
		case *ast.If:
			err = c.resolveExpr(ctx, stmt.Cond, s)
			if err != nil {
				return err
			}

			err = c.resolveBlock(ctx, stmt.Then, s)
			if err != nil {
				return err
			}

			if stmt.Else != nil {
				err = c.resolveBlock(ctx, stmt.Else, s)
				if err != nil {
					return err
				}
			}
		case *ast.While:
			err = c.resolveExpr(ctx, stmt.Cond, s)
			if err != nil {
				return err
			}

			err = c.resolveBlock(ctx, stmt.Body, s)
			if err != nil {
				return err
			}
		case *ast.Return:
			err = c.resolveExpr(ctx, stmt.X, s)
			if err != nil {
				return err
			}
		case *ast.Print:
			err = c.resolveExpr(ctx, stmt.X, s)
			if err != nil {
				return err
			}
		case *ast.ExprStmt:
			err = c.resolveExpr(ctx, stmt.X, s)
			if err != nil {
				return err
			}
		default:
			panic(stmt)
		}
	}

	return nil
}

func (c *Checked) resolveExpr(ctx context.Context, e ast.Expr, s *scope) (err error) {
	switch e := e.(type) {
	case *ast.Lit:
	case *ast.Ident:
		if !s.visible(e.Name) {
			return SemError{Kind: UndefVar, Name: e.Name, Pos: e.Pos}
		}
	case *ast.BinOp:
		err = c.resolveExpr(ctx, e.L, s)
		if err != nil {
			return err
		}

		return c.resolveExpr(ctx, e.R, s)
	case *ast.Call:
		f, ok := c.Funcs[e.Name]
		if !ok {
			return SemError{Kind: UndefFunc, Name: e.Name, Pos: e.Pos}
		}

		if len(e.Args) != len(f.Params) {
			return SemError{Kind: BadArity, Name: e.Name, Pos: e.Pos}
		}

		for _, a := range e.Args {
			err = c.resolveExpr(ctx, a, s)
			if err != nil {
				return err
			}
		}
	default:
		panic(e)
	}

	return nil
}

func newScope(par *scope) *scope {
	return &scope{
		names: map[string]struct{}{},
		par:   par,
	}
}

func (s *scope) declare(name string) {
	s.names[name] = struct{}{}
}

func (s *scope) declared(name string) bool {
	_, ok := s.names[name]

	return ok
}

func (s *scope) visible(name string) bool {
	for q := s; q != nil; q = q.par {
		if q.declared(name) {
			return true
		}
	}

	return false
}

func (e SemError) Error() string {
	var msg string

	switch e.Kind {
	case DupFunc:
		msg = fmt.Sprintf("duplicate function %v", e.Name)
	case DupParam:
		msg = fmt.Sprintf("duplicate parameter %v", e.Name)
	case DupVar:
		msg = fmt.Sprintf("duplicate variable %v in the same block", e.Name)
	case UndefVar:
		msg = fmt.Sprintf("undeclared identifier %v", e.Name)
	case UndefFunc:
		msg = fmt.Sprintf("call to undeclared function %v", e.Name)
	case BadArity:
		msg = fmt.Sprintf("wrong number of arguments to %v", e.Name)
	case NoEntry:
		return fmt.Sprintf("no entry function %v", e.Name)
	default:
		msg = fmt.Sprintf("semantic error %d (%v)", e.Kind, e.Name)
	}

	return fmt.Sprintf("%v at 0x%x", msg, e.Pos)
}

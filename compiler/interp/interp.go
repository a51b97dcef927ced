package interp

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"tlog.app/go/tlog"

	"github.com/linglang/ling/compiler/ast"
	"github.com/linglang/ling/compiler/front"
)

type (
	RunKind int

	RuntimeError struct {
		Kind RunKind
		Name string
		Pos  int
	}

	machine struct {
		c   *front.Checked
		out io.Writer

		depth    int
		maxDepth int
	}

	// scope maps identifiers to values, chained to the enclosing one.
	// A frame or nested block owns its scope exclusively.
	scope struct {
		vars map[string]int64
		par  *scope
	}
)

const (
	DivZero RunKind = iota
	Unbound
	BadArgs
	TooDeep
)

// DefaultMaxDepth bounds call nesting so runaway recursion in source
// programs fails with a reported error.
const DefaultMaxDepth = 1000

// Run binds args positionally to the entry function parameters and
// executes it. Output already written stays written on error.
func Run(ctx context.Context, c *front.Checked, args []int64, stdout io.Writer) error {
	return RunLimited(ctx, c, args, stdout, DefaultMaxDepth)
}

func RunLimited(ctx context.Context, c *front.Checked, args []int64, stdout io.Writer, maxDepth int) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "run", "entry", c.Entry.Name, "args", args)
	defer tr.Finish("err", &err)

	if len(args) != len(c.Entry.Params) {
		return RuntimeError{Kind: BadArgs, Name: c.Entry.Name, Pos: c.Entry.Pos}
	}

	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	m := &machine{
		c:        c,
		out:      stdout,
		maxDepth: maxDepth,
	}

	_, err = m.call(ctx, c.Entry, args)

	return err
}

func (m *machine) call(ctx context.Context, f *ast.Func, args []int64) (res int64, err error) {
	if m.depth++; m.depth > m.maxDepth {
		return 0, RuntimeError{Kind: TooDeep, Name: f.Name, Pos: f.Pos}
	}

	defer func() { m.depth-- }()

	if tr := tlog.SpanFromContext(ctx); tr.If("calls") {
		tr.Printw("call", "func", f.Name, "args", args, "depth", m.depth)
	}

	s := newScope(nil)

	for i, p := range f.Params {
		s.bind(p.Name, args[i])
	}

	ret, err := m.execBlock(ctx, f.Body, s)
	if err != nil {
		return 0, err
	}

	if ret == nil {
		// fell off the end of the body
		return 0, nil
	}

	return *ret, nil
}

// execBlock runs statements in order in a fresh scope nested in par.
// A non-nil ret means a return statement fired and the frame unwinds.
func (m *machine) execBlock(ctx context.Context, b *ast.Block, par *scope) (ret *int64, err error) {
	s := newScope(par)

	for _, stmt := range b.Stmts {
		switch stmt := stmt.(type) {
		case *ast.VarDecl:
			v, err := m.eval(ctx, stmt.X, s)
			if err != nil {
				return nil, err
			}

			s.bind(stmt.Name, v)
		case *ast.If:
			v, err := m.eval(ctx, stmt.Cond, s)
			if err != nil {
				return nil, err
			}

			switch {
			case v != 0:
				ret, err = m.execBlock(ctx, stmt.Then, s)
			case stmt.Else != nil:
				ret, err = m.execBlock(ctx, stmt.Else, s)
			}

			if err != nil {
				return nil, err
			}

			if ret != nil {
				return ret, nil
			}
		case *ast.While:
			for {
				v, err := m.eval(ctx, stmt.Cond, s)
				if err != nil {
					return nil, err
				}

				if v == 0 {
					break
				}

				ret, err = m.execBlock(ctx, stmt.Body, s)
				if err != nil {
					return nil, err
				}

				if ret != nil {
					return ret, nil
				}
			}
		case *ast.Return:
			v, err := m.eval(ctx, stmt.X, s)
			if err != nil {
				return nil, err
			}

			return &v, nil
		case *ast.Print:
			v, err := m.eval(ctx, stmt.X, s)
			if err != nil {
				return nil, err
			}

			_, err = fmt.Fprintf(m.out, "%d\n", v)
			if err != nil {
				return nil, err
			}
		case *ast.ExprStmt:
			_, err := m.eval(ctx, stmt.X, s)
			if err != nil {
				return nil, err
			}
		default:
			panic(stmt)
		}
	}

	return nil, nil
}

func (m *machine) eval(ctx context.Context, e ast.Expr, s *scope) (v int64, err error) {
	switch e := e.(type) {
	case *ast.Lit:
		return e.Value, nil
	case *ast.Ident:
		v, ok := s.lookup(e.Name)
		if !ok {
			// the resolver excludes this, checked anyway
			return 0, RuntimeError{Kind: Unbound, Name: e.Name, Pos: e.Pos}
		}

		return v, nil
	case *ast.BinOp:
		l, err := m.eval(ctx, e.L, s)
		if err != nil {
			return 0, err
		}

		r, err := m.eval(ctx, e.R, s)
		if err != nil {
			return 0, err
		}

		return m.binop(e, l, r)
	case *ast.Call:
		args := make([]int64, len(e.Args))

		for i, a := range e.Args {
			args[i], err = m.eval(ctx, a, s)
			if err != nil {
				return 0, err
			}
		}

		return m.call(ctx, m.c.Funcs[e.Name], args)
	default:
		panic(e)
	}
}

func (m *machine) binop(e *ast.BinOp, l, r int64) (int64, error) {
	switch e.Op {
	case ast.Add:
		return l + r, nil
	case ast.Sub:
		return l - r, nil
	case ast.Mul:
		return l * r, nil
	case ast.Div:
		if r == 0 {
			return 0, RuntimeError{Kind: DivZero, Pos: e.Pos}
		}

		return l / r, nil
	case ast.Eq:
		return b2i(l == r), nil
	case ast.Ne:
		return b2i(l != r), nil
	case ast.Lt:
		return b2i(l < r), nil
	case ast.Gt:
		return b2i(l > r), nil
	default:
		panic(e.Op)
	}
}

func newScope(par *scope) *scope {
	return &scope{
		vars: map[string]int64{},
		par:  par,
	}
}

func (s *scope) bind(name string, v int64) {
	s.vars[name] = v
}

func (s *scope) lookup(name string) (int64, bool) {
	for q := s; q != nil; q = q.par {
		if v, ok := q.vars[name]; ok {
			return v, true
		}
	}

	return 0, false
}

func b2i(c bool) int64 {
	if c {
		return 1
	}

	return 0
}

func (e RuntimeError) Error() string {
	switch e.Kind {
	case DivZero:
		return fmt.Sprintf("division by zero at 0x%x", e.Pos)
	case Unbound:
		return fmt.Sprintf("unbound identifier %v at 0x%x", e.Name, e.Pos)
	case BadArgs:
		return fmt.Sprintf("wrong number of arguments to %v", e.Name)
	case TooDeep:
		return fmt.Sprintf("recursion too deep in %v", e.Name)
	default:
		return "runtime error " + strconv.Itoa(int(e.Kind))
	}
}

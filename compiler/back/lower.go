package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/linglang/ling/compiler/ast"
	"github.com/linglang/ling/compiler/front"
	"github.com/linglang/ling/compiler/ir"
	"github.com/linglang/ling/compiler/set"
)

type (
	lowerer struct {
		p *ir.Package
		f *ir.Func

		init set.Bits // frame slots stored before any load
	}

	slots struct {
		m   map[string]int
		par *slots
	}
)

// Lower turns the checked program into the ir form the emitter
// consumes: frame slots for bindings, labels and branches for control
// flow, one arena expression per AST expression.
func Lower(ctx context.Context, c *front.Checked) (p *ir.Package, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower", "funcs", len(c.Prog.Funcs))
	defer tr.Finish("err", &err)

	p = &ir.Package{Path: "main"}

	for _, fn := range c.Prog.Funcs {
		f, err := lowerFunc(ctx, p, fn)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", fn.Name)
		}

		p.Funcs = append(p.Funcs, f)
	}

	return p, nil
}

func lowerFunc(ctx context.Context, p *ir.Package, fn *ast.Func) (f *ir.Func, err error) {
	tr := tlog.SpanFromContext(ctx)

	l := &lowerer{
		p: p,
		f: &ir.Func{
			Name: fn.Name,
			In:   len(fn.Params),
		},
	}

	sc := &slots{m: map[string]int{}}

	for _, prm := range fn.Params {
		slot := l.slot()
		sc.m[prm.Name] = slot
		l.init.Set(slot)
	}

	err = l.block(ctx, fn.Body, sc)
	if err != nil {
		return nil, err
	}

	if n := len(l.f.Code); n == 0 || !isRet(p, l.f.Code[n-1]) {
		zero := p.Alloc(ir.Imm(0))
		l.emit(ir.Ret{X: zero})
	}

	tr.V("lower").Printw("lowered", "name", fn.Name, "slots", l.f.Slots, "code", len(l.f.Code))

	return l.f, nil
}

func (l *lowerer) block(ctx context.Context, b *ast.Block, par *slots) (err error) {
	sc := &slots{m: map[string]int{}, par: par}

	for _, stmt := range b.Stmts {
		switch stmt := stmt.(type) {
		case *ast.VarDecl:
			x, err := l.expr(ctx, stmt.X, sc)
			if err != nil {
				return err
			}

			slot := l.slot()
			l.emit(ir.Store{Slot: slot, X: x})
			l.init.Set(slot)

			sc.m[stmt.Name] = slot
		case *ast.If:
			err = l.lowerIf(ctx, stmt, sc)
			if err != nil {
				return err
			}
		case *ast.While:
			err = l.lowerWhile(ctx, stmt, sc)
			if err != nil {
				return err
			}
		case *ast.Return:
			x, err := l.expr(ctx, stmt.X, sc)
			if err != nil {
				return err
			}

			l.emit(ir.Ret{X: x})
		case *ast.Print:
			x, err := l.expr(ctx, stmt.X, sc)
			if err != nil {
				return err
			}

			l.emit(ir.Print{X: x})
		case *ast.ExprStmt:
			x, err := l.expr(ctx, stmt.X, sc)
			if err != nil {
				return err
			}

			l.f.Code = append(l.f.Code, x)
		default:
			panic(stmt)
		}
	}

	return nil
}

func (l *lowerer) lowerIf(ctx context.Context, stmt *ast.If, sc *slots) (err error) {
	cond, err := l.expr(ctx, stmt.Cond, sc)
	if err != nil {
		return err
	}

	els := l.f.Label()
	l.emit(ir.BCond{X: cond, Cond: ir.CondZ, Label: els})

	err = l.block(ctx, stmt.Then, sc)
	if err != nil {
		return err
	}

	if stmt.Else == nil {
		l.emit(els)

		return nil
	}

	end := l.f.Label()
	l.emit(ir.B{Label: end})
	l.emit(els)

	err = l.block(ctx, stmt.Else, sc)
	if err != nil {
		return err
	}

	l.emit(end)

	return nil
}

func (l *lowerer) lowerWhile(ctx context.Context, stmt *ast.While, sc *slots) (err error) {
	loop := l.f.Label()
	end := l.f.Label()

	l.emit(loop)

	cond, err := l.expr(ctx, stmt.Cond, sc)
	if err != nil {
		return err
	}

	l.emit(ir.BCond{X: cond, Cond: ir.CondZ, Label: end})

	err = l.block(ctx, stmt.Body, sc)
	if err != nil {
		return err
	}

	l.emit(ir.B{Label: loop})
	l.emit(end)

	return nil
}

func (l *lowerer) expr(ctx context.Context, e ast.Expr, sc *slots) (x ir.Expr, err error) {
	switch e := e.(type) {
	case *ast.Lit:
		return l.p.Alloc(ir.Imm(e.Value)), nil
	case *ast.Ident:
		slot, ok := sc.lookup(e.Name)
		if !ok {
			return ir.Nil, errors.New("no slot for %v", e.Name)
		}

		if !l.init.IsSet(slot) {
			return ir.Nil, errors.New("slot %d read before write", slot)
		}

		return l.p.Alloc(ir.Load(slot)), nil
	case *ast.BinOp:
		return l.binop(ctx, e, sc)
	case *ast.Call:
		c := ir.Call{
			Func: e.Name,
			In:   make([]ir.Expr, len(e.Args)),
		}

		for i, a := range e.Args {
			c.In[i], err = l.expr(ctx, a, sc)
			if err != nil {
				return ir.Nil, err
			}
		}

		return l.p.Alloc(c), nil
	default:
		panic(e)
	}
}

func (l *lowerer) binop(ctx context.Context, e *ast.BinOp, sc *slots) (x ir.Expr, err error) {
	lx, err := l.expr(ctx, e.L, sc)
	if err != nil {
		return ir.Nil, err
	}

	rx, err := l.expr(ctx, e.R, sc)
	if err != nil {
		return ir.Nil, err
	}

	switch e.Op {
	case ast.Add:
		return l.p.Alloc(ir.Add{L: lx, R: rx}), nil
	case ast.Sub:
		return l.p.Alloc(ir.Sub{L: lx, R: rx}), nil
	case ast.Mul:
		return l.p.Alloc(ir.Mul{L: lx, R: rx}), nil
	case ast.Div:
		return l.p.Alloc(ir.Div{L: lx, R: rx}), nil
	case ast.Eq:
		return l.p.Alloc(ir.Cmp{L: lx, R: rx, Cond: ir.CondEQ}), nil
	case ast.Ne:
		return l.p.Alloc(ir.Cmp{L: lx, R: rx, Cond: ir.CondNE}), nil
	case ast.Lt:
		return l.p.Alloc(ir.Cmp{L: lx, R: rx, Cond: ir.CondLT}), nil
	case ast.Gt:
		return l.p.Alloc(ir.Cmp{L: lx, R: rx, Cond: ir.CondGT}), nil
	default:
		panic(e.Op)
	}
}

func (l *lowerer) emit(x any) {
	l.f.Code = append(l.f.Code, l.p.Alloc(x))
}

func (l *lowerer) slot() int {
	s := l.f.Slots
	l.f.Slots++

	return s
}

func (sc *slots) lookup(name string) (int, bool) {
	for q := sc; q != nil; q = q.par {
		if s, ok := q.m[name]; ok {
			return s, true
		}
	}

	return 0, false
}

func isRet(p *ir.Package, id ir.Expr) bool {
	_, ok := p.Exprs[id].(ir.Ret)

	return ok
}

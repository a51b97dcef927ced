// Package format renders a parsed program back as canonical glyph
// source: tabs for nesting, tally literals where they stay readable,
// sigil digits otherwise.
package format

import (
	"context"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/linglang/ling/compiler/ast"
)

const maxTally = 12

var sigils = [...]rune{'∅', '∄', '∃', '∀', '℧', '℥', '℞', '℟', '℣', '℈'}

func Format(ctx context.Context, b []byte, p *ast.Program) (_ []byte, err error) {
	for i, f := range p.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, f *ast.Func) (_ []byte, err error) {
	b = hfmt.Appendf(b, "⟡ %s ⦃", f.Name)

	for i, p := range f.Params {
		if i != 0 {
			b = append(b, ","...)
		}

		b = hfmt.Appendf(b, " %s", p.Name)
	}

	if len(f.Params) != 0 {
		b = append(b, ' ')
	}

	b = append(b, "⦄ ⇒ ⦃\n"...)

	b, err = formatBlock(ctx, b, f.Body, 1)
	if err != nil {
		return nil, err
	}

	b = append(b, "⦄\n"...)

	return b, nil
}

func formatBlock(ctx context.Context, b []byte, blk *ast.Block, d int) (_ []byte, err error) {
	for _, stmt := range blk.Stmts {
		b, err = formatStmt(ctx, b, stmt, d)
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, stmt ast.Stmt, d int) (_ []byte, err error) {
	switch stmt := stmt.(type) {
	case *ast.VarDecl:
		b = app(b, d, "◈ %s ⇐ ", stmt.Name)

		b, err = formatExpr(ctx, b, stmt.X)
		if err != nil {
			return nil, err
		}
	case *ast.If:
		b = app(b, d, "◬ ")

		b, err = formatExpr(ctx, b, stmt.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, " ◭ ⦃\n"...)

		b, err = formatBlock(ctx, b, stmt.Then, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		b = app(b, d, "⦄")

		if stmt.Else != nil {
			b = append(b, " ◮ ⦃\n"...)

			b, err = formatBlock(ctx, b, stmt.Else, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "else")
			}

			b = app(b, d, "⦄")
		}
	case *ast.While:
		b = app(b, d, "⟳ ")

		b, err = formatExpr(ctx, b, stmt.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, " ⦃\n"...)

		b, err = formatBlock(ctx, b, stmt.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		b = app(b, d, "⦄")
	case *ast.Return:
		b = app(b, d, "⟴ ")

		b, err = formatExpr(ctx, b, stmt.X)
		if err != nil {
			return nil, err
		}
	case *ast.Print:
		b = app(b, d, "⟲ ")

		b, err = formatExpr(ctx, b, stmt.X)
		if err != nil {
			return nil, err
		}
	case *ast.ExprStmt:
		b = app(b, d, "")

		b, err = formatExpr(ctx, b, stmt.X)
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported stmt: %T", stmt)
	}

	b = append(b, " ⋄\n"...)

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, e ast.Expr) (_ []byte, err error) {
	switch e := e.(type) {
	case *ast.Lit:
		b = appendLit(b, e.Value)
	case *ast.Ident:
		b = append(b, e.Name...)
	case *ast.BinOp:
		b, err = formatExpr(ctx, b, e.L)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %v ", e.Op)

		b, err = formatExpr(ctx, b, e.R)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	case *ast.Call:
		b = hfmt.Appendf(b, "%s ⦃", e.Name)

		for i, a := range e.Args {
			if i != 0 {
				b = append(b, ","...)
			}

			b = append(b, ' ')

			b, err = formatExpr(ctx, b, a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		if len(e.Args) != 0 {
			b = append(b, ' ')
		}

		b = append(b, "⦄"...)
	default:
		return nil, errors.New("unsupported expr: %T", e)
	}

	return b, nil
}

func appendLit(b []byte, v int64) []byte {
	if v >= 1 && v <= maxTally {
		return append(b, strings.Repeat("⊕", int(v))...)
	}

	var q []rune

	for {
		q = append(q, sigils[v%10])
		v /= 10

		if v == 0 {
			break
		}
	}

	for i := len(q) - 1; i >= 0; i-- {
		b = append(b, string(q[i])...)
	}

	return b
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"

	for d > len(tabs) {
		b = append(b, tabs...)
		d -= len(tabs)
	}

	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)

	return b
}

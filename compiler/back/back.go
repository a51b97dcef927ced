// Package back emits arm64 assembly text for a lowered package.
//
// The output expects a tiny runtime from the linking collaborator:
// _ling_arg (program argument by index), _ling_print (decimal line to
// stdout), _ling_div0 (divide-by-zero trap) and _ling_exit.
package back

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/linglang/ling/compiler/front"
	"github.com/linglang/ling/compiler/ir"
)

type (
	Compiler struct{}

	// LimitError is a program shape the emitter cannot express:
	// too many parameters or arguments for the register convention,
	// or an expression deeper than the scratch-register window.
	LimitError struct {
		What  string
		Limit int
	}

	funContext struct {
		p *ir.Package
		f *ir.Func

		sym string
	}
)

// scratch registers for expression evaluation. X0-X7 carry call
// arguments and results, X9 up hold partial results.
const (
	regBase = 9
	regTop  = 15
)

// Compile lowers the checked program and emits assembly for it.
func (c *Compiler) Compile(ctx context.Context, b []byte, chk *front.Checked) (_ []byte, err error) {
	p, err := Lower(ctx, chk)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	return c.CompilePackage(ctx, b, p)
}

func (c *Compiler) CompilePackage(ctx context.Context, b []byte, p *ir.Package) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile package", "name", p.Path)
	defer tr.Finish("err", &err)

	b = hfmt.Appendf(b, "// package %s\n", p.Path)

	for _, f := range p.Funcs {
		if f.Name != front.EntryName {
			continue
		}

		b = c.emitStart(b, f)
	}

	for _, f := range p.Funcs {
		b = append(b, '\n')

		b, err = c.compileFunc(ctx, b, p, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

// emitStart wires the process entry to the program entry function:
// fetch each argument from the runtime, then call it.
func (c *Compiler) emitStart(b []byte, f *ir.Func) []byte {
	b = append(b, `
.global _start
.align 4
_start:
	STP	FP, LR, [SP, #-16]!
	MOV	FP, SP
`...)

	for i := 0; i < f.In; i++ {
		b = hfmt.Appendf(b, "	MOV	X0, #%d\n	BL	_ling_arg\n	STR	X0, [SP, #-16]!\n", i)
	}

	for i := f.In - 1; i >= 0; i-- {
		b = hfmt.Appendf(b, "	LDR	X%d, [SP], #16\n", i)
	}

	b = hfmt.Appendf(b, `	BL	%s

	MOV	X0, #0
	BL	_ling_exit
`, mangle(f.Name))

	return b
}

func (c *Compiler) compileFunc(ctx context.Context, b []byte, p *ir.Package, f *ir.Func) (_ []byte, err error) {
	tr := tlog.SpanFromContext(ctx)

	fc := &funContext{
		p:   p,
		f:   f,
		sym: mangle(f.Name),
	}

	if tr.If("dump_func") {
		for i, id := range f.Code {
			x := p.Exprs[id]

			tr.Printw("code", "i", i, "id", id, "typ", tlog.NextAsType, x, "val", x)
		}
	}

	b = hfmt.Appendf(b, `.align 4
.global %s
%[1]s:
	STP	FP, LR, [SP, #-16]!
	MOV	FP, SP
	SUB	SP, SP, #%d
`, fc.sym, frameSize(f.Slots))

	for i := 0; i < f.In; i++ {
		if i >= 8 {
			return nil, LimitError{What: "parameters", Limit: 8}
		}

		b = hfmt.Appendf(b, "	STR	X%d, [FP, #%d]\n", i, slotOff(i))
	}

	for _, id := range f.Code {
		switch x := p.Exprs[id].(type) {
		case ir.Label:
			b = hfmt.Appendf(b, "%s:\n", fc.label(x))
		case ir.B:
			b = hfmt.Appendf(b, "	B	%s\n", fc.label(x.Label))
		case ir.BCond:
			b, err = fc.expr(b, 0, x.X)
			if err != nil {
				return nil, err
			}

			op := "CBZ"
			if x.Cond == ir.CondNZ {
				op = "CBNZ"
			}

			b = hfmt.Appendf(b, "	%s	X%d, %s\n", op, regBase, fc.label(x.Label))
		case ir.Store:
			b, err = fc.expr(b, 0, x.X)
			if err != nil {
				return nil, err
			}

			b = hfmt.Appendf(b, "	STR	X%d, [FP, #%d]\n", regBase, slotOff(x.Slot))
		case ir.Print:
			b, err = fc.expr(b, 0, x.X)
			if err != nil {
				return nil, err
			}

			b = hfmt.Appendf(b, "	MOV	X0, X%d\n	BL	_ling_print\n", regBase)
		case ir.Ret:
			b, err = fc.expr(b, 0, x.X)
			if err != nil {
				return nil, err
			}

			b = hfmt.Appendf(b, "	MOV	X0, X%d\n", regBase)
			b = append(b, `	MOV	SP, FP
	LDP	FP, LR, [SP], #16
	RET
`...)
		default:
			b, err = fc.expr(b, 0, id)
			if err != nil {
				return nil, err
			}
		}
	}

	return b, nil
}

// expr emits code evaluating arena expression id into X(regBase+reg),
// using higher scratch registers for partial results.
func (fc *funContext) expr(b []byte, reg int, id ir.Expr) (_ []byte, err error) {
	r := regBase + reg
	if r > regTop {
		return nil, LimitError{What: "expression depth", Limit: regTop - regBase + 1}
	}

	switch x := fc.p.Exprs[id].(type) {
	case ir.Imm:
		b = fc.imm(b, r, int64(x))
	case ir.Load:
		b = hfmt.Appendf(b, "	LDR	X%d, [FP, #%d]\n", r, slotOff(int(x)))
	case ir.Add:
		return fc.binop(b, reg, "ADD", x.L, x.R)
	case ir.Sub:
		return fc.binop(b, reg, "SUB", x.L, x.R)
	case ir.Mul:
		return fc.binop(b, reg, "MUL", x.L, x.R)
	case ir.Div:
		b, err = fc.operands(b, reg, x.L, x.R)
		if err != nil {
			return nil, err
		}

		ok := fc.label(fc.f.Label())

		b = hfmt.Appendf(b, "	CBNZ	X%d, %s\n	BL	_ling_div0\n%s:\n	SDIV	X%d, X%[4]d, X%d\n",
			r+1, ok, ok, r, r+1)
	case ir.Cmp:
		b, err = fc.operands(b, reg, x.L, x.R)
		if err != nil {
			return nil, err
		}

		b = hfmt.Appendf(b, "	CMP	X%d, X%d\n	CSET	X%[1]d, %s\n", r, r+1, strings.ToUpper(string(x.Cond)))
	case ir.Call:
		return fc.call(b, reg, x)
	default:
		panic(x)
	}

	return b, nil
}

func (fc *funContext) binop(b []byte, reg int, op string, l, r ir.Expr) (_ []byte, err error) {
	b, err = fc.operands(b, reg, l, r)
	if err != nil {
		return nil, err
	}

	x := regBase + reg

	b = hfmt.Appendf(b, "	%s	X%d, X%[2]d, X%d\n", op, x, x+1)

	return b, nil
}

func (fc *funContext) operands(b []byte, reg int, l, r ir.Expr) (_ []byte, err error) {
	b, err = fc.expr(b, reg, l)
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}

	b, err = fc.expr(b, reg+1, r)
	if err != nil {
		return nil, errors.Wrap(err, "right")
	}

	return b, nil
}

// call saves live scratch registers, evaluates arguments onto the
// stack, pops them into the argument registers and branches.
func (fc *funContext) call(b []byte, reg int, x ir.Call) (_ []byte, err error) {
	if len(x.In) > 8 {
		return nil, errors.Wrap(LimitError{What: "arguments", Limit: 8}, "call %v", x.Func)
	}

	for j := 0; j < reg; j++ {
		b = hfmt.Appendf(b, "	STR	X%d, [SP, #-16]!\n", regBase+j)
	}

	for _, a := range x.In {
		b, err = fc.expr(b, reg, a)
		if err != nil {
			return nil, err
		}

		b = hfmt.Appendf(b, "	STR	X%d, [SP, #-16]!\n", regBase+reg)
	}

	for i := len(x.In) - 1; i >= 0; i-- {
		b = hfmt.Appendf(b, "	LDR	X%d, [SP], #16\n", i)
	}

	b = hfmt.Appendf(b, "	BL	%s\n	MOV	X%d, X0\n", mangle(x.Func), regBase+reg)

	for j := reg - 1; j >= 0; j-- {
		b = hfmt.Appendf(b, "	LDR	X%d, [SP], #16\n", regBase+j)
	}

	return b, nil
}

func (fc *funContext) imm(b []byte, r int, v int64) []byte {
	b = hfmt.Appendf(b, "	MOV	X%d, #%d\n", r, v&0xffff)

	for sh := 16; v>>uint(sh) != 0; sh += 16 {
		b = hfmt.Appendf(b, "	MOVK	X%d, #%d, LSL #%d\n", r, (v>>uint(sh))&0xffff, sh)
	}

	return b
}

func (e LimitError) Error() string {
	return fmt.Sprintf("%s over the limit of %d", e.What, e.Limit)
}

func (fc *funContext) label(l ir.Label) string {
	return ".L" + fc.sym[1:] + "_" + strconv.Itoa(int(l))
}

func slotOff(slot int) int {
	return -8 * (slot + 1)
}

func frameSize(slots int) int {
	return (slots*8 + 15) / 16 * 16
}

// mangle folds unicode function names into the assembler symbol
// charset, the way the source language names rarely fit it.
func mangle(name string) string {
	var q strings.Builder

	q.WriteByte('_')

	for _, r := range name {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			q.WriteRune(r)
			continue
		}

		fmt.Fprintf(&q, "U%04X_", r)
	}

	return q.String()
}

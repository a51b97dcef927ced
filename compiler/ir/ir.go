package ir

type (
	// Expr indexes the package expression arena.
	Expr int

	Label int
	Cond  string

	Package struct {
		Path string

		Funcs []*Func

		Exprs []any
	}

	// Func code is the statement sequence in execution order; operand
	// expressions live in the arena and are referenced by id.
	Func struct {
		Name string

		In     int // parameters, bound to slots 0..In-1
		Slots  int // frame slots, parameters included
		Labels int

		Code []Expr
	}

	Imm int64

	Load  int // frame slot
	Store struct {
		Slot int
		X    Expr
	}

	Add struct{ L, R Expr }
	Sub struct{ L, R Expr }
	Mul struct{ L, R Expr }
	Div struct{ L, R Expr }

	Cmp struct {
		L, R Expr
		Cond Cond
	}

	Call struct {
		Func string
		In   []Expr
	}

	Print struct{ X Expr }

	Ret struct{ X Expr }

	B struct{ Label Label }

	// BCond branches to Label when X is zero (CondZ) or nonzero (CondNZ).
	BCond struct {
		X     Expr
		Cond  Cond
		Label Label
	}
)

const (
	CondEQ Cond = "eq"
	CondNE Cond = "ne"
	CondLT Cond = "lt"
	CondGT Cond = "gt"

	CondZ  Cond = "z"
	CondNZ Cond = "nz"
)

const Nil Expr = -1

func (p *Package) Alloc(x any) Expr {
	id := Expr(len(p.Exprs))
	p.Exprs = append(p.Exprs, x)

	return id
}

func (f *Func) Label() Label {
	l := Label(f.Labels)
	f.Labels++

	return l
}

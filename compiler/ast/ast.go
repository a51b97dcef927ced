package ast

type (
	// Node is any element of the syntax tree with a source span.
	Node interface {
		Span() (pos, end int)
	}

	// Stmt and Expr are closed sets. Every variant lives in this file,
	// and the resolver, interpreter and backend switch over all of them.
	Stmt interface {
		Node
		stmt()
	}

	Expr interface {
		Node
		expr()
	}

	Base struct {
		Pos int
		End int
	}

	Program struct {
		Funcs []*Func
	}

	Func struct {
		Base `tlog:",embed"`

		Name   string
		Params []Param
		Body   *Block
	}

	Param struct {
		Base `tlog:",embed"`

		Name string
	}

	Block struct {
		Base `tlog:",embed"`

		Stmts []Stmt
	}

	VarDecl struct {
		Base `tlog:",embed"`

		Name string
		X    Expr
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Then *Block
		Else *Block // nil when absent
	}

	While struct {
		Base `tlog:",embed"`

		Cond Expr
		Body *Block
	}

	Return struct {
		Base `tlog:",embed"`

		X Expr
	}

	Print struct {
		Base `tlog:",embed"`

		X Expr
	}

	ExprStmt struct {
		Base `tlog:",embed"`

		X Expr
	}

	Lit struct {
		Base `tlog:",embed"`

		Value int64
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string
	}

	BinOp struct {
		Base `tlog:",embed"`

		Op   Op
		L, R Expr
	}

	Call struct {
		Base `tlog:",embed"`

		Name string
		Args []Expr
	}

	Op int
)

const (
	Add Op = iota
	Sub
	Mul
	Div
	Eq
	Ne
	Lt
	Gt
)

func (b Base) Span() (int, int) { return b.Pos, b.End }

func (*VarDecl) stmt()  {}
func (*If) stmt()       {}
func (*While) stmt()    {}
func (*Return) stmt()   {}
func (*Print) stmt()    {}
func (*ExprStmt) stmt() {}

func (*Lit) expr()   {}
func (*Ident) expr() {}
func (*BinOp) expr() {}
func (*Call) expr()  {}

func (op Op) String() string {
	switch op {
	case Add:
		return "⊞"
	case Sub:
		return "⊟"
	case Mul:
		return "⊠"
	case Div:
		return "⊘"
	case Eq:
		return "⊙"
	case Ne:
		return "≢"
	case Lt:
		return "◁"
	case Gt:
		return "▷"
	}

	return "<bad op>"
}

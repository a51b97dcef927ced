package lex

import (
	"context"
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"tlog.app/go/tlog"
)

type (
	Kind int

	Token struct {
		Kind Kind
		Pos  int
		End  int
		Text string
		Val  int64 // literal value, Number only
	}

	// Error is an unrecognized glyph at a byte position.
	Error struct {
		Pos  int
		Rune rune
	}
)

const (
	EOF Kind = iota
	Ident
	Number

	Func   // ⟡
	Open   // ⦃
	Close  // ⦄
	Arrow  // ⇒
	Var    // ◈
	Assign // ⇐
	Term   // ⋄
	Return // ⟴
	Print  // ⟲
	If     // ◬
	Then   // ◭
	Else   // ◮
	While  // ⟳
	Comma  // ,

	Add // ⊞
	Sub // ⊟
	Mul // ⊠
	Div // ⊘
	Eq  // ⊙
	Ne  // ≢
	Lt  // ◁
	Gt  // ▷
)

var glyphs = map[rune]Kind{
	'⟡': Func,
	'⦃': Open,
	'⦄': Close,
	'⇒': Arrow,
	'◈': Var,
	'⇐': Assign,
	'⋄': Term,
	'⟴': Return,
	'⟲': Print,
	'◬': If,
	'◭': Then,
	'◮': Else,
	'⟳': While,
	',': Comma,
	'⊞': Add,
	'⊟': Sub,
	'⊠': Mul,
	'⊘': Div,
	'⊙': Eq,
	'≢': Ne,
	'◁': Lt,
	'▷': Gt,
}

// sigils are positional base-10 digits.
var sigils = map[rune]int64{
	'∅': 0, '∄': 1, '∃': 2, '∀': 3, '℧': 4,
	'℥': 5, '℞': 6, '℟': 7, '℣': 8, '℈': 9,
}

// han digit and unit glyphs of the numeral notation.
var han = map[rune]int64{
	'零': 0, '〇': 0,
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
	'十': 10, '百': 100, '千': 1000, '万': 10000,
}

// Tokenize scans NFC-normalized source text into a token stream.
// The last token is always EOF. It fails on the first glyph that fits
// no category; it does not recover.
func Tokenize(ctx context.Context, b []byte) (toks []Token, err error) {
	tr := tlog.SpanFromContext(ctx)

	b = norm.NFC.Bytes(b)

	for i := 0; i < len(b); {
		r, w := utf8.DecodeRune(b[i:])

		switch {
		case unicode.IsSpace(r):
			i += w
			continue
		case r == '/':
			e, err := skipComment(b, i)
			if err != nil {
				return nil, err
			}

			i = e
			continue
		}

		var tk Token

		switch {
		case r == '⊕' || r == '⊗':
			tk, i = scanTally(b, i, r)
		case glyphs[r] != 0:
			tk = Token{Kind: glyphs[r], Pos: i, End: i + w, Text: string(r)}
			i += w
		case sigils[r] != 0 || r == '∅':
			tk, i = scanSigils(b, i)
		case han[r] != 0 || r == '零' || r == '〇':
			tk, i = scanHan(b, i)
		case r >= '0' && r <= '9':
			tk, i = scanDecimal(b, i)
		case identStart(r):
			tk, i = scanIdent(b, i)
		default:
			return nil, Error{Pos: i, Rune: r}
		}

		toks = append(toks, tk)
	}

	toks = append(toks, Token{Kind: EOF, Pos: len(b), End: len(b)})

	if tr.If("tokens") {
		for _, tk := range toks {
			tr.Printw("token", "kind", tk.Kind, "pos", tk.Pos, "text", tk.Text, "val", tk.Val)
		}
	}

	return toks, nil
}

// scanTally folds a maximal run of one repeated unit glyph into the
// literal equal to the run length. A lone unit is the literal 1.
func scanTally(b []byte, st int, unit rune) (Token, int) {
	i := st
	n := int64(0)

	for i < len(b) {
		r, w := utf8.DecodeRune(b[i:])
		if r != unit {
			break
		}

		n++
		i += w
	}

	return Token{Kind: Number, Pos: st, End: i, Text: string(b[st:i]), Val: n}, i
}

func scanSigils(b []byte, st int) (Token, int) {
	i := st
	v := int64(0)

	for i < len(b) {
		r, w := utf8.DecodeRune(b[i:])

		d, ok := sigils[r]
		if !ok {
			break
		}

		v = v*10 + d
		i += w
	}

	return Token{Kind: Number, Pos: st, End: i, Text: string(b[st:i]), Val: v}, i
}

// scanHan reads a han numeral run. Digits accumulate into the current
// group; a unit glyph multiplies the group and adds it in, 万 scaling
// everything collected so far.
func scanHan(b []byte, st int) (Token, int) {
	i := st

	var res, cur int64
	digit := false

	for i < len(b) {
		r, w := utf8.DecodeRune(b[i:])

		v, ok := han[r]
		if !ok {
			break
		}

		i += w

		if v < 10 {
			cur = v
			digit = true
			continue
		}

		if !digit && v != 10000 {
			cur = 1
		}

		switch v {
		case 10000:
			res = (res + cur) * 10000
		default:
			res += cur * v
		}

		cur = 0
		digit = false
	}

	return Token{Kind: Number, Pos: st, End: i, Text: string(b[st:i]), Val: res + cur}, i
}

func scanDecimal(b []byte, st int) (Token, int) {
	i := st
	v := int64(0)

	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		v = v*10 + int64(b[i]-'0')
		i++
	}

	return Token{Kind: Number, Pos: st, End: i, Text: string(b[st:i]), Val: v}, i
}

func scanIdent(b []byte, st int) (Token, int) {
	i := st

	for i < len(b) {
		r, w := utf8.DecodeRune(b[i:])
		if !identPart(r) {
			break
		}

		i += w
	}

	return Token{Kind: Ident, Pos: st, End: i, Text: string(b[st:i])}, i
}

func identStart(r rune) bool {
	if _, num := han[r]; num {
		return false
	}

	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || unicode.Is(unicode.Han, r)
}

func identPart(r rune) bool {
	return identStart(r) || r >= '0' && r <= '9'
}

func skipComment(b []byte, st int) (i int, err error) {
	i = st + 1

	if i == len(b) {
		return 0, Error{Pos: st, Rune: '/'}
	}

	switch b[i] {
	case '/':
		for i < len(b) && b[i] != '\n' {
			i++
		}

		return i, nil
	case '*':
		for i++; i+1 < len(b); i++ {
			if b[i] == '*' && b[i+1] == '/' {
				return i + 2, nil
			}
		}

		return 0, Error{Pos: st, Rune: '/'}
	default:
		return 0, Error{Pos: st, Rune: '/'}
	}
}

func (e Error) Error() string {
	return fmt.Sprintf("unrecognized glyph %q at 0x%x", e.Rune, e.Pos)
}

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of file"
	case Ident:
		return "identifier"
	case Number:
		return "number"
	}

	for r, g := range glyphs {
		if g == k {
			return string(r)
		}
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

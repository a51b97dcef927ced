package back

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/linglang/ling/compiler/front"
	"github.com/linglang/ling/compiler/ir"
	"github.com/linglang/ling/compiler/lex"
)

func checked(t *testing.T, src string) *front.Checked {
	t.Helper()

	ctx := context.Background()

	toks, err := lex.Tokenize(ctx, []byte(src))
	require.NoError(t, err)

	p, err := front.Parse(ctx, toks)
	require.NoError(t, err)

	c, err := front.Resolve(ctx, p)
	require.NoError(t, err)

	return c
}

func TestSmoke(t *testing.T) {
	c := checked(t, `
⟡ 商 ⦃ 甲, 乙 ⦄ ⇒ ⦃
	⟴ 甲 ⊘ 乙 ⋄
⦄
⟡ 主 ⦃ 甲 ⦄ ⇒ ⦃
	◬ 甲 ▷ ∅ ◭ ⦃
		⟲ 商 ⦃ 甲, ⊕⊕ ⦄ ⋄
	⦄ ◮ ⦃
		⟲ ∅ ⋄
	⦄ ⋄
⦄
`)

	ctx := context.Background()

	var bc Compiler

	obj, err := bc.Compile(ctx, nil, c)
	if err != nil {
		t.Errorf("compile: %v", err)
	}

	t.Logf("result:\n%s", obj)

	asm := string(obj)

	assert.Contains(t, asm, ".global _start")
	assert.Contains(t, asm, "SDIV")
	assert.Contains(t, asm, "BL\t_ling_print")
	assert.Contains(t, asm, "BL\t_ling_div0")
	assert.Contains(t, asm, "CSET")
}

func TestExprOverRegisterWindow(t *testing.T) {
	// every ⊞ f ⦃ layer claims one more scratch register
	src := "⟡ f ⦃ 甲 ⦄ ⇒ ⦃ ⟴ 甲 ⋄ ⦄\n" +
		"⟡ 主 ⦃⦄ ⇒ ⦃ ⟲ " +
		strings.Repeat("⊕ ⊞ f ⦃ ", 8) +
		"⊕" +
		strings.Repeat(" ⦄", 8) +
		" ⋄ ⦄"

	c := checked(t, src)

	var bc Compiler

	_, err := bc.Compile(context.Background(), nil, c)
	require.Error(t, err)

	var le LimitError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.Equal(t, "expression depth", le.What)
}

func TestTooManyCallArguments(t *testing.T) {
	// the caller comes first so its call site fails before the
	// callee's own parameter check does
	c := checked(t, `
⟡ 主 ⦃⦄ ⇒ ⦃
	⟲ 和 ⦃ ⊕, ⊕, ⊕, ⊕, ⊕, ⊕, ⊕, ⊕, ⊕ ⦄ ⋄
⦄
⟡ 和 ⦃ a, b, c, d, e, f, g, h, i ⦄ ⇒ ⦃
	⟴ a ⊞ i ⋄
⦄
`)

	var bc Compiler

	_, err := bc.Compile(context.Background(), nil, c)
	require.Error(t, err)

	var le LimitError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.Equal(t, "arguments", le.What)
	assert.Equal(t, 8, le.Limit)
}

func TestMangle(t *testing.T) {
	assert.Equal(t, "_count2", mangle("count2"))
	assert.Equal(t, "_U4E3B_", mangle("主"))
	assert.Equal(t, "_U52A0_x", mangle("加x"))
}

func TestLower(t *testing.T) {
	c := checked(t, `
⟡ 主 ⦃⦄ ⇒ ⦃
	◈ 甲 ⇐ ⊕⊕⊕ ⋄
	⟳ 甲 ▷ ∅ ⦃
		⟴ 甲 ⋄
	⦄ ⋄
⦄
`)

	p, err := Lower(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, p.Funcs, 1)

	f := p.Funcs[0]
	assert.Equal(t, "主", f.Name)
	assert.Equal(t, 1, f.Slots)
	assert.NotZero(t, f.Labels)

	// control flow is labels and branches after lowering
	var labels, branches int

	for _, id := range f.Code {
		switch p.Exprs[id].(type) {
		case ir.Label:
			labels++
		case ir.B, ir.BCond:
			branches++
		}
	}

	assert.Equal(t, 2, labels)
	assert.Equal(t, 2, branches)
}

func TestLowerAddsImplicitReturn(t *testing.T) {
	c := checked(t, `
⟡ 主 ⦃⦄ ⇒ ⦃
	⟲ ⊕ ⋄
⦄
`)

	p, err := Lower(context.Background(), c)
	require.NoError(t, err)

	f := p.Funcs[0]
	require.NotEmpty(t, f.Code)

	last := f.Code[len(f.Code)-1]

	ret, ok := p.Exprs[last].(ir.Ret)
	require.True(t, ok)

	imm, ok := p.Exprs[ret.X].(ir.Imm)
	require.True(t, ok)
	assert.Equal(t, int64(0), int64(imm))
}

package format

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linglang/ling/compiler/ast"
	"github.com/linglang/ling/compiler/front"
	"github.com/linglang/ling/compiler/lex"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()

	ctx := context.Background()

	toks, err := lex.Tokenize(ctx, []byte(src))
	require.NoError(t, err)

	p, err := front.Parse(ctx, toks)
	require.NoError(t, err)

	return p
}

func TestFormat(t *testing.T) {
	p := parse(t, `
⟡ 倍 ⦃ 甲 ⦄ ⇒ ⦃ ⟴ 甲 ⊠ ⊕⊕ ⋄ ⦄
⟡ 主 ⦃⦄ ⇒ ⦃
	◈ 乙 ⇐ 百 ⋄
	◬ 乙 ▷ ∅ ◭ ⦃
		⟲ 倍 ⦃ 乙 ⦄ ⋄
	⦄ ◮ ⦃
		⟲ ∅ ⋄
	⦄ ⋄
⦄
`)

	b, err := Format(context.Background(), nil, p)
	require.NoError(t, err)

	want := `⟡ 倍 ⦃ 甲 ⦄ ⇒ ⦃
	⟴ 甲 ⊠ ⊕⊕ ⋄
⦄

⟡ 主 ⦃⦄ ⇒ ⦃
	◈ 乙 ⇐ ∄∅∅ ⋄
	◬ 乙 ▷ ∅ ◭ ⦃
		⟲ 倍 ⦃ 乙 ⦄ ⋄
	⦄ ◮ ⦃
		⟲ ∅ ⋄
	⦄ ⋄
⦄
`

	assert.Equal(t, want, string(b))
}

func TestFormatReparse(t *testing.T) {
	for _, src := range []string{
		"⟡ 主 ⦃⦄ ⇒ ⦃ ⟲ ℈ ⊟ ∀ ⊟ ∃ ⋄ ⦄",
		"⟡ 主 ⦃ 甲, 乙 ⦄ ⇒ ⦃ ⟴ 甲 ⊞ 乙 ⊠ 甲 ⋄ ⦄",
		"⟡ 主 ⦃ 甲 ⦄ ⇒ ⦃ ⟳ 甲 ≢ ∅ ⦃ ⟴ 甲 ⋄ ⦄ ⋄ ⟴ ∅ ⋄ ⦄",
		"⟡ 主 ⦃⦄ ⇒ ⦃ ◈ 甲 ⇐ 二十三 ⋄ ⟲ 甲 ⊘ ⊕⊕ ⋄ ⦄",
	} {
		ctx := context.Background()

		one, err := Format(ctx, nil, parse(t, src))
		require.NoError(t, err, "src %q", src)

		two, err := Format(ctx, nil, parse(t, string(one)))
		require.NoError(t, err, "formatted %q", one)

		assert.Equal(t, string(one), string(two), "src %q", src)
	}
}

func TestFormatDeepNesting(t *testing.T) {
	const depth = 20

	src := "⟡ 主 ⦃⦄ ⇒ ⦃ " +
		strings.Repeat("◬ ⊕ ◭ ⦃ ", depth) +
		"⟲ ⊕ ⋄ " +
		strings.Repeat("⦄ ⋄ ", depth) +
		"⦄"

	ctx := context.Background()

	one, err := Format(ctx, nil, parse(t, src))
	require.NoError(t, err)

	// the innermost statement sits below the indent-constant length
	assert.Contains(t, string(one), "\n"+strings.Repeat("\t", depth+1)+"⟲")

	two, err := Format(ctx, nil, parse(t, string(one)))
	require.NoError(t, err)
	assert.Equal(t, string(one), string(two))
}

func TestAppendLit(t *testing.T) {
	assert.Equal(t, "⊕", string(appendLit(nil, 1)))
	assert.Equal(t, "⊕⊕⊕⊕⊕⊕⊕⊕⊕⊕⊕⊕", string(appendLit(nil, 12)))
	assert.Equal(t, "∄∀", string(appendLit(nil, 13)))
	assert.Equal(t, "∅", string(appendLit(nil, 0)))
	assert.Equal(t, "℧∃", string(appendLit(nil, 42)))
}

package compiler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/linglang/ling/compiler/front"
	"github.com/linglang/ling/compiler/interp"
	"github.com/linglang/ling/compiler/lex"
)

const fib = `
// n番目のフィボナッチ数
⟡ 斐 ⦃ 甲 ⦄ ⇒ ⦃
	◬ 甲 ◁ ⊕⊕ ◭ ⦃
		⟴ 甲 ⋄
	⦄ ⋄
	⟴ 斐 ⦃ 甲 ⊟ ⊕ ⦄ ⊞ 斐 ⦃ 甲 ⊟ ⊕⊕ ⦄ ⋄
⦄

⟡ 主 ⦃ 甲 ⦄ ⇒ ⦃
	⟲ 斐 ⦃ 甲 ⦄ ⋄
⦄
`

func TestRun(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer

	err := Run(ctx, "fib.ling", []byte(fib), []int64{10}, &buf, 0)
	require.NoError(t, err)

	assert.Equal(t, "55\n", buf.String())
}

func TestRunFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "fib.ling")
	require.NoError(t, os.WriteFile(name, []byte(fib), 0o644))

	ctx := context.Background()

	var buf bytes.Buffer

	err := RunFile(ctx, name, []int64{7}, &buf, 0)
	require.NoError(t, err)

	assert.Equal(t, "13\n", buf.String())
}

func TestCompile(t *testing.T) {
	ctx := context.Background()

	obj, err := Compile(ctx, "fib.ling", []byte(fib))
	require.NoError(t, err)

	t.Logf("asm:\n%s", obj)

	asm := string(obj)

	assert.Contains(t, asm, ".global _start")
	assert.Contains(t, asm, "BL\t_U6590_") // the callee symbol is mangled
}

func TestPhaseErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Parse(ctx, "bad.ling", []byte("⟡ 主 ☄"))
	var le lex.Error
	require.True(t, errors.As(err, &le), "got %v", err)

	_, err = Parse(ctx, "bad.ling", []byte("⟡ 主 ⇒"))
	var pe front.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)

	_, err = Check(ctx, "bad.ling", []byte("⟡ 甲 ⦃⦄ ⇒ ⦃ ⟴ ∅ ⋄ ⦄"))
	var se front.SemError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, front.NoEntry, se.Kind)

	var buf bytes.Buffer
	err = Run(ctx, "bad.ling", []byte("⟡ 主 ⦃⦄ ⇒ ⦃ ⟲ ⊕ ⊘ ∅ ⋄ ⦄"), nil, &buf, 0)
	var re interp.RuntimeError
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Equal(t, interp.DivZero, re.Kind)
}

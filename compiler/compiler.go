package compiler

import (
	"context"
	"io"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/linglang/ling/compiler/ast"
	"github.com/linglang/ling/compiler/back"
	"github.com/linglang/ling/compiler/front"
	"github.com/linglang/ling/compiler/interp"
	"github.com/linglang/ling/compiler/lex"
)

func ParseFile(ctx context.Context, name string) (*ast.Program, error) {
	text, err := readFile(ctx, name)
	if err != nil {
		return nil, err
	}

	return Parse(ctx, name, text)
}

func Parse(ctx context.Context, name string, text []byte) (p *ast.Program, err error) {
	toks, err := lex.Tokenize(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "tokenize")
	}

	p, err = front.Parse(ctx, toks)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}

	return p, nil
}

func Check(ctx context.Context, name string, text []byte) (c *front.Checked, err error) {
	p, err := Parse(ctx, name, text)
	if err != nil {
		return nil, err
	}

	c, err = front.Resolve(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "resolve")
	}

	return c, nil
}

func RunFile(ctx context.Context, name string, args []int64, stdout io.Writer, maxDepth int) error {
	text, err := readFile(ctx, name)
	if err != nil {
		return err
	}

	return Run(ctx, name, text, args, stdout, maxDepth)
}

func Run(ctx context.Context, name string, text []byte, args []int64, stdout io.Writer, maxDepth int) (err error) {
	c, err := Check(ctx, name, text)
	if err != nil {
		return err
	}

	err = interp.RunLimited(ctx, c, args, stdout, maxDepth)
	if err != nil {
		return errors.Wrap(err, "run")
	}

	return nil
}

func CompileFile(ctx context.Context, name string) ([]byte, error) {
	text, err := readFile(ctx, name)
	if err != nil {
		return nil, err
	}

	return Compile(ctx, name, text)
}

func Compile(ctx context.Context, name string, text []byte) (obj []byte, err error) {
	c, err := Check(ctx, name, text)
	if err != nil {
		return nil, err
	}

	var bc back.Compiler

	obj, err = bc.Compile(ctx, nil, c)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return obj, nil
}

func readFile(ctx context.Context, name string) ([]byte, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return text, nil
}

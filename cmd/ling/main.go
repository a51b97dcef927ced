package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/linglang/ling/compiler"
	"github.com/linglang/ling/compiler/back"
	"github.com/linglang/ling/compiler/format"
	"github.com/linglang/ling/compiler/front"
	"github.com/linglang/ling/compiler/interp"
	"github.com/linglang/ling/compiler/lex"
)

// exit statuses, one per failing phase
const (
	exitUsage    = 1
	exitLex      = 2
	exitParse    = 3
	exitSemantic = 4
	exitRuntime  = 5
	exitCompile  = 6
)

func main() {
	runCmd := &cli.Command{
		Name:        "run",
		Description: "interpret a program, binding the given integers to the entry parameters",
		Action:      runAct,
		Args:        cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse programs and print them formatted",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "parse and resolve programs without running them",
		Action:      checkAct,
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile programs to arm64 assembly text",
		Action:      compileAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "ling",
		Description: "ling is a tool for running and compiling ling source code",
		Commands: []*cli.Command{
			runCmd,
			parseCmd,
			checkCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func runAct(c *cli.Command) (err error) {
	ctx := rootCtx()
	cfg := loadConfig()

	if len(c.Args) == 0 {
		fail(exitUsage, errors.New("usage: ling run file [args...]"))
	}

	args := make([]int64, len(c.Args)-1)

	for i, a := range c.Args[1:] {
		args[i], err = strconv.ParseInt(a, 10, 64)
		if err != nil {
			fail(exitUsage, errors.Wrap(err, "argument %d", i))
		}
	}

	err = compiler.RunFile(ctx, c.Args[0], args, os.Stdout, cfg.MaxDepth)
	if err != nil {
		fail(phaseExit(err), err)
	}

	return nil
}

func parseAct(c *cli.Command) (err error) {
	ctx := rootCtx()

	for _, a := range c.Args {
		p, err := compiler.ParseFile(ctx, a)
		if err != nil {
			fail(phaseExit(err), errors.Wrap(err, "parse %v", a))
		}

		b, err := format.Format(ctx, nil, p)
		if err != nil {
			fail(exitUsage, errors.Wrap(err, "format %v", a))
		}

		fmt.Printf("%s", b)
	}

	return nil
}

func checkAct(c *cli.Command) (err error) {
	ctx := rootCtx()

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			fail(exitUsage, errors.Wrap(err, "read %v", a))
		}

		_, err = compiler.Check(ctx, a, text)
		if err != nil {
			fail(phaseExit(err), errors.Wrap(err, "check %v", a))
		}
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := rootCtx()

	for _, a := range c.Args {
		obj, err := compiler.CompileFile(ctx, a)
		if err != nil {
			fail(phaseExit(err), errors.Wrap(err, "compile %v", a))
		}

		fmt.Printf("%s", obj)
	}

	return nil
}

func rootCtx() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

// phaseExit maps the first typed phase error in the chain to its
// exit status.
func phaseExit(err error) int {
	var le lex.Error
	var pe front.ParseError
	var de front.DepthError
	var se front.SemError
	var re interp.RuntimeError
	var be back.LimitError

	switch {
	case errors.As(err, &le):
		return exitLex
	case errors.As(err, &pe), errors.As(err, &de):
		return exitParse
	case errors.As(err, &se):
		return exitSemantic
	case errors.As(err, &re):
		return exitRuntime
	case errors.As(err, &be):
		return exitCompile
	default:
		return exitUsage
	}
}

func fail(code int, err error) {
	fmt.Fprintf(os.Stderr, "ling: %v\n", err)
	os.Exit(code)
}

// panda compiles Panda source code into bytecode and runs it in a virtual machine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/dr8co/panda/compiler"
	"github.com/dr8co/panda/lexer"
	"github.com/dr8co/panda/object"
	"github.com/dr8co/panda/parser"
	"github.com/dr8co/panda/repl"
	"github.com/dr8co/panda/vm"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	app := &cli.Command{
		Name:    "panda",
		Usage:   "The Panda programming language",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Compile and execute a Panda script",
				ArgsUsage: "<file>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					file := cmd.Args().First()
					if file == "" {
						return fmt.Errorf("no input file")
					}
					return runFile(file)
				},
			},
			{
				Name:  "repl",
				Usage: "Start the interactive shell",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-color",
						Usage: "Disable syntax highlighting and colored output",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Print timing information for each submission",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					username := ""
					if u, err := user.Current(); err == nil {
						username = u.Username
					}
					cwd, err := os.Getwd()
					if err != nil {
						cwd = "."
					}
					repl.Start(username, repl.Options{
						NoColor: cmd.Bool("no-color"),
						Debug:   cmd.Bool("debug"),
						Root:    cwd,
					})
					return nil
				},
			},
			{
				Name:      "debug",
				Usage:     "Dump the syntax tree or the disassembled bytecode of a script",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "bytecode",
						Usage: "Output format: ast or bytecode",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					file := cmd.Args().First()
					if file == "" {
						return fmt.Errorf("no input file")
					}
					return debugFile(file, cmd.String("format"))
				},
			},
		},
		// Bare "panda" starts the REPL, like the bare interpreter binary.
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				return runFile(cmd.Args().First())
			}
			username := ""
			if u, err := user.Current(); err == nil {
				username = u.Username
			}
			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			repl.Start(username, repl.Options{Root: cwd})
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// compileFile lexes, parses, and compiles a script, resolving its imports
// relative to the script's own directory.
func compileFile(file string) (*compiler.Bytecode, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}

	l := lexer.New(string(source))
	p := parser.New(l)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		for _, msg := range errs {
			fmt.Fprintf(os.Stderr, "parse error: %s\n", msg)
		}
		return nil, fmt.Errorf("%d parse errors", len(errs))
	}

	comp := compiler.NewWithContext(compiler.ImportContext{Root: filepath.Dir(abs)})
	if err := comp.Compile(program); err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	return comp.Bytecode(), nil
}

func runFile(file string) error {
	bytecode, err := compileFile(file)
	if err != nil {
		return err
	}

	machine := vm.New(bytecode)
	if err := machine.Run(); err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	return nil
}

func debugFile(file, format string) error {
	switch format {
	case "ast":
		source, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		l := lexer.New(string(source))
		p := parser.New(l)
		program := p.ParseProgram()
		if errs := p.Errors(); len(errs) != 0 {
			for _, msg := range errs {
				fmt.Fprintf(os.Stderr, "parse error: %s\n", msg)
			}
			return fmt.Errorf("%d parse errors", len(errs))
		}
		fmt.Println(program.String())
		return nil

	case "bytecode":
		bytecode, err := compileFile(file)
		if err != nil {
			return err
		}
		fmt.Print(bytecode.Instructions.String())
		for i, constant := range bytecode.Constants {
			if fn, ok := constant.(*object.CompiledFunction); ok {
				fmt.Printf("CONSTANT %d %s:\n", i, fn.Inspect())
				fmt.Print(fn.Instructions.String())
				continue
			}
			fmt.Printf("CONSTANT %d: %s\n", i, constant.Inspect())
		}
		return nil

	default:
		return fmt.Errorf("unknown debug format %q", format)
	}
}

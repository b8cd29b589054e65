package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"

	"github.com/strager/brainfxxck/bf"
	"github.com/strager/brainfxxck/wasm"
)

// parseError reports a malformed program together with the file it came
// from, e.g. "parse error: hello.bf:3:7: unmatched ']': ...".
type parseError struct {
	file string
	err  *bf.StructuralError
}

func (e *parseError) Error() string {
	return fmt.Sprintf("parse error: %s:%s", e.file, e.err)
}

func (e *parseError) Unwrap() error {
	return e.err
}

type app struct {
	config config
	v      *viper.Viper
	logger *zap.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:      newViper(),
		logger: zap.NewNop(),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	root := &cobra.Command{
		Use:   "brainfxxck",
		Short: "Brainfuck compiler targeting WebAssembly",
		Long: `Brainfuck compiler targeting WebAssembly

Examples:
    brainfxxck run examples/hello.bf
    brainfxxck build -o hello.wasm hello.bf
    brainfxxck eval '++++++++[>++++++++<-]>+.'
    brainfxxck check -v myfile.bf`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	bindOptions(a.v, root.PersistentFlags(), a.config.opts())

	root.AddCommand(
		a.runCommand(),
		a.buildCommand(),
		a.evalCommand(),
		a.checkCommand(),
	)
	return root
}

// setup resolves configuration and installs the logger. It runs before
// every subcommand.
func (a *app) setup() error {
	if err := a.config.load(a.v); err != nil {
		return err
	}
	a.logger = newLogger(a.stderr, a.config.LogFormat, a.config.LogLevel)
	logger := a.logger
	atexit.Register(func() {
		_ = logger.Sync()
	})
	if a.config.ConfigFile != "" {
		a.logger.Debug("Loaded config", zap.String("path", a.config.ConfigFile))
	}
	return nil
}

func (a *app) runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and execute a .bf file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			src, err := readSource(filename)
			if err != nil {
				return err
			}
			module, err := a.compileProgram(filename, src)
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), module)
		},
	}
}

func (a *app) buildCommand() *cobra.Command {
	var output, emit string
	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a .bf file to WebAssembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			filename := args[0]
			if emit != "wasm" && emit != "wat" {
				return errors.Errorf("unknown output format %q; supported formats are wasm, wat", emit)
			}

			outputFile := output
			if outputFile == "" {
				outputFile = strings.TrimSuffix(filename, ".bf") + "." + emit
			}
			a.logger.Debug("Building", zap.String("input", filename), zap.String("output", outputFile))

			src, err := readSource(filename)
			if err != nil {
				return err
			}
			program, err := a.parse(filename, src)
			if err != nil {
				return err
			}

			var artifact []byte
			if emit == "wat" {
				text, err := wasm.CompileToWAT(program, a.codegenOptions())
				if err != nil {
					return errors.Wrap(err, "compilation failed")
				}
				artifact = []byte(text)
			} else {
				artifact, err = a.compile(program)
				if err != nil {
					return err
				}
			}

			if err := os.WriteFile(outputFile, artifact, 0644); err != nil {
				return errors.Wrapf(err, "writing %s", outputFile)
			}
			fmt.Fprintf(a.stdout, "Generated %s (%d bytes)\n", outputFile, len(artifact))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <file> with .bf replaced by the format)")
	cmd.Flags().StringVar(&emit, "emit", "wasm", "Output format: wasm or wat")
	return cmd
}

func (a *app) evalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <code>",
		Short: "Evaluate inline Brainfuck code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := a.compileProgram("<eval>", []byte(args[0]))
			if err != nil {
				return err
			}
			return a.execute(cmd.Context(), module)
		},
	}
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Parse a .bf file and report structural errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			filename := args[0]
			src, err := readSource(filename)
			if err != nil {
				return err
			}
			program, err := a.parse(filename, src)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%s: no errors found\n", filename)
			if a.config.Verbose {
				fmt.Fprintf(a.stdout, "AST: %s\n", bf.ToSExpr(program))
			}
			return nil
		},
	}
}

func readSource(filename string) ([]byte, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	return src, nil
}

func (a *app) codegenOptions() wasm.Options {
	return wasm.Options{TapeSize: a.config.TapeSize}
}

// parse builds the tree for src, optimizing it unless --no-optimize is set.
func (a *app) parse(name string, src []byte) (bf.Program, error) {
	start := time.Now()
	program, err := bf.Parse(src, !a.config.NoOptimize)
	if err != nil {
		var serr *bf.StructuralError
		if errors.As(err, &serr) {
			return bf.Program{}, &parseError{file: name, err: serr}
		}
		return bf.Program{}, err
	}

	stats := program.Stats()
	a.logger.Debug("Parsed program",
		zap.String("file", name),
		zap.Bool("optimized", !a.config.NoOptimize),
		zap.Int("nodes", stats.Nodes),
		zap.Int("loops", stats.Loops),
		zap.Int("max_depth", stats.MaxDepth),
		zap.Duration("elapsed", time.Since(start)))
	return program, nil
}

func (a *app) compile(program bf.Program) ([]byte, error) {
	start := time.Now()
	module, err := wasm.CompileToWASM(program, a.codegenOptions())
	if err != nil {
		return nil, errors.Wrap(err, "compilation failed")
	}
	a.logger.Debug("Generated module", zap.Int("bytes", len(module)), zap.Duration("elapsed", time.Since(start)))
	return module, nil
}

// compileProgram parses and compiles src to a WebAssembly module.
func (a *app) compileProgram(name string, src []byte) ([]byte, error) {
	program, err := a.parse(name, src)
	if err != nil {
		return nil, err
	}
	return a.compile(program)
}

// execute runs module with the process's stdin and stdout, bounded by
// --timeout when it is set.
func (a *app) execute(ctx context.Context, module []byte) error {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	rt, err := wasm.NewRuntime(ctx, wasm.WithLogger(a.logger))
	if err != nil {
		return errors.Wrap(err, "starting runtime")
	}
	defer rt.Close(context.Background())

	result, err := rt.Run(ctx, module, a.stdin, a.stdout)
	if err != nil {
		return errors.Wrap(err, "execution failed")
	}
	a.logger.Debug("Execution finished", zap.Uint32("cursor", result.Cursor))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	cmd := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

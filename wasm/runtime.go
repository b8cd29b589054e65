package wasm

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// ErrTimeout is returned by Run when the context expires before the program
// finishes.
var ErrTimeout = errors.New("program did not finish in time")

// Result is the machine state after a program ran to completion.
type Result struct {
	Tape   []byte
	Cursor uint32
}

// Runtime executes modules produced by CompileToWASM. A Runtime may run many
// modules one after another; it is not safe for concurrent use.
type Runtime struct {
	r      wazero.Runtime
	logger *zap.Logger
}

type Option func(*Runtime)

func WithLogger(logger *zap.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// programIO is the stdin and stdout of one Run. It travels to the host
// functions in the call's context.
type programIO struct {
	in       *bufio.Reader
	out      *bufio.Writer
	writeErr error
}

type programIOKey struct{}

func programIOFrom(ctx context.Context) *programIO {
	return ctx.Value(programIOKey{}).(*programIO)
}

// NewRuntime creates a runtime and registers the "env" host module.
func NewRuntime(ctx context.Context, opts ...Option) (*Runtime, error) {
	rt := &Runtime{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(rt)
	}

	rt.r = wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))

	_, err := rt.r.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(putchar).Export("putchar").
		NewFunctionBuilder().WithFunc(getchar).Export("getchar").
		Instantiate(ctx)
	if err != nil {
		rt.r.Close(ctx)
		return nil, errors.Wrap(err, "registering host functions")
	}

	return rt, nil
}

func putchar(ctx context.Context, c uint32) {
	pio := programIOFrom(ctx)
	if pio.writeErr != nil {
		return
	}
	pio.writeErr = pio.out.WriteByte(byte(c))
}

// getchar returns the next input byte, or -1 once input is exhausted.
func getchar(ctx context.Context) int32 {
	pio := programIOFrom(ctx)
	b, err := pio.in.ReadByte()
	if err != nil {
		return -1
	}
	return int32(b)
}

// Close releases everything the runtime compiled or instantiated.
func (rt *Runtime) Close(ctx context.Context) error {
	return rt.r.Close(ctx)
}

// Run instantiates module and calls its main function with stdin and stdout
// wired to the program's input and output. If ctx has a deadline and it
// passes, Run stops the program and returns an error wrapping ErrTimeout.
func (rt *Runtime) Run(ctx context.Context, module []byte, stdin io.Reader, stdout io.Writer) (Result, error) {
	if stdin == nil {
		stdin = bytes.NewReader(nil)
	}
	pio := &programIO{in: bufio.NewReader(stdin), out: bufio.NewWriter(stdout)}
	ctx = context.WithValue(ctx, programIOKey{}, pio)

	start := time.Now()
	compiled, err := rt.r.CompileModule(ctx, module)
	if err != nil {
		return Result{}, errors.Wrap(err, "compiling module")
	}
	defer compiled.Close(ctx)
	rt.logger.Debug("Compiled module", zap.Int("bytes", len(module)), zap.Duration("elapsed", time.Since(start)))

	mod, err := rt.r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return Result{}, errors.Wrap(err, "instantiating module")
	}
	defer mod.Close(ctx)

	mainFn := mod.ExportedFunction("main")
	if mainFn == nil {
		return Result{}, errors.New("module does not export main")
	}

	start = time.Now()
	results, callErr := mainFn.Call(ctx)
	// Flush whatever the program printed, even if it was stopped.
	if err := pio.out.Flush(); err != nil && pio.writeErr == nil {
		pio.writeErr = err
	}
	if callErr != nil {
		if ctx.Err() != nil {
			return Result{}, errors.Wrapf(ErrTimeout, "after %s", time.Since(start).Round(time.Millisecond))
		}
		return Result{}, errors.Wrap(callErr, "running main")
	}
	if pio.writeErr != nil {
		return Result{}, errors.Wrap(pio.writeErr, "writing output")
	}
	rt.logger.Debug("Program finished", zap.Duration("elapsed", time.Since(start)))

	tape, err := readTape(mod)
	if err != nil {
		return Result{}, err
	}

	return Result{Tape: tape, Cursor: uint32(results[0])}, nil
}

// readTape copies the tape out of the module's memory.
func readTape(mod api.Module) ([]byte, error) {
	global := mod.ExportedGlobal("tape_size")
	if global == nil {
		return nil, errors.New("module does not export tape_size")
	}
	size := uint32(global.Get())

	memory := mod.ExportedMemory("memory")
	if memory == nil {
		return nil, errors.New("module does not export memory")
	}
	view, ok := memory.Read(0, size)
	if !ok {
		return nil, errors.Errorf("tape of %d cells does not fit in memory", size)
	}
	return bytes.Clone(view), nil
}

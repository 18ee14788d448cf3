// Command shaderjit runs shader fixtures through the native compiler and the
// reference interpreter.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/limonvm/shaderjit/internal/asm/arm64"
	"github.com/limonvm/shaderjit/internal/shader"
	"github.com/limonvm/shaderjit/internal/shader/interp"
	"github.com/limonvm/shaderjit/internal/shader/jit"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shaderjit: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] <fixture.yaml>...\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run     Execute fixtures and check expected outputs\n")
	fmt.Fprintf(os.Stderr, "  diff    Run fixtures through both engines on random inputs and compare\n")
}

func run() error {
	if len(os.Args) < 2 {
		usage()
		return fmt.Errorf("command required")
	}
	switch os.Args[1] {
	case "run":
		return cmdRun(os.Args[2:])
	case "diff":
		return cmdDiff(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	engine := fs.String("engine", "auto", "Execution engine: auto, jit or interp")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Parse(args)
	setupLogging(*verbose)

	if fs.NArg() == 0 {
		return fmt.Errorf("run: no fixtures given")
	}
	failed := 0
	for _, path := range fs.Args() {
		if err := runFixture(path, *engine); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("ok   %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d fixtures failed", failed, fs.NArg())
	}
	return nil
}

func runFixture(path, engine string) error {
	f, err := loadFixture(path)
	if err != nil {
		return err
	}
	prog, err := f.Program()
	if err != nil {
		return err
	}
	uniforms, err := f.UniformBlock()
	if err != nil {
		return err
	}
	st, err := f.State()
	if err != nil {
		return err
	}

	switch engine {
	case "interp":
		interp.Run(prog, uniforms, st, f.Entry)
	case "jit", "auto":
		compiled, err := jit.Compile(prog)
		if err != nil {
			if engine == "auto" && errors.Is(err, arm64.ErrUnsupported) {
				slog.Debug("native execution unavailable, using interpreter", "fixture", f.Name)
				interp.Run(prog, uniforms, st, f.Entry)
				break
			}
			return fmt.Errorf("compile: %w", err)
		}
		defer compiled.Close()
		compiled.Run(uniforms, st, f.Entry)
	default:
		return fmt.Errorf("unknown engine %q", engine)
	}

	if len(f.Want) > 0 {
		return f.Check(st)
	}
	for i, v := range st.Output {
		if v != (shader.Vec4{}) {
			fmt.Printf("  o%-2d = %v\n", i, v)
		}
	}
	return nil
}

func cmdDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	iters := fs.Int("n", 1000, "Random input sets per fixture")
	seed := fs.Int64("seed", 1, "Random seed")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Parse(args)
	setupLogging(*verbose)

	if fs.NArg() == 0 {
		return fmt.Errorf("diff: no fixtures given")
	}

	bar := progressbar.DefaultSilent(int64(*iters * fs.NArg()))
	if term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.Default(int64(*iters*fs.NArg()), "diffing")
	}
	rng := rand.New(rand.NewSource(*seed))

	for _, path := range fs.Args() {
		if err := diffFixture(path, *iters, rng, bar); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// diffFixture runs the fixture's program through the compiled and interpreted
// engines on random inputs and fails on the first mismatch.
func diffFixture(path string, iters int, rng *rand.Rand, bar *progressbar.ProgressBar) error {
	f, err := loadFixture(path)
	if err != nil {
		return err
	}
	prog, err := f.Program()
	if err != nil {
		return err
	}
	uniforms, err := f.UniformBlock()
	if err != nil {
		return err
	}
	compiled, err := jit.Compile(prog)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	defer compiled.Close()

	for i := 0; i < iters; i++ {
		var native, reference shader.UnitState
		for r := range native.Input {
			for c := range native.Input[r] {
				native.Input[r][c] = rng.Float32()*4 - 2
			}
		}
		reference.Input = native.Input

		compiled.Run(uniforms, &native, f.Entry)
		interp.Run(prog, uniforms, &reference, f.Entry)

		if err := compareStates(&native, &reference); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		bar.Add(1)
	}
	return nil
}

// compareStates demands bit-identical results from the two engines.
func compareStates(native, reference *shader.UnitState) error {
	for r := range native.Output {
		for c := range native.Output[r] {
			got := math.Float32bits(native.Output[r][c])
			want := math.Float32bits(reference.Output[r][c])
			if got != want {
				return fmt.Errorf("o%d.%c: jit %08x (%v), interp %08x (%v)",
					r, "xyzw"[c], got, native.Output[r][c], want, reference.Output[r][c])
			}
		}
	}
	if native.ConditionalCode != reference.ConditionalCode {
		return fmt.Errorf("condition codes: jit %v, interp %v",
			native.ConditionalCode, reference.ConditionalCode)
	}
	if native.AddressRegisters != reference.AddressRegisters {
		return fmt.Errorf("address registers: jit %v, interp %v",
			native.AddressRegisters, reference.AddressRegisters)
	}
	return nil
}

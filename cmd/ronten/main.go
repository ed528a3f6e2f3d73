// Package main is the ronten command line: judge an answer file against a
// reference, inspect a content load, or print accumulated study time.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/ronten/internal/config"
	"github.com/dgallion1/ronten/internal/judge"
	"github.com/dgallion1/ronten/internal/ledger"
	"github.com/dgallion1/ronten/internal/library"
	"github.com/dgallion1/ronten/internal/parser"
	"github.com/dgallion1/ronten/internal/render"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "check":
		err = runCheck(args[1:], stdin, stdout, stderr)
	case "load":
		err = runLoad(args[1:], stdout, stderr)
	case "time":
		err = runTime(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		printUsage(stderr)
		_, _ = fmt.Fprintf(stderr, "Error: unknown command %q\n", args[0])
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: ronten <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintln(w, "  check  score an answer against a reference and print the diff")
	_, _ = fmt.Fprintln(w, "  load   load study content and print diagnostics")
	_, _ = fmt.Fprintln(w, "  time   print study time for today and yesterday")
}

func runCheck(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ref := fs.String("ref", "", "File holding the reference answer (required)")
	answer := fs.String("answer", "", "File holding the typed answer (default: stdin)")
	method := fs.String("method", string(judge.MethodBlocks), "Scoring method: blocks or indel")
	colorMode := fs.String("color", "auto", "Color output: auto, always or never")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" {
		fs.Usage()
		_, _ = fmt.Fprintln(stderr, "Error: -ref is required")
		return errUsage
	}

	m, err := judge.ParseMethod(*method)
	if err != nil {
		return err
	}
	reference, err := os.ReadFile(*ref)
	if err != nil {
		return fmt.Errorf("read reference: %w", err)
	}
	var candidate []byte
	if *answer == "" {
		candidate, err = io.ReadAll(stdin)
	} else {
		candidate, err = os.ReadFile(*answer)
	}
	if err != nil {
		return fmt.Errorf("read answer: %w", err)
	}

	useColor, err := wantColor(*colorMode, stdout)
	if err != nil {
		return err
	}

	a := judge.New(m).Judge(string(candidate), string(reference))
	_, _ = fmt.Fprintf(stdout, "score: %.2f", a.Score)
	if a.Perfect {
		_, _ = fmt.Fprint(stdout, " (perfect)")
	}
	_, _ = fmt.Fprintf(stdout, "\nmissing: %d  extra: %d\n", a.Summary.Missing, a.Summary.Extra)
	return render.NewTerminal(useColor).Diff(stdout, a.Spans)
}

func wantColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	}
	return false, fmt.Errorf("invalid -color %q", mode)
}

func runLoad(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "", "Directory of outline files (default: configured sources)")
	demo := fs.Bool("demo", false, "Load the built-in demo content")
	tree := fs.Bool("tree", false, "Print the loaded tree instead of diagnostics")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var sources []library.Source
	switch {
	case *demo:
		sources = []library.Source{library.DemoSource{}}
	case *dir != "":
		sources = []library.Source{&library.DirSource{
			Dir:     *dir,
			Options: parser.Options{PDFFallbackPdftotext: true},
			Logger:  log,
		}}
	default:
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		srcs, remote := library.SourcesFromConfig(cfg, log, nil)
		if remote != nil {
			defer remote.Close()
		}
		sources = srcs
	}

	lib := library.New(sources, log, nil)
	diag, err := lib.Reload(context.Background())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if *tree {
		return enc.Encode(lib.Tree())
	}
	return enc.Encode(diag)
}

func runTime(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("time", flag.ContinueOnError)
	fs.SetOutput(stderr)
	driver := fs.String("driver", "", "Ledger driver: sqlite or postgres (default: LEDGER_DRIVER)")
	dsn := fs.String("dsn", "", "Ledger DSN (default: LEDGER_DSN or DATA_DIR/ronten.db)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *driver != "" {
		cfg.LedgerDriver = *driver
	}
	if *dsn != "" {
		cfg.LedgerDSN = *dsn
	}

	ctx := context.Background()
	led, err := ledger.Open(ctx, ledger.Driver(cfg.LedgerDriver), cfg.LedgerTarget())
	if err != nil {
		return err
	}
	defer led.Close()

	today, yesterday, err := led.Totals(ctx, time.Now())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "今日の学習時間: %s\n", ledger.Format(today))
	_, _ = fmt.Fprintf(stdout, "昨日の学習時間: %s\n", ledger.Format(yesterday))
	return nil
}

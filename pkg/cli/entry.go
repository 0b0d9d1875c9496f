package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/lyra-lang/lyra/internal/backend"
	"github.com/lyra-lang/lyra/internal/builtins"
	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/lexer"
	"github.com/lyra-lang/lyra/internal/modules"
	"github.com/lyra-lang/lyra/internal/parser"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/runtime"
)

// BackendName is the default execution backend. Overridable at build
// time: -ldflags "-X github.com/lyra-lang/lyra/pkg/cli.BackendName=walk".
// The lyra.yaml manifest and the -backend flag both take precedence.
var BackendName = backend.CompileBackend

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// isSourceFile checks if a file has a recognized source extension.
func isSourceFile(path string) bool {
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printDiagnostics(errors []*diagnostics.DiagnosticError) {
	color := stderrIsTerminal()
	fmt.Fprintln(os.Stderr, "Processing failed with errors:")
	for _, err := range errors {
		if color {
			fmt.Fprintf(os.Stderr, "- %s%s%s\n", ansiRed, err.Error(), ansiReset)
		} else {
			fmt.Fprintf(os.Stderr, "- %s\n", err.Error())
		}
	}
}

func printRuntimeError() {
	msg := fmt.Sprintf("[%s] %s", diagnostics.ErrR001, runtime.ErrorMessage())
	if stderrIsTerminal() {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", ansiRed, msg, ansiReset)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-backend walk|compile] <file>, or pipe source from stdin\n", os.Args[0])
}

// runSource lexes, parses and executes sourceCode on the selected
// backend. Returns the process exit code.
func runSource(sourceCode, filePath, backendName string, manifest *config.Manifest) int {
	ctx := pipeline.NewPipelineContext(sourceCode)
	ctx.FilePath = filePath

	ctx = pipeline.New(
		&lexer.LexerProcessor{},
		&parser.ParserProcessor{},
	).Run(ctx)
	if ctx.HasErrors() {
		printDiagnostics(ctx.Errors)
		return 1
	}

	execBackend, err := backend.Select(backendName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	loader := modules.NewLoader(execBackend.Name(), manifest)
	opts := backend.Options{
		Table:  builtins.Table(manifest.Capabilities),
		Import: loader.HookFor(filePath),
	}

	runtime.ClearError()
	if _, err := execBackend.Run(ctx, opts); err != nil {
		if ctx.HasErrors() {
			printDiagnostics(ctx.Errors)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		return 1
	}

	if runtime.ErrorActive() {
		printRuntimeError()
		runtime.ClearError()
		return 1
	}
	return 0
}

func readInputFromArgs(args []string) (string, error) {
	if len(args) == 0 {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return "", nil
		}
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(input), nil
	}
	input, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(input), nil
}

func Run() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if len(os.Args) == 2 {
		switch os.Args[1] {
		case "-v", "-version", "--version":
			fmt.Println("lyra " + config.Version)
			return
		case "-h", "-help", "--help":
			usage()
			return
		}
	}

	backendFlag := ""
	var fileArgs []string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-backend" || arg == "--backend":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "Error: -backend needs a value")
				os.Exit(1)
			}
			i++
			backendFlag = args[i]
		case strings.HasPrefix(arg, "-backend=") || strings.HasPrefix(arg, "--backend="):
			backendFlag = arg[strings.Index(arg, "=")+1:]
		case strings.HasPrefix(arg, "-"):
			fmt.Fprintf(os.Stderr, "Error: unknown flag %s\n", arg)
			usage()
			os.Exit(1)
		default:
			fileArgs = append(fileArgs, arg)
		}
	}
	if len(fileArgs) > 1 {
		usage()
		os.Exit(1)
	}

	filePath := ""
	manifestDir := "."
	if len(fileArgs) == 1 {
		abs, err := filepath.Abs(fileArgs[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		filePath = abs
		manifestDir = filepath.Dir(abs)
		if !isSourceFile(filePath) {
			fmt.Fprintf(os.Stderr, "Warning: %s does not have a recognized source extension\n", filepath.Base(filePath))
		}
	}

	manifest, err := config.LoadManifest(manifestDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	// Precedence: flag over manifest over build-time default.
	backendName := BackendName
	if manifest.Backend != "" {
		backendName = manifest.Backend
	}
	if backendFlag != "" {
		backendName = backendFlag
	}

	sourceCode, err := readInputFromArgs(fileArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if sourceCode == "" {
		usage()
		os.Exit(1)
	}

	os.Exit(runSource(sourceCode, filePath, backendName, manifest))
}

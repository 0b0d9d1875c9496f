// Package modules loads source files referenced by the import builtin.
// A loaded module is its file's top-level bindings, exposed as a dict;
// instances are cached per absolute path and carry a UUID used in
// diagnostics.
package modules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/backend"
	"github.com/lyra-lang/lyra/internal/builtins"
	"github.com/lyra-lang/lyra/internal/compiler"
	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/evaluator"
	"github.com/lyra-lang/lyra/internal/ir"
	"github.com/lyra-lang/lyra/internal/lexer"
	"github.com/lyra-lang/lyra/internal/parser"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/runtime"
)

// Module is one loaded instance.
type Module struct {
	ID      uuid.UUID
	Path    string
	Exports runtime.Value // dict of top-level bindings
}

// Loader resolves, sandboxes, runs and caches imported files.
type Loader struct {
	backendName string
	manifest    *config.Manifest

	cache   map[string]*Module
	loading []string // import stack for cycle reporting
}

func NewLoader(backendName string, manifest *config.Manifest) *Loader {
	if manifest == nil {
		manifest = &config.Manifest{}
	}
	return &Loader{
		backendName: backendName,
		manifest:    manifest,
		cache:       map[string]*Module{},
	}
}

// HookFor returns the import hook for code running in fromFile.
// Nested imports resolve relative to the file that wrote them.
func (l *Loader) HookFor(fromFile string) func(spec string, line int) runtime.Value {
	return func(spec string, line int) runtime.Value {
		mod, err := l.Load(fromFile, spec)
		if err != nil {
			runtime.RaiseError(runtime.ErrUndefinedName, line, "import %q: %v", spec, err)
			return runtime.Void()
		}
		return mod.Exports
	}
}

// Load resolves spec relative to fromFile and returns the module,
// running its file on first use.
func (l *Loader) Load(fromFile, spec string) (*Module, error) {
	path, err := l.resolve(fromFile, spec)
	if err != nil {
		return nil, err
	}
	if mod, ok := l.cache[path]; ok {
		return mod, nil
	}
	for _, p := range l.loading {
		if p == path {
			return nil, &diagnostics.DiagnosticError{
				Code:    diagnostics.ErrA002,
				File:    path,
				Message: "circular import: " + strings.Join(append(l.loading, path), " -> "),
			}
		}
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	l.loading = append(l.loading, path)
	defer func() { l.loading = l.loading[:len(l.loading)-1] }()

	mod := &Module{ID: uuid.New(), Path: path}
	mod.Exports, err = l.runModule(path, string(source))
	if err != nil {
		return nil, &diagnostics.DiagnosticError{
			Code:    diagnostics.ErrA001,
			File:    path,
			Message: fmt.Sprintf("module %s (%s): %v", filepath.Base(path), mod.ID, err),
		}
	}
	l.cache[path] = mod
	return mod, nil
}

// resolve turns an import spec into an absolute source path, trying
// the known source extensions when the spec has none.
func (l *Loader) resolve(fromFile, spec string) (string, error) {
	path := spec
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(fromFile), path)
	}
	if filepath.Ext(path) == "" {
		for _, ext := range config.SourceFileExtensions {
			if _, err := os.Stat(path + ext); err == nil {
				path += ext
				break
			}
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// capabilitiesFor looks the module file up in the manifest sandbox;
// unsandboxed modules inherit the project capability set.
func (l *Loader) capabilitiesFor(path string) []string {
	for pattern, caps := range l.manifest.Sandbox {
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return caps
		}
	}
	return l.manifest.Capabilities
}

func (l *Loader) runModule(path, source string) (runtime.Value, error) {
	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = path
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	if ctx.HasErrors() {
		return runtime.Void(), fmt.Errorf("%v", ctx.Errors[0])
	}
	prog, ok := ctx.AstRoot.(*ast.Program)
	if !ok || prog == nil {
		return runtime.Void(), fmt.Errorf("no program parsed from %s", path)
	}

	table := builtins.Table(l.capabilitiesFor(path))
	hook := l.HookFor(path)

	var globals map[string]runtime.Value
	switch l.backendName {
	case backend.WalkBackend:
		ev := evaluator.New(table)
		ev.SetImport(hook)
		ev.Run(prog)
		globals = ev.Globals().Snapshot()
	default:
		mod := compiler.Compile(prog, ctx)
		if ctx.HasErrors() {
			return runtime.Void(), fmt.Errorf("%v", ctx.Errors[0])
		}
		ex := ir.NewExecutor(mod, table)
		ex.SetImport(hook)
		ex.Run()
		globals = ex.Globals()
	}

	if runtime.ErrorActive() {
		msg := runtime.ErrorMessage()
		runtime.ClearError()
		return runtime.Void(), fmt.Errorf("%s", msg)
	}

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)
	exports := runtime.NewDict()
	for _, name := range names {
		exports.Set(name, globals[name])
	}
	return runtime.DictVal(exports), nil
}

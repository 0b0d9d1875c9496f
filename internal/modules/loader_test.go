package modules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lyra-lang/lyra/internal/backend"
	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/runtime"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func exportsOf(t *testing.T, mod *Module) *runtime.Dict {
	t.Helper()
	d := mod.Exports.AsDict()
	if mod.Exports.Tag != runtime.TagDict || d == nil {
		t.Fatalf("exports are not a dict: %s", mod.Exports.Inspect())
	}
	return d
}

func TestLoadCollectsTopLevelBindings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math.lyra", `
pi = 3.14
double = {x -> <- (multiply x 2)}
answer = (multiply 6 7)
`)
	from := filepath.Join(dir, "main.lyra")

	for _, backendName := range []string{backend.WalkBackend, backend.CompileBackend} {
		t.Run(backendName, func(t *testing.T) {
			runtime.ClearError()
			l := NewLoader(backendName, nil)
			mod, err := l.Load(from, "math.lyra")
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			exports := exportsOf(t, mod)
			answer, ok := exports.Get("answer")
			if !ok {
				t.Fatalf("answer not exported, keys: %v", exports.Keys())
			}
			if n := answer.AsInt(); answer.Tag != runtime.TagInt || n != 42 {
				t.Errorf("answer = %s, want 42", answer.Inspect())
			}
			if _, ok := exports.Get("pi"); !ok {
				t.Errorf("pi not exported")
			}
			if _, ok := exports.Get("double"); !ok {
				t.Errorf("double not exported")
			}
		})
	}
}

func TestLoadCachesPerPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "once.lyra", `n = 1`)
	from := filepath.Join(dir, "main.lyra")

	l := NewLoader(backend.CompileBackend, nil)
	first, err := l.Load(from, "once.lyra")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := l.Load(from, "once")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if first != second {
		t.Errorf("same file loaded twice: ids %s and %s", first.ID, second.ID)
	}
}

func TestLoadResolvesWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.lyra", `greeting = "hi"`)
	from := filepath.Join(dir, "main.lyra")

	l := NewLoader(backend.WalkBackend, nil)
	mod, err := l.Load(from, "util")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	g, _ := exportsOf(t, mod).Get("greeting")
	if g.AsString() != "hi" {
		t.Errorf("greeting = %s, want \"hi\"", g.Inspect())
	}
}

func TestNestedImportsResolveRelatively(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "lib")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "inner.lyra", `value = 7`)
	writeFile(t, dir, "outer.lyra", `
inner = (import "lib/inner")
seven = (dict_get inner "value")
`)
	from := filepath.Join(dir, "main.lyra")

	l := NewLoader(backend.CompileBackend, nil)
	mod, err := l.Load(from, "outer")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	seven, ok := exportsOf(t, mod).Get("seven")
	if !ok {
		t.Fatalf("seven not exported")
	}
	if n := seven.AsInt(); seven.Tag != runtime.TagInt || n != 7 {
		t.Errorf("seven = %s, want 7", seven.Inspect())
	}
}

func TestCircularImportFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.lyra", `b = (import "b")`)
	writeFile(t, dir, "b.lyra", `a = (import "a")`)
	from := filepath.Join(dir, "main.lyra")

	l := NewLoader(backend.WalkBackend, nil)
	_, err := l.Load(from, "a")
	if err == nil {
		t.Fatal("expected circular import error")
	}
	if !strings.Contains(err.Error(), "circular import") {
		t.Errorf("error = %v, want mention of circular import", err)
	}
	if runtime.ErrorActive() {
		runtime.ClearError()
		t.Error("error flag left set after failed load")
	}
}

func TestMissingModuleFails(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "main.lyra")

	l := NewLoader(backend.CompileBackend, nil)
	if _, err := l.Load(from, "nope"); err == nil {
		t.Fatal("expected load error for missing file")
	}
}

func TestSandboxRestrictsCapabilities(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "noisy.lyra", `x = (println "side effect")`)
	from := filepath.Join(dir, "main.lyra")

	manifest := &config.Manifest{
		Sandbox: map[string][]string{
			"noisy.lyra": {config.CapabilityTerminal},
		},
	}
	l := NewLoader(backend.WalkBackend, manifest)
	if _, err := l.Load(from, "noisy"); err == nil {
		t.Fatal("expected sandboxed module to fail calling println")
	}

	open := NewLoader(backend.WalkBackend, nil)
	if _, err := open.Load(from, "noisy"); err != nil {
		t.Fatalf("unsandboxed load failed: %v", err)
	}
}

func TestRuntimeErrorInModuleSurfacesAsLoadError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.lyra", `x = (divide 1 0)`)
	from := filepath.Join(dir, "main.lyra")

	l := NewLoader(backend.CompileBackend, nil)
	_, err := l.Load(from, "bad")
	if err == nil {
		t.Fatal("expected division error to surface")
	}
	if !strings.Contains(err.Error(), "division") {
		t.Errorf("error = %v, want division message", err)
	}
	if runtime.ErrorActive() {
		runtime.ClearError()
		t.Error("error flag left set after failed load")
	}
}

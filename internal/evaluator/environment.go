package evaluator

import "github.com/lyra-lang/lyra/internal/runtime"

// Environment is a chained binding scope. Function calls open a new
// frame; inlined blocks (branches, loop bodies) share the frame of the
// enclosing function, so their assignments are function locals.
type Environment struct {
	store map[string]runtime.Value
	outer *Environment
}

func NewEnvironment() *Environment {
	return &Environment{store: map[string]runtime.Value{}}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{store: map[string]runtime.Value{}, outer: outer}
}

func (e *Environment) Get(name string) (runtime.Value, bool) {
	for env := e; env != nil; env = env.outer {
		if v, ok := env.store[name]; ok {
			return v, true
		}
	}
	return runtime.Value{}, false
}

// Set binds name in this frame. Assignments never reach out to an
// enclosing frame: captures are read-only values.
func (e *Environment) Set(name string, v runtime.Value) {
	e.store[name] = v
}

// Snapshot copies this frame's own bindings, without the chain. The
// module loader uses it to collect a loaded file's top level.
func (e *Environment) Snapshot() map[string]runtime.Value {
	out := make(map[string]runtime.Value, len(e.store))
	for k, v := range e.store {
		out[k] = v
	}
	return out
}

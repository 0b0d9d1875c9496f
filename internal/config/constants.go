package config

const SourceFileExt = ".lyra"

// Version is stamped at build time via -ldflags "-X ...config.Version=v1.2.3".
var Version = "dev"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".lyra", ".ly"}

// ManifestFileName is the optional per-project manifest.
const ManifestFileName = "lyra.yaml"

// Names of builtins the compiler treats specially (control flow is
// lowered to branches, never compiled as ordinary calls).
const (
	IfFuncName       = "if"
	WhenFuncName     = "when"
	UnlessFuncName   = "unless"
	CondFuncName     = "cond"
	ElseClauseName   = "else"
	LoopFuncName     = "loop"
	WhileFuncName    = "while"
	BreakFuncName    = "break"
	ContinueFuncName = "continue"
	AndFuncName      = "and"
	OrFuncName       = "or"
	TryFuncName      = "try"
)

// Capability names recognized by the module loader when filtering the
// builtin table for sandboxed modules.
const (
	CapabilityIO       = "io"
	CapabilityTerminal = "terminal"
	CapabilityStorage  = "storage"
)

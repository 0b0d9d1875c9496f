// Package ir defines the control-flow-graph form produced by the
// compiler backend and the executor that runs it. A Func is a list of
// basic blocks over virtual registers; every register has a static
// kind, merge points carry phi rows, and representation changes are
// explicit box/unbox instructions.
package ir

import (
	"github.com/lyra-lang/lyra/internal/runtime"
	"github.com/lyra-lang/lyra/internal/typesystem"
)

// Reg is a virtual register index within a Func frame.
type Reg int

// NoReg marks an absent operand, e.g. a void return.
const NoReg Reg = -1

type Op uint8

const (
	OpConst Op = iota // Dst = Val
	OpMove            // Dst = A

	// Unboxed arithmetic and comparison. Operand kinds are fixed at
	// compile time; mixed int/float never reaches these.
	OpAddInt
	OpSubInt
	OpMulInt
	OpAddFloat
	OpSubFloat
	OpMulFloat
	OpDivFloat // raises the error flag on a zero divisor
	OpRemInt   // raises the error flag on a zero divisor
	OpLessInt
	OpLessFloat
	OpGreaterInt
	OpGreaterFloat
	OpNot
	OpIntToFloat

	// Boxing boundary. Box is a no-op on the universal representation
	// but marks where a value escapes its unboxed kind; the unbox ops
	// verify the tag and raise the error flag on mismatch.
	OpBox
	OpUnboxInt
	OpUnboxFloat
	OpUnboxString

	OpEquals // polymorphic equality over boxed operands

	OpMakeList    // Dst = list of Args
	OpMakeClosure // Dst = closure of FuncID over capture Args

	OpCallBuiltin // Dst = builtin Name applied to Args
	OpCallStatic  // Dst = module function FuncID applied to Args
	OpCallClosure // Dst = closure in A applied to Args

	OpLoadCapture // Dst = captures[Idx]
	OpLoadGlobal  // Dst = globals[Name]; raises the error flag if absent
	OpStoreGlobal // globals[Name] = A

	OpRaise // raise the error flag: Err kind, Name message

	// Error flag plumbing for try blocks.
	OpEnterCatch  // push Target as this frame's handler block
	OpLeaveCatch  // pop the handler
	OpClearFlag   // reset the flag inside a handler
	OpFlagMessage // Dst = the pending error message
)

// Instr is one three-address instruction. Only the fields an Op needs
// are populated.
type Instr struct {
	Op     Op
	Dst    Reg
	A      Reg
	Args   []Reg
	Val    runtime.Value
	Name   string
	FuncID int
	Idx    int
	Target int
	Line   int
	Err    runtime.ErrorKind
}

// PhiSource pairs a predecessor block with the register holding the
// value when control arrives from it.
type PhiSource struct {
	Pred int
	Src  Reg
}

// Phi selects Dst from the source matching the edge actually taken.
type Phi struct {
	Dst     Reg
	Sources []PhiSource
}

type TermKind uint8

const (
	TermJump TermKind = iota
	TermBranch
	TermReturn
)

// Terminator ends a block: an unconditional jump, a two-way branch on
// a register, or a function return.
type Terminator struct {
	Kind TermKind
	Cond Reg // TermBranch
	Then int // TermBranch target / TermJump target
	Else int // TermBranch target
	Val  Reg // TermReturn operand, NoReg for void
}

// Block is a basic block. Phis run first, on entry, keyed by the
// predecessor the edge came from.
type Block struct {
	Index  int
	Phis   []Phi
	Instrs []Instr
	Term   Terminator
}

// Func is one compiled function: params occupy the first NumParams
// registers, captures are a separate indexed environment.
type Func struct {
	ID         int
	Name       string
	NumParams  int
	NumRegs    int
	ParamKinds []typesystem.Kind
	RetKind    typesystem.Kind
	Kinds      []typesystem.Kind // static kind per register
	Captures   []string
	Blocks     []*Block
}

// NewBlock appends an empty block to f and returns it.
func (f *Func) NewBlock() *Block {
	b := &Block{Index: len(f.Blocks)}
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewReg allocates a fresh register with the given static kind.
func (f *Func) NewReg(k typesystem.Kind) Reg {
	r := Reg(f.NumRegs)
	f.NumRegs++
	f.Kinds = append(f.Kinds, k)
	return r
}

// KindOf returns the static kind of r.
func (f *Func) KindOf(r Reg) typesystem.Kind {
	return f.Kinds[r]
}

// Module is a compiled program: an entry function plus the statically
// linked top-level functions it can call by ID.
type Module struct {
	Funcs []*Func
	Entry int
}

// AddFunc registers fn and assigns its ID.
func (m *Module) AddFunc(fn *Func) int {
	fn.ID = len(m.Funcs)
	m.Funcs = append(m.Funcs, fn)
	return fn.ID
}

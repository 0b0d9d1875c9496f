package typesystem

// Kind is the compiler's coarse static type lattice. Unknown is a legal
// result everywhere: it means "decide the representation at lowering
// time from the actual produced value", never an error.
type Kind uint8

const (
	Unknown Kind = iota
	Int
	Float
	String
	Void
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case Void:
		return "Void"
	case Unknown:
		return "Unknown"
	default:
		return "Invalid"
	}
}

// IsNumeric reports whether k participates in the Int < Float
// promotion order.
func (k Kind) IsNumeric() bool {
	return k == Int || k == Float
}

// Merge unifies the kinds of values arriving at a control-flow merge
// point. It returns the least upper bound under Int < Float, with
// String as an incomparable family. Void merges with anything by
// adopting the other side (the void path contributes a zero default).
// Unknown absorbs: if either side's representation is undecided the
// merge stays undecided and both sides are boxed.
//
// The second result is false when the kinds belong to incompatible
// families (e.g. String vs Int), which is a compile-time error at the
// caller.
func Merge(a, b Kind) (Kind, bool) {
	if a == b {
		return a, true
	}
	if a == Void {
		return b, true
	}
	if b == Void {
		return a, true
	}
	if a == Unknown || b == Unknown {
		return Unknown, true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return Float, true
	}
	return Unknown, false
}

// FunctionType is the inferred signature of a function literal.
type FunctionType struct {
	Params []Kind
	Return Kind
}

func (ft *FunctionType) ParamCount() int {
	return len(ft.Params)
}

// Clone returns an independent copy; inference results attached to AST
// nodes are immutable, so consumers that want to experiment must copy.
func (ft *FunctionType) Clone() *FunctionType {
	params := make([]Kind, len(ft.Params))
	copy(params, ft.Params)
	return &FunctionType{Params: params, Return: ft.Return}
}

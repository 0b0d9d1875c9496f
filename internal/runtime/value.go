package runtime

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tag identifies the runtime type of a boxed Value.
type Tag uint8

const (
	TagVoid Tag = iota
	TagInt
	TagFloat
	TagString
	TagList
	TagDict
	TagVariant
	TagRef
	TagClosure
)

func (t Tag) String() string {
	switch t {
	case TagVoid:
		return "void"
	case TagInt:
		return "integer"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagList:
		return "list"
	case TagDict:
		return "dictionary"
	case TagVariant:
		return "variant"
	case TagRef:
		return "reference"
	case TagClosure:
		return "function"
	default:
		return "invalid"
	}
}

// Value is a stack-allocated tagged union: the universal boxed
// representation every polymorphic runtime operation works on.
// Small primitives (Int, Float, Void) live in Data and never touch the
// heap; strings and composites live behind Obj. The tag is always
// consistent with the payload's actual representation.
type Value struct {
	Tag  Tag
	Data uint64 // int64 bits or float64 bits
	Obj  any    // string, *List, *Dict, *Variant, *Ref, or closure handle
}

// Constructors

func Void() Value {
	return Value{Tag: TagVoid}
}

func IntVal(v int64) Value {
	return Value{Tag: TagInt, Data: uint64(v)}
}

func FloatVal(v float64) Value {
	return Value{Tag: TagFloat, Data: math.Float64bits(v)}
}

func StringVal(s string) Value {
	return Value{Tag: TagString, Obj: s}
}

func BoolVal(b bool) Value {
	if b {
		return IntVal(1)
	}
	return IntVal(0)
}

func ListVal(l *List) Value {
	return Value{Tag: TagList, Obj: l}
}

func DictVal(d *Dict) Value {
	return Value{Tag: TagDict, Obj: d}
}

func VariantVal(v *Variant) Value {
	return Value{Tag: TagVariant, Obj: v}
}

func RefVal(r *Ref) Value {
	return Value{Tag: TagRef, Obj: r}
}

// ClosureVal boxes a closure handle. The handle is opaque to this
// package; the interpreter and the compiled-code executor each supply
// their own representation.
func ClosureVal(handle any) Value {
	return Value{Tag: TagClosure, Obj: handle}
}

// Accessors

func (v Value) AsInt() int64 {
	return int64(v.Data)
}

func (v Value) AsFloat() float64 {
	return math.Float64frombits(v.Data)
}

func (v Value) AsString() string {
	s, _ := v.Obj.(string)
	return s
}

func (v Value) AsList() *List {
	l, _ := v.Obj.(*List)
	return l
}

func (v Value) AsDict() *Dict {
	d, _ := v.Obj.(*Dict)
	return d
}

func (v Value) AsVariant() *Variant {
	c, _ := v.Obj.(*Variant)
	return c
}

func (v Value) AsRef() *Ref {
	r, _ := v.Obj.(*Ref)
	return r
}

func (v Value) IsVoid() bool { return v.Tag == TagVoid }

// IsNumeric reports whether v carries an Int or Float tag.
func (v Value) IsNumeric() bool {
	return v.Tag == TagInt || v.Tag == TagFloat
}

// NumericAsFloat widens either numeric representation to float64.
// Only meaningful when IsNumeric.
func (v Value) NumericAsFloat() float64 {
	if v.Tag == TagInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// Truthy implements the language's truth rule: non-zero is true.
// Void is false; every composite is true.
func (v Value) Truthy() bool {
	switch v.Tag {
	case TagVoid:
		return false
	case TagInt:
		return v.AsInt() != 0
	case TagFloat:
		return v.AsFloat() != 0
	case TagString:
		return v.AsString() != ""
	default:
		return true
	}
}

// Inspect returns the printable representation.
func (v Value) Inspect() string {
	switch v.Tag {
	case TagVoid:
		return "[Void]"
	case TagInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case TagFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case TagString:
		return v.AsString()
	case TagList:
		return v.AsList().Inspect()
	case TagDict:
		return v.AsDict().Inspect()
	case TagVariant:
		return v.AsVariant().Inspect()
	case TagRef:
		r := v.AsRef()
		return fmt.Sprintf("[Ref: %s]", r.Value.Inspect())
	case TagClosure:
		return "[Function]"
	default:
		return "<?>"
	}
}

// List is a heterogeneous ordered collection of boxed values.
type List struct {
	Items []Value
}

func (l *List) Inspect() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, item := range l.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.Inspect())
	}
	sb.WriteByte(']')
	return sb.String()
}

// Dict is a string-keyed map of boxed values. Insertion order is kept
// so dict_keys is deterministic.
type Dict struct {
	keys    []string
	entries map[string]Value
}

func NewDict() *Dict {
	return &Dict{entries: make(map[string]Value)}
}

func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.entries[key]
	return v, ok
}

func (d *Dict) Set(key string, v Value) {
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = v
}

func (d *Dict) Has(key string) bool {
	_, ok := d.entries[key]
	return ok
}

func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d *Dict) Len() int {
	return len(d.keys)
}

func (d *Dict) Inspect() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(d.entries[k].Inspect())
	}
	sb.WriteByte('}')
	return sb.String()
}

// Variant is a tagged sum value: (variant "some" 42).
type Variant struct {
	TagName string
	Values  []Value
}

func (c *Variant) Inspect() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(c.TagName)
	for _, v := range c.Values {
		sb.WriteByte(' ')
		sb.WriteString(v.Inspect())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Ref is a mutable cell.
type Ref struct {
	Value Value
}

package runtime

import (
	"strings"
	"testing"
)

func TestVoidNeverEqualsZero(t *testing.T) {
	if Equals(Void(), IntVal(0)) {
		t.Error("void compared equal to integer zero")
	}
	if Equals(Void(), FloatVal(0)) {
		t.Error("void compared equal to float zero")
	}
	if Equals(Void(), StringVal("")) {
		t.Error("void compared equal to empty string")
	}
	if !Equals(Void(), Void()) {
		t.Error("void must equal void")
	}
}

func TestNumericPromotionInEquality(t *testing.T) {
	if !Equals(IntVal(3), FloatVal(3.0)) {
		t.Error("3 must equal 3.0")
	}
	if Equals(IntVal(3), FloatVal(3.5)) {
		t.Error("3 must not equal 3.5")
	}
	if !Equals(IntVal(-7), IntVal(-7)) {
		t.Error("integer self-equality failed")
	}
}

func TestMismatchedFamiliesCompareFalse(t *testing.T) {
	if Equals(IntVal(1), StringVal("1")) {
		t.Error("int compared equal to string")
	}
	l := &List{Items: []Value{IntVal(1)}}
	if Equals(ListVal(l), IntVal(1)) {
		t.Error("list compared equal to int")
	}
}

func TestDeepListEquality(t *testing.T) {
	mk := func(items ...Value) Value {
		return ListVal(&List{Items: items})
	}
	a := mk(IntVal(1), mk(StringVal("x")), FloatVal(2.5))
	b := mk(IntVal(1), mk(StringVal("x")), FloatVal(2.5))
	c := mk(IntVal(1), mk(StringVal("y")), FloatVal(2.5))
	if !Equals(a, b) {
		t.Error("structurally equal lists compared unequal")
	}
	if Equals(a, c) {
		t.Error("different lists compared equal")
	}
	if !Equals(mk(IntVal(2)), mk(FloatVal(2))) {
		t.Error("numeric promotion must apply inside lists")
	}
}

func TestDictEquality(t *testing.T) {
	mk := func(pairs ...any) Value {
		d := NewDict()
		for i := 0; i < len(pairs); i += 2 {
			d.Set(pairs[i].(string), pairs[i+1].(Value))
		}
		return DictVal(d)
	}
	a := mk("x", IntVal(1), "y", StringVal("two"))
	b := mk("y", StringVal("two"), "x", IntVal(1))
	if !Equals(a, b) {
		t.Error("dict equality must ignore insertion order")
	}
	if Equals(a, mk("x", IntVal(1))) {
		t.Error("dicts of different size compared equal")
	}
}

func TestVariantEquality(t *testing.T) {
	some1 := VariantVal(&Variant{TagName: "some", Values: []Value{IntVal(1)}})
	some1b := VariantVal(&Variant{TagName: "some", Values: []Value{IntVal(1)}})
	none := VariantVal(&Variant{TagName: "none"})
	if !Equals(some1, some1b) {
		t.Error("equal variants compared unequal")
	}
	if Equals(some1, none) {
		t.Error("variants with different tags compared equal")
	}
}

func TestRefsCompareByIdentity(t *testing.T) {
	r1 := RefVal(&Ref{Value: IntVal(1)})
	r2 := RefVal(&Ref{Value: IntVal(1)})
	if Equals(r1, r2) {
		t.Error("distinct refs compared equal")
	}
	if !Equals(r1, r1) {
		t.Error("ref self-equality failed")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{IntVal(0), false},
		{IntVal(1), true},
		{IntVal(-1), true},
		{FloatVal(0), false},
		{FloatVal(0.1), true},
		{Void(), false},
		{StringVal(""), false},
		{StringVal("x"), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("Truthy(%s) = %v, want %v", tt.v.Inspect(), got, tt.want)
		}
	}
}

func TestErrorFlagFirstFailureWins(t *testing.T) {
	ClearError()
	RaiseError(ErrDivisionByZero, 3, "divide by zero")
	RaiseError(ErrTypeMismatch, 9, "later failure")
	if !ErrorActive() {
		t.Fatal("flag not raised")
	}
	msg := ErrorMessage()
	if !strings.HasPrefix(msg, string(ErrDivisionByZero)) {
		t.Errorf("message = %q, want leading division by zero", msg)
	}
	ClearError()
	if ErrorActive() {
		t.Error("flag still active after clear")
	}
}

func TestCatchDepthSurvivesClear(t *testing.T) {
	ClearError()
	EnterCatch()
	RaiseError(ErrUndefinedName, 1, "x")
	ClearError()
	if !InCatch() {
		t.Error("catch depth lost across clear")
	}
	LeaveCatch()
	if InCatch() {
		t.Error("catch depth not released")
	}
}

package runtime

// Equals is the single polymorphic equality routine behind the `is`
// builtin. Precedence:
//
//  1. If either value is Void, the comparison is true only if both
//     are Void. Numeric zero is never equal to Void.
//  2. If both are numeric, compare numerically with Int promoted to
//     Float as needed.
//  3. If both are strings, compare by content.
//  4. Lists and dicts compare structurally; variants by tag name then
//     values; refs and closures by reference.
//  5. Mismatched tag families compare false.
func Equals(a, b Value) bool {
	if a.Tag == TagVoid || b.Tag == TagVoid {
		return a.Tag == TagVoid && b.Tag == TagVoid
	}

	if a.IsNumeric() && b.IsNumeric() {
		if a.Tag == TagInt && b.Tag == TagInt {
			return a.AsInt() == b.AsInt()
		}
		return a.NumericAsFloat() == b.NumericAsFloat()
	}

	if a.Tag != b.Tag {
		return false
	}

	switch a.Tag {
	case TagString:
		return a.AsString() == b.AsString()
	case TagList:
		return listsEqual(a.AsList(), b.AsList())
	case TagDict:
		return dictsEqual(a.AsDict(), b.AsDict())
	case TagVariant:
		return variantsEqual(a.AsVariant(), b.AsVariant())
	case TagRef:
		return a.AsRef() == b.AsRef()
	case TagClosure:
		return a.Obj == b.Obj
	default:
		return false
	}
}

func listsEqual(a, b *List) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if !Equals(a.Items[i], b.Items[i]) {
			return false
		}
	}
	return true
}

func dictsEqual(a, b *Dict) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Len() != b.Len() {
		return false
	}
	for _, k := range a.keys {
		bv, ok := b.Get(k)
		if !ok || !Equals(a.entries[k], bv) {
			return false
		}
	}
	return true
}

func variantsEqual(a, b *Variant) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.TagName != b.TagName || len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if !Equals(a.Values[i], b.Values[i]) {
			return false
		}
	}
	return true
}

package value

import "math"

// Plus implements `+`: numeric addition, string/list concatenation, and the
// mixed string+scalar stringify-and-concat rule from spec §4.6. NULL
// propagates unless noted otherwise in spec §3.2.
func Plus(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	switch {
	case a.IsNumeric() && b.IsNumeric():
		return addNumeric(a, b)
	case a.kind == KindString && b.kind == KindString:
		return NewString(a.s + b.s)
	case a.kind == KindString:
		return NewString(a.s + stringifyScalar(b))
	case b.kind == KindString:
		return NewString(stringifyScalar(a) + b.s)
	case a.kind == KindList && b.kind == KindList:
		out := make([]Value, 0, len(a.list)+len(b.list))
		out = append(out, a.list...)
		out = append(out, b.list...)
		return NewList(out)
	case a.kind == KindList:
		return NewList(append(append([]Value{}, a.list...), b))
	case b.kind == KindList:
		return NewList(append([]Value{a}, b.list...))
	case a.kind == KindDate && b.kind == KindDuration:
		return NewDate(Date{t: b.dur.AddToTime(a.dat.t)})
	case a.kind == KindDateTime && b.kind == KindDuration:
		return NewDateTime(DateTime{t: b.dur.AddToTime(a.dtm.t)})
	case a.kind == KindTime && b.kind == KindDuration:
		return NewTime(Time{t: b.dur.AddToTime(a.tim.t)})
	case a.kind == KindDuration && (b.kind == KindDate || b.kind == KindDateTime || b.kind == KindTime):
		return Plus(b, a)
	case a.kind == KindDuration && b.kind == KindDuration:
		return NewDuration(Duration{Months: a.dur.Months + b.dur.Months, Days: a.dur.Days + b.dur.Days, Seconds: a.dur.Seconds + b.dur.Seconds, Nanos: a.dur.Nanos + b.dur.Nanos})
	default:
		return Null
	}
}

func stringifyScalar(v Value) string {
	return v.String()
}

// Minus implements binary `-`. Temporal minus temporal yields a Duration;
// temporal minus duration subtracts a duration.
func Minus(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	switch {
	case a.IsNumeric() && b.IsNumeric():
		return subNumeric(a, b)
	case a.kind == KindDate && b.kind == KindDate:
		return NewDuration(DiffDuration(b.dat.t, a.dat.t))
	case a.kind == KindDateTime && b.kind == KindDateTime:
		return NewDuration(DiffDuration(b.dtm.t, a.dtm.t))
	case a.kind == KindDate && b.kind == KindDuration:
		return NewDate(Date{t: negateDuration(b.dur).AddToTime(a.dat.t)})
	case a.kind == KindDateTime && b.kind == KindDuration:
		return NewDateTime(DateTime{t: negateDuration(b.dur).AddToTime(a.dtm.t)})
	case a.kind == KindTime && b.kind == KindDuration:
		return NewTime(Time{t: negateDuration(b.dur).AddToTime(a.tim.t)})
	case a.kind == KindDuration && b.kind == KindDuration:
		return NewDuration(Duration{Months: a.dur.Months - b.dur.Months, Days: a.dur.Days - b.dur.Days, Seconds: a.dur.Seconds - b.dur.Seconds, Nanos: a.dur.Nanos - b.dur.Nanos})
	default:
		return Null
	}
}

func negateDuration(d Duration) Duration {
	return Duration{Months: -d.Months, Days: -d.Days, Seconds: -d.Seconds, Nanos: -d.Nanos}
}

// Negate implements unary `-`.
func Negate(a Value) Value {
	if a.IsNull() {
		return Null
	}
	switch a.kind {
	case KindInt:
		return NewInt(-a.i)
	case KindFloat:
		return NewFloat(-a.f)
	case KindDuration:
		return NewDuration(negateDuration(a.dur))
	default:
		return Null
	}
}

// Times implements `*`.
func Times(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	if a.IsNumeric() && b.IsNumeric() {
		if a.kind == KindInt && b.kind == KindInt {
			return NewInt(a.i * b.i)
		}
		return floatOrNull(a.Float64() * b.Float64())
	}
	return Null
}

// Div implements `/`. Division by zero returns NULL rather than erroring,
// per spec §7 ("Numeric escape").
func Div(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return Null
	}
	if a.kind == KindInt && b.kind == KindInt {
		if b.i == 0 {
			return Null
		}
		// Integer division truncates, as in Cypher: 7 / 2 = 3.
		return NewInt(a.i / b.i)
	}
	bf := b.Float64()
	if bf == 0 {
		return Null
	}
	return floatOrNull(a.Float64() / bf)
}

// Mod implements `%`. Modulo by zero returns NULL.
func Mod(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return Null
	}
	if a.kind == KindInt && b.kind == KindInt {
		if b.i == 0 {
			return Null
		}
		return NewInt(a.i % b.i)
	}
	bf := b.Float64()
	if bf == 0 {
		return Null
	}
	return floatOrNull(math.Mod(a.Float64(), bf))
}

// Pow implements `^`. The operator is right-associative and binds tighter
// than unary minus; both of those are parser/AST concerns (see pkg/cparse),
// not this function's — Pow only ever sees two already-evaluated operands.
// A negative integer exponent always promotes to Float, per spec §4.2.
func Pow(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return Null
	}
	if a.kind == KindInt && b.kind == KindInt && b.i >= 0 {
		result := int64(1)
		base := a.i
		exp := b.i
		overflowed := false
		for exp > 0 {
			if exp&1 == 1 {
				next := result * base
				if base != 0 && next/base != result {
					overflowed = true
					break
				}
				result = next
			}
			exp >>= 1
			if exp > 0 {
				next := base * base
				if base != 0 && next/base != base {
					overflowed = true
					break
				}
				base = next
			}
		}
		if !overflowed {
			return NewInt(result)
		}
	}
	return floatOrNull(math.Pow(a.Float64(), b.Float64()))
}

// floatOrNull wraps a float64 result, collapsing Inf/NaN to NULL per spec
// §7 ("overflow-to-infinity yield NULL").
func floatOrNull(f float64) Value {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Null
	}
	return NewFloat(f)
}

func addNumeric(a, b Value) Value {
	if a.kind == KindInt && b.kind == KindInt {
		sum := a.i + b.i
		// overflow check: sign of operands agrees but result sign differs
		if (a.i > 0 && b.i > 0 && sum < 0) || (a.i < 0 && b.i < 0 && sum > 0) {
			return floatOrNull(float64(a.i) + float64(b.i))
		}
		return NewInt(sum)
	}
	return floatOrNull(a.Float64() + b.Float64())
}

func subNumeric(a, b Value) Value {
	if a.kind == KindInt && b.kind == KindInt {
		return NewInt(a.i - b.i)
	}
	return floatOrNull(a.Float64() - b.Float64())
}

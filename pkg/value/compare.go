package value

import (
	"fmt"
	"sort"
	"strings"
)

// Equals implements `=`/`<>` with NULL propagation: NULL compared against
// anything (including NULL) returns NULL, per spec §3.2/§4.6, except this
// function is also used internally by grouping/distinct code that wants a
// plain bool — for that, use RawEquals.
func Equals(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	return NewBool(RawEquals(a, b))
}

// RawEquals is Cypher value equality ignoring three-valued-logic NULL
// propagation: NULL equals NULL here. Used for Distinct, Aggregate grouping,
// and Union deduplication, which need a total equality relation rather than
// a three-valued one.
func RawEquals(a, b Value) bool {
	if a.kind == KindNull && b.kind == KindNull {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return a.Float64() == b.Float64()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindDate:
		return a.dat.t.Equal(b.dat.t)
	case KindDateTime:
		return a.dtm.t.Equal(b.dtm.t)
	case KindTime:
		return a.tim.t.Equal(b.tim.t)
	case KindDuration:
		return a.dur == b.dur
	case KindPoint:
		return a.pt == b.pt
	case KindDistance:
		return a.f == b.f
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !RawEquals(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.mp) != len(b.mp) {
			return false
		}
		for k, av := range a.mp {
			bv, ok := b.mp[k]
			if !ok || !RawEquals(av, bv) {
				return false
			}
		}
		return true
	case KindNode:
		return a.node != nil && b.node != nil && a.node.ID == b.node.ID
	case KindEdge:
		return a.edge != nil && b.edge != nil && a.edge.ID == b.edge.ID
	case KindPath:
		return a.path == b.path
	default:
		return false
	}
}

// LessThan implements `<` with Cypher's ordering rules: numeric cross-type
// comparison, lexicographic strings, lexicographic lists, chronological
// temporals. Any other combination (including comparing across unrelated
// types) returns NULL rather than an arbitrary answer, per spec §4.6
// ("Comparison ops use the Value system's ordering; NULL in either operand
// returns NULL" — extended here to "undefined comparison returns NULL").
func LessThan(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	if a.IsNumeric() && b.IsNumeric() {
		return NewBool(a.Float64() < b.Float64())
	}
	if a.kind != b.kind {
		return Null
	}
	switch a.kind {
	case KindString:
		return NewBool(a.s < b.s)
	case KindBool:
		return NewBool(!a.b && b.b)
	case KindDate:
		return NewBool(a.dat.t.Before(b.dat.t))
	case KindDateTime:
		return NewBool(a.dtm.t.Before(b.dtm.t))
	case KindTime:
		return NewBool(a.tim.t.Before(b.tim.t))
	case KindDuration:
		return NewBool(a.dur.InSeconds() < b.dur.InSeconds())
	case KindList:
		for i := 0; i < len(a.list) && i < len(b.list); i++ {
			lt := LessThan(a.list[i], b.list[i])
			if lt.IsNull() {
				return Null
			}
			if lt.AsBool() {
				return NewBool(true)
			}
			gt := LessThan(b.list[i], a.list[i])
			if !gt.IsNull() && gt.AsBool() {
				return NewBool(false)
			}
		}
		return NewBool(len(a.list) < len(b.list))
	default:
		return Null
	}
}

// typeRank fixes a total order across Kinds for ORDER BY, which (unlike
// WHERE predicates) must produce a deterministic order even across mixed
// types instead of propagating NULL. NULL falls to the default branch and
// ranks above every other kind.
func typeRank(k Kind) int {
	switch k {
	case KindMap:
		return 0
	case KindNode:
		return 1
	case KindEdge:
		return 2
	case KindPath:
		return 3
	case KindList:
		return 4
	case KindString:
		return 5
	case KindBool:
		return 6
	case KindInt, KindFloat, KindDistance:
		return 7
	case KindDate, KindDateTime, KindTime, KindDuration:
		return 8
	case KindPoint:
		return 9
	default:
		return 10
	}
}

// CompareForOrder is a total order used by the Sort operator: returns <0, 0,
// or >0. NULL carries the highest type rank, which gives the spec's ordering
// ("NULLs are last in ASC, first in DESC") once the Sort operator flips the
// comparator's sign for descending keys.
func CompareForOrder(a, b Value) int {
	if a.kind != b.kind {
		if a.IsNumeric() && b.IsNumeric() {
			af, bf := a.Float64(), b.Float64()
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
		return typeRank(a.kind) - typeRank(b.kind)
	}
	lt := LessThan(a, b)
	if !lt.IsNull() && lt.AsBool() {
		return -1
	}
	gt := LessThan(b, a)
	if !gt.IsNull() && gt.AsBool() {
		return 1
	}
	if RawEquals(a, b) {
		return 0
	}
	return strings.Compare(a.String(), b.String())
}

// HashKey produces a canonical string encoding of a value suitable for use
// as a hash-map key in grouping (Aggregate) and deduplication (Distinct,
// Union). Node/Edge hash on
// their stable id rather than their (possibly stale) property snapshot, per
// the design note in spec §9 ("do not use default reference equality for
// nodes/edges in aggregation groups — use the stable id").
func HashKey(v Value) string {
	var sb strings.Builder
	writeHashKey(&sb, v)
	return sb.String()
}

func writeHashKey(sb *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		sb.WriteString("n:")
	case KindBool:
		fmt.Fprintf(sb, "b:%t", v.b)
	case KindInt:
		fmt.Fprintf(sb, "i:%g", float64(v.i))
	case KindFloat:
		fmt.Fprintf(sb, "i:%g", v.f)
	case KindString:
		fmt.Fprintf(sb, "s:%q", v.s)
	case KindDate:
		fmt.Fprintf(sb, "d:%s", v.dat.String())
	case KindDateTime:
		fmt.Fprintf(sb, "dt:%s", v.dtm.String())
	case KindTime:
		fmt.Fprintf(sb, "tm:%s", v.tim.String())
	case KindDuration:
		fmt.Fprintf(sb, "du:%v", v.dur)
	case KindPoint:
		fmt.Fprintf(sb, "pt:%v", v.pt)
	case KindDistance:
		fmt.Fprintf(sb, "dist:%g", v.f)
	case KindList:
		sb.WriteString("l[")
		for i, e := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeHashKey(sb, e)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteString("m{")
		keys := make([]string, 0, len(v.mp))
		for k := range v.mp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(sb, "%q:", k)
			writeHashKey(sb, v.mp[k])
		}
		sb.WriteByte('}')
	case KindNode:
		fmt.Fprintf(sb, "N:%s", v.node.ID)
	case KindEdge:
		fmt.Fprintf(sb, "E:%s", v.edge.ID)
	case KindPath:
		sb.WriteString("P:")
		for _, n := range v.path.Nodes {
			fmt.Fprintf(sb, "%s>", n.ID)
		}
	}
}

// HashKeyAll combines several values into one grouping key (used for
// multi-expression GROUP BY and for Distinct over the whole binding map).
func HashKeyAll(vs []Value) string {
	var sb strings.Builder
	for i, v := range vs {
		if i > 0 {
			sb.WriteByte('|')
		}
		writeHashKey(&sb, v)
	}
	return sb.String()
}

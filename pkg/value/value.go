// Package value implements the Cypher value system: a tagged union over the
// scalar, temporal, spatial, and structural types an openCypher expression
// can produce, plus the algebra (equality, ordering, arithmetic, temporal
// math) that operates on it.
//
// Values are immutable once constructed. NULL propagates through arithmetic
// and comparison; the exceptions (OR/AND short-circuiting per
// three-valued logic) live in the executor's expression evaluator, not here,
// since they require evaluating operands lazily.
//
// Node, Edge, and Path also live in this package rather than in pkg/graph:
// a Value's Node/Edge/Path variants are values in their own right (you can
// RETURN a node), and pkg/graph needs to store property values, so placing
// the entity types here avoids an import cycle between the store and the
// value system.
package value

import "fmt"

// Kind discriminates the tagged union. The zero value is KindNull so a
// zero Value is NULL, matching Cypher's "missing means NULL" convention.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindDate
	KindDateTime
	KindTime
	KindDuration
	KindPoint
	KindDistance
	KindList
	KindMap
	KindPath
	KindNode
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Boolean"
	case KindInt:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindDate:
		return "Date"
	case KindDateTime:
		return "DateTime"
	case KindTime:
		return "Time"
	case KindDuration:
		return "Duration"
	case KindPoint:
		return "Point"
	case KindDistance:
		return "Distance"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindPath:
		return "Path"
	case KindNode:
		return "Node"
	case KindEdge:
		return "Relationship"
	default:
		return "Unknown"
	}
}

// Value is the Cypher tagged-union value. It is passed by value; the slice
// and map fields are shared references, so callers must not mutate a List
// or Map payload obtained from a Value without copying it first.
type Value struct {
	kind Kind

	b   bool
	i   int64
	f   float64
	s   string
	dat Date
	dtm DateTime
	tim Time
	dur Duration
	pt  Point

	list []Value
	mp   map[string]Value
	path *Path
	node *Node
	edge *Edge
}

// Null is the singleton NULL value.
var Null = Value{kind: KindNull}

func NewBool(b bool) Value     { return Value{kind: KindBool, b: b} }
func NewInt(i int64) Value     { return Value{kind: KindInt, i: i} }
func NewFloat(f float64) Value { return Value{kind: KindFloat, f: f} }
func NewString(s string) Value { return Value{kind: KindString, s: s} }

func NewDate(d Date) Value         { return Value{kind: KindDate, dat: d} }
func NewDateTime(t DateTime) Value { return Value{kind: KindDateTime, dtm: t} }
func NewTime(t Time) Value         { return Value{kind: KindTime, tim: t} }
func NewDuration(d Duration) Value { return Value{kind: KindDuration, dur: d} }
func NewPoint(p Point) Value       { return Value{kind: KindPoint, pt: p} }
func NewDistance(meters float64) Value {
	return Value{kind: KindDistance, f: meters}
}

// NewList copies the supplied slice so the Value owns a stable backing array.
func NewList(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// NewMap copies the supplied map so the Value owns its entries.
func NewMap(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, mp: cp}
}

func NewPath(p *Path) Value { return Value{kind: KindPath, path: p} }
func NewNode(n *Node) Value { return Value{kind: KindNode, node: n} }
func NewEdge(e *Edge) Value { return Value{kind: KindEdge, edge: e} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsTruthy implements Cypher's three-valued-logic truthiness test: only
// Bool(true) is truthy; NULL and Bool(false) are not, and any other type is
// a type error at the call site (the evaluator checks Kind() itself).
func (v Value) IsTruthy() bool { return v.kind == KindBool && v.b }

// AsBool, AsInt, ... are raw accessors; callers must check Kind() first.
func (v Value) AsBool() bool           { return v.b }
func (v Value) AsInt() int64           { return v.i }
func (v Value) AsFloat() float64       { return v.f }
func (v Value) AsString() string       { return v.s }
func (v Value) AsDate() Date           { return v.dat }
func (v Value) AsDateTime() DateTime   { return v.dtm }
func (v Value) AsTime() Time           { return v.tim }
func (v Value) AsDuration() Duration   { return v.dur }
func (v Value) AsPoint() Point         { return v.pt }
func (v Value) AsDistanceMeters() float64 { return v.f }
func (v Value) AsList() []Value        { return v.list }
func (v Value) AsMap() map[string]Value { return v.mp }
func (v Value) AsPath() *Path          { return v.path }
func (v Value) AsNode() *Node          { return v.node }
func (v Value) AsEdge() *Edge          { return v.edge }

// IsNumeric reports whether the value is an Int or Float (the two types
// cross-comparable and cross-arithmetic per spec §3.2).
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Float64 returns the value as a float64 regardless of whether it is backed
// by Int or Float. Only valid when IsNumeric() is true.
func (v Value) Float64() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// String renders a value for diagnostics (EXPLAIN output, error messages).
// It is not the Cypher toString() function — see the executor's builtin
// function library for that, which must match Cypher's literal syntax.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindDate:
		return v.dat.String()
	case KindDateTime:
		return v.dtm.String()
	case KindTime:
		return v.tim.String()
	case KindDuration:
		return v.dur.String()
	case KindPoint:
		return v.pt.String()
	case KindDistance:
		return fmt.Sprintf("%gm", v.f)
	case KindList:
		return fmt.Sprintf("%v", v.list)
	case KindMap:
		return fmt.Sprintf("%v", v.mp)
	case KindPath:
		return fmt.Sprintf("path[%d]", len(v.path.Nodes))
	case KindNode:
		return fmt.Sprintf("node(%s)", v.node.ID)
	case KindEdge:
		return fmt.Sprintf("edge(%s)", v.edge.ID)
	default:
		return "?"
	}
}

// ToNative converts a Value to the nearest plain Go type, the moral
// equivalent of the spec's `to_python_native`. Round-tripping via FromNative
// is only guaranteed for the "survivor" types named in the spec's testable
// property 4 (scalars, lists/maps of survivors, temporals, points) — Node,
// Edge, and Path are returned as themselves since they have no native Go
// scalar form.
func (v Value) ToNative() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindDate:
		return v.dat
	case KindDateTime:
		return v.dtm
	case KindTime:
		return v.tim
	case KindDuration:
		return v.dur
	case KindPoint:
		return v.pt
	case KindDistance:
		return v.f
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToNative()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.mp))
		for k, item := range v.mp {
			out[k] = item.ToNative()
		}
		return out
	case KindPath:
		return v.path
	case KindNode:
		return v.node
	case KindEdge:
		return v.edge
	default:
		return nil
	}
}

// FromNative converts a plain Go value (as produced by the embedding API's
// node/edge factory helpers, per spec §6.2) into a Value. A map whose shape
// matches a point (see pointShape) becomes a Point; any other map becomes a
// Map. Unsupported types return ErrTypeMismatch.
func FromNative(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return x, nil
	case bool:
		return NewBool(x), nil
	case int:
		return NewInt(int64(x)), nil
	case int32:
		return NewInt(int64(x)), nil
	case int64:
		return NewInt(x), nil
	case float32:
		return NewFloat(float64(x)), nil
	case float64:
		return NewFloat(x), nil
	case string:
		return NewString(x), nil
	case Date:
		return NewDate(x), nil
	case DateTime:
		return NewDateTime(x), nil
	case Time:
		return NewTime(x), nil
	case Duration:
		return NewDuration(x), nil
	case Point:
		return NewPoint(x), nil
	case []any:
		items := make([]Value, len(x))
		for i, e := range x {
			cv, err := FromNative(e)
			if err != nil {
				return Null, err
			}
			items[i] = cv
		}
		return NewList(items), nil
	case map[string]any:
		if p, ok := pointShape(x); ok {
			return NewPoint(p), nil
		}
		m := make(map[string]Value, len(x))
		for k, e := range x {
			cv, err := FromNative(e)
			if err != nil {
				return Null, err
			}
			m[k] = cv
		}
		return NewMap(m), nil
	default:
		return Null, fmt.Errorf("%w: %T", ErrTypeMismatch, v)
	}
}

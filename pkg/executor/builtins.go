package executor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/corvid-graph/corvid/pkg/ast"
	"github.com/corvid-graph/corvid/pkg/value"
)

// timeLike unifies Date, Time, and DateTime for functions (truncate,
// duration.between) that operate on whichever temporal kind they're given.
type timeLike interface {
	Time() time.Time
}

// timeNow is the only place in the executor that calls time.Now, so the
// no-argument temporal constructors (date(), time(), datetime()) share a
// single clock source.
func timeNow() time.Time { return time.Now() }

func timeBuildFromComponents(m map[string]value.Value) time.Time {
	y := componentInt(m, "year")
	if y == 0 {
		y = timeNow().Year()
	}
	mo := componentInt(m, "month")
	if mo == 0 {
		mo = 1
	}
	d := componentInt(m, "day")
	if d == 0 {
		d = 1
	}
	return time.Date(y, time.Month(mo), d,
		componentInt(m, "hour"), componentInt(m, "minute"), componentInt(m, "second"),
		componentInt(m, "nanosecond"), time.UTC)
}

// evalFunctionCall dispatches a FunctionCall node on its uppercased name,
// per spec §4.6's built-in library. Namespaced functions (date.truncate,
// duration.between, ...) are matched on the dotted name uppercased the same
// way, since Cypher function names are case-insensitive.
func (c evalContext) evalFunctionCall(f ast.FunctionCall, row Row) (value.Value, error) {
	name := strings.ToUpper(f.Name)

	// COALESCE short-circuits: stop at the first non-NULL argument instead
	// of evaluating (and potentially erroring on) the rest.
	if name == "COALESCE" {
		for _, arg := range f.Args {
			v, err := c.eval(arg, row)
			if err != nil {
				return value.Null, err
			}
			if !v.IsNull() {
				return v, nil
			}
		}
		return value.Null, nil
	}

	args := make([]value.Value, len(f.Args))
	for i, a := range f.Args {
		v, err := c.eval(a, row)
		if err != nil {
			return value.Null, err
		}
		args[i] = v
	}

	switch name {
	case "SIZE", "LENGTH":
		return builtinSize(args)
	case "HEAD":
		return builtinHead(args)
	case "TAIL":
		return builtinTail(args)
	case "LAST":
		return builtinLast(args)
	case "REVERSE":
		return builtinReverse(args)
	case "RANGE":
		return builtinRange(args)
	case "KEYS":
		return builtinKeys(args)
	case "LABELS":
		return builtinLabels(args)
	case "TYPE":
		return builtinType(args)
	case "NODES":
		return builtinNodes(args)
	case "RELATIONSHIPS":
		return builtinRelationships(args)
	case "PROPERTIES":
		return builtinProperties(args)
	case "ID":
		return builtinID(args)

	case "SUBSTRING":
		return builtinSubstring(args)
	case "SPLIT":
		return builtinSplit(args)
	case "REPLACE":
		return builtinReplace(args)
	case "LEFT":
		return builtinLeft(args)
	case "RIGHT":
		return builtinRight(args)
	case "LTRIM":
		return builtinTrim(args, strings.TrimLeft)
	case "RTRIM":
		return builtinTrim(args, strings.TrimRight)
	case "TRIM":
		return builtinTrim(args, func(s, cut string) string { return strings.Trim(s, cut) })
	case "UPPER":
		return builtinCase(args, strings.ToUpper)
	case "LOWER":
		return builtinCase(args, strings.ToLower)
	case "TOSTRING":
		return builtinToString(args)
	case "TOINTEGER":
		return builtinToInteger(args)
	case "TOFLOAT":
		return builtinToFloat(args)
	case "TOBOOLEAN":
		return builtinToBoolean(args)

	case "DATE":
		return builtinDate(args)
	case "DATETIME":
		return builtinDateTime(args)
	case "TIME":
		return builtinTime(args)
	case "LOCALDATETIME":
		return builtinDateTime(args)
	case "LOCALTIME":
		return builtinTime(args)
	case "DURATION":
		return builtinDuration(args)
	case "TRUNCATE", "DATE.TRUNCATE", "DATETIME.TRUNCATE", "TIME.TRUNCATE":
		return builtinTruncate(args)
	case "DURATION.BETWEEN":
		return builtinDurationBetween(args)
	case "DURATION.INMONTHS":
		return builtinDurationComponent(args, func(d value.Duration) int64 { return d.InMonths() })
	case "DURATION.INDAYS":
		return builtinDurationComponent(args, func(d value.Duration) int64 { return d.InDays() })
	case "DURATION.INSECONDS":
		return builtinDurationComponent(args, func(d value.Duration) int64 { return d.InSeconds() })

	case "POINT":
		return builtinPoint(args)
	case "DISTANCE":
		return builtinDistance(args)

	case "EXISTS":
		// exists(n.prop): property-presence test; the EXISTS{...} subquery
		// form never reaches here (it parses to a SubqueryExpression).
		return value.NewBool(!arg(args, 0).IsNull()), nil

	case "__MAP__":
		return builtinMapLiteral(args)
	case "__LIST__":
		return value.NewList(args), nil

	default:
		return value.Null, fmt.Errorf("%w: %s", ErrUnknownFunction, f.Name)
	}
}

func arg(args []value.Value, i int) value.Value {
	if i >= len(args) {
		return value.Null
	}
	return args[i]
}

func builtinSize(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindList:
		return value.NewInt(int64(len(v.AsList()))), nil
	case value.KindString:
		return value.NewInt(int64(utf8.RuneCountInString(v.AsString()))), nil
	case value.KindMap:
		return value.NewInt(int64(len(v.AsMap()))), nil
	case value.KindPath:
		return value.NewInt(int64(v.AsPath().Length())), nil
	default:
		return value.Null, fmt.Errorf("%w: size() on %s", ErrTypeError, v.Kind())
	}
}

func builtinHead(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindList {
		return value.Null, fmt.Errorf("%w: head() on %s", ErrTypeError, v.Kind())
	}
	list := v.AsList()
	if len(list) == 0 {
		return value.Null, nil
	}
	return list[0], nil
}

func builtinTail(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindList {
		return value.Null, fmt.Errorf("%w: tail() on %s", ErrTypeError, v.Kind())
	}
	list := v.AsList()
	if len(list) <= 1 {
		return value.NewList(nil), nil
	}
	return value.NewList(list[1:]), nil
}

func builtinLast(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindList {
		return value.Null, fmt.Errorf("%w: last() on %s", ErrTypeError, v.Kind())
	}
	list := v.AsList()
	if len(list) == 0 {
		return value.Null, nil
	}
	return list[len(list)-1], nil
}

func builtinReverse(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindString:
		r := []rune(v.AsString())
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return value.NewString(string(r)), nil
	case value.KindList:
		list := v.AsList()
		out := make([]value.Value, len(list))
		for i, item := range list {
			out[len(list)-1-i] = item
		}
		return value.NewList(out), nil
	default:
		return value.Null, fmt.Errorf("%w: reverse() on %s", ErrTypeError, v.Kind())
	}
}

func builtinRange(args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		return value.Null, fmt.Errorf("%w: range() requires start and end", ErrTypeError)
	}
	start, end := arg(args, 0), arg(args, 1)
	if start.IsNull() || end.IsNull() {
		return value.Null, nil
	}
	if start.Kind() != value.KindInt || end.Kind() != value.KindInt {
		return value.Null, fmt.Errorf("%w: range() requires integer bounds", ErrTypeError)
	}
	step := int64(1)
	if len(args) > 2 {
		s := arg(args, 2)
		if s.IsNull() {
			return value.Null, nil
		}
		if s.Kind() != value.KindInt {
			return value.Null, fmt.Errorf("%w: range() requires an integer step", ErrTypeError)
		}
		step = s.AsInt()
	}
	if step == 0 {
		return value.Null, ErrInvalidRangeStep
	}
	var out []value.Value
	if step > 0 {
		for i := start.AsInt(); i <= end.AsInt(); i += step {
			out = append(out, value.NewInt(i))
		}
	} else {
		for i := start.AsInt(); i >= end.AsInt(); i += step {
			out = append(out, value.NewInt(i))
		}
	}
	return value.NewList(out), nil
}

func propsOf(v value.Value) (map[string]value.Value, bool) {
	switch v.Kind() {
	case value.KindNode:
		return v.AsNode().Properties, true
	case value.KindEdge:
		return v.AsEdge().Properties, true
	case value.KindMap:
		return v.AsMap(), true
	default:
		return nil, false
	}
}

// builtinMapLiteral rebuilds a map literal from the flattened key/value
// argument pairs the parser emits for `{a: 1, b: 2}` (ast.FunctionCall with
// name "__map__", since a map of per-row expressions can't collapse to a
// single ast.Literal the way scalar literals do).
func builtinMapLiteral(args []value.Value) (value.Value, error) {
	m := make(map[string]value.Value, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if args[i].Kind() != value.KindString {
			return value.Null, fmt.Errorf("%w: map literal key must be a string", ErrTypeError)
		}
		m[args[i].AsString()] = args[i+1]
	}
	return value.NewMap(m), nil
}

func builtinKeys(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	props, ok := propsOf(v)
	if !ok {
		return value.Null, fmt.Errorf("%w: keys() on %s", ErrTypeError, v.Kind())
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = value.NewString(k)
	}
	return value.NewList(out), nil
}

func builtinLabels(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindNode {
		return value.Null, fmt.Errorf("%w: labels() on %s", ErrTypeError, v.Kind())
	}
	labels := v.AsNode().Labels
	out := make([]value.Value, len(labels))
	for i, l := range labels {
		out[i] = value.NewString(l)
	}
	return value.NewList(out), nil
}

func builtinType(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindEdge {
		return value.Null, fmt.Errorf("%w: type() on %s", ErrTypeError, v.Kind())
	}
	return value.NewString(v.AsEdge().Type), nil
}

func builtinNodes(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindPath {
		return value.Null, fmt.Errorf("%w: nodes() on %s", ErrTypeError, v.Kind())
	}
	nodes := v.AsPath().Nodes
	out := make([]value.Value, len(nodes))
	for i, n := range nodes {
		out[i] = value.NewNode(n)
	}
	return value.NewList(out), nil
}

func builtinRelationships(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindPath {
		return value.Null, fmt.Errorf("%w: relationships() on %s", ErrTypeError, v.Kind())
	}
	edges := v.AsPath().Edges
	out := make([]value.Value, len(edges))
	for i, e := range edges {
		out[i] = value.NewEdge(e)
	}
	return value.NewList(out), nil
}

func builtinProperties(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	props, ok := propsOf(v)
	if !ok {
		return value.Null, fmt.Errorf("%w: properties() on %s", ErrTypeError, v.Kind())
	}
	return value.NewMap(props), nil
}

func builtinID(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindNode:
		return value.NewString(string(v.AsNode().ID)), nil
	case value.KindEdge:
		return value.NewString(string(v.AsEdge().ID)), nil
	default:
		return value.Null, fmt.Errorf("%w: id() on %s", ErrTypeError, v.Kind())
	}
}

func builtinSubstring(args []value.Value) (value.Value, error) {
	s := arg(args, 0)
	start := arg(args, 1)
	if s.IsNull() || start.IsNull() {
		return value.Null, nil
	}
	if s.Kind() != value.KindString || start.Kind() != value.KindInt {
		return value.Null, fmt.Errorf("%w: substring() requires (string, integer)", ErrTypeError)
	}
	r := []rune(s.AsString())
	st := int(start.AsInt())
	if st < 0 {
		st = 0
	}
	if st > len(r) {
		st = len(r)
	}
	end := len(r)
	if len(args) > 2 && !arg(args, 2).IsNull() {
		l := arg(args, 2)
		if l.Kind() != value.KindInt {
			return value.Null, fmt.Errorf("%w: substring() length must be an integer", ErrTypeError)
		}
		end = st + int(l.AsInt())
		if end > len(r) {
			end = len(r)
		}
		if end < st {
			end = st
		}
	}
	return value.NewString(string(r[st:end])), nil
}

func builtinSplit(args []value.Value) (value.Value, error) {
	s, delim := arg(args, 0), arg(args, 1)
	if s.IsNull() || delim.IsNull() {
		return value.Null, nil
	}
	if s.Kind() != value.KindString || delim.Kind() != value.KindString {
		return value.Null, fmt.Errorf("%w: split() requires two strings", ErrTypeError)
	}
	parts := strings.Split(s.AsString(), delim.AsString())
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.NewString(p)
	}
	return value.NewList(out), nil
}

func builtinReplace(args []value.Value) (value.Value, error) {
	s, search, repl := arg(args, 0), arg(args, 1), arg(args, 2)
	if s.IsNull() || search.IsNull() || repl.IsNull() {
		return value.Null, nil
	}
	if s.Kind() != value.KindString || search.Kind() != value.KindString || repl.Kind() != value.KindString {
		return value.Null, fmt.Errorf("%w: replace() requires three strings", ErrTypeError)
	}
	return value.NewString(strings.ReplaceAll(s.AsString(), search.AsString(), repl.AsString())), nil
}

func builtinLeft(args []value.Value) (value.Value, error) {
	s, n := arg(args, 0), arg(args, 1)
	if s.IsNull() || n.IsNull() {
		return value.Null, nil
	}
	if s.Kind() != value.KindString || n.Kind() != value.KindInt {
		return value.Null, fmt.Errorf("%w: left() requires (string, integer)", ErrTypeError)
	}
	r := []rune(s.AsString())
	k := int(n.AsInt())
	if k < 0 {
		k = 0
	}
	if k > len(r) {
		k = len(r)
	}
	return value.NewString(string(r[:k])), nil
}

func builtinRight(args []value.Value) (value.Value, error) {
	s, n := arg(args, 0), arg(args, 1)
	if s.IsNull() || n.IsNull() {
		return value.Null, nil
	}
	if s.Kind() != value.KindString || n.Kind() != value.KindInt {
		return value.Null, fmt.Errorf("%w: right() requires (string, integer)", ErrTypeError)
	}
	r := []rune(s.AsString())
	k := int(n.AsInt())
	if k < 0 {
		k = 0
	}
	if k > len(r) {
		k = len(r)
	}
	return value.NewString(string(r[len(r)-k:])), nil
}

func builtinTrim(args []value.Value, fn func(s, cutset string) string) (value.Value, error) {
	s := arg(args, 0)
	if s.IsNull() {
		return value.Null, nil
	}
	if s.Kind() != value.KindString {
		return value.Null, fmt.Errorf("%w: trim function on %s", ErrTypeError, s.Kind())
	}
	return value.NewString(fn(s.AsString(), " \t\n\r")), nil
}

func builtinCase(args []value.Value, fn func(string) string) (value.Value, error) {
	s := arg(args, 0)
	if s.IsNull() {
		return value.Null, nil
	}
	if s.Kind() != value.KindString {
		return value.Null, fmt.Errorf("%w: case function on %s", ErrTypeError, s.Kind())
	}
	return value.NewString(fn(s.AsString())), nil
}

func builtinToString(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindString, value.KindBool, value.KindInt, value.KindFloat,
		value.KindDate, value.KindDateTime, value.KindTime, value.KindDuration:
		return value.NewString(v.String()), nil
	default:
		return value.Null, fmt.Errorf("%w: toString() on %s", ErrTypeError, v.Kind())
	}
}

func builtinToInteger(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindInt:
		return v, nil
	case value.KindFloat:
		return value.NewInt(int64(v.AsFloat())), nil
	case value.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.AsString()), 10, 64)
		if err != nil {
			if f, ferr := strconv.ParseFloat(strings.TrimSpace(v.AsString()), 64); ferr == nil {
				return value.NewInt(int64(f)), nil
			}
			return value.Null, nil
		}
		return value.NewInt(n), nil
	default:
		return value.Null, fmt.Errorf("%w: toInteger() on %s", ErrTypeError, v.Kind())
	}
}

func builtinToFloat(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindFloat:
		return v, nil
	case value.KindInt:
		return value.NewFloat(float64(v.AsInt())), nil
	case value.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsString()), 64)
		if err != nil {
			return value.Null, nil
		}
		return value.NewFloat(f), nil
	default:
		return value.Null, fmt.Errorf("%w: toFloat() on %s", ErrTypeError, v.Kind())
	}
}

func builtinToBoolean(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindBool:
		return v, nil
	case value.KindString:
		switch strings.ToLower(strings.TrimSpace(v.AsString())) {
		case "true":
			return value.NewBool(true), nil
		case "false":
			return value.NewBool(false), nil
		default:
			return value.Null, nil
		}
	default:
		return value.Null, fmt.Errorf("%w: toBoolean() on %s", ErrTypeError, v.Kind())
	}
}

func componentInt(m map[string]value.Value, key string) int {
	if v, ok := m[key]; ok && v.Kind() == value.KindInt {
		return int(v.AsInt())
	}
	return 0
}

func builtinDate(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		n := timeNow()
		return value.NewDate(value.NewDateYMD(n.Year(), int(n.Month()), n.Day())), nil
	case value.KindString:
		d, err := value.ParseISODate(v.AsString())
		if err != nil {
			return value.Null, err
		}
		return value.NewDate(d), nil
	case value.KindMap:
		m := v.AsMap()
		return value.NewDate(value.NewDateYMD(componentInt(m, "year"), componentInt(m, "month"), componentInt(m, "day"))), nil
	default:
		return value.Null, fmt.Errorf("%w: date() requires a string or map", ErrTypeError)
	}
}

func builtinTime(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		n := timeNow()
		return value.NewTime(value.NewTimeHMS(n.Hour(), n.Minute(), n.Second(), n.Nanosecond())), nil
	case value.KindString:
		t, err := value.ParseISOTime(v.AsString())
		if err != nil {
			return value.Null, err
		}
		return value.NewTime(t), nil
	case value.KindMap:
		m := v.AsMap()
		return value.NewTime(value.NewTimeHMS(componentInt(m, "hour"), componentInt(m, "minute"), componentInt(m, "second"), 0)), nil
	default:
		return value.Null, fmt.Errorf("%w: time() requires a string or map", ErrTypeError)
	}
}

func builtinDateTime(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.NewDateTime(value.NewDateTimeFromTime(timeNow())), nil
	case value.KindString:
		dt, err := value.ParseISODateTime(v.AsString())
		if err != nil {
			return value.Null, err
		}
		return value.NewDateTime(dt), nil
	case value.KindMap:
		m := v.AsMap()
		t := timeBuildFromComponents(m)
		return value.NewDateTime(value.NewDateTimeFromTime(t)), nil
	default:
		return value.Null, fmt.Errorf("%w: datetime() requires a string or map", ErrTypeError)
	}
}

func builtinDuration(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	switch v.Kind() {
	case value.KindNull:
		return value.Null, nil
	case value.KindString:
		d, err := value.ParseISODuration(v.AsString())
		if err != nil {
			return value.Null, err
		}
		return value.NewDuration(d), nil
	case value.KindMap:
		m := v.AsMap()
		months := int64(componentInt(m, "years"))*12 + int64(componentInt(m, "months"))
		days := int64(componentInt(m, "days")) + int64(componentInt(m, "weeks"))*7
		seconds := int64(componentInt(m, "hours"))*3600 + int64(componentInt(m, "minutes"))*60 + int64(componentInt(m, "seconds"))
		nanos := int64(componentInt(m, "milliseconds"))*1e6 + int64(componentInt(m, "microseconds"))*1e3 + int64(componentInt(m, "nanoseconds"))
		return value.NewDuration(value.Duration{Months: months, Days: days, Seconds: seconds, Nanos: nanos}), nil
	default:
		return value.Null, fmt.Errorf("%w: duration() requires a string or map", ErrTypeError)
	}
}

func asTime(v value.Value) (timeLike, bool) {
	switch v.Kind() {
	case value.KindDate:
		return v.AsDate(), true
	case value.KindDateTime:
		return v.AsDateTime(), true
	case value.KindTime:
		return v.AsTime(), true
	default:
		return nil, false
	}
}

func builtinTruncate(args []value.Value) (value.Value, error) {
	unitV, temporalV := arg(args, 0), arg(args, 1)
	if unitV.IsNull() || temporalV.IsNull() {
		return value.Null, nil
	}
	if unitV.Kind() != value.KindString {
		return value.Null, fmt.Errorf("%w: truncate() requires a unit string", ErrTypeError)
	}
	tl, ok := asTime(temporalV)
	if !ok {
		return value.Null, fmt.Errorf("%w: truncate() requires a temporal value", ErrTypeError)
	}
	truncated, err := value.TruncateTime(value.TemporalUnit(strings.ToLower(unitV.AsString())), tl.Time())
	if err != nil {
		return value.Null, fmt.Errorf("%w: %q", ErrInvalidTemporalUnit, unitV.AsString())
	}
	if ov := arg(args, 2); !ov.IsNull() {
		if ov.Kind() != value.KindMap {
			return value.Null, fmt.Errorf("%w: truncate() overrides must be a map", ErrTypeError)
		}
		truncated = overrideComponents(truncated, ov.AsMap())
	}
	switch temporalV.Kind() {
	case value.KindDate:
		return value.NewDate(value.NewDateYMD(truncated.Year(), int(truncated.Month()), truncated.Day())), nil
	case value.KindTime:
		return value.NewTime(value.NewTimeHMS(truncated.Hour(), truncated.Minute(), truncated.Second(), truncated.Nanosecond())), nil
	default:
		return value.NewDateTime(value.NewDateTimeFromTime(truncated)), nil
	}
}

// overrideComponents applies truncate()'s optional third-argument map onto a
// truncated instant: truncate('month', d, {day: 5}) lands on the 5th of the
// truncated month.
func overrideComponents(t time.Time, m map[string]value.Value) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	ns := t.Nanosecond()
	pick := func(key string, cur int) int {
		if v, ok := m[key]; ok && v.Kind() == value.KindInt {
			return int(v.AsInt())
		}
		return cur
	}
	y = pick("year", y)
	mo = time.Month(pick("month", int(mo)))
	d = pick("day", d)
	h = pick("hour", h)
	mi = pick("minute", mi)
	s = pick("second", s)
	if v, ok := m["millisecond"]; ok && v.Kind() == value.KindInt {
		ns = int(v.AsInt()) * 1e6
	}
	if v, ok := m["microsecond"]; ok && v.Kind() == value.KindInt {
		ns = int(v.AsInt()) * 1e3
	}
	if v, ok := m["nanosecond"]; ok && v.Kind() == value.KindInt {
		ns = int(v.AsInt())
	}
	return time.Date(y, mo, d, h, mi, s, ns, t.Location())
}

func builtinDurationBetween(args []value.Value) (value.Value, error) {
	a, b := arg(args, 0), arg(args, 1)
	if a.IsNull() || b.IsNull() {
		return value.Null, nil
	}
	ta, ok1 := asTime(a)
	tb, ok2 := asTime(b)
	if !ok1 || !ok2 {
		return value.Null, fmt.Errorf("%w: duration.between() requires two temporal values", ErrTypeError)
	}
	return value.NewDuration(value.DiffDuration(ta.Time(), tb.Time())), nil
}

func builtinDurationComponent(args []value.Value, fn func(value.Duration) int64) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindDuration {
		return value.Null, fmt.Errorf("%w: duration component function on %s", ErrTypeError, v.Kind())
	}
	return value.NewInt(fn(v.AsDuration())), nil
}

func builtinPoint(args []value.Value) (value.Value, error) {
	v := arg(args, 0)
	if v.IsNull() {
		return value.Null, nil
	}
	if v.Kind() != value.KindMap {
		return value.Null, fmt.Errorf("%w: point() requires a map", ErrTypeError)
	}
	m := v.AsMap()
	if lat, ok := m["latitude"]; ok {
		lon := m["longitude"]
		if !lat.IsNumeric() || !lon.IsNumeric() {
			return value.Null, fmt.Errorf("%w: point() latitude/longitude must be numeric", ErrTypeError)
		}
		// An explicit point() call range-checks hard; the soft fall-through
		// to a plain Map applies only to user-supplied native maps in
		// value.FromNative.
		p, err := value.NewGeographicPoint(lon.Float64(), lat.Float64())
		if err != nil {
			return value.Null, err
		}
		return value.NewPoint(p), nil
	}
	if x, ok := m["x"]; ok {
		y := m["y"]
		if !x.IsNumeric() || !y.IsNumeric() {
			return value.Null, fmt.Errorf("%w: point() x/y must be numeric", ErrTypeError)
		}
		var z *float64
		if zv, ok := m["z"]; ok && zv.IsNumeric() {
			zf := zv.Float64()
			z = &zf
		}
		return value.NewPoint(value.NewCartesianPoint(x.Float64(), y.Float64(), z)), nil
	}
	return value.NewMap(m), nil
}

func builtinDistance(args []value.Value) (value.Value, error) {
	a, b := arg(args, 0), arg(args, 1)
	if a.IsNull() || b.IsNull() {
		return value.Null, nil
	}
	if a.Kind() != value.KindPoint || b.Kind() != value.KindPoint {
		return value.Null, fmt.Errorf("%w: distance() requires two points", ErrTypeError)
	}
	meters, err := a.AsPoint().DistanceTo(b.AsPoint())
	if err != nil {
		return value.Null, err
	}
	return value.NewDistance(meters), nil
}

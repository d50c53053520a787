package planner

import "github.com/corvid-graph/corvid/pkg/ast"

// scope tracks each variable's kind across an entire query (spec §4.4.2).
// With-segment boundaries don't reset it: a variable bound in an earlier
// segment keeps its kind into later segments, since With can re-project it.
type scope struct {
	kinds  map[string]VarKind
	anonN  int
}

func newScope() *scope {
	return &scope{kinds: make(map[string]VarKind)}
}

// bind records a variable's kind, or validates compatibility if it is
// already bound. An empty name is a no-op (anonymous elements never reach
// bind with "").
func (s *scope) bind(name string, kind VarKind) *CompileError {
	if name == "" {
		return nil
	}
	existing, ok := s.kinds[name]
	if !ok {
		s.kinds[name] = kind
		return nil
	}
	if existing != kind {
		return newCompileError(CodeIncompatibleVarKind,
			"variable %q already bound as %s, cannot rebind as %s", name, existing, kind)
	}
	return nil
}

func (s *scope) kindOf(name string) (VarKind, bool) {
	k, ok := s.kinds[name]
	return k, ok
}

// anon synthesizes a fresh name for an unnamed pattern element (spec
// §4.4.1: "Anonymous variables are replaced by fresh synthetic names").
func (s *scope) anon() string {
	s.anonN++
	return anonName(s.anonN)
}

func anonName(n int) string {
	buf := make([]byte, 0, 8)
	buf = append(buf, "__anon_"...)
	buf = appendInt(buf, n)
	return string(buf)
}

func appendInt(buf []byte, n int) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	start := len(buf)
	for n > 0 {
		buf = append(buf, byte('0'+n%10))
		n /= 10
	}
	// reverse the digits just appended
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

// kindOfExpr infers a With/Return item's kind: Variable preserves kind,
// everything else is Scalar (spec §4.4.2).
func (s *scope) kindOfExpr(e ast.Expression) VarKind {
	if v, ok := e.(ast.Variable); ok {
		if k, ok := s.kindOf(v.Name); ok {
			return k
		}
	}
	return KindScalar
}

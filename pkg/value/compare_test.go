package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEquals_NullPropagates(t *testing.T) {
	assert.True(t, Equals(Null, Null).IsNull())
	assert.True(t, Equals(Null, NewInt(1)).IsNull())
}

func TestRawEquals_NullEqualsNullForGrouping(t *testing.T) {
	assert.True(t, RawEquals(Null, Null))
}

func TestLessThan_CrossTypeNumeric(t *testing.T) {
	got := LessThan(NewInt(2), NewFloat(2.5))
	assert.False(t, got.IsNull())
	assert.True(t, got.AsBool())
}

func TestLessThan_IncomparableTypesIsNull(t *testing.T) {
	got := LessThan(NewString("a"), NewInt(1))
	assert.True(t, got.IsNull())
}

func TestListEquality_Lexicographic(t *testing.T) {
	a := NewList([]Value{NewInt(1), NewInt(2)})
	b := NewList([]Value{NewInt(1), NewInt(2)})
	c := NewList([]Value{NewInt(1), NewInt(3)})
	assert.True(t, RawEquals(a, b))
	assert.False(t, RawEquals(a, c))

	lt := LessThan(a, c)
	assert.False(t, lt.IsNull())
	assert.True(t, lt.AsBool())
}

func TestMapEquality_KeySetThenValues(t *testing.T) {
	a := NewMap(map[string]Value{"x": NewInt(1), "y": NewInt(2)})
	b := NewMap(map[string]Value{"y": NewInt(2), "x": NewInt(1)})
	c := NewMap(map[string]Value{"x": NewInt(1)})
	assert.True(t, RawEquals(a, b))
	assert.False(t, RawEquals(a, c))
}

func TestHashKey_StableAcrossMapOrdering(t *testing.T) {
	a := NewMap(map[string]Value{"x": NewInt(1), "y": NewInt(2)})
	b := NewMap(map[string]Value{"y": NewInt(2), "x": NewInt(1)})
	assert.Equal(t, HashKey(a), HashKey(b))
}

func TestHashKey_NodeUsesStableID(t *testing.T) {
	n1 := &Node{ID: "n1", Properties: map[string]Value{"name": NewString("Alice")}}
	n1Stale := &Node{ID: "n1", Properties: map[string]Value{"name": NewString("Alicia")}}
	assert.Equal(t, HashKey(NewNode(n1)), HashKey(NewNode(n1Stale)))
}

func TestCompareForOrder_NumericCrossType(t *testing.T) {
	assert.Negative(t, CompareForOrder(NewInt(1), NewFloat(2)))
	assert.Zero(t, CompareForOrder(NewInt(2), NewFloat(2.0)))
}

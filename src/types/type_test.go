package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentString(t *testing.T) {
	i := NewIdent("int")
	assert.Equal(t, "int", i.String())
	assert.True(t, i.IsPrimitive())
}

func TestPointerString(t *testing.T) {
	p := NewPointer(NewIdent("Point"))
	assert.Equal(t, "*Point", p.String())
	assert.False(t, p.BaseOf().IsPrimitive())
}

func TestBaseOfDoublePointer(t *testing.T) {
	inner := NewIdent("int")
	p1 := NewPointer(inner)
	p2 := NewPointer(p1)
	assert.Equal(t, p1.BaseOf().String(), p2.BaseOf().String())
	assert.Equal(t, "int", p2.BaseOf().String())
}

func TestCloneIndependence(t *testing.T) {
	orig := NewPointer(NewIdent("int"))
	clone := orig.Clone().(*Pointer)
	clone.Of.(*Ident).Name = "float"
	assert.Equal(t, "int", orig.Of.String())
	assert.Equal(t, "float", clone.Of.String())
}

func TestEqualNominal(t *testing.T) {
	a := NewIdent("int")
	b := NewIdent("int")
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, NewIdent("float")))
	assert.True(t, Equal(NewPointer(a), NewPointer(b)))
}

// Package types implements the value-type model of the language: named
// primitives, pointers-of, and identifiers naming a user struct. Types are
// immutable once constructed and are compared nominally on their canonical
// string form.
package types

import "fmt"

// Primitive enumerates the language's built-in scalar type names.
type Primitive string

const (
	Int    Primitive = "int"
	Float  Primitive = "float"
	Double Primitive = "double"
	Void   Primitive = "void"
	String Primitive = "string"
	Byte   Primitive = "byte"
	Bool   Primitive = "bool"
	Char   Primitive = "char"
)

// primitiveNames is used to tell a bare identifier naming a primitive apart
// from one naming a user struct.
var primitiveNames = map[string]Primitive{
	"int": Int, "float": Float, "double": Double, "void": Void,
	"string": String, "byte": Byte, "bool": Bool, "char": Char,
}

// IsPrimitiveName reports whether s names one of the built-in primitives.
func IsPrimitiveName(s string) bool {
	_, ok := primitiveNames[s]
	return ok
}

// Type is the sum of Ident (a primitive or user-struct name) and Pointer
// (pointer-of another Type). Every Type supports canonical stringification,
// deep cloning, and walking through pointer layers to the innermost
// identifier.
type Type interface {
	// String returns the canonical textual form used for nominal equality.
	String() string
	// Clone returns a deep, independently owned copy.
	Clone() Type
	// BaseOf walks through all pointer layers and returns the innermost
	// Ident.
	BaseOf() *Ident
}

// Ident names either a built-in primitive or a user-declared struct.
type Ident struct {
	Name string
}

// NewIdent constructs an identifier type, typically a primitive name or a
// struct name resolved later by the binder.
func NewIdent(name string) *Ident { return &Ident{Name: name} }

func (i *Ident) String() string { return i.Name }

func (i *Ident) Clone() Type { return &Ident{Name: i.Name} }

func (i *Ident) BaseOf() *Ident { return i }

// IsPrimitive reports whether this identifier names a built-in primitive
// rather than a user struct.
func (i *Ident) IsPrimitive() bool { return IsPrimitiveName(i.Name) }

// Pointer is the pointer-of-T type.
type Pointer struct {
	Of Type
}

// NewPointer constructs a pointer to of.
func NewPointer(of Type) *Pointer { return &Pointer{Of: of} }

func (p *Pointer) String() string { return fmt.Sprintf("*%s", p.Of.String()) }

func (p *Pointer) Clone() Type { return &Pointer{Of: p.Of.Clone()} }

func (p *Pointer) BaseOf() *Ident {
	cur := p.Of
	for {
		if ptr, ok := cur.(*Pointer); ok {
			cur = ptr.Of
			continue
		}
		return cur.BaseOf()
	}
}

// Equal reports nominal equality by canonical string form.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

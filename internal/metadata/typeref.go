package metadata

import (
	"strings"
)

// Well-known runtime type names.
const (
	SystemVoid              = "System.Void"
	SystemObject            = "System.Object"
	SystemString            = "System.String"
	SystemBoolean           = "System.Boolean"
	SystemByte              = "System.Byte"
	SystemSByte             = "System.SByte"
	SystemInt16             = "System.Int16"
	SystemUInt16            = "System.UInt16"
	SystemInt32             = "System.Int32"
	SystemUInt32            = "System.UInt32"
	SystemInt64             = "System.Int64"
	SystemUInt64            = "System.UInt64"
	SystemChar              = "System.Char"
	SystemSingle            = "System.Single"
	SystemDouble            = "System.Double"
	SystemDecimal           = "System.Decimal"
	SystemIntPtr            = "System.IntPtr"
	SystemUIntPtr           = "System.UIntPtr"
	SystemDelegate          = "System.Delegate"
	SystemMulticastDelegate = "System.MulticastDelegate"
	SystemGCHandle          = "System.Runtime.InteropServices.GCHandle"
)

// TypeRef is a reference to a type as it appears in a signature.
//
// Array, by-ref and pointer shapes wrap an Element. A GenericParameter is an
// open type parameter such as T.
type TypeRef struct {
	Name             string   `toml:"name" cbor:"name,omitempty"`
	Namespace        string   `toml:"namespace" cbor:"namespace,omitempty"`
	Assembly         string   `toml:"assembly" cbor:"assembly,omitempty"`
	DeclaringType    *TypeRef `toml:"declaring-type" cbor:"declaringType,omitempty"`
	Element          *TypeRef `toml:"element" cbor:"element,omitempty"`
	ArrayRank        int      `toml:"array-rank" cbor:"arrayRank,omitempty"`
	ByRef            bool     `toml:"by-ref" cbor:"byRef,omitempty"`
	Pointer          bool     `toml:"pointer" cbor:"pointer,omitempty"`
	GenericParameter bool     `toml:"generic-parameter" cbor:"genericParameter,omitempty"`

	// ValueType is recorded by the dumper for named value types so that
	// signatures referring to foreign structs can be spelled correctly.
	ValueType bool `toml:"value-type" cbor:"valueType,omitempty"`
}

// Named builds a reference to a named type given its full name.
func Named(fullName, assembly string) TypeRef {
	ns, name := "", fullName
	if i := strings.LastIndexByte(fullName, '.'); i >= 0 {
		ns, name = fullName[:i], fullName[i+1:]
	}
	return TypeRef{Name: name, Namespace: ns, Assembly: assembly}
}

// Void returns a reference to System.Void.
func Void() TypeRef {
	return Named(SystemVoid, "")
}

// ArrayOf builds a reference to an array of elem with the given rank.
func ArrayOf(elem TypeRef, rank int) TypeRef {
	return TypeRef{Element: &elem, ArrayRank: rank}
}

// RefTo builds a by-reference type.
func RefTo(elem TypeRef) TypeRef {
	return TypeRef{Element: &elem, ByRef: true}
}

// IsArray reports whether the reference is an array.
func (r TypeRef) IsArray() bool {
	return r.ArrayRank > 0
}

// IsComposite reports whether the reference wraps an element type.
func (r TypeRef) IsComposite() bool {
	return r.IsArray() || r.ByRef || r.Pointer
}

// IsJagged reports whether the reference is an array of arrays.
func (r TypeRef) IsJagged() bool {
	return r.IsArray() && r.Element != nil && r.Element.IsArray()
}

// Is reports whether the reference is the plain named type fullName.
func (r TypeRef) Is(fullName string) bool {
	return !r.IsComposite() && !r.GenericParameter && r.FullName() == fullName
}

// IsVoid reports whether the reference is System.Void.
func (r TypeRef) IsVoid() bool {
	return r.Is(SystemVoid)
}

// ContainsGenericParameter reports whether an open type parameter occurs
// anywhere in the reference.
func (r TypeRef) ContainsGenericParameter() bool {
	if r.GenericParameter {
		return true
	}
	if r.Element != nil {
		return r.Element.ContainsGenericParameter()
	}
	return false
}

// FullName renders the runtime full name: Ns.Outer+Inner, T[], T[,], T&, T*.
func (r TypeRef) FullName() string {
	switch {
	case r.IsArray():
		return r.elementName() + "[" + strings.Repeat(",", r.ArrayRank-1) + "]"
	case r.ByRef:
		return r.elementName() + "&"
	case r.Pointer:
		return r.elementName() + "*"
	}
	if r.DeclaringType != nil {
		return r.DeclaringType.FullName() + "+" + r.Name
	}
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

// SimpleName is the unqualified name, with array and reference suffixes.
func (r TypeRef) SimpleName() string {
	if r.IsComposite() {
		full := r.FullName()
		if r.Element != nil {
			return r.Element.SimpleName() + full[len(r.Element.FullName()):]
		}
		return full
	}
	return r.Name
}

// QualifiedName renders the full name followed by the assembly, the way the
// runtime prints an assembly-qualified name.
func (r TypeRef) QualifiedName() string {
	asm := r.ScopeAssembly()
	if asm == "" {
		return r.FullName()
	}
	return r.FullName() + ", " + asm
}

// ScopeAssembly returns the assembly that defines the innermost element type.
func (r TypeRef) ScopeAssembly() string {
	if r.Element != nil {
		return r.Element.ScopeAssembly()
	}
	return r.Assembly
}

// Innermost strips array, by-ref and pointer wrappers.
func (r TypeRef) Innermost() TypeRef {
	for r.Element != nil {
		r = *r.Element
	}
	return r
}

// String implements fmt.Stringer.
func (r TypeRef) String() string {
	return r.FullName()
}

func (r TypeRef) elementName() string {
	if r.Element == nil {
		return r.Name
	}
	return r.Element.FullName()
}

// SimpleAssemblyName strips version, culture and key token from an assembly
// display name.
func SimpleAssemblyName(display string) string {
	if i := strings.IndexByte(display, ','); i >= 0 {
		return strings.TrimSpace(display[:i])
	}
	return strings.TrimSpace(display)
}

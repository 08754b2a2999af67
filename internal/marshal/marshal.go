// Package marshal maps runtime types to D types.
//
// Two tables live here. The reflective table is used when values travel
// through the bridging library's generic object slots and may need boxing.
// The call-boundary table is used by trampolines, where values cross a plain
// extern(C) function-pointer call.
package marshal

import (
	"martianoff/dbridge/internal/metadata"
)

// Rule maps one primitive runtime type.
type Rule struct {
	FullName string
	DType    string
	BoxTag   string
}

// D names of the opaque types provided by the bridging library.
const (
	OpaqueObject = "__d.dotnet.DotNetObject"
	TextHandle   = "__d.CString"
	DecimalType  = "__d.dotnet.Decimal"
)

// Primitives is the fixed primitive table, in declaration order.
var Primitives = []Rule{
	{metadata.SystemBoolean, "bool", "Boolean"},
	{metadata.SystemByte, "ubyte", "Byte"},
	{metadata.SystemSByte, "byte", "SByte"},
	{metadata.SystemUInt16, "ushort", "UInt16"},
	{metadata.SystemInt16, "short", "Int16"},
	{metadata.SystemUInt32, "uint", "UInt32"},
	{metadata.SystemInt32, "int", "Int32"},
	{metadata.SystemUInt64, "ulong", "UInt64"},
	{metadata.SystemInt64, "long", "Int64"},
	{metadata.SystemChar, "char", "Char"},
	{metadata.SystemString, TextHandle, "String"},
	{metadata.SystemSingle, "float", "Single"},
	{metadata.SystemDouble, "double", "Double"},
	{metadata.SystemDecimal, DecimalType, "Decimal"},
}

var primitiveIndex = func() map[string]Rule {
	idx := make(map[string]Rule, len(Primitives))
	for _, r := range Primitives {
		idx[r.FullName] = r
	}
	return idx
}()

// Lookup returns the primitive rule for a plain named type.
func Lookup(t metadata.TypeRef) (Rule, bool) {
	if t.IsComposite() || t.GenericParameter {
		return Rule{}, false
	}
	r, ok := primitiveIndex[t.FullName()]
	return r, ok
}

// DType returns the D type used in declarations and reflective bodies.
// System.Object and every non-primitive type map to the opaque object handle.
func DType(t metadata.TypeRef) string {
	if t.IsVoid() {
		return "void"
	}
	if r, ok := Lookup(t); ok {
		return r.DType
	}
	return OpaqueObject
}

// BoxTag returns the boxed-variant tag for a primitive, or "" when the value
// can be passed without boxing.
func BoxTag(t metadata.TypeRef) string {
	if r, ok := Lookup(t); ok {
		return r.BoxTag
	}
	return ""
}

// PassThrough reports whether a reflective argument is forwarded untouched:
// arrays, by-ref and pointer parameters are neither boxed nor converted.
func PassThrough(t metadata.TypeRef) bool {
	return t.IsComposite()
}

package marshal

import (
	"fmt"
	"strconv"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/metadata"
)

// Call-boundary spellings of the host-embedding layer.
const (
	RawPointer = "void*"
	CText      = "const(char)*"
)

var boundaryDirect = map[string]string{
	metadata.SystemVoid:    "void",
	metadata.SystemBoolean: "bool",
	metadata.SystemByte:    "ubyte",
	metadata.SystemSByte:   "byte",
	metadata.SystemInt16:   "short",
	metadata.SystemUInt16:  "ushort",
	metadata.SystemInt32:   "int",
	metadata.SystemUInt32:  "uint",
	metadata.SystemInt64:   "long",
	metadata.SystemUInt64:  "ulong",
	metadata.SystemSingle:  "float",
	metadata.SystemDouble:  "double",
	metadata.SystemIntPtr:  RawPointer,
	metadata.SystemUIntPtr: RawPointer,
	metadata.SystemString:  CText,
}

// BoundaryType maps a type crossing a trampoline call. Arrays become
// SafeArray!(elem, rank); jagged arrays are rejected.
func BoundaryType(t metadata.TypeRef) (string, error) {
	switch {
	case t.IsJagged():
		return "", bridgeerr.NewUnsupported(bridgeerr.ConstructJaggedArray, t.SimpleName(),
			"jagged arrays cannot be marshalled")
	case t.IsArray():
		elem, err := BoundaryType(*t.Element)
		if err != nil {
			return "", err
		}
		return "SafeArray!(" + elem + "," + strconv.Itoa(t.ArrayRank) + ")", nil
	case t.ByRef:
		elem, err := BoundaryType(*t.Element)
		if err != nil {
			return "", err
		}
		return "ref " + elem, nil
	case t.Pointer:
		elem, err := BoundaryType(*t.Element)
		if err != nil {
			return "", err
		}
		return elem + "*", nil
	}
	if d, ok := boundaryDirect[t.FullName()]; ok && !t.GenericParameter {
		return d, nil
	}
	return Wrapper(t.SimpleName()), nil
}

// Wrapper is the opaque per-type wrapper embedding a handle.
func Wrapper(name string) string {
	return fmt.Sprintf("Instance!(%q)", name)
}

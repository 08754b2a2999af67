package cil

import (
	"fmt"
	"strings"

	"martianoff/dbridge/internal/metadata"
)

// Type is a type as spelled in IL assembler signatures.
type Type struct {
	Keyword string // "class", "valuetype" or "" for built-in types
	Name    string // "[scope]Ns.Outer/Inner" or a built-in like "int32"
	Suffix  string // "[]", "[,]", "&", "*"
	Scope   string // assembly scope of the innermost named type, "" for built-ins
}

// String renders the type for a signature.
func (t Type) String() string {
	if t.Keyword == "" {
		return t.Name + t.Suffix
	}
	return t.Keyword + " " + t.Name + t.Suffix
}

// Owner renders the type as the owner of a member reference, where named
// types appear without their class/valuetype keyword.
func (t Type) Owner() string {
	if t.Keyword != "" && t.Suffix == "" {
		return t.Name
	}
	return t.String()
}

// IsVoid reports whether the type is void.
func (t Type) IsVoid() bool {
	return t.Keyword == "" && t.Name == "void" && t.Suffix == ""
}

// Built-in types.
var (
	Void      = Type{Name: "void"}
	Object    = Type{Name: "object"}
	NativeInt = Type{Name: "native int"}
)

var builtins = map[string]string{
	metadata.SystemVoid:    "void",
	metadata.SystemBoolean: "bool",
	metadata.SystemChar:    "char",
	metadata.SystemSByte:   "int8",
	metadata.SystemByte:    "uint8",
	metadata.SystemInt16:   "int16",
	metadata.SystemUInt16:  "uint16",
	metadata.SystemInt32:   "int32",
	metadata.SystemUInt32:  "uint32",
	metadata.SystemInt64:   "int64",
	metadata.SystemUInt64:  "uint64",
	metadata.SystemSingle:  "float32",
	metadata.SystemDouble:  "float64",
	metadata.SystemString:  "string",
	metadata.SystemObject:  "object",
	metadata.SystemIntPtr:  "native int",
	metadata.SystemUIntPtr: "native uint",
}

// Value types that dumps of other assemblies may reference without marking.
var knownValueTypes = map[string]bool{
	metadata.SystemDecimal:  true,
	metadata.SystemGCHandle: true,
	"System.DateTime":       true,
	"System.Guid":           true,
	"System.TimeSpan":       true,
}

// Importer turns metadata references into IL types, registering every
// assembly it touches with the module.
type Importer struct {
	module *Module
	source *metadata.Module
}

// NewImporter creates an importer resolving unscoped references against
// source.
func NewImporter(m *Module, source *metadata.Module) *Importer {
	return &Importer{module: m, source: source}
}

// Import converts a reference. Open generic parameters and named types whose
// assembly cannot be determined cannot be imported.
func (im *Importer) Import(ref metadata.TypeRef) (Type, error) {
	switch {
	case ref.GenericParameter:
		return Type{}, fmt.Errorf("cannot import open generic parameter %s", ref.Name)
	case ref.IsArray():
		elem, err := im.Import(*ref.Element)
		if err != nil {
			return Type{}, err
		}
		elem.Suffix += "[" + strings.Repeat(",", ref.ArrayRank-1) + "]"
		return elem, nil
	case ref.ByRef, ref.Pointer:
		elem, err := im.Import(*ref.Element)
		if err != nil {
			return Type{}, err
		}
		if ref.ByRef {
			elem.Suffix += "&"
		} else {
			elem.Suffix += "*"
		}
		return elem, nil
	}

	if b, ok := builtins[ref.FullName()]; ok {
		return Type{Name: b}, nil
	}

	asm := ref.Assembly
	valueType := ref.ValueType || knownValueTypes[ref.FullName()]
	if local, ok := im.source.Lookup(ref.FullName()); ok {
		valueType = valueType || local.ValueType
		if asm == "" {
			asm = im.source.AssemblyName()
		}
	}
	if asm == "" {
		return Type{}, fmt.Errorf("cannot resolve assembly scope of %s", ref.FullName())
	}

	scope := im.module.Reference(asm)
	kw := "class"
	if valueType {
		kw = "valuetype"
	}
	return Type{Keyword: kw, Name: scoped(scope, typeName(ref)), Scope: scope}, nil
}

// Method builds a reference to a method of owner, importing every signature
// type.
func (im *Importer) Method(owner metadata.TypeRef, name string, instance bool, ret metadata.TypeRef, params []metadata.TypeRef) (*MethodRef, error) {
	o, err := im.Import(owner)
	if err != nil {
		return nil, err
	}
	r, err := im.Import(ret)
	if err != nil {
		return nil, err
	}
	ps, err := im.Signature(params)
	if err != nil {
		return nil, err
	}
	return &MethodRef{Instance: instance, Return: r, Owner: o, Name: name, Params: ps}, nil
}

// Signature imports a parameter list.
func (im *Importer) Signature(params []metadata.TypeRef) ([]Type, error) {
	out := make([]Type, len(params))
	for i, p := range params {
		t, err := im.Import(p)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// typeName spells a named type: Ns.Outer/Inner.
func typeName(ref metadata.TypeRef) string {
	if ref.DeclaringType != nil {
		return typeName(*ref.DeclaringType) + "/" + quote(ref.Name)
	}
	if ref.Namespace == "" {
		return quote(ref.Name)
	}
	return quoteDotted(ref.Namespace) + "." + quote(ref.Name)
}

func scoped(scope, name string) string {
	return "[" + quoteDotted(scope) + "]" + name
}

func quoteDotted(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

// quote single-quotes a name component unless it is a plain identifier.
func quote(s string) string {
	if isPlain(s) && !keywords[s] {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func isPlain(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

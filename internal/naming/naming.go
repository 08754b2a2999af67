// Package naming turns runtime names into D identifiers, module names and
// output paths.
package naming

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"martianoff/dbridge/internal/metadata"
)

// Separator replaces characters that cannot appear in a D identifier and is
// appended to reserved words.
const Separator = "_"

// NestedPrefix introduces the declaring-type chain of a nested type.
const NestedPrefix = "InsideOf_"

// PackageUnit is the file name of a namespace's output unit.
const PackageUnit = "package.d"

var forbidden = strings.NewReplacer(
	"$", Separator,
	"<", Separator,
	">", Separator,
	"=", Separator,
	"`", Separator,
)

// D keywords and compiler-reserved identifiers.
var reserved = map[string]bool{}

func init() {
	for _, kw := range strings.Fields(`
		abstract alias align asm assert auto body bool break byte case cast
		catch cdouble cent cfloat char class const continue creal dchar debug
		default delegate delete deprecated do double else enum export extern
		false final finally float for foreach foreach_reverse function goto
		idouble if ifloat immutable import in inout int interface invariant
		ireal is lazy long macro mixin module new nothrow null out override
		package pragma private protected public pure real ref return scope
		shared short static struct super switch synchronized template this
		throw true try typeid typeof ubyte ucent uint ulong union unittest
		ushort version void wchar while with
		__FILE__ __FILE_FULL_PATH__ __MODULE__ __LINE__ __FUNCTION__
		__PRETTY_FUNCTION__ __gshared __traits __vector __parameters
		__DATE__ __EOF__ __TIME__ __TIMESTAMP__ __VENDOR__ __VERSION__`) {
		reserved[kw] = true
	}
}

// builtinRenames keeps runtime type names away from D's object module.
var builtinRenames = map[string]string{
	"Object":    "DotNetObject",
	"Exception": "DotNetException",
	"TypeInfo":  "DotNetTypeInfo",
}

// IsReserved reports whether s is a D keyword.
func IsReserved(s string) bool {
	return reserved[s]
}

// Identifier converts a field, parameter or method name to a D identifier.
// Reserved words get a trailing separator; forbidden characters become the
// separator.
func Identifier(s string) string {
	if IsReserved(s) {
		return s + Separator
	}
	return forbidden.Replace(s)
}

// TypeName returns the D name of a type, prefixed with its declaring-type
// chain when nested. e.g. Bar inside Foo → "InsideOf_Foo_Bar".
func TypeName(t metadata.TypeRef) string {
	prefix := ""
	if t.DeclaringType != nil {
		prefix = NestedPrefix + TypeName(*t.DeclaringType) + Separator
	}
	if renamed, ok := builtinRenames[t.Name]; ok {
		return prefix + renamed
	}
	return prefix + forbidden.Replace(t.Name)
}

// PackageName converts an assembly name to the root D package name.
// e.g. "Acme.Geometry" → "Acme_Geometry"
func PackageName(assembly string) string {
	return strings.ReplaceAll(metadata.SimpleAssemblyName(assembly), ".", Separator)
}

// ModuleName returns the fully qualified D module for a namespace.
func ModuleName(pkg, namespace string) string {
	if namespace == "" {
		return pkg
	}
	return pkg + "." + namespace
}

// NamespaceToModulePath converts a namespace to the relative path of its
// package unit. e.g. "Acme.Shapes" → "Acme/Shapes/package.d"
func NamespaceToModulePath(namespace string) string {
	path := ""
	if namespace != "" {
		for _, part := range strings.Split(namespace, ".") {
			path = filepath.Join(path, part)
		}
	}
	return filepath.Join(path, PackageUnit)
}

// FromDllPrefix is the D qualifier for types imported from another package.
func FromDllPrefix(pkg string) string {
	return `fromDll!"` + pkg + `".`
}

var lower = cases.Lower(language.Und)

// Lower lower-cases a base name for file and module names.
func Lower(s string) string {
	return lower.String(s)
}

// StaticSuffix names the companion counterpart of a module or type.
const StaticSuffix = "static"

// CompanionName returns the companion module or type name for name.
func CompanionName(name string) string {
	return name + StaticSuffix
}

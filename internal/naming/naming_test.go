package naming

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"martianoff/dbridge/internal/metadata"
)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"module", "module_"},
		{"version", "version_"},
		{"align", "align_"},
		{"scope", "scope_"},
		{"function", "function_"},
		{"asm", "asm_"},
		{"lazy", "lazy_"},
		{"ref", "ref_"},
		{"<Tag>k__BackingField", "_Tag_k__BackingField"},
		{"op=Equality", "op_Equality"},
		{"List`1", "List_1"},
		{"a$b", "a_b"},
		{"Count", "Count"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Identifier(tt.input))
		})
	}
}

func TestReservedWordsNeverSurvive(t *testing.T) {
	for kw := range reserved {
		got := Identifier(kw)
		assert.False(t, IsReserved(got), "%s rewritten to reserved %s", kw, got)
		assert.Equal(t, kw+Separator, got)
	}
}

func TestTypeName(t *testing.T) {
	foo := metadata.TypeRef{Name: "Foo", Namespace: "Acme"}
	bar := metadata.TypeRef{Name: "Bar", Namespace: "Acme", DeclaringType: &foo}
	baz := metadata.TypeRef{Name: "Baz", Namespace: "Acme", DeclaringType: &bar}

	tests := []struct {
		name     string
		ref      metadata.TypeRef
		expected string
	}{
		{"plain", foo, "Foo"},
		{"nested", bar, "InsideOf_Foo_Bar"},
		{"doubly nested", baz, "InsideOf_InsideOf_Foo_Bar_Baz"},
		{"object", metadata.Named("System.Object", ""), "DotNetObject"},
		{"exception", metadata.Named("Acme.Exception", ""), "DotNetException"},
		{"typeinfo", metadata.Named("System.Reflection.TypeInfo", ""), "DotNetTypeInfo"},
		{"generic arity", metadata.Named("Acme.Bag`1", ""), "Bag_1"},
		{"compiler generated", metadata.Named("<>c__DisplayClass", ""), "__c__DisplayClass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TypeName(tt.ref))
		})
	}
}

func TestPackageAndModuleNames(t *testing.T) {
	assert.Equal(t, "Acme_Geometry", PackageName("Acme.Geometry, Version=2.1.0.0, Culture=neutral"))
	assert.Equal(t, "Calc", PackageName("Calc"))
	assert.Equal(t, "Calc", ModuleName("Calc", ""))
	assert.Equal(t, "Acme_Geometry.Acme.Shapes", ModuleName("Acme_Geometry", "Acme.Shapes"))
	assert.Equal(t, `fromDll!"mscorlib".`, FromDllPrefix("mscorlib"))
}

func TestNamespaceToModulePath(t *testing.T) {
	assert.Equal(t, "package.d", NamespaceToModulePath(""))
	assert.Equal(t, filepath.Join("Acme", "Shapes", "package.d"), NamespaceToModulePath("Acme.Shapes"))
}

func TestLowerAndCompanion(t *testing.T) {
	assert.Equal(t, "mathlib", Lower("MathLib"))
	assert.Equal(t, "MathLibstatic", CompanionName("MathLib"))
}

package declgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/testutil"
)

func readUnit(t *testing.T, dir string, parts ...string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(append([]string{dir}, parts...)...))
	require.NoError(t, err)
	return string(data)
}

func TestScenarioAdd(t *testing.T) {
	out := t.TempDir()
	report, err := Generate(testutil.LoadModule(t, "calc.toml"), out, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Calc", report.PackageName)
	assert.Equal(t, []string{filepath.Join("Calc", "package.d")}, report.Files)
	assert.Equal(t, 1, report.Types)
	assert.Empty(t, report.Skipped)

	src := readUnit(t, out, "Calc", "package.d")
	assert.True(t, strings.HasPrefix(src, "module Calc;\n"))
	assert.Contains(t, src, "struct __d\n{\n    import cstring : CString, CStringLiteral;\n    static import dotnet;\n    static import clrbridge;\n    import clrbridgeglobal : globalClrBridge;\n")
	assert.Contains(t, src, "class Calculator\n{\n    public static int Add(int a, int b)\n    {\n")
	assert.Equal(t, 2, strings.Count(src, "getType(__param"))
	assert.Equal(t, 1, strings.Count(src, "getMethod("))
	assert.Equal(t, 2, strings.Count(src, "box!(__d.dotnet.PrimitiveType.Int32)"))
	assert.Contains(t, src, "        return int.init;\n    }\n}\n")
}

func TestAcmeDeclarations(t *testing.T) {
	out := t.TempDir()
	report, err := Generate(testutil.LoadModule(t, "acme.toml"), out, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Acme_Geometry", report.PackageName)
	assert.Equal(t, []string{
		filepath.Join("Acme_Geometry", "Acme", "Shapes", "package.d"),
		filepath.Join("Acme_Geometry", "Acme", "package.d"),
	}, report.Files)

	shapes := readUnit(t, out, "Acme_Geometry", "Acme", "Shapes", "package.d")
	acme := readUnit(t, out, "Acme_Geometry", "Acme", "package.d")

	t.Run("module lines", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(shapes, "module Acme_Geometry.Acme.Shapes;\n"))
		assert.True(t, strings.HasPrefix(acme, "module Acme_Geometry.Acme;\n"))
	})

	t.Run("enum placeholder", func(t *testing.T) {
		assert.Contains(t, shapes, "enum Color\n{\n    placeholder,")
	})

	t.Run("struct fields are rewritten", func(t *testing.T) {
		assert.Contains(t, shapes, "struct Point\n{\n    int X;")
		assert.Contains(t, shapes, `    double module_; // fromPrefix 'fromDll!"mscorlib".' System.Double System.Double, mscorlib`+"\n")
		assert.Contains(t, shapes, "    __d.CString _Tag_k__BackingField;")
		assert.Contains(t, shapes, "    public static double Distance(__d.dotnet.DotNetObject a, __d.dotnet.DotNetObject b)\n")
	})

	t.Run("member skips are indented", func(t *testing.T) {
		assert.NotContains(t, shapes, "\n// skipping method")
	})

	t.Run("interface", func(t *testing.T) {
		assert.Contains(t, shapes, "interface IShape\n{\n    public double Area();\n}\n")
		assert.Contains(t, shapes, "// skipping interface IBroken because it declares 1 field(s)\n")
		assert.NotContains(t, shapes, "interface IBroken\n{")
	})

	t.Run("delegate and generic are skipped", func(t *testing.T) {
		assert.Contains(t, shapes, "// skipping delegate ShapeCallback because delegates aren't implemented\n")
		assert.Contains(t, shapes, "// skipping type Bag`1 because generics aren't implemented\n")
		assert.NotContains(t, shapes, "Bag_1")
	})

	t.Run("class members", func(t *testing.T) {
		assert.Contains(t, shapes, "class Circle\n{\n")
		assert.Contains(t, shapes, `    __d.dotnet.DotNetObject Origin; // fromPrefix 'fromDll!"System".' System.Uri`)
		assert.Contains(t, shapes, "    public final double Area();\n")
		assert.Contains(t, shapes, "    public double get_Radius();\n")
		assert.Contains(t, shapes, "    // skipping method Map because generics aren't implemented\n")
		assert.Contains(t, shapes, "    protected void Resize(double factor);\n")
		assert.Contains(t, shapes, "    package void Recenter();\n")
		assert.Contains(t, shapes, "    public static __d.CString Describe(__d.CString label, __d.dotnet.DotNetObject weights, __d.dotnet.DotNetObject count)\n")
		assert.Contains(t, shapes, "        return __d.dotnet.DotNetObject.init;\n")
	})

	t.Run("nested and renamed types", func(t *testing.T) {
		assert.Contains(t, acme, "class Foo\n{\n}\n")
		assert.Contains(t, acme, "// DeclaringType = Foo\nclass InsideOf_Foo_Bar\n{\n    private static void Ping()\n    {\n")
		assert.Contains(t, acme, "class DotNetException\n")
		assert.NotContains(t, acme, "Helper")
	})

	assert.Equal(t, []string{
		"System, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089",
		"mscorlib",
	}, report.Assemblies)

	constructs := map[bridgeerr.Construct]int{}
	for _, s := range report.Skipped {
		constructs[s.Construct]++
	}
	assert.Equal(t, map[bridgeerr.Construct]int{
		bridgeerr.ConstructEnumValues: 1,
		bridgeerr.ConstructFields:     1,
		bridgeerr.ConstructDelegate:   1,
		bridgeerr.ConstructGeneric:    2,
	}, constructs)
}

func TestIncludeNonPublic(t *testing.T) {
	out := t.TempDir()
	_, err := Generate(testutil.LoadModule(t, "acme.toml"), out, Options{IncludeNonPublic: true})
	require.NoError(t, err)

	acme := readUnit(t, out, "Acme_Geometry", "Acme", "package.d")
	assert.Contains(t, acme, "class Helper\n{\n    public static long Sum(long x, long y, long z)\n")
}

func TestCustomPackageAndImports(t *testing.T) {
	out := t.TempDir()
	report, err := Generate(testutil.LoadModule(t, "calc.toml"), out, Options{
		PackageName: "calc",
		Imports: Imports{
			CString: "mylib.cstring",
			DotNet:  "mylib.dotnet",
			Bridge:  "clrbridge",
			Global:  "mylib.global",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "calc", report.PackageName)

	src := readUnit(t, out, "calc", "package.d")
	assert.True(t, strings.HasPrefix(src, "module calc;\n"))
	assert.Contains(t, src, "    import mylib.cstring : CString, CStringLiteral;\n")
	assert.Contains(t, src, "    import dotnet = mylib.dotnet;\n")
	assert.Contains(t, src, "    static import clrbridge;\n")
	assert.Contains(t, src, "    import mylib.global : globalClrBridge;\n")
}

func TestStaticImport(t *testing.T) {
	assert.Equal(t, "static import dotnet;", staticImport("dotnet", "dotnet"))
	assert.Equal(t, "import dotnet = a.dotnet;", staticImport("dotnet", "a.dotnet"))
}

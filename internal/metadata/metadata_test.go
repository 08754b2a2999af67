package metadata_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/metadata"
	"martianoff/dbridge/internal/testutil"
)

func TestLoadTOMLFixture(t *testing.T) {
	m := testutil.LoadModule(t, "acme.toml")

	assert.Equal(t, "Acme.Geometry", m.Name)
	assert.Equal(t, "Acme.Geometry", metadata.SimpleAssemblyName(m.AssemblyName()))

	circle, ok := m.Lookup("Acme.Shapes.Circle")
	require.True(t, ok)
	assert.True(t, circle.Sealed)
	require.Len(t, circle.Constructors, 2)
	assert.Len(t, circle.Constructors[0].Parameters, 2)

	bar, ok := m.Lookup("Acme.Foo+Bar")
	require.True(t, ok)
	require.NotNil(t, bar.DeclaringType)
	assert.Equal(t, "Foo", bar.DeclaringType.Name)
}

func TestTypeRefFullName(t *testing.T) {
	i32 := metadata.Named(metadata.SystemInt32, "mscorlib")
	outer := metadata.TypeRef{Name: "Foo", Namespace: "Acme"}

	tests := []struct {
		name     string
		ref      metadata.TypeRef
		expected string
	}{
		{"plain", i32, "System.Int32"},
		{"no namespace", metadata.TypeRef{Name: "Calculator"}, "Calculator"},
		{"array", metadata.ArrayOf(i32, 1), "System.Int32[]"},
		{"rank 2", metadata.ArrayOf(i32, 2), "System.Int32[,]"},
		{"jagged", metadata.ArrayOf(metadata.ArrayOf(i32, 1), 1), "System.Int32[][]"},
		{"by-ref", metadata.RefTo(i32), "System.Int32&"},
		{"nested", metadata.TypeRef{Name: "Bar", Namespace: "Acme", DeclaringType: &outer}, "Acme.Foo+Bar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ref.FullName())
		})
	}
}

func TestTypeRefShapes(t *testing.T) {
	i32 := metadata.Named(metadata.SystemInt32, "mscorlib")
	jagged := metadata.ArrayOf(metadata.ArrayOf(i32, 1), 1)

	assert.True(t, i32.Is(metadata.SystemInt32))
	assert.False(t, metadata.RefTo(i32).Is(metadata.SystemInt32))
	assert.True(t, jagged.IsJagged())
	assert.False(t, metadata.ArrayOf(i32, 2).IsJagged())
	assert.Equal(t, "Int32[][]", jagged.SimpleName())
	assert.Equal(t, "mscorlib", jagged.ScopeAssembly())
	assert.Equal(t, "System.Int32", jagged.Innermost().FullName())
	assert.True(t, metadata.Void().IsVoid())

	generic := metadata.TypeRef{Name: "T", GenericParameter: true}
	assert.True(t, metadata.ArrayOf(generic, 1).ContainsGenericParameter())
	assert.False(t, i32.ContainsGenericParameter())
}

func TestMembersOrder(t *testing.T) {
	m := testutil.LoadModule(t, "acme.toml")
	circle := testutil.FindType(t, m, "Acme.Shapes.Circle")

	members := circle.Members()
	require.NotEmpty(t, members)
	assert.Equal(t, metadata.MemberMethod, members[0].Kind)

	var kinds []metadata.MemberKind
	for _, mem := range members {
		if len(kinds) == 0 || kinds[len(kinds)-1] != mem.Kind {
			kinds = append(kinds, mem.Kind)
		}
	}
	assert.Equal(t, []metadata.MemberKind{
		metadata.MemberMethod,
		metadata.MemberConstructor,
		metadata.MemberProperty,
		metadata.MemberField,
	}, kinds)

	for _, mem := range members {
		if mem.Kind == metadata.MemberConstructor {
			assert.Equal(t, metadata.ConstructorName, mem.Name)
		}
	}
}

func TestCBORRoundTrip(t *testing.T) {
	m := testutil.LoadModule(t, "calc.toml")

	data, err := cbor.Marshal(m)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "Calc.cbor")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := metadata.Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.FullName, loaded.FullName)
	require.Len(t, loaded.Types, 1)
	add := loaded.Types[0].Methods[0]
	assert.Equal(t, "Add", add.Name)
	assert.True(t, add.Static)
	assert.Equal(t, "System.Int32", add.Returns().FullName())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := metadata.Load(filepath.Join(dir, "nope.toml"))
		var le *bridgeerr.LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, bridgeerr.TypeLoad, le.Type())
	})

	t.Run("unknown extension", func(t *testing.T) {
		path := filepath.Join(dir, "Foo.dll")
		require.NoError(t, os.WriteFile(path, []byte("MZ"), 0o644))
		_, err := metadata.Load(path)
		assert.ErrorContains(t, err, "unknown metadata format")
	})

	t.Run("invalid reference", func(t *testing.T) {
		path := filepath.Join(dir, "Bad.toml")
		body := "name = \"Bad\"\n[[types]]\nname = \"T\"\n  [[types.fields]]\n  name = \"f\"\n  type = { array-rank = 1 }\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := metadata.Load(path)
		assert.ErrorContains(t, err, "without element")
	})

	t.Run("name defaults to file name", func(t *testing.T) {
		path := filepath.Join(dir, "Anon.toml")
		require.NoError(t, os.WriteFile(path, []byte("[[types]]\nname = \"A\"\n"), 0o644))
		m, err := metadata.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Anon", m.Name)
	})
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "Lib.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("name = \"Lib\"\n"), 0o644))

	got, err := metadata.Resolve("Lib", []string{t.TempDir(), dir})
	require.NoError(t, err)
	assert.Equal(t, tomlPath, got)

	got, err = metadata.Resolve(tomlPath, nil)
	require.NoError(t, err)
	assert.Equal(t, tomlPath, got)

	_, err = metadata.Resolve("Missing", []string{dir})
	assert.Error(t, err)

	nested := filepath.Join(dir, "Pkg")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	cborPath := filepath.Join(nested, "Pkg.cbor")
	require.NoError(t, os.WriteFile(cborPath, []byte{0xa0}, 0o644))
	got, err = metadata.ResolveIn(dir, "Pkg")
	require.NoError(t, err)
	assert.Equal(t, cborPath, got)
}

package reflectgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/dbridge/internal/metadata"
	"martianoff/dbridge/internal/testutil"
)

func int32Param(name string) metadata.ParameterDescriptor {
	return metadata.ParameterDescriptor{Name: name, Type: metadata.Named(metadata.SystemInt32, "mscorlib")}
}

func TestScopedReleasesMatchHandles(t *testing.T) {
	m := testutil.LoadModule(t, "calc.toml")
	calc := testutil.FindType(t, m, "Calculator")
	g := New(m)

	tests := []struct {
		name   string
		params []metadata.ParameterDescriptor
		// declaring assembly+type, method, per-parameter assembly+type,
		// per-parameter box, argument array
		handles int
	}{
		{"no parameters", nil, 2 + 1 + 1},
		{"one parameter", []metadata.ParameterDescriptor{int32Param("a")}, 2 + 1 + 2 + 1 + 1},
		{"three parameters", []metadata.ParameterDescriptor{
			int32Param("a"), int32Param("b"), int32Param("c"),
		}, 2 + 1 + 6 + 3 + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := &metadata.MethodDescriptor{Name: "F", Static: true, Parameters: tt.params}
			body := g.Generate(calc, method)
			assert.Equal(t, tt.handles, body.Handles)
			assert.Equal(t, body.Handles, strings.Count(body.Text, "scope (exit)"))
		})
	}
}

func TestScenarioAdd(t *testing.T) {
	m := testutil.LoadModule(t, "calc.toml")
	calc := testutil.FindType(t, m, "Calculator")
	add := &calc.Methods[0]
	require.True(t, Applies(add))

	body := New(m).Generate(calc, add)

	assert.Contains(t, body.Text, `__this_type__ = __d.globalClrBridge.getType(__this_assembly__, __d.CStringLiteral!"Calculator");`)
	assert.Contains(t, body.Text, `__d.CStringLiteral!"Add",`)
	assert.Equal(t, 2, strings.Count(body.Text, "getType(__param"))
	assert.Equal(t, 1, strings.Count(body.Text, "getMethod("))
	assert.Contains(t, body.Text, "__param0__ = __d.globalClrBridge.box!(__d.dotnet.PrimitiveType.Int32)(a);")
	assert.Contains(t, body.Text, "__param1__ = __d.globalClrBridge.box!(__d.dotnet.PrimitiveType.Int32)(b);")
	assert.Contains(t, body.Text, " __param0__\n")
	assert.Contains(t, body.Text, ",__param1__\n")
	assert.Contains(t, body.Text, "funcs.CallGeneric(__method__, __d.dotnet.DotNetObject.nullObject, __param_values__);")
	assert.Equal(t, "        return int.init;\n", Placeholder(add))
}

func TestCompositeParametersPassThrough(t *testing.T) {
	m := testutil.LoadModule(t, "acme.toml")
	circle := testutil.FindType(t, m, "Acme.Shapes.Circle")

	var describe *metadata.MethodDescriptor
	for i := range circle.Methods {
		if circle.Methods[i].Name == "Describe" {
			describe = &circle.Methods[i]
		}
	}
	require.NotNil(t, describe)

	body := New(m).Generate(circle, describe)
	assert.Contains(t, body.Text, "box!(__d.dotnet.PrimitiveType.String)(label)")
	assert.NotContains(t, body.Text, "(weights)")
	assert.NotContains(t, body.Text, "(count)")
	assert.Contains(t, body.Text, ",weights\n")
	assert.Contains(t, body.Text, ",count\n")
	assert.Contains(t, body.Text, `getType(__param1_assembly__, __d.CStringLiteral!"System.Double[]")`)
	assert.Contains(t, body.Text, `getType(__param2_assembly__, __d.CStringLiteral!"System.Int32&")`)
	assert.Contains(t, body.Text, `loadAssembly(__d.CStringLiteral!"mscorlib")`)
	assert.Equal(t, 2+1+6+1+1, body.Handles)
}

func TestNestedTypeDefaultsToModuleAssembly(t *testing.T) {
	m := testutil.LoadModule(t, "acme.toml")
	bar := testutil.FindType(t, m, "Acme.Foo+Bar")

	body := New(m).Generate(bar, &bar.Methods[0])
	assert.Contains(t, body.Text, `loadAssembly(__d.CStringLiteral!"Acme.Geometry, Version=2.1.0.0, Culture=neutral, PublicKeyToken=null")`)
	assert.Contains(t, body.Text, `__d.CStringLiteral!"Acme.Foo+Bar"`)
	assert.Empty(t, Placeholder(&bar.Methods[0]))
}

func TestApplies(t *testing.T) {
	assert.True(t, Applies(&metadata.MethodDescriptor{Static: true}))
	assert.False(t, Applies(&metadata.MethodDescriptor{Static: true, Virtual: true}))
	assert.False(t, Applies(&metadata.MethodDescriptor{}))
}

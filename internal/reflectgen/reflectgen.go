// Package reflectgen writes bodies for static methods that resolve and invoke
// their target through the bridging library at call time.
//
// Every handle a body acquires is released by exactly one scope (exit)
// statement, so a body holds no references once it returns or throws.
package reflectgen

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"martianoff/dbridge/internal/marshal"
	"martianoff/dbridge/internal/metadata"
	"martianoff/dbridge/internal/naming"
)

const (
	bodyIndent  = "        "
	blockIndent = "            "
	argIndent   = "                "
)

// Bridge is the path of the bridging library's global instance inside the
// private __d wrapper.
const Bridge = "__d.globalClrBridge"

// Body is one generated method body.
type Body struct {
	Text string

	// Handles counts the handles the body acquires. Each is paired with one
	// scoped release.
	Handles int
}

// Generator writes reflective bodies for the types of one module.
type Generator struct {
	module *metadata.Module
	logger *zap.Logger
}

// New creates a generator for m.
func New(m *metadata.Module) *Generator {
	return &Generator{module: m, logger: Logger()}
}

// Applies reports whether a method gets a reflective body: static and
// non-virtual only.
func Applies(m *metadata.MethodDescriptor) bool {
	return m.Static && !m.Virtual
}

// Generate writes the body of a static method declared by t. The body does
// not include the placeholder return; the caller appends it.
func (g *Generator) Generate(t *metadata.TypeDescriptor, m *metadata.MethodDescriptor) Body {
	var b bodyWriter
	g.logger.Debug("reflective body",
		zap.String("type", g.module.Ref(t).FullName()),
		zap.String("method", m.Name),
		zap.Int("params", len(m.Parameters)))

	b.typeGetter(bodyIndent, g.assemblyOf(g.module.Ref(t)), g.module.Ref(t).FullName(),
		"__this_assembly__", "__this_type__")

	b.line(bodyIndent, "auto  __method__ = __d.clrbridge.MethodInfo.nullObject;")
	b.release(bodyIndent, "{ if (!__method__.isNull) "+Bridge+".release(__method__); }")

	// Method lookup by exact parameter-type list. No widening is attempted;
	// a mismatch surfaces inside the bridging library when the body runs.
	b.line(bodyIndent, "{")
	for i, p := range m.Parameters {
		b.typeGetter(blockIndent, g.assemblyOf(p.Type), p.Type.FullName(),
			fmt.Sprintf("__param%d_assembly__", i),
			fmt.Sprintf("__param%d_type__", i))
	}
	b.line(blockIndent, "__method__ = "+Bridge+".getMethod(__this_type__,")
	b.line(argIndent, fmt.Sprintf("__d.CStringLiteral!%q,", m.Name))
	b.line(argIndent, Bridge+".makeGenericArray("+Bridge+".typeType")
	for i := range m.Parameters {
		b.line(argIndent, fmt.Sprintf(", __param%d_type__", i))
	}
	b.line(argIndent, "));")
	b.line(bodyIndent, "}")

	for i, p := range m.Parameters {
		if marshal.PassThrough(p.Type) {
			continue
		}
		tag := marshal.BoxTag(p.Type)
		if tag == "" {
			continue
		}
		b.line(bodyIndent, fmt.Sprintf(
			"auto  __param%d__ = %s.box!(__d.dotnet.PrimitiveType.%s)(%s); // actual type is %s",
			i, Bridge, tag, naming.Identifier(p.Name), naming.TypeName(p.Type)))
		b.release(bodyIndent, fmt.Sprintf("%s.release(__param%d__);", Bridge, i))
	}

	b.line(bodyIndent, "__d.ObjectArray __param_values__ = "+Bridge+".makeObjectArray(")
	sep := " "
	for i, p := range m.Parameters {
		if boxed(p.Type) {
			b.line(blockIndent, fmt.Sprintf("%s__param%d__", sep, i))
		} else {
			b.line(blockIndent, sep+naming.Identifier(p.Name))
		}
		sep = ","
	}
	b.line(bodyIndent, ");")
	b.release(bodyIndent, "{ "+Bridge+".release(__param_values__); }")
	b.line(bodyIndent, Bridge+".funcs.CallGeneric(__method__, __d.dotnet.DotNetObject.nullObject, __param_values__);")

	return Body{Text: b.String(), Handles: b.handles}
}

// Placeholder is the return statement closing a non-void body. The call
// result is not unmarshalled.
func Placeholder(m *metadata.MethodDescriptor) string {
	ret := m.Returns()
	if ret.IsVoid() {
		return ""
	}
	return bodyIndent + "return " + marshal.DType(ret) + ".init;\n"
}

// assemblyOf returns the display name of the assembly defining r, defaulting
// to the module's own assembly for references recorded without one.
func (g *Generator) assemblyOf(r metadata.TypeRef) string {
	if asm := r.ScopeAssembly(); asm != "" {
		return asm
	}
	return g.module.AssemblyName()
}

func boxed(t metadata.TypeRef) bool {
	return !marshal.PassThrough(t) && marshal.BoxTag(t) != ""
}

type bodyWriter struct {
	strings.Builder
	handles int
}

func (b *bodyWriter) line(indent, s string) {
	b.WriteString(indent)
	b.WriteString(s)
	b.WriteByte('\n')
}

// release writes a scoped release and accounts for the handle it frees.
func (b *bodyWriter) release(indent, stmt string) {
	b.handles++
	b.line(indent, "scope (exit) "+stmt)
}

func (b *bodyWriter) typeGetter(indent, assembly, fullName, asmVar, typeVar string) {
	b.line(indent, fmt.Sprintf("const  %s = %s.loadAssembly(__d.CStringLiteral!%q);", asmVar, Bridge, assembly))
	b.release(indent, fmt.Sprintf("%s.release(%s);", Bridge, asmVar))
	b.line(indent, fmt.Sprintf("const  %s = %s.getType(%s, __d.CStringLiteral!%q);", typeVar, Bridge, asmVar, fullName))
	b.release(indent, fmt.Sprintf("%s.release(%s);", Bridge, typeVar))
}

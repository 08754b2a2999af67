// Package declgen renders the D declarations of a module, one package unit
// per namespace, with reflective bodies for static methods.
package declgen

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/classify"
	"martianoff/dbridge/internal/marshal"
	"martianoff/dbridge/internal/metadata"
	"martianoff/dbridge/internal/naming"
	"martianoff/dbridge/internal/reflectgen"
	"martianoff/dbridge/internal/registry"
)

const memberIndent = "    "

// Imports names the D modules the private __d wrapper pulls in.
type Imports struct {
	CString string // provides CString and CStringLiteral
	DotNet  string // runtime types: DotNetObject, PrimitiveType, Decimal
	Bridge  string // bridging library: Array, MethodInfo
	Global  string // provides the globalClrBridge instance
}

// DefaultImports are the module names of the stock bridging library.
var DefaultImports = Imports{
	CString: "cstring",
	DotNet:  "dotnet",
	Bridge:  "clrbridge",
	Global:  "clrbridgeglobal",
}

// Options configures a generation run.
type Options struct {
	// PackageName overrides the root D package. Defaults to the module's
	// assembly name with dots replaced.
	PackageName      string
	IncludeNonPublic bool
	Imports          Imports
}

// Report summarizes a run.
type Report struct {
	PackageName string
	Files       []string // relative to the output directory
	Types       int      // types rendered
	Skipped     []*bridgeerr.UnsupportedError

	// Assemblies lists the foreign assemblies whose types the fields refer
	// to, sorted by package name.
	Assemblies []string
}

// Generator renders one module. It implements classify.Visitor.
type Generator struct {
	module  *metadata.Module
	reg     *registry.Registry
	reflect *reflectgen.Generator
	opts    Options
	logger  *zap.Logger
	report  *Report
	unit    *registry.Unit
}

var _ classify.Visitor = (*Generator)(nil)

// Generate writes the declarations of m under outputDir and returns a report
// of what was written and skipped. Units already created are flushed even
// when an error stops the run.
func Generate(m *metadata.Module, outputDir string, opts Options) (report *Report, err error) {
	if opts.Imports == (Imports{}) {
		opts.Imports = DefaultImports
	}
	pkg := opts.PackageName
	if pkg == "" {
		pkg = naming.PackageName(m.AssemblyName())
	}

	g := &Generator{
		module:  m,
		reflect: reflectgen.New(m),
		opts:    opts,
		logger:  Logger(),
		report:  &Report{PackageName: pkg},
	}
	g.reg = registry.New(outputDir, pkg, g.header)
	g.logger.Info("generating declarations",
		zap.String("module", m.Name),
		zap.String("package", pkg))

	defer func() {
		if closeErr := g.reg.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		g.report.Files = g.reg.Files()
		for _, a := range g.reg.Assemblies() {
			g.report.Assemblies = append(g.report.Assemblies, a.Assembly)
		}
		report = g.report
	}()

	c := classify.New(m, classify.Options{IncludeNonPublic: opts.IncludeNonPublic})
	return g.report, c.Walk(g)
}

// header writes the module line and the private __d wrapper that keeps
// bridging-library symbols out of the generated namespace.
func (g *Generator) header(u *registry.Unit) {
	imp := g.opts.Imports
	u.Printf("module %s;\n", u.Module)
	u.Println("")
	u.Println("// Keep D Symbols inside the __d struct to prevent symbol conflicts")
	u.Println("struct __d")
	u.Println("{")
	u.Printf("    import %s : CString, CStringLiteral;\n", imp.CString)
	u.Println("    " + staticImport("dotnet", imp.DotNet))
	u.Println("    " + staticImport("clrbridge", imp.Bridge))
	u.Printf("    import %s : globalClrBridge;\n", imp.Global)
	u.Println("    alias ObjectArray = clrbridge.Array!(dotnet.PrimitiveType.Object);")
	u.Println("}")
}

// staticImport imports module under alias so generated code can always
// qualify through the alias.
func staticImport(alias, module string) string {
	if module == alias {
		return "static import " + module + ";"
	}
	return "import " + alias + " = " + module + ";"
}

// Namespace implements classify.Visitor.
func (g *Generator) Namespace(ns string) error {
	u, err := g.reg.Unit(ns)
	if err != nil {
		return err
	}
	g.unit = u
	return nil
}

// Skip implements classify.Visitor.
func (g *Generator) Skip(t *metadata.TypeDescriptor, reason *bridgeerr.UnsupportedError) error {
	g.message("", reason)
	return nil
}

// message records an unsupported construct, logs it and leaves a comment in
// the current unit, indented to the level of the skipped declaration.
func (g *Generator) message(indent string, reason *bridgeerr.UnsupportedError) {
	g.logger.Info(reason.Msg,
		zap.String("construct", string(reason.Construct)),
		zap.String("type", reason.TypeName),
		zap.String("member", reason.Member))
	g.unit.Printf("%s// %s\n", indent, reason.Msg)
	g.report.Skipped = append(g.report.Skipped, reason)
}

// Type implements classify.Visitor.
func (g *Generator) Type(c classify.Classified) error {
	t := c.Type
	name := naming.TypeName(g.module.Ref(t))
	g.logger.Debug("type",
		zap.String("name", g.module.Ref(t).FullName()),
		zap.Stringer("kind", c.Kind))

	switch c.Kind {
	case classify.Enum:
		g.enum(t, name)
	case classify.ValueRecord:
		g.aggregate("struct", t, name)
	case classify.Interface:
		if len(t.Fields) > 0 {
			g.message("", bridgeerr.NewUnsupported(bridgeerr.ConstructFields, t.Name,
				fmt.Sprintf("skipping interface %s because it declares %d field(s)", name, len(t.Fields))))
			return nil
		}
		g.aggregate("interface", t, name)
	case classify.Delegate:
		g.message("", bridgeerr.NewUnsupported(bridgeerr.ConstructDelegate, t.Name,
			fmt.Sprintf("skipping delegate %s because delegates aren't implemented", name)))
		return nil
	case classify.ReferenceClass:
		if t.DeclaringType != nil {
			g.unit.Comment("DeclaringType = %s", naming.TypeName(*t.DeclaringType))
		}
		g.aggregate("class", t, name)
	default:
		return fmt.Errorf("type %s: unknown kind %s", t.Name, c.Kind)
	}
	g.report.Types++
	return nil
}

func (g *Generator) enum(t *metadata.TypeDescriptor, name string) {
	g.report.Skipped = append(g.report.Skipped, bridgeerr.NewUnsupported(
		bridgeerr.ConstructEnumValues, t.Name, "enum values are not generated"))
	u := g.unit
	u.Printf("enum %s\n", name)
	u.Println("{")
	u.Println(memberIndent + "placeholder, // enum values are not generated")
	u.Println("}")
}

func (g *Generator) aggregate(keyword string, t *metadata.TypeDescriptor, name string) {
	u := g.unit
	u.Printf("%s %s\n", keyword, name)
	u.Println("{")
	if keyword != "interface" {
		g.fields(t)
	}
	g.methods(t)
	u.Println("}")
}

func (g *Generator) fields(t *metadata.TypeDescriptor) {
	for _, f := range t.Fields {
		g.unit.Printf("%s%s %s; // fromPrefix '%s' %s %s\n",
			memberIndent,
			marshal.DType(f.Type),
			naming.Identifier(f.Name),
			g.fromDll(f.Type),
			f.Type.FullName(),
			f.Type.QualifiedName())
	}
}

// fromDll returns the package qualifier of a type defined in another
// assembly, or "" for types of this module.
func (g *Generator) fromDll(r metadata.TypeRef) string {
	asm := r.ScopeAssembly()
	if asm == "" || g.module.Owns(r.Innermost()) {
		return ""
	}
	return g.reg.Assembly(asm).FromDllPrefix
}

func (g *Generator) methods(t *metadata.TypeDescriptor) {
	for i := range t.Methods {
		m := &t.Methods[i]
		if m.Generic || hasGenericParameter(m) {
			g.message(memberIndent, bridgeerr.NewUnsupportedMember(bridgeerr.ConstructGeneric, t.Name, m.Name,
				fmt.Sprintf("skipping method %s because generics aren't implemented", m.Name)))
			continue
		}
		g.method(t, m)
	}
}

func (g *Generator) method(t *metadata.TypeDescriptor, m *metadata.MethodDescriptor) {
	g.logger.Debug("method", zap.String("type", t.Name), zap.String("method", m.Name))

	var sig strings.Builder
	sig.WriteString(memberIndent)
	sig.WriteString(protection(m.Visibility))
	if m.Static {
		sig.WriteString(" static")
	} else if m.Final {
		sig.WriteString(" final")
	}
	fmt.Fprintf(&sig, " %s %s(", marshal.DType(m.Returns()), naming.Identifier(m.Name))
	for i, p := range m.Parameters {
		if i > 0 {
			sig.WriteString(", ")
		}
		fmt.Fprintf(&sig, "%s %s", marshal.DType(p.Type), naming.Identifier(p.Name))
	}
	sig.WriteString(")")

	u := g.unit
	if !reflectgen.Applies(m) {
		// Virtual methods would need dispatch on the receiver's runtime type,
		// and instance bodies are not generated; both stay declarations.
		u.Println(sig.String() + ";")
		return
	}
	u.Println(sig.String())
	u.Println(memberIndent + "{")
	body := g.reflect.Generate(t, m)
	u.Printf("%s", body.Text)
	u.Printf("%s", reflectgen.Placeholder(m))
	u.Println(memberIndent + "}")
}

// protection maps runtime visibility to a D protection attribute. Assembly
// visibility has no D counterpart outside the package and renders as package.
func protection(v metadata.Visibility) string {
	switch v {
	case metadata.Private:
		return "private"
	case metadata.Family, metadata.FamOrAssy:
		return "protected"
	case metadata.Assembly:
		return "package"
	}
	return "public"
}

func hasGenericParameter(m *metadata.MethodDescriptor) bool {
	if m.Returns().ContainsGenericParameter() {
		return true
	}
	for _, p := range m.Parameters {
		if p.Type.ContainsGenericParameter() {
			return true
		}
	}
	return false
}

// Package trampoline builds the handle-based bridge: D wrapper structs whose
// methods call flat extern(C) entry points, and the companion module holding
// those entry points.
package trampoline

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/cil"
	"martianoff/dbridge/internal/classify"
	"martianoff/dbridge/internal/marshal"
	"martianoff/dbridge/internal/metadata"
	"martianoff/dbridge/internal/naming"
)

// Trampoline names of the handle lifecycle pair.
const (
	MakeName  = "make"
	UnpinName = "unpin"
)

const (
	getterPrefix = "get_"
	setterPrefix = "set_"
	handleParam  = "handle"
	rawField     = "_raw"
)

// Options configures the builder.
type Options struct {
	// HostModule is the D symbol exposing create_delegate.
	HostModule string
	// Imports are the D modules imported by the wrapper file.
	Imports []string
	// Corlib is the assembly defining System.Object and GCHandle.
	Corlib string
	// IncludeNonPublic also wraps non-exported types.
	IncludeNonPublic bool
}

// DefaultOptions matches the stock host-embedding layer.
func DefaultOptions() Options {
	return Options{
		HostModule: "clrhost",
		Imports:    []string{"dflat.wrap", "dflat.types", "dflat.host"},
		Corlib:     "mscorlib",
	}
}

// Result is the in-memory output of a build.
type Result struct {
	Wrapper     string // D source
	WrapperName string // D module name
	Companion   *cil.Module
	Types       int
	Trampolines int
	Skipped     []*bridgeerr.UnsupportedError
}

// Builder walks one module. It implements classify.Visitor.
type Builder struct {
	source    *metadata.Module
	baseName  string
	opts      Options
	logger    *zap.Logger
	companion *cil.Module
	importer  *cil.Importer
	out       strings.Builder
	result    *Result
}

var _ classify.Visitor = (*Builder)(nil)

// Build generates the wrapper and companion module for src. baseName names
// both: the wrapper module is its lower-cased form and the companion module
// is baseName + "static".
func Build(src *metadata.Module, baseName string, opts Options) (*Result, error) {
	def := DefaultOptions()
	if opts.HostModule == "" {
		opts.HostModule = def.HostModule
	}
	if opts.Corlib == "" {
		opts.Corlib = def.Corlib
	}
	if opts.Imports == nil {
		opts.Imports = def.Imports
	}

	companion := cil.NewModule(naming.CompanionName(baseName), opts.Corlib)
	b := &Builder{
		source:    src,
		baseName:  baseName,
		opts:      opts,
		logger:    Logger(),
		companion: companion,
		importer:  cil.NewImporter(companion, src),
		result: &Result{
			WrapperName: naming.Lower(baseName),
			Companion:   companion,
		},
	}
	b.header()

	c := classify.New(src, classify.Options{IncludeNonPublic: opts.IncludeNonPublic})
	if err := c.Walk(b); err != nil {
		return nil, err
	}
	if err := cil.Validate(companion); err != nil {
		return nil, err
	}
	b.result.Wrapper = b.out.String()
	return b.result, nil
}

func (b *Builder) header() {
	fmt.Fprintf(&b.out, "module %s;\n", b.result.WrapperName)
	for _, imp := range b.opts.Imports {
		fmt.Fprintf(&b.out, "import %s;\n", imp)
	}
	b.out.WriteString("import core.memory : GC;\n")
}

// Namespace implements classify.Visitor. The wrapper is a single module.
func (b *Builder) Namespace(string) error {
	return nil
}

// Skip implements classify.Visitor.
func (b *Builder) Skip(t *metadata.TypeDescriptor, reason *bridgeerr.UnsupportedError) error {
	b.message("", reason)
	return nil
}

func (b *Builder) message(indent string, reason *bridgeerr.UnsupportedError) {
	b.logger.Info(reason.Msg,
		zap.String("construct", string(reason.Construct)),
		zap.String("type", reason.TypeName),
		zap.String("member", reason.Member))
	fmt.Fprintf(&b.out, "%s// %s\n", indent, reason.Msg)
	b.result.Skipped = append(b.result.Skipped, reason)
}

// Type implements classify.Visitor.
func (b *Builder) Type(c classify.Classified) error {
	switch {
	case c.Kind == classify.Delegate:
		b.message("", bridgeerr.NewUnsupported(bridgeerr.ConstructDelegate, c.Type.Name,
			fmt.Sprintf("skipping delegate %s because delegates aren't implemented", naming.TypeName(b.source.Ref(c.Type)))))
		return nil
	case !c.Kind.IsReference():
		b.logger.Debug("not a reference type", zap.String("type", c.Type.Name), zap.Stringer("kind", c.Kind))
		return nil
	}
	return b.wrapType(c.Type)
}

// typeContext carries per-type state while its members are emitted.
type typeContext struct {
	desc      *metadata.TypeDescriptor
	ref       metadata.TypeRef
	dName     string // D struct name
	companion *cil.TypeDef
	lookup    string // companion type name passed to create_delegate
	emitted   map[string]bool
}

func (b *Builder) wrapType(t *metadata.TypeDescriptor) error {
	ref := b.source.Ref(t)
	tc := &typeContext{
		desc:    t,
		ref:     ref,
		dName:   naming.TypeName(ref),
		emitted: make(map[string]bool),
	}
	tc.companion = b.companion.AddType(t.Namespace, naming.CompanionName(tc.dName))
	tc.lookup = tc.companion.FullName()
	b.logger.Debug("type", zap.String("name", ref.FullName()), zap.String("companion", tc.lookup))

	fmt.Fprintf(&b.out, "struct %s\n{\n", tc.dName)
	fmt.Fprintf(&b.out, "    %s %s;\n    alias %s this;\n\n", marshal.Wrapper(t.Name), rawField, rawField)
	b.out.WriteString("    import core.memory : GC;\n")

	// First occurrence of a name wins; later overloads and accessors that
	// share a name with an earlier member are dropped.
	visited := make(map[string]bool)
	for _, m := range t.Members() {
		if visited[m.Name] {
			continue
		}
		visited[m.Name] = true

		var err error
		switch m.Kind {
		case metadata.MemberMethod:
			err = b.method(tc, m.Method)
		case metadata.MemberConstructor:
			err = b.constructor(tc, m.Constructor)
		}
		if err != nil {
			return err
		}
	}
	b.out.WriteString("}\n")
	b.result.Types++
	return nil
}

func (b *Builder) method(tc *typeContext, m *metadata.MethodDescriptor) error {
	// The companion lives in another assembly and can only reach public
	// members.
	if !m.Visibility.IsPublic() {
		return nil
	}
	if m.Generic || hasGenericParameter(m) {
		b.message("    ", bridgeerr.NewUnsupportedMember(bridgeerr.ConstructGeneric, tc.desc.Name, m.Name,
			fmt.Sprintf("skipping method %s because generics aren't implemented", m.Name)))
		return nil
	}

	name := m.Name
	switch name {
	case "ToString":
		if bridgesMethod(tc.desc, "toString") {
			return nil
		}
		name = "toString"
	case "GetType":
		return nil
	}

	dName := name
	property := strings.HasPrefix(name, getterPrefix) || strings.HasPrefix(name, setterPrefix)
	if property {
		dName = name[len(getterPrefix):]
	}

	params := metadata.ParameterTypes(m.Parameters)
	ret := m.Returns()
	sig, ok := b.boundary(tc, m.Name, ret, params)
	if !ok {
		return nil
	}

	b.logger.Debug("method", zap.String("type", tc.desc.Name), zap.String("method", name))
	b.wrapper(tc, wrapperMethod{
		static:   m.Static,
		property: property,
		ret:      sig.ret,
		name:     naming.Identifier(dName),
		params:   sig.params,
		entry:    name,
	})

	md, err := b.forward(tc, name, m, params, ret)
	if err != nil {
		return bridgeerr.WrapEmission(b.companion.Name, tc.lookup, name, err)
	}
	tc.emitted[md.Name] = true
	b.result.Trampolines++
	return nil
}

// forward emits the companion trampoline calling m.
func (b *Builder) forward(tc *typeContext, name string, m *metadata.MethodDescriptor, params []metadata.TypeRef, ret metadata.TypeRef) (*cil.MethodDef, error) {
	target, err := b.importer.Method(tc.ref, m.Name, !m.Static, ret, params)
	if err != nil {
		return nil, err
	}

	var ilParams []cil.Param
	if !m.Static {
		ilParams = append(ilParams, cil.Param{Name: handleParam, Type: cil.NativeInt})
	}
	for i, p := range target.Params {
		ilParams = append(ilParams, cil.Param{Name: m.Parameters[i].Name, Type: p})
	}
	md := tc.companion.AddMethod(name, target.Return, ilParams...)

	if m.Static {
		for i := range params {
			md.Emit(cil.LoadArg(i))
		}
		md.Emit(cil.CallMethod(target), cil.Return())
		return md, nil
	}

	gch := b.companion.CorlibType(metadata.SystemGCHandle, true)
	self, err := b.importer.Import(tc.ref)
	if err != nil {
		return nil, err
	}
	handle := md.Local(gch)
	obj := md.Local(cil.Object)
	typed := md.Local(self)

	md.Emit(
		cil.LoadArg(0),
		cil.CallMethod(fromIntPtr(gch)),
		cil.StoreLocal(handle),
		cil.LoadLocalAddr(handle),
		cil.CallMethod(&cil.MethodRef{Instance: true, Return: cil.Object, Owner: gch, Name: "get_Target"}),
		cil.StoreLocal(obj),
		cil.LoadLocal(obj),
		cil.CastClass(self),
		cil.StoreLocal(typed),
		cil.LoadLocal(typed),
	)
	// Argument 0 is the handle; the method's own arguments follow it.
	for i := range params {
		md.Emit(cil.LoadArg(i + 1))
	}
	if tc.desc.Sealed {
		md.Emit(cil.CallMethod(target))
	} else {
		md.Emit(cil.CallVirtual(target))
	}
	if !target.Return.IsVoid() {
		result := md.Local(target.Return)
		md.Emit(cil.StoreLocal(result), cil.LoadLocal(result))
	}
	md.Emit(cil.Return())
	return md, nil
}

// constructor emits the make/unpin pair for the first constructor.
func (b *Builder) constructor(tc *typeContext, ctor *metadata.ConstructorDescriptor) error {
	if !ctor.Visibility.IsPublic() {
		return nil
	}
	if tc.emitted[MakeName] || tc.emitted[UnpinName] {
		msg := fmt.Sprintf("skipping constructor of %s because a method already uses the name %s or %s",
			tc.dName, MakeName, UnpinName)
		b.logger.Info(msg, zap.String("type", tc.desc.Name))
		fmt.Fprintf(&b.out, "    // %s\n", msg)
		return nil
	}

	params := metadata.ParameterTypes(ctor.Parameters)
	sig, ok := b.boundary(tc, metadata.ConstructorName, metadata.Void(), params)
	if !ok {
		return nil
	}

	b.wrapper(tc, wrapperMethod{
		static: true,
		ret:    tc.dName,
		abiRet: marshal.RawPointer,
		name:   MakeName,
		params: sig.params,
		entry:  MakeName,
	})
	b.wrapper(tc, wrapperMethod{
		ret:   "void",
		name:  UnpinName,
		entry: UnpinName,
	})

	if err := b.makeTrampoline(tc, ctor, params); err != nil {
		return bridgeerr.WrapEmission(b.companion.Name, tc.lookup, MakeName, err)
	}
	b.unpinTrampoline(tc)
	tc.emitted[MakeName] = true
	tc.emitted[UnpinName] = true
	b.result.Trampolines += 2
	return nil
}

func (b *Builder) makeTrampoline(tc *typeContext, ctor *metadata.ConstructorDescriptor, params []metadata.TypeRef) error {
	target, err := b.importer.Method(tc.ref, metadata.ConstructorName, true, metadata.Void(), params)
	if err != nil {
		return err
	}
	gch := b.companion.CorlibType(metadata.SystemGCHandle, true)

	ilParams := make([]cil.Param, len(target.Params))
	for i, p := range target.Params {
		ilParams[i] = cil.Param{Name: ctor.Parameters[i].Name, Type: p}
	}
	md := tc.companion.AddMethod(MakeName, cil.NativeInt, ilParams...)
	obj := md.Local(cil.Object)
	handle := md.Local(gch)
	ptr := md.Local(cil.NativeInt)

	for i := range params {
		md.Emit(cil.LoadArg(i))
	}
	md.Emit(
		cil.NewObject(target),
		cil.StoreLocal(obj),
		cil.LoadLocal(obj),
		cil.CallMethod(&cil.MethodRef{Return: gch, Owner: gch, Name: "Alloc", Params: []cil.Type{cil.Object}}),
		cil.StoreLocal(handle),
		cil.LoadLocal(handle),
		cil.CallMethod(&cil.MethodRef{Return: cil.NativeInt, Owner: gch, Name: "ToIntPtr", Params: []cil.Type{gch}}),
		cil.StoreLocal(ptr),
		cil.LoadLocal(ptr),
		cil.Return(),
	)
	return nil
}

func (b *Builder) unpinTrampoline(tc *typeContext) {
	gch := b.companion.CorlibType(metadata.SystemGCHandle, true)
	md := tc.companion.AddMethod(UnpinName, cil.Void, cil.Param{Name: handleParam, Type: cil.NativeInt})
	handle := md.Local(gch)
	md.Emit(
		cil.LoadArg(0),
		cil.CallMethod(fromIntPtr(gch)),
		cil.StoreLocal(handle),
		cil.LoadLocalAddr(handle),
		cil.CallMethod(&cil.MethodRef{Instance: true, Return: cil.Void, Owner: gch, Name: "Free"}),
		cil.Return(),
	)
}

func fromIntPtr(gch cil.Type) *cil.MethodRef {
	return &cil.MethodRef{Return: gch, Owner: gch, Name: "FromIntPtr", Params: []cil.Type{cil.NativeInt}}
}

// boundarySig is a member signature in call-boundary D types.
type boundarySig struct {
	ret    string
	params []string
}

// boundary maps a signature, skipping the member with a comment when any
// type cannot cross the call boundary.
func (b *Builder) boundary(tc *typeContext, member string, ret metadata.TypeRef, params []metadata.TypeRef) (boundarySig, bool) {
	var sig boundarySig
	var err error
	if sig.ret, err = marshal.BoundaryType(ret); err == nil {
		sig.params = make([]string, len(params))
		for i, p := range params {
			if sig.params[i], err = marshal.BoundaryType(p); err != nil {
				break
			}
		}
	}
	if err == nil {
		return sig, true
	}

	reason := bridgeerr.NewUnsupportedMember(bridgeerr.ConstructJaggedArray, tc.desc.Name, member,
		fmt.Sprintf("skipping %s: %v", member, err))
	if u, ok := err.(*bridgeerr.UnsupportedError); ok {
		reason = bridgeerr.NewUnsupportedMember(u.Construct, tc.desc.Name, member,
			fmt.Sprintf("skipping %s because %s", member, u.Msg))
	}
	b.message("    ", reason)
	return boundarySig{}, false
}

// wrapperMethod is one D wrapper method.
type wrapperMethod struct {
	static   bool
	property bool
	ret      string // D return type
	abiRet   string // return type of the extern(C) entry point, if different
	name     string // D method name
	params   []string
	entry    string // companion method name
}

// wrapper writes a D method that suspends collection, resolves the entry
// point through the host and calls it.
func (b *Builder) wrapper(tc *typeContext, w wrapperMethod) {
	out := &b.out
	abiRet := w.ret
	if w.abiRet != "" {
		abiRet = w.abiRet
	}

	decl := make([]string, len(w.params))
	args := make([]string, 0, len(w.params)+1)
	abi := make([]string, 0, len(w.params)+1)
	if !w.static {
		abi = append(abi, marshal.RawPointer)
		args = append(args, rawField)
	}
	for i, p := range w.params {
		arg := fmt.Sprintf("_param_%d", i)
		decl[i] = p + " " + arg
		abi = append(abi, p)
		args = append(args, arg)
	}

	out.WriteString("    ")
	if w.static {
		out.WriteString("static ")
	}
	if w.property {
		out.WriteString("@property ")
	}
	fmt.Fprintf(out, "%s %s(%s)\n    {\n", w.ret, w.name, strings.Join(decl, ", "))
	fmt.Fprintf(out, "        alias func = extern(C) %s function(%s);\n", abiRet, strings.Join(abi, ", "))
	out.WriteString("        // Avoid the GC stopping a running C# thread.\n")
	out.WriteString("        GC.disable; scope(exit) GC.enable;\n")
	fmt.Fprintf(out, "        auto f = cast(func)(%s.create_delegate(%q, %q, %q));\n",
		b.opts.HostModule, b.companion.Name, tc.lookup, w.entry)
	if w.ret == "void" {
		fmt.Fprintf(out, "        return f(%s);\n", strings.Join(args, ", "))
	} else {
		fmt.Fprintf(out, "        auto ret = f(%s);\n", strings.Join(args, ", "))
		fmt.Fprintf(out, "        return *cast(%s*)&ret;\n", w.ret)
	}
	out.WriteString("    }\n\n")
}

// bridgesMethod reports whether t has a method called name that gets a
// trampoline of its own.
func bridgesMethod(t *metadata.TypeDescriptor, name string) bool {
	for i := range t.Methods {
		m := &t.Methods[i]
		if m.Name == name && m.Visibility.IsPublic() && !m.Generic && !hasGenericParameter(m) {
			return true
		}
	}
	return false
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

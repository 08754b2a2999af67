// Package cil models the companion module: a set of static trampoline
// classes written out as IL assembler source.
//
// Method bodies are straight-line code with no branches or exception blocks,
// so stack validation is a single linear pass.
package cil

import (
	"sort"

	"martianoff/dbridge/internal/metadata"
)

// Module is one companion assembly.
type Module struct {
	Name   string // assembly and module name, e.g. "MathLibstatic"
	Corlib string // scope of System.Object, GCHandle and friends

	Types []*TypeDef

	// externs maps simple assembly name to its display name
	externs map[string]string
}

// NewModule creates an empty module referencing corlib.
func NewModule(name, corlib string) *Module {
	m := &Module{Name: name, Corlib: corlib, externs: make(map[string]string)}
	m.Reference(corlib)
	return m
}

// Reference records an external assembly and returns its scope name.
func (m *Module) Reference(display string) string {
	scope := metadata.SimpleAssemblyName(display)
	if prev, ok := m.externs[scope]; !ok || len(display) > len(prev) {
		m.externs[scope] = display
	}
	return scope
}

// References reports whether scope is a declared external assembly.
func (m *Module) References(scope string) bool {
	_, ok := m.externs[scope]
	return ok
}

// Externs returns the display names of referenced assemblies, sorted by
// scope name.
func (m *Module) Externs() []string {
	scopes := make([]string, 0, len(m.externs))
	for s := range m.externs {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = m.externs[s]
	}
	return out
}

// AddType appends a public class extending System.Object.
func (m *Module) AddType(namespace, name string) *TypeDef {
	td := &TypeDef{
		Namespace: namespace,
		Name:      name,
		Extends:   m.Object(),
	}
	m.Types = append(m.Types, td)
	return td
}

// Object returns System.Object scoped to corlib.
func (m *Module) Object() Type {
	return m.CorlibType("System.Object", false)
}

// CorlibType returns a named type of the core library, e.g. GCHandle.
func (m *Module) CorlibType(fullName string, valueType bool) Type {
	scope := metadata.SimpleAssemblyName(m.Corlib)
	kw := "class"
	if valueType {
		kw = "valuetype"
	}
	return Type{Keyword: kw, Name: scoped(scope, quoteDotted(fullName)), Scope: scope}
}

// TypeDef is a companion class holding static trampolines.
type TypeDef struct {
	Namespace string
	Name      string
	Extends   Type
	Methods   []*MethodDef
}

// FullName returns Namespace.Name.
func (t *TypeDef) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// AddMethod appends a public static method.
func (t *TypeDef) AddMethod(name string, ret Type, params ...Param) *MethodDef {
	md := &MethodDef{Name: name, Return: ret, Params: params}
	t.Methods = append(t.Methods, md)
	return md
}

// Param is a method parameter.
type Param struct {
	Name string
	Type Type
}

// MethodDef is a public static method with a straight-line body.
type MethodDef struct {
	Name   string
	Return Type
	Params []Param
	Locals []Type
	Body   []Instruction

	// MaxStack is filled in by Validate.
	MaxStack int
}

// Local declares a local variable and returns its index.
func (m *MethodDef) Local(t Type) int {
	m.Locals = append(m.Locals, t)
	return len(m.Locals) - 1
}

// Emit appends instructions to the body.
func (m *MethodDef) Emit(ins ...Instruction) {
	m.Body = append(m.Body, ins...)
}

// MethodRef is a reference to a method of another type.
type MethodRef struct {
	Instance bool // has an implicit this argument
	Return   Type
	Owner    Type
	Name     string
	Params   []Type
}

// Op is an IL opcode family. Short forms are chosen when writing.
type Op int

const (
	Nop Op = iota
	Ldarg
	Ldloc
	Ldloca
	Stloc
	Call
	Callvirt
	Newobj
	Castclass
	Ret
)

var opNames = map[Op]string{
	Nop:       "nop",
	Ldarg:     "ldarg",
	Ldloc:     "ldloc",
	Ldloca:    "ldloca",
	Stloc:     "stloc",
	Call:      "call",
	Callvirt:  "callvirt",
	Newobj:    "newobj",
	Castclass: "castclass",
	Ret:       "ret",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "op?"
}

// Instruction is one opcode with its operand.
type Instruction struct {
	Op     Op
	Index  int        // Ldarg, Ldloc, Ldloca, Stloc
	Type   Type       // Castclass
	Method *MethodRef // Call, Callvirt, Newobj
}

func LoadArg(i int) Instruction { return Instruction{Op: Ldarg, Index: i} }
func LoadLocal(i int) Instruction { return Instruction{Op: Ldloc, Index: i} }
func LoadLocalAddr(i int) Instruction { return Instruction{Op: Ldloca, Index: i} }
func StoreLocal(i int) Instruction { return Instruction{Op: Stloc, Index: i} }
func CallMethod(r *MethodRef) Instruction { return Instruction{Op: Call, Method: r} }
func CallVirtual(r *MethodRef) Instruction { return Instruction{Op: Callvirt, Method: r} }
func NewObject(r *MethodRef) Instruction { return Instruction{Op: Newobj, Method: r} }
func CastClass(t Type) Instruction { return Instruction{Op: Castclass, Type: t} }
func Return() Instruction { return Instruction{Op: Ret} }

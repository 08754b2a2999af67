// Package metadata holds the reflected view of one managed module.
//
// A Module is decoded from a metadata dump (CBOR or TOML) and is read-only
// afterwards. Generators derive names and signatures from it but never
// mutate it.
package metadata

// Visibility of a member as recorded by the runtime.
type Visibility string

const (
	Public    Visibility = "public"
	Private   Visibility = "private"
	Family    Visibility = "family"   // protected
	Assembly  Visibility = "assembly" // internal
	FamOrAssy Visibility = "famorassem"
)

// Module is the in-memory representation of one managed assembly.
type Module struct {
	Name     string           `toml:"name" cbor:"name"`
	FullName string           `toml:"full-name" cbor:"fullName,omitempty"`
	Types    []TypeDescriptor `toml:"types" cbor:"types"`

	index map[string]*TypeDescriptor
}

// TypeDescriptor describes one type defined by the module.
type TypeDescriptor struct {
	Name          string   `toml:"name" cbor:"name"`
	Namespace     string   `toml:"namespace" cbor:"namespace,omitempty"`
	DeclaringType *TypeRef `toml:"declaring-type" cbor:"declaringType,omitempty"`
	BaseType      *TypeRef `toml:"base-type" cbor:"baseType,omitempty"`

	Exported  bool `toml:"exported" cbor:"exported,omitempty"`
	ValueType bool `toml:"value-type" cbor:"valueType,omitempty"`
	Enum      bool `toml:"enum" cbor:"enum,omitempty"`
	Interface bool `toml:"interface" cbor:"interface,omitempty"`
	Sealed    bool `toml:"sealed" cbor:"sealed,omitempty"`
	Abstract  bool `toml:"abstract" cbor:"abstract,omitempty"`
	Generic   bool `toml:"generic" cbor:"generic,omitempty"`

	Fields       []FieldDescriptor       `toml:"fields" cbor:"fields,omitempty"`
	Methods      []MethodDescriptor      `toml:"methods" cbor:"methods,omitempty"`
	Constructors []ConstructorDescriptor `toml:"constructors" cbor:"constructors,omitempty"`
	Properties   []PropertyDescriptor    `toml:"properties" cbor:"properties,omitempty"`
}

// FieldDescriptor describes a public field.
type FieldDescriptor struct {
	Name string  `toml:"name" cbor:"name"`
	Type TypeRef `toml:"type" cbor:"type"`
}

// MethodDescriptor describes a public method.
type MethodDescriptor struct {
	Name       string                `toml:"name" cbor:"name"`
	Static     bool                  `toml:"static" cbor:"static,omitempty"`
	Virtual    bool                  `toml:"virtual" cbor:"virtual,omitempty"`
	Final      bool                  `toml:"final" cbor:"final,omitempty"`
	Abstract   bool                  `toml:"abstract" cbor:"abstract,omitempty"`
	Generic    bool                  `toml:"generic" cbor:"generic,omitempty"`
	Visibility Visibility            `toml:"visibility" cbor:"visibility,omitempty"`
	ReturnType *TypeRef              `toml:"return-type" cbor:"returnType,omitempty"`
	Parameters []ParameterDescriptor `toml:"parameters" cbor:"parameters,omitempty"`
}

// ConstructorDescriptor describes a public instance constructor.
type ConstructorDescriptor struct {
	Visibility Visibility            `toml:"visibility" cbor:"visibility,omitempty"`
	Parameters []ParameterDescriptor `toml:"parameters" cbor:"parameters,omitempty"`
}

// PropertyDescriptor describes a property. Its accessors are listed as
// get_/set_ methods.
type PropertyDescriptor struct {
	Name string  `toml:"name" cbor:"name"`
	Type TypeRef `toml:"type" cbor:"type"`
}

// ParameterDescriptor describes one method or constructor parameter.
// By-reference and array shapes live on the TypeRef.
type ParameterDescriptor struct {
	Name string  `toml:"name" cbor:"name"`
	Type TypeRef `toml:"type" cbor:"type"`
}

// Returns reports the method's return type, System.Void when none is recorded.
func (m *MethodDescriptor) Returns() TypeRef {
	if m.ReturnType == nil {
		return Void()
	}
	return *m.ReturnType
}

// IsPublic reports whether v is callable from another assembly. Dumps may
// omit the visibility of public members.
func (v Visibility) IsPublic() bool {
	return v == "" || v == Public
}


// ParameterTypes returns the ordered parameter types.
func ParameterTypes(params []ParameterDescriptor) []TypeRef {
	types := make([]TypeRef, len(params))
	for i, p := range params {
		types[i] = p.Type
	}
	return types
}

// MemberKind tells which list a Member came from.
type MemberKind int

const (
	MemberMethod MemberKind = iota
	MemberConstructor
	MemberProperty
	MemberField
)

// ConstructorName is the runtime name shared by all instance constructors.
const ConstructorName = ".ctor"

// Member is one entry of a type's member list.
type Member struct {
	Kind        MemberKind
	Name        string
	Method      *MethodDescriptor
	Constructor *ConstructorDescriptor
	Property    *PropertyDescriptor
	Field       *FieldDescriptor
}

// Members lists the type's members in reflection order: methods,
// constructors, properties, then fields.
func (t *TypeDescriptor) Members() []Member {
	members := make([]Member, 0, len(t.Methods)+len(t.Constructors)+len(t.Properties)+len(t.Fields))
	for i := range t.Methods {
		members = append(members, Member{Kind: MemberMethod, Name: t.Methods[i].Name, Method: &t.Methods[i]})
	}
	for i := range t.Constructors {
		members = append(members, Member{Kind: MemberConstructor, Name: ConstructorName, Constructor: &t.Constructors[i]})
	}
	for i := range t.Properties {
		members = append(members, Member{Kind: MemberProperty, Name: t.Properties[i].Name, Property: &t.Properties[i]})
	}
	for i := range t.Fields {
		members = append(members, Member{Kind: MemberField, Name: t.Fields[i].Name, Field: &t.Fields[i]})
	}
	return members
}

// Ref returns a reference to this type scoped to the module's assembly.
func (m *Module) Ref(t *TypeDescriptor) TypeRef {
	return TypeRef{
		Name:          t.Name,
		Namespace:     t.Namespace,
		Assembly:      m.AssemblyName(),
		DeclaringType: t.DeclaringType,
		ValueType:     t.ValueType,
	}
}

// AssemblyName returns the assembly display name, falling back to Name.
func (m *Module) AssemblyName() string {
	if m.FullName != "" {
		return m.FullName
	}
	return m.Name
}

// Lookup finds a type of this module by full name (Ns.Outer+Inner).
func (m *Module) Lookup(fullName string) (*TypeDescriptor, bool) {
	if m.index == nil {
		m.reindex()
	}
	t, ok := m.index[fullName]
	return t, ok
}

// Owns reports whether a reference points into this module.
func (m *Module) Owns(ref TypeRef) bool {
	if ref.Assembly == "" {
		return false
	}
	return SimpleAssemblyName(ref.Assembly) == SimpleAssemblyName(m.AssemblyName())
}

func (m *Module) reindex() {
	m.index = make(map[string]*TypeDescriptor, len(m.Types))
	for i := range m.Types {
		t := &m.Types[i]
		m.index[m.Ref(t).FullName()] = t
	}
}

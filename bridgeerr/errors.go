// Package bridgeerr defines the error taxonomy shared by the dbridge generators.
//
// Unsupported constructs are reported but never stop a run. Load, config and
// emission errors are fatal.
package bridgeerr

import (
	"fmt"
	"strings"
)

// ErrorType defines the category of the error.
type ErrorType string

const (
	TypeUnsupported ErrorType = "UnsupportedConstruct"
	TypeEmission    ErrorType = "EmissionError"
	TypeLoad        ErrorType = "LoadError"
	TypeConfig      ErrorType = "ConfigError"
	TypeMulti       ErrorType = "MultiError"
)

// BridgeError is the interface for all dbridge errors.
type BridgeError interface {
	error
	Type() ErrorType
}

// BaseError carries the message and kind shared by every dbridge error.
// Each concrete error renders its own location in front of Msg.
type BaseError struct {
	Msg     string
	ErrType ErrorType
}

// Type reports the error kind.
func (e *BaseError) Type() ErrorType {
	return e.ErrType
}

// Construct names a family of unsupported inputs.
type Construct string

const (
	ConstructGeneric     Construct = "generic"
	ConstructJaggedArray Construct = "jagged-array"
	ConstructDelegate    Construct = "delegate"
	ConstructEnumValues  Construct = "enum-values"
	ConstructFields      Construct = "interface-fields"
)

// UnsupportedError describes a type or member that was skipped.
type UnsupportedError struct {
	BaseError
	Construct Construct
	TypeName  string
	Member    string
}

func (e *UnsupportedError) Error() string {
	if e.Member != "" {
		return fmt.Sprintf("[%s] %s.%s: %s", e.ErrType, e.TypeName, e.Member, e.Msg)
	}
	if e.TypeName != "" {
		return fmt.Sprintf("[%s] %s: %s", e.ErrType, e.TypeName, e.Msg)
	}
	return fmt.Sprintf("[%s] %s", e.ErrType, e.Msg)
}

// EmissionError is a structural failure while building the companion module.
type EmissionError struct {
	BaseError
	Module   string
	TypeName string
	Method   string
	Cause    error
}

func (e *EmissionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", e.ErrType))
	if e.Module != "" {
		sb.WriteString(e.Module)
		sb.WriteString(": ")
	}
	if e.TypeName != "" {
		sb.WriteString(e.TypeName)
		if e.Method != "" {
			sb.WriteString("::")
			sb.WriteString(e.Method)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Msg)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *EmissionError) Unwrap() error {
	return e.Cause
}

// LoadError is returned when a metadata dump cannot be read or decoded.
type LoadError struct {
	BaseError
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.ErrType, e.Path, e.Msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.ErrType, e.Path, e.Msg)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ConfigError is returned for an unreadable or malformed configuration file.
type ConfigError struct {
	BaseError
	Path  string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.ErrType, e.Path, e.Msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.ErrType, e.Path, e.Msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// MultiError collects multiple dbridge errors.
type MultiError struct {
	Errors []error
}

// Error puts each collected failure on its own indented line.
func (m *MultiError) Error() string {
	lines := make([]string, 0, len(m.Errors)+1)
	lines = append(lines, fmt.Sprintf("generation failed with %d error(s):", len(m.Errors)))
	for _, err := range m.Errors {
		lines = append(lines, "  "+err.Error())
	}
	return strings.Join(lines, "\n")
}

// Type reports the kind of the first dbridge error collected.
func (m *MultiError) Type() ErrorType {
	for _, err := range m.Errors {
		if be, ok := err.(BridgeError); ok {
			return be.Type()
		}
	}
	return TypeMulti
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// OrNil returns nil when no errors were collected.
func (m *MultiError) OrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// NewUnsupported creates an UnsupportedError for a whole type.
func NewUnsupported(construct Construct, typeName, msg string) *UnsupportedError {
	return &UnsupportedError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeUnsupported,
		},
		Construct: construct,
		TypeName:  typeName,
	}
}

// NewUnsupportedMember creates an UnsupportedError for one member of a type.
func NewUnsupportedMember(construct Construct, typeName, member, msg string) *UnsupportedError {
	e := NewUnsupported(construct, typeName, msg)
	e.Member = member
	return e
}

// NewEmissionError creates an EmissionError.
func NewEmissionError(module, typeName, method, msg string) *EmissionError {
	return &EmissionError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeEmission,
		},
		Module:   module,
		TypeName: typeName,
		Method:   method,
	}
}

// WrapEmission creates an EmissionError with an underlying cause.
func WrapEmission(module, typeName, method string, cause error) *EmissionError {
	e := NewEmissionError(module, typeName, method, "invalid trampoline")
	e.Cause = cause
	return e
}

// NewLoadError creates a LoadError.
func NewLoadError(path, msg string, cause error) *LoadError {
	return &LoadError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeLoad,
		},
		Path:  path,
		Cause: cause,
	}
}

// NewConfigError creates a ConfigError.
func NewConfigError(path, msg string, cause error) *ConfigError {
	return &ConfigError{
		BaseError: BaseError{
			Msg:     msg,
			ErrType: TypeConfig,
		},
		Path:  path,
		Cause: cause,
	}
}

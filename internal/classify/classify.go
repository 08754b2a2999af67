// Package classify assigns each type of a module to one of the five shapes the
// generators know how to render.
package classify

import (
	"fmt"

	"martianoff/dbridge/bridgeerr"
	"martianoff/dbridge/internal/metadata"
)

// Kind is the fixed variant assigned to a non-generic type.
type Kind int

const (
	Enum Kind = iota + 1
	ValueRecord
	Interface
	Delegate
	ReferenceClass
)

func (k Kind) String() string {
	switch k {
	case Enum:
		return "enum"
	case ValueRecord:
		return "value-record"
	case Interface:
		return "interface"
	case Delegate:
		return "delegate"
	case ReferenceClass:
		return "reference-class"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsReference reports whether values of this kind live on the managed heap
// and are reached through handles.
func (k Kind) IsReference() bool {
	return k == Interface || k == Delegate || k == ReferenceClass
}

// Classified pairs a type with its kind.
type Classified struct {
	Type *metadata.TypeDescriptor
	Kind Kind
}

// Visitor receives classifier output in enumeration order.
type Visitor interface {
	// Namespace is called before anything else is reported for a namespace
	// so the caller can create its output unit.
	Namespace(ns string) error
	Type(c Classified) error
	Skip(t *metadata.TypeDescriptor, reason *bridgeerr.UnsupportedError) error
}

// Options controls which types are walked.
type Options struct {
	// IncludeNonPublic walks every type instead of exported types only.
	IncludeNonPublic bool
}

// Classifier walks a module's types.
type Classifier struct {
	module *metadata.Module
	opts   Options
}

// New creates a classifier for a module.
func New(m *metadata.Module, opts Options) *Classifier {
	return &Classifier{module: m, opts: opts}
}

// Walk reports every walked type to v: generic types as skips, everything
// else with exactly one Kind. It stops only when v returns an error.
func (c *Classifier) Walk(v Visitor) error {
	for i := range c.module.Types {
		t := &c.module.Types[i]
		if !t.Exported && !c.opts.IncludeNonPublic {
			continue
		}
		if err := v.Namespace(t.Namespace); err != nil {
			return err
		}
		if t.Generic {
			reason := bridgeerr.NewUnsupported(bridgeerr.ConstructGeneric, t.Name,
				fmt.Sprintf("skipping type %s because generics aren't implemented", t.Name))
			if err := v.Skip(t, reason); err != nil {
				return err
			}
			continue
		}
		if err := v.Type(Classified{Type: t, Kind: c.Classify(t)}); err != nil {
			return err
		}
	}
	return nil
}

// Classify returns the kind of a non-generic type.
func (c *Classifier) Classify(t *metadata.TypeDescriptor) Kind {
	switch {
	case t.ValueType && t.Enum:
		return Enum
	case t.ValueType:
		return ValueRecord
	case t.Interface:
		return Interface
	case c.isDelegate(t):
		return Delegate
	default:
		return ReferenceClass
	}
}

// isDelegate follows the base chain through the module until it reaches a
// delegate base or leaves the module.
func (c *Classifier) isDelegate(t *metadata.TypeDescriptor) bool {
	seen := make(map[*metadata.TypeDescriptor]bool)
	for t != nil && !seen[t] {
		seen[t] = true
		base := t.BaseType
		if base == nil {
			return false
		}
		if base.Is(metadata.SystemDelegate) || base.Is(metadata.SystemMulticastDelegate) {
			return true
		}
		next, ok := c.module.Lookup(base.FullName())
		if !ok {
			return false
		}
		t = next
	}
	return false
}

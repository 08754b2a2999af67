package cil

import (
	"fmt"

	"martianoff/dbridge/bridgeerr"
)

// Validate checks that every method of m is structurally complete and fills
// in MaxStack. Any failure makes the whole module unwritable.
func Validate(m *Module) error {
	var errs bridgeerr.MultiError
	for _, t := range m.Types {
		if err := checkScope(m, t.Extends); err != nil {
			errs.Errors = append(errs.Errors, bridgeerr.WrapEmission(m.Name, t.FullName(), "", err))
		}
		seen := make(map[string]bool, len(t.Methods))
		for _, md := range t.Methods {
			if seen[md.Name] {
				errs.Errors = append(errs.Errors, bridgeerr.NewEmissionError(m.Name, t.FullName(), md.Name,
					"duplicate trampoline name"))
				continue
			}
			seen[md.Name] = true
			if err := validateMethod(m, md); err != nil {
				errs.Errors = append(errs.Errors, bridgeerr.WrapEmission(m.Name, t.FullName(), md.Name, err))
			}
		}
	}
	return errs.OrNil()
}

func validateMethod(m *Module, md *MethodDef) error {
	for _, t := range signatureTypes(md) {
		if err := checkScope(m, t); err != nil {
			return err
		}
	}
	if len(md.Body) == 0 || md.Body[len(md.Body)-1].Op != Ret {
		return fmt.Errorf("body does not end with ret")
	}

	depth, maxDepth := 0, 0
	for pc, ins := range md.Body {
		pop, push, err := stackEffect(md, ins)
		if err != nil {
			return fmt.Errorf("IL_%04d %s: %w", pc, ins.Op, err)
		}
		if depth < pop {
			return fmt.Errorf("IL_%04d %s: stack underflow (depth %d, pops %d)", pc, ins.Op, depth, pop)
		}
		depth += push - pop
		if depth > maxDepth {
			maxDepth = depth
		}
		if ins.Op == Ret && pc != len(md.Body)-1 {
			return fmt.Errorf("IL_%04d: unreachable code after ret", pc)
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced stack: %d value(s) left after ret", depth)
	}
	md.MaxStack = maxDepth
	return nil
}

// stackEffect returns how many values ins pops and pushes.
func stackEffect(md *MethodDef, ins Instruction) (pop, push int, err error) {
	switch ins.Op {
	case Nop:
		return 0, 0, nil
	case Ldarg:
		if ins.Index < 0 || ins.Index >= len(md.Params) {
			return 0, 0, fmt.Errorf("argument %d out of range (%d parameters)", ins.Index, len(md.Params))
		}
		return 0, 1, nil
	case Ldloc, Ldloca:
		if err := checkLocal(md, ins.Index); err != nil {
			return 0, 0, err
		}
		return 0, 1, nil
	case Stloc:
		if err := checkLocal(md, ins.Index); err != nil {
			return 0, 0, err
		}
		return 1, 0, nil
	case Castclass:
		return 1, 1, nil
	case Call, Callvirt:
		if ins.Method == nil {
			return 0, 0, fmt.Errorf("missing method operand")
		}
		if ins.Op == Callvirt && !ins.Method.Instance {
			return 0, 0, fmt.Errorf("callvirt on static method %s", ins.Method.Name)
		}
		pop = len(ins.Method.Params)
		if ins.Method.Instance {
			pop++
		}
		if !ins.Method.Return.IsVoid() {
			push = 1
		}
		return pop, push, nil
	case Newobj:
		if ins.Method == nil {
			return 0, 0, fmt.Errorf("missing constructor operand")
		}
		return len(ins.Method.Params), 1, nil
	case Ret:
		if md.Return.IsVoid() {
			return 0, 0, nil
		}
		return 1, 0, nil
	}
	return 0, 0, fmt.Errorf("unknown opcode %d", int(ins.Op))
}

func checkLocal(md *MethodDef, i int) error {
	if i < 0 || i >= len(md.Locals) {
		return fmt.Errorf("local %d out of range (%d locals)", i, len(md.Locals))
	}
	return nil
}

// checkScope requires the assembly of a named type to be declared extern.
func checkScope(m *Module, t Type) error {
	if t.Scope != "" && !m.References(t.Scope) {
		return fmt.Errorf("type %s refers to undeclared assembly %s", t, t.Scope)
	}
	return nil
}

// signatureTypes lists every type a method mentions.
func signatureTypes(md *MethodDef) []Type {
	types := []Type{md.Return}
	for _, p := range md.Params {
		types = append(types, p.Type)
	}
	types = append(types, md.Locals...)
	for _, ins := range md.Body {
		if ins.Op == Castclass {
			types = append(types, ins.Type)
		}
		if ins.Method != nil {
			types = append(types, ins.Method.Owner, ins.Method.Return)
			types = append(types, ins.Method.Params...)
		}
	}
	return types
}

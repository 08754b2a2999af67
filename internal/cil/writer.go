package cil

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Write validates m and writes it as IL assembler source. Nothing is written
// when validation fails.
func Write(w io.Writer, m *Module) error {
	if err := Validate(m); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for _, display := range m.Externs() {
		writeExtern(bw, display)
	}
	fmt.Fprintf(bw, ".assembly %s\n{\n  .ver 0:0:0:0\n}\n", quoteDotted(m.Name))
	fmt.Fprintf(bw, ".module %s\n", quoteDotted(m.Name+".dll"))

	for _, t := range m.Types {
		bw.WriteString("\n")
		fmt.Fprintf(bw, ".class public auto ansi beforefieldinit %s\n", quoteDotted(t.FullName()))
		fmt.Fprintf(bw, "       extends %s\n{\n", t.Extends.Owner())
		for i, md := range t.Methods {
			if i > 0 {
				bw.WriteString("\n")
			}
			writeMethod(bw, md)
		}
		bw.WriteString("}\n")
	}
	return bw.Flush()
}

// writeExtern declares an assembly reference, carrying over version and
// public key token from its display name when present.
func writeExtern(w *bufio.Writer, display string) {
	parts := strings.Split(display, ",")
	fmt.Fprintf(w, ".assembly extern %s\n{\n", quoteDotted(strings.TrimSpace(parts[0])))
	for _, p := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		switch key {
		case "Version":
			fmt.Fprintf(w, "  .ver %s\n", strings.ReplaceAll(value, ".", ":"))
		case "PublicKeyToken":
			if token := publicKeyToken(value); token != "" {
				fmt.Fprintf(w, "  .publickeytoken = (%s)\n", token)
			}
		}
	}
	w.WriteString("}\n")
}

func publicKeyToken(hex string) string {
	if hex == "null" || len(hex)%2 != 0 {
		return ""
	}
	var bytes []string
	for i := 0; i < len(hex); i += 2 {
		if _, err := strconv.ParseUint(hex[i:i+2], 16, 8); err != nil {
			return ""
		}
		bytes = append(bytes, strings.ToUpper(hex[i:i+2]))
	}
	return strings.Join(bytes, " ")
}

func writeMethod(w *bufio.Writer, md *MethodDef) {
	params := make([]string, len(md.Params))
	for i, p := range md.Params {
		params[i] = p.Type.String()
		if p.Name != "" {
			params[i] += " " + quote(p.Name)
		}
	}
	fmt.Fprintf(w, "  .method public hidebysig static %s %s(%s) cil managed\n  {\n",
		md.Return, quote(md.Name), strings.Join(params, ", "))
	fmt.Fprintf(w, "    .maxstack %d\n", md.MaxStack)
	if len(md.Locals) > 0 {
		locals := make([]string, len(md.Locals))
		for i, l := range md.Locals {
			locals[i] = fmt.Sprintf("[%d] %s V_%d", i, l, i)
		}
		fmt.Fprintf(w, "    .locals init (%s)\n", strings.Join(locals, ", "))
	}
	for pc, ins := range md.Body {
		fmt.Fprintf(w, "    IL_%04d: %s\n", pc, formatInstruction(ins))
	}
	w.WriteString("  }\n")
}

func formatInstruction(ins Instruction) string {
	switch ins.Op {
	case Ldarg, Ldloc, Stloc:
		if ins.Index <= 3 {
			return fmt.Sprintf("%s.%d", ins.Op, ins.Index)
		}
		return shortForm(ins.Op, ins.Index)
	case Ldloca:
		return shortForm(ins.Op, ins.Index)
	case Castclass:
		return "castclass " + ins.Type.Owner()
	case Call, Callvirt, Newobj:
		return ins.Op.String() + " " + formatMethodRef(ins.Method)
	}
	return ins.Op.String()
}

func shortForm(op Op, index int) string {
	if index <= 255 {
		return fmt.Sprintf("%s.s %d", op, index)
	}
	return fmt.Sprintf("%s %d", op, index)
}

func formatMethodRef(r *MethodRef) string {
	params := make([]string, len(r.Params))
	for i, p := range r.Params {
		params[i] = p.String()
	}
	var sb strings.Builder
	if r.Instance {
		sb.WriteString("instance ")
	}
	fmt.Fprintf(&sb, "%s %s::%s(%s)", r.Return, r.Owner.Owner(), methodName(r.Name), strings.Join(params, ", "))
	return sb.String()
}

func methodName(name string) string {
	if name == ".ctor" || name == ".cctor" {
		return name
	}
	return quote(name)
}

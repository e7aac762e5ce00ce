package bytecode

import (
	"fmt"
	"strings"
)

// Format renders ins at pc in a javap-like form. Branch targets are printed
// as absolute offsets.
func Format(pc int, ins Instruction) string {
	op := ins.Opcode().String()
	switch i := ins.(type) {
	case Simple:
		return op
	case LocalVar:
		return fmt.Sprintf("%s %d", op, i.Index)
	case IincInsn:
		return fmt.Sprintf("%s %d, %d", op, i.Index, i.Const)
	case BipushInsn:
		return fmt.Sprintf("%s %d", op, i.Value)
	case SipushInsn:
		return fmt.Sprintf("%s %d", op, i.Value)
	case LdcInsn:
		return fmt.Sprintf("%s #%d", op, i.Index)
	case PoolRef:
		return fmt.Sprintf("%s #%d", op, i.Index)
	case InvokeInterfaceInsn:
		return fmt.Sprintf("%s #%d, %d", op, i.Index, i.Count)
	case InvokeDynamicInsn:
		return fmt.Sprintf("%s #%d", op, i.Index)
	case NewArrayInsn:
		return fmt.Sprintf("%s %s", op, arrayTypeName(i.AType))
	case MultiANewArrayInsn:
		return fmt.Sprintf("%s #%d, %d", op, i.Index, i.Dimensions)
	case Branch:
		return fmt.Sprintf("%s %d", op, Target(pc, int32(i.Offset)))
	case BranchWide:
		return fmt.Sprintf("%s %d", op, Target(pc, i.Offset))
	case *TableSwitch:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s { // %d to %d", op, i.Low, i.High)
		for k, off := range i.Offsets {
			fmt.Fprintf(&sb, "; %d: %d", int64(i.Low)+int64(k), Target(pc, off))
		}
		fmt.Fprintf(&sb, "; default: %d }", Target(pc, i.Default))
		return sb.String()
	case *LookupSwitch:
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s { // %d", op, len(i.Pairs))
		for _, p := range i.Pairs {
			fmt.Fprintf(&sb, "; %d: %d", p.Match, Target(pc, p.Offset))
		}
		fmt.Fprintf(&sb, "; default: %d }", Target(pc, i.Default))
		return sb.String()
	case WideInsn:
		return fmt.Sprintf("wide %s %d", i.Op, i.Index)
	case WideIinc:
		return fmt.Sprintf("wide iinc %d, %d", i.Index, i.Const)
	}
	return op
}

// Disassemble formats a whole instruction sequence, one line per instruction
// prefixed with its offset.
func Disassemble(seq []Instruction) []string {
	lines := make([]string, len(seq))
	for k, pc := range Offsets(seq) {
		lines[k] = fmt.Sprintf("%4d: %s", pc, Format(pc, seq[k]))
	}
	return lines
}

func arrayTypeName(atype uint8) string {
	switch atype {
	case 4:
		return "boolean"
	case 5:
		return "char"
	case 6:
		return "float"
	case 7:
		return "double"
	case 8:
		return "byte"
	case 9:
		return "short"
	case 10:
		return "int"
	case 11:
		return "long"
	}
	return fmt.Sprintf("atype(%d)", atype)
}

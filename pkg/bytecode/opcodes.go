// Package bytecode decodes and encodes the JVM instruction stream.
package bytecode

import "fmt"

// Opcode is a single JVM instruction byte.
type Opcode uint8

// Opcodes
const (
	Nop             Opcode = 0x00
	AconstNull      Opcode = 0x01
	IconstM1        Opcode = 0x02
	Iconst0         Opcode = 0x03
	Iconst1         Opcode = 0x04
	Iconst2         Opcode = 0x05
	Iconst3         Opcode = 0x06
	Iconst4         Opcode = 0x07
	Iconst5         Opcode = 0x08
	Lconst0         Opcode = 0x09
	Lconst1         Opcode = 0x0A
	Fconst0         Opcode = 0x0B
	Fconst1         Opcode = 0x0C
	Fconst2         Opcode = 0x0D
	Dconst0         Opcode = 0x0E
	Dconst1         Opcode = 0x0F
	Bipush          Opcode = 0x10
	Sipush          Opcode = 0x11
	Ldc             Opcode = 0x12
	LdcW            Opcode = 0x13
	Ldc2W           Opcode = 0x14
	Iload           Opcode = 0x15
	Lload           Opcode = 0x16
	Fload           Opcode = 0x17
	Dload           Opcode = 0x18
	Aload           Opcode = 0x19
	Iload0          Opcode = 0x1A
	Iload1          Opcode = 0x1B
	Iload2          Opcode = 0x1C
	Iload3          Opcode = 0x1D
	Lload0          Opcode = 0x1E
	Lload1          Opcode = 0x1F
	Lload2          Opcode = 0x20
	Lload3          Opcode = 0x21
	Fload0          Opcode = 0x22
	Fload1          Opcode = 0x23
	Fload2          Opcode = 0x24
	Fload3          Opcode = 0x25
	Dload0          Opcode = 0x26
	Dload1          Opcode = 0x27
	Dload2          Opcode = 0x28
	Dload3          Opcode = 0x29
	Aload0          Opcode = 0x2A
	Aload1          Opcode = 0x2B
	Aload2          Opcode = 0x2C
	Aload3          Opcode = 0x2D
	Iaload          Opcode = 0x2E
	Laload          Opcode = 0x2F
	Faload          Opcode = 0x30
	Daload          Opcode = 0x31
	Aaload          Opcode = 0x32
	Baload          Opcode = 0x33
	Caload          Opcode = 0x34
	Saload          Opcode = 0x35
	Istore          Opcode = 0x36
	Lstore          Opcode = 0x37
	Fstore          Opcode = 0x38
	Dstore          Opcode = 0x39
	Astore          Opcode = 0x3A
	Istore0         Opcode = 0x3B
	Istore1         Opcode = 0x3C
	Istore2         Opcode = 0x3D
	Istore3         Opcode = 0x3E
	Lstore0         Opcode = 0x3F
	Lstore1         Opcode = 0x40
	Lstore2         Opcode = 0x41
	Lstore3         Opcode = 0x42
	Fstore0         Opcode = 0x43
	Fstore1         Opcode = 0x44
	Fstore2         Opcode = 0x45
	Fstore3         Opcode = 0x46
	Dstore0         Opcode = 0x47
	Dstore1         Opcode = 0x48
	Dstore2         Opcode = 0x49
	Dstore3         Opcode = 0x4A
	Astore0         Opcode = 0x4B
	Astore1         Opcode = 0x4C
	Astore2         Opcode = 0x4D
	Astore3         Opcode = 0x4E
	Iastore         Opcode = 0x4F
	Lastore         Opcode = 0x50
	Fastore         Opcode = 0x51
	Dastore         Opcode = 0x52
	Aastore         Opcode = 0x53
	Bastore         Opcode = 0x54
	Castore         Opcode = 0x55
	Sastore         Opcode = 0x56
	Pop             Opcode = 0x57
	Pop2            Opcode = 0x58
	Dup             Opcode = 0x59
	DupX1           Opcode = 0x5A
	DupX2           Opcode = 0x5B
	Dup2            Opcode = 0x5C
	Dup2X1          Opcode = 0x5D
	Dup2X2          Opcode = 0x5E
	Swap            Opcode = 0x5F
	Iadd            Opcode = 0x60
	Ladd            Opcode = 0x61
	Fadd            Opcode = 0x62
	Dadd            Opcode = 0x63
	Isub            Opcode = 0x64
	Lsub            Opcode = 0x65
	Fsub            Opcode = 0x66
	Dsub            Opcode = 0x67
	Imul            Opcode = 0x68
	Lmul            Opcode = 0x69
	Fmul            Opcode = 0x6A
	Dmul            Opcode = 0x6B
	Idiv            Opcode = 0x6C
	Ldiv            Opcode = 0x6D
	Fdiv            Opcode = 0x6E
	Ddiv            Opcode = 0x6F
	Irem            Opcode = 0x70
	Lrem            Opcode = 0x71
	Frem            Opcode = 0x72
	Drem            Opcode = 0x73
	Ineg            Opcode = 0x74
	Lneg            Opcode = 0x75
	Fneg            Opcode = 0x76
	Dneg            Opcode = 0x77
	Ishl            Opcode = 0x78
	Lshl            Opcode = 0x79
	Ishr            Opcode = 0x7A
	Lshr            Opcode = 0x7B
	Iushr           Opcode = 0x7C
	Lushr           Opcode = 0x7D
	Iand            Opcode = 0x7E
	Land            Opcode = 0x7F
	Ior             Opcode = 0x80
	Lor             Opcode = 0x81
	Ixor            Opcode = 0x82
	Lxor            Opcode = 0x83
	Iinc            Opcode = 0x84
	I2l             Opcode = 0x85
	I2f             Opcode = 0x86
	I2d             Opcode = 0x87
	L2i             Opcode = 0x88
	L2f             Opcode = 0x89
	L2d             Opcode = 0x8A
	F2i             Opcode = 0x8B
	F2l             Opcode = 0x8C
	F2d             Opcode = 0x8D
	D2i             Opcode = 0x8E
	D2l             Opcode = 0x8F
	D2f             Opcode = 0x90
	I2b             Opcode = 0x91
	I2c             Opcode = 0x92
	I2s             Opcode = 0x93
	Lcmp            Opcode = 0x94
	Fcmpl           Opcode = 0x95
	Fcmpg           Opcode = 0x96
	Dcmpl           Opcode = 0x97
	Dcmpg           Opcode = 0x98
	Ifeq            Opcode = 0x99
	Ifne            Opcode = 0x9A
	Iflt            Opcode = 0x9B
	Ifge            Opcode = 0x9C
	Ifgt            Opcode = 0x9D
	Ifle            Opcode = 0x9E
	IfIcmpeq        Opcode = 0x9F
	IfIcmpne        Opcode = 0xA0
	IfIcmplt        Opcode = 0xA1
	IfIcmpge        Opcode = 0xA2
	IfIcmpgt        Opcode = 0xA3
	IfIcmple        Opcode = 0xA4
	IfAcmpeq        Opcode = 0xA5
	IfAcmpne        Opcode = 0xA6
	Goto            Opcode = 0xA7
	Jsr             Opcode = 0xA8
	Ret             Opcode = 0xA9
	Tableswitch     Opcode = 0xAA
	Lookupswitch    Opcode = 0xAB
	Ireturn         Opcode = 0xAC
	Lreturn         Opcode = 0xAD
	Freturn         Opcode = 0xAE
	Dreturn         Opcode = 0xAF
	Areturn         Opcode = 0xB0
	Return          Opcode = 0xB1
	Getstatic       Opcode = 0xB2
	Putstatic       Opcode = 0xB3
	Getfield        Opcode = 0xB4
	Putfield        Opcode = 0xB5
	Invokevirtual   Opcode = 0xB6
	Invokespecial   Opcode = 0xB7
	Invokestatic    Opcode = 0xB8
	Invokeinterface Opcode = 0xB9
	Invokedynamic   Opcode = 0xBA
	New             Opcode = 0xBB
	Newarray        Opcode = 0xBC
	Anewarray       Opcode = 0xBD
	Arraylength     Opcode = 0xBE
	Athrow          Opcode = 0xBF
	Checkcast       Opcode = 0xC0
	Instanceof      Opcode = 0xC1
	Monitorenter    Opcode = 0xC2
	Monitorexit     Opcode = 0xC3
	Wide            Opcode = 0xC4
	Multianewarray  Opcode = 0xC5
	Ifnull          Opcode = 0xC6
	Ifnonnull       Opcode = 0xC7
	GotoW           Opcode = 0xC8
	JsrW            Opcode = 0xC9
	Breakpoint      Opcode = 0xCA
	Impdep1         Opcode = 0xFE
	Impdep2         Opcode = 0xFF
)

// firstReserved and lastReserved bound the opcodes with no assigned meaning.
const (
	firstReserved Opcode = 0xCB
	lastReserved  Opcode = 0xFD
)

var mnemonics = [...]string{
	"nop", "aconst_null", "iconst_m1", "iconst_0", "iconst_1", "iconst_2", "iconst_3", "iconst_4",
	"iconst_5", "lconst_0", "lconst_1", "fconst_0", "fconst_1", "fconst_2", "dconst_0", "dconst_1",
	"bipush", "sipush", "ldc", "ldc_w", "ldc2_w", "iload", "lload", "fload",
	"dload", "aload", "iload_0", "iload_1", "iload_2", "iload_3", "lload_0", "lload_1",
	"lload_2", "lload_3", "fload_0", "fload_1", "fload_2", "fload_3", "dload_0", "dload_1",
	"dload_2", "dload_3", "aload_0", "aload_1", "aload_2", "aload_3", "iaload", "laload",
	"faload", "daload", "aaload", "baload", "caload", "saload", "istore", "lstore",
	"fstore", "dstore", "astore", "istore_0", "istore_1", "istore_2", "istore_3", "lstore_0",
	"lstore_1", "lstore_2", "lstore_3", "fstore_0", "fstore_1", "fstore_2", "fstore_3", "dstore_0",
	"dstore_1", "dstore_2", "dstore_3", "astore_0", "astore_1", "astore_2", "astore_3", "iastore",
	"lastore", "fastore", "dastore", "aastore", "bastore", "castore", "sastore", "pop",
	"pop2", "dup", "dup_x1", "dup_x2", "dup2", "dup2_x1", "dup2_x2", "swap",
	"iadd", "ladd", "fadd", "dadd", "isub", "lsub", "fsub", "dsub",
	"imul", "lmul", "fmul", "dmul", "idiv", "ldiv", "fdiv", "ddiv",
	"irem", "lrem", "frem", "drem", "ineg", "lneg", "fneg", "dneg",
	"ishl", "lshl", "ishr", "lshr", "iushr", "lushr", "iand", "land",
	"ior", "lor", "ixor", "lxor", "iinc", "i2l", "i2f", "i2d",
	"l2i", "l2f", "l2d", "f2i", "f2l", "f2d", "d2i", "d2l",
	"d2f", "i2b", "i2c", "i2s", "lcmp", "fcmpl", "fcmpg", "dcmpl",
	"dcmpg", "ifeq", "ifne", "iflt", "ifge", "ifgt", "ifle", "if_icmpeq",
	"if_icmpne", "if_icmplt", "if_icmpge", "if_icmpgt", "if_icmple", "if_acmpeq", "if_acmpne", "goto",
	"jsr", "ret", "tableswitch", "lookupswitch", "ireturn", "lreturn", "freturn", "dreturn",
	"areturn", "return", "getstatic", "putstatic", "getfield", "putfield", "invokevirtual", "invokespecial",
	"invokestatic", "invokeinterface", "invokedynamic", "new", "newarray", "anewarray", "arraylength", "athrow",
	"checkcast", "instanceof", "monitorenter", "monitorexit", "wide", "multianewarray", "ifnull", "ifnonnull",
	"goto_w", "jsr_w", "breakpoint",
}

// String returns the JVM mnemonic.
func (op Opcode) String() string {
	switch {
	case int(op) < len(mnemonics):
		return mnemonics[op]
	case op == Impdep1:
		return "impdep1"
	case op == Impdep2:
		return "impdep2"
	case op.IsReserved():
		return fmt.Sprintf("reserved_%02x", uint8(op))
	}
	return fmt.Sprintf("opcode_%02x", uint8(op))
}

// IsReserved reports whether op is in the unassigned 0xCB-0xFD range.
func (op Opcode) IsReserved() bool {
	return op >= firstReserved && op <= lastReserved
}

// shape identifies the operand layout that follows an opcode byte.
type shape uint8

const (
	shapeNone shape = iota
	shapeLocal
	shapeIinc
	shapeBipush
	shapeSipush
	shapeLdc
	shapePoolRef
	shapeInvokeInterface
	shapeInvokeDynamic
	shapeNewArray
	shapeMultiANewArray
	shapeBranch
	shapeBranchWide
	shapeTableSwitch
	shapeLookupSwitch
	shapeWide
)

var shapes [256]shape

func init() {
	for _, op := range []Opcode{Iload, Lload, Fload, Dload, Aload, Istore, Lstore, Fstore, Dstore, Astore, Ret} {
		shapes[op] = shapeLocal
	}
	for _, op := range []Opcode{LdcW, Ldc2W, Getstatic, Putstatic, Getfield, Putfield,
		Invokevirtual, Invokespecial, Invokestatic, New, Anewarray, Checkcast, Instanceof} {
		shapes[op] = shapePoolRef
	}
	for op := Ifeq; op <= Jsr; op++ {
		shapes[op] = shapeBranch
	}
	shapes[Ifnull] = shapeBranch
	shapes[Ifnonnull] = shapeBranch
	shapes[GotoW] = shapeBranchWide
	shapes[JsrW] = shapeBranchWide
	shapes[Iinc] = shapeIinc
	shapes[Bipush] = shapeBipush
	shapes[Sipush] = shapeSipush
	shapes[Ldc] = shapeLdc
	shapes[Invokeinterface] = shapeInvokeInterface
	shapes[Invokedynamic] = shapeInvokeDynamic
	shapes[Newarray] = shapeNewArray
	shapes[Multianewarray] = shapeMultiANewArray
	shapes[Tableswitch] = shapeTableSwitch
	shapes[Lookupswitch] = shapeLookupSwitch
	shapes[Wide] = shapeWide
}

// widenable reports whether op may follow a wide prefix with a 16-bit index.
func widenable(op Opcode) bool {
	return shapes[op] == shapeLocal
}

package bytecode

// Instruction is one decoded JVM instruction. The concrete types below are
// the only implementations; switch on them to inspect operands.
type Instruction interface {
	Opcode() Opcode
	// Size is the encoded length in bytes, including the opcode byte and any
	// switch padding.
	Size() int
	isInstruction()
}

// Simple is an instruction without operands. Reserved opcodes, breakpoint
// and the impdep pair decode to Simple as well.
type Simple struct {
	Op Opcode
}

// LocalVar addresses a local variable slot with an 8-bit index.
type LocalVar struct {
	Op    Opcode
	Index uint8
}

// IincInsn increments a local variable by a signed 8-bit constant.
type IincInsn struct {
	Index uint8
	Const int8
}

// BipushInsn pushes a sign-extended byte.
type BipushInsn struct {
	Value int8
}

// SipushInsn pushes a sign-extended short.
type SipushInsn struct {
	Value int16
}

// LdcInsn loads a constant through an 8-bit pool index.
type LdcInsn struct {
	Index uint8
}

// PoolRef carries a 16-bit constant-pool index.
type PoolRef struct {
	Op    Opcode
	Index uint16
}

// InvokeInterfaceInsn is invokeinterface; the trailing zero byte is implied.
type InvokeInterfaceInsn struct {
	Index uint16
	Count uint8
}

// InvokeDynamicInsn is invokedynamic; the two trailing zero bytes are implied.
type InvokeDynamicInsn struct {
	Index uint16
}

// NewArrayInsn allocates a primitive array of the given atype.
type NewArrayInsn struct {
	AType uint8
}

// MultiANewArrayInsn allocates a multi-dimensional array.
type MultiANewArrayInsn struct {
	Index      uint16
	Dimensions uint8
}

// Branch holds a raw 16-bit offset relative to the branch opcode.
type Branch struct {
	Op     Opcode
	Offset int16
}

// BranchWide holds a raw 32-bit offset (goto_w, jsr_w).
type BranchWide struct {
	Op     Opcode
	Offset int32
}

// TableSwitch is a dense jump table. Padding is the number of zero bytes
// between the opcode and Default.
type TableSwitch struct {
	Padding int
	Default int32
	Low     int32
	High    int32
	Offsets []int32
}

// MatchOffset is one lookupswitch pair.
type MatchOffset struct {
	Match  int32
	Offset int32
}

// LookupSwitch is a sparse jump table.
type LookupSwitch struct {
	Padding int
	Default int32
	Pairs   []MatchOffset
}

// WideInsn is a load, store or ret with a 16-bit index. Op is the widened
// opcode, not 0xC4.
type WideInsn struct {
	Op    Opcode
	Index uint16
}

// WideIinc is iinc with a 16-bit index and constant.
type WideIinc struct {
	Index uint16
	Const int16
}

func (i Simple) Opcode() Opcode            { return i.Op }
func (i LocalVar) Opcode() Opcode          { return i.Op }
func (IincInsn) Opcode() Opcode            { return Iinc }
func (BipushInsn) Opcode() Opcode          { return Bipush }
func (SipushInsn) Opcode() Opcode          { return Sipush }
func (LdcInsn) Opcode() Opcode             { return Ldc }
func (i PoolRef) Opcode() Opcode           { return i.Op }
func (InvokeInterfaceInsn) Opcode() Opcode { return Invokeinterface }
func (InvokeDynamicInsn) Opcode() Opcode   { return Invokedynamic }
func (NewArrayInsn) Opcode() Opcode        { return Newarray }
func (MultiANewArrayInsn) Opcode() Opcode  { return Multianewarray }
func (i Branch) Opcode() Opcode            { return i.Op }
func (i BranchWide) Opcode() Opcode        { return i.Op }
func (*TableSwitch) Opcode() Opcode        { return Tableswitch }
func (*LookupSwitch) Opcode() Opcode       { return Lookupswitch }
func (WideInsn) Opcode() Opcode            { return Wide }
func (WideIinc) Opcode() Opcode            { return Wide }

func (Simple) Size() int              { return 1 }
func (LocalVar) Size() int            { return 2 }
func (IincInsn) Size() int            { return 3 }
func (BipushInsn) Size() int          { return 2 }
func (SipushInsn) Size() int          { return 3 }
func (LdcInsn) Size() int             { return 2 }
func (PoolRef) Size() int             { return 3 }
func (InvokeInterfaceInsn) Size() int { return 5 }
func (InvokeDynamicInsn) Size() int   { return 5 }
func (NewArrayInsn) Size() int        { return 2 }
func (MultiANewArrayInsn) Size() int  { return 4 }
func (Branch) Size() int              { return 3 }
func (BranchWide) Size() int          { return 5 }
func (WideInsn) Size() int            { return 4 }
func (WideIinc) Size() int            { return 6 }

func (i *TableSwitch) Size() int {
	return 1 + i.Padding + 12 + 4*len(i.Offsets)
}

func (i *LookupSwitch) Size() int {
	return 1 + i.Padding + 8 + 8*len(i.Pairs)
}

func (Simple) isInstruction()              {}
func (LocalVar) isInstruction()            {}
func (IincInsn) isInstruction()            {}
func (BipushInsn) isInstruction()          {}
func (SipushInsn) isInstruction()          {}
func (LdcInsn) isInstruction()             {}
func (PoolRef) isInstruction()             {}
func (InvokeInterfaceInsn) isInstruction() {}
func (InvokeDynamicInsn) isInstruction()   {}
func (NewArrayInsn) isInstruction()        {}
func (MultiANewArrayInsn) isInstruction()  {}
func (Branch) isInstruction()              {}
func (BranchWide) isInstruction()          {}
func (*TableSwitch) isInstruction()        {}
func (*LookupSwitch) isInstruction()       {}
func (WideInsn) isInstruction()            {}
func (WideIinc) isInstruction()            {}

// Target returns the absolute code offset of a branch taken at pc.
func Target(pc int, offset int32) int {
	return pc + int(offset)
}

// Padding returns the number of bytes a switch whose opcode sits at pc needs
// to align its first operand to a multiple of four.
func Padding(pc int) int {
	return (4 - (pc+1)%4) % 4
}

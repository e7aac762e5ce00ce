package bytecode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/daimatz/classlink/pkg/binio"
)

var (
	// ErrBadWide is returned when wide prefixes an opcode that cannot be widened.
	ErrBadWide = errors.New("invalid opcode after wide")
	// ErrBadSwitch is returned for a tableswitch with low > high or a
	// negative lookupswitch pair count.
	ErrBadSwitch = errors.New("invalid switch bounds")
)

// maxSwitchEntries caps jump tables to what fits in a 65535-byte code array.
const maxSwitchEntries = 1 << 16

// Decode reads one instruction from r. codeStart is r.Dist() at the first
// byte of the enclosing method's code and anchors switch alignment.
func Decode(r *binio.Reader, codeStart int) (Instruction, error) {
	b, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("reading opcode: %w", err)
	}
	op := Opcode(b)
	ins, err := decodeOperands(r, op, codeStart)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", op, err)
	}
	return ins, nil
}

func decodeOperands(r *binio.Reader, op Opcode, codeStart int) (Instruction, error) {
	switch shapes[op] {
	case shapeNone:
		return Simple{Op: op}, nil

	case shapeLocal:
		idx, err := r.Next()
		if err != nil {
			return nil, err
		}
		return LocalVar{Op: op, Index: idx}, nil

	case shapeIinc:
		idx, err := r.Next()
		if err != nil {
			return nil, err
		}
		c, err := r.NextI8()
		if err != nil {
			return nil, err
		}
		return IincInsn{Index: idx, Const: c}, nil

	case shapeBipush:
		v, err := r.NextI8()
		if err != nil {
			return nil, err
		}
		return BipushInsn{Value: v}, nil

	case shapeSipush:
		v, err := r.NextI16()
		if err != nil {
			return nil, err
		}
		return SipushInsn{Value: v}, nil

	case shapeLdc:
		idx, err := r.Next()
		if err != nil {
			return nil, err
		}
		return LdcInsn{Index: idx}, nil

	case shapePoolRef:
		idx, err := r.Next16()
		if err != nil {
			return nil, err
		}
		return PoolRef{Op: op, Index: idx}, nil

	case shapeInvokeInterface:
		idx, err := r.Next16()
		if err != nil {
			return nil, err
		}
		count, err := r.Next()
		if err != nil {
			return nil, err
		}
		if _, err := r.Next(); err != nil {
			return nil, err
		}
		return InvokeInterfaceInsn{Index: idx, Count: count}, nil

	case shapeInvokeDynamic:
		idx, err := r.Next16()
		if err != nil {
			return nil, err
		}
		if _, err := r.Next16(); err != nil {
			return nil, err
		}
		return InvokeDynamicInsn{Index: idx}, nil

	case shapeNewArray:
		atype, err := r.Next()
		if err != nil {
			return nil, err
		}
		return NewArrayInsn{AType: atype}, nil

	case shapeMultiANewArray:
		idx, err := r.Next16()
		if err != nil {
			return nil, err
		}
		dims, err := r.Next()
		if err != nil {
			return nil, err
		}
		return MultiANewArrayInsn{Index: idx, Dimensions: dims}, nil

	case shapeBranch:
		off, err := r.NextI16()
		if err != nil {
			return nil, err
		}
		return Branch{Op: op, Offset: off}, nil

	case shapeBranchWide:
		off, err := r.NextI32()
		if err != nil {
			return nil, err
		}
		return BranchWide{Op: op, Offset: off}, nil

	case shapeTableSwitch:
		return decodeTableSwitch(r, codeStart)

	case shapeLookupSwitch:
		return decodeLookupSwitch(r, codeStart)

	case shapeWide:
		return decodeWide(r)
	}
	return nil, fmt.Errorf("no operand shape for opcode 0x%02x", uint8(op))
}

// skipPadding consumes the zero bytes that align a switch operand block.
// The opcode byte has already been read.
func skipPadding(r *binio.Reader, codeStart int) (int, error) {
	pad := (4 - (r.Dist()-codeStart)%4) % 4
	for i := 0; i < pad; i++ {
		if _, err := r.Next(); err != nil {
			return 0, err
		}
	}
	return pad, nil
}

func decodeTableSwitch(r *binio.Reader, codeStart int) (Instruction, error) {
	pad, err := skipPadding(r, codeStart)
	if err != nil {
		return nil, err
	}
	def, err := r.NextI32()
	if err != nil {
		return nil, err
	}
	low, err := r.NextI32()
	if err != nil {
		return nil, err
	}
	high, err := r.NextI32()
	if err != nil {
		return nil, err
	}
	n := int64(high) - int64(low) + 1
	if n < 1 || n > maxSwitchEntries {
		return nil, fmt.Errorf("%w: low=%d high=%d", ErrBadSwitch, low, high)
	}
	offsets := make([]int32, n)
	for i := range offsets {
		if offsets[i], err = r.NextI32(); err != nil {
			return nil, err
		}
	}
	return &TableSwitch{Padding: pad, Default: def, Low: low, High: high, Offsets: offsets}, nil
}

func decodeLookupSwitch(r *binio.Reader, codeStart int) (Instruction, error) {
	pad, err := skipPadding(r, codeStart)
	if err != nil {
		return nil, err
	}
	def, err := r.NextI32()
	if err != nil {
		return nil, err
	}
	npairs, err := r.NextI32()
	if err != nil {
		return nil, err
	}
	if npairs < 0 || npairs > maxSwitchEntries {
		return nil, fmt.Errorf("%w: npairs=%d", ErrBadSwitch, npairs)
	}
	pairs := make([]MatchOffset, npairs)
	for i := range pairs {
		if pairs[i].Match, err = r.NextI32(); err != nil {
			return nil, err
		}
		if pairs[i].Offset, err = r.NextI32(); err != nil {
			return nil, err
		}
	}
	return &LookupSwitch{Padding: pad, Default: def, Pairs: pairs}, nil
}

func decodeWide(r *binio.Reader) (Instruction, error) {
	b, err := r.Next()
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	idx, err := r.Next16()
	if err != nil {
		return nil, err
	}
	if op == Iinc {
		c, err := r.NextI16()
		if err != nil {
			return nil, err
		}
		return WideIinc{Index: idx, Const: c}, nil
	}
	if !widenable(op) {
		return nil, fmt.Errorf("%w: %s", ErrBadWide, op)
	}
	return WideInsn{Op: op, Index: idx}, nil
}

// DecodeAll decodes a complete code array. Switch alignment is measured from
// code[0].
func DecodeAll(code []byte) ([]Instruction, error) {
	r := binio.NewReader(bytes.NewReader(code))
	var out []Instruction
	for r.Dist() < len(code) {
		pc := r.Dist()
		ins, err := Decode(r, 0)
		if err != nil {
			return nil, fmt.Errorf("at pc %d: %w", pc, err)
		}
		out = append(out, ins)
	}
	return out, nil
}

// Offsets returns the code offset of each instruction in seq.
func Offsets(seq []Instruction) []int {
	pcs := make([]int, len(seq))
	pc := 0
	for i, ins := range seq {
		pcs[i] = pc
		pc += ins.Size()
	}
	return pcs
}

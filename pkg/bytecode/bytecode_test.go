package bytecode

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/daimatz/classlink/pkg/binio"
)

// sample builds a representative instruction for op.
func sample(op Opcode) Instruction {
	switch shapes[op] {
	case shapeLocal:
		return LocalVar{Op: op, Index: 7}
	case shapeIinc:
		return IincInsn{Index: 3, Const: -4}
	case shapeBipush:
		return BipushInsn{Value: -100}
	case shapeSipush:
		return SipushInsn{Value: -30000}
	case shapeLdc:
		return LdcInsn{Index: 200}
	case shapePoolRef:
		return PoolRef{Op: op, Index: 0x1234}
	case shapeInvokeInterface:
		return InvokeInterfaceInsn{Index: 0x0102, Count: 3}
	case shapeInvokeDynamic:
		return InvokeDynamicInsn{Index: 0x0A0B}
	case shapeNewArray:
		return NewArrayInsn{AType: 10}
	case shapeMultiANewArray:
		return MultiANewArrayInsn{Index: 9, Dimensions: 2}
	case shapeBranch:
		return Branch{Op: op, Offset: -12}
	case shapeBranchWide:
		return BranchWide{Op: op, Offset: 70000}
	case shapeTableSwitch:
		return &TableSwitch{Padding: 3, Default: 40, Low: -1, High: 1, Offsets: []int32{10, 20, 30}}
	case shapeLookupSwitch:
		return &LookupSwitch{Padding: 3, Default: 50, Pairs: []MatchOffset{{Match: -5, Offset: 12}, {Match: 99, Offset: 24}}}
	case shapeWide:
		return WideInsn{Op: Aload, Index: 300}
	}
	return Simple{Op: op}
}

func TestRoundTripEveryOpcode(t *testing.T) {
	for n := 0; n < 256; n++ {
		op := Opcode(n)
		t.Run(op.String(), func(t *testing.T) {
			ins := sample(op)

			w := binio.NewWriter()
			if err := Encode(w, ins); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if w.Len() != ins.Size() {
				t.Errorf("Size: got %d, encoded %d bytes", ins.Size(), w.Len())
			}

			// Place the opcode at offset 0 so the sample's padding of 3 is exact.
			r := binio.NewReader(bytes.NewReader(w.Bytes()))
			got, err := Decode(r, 0)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, ins) {
				t.Errorf("round trip: got %#v, want %#v", got, ins)
			}
			if r.Dist() != w.Len() {
				t.Errorf("consumed %d of %d bytes", r.Dist(), w.Len())
			}
		})
	}
}

func TestWideForms(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want Instruction
	}{
		{"wide iload", []byte{0xC4, 0x15, 0x01, 0x00}, WideInsn{Op: Iload, Index: 256}},
		{"wide ret", []byte{0xC4, 0xA9, 0x00, 0x05}, WideInsn{Op: Ret, Index: 5}},
		{"wide iinc", []byte{0xC4, 0x84, 0x01, 0x02, 0xFF, 0xFE}, WideIinc{Index: 0x0102, Const: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := DecodeAll(tt.code)
			if err != nil {
				t.Fatalf("DecodeAll: %v", err)
			}
			if len(seq) != 1 || !reflect.DeepEqual(seq[0], tt.want) {
				t.Fatalf("got %#v, want %#v", seq, tt.want)
			}
			out, err := EncodeAll(seq)
			if err != nil {
				t.Fatalf("EncodeAll: %v", err)
			}
			if !bytes.Equal(out, tt.code) {
				t.Errorf("re-encoded %x, want %x", out, tt.code)
			}
		})
	}

	t.Run("wide of non-local opcode", func(t *testing.T) {
		_, err := DecodeAll([]byte{0xC4, 0x60, 0x00, 0x01})
		if !errors.Is(err, ErrBadWide) {
			t.Errorf("got %v, want ErrBadWide", err)
		}
	})
}

func TestSwitchPadding(t *testing.T) {
	// lookupswitch with zero pairs: opcode, padding, default(4), npairs(4).
	for pc := 0; pc < 8; pc++ {
		pad := Padding(pc)
		code := make([]byte, pc)
		code = append(code, byte(Lookupswitch))
		code = append(code, make([]byte, pad)...)
		code = append(code, 0, 0, 0, 9, 0, 0, 0, 0)

		r := binio.NewReader(bytes.NewReader(code))
		for i := 0; i < pc; i++ {
			if _, err := r.Next(); err != nil {
				t.Fatal(err)
			}
		}
		ins, err := Decode(r, 0)
		if err != nil {
			t.Fatalf("pc %d: %v", pc, err)
		}
		ls := ins.(*LookupSwitch)
		if ls.Padding != pad {
			t.Errorf("pc %d: padding %d, want %d", pc, ls.Padding, pad)
		}
		if (pc+1+ls.Padding)%4 != 0 {
			t.Errorf("pc %d: default not aligned", pc)
		}
		if r.Dist() != len(code) {
			t.Errorf("pc %d: consumed %d of %d", pc, r.Dist(), len(code))
		}
		if ls.Default != 9 {
			t.Errorf("pc %d: default %d, want 9", pc, ls.Default)
		}
	}
}

func TestSwitchPaddingAtOffsetSeven(t *testing.T) {
	// Five bytes of preceding class data, then a method body whose tableswitch
	// sits at code offset 7; the operand block starts at code offset 8.
	prefix := []byte{1, 2, 3, 4, 5}
	body := []byte{0, 0, 0, 0, 0, 0, 0, byte(Tableswitch),
		0, 0, 0, 30, // default
		0, 0, 0, 1,  // low
		0, 0, 0, 2,  // high
		0, 0, 0, 10,
		0, 0, 0, 20,
	}
	r := binio.NewReader(bytes.NewReader(append(prefix, body...)))
	for range prefix {
		r.Next()
	}
	codeStart := r.Dist()
	for i := 0; i < 7; i++ {
		if _, err := Decode(r, codeStart); err != nil {
			t.Fatal(err)
		}
	}
	ins, err := Decode(r, codeStart)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := &TableSwitch{Padding: 0, Default: 30, Low: 1, High: 2, Offsets: []int32{10, 20}}
	if !reflect.DeepEqual(ins, want) {
		t.Errorf("got %#v, want %#v", ins, want)
	}
}

func TestEncodeDecodeBytes(t *testing.T) {
	// iconst_1; tableswitch at pc 1 (2 padding bytes); ireturn
	code := []byte{
		0x04,
		0xAA, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x14,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x18,
		0x00, 0x00, 0x00, 0x18,
		0xAC,
	}
	seq, err := DecodeAll(code)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(seq) != 3 {
		t.Fatalf("got %d instructions, want 3", len(seq))
	}
	if got := Offsets(seq); !reflect.DeepEqual(got, []int{0, 1, 24}) {
		t.Errorf("Offsets: got %v", got)
	}
	out, err := EncodeAll(seq)
	if err != nil {
		t.Fatalf("EncodeAll: %v", err)
	}
	if !bytes.Equal(out, code) {
		t.Errorf("re-encoded %x\nwant %x", out, code)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"tableswitch high below low", []byte{0xAA, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5, 0, 0, 0, 1}, ErrBadSwitch},
		{"tableswitch empty table", []byte{0xAA, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5, 0, 0, 0, 4}, ErrBadSwitch},
		{"lookupswitch negative pairs", []byte{0xAB, 0, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}, ErrBadSwitch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAll(tt.code); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("encode empty tableswitch", func(t *testing.T) {
		err := Encode(binio.NewWriter(), &TableSwitch{Padding: 3, Low: 5, High: 4})
		if !errors.Is(err, ErrBadSwitch) {
			t.Errorf("got %v, want ErrBadSwitch", err)
		}
	})

	t.Run("truncated operand", func(t *testing.T) {
		if _, err := DecodeAll([]byte{0x11, 0x01}); err == nil {
			t.Error("expected error for truncated sipush")
		}
	})
}

func TestOpcodeNames(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{Nop, "nop"},
		{Invokeinterface, "invokeinterface"},
		{Breakpoint, "breakpoint"},
		{0xCB, "reserved_cb"},
		{0xFD, "reserved_fd"},
		{Impdep1, "impdep1"},
		{Impdep2, "impdep2"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%#x: got %q, want %q", uint8(tt.op), got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	seq := []Instruction{
		BipushInsn{Value: 5},
		Branch{Op: Goto, Offset: -2},
	}
	lines := Disassemble(seq)
	want := []string{"   0: bipush 5", "   2: goto 0"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %q, want %q", lines, want)
	}
}

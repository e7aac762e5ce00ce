package bytecode

import (
	"fmt"

	"github.com/daimatz/classlink/pkg/binio"
)

// Encode writes ins to w. Switch padding is emitted as the stored number of
// zero bytes.
func Encode(w *binio.Writer, ins Instruction) error {
	switch i := ins.(type) {
	case Simple:
		w.U8(uint8(i.Op))
	case LocalVar:
		w.U8(uint8(i.Op))
		w.U8(i.Index)
	case IincInsn:
		w.U8(uint8(Iinc))
		w.U8(i.Index)
		w.I8(i.Const)
	case BipushInsn:
		w.U8(uint8(Bipush))
		w.I8(i.Value)
	case SipushInsn:
		w.U8(uint8(Sipush))
		w.I16(i.Value)
	case LdcInsn:
		w.U8(uint8(Ldc))
		w.U8(i.Index)
	case PoolRef:
		w.U8(uint8(i.Op))
		w.U16(i.Index)
	case InvokeInterfaceInsn:
		w.U8(uint8(Invokeinterface))
		w.U16(i.Index)
		w.U8(i.Count)
		w.U8(0)
	case InvokeDynamicInsn:
		w.U8(uint8(Invokedynamic))
		w.U16(i.Index)
		w.U16(0)
	case NewArrayInsn:
		w.U8(uint8(Newarray))
		w.U8(i.AType)
	case MultiANewArrayInsn:
		w.U8(uint8(Multianewarray))
		w.U16(i.Index)
		w.U8(i.Dimensions)
	case Branch:
		w.U8(uint8(i.Op))
		w.I16(i.Offset)
	case BranchWide:
		w.U8(uint8(i.Op))
		w.I32(i.Offset)
	case *TableSwitch:
		if i.Low > i.High {
			return fmt.Errorf("%w: low=%d high=%d", ErrBadSwitch, i.Low, i.High)
		}
		if int64(i.High)-int64(i.Low)+1 != int64(len(i.Offsets)) {
			return fmt.Errorf("tableswitch: %d offsets for range [%d, %d]", len(i.Offsets), i.Low, i.High)
		}
		w.U8(uint8(Tableswitch))
		writePadding(w, i.Padding)
		w.I32(i.Default)
		w.I32(i.Low)
		w.I32(i.High)
		for _, off := range i.Offsets {
			w.I32(off)
		}
	case *LookupSwitch:
		w.U8(uint8(Lookupswitch))
		writePadding(w, i.Padding)
		w.I32(i.Default)
		w.I32(int32(len(i.Pairs)))
		for _, p := range i.Pairs {
			w.I32(p.Match)
			w.I32(p.Offset)
		}
	case WideInsn:
		if !widenable(i.Op) {
			return fmt.Errorf("wide: %w: %s", ErrBadWide, i.Op)
		}
		w.U8(uint8(Wide))
		w.U8(uint8(i.Op))
		w.U16(i.Index)
	case WideIinc:
		w.U8(uint8(Wide))
		w.U8(uint8(Iinc))
		w.U16(i.Index)
		w.I16(i.Const)
	default:
		return fmt.Errorf("unknown instruction type %T", ins)
	}
	return nil
}

func writePadding(w *binio.Writer, n int) {
	for i := 0; i < n; i++ {
		w.U8(0)
	}
}

// EncodeAll encodes seq into a fresh code array.
func EncodeAll(seq []Instruction) ([]byte, error) {
	w := binio.NewWriter()
	for i, ins := range seq {
		if err := Encode(w, ins); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return w.Bytes(), nil
}

package classfile

import (
	"fmt"

	"github.com/daimatz/classlink/pkg/binio"
)

// Verification type tags
const (
	VerifyTop               = 0
	VerifyInteger           = 1
	VerifyFloat             = 2
	VerifyDouble            = 3
	VerifyLong              = 4
	VerifyNull              = 5
	VerifyUninitializedThis = 6
	VerifyObject            = 7
	VerifyUninitialized     = 8
)

// VerificationType is a verification_type_info. ClassIndex is set for
// VerifyObject, Offset for VerifyUninitialized.
type VerificationType struct {
	Tag        uint8
	ClassIndex uint16
	Offset     uint16
}

// FrameHeader is shared by every frame. Offset is the absolute bytecode
// offset the frame applies to.
type FrameHeader struct {
	Type        uint8
	OffsetDelta uint16
	Offset      int
}

func (h FrameHeader) Header() FrameHeader { return h }

// StackMapFrame is one entry of a StackMapTable.
type StackMapFrame interface {
	Header() FrameHeader
	isFrame()
}

// SameFrame covers frame types 0-63.
type SameFrame struct {
	FrameHeader
}

// SameLocals1StackItemFrame covers frame types 64-127.
type SameLocals1StackItemFrame struct {
	FrameHeader
	Stack VerificationType
}

// SameLocals1StackItemFrameExtended is frame type 247.
type SameLocals1StackItemFrameExtended struct {
	FrameHeader
	Stack VerificationType
}

// ChopFrame covers frame types 248-250.
type ChopFrame struct {
	FrameHeader
}

// Chopped returns the number of locals removed.
func (f *ChopFrame) Chopped() int { return 251 - int(f.Type) }

// SameFrameExtended is frame type 251.
type SameFrameExtended struct {
	FrameHeader
}

// AppendFrame covers frame types 252-254; len(Locals) == Type-251.
type AppendFrame struct {
	FrameHeader
	Locals []VerificationType
}

// FullFrame is frame type 255.
type FullFrame struct {
	FrameHeader
	Locals []VerificationType
	Stack  []VerificationType
}

func (*SameFrame) isFrame()                         {}
func (*SameLocals1StackItemFrame) isFrame()         {}
func (*SameLocals1StackItemFrameExtended) isFrame() {}
func (*ChopFrame) isFrame()                         {}
func (*SameFrameExtended) isFrame()                 {}
func (*AppendFrame) isFrame()                       {}
func (*FullFrame) isFrame()                         {}

type StackMapTable struct {
	Frames []StackMapFrame
}

func decodeStackMapTable(r *binio.Reader) (*StackMapTable, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	frames := make([]StackMapFrame, 0, n)
	offset := -1
	for i := 0; i < int(n); i++ {
		f, err := decodeFrame(r, &offset)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	return &StackMapTable{Frames: frames}, nil
}

// decodeFrame reads one frame and advances *offset by offset_delta + 1.
func decodeFrame(r *binio.Reader, offset *int) (StackMapFrame, error) {
	tag, err := r.Next()
	if err != nil {
		return nil, err
	}
	header := func(delta uint16) FrameHeader {
		*offset += int(delta) + 1
		return FrameHeader{Type: tag, OffsetDelta: delta, Offset: *offset}
	}

	switch {
	case tag <= 63:
		return &SameFrame{header(uint16(tag))}, nil

	case tag <= 127:
		h := header(uint16(tag - 64))
		vt, err := decodeVerificationType(r)
		if err != nil {
			return nil, err
		}
		return &SameLocals1StackItemFrame{FrameHeader: h, Stack: vt}, nil

	case tag < 247:
		return nil, fmt.Errorf("%w: %d", ErrBadFrameType, tag)

	case tag == 247:
		delta, err := r.Next16()
		if err != nil {
			return nil, err
		}
		h := header(delta)
		vt, err := decodeVerificationType(r)
		if err != nil {
			return nil, err
		}
		return &SameLocals1StackItemFrameExtended{FrameHeader: h, Stack: vt}, nil

	case tag <= 250:
		delta, err := r.Next16()
		if err != nil {
			return nil, err
		}
		return &ChopFrame{header(delta)}, nil

	case tag == 251:
		delta, err := r.Next16()
		if err != nil {
			return nil, err
		}
		return &SameFrameExtended{header(delta)}, nil

	case tag <= 254:
		delta, err := r.Next16()
		if err != nil {
			return nil, err
		}
		h := header(delta)
		locals, err := decodeVerificationTypes(r, int(tag)-251)
		if err != nil {
			return nil, err
		}
		return &AppendFrame{FrameHeader: h, Locals: locals}, nil
	}

	delta, err := r.Next16()
	if err != nil {
		return nil, err
	}
	h := header(delta)
	nLocals, err := r.Next16()
	if err != nil {
		return nil, err
	}
	locals, err := decodeVerificationTypes(r, int(nLocals))
	if err != nil {
		return nil, err
	}
	nStack, err := r.Next16()
	if err != nil {
		return nil, err
	}
	stack, err := decodeVerificationTypes(r, int(nStack))
	if err != nil {
		return nil, err
	}
	return &FullFrame{FrameHeader: h, Locals: locals, Stack: stack}, nil
}

func decodeVerificationTypes(r *binio.Reader, n int) ([]VerificationType, error) {
	out := make([]VerificationType, n)
	for i := range out {
		vt, err := decodeVerificationType(r)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

func decodeVerificationType(r *binio.Reader) (VerificationType, error) {
	tag, err := r.Next()
	if err != nil {
		return VerificationType{}, err
	}
	vt := VerificationType{Tag: tag}
	switch tag {
	case VerifyTop, VerifyInteger, VerifyFloat, VerifyDouble, VerifyLong, VerifyNull, VerifyUninitializedThis:
	case VerifyObject:
		vt.ClassIndex, err = r.Next16()
	case VerifyUninitialized:
		vt.Offset, err = r.Next16()
	default:
		return VerificationType{}, fmt.Errorf("%w: %d", ErrBadVerificationTag, tag)
	}
	return vt, err
}

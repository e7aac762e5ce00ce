package classfile

import (
	"fmt"
	"math"

	"github.com/daimatz/classlink/pkg/binio"
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagInvokeDynamic      = 18

	// TagLongDoubleDummy marks the unusable slot after a Long or Double. It
	// never appears in a class file.
	TagLongDoubleDummy = 0
)

// validTags is indexed by tag byte; 2, 13, 14 and 17 are reserved.
var validTags = [...]bool{
	TagUtf8: true, TagInteger: true, TagFloat: true, TagLong: true, TagDouble: true,
	TagClass: true, TagString: true, TagFieldref: true, TagMethodref: true,
	TagInterfaceMethodref: true, TagNameAndType: true, TagMethodHandle: true,
	TagMethodType: true, TagInvokeDynamic: true,
}

// ConstantPoolEntry is an interface implemented by all constant pool types.
type ConstantPoolEntry interface {
	Tag() uint8
	// Encode writes the tag byte and payload.
	Encode(w *binio.Writer) error
}

// MaxUtf8Length is the largest encoded Utf8 payload a u2 length can hold.
const MaxUtf8Length = math.MaxUint16

// ConstantUtf8 keeps the raw modified UTF-8 bytes; Text decodes them.
type ConstantUtf8 struct {
	Bytes []byte
}

// NewUtf8 encodes s as a Utf8 entry.
func NewUtf8(s string) *ConstantUtf8 {
	return &ConstantUtf8{Bytes: encodeModifiedUTF8(s)}
}

// Text decodes the entry. Invalid sequences are an error, never replaced.
func (c *ConstantUtf8) Text() (string, error) {
	return decodeModifiedUTF8(c.Bytes)
}

type ConstantInteger struct {
	Value int32
}

// ConstantFloat stores the raw IEEE-754 bits so NaN payloads survive a
// round trip.
type ConstantFloat struct {
	Bits uint32
}

func (c *ConstantFloat) Value() float32 { return math.Float32frombits(c.Bits) }

type ConstantLong struct {
	Value int64
}

// ConstantDouble stores the raw IEEE-754 bits.
type ConstantDouble struct {
	Bits uint64
}

func (c *ConstantDouble) Value() float64 { return math.Float64frombits(c.Bits) }

type ConstantClass struct {
	NameIndex uint16
}

type ConstantString struct {
	StringIndex uint16
}

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

type ConstantMethodType struct {
	DescriptorIndex uint16
}

type ConstantInvokeDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

// ConstantLongDoubleDummy occupies the slot after a Long or Double.
type ConstantLongDoubleDummy struct{}

func (c *ConstantUtf8) Tag() uint8               { return TagUtf8 }
func (c *ConstantInteger) Tag() uint8            { return TagInteger }
func (c *ConstantFloat) Tag() uint8              { return TagFloat }
func (c *ConstantLong) Tag() uint8               { return TagLong }
func (c *ConstantDouble) Tag() uint8             { return TagDouble }
func (c *ConstantClass) Tag() uint8              { return TagClass }
func (c *ConstantString) Tag() uint8             { return TagString }
func (c *ConstantFieldref) Tag() uint8           { return TagFieldref }
func (c *ConstantMethodref) Tag() uint8          { return TagMethodref }
func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }
func (c *ConstantNameAndType) Tag() uint8        { return TagNameAndType }
func (c *ConstantMethodHandle) Tag() uint8       { return TagMethodHandle }
func (c *ConstantMethodType) Tag() uint8         { return TagMethodType }
func (c *ConstantInvokeDynamic) Tag() uint8      { return TagInvokeDynamic }
func (c *ConstantLongDoubleDummy) Tag() uint8    { return TagLongDoubleDummy }

func (c *ConstantUtf8) Encode(w *binio.Writer) error {
	if len(c.Bytes) > MaxUtf8Length {
		return fmt.Errorf("%w: %d bytes", ErrUtf8TooLong, len(c.Bytes))
	}
	w.U8(TagUtf8)
	w.U16(uint16(len(c.Bytes)))
	w.Raw(c.Bytes)
	return nil
}

func (c *ConstantInteger) Encode(w *binio.Writer) error {
	w.U8(TagInteger)
	w.I32(c.Value)
	return nil
}

func (c *ConstantFloat) Encode(w *binio.Writer) error {
	w.U8(TagFloat)
	w.U32(c.Bits)
	return nil
}

func (c *ConstantLong) Encode(w *binio.Writer) error {
	w.U8(TagLong)
	w.I64(c.Value)
	return nil
}

func (c *ConstantDouble) Encode(w *binio.Writer) error {
	w.U8(TagDouble)
	w.U64(c.Bits)
	return nil
}

func (c *ConstantClass) Encode(w *binio.Writer) error {
	w.U8(TagClass)
	w.U16(c.NameIndex)
	return nil
}

func (c *ConstantString) Encode(w *binio.Writer) error {
	w.U8(TagString)
	w.U16(c.StringIndex)
	return nil
}

func (c *ConstantFieldref) Encode(w *binio.Writer) error {
	w.U8(TagFieldref)
	w.U16(c.ClassIndex)
	w.U16(c.NameAndTypeIndex)
	return nil
}

func (c *ConstantMethodref) Encode(w *binio.Writer) error {
	w.U8(TagMethodref)
	w.U16(c.ClassIndex)
	w.U16(c.NameAndTypeIndex)
	return nil
}

func (c *ConstantInterfaceMethodref) Encode(w *binio.Writer) error {
	w.U8(TagInterfaceMethodref)
	w.U16(c.ClassIndex)
	w.U16(c.NameAndTypeIndex)
	return nil
}

func (c *ConstantNameAndType) Encode(w *binio.Writer) error {
	w.U8(TagNameAndType)
	w.U16(c.NameIndex)
	w.U16(c.DescriptorIndex)
	return nil
}

func (c *ConstantMethodHandle) Encode(w *binio.Writer) error {
	w.U8(TagMethodHandle)
	w.U8(c.ReferenceKind)
	w.U16(c.ReferenceIndex)
	return nil
}

func (c *ConstantMethodType) Encode(w *binio.Writer) error {
	w.U8(TagMethodType)
	w.U16(c.DescriptorIndex)
	return nil
}

func (c *ConstantInvokeDynamic) Encode(w *binio.Writer) error {
	w.U8(TagInvokeDynamic)
	w.U16(c.BootstrapMethodAttrIndex)
	w.U16(c.NameAndTypeIndex)
	return nil
}

// Encode writes nothing: the dummy slot has no representation on disk.
func (c *ConstantLongDoubleDummy) Encode(w *binio.Writer) error { return nil }

// ConstantPool is 1-indexed: index 0 is nil.
type ConstantPool []ConstantPoolEntry

// DecodeConstantPool reads count-1 slots. Long and Double entries are
// followed by a ConstantLongDoubleDummy so indices match the class file.
func DecodeConstantPool(r *binio.Reader, count uint16) (ConstantPool, error) {
	if count == 0 {
		return nil, fmt.Errorf("%w: constant_pool_count is 0", ErrBadIndex)
	}
	pool := make(ConstantPool, 1, count)
	for len(pool) < int(count) {
		entry, err := DecodeEntry(r)
		if err != nil {
			return nil, fmt.Errorf("constant pool index %d: %w", len(pool), err)
		}
		pool = append(pool, entry)
		if entry.Tag() == TagLong || entry.Tag() == TagDouble {
			if len(pool) == int(count) {
				return nil, fmt.Errorf("constant pool index %d: %w: 8-byte constant in last slot", len(pool)-1, ErrBadIndex)
			}
			pool = append(pool, &ConstantLongDoubleDummy{})
		}
	}
	return pool, nil
}

// DecodeEntry reads one tagged entry.
func DecodeEntry(r *binio.Reader) (ConstantPoolEntry, error) {
	tag, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("reading tag: %w", err)
	}
	if int(tag) >= len(validTags) || !validTags[tag] {
		return nil, fmt.Errorf("%w: %d", ErrBadConstantTag, tag)
	}

	switch tag {
	case TagUtf8:
		length, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading Utf8 length: %w", err)
		}
		b, err := r.NextBytes(int(length))
		if err != nil {
			return nil, fmt.Errorf("reading Utf8 bytes: %w", err)
		}
		return &ConstantUtf8{Bytes: b}, nil

	case TagInteger:
		v, err := r.NextI32()
		if err != nil {
			return nil, fmt.Errorf("reading Integer: %w", err)
		}
		return &ConstantInteger{Value: v}, nil

	case TagFloat:
		bits, err := r.Next32()
		if err != nil {
			return nil, fmt.Errorf("reading Float: %w", err)
		}
		return &ConstantFloat{Bits: bits}, nil

	case TagLong:
		v, err := r.NextI64()
		if err != nil {
			return nil, fmt.Errorf("reading Long: %w", err)
		}
		return &ConstantLong{Value: v}, nil

	case TagDouble:
		bits, err := r.Next64()
		if err != nil {
			return nil, fmt.Errorf("reading Double: %w", err)
		}
		return &ConstantDouble{Bits: bits}, nil

	case TagClass:
		idx, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading Class: %w", err)
		}
		return &ConstantClass{NameIndex: idx}, nil

	case TagString:
		idx, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading String: %w", err)
		}
		return &ConstantString{StringIndex: idx}, nil

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		classIndex, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading class_index: %w", err)
		}
		natIndex, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading name_and_type_index: %w", err)
		}
		switch tag {
		case TagFieldref:
			return &ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil
		case TagMethodref:
			return &ConstantMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil
		}
		return &ConstantInterfaceMethodref{ClassIndex: classIndex, NameAndTypeIndex: natIndex}, nil

	case TagNameAndType:
		nameIndex, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading NameAndType name_index: %w", err)
		}
		descIndex, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading NameAndType descriptor_index: %w", err)
		}
		return &ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex}, nil

	case TagMethodHandle:
		kind, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("reading MethodHandle reference_kind: %w", err)
		}
		if kind < 1 || kind > 9 {
			return nil, fmt.Errorf("%w: %d", ErrBadMethodHandleKind, kind)
		}
		idx, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading MethodHandle reference_index: %w", err)
		}
		return &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: idx}, nil

	case TagMethodType:
		idx, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading MethodType: %w", err)
		}
		return &ConstantMethodType{DescriptorIndex: idx}, nil

	case TagInvokeDynamic:
		bsm, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading InvokeDynamic bootstrap_method_attr_index: %w", err)
		}
		natIndex, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading InvokeDynamic name_and_type_index: %w", err)
		}
		return &ConstantInvokeDynamic{BootstrapMethodAttrIndex: bsm, NameAndTypeIndex: natIndex}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrBadConstantTag, tag)
}

// Encode writes constant_pool_count followed by every entry.
func (cp ConstantPool) Encode(w *binio.Writer) error {
	if len(cp) > math.MaxUint16 {
		return fmt.Errorf("%w: %d entries", ErrPoolTooLarge, len(cp))
	}
	w.U16(uint16(len(cp)))
	for i, e := range cp[1:] {
		if err := e.Encode(w); err != nil {
			return fmt.Errorf("constant pool index %d: %w", i+1, err)
		}
	}
	return nil
}

// Entry returns the entry at index, rejecting index 0, out-of-range indices
// and the dummy slot after a Long or Double.
func (cp ConstantPool) Entry(index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) >= len(cp) || cp[index] == nil {
		return nil, fmt.Errorf("%w: %d", ErrBadIndex, index)
	}
	if _, ok := cp[index].(*ConstantLongDoubleDummy); ok {
		return nil, fmt.Errorf("%w: %d is the second slot of an 8-byte constant", ErrBadIndex, index)
	}
	return cp[index], nil
}

func entryAs[T ConstantPoolEntry](cp ConstantPool, index uint16, kind string) (T, error) {
	var zero T
	e, err := cp.Entry(index)
	if err != nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%w: index %d is tag %d, want %s", ErrWrongConstantKind, index, e.Tag(), kind)
	}
	return v, nil
}

// Utf8 returns the decoded text of the Utf8 entry at index.
func (cp ConstantPool) Utf8(index uint16) (string, error) {
	u, err := entryAs[*ConstantUtf8](cp, index, "Utf8")
	if err != nil {
		return "", err
	}
	s, err := u.Text()
	if err != nil {
		return "", fmt.Errorf("constant pool index %d: %w", index, err)
	}
	return s, nil
}

// ClassName returns the class name referenced by a CONSTANT_Class entry.
func (cp ConstantPool) ClassName(index uint16) (string, error) {
	c, err := entryAs[*ConstantClass](cp, index, "Class")
	if err != nil {
		return "", err
	}
	return cp.Utf8(c.NameIndex)
}

// StringValue returns the text of a CONSTANT_String entry.
func (cp ConstantPool) StringValue(index uint16) (string, error) {
	s, err := entryAs[*ConstantString](cp, index, "String")
	if err != nil {
		return "", err
	}
	return cp.Utf8(s.StringIndex)
}

// NameAndType returns the name and descriptor of a CONSTANT_NameAndType entry.
func (cp ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	nat, err := entryAs[*ConstantNameAndType](cp, index, "NameAndType")
	if err != nil {
		return "", "", err
	}
	if name, err = cp.Utf8(nat.NameIndex); err != nil {
		return "", "", fmt.Errorf("resolving name: %w", err)
	}
	if descriptor, err = cp.Utf8(nat.DescriptorIndex); err != nil {
		return "", "", fmt.Errorf("resolving descriptor: %w", err)
	}
	return name, descriptor, nil
}

// MemberRefInfo holds resolved field or method reference info.
type MemberRefInfo struct {
	ClassName  string
	Name       string
	Descriptor string
	// Interface is set for InterfaceMethodref entries.
	Interface bool
}

func (cp ConstantPool) memberRef(classIndex, natIndex uint16) (*MemberRefInfo, error) {
	className, err := cp.ClassName(classIndex)
	if err != nil {
		return nil, fmt.Errorf("resolving class: %w", err)
	}
	name, desc, err := cp.NameAndType(natIndex)
	if err != nil {
		return nil, err
	}
	return &MemberRefInfo{ClassName: className, Name: name, Descriptor: desc}, nil
}

// FieldRef resolves a CONSTANT_Fieldref entry.
func (cp ConstantPool) FieldRef(index uint16) (*MemberRefInfo, error) {
	f, err := entryAs[*ConstantFieldref](cp, index, "Fieldref")
	if err != nil {
		return nil, err
	}
	return cp.memberRef(f.ClassIndex, f.NameAndTypeIndex)
}

// MethodRef resolves a CONSTANT_Methodref or CONSTANT_InterfaceMethodref entry.
func (cp ConstantPool) MethodRef(index uint16) (*MemberRefInfo, error) {
	e, err := cp.Entry(index)
	if err != nil {
		return nil, err
	}
	switch m := e.(type) {
	case *ConstantMethodref:
		return cp.memberRef(m.ClassIndex, m.NameAndTypeIndex)
	case *ConstantInterfaceMethodref:
		ref, err := cp.memberRef(m.ClassIndex, m.NameAndTypeIndex)
		if err != nil {
			return nil, err
		}
		ref.Interface = true
		return ref, nil
	}
	return nil, fmt.Errorf("%w: index %d is tag %d, want Methodref", ErrWrongConstantKind, index, e.Tag())
}

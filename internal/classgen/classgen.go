// Package classgen assembles small class files in memory. The loader and
// parser tests use it in place of checked-in .class fixtures.
package classgen

import (
	"fmt"
	"math"

	"github.com/daimatz/classlink/pkg/binio"
)

// Attr is a raw attribute: a name plus an already-encoded payload.
type Attr struct {
	Name    string
	Payload []byte
}

// Builder accumulates a constant pool and the members that refer to it.
// Constants are interned, so asking twice for the same value yields the same
// index.
type Builder struct {
	MajorVersion uint16
	Flags        uint16

	pool    *binio.Writer
	next    uint16
	cpIndex map[string]uint16

	this       uint16
	super      uint16
	interfaces []uint16
	fields     []*binio.Writer
	methods    []*binio.Writer
	attrs      []Attr
}

// New starts a class named name extending super. An empty super leaves
// super_class at 0, as in java/lang/Object.
func New(name, super string) *Builder {
	b := &Builder{
		MajorVersion: 52,
		Flags:        0x0021,
		pool:         binio.NewWriter(),
		next:         1,
		cpIndex:      make(map[string]uint16),
	}
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

// SetSuper points super_class at an arbitrary pool index.
func (b *Builder) SetSuper(index uint16) {
	b.super = index
}

func (b *Builder) intern(key string, width uint16, emit func(w *binio.Writer)) uint16 {
	if idx, ok := b.cpIndex[key]; ok {
		return idx
	}
	emit(b.pool)
	idx := b.next
	b.next += width
	b.cpIndex[key] = idx
	return idx
}

// Utf8 interns s. Test data is plain ASCII, so no modified UTF-8 conversion
// is applied.
func (b *Builder) Utf8(s string) uint16 {
	return b.intern("utf8:"+s, 1, func(w *binio.Writer) {
		w.U8(1)
		w.U16(uint16(len(s)))
		w.Raw([]byte(s))
	})
}

func (b *Builder) Int(v int32) uint16 {
	return b.intern(fmt.Sprintf("int:%d", v), 1, func(w *binio.Writer) {
		w.U8(3)
		w.I32(v)
	})
}

func (b *Builder) Float(v float32) uint16 {
	return b.intern(fmt.Sprintf("float:%x", math.Float32bits(v)), 1, func(w *binio.Writer) {
		w.U8(4)
		w.U32(math.Float32bits(v))
	})
}

func (b *Builder) Long(v int64) uint16 {
	return b.intern(fmt.Sprintf("long:%d", v), 2, func(w *binio.Writer) {
		w.U8(5)
		w.I64(v)
	})
}

func (b *Builder) Double(v float64) uint16 {
	return b.intern(fmt.Sprintf("double:%x", math.Float64bits(v)), 2, func(w *binio.Writer) {
		w.U8(6)
		w.U64(math.Float64bits(v))
	})
}

func (b *Builder) Class(name string) uint16 {
	nameIdx := b.Utf8(name)
	return b.intern("class:"+name, 1, func(w *binio.Writer) {
		w.U8(7)
		w.U16(nameIdx)
	})
}

func (b *Builder) StringConst(s string) uint16 {
	utf8Idx := b.Utf8(s)
	return b.intern("string:"+s, 1, func(w *binio.Writer) {
		w.U8(8)
		w.U16(utf8Idx)
	})
}

func (b *Builder) NameAndType(name, descriptor string) uint16 {
	nameIdx := b.Utf8(name)
	descIdx := b.Utf8(descriptor)
	return b.intern("nameandtype:"+name+":"+descriptor, 1, func(w *binio.Writer) {
		w.U8(12)
		w.U16(nameIdx)
		w.U16(descIdx)
	})
}

func (b *Builder) memberRef(tag uint8, prefix, className, name, descriptor string) uint16 {
	classIdx := b.Class(className)
	natIdx := b.NameAndType(name, descriptor)
	return b.intern(prefix+className+"."+name+":"+descriptor, 1, func(w *binio.Writer) {
		w.U8(tag)
		w.U16(classIdx)
		w.U16(natIdx)
	})
}

func (b *Builder) Fieldref(className, name, descriptor string) uint16 {
	return b.memberRef(9, "fieldref:", className, name, descriptor)
}

func (b *Builder) Methodref(className, name, descriptor string) uint16 {
	return b.memberRef(10, "methodref:", className, name, descriptor)
}

func (b *Builder) InterfaceMethodref(className, name, descriptor string) uint16 {
	return b.memberRef(11, "imethodref:", className, name, descriptor)
}

func (b *Builder) MethodHandle(kind uint8, ref uint16) uint16 {
	return b.intern(fmt.Sprintf("methodhandle:%d:%d", kind, ref), 1, func(w *binio.Writer) {
		w.U8(15)
		w.U8(kind)
		w.U16(ref)
	})
}

func (b *Builder) MethodType(descriptor string) uint16 {
	descIdx := b.Utf8(descriptor)
	return b.intern("methodtype:"+descriptor, 1, func(w *binio.Writer) {
		w.U8(16)
		w.U16(descIdx)
	})
}

func (b *Builder) InvokeDynamic(bootstrap uint16, name, descriptor string) uint16 {
	natIdx := b.NameAndType(name, descriptor)
	return b.intern(fmt.Sprintf("indy:%d:%d", bootstrap, natIdx), 1, func(w *binio.Writer) {
		w.U8(18)
		w.U16(bootstrap)
		w.U16(natIdx)
	})
}

// AddInterface appends a direct superinterface.
func (b *Builder) AddInterface(name string) {
	b.interfaces = append(b.interfaces, b.Class(name))
}

// AddField appends a field_info.
func (b *Builder) AddField(flags uint16, name, descriptor string, attrs ...Attr) {
	b.fields = append(b.fields, b.member(flags, name, descriptor, attrs))
}

// AddMethod appends a method_info.
func (b *Builder) AddMethod(flags uint16, name, descriptor string, attrs ...Attr) {
	b.methods = append(b.methods, b.member(flags, name, descriptor, attrs))
}

// AddAttribute appends a class-level attribute.
func (b *Builder) AddAttribute(a Attr) {
	b.attrs = append(b.attrs, a)
}

func (b *Builder) member(flags uint16, name, descriptor string, attrs []Attr) *binio.Writer {
	w := binio.NewWriter()
	w.U16(flags)
	w.U16(b.Utf8(name))
	w.U16(b.Utf8(descriptor))
	b.writeAttrs(w, attrs)
	return w
}

func (b *Builder) writeAttrs(w *binio.Writer, attrs []Attr) {
	w.U16(uint16(len(attrs)))
	for _, a := range attrs {
		w.U16(b.Utf8(a.Name))
		w.U32(uint32(len(a.Payload)))
		w.Raw(a.Payload)
	}
}

// ConstantValue builds a ConstantValue attribute pointing at index.
func ConstantValue(index uint16) Attr {
	w := binio.NewWriter()
	w.U16(index)
	return Attr{Name: "ConstantValue", Payload: w.Bytes()}
}

// Code builds a Code attribute with an empty exception table. Names of the
// nested attributes are interned into b.
func (b *Builder) Code(maxStack, maxLocals uint16, code []byte, nested ...Attr) Attr {
	w := binio.NewWriter()
	w.U16(maxStack)
	w.U16(maxLocals)
	w.U32(uint32(len(code)))
	w.Raw(code)
	w.U16(0)
	b.writeAttrs(w, nested)
	return Attr{Name: "Code", Payload: w.Bytes()}
}

// Bytes serializes the class file.
func (b *Builder) Bytes() []byte {
	w := binio.NewWriter()
	w.U32(0xCAFEBABE)
	w.U16(0)
	w.U16(b.MajorVersion)

	// Attribute names are interned while members are written, so the pool
	// is emitted last into its own buffer and spliced in.
	body := binio.NewWriter()
	body.U16(b.Flags)
	body.U16(b.this)
	body.U16(b.super)
	body.U16(uint16(len(b.interfaces)))
	for _, i := range b.interfaces {
		body.U16(i)
	}
	body.U16(uint16(len(b.fields)))
	for _, f := range b.fields {
		body.Raw(f.Bytes())
	}
	body.U16(uint16(len(b.methods)))
	for _, m := range b.methods {
		body.Raw(m.Bytes())
	}
	b.writeAttrs(body, b.attrs)

	w.U16(b.next)
	w.Raw(b.pool.Bytes())
	w.Raw(body.Bytes())
	return w.Bytes()
}

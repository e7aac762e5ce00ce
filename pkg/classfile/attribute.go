package classfile

import (
	"fmt"

	"github.com/daimatz/classlink/pkg/binio"
	"github.com/daimatz/classlink/pkg/bytecode"
)

// Attribute is one decoded attribute_info. The set of implementations is
// closed; DecodeAttributes selects one by the attribute's Utf8 name.
type Attribute interface {
	Name() string
	isAttribute()
}

type ConstantValue struct {
	Index uint16
}

// ExceptionTableEntry is one row of a Code attribute's exception table.
// CatchType 0 catches everything.
type ExceptionTableEntry struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// Code holds a method body.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	CodeLength     uint32
	Instructions   []bytecode.Instruction
	ExceptionTable []ExceptionTableEntry
	Attributes     []Attribute
}

type Exceptions struct {
	Indices []uint16
}

type InnerClass struct {
	InnerClassInfoIndex   uint16
	OuterClassInfoIndex   uint16
	InnerNameIndex        uint16
	InnerClassAccessFlags AccessFlags
}

type InnerClasses struct {
	Classes []InnerClass
}

type EnclosingMethod struct {
	ClassIndex  uint16
	MethodIndex uint16
}

type Synthetic struct{}

type Deprecated struct{}

type Signature struct {
	Index uint16
}

type SourceFile struct {
	Index uint16
}

type SourceDebugExtension struct {
	Data []byte
}

type LineNumber struct {
	StartPC    uint16
	LineNumber uint16
}

type LineNumberTable struct {
	Entries []LineNumber
}

// LocalVariable is a row of LocalVariableTable or LocalVariableTypeTable.
// For the latter, DescriptorIndex points at a signature.
type LocalVariable struct {
	StartPC         uint16
	Length          uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Index           uint16
}

type LocalVariableTable struct {
	Entries []LocalVariable
}

type LocalVariableTypeTable struct {
	Entries []LocalVariable
}

type RuntimeVisibleAnnotations struct {
	Annotations []Annotation
}

type RuntimeInvisibleAnnotations struct {
	Annotations []Annotation
}

type RuntimeVisibleParameterAnnotations struct {
	Parameters [][]Annotation
}

type RuntimeInvisibleParameterAnnotations struct {
	Parameters [][]Annotation
}

type RuntimeVisibleTypeAnnotations struct {
	Annotations []TypeAnnotation
}

type RuntimeInvisibleTypeAnnotations struct {
	Annotations []TypeAnnotation
}

type AnnotationDefault struct {
	Value ElementValue
}

type BootstrapMethod struct {
	MethodRef uint16
	Arguments []uint16
}

type BootstrapMethods struct {
	Methods []BootstrapMethod
}

type MethodParameter struct {
	NameIndex   uint16
	AccessFlags AccessFlags
}

type MethodParameters struct {
	Parameters []MethodParameter
}

func (*ConstantValue) Name() string                        { return "ConstantValue" }
func (*Code) Name() string                                 { return "Code" }
func (*StackMapTable) Name() string                        { return "StackMapTable" }
func (*Exceptions) Name() string                           { return "Exceptions" }
func (*InnerClasses) Name() string                         { return "InnerClasses" }
func (*EnclosingMethod) Name() string                      { return "EnclosingMethod" }
func (*Synthetic) Name() string                            { return "Synthetic" }
func (*Deprecated) Name() string                           { return "Deprecated" }
func (*Signature) Name() string                            { return "Signature" }
func (*SourceFile) Name() string                           { return "SourceFile" }
func (*SourceDebugExtension) Name() string                 { return "SourceDebugExtension" }
func (*LineNumberTable) Name() string                      { return "LineNumberTable" }
func (*LocalVariableTable) Name() string                   { return "LocalVariableTable" }
func (*LocalVariableTypeTable) Name() string               { return "LocalVariableTypeTable" }
func (*RuntimeVisibleAnnotations) Name() string            { return "RuntimeVisibleAnnotations" }
func (*RuntimeInvisibleAnnotations) Name() string          { return "RuntimeInvisibleAnnotations" }
func (*RuntimeVisibleParameterAnnotations) Name() string   { return "RuntimeVisibleParameterAnnotations" }
func (*RuntimeInvisibleParameterAnnotations) Name() string { return "RuntimeInvisibleParameterAnnotations" }
func (*RuntimeVisibleTypeAnnotations) Name() string        { return "RuntimeVisibleTypeAnnotations" }
func (*RuntimeInvisibleTypeAnnotations) Name() string      { return "RuntimeInvisibleTypeAnnotations" }
func (*AnnotationDefault) Name() string                    { return "AnnotationDefault" }
func (*BootstrapMethods) Name() string                     { return "BootstrapMethods" }
func (*MethodParameters) Name() string                     { return "MethodParameters" }

func (*ConstantValue) isAttribute()                        {}
func (*Code) isAttribute()                                 {}
func (*StackMapTable) isAttribute()                        {}
func (*Exceptions) isAttribute()                           {}
func (*InnerClasses) isAttribute()                         {}
func (*EnclosingMethod) isAttribute()                      {}
func (*Synthetic) isAttribute()                            {}
func (*Deprecated) isAttribute()                           {}
func (*Signature) isAttribute()                            {}
func (*SourceFile) isAttribute()                           {}
func (*SourceDebugExtension) isAttribute()                 {}
func (*LineNumberTable) isAttribute()                      {}
func (*LocalVariableTable) isAttribute()                   {}
func (*LocalVariableTypeTable) isAttribute()               {}
func (*RuntimeVisibleAnnotations) isAttribute()            {}
func (*RuntimeInvisibleAnnotations) isAttribute()          {}
func (*RuntimeVisibleParameterAnnotations) isAttribute()   {}
func (*RuntimeInvisibleParameterAnnotations) isAttribute() {}
func (*RuntimeVisibleTypeAnnotations) isAttribute()        {}
func (*RuntimeInvisibleTypeAnnotations) isAttribute()      {}
func (*AnnotationDefault) isAttribute()                    {}
func (*BootstrapMethods) isAttribute()                     {}
func (*MethodParameters) isAttribute()                     {}

// DecodeAttributes reads count attribute_info records. The declared length
// of each record is read but only SourceDebugExtension uses it; every other
// payload is decoded structurally.
func DecodeAttributes(r *binio.Reader, pool ConstantPool, count uint16) ([]Attribute, error) {
	attrs := make([]Attribute, 0, count)
	for i := 0; i < int(count); i++ {
		nameIndex, err := r.Next16()
		if err != nil {
			return nil, fmt.Errorf("reading attribute name index: %w", err)
		}
		name, err := pool.Utf8(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("attribute %d name: %w", i, err)
		}
		length, err := r.Next32()
		if err != nil {
			return nil, fmt.Errorf("reading %s length: %w", name, err)
		}
		attr, err := decodeAttribute(r, pool, name, length)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func decodeAttribute(r *binio.Reader, pool ConstantPool, name string, length uint32) (Attribute, error) {
	switch name {
	case "ConstantValue":
		idx, err := r.Next16()
		return &ConstantValue{Index: idx}, err
	case "Code":
		return decodeCode(r, pool)
	case "StackMapTable":
		return decodeStackMapTable(r)
	case "Exceptions":
		idx, err := readIndices(r)
		return &Exceptions{Indices: idx}, err
	case "InnerClasses":
		return decodeInnerClasses(r)
	case "EnclosingMethod":
		classIndex, err := r.Next16()
		if err != nil {
			return nil, err
		}
		methodIndex, err := r.Next16()
		return &EnclosingMethod{ClassIndex: classIndex, MethodIndex: methodIndex}, err
	case "Synthetic":
		return &Synthetic{}, nil
	case "Deprecated":
		return &Deprecated{}, nil
	case "Signature":
		idx, err := r.Next16()
		return &Signature{Index: idx}, err
	case "SourceFile":
		idx, err := r.Next16()
		return &SourceFile{Index: idx}, err
	case "SourceDebugExtension":
		data, err := r.NextBytes(int(length))
		return &SourceDebugExtension{Data: data}, err
	case "LineNumberTable":
		return decodeLineNumberTable(r)
	case "LocalVariableTable":
		entries, err := decodeLocalVariables(r)
		return &LocalVariableTable{Entries: entries}, err
	case "LocalVariableTypeTable":
		entries, err := decodeLocalVariables(r)
		return &LocalVariableTypeTable{Entries: entries}, err
	case "RuntimeVisibleAnnotations":
		anns, err := decodeAnnotations(r)
		return &RuntimeVisibleAnnotations{Annotations: anns}, err
	case "RuntimeInvisibleAnnotations":
		anns, err := decodeAnnotations(r)
		return &RuntimeInvisibleAnnotations{Annotations: anns}, err
	case "RuntimeVisibleParameterAnnotations":
		params, err := decodeParameterAnnotations(r)
		return &RuntimeVisibleParameterAnnotations{Parameters: params}, err
	case "RuntimeInvisibleParameterAnnotations":
		params, err := decodeParameterAnnotations(r)
		return &RuntimeInvisibleParameterAnnotations{Parameters: params}, err
	case "RuntimeVisibleTypeAnnotations":
		anns, err := decodeTypeAnnotations(r)
		return &RuntimeVisibleTypeAnnotations{Annotations: anns}, err
	case "RuntimeInvisibleTypeAnnotations":
		anns, err := decodeTypeAnnotations(r)
		return &RuntimeInvisibleTypeAnnotations{Annotations: anns}, err
	case "AnnotationDefault":
		v, err := decodeElementValue(r, 0)
		return &AnnotationDefault{Value: v}, err
	case "BootstrapMethods":
		return decodeBootstrapMethods(r)
	case "MethodParameters":
		return decodeMethodParameters(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
}

func decodeCode(r *binio.Reader, pool ConstantPool) (*Code, error) {
	c := &Code{}
	var err error
	if c.MaxStack, err = r.Next16(); err != nil {
		return nil, fmt.Errorf("reading max_stack: %w", err)
	}
	if c.MaxLocals, err = r.Next16(); err != nil {
		return nil, fmt.Errorf("reading max_locals: %w", err)
	}
	if c.CodeLength, err = r.Next32(); err != nil {
		return nil, fmt.Errorf("reading code_length: %w", err)
	}

	codeStart := r.Dist()
	for uint32(r.Dist()-codeStart) < c.CodeLength {
		pc := r.Dist() - codeStart
		ins, err := bytecode.Decode(r, codeStart)
		if err != nil {
			return nil, fmt.Errorf("at pc %d: %w", pc, err)
		}
		c.Instructions = append(c.Instructions, ins)
	}
	if consumed := uint32(r.Dist() - codeStart); consumed != c.CodeLength {
		return nil, fmt.Errorf("%w: consumed %d, code_length %d", ErrCodeLength, consumed, c.CodeLength)
	}

	n, err := r.Next16()
	if err != nil {
		return nil, fmt.Errorf("reading exception_table_length: %w", err)
	}
	c.ExceptionTable = make([]ExceptionTableEntry, n)
	for i := range c.ExceptionTable {
		e := &c.ExceptionTable[i]
		if e.StartPC, err = r.Next16(); err != nil {
			return nil, fmt.Errorf("reading exception table: %w", err)
		}
		if e.EndPC, err = r.Next16(); err != nil {
			return nil, fmt.Errorf("reading exception table: %w", err)
		}
		if e.HandlerPC, err = r.Next16(); err != nil {
			return nil, fmt.Errorf("reading exception table: %w", err)
		}
		if e.CatchType, err = r.Next16(); err != nil {
			return nil, fmt.Errorf("reading exception table: %w", err)
		}
	}

	attrCount, err := r.Next16()
	if err != nil {
		return nil, fmt.Errorf("reading code attributes_count: %w", err)
	}
	if c.Attributes, err = DecodeAttributes(r, pool, attrCount); err != nil {
		return nil, err
	}
	return c, nil
}

// StackMapTable returns the Code attribute's stack map, if any.
func (c *Code) StackMapTable() (*StackMapTable, bool) {
	for _, a := range c.Attributes {
		if s, ok := a.(*StackMapTable); ok {
			return s, true
		}
	}
	return nil, false
}

func readIndices(r *binio.Reader) ([]uint16, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		if out[i], err = r.Next16(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeInnerClasses(r *binio.Reader) (*InnerClasses, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	classes := make([]InnerClass, n)
	for i := range classes {
		c := &classes[i]
		if c.InnerClassInfoIndex, err = r.Next16(); err != nil {
			return nil, err
		}
		if c.OuterClassInfoIndex, err = r.Next16(); err != nil {
			return nil, err
		}
		if c.InnerNameIndex, err = r.Next16(); err != nil {
			return nil, err
		}
		flags, err := r.Next16()
		if err != nil {
			return nil, err
		}
		c.InnerClassAccessFlags = AccessFlags(flags)
	}
	return &InnerClasses{Classes: classes}, nil
}

func decodeLineNumberTable(r *binio.Reader) (*LineNumberTable, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	entries := make([]LineNumber, n)
	for i := range entries {
		if entries[i].StartPC, err = r.Next16(); err != nil {
			return nil, err
		}
		if entries[i].LineNumber, err = r.Next16(); err != nil {
			return nil, err
		}
	}
	return &LineNumberTable{Entries: entries}, nil
}

func decodeLocalVariables(r *binio.Reader) ([]LocalVariable, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	entries := make([]LocalVariable, n)
	for i := range entries {
		e := &entries[i]
		for _, p := range []*uint16{&e.StartPC, &e.Length, &e.NameIndex, &e.DescriptorIndex, &e.Index} {
			if *p, err = r.Next16(); err != nil {
				return nil, err
			}
		}
	}
	return entries, nil
}

func decodeBootstrapMethods(r *binio.Reader) (*BootstrapMethods, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	methods := make([]BootstrapMethod, n)
	for i := range methods {
		if methods[i].MethodRef, err = r.Next16(); err != nil {
			return nil, err
		}
		if methods[i].Arguments, err = readIndices(r); err != nil {
			return nil, err
		}
	}
	return &BootstrapMethods{Methods: methods}, nil
}

// decodeMethodParameters reads parameters_count as a single byte. It is the
// one u1 count in the attribute set and javac output depends on it; do not
// widen it to u2.
func decodeMethodParameters(r *binio.Reader) (*MethodParameters, error) {
	n, err := r.Next()
	if err != nil {
		return nil, err
	}
	params := make([]MethodParameter, n)
	for i := range params {
		if params[i].NameIndex, err = r.Next16(); err != nil {
			return nil, err
		}
		flags, err := r.Next16()
		if err != nil {
			return nil, err
		}
		params[i].AccessFlags = AccessFlags(flags)
	}
	return &MethodParameters{Parameters: params}, nil
}

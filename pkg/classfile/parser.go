package classfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/daimatz/classlink/pkg/binio"
)

const classMagic = 0xCAFEBABE

// ParseFile opens and parses a .class file from the given path.
func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// ParseBytes parses an in-memory class file.
func ParseBytes(b []byte) (*ClassFile, error) {
	return Parse(bytes.NewReader(b))
}

// Parse reads a .class file from the given reader and returns a ClassFile.
// The reader must end exactly where the class file does.
func Parse(src io.Reader) (*ClassFile, error) {
	r := binio.NewReader(src)
	cf := &ClassFile{}

	// Magic number
	magic, err := r.Next32()
	if err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != classMagic {
		return nil, fmt.Errorf("%w: 0x%X (expected 0xCAFEBABE)", ErrBadMagic, magic)
	}

	// Version
	if cf.MinorVersion, err = r.Next16(); err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	if cf.MajorVersion, err = r.Next16(); err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}

	// Constant pool
	cpCount, err := r.Next16()
	if err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	if cf.ConstantPool, err = DecodeConstantPool(r, cpCount); err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	pool := cf.ConstantPool

	// Access flags, this_class, super_class
	flags, err := r.Next16()
	if err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	cf.AccessFlags = AccessFlags(flags)
	if cf.ThisClass, err = r.Next16(); err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	if cf.SuperClass, err = r.Next16(); err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}

	// Interfaces
	if cf.Interfaces, err = readIndices(r); err != nil {
		return nil, fmt.Errorf("reading interfaces: %w", err)
	}

	// Fields
	fieldsCount, err := r.Next16()
	if err != nil {
		return nil, fmt.Errorf("reading fields count: %w", err)
	}
	cf.Fields = make([]FieldInfo, fieldsCount)
	for i := range cf.Fields {
		m, err := parseMember(r, pool)
		if err != nil {
			return nil, fmt.Errorf("parsing field %d: %w", i, err)
		}
		cf.Fields[i] = FieldInfo(m)
	}

	// Methods
	methodsCount, err := r.Next16()
	if err != nil {
		return nil, fmt.Errorf("reading methods count: %w", err)
	}
	cf.Methods = make([]MethodInfo, methodsCount)
	for i := range cf.Methods {
		m, err := parseMember(r, pool)
		if err != nil {
			return nil, fmt.Errorf("parsing method %d: %w", i, err)
		}
		cf.Methods[i] = MethodInfo(m)
	}

	// Class-level attributes
	attrCount, err := r.Next16()
	if err != nil {
		return nil, fmt.Errorf("reading class attributes count: %w", err)
	}
	if cf.Attributes, err = DecodeAttributes(r, pool, attrCount); err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	if _, err := r.Next(); err == nil {
		return nil, fmt.Errorf("%w at offset %d", ErrTrailingBytes, r.Dist()-1)
	} else if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading past end: %w", err)
	}
	return cf, nil
}

// memberInfo is the shared layout of field_info and method_info.
type memberInfo struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Name            string
	Descriptor      string
	Attributes      []Attribute
}

func parseMember(r *binio.Reader, pool ConstantPool) (memberInfo, error) {
	var m memberInfo
	flags, err := r.Next16()
	if err != nil {
		return m, fmt.Errorf("reading access flags: %w", err)
	}
	m.AccessFlags = AccessFlags(flags)
	if m.NameIndex, err = r.Next16(); err != nil {
		return m, fmt.Errorf("reading name index: %w", err)
	}
	if m.DescriptorIndex, err = r.Next16(); err != nil {
		return m, fmt.Errorf("reading descriptor index: %w", err)
	}
	attrCount, err := r.Next16()
	if err != nil {
		return m, fmt.Errorf("reading attributes count: %w", err)
	}

	if m.Name, err = pool.Utf8(m.NameIndex); err != nil {
		return m, fmt.Errorf("resolving name: %w", err)
	}
	if m.Descriptor, err = pool.Utf8(m.DescriptorIndex); err != nil {
		return m, fmt.Errorf("resolving %s descriptor: %w", m.Name, err)
	}

	if m.Attributes, err = DecodeAttributes(r, pool, attrCount); err != nil {
		return m, fmt.Errorf("%s%s: %w", m.Name, m.Descriptor, err)
	}
	return m, nil
}

// BootstrapMethods returns the class's BootstrapMethods attribute, if any.
func (cf *ClassFile) BootstrapMethods() (*BootstrapMethods, bool) {
	for _, a := range cf.Attributes {
		if b, ok := a.(*BootstrapMethods); ok {
			return b, true
		}
	}
	return nil, false
}

// SourceFile returns the name recorded in the SourceFile attribute, or "".
func (cf *ClassFile) SourceFile() string {
	for _, a := range cf.Attributes {
		if sf, ok := a.(*SourceFile); ok {
			name, err := cf.ConstantPool.Utf8(sf.Index)
			if err == nil {
				return name
			}
		}
	}
	return ""
}

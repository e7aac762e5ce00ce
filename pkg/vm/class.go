package vm

import (
	"fmt"
	"sync"

	"github.com/daimatz/classlink/pkg/classfile"
)

// Class is a linked runtime class. Everything except static field values is
// immutable once the class is published to a Runtime.
//
// File is nil for primitive and array classes. Pool is index-aligned with
// File.ConstantPool and slot 0 is nil. Component is the element class of an
// array class.
type Class struct {
	Name       string
	Flags      classfile.AccessFlags
	File       *classfile.ClassFile
	Pool       []Constant
	Super      *Class
	Interfaces []*Class
	Component  *Class
	Primitive  bool

	InstanceFields []*Field
	Methods        map[string]*Method

	mu      sync.RWMutex
	statics map[string]*Field
}

// Field is a field declaration. For static fields Value is the live cell,
// guarded by the owning class's lock; for instance fields it is the
// template's initial value.
type Field struct {
	Name       string
	Descriptor string
	Flags      classfile.AccessFlags
	Value      Value
}

// Method is a method declaration. CodeIndex is the position of the Code
// attribute in Info.Attributes, or -1.
type Method struct {
	Class      *Class
	Name       string
	Descriptor string
	Flags      classfile.AccessFlags
	CodeIndex  int
	Info       *classfile.MethodInfo
}

// Code returns the method body, or nil for abstract and native methods.
func (m *Method) Code() *classfile.Code {
	if m.CodeIndex < 0 {
		return nil
	}
	return m.Info.Attributes[m.CodeIndex].(*classfile.Code)
}

func methodKey(name, descriptor string) string { return name + descriptor }

// newClass builds the runtime form of cf. The pool is filled in later by
// the resolver.
func newClass(name string, cf *classfile.ClassFile, super *Class, ifaces []*Class) (*Class, error) {
	c := &Class{
		Name:       name,
		Flags:      cf.AccessFlags,
		File:       cf,
		Pool:       make([]Constant, len(cf.ConstantPool)),
		Super:      super,
		Interfaces: ifaces,
		Methods:    make(map[string]*Method, len(cf.Methods)),
		statics:    make(map[string]*Field),
	}

	for i := range cf.Fields {
		fi := &cf.Fields[i]
		f := &Field{Name: fi.Name, Descriptor: fi.Descriptor, Flags: fi.AccessFlags, Value: ZeroValue(fi.Descriptor)}
		if !fi.AccessFlags.IsStatic() {
			c.InstanceFields = append(c.InstanceFields, f)
			continue
		}
		if cv, ok := fi.ConstantValue(); ok {
			v, err := constantValue(cf.ConstantPool, cv.Index, fi.Descriptor)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fi.Name, err)
			}
			f.Value = v
		}
		c.statics[fi.Name] = f
	}

	for i := range cf.Methods {
		mi := &cf.Methods[i]
		_, idx := mi.Code()
		m := &Method{
			Class:      c,
			Name:       mi.Name,
			Descriptor: mi.Descriptor,
			Flags:      mi.AccessFlags,
			CodeIndex:  idx,
			Info:       mi,
		}
		c.Methods[methodKey(m.Name, m.Descriptor)] = m
	}
	return c, nil
}

func constantValue(pool classfile.ConstantPool, index uint16, descriptor string) (Value, error) {
	e, err := pool.Entry(index)
	if err != nil {
		return Value{}, err
	}
	switch e := e.(type) {
	case *classfile.ConstantInteger:
		return IntValue(e.Value), nil
	case *classfile.ConstantLong:
		return LongValue(e.Value), nil
	case *classfile.ConstantFloat:
		return FloatValue(e.Value()), nil
	case *classfile.ConstantDouble:
		return DoubleValue(e.Value()), nil
	case *classfile.ConstantString:
		s, err := pool.StringValue(index)
		if err != nil {
			return Value{}, err
		}
		return RefValue(s), nil
	}
	return Value{}, fmt.Errorf("%w: ConstantValue %d has tag %d for %s", ErrBadConstant, index, e.Tag(), descriptor)
}

func (c *Class) IsInterface() bool { return c.Flags.IsInterface() }
func (c *Class) IsArray() bool     { return c.Component != nil }

// IsSubclassOf reports whether c is other or extends it, directly or not.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Super {
		if k == other {
			return true
		}
	}
	return false
}

// Implements reports whether c or any of its superclasses implements iface,
// directly or through a superinterface.
func (c *Class) Implements(iface *Class) bool {
	for k := c; k != nil; k = k.Super {
		for _, i := range k.Interfaces {
			if i == iface || i.Implements(iface) {
				return true
			}
		}
	}
	return false
}

// FindMethod looks up name+descriptor in c and then its superclasses, and
// finally in its superinterfaces for default methods.
func (c *Class) FindMethod(name, descriptor string) *Method {
	key := methodKey(name, descriptor)
	for k := c; k != nil; k = k.Super {
		if m, ok := k.Methods[key]; ok {
			return m
		}
	}
	for k := c; k != nil; k = k.Super {
		for _, i := range k.Interfaces {
			if m := i.FindMethod(name, descriptor); m != nil {
				return m
			}
		}
	}
	return nil
}

// StaticFields returns the names of c's own static fields.
func (c *Class) StaticFields() []string {
	names := make([]string, 0, len(c.statics))
	for n := range c.statics {
		names = append(names, n)
	}
	return names
}

// GetStatic returns the current value of a static field declared by c.
func (c *Class) GetStatic(name string) (Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.statics[name]
	if !ok {
		return Value{}, fmt.Errorf("%s.%s: %w", c.Name, name, ErrNoSuchField)
	}
	return f.Value, nil
}

// SetStatic stores v into a static field declared by c.
func (c *Class) SetStatic(name string, v Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.statics[name]
	if !ok {
		return fmt.Errorf("%s.%s: %w", c.Name, name, ErrNoSuchField)
	}
	f.Value = v
	return nil
}

func (c *Class) String() string { return c.Name }

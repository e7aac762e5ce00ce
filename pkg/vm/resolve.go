package vm

import (
	"fmt"

	"github.com/daimatz/classlink/pkg/classfile"
)

// Constant is a resolved constant pool entry.
type Constant interface {
	isConstant()
}

// ClassRef points at a loaded class.
type ClassRef struct {
	Class *Class
}

// FieldRef is a field reference bound to its owning class.
type FieldRef struct {
	Class      *Class
	Name       string
	Descriptor string
}

// MethodRef is a method reference bound to its owning class. Key includes
// the descriptor so overloads stay distinct.
type MethodRef struct {
	Class      *Class
	Name       string
	Descriptor string
	Interface  bool
}

func (r *MethodRef) Key() string { return methodKey(r.Name, r.Descriptor) }

// Resolve looks the method up in the owning class hierarchy.
func (r *MethodRef) Resolve() *Method { return r.Class.FindMethod(r.Name, r.Descriptor) }

type StringConst struct{ Value string }
type IntegerConst struct{ Value int32 }
type FloatConst struct{ Value float32 }
type LongConst struct{ Value int64 }
type DoubleConst struct{ Value float64 }
type Utf8Text struct{ Value string }

type NameAndTypeRef struct {
	Name       string
	Descriptor string
}

// Dummy fills the slot after a Long or Double, and stands in for
// MethodHandle, MethodType and InvokeDynamic entries, which are not resolved.
type Dummy struct{}

func (*ClassRef) isConstant()       {}
func (*FieldRef) isConstant()       {}
func (*MethodRef) isConstant()      {}
func (*StringConst) isConstant()    {}
func (*IntegerConst) isConstant()   {}
func (*FloatConst) isConstant()     {}
func (*LongConst) isConstant()      {}
func (*DoubleConst) isConstant()    {}
func (*Utf8Text) isConstant()       {}
func (*NameAndTypeRef) isConstant() {}
func (*Dummy) isConstant()          {}

// resolvePool fills c.Pool from c.File.ConstantPool, loading every class it
// names through the session.
func (s *session) resolvePool(c *Class) error {
	pool := c.File.ConstantPool
	for i := 1; i < len(pool); i++ {
		idx := uint16(i)
		var (
			rc  Constant
			err error
		)
		switch e := pool[i].(type) {
		case *classfile.ConstantUtf8:
			var text string
			text, err = e.Text()
			rc = &Utf8Text{Value: text}
		case *classfile.ConstantInteger:
			rc = &IntegerConst{Value: e.Value}
		case *classfile.ConstantFloat:
			rc = &FloatConst{Value: e.Value()}
		case *classfile.ConstantLong:
			rc = &LongConst{Value: e.Value}
		case *classfile.ConstantDouble:
			rc = &DoubleConst{Value: e.Value()}
		case *classfile.ConstantString:
			var text string
			text, err = pool.StringValue(idx)
			rc = &StringConst{Value: text}
		case *classfile.ConstantClass:
			var name string
			if name, err = pool.ClassName(idx); err == nil {
				var target *Class
				target, err = s.classFor(name, 0)
				rc = &ClassRef{Class: target}
			}
		case *classfile.ConstantFieldref:
			var ref *classfile.MemberRefInfo
			if ref, err = pool.FieldRef(idx); err == nil {
				var owner *Class
				owner, err = s.classFor(ref.ClassName, 0)
				rc = &FieldRef{Class: owner, Name: ref.Name, Descriptor: ref.Descriptor}
			}
		case *classfile.ConstantMethodref, *classfile.ConstantInterfaceMethodref:
			var ref *classfile.MemberRefInfo
			if ref, err = pool.MethodRef(idx); err == nil {
				var owner *Class
				owner, err = s.classFor(ref.ClassName, 0)
				rc = &MethodRef{Class: owner, Name: ref.Name, Descriptor: ref.Descriptor, Interface: ref.Interface}
			}
		case *classfile.ConstantNameAndType:
			var name, desc string
			name, desc, err = pool.NameAndType(idx)
			rc = &NameAndTypeRef{Name: name, Descriptor: desc}
		case *classfile.ConstantLongDoubleDummy,
			*classfile.ConstantMethodHandle,
			*classfile.ConstantMethodType,
			*classfile.ConstantInvokeDynamic:
			rc = &Dummy{}
		default:
			err = fmt.Errorf("%w: unexpected entry %T", ErrBadConstant, e)
		}
		if err != nil {
			return fmt.Errorf("resolving constant %d of %s: %w", i, c.Name, err)
		}
		c.Pool[i] = rc
	}
	return nil
}

// Constant returns the resolved pool entry at index.
func (c *Class) Constant(index uint16) (Constant, error) {
	if index == 0 || int(index) >= len(c.Pool) {
		return nil, fmt.Errorf("%s: %w: index %d", c.Name, ErrBadConstant, index)
	}
	return c.Pool[index], nil
}

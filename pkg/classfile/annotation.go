package classfile

import (
	"fmt"

	"github.com/daimatz/classlink/pkg/binio"
)

// maxElementDepth bounds nested annotation and array element values.
const maxElementDepth = 64

type Annotation struct {
	TypeIndex uint16
	Pairs     []ElementValuePair
}

type ElementValuePair struct {
	NameIndex uint16
	Value     ElementValue
}

// ElementValue is the value of an annotation element. Tag returns the
// element_value tag character.
type ElementValue interface {
	Tag() byte
	isElementValue()
}

// ConstElementValue holds a primitive or String constant; Kind is one of
// B C D F I J S Z s.
type ConstElementValue struct {
	Kind       byte
	ConstIndex uint16
}

type EnumElementValue struct {
	TypeNameIndex  uint16
	ConstNameIndex uint16
}

type ClassElementValue struct {
	ClassInfoIndex uint16
}

type AnnotationElementValue struct {
	Annotation Annotation
}

type ArrayElementValue struct {
	Values []ElementValue
}

func (v *ConstElementValue) Tag() byte    { return v.Kind }
func (*EnumElementValue) Tag() byte       { return 'e' }
func (*ClassElementValue) Tag() byte      { return 'c' }
func (*AnnotationElementValue) Tag() byte { return '@' }
func (*ArrayElementValue) Tag() byte      { return '[' }

func (*ConstElementValue) isElementValue()      {}
func (*EnumElementValue) isElementValue()       {}
func (*ClassElementValue) isElementValue()      {}
func (*AnnotationElementValue) isElementValue() {}
func (*ArrayElementValue) isElementValue()      {}

func decodeAnnotations(r *binio.Reader) ([]Annotation, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, n)
	for i := range out {
		if out[i], err = decodeAnnotation(r, 0); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return out, nil
}

func decodeParameterAnnotations(r *binio.Reader) ([][]Annotation, error) {
	n, err := r.Next()
	if err != nil {
		return nil, err
	}
	out := make([][]Annotation, n)
	for i := range out {
		if out[i], err = decodeAnnotations(r); err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
	}
	return out, nil
}

func decodeAnnotation(r *binio.Reader, depth int) (Annotation, error) {
	typeIndex, err := r.Next16()
	if err != nil {
		return Annotation{}, err
	}
	pairs, err := decodeElementValuePairs(r, depth)
	if err != nil {
		return Annotation{}, err
	}
	return Annotation{TypeIndex: typeIndex, Pairs: pairs}, nil
}

func decodeElementValuePairs(r *binio.Reader, depth int) ([]ElementValuePair, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	pairs := make([]ElementValuePair, n)
	for i := range pairs {
		if pairs[i].NameIndex, err = r.Next16(); err != nil {
			return nil, err
		}
		if pairs[i].Value, err = decodeElementValue(r, depth); err != nil {
			return nil, err
		}
	}
	return pairs, nil
}

func decodeElementValue(r *binio.Reader, depth int) (ElementValue, error) {
	if depth > maxElementDepth {
		return nil, malformed("element values nested too deeply")
	}
	tag, err := r.Next()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		idx, err := r.Next16()
		if err != nil {
			return nil, err
		}
		return &ConstElementValue{Kind: tag, ConstIndex: idx}, nil

	case 'e':
		typeName, err := r.Next16()
		if err != nil {
			return nil, err
		}
		constName, err := r.Next16()
		if err != nil {
			return nil, err
		}
		return &EnumElementValue{TypeNameIndex: typeName, ConstNameIndex: constName}, nil

	case 'c':
		idx, err := r.Next16()
		if err != nil {
			return nil, err
		}
		return &ClassElementValue{ClassInfoIndex: idx}, nil

	case '@':
		a, err := decodeAnnotation(r, depth+1)
		if err != nil {
			return nil, err
		}
		return &AnnotationElementValue{Annotation: a}, nil

	case '[':
		n, err := r.Next16()
		if err != nil {
			return nil, err
		}
		values := make([]ElementValue, n)
		for i := range values {
			if values[i], err = decodeElementValue(r, depth+1); err != nil {
				return nil, err
			}
		}
		return &ArrayElementValue{Values: values}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrBadElementValueTag, tag)
}

// TypeAnnotation is a type_annotation structure.
type TypeAnnotation struct {
	TargetType uint8
	Target     TargetInfo
	Path       []TypePathEntry
	TypeIndex  uint16
	Pairs      []ElementValuePair
}

// Type path kinds
const (
	PathArray        = 0
	PathNested       = 1
	PathWildcard     = 2
	PathTypeArgument = 3
)

type TypePathEntry struct {
	Kind          uint8
	ArgumentIndex uint8
}

// TargetInfo is the target_info union, selected by the target type.
type TargetInfo interface {
	isTargetInfo()
}

// TypeParameterTarget: target types 0x00, 0x01.
type TypeParameterTarget struct {
	Index uint8
}

// SupertypeTarget: 0x10. Index 65535 denotes the superclass.
type SupertypeTarget struct {
	Index uint16
}

// TypeParameterBoundTarget: 0x11, 0x12.
type TypeParameterBoundTarget struct {
	ParameterIndex uint8
	BoundIndex     uint8
}

// EmptyTarget: 0x13-0x15.
type EmptyTarget struct{}

// FormalParameterTarget: 0x16.
type FormalParameterTarget struct {
	Index uint8
}

// ThrowsTarget: 0x17.
type ThrowsTarget struct {
	Index uint16
}

type LocalVarTargetEntry struct {
	StartPC uint16
	Length  uint16
	Index   uint16
}

// LocalVarTarget: 0x40, 0x41.
type LocalVarTarget struct {
	Table []LocalVarTargetEntry
}

// CatchTarget: 0x42.
type CatchTarget struct {
	ExceptionTableIndex uint16
}

// OffsetTarget: 0x43-0x46.
type OffsetTarget struct {
	Offset uint16
}

// TypeArgumentTarget: 0x47-0x4B.
type TypeArgumentTarget struct {
	Offset uint16
	Index  uint8
}

func (*TypeParameterTarget) isTargetInfo()      {}
func (*SupertypeTarget) isTargetInfo()          {}
func (*TypeParameterBoundTarget) isTargetInfo() {}
func (*EmptyTarget) isTargetInfo()              {}
func (*FormalParameterTarget) isTargetInfo()    {}
func (*ThrowsTarget) isTargetInfo()             {}
func (*LocalVarTarget) isTargetInfo()           {}
func (*CatchTarget) isTargetInfo()              {}
func (*OffsetTarget) isTargetInfo()             {}
func (*TypeArgumentTarget) isTargetInfo()       {}

func decodeTypeAnnotations(r *binio.Reader) ([]TypeAnnotation, error) {
	n, err := r.Next16()
	if err != nil {
		return nil, err
	}
	out := make([]TypeAnnotation, n)
	for i := range out {
		if out[i], err = decodeTypeAnnotation(r); err != nil {
			return nil, fmt.Errorf("type annotation %d: %w", i, err)
		}
	}
	return out, nil
}

func decodeTypeAnnotation(r *binio.Reader) (TypeAnnotation, error) {
	var ta TypeAnnotation
	var err error
	if ta.TargetType, err = r.Next(); err != nil {
		return ta, err
	}
	if ta.Target, err = decodeTargetInfo(r, ta.TargetType); err != nil {
		return ta, err
	}
	if ta.Path, err = decodeTypePath(r); err != nil {
		return ta, err
	}
	if ta.TypeIndex, err = r.Next16(); err != nil {
		return ta, err
	}
	if ta.Pairs, err = decodeElementValuePairs(r, 0); err != nil {
		return ta, err
	}
	return ta, nil
}

func decodeTargetInfo(r *binio.Reader, targetType uint8) (TargetInfo, error) {
	switch {
	case targetType == 0x00 || targetType == 0x01:
		idx, err := r.Next()
		return &TypeParameterTarget{Index: idx}, err

	case targetType == 0x10:
		idx, err := r.Next16()
		return &SupertypeTarget{Index: idx}, err

	case targetType == 0x11 || targetType == 0x12:
		param, err := r.Next()
		if err != nil {
			return nil, err
		}
		bound, err := r.Next()
		return &TypeParameterBoundTarget{ParameterIndex: param, BoundIndex: bound}, err

	case targetType >= 0x13 && targetType <= 0x15:
		return &EmptyTarget{}, nil

	case targetType == 0x16:
		idx, err := r.Next()
		return &FormalParameterTarget{Index: idx}, err

	case targetType == 0x17:
		idx, err := r.Next16()
		return &ThrowsTarget{Index: idx}, err

	case targetType == 0x40 || targetType == 0x41:
		n, err := r.Next16()
		if err != nil {
			return nil, err
		}
		table := make([]LocalVarTargetEntry, n)
		for i := range table {
			e := &table[i]
			if e.StartPC, err = r.Next16(); err != nil {
				return nil, err
			}
			if e.Length, err = r.Next16(); err != nil {
				return nil, err
			}
			if e.Index, err = r.Next16(); err != nil {
				return nil, err
			}
		}
		return &LocalVarTarget{Table: table}, nil

	case targetType == 0x42:
		idx, err := r.Next16()
		return &CatchTarget{ExceptionTableIndex: idx}, err

	case targetType >= 0x43 && targetType <= 0x46:
		off, err := r.Next16()
		return &OffsetTarget{Offset: off}, err

	case targetType >= 0x47 && targetType <= 0x4B:
		off, err := r.Next16()
		if err != nil {
			return nil, err
		}
		idx, err := r.Next()
		return &TypeArgumentTarget{Offset: off, Index: idx}, err
	}
	return nil, fmt.Errorf("%w: 0x%02x", ErrBadTargetType, targetType)
}

func decodeTypePath(r *binio.Reader) ([]TypePathEntry, error) {
	n, err := r.Next()
	if err != nil {
		return nil, err
	}
	path := make([]TypePathEntry, n)
	for i := range path {
		if path[i].Kind, err = r.Next(); err != nil {
			return nil, err
		}
		if path[i].Kind > PathTypeArgument {
			return nil, fmt.Errorf("%w: %d", ErrBadTypePathKind, path[i].Kind)
		}
		if path[i].ArgumentIndex, err = r.Next(); err != nil {
			return nil, err
		}
	}
	return path, nil
}

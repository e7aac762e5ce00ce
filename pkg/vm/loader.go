package vm

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/daimatz/classlink/pkg/classfile"
	"github.com/daimatz/classlink/pkg/classpath"
)

// maxLoadDepth bounds superclass/superinterface recursion. A mutual cycle
// (A extends B, B extends A) is reported as ErrLoadDepth once it is reached.
const maxLoadDepth = 256

const objectClass = "java/lang/Object"

// session is one top-level load request. Classes are staged here once their
// supers resolve, so constant pool references back to them (this_class
// included) find the staged object. Nothing becomes visible in the registry
// until the whole session has resolved.
type session struct {
	rt      *Runtime
	staged  map[string]*Class
	order   []*Class
	pending []*Class
}

func newSession(rt *Runtime) *session {
	return &session{rt: rt, staged: make(map[string]*Class)}
}

// run loads name and every class reachable from its constant pool.
func (s *session) run(name string) (*Class, error) {
	c, err := s.classFor(name, 0)
	if err != nil {
		return nil, err
	}
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		if err := s.resolvePool(next); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s *session) classFor(name string, depth int) (*Class, error) {
	if c, ok := s.rt.GetClass(name); ok {
		return c, nil
	}
	if c, ok := s.staged[name]; ok {
		return c, nil
	}
	if depth > s.rt.maxDepth {
		return nil, fmt.Errorf("%s: %w (limit %d)", name, ErrLoadDepth, s.rt.maxDepth)
	}

	var (
		c   *Class
		err error
	)
	switch {
	case isPrimitive(name):
		c = primitiveClass(name)
	case strings.HasPrefix(name, "["):
		c, err = s.arrayClass(name, depth)
	default:
		c, err = s.define(name, depth)
	}
	if err != nil {
		return nil, err
	}
	s.stage(c)
	return c, nil
}

func (s *session) stage(c *Class) {
	s.staged[c.Name] = c
	s.order = append(s.order, c)
	if c.File != nil {
		s.pending = append(s.pending, c)
	}
}

func (s *session) define(name string, depth int) (*Class, error) {
	cf, err := s.rt.readClass(name)
	if err != nil {
		return nil, err
	}
	declared, err := cf.ClassName()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	if declared != name {
		return nil, fmt.Errorf("%w: %s (class file declares %s)", ErrClassNotFound, name, declared)
	}
	superName, err := cf.SuperClassName()
	if err != nil {
		return nil, fmt.Errorf("loading %s: superclass: %w", name, err)
	}
	ifaceNames, err := cf.InterfaceNames()
	if err != nil {
		return nil, fmt.Errorf("loading %s: interfaces: %w", name, err)
	}

	if superName == name {
		return nil, fmt.Errorf("%w: %s is its own superclass", ErrCircularity, name)
	}
	for _, in := range ifaceNames {
		if in == name {
			return nil, fmt.Errorf("%w: %s is its own superinterface", ErrCircularity, name)
		}
	}

	var super *Class
	if superName != "" {
		super, err = s.classFor(superName, depth+1)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		if super.IsInterface() {
			return nil, fmt.Errorf("%w: superclass %s of %s is an interface", ErrIncompatibleClassChange, superName, name)
		}
	}

	ifaces := make([]*Class, len(ifaceNames))
	for i, in := range ifaceNames {
		iface, err := s.classFor(in, depth+1)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", name, err)
		}
		if !iface.IsInterface() {
			return nil, fmt.Errorf("%w: %s implements class %s", ErrIncompatibleClassChange, name, in)
		}
		ifaces[i] = iface
	}

	c, err := newClass(name, cf, super, ifaces)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	return c, nil
}

func (s *session) arrayClass(name string, depth int) (*Class, error) {
	elemName, ok := elementName(name[1:])
	if !ok {
		return nil, fmt.Errorf("%w: bad array descriptor %q", ErrClassNotFound, name)
	}
	elem, err := s.classFor(elemName, depth+1)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	object, err := s.classFor(objectClass, depth+1)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	return &Class{
		Name:      name,
		Flags:     elem.Flags&classfile.AccPublic | classfile.AccFinal | classfile.AccAbstract,
		Super:     object,
		Component: elem,
		Methods:   map[string]*Method{},
	}, nil
}

// elementName maps the descriptor after a leading '[' to the class name
// that holds its elements.
func elementName(desc string) (string, bool) {
	switch {
	case len(desc) == 1 && isPrimitive(desc):
		return desc, true
	case strings.HasPrefix(desc, "["):
		_, ok := elementName(desc[1:])
		return desc, ok
	case strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";") && len(desc) > 2:
		return desc[1 : len(desc)-1], true
	}
	return "", false
}

func isPrimitive(name string) bool {
	return len(name) == 1 && strings.Contains("BCDFIJSZ", name)
}

func primitiveClass(name string) *Class {
	return &Class{
		Name:      name,
		Flags:     classfile.AccPublic | classfile.AccFinal | classfile.AccAbstract,
		Primitive: true,
		Methods:   map[string]*Method{},
	}
}

// readClass locates and parses name on the classpath.
func (rt *Runtime) readClass(name string) (*classfile.ClassFile, error) {
	if rt.closed.Load() {
		return nil, ErrClosed
	}
	rc, err := rt.cp.Open(name)
	if errors.Is(err, classpath.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s: %v", ErrClassNotFound, name, err)
	}
	if errors.Is(err, classpath.ErrClosed) {
		return nil, fmt.Errorf("loading %s: %w", name, ErrClosed)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	defer rc.Close()

	cf, err := classfile.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	rt.parsed.Inc()
	rt.log.Debug("parsed class",
		zap.String("class", name),
		zap.Uint16("major", cf.MajorVersion),
		zap.Int("constants", len(cf.ConstantPool)))
	return cf, nil
}

// load runs sessions for name until one publishes. A session is discarded
// when a concurrent request published one of its classes first.
func (rt *Runtime) load(name string) (*Class, error) {
	for {
		s := newSession(rt)
		c, err := s.run(name)
		if err != nil {
			return nil, err
		}
		if rt.publish(s) {
			return c, nil
		}
		rt.retries.Inc()
		rt.log.Debug("load raced, retrying", zap.String("class", name))
	}
}

// publish registers every staged class in staging order, supers first. It
// fails without registering anything if any name is already taken.
func (rt *Runtime) publish(s *session) bool {
	if len(s.order) == 0 {
		return true
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, c := range s.order {
		if _, ok := rt.classes[c.Name]; ok {
			return false
		}
	}
	for _, c := range s.order {
		rt.classes[c.Name] = c
	}
	rt.log.Debug("published classes", zap.Int("count", len(s.order)), zap.String("first", s.order[0].Name))
	return true
}

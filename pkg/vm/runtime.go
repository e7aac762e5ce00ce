// Package vm links parsed class files into a shared runtime class graph.
package vm

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/daimatz/classlink/pkg/classpath"
)

// Options configures a Runtime. Classpath lists search roots in order
// (directories, jars or jmods); Sources, when set, is used instead.
// EntryClass is loaded by Start when non-empty. MaxLoadDepth overrides the
// superclass recursion bound.
type Options struct {
	Classpath    []string
	Sources      []classpath.Source
	EntryClass   string
	Logger       *zap.Logger
	MaxLoadDepth int
}

// Runtime owns the class registry. Each Runtime is independent; tests create
// and close their own.
type Runtime struct {
	ID uuid.UUID

	log      *zap.Logger
	cp       *classpath.Classpath
	maxDepth int

	mu      sync.RWMutex
	classes map[string]*Class

	parsed  atomic.Int64
	retries atomic.Int64
	closed  atomic.Bool
}

// Stats are counters for a Runtime.
type Stats struct {
	Loaded  int
	Parsed  int64
	Retries int64
}

// Start opens the classpath and loads the entry class, if any.
func Start(opts Options) (*Runtime, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var cp *classpath.Classpath
	if opts.Sources != nil {
		cp = classpath.FromSources(opts.Sources...)
	} else {
		var err error
		if cp, err = classpath.New(opts.Classpath); err != nil {
			return nil, err
		}
	}

	rt := &Runtime{
		ID:       uuid.New(),
		cp:       cp,
		maxDepth: maxLoadDepth,
		classes:  make(map[string]*Class),
	}
	if opts.MaxLoadDepth > 0 {
		rt.maxDepth = opts.MaxLoadDepth
	}
	rt.log = log.With(zap.Stringer("runtime", rt.ID))
	rt.log.Info("runtime started", zap.Stringer("classpath", cp))

	if opts.EntryClass != "" {
		if _, err := rt.GetOrLoadClass(opts.EntryClass); err != nil {
			rt.Close()
			return nil, fmt.Errorf("loading entry class: %w", err)
		}
	}
	return rt, nil
}

// Close releases the classpath. Registered classes stay readable; loads that
// need the classpath fail with ErrClosed.
func (rt *Runtime) Close() error {
	if !rt.closed.CAS(false, true) {
		return nil
	}
	rt.log.Info("runtime closed", zap.Int("classes", rt.Stats().Loaded))
	return rt.cp.Close()
}

// GetClass returns a registered class.
func (rt *Runtime) GetClass(name string) (*Class, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	c, ok := rt.classes[name]
	return c, ok
}

// IsClassLoaded reports whether name is registered.
func (rt *Runtime) IsClassLoaded(name string) bool {
	_, ok := rt.GetClass(name)
	return ok
}

// GetOrLoadClass returns the registered class for name, loading it and
// everything it references first if needed.
func (rt *Runtime) GetOrLoadClass(name string) (*Class, error) {
	if c, ok := rt.GetClass(name); ok {
		return c, nil
	}
	return rt.load(name)
}

// LoadClass loads name, failing with ErrAlreadyLoaded if it is registered.
func (rt *Runtime) LoadClass(name string) (*Class, error) {
	if rt.IsClassLoaded(name) {
		return nil, fmt.Errorf("%s: %w", name, ErrAlreadyLoaded)
	}
	return rt.load(name)
}

// LoadAll loads names concurrently and returns them in order. The first
// failure is returned.
func (rt *Runtime) LoadAll(names ...string) ([]*Class, error) {
	out := make([]*Class, len(names))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			c, err := rt.GetOrLoadClass(name)
			if err != nil {
				return err
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Classes returns every registered class sorted by name.
func (rt *Runtime) Classes() []*Class {
	rt.mu.RLock()
	out := make([]*Class, 0, len(rt.classes))
	for _, c := range rt.classes {
		out = append(out, c)
	}
	rt.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (rt *Runtime) Stats() Stats {
	rt.mu.RLock()
	n := len(rt.classes)
	rt.mu.RUnlock()
	return Stats{Loaded: n, Parsed: rt.parsed.Load(), Retries: rt.retries.Load()}
}

// IsLinkageError reports whether err failed a load after parsing succeeded.
func IsLinkageError(err error) bool {
	return errors.Is(err, ErrLinkage)
}

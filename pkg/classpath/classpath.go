// Package classpath locates class file bytes in directories, jar files and
// JDK jmod files.
package classpath

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"go.uber.org/multierr"
)

// ErrNotFound is returned when no source holds the requested class.
var ErrNotFound = errors.New("class not found on classpath")

// ErrClosed is returned by Open after Close.
var ErrClosed = errors.New("classpath closed")

// ErrBadJmod is returned for a .jmod file without the JM\x01\x00 header.
var ErrBadJmod = errors.New("not a jmod file")

var jmodMagic = []byte{'J', 'M', 1, 0}

// Source yields the bytes of a class file by binary name
// (java/lang/Object, no .class suffix).
type Source interface {
	Open(name string) (io.ReadCloser, error)
	Close() error
	String() string
}

// Dir is a directory root holding pkg/Name.class files.
type Dir struct {
	Root string
}

func (d *Dir) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(name)+".class"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (d *Dir) Close() error   { return nil }
func (d *Dir) String() string { return d.Root }

// Archive is a zip-format class container: a jar, or a jmod once its
// header has been skipped. Entries live under Prefix.
type Archive struct {
	Path   string
	Prefix string

	f     *os.File
	files map[string]*zip.File
}

// OpenJar opens a jar or zip file.
func OpenJar(path string) (*Archive, error) {
	return openArchive(path, 0, "")
}

// OpenJmod opens a JDK jmod file. Classes live under classes/ after a 4-byte
// header.
func OpenJmod(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jmod: opening %s: %w", path, err)
	}
	header := make([]byte, len(jmodMagic))
	_, err = io.ReadFull(f, header)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("jmod: reading header of %s: %w", path, err)
	}
	if string(header) != string(jmodMagic) {
		return nil, fmt.Errorf("jmod: %s: %w", path, ErrBadJmod)
	}
	return openArchive(path, int64(len(jmodMagic)), "classes/")
}

func openArchive(path string, offset int64, prefix string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: stat %s: %w", path, err)
	}

	zr, err := zip.NewReader(io.NewSectionReader(f, offset, stat.Size()-offset), stat.Size()-offset)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: opening zip %s: %w", path, err)
	}

	a := &Archive{Path: path, Prefix: prefix, f: f, files: make(map[string]*zip.File, len(zr.File))}
	for _, file := range zr.File {
		if strings.HasPrefix(file.Name, prefix) && strings.HasSuffix(file.Name, ".class") {
			a.files[file.Name] = file
		}
	}
	return a, nil
}

func (a *Archive) Open(name string) (io.ReadCloser, error) {
	file, ok := a.files[a.Prefix+name+".class"]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s in %s: %w", file.Name, a.Path, err)
	}
	return rc, nil
}

// Len returns the number of class entries.
func (a *Archive) Len() int { return len(a.files) }

// Names lists the binary names of every class in the archive.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.files))
	for n := range a.files {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(n, a.Prefix), ".class"))
	}
	return names
}

func (a *Archive) Close() error   { return a.f.Close() }
func (a *Archive) String() string { return a.Path }

// Classpath is an ordered list of sources; earlier sources win. It is safe
// for concurrent use, and Close waits for lookups already in progress.
type Classpath struct {
	mu      sync.RWMutex
	sources []Source
	closed  bool
}

// New opens each root by kind: *.jmod, *.jar or *.zip, or a directory.
func New(roots []string) (*Classpath, error) {
	cp := &Classpath{}
	for _, root := range roots {
		src, err := openRoot(root)
		if err != nil {
			return nil, multierr.Append(err, cp.Close())
		}
		cp.sources = append(cp.sources, src)
	}
	return cp, nil
}

// FromSources builds a Classpath over already-open sources.
func FromSources(sources ...Source) *Classpath {
	return &Classpath{sources: sources}
}

func openRoot(root string) (Source, error) {
	switch strings.ToLower(filepath.Ext(root)) {
	case ".jmod":
		return OpenJmod(root)
	case ".jar", ".zip":
		return OpenJar(root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("classpath: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("classpath: %s is neither a directory nor an archive", root)
	}
	return &Dir{Root: root}, nil
}

// Open returns the class bytes from the first source that has name.
func (cp *Classpath) Open(name string) (io.ReadCloser, error) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	if cp.closed {
		return nil, fmt.Errorf("%s: %w", name, ErrClosed)
	}
	for _, src := range cp.sources {
		rc, err := src.Open(name)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Sources returns the sources in search order.
func (cp *Classpath) Sources() []Source {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return append([]Source(nil), cp.sources...)
}

// Close closes every source and reports all failures. Later calls do
// nothing.
func (cp *Classpath) Close() error {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if cp.closed {
		return nil
	}
	cp.closed = true
	var err error
	for _, src := range cp.sources {
		err = multierr.Append(err, src.Close())
	}
	return err
}

func (cp *Classpath) String() string {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	parts := make([]string, len(cp.sources))
	for i, src := range cp.sources {
		parts[i] = src.String()
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

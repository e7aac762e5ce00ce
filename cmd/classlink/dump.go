package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"

	"github.com/daimatz/classlink/pkg/bytecode"
	"github.com/daimatz/classlink/pkg/classfile"
)

type classSummary struct {
	Name       string          `toml:"name"`
	Super      string          `toml:"super,omitempty"`
	Version    string          `toml:"version"`
	Flags      string          `toml:"flags"`
	Size       string          `toml:"size"`
	Constants  int             `toml:"constants"`
	Source     string          `toml:"source,omitempty"`
	Interfaces []string        `toml:"interfaces,omitempty"`
	Fields     []memberSummary `toml:"fields,omitempty"`
	Methods    []memberSummary `toml:"methods,omitempty"`
}

type memberSummary struct {
	Name       string   `toml:"name"`
	Descriptor string   `toml:"descriptor"`
	Flags      string   `toml:"flags"`
	Attributes []string `toml:"attributes,omitempty"`
	CodeSize   string   `toml:"code_size,omitempty"`
	MaxStack   uint16   `toml:"max_stack,omitempty"`
	MaxLocals  uint16   `toml:"max_locals,omitempty"`
}

func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	code := fs.Bool("c", false, "disassemble method bodies")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: classlink dump [-c] file.class...")
	}

	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		cf, err := classfile.ParseBytes(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := writeDump(os.Stdout, cf, len(data), *code); err != nil {
			return err
		}
	}
	return nil
}

func writeDump(w io.Writer, cf *classfile.ClassFile, size int, code bool) error {
	s, err := summarize(cf, size)
	if err != nil {
		return err
	}
	out, err := toml.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	if !code {
		return nil
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		c, _ := m.Code()
		if c == nil {
			continue
		}
		fmt.Fprintf(w, "\n# %s%s\n", m.Name, m.Descriptor)
		for _, line := range bytecode.Disassemble(c.Instructions) {
			fmt.Fprintf(w, "#   %s\n", line)
		}
	}
	return nil
}

func summarize(cf *classfile.ClassFile, size int) (*classSummary, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, err
	}
	super, err := cf.SuperClassName()
	if err != nil {
		return nil, err
	}
	ifaces, err := cf.InterfaceNames()
	if err != nil {
		return nil, err
	}

	s := &classSummary{
		Name:       name,
		Super:      super,
		Version:    fmt.Sprintf("%d.%d", cf.MajorVersion, cf.MinorVersion),
		Flags:      fmt.Sprintf("%#04x", uint16(cf.AccessFlags)),
		Size:       humanize.Bytes(uint64(size)),
		Constants:  len(cf.ConstantPool) - 1,
		Source:     cf.SourceFile(),
		Interfaces: ifaces,
	}
	for i := range cf.Fields {
		f := &cf.Fields[i]
		s.Fields = append(s.Fields, memberSummary{
			Name:       f.Name,
			Descriptor: f.Descriptor,
			Flags:      fmt.Sprintf("%#04x", uint16(f.AccessFlags)),
			Attributes: attributeNames(f.Attributes),
		})
	}
	for i := range cf.Methods {
		m := &cf.Methods[i]
		ms := memberSummary{
			Name:       m.Name,
			Descriptor: m.Descriptor,
			Flags:      fmt.Sprintf("%#04x", uint16(m.AccessFlags)),
			Attributes: attributeNames(m.Attributes),
		}
		if c, _ := m.Code(); c != nil {
			ms.CodeSize = humanize.Bytes(uint64(c.CodeLength))
			ms.MaxStack = c.MaxStack
			ms.MaxLocals = c.MaxLocals
		}
		s.Methods = append(s.Methods, ms)
	}
	return s, nil
}

func attributeNames(attrs []classfile.Attribute) []string {
	var names []string
	for _, a := range attrs {
		names = append(names, a.Name())
	}
	return names
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/daimatz/classlink/internal/classgen"
	"github.com/daimatz/classlink/pkg/classfile"
)

func TestWriteDump(t *testing.T) {
	b := classgen.New("app/Main", "java/lang/Object")
	b.AddInterface("java/lang/Runnable")
	b.AddField(0x0002, "count", "I")
	b.AddMethod(0x0001, "run", "()V", b.Code(1, 1, []byte{0x04, 0x57, 0xB1})) // iconst_1; pop; return
	b.AddMethod(0x0401, "stop", "()V")
	data := b.Bytes()

	cf, err := classfile.ParseBytes(data)
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}

	var buf bytes.Buffer
	if err := writeDump(&buf, cf, len(data), true); err != nil {
		t.Fatalf("writeDump: %v", err)
	}
	out := buf.String()

	var got classSummary
	if err := toml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("summary is not valid TOML: %v\n%s", err, out)
	}
	if got.Name != "app/Main" || got.Super != "java/lang/Object" || got.Version != "52.0" {
		t.Errorf("header: got %+v", got)
	}
	if len(got.Interfaces) != 1 || got.Interfaces[0] != "java/lang/Runnable" {
		t.Errorf("Interfaces: got %v", got.Interfaces)
	}
	if len(got.Methods) != 2 || got.Methods[0].CodeSize != "3 B" || got.Methods[0].MaxStack != 1 {
		t.Errorf("Methods: got %+v", got.Methods)
	}
	if got.Methods[1].CodeSize != "" {
		t.Errorf("abstract method has a code size: %+v", got.Methods[1])
	}
	if len(got.Fields) != 1 || got.Fields[0].Name != "count" {
		t.Errorf("Fields: got %+v", got.Fields)
	}

	for _, want := range []string{"# run()V", "iconst_1", "return"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

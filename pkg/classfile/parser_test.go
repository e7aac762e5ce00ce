package classfile_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/daimatz/classlink/internal/classgen"
	"github.com/daimatz/classlink/pkg/bytecode"
	"github.com/daimatz/classlink/pkg/classfile"
)

func u16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func helloClass() []byte {
	b := classgen.New("pkg/Hello", "java/lang/Object")
	b.AddInterface("java/io/Serializable")
	b.AddField(0x0019, "ANSWER", "I", classgen.ConstantValue(b.Int(42)))
	b.AddField(0x0002, "name", "Ljava/lang/String;")

	out := b.Fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnRef := b.Methodref("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	msg := b.StringConst("hello")
	code := []byte{0xB2}
	code = append(code, u16(out)...)
	code = append(code, 0x12, byte(msg)) // ldc
	code = append(code, 0xB6)
	code = append(code, u16(printlnRef)...)
	code = append(code, 0xB1)
	b.AddMethod(0x0009, "main", "([Ljava/lang/String;)V", b.Code(2, 1, code))
	b.AddMethod(0x0401, "run", "()V")

	b.AddAttribute(classgen.Attr{Name: "SourceFile", Payload: u16(b.Utf8("Hello.java"))})
	return b.Bytes()
}

func TestParseClassFile(t *testing.T) {
	cf, err := classfile.ParseBytes(helloClass())
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}

	if cf.MajorVersion != 52 {
		t.Errorf("major version: got %d, want 52", cf.MajorVersion)
	}

	className, err := cf.ClassName()
	if err != nil {
		t.Fatalf("ClassName: %v", err)
	}
	if className != "pkg/Hello" {
		t.Errorf("this_class: got %q, want %q", className, "pkg/Hello")
	}
	super, err := cf.SuperClassName()
	if err != nil || super != "java/lang/Object" {
		t.Errorf("SuperClassName: got %q, %v", super, err)
	}
	ifaces, err := cf.InterfaceNames()
	if err != nil || len(ifaces) != 1 || ifaces[0] != "java/io/Serializable" {
		t.Errorf("InterfaceNames: got %v, %v", ifaces, err)
	}

	// main has a Code attribute whose instructions decode
	mainMethod := cf.FindMethod("main", "([Ljava/lang/String;)V")
	if mainMethod == nil {
		t.Fatal("main method not found")
	}
	if !mainMethod.AccessFlags.IsStatic() || !mainMethod.AccessFlags.IsPublic() {
		t.Errorf("main flags: %#04x", uint16(mainMethod.AccessFlags))
	}
	code, idx := mainMethod.Code()
	if code == nil || idx != 0 {
		t.Fatalf("Code: got %v at %d", code, idx)
	}
	if code.MaxStack != 2 || len(code.Instructions) != 4 {
		t.Errorf("Code: max_stack %d, %d instructions", code.MaxStack, len(code.Instructions))
	}
	if op := code.Instructions[0].Opcode(); op != bytecode.Getstatic {
		t.Errorf("first instruction: got %s, want getstatic", op)
	}

	// abstract method has no Code
	run := cf.FindMethodByName("run")
	if run == nil {
		t.Fatal("run not found")
	}
	if c, idx := run.Code(); c != nil || idx != -1 {
		t.Errorf("run Code: got %v at %d, want nil at -1", c, idx)
	}

	answer := cf.FindField("ANSWER")
	if answer == nil {
		t.Fatal("ANSWER not found")
	}
	cv, ok := answer.ConstantValue()
	if !ok {
		t.Fatal("ANSWER has no ConstantValue")
	}
	if e, err := cf.ConstantPool.Entry(cv.Index); err != nil {
		t.Errorf("ConstantValue entry: %v", err)
	} else if ci, ok := e.(*classfile.ConstantInteger); !ok || ci.Value != 42 {
		t.Errorf("ConstantValue: got %#v", e)
	}

	if sf := cf.SourceFile(); sf != "Hello.java" {
		t.Errorf("SourceFile: got %q", sf)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Hello.class")
	if err := os.WriteFile(path, helloClass(), 0o644); err != nil {
		t.Fatal(err)
	}
	cf, err := classfile.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(cf.Methods) != 2 || len(cf.Fields) != 2 {
		t.Errorf("got %d methods, %d fields", len(cf.Methods), len(cf.Fields))
	}

	if _, err := classfile.ParseFile(filepath.Join(t.TempDir(), "missing.class")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	header := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52}
	good := helloClass()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", []byte{0xCA, 0xFE, 0xBA, 0xBF, 0, 0, 0, 52}, classfile.ErrBadMagic},
		{"zero pool count", append(append([]byte{}, header...), 0, 0), classfile.ErrBadIndex},
		{"reserved tag 2", append(append([]byte{}, header...), 0, 2, 2), classfile.ErrBadConstantTag},
		{"reserved tag 17", append(append([]byte{}, header...), 0, 2, 17, 0, 1, 0, 1), classfile.ErrBadConstantTag},
		{"tag above 18", append(append([]byte{}, header...), 0, 2, 19), classfile.ErrBadConstantTag},
		{"trailing bytes", append(append([]byte{}, good...), 0), classfile.ErrTrailingBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classfile.ParseBytes(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if !errors.Is(err, classfile.ErrMalformed) {
				t.Errorf("error does not match ErrMalformed: %v", err)
			}
		})
	}
}

func TestParseTruncated(t *testing.T) {
	good := helloClass()
	for _, n := range []int{3, 10, len(good) / 2, len(good) - 1} {
		_, err := classfile.ParseBytes(good[:n])
		if err == nil {
			t.Errorf("truncated at %d: expected error", n)
			continue
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			t.Errorf("truncated at %d: got %v, want an EOF error", n, err)
		}
		if errors.Is(err, classfile.ErrMalformed) {
			t.Errorf("truncated at %d: I/O failure reported as malformed: %v", n, err)
		}
	}
}

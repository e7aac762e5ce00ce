package classfile

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/daimatz/classlink/pkg/binio"
)

func decodePool(t *testing.T, entries ...ConstantPoolEntry) (ConstantPool, error) {
	t.Helper()
	w := binio.NewWriter()
	count := 1
	for _, e := range entries {
		if err := e.Encode(w); err != nil {
			t.Fatalf("Encode tag %d: %v", e.Tag(), err)
		}
		count++
		if e.Tag() == TagLong || e.Tag() == TagDouble {
			count++
		}
	}
	return DecodeConstantPool(binio.NewReader(bytes.NewReader(w.Bytes())), uint16(count))
}

func TestConstantPoolIndexing(t *testing.T) {
	pool, err := decodePool(t, NewUtf8("A"), &ConstantClass{NameIndex: 1})
	if err != nil {
		t.Fatalf("DecodeConstantPool: %v", err)
	}
	if len(pool) != 3 || pool[0] != nil {
		t.Fatalf("pool layout: len %d, slot 0 %v", len(pool), pool[0])
	}
	name, err := pool.ClassName(2)
	if err != nil {
		t.Fatalf("ClassName(2): %v", err)
	}
	if name != "A" {
		t.Errorf("ClassName(2): got %q, want %q", name, "A")
	}

	if _, err := pool.ClassName(1); !errors.Is(err, ErrWrongConstantKind) {
		t.Errorf("ClassName(1): got %v, want ErrWrongConstantKind", err)
	}
	for _, idx := range []uint16{0, 3, 100} {
		if _, err := pool.Entry(idx); !errors.Is(err, ErrBadIndex) {
			t.Errorf("Entry(%d): got %v, want ErrBadIndex", idx, err)
		}
	}
}

func TestDoubleWidthSlots(t *testing.T) {
	tests := []struct {
		name  string
		entry ConstantPoolEntry
	}{
		{"long", &ConstantLong{Value: 1 << 40}},
		{"double", &ConstantDouble{Bits: math.Float64bits(2.5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := decodePool(t, tt.entry, NewUtf8("after"))
			if err != nil {
				t.Fatalf("DecodeConstantPool: %v", err)
			}
			// The 8-byte constant is at 1, its shadow at 2, the Utf8 at 3.
			if len(pool) != 4 {
				t.Fatalf("len: got %d, want 4", len(pool))
			}
			if _, ok := pool[2].(*ConstantLongDoubleDummy); !ok {
				t.Errorf("slot 2: got %T, want dummy", pool[2])
			}
			if _, err := pool.Entry(2); !errors.Is(err, ErrBadIndex) {
				t.Errorf("Entry(2): got %v, want ErrBadIndex", err)
			}
			if _, err := pool.Utf8(2); err == nil {
				t.Error("Utf8(2): expected error for dummy slot")
			}
			s, err := pool.Utf8(3)
			if err != nil || s != "after" {
				t.Errorf("Utf8(3): got %q, %v", s, err)
			}
		})
	}

	t.Run("last slot", func(t *testing.T) {
		w := binio.NewWriter()
		if err := (&ConstantLong{Value: 7}).Encode(w); err != nil {
			t.Fatal(err)
		}
		_, err := DecodeConstantPool(binio.NewReader(bytes.NewReader(w.Bytes())), 2)
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("got %v, want ErrMalformed", err)
		}
	})
}

func TestEmptyPoolCount(t *testing.T) {
	_, err := DecodeConstantPool(binio.NewReader(bytes.NewReader(nil)), 0)
	if !errors.Is(err, ErrBadIndex) {
		t.Errorf("got %v, want ErrBadIndex", err)
	}
}

func TestEncodeLimits(t *testing.T) {
	w := binio.NewWriter()
	if err := (&ConstantUtf8{Bytes: make([]byte, MaxUtf8Length)}).Encode(w); err != nil {
		t.Fatalf("Utf8 at the limit: %v", err)
	}
	if w.Len() != 3+MaxUtf8Length {
		t.Errorf("encoded length: got %d, want %d", w.Len(), 3+MaxUtf8Length)
	}

	w.Reset()
	err := (&ConstantUtf8{Bytes: make([]byte, MaxUtf8Length+1)}).Encode(w)
	if !errors.Is(err, ErrUtf8TooLong) {
		t.Errorf("oversized Utf8: got %v, want ErrUtf8TooLong", err)
	}
	if w.Len() != 0 {
		t.Errorf("oversized Utf8 wrote %d bytes", w.Len())
	}

	pool := ConstantPool{nil, NewUtf8("ok"), &ConstantUtf8{Bytes: make([]byte, MaxUtf8Length+1)}}
	if err := pool.Encode(binio.NewWriter()); !errors.Is(err, ErrUtf8TooLong) {
		t.Errorf("pool with oversized Utf8: got %v, want ErrUtf8TooLong", err)
	}

	big := make(ConstantPool, MaxUtf8Length+1)
	for i := 1; i < len(big); i++ {
		big[i] = &ConstantInteger{Value: int32(i)}
	}
	if err := big.Encode(binio.NewWriter()); !errors.Is(err, ErrPoolTooLarge) {
		t.Errorf("oversized pool: got %v, want ErrPoolTooLarge", err)
	}
}

func TestConstantTagRejection(t *testing.T) {
	for _, tag := range []byte{0, 2, 13, 14, 17, 19, 20, 255} {
		_, err := DecodeEntry(binio.NewReader(bytes.NewReader([]byte{tag, 0, 1, 0, 1})))
		if !errors.Is(err, ErrBadConstantTag) {
			t.Errorf("tag %d: got %v, want ErrBadConstantTag", tag, err)
		}
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("tag %d: error does not match ErrMalformed", tag)
		}
	}
}

func TestConstantEntryRoundTrip(t *testing.T) {
	entries := []ConstantPoolEntry{
		NewUtf8("java/lang/Object"),
		&ConstantInteger{Value: -42},
		&ConstantFloat{Bits: math.Float32bits(1.5)},
		&ConstantLong{Value: math.MinInt64},
		&ConstantDouble{Bits: math.Float64bits(-0.25)},
		&ConstantClass{NameIndex: 1},
		&ConstantString{StringIndex: 1},
		&ConstantFieldref{ClassIndex: 2, NameAndTypeIndex: 3},
		&ConstantMethodref{ClassIndex: 4, NameAndTypeIndex: 5},
		&ConstantInterfaceMethodref{ClassIndex: 6, NameAndTypeIndex: 7},
		&ConstantNameAndType{NameIndex: 8, DescriptorIndex: 9},
		&ConstantMethodHandle{ReferenceKind: 6, ReferenceIndex: 10},
		&ConstantMethodType{DescriptorIndex: 11},
		&ConstantInvokeDynamic{BootstrapMethodAttrIndex: 0, NameAndTypeIndex: 12},
	}
	for _, e := range entries {
		w := binio.NewWriter()
		if err := e.Encode(w); err != nil {
			t.Errorf("tag %d: Encode: %v", e.Tag(), err)
			continue
		}
		got, err := DecodeEntry(binio.NewReader(bytes.NewReader(w.Bytes())))
		if err != nil {
			t.Errorf("tag %d: %v", e.Tag(), err)
			continue
		}
		if !reflect.DeepEqual(got, e) {
			t.Errorf("tag %d: got %#v, want %#v", e.Tag(), got, e)
		}
	}
}

func TestMethodHandleKindRejected(t *testing.T) {
	_, err := DecodeEntry(binio.NewReader(bytes.NewReader([]byte{TagMethodHandle, 10, 0, 1})))
	if !errors.Is(err, ErrBadMethodHandleKind) {
		t.Errorf("got %v, want ErrBadMethodHandleKind", err)
	}
}

func TestMemberRefLookups(t *testing.T) {
	// 1 "pkg/Foo", 2 Class, 3 "run", 4 "()V", 5 NameAndType,
	// 6 Methodref, 7 InterfaceMethodref, 8 Fieldref
	pool, err := decodePool(t,
		NewUtf8("pkg/Foo"),
		&ConstantClass{NameIndex: 1},
		NewUtf8("run"),
		NewUtf8("()V"),
		&ConstantNameAndType{NameIndex: 3, DescriptorIndex: 4},
		&ConstantMethodref{ClassIndex: 2, NameAndTypeIndex: 5},
		&ConstantInterfaceMethodref{ClassIndex: 2, NameAndTypeIndex: 5},
		&ConstantFieldref{ClassIndex: 2, NameAndTypeIndex: 5},
	)
	if err != nil {
		t.Fatalf("DecodeConstantPool: %v", err)
	}

	m, err := pool.MethodRef(6)
	if err != nil {
		t.Fatalf("MethodRef(6): %v", err)
	}
	want := &MemberRefInfo{ClassName: "pkg/Foo", Name: "run", Descriptor: "()V"}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("MethodRef(6): got %+v, want %+v", m, want)
	}

	im, err := pool.MethodRef(7)
	if err != nil {
		t.Fatalf("MethodRef(7): %v", err)
	}
	if !im.Interface {
		t.Error("MethodRef(7): Interface not set")
	}

	if _, err := pool.FieldRef(8); err != nil {
		t.Errorf("FieldRef(8): %v", err)
	}
	if _, err := pool.FieldRef(6); !errors.Is(err, ErrWrongConstantKind) {
		t.Errorf("FieldRef(6): got %v, want ErrWrongConstantKind", err)
	}
	if _, err := pool.MethodRef(8); !errors.Is(err, ErrWrongConstantKind) {
		t.Errorf("MethodRef(8): got %v, want ErrWrongConstantKind", err)
	}
}

func TestModifiedUTF8(t *testing.T) {
	valid := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"ascii", []byte("hello"), "hello"},
		{"nul", []byte{'a', 0xC0, 0x80, 'b'}, "a\x00b"},
		{"two byte", []byte{0xC3, 0xA9}, "é"},
		{"three byte", []byte{0xE3, 0x81, 0x82}, "あ"},
		{"surrogate pair", []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, "\U0001F600"},
	}
	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (&ConstantUtf8{Bytes: tt.in}).Text()
			if err != nil {
				t.Fatalf("Text: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if enc := NewUtf8(tt.want).Bytes; !bytes.Equal(enc, tt.in) {
				t.Errorf("NewUtf8: got % x, want % x", enc, tt.in)
			}
		})
	}

	invalid := []struct {
		name string
		in   []byte
	}{
		{"raw nul", []byte{'a', 0x00}},
		{"truncated two byte", []byte{0xC3}},
		{"truncated three byte", []byte{0xE3, 0x81}},
		{"bad continuation", []byte{0xC3, 0x41}},
		{"overlong", []byte{0xC1, 0x81}},
		{"four byte form", []byte{0xF0, 0x9F, 0x98, 0x80}},
		{"lone high surrogate", []byte{0xED, 0xA0, 0xBD}},
		{"lone low surrogate", []byte{0xED, 0xB8, 0x80}},
		{"stray continuation", []byte{0x80}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&ConstantUtf8{Bytes: tt.in}).Text()
			if !errors.Is(err, ErrInvalidUtf8) {
				t.Errorf("got %v, want ErrInvalidUtf8", err)
			}
		})
	}
}

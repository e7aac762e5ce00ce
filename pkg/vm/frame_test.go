package vm

import (
	"errors"
	"testing"

	"github.com/daimatz/classlink/pkg/bytecode"
	"github.com/daimatz/classlink/pkg/classfile"
)

func testMethod(maxLocals, maxStack uint16, code ...bytecode.Instruction) *Method {
	return &Method{
		Class:      &Class{Name: "pkg/T"},
		Name:       "m",
		Descriptor: "()V",
		CodeIndex:  0,
		Info: &classfile.MethodInfo{
			Attributes: []classfile.Attribute{
				&classfile.Code{MaxStack: maxStack, MaxLocals: maxLocals, Instructions: code},
			},
		},
	}
}

func newTestFrame(t *testing.T, maxLocals, maxStack uint16) *Frame {
	t.Helper()
	f, err := NewFrame(testMethod(maxLocals, maxStack))
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

func mustPop(t *testing.T, f *Frame) Value {
	t.Helper()
	v, err := f.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	return v
}

func TestFramePushPop(t *testing.T) {
	t.Run("LIFO order", func(t *testing.T) {
		frame := newTestFrame(t, 0, 4)

		for _, v := range []Value{IntValue(10), LongValue(20), IntValue(30)} {
			if err := frame.Push(v); err != nil {
				t.Fatalf("Push(%v): %v", v, err)
			}
		}
		if frame.SP != 4 {
			t.Errorf("SP: got %d, want 4", frame.SP)
		}

		if v := mustPop(t, frame); v.Int != 30 {
			t.Errorf("first Pop: got %v, want 30", v)
		}
		if v := mustPop(t, frame); v.Type != TypeLong || v.Long != 20 {
			t.Errorf("second Pop: got %v, want 20L", v)
		}
		if v := mustPop(t, frame); v.Int != 10 {
			t.Errorf("third Pop: got %v, want 10", v)
		}
	})

	t.Run("push after pop reuses space", func(t *testing.T) {
		frame := newTestFrame(t, 0, 2)

		frame.Push(IntValue(1))
		frame.Push(IntValue(2))
		mustPop(t, frame)

		frame.Push(IntValue(3))
		if v := mustPop(t, frame); v.Int != 3 {
			t.Errorf("got %v, want 3", v)
		}
		if v := mustPop(t, frame); v.Int != 1 {
			t.Errorf("got %v, want 1", v)
		}
	})

	t.Run("overflow", func(t *testing.T) {
		frame := newTestFrame(t, 0, 2)
		if err := frame.Push(IntValue(1)); err != nil {
			t.Fatal(err)
		}
		if err := frame.Push(DoubleValue(1)); !errors.Is(err, ErrOperandStack) {
			t.Errorf("double into one free slot: got %v, want ErrOperandStack", err)
		}
		if frame.SP != 1 {
			t.Errorf("SP after failed push: got %d, want 1", frame.SP)
		}
	})

	t.Run("underflow", func(t *testing.T) {
		frame := newTestFrame(t, 0, 1)
		if _, err := frame.Pop(); !errors.Is(err, ErrOperandStack) {
			t.Errorf("got %v, want ErrOperandStack", err)
		}
	})
}

func TestFrameLocalVars(t *testing.T) {
	t.Run("sized from Code", func(t *testing.T) {
		frame := newTestFrame(t, 4, 3)
		if len(frame.LocalVars) != 4 || len(frame.OperandStack) != 3 {
			t.Errorf("got %d locals, %d stack slots", len(frame.LocalVars), len(frame.OperandStack))
		}
	})

	t.Run("basic set and get", func(t *testing.T) {
		frame := newTestFrame(t, 4, 10)

		for idx, v := range map[int]Value{0: IntValue(10), 1: DoubleValue(2.5), 3: RefValue("s")} {
			if err := frame.SetLocal(idx, v); err != nil {
				t.Fatalf("SetLocal(%d): %v", idx, err)
			}
		}

		if v, err := frame.GetLocal(0); err != nil || v.Int != 10 {
			t.Errorf("GetLocal(0): got %v, %v", v, err)
		}
		if v, err := frame.GetLocal(1); err != nil || v.Double() != 2.5 {
			t.Errorf("GetLocal(1): got %v, %v", v, err)
		}
		if _, err := frame.GetLocal(2); !errors.Is(err, ErrLocalIndex) {
			t.Errorf("GetLocal(2) inside a double: got %v, want ErrLocalIndex", err)
		}
		if v, err := frame.GetLocal(3); err != nil || v.Ref != "s" {
			t.Errorf("GetLocal(3): got %v, %v", v, err)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		frame := newTestFrame(t, 2, 0)
		if err := frame.SetLocal(1, LongValue(1)); !errors.Is(err, ErrLocalIndex) {
			t.Errorf("long in the last slot: got %v, want ErrLocalIndex", err)
		}
		if err := frame.SetLocal(-1, IntValue(1)); !errors.Is(err, ErrLocalIndex) {
			t.Errorf("SetLocal(-1): got %v, want ErrLocalIndex", err)
		}
		if _, err := frame.GetLocal(2); !errors.Is(err, ErrLocalIndex) {
			t.Errorf("GetLocal(2): got %v, want ErrLocalIndex", err)
		}
	})

	t.Run("overwriting half of a wide local", func(t *testing.T) {
		frame := newTestFrame(t, 4, 0)
		frame.SetLocal(0, LongValue(7))
		frame.SetLocal(2, LongValue(8))

		// slot 1 is the second half of local 0; slot 3 of local 2.
		if err := frame.SetLocal(1, IntValue(1)); err != nil {
			t.Fatal(err)
		}
		if _, err := frame.GetLocal(0); !errors.Is(err, ErrLocalIndex) {
			t.Errorf("GetLocal(0) after clobbering its second slot: got %v", err)
		}
		if err := frame.SetLocal(2, IntValue(2)); err != nil {
			t.Fatal(err)
		}
		if _, err := frame.GetLocal(3); !errors.Is(err, ErrLocalIndex) {
			t.Errorf("GetLocal(3) after narrowing local 2: got %v", err)
		}
		if v, err := frame.GetLocal(1); err != nil || v.Int != 1 {
			t.Errorf("GetLocal(1): got %v, %v", v, err)
		}
	})

	t.Run("local vars independent from stack", func(t *testing.T) {
		frame := newTestFrame(t, 4, 10)

		frame.SetLocal(0, IntValue(10))
		frame.Push(IntValue(99))

		if v, _ := frame.GetLocal(0); v.Int != 10 {
			t.Errorf("GetLocal(0) after push: got %v, want 10", v)
		}
		if v := mustPop(t, frame); v.Int != 99 {
			t.Errorf("Pop after SetLocal: got %v, want 99", v)
		}
	})
}

func TestFrameNext(t *testing.T) {
	m := testMethod(1, 1, bytecode.Simple{Op: bytecode.Iconst0}, bytecode.Simple{Op: bytecode.Ireturn})
	frame, err := NewFrame(m)
	if err != nil {
		t.Fatal(err)
	}
	if insn := frame.Next(); insn.Opcode() != bytecode.Iconst0 {
		t.Errorf("first: got %s", insn.Opcode())
	}
	if insn := frame.Next(); insn.Opcode() != bytecode.Ireturn {
		t.Errorf("second: got %s", insn.Opcode())
	}
	if insn := frame.Next(); insn != nil {
		t.Errorf("past end: got %v", insn)
	}
}

func TestNewFrameWithoutCode(t *testing.T) {
	m := &Method{Class: &Class{Name: "pkg/T"}, Name: "run", Descriptor: "()V", CodeIndex: -1, Info: &classfile.MethodInfo{}}
	if _, err := NewFrame(m); !errors.Is(err, ErrNoCode) {
		t.Errorf("got %v, want ErrNoCode", err)
	}
}

func TestThreadDepth(t *testing.T) {
	var th Thread
	frame := newTestFrame(t, 0, 0)
	for i := 0; i < maxFrameDepth; i++ {
		if err := th.PushFrame(frame); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := th.PushFrame(frame); !errors.Is(err, ErrStackOverflow) {
		t.Errorf("push past limit: got %v, want ErrStackOverflow", err)
	}
	if th.CurrentFrame() != frame || th.Depth() != maxFrameDepth {
		t.Errorf("depth %d", th.Depth())
	}
	for th.PopFrame() != nil {
	}
	if th.Depth() != 0 || th.CurrentFrame() != nil {
		t.Errorf("after draining: depth %d", th.Depth())
	}
}

func TestZeroValue(t *testing.T) {
	tests := []struct {
		desc string
		want ValueType
	}{
		{"I", TypeInt},
		{"Z", TypeInt},
		{"C", TypeInt},
		{"J", TypeLong},
		{"F", TypeFloat},
		{"D", TypeDouble},
		{"Ljava/lang/String;", TypeNull},
		{"[I", TypeNull},
	}
	for _, tt := range tests {
		if got := ZeroValue(tt.desc); got.Type != tt.want {
			t.Errorf("ZeroValue(%q): got %s, want %s", tt.desc, got.Type, tt.want)
		}
	}
}

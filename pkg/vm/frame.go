package vm

import (
	"fmt"

	"github.com/daimatz/classlink/pkg/bytecode"
)

// maxFrameDepth is the maximum number of nested frames on a Thread.
const maxFrameDepth = 1024

// Frame is the activation record of one method: locals and an operand
// stack sized from its Code attribute. PC indexes Code.Instructions.
type Frame struct {
	LocalVars    []Value
	OperandStack []Value
	SP           int
	Code         []bytecode.Instruction
	PC           int
	Method       *Method
}

// NewFrame creates a Frame for m. Abstract and native methods have no frame.
func NewFrame(m *Method) (*Frame, error) {
	code := m.Code()
	if code == nil {
		return nil, fmt.Errorf("%s.%s%s: %w", m.Class.Name, m.Name, m.Descriptor, ErrNoCode)
	}
	return &Frame{
		LocalVars:    make([]Value, code.MaxLocals),
		OperandStack: make([]Value, code.MaxStack),
		Code:         code.Instructions,
		Method:       m,
	}, nil
}

var top = Value{Type: TypeTop}

// Push pushes v. Longs and doubles take two slots, matching max_stack.
func (f *Frame) Push(v Value) error {
	n := 1
	if v.Wide() {
		n = 2
	}
	if f.SP+n > len(f.OperandStack) {
		return fmt.Errorf("%w: push %s at SP=%d, max_stack=%d", ErrOperandStack, v.Type, f.SP, len(f.OperandStack))
	}
	f.OperandStack[f.SP] = v
	if n == 2 {
		f.OperandStack[f.SP+1] = top
	}
	f.SP += n
	return nil
}

// Pop pops the value on top of the stack, both slots of a long or double.
func (f *Frame) Pop() (Value, error) {
	if f.SP == 0 {
		return Value{}, fmt.Errorf("%w: pop from empty stack", ErrOperandStack)
	}
	if f.OperandStack[f.SP-1].Type != TypeTop {
		f.SP--
		return f.OperandStack[f.SP], nil
	}
	if f.SP < 2 || !f.OperandStack[f.SP-2].Wide() {
		return Value{}, fmt.Errorf("%w: dangling second slot at SP=%d", ErrOperandStack, f.SP)
	}
	f.SP -= 2
	return f.OperandStack[f.SP], nil
}

// GetLocal returns local index. Reading the second slot of a long or double
// is an error.
func (f *Frame) GetLocal(index int) (Value, error) {
	if index < 0 || index >= len(f.LocalVars) {
		return Value{}, fmt.Errorf("%w: %d of %d", ErrLocalIndex, index, len(f.LocalVars))
	}
	v := f.LocalVars[index]
	if v.Type == TypeTop {
		return Value{}, fmt.Errorf("%w: %d holds the second half of a wide value", ErrLocalIndex, index)
	}
	return v, nil
}

// SetLocal stores v at index; a long or double also claims index+1.
// Overwriting either half of a wide local invalidates the other half.
func (f *Frame) SetLocal(index int, v Value) error {
	last := index
	if v.Wide() {
		last++
	}
	if index < 0 || last >= len(f.LocalVars) {
		return fmt.Errorf("%w: %s at %d of %d", ErrLocalIndex, v.Type, index, len(f.LocalVars))
	}
	if index > 0 && f.LocalVars[index-1].Wide() {
		f.LocalVars[index-1] = top
	}
	if last+1 < len(f.LocalVars) && f.LocalVars[last].Wide() {
		f.LocalVars[last+1] = top
	}
	f.LocalVars[index] = v
	if last != index {
		f.LocalVars[last] = top
	}
	return nil
}

// Next returns the instruction at PC and advances it, or nil past the end.
func (f *Frame) Next() bytecode.Instruction {
	if f.PC >= len(f.Code) {
		return nil
	}
	insn := f.Code[f.PC]
	f.PC++
	return insn
}

// Thread is a stack of frames.
type Thread struct {
	frames []*Frame
}

// PushFrame pushes f, failing once maxFrameDepth frames are live.
func (t *Thread) PushFrame(f *Frame) error {
	if len(t.frames) >= maxFrameDepth {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, len(t.frames))
	}
	t.frames = append(t.frames, f)
	return nil
}

// PopFrame removes and returns the current frame, or nil if empty.
func (t *Thread) PopFrame() *Frame {
	if len(t.frames) == 0 {
		return nil
	}
	f := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]
	return f
}

// CurrentFrame returns the top frame, or nil if empty.
func (t *Thread) CurrentFrame() *Frame {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

func (t *Thread) Depth() int { return len(t.frames) }

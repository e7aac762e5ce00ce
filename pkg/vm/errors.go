package vm

import (
	"errors"
	"fmt"
)

// ErrLinkage is the root of every error that fails a load request after the
// class bytes were parsed.
var ErrLinkage = errors.New("linkage error")

var (
	ErrClassNotFound           = fmt.Errorf("%w: class not found", ErrLinkage)
	ErrCircularity             = fmt.Errorf("%w: class circularity", ErrLinkage)
	ErrIncompatibleClassChange = fmt.Errorf("%w: incompatible class change", ErrLinkage)
	ErrLoadDepth               = fmt.Errorf("%w: class hierarchy too deep", ErrLinkage)
	ErrAlreadyLoaded           = errors.New("class already loaded")
	ErrClosed                  = errors.New("runtime closed")
	ErrNoSuchField             = errors.New("no such static field")
	ErrNoCode                  = errors.New("method has no Code attribute")
	ErrStackOverflow           = errors.New("frame stack overflow")
	ErrOperandStack            = errors.New("operand stack out of bounds")
	ErrLocalIndex              = errors.New("bad local variable slot")
	ErrBadConstant             = errors.New("bad constant pool reference")
)

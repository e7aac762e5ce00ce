package classfile

import (
	"errors"
	"fmt"
)

// ErrMalformed is the root of every structural decoding failure. I/O errors
// are wrapped separately and do not match it.
var ErrMalformed = errors.New("malformed class file")

func malformed(msg string) error {
	return fmt.Errorf("%w: %s", ErrMalformed, msg)
}

// Structural failures, one per decoding site. Each matches ErrMalformed.
var (
	ErrBadMagic            = malformed("bad magic")
	ErrBadConstantTag      = malformed("bad constant pool tag")
	ErrBadIndex            = malformed("constant pool index out of range")
	ErrWrongConstantKind   = malformed("unexpected constant pool entry kind")
	ErrInvalidUtf8         = malformed("invalid modified UTF-8")
	ErrUnknownAttribute    = malformed("unknown attribute")
	ErrCodeLength          = malformed("code does not end at code_length")
	ErrBadFrameType        = malformed("bad stack map frame type")
	ErrBadVerificationTag  = malformed("bad verification type tag")
	ErrBadElementValueTag  = malformed("bad element value tag")
	ErrBadTargetType       = malformed("bad type annotation target type")
	ErrBadTypePathKind     = malformed("bad type path kind")
	ErrBadMethodHandleKind = malformed("bad method handle reference kind")
	ErrTrailingBytes       = malformed("trailing bytes after class file")
)

// Encoding failures. These describe values that cannot be written, not bad
// input, so they do not match ErrMalformed.
var (
	ErrUtf8TooLong  = errors.New("utf8 constant longer than 65535 bytes")
	ErrPoolTooLarge = errors.New("constant pool has more than 65535 slots")
)

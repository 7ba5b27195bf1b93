package wasm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an Error. None of them are retryable: each means the module is invalid or disallowed.
type ErrorKind byte

const (
	// ErrorKindMalformed is a body or section that cannot be read, such as an unknown opcode or a truncated immediate.
	ErrorKindMalformed ErrorKind = iota + 1
	// ErrorKindType is an operand or result type mismatch, a stack underflow or a stack height mismatch at a control
	// frame boundary.
	ErrorKindType
	// ErrorKindControlStructure is malformed block nesting or a branch to a nesting depth that doesn't exist.
	ErrorKindControlStructure
	// ErrorKindFloatPolicy is a denied floating point instruction or signature.
	ErrorKindFloatPolicy
	// ErrorKindMemoryPolicy is a module declaring more initial memory than allowed.
	ErrorKindMemoryPolicy
)

var (
	ErrMalformed        = errors.New("malformed")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrControlStructure = errors.New("invalid control structure")
	ErrFloatPolicy      = errors.New("floating point denied")
	ErrMemoryPolicy     = errors.New("memory size denied")
)

// String implements fmt.Stringer
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindMalformed:
		return "malformed"
	case ErrorKindType:
		return "type error"
	case ErrorKindControlStructure:
		return "control structure error"
	case ErrorKindFloatPolicy:
		return "float policy"
	case ErrorKindMemoryPolicy:
		return "memory policy"
	}
	return fmt.Sprintf("ErrorKind(%d)", byte(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case ErrorKindMalformed:
		return ErrMalformed
	case ErrorKindType:
		return ErrTypeMismatch
	case ErrorKindControlStructure:
		return ErrControlStructure
	case ErrorKindFloatPolicy:
		return ErrFloatPolicy
	case ErrorKindMemoryPolicy:
		return ErrMemoryPolicy
	}
	return nil
}

// Error describes exactly one violated rule, with enough structure to locate the offending construct.
//
// Ex. "type error: function[3] i32.add at 0x5: cannot pop the operand for i32.add: f64 != i32"
type Error struct {
	Kind ErrorKind

	// FuncIndex is the index in the function index namespace, valid when HasFuncIndex.
	FuncIndex    Index
	HasFuncIndex bool

	// TypeIndex is the index in Module.TypeSection, valid when HasTypeIndex.
	TypeIndex    Index
	HasTypeIndex bool

	// Offset is the position of the offending instruction in the function body.
	Offset uint64
	// Instruction is the mnemonic of the offending instruction, or empty when the error is not about one.
	Instruction string

	Msg string
	// Cause is the underlying error, if any.
	Cause error
}

// Errorf returns an Error of the given kind without any location.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError returns an Error of the given kind whose message is the cause's.
func WrapError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Msg: cause.Error(), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(": ")
	located := false
	if e.HasFuncIndex {
		fmt.Fprintf(&sb, "function[%d]", e.FuncIndex)
		located = true
	} else if e.HasTypeIndex {
		fmt.Fprintf(&sb, "type[%d]", e.TypeIndex)
		located = true
	}
	if e.Instruction != "" {
		if located {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s at %#x", e.Instruction, e.Offset)
		located = true
	}
	if located {
		sb.WriteString(": ")
	}
	sb.WriteString(e.Msg)
	return sb.String()
}

// Is allows errors.Is to match an Error against the sentinel of its Kind, such as ErrTypeMismatch.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// Unwrap returns the Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// InFunction returns the error located in the given function. Policy and compilation errors are raised with body
// offsets, and this adds the function they were found in.
func (e *Error) InFunction(funcIdx Index) *Error {
	e.FuncIndex, e.HasFuncIndex = funcIdx, true
	return e
}

// withContext prefixes the message with the construct the error was found in, such as "global[1]".
func (e *Error) withContext(context string) *Error {
	e.Msg = context + ": " + e.Msg
	return e
}

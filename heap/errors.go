// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package heap

import (
	"fmt"

	"github.com/gogpu/descheap/ir"
)

// ErrorKind categorizes lowering errors.
type ErrorKind uint8

const (
	// ErrInternal indicates a broken internal contract.
	ErrInternal ErrorKind = iota

	// ErrUnmappedOpcode indicates an image intrinsic without a heap counterpart.
	ErrUnmappedOpcode

	// ErrAddressFormat indicates an offset was used where an address was
	// required, or the reverse.
	ErrAddressFormat

	// ErrInvalidShader indicates the IR is malformed.
	ErrInvalidShader

	// ErrInvalidMapping indicates a mapping table the pass cannot use.
	ErrInvalidMapping
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrInternal:
		return "InternalError"
	case ErrUnmappedOpcode:
		return "UnmappedOpcode"
	case ErrAddressFormat:
		return "AddressFormat"
	case ErrInvalidShader:
		return "InvalidShader"
	case ErrInvalidMapping:
		return "InvalidMapping"
	default:
		return "Unknown"
	}
}

// Error represents a descriptor heap lowering error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string

	// Function optionally names the function being lowered.
	Function string

	// Instruction optionally identifies the instruction being lowered.
	Instruction *ir.ValueHandle

	// Err optionally holds the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Function != "" && e.Instruction != nil:
		return fmt.Sprintf("heap %s in %s at %%%d: %s", e.Kind, e.Function, *e.Instruction, e.Message)
	case e.Function != "":
		return fmt.Sprintf("heap %s in %s: %s", e.Kind, e.Function, e.Message)
	default:
		return fmt.Sprintf("heap %s: %s", e.Kind, e.Message)
	}
}

// NewError creates a new lowering error without location information.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// newInstructionError creates an error located at an instruction.
func newInstructionError(kind ErrorKind, fn *ir.Function, h ir.ValueHandle, format string, args ...any) *Error {
	return &Error{
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
		Function:    fn.Name,
		Instruction: &h,
	}
}

// IsInternalError returns true if the error is ErrInternal.
func (e *Error) IsInternalError() bool {
	return e.Kind == ErrInternal
}

// IsUnmappedOpcode returns true if the error is ErrUnmappedOpcode.
func (e *Error) IsUnmappedOpcode() bool {
	return e.Kind == ErrUnmappedOpcode
}

// IsAddressFormat returns true if the error is ErrAddressFormat.
func (e *Error) IsAddressFormat() bool {
	return e.Kind == ErrAddressFormat
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

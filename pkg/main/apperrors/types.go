package apperrors

import (
	"strings"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/pool"
)

// ErrorClass represents the category of an error.
type ErrorClass string

const (
	// ErrClassConfig represents configuration-related errors.
	ErrClassConfig ErrorClass = "CONFIG"
	// ErrClassDatabase represents errors of the local sqlite repository.
	ErrClassDatabase ErrorClass = "DATABASE"
	// ErrClassBackend represents non-2xx answers of the REST backend.
	ErrClassBackend ErrorClass = "BACKEND"
	// ErrClassAuth represents a missing or rejected session token.
	ErrClassAuth ErrorClass = "AUTH"
	// ErrClassNetwork represents transport failures and open circuits.
	ErrClassNetwork ErrorClass = "NETWORK"
	// ErrClassValidation represents input rejected before any dispatch.
	ErrClassValidation ErrorClass = "VALIDATION"
	ErrClassExport     ErrorClass = "EXPORT"
	// ErrClassUnknown represents unknown or unclassified errors.
	ErrClassUnknown ErrorClass = "UNKNOWN"
)

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Class represents the category of the error
	Class ErrorClass
	// Operation describes the operation that failed
	Operation string
	// Message is the human readable text shown to the operator. It is the
	// message extracted from a backend response body when there is one.
	Message string
	// MessageFor names the entity the operation failed on.
	MessageFor string
	// Err is the underlying error
	Err error
	// Context provides additional context about the error
	Context map[string]any
}

var errorBuilder = pool.NewPool(100, 5, func(b *strings.Builder) {
	b.Grow(256)
}, func(b *strings.Builder) bool {
	if b.Cap() > 4096 {
		return true
	}
	b.Reset()
	return false
})

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	bld := errorBuilder.Get()
	defer errorBuilder.Put(bld)

	bld.WriteByte('[')
	bld.WriteString(string(e.Class))
	bld.WriteByte(']')

	if e.Operation != "" {
		bld.WriteByte(' ')
		bld.WriteString(e.Operation)
	}
	if e.Message != "" {
		bld.WriteByte(' ')
		bld.WriteString(e.Message)
	}
	if e.MessageFor != "" {
		bld.WriteString(" for: ")
		bld.WriteString(e.MessageFor)
	}
	if e.Err != nil {
		bld.WriteString(" Error: ")
		bld.WriteString(e.Err.Error())
	}
	return bld.String()
}

// Unwrap returns the wrapped error for errors.Is/As compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

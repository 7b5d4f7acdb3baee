package apperrors

import (
	"errors"
)

// GenericMessage is shown when an error carries no readable message.
const GenericMessage = "Une erreur est survenue. Veuillez réessayer."

// Wrap creates a classified error. It returns nil for a nil err.
func Wrap(class ErrorClass, operation string, err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	return &ClassifiedError{
		Class:     class,
		Operation: operation,
		Err:       err,
		Context:   make(map[string]any),
	}
}

// New creates a new classified error with a message.
func New(class ErrorClass, operation string, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]any),
	}
}

// WrapWithMessage creates a classified error carrying a user facing message.
// A nil err yields a plain New error.
func WrapWithMessage(class ErrorClass, operation, message string, err error) *ClassifiedError {
	if err == nil {
		return New(class, operation, message)
	}

	classified := Wrap(class, operation, err)
	classified.Message = message
	return classified
}

// WithContext adds context to a classified error.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	if e == nil {
		return nil
	}
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value

	return e
}

// For sets the entity the error relates to.
func (e *ClassifiedError) For(messageFor string) *ClassifiedError {
	if e == nil {
		return nil
	}
	e.MessageFor = messageFor
	return e
}

// GetClass extracts the error class from an error.
func GetClass(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}

	return ErrClassUnknown
}

// IsClass reports whether err is classified as class.
func IsClass(err error, class ErrorClass) bool {
	return err != nil && GetClass(err) == class
}

// GetOperation extracts the operation from an error.
func GetOperation(err error) string {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Operation
	}

	return ""
}

// GetContext extracts context from an error.
func GetContext(err error) map[string]any {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Context
	}

	return nil
}

// UserMessage returns the text to show in a toast for err: the first
// classified message found in the chain, or GenericMessage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *ClassifiedError
	for errors.As(err, &ce) {
		if ce.Message != "" {
			return ce.Message
		}
		err = ce.Err
	}
	return GenericMessage
}

// UserMessageOr returns the message carried by err, or fallback when none of
// the wrapped errors has one.
func UserMessageOr(err error, fallback string) string {
	var ce *ClassifiedError
	for errors.As(err, &ce) {
		if ce.Message != "" {
			return ce.Message
		}
		err = ce.Err
	}
	return fallback
}

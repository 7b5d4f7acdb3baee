package apperrors

import "github.com/rs/zerolog"

// LogClassifiedError enhances a log event with the classification metadata
// of err.
func LogClassifiedError(event *zerolog.Event, err error) *zerolog.Event {
	if err == nil {
		return event
	}

	event = event.Err(err).Str("error_class", string(GetClass(err)))
	if operation := GetOperation(err); operation != "" {
		event = event.Str("operation", operation)
	}
	if ctx := GetContext(err); len(ctx) > 0 {
		event = event.Interface("error_context", ctx)
	}
	return event
}

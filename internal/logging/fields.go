package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Common field names for consistent logging across components.
const (
	FieldSessionID = "session_id"
	FieldStatus    = "status"
	FieldReason    = "reason"
	FieldBody      = "body"
	FieldSource    = "source"
	FieldAlertType = "alert_type"
	FieldFrom      = "from"
	FieldTo        = "to"
	FieldCount     = "count"
	FieldTitle     = "title"
	FieldError     = "error"
)

type sessionIDKey struct{}

// NewSessionID returns a time-ordered identifier for a session.
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// WithSessionID stores the session ID in ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFrom returns the session ID stored in ctx, if any.
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Reason returns a slog attribute for the HTTP status text.
func Reason(reason string) slog.Attr {
	return slog.String(FieldReason, reason)
}

// Body returns a slog attribute for a response body.
func Body(body string) slog.Attr {
	return slog.String(FieldBody, body)
}

// Source returns a slog attribute for an investigation source tag.
func Source(source string) slog.Attr {
	return slog.String(FieldSource, source)
}

// AlertType returns a slog attribute for an alert type.
func AlertType(alertType string) slog.Attr {
	return slog.String(FieldAlertType, alertType)
}

// Count returns a slog attribute for a count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Title returns a slog attribute for an investigation title.
func Title(title string) slog.Attr {
	return slog.String(FieldTitle, title)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}

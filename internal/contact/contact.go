// Package contact validates contact-form submissions.
package contact

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

const (
	KindMissingField ErrorKind = "missing_field"
	KindInvalidEmail ErrorKind = "invalid_email"
)

// Client-facing messages for each kind of validation failure.
const (
	MessageMissingField = "All fields are required: name, email, subject, message"
	MessageInvalidEmail = "Please provide a valid email address"
)

// emailPattern accepts local@domain.tld where no part contains whitespace or
// '@'. Whitespace covers the Unicode space separators, not just ASCII.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// Request is the raw body of a contact request. Fields absent from the body
// are empty.
type Request struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Subject string `json:"subject" form:"subject"`
	Message string `json:"message" form:"message"`
}

// Submission is a validated contact request.
type Submission struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ValidationError reports the first rule a request failed.
type ValidationError struct {
	Kind  ErrorKind
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("contact: %s: %s", e.Kind, e.Field)
}

// Message returns the text shown to the client.
func (e *ValidationError) Message() string {
	if e.Kind == KindInvalidEmail {
		return MessageInvalidEmail
	}
	return MessageMissingField
}

// IsKind reports whether err is a ValidationError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}
	return false
}

// Validate checks a raw request. Values are not trimmed or case-folded; a
// field holding only spaces counts as present.
func Validate(req Request) (Submission, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"name", req.Name},
		{"email", req.Email},
		{"subject", req.Subject},
		{"message", req.Message},
	}
	for _, f := range fields {
		if f.value == "" {
			return Submission{}, &ValidationError{Kind: KindMissingField, Field: f.name}
		}
	}

	if !ValidEmail(req.Email) {
		return Submission{}, &ValidationError{Kind: KindInvalidEmail, Field: "email"}
	}

	return Submission{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}, nil
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

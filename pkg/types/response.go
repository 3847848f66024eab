// Package types holds the JSON envelopes the API writes.
package types

import (
	pkgerrors "github.com/angelmondragon/beverage-pos/pkg/errors"
)

// Envelope wraps every successful response. Warnings carry non-fatal
// problems, such as a sale that was created but not completed.
type Envelope struct {
	Data     any       `json:"data"`
	Warnings []Problem `json:"warnings,omitempty"`
}

// Failure wraps an error response.
type Failure struct {
	Error Problem `json:"error"`
}

// Problem is the client-facing view of an error. Retryable tells the till
// that resubmitting the same request may succeed.
type Problem struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// codes whose own message is safe to show a cashier
var publicMessages = map[pkgerrors.Code]bool{
	pkgerrors.CodeValidation:          true,
	pkgerrors.CodeNotFound:            true,
	pkgerrors.CodeConflict:            true,
	pkgerrors.CodeStateConflict:       true,
	pkgerrors.CodeIdempotency:         true,
	pkgerrors.CodeStaleSnapshot:       true,
	pkgerrors.CodeReservationExceeded: true,
	pkgerrors.CodeCommitFailed:        true,
	pkgerrors.CodeCompletionFailed:    true,
}

// NewProblem projects err onto its public form. Untyped errors become
// INTERNAL_ERROR with the generic message.
func NewProblem(err error) Problem {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	p := Problem{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		Retryable: meta.Retryable,
	}
	if m := typed.Message(); m != "" && publicMessages[typed.Code()] {
		p.Message = m
	}
	if meta.DetailsAllowed {
		p.Details = typed.Details()
	}
	return p
}

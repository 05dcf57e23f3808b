// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

// FailureKind classifies a failed sign-in attempt.
type FailureKind string

// Failure kinds.
const (
	KindInvalidInput          FailureKind = "invalid_input"
	KindUserNotFound          FailureKind = "user_not_found"
	KindInvalidCredentials    FailureKind = "invalid_credentials"
	KindSessionCreationFailed FailureKind = "session_creation_failed"
	KindUnexpected            FailureKind = "unexpected"
)

// OutcomeSuccess labels successful attempts in audit events and metrics.
const OutcomeSuccess = "success"

// Severity of a presentation hint.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
)

// PresentationHint is user-facing text a transport may render for a failure.
type PresentationHint struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"type"`
}

// Outcome is the result of Service.SignIn: either *Success or *Failure.
type Outcome interface {
	// Label returns OutcomeSuccess or the failure kind.
	Label() string
	isOutcome()
}

// Success is returned when the credential was accepted and a session issued.
type Success struct {
	Session        *Session
	Cookie         CookieDescriptor
	RedirectTarget string
}

// Label returns OutcomeSuccess.
func (s *Success) Label() string { return OutcomeSuccess }

func (*Success) isOutcome() {}

// Failure is returned for every rejected or failed attempt.
type Failure struct {
	Kind    FailureKind
	Message string
	Hint    *PresentationHint
	cause   error
}

// Label returns the failure kind.
func (f *Failure) Label() string { return string(f.Kind) }

func (*Failure) isOutcome() {}

// Error implements error.
func (f *Failure) Error() string { return f.Message }

// Unwrap returns the underlying fault, if any.
func (f *Failure) Unwrap() error { return f.cause }

// Display returns the text a transport should show: the hint description when
// a hint is present, otherwise the message.
func (f *Failure) Display() string {
	if f.Hint != nil {
		return f.Hint.Description
	}
	return f.Message
}

// Failure messages.
const (
	msgInvalidInput       = "Email and password are required"
	msgUserNotFound       = "User not found"
	msgInvalidCredentials = "Incorrect email or password"
	msgSessionFailed      = "Could not start a session"
	msgUnexpected         = "An unexpected error occurred"
)

func invalidInputFailure(cause error) *Failure {
	return &Failure{
		Kind:    KindInvalidInput,
		Message: msgInvalidInput,
		Hint: &PresentationHint{
			Title:       "Sign In Failed",
			Description: "Please provide both email and password.",
			Severity:    SeverityError,
		},
		cause: cause,
	}
}

func invalidCredentialsFailure() *Failure {
	return &Failure{
		Kind:    KindInvalidCredentials,
		Message: msgInvalidCredentials,
		Hint: &PresentationHint{
			Title:       "Sign In Failed",
			Description: "The provided password is incorrect.",
			Severity:    SeverityError,
		},
	}
}

// userNotFoundFailure presents exactly like invalid credentials when uniform
// is set, so the presenter cannot reveal whether the account exists.
func userNotFoundFailure(uniform bool) *Failure {
	if uniform {
		f := invalidCredentialsFailure()
		f.Kind = KindUserNotFound
		return f
	}
	return &Failure{
		Kind:    KindUserNotFound,
		Message: msgUserNotFound,
	}
}

func sessionCreationFailure(cause error) *Failure {
	return &Failure{
		Kind:    KindSessionCreationFailed,
		Message: msgSessionFailed,
		Hint: &PresentationHint{
			Title:       "Sign In Error",
			Description: "We could not start your session. Please try again.",
			Severity:    SeverityError,
		},
		cause: cause,
	}
}

func unexpectedFailure(cause error) *Failure {
	return &Failure{
		Kind:    KindUnexpected,
		Message: msgUnexpected,
		Hint: &PresentationHint{
			Title:       "Sign In Error",
			Description: "An unexpected error occurred. Please try again.",
			Severity:    SeverityError,
		},
		cause: cause,
	}
}

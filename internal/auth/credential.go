// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/go-playground/validator/v10"
)

// Credential is the email/password pair submitted for a sign-in attempt.
// It is never persisted and must never be logged.
type Credential struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

var credentialValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate returns an error when the email or the password is empty.
func (c Credential) Validate() error {
	//nolint:wrapcheck // validation errors are mapped to InvalidInput by the caller
	return credentialValidator.Struct(c)
}

// String redacts the password so a Credential can never leak it through fmt.
func (c Credential) String() string {
	return "Credential{Email: " + c.Email + "}"
}

// GoString mirrors String for %#v.
func (c Credential) GoString() string {
	return c.String()
}

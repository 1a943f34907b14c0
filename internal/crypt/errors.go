package crypt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoKey indicates the keyring holds no key for a version.
	ErrNoKey = errors.New("no key for version")

	// ErrMalformed indicates ciphertext that is not a valid envelope.
	ErrMalformed = errors.New("malformed ciphertext")

	// ErrAuth indicates ciphertext that failed authentication.
	ErrAuth = errors.New("ciphertext authentication failed")
)

// Op names the codec operation that failed.
type Op string

const (
	OpEncrypt Op = "encrypt"
	OpDecrypt Op = "decrypt"
)

// Error reports a field that could not be encrypted or decrypted. When an
// Error is returned the whole entity-level call has failed.
type Error struct {
	// Op is the failing operation.
	Op Op

	// Entity and Field identify the field.
	Entity string
	Field  string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %s.%s: %v", e.Op, e.Entity, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// IsCryptoError reports whether err wraps an *Error.
func IsCryptoError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

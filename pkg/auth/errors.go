package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoAcceptableMethod = errors.New("no acceptable authentication method")
	ErrInvalidPrivateKey  = errors.New("invalid private key")
)

// NoAcceptableMethodError reports a client configured without any credential
// an endpoint accepts.
type NoAcceptableMethodError struct {
	Available  []string
	Acceptable []string
}

func (e *NoAcceptableMethodError) Error() string {
	return fmt.Sprintf("%s: available [%s], endpoint accepts [%s]",
		ErrNoAcceptableMethod, strings.Join(e.Available, ", "), strings.Join(e.Acceptable, ", "))
}

func (e *NoAcceptableMethodError) Is(target error) bool {
	return target == ErrNoAcceptableMethod
}

// KeyFormatError reports a private key that could not be decoded.
type KeyFormatError struct {
	Format string
	Err    error
}

func (e *KeyFormatError) Error() string {
	return fmt.Sprintf("%s: malformed %s: %v", ErrInvalidPrivateKey, e.Format, e.Err)
}

func (e *KeyFormatError) Unwrap() error { return e.Err }

func (e *KeyFormatError) Is(target error) bool {
	return target == ErrInvalidPrivateKey
}

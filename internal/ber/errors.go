package ber

import "fmt"

// Error is returned by this package's decode/encode helpers.
// It supports errors.Is() to test for a specific kind of error while
// still carrying instance-specific diagnostic info.
type Error struct {
	message  string
	infoKey  string
	infoData string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.infoKey == "" {
		return e.message
	}
	return e.message + ": " + e.infoKey + " = " + e.infoData
}

// Is returns true if other is an *Error with the same message.
func (e *Error) Is(other error) bool {
	oe, ok := other.(*Error)
	return ok && oe.message == e.message
}

// WithInfo returns a new Error carrying the same message plus instance info.
func (e *Error) WithInfo(key string, value any) *Error {
	return &Error{message: e.message, infoKey: key, infoData: fmt.Sprintf("%v", value)}
}

// NewError builds a plain Error with the given message, for use outside this package.
func NewError(message string) *Error {
	return &Error{message: message}
}

var (
	ErrInvalidBoolean      = &Error{message: "invalid boolean data"}
	ErrInvalidLDAPMessage  = &Error{message: "invalid LDAP message"}
	ErrInvalidMessageID    = &Error{message: "invalid message ID"}
	ErrInvalidOID          = &Error{message: "invalid OID"}
	ErrIntegerTooLarge     = &Error{message: "integer too large"}
	ErrWrongElementType    = &Error{message: "wrong element type"}
	ErrWrongSequenceLength = &Error{message: "wrong sequence length"}
)

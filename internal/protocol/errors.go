package protocol

import (
	"errors"
	"fmt"
)

// Code is a wire error code carried in ERROR messages
type Code string

const (
	CodeInvalidMessage   Code = "INVALID_MESSAGE"
	CodeUnknownType      Code = "UNKNOWN_TYPE"
	CodeInvalidNickname  Code = "INVALID_NICKNAME"
	CodeInvalidDirection Code = "INVALID_DIRECTION"
	CodeInvalidSequence  Code = "INVALID_SEQUENCE"
	CodeInvalidChat      Code = "INVALID_CHAT"
	CodeInvalidMap       Code = "INVALID_MAP"
	CodeNoRoom           Code = "NO_ROOM"
	CodeAlreadyJoined    Code = "ALREADY_JOINED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeMessageError     Code = "MESSAGE_ERROR"
)

// Error is a protocol-level failure reported back to the sender only
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a protocol error
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a protocol error from err. Anything else maps to
// MESSAGE_ERROR so the client still gets a reply.
func AsError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Code: CodeMessageError, Message: "failed to process message"}
}

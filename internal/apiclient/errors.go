package apiclient

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	CodeNetwork      = "NETWORK_ERROR"
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeDecode       = "DECODE_ERROR"
)

var (
	ErrTokenExpired    = errors.New("session token expired")
	ErrProductNotFound = errors.New("product not found")
)

// Error is a failed backend call. Code is NETWORK_ERROR for transport
// failures, HTTP_<status> for error replies and TOKEN_EXPIRED for a 401
// received with a token set. ServerCode carries the envelope's own code.
type Error struct {
	Code       string
	ServerCode string
	Message    string
	Status     int
	Err        error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func httpCode(status int) string {
	return "HTTP_" + strconv.Itoa(status)
}

// CodeOf returns the classified code for err, or "" when err is not an *Error.
func CodeOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	return CodeOf(err) == CodeNetwork
}

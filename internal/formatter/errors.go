package formatter

import (
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
)

// RequestError is a failure reported to the client. Message carries the
// full diagnostic of the underlying error, stack trace included.
type RequestError struct {
	Code    int64
	Message string
	Err     error
}

func newRequestError(err error) *RequestError {
	return &RequestError{
		Code:    jsonrpc2.CodeInternalError,
		Message: fmt.Sprintf("%+v", err),
		Err:     err,
	}
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// JSONRPC converts the error for the wire.
func (e *RequestError) JSONRPC() *jsonrpc2.Error {
	return &jsonrpc2.Error{Code: e.Code, Message: e.Message}
}

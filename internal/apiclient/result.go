package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindTransport means no HTTP response was received.
	KindTransport ErrorKind = iota + 1
	// KindClient is a 4xx response other than an authentication failure.
	KindClient
	// KindServer is a 5xx response.
	KindServer
	// KindAuth means the session is no longer valid.
	KindAuth
	// KindValidation means the request was rejected locally before sending.
	KindValidation
	// KindDenied means the session lacks the capability for the call.
	KindDenied
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindDenied:
		return "denied"
	}
	return "unknown"
}

// Error is the failure half of a Result.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Result is the envelope returned by every call. Exactly one of Data and Err
// is non-nil.
type Result struct {
	Data   json.RawMessage
	Err    *Error
	Status int
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// ErrorMessage returns the failure message or "".
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Message
}

var nullJSON = json.RawMessage("null")

func success(status int, body []byte) Result {
	if len(strings.TrimSpace(string(body))) == 0 {
		body = nullJSON
	}
	return Result{Data: json.RawMessage(body), Status: status}
}

func failure(kind ErrorKind, status int, message string, cause error) Result {
	if strings.TrimSpace(message) == "" {
		message = "Request failed"
	}
	return Result{Err: &Error{Kind: kind, Status: status, Message: message, cause: cause}, Status: status}
}

// Fail builds a failed Result outside of the transport, e.g. for local
// validation.
func Fail(kind ErrorKind, err error) Result {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return failure(kind, 0, msg, err)
}

// Decode unmarshals a successful result into T.
func Decode[T any](res *Result) (T, error) {
	var out T
	if res == nil {
		return out, errors.New("apiclient: no result")
	}
	if res.Err != nil {
		return out, res.Err
	}
	if err := json.Unmarshal(res.Data, &out); err != nil {
		return out, fmt.Errorf("apiclient: decode response: %w", err)
	}
	return out, nil
}

// DecodeField unmarshals a named top-level field of a successful result,
// falling back to the whole body when the field is absent. Most endpoints
// reply with {"data": ...}.
func DecodeField[T any](res *Result, field string) (T, error) {
	var out T
	if res == nil {
		return out, errors.New("apiclient: no result")
	}
	if res.Err != nil {
		return out, res.Err
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(res.Data, &envelope); err == nil {
		if raw, ok := envelope[field]; ok {
			if err := json.Unmarshal(raw, &out); err != nil {
				return out, fmt.Errorf("apiclient: decode %s: %w", field, err)
			}
			return out, nil
		}
	}
	return Decode[T](res)
}

package client

import (
	"fmt"
	"net/http"
)

// Outcome is the classification of one platform API call.
type Outcome int

const (
	// OutcomeOK: the service returned data without an application error.
	OutcomeOK Outcome = iota
	// OutcomeAppError: the service answered with JSON describing a failure.
	OutcomeAppError
	// OutcomeTransportError: no decodable response was obtained.
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeAppError:
		return "app_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// AppError is an application-level failure reported by the platform service.
type AppError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: application error (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

// Result is the tagged outcome of a call. Response is set for OutcomeOK and OutcomeAppError,
// AppError only for OutcomeAppError, Cause only for OutcomeTransportError.
type Result struct {
	Outcome  Outcome
	Response *Response
	AppError *AppError
	Cause    error
}

// OK reports whether the call succeeded at both transport and application level.
func (r Result) OK() bool {
	return r.Outcome == OutcomeOK
}

// Value returns the decoded body, or nil when there is none.
func (r Result) Value() any {
	if r.Response == nil {
		return nil
	}
	return r.Response.Value
}

// Err returns nil for OutcomeOK, the *AppError for OutcomeAppError and the cause otherwise.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeOK:
		return nil
	case OutcomeAppError:
		return r.AppError
	default:
		return r.Cause
	}
}

// Classify turns the output of Do into a Result. A JSON object carrying an "error"
// field is an application error whatever the status; so is any status >= 400.
func Classify(endpoint string, resp *Response, err error) Result {
	if err != nil {
		return Result{Outcome: OutcomeTransportError, Cause: err}
	}
	if resp == nil {
		return Result{Outcome: OutcomeTransportError, Cause: fmt.Errorf("%w: %s: no response", ErrTransport, endpoint)}
	}

	obj, _ := resp.Value.(map[string]any)
	if errVal, ok := obj["error"]; ok {
		return appErrorResult(endpoint, resp, errorMessage(errVal))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := http.StatusText(resp.StatusCode)
		if m, ok := obj["message"].(string); ok && m != "" {
			msg = m
		}
		return appErrorResult(endpoint, resp, msg)
	}
	return Result{Outcome: OutcomeOK, Response: resp}
}

func appErrorResult(endpoint string, resp *Response, msg string) Result {
	return Result{
		Outcome:  OutcomeAppError,
		Response: resp,
		AppError: &AppError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg},
	}
}

// errorMessage flattens the "error" field: a plain string, or an object with a message.
func errorMessage(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case map[string]any:
		if m, ok := e["message"].(string); ok {
			return m
		}
	case nil:
		return "null error"
	}
	return fmt.Sprintf("%v", v)
}

// Package message defines the values exchanged between client and server.
//
// A Request travels client → server inside one frame, a Response travels back inside
// another. Neither carries a sequence number: one connection carries exactly one exchange.
package message

import "fmt"

// Request names the contract, the method and the positional arguments of one call.
//
// Parameters must match the target method's declared parameter order and count exactly;
// there is no named-parameter binding.
type Request struct {
	Contract   string `json:"contractIdentifier"` // e.g. "ipc-service/sample.ComputingService"
	Method     string `json:"methodName"`
	Parameters []any  `json:"parameters"`
}

// Response carries the outcome of a Request.
//
//   - Succeeded = true:  Data holds the return value (nil for void methods).
//   - Succeeded = false: Failure holds a human-readable message.
type Response struct {
	Succeeded bool   `json:"succeeded"`
	Data      any    `json:"data,omitempty"`
	Failure   string `json:"failureMessage,omitempty"`
}

// Success builds a successful Response.
func Success(data any) *Response {
	return &Response{Succeeded: true, Data: data}
}

// Failure builds a failed Response with a formatted message. An empty message becomes
// "unspecified failure" so that a failed Response always carries one.
func Failure(format string, args ...any) *Response {
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		msg = "unspecified failure"
	}
	return &Response{Failure: msg}
}

func (r *Request) String() string {
	return fmt.Sprintf("%s.%s/%d", r.Contract, r.Method, len(r.Parameters))
}

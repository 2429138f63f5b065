package client

import (
	"fmt"

	"ipc-service/message"
)

// Recorder collects the calls made on a recording stub. Stub methods call Record with their
// own name and arguments and return zero values.
type Recorder struct {
	calls []recordedCall
}

type recordedCall struct {
	method string
	args   []any
}

func (r *Recorder) Record(method string, args ...any) {
	r.calls = append(r.calls, recordedCall{method: method, args: args})
}

// Capture runs fn against a stub built by stub and turns the single call it makes into a
// request for contract. Any other number of calls, or a panic inside fn, is an ErrUsage.
func Capture[C any](contract string, stub func(*Recorder) C, fn func(C)) (req *message.Request, err error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: no invocation given", ErrUsage)
	}
	if stub == nil {
		return nil, fmt.Errorf("%w: no recording stub for %s", ErrUsage, contract)
	}

	rec := &Recorder{}
	proxy := stub(rec)

	defer func() {
		if r := recover(); r != nil {
			req, err = nil, fmt.Errorf("%w: invocation panicked: %v", ErrUsage, r)
		}
	}()
	fn(proxy)

	switch len(rec.calls) {
	case 1:
	case 0:
		return nil, fmt.Errorf("%w: invocation must call a method of %s", ErrUsage, contract)
	default:
		return nil, fmt.Errorf("%w: invocation must call exactly one method, got %d", ErrUsage, len(rec.calls))
	}

	call := rec.calls[0]
	params := make([]any, len(call.args))
	copy(params, call.args)
	return &message.Request{Contract: contract, Method: call.method, Parameters: params}, nil
}

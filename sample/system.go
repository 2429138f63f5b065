package sample

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"ipc-service/client"
	"ipc-service/middleware"
)

// System implements SystemService.
type System struct {
	voidCalls atomic.Int64
}

func (s *System) ConvertText(text string, style TextStyle) string {
	switch style {
	case Upper:
		return strings.ToUpper(text)
	case Lower:
		return strings.ToLower(text)
	case Reverse:
		r := []rune(text)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r)
	}
	return text
}

func (s *System) NewID() string { return uuid.NewString() }

// Echo returns text, prefixed with the request id when the logging middleware assigned one.
func (s *System) Echo(ctx context.Context, text string) string {
	if id, ok := middleware.RequestID(ctx); ok {
		return id + ": " + text
	}
	return text
}

func (s *System) ReturnVoid() { s.voidCalls.Add(1) }

// VoidCalls reports how often ReturnVoid ran.
func (s *System) VoidCalls() int64 { return s.voidCalls.Load() }

func (s *System) Fail(message string) error { return errors.New(message) }

type systemStub struct{ rec *client.Recorder }

// NewSystemStub returns a recording stub for client invocations.
func NewSystemStub(rec *client.Recorder) SystemService {
	return systemStub{rec: rec}
}

func (s systemStub) ConvertText(text string, style TextStyle) string {
	s.rec.Record("ConvertText", text, style)
	return ""
}

func (s systemStub) NewID() string {
	s.rec.Record("NewID")
	return ""
}

// Echo drops ctx: the context never travels with the request.
func (s systemStub) Echo(_ context.Context, text string) string {
	s.rec.Record("Echo", text)
	return ""
}

func (s systemStub) ReturnVoid() {
	s.rec.Record("ReturnVoid")
}

func (s systemStub) Fail(message string) error {
	s.rec.Record("Fail", message)
	return nil
}

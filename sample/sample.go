// Package sample defines the demonstration contracts served by ipcd and called by ipcctl.
package sample

import (
	"context"

	"ipc-service/codec"
)

// Complex is a complex number passed by value.
type Complex struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

type TextStyle int

const (
	Upper TextStyle = iota
	Lower
	Reverse
)

func init() {
	codec.Register(Complex{})
	codec.Register(TextStyle(0))
}

// ComputingService does arithmetic. It is normally hosted on a named pipe.
type ComputingService interface {
	AddFloat(x, y float32) float32
	AddComplex(x, y Complex) Complex
	GetData(a, b int) int
	Divide(x, y float64) (float64, error)
}

// SystemService is normally hosted on TCP.
type SystemService interface {
	ConvertText(text string, style TextStyle) string
	NewID() string
	Echo(ctx context.Context, text string) string
	ReturnVoid()
	Fail(message string) error
}

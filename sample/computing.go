package sample

import (
	"errors"

	"ipc-service/client"
)

var ErrDivideByZero = errors.New("division by zero")

// Computing implements ComputingService.
type Computing struct{}

func (Computing) AddFloat(x, y float32) float32 { return x + y }

func (Computing) AddComplex(x, y Complex) Complex {
	return Complex{A: x.A + y.A, B: x.B + y.B}
}

func (Computing) GetData(a, b int) int { return a + b }

func (Computing) Divide(x, y float64) (float64, error) {
	if y == 0 {
		return 0, ErrDivideByZero
	}
	return x / y, nil
}

type computingStub struct{ rec *client.Recorder }

// NewComputingStub returns a recording stub for client invocations.
func NewComputingStub(rec *client.Recorder) ComputingService {
	return computingStub{rec: rec}
}

func (s computingStub) AddFloat(x, y float32) float32 {
	s.rec.Record("AddFloat", x, y)
	return 0
}

func (s computingStub) AddComplex(x, y Complex) Complex {
	s.rec.Record("AddComplex", x, y)
	return Complex{}
}

func (s computingStub) GetData(a, b int) int {
	s.rec.Record("GetData", a, b)
	return 0
}

func (s computingStub) Divide(x, y float64) (float64, error) {
	s.rec.Record("Divide", x, y)
	return 0, nil
}

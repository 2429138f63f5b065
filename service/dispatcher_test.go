package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipc-service/message"
)

type calculator interface {
	GetData(a, b int) int
	Divide(a, b float64) (float64, error)
	Fail(msg string) error
	Panic()
	Greet(ctx context.Context, name string) string
	Reset()
	Blank() error
}

type blankError struct{}

func (blankError) Error() string { return "" }

type ctxKey struct{}

type calculatorImpl struct {
	resets int
}

func (c *calculatorImpl) GetData(a, b int) int { return a + b }

func (c *calculatorImpl) Divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func (c *calculatorImpl) Fail(msg string) error { return errors.New(msg) }

func (c *calculatorImpl) Panic() { panic("kaboom") }

func (c *calculatorImpl) Greet(ctx context.Context, name string) string {
	return fmt.Sprintf("%v %s", ctx.Value(ctxKey{}), name)
}

func (c *calculatorImpl) Reset() { c.resets++ }

func (c *calculatorImpl) Blank() error { return blankError{} }

func newTestDispatcher(t *testing.T) (*Dispatcher, *calculatorImpl) {
	t.Helper()
	contract, err := NewContract[calculator]()
	require.NoError(t, err)

	impl := &calculatorImpl{}
	provider := NewProvider()
	Provide[calculator](provider, func() calculator { return impl })

	return NewDispatcher(provider, contract), impl
}

func request(method string, params ...any) *message.Request {
	return &message.Request{Contract: ContractName[calculator](), Method: method, Parameters: params}
}

func TestDispatchReturnsValue(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), request("GetData", 2, 3))
	require.True(t, resp.Succeeded, resp.Failure)
	assert.Equal(t, 5, resp.Data)
}

func TestDispatchCoercesArguments(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), request("GetData", json.Number("2"), float64(3)))
	require.True(t, resp.Succeeded, resp.Failure)
	assert.Equal(t, 5, resp.Data)

	resp = d.Dispatch(context.Background(), request("GetData", 2.5, 3))
	require.False(t, resp.Succeeded)
	assert.Contains(t, resp.Failure, "parameter 0")
}

func TestDispatchApplicationError(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), request("Fail", "boom"))
	require.False(t, resp.Succeeded)
	assert.Equal(t, "boom", resp.Failure)
	assert.Nil(t, resp.Data)

	resp = d.Dispatch(context.Background(), request("Divide", 1.0, 0.0))
	require.False(t, resp.Succeeded)
	assert.Equal(t, "division by zero", resp.Failure)

	resp = d.Dispatch(context.Background(), request("Divide", 1.0, 4.0))
	require.True(t, resp.Succeeded)
	assert.Equal(t, 0.25, resp.Data)
}

func TestDispatchBlankErrorKeepsFailureMessage(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), request("Blank"))
	require.False(t, resp.Succeeded)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "service.blankError", resp.Failure)
}

func TestDispatchRecoversPanic(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), request("Panic"))
	require.False(t, resp.Succeeded)
	assert.Contains(t, resp.Failure, "kaboom")

	// the dispatcher keeps serving after a panic
	resp = d.Dispatch(context.Background(), request("GetData", 1, 1))
	require.True(t, resp.Succeeded)
	assert.Equal(t, 2, resp.Data)
}

func TestDispatchVoid(t *testing.T) {
	d, impl := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), request("Reset"))
	require.True(t, resp.Succeeded, resp.Failure)
	assert.Nil(t, resp.Data)
	assert.Equal(t, 1, impl.resets)
}

func TestDispatchInjectsContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	ctx := context.WithValue(context.Background(), ctxKey{}, "hello")
	resp := d.Dispatch(ctx, request("Greet", "world"))
	require.True(t, resp.Succeeded, resp.Failure)
	assert.Equal(t, "hello world", resp.Data)
}

func TestDispatchUnknownContract(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), &message.Request{Contract: "missing.Contract", Method: "GetData"})
	require.False(t, resp.Succeeded)
	assert.Contains(t, resp.Failure, "missing.Contract")
}

func TestDispatchUnknownMethod(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Dispatch(context.Background(), request("Multiply", 2, 3))
	require.False(t, resp.Succeeded)
	assert.Contains(t, resp.Failure, "Multiply")

	resp = d.Dispatch(context.Background(), request("GetData", 2))
	require.False(t, resp.Succeeded)
	assert.Contains(t, resp.Failure, "GetData")
	assert.Contains(t, resp.Failure, "1 parameter(s)")
}

func TestDispatchResolverFailure(t *testing.T) {
	contract, err := NewContract[calculator]()
	require.NoError(t, err)

	d := NewDispatcher(NewProvider(), contract)
	resp := d.Dispatch(context.Background(), request("GetData", 2, 3))
	require.False(t, resp.Succeeded)
	assert.Contains(t, resp.Failure, ContractName[calculator]())

	d = NewDispatcher(ResolverFunc(func(ctx context.Context, name string) (any, error) {
		return "not a calculator", nil
	}), contract)
	resp = d.Dispatch(context.Background(), request("GetData", 2, 3))
	require.False(t, resp.Succeeded)
	assert.Contains(t, resp.Failure, "does not implement")
}

func TestNewContractRejectsNonInterface(t *testing.T) {
	_, err := NewContract[calculatorImpl]()
	assert.ErrorIs(t, err, ErrInvalidContract)
}

type variadicContract interface {
	Sum(values ...int) int
}

func TestNewContractRejectsVariadic(t *testing.T) {
	_, err := NewContract[variadicContract]()
	assert.ErrorIs(t, err, ErrInvalidContract)
}

func TestNamedContractExplicitHandlers(t *testing.T) {
	c := NewNamedContract("explicit.Echo")
	echo := func(ctx context.Context, impl any, args []any) (any, error) {
		return args[0], nil
	}
	require.NoError(t, c.Handle("Echo", 1, echo))
	require.NoError(t, c.Handle("Echo", 2, func(ctx context.Context, impl any, args []any) (any, error) {
		return fmt.Sprintf("%v %v", args[0], args[1]), nil
	}))
	assert.ErrorIs(t, c.Handle("Echo", 1, echo), ErrDuplicateMethod)

	provider := NewProvider()
	provider.ProvideNamed("explicit.Echo", func(context.Context) (any, error) { return struct{}{}, nil })
	d := NewDispatcher(provider, c)

	resp := d.Dispatch(context.Background(), &message.Request{Contract: "explicit.Echo", Method: "Echo", Parameters: []any{"hi"}})
	require.True(t, resp.Succeeded, resp.Failure)
	assert.Equal(t, "hi", resp.Data)

	resp = d.Dispatch(context.Background(), &message.Request{Contract: "explicit.Echo", Method: "Echo", Parameters: []any{"a", "b"}})
	require.True(t, resp.Succeeded, resp.Failure)
	assert.Equal(t, "a b", resp.Data)
}

func TestContractWithName(t *testing.T) {
	c, err := NewContract[calculator](WithName("ICalculator"))
	require.NoError(t, err)
	assert.Equal(t, "ICalculator", c.Name())
	assert.Equal(t, "ipc-service/service.calculator", ContractName[calculator]())
}

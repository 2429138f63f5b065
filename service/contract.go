package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"ipc-service/convert"
)

var (
	ErrDuplicateMethod = errors.New("service: duplicate method")
	ErrInvalidContract = errors.New("service: invalid contract")
)

// Handler invokes one contract method on impl with positional arguments.
// The returned value is nil for void methods.
type Handler func(ctx context.Context, impl any, args []any) (any, error)

type methodKey struct {
	name  string
	arity int
}

// Contract is the registry of remotely callable methods of one contract, keyed by
// (method name, arity). It is built once at startup and read-only afterwards.
type Contract struct {
	name      string
	typ       reflect.Type // nil for contracts built only from explicit handlers
	methods   map[methodKey]Handler
	arities   map[string][]int
	converter convert.Converter
}

type ContractOption func(*Contract)

// WithName overrides the contract identifier derived from the Go type.
func WithName(name string) ContractOption {
	return func(c *Contract) { c.name = name }
}

// WithConverter sets the converter used to coerce arguments to parameter types.
func WithConverter(conv convert.Converter) ContractOption {
	return func(c *Contract) { c.converter = conv }
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// ContractName returns the default contract identifier of C: its package path and type name.
func ContractName[C any]() string {
	t := reflect.TypeOf((*C)(nil)).Elem()
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// NewContract builds the registry of interface type C by scanning its method set.
//
// Legal method shapes:
//   - optional leading context.Context parameter, injected by the dispatcher and not
//     counted in the arity
//   - any number of further, non-variadic parameters
//   - results: none, (T), (error) or (T, error)
func NewContract[C any](opts ...ContractOption) (*Contract, error) {
	typ := reflect.TypeOf((*C)(nil)).Elem()
	if typ.Kind() != reflect.Interface {
		return nil, fmt.Errorf("%w: %s must be an interface type, got %s", ErrInvalidContract, typ, typ.Kind())
	}

	c := newContract(ContractName[C](), opts...)
	c.typ = typ

	for i := 0; i < typ.NumMethod(); i++ {
		m := typ.Method(i)
		h, arity, err := c.bindMethod(m)
		if err != nil {
			return nil, err
		}
		if err := c.Handle(m.Name, arity, h); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewNamedContract creates an empty contract whose methods are registered with Handle.
func NewNamedContract(name string, opts ...ContractOption) *Contract {
	return newContract(name, opts...)
}

func newContract(name string, opts ...ContractOption) *Contract {
	c := &Contract{
		name:      name,
		methods:   make(map[methodKey]Handler),
		arities:   make(map[string][]int),
		converter: convert.Default,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Contract) Name() string {
	return c.name
}

// Handle registers h as method name with the given arity. Registering the same
// (name, arity) twice is an error, so overloads can never be ambiguous at dispatch time.
func (c *Contract) Handle(name string, arity int, h Handler) error {
	key := methodKey{name: name, arity: arity}
	if _, ok := c.methods[key]; ok {
		return fmt.Errorf("%w: %s/%d in contract %q", ErrDuplicateMethod, name, arity, c.name)
	}
	c.methods[key] = h
	c.arities[name] = append(c.arities[name], arity)
	sort.Ints(c.arities[name])
	return nil
}

// Lookup finds the handler for method name taking arity parameters.
func (c *Contract) Lookup(name string, arity int) (Handler, error) {
	if h, ok := c.methods[methodKey{name: name, arity: arity}]; ok {
		return h, nil
	}
	if known, ok := c.arities[name]; ok {
		return nil, fmt.Errorf("method %q with %d parameter(s) not found in contract %q (known arities: %v)", name, arity, c.name, known)
	}
	return nil, fmt.Errorf("method %q not found in contract %q", name, c.name)
}

// Accepts reports whether impl can serve this contract.
func (c *Contract) Accepts(impl any) bool {
	if impl == nil {
		return false
	}
	if c.typ == nil {
		return true
	}
	return reflect.TypeOf(impl).Implements(c.typ)
}

// bindMethod validates an interface method and returns a reflective handler for it.
func (c *Contract) bindMethod(m reflect.Method) (Handler, int, error) {
	mt := m.Type
	if mt.IsVariadic() {
		return nil, 0, fmt.Errorf("%w: %s.%s is variadic", ErrInvalidContract, c.name, m.Name)
	}

	withCtx := mt.NumIn() > 0 && mt.In(0) == contextType
	first := 0
	if withCtx {
		first = 1
	}
	arity := mt.NumIn() - first

	hasErr := mt.NumOut() > 0 && mt.Out(mt.NumOut()-1) == errorType
	values := mt.NumOut()
	if hasErr {
		values--
	}
	if values > 1 {
		return nil, 0, fmt.Errorf("%w: %s.%s returns %d values", ErrInvalidContract, c.name, m.Name, mt.NumOut())
	}

	h := func(ctx context.Context, impl any, args []any) (any, error) {
		fn := reflect.ValueOf(impl).MethodByName(m.Name)
		if !fn.IsValid() {
			return nil, fmt.Errorf("implementation %T has no method %q", impl, m.Name)
		}

		in := make([]reflect.Value, 0, mt.NumIn())
		if withCtx {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		for i, arg := range args {
			pt := mt.In(first + i)
			v, ok := c.converter.TryConvert(arg, pt)
			if !ok {
				return nil, fmt.Errorf("parameter %d of method %q: cannot convert %T to %s", i, m.Name, arg, pt)
			}
			if v == nil {
				in = append(in, reflect.Zero(pt))
			} else {
				in = append(in, reflect.ValueOf(v))
			}
		}

		out := fn.Call(in)
		if hasErr {
			if errv := out[len(out)-1]; !errv.IsNil() {
				return nil, errv.Interface().(error)
			}
		}
		if values == 1 {
			return out[0].Interface(), nil
		}
		return nil, nil
	}
	return h, arity, nil
}

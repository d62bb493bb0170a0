package di_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/sghaida/autodi/di"
	"github.com/sghaida/autodi/probe"
)

//
// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

type Clock struct{ ticks int }

type Greeter interface{ Greet() string }

type EnglishGreeter struct{ Clock *Clock }

func (*EnglishGreeter) Greet() string { return "hello" }

type FrenchGreeter struct{ accent int }

func (*FrenchGreeter) Greet() string { return "bonjour" }

type Service struct {
	clock   *Clock
	greeter Greeter
}

func NewService(c *Clock, g Greeter) *Service { return &Service{clock: c, greeter: g} }

func NewServiceWithClock(c *Clock) *Service { return &Service{clock: c} }

type Port struct{ n int }

func NewPort(n int) *Port { return &Port{n: n} }

type Config struct{ DSN string }

type Repo struct{ Config *Config }

type A struct{ B *B }
type B struct{ A *A }

//
// -----------------------------------------------------------------------------
// Bind / Get
// -----------------------------------------------------------------------------

func TestBindSelf_DefaultConstructible(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindSelf[*Clock](reg))

	c, err := di.Get[*Clock](reg)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestBind_InterfaceReturnsImplementation(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.Bind[Greeter, *FrenchGreeter](reg))

	g, err := di.Get[Greeter](reg)
	require.NoError(t, err)
	assert.IsType(t, &FrenchGreeter{}, g)
	assert.Equal(t, "bonjour", g.Greet())
}

func TestGet_ReturnsSameInstance(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindSelf[*Clock](reg))

	first := di.MustGet[*Clock](reg)
	second := di.MustGet[*Clock](reg)
	assert.Same(t, first, second)
}

func TestBind_FirstBindingWins(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.Bind[Greeter, *FrenchGreeter](reg))
	require.NoError(t, di.Bind[Greeter, *EnglishGreeter](reg))

	g, err := di.Get[Greeter](reg)
	require.NoError(t, err)
	assert.IsType(t, &FrenchGreeter{}, g)
}

func TestBind_ConflictErrorPolicy(t *testing.T) {
	t.Parallel()

	reg := di.New(di.WithConflictPolicy(di.ConflictError))
	require.NoError(t, di.Bind[Greeter, *FrenchGreeter](reg))

	// Same implementation again stays a no-op.
	require.NoError(t, di.Bind[Greeter, *FrenchGreeter](reg))

	err := di.Bind[Greeter, *EnglishGreeter](reg)
	require.ErrorIs(t, err, di.ErrBindingConflict)

	var conflict di.BindingConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, reflect.TypeFor[*FrenchGreeter](), conflict.Existing)
	assert.Equal(t, reflect.TypeFor[*EnglishGreeter](), conflict.Rejected)

	err = di.Provide[Greeter](reg, func(*di.Registry) (Greeter, error) { return &FrenchGreeter{}, nil })
	require.ErrorIs(t, err, di.ErrBindingConflict)
}

func TestBind_RecursiveAggregateWiring(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindSelf[*Clock](reg))
	require.NoError(t, di.Bind[Greeter, *EnglishGreeter](reg))

	g := di.MustGet[Greeter](reg)
	eg, ok := g.(*EnglishGreeter)
	require.True(t, ok)
	assert.Same(t, di.MustGet[*Clock](reg), eg.Clock)
}

func TestBindConstructor_RecursiveWiring(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindSelf[*Clock](reg))
	require.NoError(t, di.Bind[Greeter, *EnglishGreeter](reg))
	require.NoError(t, di.BindConstructor[*Service](reg, NewService))

	svc := di.MustGet[*Service](reg)
	assert.Same(t, di.MustGet[*Clock](reg), svc.clock)
	assert.Same(t, di.MustGet[Greeter](reg).(*EnglishGreeter), svc.greeter.(*EnglishGreeter))
}

func TestBindConstructor_ShortestArityWins(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindSelf[*Clock](reg))
	require.NoError(t, di.BindConstructor[*Service](reg, NewService, NewServiceWithClock))

	deps, err := di.Dependencies[*Service](reg)
	require.NoError(t, err)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*Clock]()}, deps)

	svc := di.MustGet[*Service](reg)
	assert.Nil(t, svc.greeter)
}

func TestBindConstructor_IntoInterface(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindSelf[*Clock](reg))
	require.NoError(t, di.BindConstructor[Greeter](reg, func(c *Clock) *EnglishGreeter {
		return &EnglishGreeter{Clock: c}
	}))

	g := di.MustGet[Greeter](reg)
	assert.IsType(t, &EnglishGreeter{}, g)
}

//
// -----------------------------------------------------------------------------
// Binding errors
// -----------------------------------------------------------------------------

func TestBind_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bind    func(*di.Registry) error
		wantIs  []error
		wantMsg string
	}{
		{
			name:    "impl_does_not_implement_interface",
			bind:    func(r *di.Registry) error { return di.Bind[Greeter, *Clock](r) },
			wantIs:  []error{di.ErrInvalidBinding},
			wantMsg: "di: invalid binding di_test.Greeter -> *di_test.Clock: does not implement di_test.Greeter",
		},
		{
			name:   "interface_bound_to_itself",
			bind:   func(r *di.Registry) error { return di.BindSelf[Greeter](r) },
			wantIs: []error{di.ErrInvalidBinding, probe.ErrNoViableConstructor},
		},
		{
			name:    "non_handle_constructor_param",
			bind:    func(r *di.Registry) error { return di.BindConstructor[*Port](r, NewPort) },
			wantIs:  []error{di.ErrInvalidDependency},
			wantMsg: "di: *di_test.Port parameter 0 (int): constructor argument must be a shared handle to a registered dependency type",
		},
		{
			name:   "no_constructor",
			bind:   func(r *di.Registry) error { return di.BindConstructor[*Port](r) },
			wantIs: []error{di.ErrInvalidBinding},
		},
		{
			name: "ambiguous_constructor",
			bind: func(r *di.Registry) error {
				return di.BindConstructor[*Port](r, func() *Port { return nil }, func() *Port { return nil })
			},
			wantIs: []error{di.ErrInvalidBinding, probe.ErrAmbiguousConstructor},
		},
		{
			name:   "non_viable_constructor",
			bind:   func(r *di.Registry) error { return di.BindConstructor[*Port](r, func() *Clock { return nil }) },
			wantIs: []error{di.ErrInvalidBinding, probe.ErrNoViableConstructor},
		},
		{
			name:   "nil_provider",
			bind:   func(r *di.Registry) error { return di.Provide[*Config](r, nil) },
			wantIs: []error{di.ErrInvalidBinding},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg := di.New()
			err := tt.bind(reg)
			require.Error(t, err)
			for _, target := range tt.wantIs {
				assert.ErrorIs(t, err, target)
			}
			if tt.wantMsg != "" {
				assert.EqualError(t, err, tt.wantMsg)
			}
			assert.Empty(t, reg.Bound(), "failed binding must not mark the type")
		})
	}
}

//
// -----------------------------------------------------------------------------
// Resolution errors
// -----------------------------------------------------------------------------

func TestGet_Unbound(t *testing.T) {
	t.Parallel()

	reg := di.New()
	_, err := di.Get[*Clock](reg)
	require.ErrorIs(t, err, di.ErrUnbound)
	assert.EqualError(t, err, "di: type *di_test.Clock not bound")
}

func TestGet_UnboundDependency(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.Bind[Greeter, *EnglishGreeter](reg))

	_, err := di.Get[Greeter](reg)
	require.ErrorIs(t, err, di.ErrUnbound)

	var unbound di.UnboundTypeError
	require.True(t, errors.As(err, &unbound))
	assert.Equal(t, reflect.TypeFor[*Clock](), unbound.Type)
	assert.Equal(t, reflect.TypeFor[Greeter](), unbound.RequiredBy)

	// Binding the missing piece later makes the same request succeed.
	require.NoError(t, di.BindSelf[*Clock](reg))
	_, err = di.Get[Greeter](reg)
	require.NoError(t, err)
}

func TestGet_CycleIsReported(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindSelf[*A](reg))
	require.NoError(t, di.BindSelf[*B](reg))

	_, err := di.Get[*A](reg)
	require.ErrorIs(t, err, di.ErrCycle)

	var cycle di.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*A](), reflect.TypeFor[*B](), reflect.TypeFor[*A]()}, cycle.Path)
	assert.EqualError(t, err, "di: dependency cycle *di_test.A -> *di_test.B -> *di_test.A")
	assert.False(t, di.Built[*A](reg))
}

func TestGet_FailedConstructionIsRetried(t *testing.T) {
	t.Parallel()

	reg := di.New()

	calls := 0
	ready := false
	require.NoError(t, di.BindConstructor[*Clock](reg, func() (*Clock, error) {
		calls++
		if !ready {
			return nil, errors.New("not ready")
		}
		return &Clock{ticks: calls}, nil
	}))

	_, err := di.Get[*Clock](reg)
	require.ErrorIs(t, err, di.ErrConstruction)
	assert.EqualError(t, err, "di: constructing *di_test.Clock: not ready")
	assert.False(t, di.Built[*Clock](reg))

	ready = true
	c, err := di.Get[*Clock](reg)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ticks)
	assert.True(t, di.Built[*Clock](reg))

	_, err = di.Get[*Clock](reg)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGet_PanicBecomesConstructionError(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindConstructor[*Clock](reg, func() *Clock { panic("kaboom") }))

	_, err := di.Get[*Clock](reg)
	require.ErrorIs(t, err, di.ErrConstruction)
	assert.Contains(t, err.Error(), "panic: kaboom")
}

func TestMustGet_PanicsOnUnbound(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.PanicsWithError(t, "di: type *di_test.Clock not bound", func() {
		_ = di.MustGet[*Clock](reg)
	})
}

//
// -----------------------------------------------------------------------------
// Provide
// -----------------------------------------------------------------------------

func TestProvide_FeedsAggregate(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.Provide[*Config](reg, func(*di.Registry) (*Config, error) {
		return &Config{DSN: "postgres://"}, nil
	}))
	require.NoError(t, di.BindSelf[*Repo](reg))

	repo := di.MustGet[*Repo](reg)
	assert.Equal(t, "postgres://", repo.Config.DSN)
	assert.Same(t, di.MustGet[*Config](reg), repo.Config)
}

func TestProvide_ErrorAndDeclaredDeps(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.Provide[*Service](reg, func(r *di.Registry) (*Service, error) {
		c, err := di.Get[*Clock](r)
		if err != nil {
			return nil, err
		}
		return NewServiceWithClock(c), nil
	}, reflect.TypeFor[*Clock]()))

	_, err := di.Get[*Service](reg)
	require.ErrorIs(t, err, di.ErrConstruction)
	require.ErrorIs(t, err, di.ErrUnbound)

	err = reg.Validate()
	require.ErrorIs(t, err, di.ErrUnbound)
}

//
// -----------------------------------------------------------------------------
// Validate
// -----------------------------------------------------------------------------

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.BindSelf[*Clock](reg))
	require.NoError(t, di.Bind[Greeter, *EnglishGreeter](reg))
	require.NoError(t, di.BindConstructor[*Service](reg, NewService))

	require.NoError(t, reg.Validate())
	assert.False(t, di.Built[*Service](reg), "validation must not construct anything")
}

func TestValidate_ReportsEverything(t *testing.T) {
	t.Parallel()

	reg := di.New()
	require.NoError(t, di.Bind[Greeter, *EnglishGreeter](reg))
	require.NoError(t, di.BindSelf[*A](reg))
	require.NoError(t, di.BindSelf[*B](reg))

	err := reg.Validate()
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)

	var unbound di.UnboundTypeError
	require.True(t, errors.As(errs[0], &unbound))
	assert.Equal(t, reflect.TypeFor[*Clock](), unbound.Type)
	assert.Equal(t, reflect.TypeFor[Greeter](), unbound.RequiredBy)

	var cycle di.CycleError
	require.True(t, errors.As(errs[1], &cycle))
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*A](), reflect.TypeFor[*B](), reflect.TypeFor[*A]()}, cycle.Path)
}

//
// -----------------------------------------------------------------------------
// Introspection
// -----------------------------------------------------------------------------

func TestIntrospection(t *testing.T) {
	t.Parallel()

	reg := di.New()
	assert.False(t, di.Has[*Clock](reg))
	assert.False(t, di.Built[*Clock](reg))

	_, err := di.Dependencies[*Clock](reg)
	require.ErrorIs(t, err, di.ErrUnbound)

	require.NoError(t, di.BindSelf[*Clock](reg))
	require.NoError(t, di.Bind[Greeter, *EnglishGreeter](reg))

	assert.True(t, di.Has[*Clock](reg))
	assert.True(t, di.Has[Greeter](reg))
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*Clock](), reflect.TypeFor[Greeter]()}, reg.Bound())

	deps, err := di.Dependencies[Greeter](reg)
	require.NoError(t, err)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*Clock]()}, deps)

	// The returned slice is a copy.
	deps[0] = nil
	again, err := di.Dependencies[Greeter](reg)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[*Clock](), again[0])

	_ = di.MustGet[Greeter](reg)
	assert.True(t, di.Built[Greeter](reg))
	assert.True(t, di.Built[*Clock](reg))
}

func TestConflictPolicyString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "first-wins", di.ConflictFirstWins.String())
	assert.Equal(t, "error", di.ConflictError.String())
	assert.Equal(t, "policy(7)", di.ConflictPolicy(7).String())
}

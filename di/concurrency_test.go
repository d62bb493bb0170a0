package di_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sghaida/autodi/di"
)

func TestGet_ConcurrentFirstAccessConstructsOnce(t *testing.T) {
	t.Parallel()

	reg := di.New()

	var calls atomic.Int32
	require.NoError(t, di.BindConstructor[*Clock](reg, func() *Clock {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return &Clock{ticks: 1}
	}))

	const workers = 64
	start := make(chan struct{})
	got := make([]*Clock, workers)

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			<-start
			c, err := di.Get[*Clock](reg)
			got[i] = c
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), calls.Load())
	for _, c := range got {
		assert.Same(t, got[0], c)
	}
}

func TestGet_ConcurrentGraphSharesDependencies(t *testing.T) {
	t.Parallel()

	reg := di.New()

	var clocks, services atomic.Int32
	require.NoError(t, di.BindConstructor[*Clock](reg, func() *Clock {
		clocks.Add(1)
		return &Clock{}
	}))
	require.NoError(t, di.Bind[Greeter, *EnglishGreeter](reg))
	require.NoError(t, di.BindConstructor[*Service](reg, func(c *Clock, g Greeter) *Service {
		services.Add(1)
		return NewService(c, g)
	}))

	const workers = 32
	start := make(chan struct{})
	svcs := make([]*Service, workers)
	greeters := make([]Greeter, workers)

	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			<-start
			if i%2 == 0 {
				gr, err := di.Get[Greeter](reg)
				greeters[i] = gr
				return err
			}
			s, err := di.Get[*Service](reg)
			svcs[i] = s
			return err
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), clocks.Load())
	assert.Equal(t, int32(1), services.Load())

	clock := di.MustGet[*Clock](reg)
	for i := range workers {
		if i%2 == 0 {
			assert.Same(t, clock, greeters[i].(*EnglishGreeter).Clock)
			continue
		}
		assert.Same(t, clock, svcs[i].clock)
	}
}

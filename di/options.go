package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ConflictPolicy decides what happens when an interface is bound twice.
type ConflictPolicy uint8

const (
	// ConflictFirstWins keeps the first binding and silently ignores later ones.
	// Binding code can run from several init paths without ordering hazards,
	// but a conflicting later binding is dropped without notice.
	ConflictFirstWins ConflictPolicy = iota

	// ConflictError rejects a later binding whose implementation differs from
	// the first one. Rebinding the same implementation is still a no-op.
	ConflictError
)

// String implements fmt.Stringer.
func (p ConflictPolicy) String() string {
	switch p {
	case ConflictFirstWins:
		return "first-wins"
	case ConflictError:
		return "error"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for bind and construction events.
// A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithConflictPolicy sets the rebinding policy. The default is ConflictFirstWins.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(r *Registry) { r.policy = p }
}

// WithMetrics registers construction metrics on reg.
// Collectors already registered by another Registry are shared.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Registry) {
		if reg == nil {
			return
		}
		m, err := newMetrics(reg)
		if err != nil {
			r.log.Warn("metrics disabled", zap.Error(err))
			return
		}
		r.metrics = m
	}
}

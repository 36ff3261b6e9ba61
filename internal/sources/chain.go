package sources

import (
	"context"
	"errors"
	"fmt"

	"netgdp/internal/metrics"
)

// ErrFallbackExhausted is returned when every provider of a Chain failed.
var ErrFallbackExhausted = errors.New("fallback exhausted")

// Provider is one named way of fetching a T.
type Provider[T any] struct {
	Name  string
	Fetch func(context.Context) (T, error)
}

// Chain tries its providers in order, once each; the first success wins.
type Chain[T any] struct {
	name      string
	providers []Provider[T]
}

func NewChain[T any](name string, providers ...Provider[T]) *Chain[T] {
	return &Chain[T]{name: name, providers: providers}
}

// Run returns the first successful result and the name of the provider that
// produced it. When all fail the error wraps ErrFallbackExhausted joined with
// every provider's error.
func (c *Chain[T]) Run(ctx context.Context) (T, string, error) {
	var zero T
	errs := []error{ErrFallbackExhausted}
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := call(ctx, p)
		if err == nil {
			metrics.IncrementFallback(c.name, p.Name)
			return v, p.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
	}
	return zero, "", fmt.Errorf("%s: %w", c.name, errors.Join(errs...))
}

func call[T any](ctx context.Context, p Provider[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Fetch(ctx)
}

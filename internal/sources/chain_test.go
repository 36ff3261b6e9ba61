package sources

import (
	"context"
	"errors"
	"testing"
)

func TestChainFirstSuccessWins(t *testing.T) {
	calls := []string{}
	c := NewChain("test",
		Provider[int]{Name: "a", Fetch: func(context.Context) (int, error) {
			calls = append(calls, "a")
			return 0, errors.New("a down")
		}},
		Provider[int]{Name: "b", Fetch: func(context.Context) (int, error) {
			calls = append(calls, "b")
			return 2, nil
		}},
		Provider[int]{Name: "c", Fetch: func(context.Context) (int, error) {
			calls = append(calls, "c")
			return 3, nil
		}},
	)

	v, name, err := c.Run(context.Background())
	if err != nil || v != 2 || name != "b" {
		t.Fatalf("expected (2, b), got (%d, %s, %v)", v, name, err)
	}
	if len(calls) != 2 {
		t.Fatalf("providers after the winner should not run: %v", calls)
	}
}

func TestChainExhausted(t *testing.T) {
	errA := errors.New("a down")
	c := NewChain("test",
		Provider[string]{Name: "a", Fetch: func(context.Context) (string, error) { return "", errA }},
		Provider[string]{Name: "b", Fetch: func(context.Context) (string, error) { panic("b exploded") }},
	)

	_, name, err := c.Run(context.Background())
	if !errors.Is(err, ErrFallbackExhausted) {
		t.Fatalf("expected ErrFallbackExhausted, got %v", err)
	}
	if !errors.Is(err, errA) {
		t.Fatalf("expected provider error to be joined, got %v", err)
	}
	if name != "" {
		t.Fatalf("expected no provider name, got %q", name)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	c := NewChain("test", Provider[int]{Name: "a", Fetch: func(context.Context) (int, error) {
		called = true
		return 1, nil
	}})

	if _, _, err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("provider should not run on a cancelled context")
	}
}

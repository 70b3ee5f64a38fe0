package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	op := func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}

	if err := Do(context.Background(), fastConfig(3), "op", op, nil); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	op := func() error {
		calls++
		return errors.New("always failing")
	}

	err := Do(context.Background(), fastConfig(3), "op", op, nil)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoPermanentErrorNotRetried(t *testing.T) {
	t.Parallel()

	fatal := errors.New("fatal")
	calls := 0
	op := func() error {
		calls++
		return fatal
	}

	err := Do(context.Background(), fastConfig(5), "op", op, func(error) bool { return false })
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, fatal) {
		t.Fatalf("expected wrapped original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestDoCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	op := func() error {
		calls++
		return errors.New("transient")
	}

	err := Do(ctx, Config{MaxAttempts: 5, InitialInterval: time.Hour}, "op", op, nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if calls > 1 {
		t.Fatalf("expected at most one attempt, got %d", calls)
	}
}

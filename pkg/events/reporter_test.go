package events

import (
	"context"
	"errors"
	"testing"
)

func TestNoOpReporter(t *testing.T) {
	r := &NoOpReporter{}
	if err := r.Report(context.Background(), &CommandError{Command: "x", Kind: KindParseError}); err != nil {
		t.Errorf("events:reporter_test - unexpected error: %v", err)
	}
}

func TestCallbackReporter(t *testing.T) {
	var got *CommandError
	r := NewCallbackReporter(func(_ context.Context, cmdErr *CommandError) error {
		got = cmdErr
		return nil
	})

	in := &CommandError{Command: "FeedDuck", Kind: KindUnknownCommand, Message: "no such command"}
	if err := r.Report(context.Background(), in); err != nil {
		t.Fatalf("events:reporter_test - unexpected error: %v", err)
	}
	if got != in {
		t.Errorf("events:reporter_test - callback received %+v, want %+v", got, in)
	}
}

func TestMultiReporter_FanOutAndFirstError(t *testing.T) {
	calls := 0
	failing := NewCallbackReporter(func(context.Context, *CommandError) error {
		calls++
		return errors.New("sink down")
	})
	counting := NewCallbackReporter(func(context.Context, *CommandError) error {
		calls++
		return nil
	})

	r := NewMultiReporter(failing, counting)
	err := r.Report(context.Background(), &CommandError{Command: "x", Kind: KindEmptyMessage})
	if err == nil || err.Error() != "sink down" {
		t.Errorf("events:reporter_test - err = %v, want sink down", err)
	}
	// The second reporter still runs after the first fails.
	if calls != 2 {
		t.Errorf("events:reporter_test - calls = %d, want 2", calls)
	}
}

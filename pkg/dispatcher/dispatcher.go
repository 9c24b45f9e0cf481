package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pondworks/command-engine/pkg/codec"
	"github.com/pondworks/command-engine/pkg/events"
	"github.com/pondworks/command-engine/pkg/registry"
	"github.com/pondworks/command-engine/pkg/suggest"
)

const logPrefix = "dispatcher:dispatch"

// Dispatcher routes command envelopes to registered handlers. Construct
// one per engine instance with NewDispatcher; there is no ambient global.
type Dispatcher struct {
	registry *registry.Registry
	reporter events.Reporter
}

// NewDispatcher creates a new Dispatcher over reg. A nil reporter
// defaults to a NoOpReporter.
func NewDispatcher(reg *registry.Registry, reporter events.Reporter) *Dispatcher {
	if reporter == nil {
		reporter = &events.NoOpReporter{}
	}
	return &Dispatcher{registry: reg, reporter: reporter}
}

// Dispatch processes one envelope text: parse, resolve, decode, invoke.
// It never returns or panics a failure; every failure class is reported
// through the error reporter, and the dispatcher remains usable for
// subsequent calls. Each call is independent: no retries, no
// de-duplication, no retained state. Handler invocation is synchronous;
// a slow handler stalls the caller for the duration (no internal
// timeout - wrap the call in a context deadline at the transport layer
// if one is needed, and note that cancellation is not forwarded into
// the handler).
func (d *Dispatcher) Dispatch(ctx context.Context, text string) {
	cmdErr := d.dispatch(text)
	if cmdErr == nil {
		return
	}

	slog.Warn(fmt.Sprintf("%s - %s command=%q: %s", logPrefix, cmdErr.Kind, cmdErr.Command, cmdErr.Message))
	if err := d.reporter.Report(ctx, cmdErr); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to report %s failure: %v", logPrefix, cmdErr.Kind, err))
	}
}

// RegisteredCommandCount returns the number of registered commands.
func (d *Dispatcher) RegisteredCommandCount() int {
	return d.registry.Count()
}

// RegisteredCommandNames returns a snapshot of the registered names.
func (d *Dispatcher) RegisteredCommandNames() []string {
	return d.registry.Names()
}

// dispatch walks the stages and returns the first classified failure,
// or nil when the handler completed.
func (d *Dispatcher) dispatch(text string) *events.CommandError {
	// ReceivingText → Parsed
	if strings.TrimSpace(text) == "" {
		return &events.CommandError{
			Kind:    events.KindEmptyMessage,
			Message: "empty message",
		}
	}

	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return &events.CommandError{
			Kind:    events.KindParseError,
			Message: fmt.Sprintf("malformed envelope: %v (raw: %s)", err, truncate(text)),
		}
	}

	// Parsed → Resolved
	if env.Command == "" {
		return &events.CommandError{
			Kind:    events.KindMissingCommand,
			Message: "envelope has no command field",
		}
	}

	desc, ok := d.registry.Lookup(env.Command)
	if !ok {
		msg := fmt.Sprintf("unknown command %q", env.Command)
		if s, found := suggest.Closest(env.Command, d.registry.Names()); found {
			msg = fmt.Sprintf("%s, did you mean: %s", msg, s)
		}
		return &events.CommandError{
			Command: env.Command,
			Kind:    events.KindUnknownCommand,
			Message: msg,
		}
	}

	// Resolved → Decoded. The expected type comes from the descriptor
	// current at lookup time, never from the payload.
	value, cerr := codec.Decode(env.Parameters, desc.Input)
	if cerr != nil {
		return &events.CommandError{
			Command: env.Command,
			Kind:    events.KindConversionFailed,
			Message: cerr.Error(),
		}
	}

	// Decoded → Invoked
	if err := invoke(desc, value); err != nil {
		return &events.CommandError{
			Command: env.Command,
			Kind:    events.KindHandlerExecutionFailed,
			Message: err.Error(),
		}
	}

	return nil
}

// invoke calls the handler inside a failure boundary: returned errors are
// unwrapped to their root cause and panics are recovered.
func invoke(desc registry.Descriptor, value any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rootCause(rerr)
				return
			}
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	if herr := desc.Handler(value); herr != nil {
		return rootCause(herr)
	}
	return nil
}

// rootCause follows the Unwrap chain to the originating error.
func rootCause(err error) error {
	for {
		u := errors.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
}

// truncate bounds raw envelope text in diagnostics.
func truncate(s string) string {
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}

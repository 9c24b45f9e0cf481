package events

import "context"

// Reporter is the error-observer channel for dispatch failures. Callers
// that need per-call success/failure subscribe a Reporter before
// dispatching; the engine never returns failures any other way.
type Reporter interface {
	Report(ctx context.Context, cmdErr *CommandError) error
}

// NoOpReporter is a Reporter that discards failures (for in-process usage
// without observation).
type NoOpReporter struct{}

// Report is a no-op.
func (r *NoOpReporter) Report(_ context.Context, _ *CommandError) error {
	return nil
}

// CallbackReporter is a Reporter that calls a callback function (for
// testing and in-process observers).
type CallbackReporter struct {
	callback func(ctx context.Context, cmdErr *CommandError) error
}

// NewCallbackReporter creates a new CallbackReporter.
func NewCallbackReporter(cb func(ctx context.Context, cmdErr *CommandError) error) *CallbackReporter {
	return &CallbackReporter{callback: cb}
}

// Report calls the callback.
func (r *CallbackReporter) Report(ctx context.Context, cmdErr *CommandError) error {
	return r.callback(ctx, cmdErr)
}

// MultiReporter fans a failure out to several reporters. Every reporter
// is invoked even when earlier ones fail; the first error is returned.
type MultiReporter struct {
	reporters []Reporter
}

// NewMultiReporter creates a MultiReporter over the given reporters.
func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

// Report pushes the failure to every reporter.
func (r *MultiReporter) Report(ctx context.Context, cmdErr *CommandError) error {
	var first error
	for _, rep := range r.reporters {
		if err := rep.Report(ctx, cmdErr); err != nil && first == nil {
			first = err
		}
	}
	return first
}

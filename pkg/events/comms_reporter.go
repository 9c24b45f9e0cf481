package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/pondworks/command-engine/pkg/commsutil"
)

const commsReporterLogPrefix = "events:comms_reporter"

// CommsReporterOpts configures CommsReporter. Nil or zero values use defaults.
type CommsReporterOpts struct {
	// GlobalErrorSubject overrides the global failure subject (e.g. from
	// ERROR_EVENT_SUBJECT).
	GlobalErrorSubject string
}

// CommsReporter publishes dispatch failures to COMMS subjects.
type CommsReporter struct {
	nc                 *comms.Conn
	globalErrorSubject string
}

// NewCommsReporter creates a new CommsReporter. Pass nil for opts to use defaults.
func NewCommsReporter(nc *comms.Conn, opts *CommsReporterOpts) *CommsReporter {
	globalSubject := commsutil.SubjectErrors
	if opts != nil && opts.GlobalErrorSubject != "" {
		globalSubject = opts.GlobalErrorSubject
	}
	return &CommsReporter{nc: nc, globalErrorSubject: globalSubject}
}

// Report publishes a CommandError to both the granular per-kind subject
// and the global failure subject.
func (r *CommsReporter) Report(_ context.Context, cmdErr *CommandError) error {
	if cmdErr.Timestamp == "" {
		cmdErr.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := commsutil.EncodePayload(cmdErr)
	if err != nil {
		return fmt.Errorf("%s - failed to encode failure: %w", commsReporterLogPrefix, err)
	}

	granularSubject := commsutil.BuildErrorSubject(string(cmdErr.Kind))
	if err := r.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsReporterLogPrefix, granularSubject, err))
		return err
	}

	if err := r.nc.Publish(r.globalErrorSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsReporterLogPrefix, r.globalErrorSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published %s failure for command %q", commsReporterLogPrefix, cmdErr.Kind, cmdErr.Command))
	return nil
}

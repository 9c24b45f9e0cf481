// Package dispatcher parses incoming command envelopes, resolves them
// against the registry, decodes parameters into the handler's declared
// input type and invokes the handler. All failures are classified and
// pushed to the error reporter; none propagate out of Dispatch.
package dispatcher

import "encoding/json"

// Envelope is the JSON wire unit carrying a command and its parameters.
// Parameters may be absent; the codec decides per target type whether
// absence is acceptable. Envelopes are consumed once per dispatch call
// and never retained.
type Envelope struct {
	Command    string          `json:"command"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

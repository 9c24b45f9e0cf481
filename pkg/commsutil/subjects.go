package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	// SubjectCommands is where command envelopes arrive.
	SubjectCommands = "cmd.engine.v1"
	// SubjectErrors is the global dispatch failure subject.
	SubjectErrors = "cmd.errors"
)

// BuildCommandSubject builds a per-application command subject.
func BuildCommandSubject(app string) string {
	safe := strings.ReplaceAll(app, ".", "_")
	return fmt.Sprintf("cmd.%s.v1", safe)
}

// BuildErrorSubject builds a granular failure subject for one error kind.
func BuildErrorSubject(kind string) string {
	return fmt.Sprintf("%s.%s", SubjectErrors, strings.ToLower(kind))
}

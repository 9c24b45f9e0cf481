// Package commands holds the built-in commands registered on a fresh engine.
// They exist so a deployment answers traffic before any application handlers
// are wired in.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/pondworks/command-engine/pkg/codec"
	"github.com/pondworks/command-engine/pkg/registry"
)

const logPrefix = "commands:builtins"

// PingParams is the optional payload of engine.ping.
type PingParams struct {
	Note string `json:"note"`
}

// RegisterBuiltins registers the engine's built-in commands.
func RegisterBuiltins(reg *registry.Registry) {
	reg.Register("engine.echo", codec.String, func(value any) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s - engine.echo: unexpected value %T", logPrefix, value)
		}
		slog.Info(fmt.Sprintf("%s - echo: %s", logPrefix, s))
		return nil
	})

	reg.Register("engine.ping", codec.Record[PingParams]("PingParams"), func(value any) error {
		// Absent parameters decode to a typed nil; ping answers either way.
		p, _ := value.(*PingParams)
		if p != nil && p.Note != "" {
			slog.Info(fmt.Sprintf("%s - pong: %s", logPrefix, p.Note))
			return nil
		}
		slog.Info(fmt.Sprintf("%s - pong", logPrefix))
		return nil
	})
}

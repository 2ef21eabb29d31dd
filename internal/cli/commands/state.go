// Package commands implements the sqlmint subcommands. Shared per-invocation
// state (loaded project, renderer, logger) is carried on the command context
// by the root command.
package commands

import (
	"context"
	"log/slog"

	"github.com/sqlmint-labs/sqlmint/internal/cli/output"
	"github.com/sqlmint-labs/sqlmint/internal/config"
)

type stateKey struct{}

// State is everything a command needs from the root command's setup.
type State struct {
	ConfigFile string // --config value, "" when probing the working directory
	Project    *config.Project
	Renderer   *output.Renderer
	Logger     *slog.Logger
}

// WithState stores the state on a context.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// StateFrom retrieves the state, with safe fallbacks for direct command
// construction in tests.
func StateFrom(ctx context.Context) *State {
	if st, ok := ctx.Value(stateKey{}).(*State); ok {
		return st
	}
	return &State{
		Logger: slog.New(slog.DiscardHandler),
	}
}

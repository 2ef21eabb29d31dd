// Package cli provides the command-line interface for sqlmint.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqlmint-labs/sqlmint/internal/cli/commands"
	"github.com/sqlmint-labs/sqlmint/internal/cli/output"
	"github.com/sqlmint-labs/sqlmint/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "sqlmint",
		Short: "sqlmint - typed data-access code from annotated SQL",
		Long: `sqlmint parses annotated SQL files, replays them against an ephemeral
database instance to learn each query's real shape, and generates typed
data-access code for TypeScript and JVM targets.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			flags := cmd.Root().PersistentFlags()

			// init runs before any config exists; give it defaults only.
			var project *config.Project
			var err error
			if cmd.Name() == "init" {
				project = &config.Project{Version: 1, Output: "auto"}
				if project.Root, err = os.Getwd(); err != nil {
					return err
				}
			} else {
				if project, err = config.Load(cfgFile, flags); err != nil {
					renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
					renderer.Error(err)
					return commands.ErrReported
				}
			}

			level := slog.LevelWarn
			if project.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.OutputMode(project.Output))

			cmd.SetContext(commands.WithState(cmd.Context(), &commands.State{
				ConfigFile: cfgFile,
				Project:    project,
				Renderer:   renderer,
				Logger:     logger,
			}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+config.ConfigFileName+")")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (auto|text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command. Errors the commands have already rendered
// are not printed again.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, commands.ErrReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return err
	}
	return nil
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/sqlmint-labs/sqlmint/internal/config"
	"github.com/sqlmint-labs/sqlmint/internal/pipeline"
)

// ErrReported marks an error that has already been rendered to the user, so
// the root command exits nonzero without printing it again.
var ErrReported = fmt.Errorf("error already reported")

// debounceWindow coalesces editor save bursts into one regeneration.
const debounceWindow = 250 * time.Millisecond

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate typed bindings from annotated SQL",
		Long: `Parse the project's annotated SQL files, replay them against an ephemeral
database instance, and emit typed data-access code for every configured
generator target. Output is written only when the whole run succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := StateFrom(cmd.Context())
			if watch {
				return watchLoop(cmd.Context(), st)
			}
			if err := runGenerate(cmd.Context(), st, st.Project); err != nil {
				st.Renderer.Error(err)
				return ErrReported
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "regenerate whenever SQL or config files change")
	return cmd
}

func runGenerate(ctx context.Context, st *State, project *config.Project) error {
	res, err := pipeline.New(project, st.Logger).Run(ctx)
	if err != nil {
		return err
	}
	if !st.Renderer.JSON(res) {
		for _, f := range res.Files() {
			st.Renderer.Successf("wrote %s", f)
		}
		st.Renderer.Successf("generated %d file(s) from %d group(s)", len(res.Files()), len(res.Groups))
	}
	return nil
}

// watchLoop regenerates on changes to the config file or any configured SQL
// file. A failing run is rendered and watching continues; the loop only ends
// with the context.
func watchLoop(ctx context.Context, st *State) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched, err := watchTargets(st)
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for path := range watched {
		dirs[filepath.Dir(path)] = true
	}
	// Watch directories, not files: editors replace files on save, which
	// drops a direct file watch.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	rerun := func() {
		project := st.Project
		if fresh, lerr := config.Load(st.ConfigFile, nil); lerr == nil {
			project = fresh
		} else {
			st.Renderer.Error(lerr)
		}
		if rerr := runGenerate(ctx, st, project); rerr != nil {
			st.Renderer.Error(rerr)
		}
	}

	rerun()
	st.Logger.Info("watching for changes", slog.Int("paths", len(watched)))

	debounce := time.NewTimer(debounceWindow)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			st.Logger.Debug("change detected", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			if !pending {
				pending = true
				debounce.Reset(debounceWindow)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			st.Logger.Warn("watch error", slog.String("error", werr.Error()))
		case <-debounce.C:
			if pending {
				pending = false
				rerun()
			}
		}
	}
}

// watchTargets returns the absolute paths whose changes trigger a rerun: the
// config file and every configured SQL file.
func watchTargets(st *State) (map[string]bool, error) {
	targets := make(map[string]bool)

	path, err := config.FindConfigFile(st.ConfigFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		targets[filepath.Clean(abs)] = true
	}

	for _, sc := range st.Project.SQL {
		for _, f := range sc.Files {
			targets[filepath.Clean(st.Project.Resolve(f))] = true
		}
	}
	return targets, nil
}

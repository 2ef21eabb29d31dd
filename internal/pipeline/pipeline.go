// Package pipeline orchestrates a full generation run: parse the annotated
// SQL, validate it, replay it against an ephemeral engine instance, shape
// every query, and emit generator output. SQL groups are independent and run
// concurrently; output is written only after every group has succeeded, so a
// failing run never leaves partial files behind.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sqlmint-labs/sqlmint/internal/adapter"
	"github.com/sqlmint-labs/sqlmint/internal/codegen"
	"github.com/sqlmint-labs/sqlmint/internal/config"
	"github.com/sqlmint-labs/sqlmint/internal/errcode"
	"github.com/sqlmint-labs/sqlmint/internal/introspect"
	"github.com/sqlmint-labs/sqlmint/internal/parser"
)

// Pipeline runs generation for one loaded project.
type Pipeline struct {
	project *config.Project
	logger  *slog.Logger
}

// New creates a pipeline. A nil logger discards.
func New(project *config.Project, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{project: project, logger: logger}
}

// GroupResult summarizes one SQL group's run.
type GroupResult struct {
	JobID      string   `json:"jobId"`
	Engine     string   `json:"engine"`
	Statements int      `json:"statements"`
	Queries    int      `json:"queries"`
	Files      []string `json:"files"` // written paths, project-relative
}

// Result is a successful generation run.
type Result struct {
	Groups []GroupResult `json:"groups"`
}

// Files returns every written path across groups, sorted.
func (r *Result) Files() []string {
	var all []string
	for _, g := range r.Groups {
		all = append(all, g.Files...)
	}
	sort.Strings(all)
	return all
}

// pendingFile is generated output held in memory until the whole run succeeds.
type pendingFile struct {
	relPath string
	content []byte
}

// Run executes every SQL group and writes generator output. The returned
// result lists written files per group; on error nothing has been written.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.project.Validate(); err != nil {
		return nil, err
	}

	results := make([]GroupResult, len(p.project.SQL))
	pending := make([][]pendingFile, len(p.project.SQL))

	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range p.project.SQL {
		g.Go(func() error {
			res, files, err := p.runGroup(ctx, sc)
			if err != nil {
				return err
			}
			results[i] = *res
			pending[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range pending {
		for _, f := range pending[i] {
			abs := p.project.Resolve(f.relPath)
			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return nil, fmt.Errorf("creating %s: %w", filepath.Dir(f.relPath), err)
			}
			if err := os.WriteFile(abs, f.content, 0o644); err != nil {
				return nil, fmt.Errorf("writing %s: %w", f.relPath, err)
			}
			p.logger.Info("wrote", slog.String("path", f.relPath))
		}
	}

	return &Result{Groups: results}, nil
}

// sourceUnit is one parsed SQL file within a group.
type sourceUnit struct {
	path       string // as configured, project-relative
	statements []*parser.Statement
}

// runGroup drives one SQL group: parse, validate, introspect, generate.
// Generated files are returned, not written; the caller commits them once
// every group has succeeded.
func (p *Pipeline) runGroup(ctx context.Context, sc config.SQLConfig) (*GroupResult, []pendingFile, error) {
	jobID := uuid.NewString()
	logger := p.logger.With(slog.String("job", jobID[:8]), slog.String("engine", sc.Engine))
	logger.Debug("starting group", slog.Int("files", len(sc.Files)))

	units, all, err := p.parseGroup(sc)
	if err != nil {
		return nil, nil, err
	}
	if err := parser.Validate(all); err != nil {
		return nil, nil, err
	}

	db, err := adapter.New(sc.Engine, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Connect(ctx, adapter.Config{Engine: sc.Engine, URL: p.project.PostgresURL}); err != nil {
		return nil, nil, errcode.Wrapf(errcode.Database, err,
			"Check the engine configuration; for postgres set SQLMINT_POSTGRES_URL to a reachable server.",
			"connecting to ephemeral %s instance", sc.Engine)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Warn("closing ephemeral instance", slog.String("error", cerr.Error()))
		}
	}()

	runner := introspect.NewRunner(db, logger)
	if err := runner.ApplySchema(ctx, all); err != nil {
		return nil, nil, err
	}

	// Shape statements in declaration order across the whole group; a later
	// file's queries may read state a former file's exec mutated.
	shapes := make(map[*parser.Statement]*introspect.QueryShape)
	queries := 0
	for _, u := range units {
		for _, stmt := range u.statements {
			if stmt.Kind != parser.KindQuery && stmt.Kind != parser.KindExec {
				continue
			}
			shape, err := runner.Shape(ctx, stmt)
			if err != nil {
				return nil, nil, err
			}
			shapes[stmt] = shape
			queries++
		}
	}

	var files []pendingFile
	res := &GroupResult{JobID: jobID, Engine: sc.Engine, Statements: len(all), Queries: queries}

	for _, target := range sc.Generators {
		gen, ok := codegen.Get(sc.Engine, target.Language)
		if !ok {
			return nil, nil, errcode.Newf(errcode.GeneratorEngineMismatch,
				"Run 'sqlmint validate' for the full compatibility table.",
				"no generator for %s/%s", sc.Engine, target.Language).
				With("engine", sc.Engine).
				With("language", target.Language)
		}

		for _, u := range units {
			in := &codegen.Input{
				Engine:     sc.Engine,
				SourceFile: filepath.Base(u.path),
			}
			for _, stmt := range u.statements {
				switch stmt.Kind {
				case parser.KindMigration:
					in.Migrations = append(in.Migrations, codegen.Migration{Name: stmt.Name, SQL: stmt.SQL})
				case parser.KindQuery, parser.KindExec:
					in.Shapes = append(in.Shapes, shapes[stmt])
				}
			}

			out, err := gen.Emit(in)
			if err != nil {
				return nil, nil, err
			}
			for _, f := range out {
				rel := filepath.Join(target.Out, f.Path)
				files = append(files, pendingFile{relPath: rel, content: f.Content})
				res.Files = append(res.Files, rel)
			}
		}
	}

	sort.Strings(res.Files)
	logger.Info("group complete",
		slog.Int("statements", res.Statements),
		slog.Int("queries", res.Queries),
		slog.Int("outputs", len(res.Files)))
	return res, files, nil
}

// parseGroup parses every configured file, preserving per-file statement
// grouping for the generators and the flat declaration order for validation
// and schema replay.
func (p *Pipeline) parseGroup(sc config.SQLConfig) ([]sourceUnit, []*parser.Statement, error) {
	pr := parser.New()
	var units []sourceUnit
	var all []*parser.Statement
	for _, f := range sc.Files {
		stmts, err := pr.ParseFile(p.project.Resolve(f))
		if err != nil {
			return nil, nil, err
		}
		units = append(units, sourceUnit{path: f, statements: stmts})
		all = append(all, stmts...)
	}
	return units, all, nil
}

// Check statically validates the project without touching any engine:
// configuration, file parsing, duplicate names and placeholder references.
// It reports every problem it can find in one pass.
func (p *Pipeline) Check(_ context.Context) (*CheckReport, error) {
	report := &CheckReport{
		Name:   p.project.Name,
		Groups: make([]CheckGroup, 0, len(p.project.SQL)),
	}

	if err := p.project.Validate(); err != nil {
		return nil, err
	}

	var errs errcode.List
	for _, sc := range p.project.SQL {
		cg := CheckGroup{Engine: sc.Engine, Files: sc.Files}
		for _, t := range sc.Generators {
			cg.Generators = append(cg.Generators, t.Language)
		}

		_, all, err := p.parseGroup(sc)
		if err != nil {
			var coded *errcode.Error
			if errors.As(err, &coded) {
				errs.Add(coded)
				report.Groups = append(report.Groups, cg)
				continue
			}
			return nil, err
		}
		cg.Statements = len(all)
		if verr := parser.Validate(all); verr != nil {
			errs.AddAll(verr)
		}
		report.Groups = append(report.Groups, cg)
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	report.Valid = true
	return report, nil
}

// CheckGroup is one SQL group's slice of a validation report.
type CheckGroup struct {
	Engine     string   `json:"engine"`
	Files      []string `json:"files"`
	Generators []string `json:"generators"`
	Statements int      `json:"statements"`
}

// CheckReport is the result of a validate-only run.
type CheckReport struct {
	Valid  bool         `json:"valid"`
	Name   string       `json:"name,omitempty"`
	Groups []CheckGroup `json:"groups"`
}

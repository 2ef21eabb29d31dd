package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sqlmint-labs/sqlmint/internal/adapter"
	"github.com/sqlmint-labs/sqlmint/internal/codegen"
	"github.com/sqlmint-labs/sqlmint/internal/errcode"
	"github.com/sqlmint-labs/sqlmint/internal/typemap"
)

// Validate checks the whole project and reports every violation it can find
// in one pass. Engines are checked against the adapter registry and
// (engine, language) pairs against the generator registry, so the two
// registries stay the single source of truth for what is supported.
func (p *Project) Validate() error {
	var errs errcode.List

	if p.Version != 1 {
		errs.Add(errcode.Newf(errcode.ConfigValidation,
			"Set 'version: 1' in "+ConfigFileName+".",
			"unsupported config version %d", p.Version).
			With("version", p.Version))
	}
	if len(p.SQL) == 0 {
		errs.Add(errcode.New(errcode.ConfigValidation,
			"no sql groups configured",
			"Add at least one entry under 'sql:' with an engine, files and generators."))
	}

	for i, sc := range p.SQL {
		where := fmt.Sprintf("sql[%d]", i)
		p.validateGroup(&errs, where, sc)
	}

	return errs.Err()
}

func (p *Project) validateGroup(errs *errcode.List, where string, sc SQLConfig) {
	engineOK := adapter.IsRegistered(sc.Engine)
	if !engineOK {
		errs.Add(errcode.Newf(errcode.InvalidEngine,
			"Supported engines: "+strings.Join(adapter.Engines(), ", ")+".",
			"%s: unknown engine %q", where, sc.Engine).
			With("engine", sc.Engine))
	}

	if len(sc.Files) == 0 {
		errs.Add(errcode.Newf(errcode.ConfigValidation,
			"List the annotated .sql files under 'files:'.",
			"%s: no sql files configured", where))
	}
	for _, f := range sc.Files {
		path := p.Resolve(f)
		if _, err := os.Stat(path); err != nil {
			errs.Add(errcode.Newf(errcode.FileNotFound,
				"Paths are relative to the directory containing "+ConfigFileName+".",
				"%s: sql file not found: %s", where, f).
				With("path", f))
		}
	}

	if len(sc.Generators) == 0 {
		errs.Add(errcode.Newf(errcode.ConfigValidation,
			"Add at least one generator with a language and an out directory.",
			"%s: no generators configured", where))
	}
	for j, g := range sc.Generators {
		gwhere := fmt.Sprintf("%s.generators[%d]", where, j)

		known := false
		for _, api := range typemap.APIs() {
			if g.Language == api {
				known = true
				break
			}
		}
		if !known {
			errs.Add(errcode.Newf(errcode.InvalidGenerator,
				"Supported language APIs: "+strings.Join(typemap.APIs(), ", ")+".",
				"%s: unknown language %q", gwhere, g.Language).
				With("language", g.Language))
			continue
		}
		if engineOK && !codegen.Supports(sc.Engine, g.Language) {
			errs.Add(errcode.Newf(errcode.GeneratorEngineMismatch,
				fmt.Sprintf("%s supports engines: %s.", g.Language,
					strings.Join(codegen.EnginesFor(g.Language), ", ")),
				"%s: language %q does not support engine %q", gwhere, g.Language, sc.Engine).
				With("language", g.Language).
				With("engine", sc.Engine))
		}
		if g.Out == "" {
			errs.Add(errcode.Newf(errcode.ConfigValidation,
				"Set 'out:' to the directory generated files are written to.",
				"%s: missing out directory", gwhere))
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/sqlmint-labs/sqlmint/internal/errcode"
)

// Config file names probed in the working directory when --config is not set.
const (
	ConfigFileName    = "sqlmint.yaml"
	ConfigFileNameAlt = "sqlmint.yml"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// SQLMINT_POSTGRES_URL maps to the postgres_url key.
const EnvPrefix = "SQLMINT_"

// maxUpwardSearchLevels limits how far up the directory tree to search for a
// config file.
const maxUpwardSearchLevels = 10

// FindConfigFile resolves the config file to use. An explicit path wins; an
// explicit path that does not exist is an error. Otherwise the working
// directory and its ancestors are probed, so commands work from anywhere
// inside a project. "" means no file, which is fine when flags and
// environment provide everything.
func FindConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", errcode.Newf(errcode.FileNotFound,
				"Check the --config path.",
				"config file not found: %s", explicit).
				With("path", explicit)
		}
		return explicit, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", errcode.Wrapf(errcode.ConfigParse, err,
			"Run sqlmint from a readable directory or pass --config explicitly.",
			"resolving working directory")
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

// Load builds a Project from defaults, the config file, SQLMINT_* environment
// variables and explicitly-set flags, in ascending precedence.
func Load(cfgFile string, flags *pflag.FlagSet) (*Project, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"version": 1,
		"output":  "auto",
		"verbose": false,
	}, "."), nil); err != nil {
		return nil, errcode.Wrapf(errcode.ConfigParse, err,
			"Re-run with --verbose to see the underlying cause.",
			"loading defaults")
	}

	path, err := FindConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errcode.Wrapf(errcode.ConfigParse, err,
				"Fix the YAML syntax in the configuration file.",
				"parsing %s", path).
				With("path", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, errcode.Wrapf(errcode.ConfigParse, err,
			"Check SQLMINT_-prefixed environment variables for malformed values.",
			"loading environment")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errcode.Wrapf(errcode.ConfigParse, err,
				"Check the command line flag values.",
				"loading flags")
		}
	}

	var p Project
	if err := k.Unmarshal("", &p); err != nil {
		return nil, errcode.Wrapf(errcode.ConfigParse, err,
			"Check that every sqlmint.yaml field has the expected type.",
			"decoding configuration").
			With("path", path)
	}

	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errcode.Wrapf(errcode.ConfigParse, err,
				"Pass a readable path to --config.",
				"resolving %s", path)
		}
		p.Root = filepath.Dir(abs)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errcode.Wrapf(errcode.ConfigParse, err,
				"Run sqlmint from a readable directory or pass --config explicitly.",
				"resolving working directory")
		}
		p.Root = cwd
	}

	return &p, nil
}

// Resolve joins a project-relative path against the project root.
func (p *Project) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Root, path)
}

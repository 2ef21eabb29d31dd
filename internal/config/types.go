// Package config loads and validates project configuration. A project is one
// sqlmint.yaml describing SQL file groups, the engine each group runs
// against, and the generator targets that consume each group's shapes.
package config

// GeneratorTarget is one output to generate from an SQL group.
type GeneratorTarget struct {
	Language string `koanf:"language"` // language API identifier, e.g. ts-sqlite-sync
	Out      string `koanf:"out"`      // output directory, relative to the project root
}

// SQLConfig groups annotated SQL files that share one engine and one set of
// generator targets.
type SQLConfig struct {
	Engine     string            `koanf:"engine"` // sqlite, duckdb or postgres
	Files      []string          `koanf:"files"`  // annotated SQL files, relative to the project root
	Generators []GeneratorTarget `koanf:"generators"`
}

// Project is the full sqlmint configuration.
type Project struct {
	Version int         `koanf:"version"`
	Name    string      `koanf:"name"`
	SQL     []SQLConfig `koanf:"sql"`

	// PostgresURL is the server used for postgres introspection jobs. Each
	// job creates and drops its own schema there. Usually set through the
	// SQLMINT_POSTGRES_URL environment variable rather than the file.
	PostgresURL string `koanf:"postgres_url"`

	Output  string `koanf:"output"` // auto, text or json
	Verbose bool   `koanf:"verbose"`

	// Root is the directory all relative paths resolve against: the config
	// file's directory, or the working directory when none was found.
	Root string `koanf:"-"`
}

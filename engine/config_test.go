package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/derive/dialect"
	"github.com/syssam/derive/internal/fixture"
)

const sample = `
targets:
  - name: pg
    dialect: postgres
  - name: legacy
    dialect: oracle
    naming: upper
  - name: docs
    dialect: cosmos
    naming: camel
  - name: dynamo
    dialect: dynamodb
default_target: pg
log_level: warn
`

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]byte(sample), env.Options{Environment: map[string]string{}})
	require.NoError(t, err)
	require.Len(t, cfg.Targets, 4)
	assert.Equal(t, TargetConfig{Name: "legacy", Dialect: "oracle", Naming: "upper"}, cfg.Targets[1])
	assert.Equal(t, "pg", cfg.DefaultTarget)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
	assert.False(t, cfg.AlwaysQuote)
}

func TestParseConfigEnvironment(t *testing.T) {
	cfg, err := parseConfig([]byte(sample), env.Options{Environment: map[string]string{
		"DERIVE_TARGET":       "docs",
		"DERIVE_LOG_LEVEL":    "debug",
		"DERIVE_ALWAYS_QUOTE": "true",
	}})
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.DefaultTarget)
	assert.True(t, cfg.AlwaysQuote)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = parseConfig([]byte(sample), env.Options{Environment: map[string]string{"DERIVE_TARGET": "mongo"}})
	assert.EqualError(t, err, `engine: default target "mongo" is not configured`)

	_, err = parseConfig([]byte(sample), env.Options{Environment: map[string]string{"DERIVE_ALWAYS_QUOTE": "maybe"}})
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	cfg, err := parseConfig([]byte(sample), env.Options{Environment: map[string]string{"DERIVE_ALWAYS_QUOTE": "true"}})
	require.NoError(t, err)
	opts, err := cfg.Options()
	require.NoError(t, err)
	e, err := New(fixture.Registry(), opts...)
	require.NoError(t, err)
	assert.Equal(t, []string{"pg", "legacy", "docs", "dynamo"}, e.Targets())
	assert.Equal(t, "pg", e.DefaultTarget())

	op := Operation{Entity: "Product", Method: "findAll"}
	tests := map[string]string{
		"pg":     `SELECT "id", "product_num", "name", "price", "category" FROM "product"`,
		"legacy": `SELECT "ID", "PRODUCT_NUM", "NAME", "PRICE", "CATEGORY" FROM "PRODUCT"`,
		"docs":   `SELECT * FROM c`,
		"dynamo": `SELECT * FROM "Product"`,
	}
	for target, want := range tests {
		t.Run(target, func(t *testing.T) {
			st, err := e.Render(target, op)
			require.NoError(t, err)
			assert.Equal(t, want, st.Text)
		})
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "syntax", yaml: "targets: ["},
		{name: "no_name", yaml: "targets: [{dialect: postgres}]"},
		{name: "no_dialect", yaml: "targets: [{name: pg}]"},
		{name: "duplicate", yaml: "targets: [{name: pg, dialect: postgres}, {name: pg, dialect: mysql}]"},
		{name: "default", yaml: "targets: [{name: pg, dialect: postgres}]\ndefault_target: my"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig([]byte(tt.yaml), env.Options{Environment: map[string]string{}})
			assert.Error(t, err)
		})
	}

	cfg := &Config{LogLevel: "loud"}
	_, err := cfg.Level()
	assert.Error(t, err)

	cfg = &Config{Targets: []TargetConfig{{Name: "x", Dialect: "mongo"}}}
	_, err = cfg.Options()
	assert.EqualError(t, err, `engine: target "x": engine: unsupported dialect "mongo"`)

	cfg = &Config{Targets: []TargetConfig{{Name: "x", Dialect: "mysql", Naming: "pascal"}}}
	_, err = cfg.Options()
	assert.Error(t, err)
}

func TestNewRenderer(t *testing.T) {
	for _, name := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite, dialect.SQLServer, dialect.Oracle, dialect.Cosmos, dialect.DynamoDB, "POSTGRES"} {
		r, err := NewRenderer(name, "", false)
		require.NoError(t, err, name)
		assert.NotEmpty(t, r.Dialect())
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "derive.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv("DERIVE_LOG_LEVEL", "error")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Len(t, cfg.Targets, 4)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Targets)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

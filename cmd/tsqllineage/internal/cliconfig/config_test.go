package cliconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	withWorkingDir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.True(t, cfg.ExtractTableReferences)
	assert.True(t, cfg.ExtractColumnReferences)
	assert.Equal(t, DefaultMaxNestedDepth, cfg.MaxNestedQueryDepth)
	assert.Equal(t, DefaultCompatLevel, cfg.CompatLevel)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	withWorkingDir(t, dir)

	path := filepath.Join(dir, "tsqllineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: json\nmax_nested_query_depth: 8\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, 8, cfg.MaxNestedQueryDepth)
	assert.Equal(t, "tsqllineage.yaml", GetConfigFileUsed())
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	withWorkingDir(t, dir)

	path := filepath.Join(dir, "tsqllineage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: json\n"), 0o644))
	t.Setenv("TSQLLINEAGE_OUTPUT", "table")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.Output)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	withWorkingDir(t, t.TempDir())
	t.Setenv("TSQLLINEAGE_OUTPUT", "table")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	require.NoError(t, flags.Set("output", "json"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
}

func TestLoad_UnchangedFlagsDoNotOverrideEnv(t *testing.T) {
	withWorkingDir(t, t.TempDir())
	t.Setenv("TSQLLINEAGE_OUTPUT", "table")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "text", "")

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.Output, "an untouched flag must not shadow an explicit env var")
}

func withWorkingDir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

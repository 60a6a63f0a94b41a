package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHelp(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantOutput  string
		expectError bool
	}{
		{name: "help flag", args: []string{"--help"}, wantOutput: "Comilla site backend"},
		{name: "short help flag", args: []string{"-h"}, wantOutput: "Comilla site backend"},
		{name: "invalid flag", args: []string{"--invalid-flag"}, wantOutput: "unknown flag: --invalid-flag", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCommand()
			buf := new(bytes.Buffer)
			root.SetOut(buf)
			root.SetErr(buf)
			root.SetArgs(tt.args)

			err := root.Execute()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, buf.String(), tt.wantOutput)
		})
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()

	for _, flag := range []string{"config", "log-level", "log-format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}

	names := map[string]bool{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "version", "healthcheck", "migrate", "user", "orphans"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("host"))
	assert.NotNil(t, serve.Flags().Lookup("port"))

	down, _, err := root.Find([]string{"migrate", "down"})
	require.NoError(t, err)
	assert.Equal(t, "1", down.Flags().Lookup("steps").DefValue)
}

func TestUserCreateRequiresFlags(t *testing.T) {
	root := newRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"user", "create", "--email", "admin@example.com"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password")
}

func TestLoadConfigFileAndFlagOverrides(t *testing.T) {
	for _, key := range []string{"ENVIRONMENT", "DATABASE_URL", "JWT_SECRET", "S3_BUCKET", "LOG_LEVEL", "LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
DATABASE_URL: postgres://localhost/comilla
JWT_SECRET: 0123456789abcdef0123456789abcdef
S3_BUCKET: comilla-images
LOG_LEVEL: warn
`), 0o600))

	cfg, err := loadConfig(&globalOptions{configPath: path, logFormat: "console"})
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/comilla", cfg.Database.URL)
	assert.Equal(t, "comilla-images", cfg.S3.Bucket)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(&globalOptions{configPath: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sitesearch.yaml")
	data := "storage:\n  driver: sqlite\n  path: " + filepath.Join(dir, "data") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestAppFlags(t *testing.T) {
	app := newApp()

	t.Run("global flags read SITESEARCH_ env vars", func(t *testing.T) {
		for _, flag := range app.Flags {
			f, ok := flag.(*cli.StringFlag)
			require.True(t, ok)
			require.Len(t, f.EnvVars, 1)
			assert.Contains(t, f.EnvVars[0], "SITESEARCH_")
		}
	})

	t.Run("reindex batch-size has default value of 100", func(t *testing.T) {
		cmd := findCommand(t, app, "reindex")
		var batchFlag *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "batch-size" {
				batchFlag = f
				break
			}
		}
		require.NotNil(t, batchFlag)
		assert.Equal(t, 100, batchFlag.Value)
	})

	t.Run("every command has an action", func(t *testing.T) {
		for _, name := range []string{"serve", "index", "index-page", "search", "stats", "reindex"} {
			assert.NotNil(t, findCommand(t, app, name).Action, name)
		}
	})
}

func TestCommandValidation(t *testing.T) {
	t.Run("search requires a query", func(t *testing.T) {
		err := newApp().Run([]string{"sitesearch", "--config", writeConfig(t), "search"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query")
	})

	t.Run("search rejects negative offset", func(t *testing.T) {
		err := newApp().Run([]string{"sitesearch", "search", "--offset", "-1", "кошка"})
		require.Error(t, err)
	})

	t.Run("index-page requires a url", func(t *testing.T) {
		err := newApp().Run([]string{"sitesearch", "--config", writeConfig(t), "index-page"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "URL")
	})

	t.Run("index requires configured sites", func(t *testing.T) {
		err := newApp().Run([]string{"sitesearch", "--config", writeConfig(t), "index"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no sites")
	})

	t.Run("missing config file", func(t *testing.T) {
		err := newApp().Run([]string{"sitesearch", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "stats"})
		require.Error(t, err)
	})
}

func TestStatsCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err := app.Run([]string{"sitesearch", "--config", writeConfig(t), "stats"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "TOTAL (0 sites)")
}

func TestSetupLogger(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"defaults", []string{"sitesearch"}, false},
		{"debug json", []string{"sitesearch", "--log-level", "DEBUG", "--log-format", "json"}, false},
		{"bad level", []string{"sitesearch", "--log-level", "verbose"}, true},
		{"bad format", []string{"sitesearch", "--log-format", "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Name:   "sitesearch",
				Flags:  newApp().Flags,
				Before: setupLogger,
				Action: func(*cli.Context) error { return nil },
			}
			err := app.Run(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnatoleLucet/reactive/internal/scenario"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "reactctl", cmd.Use)

	for _, name := range []string{"run", "validate", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunCommand(t *testing.T) {
	g := newGoldie(t)

	t.Run("coalesced writes", func(t *testing.T) {
		out, err := execute(t, "run", "testdata/counter.yaml")
		require.NoError(t, err)
		g.Assert(t, "run_counter", []byte(out))
	})

	t.Run("with metrics", func(t *testing.T) {
		out, err := execute(t, "run", "--metrics", "testdata/counter.yaml")
		require.NoError(t, err)
		g.Assert(t, "run_counter_metrics", []byte(out))
	})

	t.Run("arrays and deep watchers", func(t *testing.T) {
		out, err := execute(t, "run", "testdata/items.yaml")
		require.NoError(t, err)
		g.Assert(t, "run_items", []byte(out))
	})

	t.Run("json output", func(t *testing.T) {
		out, err := execute(t, "run", "--format", "json", "testdata/root-shape.yaml")
		require.NoError(t, err)
		g.Assert(t, "run_root_shape_json", []byte(out))
	})

	t.Run("trace mismatch", func(t *testing.T) {
		out, err := execute(t, "run", "testdata/mismatch.yaml")
		require.ErrorIs(t, err, scenario.ErrTraceMismatch)
		assert.Contains(t, out, "watch r1: 0 -> 1")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := execute(t, "run", "--format", "xml", "testdata/counter.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid format")
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reactive.toml")
		require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nasync = false\n"), 0o644))

		// synchronous flushes: one per write
		out, err := execute(t, "run", "--config", path, "testdata/mismatch.yaml")
		require.ErrorIs(t, err, scenario.ErrTraceMismatch)
		assert.Contains(t, out, "watch r1: 0 -> 1\nflush 1: r1\n")
	})

	t.Run("invalid config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reactive.toml")
		require.NoError(t, os.WriteFile(path, []byte("[scheduler]\nmax_update_count = 0\n"), 0o644))

		_, err := execute(t, "run", "--config", path, "testdata/counter.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_update_count")
	})
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, err := execute(t, "validate", "testdata/counter.yaml", "testdata/items.yaml")
		require.NoError(t, err)
		newGoldie(t).Assert(t, "validate", []byte(out))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := execute(t, "validate", "testdata/invalid.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected exactly one action")
	})
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	c, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, "development", c.Env)
	assert.Equal(t, "file", c.StorageBackend)
	assert.Equal(t, "token", c.AuthMode)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 8, c.Engine().MinSamples)
	assert.Equal(t, "MOCK-TOKEN", c.DevToken)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compass.yaml")
	yaml := "log_level: debug\ndata_dir: /var/lib/compass\nmin_samples: 10\ncors_origins: \"http://localhost:3000, https://app.example.com\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("COMPASS_LOG_LEVEL", "warn")
	t.Setenv("COMPASS_HALF_LIFE_HOURS", "36")

	c, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, "/var/lib/compass", c.DataDir)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, c.Origins())

	ec := c.Engine()
	assert.Equal(t, 10, ec.MinSamples)
	assert.Equal(t, 36.0, ec.HalfLifeHours)
	assert.Equal(t, 0.75, ec.SignificanceMargin)
}

func TestLoadFrom_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without dsn", map[string]string{"COMPASS_STORAGE_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"COMPASS_STORAGE_BACKEND": "sqlite"}},
		{"jwt without secret", map[string]string{"COMPASS_AUTH_MODE": "jwt"}},
		{"bad env", map[string]string{"COMPASS_ENV": "qa"}},
		{"negative override", map[string]string{"COMPASS_MIN_SAMPLES": "-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom("")
			assert.Error(t, err)
		})
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/assetd/server/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assetd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		content string
		check   func(t *testing.T, cfg *config.Config)
		wantErr string
	}{
		"overrides a subset of keys": {
			content: `
addr: ":8080"
storage: memory
max_files: 4
fetch_timeout: 3s
fetch_max_bytes: 1024
cors_origin: "https://app.example.com"
`,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, ":8080", cfg.Addr)
				assert.Equal(t, config.StorageMemory, cfg.Storage)
				assert.Equal(t, 4, cfg.MaxFiles)
				assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
				assert.EqualValues(t, 1024, cfg.FetchMaxBytes)
				assert.Equal(t, "https://app.example.com", cfg.CORSOrigin)
				assert.Equal(t, 3, cfg.SampleSize, "untouched keys keep their defaults")
				assert.Equal(t, "dog", cfg.FetchHint)
			},
		},
		"zero values fall back to defaults": {
			content: `
max_files: 0
sample_size: 0
fetch_hint: ""
`,
			check: func(t *testing.T, cfg *config.Config) {
				assert.Equal(t, 10, cfg.MaxFiles)
				assert.Equal(t, 3, cfg.SampleSize)
				assert.Equal(t, "dog", cfg.FetchHint)
			},
		},
		"invalid storage": {
			content: "storage: s3\n",
			wantErr: "invalid storage",
		},
		"relative public base url": {
			content: "public_base_url: /assets\n",
			wantErr: "public_base_url",
		},
		"invalid log level": {
			content: "log_level: chatty\n",
			wantErr: "invalid log_level",
		},
		"malformed yaml": {
			content: "addr: [\n",
			wantErr: "parse config file",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, tc.content))
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

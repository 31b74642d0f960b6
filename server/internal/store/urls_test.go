package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/assetd/server/internal/store"
)

func TestURLResolver(t *testing.T) {
	tests := map[string]struct {
		base    string
		key     string
		want    string
		wantErr bool
	}{
		"plain key": {
			base: "http://localhost:5000",
			key:  "1700000000000-a.jpg",
			want: "http://localhost:5000/1700000000000-a.jpg",
		},
		"trailing slash on base": {
			base: "http://localhost:5000/",
			key:  "1-b.png",
			want: "http://localhost:5000/1-b.png",
		},
		"base with path prefix": {
			base: "https://cdn.example.com/assets",
			key:  "1-c.gif",
			want: "https://cdn.example.com/assets/1-c.gif",
		},
		"key is escaped": {
			base: "http://localhost:5000",
			key:  "1-a b.jpg",
			want: "http://localhost:5000/1-a%20b.jpg",
		},
		"relative base": {
			base:    "/assets",
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := store.NewURLResolver(tc.base)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, r.URLFor(tc.key))
		})
	}
}

func TestValidKey(t *testing.T) {
	assert.True(t, store.ValidKey("1-a.jpg"))
	assert.False(t, store.ValidKey(""))
	assert.False(t, store.ValidKey(".tmp-123"))
	assert.False(t, store.ValidKey("../etc/passwd"))
	assert.False(t, store.ValidKey(`a\b`))
}

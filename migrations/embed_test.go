package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{driver: "sqlite", want: "sqlite"},
		{driver: "mysql", want: "mysql"},
		{driver: "postgres", want: "postgresql"},
		{driver: "oracle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := Dir(tt.driver)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	for _, dir := range []string{"sqlite", "mysql", "postgresql"} {
		ups, err := fs.Glob(files, dir+"/*.up.sql")
		require.NoError(t, err)
		downs, err := fs.Glob(files, dir+"/*.down.sql")
		require.NoError(t, err)

		assert.Len(t, ups, 3, dir)
		assert.Len(t, downs, len(ups), dir)
	}
}

func TestSource(t *testing.T) {
	src, err := Source("sqlite")
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	_, err = Source("oracle")
	require.Error(t, err)
}

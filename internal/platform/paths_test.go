package platform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultModelDirDarwin(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("darwin", "/Users/rin", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/Users/rin", "Library", "Application Support", "termina", "models"), dir)
}

func TestDefaultModelDirLinuxXDG(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("linux", "/home/rin", "/home/rin/.data")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/home/rin/.data", "termina", "models"), dir)
}

func TestDefaultModelDirLinuxFallback(t *testing.T) {
	t.Parallel()

	dir, err := DefaultModelDirFor("linux", "/home/rin", "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/home/rin", ".local", "share", "termina", "models"), dir)
}

func TestDefaultDataDirRejectsEmptyHome(t *testing.T) {
	t.Parallel()

	_, err := DefaultDataDirFor("darwin", "", "")
	require.Error(t, err)
}

func TestDefaultDataDirUnsupportedOS(t *testing.T) {
	t.Parallel()

	_, err := DefaultDataDirFor("plan9", "/home/rin", "")
	require.Error(t, err)
}

func TestResolveModelDirOverride(t *testing.T) {
	t.Parallel()

	dir, err := ResolveModelDir("/tmp/models/")
	require.NoError(t, err)
	require.Equal(t, filepath.Clean("/tmp/models/"), dir)
}

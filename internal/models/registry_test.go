package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamesSorted(t *testing.T) {
	t.Parallel()

	names := Names()
	require.Equal(t, []string{"base", "large-v3", "medium", "small", "tiny"}, names)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	model, ok := Lookup("base")
	require.True(t, ok)
	require.Equal(t, "ggml-base.bin", model.FileName)
	require.Len(t, model.SHA256, 64)

	_, ok = Lookup("super-huge")
	require.False(t, ok)
}

func TestStorePathUsesGGMLNaming(t *testing.T) {
	t.Parallel()

	store := NewStore("/tmp/models")
	require.Equal(t, filepath.Join("/tmp/models", "ggml-base.bin"), store.Path("base"))
	require.Equal(t, filepath.Join("/tmp/models", "ggml-custom.bin"), store.Path("custom"))
}

func TestInstalledScansStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	require.Empty(t, store.Installed())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ggml-tiny.bin"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ggml-base.bin"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.Equal(t, []string{"base", "tiny"}, store.Installed())
	require.True(t, store.Has("tiny"))
	require.False(t, store.Has("small"))
}

func TestVerifyRegisteredModelChecksSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)

	// A few bytes is nowhere near the expected 39MB.
	require.NoError(t, os.WriteFile(store.Path("tiny"), []byte("stub"), 0o644))
	require.False(t, store.Verify("tiny"))
}

func TestVerifyUnregisteredModelNeedsContentOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, os.WriteFile(store.Path("custom"), []byte("weights"), 0o644))
	require.True(t, store.Verify("custom"))

	require.NoError(t, os.WriteFile(store.Path("empty"), nil, 0o644))
	require.False(t, store.Verify("empty"))
}

func TestBestInstalledPrefersCapableModels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	require.Empty(t, store.BestInstalled())

	require.NoError(t, os.WriteFile(store.Path("tiny"), []byte("x"), 0o644))
	require.Equal(t, "tiny", store.BestInstalled())

	require.NoError(t, os.WriteFile(store.Path("medium"), []byte("x"), 0o644))
	require.Equal(t, "medium", store.BestInstalled())
}

func TestCleanCorruptedRemovesUndersizedModels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(store.Path("base"), []byte("truncated"), 0o644))

	require.Equal(t, 1, store.CleanCorrupted())
	require.False(t, store.Has("base"))
}

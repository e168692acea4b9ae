package tray

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/termina-app/termina/internal/models"
)

func TestProviderLabel(t *testing.T) {
	t.Parallel()

	local := ProviderEntry{Name: "whisper-cli", Display: "Whisper.cpp (base)", Avail: true}
	cloud := ProviderEntry{Name: "openai", Display: "OpenAI Whisper API", Internet: true, Avail: true}

	require.Equal(t, "◉ 💻 Whisper.cpp (base)", providerLabel(local, "whisper-cli"))
	require.Equal(t, "○ 💻 Whisper.cpp (base)", providerLabel(local, "openai"))
	require.Equal(t, "○ 🌐 OpenAI Whisper API", providerLabel(cloud, "whisper-cli"))
	require.Equal(t, "◉ 🌐 OpenAI Whisper API", providerLabel(cloud, "openai"))
}

func TestModelLabelMarksMissingDownloads(t *testing.T) {
	t.Parallel()

	store := models.NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path("base"), []byte("ggml"), 0o644))

	m := New(Options{Store: store, Model: "base"})
	require.Equal(t, "◉ base", m.modelLabel("base"))
	require.Equal(t, "○ small (not downloaded)", m.modelLabel("small"))
}

package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanRemovesTimestampRanges(t *testing.T) {
	t.Parallel()

	got := Clean("[00:00:00.000 --> 00:00:02.000] hello")
	require.Equal(t, "hello", got)
}

func TestCleanRemovesMultipleTimestamps(t *testing.T) {
	t.Parallel()

	got := Clean("[00:00:00.000 --> 00:00:02.000] hello [00:00:02.000 --> 00:00:04.000] world")
	require.Equal(t, "hello world", got)
}

func TestCleanRemovesAnnotations(t *testing.T) {
	t.Parallel()

	require.Equal(t, "こんにちは", Clean("(音楽) こんにちは (拍手)"))
	require.Equal(t, "over and out", Clean("over (static) and out"))
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a b c", Clean("  a \t b\n\nc  "))
}

func TestCleanEmptyInput(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Clean(""))
	require.Equal(t, "", Clean("   \n\t "))
	require.Equal(t, "", Clean("(music)"))
}

func TestCleanIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"[00:00:00.000 --> 00:00:02.000] hello (noise) world",
		"plain text already",
		"",
		"  spaced   out  ",
		"(笑) 今日は晴れです",
	}
	for _, in := range inputs {
		once := Clean(in)
		require.Equal(t, once, Clean(once), "input %q", in)
	}
}

func TestCleanKeepsSquareBracketTokens(t *testing.T) {
	t.Parallel()

	// Non-timestamp bracket content is engine signal, not a timestamp.
	require.Equal(t, "[BLANK_AUDIO]", Clean("[BLANK_AUDIO]"))
}

func TestIsBlank(t *testing.T) {
	t.Parallel()

	require.True(t, IsBlank(""))
	require.True(t, IsBlank("  \t"))
	require.True(t, IsBlank("[blank_audio]"))
	require.False(t, IsBlank("hello"))
}

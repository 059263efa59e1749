package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRewritePreservesCommentsAndUpdatesKnownKnobs(t *testing.T) {
	dir := t.TempDir()
	path := writeTempConfig(t, dir, "swap.conf", `# top comment
swap-evict-step-max-subkeys 2048

# another comment
swap-ratelimit-policy reject
`)
	c := New()
	require.NoError(t, c.Load(path))
	require.NoError(t, c.Set("swap-evict-step-max-subkeys", "4096"))

	require.NoError(t, c.Rewrite())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(out)
	require.Contains(t, body, "# top comment")
	require.Contains(t, body, "# another comment")
	require.Contains(t, body, "swap-evict-step-max-subkeys 4096")
	require.NotContains(t, body, "swap-evict-step-max-subkeys 2048")
}

func TestRewriteAppendsChangedKnobNotPresentInFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTempConfig(t, dir, "swap.conf", "swap-ratelimit-policy reject\n")

	c := New()
	require.NoError(t, c.Load(path))
	require.NoError(t, c.Set("swap-bitmap-subkey-size", "8192"))

	require.NoError(t, c.Rewrite())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(out), "swap-bitmap-subkey-size 8192")
}

func TestRewriteBlanksDuplicateKnobLines(t *testing.T) {
	dir := t.TempDir()
	path := writeTempConfig(t, dir, "swap.conf", "swap-ratelimit-policy reject\nswap-ratelimit-policy pause\n")

	c := New()
	require.NoError(t, c.Load(path))
	require.NoError(t, c.Rewrite())

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := []byte(out)
	require.Contains(t, string(lines), "swap-ratelimit-policy pause")
	count := 0
	for _, l := range splitLines(string(lines)) {
		if l == "swap-ratelimit-policy pause" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func splitLines(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == '\n' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func TestRewriteWithoutLoadReturnsError(t *testing.T) {
	c := New()
	require.Error(t, c.Rewrite())
}

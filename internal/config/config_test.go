package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadAppliesKnownKnobs(t *testing.T) {
	c := New()
	path := writeTempConfig(t, t.TempDir(), "swap.conf", `
# comment
swap-evict-step-max-subkeys 2048
swap-ratelimit-policy reject
`)
	require.NoError(t, c.Load(path))
	require.EqualValues(t, 2048, c.SwapEvictStepMaxSubkeys)
	require.Equal(t, RatelimitReject, c.SwapRatelimitPolicy)
}

func TestLoadRejectsUnknownDirective(t *testing.T) {
	c := New()
	path := writeTempConfig(t, t.TempDir(), "swap.conf", "not-a-real-knob yes\n")
	err := c.Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown directive")
}

func TestLoadRejectsOutOfRangeValue(t *testing.T) {
	c := New()
	path := writeTempConfig(t, t.TempDir(), "swap.conf", "swap-threads 1\n")
	err := c.Load(path)
	require.Error(t, err)
}

func TestLoadFollowsInclude(t *testing.T) {
	dir := t.TempDir()
	writeTempConfig(t, dir, "included.conf", "swap-threads 8\n")
	main := writeTempConfig(t, dir, "main.conf", "include included.conf\nswap-bitmap-subkey-size 1024\n")

	c := New()
	require.NoError(t, c.Load(main))
	require.EqualValues(t, 8, c.SwapThreads)
	require.EqualValues(t, 1024, c.SwapBitmapSubkeySize)
}

func TestLoadCollectsMultiArgDirectivesVerbatim(t *testing.T) {
	c := New()
	path := writeTempConfig(t, t.TempDir(), "swap.conf", `
save 3600 1
save 300 100
bind 127.0.0.1 ::1
rename-command FLUSHALL ""
`)
	require.NoError(t, c.Load(path))

	saves := c.Directives("save")
	require.Len(t, saves, 2)
	require.Equal(t, []string{"3600", "1"}, saves[0])
	require.Equal(t, []string{"300", "100"}, saves[1])

	binds := c.Directives("bind")
	require.Equal(t, [][]string{{"127.0.0.1", "::1"}}, binds)
}

func TestLoadHonorsQuotedValues(t *testing.T) {
	c := New()
	path := writeTempConfig(t, t.TempDir(), "swap.conf", `rename-command CONFIG "my config"`+"\n")
	require.NoError(t, c.Load(path))
	require.Equal(t, [][]string{{"CONFIG", "my config"}}, c.Directives("rename-command"))
}

func TestSetRejectsImmutableKnob(t *testing.T) {
	c := New()
	err := c.Set("swap-threads", "8")
	require.Error(t, err)
	require.Contains(t, err.Error(), "immutable")
}

func TestSetRejectsUnknownKnob(t *testing.T) {
	c := New()
	require.Error(t, c.Set("does-not-exist", "1"))
}

func TestSetMutatesRegisteredField(t *testing.T) {
	c := New()
	require.NoError(t, c.Set("swap-evict-step-max-subkeys", "256"))
	require.EqualValues(t, 256, c.SwapEvictStepMaxSubkeys)
}

func TestRateLimitThresholdsHaveConservativeDefaults(t *testing.T) {
	c := New()
	require.EqualValues(t, 100<<20, c.SwapInprogressMemorySlowdown)
	require.EqualValues(t, 250<<20, c.SwapInprogressMemoryStop)
}

func TestGetMatchesGlobPattern(t *testing.T) {
	c := New()
	kvs := c.Get("swap-evict-step-max-*")
	require.Len(t, kvs, 2)
	names := map[string]bool{}
	for _, kv := range kvs {
		names[kv.Name] = true
	}
	require.True(t, names["swap-evict-step-max-subkeys"])
	require.True(t, names["swap-evict-step-max-memory"])
}

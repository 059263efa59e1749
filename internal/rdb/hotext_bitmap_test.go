package rdb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadHotBitmapExtensionRoundTrip(t *testing.T) {
	buckets := map[uint32][]byte{
		0: bytes.Repeat([]byte{0xAA}, 4096),
		2: bytes.Repeat([]byte{0xBB}, 4096),
	}

	var buf bytes.Buffer
	stats, err := SaveHotBitmapExtension(&buf, []byte("bm"), buckets)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Keys)
	require.Equal(t, 2, stats.Rows)

	key, loaded, err := LoadHotBitmapExtension(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte("bm"), key)
	require.Equal(t, buckets, loaded)
}

func TestLoadHotBitmapExtensionRejectsWrongOpcode(t *testing.T) {
	_, _, err := LoadHotBitmapExtension(bytes.NewReader([]byte{opEnd}))
	require.Error(t, err)
}

package rdb

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
)

func TestSaveRordbLoadRordbInstallsFiles(t *testing.T) {
	src := newTestEngine(t)
	putColdHash(t, src, 0, []byte("h"), 1, map[string]string{"f1": "v1"})

	checkpointDir := t.TempDir()
	var buf bytes.Buffer
	snapshotDir, err := SaveRordb(&buf, src, checkpointDir, 1, nil, Options{})
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(snapshotDir) || snapshotDir != "")
	require.Greater(t, buf.Len(), 0)

	destDir := filepath.Join(t.TempDir(), "installed")
	installed, err := LoadRordb(&buf, destDir, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, installed.Close()) })

	v, err := installed.Get(codec.CFData, codec.EncodeDataKey(0, []byte("h"), 1, []byte("f1")))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestSaveRordbCompressedRoundTrip(t *testing.T) {
	src := newTestEngine(t)
	putColdHash(t, src, 0, []byte("h"), 1, map[string]string{"f1": "v1", "f2": "v2"})

	checkpointDir := t.TempDir()
	var buf bytes.Buffer
	_, err := SaveRordb(&buf, src, checkpointDir, 2, nil, Options{Compress: true})
	require.NoError(t, err)

	destDir := filepath.Join(t.TempDir(), "installed")
	installed, err := LoadRordb(&buf, destDir, Options{Compress: true})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, installed.Close()) })

	v, err := installed.Get(codec.CFData, codec.EncodeDataKey(0, []byte("h"), 1, []byte("f2")))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}

package database

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) PreferenceStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:", log.New(os.Stderr, "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEncodingForUnknownTrack(t *testing.T) {
	store := newTestStore(t)

	enc, err := store.EncodingFor("/music/unknown.mp3")

	require.NoError(t, err)
	assert.Equal(t, "", enc)
}

func TestSetAndGetEncoding(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetEncoding("/music/song.mp3", "gbk"))

	enc, err := store.EncodingFor("/music/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "gbk", enc)
}

func TestSetEncodingOverwrites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetEncoding("/music/song.mp3", "gbk"))
	require.NoError(t, store.SetEncoding("/music/song.mp3", "shift_jis"))

	enc, err := store.EncodingFor("/music/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "shift_jis", enc)
}

func TestStorePersistsAcrossConnections(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "prefs.db")
	logger := log.New(os.Stderr, "", 0)

	store, err := NewSQLiteStore(dbPath, logger)
	require.NoError(t, err)
	require.NoError(t, store.SetEncoding("/music/song.mp3", "big5"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dbPath, logger)
	require.NoError(t, err)
	defer reopened.Close()

	enc, err := reopened.EncodingFor("/music/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "big5", enc)
}

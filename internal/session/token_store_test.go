package session

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/companion/internal/security"
)

func TestFileTokenStore_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileTokenStore(path, nil)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("jwt"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestFileTokenStore_Sealed(t *testing.T) {
	sealer, err := security.NewTokenSealer(bytes.Repeat([]byte{9}, 32))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "token")
	store := NewFileTokenStore(path, sealer)
	require.NoError(t, store.Save("jwt"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "jwt")

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)
}

func TestFileTokenStore_WrongKeyIsAnError(t *testing.T) {
	a, _ := security.NewTokenSealer(bytes.Repeat([]byte{1}, 32))
	b, _ := security.NewTokenSealer(bytes.Repeat([]byte{2}, 32))
	path := filepath.Join(t.TempDir(), "token")

	require.NoError(t, NewFileTokenStore(path, a).Save("jwt"))
	_, err := NewFileTokenStore(path, b).Load()
	assert.ErrorIs(t, err, security.ErrCorruptToken)
}

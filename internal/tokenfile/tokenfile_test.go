package tokenfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestLoad_FileNotFound(t *testing.T) {
	tok, err := Load("/nonexistent/path/token.json")
	assert.Nil(t, tok)
	assert.NoError(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "user.json")

	expiry := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, Save(path, &oauth2.Token{
		AccessToken: "access-123",
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, "alice@contoso.com"))

	tok, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "access-123", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.True(t, tok.Expiry.Equal(expiry))
}

func TestSave_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, Save(path, &oauth2.Token{AccessToken: "x"}, ""))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), info.Mode().Perm())

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_MissingAccessToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":{"token_type":"Bearer"}}`), 0o600))

	tok, err := Load(path)
	assert.Nil(t, tok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access token")
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

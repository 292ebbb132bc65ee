package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/Another0Noob/mangadex-progress/internal/mangadexapi"
)

var _ mangadexapi.Store = (*CredentialFile)(nil)

const sampleAuth = `[mangadex]
username = reader
password = s3cret#1;x
client_id = personal-client
client_secret = hush
access_token = acc-old

[other]
keep = me
`

func TestLoadCredentials(t *testing.T) {
	f, err := LoadCredentials(writeFile(t, "auth.ini", sampleAuth))
	require.NoError(t, err)

	creds := mangadexapi.LoadCredentials(f)
	assert.Equal(t, mangadexapi.Credentials{
		Username:     "reader",
		Password:     "s3cret#1;x",
		ClientID:     "personal-client",
		ClientSecret: "hush",
	}, creds)

	_, ok := f.Get(mangadexapi.KeyRefreshToken)
	assert.False(t, ok)
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	f, err := LoadCredentials(filepath.Join(t.TempDir(), "auth.ini"))
	require.NoError(t, err)

	_, ok := f.Get(mangadexapi.KeyUsername)
	assert.False(t, ok)
}

func TestLoadCredentialsEnvOverride(t *testing.T) {
	t.Setenv("MANGADEX_PASSWORD", "from-env")
	t.Setenv("MANGADEX_REFRESH_TOKEN", "ref-env")

	f, err := LoadCredentials(writeFile(t, "auth.ini", sampleAuth))
	require.NoError(t, err)

	v, _ := f.Get(mangadexapi.KeyPassword)
	assert.Equal(t, "from-env", v)
	v, _ = f.Get(mangadexapi.KeyRefreshToken)
	assert.Equal(t, "ref-env", v)
}

func TestPersistKeepsOtherKeys(t *testing.T) {
	path := writeFile(t, "auth.ini", sampleAuth)
	f, err := LoadCredentials(path)
	require.NoError(t, err)

	f.Set(mangadexapi.KeyAccessToken, "acc-new")
	f.Set(mangadexapi.KeyRefreshToken, "ref-new")
	f.Set(mangadexapi.KeyUsername, "not-persisted")
	require.NoError(t, f.Persist(mangadexapi.KeyAccessToken, mangadexapi.KeyRefreshToken))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := LoadCredentials(path)
	require.NoError(t, err)
	for key, want := range map[string]string{
		mangadexapi.KeyAccessToken:  "acc-new",
		mangadexapi.KeyRefreshToken: "ref-new",
		mangadexapi.KeyUsername:     "reader",
		mangadexapi.KeyPassword:     "s3cret#1;x",
	} {
		got, _ := reloaded.Get(key)
		assert.Equal(t, want, got, key)
	}

	raw, err := ini.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "me", raw.Section("other").Key("keep").String())
}

func TestPersistCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.ini")
	f, err := LoadCredentials(path)
	require.NoError(t, err)

	f.Set(mangadexapi.KeyAccessToken, "acc-1")
	require.NoError(t, f.Persist(mangadexapi.KeyAccessToken))

	reloaded, err := LoadCredentials(path)
	require.NoError(t, err)
	got, _ := reloaded.Get(mangadexapi.KeyAccessToken)
	assert.Equal(t, "acc-1", got)
}

func TestPersistKeepsQuotedValues(t *testing.T) {
	path := writeFile(t, "auth.ini", "[mangadex]\npassword = \"quoted\"\nclient_secret = `tick#;`\n")
	f, err := LoadCredentials(path)
	require.NoError(t, err)

	v, _ := f.Get(mangadexapi.KeyPassword)
	assert.Equal(t, `"quoted"`, v)

	f.Set(mangadexapi.KeyAccessToken, "acc-1")
	require.NoError(t, f.Persist(mangadexapi.KeyAccessToken))

	reloaded, err := LoadCredentials(path)
	require.NoError(t, err)
	v, _ = reloaded.Get(mangadexapi.KeyPassword)
	assert.Equal(t, `"quoted"`, v)
	v, _ = reloaded.Get(mangadexapi.KeyAccessToken)
	assert.Equal(t, "acc-1", v)
}

func TestPersistRejectsUnstorableValue(t *testing.T) {
	path := writeFile(t, "auth.ini", sampleAuth)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	f, err := LoadCredentials(path)
	require.NoError(t, err)

	f.Set(mangadexapi.KeyPassword, `"""`)
	err = f.Persist(mangadexapi.KeyPassword)
	assert.ErrorContains(t, err, "cannot be stored")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

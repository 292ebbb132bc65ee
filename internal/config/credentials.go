package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/Another0Noob/mangadex-progress/internal/mangadexapi"
)

const (
	credentialSection = "mangadex"
	credentialPerm    = 0o600

	// envPrefix names the environment variables that override file values,
	// e.g. MANGADEX_USERNAME.
	envPrefix = "MANGADEX_"
)

var credentialKeys = []string{
	mangadexapi.KeyUsername,
	mangadexapi.KeyPassword,
	mangadexapi.KeyClientID,
	mangadexapi.KeyClientSecret,
	mangadexapi.KeyAccessToken,
	mangadexapi.KeyRefreshToken,
}

// CredentialFile is the [mangadex] section of an ini file holding
// credentials and tokens. It implements mangadexapi.Store.
type CredentialFile struct {
	path   string
	values map[string]string
}

var iniOptions = ini.LoadOptions{
	Loose:                   true,
	IgnoreInlineComment:     true,
	PreserveSurroundedQuote: true,
}

func loadIni(source any) (*ini.File, error) {
	return ini.LoadSources(iniOptions, source)
}

// LoadCredentials reads path. A missing file yields an empty store that
// Persist will create. Values are taken verbatim: surrounding quotes and
// characters such as # or ; are part of the value.
func LoadCredentials(path string) (*CredentialFile, error) {
	cfg, err := loadIni(path)
	if err != nil {
		return nil, fmt.Errorf("load auth config %s: %w", path, err)
	}

	f := &CredentialFile{path: path, values: make(map[string]string)}
	for _, key := range cfg.Section(credentialSection).Keys() {
		f.values[key.Name()] = key.String()
	}
	for _, key := range credentialKeys {
		if v, ok := os.LookupEnv(envPrefix + strings.ToUpper(key)); ok {
			f.values[key] = v
		}
	}
	return f, nil
}

func (f *CredentialFile) Path() string {
	return f.path
}

func (f *CredentialFile) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *CredentialFile) Set(key, value string) {
	f.values[key] = value
}

// Persist rewrites the file with the current values of keys. Other keys and
// sections already in the file are kept.
func (f *CredentialFile) Persist(keys ...string) error {
	cfg, err := loadIni(f.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", f.path, err)
	}

	sec := cfg.Section(credentialSection)
	for _, key := range keys {
		if v, ok := f.values[key]; ok {
			sec.Key(key).SetValue(v)
		}
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}

	// Refuse to write a file that would not read back the same.
	check, err := loadIni(buf.Bytes())
	if err != nil {
		return fmt.Errorf("encode %s: values cannot be stored in ini format: %w", f.path, err)
	}
	for _, key := range keys {
		want, ok := f.values[key]
		if !ok {
			continue
		}
		if got := check.Section(credentialSection).Key(key).String(); got != want {
			return fmt.Errorf("encode %s: value of %s cannot be stored in ini format", f.path, key)
		}
	}
	if err := os.WriteFile(f.path, buf.Bytes(), credentialPerm); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

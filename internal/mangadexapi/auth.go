package mangadexapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Keys under which credentials and tokens are kept in a Store.
const (
	KeyUsername     = "username"
	KeyPassword     = "password"
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Store is a durable key-value store for credentials and tokens.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	// Persist writes the current values of keys to durable storage,
	// keeping every other key already stored there.
	Persist(keys ...string) error
}

// LoadCredentials reads the password grant inputs from store.
func LoadCredentials(store Store) Credentials {
	get := func(key string) string {
		v, _ := store.Get(key)
		return v
	}
	return Credentials{
		Username:     get(KeyUsername),
		Password:     get(KeyPassword),
		ClientID:     get(KeyClientID),
		ClientSecret: get(KeyClientSecret),
	}
}

// TokenManager owns the access/refresh token lifecycle.
//
// Authenticate performs a password grant, Refresh a refresh grant. Neither
// escalates to the other: callers that get a 401 decide whether to refresh,
// and a failed refresh requires a new Authenticate.
type TokenManager struct {
	transport

	// mu serialises exchanges so two callers never refresh at once.
	mu      sync.Mutex
	store   Store
	authURL string
}

// BearerToken returns the Authorization header value for the stored access token.
func (tm *TokenManager) BearerToken() (string, error) {
	access, ok := tm.store.Get(KeyAccessToken)
	if !ok || access == "" {
		return "", ErrNoToken
	}
	return "Bearer " + access, nil
}

// Authenticate exchanges creds for a fresh token pair and persists it.
// When only persisting fails, the new pair is returned with the error and
// stays in use through the store for the rest of the process.
func (tm *TokenManager) Authenticate(ctx context.Context, creds Credentials) (Token, error) {
	if missing := creds.missing(); len(missing) > 0 {
		return Token{}, missingConfig(missing)
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", creds.Username)
	form.Set("password", creds.Password)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	tm.mu.Lock()
	defer tm.mu.Unlock()

	token, err := tm.exchange(ctx, "authenticate", form)
	if err != nil {
		return Token{}, err
	}
	if token.RefreshToken == "" {
		return Token{}, &APIError{Op: "authenticate", Message: "response missing refresh_token", Err: ErrAuth}
	}

	tm.store.Set(KeyAccessToken, token.AccessToken)
	tm.store.Set(KeyRefreshToken, token.RefreshToken)
	if err := tm.store.Persist(KeyAccessToken, KeyRefreshToken); err != nil {
		return token, fmt.Errorf("persist tokens: %w", err)
	}

	tm.log.Info().Msg("Authenticated with MangaDex")
	return token, nil
}

// Refresh exchanges the stored refresh token for a new access token. The
// refresh token is replaced only when the server rotates it. A persist
// failure is handled as in Authenticate.
func (tm *TokenManager) Refresh(ctx context.Context) (Token, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	refresh, ok := tm.store.Get(KeyRefreshToken)
	if !ok || refresh == "" {
		return Token{}, ErrNoRefreshToken
	}

	clientID, _ := tm.store.Get(KeyClientID)
	clientSecret, _ := tm.store.Get(KeyClientSecret)
	var missing []string
	if clientID == "" {
		missing = append(missing, KeyClientID)
	}
	if clientSecret == "" {
		missing = append(missing, KeyClientSecret)
	}
	if len(missing) > 0 {
		return Token{}, missingConfig(missing)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refresh)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	token, err := tm.exchange(ctx, "refresh token", form)
	if err != nil {
		return Token{}, err
	}

	keys := []string{KeyAccessToken}
	tm.store.Set(KeyAccessToken, token.AccessToken)
	if token.RefreshToken != "" {
		tm.store.Set(KeyRefreshToken, token.RefreshToken)
		keys = append(keys, KeyRefreshToken)
	} else {
		token.RefreshToken = refresh
	}
	if err := tm.store.Persist(keys...); err != nil {
		return token, fmt.Errorf("persist tokens: %w", err)
	}

	tm.log.Info().Bool("rotated", len(keys) > 1).Msg("Refreshed access token")
	return token, nil
}

func (tm *TokenManager) exchange(ctx context.Context, op string, form url.Values) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.send(req)
	if err != nil {
		return Token{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Token{}, &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, resp.Body),
			Err:        ErrAuth,
		}
	}

	var token Token
	if err := json.Unmarshal(resp.Body, &token); err != nil {
		return Token{}, &APIError{Op: op, Message: fmt.Sprintf("decode token: %v", err), Err: ErrAuth}
	}
	if token.AccessToken == "" {
		return Token{}, &APIError{Op: op, Message: "response missing access_token", Err: ErrAuth}
	}
	return token, nil
}

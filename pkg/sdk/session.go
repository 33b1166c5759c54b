package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type SessionEvent int

const (
	SessionActive SessionEvent = iota + 1
	SessionInactive
)

func (e SessionEvent) String() string {
	switch e {
	case SessionActive:
		return "active"
	case SessionInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Session owns the bearer credential. It is the only writer of the
// credential store and the single call path for authorized requests, so
// a 401 from any endpoint ends the session the same way.
//
// Session is safe for concurrent use.
type Session struct {
	client *Client
	store  CredentialStore

	// persistMu orders store writes with the token changes they belong
	// to. It is taken before mu.
	persistMu sync.Mutex

	mu        sync.Mutex
	token     string
	listeners []func(SessionEvent)
}

// NewSession restores any credential already held by store. A store read
// error is returned; a missing credential is not an error.
func (c *Client) NewSession(store CredentialStore) (*Session, error) {
	token, ok, err := store.GetCredential()
	if err != nil {
		return nil, fmt.Errorf("sdk: loading credential: %w", err)
	}
	s := &Session{client: c, store: store}
	if ok {
		s.token = token
	}
	return s, nil
}

func (s *Session) Client() *Client {
	return s.client
}

// Credential returns the held token, if any.
func (s *Session) Credential() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

func (s *Session) Active() bool {
	_, ok := s.Credential()
	return ok
}

// OnChange registers fn to be called on every became-active and
// became-inactive transition. fn runs on the goroutine that caused the
// transition, outside the session lock.
func (s *Session) OnChange(fn func(SessionEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Login exchanges a username and password for a credential. The request
// is form-encoded; any non-2xx answer is ErrInvalidCredentials and the
// body is not inspected.
func (s *Session) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	const path = "/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &FetchError{Kind: FetchTransport, Path: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{Kind: FetchTransport, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", ErrInvalidCredentials
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &FetchError{Kind: FetchTransport, Path: path, Err: fmt.Errorf("decoding token: %w", err)}
	}
	if token.AccessToken == "" {
		return "", &FetchError{Kind: FetchTransport, Path: path, Err: fmt.Errorf("response has no access_token")}
	}

	s.persistMu.Lock()
	if err := s.store.SaveCredential(token.AccessToken); err != nil {
		// The session still works for this process; it just won't
		// survive a restart.
		s.client.logger.Warn("failed to persist credential", "error", err)
	}
	s.mu.Lock()
	wasActive := s.token != ""
	s.token = token.AccessToken
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	s.persistMu.Unlock()

	s.client.logger.Info("logged in", "username", username)
	if !wasActive {
		notify(listeners, SessionActive)
	}
	return token.AccessToken, nil
}

// Logout drops the credential locally. The backend is not contacted.
// SessionInactive is raised only when a session was active, so calling
// Logout twice yields one event.
func (s *Session) Logout() {
	s.persistMu.Lock()
	s.mu.Lock()
	wasActive := s.token != ""
	s.token = ""
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if err := s.store.DeleteCredential(); err != nil {
		s.client.logger.Warn("failed to delete stored credential", "error", err)
	}
	s.persistMu.Unlock()

	if wasActive {
		s.client.logger.Info("logged out")
		notify(listeners, SessionInactive)
	}
}

// Do issues an authorized request. With no credential it fails with
// ErrUnauthenticated before touching the network. Content-Type defaults
// to JSON and header may override it, but never Authorization.
//
// A 401 response destroys the credential and raises SessionInactive
// before the response is returned; the response itself is not turned into
// an error here.
func (s *Session) Do(ctx context.Context, method, path string, body io.Reader, header http.Header) (*http.Response, error) {
	token, ok := s.Credential()
	if !ok {
		return nil, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, body)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, Path: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for key, values := range header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchTransport, Path: path, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		s.invalidate(token, path)
	}
	return resp, nil
}

// invalidate ends the session if it still holds the token that was
// rejected. Concurrent 401s for the same token produce one event, and a
// late 401 for an old token never logs out a newer session.
func (s *Session) invalidate(rejected, path string) {
	s.persistMu.Lock()
	s.mu.Lock()
	if s.token == "" || s.token != rejected {
		s.mu.Unlock()
		s.persistMu.Unlock()
		return
	}
	s.token = ""
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if err := s.store.DeleteCredential(); err != nil {
		s.client.logger.Warn("failed to delete stored credential", "error", err)
	}
	s.persistMu.Unlock()

	s.client.logger.Warn("credential rejected by server, session ended", "path", path)
	notify(listeners, SessionInactive)
}

func (s *Session) snapshotListeners() []func(SessionEvent) {
	return slices.Clone(s.listeners)
}

func notify(listeners []func(SessionEvent), event SessionEvent) {
	for _, fn := range listeners {
		fn(event)
	}
}

func (s *Session) getJSON(ctx context.Context, path string, target any) error {
	resp, err := s.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(path, resp, target)
}

func (s *Session) postJSON(ctx context.Context, path string, payload any, target any) error {
	body, err := encodeBody(payload)
	if err != nil {
		return &FetchError{Kind: FetchTransport, Path: path, Err: err}
	}
	resp, err := s.Do(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(path, resp, target)
}

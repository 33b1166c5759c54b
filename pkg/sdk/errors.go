package sdk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Login when the backend rejects
	// the username/password pair.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUnauthenticated is returned, without any network I/O, by every
	// authorized call made while no credential is held.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrInvalidated marks a call that observed a 401 and ended the session.
	ErrInvalidated = errors.New("session invalidated by server")
)

type FetchKind int

const (
	// FetchTransport covers network failures and undecodable bodies.
	FetchTransport FetchKind = iota
	// FetchServer is a non-2xx response.
	FetchServer
)

func (k FetchKind) String() string {
	if k == FetchServer {
		return "server"
	}
	return "transport"
}

type FetchError struct {
	Kind   FetchKind
	Path   string
	Status int
	Detail string
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == FetchServer && e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Detail)
	case e.Kind == FetchServer:
		return fmt.Sprintf("%s: HTTP error %d", e.Path, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: transport error", e.Path)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Message is the text shown to a user: the backend detail when present,
// otherwise the full error.
func Message(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Detail != "" {
		return fetchErr.Detail
	}
	return err.Error()
}

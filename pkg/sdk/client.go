package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the root of the hosting API (e.g. "http://localhost:8000/api").
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with a 15s
	// timeout is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is the unauthenticated side of the hosting API. Authenticated
// calls go through a Session created from it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("sdk: BaseURL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("sdk: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register creates an account. It does not log in; the backend's detail
// message is surfaced as the error on failure.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var result RegisterResponse
	if err := c.postJSON(ctx, "/register", req, &result); err != nil {
		return nil, err
	}
	c.logger.Info("registered account", "username", req.Username)
	return &result, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, target any) error {
	body, err := encodeBody(payload)
	if err != nil {
		return &FetchError{Kind: FetchTransport, Path: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &FetchError{Kind: FetchTransport, Path: path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Kind: FetchTransport, Path: path, Err: err}
	}
	defer resp.Body.Close()

	return decodeResponse(path, resp, target)
}

func encodeBody(payload any) (io.Reader, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// decodeResponse maps a response onto target, turning non-2xx statuses
// into a FetchError carrying the backend's detail message when present.
func decodeResponse(path string, resp *http.Response, target any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		fetchErr := &FetchError{
			Kind:   FetchServer,
			Path:   path,
			Status: resp.StatusCode,
			Detail: extractDetail(bodyBytes),
		}
		if resp.StatusCode == http.StatusUnauthorized {
			fetchErr.Err = ErrInvalidated
		}
		return fetchErr
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &FetchError{Kind: FetchTransport, Path: path, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// extractDetail pulls the "detail" field out of an error body. FastAPI
// style backends send either a string or a list of validation objects.
func extractDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		var msgs []string
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return strings.TrimSpace(string(envelope.Detail))
}

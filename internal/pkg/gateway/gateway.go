package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/monetix/monetix-go/internal/pkg/logger"
	"github.com/monetix/monetix-go/internal/pkg/monetixerr"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	maxResponseSize = 2 << 20
)

// Config is the static gateway configuration, set once at activation.
type Config struct {
	BaseURL     string
	APIKey      string
	PlatformTag string
}

// Client issues authenticated requests against the entitlement backend and
// maps every failure into the SDK error taxonomy. It holds no business state
// beyond its configuration and is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	platform   string
	httpClient *http.Client
}

// New validates the configuration and builds a gateway client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, monetixerr.Wrap(monetixerr.CodeInvalidConfiguration, fmt.Errorf("api key is required"))
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, monetixerr.Wrap(monetixerr.CodeInvalidConfiguration, fmt.Errorf("invalid base url: %w", err))
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, monetixerr.Wrap(monetixerr.CodeInvalidConfiguration, fmt.Errorf("invalid base url %q", cfg.BaseURL))
	}

	platform := cfg.PlatformTag
	if platform == "" {
		platform = "go"
	}

	return &Client{
		baseURL:  base,
		apiKey:   cfg.APIKey,
		platform: platform,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
			Transport: &http.Transport{
				IdleConnTimeout:       defaultIdleTimeout,
				ResponseHeaderTimeout: defaultRequestTimeout,
				MaxIdleConnsPerHost:   4,
			},
		},
	}, nil
}

// Platform returns the platform tag stamped onto requests and events.
func (c *Client) Platform() string { return c.platform }

// do runs one request/response cycle. notFound is the taxonomy code a 404
// maps to for this operation; operations without 404 semantics pass
// CodeUnknownError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, notFound monetixerr.Code) error {
	// path arrives with its segments already percent-encoded. Install the
	// encoded form as RawPath so URL.String serves it verbatim instead of
	// escaping the % runes a second time.
	u := *c.baseURL
	u.RawPath = strings.TrimRight(u.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return monetixerr.Wrap(monetixerr.CodeUnknownError, fmt.Errorf("invalid request path %q: %w", path, err))
	}
	u.Path = unescaped
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return monetixerr.Wrap(monetixerr.CodeUnknownError, fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return monetixerr.Wrap(monetixerr.CodeUnknownError, err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Platform", c.platform)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return monetixerr.Wrap(monetixerr.CodeNetworkError, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return monetixerr.WrapStatus(monetixerr.CodeInvalidAPIKey, resp.StatusCode, fmt.Errorf("%s %s", method, path))
	case resp.StatusCode == http.StatusNotFound:
		return monetixerr.WrapStatus(notFound, resp.StatusCode, fmt.Errorf("%s %s", method, path))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if msg := backendErrorMessage(data); msg != "" {
			logger.Warnf("[Gateway] %s %s failed: status=%d error=%s", method, path, resp.StatusCode, msg)
		}
		return monetixerr.Server(resp.StatusCode)
	}

	return decodeInto(data, out)
}

type backendError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the `{success, data, error}` response convention. Bare
// payloads unmarshal into it with every field nil, which is how decodeInto
// tells the two conventions apart.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *backendError   `json:"error"`
}

// decodeInto tries the enveloped shape first and falls back to decoding the
// bare payload, so the same typed-result path serves both conventions.
func decodeInto(data []byte, out interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		if out == nil {
			return nil
		}
		return monetixerr.Wrap(monetixerr.CodeDecodingError, fmt.Errorf("empty response body"))
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil {
		if env.Error != nil && (env.Success == nil || !*env.Success) {
			return monetixerr.Wrap(monetixerr.CodeInvalidResponse,
				fmt.Errorf("backend error %s: %s", env.Error.Code, env.Error.Message))
		}
		if env.Data != nil {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(env.Data, out); err != nil {
				return monetixerr.Wrap(monetixerr.CodeDecodingError, err)
			}
			return nil
		}
		if env.Success != nil && *env.Success && out == nil {
			return nil
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return monetixerr.Wrap(monetixerr.CodeDecodingError, err)
	}
	return nil
}

func backendErrorMessage(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Error == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", env.Error.Code, env.Error.Message)
}

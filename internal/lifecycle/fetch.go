package lifecycle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ConfigSource retrieves a model configuration by URL.
type ConfigSource interface {
	Fetch(rawURL string) ([]byte, error)
}

// Fetcher retrieves configurations over HTTP. Intentionally no client
// timeout: all calls are synchronous and a hung fetch hangs the run, which
// is the documented limitation of this tool.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns an HTTP-backed ConfigSource.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 0}}
}

// Fetch GETs rawURL and returns the body. Non-2xx responses are fetch
// failures.
func (f *Fetcher) Fetch(rawURL string) ([]byte, error) {
	resp, err := f.client.Get(rawURL)
	if err != nil {
		return nil, configFetchError{url: rawURL, err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, configFetchError{url: rawURL, err: fmt.Errorf("http status %s", resp.Status)}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, configFetchError{url: rawURL, err: err}
	}
	return b, nil
}

// validateStructured checks that data parses as structured key/value data.
// The format is picked from the URL's file extension, defaulting to JSON.
// Structural validity is the only check; there is no schema validation.
func validateStructured(data []byte, rawURL string) error {
	var doc map[string]any
	switch extOf(rawURL) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return invalidConfigError{url: rawURL, err: err}
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return invalidConfigError{url: rawURL, err: err}
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return invalidConfigError{url: rawURL, err: err}
		}
	}
	if doc == nil {
		return invalidConfigError{url: rawURL, err: fmt.Errorf("empty document")}
	}
	return nil
}

func extOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

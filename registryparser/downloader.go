package registryparser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/logging"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrFetch wraps every failure to retrieve a feed blob.
var ErrFetch = errors.New("fetch failed")

const defaultMaxFeedSize = 512 * 1024 * 1024

// NewFetcher picks a fetcher for rawURL: file:// URLs read a local file,
// anything else is downloaded over HTTP.
func NewFetcher(rawURL string, timeout time.Duration) interfaces.Fetcher {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "file" {
		return NewFileFetcher(u.Path)
	}
	return NewHTTPFetcher(rawURL, timeout)
}

// FileFetcher reads a feed from the local filesystem.
type FileFetcher struct {
	path string
}

func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

// Fetch reads the whole file. Local feeds are expected to be UTF-8.
func (f *FileFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	body, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFetch, f.path, err)
	}
	logging.Debug("Feed read from file", "path", f.path, "bytes", len(body))
	return body, nil
}

// HTTPFetcher downloads a feed as a single blob and transcodes it to UTF-8
// when the server declares another charset.
type HTTPFetcher struct {
	url      string
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher for url. The timeout bounds the whole
// request, body included.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		maxBytes: defaultMaxFeedSize,
	}
}

// Fetch retrieves the feed.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", ErrFetch, f.url, err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrFetch, f.url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, f.url, response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %v", ErrFetch, f.url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetch, f.url, f.maxBytes)
	}

	body, err = transcode(body, response.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	logging.Debug("Feed downloaded", "url", f.url, "bytes", len(body))
	return body, nil
}

// transcode converts body to UTF-8 according to the charset parameter of
// contentType. Bodies without a declared charset are returned untouched and
// validated later by the parser.
func transcode(body []byte, contentType string) ([]byte, error) {
	if contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}

	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}

	decoded, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", charset, err)
	}
	return decoded, nil
}

package grammar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Source is a place a grammar can be read from.
type Source interface {
	// Open returns a reader over the grammar text.
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in errors and logs.
	Name() string
}

type textSource struct{ text string }

// Text returns a Source over literal grammar text.
func Text(text string) Source { return textSource{text: text} }

func (s textSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.text)), nil
}

func (s textSource) Name() string { return "grammar text" }

type fileSource struct{ path string }

// File returns a Source reading the file at path.
func File(path string) Source { return fileSource{path: path} }

func (s fileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(s.path)
}

func (s fileSource) Name() string { return s.path }

type readerSource struct {
	name string
	r    io.Reader
}

// Reader returns a Source over r. The reader is consumed on first Open.
func Reader(name string, r io.Reader) Source { return readerSource{name: name, r: r} }

func (s readerSource) Open(context.Context) (io.ReadCloser, error) {
	if rc, ok := s.r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(s.r), nil
}

func (s readerSource) Name() string { return s.name }

// DefaultHTTPTimeout bounds a grammar download when the caller's context has
// no deadline.
const DefaultHTTPTimeout = 30 * time.Second

type urlSource struct {
	url    string
	client *http.Client
}

// URL returns a Source fetching url with HTTP GET. A nil client uses a
// client with DefaultHTTPTimeout.
func URL(url string, client *http.Client) Source {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return urlSource{url: url, client: client}
}

func (s urlSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func (s urlSource) Name() string { return s.url }

// Locate turns a command-line style location into a Source: http(s) URLs are
// fetched, anything else is a file path.
func Locate(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return URL(location, nil)
	}
	return File(location)
}

// IsYAML reports whether name looks like a YAML grammar.
func IsYAML(name string) bool {
	if i := strings.IndexAny(name, "?#"); i >= 0 && strings.Contains(name, "://") {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

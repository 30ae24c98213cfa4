// Package catalog fetches the published media catalog and turns it into
// model descriptors.
//
// The catalog is a JSON array. Each element is one of two schemas,
// distinguished by which top-level key is present:
//
//	{"media-data": {"alexandria-media": {"info": {"extra-info": {...}}}}}   schema A
//	{"oip-041": {"artifact": {"storage": {...}, "info": {...}}}}          schema B
//
// Elements are decoded independently: one malformed element is logged and
// skipped without affecting its siblings.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/pinbot/internal/model"
)

// DefaultURL is the public Alexandria library endpoint.
const DefaultURL = "https://api.alexandria.io/alexandria/v2/media/get/all"

// maxBody caps the catalog response size.
const maxBody = 256 << 20

// Source yields the current catalog.
type Source interface {
	Fetch(ctx context.Context) ([]model.Descriptor, error)
}

// MetadataFetchError reports that the catalog could not be fetched or was
// not a JSON array at all.
type MetadataFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *MetadataFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch catalog %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch catalog %s: %v", e.URL, e.Err)
}

func (e *MetadataFetchError) Unwrap() error { return e.Err }

// IsMetadataFetchError returns true if err wraps a *MetadataFetchError.
func IsMetadataFetchError(err error) bool {
	var me *MetadataFetchError
	return errors.As(err, &me)
}

// HTTPSource fetches the catalog with a GET request.
type HTTPSource struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewHTTPSource creates a source for url. A zero timeout means none.
func NewHTTPSource(url string, timeout time.Duration, log zerolog.Logger) *HTTPSource {
	if url == "" {
		url = DefaultURL
	}
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "catalog").Logger(),
	}
}

// Fetch downloads and parses the catalog.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Descriptor, error) {
	s.log.Info().Str("url", s.url).Msg("fetching media items")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &MetadataFetchError{URL: s.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &MetadataFetchError{URL: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &MetadataFetchError{URL: s.url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &MetadataFetchError{URL: s.url, Err: fmt.Errorf("read body: %w", err)}
	}

	descs, err := Parse(body, s.log)
	if err != nil {
		return nil, &MetadataFetchError{URL: s.url, Err: err}
	}

	s.log.Debug().Int("descriptors", len(descs)).Msg("library refresh complete")
	return descs, nil
}

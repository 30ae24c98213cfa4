package testutil

import (
	"context"
	"sync"

	"github.com/roach88/pinbot/internal/model"
)

// FakeCatalog is a catalog.Source returning fixed descriptors or an error.
type FakeCatalog struct {
	mu          sync.Mutex
	descriptors []model.Descriptor
	err         error
	fetches     int
}

// NewFakeCatalog returns a source yielding descriptors.
func NewFakeCatalog(descriptors ...model.Descriptor) *FakeCatalog {
	return &FakeCatalog{descriptors: descriptors}
}

// SetError makes Fetch fail with err; nil restores the descriptors.
func (c *FakeCatalog) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Fetch implements catalog.Source.
func (c *FakeCatalog) Fetch(ctx context.Context) ([]model.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	if c.err != nil {
		return nil, c.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.Descriptor(nil), c.descriptors...), nil
}

// Fetches returns how many times Fetch was called.
func (c *FakeCatalog) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

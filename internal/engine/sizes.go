package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pinbot/internal/ipfs"
	"github.com/roach88/pinbot/internal/logging"
	"github.com/roach88/pinbot/internal/metrics"
	"github.com/roach88/pinbot/internal/model"
	"github.com/roach88/pinbot/internal/pool"
)

// SizeOptions tunes the size resolver.
type SizeOptions struct {
	Concurrency int
	RetryAfter  time.Duration // back-off before a failed item is retried
	MaxAttempts int           // give up on an item after this many attempts
	Skip        SkipList
}

// SizeResult counts what one size pass did.
type SizeResult struct {
	Pending  int
	Resolved int
	Failed   int
}

// errNoMatchingLink means the container has no link for the item's name.
var errNoMatchingLink = errors.New("no link in container matches item")

// errLeafHasNoChildren means a child path was tracked under a leaf object.
var errLeafHasNoChildren = errors.New("root is a leaf object but item names a child")

// SizeResolver fills in sizeBytes and resolvedAddress for new items.
type SizeResolver struct {
	ledger  Ledger
	client  ipfs.Client
	clock   Clock
	opts    SizeOptions
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewSizeResolver creates a SizeResolver.
func NewSizeResolver(ledger Ledger, client ipfs.Client, clock Clock, opts SizeOptions, log zerolog.Logger, m *metrics.Metrics) *SizeResolver {
	if opts.Skip == nil {
		opts.Skip = NewSkipList()
	}
	return &SizeResolver{
		ledger:  ledger,
		client:  client,
		clock:   clock,
		opts:    opts,
		log:     log.With().Str("component", "sizes").Logger(),
		metrics: m,
	}
}

// Resolve processes every item that still lacks a size, plus failed items
// whose back-off has expired. Items resolve independently; only a ledger
// query failure or a bad pool configuration is returned.
func (r *SizeResolver) Resolve(ctx context.Context) (SizeResult, error) {
	now := r.clock.Now()
	items, err := r.ledger.QueryMissingSize(ctx, now.Add(-r.opts.RetryAfter), r.opts.MaxAttempts)
	if err != nil {
		return SizeResult{}, fmt.Errorf("sizes: %w", err)
	}
	r.log.Info().Int("items", len(items)).Msg("updating file sizes")

	p, err := pool.New(r.opts.Concurrency, pool.WithLogger(r.log), pool.WithName("sizes"))
	if err != nil {
		return SizeResult{}, fmt.Errorf("sizes: %w", err)
	}

	run := p.Run(ctx, pool.Each(items, r.resolveItem))
	return SizeResult{
		Pending:  len(items),
		Resolved: run.Succeeded,
		Failed:   run.Failed,
	}, nil
}

// resolveItem resolves one item. It returns an error when the item ended up
// with the failure sentinel, so the pool counts it as failed.
func (r *SizeResolver) resolveItem(ctx context.Context, item model.TrackedItem) error {
	if r.opts.Skip.Contains(item.RootAddress) {
		logging.Alert(&r.log).Str("item", item.ItemID).Str("root", item.RootAddress).Msg("skipping dead address")
		return r.fail(ctx, item, errors.New("address is on the skip list"))
	}

	obj, err := r.client.ResolveObject(ctx, item.RootAddress)
	if err != nil {
		r.log.Error().Str("item", item.ItemID).Str("root", item.RootAddress).Err(err).Msg("failed to load object")
		return r.fail(ctx, item, err)
	}

	resolved, size, err := match(item, obj)
	if err != nil {
		r.log.Warn().Str("item", item.ItemID).Str("root", item.RootAddress).Err(err).Msg("could not size item")
		return r.fail(ctx, item, err)
	}

	if err := r.ledger.RecordSize(ctx, item.ItemID, resolved, size, r.clock.Now()); err != nil {
		r.log.Error().Str("item", item.ItemID).Err(err).Msg("failed to record size")
		r.metrics.RecordSize(false)
		return err
	}
	r.metrics.RecordSize(true)
	r.log.Debug().Str("item", item.ItemID).Str("resolved", resolved).Int64("bytes", size).Msg("resolved size")
	return nil
}

// match picks the size and address of item out of its root object.
func match(item model.TrackedItem, obj ipfs.Object) (string, int64, error) {
	if obj.IsLeaf {
		if !item.IsRootLevel() {
			return "", 0, errLeafHasNoChildren
		}
		return item.ItemID, obj.CumulativeSize, nil
	}

	if item.IsRootLevel() {
		return item.ItemID, obj.CumulativeSize, nil
	}

	want := norm.NFC.String(item.ItemID)
	for _, link := range obj.Links {
		if model.ChildPath(item.RootAddress, norm.NFC.String(link.Name)) == want {
			return link.TargetAddress, link.Size, nil
		}
	}
	return "", 0, errNoMatchingLink
}

func (r *SizeResolver) fail(ctx context.Context, item model.TrackedItem, cause error) error {
	r.metrics.RecordSize(false)
	if err := r.ledger.RecordSizeFailure(ctx, item.ItemID, r.clock.Now()); err != nil {
		r.log.Error().Str("item", item.ItemID).Err(err).Msg("failed to record size failure")
		return errors.Join(cause, err)
	}
	if item.SizeAttempts+1 >= r.opts.MaxAttempts {
		r.log.Warn().Str("item", item.ItemID).Int("attempts", item.SizeAttempts+1).Msg("giving up on item size")
	}
	return fmt.Errorf("size %s: %w", item.ItemID, cause)
}

package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pinbot/internal/logging"
	"github.com/roach88/pinbot/internal/metrics"
	"github.com/roach88/pinbot/internal/model"
)

// AddressValidator canonicalises content addresses. ipfs.Client satisfies it.
type AddressValidator interface {
	ValidateAddress(candidate string) (string, error)
}

// IngestResult counts what one ingestion pass did.
type IngestResult struct {
	Descriptors int
	Created     int
	Skipped     int // descriptors or entries rejected
	Errors      int // ledger writes that failed
}

// Ingester turns catalog descriptors into ledger rows.
type Ingester struct {
	ledger    Ledger
	validator AddressValidator
	clock     Clock
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// NewIngester creates an Ingester.
func NewIngester(ledger Ledger, validator AddressValidator, clock Clock, log zerolog.Logger, m *metrics.Metrics) *Ingester {
	return &Ingester{
		ledger:    ledger,
		validator: validator,
		clock:     clock,
		log:       log.With().Str("component", "ingest").Logger(),
		metrics:   m,
	}
}

// Ingest adds every item the descriptors name. Re-ingesting a known item is
// a no-op. Only a cancelled ctx stops the pass early.
func (in *Ingester) Ingest(ctx context.Context, descriptors []model.Descriptor) (IngestResult, error) {
	res := IngestResult{Descriptors: len(descriptors)}

	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch d := d.(type) {
		case model.AlexandriaDescriptor:
			in.ingestAlexandria(ctx, d, &res)
		case model.Oip041Descriptor:
			in.ingestOip041(ctx, d, &res)
		}
	}

	in.log.Info().
		Int("descriptors", res.Descriptors).
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("ingestion finished")
	return res, nil
}

func (in *Ingester) ingestAlexandria(ctx context.Context, d model.AlexandriaDescriptor, res *IngestResult) {
	filename := strings.TrimSpace(d.Filename)
	if filename == "" {
		in.log.Debug().Str("dht", d.DHTHash).Msg("descriptor has no filename, nothing to track")
		return
	}

	if filename == model.IndependentAddresses {
		for _, field := range append([]string{d.DHTHash}, d.RoleFields()...) {
			if strings.TrimSpace(field) == "" {
				continue
			}
			addr, err := in.validator.ValidateAddress(field)
			if err != nil {
				in.reject(res).Str("field", field).Err(err).Msg("skipping invalid independent address")
				continue
			}
			in.add(ctx, addr, addr, res)
		}
		return
	}

	root, err := in.validator.ValidateAddress(d.DHTHash)
	if err != nil {
		in.reject(res).Str("dht", d.DHTHash).Str("filename", filename).Err(err).Msg("invalid DHT hash, skipping descriptor")
		return
	}

	for _, name := range append([]string{filename}, d.RoleFields()...) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		in.add(ctx, model.ChildPath(root, norm.NFC.String(name)), root, res)
	}
}

func (in *Ingester) ingestOip041(ctx context.Context, d model.Oip041Descriptor, res *IngestResult) {
	root := strings.TrimSpace(d.Location)
	if addr, err := in.validator.ValidateAddress(root); err != nil {
		in.log.Warn().Str("title", d.Title).Str("dht", root).Err(err).Msg("invalid DHT hash on artifact")
	} else {
		root = addr
	}

	if len(d.Files) == 0 {
		logging.Alert(&in.log).Int64("timestamp", d.Timestamp).Str("title", d.Title).Msg("no file information on artifact")
		in.metrics.RecordIngestError()
		res.Skipped++
		return
	}
	if root == "" || strings.Contains(root, "/") {
		in.reject(res).Str("title", d.Title).Str("dht", root).Msg("artifact location is not a bare address, skipping files")
		return
	}

	for _, f := range d.Files {
		name := strings.TrimSpace(f.FName)
		if name == "" {
			in.reject(res).Str("title", d.Title).Str("dht", root).Msg("skipping file entry without a name")
			continue
		}
		in.add(ctx, model.ChildPath(root, norm.NFC.String(name)), root, res)
	}
}

func (in *Ingester) add(ctx context.Context, itemID, root string, res *IngestResult) {
	created, err := in.ledger.UpsertIfAbsent(ctx, itemID, root, in.clock.Now())
	if err != nil {
		res.Errors++
		in.metrics.RecordIngestError()
		in.log.Error().Str("item", itemID).Err(err).Msg("failed to track item")
		return
	}
	if created {
		res.Created++
		in.metrics.RecordIngested(1)
		in.log.Debug().Str("item", itemID).Str("root", root).Msg("tracking new item")
	}
}

func (in *Ingester) reject(res *IngestResult) *zerolog.Event {
	res.Skipped++
	in.metrics.RecordIngestError()
	return in.log.Warn()
}

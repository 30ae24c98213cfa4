package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/roach88/pinbot/internal/model"
)

// probe detects which schema an element uses without decoding it fully.
type probe struct {
	MediaData *struct {
		Alexandria json.RawMessage `json:"alexandria-media"`
	} `json:"media-data"`
	Oip041 json.RawMessage `json:"oip-041"`
}

type alexandriaEnvelope struct {
	Info struct {
		ExtraInfo *model.AlexandriaDescriptor `json:"extra-info"`
	} `json:"info"`
}

type oip041Envelope struct {
	Artifact struct {
		Timestamp int64 `json:"timestamp"`
		Info      struct {
			Title string `json:"title"`
		} `json:"info"`
		Storage *struct {
			Location string             `json:"location"`
			Files    []model.Oip041File `json:"files"`
		} `json:"storage"`
	} `json:"artifact"`
}

// errUnknownSchema marks elements matching neither schema.
var errUnknownSchema = errors.New("unknown descriptor schema")

// Parse decodes a catalog body. It fails only when the body is not a JSON
// array; bad elements are logged and dropped.
func Parse(data []byte, log zerolog.Logger) ([]model.Descriptor, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog is not a JSON array: %w", err)
	}

	descs := make([]model.Descriptor, 0, len(raw))
	kinds := make(map[model.DescriptorKind]int, 2)
	for i, elem := range raw {
		d, err := ParseDescriptor(elem)
		if errors.Is(err, errUnknownSchema) {
			log.Debug().Int("index", i).Msg("skipping catalog entry with unknown schema")
			continue
		}
		if err != nil {
			log.Warn().Int("index", i).Err(err).Msg("skipping malformed catalog entry")
			continue
		}
		kinds[d.Kind()]++
		descs = append(descs, d)
	}

	log.Debug().
		Int("entries", len(raw)).
		Int(model.KindAlexandria.String(), kinds[model.KindAlexandria]).
		Int(model.KindOip041.String(), kinds[model.KindOip041]).
		Msg("parsed catalog")
	return descs, nil
}

// ParseDescriptor decodes a single catalog element into the matching variant.
func ParseDescriptor(elem json.RawMessage) (model.Descriptor, error) {
	var p probe
	if err := json.Unmarshal(elem, &p); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}

	switch {
	case p.MediaData != nil && len(p.MediaData.Alexandria) > 0 && string(p.MediaData.Alexandria) != "null":
		return parseAlexandria(p.MediaData.Alexandria)
	case len(p.Oip041) > 0 && string(p.Oip041) != "null":
		return parseOip041(p.Oip041)
	default:
		return nil, errUnknownSchema
	}
}

func parseAlexandria(raw json.RawMessage) (model.Descriptor, error) {
	var env alexandriaEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode alexandria-media: %w", err)
	}
	if env.Info.ExtraInfo == nil {
		return nil, errors.New("alexandria-media: missing info.extra-info")
	}
	return *env.Info.ExtraInfo, nil
}

func parseOip041(raw json.RawMessage) (model.Descriptor, error) {
	var env oip041Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode oip-041: %w", err)
	}
	if env.Artifact.Storage == nil {
		return nil, fmt.Errorf("oip-041 %q: missing artifact.storage", env.Artifact.Info.Title)
	}

	return model.Oip041Descriptor{
		Location:  strings.TrimSpace(env.Artifact.Storage.Location),
		Files:     env.Artifact.Storage.Files,
		Title:     env.Artifact.Info.Title,
		Timestamp: env.Artifact.Timestamp,
	}, nil
}

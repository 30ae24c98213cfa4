package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pinbot/internal/model"
)

// Scenario describes a catalog, a network, and what the ledger should look
// like after running the pipeline over them.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Config  ScenarioConfig `yaml:"config,omitempty"`
	Catalog []CatalogEntry `yaml:"catalog"`
	Network Network        `yaml:"network"`

	// Cycles is how many cycles to run. Zero means one.
	Cycles int `yaml:"cycles,omitempty"`

	// Advance moves the clock forward after each cycle.
	Advance time.Duration `yaml:"advance,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// ScenarioConfig overrides the pipeline configuration.
type ScenarioConfig struct {
	Disk            string   `yaml:"disk,omitempty"`
	MinPinThreshold *int     `yaml:"minPinThreshold,omitempty"`
	Concurrency     int      `yaml:"concurrency,omitempty"`
	Skip            []string `yaml:"skip,omitempty"`
}

// CatalogEntry holds exactly one descriptor.
type CatalogEntry struct {
	Alexandria *AlexandriaEntry `yaml:"alexandria,omitempty"`
	Oip041     *Oip041Entry     `yaml:"oip041,omitempty"`
}

// AlexandriaEntry is the YAML form of model.AlexandriaDescriptor.
type AlexandriaEntry struct {
	Filename    string `yaml:"filename"`
	DHT         string `yaml:"dht"`
	PosterFrame string `yaml:"posterFrame,omitempty"`
	CoverArt    string `yaml:"coverArt,omitempty"`
	Poster      string `yaml:"poster,omitempty"`
	Trailer     string `yaml:"trailer,omitempty"`
	Track01     string `yaml:"track01,omitempty"`
	Track02     string `yaml:"track02,omitempty"`
}

// Oip041Entry is the YAML form of model.Oip041Descriptor.
type Oip041Entry struct {
	Location string   `yaml:"location"`
	Files    []string `yaml:"files"`
	Title    string   `yaml:"title,omitempty"`
}

// Network describes the fake node and what it can see.
type Network struct {
	LocalPeer     string              `yaml:"local_peer,omitempty"`
	Leaves        map[string]int64    `yaml:"leaves,omitempty"`
	Dirs          map[string][]Link   `yaml:"dirs,omitempty"`
	Providers     map[string][]string `yaml:"providers,omitempty"`
	FailResolve   []string            `yaml:"fail_resolve,omitempty"`
	FailProviders []string            `yaml:"fail_providers,omitempty"`
	FailPin       []string            `yaml:"fail_pin,omitempty"`
}

// Link is a named child of a directory.
type Link struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
	Size   int64  `yaml:"size"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type is one of pinned, item or cycle.
	Type string `yaml:"type"`

	// Addresses is the expected pin set (pinned).
	Addresses []string `yaml:"addresses,omitempty"`

	// Item is the item_id to inspect (item).
	Item string `yaml:"item,omitempty"`

	// Cycle is the 1-based cycle to inspect (cycle).
	Cycle int `yaml:"cycle,omitempty"`

	// Expect holds the expected fields (item, cycle). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertPinned = "pinned"
	AssertItem   = "item"
	AssertCycle  = "cycle"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Cycles < 0 {
		return fmt.Errorf("cycles must be non-negative")
	}
	if s.Advance < 0 {
		return fmt.Errorf("advance must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, entry := range s.Catalog {
		if (entry.Alexandria == nil) == (entry.Oip041 == nil) {
			return fmt.Errorf("catalog[%d]: exactly one of alexandria or oip041 is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, s.cycles()); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion, cycles int) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertPinned:
	case AssertItem:
		if a.Item == "" {
			return fmt.Errorf("assertions[%d]: item is required for item", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for item", index)
		}
	case AssertCycle:
		if a.Cycle < 1 || a.Cycle > cycles {
			return fmt.Errorf("assertions[%d]: cycle must be between 1 and %d", index, cycles)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for cycle", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func (s *Scenario) cycles() int {
	if s.Cycles == 0 {
		return 1
	}
	return s.Cycles
}

// Descriptors converts the catalog to model descriptors.
func (s *Scenario) Descriptors() []model.Descriptor {
	descs := make([]model.Descriptor, 0, len(s.Catalog))
	for _, entry := range s.Catalog {
		if a := entry.Alexandria; a != nil {
			descs = append(descs, model.AlexandriaDescriptor{
				Filename:    a.Filename,
				DHTHash:     a.DHT,
				PosterFrame: a.PosterFrame,
				CoverArt:    a.CoverArt,
				Poster:      a.Poster,
				Trailer:     a.Trailer,
				Track01:     a.Track01,
				Track02:     a.Track02,
			})
			continue
		}
		o := entry.Oip041
		files := make([]model.Oip041File, len(o.Files))
		for i, name := range o.Files {
			files[i] = model.Oip041File{FName: name}
		}
		descs = append(descs, model.Oip041Descriptor{Location: o.Location, Files: files, Title: o.Title})
	}
	return descs
}

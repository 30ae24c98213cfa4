// Package config loads and validates the pinbot configuration file.
//
// The file is YAML. Before decoding, the raw document is unified with the
// embedded CUE schema (schema.cue), which rejects unknown keys, bad enum
// values and out-of-range numbers with positioned errors. Keys left out
// keep their defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// DefaultPath is the config file read when none is given.
const DefaultPath = "pinbot.yaml"

// Config is the complete process configuration.
type Config struct {
	Logging         LoggingConfig     `yaml:"logging"`
	Concurrency     int               `yaml:"concurrency"`
	ResourceLimits  ResourceLimits    `yaml:"resourceLimits"`
	MinPinThreshold int               `yaml:"minPinThreshold"`
	LibraryD        LibraryDConfig    `yaml:"libraryD"`
	IPFS            IPFSConfig        `yaml:"ipfs"`
	Database        DatabaseConfig    `yaml:"database"`
	Replication     ReplicationConfig `yaml:"replication"`
	Sizes           SizesConfig       `yaml:"sizes"`
	Pins            PinsConfig        `yaml:"pins"`
	Schedule        ScheduleConfig    `yaml:"schedule"`
	Metrics         MetricsConfig     `yaml:"metrics"`

	// Source is the file the config was read from; empty means defaults.
	Source string `yaml:"-"`
}

// LoggingConfig selects level, destination and encoding of log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Path   string `yaml:"path"`   // "" or "-" logs to stderr only
	Format string `yaml:"format"` // console | json
}

// ResourceLimits bounds local resource use.
type ResourceLimits struct {
	Disk string `yaml:"disk"` // human-readable, e.g. "10GB" or "500 GiB"
}

// LibraryDConfig locates the media catalog.
type LibraryDConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// IPFSConfig locates the node's RPC API. Timeout bounds the identity query.
type IPFSConfig struct {
	API     string        `yaml:"api"`
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig locates the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ReplicationConfig tunes the replication monitor.
type ReplicationConfig struct {
	Staleness time.Duration `yaml:"staleness"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SizesConfig tunes the size resolver.
type SizesConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	RetryAfter  time.Duration `yaml:"retryAfter"`
	MaxAttempts int           `yaml:"maxAttempts"`
	Skip        []string      `yaml:"skip,omitempty"` // appended to the built-in dead list
}

// PinsConfig bounds a single pin request.
type PinsConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ScheduleConfig controls repetition. Interval 0 runs a single cycle.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig controls metric exposition. Both are off when empty.
type MetricsConfig struct {
	Listen   string `yaml:"listen"`
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "debug",
			Path:   "./pinbot.log",
			Format: "console",
		},
		Concurrency:     5,
		ResourceLimits:  ResourceLimits{Disk: "10GB"},
		MinPinThreshold: 1,
		LibraryD: LibraryDConfig{
			URL:     "https://api.alexandria.io/alexandria/v2/media/get/all",
			Timeout: 60 * time.Second,
		},
		IPFS: IPFSConfig{
			API:     "http://localhost:5001",
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{Path: "./pinbot.db"},
		Replication: ReplicationConfig{
			Staleness: time.Hour,
			Timeout:   60 * time.Second,
		},
		Sizes: SizesConfig{
			Timeout:     60 * time.Second,
			RetryAfter:  24 * time.Hour,
			MaxAttempts: 5,
		},
		Pins: PinsConfig{Timeout: 30 * time.Minute},
	}
}

// Load reads path on top of Default. A missing file is not an error: the
// defaults are returned with Source left empty.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err = Parse(path, data)
	if err != nil {
		return Config{}, err
	}
	cfg.Source = path
	return cfg, nil
}

// Parse validates data against the schema and decodes it on top of Default.
// name is used in error positions only.
func Parse(name string, data []byte) (Config, error) {
	cfg := Default()
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	if err := validateSchema(name, data); err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", name, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", name, err)
	}
	return cfg, nil
}

func validateSchema(name string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", name, err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("parse config %s: %w", name, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config %s does not match schema: %w", name, err)
	}
	return nil
}

// Validate checks semantic constraints that survive decoding.
func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.MinPinThreshold < 0 {
		return fmt.Errorf("minPinThreshold must not be negative, got %d", c.MinPinThreshold)
	}
	if _, err := c.DiskBudget(); err != nil {
		return err
	}
	if c.Replication.Timeout <= 0 {
		return errors.New("replication.timeout must be positive")
	}
	if c.IPFS.Timeout <= 0 {
		return errors.New("ipfs.timeout must be positive")
	}
	if c.Pins.Timeout <= 0 {
		return errors.New("pins.timeout must be positive")
	}
	if c.Sizes.MaxAttempts <= 0 {
		return errors.New("sizes.maxAttempts must be positive")
	}
	if c.Schedule.Interval < 0 {
		return errors.New("schedule.interval must not be negative")
	}
	return nil
}

// DiskBudget parses resourceLimits.disk into bytes. Unit prefixes are
// binary whichever way they are spelled: 10GB, 10G and 10GiB are all
// 10 * 1024^3, matching budgets written for earlier deployments.
func (c Config) DiskBudget() (int64, error) {
	n, err := humanize.ParseBytes(binaryUnits(c.ResourceLimits.Disk))
	if err != nil {
		return 0, fmt.Errorf("resourceLimits.disk %q: %w", c.ResourceLimits.Disk, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("resourceLimits.disk %q: out of range", c.ResourceLimits.Disk)
	}
	return int64(n), nil
}

// binaryUnits rewrites an SI suffix (KB, M, gb) to its IEC form (KiB, Mi,
// gib) so humanize parses it in powers of 1024.
func binaryUnits(s string) string {
	s = strings.TrimSpace(s)
	unit := strings.TrimLeft(s, "0123456789. ")
	num := strings.TrimSuffix(s, unit)

	switch u := strings.ToLower(unit); {
	case len(u) == 1 && strings.Contains("kmgtpe", u):
		return num + unit + "i"
	case len(u) == 2 && u[1] == 'b' && strings.Contains("kmgtpe", u[:1]):
		return num + unit[:1] + "i" + unit[1:]
	}
	return s
}

// Marshal renders the effective configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/roach88/pinbot/internal/config"
	"github.com/roach88/pinbot/internal/engine"
	"github.com/roach88/pinbot/internal/ipfs"
	"github.com/roach88/pinbot/internal/store"
	"github.com/roach88/pinbot/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool

	// Errors holds one message per failed assertion.
	Errors []string

	// Snapshot is the deterministic view of the run used for golden files.
	Snapshot Snapshot
}

// AddError records a failed assertion.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and evaluates its assertions.
//
// Each run gets a fresh in-memory ledger. Stage failures inside a cycle are
// not run errors; they show up in the snapshot's failed_stages.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cfg, err := scenario.config()
	if err != nil {
		return nil, err
	}

	client := scenario.Network.client()
	source := testutil.NewFakeCatalog(scenario.Descriptors()...)
	clock := testutil.NewFakeClock(testutil.Epoch)

	ids := make([]string, scenario.cycles())
	for i := range ids {
		ids[i] = fmt.Sprintf("cycle-%d", i+1)
	}

	p, err := engine.NewPipeline(cfg, st, source, client,
		engine.WithClock(clock),
		engine.WithIDGenerator(engine.NewFixedGenerator(ids...)),
		engine.WithLogger(zerolog.Nop()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	ctx := context.Background()
	snap := Snapshot{Scenario: scenario.Name}
	for range ids {
		report, err := p.RunCycle(ctx)
		snap.Cycles = append(snap.Cycles, cycleSnapshot(report, err))
		clock.Advance(scenario.Advance)
	}

	items, err := st.AllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	for _, item := range items {
		snap.Items = append(snap.Items, itemSnapshot(item))
	}

	snap.Pins = client.Pins()
	slices.Sort(snap.Pins)
	if snap.Pins == nil {
		snap.Pins = []string{}
	}

	result := &Result{Pass: true, Snapshot: snap}
	for _, msg := range EvaluateAssertions(snap, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (s *Scenario) config() (config.Config, error) {
	cfg := config.Default()
	cfg.Concurrency = 2
	cfg.ResourceLimits.Disk = "1KB"

	c := s.Config
	if c.Disk != "" {
		cfg.ResourceLimits.Disk = c.Disk
	}
	if c.MinPinThreshold != nil {
		cfg.MinPinThreshold = *c.MinPinThreshold
	}
	if c.Concurrency > 0 {
		cfg.Concurrency = c.Concurrency
	}
	cfg.Sizes.Skip = c.Skip

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return cfg, nil
}

func (n Network) client() *testutil.FakeClient {
	client := testutil.NewFakeClient()
	if n.LocalPeer != "" {
		client.SetIdentity(n.LocalPeer, nil)
	}
	for addr, size := range n.Leaves {
		client.AddLeaf(addr, size)
	}
	for addr, links := range n.Dirs {
		ipfsLinks := make([]ipfs.Link, len(links))
		for i, l := range links {
			ipfsLinks[i] = ipfs.Link{Name: l.Name, TargetAddress: l.Target, Size: l.Size}
		}
		client.AddDir(addr, ipfsLinks...)
	}
	for addr, peers := range n.Providers {
		responses := make([]ipfs.PeerResponse, len(peers))
		for i, peer := range peers {
			responses[i] = testutil.Provider(peer)
		}
		client.SetProviders(addr, responses...)
	}
	for _, addr := range n.FailResolve {
		client.FailResolve(addr)
	}
	for _, addr := range n.FailProviders {
		client.FailProviders(addr)
	}
	for _, addr := range n.FailPin {
		client.FailPin(addr)
	}
	return client
}

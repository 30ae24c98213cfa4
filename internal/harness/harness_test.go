package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "scenario name must match its file")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "recheck_after_staleness.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(first.Snapshot)
	require.NoError(t, err)
	b, err := MarshalSnapshot(second.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectations",
		Description: "expectations that do not hold",
		Catalog:     []CatalogEntry{{Alexandria: &AlexandriaEntry{Filename: "none", DHT: "QmA"}}},
		Network:     Network{Leaves: map[string]int64{"QmA": 100}},
		Assertions: []Assertion{
			{Type: AssertPinned, Addresses: []string{"QmZ"}},
			{Type: AssertItem, Item: "QmA", Expect: map[string]any{"size": 999}},
			{Type: AssertItem, Item: "QmMissing", Expect: map[string]any{"size": 1}},
			{Type: AssertCycle, Cycle: 1, Expect: map[string]any{"pinned": 1}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "[QmZ]")
	assert.Contains(t, result.Errors[1], "size = 100")
	assert.Contains(t, result.Errors[2], "not tracked")
}

func TestRun_InvalidConfig(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_budget",
		Description: "an invalid disk budget is a run error",
		Config:      ScenarioConfig{Disk: "plenty"},
		Assertions:  []Assertion{{Type: AssertPinned}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad_budget")
}

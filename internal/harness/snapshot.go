package harness

import (
	"github.com/roach88/pinbot/internal/engine"
	"github.com/roach88/pinbot/internal/model"
)

// Snapshot is the stable, comparable outcome of a scenario run. Wall-clock
// fields are left out.
type Snapshot struct {
	Scenario string          `json:"scenario"`
	Cycles   []CycleSnapshot `json:"cycles"`
	Items    []ItemSnapshot  `json:"items"`
	Pins     []string        `json:"pins"`
}

// CycleSnapshot is the comparable part of a model.CycleReport.
type CycleSnapshot struct {
	ID                 string   `json:"id"`
	Ingested           int      `json:"ingested"`
	SizesResolved      int      `json:"sizes_resolved"`
	SizesFailed        int      `json:"sizes_failed"`
	ReplicationChecked int      `json:"replication_checked"`
	ReplicationFailed  int      `json:"replication_failed"`
	Pinned             int      `json:"pinned"`
	PinFailed          int      `json:"pin_failed"`
	PinnedBytes        int64    `json:"pinned_bytes"`
	Utilization        int64    `json:"utilization"`
	FailedStages       []string `json:"failed_stages,omitempty"`
}

// ItemSnapshot is the comparable part of a model.TrackedItem.
type ItemSnapshot struct {
	ItemID          string `json:"item_id"`
	RootAddress     string `json:"root_address"`
	ResolvedAddress string `json:"resolved_address,omitempty"`
	SizeBytes       *int64 `json:"size_bytes,omitempty"`
	SizeAttempts    int    `json:"size_attempts"`
	ReplicaCount    int    `json:"replica_count"`
	Pinned          bool   `json:"pinned"`
	PinSuccesses    int    `json:"pin_successes"`
}

func cycleSnapshot(r model.CycleReport, err error) CycleSnapshot {
	c := CycleSnapshot{
		ID:                 r.ID,
		Ingested:           r.Ingested,
		SizesResolved:      r.SizesResolved,
		SizesFailed:        r.SizesFailed,
		ReplicationChecked: r.ReplicationChecked,
		ReplicationFailed:  r.ReplicationFailed,
		Pinned:             r.Pinned,
		PinFailed:          r.PinFailed,
		PinnedBytes:        r.PinnedBytes,
		Utilization:        r.Utilization,
	}
	for _, stage := range engine.FailedStages(err) {
		c.FailedStages = append(c.FailedStages, string(stage))
	}
	return c
}

func itemSnapshot(i model.TrackedItem) ItemSnapshot {
	s := ItemSnapshot{
		ItemID:       i.ItemID,
		RootAddress:  i.RootAddress,
		SizeBytes:    i.SizeBytes,
		SizeAttempts: i.SizeAttempts,
		ReplicaCount: i.ReplicaCount,
		Pinned:       i.IsPinnedLocally,
		PinSuccesses: i.PinSuccesses,
	}
	if i.ResolvedAddress != nil {
		s.ResolvedAddress = *i.ResolvedAddress
	}
	return s
}

func (c CycleSnapshot) fields() map[string]any {
	return map[string]any{
		"id":                  c.ID,
		"ingested":            c.Ingested,
		"sizes_resolved":      c.SizesResolved,
		"sizes_failed":        c.SizesFailed,
		"replication_checked": c.ReplicationChecked,
		"replication_failed":  c.ReplicationFailed,
		"pinned":              c.Pinned,
		"pin_failed":          c.PinFailed,
		"pinned_bytes":        c.PinnedBytes,
		"utilization":         c.Utilization,
		"failed_stages":       c.FailedStages,
	}
}

func (i ItemSnapshot) fields() map[string]any {
	f := map[string]any{
		"root":          i.RootAddress,
		"resolved":      i.ResolvedAddress,
		"attempts":      i.SizeAttempts,
		"replicas":      i.ReplicaCount,
		"pinned":        i.Pinned,
		"pin_successes": i.PinSuccesses,
		"size":          nil,
	}
	if i.SizeBytes != nil {
		f["size"] = *i.SizeBytes
	}
	return f
}

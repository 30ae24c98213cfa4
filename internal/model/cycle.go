package model

import "time"

// CycleReport summarises one pipeline run. It is persisted in the ledger's
// cycles table and rendered by the status command.
type CycleReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Ingested int `json:"ingested"`

	SizesResolved int `json:"sizes_resolved"`
	SizesFailed   int `json:"sizes_failed"`

	ReplicationChecked int `json:"replication_checked"`
	ReplicationFailed  int `json:"replication_failed"`

	Pinned      int   `json:"pinned"`
	PinFailed   int   `json:"pin_failed"`
	PinnedBytes int64 `json:"pinned_bytes"`

	// Utilization is the optimistic disk usage at the end of admission.
	Utilization int64 `json:"utilization"`

	// Notes lists stage-level problems, e.g. a failed catalog fetch.
	Notes []string `json:"notes,omitempty"`
}

// LedgerSummary is an aggregate view of the ledger.
type LedgerSummary struct {
	Tracked     int   `json:"tracked"`
	Sized       int   `json:"sized"`
	SizeFailed  int   `json:"size_failed"`
	Unresolved  int   `json:"unresolved"`
	Pinned      int   `json:"pinned"`
	PinnedBytes int64 `json:"pinned_bytes"`
}

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roach88/pinbot/internal/model"
	"github.com/roach88/pinbot/internal/store"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
}

// StatusReport is the payload of the status command.
type StatusReport struct {
	Ledger     model.LedgerSummary `json:"ledger"`
	DiskBudget int64               `json:"disk_budget"`
	LastCycle  *model.CycleReport  `json:"last_cycle,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarise the ledger and the last cycle",
		Long: `Print how many items are tracked, sized and pinned, how much of the disk
budget is reserved, and what the most recent cycle did.

Example:
  pinbot status
  pinbot status --db ./pinbot.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "ledger path (overrides database.path)")
	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	budget, err := cfg.DiskBudget()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid disk budget", err)
	}

	path := cfg.Database.Path
	if opts.Database != "" {
		path = opts.Database
	}
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLedger, fmt.Sprintf("ledger %s not found", path), err)
		}
	}
	formatter.VerboseLog("Reading ledger %s", path)

	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to open ledger", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	summary, err := st.Summary(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to read ledger", err)
	}

	report := StatusReport{Ledger: summary, DiskBudget: budget}
	last, err := st.LastCycle(ctx)
	switch {
	case err == nil:
		report.LastCycle = &last
	case !errors.Is(err, store.ErrNotFound):
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to read last cycle", err)
	}

	return formatter.Success(report)
}

// RenderText implements TextRenderer.
func (r StatusReport) RenderText(w io.Writer) error {
	row(w, "Tracked items", r.Ledger.Tracked)
	row(w, "  sized", r.Ledger.Sized)
	row(w, "  size failed", r.Ledger.SizeFailed)
	row(w, "  unresolved", r.Ledger.Unresolved)
	row(w, "Pinned items", r.Ledger.Pinned)
	row(w, "Pinned bytes", fmt.Sprintf("%s of %s (%.1f%%)",
		humanBytes(r.Ledger.PinnedBytes), humanBytes(r.DiskBudget), percent(r.Ledger.PinnedBytes, r.DiskBudget)))

	if r.LastCycle == nil {
		row(w, "Last cycle", "none")
		return nil
	}
	renderCycle(w, "Last cycle", *r.LastCycle)
	return nil
}

// RenderText implements TextRenderer.
func (s CycleSummary) RenderText(w io.Writer) error {
	renderCycle(w, "Cycle", s.CycleReport)
	return nil
}

func renderCycle(w io.Writer, title string, c model.CycleReport) {
	row(w, title, c.ID)
	row(w, "  started", c.StartedAt.UTC().Format(time.RFC3339))
	row(w, "  finished", c.FinishedAt.UTC().Format(time.RFC3339))
	row(w, "  ingested", c.Ingested)
	row(w, "  sizes", fmt.Sprintf("%d resolved, %d failed", c.SizesResolved, c.SizesFailed))
	row(w, "  replication", fmt.Sprintf("%d checked, %d failed", c.ReplicationChecked, c.ReplicationFailed))
	row(w, "  pins", fmt.Sprintf("%d ok, %d failed, %s", c.Pinned, c.PinFailed, humanBytes(c.PinnedBytes)))
	row(w, "  utilization", humanBytes(c.Utilization))
	for _, note := range c.Notes {
		row(w, "  note", note)
	}
}

func row(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%-16s%v\n", label+":", value)
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

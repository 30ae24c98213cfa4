package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/pinbot/internal/catalog"
	"github.com/roach88/pinbot/internal/config"
	"github.com/roach88/pinbot/internal/engine"
	"github.com/roach88/pinbot/internal/ipfs"
	"github.com/roach88/pinbot/internal/logging"
	"github.com/roach88/pinbot/internal/metrics"
	"github.com/roach88/pinbot/internal/model"
	"github.com/roach88/pinbot/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Once bool

	// The fields below are overridable for testing; nil means production.
	NewClient func(cfg config.Config) (ipfs.Client, error)
	NewSource func(cfg config.Config, log zerolog.Logger) catalog.Source
	Clock     engine.Clock
	IDs       engine.IDGenerator
	Logger    *zerolog.Logger
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	return newRunCommand(opts)
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pinning pipeline",
		Long: `Run ingestion, size resolution, replication checks and retention.

With schedule.interval unset (or --once) a single cycle runs and the process
exits; the exit code is 1 if any stage of that cycle failed. Otherwise cycles
repeat on the interval until SIGINT or SIGTERM. A cycle in progress finishes
before exit; a second signal cancels it.

Example:
  pinbot run --config /etc/pinbot.yaml
  pinbot run --once --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Once, "once", false, "run a single cycle regardless of schedule.interval")
	return cmd
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	log, closer, err := opts.logger(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStartup, "failed to set up logging", err)
	}
	defer closer.Close()
	log.Info().Str("config", cfg.Source).Str("database", cfg.Database.Path).Msg("pinbot starting")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLedger, "failed to open ledger", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing ledger")
		}
	}()

	client, err := opts.client(cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStartup, "failed to create IPFS client", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.Metrics.Listen != "" {
		srv := metrics.NewServer(cfg.Metrics.Listen, reg, log)
		if err := srv.Start(); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStartup, "failed to start metrics server", err)
		}
		defer srv.Close()
	}

	pipelineOpts := []engine.PipelineOption{engine.WithLogger(log), engine.WithMetrics(m)}
	if opts.Clock != nil {
		pipelineOpts = append(pipelineOpts, engine.WithClock(opts.Clock))
	}
	if opts.IDs != nil {
		pipelineOpts = append(pipelineOpts, engine.WithIDGenerator(opts.IDs))
	}
	p, err := engine.NewPipeline(cfg, st, opts.source(cfg, log), client, pipelineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid pipeline configuration", err)
	}

	afterCycle := func(model.CycleReport) {
		if cfg.Metrics.Textfile == "" {
			return
		}
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile, reg); err != nil {
			log.Error().Err(err).Msg("failed to write metrics textfile")
		}
	}

	stop, cancelCycle := opts.signalContexts(cmd, log)
	defer cancelCycle()

	interval := cfg.Schedule.Interval
	if opts.Once || interval <= 0 {
		report, err := p.RunCycle(stop.cycleCtx)
		afterCycle(report)
		if err != nil {
			if outErr := formatter.Error(ErrCodeCycle, "cycle completed with errors", report); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitFailure, "cycle completed with errors", err)
		}
		return formatter.Success(cycleSummary(report))
	}

	runScheduled(stop, p, interval, afterCycle, log)
	log.Info().Msg("pinbot stopped")
	return nil
}

// stopContexts separates "stop scheduling" from "abort the running cycle".
type stopContexts struct {
	loopCtx  context.Context
	cycleCtx context.Context
}

// signalContexts wires SIGINT/SIGTERM: the first signal ends the schedule,
// the second cancels the cycle in flight.
func (o *RunOptions) signalContexts(cmd *cobra.Command, log zerolog.Logger) (stopContexts, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	cycleCtx, cancelCycle := context.WithCancel(parent)
	loopCtx, cancelLoop := context.WithCancel(cycleCtx)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		for n := 0; ; n++ {
			select {
			case sig := <-sigChan:
				if n == 0 {
					log.Info().Str("signal", sig.String()).Msg("received signal, finishing current cycle")
					cancelLoop()
					continue
				}
				log.Warn().Str("signal", sig.String()).Msg("received second signal, aborting cycle")
				cancelCycle()
				return
			case <-cycleCtx.Done():
				return
			}
		}
	}()

	return stopContexts{loopCtx: loopCtx, cycleCtx: cycleCtx}, func() {
		cancelLoop()
		cancelCycle()
	}
}

// runScheduled runs a cycle immediately and then once per interval until
// the loop context ends. Cycle errors are logged; the loop carries on.
func runScheduled(ctxs stopContexts, p *engine.Pipeline, interval time.Duration, after func(model.CycleReport), log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := p.RunCycle(ctxs.cycleCtx)
		after(report)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("cycle", report.ID).Strs("failed_stages", stageNames(err)).Msg("cycle completed with errors")
		}

		select {
		case <-ctxs.loopCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

func stageNames(err error) []string {
	var names []string
	for _, s := range engine.FailedStages(err) {
		names = append(names, string(s))
	}
	return names
}

func (o *RunOptions) logger(cfg config.Config) (zerolog.Logger, io.Closer, error) {
	if o.Logger != nil {
		return *o.Logger, nopCloser{}, nil
	}
	return logging.New(cfg.Logging)
}

func (o *RunOptions) client(cfg config.Config) (ipfs.Client, error) {
	if o.NewClient != nil {
		return o.NewClient(cfg)
	}
	return ipfs.NewKubo(cfg.IPFS.API,
		ipfs.WithResolveTimeout(cfg.Sizes.Timeout),
		ipfs.WithPinTimeout(cfg.Pins.Timeout),
		ipfs.WithIdentityTimeout(cfg.IPFS.Timeout),
	), nil
}

func (o *RunOptions) source(cfg config.Config, log zerolog.Logger) catalog.Source {
	if o.NewSource != nil {
		return o.NewSource(cfg, log)
	}
	return catalog.NewHTTPSource(cfg.LibraryD.URL, cfg.LibraryD.Timeout, log)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// CycleSummary is the result printed after a single cycle.
type CycleSummary struct {
	model.CycleReport
}

func cycleSummary(r model.CycleReport) CycleSummary {
	return CycleSummary{CycleReport: r}
}

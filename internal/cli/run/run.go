package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strand-cli/strand/internal/config"
	"github.com/strand-cli/strand/internal/harness"
	"github.com/strand-cli/strand/internal/output"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var jobCount int
	var steps int
	var stepDelay time.Duration
	var failAt int
	var progress bool
	var wide bool
	var noHeaders bool

	cmd := &cobra.Command{
		Use:           "run",
		Short:         "Run jobs on confined worker threads",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Run the configured jobs, each on its own dedicated OS thread with a
thread-affine dispatch loop. Progress updates are marshaled onto a shared
home loop, and every worker loop drains before its thread exits.

Jobs come from the config file. Without a jobs section, a uniform batch is
synthesized from the defaults (see --jobs).`,
		Example: `  # Run the configured jobs
  strand run

  # Run 5 synthesized jobs with 10 steps each
  strand run --jobs 5 --steps 10

  # Speed the steps up and watch progress from the home loop
  strand run --step-delay 10ms --progress

  # Make every job fail at step 2 to exercise failure propagation
  strand run --fail-at 2

  # Machine-readable results
  strand run -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return runJobs(ctx, cmd, runOptions{
				jobCount:  jobCount,
				steps:     steps,
				stepDelay: stepDelay,
				failAt:    failAt,
				progress:  progress,
				wide:      wide,
				noHeaders: noHeaders,
			})
		},
	}

	cmd.Flags().IntVarP(&jobCount, "jobs", "j", 3, "Number of jobs to synthesize when the config has none")
	cmd.Flags().IntVar(&steps, "steps", 0, "Override step count for every job")
	cmd.Flags().DurationVar(&stepDelay, "step-delay", 0, "Override step delay for every job")
	cmd.Flags().IntVar(&failAt, "fail-at", 0, "Make every job fail at this step (0 disables)")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print per-step progress from the home loop")
	cmd.Flags().BoolVarP(&wide, "wide", "w", false, "Show worker thread and invocation ID columns")
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Hide table headers")

	return cmd
}

type runOptions struct {
	jobCount  int
	steps     int
	stepDelay time.Duration
	failAt    int
	progress  bool
	wide      bool
	noHeaders bool
}

func runJobs(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	logger := slog.Default()

	mgr := config.NewManager(viper.GetString("config"))
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	jobConfigs := cfg.Jobs
	if len(jobConfigs) == 0 {
		jobConfigs = cfg.SynthesizeJobs(opts.jobCount)
		logger.Debug("no jobs configured, synthesized batch", "jobs", len(jobConfigs))
	}

	// Flag overrides apply uniformly across the batch
	for i := range jobConfigs {
		if opts.steps > 0 {
			jobConfigs[i].Steps = opts.steps
		}
		if opts.stepDelay > 0 {
			jobConfigs[i].StepDelay = opts.stepDelay
		}
		if opts.failAt > 0 {
			jobConfigs[i].FailAt = opts.failAt
		}
	}

	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		timeout = cfg.Defaults.Timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var progressFn harness.ProgressFunc
	if opts.progress {
		out := cmd.ErrOrStderr()
		progressFn = func(job string, step, total int) {
			fmt.Fprintf(out, "%s: step %d/%d\n", job, step, total)
		}
	}

	h := harness.New(harness.FromConfig(jobConfigs), logger)
	results, runErr := h.RunWithProgress(runCtx, progressFn)

	if err := formatResults(cmd, cfg, opts, results); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("run finished with failures: %w", runErr)
	}
	return nil
}

// formatResults renders the results in the requested output format
func formatResults(cmd *cobra.Command, cfg *config.Config, opts runOptions, results []harness.Result) error {
	format := viper.GetString("output")
	if format == "" {
		format = cfg.Defaults.OutputFormat
	}
	if format == "" {
		format = string(output.FormatTable)
	}

	noColor := viper.GetBool("no-color") || cfg.Defaults.NoColor

	formatter := output.NewFormatter(output.Format(format),
		output.WithNoColor(noColor),
		output.WithWide(opts.wide),
		output.WithNoHeaders(opts.noHeaders),
	)

	return formatter.FormatResults(cmd.OutOrStdout(), results)
}

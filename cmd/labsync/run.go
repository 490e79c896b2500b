package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nicudesk/labsync/internal/chart"
	"github.com/nicudesk/labsync/internal/docsource"
	"github.com/nicudesk/labsync/internal/extract"
	"github.com/nicudesk/labsync/internal/logging"
	"github.com/nicudesk/labsync/internal/pipeline"
	"github.com/nicudesk/labsync/internal/sanitize"
	"github.com/nicudesk/labsync/internal/store"
	"github.com/nicudesk/labsync/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one ingestion run against the mailbox",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&cfg.GmailCredentials, "credentials", os.Getenv("LABSYNC_GMAIL_CREDENTIALS"), "Gmail credentials file (or set LABSYNC_GMAIL_CREDENTIALS)")
	f.StringVar(&cfg.GmailQuery, "query", cfg.GmailQuery, "Mailbox search query")
	f.IntVar(&cfg.MaxThreadsPerRun, "max-threads", cfg.MaxThreadsPerRun, "Thread cap per run")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateForRun(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(2)
	}

	shutdown, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Error().Err(err).Msg("telemetry setup failed")
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Error().Err(err).Msg("open document store failed")
		os.Exit(1)
	}
	defer st.Close()

	source, err := docsource.NewGmailSource(ctx, cfg.GmailCredentials)
	if err != nil {
		log.Error().Err(err).Msg("gmail source failed")
		os.Exit(1)
	}

	caller, err := extract.NewAnthropicCallerFromEnv(cfg.AnthropicModel)
	if err != nil {
		log.Error().Err(err).Msg("extraction client failed")
		os.Exit(1)
	}

	p := pipeline.New(
		pipeline.Config{
			Query:          cfg.GmailQuery,
			ProcessedLabel: cfg.ProcessedLabel,
			MaxThreads:     cfg.MaxThreadsPerRun,
			SubBatchSize:   cfg.SubBatchSize,
			RunBudget:      cfg.RunBudget,
			LockTTL:        cfg.LockTTL,
		},
		source,
		extract.NewExtractor(caller, log),
		chart.NewMerger(st, log),
		st,
		sanitize.DefaultTables(),
		log,
		pipeline.WithPauser(pipeline.SleepPauser{D: cfg.SubBatchPause}),
	)

	if err := p.Run(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
	return nil
}

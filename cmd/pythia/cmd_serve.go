package main

import (
	"fmt"
	"os/signal"
	"syscall"

	log "github.com/cihub/seelog"
	"github.com/spf13/cobra"

	"github.com/docc-lab/pythia/internal/budget"
	"github.com/docc-lab/pythia/internal/decision"
	"github.com/docc-lab/pythia/internal/grouping"
	"github.com/docc-lab/pythia/internal/metrics"
	"github.com/docc-lab/pythia/internal/reader"
)

// runServe is rootCmd's default action (no subcommand given), mirroring
// the original binary's redis_main fallback: load the manifest, dial
// the agent fleet and the Redis trace queue, and run the decision loop
// until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manifest, err := loadManifestFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	ctrl := newController(cfg)
	metricsClient, err := metrics.New(cfg.StatsdAddr, cfg.Application)
	if err != nil {
		return fmt.Errorf("serve: dialing statsd: %w", err)
	}
	defer metricsClient.Close()

	traceReader, err := reader.NewRedisReader(cfg.RedisURL, cfg.RedisTraceKey)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer traceReader.Close()

	budgetManager := budget.NewManager(ctrl, cfg.GCKeepDuration)
	for _, tp := range manifest.Skeleton() {
		budgetManager.Reserve(tp, "")
	}

	loop := &decision.Loop{
		Reader:              traceReader,
		Manifest:            manifest,
		Groups:              grouping.NewManager(),
		Budget:              budgetManager,
		Controller:          ctrl,
		Strategy:            strategyFor(cfg.SearchStrategy),
		Metrics:             metricsClient,
		Jiffy:               cfg.Jiffy,
		DecisionEpoch:       cfg.DecisionEpoch,
		GCEpoch:             cfg.GCEpoch,
		TracepointsPerEpoch: cfg.TracepointsPerEpoch,
		SkipPairs:           cfg.SkipPairTracepoints(),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loop.Init(ctx); err != nil {
		return fmt.Errorf("serve: initializing tracepoint state: %w", err)
	}
	log.Infof("pythia: decision loop running, jiffy=%s strategy=%s", cfg.Jiffy, cfg.SearchStrategy)
	loop.Run(ctx)
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docc-lab/pythia/internal/controller"
	"github.com/docc-lab/pythia/internal/grouping"
	"github.com/docc-lab/pythia/internal/model"
	"github.com/docc-lab/pythia/internal/search"
)

func runDisableAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return newController(cfg).DisableAll(cmd.Context())
}

func runEnableAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return newController(cfg).EnableAll(cmd.Context())
}

func runEnableSkeleton(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := loadManifestFromConfig(cfg)
	if err != nil {
		return err
	}
	ctrl := newController(cfg)
	if err := ctrl.DisableAll(cmd.Context()); err != nil {
		return err
	}
	skeleton := manifest.Skeleton()
	if len(skeleton) == 0 {
		return nil
	}
	keys := make([]controller.Key, len(skeleton))
	for i, tp := range skeleton {
		keys[i] = controller.Key{Tracepoint: tp}
	}
	return ctrl.Enable(cmd.Context(), keys)
}

func runDisableTracepoint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tp := model.Intern(args[0])
	key := controller.Key{Tracepoint: tp}
	if requestType != "" {
		key.RequestType = &requestType
	}
	return newController(cfg).Disable(cmd.Context(), []controller.Key{key})
}

// strategyFor resolves the configured search strategy name, defaulting
// to Flat when the config leaves it unset or unrecognized.
func strategyFor(name string) search.Strategy {
	switch name {
	case "Hierarchical":
		return search.Hierarchical{}
	case "Historic":
		return search.Historic{}
	default:
		return search.Flat{}
	}
}

// runDiagnose replays the decision loop's group-selection step
// (§4.J step 4) by hand, seeded from the manifest's own stored paths
// rather than a freshly ingested trace — useful for inspecting what a
// running agent would decide without waiting for live traffic.
func runDiagnose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := loadManifestFromConfig(cfg)
	if err != nil {
		return err
	}
	ctrl := newController(cfg)
	strategy := strategyFor(cfg.SearchStrategy)

	manager := grouping.NewManager()
	for _, space := range manifest.PerRequestType {
		for _, mr := range space.AllPaths() {
			manager.Ingest(mr.Path)
		}
	}

	remaining := diagnoseBudget
	for _, g := range manager.ProblemGroups() {
		if remaining <= 0 {
			break
		}
		if len(g.Traces) > 0 {
			fmt.Printf("group=%x variance=%.6f\n", g.Hash, g.Variance())
			for _, line := range strings.Split(strings.TrimRight(g.Traces[0].Render(), "\n"), "\n") {
				fmt.Printf("  %s\n", line)
			}
		}
		for _, edge := range g.ProblemEdges() {
			if remaining <= 0 {
				break
			}
			tracepoints, state := strategy.Search(g, edge, remaining, manifest, ctrl)
			if len(tracepoints) > 0 {
				var names []string
				for _, tp := range tracepoints {
					names = append(names, tp.String())
				}
				fmt.Printf("group=%x edge=(%d,%d) enable=%v\n", g.Hash, edge.From, edge.To, names)
				if !diagnoseDryRun {
					rt := g.RequestType
					keys := make([]controller.Key, len(tracepoints))
					for i, tp := range tracepoints {
						keys[i] = controller.Key{Tracepoint: tp, RequestType: &rt}
					}
					if err := ctrl.Enable(cmd.Context(), keys); err != nil {
						fmt.Printf("  enable failed: %v\n", err)
					}
				}
				remaining -= len(tracepoints)
			}
			if state == search.DepletedBudget {
				break
			}
		}
	}
	return nil
}

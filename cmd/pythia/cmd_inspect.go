package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docc-lab/pythia/internal/critical"
	"github.com/docc-lab/pythia/internal/grouping"
)

func runGetTrace(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctrl := newController(cfg)

	var all []interface{}
	for _, agent := range ctrl.Agents() {
		spans, err := ctrl.GetEvents(cmd.Context(), agent, args[0])
		if err != nil {
			fmt.Printf("agent %s: %v\n", agent, err)
			continue
		}
		for _, s := range spans {
			all = append(all, s)
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(all)
}

func runReadFile(cmd *cobra.Command, args []string) error {
	t, err := readTraceFile(args[0])
	if err != nil {
		return err
	}
	tf := traceToFile(t)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func runDumpTraces(cmd *cobra.Command, args []string) error {
	traces, err := readTraceFolder(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for _, t := range traces {
		if err := enc.Encode(traceToFile(t)); err != nil {
			return err
		}
	}
	return nil
}

func runGetCrit(cmd *cobra.Command, args []string) error {
	t, err := readTraceFile(args[0])
	if err != nil {
		return err
	}
	cp, err := critical.ExtractCriticalPath(t)
	if err != nil {
		return fmt.Errorf("get-crit: %w", err)
	}
	hp := critical.BuildHierarchical(cp)
	fmt.Print(hp.Render())
	fmt.Printf("duration=%s hypothetical=%v\n", cp.Duration(), cp.IsHypothetical)
	return nil
}

func runGroupFolder(cmd *cobra.Command, args []string) error {
	traces, err := readTraceFolder(args[0])
	if err != nil {
		return err
	}
	manager := grouping.NewManager()
	for _, t := range traces {
		cp, err := critical.ExtractCriticalPath(t)
		if err != nil {
			fmt.Printf("skipping trace %s: %v\n", t.BaseID, err)
			continue
		}
		hp := critical.BuildHierarchical(cp)
		manager.Ingest(hp)
	}
	for _, g := range manager.ProblemGroups() {
		fmt.Printf("%x\trequest_type=%s\tnodes=%d\ttraces=%d\tvariance=%.6f\n",
			g.Hash, g.RequestType, g.NodeCount(), len(g.Traces), g.Variance())
	}
	return nil
}

func runGroupIDs(cmd *cobra.Command, args []string) error {
	traces, err := readTraceFolder(args[0])
	if err != nil {
		return err
	}
	for _, t := range traces {
		cp, err := critical.ExtractCriticalPath(t)
		if err != nil {
			fmt.Printf("%s\terror: %v\n", t.BaseID, err)
			continue
		}
		fmt.Printf("%s\t%x\n", t.BaseID, cp.Hash)
	}
	return nil
}

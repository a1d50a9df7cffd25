package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docc-lab/pythia/internal/searchspace"
)

func runManifest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	traces, err := readTraceFolder(args[0])
	if err != nil {
		return err
	}

	manifest := searchspace.NewManifest()
	if !manifestOverwrite {
		if existing, err := searchspace.LoadManifest(cfg.ManifestFile); err == nil {
			manifest = existing
		}
	}

	patterns := cfg.CompileRequestTypeRegexes()
	skip := cfg.SkipPairTracepoints()
	for _, t := range traces {
		manifest.SearchSpaceFor(t.RequestType).AddTrace(t, false, skip...)
		manifest.AddRequestTypeTracepoints(t, patterns)
	}

	if err := manifest.Save(cfg.ManifestFile); err != nil {
		return fmt.Errorf("manifest: saving to %s: %w", cfg.ManifestFile, err)
	}
	fmt.Printf("wrote manifest for %d request types from %d traces to %s\n", len(manifest.PerRequestType), len(traces), cfg.ManifestFile)
	return nil
}

func runTryManifest(cmd *cobra.Command, args []string) error {
	manifest, err := searchspace.LoadManifest(args[0])
	if err != nil {
		return fmt.Errorf("try-manifest: %w", err)
	}
	printManifestStats(manifest)
	return nil
}

func runShowManifest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := loadManifestFromConfig(cfg)
	if err != nil {
		return err
	}
	for rt, space := range manifest.PerRequestType {
		fmt.Printf("request_type=%s paths=%d entry_points=%d sync_points=%d\n",
			rt, space.Len(), len(space.EntryPoints), len(space.SynchronizationPoints))
		for _, mr := range space.AllPaths() {
			fmt.Printf("  occurrences=%d\n", mr.Occurrences)
			for _, line := range strings.Split(strings.TrimRight(mr.Path.Render(), "\n"), "\n") {
				fmt.Printf("    %s\n", line)
			}
		}
	}
	return nil
}

func runManifestStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	manifest, err := loadManifestFromConfig(cfg)
	if err != nil {
		return err
	}
	printManifestStats(manifest)
	return nil
}

func printManifestStats(manifest *searchspace.Manifest) {
	fmt.Printf("request_types=%d skeleton_tracepoints=%d\n", len(manifest.PerRequestType), len(manifest.Skeleton()))
	for rt, space := range manifest.PerRequestType {
		fmt.Printf("  %s: paths=%d entry_points=%d sync_points=%d\n", rt, space.Len(), len(space.EntryPoints), len(space.SynchronizationPoints))
	}
}

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	diagnoseBudget     int
	diagnoseDryRun     bool
	requestType        string
	manifestOverwrite  bool

	rootCmd = &cobra.Command{
		Use:   "pythia",
		Short: "Feedback-driven tracepoint controller",
		Long: `Pythia watches a fleet of agent-side tracepoints, groups the critical
paths it observes, and decides which tracepoints to enable next.

Run with no subcommand to start the decision loop against the
configured Redis trace queue and agent fleet; the subcommands below are
operator tooling layered on top of the same manifest and controller.`,
		RunE: runServe, // cmd_serve.go
	}

	// --- Manifest building / inspection ---
	manifestCmd = &cobra.Command{
		Use:   "manifest [trace-folder]",
		Short: "Build a manifest from a folder of trace files and save it",
		Args:  cobra.ExactArgs(1),
		RunE:  runManifest, // cmd_manifest.go
	}
	tryManifestCmd = &cobra.Command{
		Use:   "try-manifest [path]",
		Short: "Load and validate a manifest file without installing it",
		Args:  cobra.ExactArgs(1),
		RunE:  runTryManifest, // cmd_manifest.go
	}
	showManifestCmd = &cobra.Command{
		Use:   "show-manifest",
		Short: "Print the configured manifest's search spaces",
		RunE:  runShowManifest, // cmd_manifest.go
	}
	manifestStatsCmd = &cobra.Command{
		Use:   "manifest-stats",
		Short: "Print per-request-type path and tracepoint counts",
		RunE:  runManifestStats, // cmd_manifest.go
	}

	// --- Trace inspection ---
	getTraceCmd = &cobra.Command{
		Use:   "get-trace [trace-id]",
		Short: "Fetch every event an agent fleet holds for a trace id",
		Args:  cobra.ExactArgs(1),
		RunE:  runGetTrace, // cmd_inspect.go
	}
	readFileCmd = &cobra.Command{
		Use:   "read-file [path]",
		Short: "Print the nodes and edges of one trace file",
		Args:  cobra.ExactArgs(1),
		RunE:  runReadFile, // cmd_inspect.go
	}
	dumpTracesCmd = &cobra.Command{
		Use:   "dump-traces [folder]",
		Short: "Print every trace file in a folder as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runDumpTraces, // cmd_inspect.go
	}
	getCritCmd = &cobra.Command{
		Use:   "get-crit [path]",
		Short: "Extract and print the critical path of a trace file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGetCrit, // cmd_inspect.go
	}
	groupFolderCmd = &cobra.Command{
		Use:   "group-folder [folder]",
		Short: "Group every trace file in a folder by critical-path hash",
		Args:  cobra.ExactArgs(1),
		RunE:  runGroupFolder, // cmd_inspect.go
	}
	groupIDsCmd = &cobra.Command{
		Use:   "group-ids [folder]",
		Short: "Print each trace file's critical-path group hash",
		Args:  cobra.ExactArgs(1),
		RunE:  runGroupIDs, // cmd_inspect.go
	}

	// --- Fleet control ---
	diagnoseCmd = &cobra.Command{
		Use:   "diagnose",
		Short: "Run one decision epoch by hand against the live agent fleet",
		RunE:  runDiagnose, // cmd_control.go
	}
	disableAllCmd = &cobra.Command{
		Use:   "disable-all",
		Short: "Disable every tracepoint on every agent",
		RunE:  runDisableAll, // cmd_control.go
	}
	disableTracepointCmd = &cobra.Command{
		Use:   "disable-tracepoint [tracepoint]",
		Short: "Disable a single tracepoint, optionally scoped to a request type",
		Args:  cobra.ExactArgs(1),
		RunE:  runDisableTracepoint, // cmd_control.go
	}
	enableAllCmd = &cobra.Command{
		Use:   "enable-all",
		Short: "Enable every tracepoint on every agent",
		RunE:  runEnableAll, // cmd_control.go
	}
	enableSkeletonCmd = &cobra.Command{
		Use:   "enable-skeleton",
		Short: "Disable all tracepoints, then enable the manifest's skeleton",
		RunE:  runEnableSkeleton, // cmd_control.go
	}

	// --- Config / key-value ---
	showConfigCmd = &cobra.Command{
		Use:   "show-config",
		Short: "Print the resolved configuration",
		RunE:  runShowConfig, // cmd_config.go
	}
	keyValueCmd = &cobra.Command{
		Use:   "key-value [get|set] [agent] [key] [value]",
		Short: "Read or write a key in an agent's osprofiler key-value store",
		Args:  cobra.RangeArgs(3, 4),
		RunE:  runKeyValue, // cmd_config.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "pythia.yaml", "path to the Pythia configuration file")

	rootCmd.AddCommand(manifestCmd)
	manifestCmd.Flags().BoolVar(&manifestOverwrite, "overwrite", false, "replace the existing manifest instead of merging into it")
	rootCmd.AddCommand(tryManifestCmd)
	rootCmd.AddCommand(showManifestCmd)
	rootCmd.AddCommand(manifestStatsCmd)

	rootCmd.AddCommand(getTraceCmd)
	rootCmd.AddCommand(readFileCmd)
	rootCmd.AddCommand(dumpTracesCmd)
	rootCmd.AddCommand(getCritCmd)
	rootCmd.AddCommand(groupFolderCmd)
	rootCmd.AddCommand(groupIDsCmd)

	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().IntVar(&diagnoseBudget, "budget", 3, "maximum tracepoints to enable this epoch")
	diagnoseCmd.Flags().BoolVar(&diagnoseDryRun, "dry-run", false, "compute the decision without enabling anything")

	rootCmd.AddCommand(disableAllCmd)
	rootCmd.AddCommand(disableTracepointCmd)
	disableTracepointCmd.Flags().StringVar(&requestType, "request-type", "", "scope the disable to one request type (default: global)")
	rootCmd.AddCommand(enableAllCmd)
	rootCmd.AddCommand(enableSkeletonCmd)

	rootCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(keyValueCmd)
}

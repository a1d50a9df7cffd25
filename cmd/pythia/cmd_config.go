package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runShowConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("application=%s\n", cfg.Application)
	fmt.Printf("manifest_file=%s\n", cfg.ManifestFile)
	fmt.Printf("redis_url=%s\n", cfg.RedisURL)
	fmt.Printf("xtrace_url=%s\n", cfg.XTraceURL)
	fmt.Printf("pythia_clients=%v\n", cfg.PythiaClients)
	fmt.Printf("search_strategy=%s\n", cfg.SearchStrategy)
	fmt.Printf("jiffy=%s\n", cfg.Jiffy)
	fmt.Printf("decision_epoch=%s\n", cfg.DecisionEpoch)
	fmt.Printf("gc_epoch=%s\n", cfg.GCEpoch)
	fmt.Printf("gc_keep_duration=%s\n", cfg.GCKeepDuration)
	fmt.Printf("tracepoints_per_epoch=%d\n", cfg.TracepointsPerEpoch)
	return nil
}

func runKeyValue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctrl := newController(cfg)

	op, agent, key := args[0], args[1], args[2]
	switch op {
	case "get":
		value, err := ctrl.GetKey(cmd.Context(), agent, key)
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	case "set":
		if len(args) != 4 {
			return fmt.Errorf("key-value: set requires a value argument")
		}
		return ctrl.SetKey(cmd.Context(), agent, key, args[3])
	default:
		return fmt.Errorf("key-value: unknown operation %q (want get or set)", op)
	}
}

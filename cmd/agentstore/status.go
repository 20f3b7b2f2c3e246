package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentstore/agentstore/internal/store"
)

var statusTop int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog contents and recent update runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		snapshot := &store.Snapshot{Path: cfg.SnapshotPath()}
		capabilities, _, err := snapshot.Load()
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan).SprintFunc()

		bySource := map[string]int{}
		for _, c := range capabilities {
			bySource[c.Source]++
		}
		fmt.Printf("%s %d capabilities in catalog\n", cyan("→"), len(capabilities))
		for source, n := range bySource {
			fmt.Printf("    %-14s %d\n", source, n)
		}

		if len(capabilities) > 0 {
			fmt.Printf("\n%s Top capabilities by score\n", cyan("→"))
			top := capabilities
			if len(top) > statusTop {
				top = top[:statusTop]
			}
			for i, c := range top {
				fmt.Printf("  %2d. %-40s %.1f  %s\n", i+1, c.Name, c.OverallScore, c.Category)
			}
		}

		updateLog := &store.UpdateLog{Path: cfg.UpdateLogPath()}
		records, err := updateLog.Records()
		if err != nil {
			return err
		}
		if len(records) > 0 {
			last := records[len(records)-1]
			fmt.Printf("\n%s Last update run\n", cyan("→"))
			fmt.Printf("    time:       %s\n", last.Timestamp)
			fmt.Printf("    discovered: %d\n", last.TotalDiscovered)
			fmt.Printf("    new:        %d\n", last.NewCount)
			fmt.Printf("    failed:     %d\n", len(last.Failed))
			if last.Forced {
				fmt.Printf("    forced:     true\n")
			}
		} else {
			fmt.Println("\nNo update runs recorded yet.")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusTop, "top", 10, "Number of top-scored capabilities to list")
	rootCmd.AddCommand(statusCmd)
}

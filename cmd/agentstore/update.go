package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentstore/agentstore/internal/pipeline"
)

var (
	updateForce  bool
	updateDryRun bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run an incremental catalog update",
	Long: `Discover capabilities from all sources and process the ones not yet in
the catalog: collect GitHub metadata, run security scans, analyze with
the configured AI model, score, and merge the results into
capabilities.json and the SQLite mirror.

Entries already present in the snapshot are skipped. Use --force to
reprocess everything and --dry-run to see what would be processed
without touching anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, err := pipeline.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		result, err := p.Run(context.Background(), pipeline.Options{
			Force:  updateForce,
			DryRun: updateDryRun,
		})
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		if result.DryRun {
			if len(result.NewEntries) == 0 {
				fmt.Println("Nothing to process: every discovered capability is already in the catalog.")
				return nil
			}
			fmt.Printf("%s %d capabilities would be processed:\n", yellow("dry-run:"), len(result.NewEntries))
			for i, entry := range result.NewEntries {
				fmt.Printf("  %d. %s (%s) - %s\n", i+1, entry.Name, entry.Slug(), entry.Source)
			}
			return nil
		}

		fmt.Printf("\nDiscovered %d capabilities (%d already known)\n", result.TotalDiscovered, result.TotalExisting)
		if len(result.NewEntries) == 0 {
			fmt.Println("No new capabilities to process.")
			return nil
		}
		fmt.Printf("%s %d processed successfully\n", green("✓"), result.Succeeded)
		if len(result.Failed) > 0 {
			fmt.Printf("%s %d failed:\n", yellow("⚠"), len(result.Failed))
			for _, slug := range result.Failed {
				fmt.Printf("    %s\n", slug)
			}
		}
		fmt.Printf("Catalog now holds %d capabilities.\n", result.TotalMerged)
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "Reprocess every discovered capability, ignoring the snapshot")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Show what would be processed without running the pipeline")
	rootCmd.AddCommand(updateCmd)
}

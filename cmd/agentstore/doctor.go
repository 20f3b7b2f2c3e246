package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentstore/agentstore/internal/config"
	"github.com/agentstore/agentstore/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment health for pipeline runs",
	Long: `Run health checks to diagnose common configuration and environment
issues before an update run.

This command checks for:
- Valid AI provider configuration and API key
- GitHub token (optional, but rate limits bite without one)
- git availability (required for security scanning)
- semgrep and trivy availability (optional scanners)
- Data directory writability
- SQLite database accessibility

Exit codes:
  0 - All checks passed
  1 - One or more optional checks failed
  2 - Critical failures that prevent update runs`,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("Running AgentStore health checks...\n\n")

		var warnings, criticalFailures []string

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("%s Configuration\n", cyan("→"))
			fmt.Printf("  %s %v\n", red("✗"), err)
			os.Exit(2)
		}

		// Check 1: AI provider configuration
		fmt.Printf("%s AI provider\n", cyan("→"))
		if err := cfg.Validate(); err != nil {
			criticalFailures = append(criticalFailures, err.Error())
			fmt.Printf("  %s %v\n", red("✗"), err)
		} else {
			fmt.Printf("  %s Provider %q configured\n", green("✓"), cfg.AIProvider)
			switch cfg.AIProvider {
			case config.ProviderAnthropic:
				if cfg.AnthropicAPIKey == "" {
					criticalFailures = append(criticalFailures, "ANTHROPIC_API_KEY not set")
					fmt.Printf("  %s ANTHROPIC_API_KEY not set\n", red("✗"))
				} else {
					fmt.Printf("  %s API key present\n", green("✓"))
				}
			case config.ProviderOpenAI:
				if cfg.OpenAIAPIKey == "" {
					criticalFailures = append(criticalFailures, "OPENAI_API_KEY not set")
					fmt.Printf("  %s OPENAI_API_KEY not set\n", red("✗"))
				} else {
					fmt.Printf("  %s API key present\n", green("✓"))
				}
			case config.ProviderOllama:
				fmt.Printf("  %s Using local model %q at %s\n", green("✓"), cfg.OllamaModel, cfg.OllamaBaseURL)
			}
		}

		// Check 2: GitHub token
		fmt.Printf("%s GitHub token\n", cyan("→"))
		if cfg.GitHubToken == "" {
			warnings = append(warnings, "No GitHub token set; unauthenticated rate limits are 60 requests/hour")
			fmt.Printf("  %s No token set (unauthenticated requests are heavily rate limited)\n", yellow("⚠"))
		} else {
			fmt.Printf("  %s Token present\n", green("✓"))
		}

		// Check 3: external binaries
		fmt.Printf("%s External tools\n", cyan("→"))
		if _, err := exec.LookPath("git"); err != nil {
			warnings = append(warnings, "git not found; security scanning will be skipped")
			fmt.Printf("  %s git not found, security scanning disabled\n", yellow("⚠"))
		} else {
			fmt.Printf("  %s git found\n", green("✓"))
		}
		for _, tool := range []string{"semgrep", "trivy"} {
			if _, err := exec.LookPath(tool); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s not found; that scanner will be skipped", tool))
				fmt.Printf("  %s %s not found (optional scanner, will be skipped)\n", yellow("⚠"), tool)
			} else {
				fmt.Printf("  %s %s found\n", green("✓"), tool)
			}
		}

		// Check 4: data directory
		fmt.Printf("%s Data directory\n", cyan("→"))
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			criticalFailures = append(criticalFailures, fmt.Sprintf("Cannot create data directory: %v", err))
			fmt.Printf("  %s Cannot create %s\n", red("✗"), cfg.DataDir)
		} else {
			fmt.Printf("  %s %s writable\n", green("✓"), cfg.DataDir)
		}

		// Check 5: database
		fmt.Printf("%s SQLite database\n", cyan("→"))
		if cfg.DatabasePath == "" {
			fmt.Printf("  %s No database path configured, SQLite mirror disabled\n", yellow("⚠"))
			warnings = append(warnings, "SQLite mirror disabled (AGENTSTORE_DB_PATH not set)")
		} else if db, err := store.OpenDB(cfg.DatabasePath); err != nil {
			criticalFailures = append(criticalFailures, fmt.Sprintf("Cannot open database: %v", err))
			fmt.Printf("  %s Cannot open %s\n", red("✗"), cfg.DatabasePath)
		} else {
			n, countErr := db.Count(cmd.Context())
			db.Close()
			if countErr != nil {
				warnings = append(warnings, fmt.Sprintf("Database opened but query failed: %v", countErr))
				fmt.Printf("  %s Opened but query failed\n", yellow("⚠"))
			} else {
				fmt.Printf("  %s %s accessible (%d capabilities)\n", green("✓"), cfg.DatabasePath, n)
			}
		}

		fmt.Println()
		switch {
		case len(criticalFailures) > 0:
			fmt.Printf("%s %d critical failure(s) prevent update runs\n", red("✗"), len(criticalFailures))
			os.Exit(2)
		case len(warnings) > 0:
			fmt.Printf("%s Passed with %d warning(s)\n", yellow("⚠"), len(warnings))
			os.Exit(1)
		default:
			fmt.Printf("%s All checks passed\n", green("✓"))
		}
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

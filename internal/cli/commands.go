// Package cli defines the kabuto command tree.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/torisan/KabutoGo/config"
	"github.com/torisan/KabutoGo/internal/display"
	"github.com/torisan/KabutoGo/internal/trading"
	"github.com/torisan/KabutoGo/internal/universe"
)

const version = "1.0.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "kabuto",
		Short: "Kabuto - Nikkei 225 swing screener and paper trader",
		Long: `Kabuto screens the Nikkei 225 for swing candidates each evening and
rebalances a simulated portfolio against the latest picks each morning.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newScanCmd(cfg))
	rootCmd.AddCommand(newTradeCmd(cfg))
	rootCmd.AddCommand(newUniverseCmd(cfg))
	rootCmd.AddCommand(newWarmCacheCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newScanCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the end-of-day screen and write the daily report",
		RunE: func(cmd *cobra.Command, args []string) error {
			asof, _ := cmd.Flags().GetString("asof")
			limit, _ := cmd.Flags().GetInt("limit-universe")
			if asof != "" {
				if _, err := time.Parse("2006-01-02", asof); err != nil {
					return fmt.Errorf("invalid asof format, use YYYY-MM-DD: %w", err)
				}
			}

			session := trading.NewScanSession(cfg)
			payload, err := session.Execute(context.Background(), asof, limit)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			display.Picks(payload)
			display.Success(fmt.Sprintf("Scan complete, %d candidates written to %s", len(payload.Picks), cfg.ReportsDir))
			return nil
		},
	}

	cmd.Flags().String("asof", "", "Pin the payload date (YYYY-MM-DD) instead of using the latest bar date")
	cmd.Flags().Int("limit-universe", 0, "Scan only the first N universe entries")
	return cmd
}

func newTradeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Rebalance the paper portfolio against the latest picks",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			force, _ := cmd.Flags().GetBool("force")
			if date != "" {
				if _, err := time.Parse("2006-01-02", date); err != nil {
					return fmt.Errorf("invalid date format, use YYYY-MM-DD: %w", err)
				}
			}

			session := trading.NewTradeSession(cfg)
			result, err := session.Execute(context.Background(), date, force)
			if err != nil {
				return fmt.Errorf("trade failed: %w", err)
			}
			display.TradeResult(result)
			return nil
		},
	}

	cmd.Flags().String("date", "", "Trade date in YYYY-MM-DD format (today in JST if not provided)")
	cmd.Flags().Bool("force", false, "Rerun even when this date was already traded")
	return cmd
}

func newUniverseCmd(cfg *config.Config) *cobra.Command {
	universeCmd := &cobra.Command{
		Use:   "universe",
		Short: "Universe management",
	}

	universeCmd.AddCommand(&cobra.Command{
		Use:   "update",
		Short: "Refresh the Nikkei 225 constituent list",
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, err := universe.FetchNikkei225()
			if err != nil {
				return fmt.Errorf("universe update failed: %w", err)
			}
			if err := universe.WriteCSV(cfg.UniverseCSV, tickers); err != nil {
				return fmt.Errorf("write universe: %w", err)
			}
			display.Success(fmt.Sprintf("Universe updated: %d tickers written to %s", len(tickers), cfg.UniverseCSV))
			return nil
		},
	})

	return universeCmd
}

func newWarmCacheCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warmcache",
		Short: "Pre-download daily history for the universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, _ := cmd.Flags().GetInt("offset")
			batch, _ := cmd.Flags().GetInt("batch-size")
			if err := trading.WarmCache(context.Background(), cfg, offset, batch); err != nil {
				return fmt.Errorf("warmcache failed: %w", err)
			}
			display.Success("History cache warmed")
			return nil
		},
	}

	cmd.Flags().Int("offset", 0, "Skip the first N universe entries")
	cmd.Flags().Int("batch-size", 0, "Warm at most N entries (0 = all remaining)")
	return cmd
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			display.Success("Configuration is valid")
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Interactively write a .env file with the common settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cfg)
		},
	})

	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Kabuto v%s\n", version)
			fmt.Println("Nikkei 225 swing screener and paper trader")
		},
	}
}

func showConfig(cfg *config.Config) {
	fmt.Println("Current Kabuto configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Printf("Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Printf("Reports Directory:    %s\n", cfg.ReportsDir)
	fmt.Printf("Paper Directory:      %s\n", cfg.PaperDir)
	fmt.Println()
	fmt.Printf("Universe:             %s (%s)\n", cfg.UniverseKind, cfg.UniverseCSV)
	fmt.Printf("History Provider:     %s\n", cfg.HistoryProvider)
	fmt.Printf("Lookback Days:        %d\n", cfg.LookbackDays)
	fmt.Println()
	fmt.Printf("Min Avg Value Traded: %.0f JPY\n", cfg.MinAvgValueTraded)
	fmt.Printf("Min Price:            %.0f JPY\n", cfg.MinPrice)
	fmt.Printf("Above EMA50 / EMA200: %t / %t\n", cfg.AboveEMA50, cfg.AboveEMA200)
	fmt.Printf("Top N:                %d\n", cfg.TopN)
	fmt.Printf("Price Action Weight:  %.2f\n", cfg.PriceActionWeight)
	fmt.Println()
	fmt.Printf("Paper Trading:        %t\n", cfg.PaperEnabled)
	fmt.Printf("Top K:                %d\n", cfg.TopK)
	fmt.Printf("Initial Cash:         %.0f JPY\n", cfg.InitialCash)
	fmt.Printf("Lot Size:             %d\n", cfg.LotSize)
	fmt.Printf("Price Source:         %s\n", cfg.PriceSource)
	fmt.Printf("Local Fallback:       %t (%s)\n", cfg.FallbackLocal, cfg.LocalPriceField)
	fmt.Printf("Pick-Close Fallback:  %t\n", cfg.FallbackPickClose)
	fmt.Println()
	fmt.Printf("LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Printf("AI Trade Review:      %t (%s)\n", cfg.AITradeEnabled, cfg.AITradeModel)
	fmt.Printf("AI Pick Review:       %t (%s)\n", cfg.AIReviewEnabled, cfg.AIReviewModel)
	fmt.Printf("AI Score Weight:      %.2f\n", cfg.AIScoreWeight)
	fmt.Println()

	fmt.Println("API keys:")
	fmt.Println("─────────────────────")
	if cfg.OpenAIAPIKey != "" {
		fmt.Println("OpenAI API:           configured")
	} else {
		fmt.Println("OpenAI API:           not configured")
	}
	if cfg.DeepSeekAPIKey != "" {
		fmt.Println("DeepSeek API:         configured")
	} else {
		fmt.Println("DeepSeek API:         not configured")
	}
}

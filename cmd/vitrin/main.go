package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vitrinapp/vitrin/internal/config"
	"github.com/vitrinapp/vitrin/internal/debuglog"
	"github.com/vitrinapp/vitrin/internal/discovery"
	"github.com/vitrinapp/vitrin/internal/remote"
	"github.com/vitrinapp/vitrin/internal/tui"
)

// Version is set at build time.
var Version = "dev"

var (
	configPath string
	quiet      bool
	debugLevel string
)

var rootCmd = &cobra.Command{
	Use:   "vitrin",
	Short: "Browse a marketplace from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, engine, err := setup()
		if err != nil {
			return err
		}
		defer engine.Close()

		if !quiet {
			tui.ShowBanner(Version)
		}

		app := tui.NewApp(engine, cfg)
		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running ui: %w", err)
		}
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the ranked feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, err := setup()
		if err != nil {
			return err
		}
		defer engine.Close()

		query, _ := cmd.Flags().GetString("query")
		category, _ := cmd.Flags().GetString("category")
		flashSale, _ := cmd.Flags().GetBool("flash-sale")

		items, err := engine.Feed(context.Background(), remote.FeedFilters{
			Query:     query,
			Category:  category,
			FlashSale: flashSale,
		})
		if err != nil {
			return err
		}

		for _, it := range items {
			marker := " "
			if it.Viewer.Liked {
				marker = "♥"
			}
			fmt.Printf("%s %-14s %-32s ♥ %d\n", marker, it.SellerID, it.Title, it.Engage.LikeCount)
		}
		return nil
	},
}

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Print the live story rail",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, engine, err := setup()
		if err != nil {
			return err
		}
		defer engine.Close()

		items, err := engine.Stories(context.Background())
		if err != nil {
			return err
		}

		for _, it := range items {
			expiry := ""
			if it.ExpiresAt != nil {
				expiry = it.ExpiresAt.Format("15:04")
			}
			fmt.Printf("◉ %-14s %-32s expires %s\n", it.SellerID, it.Title, expiry)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "vitrin", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			log.Fatalf("Failed to generate config: %v", err)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vitrin %s\n", Version)
		fmt.Println("Marketplace browser")
		fmt.Println("github.com/vitrinapp/vitrin")
	},
}

func setup() (*config.Config, *discovery.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(debugLevel)); err != nil {
		// A missing log file never blocks the app
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	engine, err := discovery.NewEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, engine, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&debugLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Skip startup banner")

	feedCmd.Flags().String("query", "", "Free-text search")
	feedCmd.Flags().String("category", "", "Category slug or alias")
	feedCmd.Flags().Bool("flash-sale", false, "Only flash-sale listings")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(feedCmd, storiesCmd, configCmd, versionCmd)
}

func main() {
	defer debuglog.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

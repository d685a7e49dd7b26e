// stockqa: Indian stock market data fetcher and Q&A
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/stockqa/api"
	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/llm"
	"github.com/seenimoa/stockqa/internal/session"
	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockqa",
	Short: "stockqa — Indian stock market data fetcher and Q&A",
	Long: `stockqa fetches daily price history for NSE and BSE listed stocks from
Yahoo Finance and answers free-text questions about the fetched series with
a hosted LLM (Groq by default).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// addQueryFlags registers the market and date-range flags shared by fetch and ask.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("market", "m", "", "exchange: NSE or BSE (default from config)")
	cmd.Flags().String("start", "", "start date YYYY-MM-DD (default from config)")
	cmd.Flags().String("end", "", "end date YYYY-MM-DD, exclusive (default today)")
}

func queryFromFlags(cmd *cobra.Command, ticker string) (models.Query, error) {
	market, _ := cmd.Flags().GetString("market")
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	return api.QueryInput{Market: market, Ticker: ticker, Start: start, End: end}.Query(cfg.UI)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stockqa %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (HTTP server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (page, JSON API and websocket)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		logger := setupLogging(cfg)

		svc, err := buildService(cfg, logger)
		if err != nil {
			return err
		}
		srv, err := api.NewServer(cfg, svc, api.WithLogger(logger), api.WithVersion(version))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("🌐 Starting stockqa on http://%s\n", cfg.API.Addr())
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "listen port (default from config)")
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [ticker]",
	Short: "Fetch and print the daily price table for a stock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogging(cfg)
		q, err := queryFromFlags(cmd, args[0])
		if err != nil {
			return err
		}

		svc := session.NewService(buildSource(cfg, logger), nil, logger)
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout(cfg.DataSource.TimeoutSec))
		defer cancel()

		res := svc.Fetch(ctx, q)
		if !res.OK() {
			return fmt.Errorf("%s", res.Message)
		}
		fmt.Printf("📊 %s (%s)\n\n", res.Heading, res.Symbol)
		return printSeries(res.Series)
	},
}

func init() {
	addQueryFlags(fetchCmd)
}

// --- Ask Command ---

var askCmd = &cobra.Command{
	Use:   "ask [ticker] [question]",
	Short: "Fetch a stock's price series and ask the LLM a question about it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := setupLogging(cfg)
		q, err := queryFromFlags(cmd, args[0])
		if err != nil {
			return err
		}
		question := strings.Join(args[1:], " ")

		svc, err := buildService(cfg, logger)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(),
			timeout(cfg.DataSource.TimeoutSec)+timeout(cfg.LLM.TimeoutSec))
		defer cancel()

		fetched := svc.Fetch(ctx, q)
		if !fetched.OK() {
			return fmt.Errorf("%s", fetched.Message)
		}
		fmt.Printf("📊 %s (%d rows)\n\n", fetched.Heading, fetched.Series.Len())

		res := svc.Answer(ctx, fetched.Series, question)
		if !res.OK() {
			return fmt.Errorf("%s", res.Message)
		}
		fmt.Printf("Input: %s\n", res.Answer.Input)
		fmt.Printf("Output: %s\n", res.Answer.Output)
		return nil
	},
}

func init() {
	addQueryFlags(askCmd)
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  stockqa — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (IST):    %s\n", utils.FormatDateTimeIST(utils.NowIST()))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s, temperature: %g)\n", cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.Temperature)
		fmt.Printf("    Data Source:   %s\n", cfg.DataSource.BaseURL)
		fmt.Printf("    HTTP Server:   %s\n", cfg.API.Addr())
		fmt.Printf("    Form Defaults: %s %s from %s\n", cfg.UI.DefaultMarket, cfg.UI.DefaultTicker, cfg.UI.DefaultStart)
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		if ping, _ := cmd.Flags().GetBool("ping"); ping {
			fmt.Println()
			fmt.Printf("  LLM Reachable: %s\n", pingLLM(cmd.Context(), cfg))
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("ping", false, "check that the LLM provider accepts the configured key")
}

func pingLLM(ctx context.Context, cfg *config.Config) string {
	provider, err := llm.NewProviderFromConfig(cfg.LLM)
	if err != nil {
		return "❌ " + err.Error()
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := provider.Ping(ctx); err != nil {
		return "❌ " + err.Error()
	}
	return "✅ ok"
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

// printSeries writes the series as an aligned table.
func printSeries(series *models.PriceSeries) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tOpen\tHigh\tLow\tClose\tVolume\tDividends\tStock Splits\t")
	for _, b := range series.Bars {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			utils.FormatDateIST(b.Date),
			utils.FormatINR(b.Open),
			utils.FormatINR(b.High),
			utils.FormatINR(b.Low),
			utils.FormatINR(b.Close),
			utils.FormatVolume(b.Volume),
			utils.FormatPrice(b.Dividends),
			utils.FormatPrice(b.StockSplits),
		)
	}
	return tw.Flush()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"equity-signalbot/config"
	"equity-signalbot/internal/bot"
	"equity-signalbot/internal/export"
	"equity-signalbot/internal/indicator"
	"equity-signalbot/internal/logger"
	"equity-signalbot/internal/markethours"
)

var version = "dev"

// newRootCmd creates the root command
func newRootCmd() *cobra.Command {
	var (
		configFile string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:   "signalbot",
		Short: "RSI/MACD momentum signal bot for US equities",
		Long: `signalbot pulls recent daily closes for a watch-list (Alpaca first, Yahoo
Finance as fallback), computes EMA/MACD/RSI/SMA, turns the latest bar into a
BUY/SELL/HOLD decision and optionally submits a market order.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFile != "" {
				os.Setenv("CONFIG_FILE", configFile)
			}
			if logLevel != "" {
				os.Setenv("LOG_LEVEL", logLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSignalsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newOrdersCmd())
	rootCmd.AddCommand(newRelistCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setup loads config, builds the logger and wires the app.
func setup() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	lg := logger.Init("signalbot", level)
	return newApp(cfg, lg)
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newRunCmd() *cobra.Command {
	var force, paper bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one trading cycle and submit orders",
		Long: `Run one cycle over the configured symbols. Orders go to Alpaca unless
--paper (or PAPER=true) routes them to the in-process simulator. Outside the
regular NYSE session the cycle is skipped unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if paper {
				os.Setenv("PAPER", "true")
			}
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			open := markethours.IsMarketOpen(now)
			if open {
				a.prom.MarketState.Set(1)
			} else {
				a.prom.MarketState.Set(0)
			}
			if !open && !force {
				fmt.Fprintln(cmd.OutOrStdout(), markethours.StatusString(now))
				fmt.Fprintln(cmd.OutOrStdout(), "skipping cycle (use --force to run anyway)")
				return nil
			}

			ctx, stop := signalContext()
			defer stop()
			a.startObservability(ctx)

			r, err := a.runner(ctx, false)
			if err != nil {
				return err
			}
			rep, err := r.RunCycle(ctx)
			a.health.SetCycleResult(rep.Finished, err)
			printReport(cmd.OutOrStdout(), rep)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even when the market is closed")
	cmd.Flags().BoolVar(&paper, "paper", false, "Route orders to the paper simulator")
	return cmd
}

func newSignalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "Compute decisions and planned orders without submitting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			r, err := a.runner(ctx, true)
			if err != nil {
				return err
			}
			rep, err := r.RunCycle(ctx)
			printReport(cmd.OutOrStdout(), rep)
			return err
		},
	}
}

func newExportCmd() *cobra.Command {
	var (
		out        string
		indicators bool
	)

	cmd := &cobra.Command{
		Use:   "export SYMBOL",
		Short: "Write a symbol's daily closes as CSV",
		Long: `Fetch the price history through the same provider chain the bot uses and
write it as Date,Close CSV. With --indicators every computed indicator is
added as a column.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			symbol := strings.ToUpper(args[0])
			series, err := a.source.Fetch(ctx, symbol)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if !indicators {
				return export.WriteSeries(w, series)
			}
			vec, err := indicator.Compute(series, a.cfg.Indicators)
			if err != nil {
				return err
			}
			return export.WriteIndicators(w, vec)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&indicators, "indicators", false, "Include indicator columns")
	return cmd
}

func newOrdersCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Show the most recent entries of the order journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.journal == nil {
				return errors.New("order journal is disabled (set JOURNAL_PATH)")
			}
			recs, err := a.journal.Recent(limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RECORDED\tSYMBOL\tSIDE\tQTY\tREF\tSTATUS\tORDER\tREASON")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					r.RecordedAt, r.Symbol, r.Side, r.Qty, r.RefPrice, r.Status, r.OrderID, r.RejectReason)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows")
	return cmd
}

func newRelistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relist SYMBOL",
		Short: "Forget a cached delisting verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if a.delist == nil {
				return errors.New("delisting cache is disabled (set REDIS_ADDR)")
			}
			symbol := strings.ToUpper(args[0])
			if err := a.delist.Forget(cmd.Context(), symbol); err != nil {
				return err
			}
			a.log.Info("delisting verdict cleared", slog.String("symbol", symbol))
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the NYSE session status",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), markethours.StatusString(time.Now()))
		},
	}
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "signalbot %s\n", version)
		},
	}
}

func printReport(w io.Writer, rep bot.CycleReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSOURCE\tSIGNAL\tSTAGE\tORDER\tNOTE")
	for _, r := range rep.Results {
		order := "-"
		if r.Order != nil {
			order = fmt.Sprintf("%s %d @%s", r.Order.Side, r.Order.Qty, r.Order.RefPrice.StringFixed(2))
		}
		note := r.Skip
		switch {
		case r.Err != nil:
			note = r.Err.Error()
		case r.Confirmation != nil:
			note = r.Confirmation.OrderID + " " + r.Confirmation.Status
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Symbol, orDash(r.Source), orDash(string(r.Decision.Signal)), orDash(string(r.Stage)), order, note)
	}
	tw.Flush()
	mode := "submit"
	if rep.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "%s (%s): %d symbols, %d orders, %d failures, cash %s\n",
		rep.CycleID, mode, len(rep.Results), rep.Orders(), rep.Failures(), rep.Account.Cash.StringFixed(2))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

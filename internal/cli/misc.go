package cli

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/prebook/internal/domain/auth"
	"github.com/okian/prebook/internal/simulate"
)

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for an admin password",
		Args:  cobra.ExactArgs(1),
		// No config or logger needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ValidateNewPassword(args[0]); err != nil {
				return err
			}
			h, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func newSimulateCommand() *cobra.Command {
	cfg := simulate.Config{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Submit random pre-bookings to a running server and verify lookups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := simulate.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"submitted %d: created %d, duplicate %d, rejected %d, rate limited %d, failed %d; found %d/%d in %s\n",
				stats.Submitted, stats.Created, stats.Duplicate, stats.Rejected, stats.RateLimited, stats.Failed,
				stats.Created-stats.Missing, stats.Created, stats.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	cmd.Flags().IntVar(&cfg.Orders, "orders", 100, "number of orders to submit")
	cmd.Flags().IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "concurrent submitters")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per-request timeout")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}

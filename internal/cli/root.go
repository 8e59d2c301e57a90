package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagLogLevel string

	logger *slog.Logger
)

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRootCmd creates the root cobra command for the irqsched tool.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "irqsched",
		Short: "Static interrupt-driven priority scheduler",
		Long: "irqsched validates declarative task/resource tables and runs them\n" +
			"on a simulated interrupt controller.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: parseLevel(flagLogLevel),
			}))
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newValidateCmd(),
		newRunCmd(),
	)

	return root
}

package cmd

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/safety-monitor/internal/service/action"
)

var (
	// statusAddress overrides the status server address.
	statusAddress string
	// elapsedMs is sent with fall-no-response.
	elapsedMs int64
	// contactIndex is sent with emergency-call.
	contactIndex int

	// actionCmd answers a prompt on a running monitor.
	actionCmd = &cobra.Command{
		Use:       "action <" + strings.Join(action.Actions, "|") + ">",
		Short:     "Send a user action to a running monitor.",
		Long:      `Posts the action to the monitor's status API and retries until it is accepted.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: action.Actions,
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &action.Options{
				ConfigPath:    configPath,
				StatusAddress: statusAddress,
				Action:        args[0],
				ElapsedMs:     elapsedMs,
				Contact:       contactIndex,
			}

			return action.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	actionCmd.Flags().StringVarP(&statusAddress, "status", "s", "", "status server address (overrides config)")
	actionCmd.Flags().Int64Var(&elapsedMs, "elapsed-ms", 15000, "prompt time for fall-no-response")
	actionCmd.Flags().IntVar(&contactIndex, "contact", 0, "contact index for emergency-call")

	rootCmd.AddCommand(actionCmd)
}

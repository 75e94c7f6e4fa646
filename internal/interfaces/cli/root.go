package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"
)

var logger = loggo.GetLogger("fsmgate.cli")

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRoot() *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:           "fsmgate",
		Short:         "Scheduling gateway between a voice agent and the field-service platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(level)
		},
	}
	cmd.PersistentFlags().StringVar(&level, "log-level", envOr("LOG_LEVEL", "INFO"), "TRACE, DEBUG, INFO, WARNING or ERROR")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newKeysCmd())
	cmd.AddCommand(newHashKeyCmd())
	cmd.AddCommand(NewServerCmd())
	cmd.AddCommand(newPingCmd())
	cmd.AddCommand(newAreaCmd())
	cmd.AddCommand(newSlotsCmd())
	cmd.AddCommand(newAuditCmd())
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fsmgate:", err)
		return 1
	}
	return 0
}

func configureLogging(level string) error {
	level = strings.ToUpper(strings.TrimSpace(level))
	if _, ok := loggo.ParseLevel(level); !ok {
		return errors.NotValidf("log level %q", level)
	}
	return errors.Trace(loggo.ConfigureLoggers("<root>=" + level))
}

func envOr(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

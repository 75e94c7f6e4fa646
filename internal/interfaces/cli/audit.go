package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/example/fsmgate/internal/domain/audit"
	"github.com/example/fsmgate/internal/infrastructure/config"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the tool-call audit log",
	}
	cmd.AddCommand(newAuditListCmd())
	return cmd
}

func newAuditListCmd() *cobra.Command {
	var (
		limit    int
		withArgs bool
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "Show the most recent tool calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 20*time.Second)
			defer cancel()
			repo, closeDB, err := openAudit(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			calls, err := repo.Recent(ctx, limit)
			if err != nil {
				return err
			}
			return writeCalls(cmd.OutOrStdout(), calls, withArgs)
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "number of calls")
	c.Flags().BoolVar(&withArgs, "args", false, "include the call arguments")
	return c
}

func writeCalls(w io.Writer, calls []audit.ToolCall, withArgs bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTOOL\tOUTCOME\tDURATION\tERROR")
	for _, c := range calls {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.CreatedAt.UTC().Format(time.RFC3339), c.Tool, c.Outcome, c.Duration.Round(time.Millisecond), c.Error)
		if withArgs && len(c.Args) > 0 {
			fmt.Fprintf(tw, "\t%s\t\t\t\n", c.Args)
		}
	}
	return errors.Trace(tw.Flush())
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/example/fsmgate/internal/application/usecases"
	"github.com/example/fsmgate/internal/domain/availability"
	"github.com/example/fsmgate/internal/infrastructure/config"
)

// withBooking loads the environment and runs fn with a bounded context.
func withBooking(cmd *cobra.Command, timeout time.Duration, fn func(context.Context, usecases.Booking) error) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	b, err := newBooking(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, b)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Trace(enc.Encode(v))
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the vendor credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBooking(cmd, 10*time.Second, func(ctx context.Context, b usecases.Booking) error {
				if err := b.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "vendor: ok")
				return nil
			})
		},
	}
}

func newAreaCmd() *cobra.Command {
	var loc availability.Location
	cmd := &cobra.Command{
		Use:   "area [address]",
		Short: "Check whether an address is inside the service area",
		Example: `  fsmgate area --city Salem --state NH
  fsmgate area "12 Main St, Lowell, MA 01852"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				loc.Street = strings.TrimSpace(args[0])
			}
			return withBooking(cmd, 30*time.Second, func(ctx context.Context, b usecases.Booking) error {
				v, err := b.CheckAddress(ctx, loc)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), v); err != nil {
					return err
				}
				return v.Err()
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&loc.Street, "street", "", "street line")
	f.StringVar(&loc.City, "city", "", "city")
	f.StringVar(&loc.State, "state", "", "state or region")
	f.StringVar(&loc.Zip, "zip", "", "postal code")
	return cmd
}

func newSlotsCmd() *cobra.Command {
	var (
		q     availability.SlotQuery
		units []int64
		techs bool
	)
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Search vendor capacity for open slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.BusinessUnitIDs = units
			return withBooking(cmd, 2*time.Minute, func(ctx context.Context, b usecases.Booking) error {
				if techs {
					got, err := b.Technicians(ctx, q)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), got)
				}
				res, err := b.Availability(ctx, usecases.AvailabilityRequest{SlotQuery: q})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	f := cmd.Flags()
	f.Int64Var(&q.JobTypeID, "job-type", 0, "job type id")
	f.StringVar(&q.Start, "start", "", "first day to search, ISO 8601 (default now)")
	f.Int64SliceVar(&units, "unit", nil, "business unit id; repeat or comma-separate (default from the job type)")
	f.BoolVar(&techs, "technicians", false, "list one free technician per slot instead")
	_ = cmd.MarkFlagRequired("job-type")
	return cmd
}

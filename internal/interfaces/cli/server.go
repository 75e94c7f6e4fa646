package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/example/fsmgate/internal/application/scheduler"
	"github.com/example/fsmgate/internal/application/usecases"
	"github.com/example/fsmgate/internal/infrastructure/config"
	"github.com/example/fsmgate/internal/interfaces/web"
)

func NewServerCmd() *cobra.Command {
	offerTTL := web.DefaultOfferTTL
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the agent tool API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			booking, err := newBooking(cfg)
			if err != nil {
				return err
			}
			repo, closeDB, err := openAudit(ctx, cfg)
			if err != nil {
				return errors.Annotate(err, "audit store")
			}
			defer closeDB()

			hashKey, blockKey := cfg.OfferHashKey, cfg.OfferBlockKey
			if len(hashKey) == 0 || len(blockKey) == 0 {
				logger.Warningf("dev mode: offer tokens use throwaway keys and do not survive a restart")
				hashKey, blockKey = securecookie.GenerateRandomKey(64), securecookie.GenerateRandomKey(32)
			}
			opts := web.Options{
				Addr:    cfg.HTTPAddr,
				Booking: booking,
				Offers:  web.NewOfferSigner(hashKey, blockKey, offerTTL),
			}
			if len(cfg.AgentKeyHash) > 0 {
				opts.Keys = &usecases.AgentKeys{Hash: cfg.AgentKeyHash}
			} else {
				logger.Warningf("dev mode: tool routes accept calls without an agent key")
			}
			if repo != nil {
				opts.Audit = repo
				if cfg.AuditRetention > 0 {
					go func() {
						r := scheduler.Retention{Store: repo, Keep: cfg.AuditRetention, Interval: time.Hour}
						if err := r.Run(ctx); err != nil && ctx.Err() == nil {
							logger.Errorf("audit retention stopped: %v", err)
						}
					}()
				}
			}
			srv, err := web.New(opts)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().DurationVar(&offerTTL, "offer-ttl", offerTTL, "how long quoted slots stay bookable")
	return cmd
}

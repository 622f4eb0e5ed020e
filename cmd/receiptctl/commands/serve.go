package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/libreceipt-go/eventlog"
)

const relayBatch = 256

func (c *cli) serveMetricsCmd() *cobra.Command {
	var (
		listen     string
		relayEvery time.Duration
		from       int64
	)
	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve Prometheus metrics and relay the outbox to indexers",
		Long: `Serve-metrics exposes /metrics on the configured listen address until
interrupted. With --relay-every it also re-delivers outbox events to the
configured NATS and Redis sinks, starting after --from (default: the last
sequence recorded by the Redis sink, or 0).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := cmd.Context()
			if base == nil {
				base = context.Background()
			}
			ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if c.registry == nil {
				c.registry = prometheus.NewRegistry()
			}
			a, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			addr := listen
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			if relayEvery > 0 && len(a.sinks) > 0 {
				g.Go(func() error {
					after, err := a.relayStart(gctx, from)
					if err != nil {
						return err
					}
					return a.relay(gctx, after, relayEvery)
				})
			}
			a.logger.Info("serving metrics", zap.String("addr", addr), zap.Int("sinks", len(a.sinks)))
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")
	cmd.Flags().DurationVar(&relayEvery, "relay-every", 0, "outbox relay interval (0 disables)")
	cmd.Flags().Int64Var(&from, "from", -1, "relay events after this sequence number")
	return cmd
}

// relayStart picks the sequence to relay after.
func (a *app) relayStart(ctx context.Context, from int64) (uint64, error) {
	if from >= 0 {
		return uint64(from), nil
	}
	for _, s := range a.sinks {
		if rs, ok := s.(*eventlog.RedisSink); ok {
			return rs.LastSeq(ctx)
		}
	}
	return 0, nil
}

// relay re-delivers outbox events with Seq > after every interval. A batch
// that fails delivery is retried on the next tick.
func (a *app) relay(ctx context.Context, after uint64, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		evs, err := a.eng.Events(after, relayBatch)
		if err != nil {
			return err
		}
		if len(evs) > 0 {
			if err := a.disp.Publish(ctx, evs); err != nil {
				a.logger.Warn("outbox relay failed",
					zap.Uint64("after", after), zap.Int("events", len(evs)), zap.Error(err))
			} else {
				after = evs[len(evs)-1].Seq
				for _, ev := range evs {
					a.metrics.Published(string(ev.Kind))
				}
				a.logger.Debug("outbox relayed", zap.Uint64("last_seq", after), zap.Int("events", len(evs)))
				if len(evs) == relayBatch {
					continue
				}
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"datatables/storage"
	"datatables/table"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func runWatch(ctx context.Context, a *app, args []string) error {
	fs := subcommand(a, "watch")
	listen := fs.String("metrics", a.cfg.Metrics.Listen, "serve Prometheus metrics on this address")
	path, err := onePath(fs, args)
	if err != nil {
		return err
	}

	watchable, ok := a.store.(storage.Watchable)
	if !ok {
		return fmt.Errorf("watch: %s storage cannot report changes", a.store.Driver())
	}

	t, err := a.svc.Load(ctx, path)
	if err != nil {
		return err
	}

	w, err := watchable.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if *listen != "" {
		srv := a.metricsServer(*listen)
		go func() {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("serving metrics", zap.String("addr", *listen))
	}

	a.logger.Info("watching table", zap.String("path", t.Path), zap.Int("rows", t.Len()))

	return a.watchLoop(ctx, t, w.Events())
}

func (a *app) metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// watchLoop fixes t after every change to its file until ctx ends or the
// event channel closes. A failed Fix keeps the previous rows.
func (a *app) watchLoop(ctx context.Context, t *table.Table, events <-chan storage.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Path != t.Path {
				continue
			}

			stats, err := a.svc.Fix(ctx, t)
			if err != nil {
				a.logger.Warn("reload failed", zap.String("path", t.Path), zap.Error(err))
				continue
			}

			fmt.Fprintf(a.stdout, "%s: %d rows (merged %d, adopted %d, dropped %d)\n",
				t.Path, t.Len(), stats.Merged, stats.Adopted, stats.Dropped)
		}
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"hometable/apps/server/internal/auth"
	"hometable/apps/server/internal/config"
	"hometable/apps/server/internal/gateway"
	"hometable/apps/server/internal/ledger"
	"hometable/apps/server/internal/store"
	"hometable/apps/server/internal/table"
)

type ServeCmd struct {
	Config string `default:"holdem.hcl" help:"HCL config file; missing means defaults"`
	Addr   string `help:"Listen address, overrides server.address"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, storeMode, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	led, ledgerMode, err := ledger.Open(ctx, cfg.Ledger.Enabled, st)
	if err != nil {
		return err
	}
	defer led.Close()

	ttl, _ := cfg.SessionTTL()
	authService := auth.NewManager(auth.WithSessionTTL(ttl))
	defer authService.Close()

	tables := table.New(st,
		table.WithLedger(led),
		table.WithLogger(logger.WithPrefix("table")),
		table.WithDefaults(cfg.TableConfig()),
	)
	gw := gateway.New(tables, authService, logger.WithPrefix("gateway"))

	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)
	auth.NewHTTPHandler(authService).RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server",
		"address", cfg.Server.Address,
		"store", storeMode,
		"ledger", ledgerMode,
		"defaults", cfg.TableConfig().String(),
		"version", version,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		gw.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

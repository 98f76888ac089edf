package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"cinehub/internal/auth"
	"cinehub/internal/catalog"
	"cinehub/internal/logging"
	"cinehub/internal/notify"
	"cinehub/internal/reviews"
	synchub "cinehub/internal/sync"
	"cinehub/pkg/database"
	"cinehub/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	gin.SetMode(gin.ReleaseMode)

	ctx := context.Background()
	db := database.MustOpen(ctx, database.Config{
		URI:     cfg.Mongo.URI,
		Name:    cfg.Mongo.Database,
		Timeout: cfg.Mongo.Timeout,
	})
	defer func() {
		if err := database.Close(context.Background(), db); err != nil {
			logging.Error().Err(err).Msg("close db")
		}
	}()

	if err := database.Migrate(ctx, db); err != nil {
		logging.Fatal().Err(err).Msg("db migrate failed")
	}

	hub := synchub.NewHub()
	tcpSrv := synchub.NewServer(cfg.Server.SyncAddr, hub)
	udpSrv := notify.NewServer(cfg.Server.NotifyAddr, nil)

	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	users := auth.NewRepo(db)
	catalogSvc := catalog.NewService(catalog.NewRepo(db))

	router := newRouter(cfg, app{
		Catalog:  catalogSvc,
		Reviews:  reviews.NewService(reviews.NewRepo(db), catalogSvc, fanout{hub, udpSrv}),
		Accounts: auth.NewService(users, tokens, cfg.Auth.BcryptCost),
		Verifier: auth.JWTVerifier{Tokens: tokens, Users: users},
		Hub:      hub,
		Ping: func(ctx context.Context) error {
			return database.Ping(ctx, db)
		},
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	run(httpSrv, tcpSrv, udpSrv, cfg.Server.ShutdownTimeout, db)
}

// fanout delivers review events to every feed.
type fanout []reviews.Publisher

func (f fanout) Publish(v any) {
	for _, p := range f {
		p.Publish(v)
	}
}

func run(httpSrv *http.Server, tcpSrv *synchub.Server, udpSrv *notify.Server, shutdownTimeout time.Duration, db *mongo.Database) {
	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	if udpSrv.Addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := udpSrv.Run(); err != nil {
				errCh <- err
			}
		}()
	}

	if tcpSrv.Addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tcpSrv.Run(); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logging.Info().
			Str("addr", httpSrv.Addr).
			Str("db", db.Name()).
			Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		logging.Error().Err(err).Msg("server error")
	}

	logging.Info().Msg("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http shutdown error")
	}
	if tcpSrv.Addr != "" {
		if err := tcpSrv.Close(); err != nil {
			logging.Error().Err(err).Msg("tcp shutdown error")
		}
	}
	if udpSrv.Addr != "" {
		if err := udpSrv.Close(); err != nil {
			logging.Error().Err(err).Msg("udp shutdown error")
		}
	}

	wg.Wait()
	logging.Info().Msg("servers stopped")
}

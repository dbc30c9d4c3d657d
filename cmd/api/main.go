package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "tbo_gateway/internal/adapters/http_server"
	"tbo_gateway/internal/adapters/observability"
	redisad "tbo_gateway/internal/adapters/redis"
	"tbo_gateway/internal/adapters/tektravels"
	"tbo_gateway/internal/app"
	"tbo_gateway/internal/domain"
	"tbo_gateway/internal/shared"
	mysqlrepo "tbo_gateway/internal/storage/mysql"
)

// requestTimeout covers a Non-LCC booking end to end: fare quote (60s),
// Book (180s) and Ticket (180s).
const requestTimeout = 8 * time.Minute

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// cache + shared token store
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; cache calls will fail open")
	}
	cancel()

	// provider
	client, err := tektravels.New(tektravels.Endpoints{
		Shared: cfg.TBOSharedURL,
		Air:    cfg.TBOAirURL,
		Hotel:  cfg.TBOHotelURL,
	}, cfg.TBORPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize TekTravels client")
	}

	// Without agency credentials every call needs a caller-supplied token.
	var tokens domain.TokenSource
	auth, err := tektravels.NewAuthenticator(client, tektravels.Credentials{
		ClientID: cfg.TBOClientID,
		UserName: cfg.TBOUserName,
		Password: cfg.TBOPassword,
	}, cache)
	if err != nil {
		log.Warn().Err(err).Msg("token cache disabled")
	} else {
		tokens = auth
	}

	repo := mysqlrepo.New(db)

	// http
	srv := server.New(requestTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Flights:   app.NewFlightService(client, tokens, repo, cache, cfg.CacheTTL),
		Hotels:    app.NewHotelService(client, tokens, repo, cache),
		Q:         app.NewQueryService(repo, cache, cfg.CacheTTL),
		EndUserIP: cfg.TBOEndUserIP,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tbo_gateway/internal/adapters/observability"
	redisad "tbo_gateway/internal/adapters/redis"
	"tbo_gateway/internal/adapters/tektravels"
	"tbo_gateway/internal/app"
	"tbo_gateway/internal/shared"
	mysqlrepo "tbo_gateway/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("air", cfg.TBOAirURL).
		Int("workers", cfg.ReconcileWorkers).
		Int("batch", cfg.ReconcileBatch).
		Msg("reconciler starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := tektravels.New(tektravels.Endpoints{
		Shared: cfg.TBOSharedURL,
		Air:    cfg.TBOAirURL,
		Hotel:  cfg.TBOHotelURL,
	}, cfg.TBORPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize TekTravels client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	// the API process and the reconciler share one provider token via redis
	auth, err := tektravels.NewAuthenticator(client, tektravels.Credentials{
		ClientID: cfg.TBOClientID,
		UserName: cfg.TBOUserName,
		Password: cfg.TBOPassword,
	}, cache)
	if err != nil {
		log.Fatal().Err(err).Msg("reconciler needs provider credentials")
	}

	rec := app.NewReconcileService(client, auth, repo, cache, cfg.TBOEndUserIP)
	pending, err := rec.Pending(ctx, cfg.ReconcileBatch)
	if err != nil {
		log.Fatal().Err(err).Msg("list pending bookings failed")
	}
	log.Info().Int("pending", len(pending)).Msg("pending bookings loaded")

	sem := semaphore.NewWeighted(int64(cfg.ReconcileWorkers))
	var wg sync.WaitGroup
	var changed, failed int64

	for _, b := range pending {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(int64(1))

			moved, err := rec.ReconcileBooking(ctx, b)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn().Str("ref", b.Ref).Err(err).Msg("reconcile failed")
				return
			}
			if moved {
				atomic.AddInt64(&changed, 1)
			}
		}()
	}

	wg.Wait()
	log.Info().
		Int64("changed", changed).
		Int64("failed", failed).
		Msg("reconciliation completed")
}

package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	TBOClientID  string
	TBOUserName  string
	TBOPassword  string
	TBOEndUserIP string
	TBOSharedURL string
	TBOAirURL    string
	TBOHotelURL  string
	TBORPS       int

	CacheTTL         time.Duration
	ReconcileWorkers int
	ReconcileBatch   int
}

// Load reads the process environment. A .env file in the working
// directory is merged in first when present; real env vars win.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/travel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		TBOClientID:  env("TBO_CLIENT_ID", "ApiIntegrationNew"),
		TBOUserName:  env("TBO_USERNAME", ""),
		TBOPassword:  env("TBO_PASSWORD", ""),
		TBOEndUserIP: env("TBO_END_USER_IP", "127.0.0.1"),
		TBOSharedURL: env("TBO_SHARED_URL", "http://api.tektravels.com/SharedServices/SharedData.svc/rest"),
		TBOAirURL:    env("TBO_AIR_URL", "http://api.tektravels.com/BookingEngineService_Air/AirService.svc/rest"),
		TBOHotelURL:  env("TBO_HOTEL_URL", "http://api.tektravels.com/BookingEngineService_Hotel/hotelservice.svc/rest"),
		TBORPS:       atoi("TBO_RPS", 5),

		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		ReconcileWorkers: atLeast(atoi("RECONCILE_WORKERS", 4), 1),
		ReconcileBatch:   atLeast(atoi("RECONCILE_BATCH", 100), 1),
	}
	if c.TBOUserName == "" || c.TBOPassword == "" {
		log.Warn().Msg("TBO_USERNAME or TBO_PASSWORD is empty")
	}
	return c
}

func atLeast(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

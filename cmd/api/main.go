package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/juju/clock"
	"github.com/rs/zerolog/log"

	"swipestay/internal/adapters/easygds"
	server "swipestay/internal/adapters/http_server"
	"swipestay/internal/adapters/observability"
	redisad "swipestay/internal/adapters/redis"
	"swipestay/internal/app"
	"swipestay/internal/domain"
	"swipestay/internal/session"
	"swipestay/internal/shared"
	mysqlrepo "swipestay/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "swipestay-api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg) // no-op unless METRICS_ADDR is set

	// credential cache
	var tokens domain.TokenStore
	switch cfg.TokenStore {
	case "memory":
		tokens = easygds.NewMemoryTokenStore(clock.WallClock)
	default:
		rs := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rs.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		defer rs.Close()
		tokens = rs
	}

	// gateway
	env := easygds.Env{BaseURL: cfg.EasyGDSBase, Territory: cfg.Territory}
	auth := easygds.NewAuthenticator(env, easygds.Credentials{Email: cfg.EasyGDSEmail, Password: cfg.EasyGDSPassword}, tokens, cfg.TokenTTL)
	gw, err := easygds.New(env, auth, cfg.UpstreamRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize easygds client")
	}
	search := app.NewSearchService(gw, cfg.LanguageCode, cfg.UpstreamTimeout)

	// shortlist persistence (optional)
	var shortlists domain.ShortlistRepository
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		if err := mysqlrepo.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
		log.Info().Msg("database connection ok")
		shortlists = mysqlrepo.New(db)
	} else {
		log.Warn().Msg("MYSQL_DSN empty; shortlists live only as long as their session")
	}

	sessions := session.NewManager(search, shortlists, session.Options{
		PageSize:    cfg.DeckPageSize,
		RateWorkers: cfg.RateWorkers,
		IdleTTL:     cfg.SessionIdleTTL,
	})
	go sessions.Run(ctx) // evicts idle sessions until shutdown

	// http
	srv := server.New(time.Duration(cfg.UpstreamTimeout)*time.Millisecond + 5*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Search: search})
	srv.MountSessions(&server.SessionHandlers{Sessions: sessions})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("upstream", cfg.EasyGDSBase).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZJUSCT/CSRank/internal/api/admin"
	"github.com/ZJUSCT/CSRank/internal/api/user"
	"github.com/ZJUSCT/CSRank/internal/cache"
	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/database"
	"github.com/ZJUSCT/CSRank/internal/ranking"

	"go.uber.org/zap"
)

var Version = "dev-build"

func main() {

	fmt.Fprintf(os.Stderr, "ZJUSCT CSRank %s - Contest Participation and Ranking Service\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	var logger *zap.Logger
	if cfg.Logger.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// database
	db, err := database.Init(cfg.Storage)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Infof("database initialized successfully (%s)", cfg.Storage.Driver)
	store := database.NewStore(db)

	// ranking cache
	var (
		rankCache ranking.Cache
		forget    admin.Forgetter
	)
	client, err := cache.Connect(context.Background(), cfg.Redis)
	if err != nil {
		zap.S().Fatalf("failed to connect to redis: %v", err)
	}
	if client != nil {
		defer client.Close()
		rc := cache.NewRankingCache(client, cfg.Ranking.CacheTTL)
		rankCache, forget = rc, rc
		zap.S().Infof("ranking cache enabled at %s (ttl %s)", cfg.Redis.Addr, cfg.Ranking.CacheTTL)
	} else {
		zap.S().Info("no redis configured, rankings are built on every request")
	}

	// API routers
	servers := []*http.Server{{Addr: cfg.Listen, Handler: user.NewUserRouter(cfg, store, rankCache)}}
	if cfg.Admin.Enabled {
		servers = append(servers, &http.Server{Addr: cfg.Admin.Listen, Handler: admin.NewAdminRouter(cfg, store, forget)})
	}

	// start servers
	for _, srv := range servers {
		go func() {
			zap.S().Infof("starting server at %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zap.S().Fatalf("failed to start server at %s: %v", srv.Addr, err)
			}
		}()
	}

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			zap.S().Errorf("server at %s did not shut down cleanly: %v", srv.Addr, err)
		}
	}
}

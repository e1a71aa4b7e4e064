// Command rankdump prints a contest's standings as a terminal table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/database"
	"github.com/ZJUSCT/CSRank/internal/ranking"

	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		key        string
		at         string
		username   string
	)
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.StringVar(&key, "contest", "", "contest key")
	flag.StringVar(&at, "at", "", "rank as of this RFC 3339 instant")
	flag.StringVar(&username, "as", "", "show the ranking as this user sees it, including their own virtual row")
	flag.Parse()

	if key == "" {
		fmt.Fprintln(os.Stderr, "usage: rankdump -contest KEY [-at TIME] [-as USER] [-c CONFIG]")
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	if cfg.Logger.Level == "debug" {
		zap.ReplaceGlobals(logger)
	}

	var opts ranking.Options
	if at != "" {
		if opts.At, err = time.Parse(time.RFC3339, at); err != nil {
			log.Fatalf("invalid -at: %v", err)
		}
	}

	db, err := database.Init(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	store := database.NewStore(db)
	ctx := context.Background()

	viewer := &contest.Viewer{Perms: contest.PermAll}
	if username != "" {
		prof, err := store.ProfileByUsername(ctx, username)
		if err != nil {
			log.Fatalf("failed to load user %q: %v", username, err)
		}
		if viewer, err = store.Viewer(ctx, prof.ID); err != nil {
			log.Fatalf("failed to load user %q: %v", username, err)
		}
		viewer.Perms |= contest.PermSeePrivateContest
	}

	c, err := contest.NewGate(store, cfg.Location()).Find(ctx, key, viewer)
	if err != nil {
		log.Fatalf("%v", err)
	}
	r, err := ranking.NewBuilder(store, nil).Build(ctx, c, viewer, opts)
	if err != nil {
		log.Fatalf("failed to build ranking: %v", err)
	}

	fmt.Printf("%s (%s)\n", c.Name, c.Key)
	fmt.Println(render(r))
}

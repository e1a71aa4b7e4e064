package admin

import (
	"context"

	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/database"
	"github.com/ZJUSCT/CSRank/internal/ranking"
)

// Forgetter drops cached rankings once their inputs changed.
type Forgetter interface {
	Forget(ctx context.Context, contestID uint)
}

// Handler holds all dependencies for the admin API handlers. The admin
// server is meant to listen on a private address and sees everything.
type Handler struct {
	cfg    *config.Config
	store  *database.Store
	gate   *contest.Gate
	ranks  *ranking.Builder
	forget Forgetter
	viewer *contest.Viewer
}

// NewHandler builds the admin handler. forget may be nil.
func NewHandler(cfg *config.Config, store *database.Store, forget Forgetter) *Handler {
	return &Handler{
		cfg:    cfg,
		store:  store,
		gate:   contest.NewGate(store, cfg.Location()),
		ranks:  ranking.NewBuilder(store, nil),
		forget: forget,
		viewer: &contest.Viewer{Perms: contest.PermAll},
	}
}

package user

import (
	"time"

	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/database"
	"github.com/ZJUSCT/CSRank/internal/participation"
	"github.com/ZJUSCT/CSRank/internal/ranking"
)

// Handler holds all dependencies for the user API handlers.
type Handler struct {
	cfg     *config.Config
	gate    *contest.Gate
	ranks   *ranking.Builder
	manager *participation.Manager
	now     func() time.Time
}

// NewHandler wires the engine components over one store. cache may be nil.
func NewHandler(cfg *config.Config, store *database.Store, cache ranking.Cache) *Handler {
	return &Handler{
		cfg:     cfg,
		gate:    contest.NewGate(store, cfg.Location()),
		ranks:   ranking.NewBuilder(store, cache),
		manager: participation.NewManager(store, cfg.Participation.Retry),
		now:     time.Now,
	}
}

package admin

import (
	"github.com/ZJUSCT/CSRank/internal/api"
	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/database"
	"github.com/gin-gonic/gin"
)

// NewAdminRouter creates and configures the admin Gin engine.
func NewAdminRouter(cfg *config.Config, store *database.Store, forget Forgetter) *gin.Engine {
	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, store, forget)

	v1 := r.Group("/api/v1")
	{
		contests := v1.Group("/contests")
		{
			contests.GET("/:key/ranking", h.getRanking)
			contests.POST("/:key/recalculate", h.recalculateContest)
		}

		participations := v1.Group("/participations")
		{
			participations.POST("/:id/submissions", h.recordSubmission)
			participations.POST("/:id/recalculate", h.recalculateParticipation)
		}
	}

	return r
}

package user

import (
	"github.com/ZJUSCT/CSRank/internal/api"
	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/database"
	"github.com/ZJUSCT/CSRank/internal/ranking"
	"github.com/gin-gonic/gin"
)

// NewUserRouter creates and configures the user Gin engine.
func NewUserRouter(cfg *config.Config, store *database.Store, cache ranking.Cache) *gin.Engine {
	r := gin.Default()

	r.Use(api.CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, store, cache)
	secret := cfg.Auth.JWT.Secret

	v1 := r.Group("/api/v1")
	{
		public := v1.Group("/")
		public.Use(api.OptionalAuthMiddleware(secret, store))
		{
			public.GET("/contests", h.listContests)
			public.GET("/calendar/:year/:month", h.getCalendar)
			public.GET("/contests/:key", h.getContest)
			public.GET("/contests/:key/ranking", h.getRanking)
		}

		authed := v1.Group("/")
		authed.Use(api.AuthMiddleware(secret, store))
		{
			authed.POST("/contests/:key/join", h.joinContest)
			authed.POST("/contests/:key/leave", h.leaveContest)
		}
	}

	return r
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ZJUSCT/CSRank/internal/auth"
	"github.com/ZJUSCT/CSRank/internal/config"
	"github.com/ZJUSCT/CSRank/internal/contest"
	"github.com/ZJUSCT/CSRank/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const viewerKey = "viewer"

// ViewerSource loads the profile behind a token together with its current
// participation.
type ViewerSource interface {
	Viewer(ctx context.Context, profileID uint) (*contest.Viewer, error)
}

// CORSMiddleware provides a configurable CORS middleware.
func CORSMiddleware(cfg config.CORS) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(cfg.AllowedOrigins) == 0 {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		allowOrigin := ""
		for _, o := range cfg.AllowedOrigins {
			if o == "*" || o == origin {
				allowOrigin = o
				break
			}
		}

		if allowOrigin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

// AuthMiddleware requires a valid bearer token and stores the viewer.
func AuthMiddleware(secret string, viewers ViewerSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			util.Error(c, http.StatusUnauthorized, "Authorization header is required")
			c.Abort()
			return
		}
		if !authenticate(c, secret, viewers) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the viewer when a token is present and
// falls back to the anonymous viewer otherwise. A bad token is still an error.
func OptionalAuthMiddleware(secret string, viewers ViewerSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Set(viewerKey, contest.Anonymous)
			c.Next()
			return
		}
		if !authenticate(c, secret, viewers) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, secret string, viewers ViewerSource) bool {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		util.Error(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
		return false
	}

	claims, err := auth.ValidateJWT(parts[1], secret)
	if err != nil {
		util.Error(c, http.StatusUnauthorized, err.Error())
		return false
	}
	profileID, err := claims.ProfileID()
	if err != nil {
		util.Error(c, http.StatusUnauthorized, err)
		return false
	}

	v, err := viewers.Viewer(c.Request.Context(), profileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusUnauthorized, "unknown profile")
		return false
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return false
	}
	c.Set(viewerKey, v)
	return true
}

// ViewerFrom returns the viewer stored by the auth middlewares.
func ViewerFrom(c *gin.Context) *contest.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(*contest.Viewer); ok {
			return viewer
		}
	}
	return contest.Anonymous
}

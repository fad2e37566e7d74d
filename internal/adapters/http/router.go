package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mahendrakanna/edupravahaa-web/internal/adapters/classroom"
	"github.com/mahendrakanna/edupravahaa-web/internal/adapters/signal"
	"github.com/mahendrakanna/edupravahaa-web/internal/app/orch"
	"github.com/mahendrakanna/edupravahaa-web/internal/auth"
	"github.com/mahendrakanna/edupravahaa-web/internal/config"
	"github.com/mahendrakanna/edupravahaa-web/internal/domain"
)

// ClientTokenMiddleware pins a browser tab to an opaque identifier so the
// web client can correlate reconnects. Distinct from the session token,
// which the platform issues.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, tokens *auth.TokenVerifier) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ClassSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
	}

	signalCtl := signal.NewWSController(o, tokens, cfg)
	classCtl := classroom.NewWSController(o, tokens, cfg)

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		signalCtl.Handle(ctx, c)
	})
	api.GET("/ws/class/:id", func(c *gin.Context) {
		classCtl.Handle(ctx, c)
	})

	api.GET("/rooms", func(c *gin.Context) {
		rooms, err := o.Store.ListRooms(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		out := make([]gin.H, 0, len(rooms))
		for _, room := range rooms {
			size, err := o.Store.RoomSize(c.Request.Context(), room.ID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
				return
			}
			out = append(out, gin.H{"room": room, "client_count": size})
		}
		c.JSON(http.StatusOK, gin.H{"rooms": out})
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		room, err := o.Store.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		if room == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		size, err := o.Store.RoomSize(c.Request.Context(), room.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": room, "client_count": size})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

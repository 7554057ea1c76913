package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Nevojt/project-chat-sub000/internal/adapters/signal"
	"github.com/Nevojt/project-chat-sub000/internal/app"
	"github.com/Nevojt/project-chat-sub000/internal/config"
	"github.com/Nevojt/project-chat-sub000/internal/core"
)

const (
	sessionName     = "ChatSessions"
	sessionTokenKey = "token"
)

// RequestLogger logs each request through zerolog.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("module", "adapters.http").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("remote_addr", c.ClientIP()).
			Msg("request completed")
	}
}

// SetupRouter wires HTTP routes (REST + WS) with the orchestrator.
// ctx bounds the lifetime of websocket sessions.
func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery(), RequestLogger())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: int(cfg.JWT.Expiration.Seconds()), HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	// POST /api/session stores a verified token in the cookie session for
	// browser clients that cannot put it in the websocket url.
	api.POST("/session", func(c *gin.Context) {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
			return
		}
		user, err := orch.Identity.Verify(c.Request.Context(), req.Token)
		if err != nil || user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		s := sessions.Default(c)
		s.Set(sessionTokenKey, req.Token)
		if err := s.Save(); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, user.Presence())
	})

	api.DELETE("/session", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Clear()
		_ = s.Save()
		c.Status(http.StatusNoContent)
	})

	// rooms with live connections
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": orch.Rooms()})
	})

	// who is online, by room id or name
	api.GET("/rooms/:room/users", func(c *gin.Context) {
		room, users, err := orch.OnlineUsers(c.Request.Context(), c.Param("room"))
		if err != nil {
			if errors.Is(err, core.ErrRoomNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
				return
			}
			log.Error().Err(err).Str("module", "adapters.http").Msg("online users")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"type":    "active_users",
			"room_id": room.ID,
			"data":    users,
		})
	})

	ctrl := signal.NewSignalWSController(orch, signal.Options{
		ReadLimit:      cfg.WS.ReadLimit,
		PingPeriod:     cfg.WS.PingPeriod,
		PongWait:       cfg.WS.PongWait,
		WriteWait:      cfg.WS.WriteWait,
		SendBuffer:     cfg.WS.SendBuffer,
		AllowedOrigins: cfg.WS.AllowedOrigins,
	})
	r.GET("/ws/rooms/:room", func(c *gin.Context) {
		ctrl.HandleJoin(ctx, c, c.Param("room"), joinToken(c))
	})

	return r
}

// joinToken prefers the query parameter and falls back to the cookie session.
func joinToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	if token, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok {
		return token
	}
	return ""
}

package http

import (
	"context"
	"strings"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/app/meeting"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/auth"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/files"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Services are the application components the router exposes.
type Services struct {
	Orch     *orch.Orchestrator
	Meetings *meeting.Service
	Files    *files.Store
	Verifier *auth.Verifier
	SFU      *auth.SFUTokens
}

func SetupRouter(ctx context.Context, cfg *config.Config, svc *Services) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: int(sessionMaxAge.Seconds()), HttpOnly: true})
	r.Use(sessions.Sessions("MeetSessions", store))

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	h := &handlers{svc: svc, historyLimit: cfg.Chat.HistoryLimit}
	if svc.Files != nil {
		base := "/" + strings.Trim(cfg.Files.BaseURL, "/")
		r.GET(base+"/:room/:name", h.serveUpload(base))
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.Use(IdentityMiddleware(svc.Verifier))

	api.POST("/meeting/create", h.createMeeting)
	api.POST("/meeting/join", h.joinMeeting)
	api.GET("/meeting/:roomId", h.getMeeting)
	api.POST("/meeting/:roomId/end", h.endMeeting)
	api.GET("/meeting/:roomId/messages", h.listMessages)
	api.POST("/meeting/:roomId/attachments", h.uploadAttachment)
	api.GET("/meeting/:roomId/sfu-token", h.sfuToken)

	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/events", h.roomEvents)

	ctrl := signal.NewSignalWSController(svc.Orch, cfg)
	api.GET("/ws/signal", func(c *gin.Context) {
		user := CurrentUser(c)
		log.Info().Str("module", "adapters.http").Str("user", string(user.ID)).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c, user)
	})

	return r
}

// Package http exposes the messaging backend over a REST API with a
// server-sent-events endpoint for live channel updates.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mvaz/chathub/internal/events"
	"github.com/mvaz/chathub/internal/metrics"
	"github.com/mvaz/chathub/internal/service"
)

type Server struct {
	users       *service.UserService
	channels    *service.ChannelService
	invitations *service.InvitationService
	messages    *service.MessageService
	hub         *events.Hub
	metrics     *metrics.Metrics
	logger      *zap.Logger

	srv *http.Server
}

type Options struct {
	Addr        string
	Users       *service.UserService
	Channels    *service.ChannelService
	Invitations *service.InvitationService
	Messages    *service.MessageService
	Hub         *events.Hub
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func New(opts Options) *Server {
	s := &Server{
		users:       opts.Users,
		channels:    opts.Channels,
		invitations: opts.Invitations,
		messages:    opts.Messages,
		hub:         opts.Hub,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if s.metrics != nil {
		engine.Use(s.metrics.Middleware())
	}
	engine.Use(rateLimit(rate.Every(time.Second/20), 40))

	s.routes(engine)

	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if s.metrics != nil {
		r.GET("/metrics", s.metrics.Handler())
	}

	api := r.Group("/api")

	api.POST("/users", s.createUser)
	api.POST("/users/token", s.createToken)

	authed := api.Group("")
	authed.Use(s.authRequired())

	authed.DELETE("/users/token", s.revokeToken)
	authed.GET("/users", s.listUsers)
	authed.GET("/users/me", s.me)
	authed.GET("/users/:id", s.getUser)

	authed.POST("/channels", s.createChannel)
	authed.GET("/channels", s.listPublicChannels)
	authed.GET("/channels/mine", s.listMyChannels)
	authed.GET("/channels/owned", s.listOwnedChannels)
	authed.GET("/channels/:id", s.getChannel)
	authed.DELETE("/channels/:id", s.deleteChannel)
	authed.GET("/channels/:id/members", s.listChannelMembers)
	authed.DELETE("/channels/:id/members/me", s.leaveChannel)
	authed.PUT("/channels/:id/members/:userID/permission", s.updateMemberPermission)
	authed.POST("/channels/:id/join", s.joinChannel)

	authed.POST("/invitations", s.createInvitation)
	authed.GET("/invitations", s.listMyInvitations)
	authed.GET("/invitations/:code", s.getInvitation)
	authed.POST("/invitations/:code/accept", s.acceptInvitation)
	authed.POST("/invitations/:code/reject", s.rejectInvitation)

	authed.POST("/channels/:id/messages", s.createMessage)
	authed.GET("/channels/:id/messages", s.listMessages)
	authed.GET("/channels/:id/events", s.streamEvents)
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

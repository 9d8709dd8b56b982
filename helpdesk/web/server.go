// Package web exposes the internal HTTP endpoint the dashboard calls when
// staff post a reply to a ticket.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"helpdeskbot/core/logger"
	tghelpers "helpdeskbot/core/telegram/helpers"
	"log/slog"
)

// NotifySink receives staff replies for delivery into Telegram.
type NotifySink interface {
	OnNewMessageFromWeb(ctx context.Context, ticketID int64, senderName, text, chatID string, at time.Time) error
}

// Server hosts the dashboard-facing trigger endpoint.
type Server struct {
	srv  *http.Server
	sink NotifySink
}

type notifyRequest struct {
	TicketID   int64  `json:"ticket_id" binding:"required"`
	SenderName string `json:"sender_name" binding:"required"`
	Message    string `json:"message" binding:"required"`
	ChatID     string `json:"chat_id" binding:"required"`
	Timestamp  string `json:"timestamp"`
}

// New builds the server on the given listen address.
func New(listen string, sink NotifySink) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{sink: sink}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.POST("/internal/notify", s.handleNotify)

	s.srv = &http.Server{
		Addr:              listen,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handleNotify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A malformed timestamp falls back to the receive time.
	var at time.Time
	if req.Timestamp != "" {
		if parsed, ok := tghelpers.ParseFlexibleDate(req.Timestamp); ok {
			at = parsed
		} else {
			logger.WEB.Warn("bad timestamp in notify request",
				slog.String("event", "web.notify"),
				slog.Int64("ticket_id", req.TicketID),
				slog.String("timestamp", req.Timestamp),
			)
		}
	}

	if err := s.sink.OnNewMessageFromWeb(c.Request.Context(), req.TicketID, req.SenderName, req.Message, req.ChatID, at); err != nil {
		logger.WEB.Error("notify processing failed",
			slog.String("event", "web.notify"),
			slog.String("status", "fail"),
			slog.Int64("ticket_id", req.TicketID),
			slog.String("err", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "notification failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		logger.WEB.Info("web trigger listening",
			slog.String("event", "web.start"),
			slog.String("listen", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WEB.Error("web server stopped",
				slog.String("event", "web.stop"),
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

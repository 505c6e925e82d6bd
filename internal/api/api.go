// Package api exposes the HTTP surface: the Telegram webhook, a small
// control-plane settings API, and health checking.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/domain"
	"github.com/KrishnarajT/remindarr/internal/store"
)

// UpdateHandler consumes decoded Telegram updates (webhook mode).
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

// Sender delivers outbound messages (used by the test-notification route).
type Sender interface {
	SendMessage(chatID string, text string) error
}

type Server struct {
	log         *zap.Logger
	repo        store.Repo
	updates     UpdateHandler
	sender      Sender
	defaultChat string
}

func NewServer(log *zap.Logger, repo store.Repo, updates UpdateHandler, sender Sender, defaultChat string) *Server {
	return &Server{log: log, repo: repo, updates: updates, sender: sender, defaultChat: defaultChat}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/webhook", s.handleWebhook)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/users/:chat_id/settings", s.getSettings)
		apiGroup.PUT("/users/:chat_id/settings", s.putSettings)
		apiGroup.POST("/notifications/test", s.testNotification)
	}
	return r
}

// handleWebhook accepts a Telegram update. An empty or irrelevant payload is
// acknowledged as ignored; only a JSON parse failure is a client error.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "read body"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		s.log.Warn("webhook JSON parse failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "invalid JSON"})
		return
	}
	if upd.Message == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	s.updates.HandleUpdate(c.Request.Context(), upd)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// settingsBody is the control-plane settings payload. Pointers distinguish
// "absent" from zero values on update.
type settingsBody struct {
	NotionEnabled       *bool `json:"notion_enabled"`
	CheckFrequencyHours *int  `json:"check_frequency_hours"`
}

func (s *Server) getSettings(c *gin.Context) {
	u, err := s.repo.GetUser(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.log.Error("get user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	c.JSON(http.StatusOK, settingsResponse(u))
}

func (s *Server) putSettings(c *gin.Context) {
	var body settingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if body.CheckFrequencyHours != nil && !domain.ValidCheckFrequency(*body.CheckFrequencyHours) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_frequency_hours must be 12 or 24"})
		return
	}

	ctx := c.Request.Context()
	u, err := s.repo.GetUser(ctx, c.Param("chat_id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.log.Error("get user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}

	if body.NotionEnabled != nil {
		u.NotionEnabled = *body.NotionEnabled
	}
	if body.CheckFrequencyHours != nil {
		u.CheckFreqHours = *body.CheckFrequencyHours
	}
	if err := s.repo.UpsertUser(ctx, u); err != nil {
		s.log.Error("save settings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}
	c.JSON(http.StatusOK, settingsResponse(u))
}

func settingsResponse(u *domain.User) gin.H {
	return gin.H{
		"chat_id":               u.ChatID,
		"tz":                    u.TZ,
		"notion_enabled":        u.NotionEnabled,
		"check_frequency_hours": u.CheckFreqHours,
	}
}

func (s *Server) testNotification(c *gin.Context) {
	if s.defaultChat == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "no default chat configured"})
		return
	}
	if err := s.sender.SendMessage(s.defaultChat, "Hi from Remindarr!"); err != nil {
		s.log.Error("test notification failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Test notification sent"})
}

package server

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Bot handles inbound chat traffic: Process interprets a message into reply
// text, Link validates and stores a chat-account link.
type Bot interface {
	Process(ctx context.Context, chatID int64, username, text string) string
	Link(ctx context.Context, chatID int64, username, apiKey string) error
}

type Sender interface {
	Send(chatID int64, text string)
}

type Server struct {
	bot    Bot
	sender Sender
	secret string
}

func New(bot Bot, sender Sender, secret string) *Server {
	return &Server{
		bot:    bot,
		sender: sender,
		secret: secret,
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	api := router.Group("/api/telegram")
	{
		api.POST("/webhook", s.handleWebhook)
		api.POST("/link", s.handleLink)
	}

	return router
}

func (s *Server) handleWebhook(c *gin.Context) {
	if c.GetHeader(secretTokenHeader) != s.secret {
		log.Printf("Invalid webhook secret token from %s", c.ClientIP())
		c.Status(http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("Failed to decode webhook update: %v", err)
		// Still 200: Telegram would retry a payload we cannot parse anyway.
		c.Status(http.StatusOK)
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		c.Status(http.StatusOK)
		return
	}

	chatID := update.Message.Chat.ID
	username := ""
	if update.Message.From != nil {
		username = update.Message.From.UserName
	}

	log.Printf("Received message from chat %d: %s", chatID, update.Message.Text)

	if reply := s.bot.Process(c.Request.Context(), chatID, username, update.Message.Text); reply != "" {
		s.sender.Send(chatID, reply)
	}

	c.Status(http.StatusOK)
}

type linkRequest struct {
	APIKey   string `json:"api_key" binding:"required"`
	ChatID   int64  `json:"chat_id" binding:"required"`
	Username string `json:"username"`
}

func (s *Server) handleLink(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}

	if err := s.bot.Link(c.Request.Context(), req.ChatID, req.Username, req.APIKey); err != nil {
		log.Printf("Failed to link chat %d: %v", req.ChatID, err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	s.sender.Send(req.ChatID, "✅ Your account has been linked!\n\nUse /help to see available commands.")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Account linked successfully"})
}

package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/detour/internal/assist"
	"github.com/agenthands/detour/internal/geomap"
)

// Server exposes deviation conversations to dispatch tooling over HTTP.
// Sessions live in memory for the lifetime of the process; the CSV tables
// underneath still assume a single writer.
type Server struct {
	assistant *assist.Assistant
	conv      *assist.Conversationalist
	maps      *geomap.MapBuilder
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*assist.Session
}

func New(assistant *assist.Assistant, conv *assist.Conversationalist, maps *geomap.MapBuilder, logger *zap.Logger) *Server {
	return &Server{
		assistant: assistant,
		conv:      conv,
		maps:      maps,
		logger:    logger,
		sessions:  make(map[string]*assist.Session),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/conversations", s.StartConversation)
	r.GET("/conversations/:id", s.GetConversation)
	r.POST("/conversations/:id/messages", s.PostMessage)
	r.POST("/conversations/:id/help", s.PostHelp)
	r.POST("/conversations/:id/map", s.RenderMap)
	r.POST("/conversations/:id/customer-message", s.CustomerMessage)

	return r
}

func (s *Server) session(id string) (*assist.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

type StartConversationRequest struct {
	Origin      string `json:"origin" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	AnomalyTime string `json:"anomaly_time" binding:"required"`
}

func (s *Server) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sess := s.assistant.NewSession(req.Origin, req.Destination, req.AnomalyTime)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": sess.ID,
		"question":        sess.Question(),
	})
}

func (s *Server) GetConversation(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	out := sess.Outcome()
	c.JSON(http.StatusOK, gin.H{
		"conversation_id": out.ConversationID,
		"case":            out.Case,
		"rounds":          out.Rounds,
		"done":            sess.Done(),
		"escalated":       out.Escalated,
	})
}

type MessageRequest struct {
	Answer string `json:"answer" binding:"required"`
}

func (s *Server) PostMessage(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if sess.Done() {
		c.JSON(http.StatusConflict, gin.H{"error": "Conversation already finished"})
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	round, err := sess.Answer(c.Request.Context(), req.Answer)
	if err != nil {
		s.logger.Error("failed to process answer", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process answer"})
		return
	}

	resp := gin.H{
		"ack":       round.Ack,
		"notes":     round.Notes,
		"done":      round.Done,
		"escalated": round.Escalated,
		"case":      sess.Case,
	}
	if !round.Done {
		resp["question"] = sess.Question()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) PostHelp(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"help_requested": sess.RequestHelp(req.Answer)})
}

func (s *Server) RenderMap(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	path, err := s.maps.Build(c.Request.Context(), sess.Case.NewRoute, sess.ID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"map_path": path})
	case errors.Is(err, geomap.ErrTooFewPlaces), errors.Is(err, geomap.ErrTooFewCoordinates):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		s.logger.Error("map build failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Routing call failed"})
	}
}

func (s *Server) CustomerMessage(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	msg, err := s.conv.DraftCustomerMessage(c.Request.Context(), sess.Case.Cause, sess.Case.NewETA, sess.Case.NewRoute)
	if err != nil {
		s.logger.Warn("customer message draft failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": s.assistant.CustomerMessageFallback(), "fallback": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

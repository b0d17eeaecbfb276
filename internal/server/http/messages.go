package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mvaz/chathub/internal/model"
)

type messageDTO struct {
	ID        int64     `json:"id"`
	ChannelID int64     `json:"channel_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toMessageDTO(m model.Message) messageDTO {
	return messageDTO{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		UserID:    m.UserID,
		Username:  m.Username,
		Content:   m.Content,
		CreatedAt: m.Time,
	}
}

func (s *Server) createMessage(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	msg, err := s.messages.CreateMessage(c.Request.Context(),
		currentToken(c), currentUser(c).Username, id, req.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	if s.metrics != nil {
		s.metrics.MessagesCreated.Inc()
	}
	c.JSON(http.StatusCreated, toMessageDTO(*msg))
}

func (s *Server) listMessages(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}

	var (
		msgs []model.Message
		err  error
	)
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, perr := strconv.Atoi(limitStr)
		if perr != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		msgs, err = s.messages.GetLatestMessages(c.Request.Context(), id, limit)
	} else {
		msgs, err = s.messages.GetMessagesByChannelID(c.Request.Context(), id)
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]messageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageDTO(m))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mvaz/chathub/internal/model"
)

type channelDTO struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
	Kind    string `json:"kind"`
}

func toChannelDTO(ch model.Channel) channelDTO {
	return channelDTO{ID: ch.ID, Name: ch.Name, OwnerID: ch.OwnerID, Kind: string(ch.Kind)}
}

func channelList(chs []model.Channel) []channelDTO {
	out := make([]channelDTO, 0, len(chs))
	for _, ch := range chs {
		out = append(out, toChannelDTO(ch))
	}
	return out
}

func channelParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return 0, false
	}
	return id, true
}

func parseKind(s string) (model.ChannelKind, bool) {
	switch model.ChannelKind(strings.ToUpper(s)) {
	case model.ChannelPublic:
		return model.ChannelPublic, true
	case model.ChannelPrivate:
		return model.ChannelPrivate, true
	}
	return "", false
}

func parsePermission(s string) (model.Permission, bool) {
	switch model.Permission(strings.ToUpper(s)) {
	case model.ReadOnly:
		return model.ReadOnly, true
	case model.ReadWrite:
		return model.ReadWrite, true
	}
	return "", false
}

func (s *Server) createChannel(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel name is required"})
		return
	}
	kind, ok := parseKind(req.Kind)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be PUBLIC or PRIVATE"})
		return
	}

	user := currentUser(c)
	ch, err := s.channels.CreateChannel(c.Request.Context(), currentToken(c), req.Name, user.Username, kind)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toChannelDTO(*ch))
}

func (s *Server) listPublicChannels(c *gin.Context) {
	chs, err := s.channels.GetPublicChannels(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channelList(chs)})
}

func (s *Server) listMyChannels(c *gin.Context) {
	chs, err := s.channels.GetChannelsOfUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channelList(chs)})
}

func (s *Server) listOwnedChannels(c *gin.Context) {
	chs, err := s.channels.GetChannelsByOwner(c.Request.Context(), currentUser(c).Username)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channelList(chs)})
}

func (s *Server) getChannel(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}
	ch, err := s.channels.GetChannelByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toChannelDTO(*ch))
}

func (s *Server) deleteChannel(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}
	user := currentUser(c)
	if _, err := s.channels.DeleteChannel(c.Request.Context(), currentToken(c), id, user.Username); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listChannelMembers(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}
	parts, err := s.channels.GetUsersOfChannel(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	type memberDTO struct {
		UserID     int64  `json:"user_id"`
		Username   string `json:"username"`
		Permission string `json:"permission"`
	}
	out := make([]memberDTO, 0, len(parts))
	for _, p := range parts {
		out = append(out, memberDTO{UserID: p.UserID, Username: p.Username, Permission: string(p.Permission)})
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

// joinChannel lets the caller join a public channel directly. Private
// channels only admit members through invitations.
func (s *Server) joinChannel(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}
	ch, err := s.channels.GetChannelByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if ch.Kind != model.ChannelPublic {
		c.JSON(http.StatusForbidden, gin.H{"error": "channel is private, join by invitation"})
		return
	}
	if _, err := s.channels.AddParticipantToChannel(c.Request.Context(), currentUser(c).Username, id, model.ReadWrite); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toChannelDTO(*ch))
}

func (s *Server) updateMemberPermission(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req struct {
		Permission string `json:"permission"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	perm, ok := parsePermission(req.Permission)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "permission must be READ_ONLY or READ_WRITE"})
		return
	}
	if err := s.channels.UpdateMemberPermission(c.Request.Context(), currentUser(c).Username, id, userID, perm); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) leaveChannel(c *gin.Context) {
	id, ok := channelParam(c)
	if !ok {
		return
	}
	if _, err := s.channels.RemoveParticipantFromChannel(c.Request.Context(), currentUser(c).Username, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

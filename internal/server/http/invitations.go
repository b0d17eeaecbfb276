package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mvaz/chathub/internal/model"
)

type invitationDTO struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	InviterID  int64  `json:"inviter_id"`
	InviteeID  int64  `json:"invitee_id,omitempty"`
	ChannelID  int64  `json:"channel_id"`
	Used       bool   `json:"used"`
	Permission string `json:"permission"`
}

func toInvitationDTO(inv model.Invitation) invitationDTO {
	return invitationDTO{
		ID:         inv.ID,
		Code:       inv.Code,
		InviterID:  inv.InviterID,
		InviteeID:  inv.InviteeID,
		ChannelID:  inv.ChannelID,
		Used:       inv.Used,
		Permission: string(inv.Permission),
	}
}

func (s *Server) createInvitation(c *gin.Context) {
	var req struct {
		ChannelID  int64  `json:"channel_id"`
		Invitee    string `json:"invitee"`
		Permission string `json:"permission"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.ChannelID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id is required"})
		return
	}
	perm, ok := parsePermission(req.Permission)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "permission must be READ_ONLY or READ_WRITE"})
		return
	}

	inv, err := s.invitations.CreateInvitation(c.Request.Context(),
		currentUser(c).Username, strings.TrimSpace(req.Invitee), req.ChannelID, perm)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toInvitationDTO(*inv))
}

func (s *Server) listMyInvitations(c *gin.Context) {
	invs, err := s.invitations.GetAllInvitationsByUser(c.Request.Context(), currentUser(c).Username)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]invitationDTO, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvitationDTO(inv))
	}
	c.JSON(http.StatusOK, gin.H{"invitations": out})
}

func (s *Server) getInvitation(c *gin.Context) {
	inv, err := s.invitations.GetInvitationByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toInvitationDTO(*inv))
}

func (s *Server) acceptInvitation(c *gin.Context) {
	inv, err := s.invitations.GetInvitationByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	err = s.invitations.AcceptInvitation(c.Request.Context(),
		currentUser(c).Username, inv.ID, inv.ChannelID, inv.Permission)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": inv.ChannelID})
}

func (s *Server) rejectInvitation(c *gin.Context) {
	inv, err := s.invitations.GetInvitationByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.invitations.RejectInvitation(c.Request.Context(), currentUser(c).Username, inv.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

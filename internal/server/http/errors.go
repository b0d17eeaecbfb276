package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mvaz/chathub/internal/errs"
)

// statusFor maps service sentinel errors to HTTP status codes. Unknown
// errors map to 500 and their detail stays out of the response.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrUserOrPasswordInvalid):
		return http.StatusUnauthorized, "user or password are invalid"
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests, "too many attempts, try again later"
	case errors.Is(err, errs.ErrInsecurePassword):
		return http.StatusBadRequest, "insecure password"
	case errors.Is(err, errs.ErrUsernameAlreadyUsed):
		return http.StatusConflict, "username already in use"
	case errors.Is(err, errs.ErrUserAlreadyOnChannel):
		return http.StatusConflict, "user is already on the channel"
	case errors.Is(err, errs.ErrUserNotOwner):
		return http.StatusForbidden, "user is not the channel owner"
	case errors.Is(err, errs.ErrNoWritePermission):
		return http.StatusForbidden, "no write permission on the channel"
	case errors.Is(err, errs.ErrUserNotParticipant),
		errors.Is(err, errs.ErrUserNotOnChannel):
		return http.StatusForbidden, "user is not on the channel"
	case errors.Is(err, errs.ErrChannelNotFound):
		return http.StatusNotFound, "channel not found"
	case errors.Is(err, errs.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, errs.ErrInviterNotFound):
		return http.StatusNotFound, "inviter not found"
	case errors.Is(err, errs.ErrInviteeNotFound):
		return http.StatusNotFound, "invitee not found"
	case errors.Is(err, errs.ErrInvitationNotFound):
		return http.StatusNotFound, "invitation not found"
	case errors.Is(err, errs.ErrMessageNotFound):
		return http.StatusNotFound, "message not found"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if s.metrics != nil && errors.Is(err, errs.ErrRateLimited) {
		s.metrics.LoginsRejected.Inc()
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

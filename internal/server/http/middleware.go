package http

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/mvaz/chathub/internal/model"
)

const contextUserKey = "chathub.user"
const contextTokenKey = "chathub.token"

// authRequired resolves the bearer token to a user and stores both on
// the gin context. Invalid, expired or missing tokens get a 401.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimSpace(header[len(prefix):])

		user, err := s.users.GetUserByToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(contextUserKey, user)
		c.Set(contextTokenKey, token)
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	return c.MustGet(contextUserKey).(*model.User)
}

func currentToken(c *gin.Context) string {
	return c.MustGet(contextTokenKey).(string)
}

type ipLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// rateLimit is a per-IP token bucket middleware. Stale entries are
// collected on the way through, no background goroutine needed.
func rateLimit(r rate.Limit, burst int) gin.HandlerFunc {
	var (
		mu     sync.Mutex
		bucket = make(map[string]*ipLimiter)
		lastGC = time.Now()
	)

	return func(c *gin.Context) {
		ip := clientIP(c.Request.RemoteAddr)

		mu.Lock()
		now := time.Now()
		if now.Sub(lastGC) > 5*time.Minute {
			for k, v := range bucket {
				if now.Sub(v.seen) > 10*time.Minute {
					delete(bucket, k)
				}
			}
			lastGC = now
		}
		entry, ok := bucket[ip]
		if !ok {
			entry = &ipLimiter{lim: rate.NewLimiter(r, burst)}
			bucket[ip] = entry
		}
		entry.seen = now
		lim := entry.lim
		mu.Unlock()

		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}

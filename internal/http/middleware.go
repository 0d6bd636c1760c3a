package http

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"carteira/internal/log"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Keys stored in the gin context.
const (
	ctxRequestID = "request_id"
	ctxClientIP  = "client_ip"
	ctxUserID    = "user_id"
)

const requestIDHeader = "X-Request-ID"

var errUnauthorized = errors.New("missing or invalid token")

// traceMiddleware assigns a request ID, stores a request-scoped logger in the
// request context and logs the outcome of every request.
func (s *Server) traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		r := c.Request

		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > 64 {
			requestID = generateRequestID()
		}
		clientIP := extractClientIP(r)

		c.Set(ctxRequestID, requestID)
		c.Set(ctxClientIP, clientIP)
		c.Header(requestIDHeader, requestID)

		reqLogger := s.logger.With(log.FieldRequestID, requestID, log.FieldClientIP, clientIP)
		ctx := log.WithContext(r.Context(), reqLogger)
		c.Request = r.WithContext(ctx)

		atomic.AddInt64(&s.requests, 1)
		c.Next()

		status := c.Writer.Status()
		fields := log.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).
			WithHTTPResponse(status, time.Since(start).Milliseconds())
		if len(c.Errors) > 0 {
			fields[log.FieldError] = c.Errors.String()
		}
		reqLogger.LogContext(ctx, log.HTTPLevel(status), "HTTP request completed", fields.ToSlice()...)
	}
}

// securityMiddleware logs requests that look like probes. They are not blocked.
func (s *Server) securityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if detectSuspiciousRequest(c.Request, &s.security) {
			log.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "Suspicious request",
				log.FieldMethod, c.Request.Method,
				log.FieldPath, c.Request.URL.Path,
				log.FieldUserAgent, c.Request.UserAgent())
		}
		c.Next()
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		if !s.limiter.allow(c.GetString(ctxClientIP), &s.security) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// authMiddleware verifies the bearer token and stores its subject as the
// owner of the request. Without a secret every request runs as the anonymous
// user.
func (s *Server) authMiddleware() gin.HandlerFunc {
	secret := []byte(s.jwtSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Set(ctxUserID, "")
			c.Next()
			return
		}

		subject, err := verifyToken(parser, secret, c.GetHeader("Authorization"))
		if err != nil {
			atomic.AddInt64(&s.security.authFailures, 1)
			log.FromContext(c.Request.Context()).WarnContext(c.Request.Context(), "Rejected request token",
				log.FieldPath, c.Request.URL.Path,
				log.FieldError, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized.Error()})
			return
		}
		c.Set(ctxUserID, subject)
		c.Next()
	}
}

func verifyToken(parser *jwt.Parser, secret []byte, header string) (string, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(header), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errUnauthorized
	}
	return claims.Subject, nil
}

// userID returns the owner of the request set by authMiddleware.
func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

package ui

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rubik/internal/metrics"
	"rubik/internal/session"
	"rubik/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxSession       = "rubik.session"
	ctxCookieID      = "rubik.cookie_id"
	ctxAccount       = "rubik.account"
	csrfField        = "csrf_token"
	csrfHeader       = "X-CSRF-Token"
	loginPath        = "/login/"
	loginRedirectURL = "/login_redirect/"
)

// requestLogger writes one zap line and the Prometheus samples per request
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("request", fields...)
			return
		}
		s.logger.Info("request", fields...)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stack"))
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// sessionMiddleware attaches the visitor's session to the context. Handlers persist it
// through renderTemplate/redirect; anything left unsaved is persisted after the handler.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieID, _ := c.Cookie(s.opts.CookieName)
		c.Set(ctxCookieID, cookieID)
		c.Set(ctxSession, s.sessions.Load(c.Request.Context(), cookieID))

		c.Next()

		if !c.Writer.Written() {
			s.saveSession(c)
		}
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// saveSession persists a modified session and issues the cookie when its id changed
func (s *Server) saveSession(c *gin.Context) {
	sess := sessionFrom(c)
	if sess == nil || !sess.Modified() {
		return
	}
	if err := s.sessions.Save(c.Request.Context(), sess); err != nil {
		s.logger.Error("session save failed", zap.Error(err))
		return
	}
	if c.GetString(ctxCookieID) == sess.ID() {
		return
	}
	c.Set(ctxCookieID, sess.ID())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.opts.CookieName, sess.ID(), int(s.sessions.TTL().Seconds()), "/", "", s.opts.CookieSecure, true)
}

// csrfMiddleware rejects POSTs whose token does not match the session's
func (s *Server) csrfMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.opts.CSRFEnabled || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		sess := sessionFrom(c)
		expected := ""
		if sess != nil {
			expected = sess.GetString(session.KeyCSRFToken)
		}
		got := c.GetHeader(csrfHeader)
		if got == "" {
			got = c.PostForm(csrfField)
		}
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
			s.logger.Warn("csrf check failed", zap.String("path", c.Request.URL.Path))
			s.renderError(c, http.StatusForbidden, "CSRF verification failed. Request aborted.")
			return
		}
		c.Next()
	}
}

// currentAccount resolves the signed-in account once per request
func (s *Server) currentAccount(c *gin.Context) *models.Account {
	if v, ok := c.Get(ctxAccount); ok {
		account, _ := v.(*models.Account)
		return account
	}

	var account *models.Account
	if sess := sessionFrom(c); sess != nil && s.services.Auth != nil {
		raw := sess.GetString(session.KeyAccountID)
		found, err := s.services.Auth.CurrentAccount(c.Request.Context(), raw)
		if err != nil {
			s.logger.Error("failed to load session account", zap.Error(err))
		}
		if found == nil && raw != "" && err == nil {
			sess.Delete(session.KeyAccountID)
		}
		account = found
	}
	c.Set(ctxAccount, account)
	return account
}

// loginURL is the login page with next set to the request's full path. Slashes in next
// stay unescaped.
func loginURL(r *http.Request) string {
	next := strings.ReplaceAll(url.QueryEscape(r.URL.RequestURI()), "%2F", "/")
	return fmt.Sprintf("%s?next=%s", loginPath, next)
}

func (s *Server) loginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.currentAccount(c) == nil {
			s.redirect(c, http.StatusFound, loginURL(c.Request))
			c.Abort()
			return
		}
		c.Next()
	}
}

// staffRequired sends anonymous visitors and non-staff accounts to the same login redirect
func (s *Server) staffRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := s.currentAccount(c)
		if account == nil || !account.IsStaff {
			s.redirect(c, http.StatusFound, loginURL(c.Request))
			c.Abort()
			return
		}
		c.Next()
	}
}

// safeNext accepts only local absolute paths
func safeNext(next string) (string, bool) {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "", false
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	return next, true
}

package ui

import (
	"net/http"
	"strconv"
	"strings"

	"rubik/app"
	"rubik/internal/errors"
	"rubik/internal/session"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleLoginForm(c *gin.Context) {
	data := s.baseData(c, "Log in")
	data["Username"] = ""
	data["Error"] = ""
	data["Next"] = c.Query("next")
	s.renderTemplate(c, http.StatusOK, "login.html", data)
}

// handleLogin checks the credentials, moves the visitor to a fresh session id and sends
// them to next (when it is a local path) or to the role-based landing redirect
func (s *Server) handleLogin(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := c.PostForm("next")

	account, err := s.services.Auth.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.GetCode(err) != errors.CodeUnauthorized {
			s.serverError(c, err)
			return
		}
		data := s.baseData(c, "Log in")
		data["Username"] = username
		data["Error"] = app.MsgInvalidLogin
		data["Next"] = next
		s.renderTemplate(c, http.StatusOK, "login.html", data)
		return
	}

	sess := sessionFrom(c)
	sess.Rotate()
	sess.Delete(session.KeyCSRFToken)
	sess.Set(session.KeyAccountID, strconv.FormatInt(account.ID, 10))
	c.Set(ctxAccount, account)

	target := loginRedirectURL
	if safe, ok := safeNext(next); ok {
		target = safe
	}
	s.redirect(c, http.StatusFound, target)
}

func (s *Server) handleLogout(c *gin.Context) {
	sess := sessionFrom(c)
	sess.Clear()
	sess.AddFlash(session.LevelInfo, "You have been logged out.")
	s.redirect(c, http.StatusFound, loginPath)
}

func (s *Server) handleLoginRedirect(c *gin.Context) {
	if s.currentAccount(c).IsStaff {
		s.redirect(c, http.StatusFound, "/admin_dashboard/")
		return
	}
	s.redirect(c, http.StatusFound, "/")
}

func (s *Server) handleHome(c *gin.Context) {
	data := s.baseData(c, "Home")
	account := s.currentAccount(c)
	view, err := s.services.Profile.Load(c.Request.Context(), account.ID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	data["Profile"] = view.Profile
	s.renderTemplate(c, http.StatusOK, "home.html", data)
}

package ui

import (
	"net/http"

	"rubik/app"
	"rubik/internal/forms"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRegisterForm(c *gin.Context) {
	data := s.baseData(c, "Register")
	data["Form"] = app.RegistrationForm{}
	data["Errors"] = forms.FieldErrors(nil)
	s.renderTemplate(c, http.StatusOK, "register.html", data)
}

// handleRegister creates an inactive account. Invalid submissions re-render the form
// with the entered username and email and every field error.
func (s *Server) handleRegister(c *gin.Context) {
	form := app.RegistrationForm{
		Username:  c.PostForm("username"),
		Email:     c.PostForm("email"),
		Password1: c.PostForm("password1"),
		Password2: c.PostForm("password2"),
	}

	_, fieldErrs, err := s.services.Registration.Register(c.Request.Context(), form)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if fieldErrs.Any() {
		form.Password1, form.Password2 = "", ""
		data := s.baseData(c, "Register")
		data["Form"] = form
		data["Errors"] = fieldErrs
		s.renderTemplate(c, http.StatusOK, "register.html", data)
		return
	}

	s.redirect(c, http.StatusSeeOther, "/pending_approval/")
}

func (s *Server) handlePendingApproval(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, "pending_approval.html", s.baseData(c, "Pending approval"))
}

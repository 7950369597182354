package ui

import (
	"io"
	"net/http"

	"rubik/app"
	"rubik/internal/forms"
	"rubik/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	profilePath     = "/profile/"
	msgProfileSaved = "Your profile has been updated successfully!"
	msgProfileError = "Please correct the errors below."
)

func (s *Server) handleProfile(c *gin.Context) {
	view, err := s.services.Profile.Load(c.Request.Context(), s.currentAccount(c).ID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	s.renderProfile(c, view, nil)
}

// handleProfileUpdate saves both halves of the editor, or neither
func (s *Server) handleProfileUpdate(c *gin.Context) {
	af := app.AccountForm{
		Username:  c.PostForm("username"),
		Email:     c.PostForm("email"),
		FirstName: c.PostForm("first_name"),
		LastName:  c.PostForm("last_name"),
	}
	pf := app.ProfileForm{Bio: c.PostForm("bio")}

	upload, err := readUpload(c, "picture")
	if err != nil {
		s.serverError(c, err)
		return
	}
	pf.Picture = upload

	view, fieldErrs, err := s.services.Profile.Update(c.Request.Context(), s.currentAccount(c).ID, af, pf)
	if err != nil {
		s.serverError(c, err)
		return
	}

	sess := sessionFrom(c)
	if fieldErrs.Any() {
		sess.AddFlash(session.LevelError, msgProfileError)
		s.renderProfile(c, view, fieldErrs)
		return
	}

	sess.AddFlash(session.LevelSuccess, msgProfileSaved)
	s.redirect(c, http.StatusSeeOther, profilePath)
}

func (s *Server) renderProfile(c *gin.Context, view *app.ProfileView, fieldErrs forms.FieldErrors) {
	data := s.baseData(c, "Your profile")
	data["User"] = view.Account
	data["Profile"] = view.Profile
	data["Errors"] = fieldErrs
	s.renderTemplate(c, http.StatusOK, "profile.html", data)
}

// readUpload returns the named multipart file, or nil when none was sent. Reads are
// capped one byte past the picture limit so oversize files still fail validation.
func readUpload(c *gin.Context, field string) (*app.Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, err
	}
	if header.Size == 0 && header.Filename == "" {
		return nil, nil
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, app.MaxPictureBytes+1))
	if err != nil {
		return nil, err
	}
	return &app.Upload{Filename: header.Filename, Data: data}, nil
}

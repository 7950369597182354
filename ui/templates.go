package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"rubik/internal/forms"
	"rubik/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"go.uber.org/zap"
)

const layoutFile = "templates/layout.html"

var funcMap = template.FuncMap{
	"add":      func(a, b int) int { return a + b },
	"sub":      func(a, b int) int { return a - b },
	"markdown": renderMarkdown,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006 15:04")
	},
	"upper": strings.ToUpper,
	// fieldError returns the first message for a field, or "" when errs is nil
	"fieldError": func(errs forms.FieldErrors, field string) string {
		if errs == nil {
			return ""
		}
		return errs.First(field)
	},
	"fieldErrors": func(errs forms.FieldErrors, field string) []string {
		if errs == nil {
			return nil
		}
		return errs.Get(field)
	},
	// pageURL builds a pagination link keeping the other query parameters
	"pageURL": func(base string, params url.Values, page int) string {
		v := url.Values{}
		for k, vals := range params {
			v[k] = vals
		}
		v.Set("page", fmt.Sprint(page))
		return base + "?" + v.Encode()
	},
}

// renderMarkdown renders a bio. Raw HTML in the source is dropped.
func renderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.SkipImages | mdhtml.Safelink | mdhtml.NofollowLinks,
	})
	return template.HTML(markdown.ToHTML([]byte(src), p, r))
}

// parseTemplates builds one template set per page, each sharing the layout
func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	layout, err := template.New(path.Base(layoutFile)).Funcs(funcMap).ParseFS(fsys, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		page, err := clone.ParseFS(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", file, err)
		}
		pages[path.Base(file)] = page
	}
	return pages, nil
}

// baseData is what every page gets: the signed-in account, pending flashes and the
// CSRF token for forms
func (s *Server) baseData(c *gin.Context, title string) gin.H {
	sess := sessionFrom(c)
	data := gin.H{
		"Title":       title,
		"Account":     s.currentAccount(c),
		"Flashes":     []session.Flash(nil),
		"CSRFToken":   "",
		"CurrentPath": c.Request.URL.Path,
	}
	if sess != nil {
		data["Flashes"] = sess.Flashes()
		data["CSRFToken"] = sess.CSRFToken()
	}
	return data
}

// renderTemplate executes a page into a buffer, persists the session and only then
// writes the response, so template failures never produce half a page
func (s *Server) renderTemplate(c *gin.Context, status int, name string, data gin.H) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.logger.Error("unknown template", zap.String("template", name))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("template error", zap.String("template", name), zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	s.saveSession(c)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if _, err := buf.WriteTo(c.Writer); err != nil {
		s.logger.Warn("error writing template response", zap.Error(err))
	}
}

// renderError shows the error page. Unexpected errors are logged by the caller.
func (s *Server) renderError(c *gin.Context, status int, message string) {
	data := s.baseData(c, http.StatusText(status))
	data["Status"] = status
	data["Message"] = message
	s.renderTemplate(c, status, "error.html", data)
	c.Abort()
}

// serverError logs err and renders a 500
func (s *Server) serverError(c *gin.Context, err error) {
	s.logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	s.renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

// redirect persists the session before sending the redirect
func (s *Server) redirect(c *gin.Context, status int, location string) {
	s.saveSession(c)
	c.Redirect(status, location)
}

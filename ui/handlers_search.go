package ui

import (
	"net/http"
	"net/url"

	"rubik/app"

	"github.com/gin-gonic/gin"
)

// handleSearch serves both the query form (POST) and pagination links (GET)
func (s *Server) handleSearch(c *gin.Context) {
	req := app.SearchRequest{}
	if c.Request.Method == http.MethodPost {
		req.Submitted = true
		req.Query = c.PostForm("query")
	} else {
		req.Page, req.HasPage = c.GetQuery("page")
	}

	out := s.services.Search.Run(c.Request.Context(), sessionFrom(c), req)

	data := s.baseData(c, out.Title)
	data["Results"] = out.Page.Items
	data["Page"] = out.Page
	data["Query"] = out.Query
	data["Error"] = out.Error
	data["Params"] = url.Values{}
	s.renderTemplate(c, http.StatusOK, "search.html", data)
}

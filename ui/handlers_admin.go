package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"rubik/adapters/excel"
	"rubik/app"
	"rubik/internal/errors"
	"rubik/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	dashboardPath = "/admin_dashboard/"
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func listRequestFrom(c *gin.Context) app.PendingListRequest {
	return app.PendingListRequest{
		Query: c.Query("q"),
		Sort:  c.Query("sort"),
		Order: c.Query("order"),
		Page:  c.Query("page"),
	}
}

// handleDashboard shows one page of the approval queue
func (s *Server) handleDashboard(c *gin.Context) {
	list, err := s.services.Approval.List(c.Request.Context(), listRequestFrom(c))
	if err != nil {
		s.serverError(c, err)
		return
	}

	params := url.Values{}
	if list.Query != "" {
		params.Set("q", list.Query)
	}
	params.Set("sort", list.Sort)
	params.Set("order", list.Order)

	data := s.baseData(c, "Admin dashboard")
	data["List"] = list
	data["PendingUsers"] = list.Page.Items
	data["Params"] = params
	data["ExportURL"] = dashboardPath + "export/?" + params.Encode()
	s.renderTemplate(c, http.StatusOK, "admin_dashboard.html", data)
}

// handleDashboardExport streams every pending account matching the filter as XLSX
func (s *Server) handleDashboardExport(c *gin.Context) {
	accounts, err := s.services.Approval.ListAll(c.Request.Context(), listRequestFrom(c))
	if err != nil {
		s.serverError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := excel.WritePendingAccounts(&buf, accounts); err != nil {
		s.serverError(c, err)
		return
	}

	s.saveSession(c)
	c.Header("Content-Disposition", `attachment; filename="pending_accounts.xlsx"`)
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (s *Server) handleApprove(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		s.renderError(c, http.StatusNotFound, "No such account.")
		return
	}
	account, err := s.services.Approval.Approve(c.Request.Context(), id)
	if err != nil {
		s.approvalFailed(c, err)
		return
	}
	sessionFrom(c).AddFlash(session.LevelSuccess, fmt.Sprintf("%s has been approved.", account.Username))
	s.redirect(c, http.StatusFound, dashboardPath)
}

func (s *Server) handleReject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		s.renderError(c, http.StatusNotFound, "No such account.")
		return
	}
	if err := s.services.Approval.Reject(c.Request.Context(), id); err != nil {
		s.approvalFailed(c, err)
		return
	}
	sessionFrom(c).AddFlash(session.LevelSuccess, "The account has been rejected.")
	s.redirect(c, http.StatusFound, dashboardPath)
}

func (s *Server) approvalFailed(c *gin.Context, err error) {
	if errors.IsNotFound(err) {
		s.renderError(c, http.StatusNotFound, "No such account.")
		return
	}
	s.serverError(c, err)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"carteira/internal/core"
	"carteira/internal/report"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleSummary(c *gin.Context) {
	start, end, err := s.parseRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := s.reports.Summary(c.Request.Context(), userID(c), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleCategoryRollup returns the rollup of the range. With type and top set
// only the top categories of that type are returned.
func (s *Server) handleCategoryRollup(c *gin.Context) {
	start, end, err := s.parseRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	typ, err := optionalType(c, "type")
	if err != nil {
		respondError(c, err)
		return
	}
	top := 0
	if v := strings.TrimSpace(c.Query("top")); v != "" {
		if top, err = strconv.Atoi(v); err != nil || top < 1 {
			respondError(c, fmt.Errorf("%w: top must be a positive number", errBadRequest))
			return
		}
		if typ == "" {
			respondError(c, fmt.Errorf("%w: top requires a type", errBadRequest))
			return
		}
	}

	rollups, err := s.reports.CategoryRollup(c.Request.Context(), userID(c), start, end, typ)
	if err != nil {
		respondError(c, err)
		return
	}
	if top > 0 {
		rollups = report.TopCategories(rollups, typ, top)
	}
	if rollups == nil {
		rollups = []core.CategoryRollup{}
	}
	c.JSON(http.StatusOK, rollups)
}

func (s *Server) handleMonthly(c *gin.Context) {
	months, anchor, err := parseMonths(c)
	if err != nil {
		respondError(c, err)
		return
	}
	points, err := s.reports.Monthly(c.Request.Context(), userID(c), anchor, months)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) handleExportTransactions(c *gin.Context) {
	f, err := s.parseFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := s.reports.ExportTransactions(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	respondFile(c, file)
}

func (s *Server) handleExportSummary(c *gin.Context) {
	start, end, err := s.parseRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := s.reports.ExportSummary(c.Request.Context(), userID(c), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	respondFile(c, file)
}

func (s *Server) handleExportCategories(c *gin.Context) {
	start, end, err := s.parseRange(c)
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := s.reports.ExportCategories(c.Request.Context(), userID(c), start, end, c.DefaultQuery("type", "all"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondFile(c, file)
}

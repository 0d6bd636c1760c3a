package http

import (
	"fmt"
	"strconv"
	"strings"

	"carteira/internal/core"
	"carteira/internal/report"
	"carteira/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	defaultMonths = 6
	maxMonths     = 36
	maxLimit      = 1000
)

// parseRange reads the date range of a report request: either a named
// range=today|week|month|year or explicit start and end dates. Named ranges
// resolve against today in the report location.
func (s *Server) parseRange(c *gin.Context) (core.Date, core.Date, error) {
	if name := strings.TrimSpace(c.Query("range")); name != "" {
		return report.QuickRange(name, s.reports.Today().Time)
	}
	start, err := optionalDate(c, "start")
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	end, err := optionalDate(c, "end")
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	if err := report.ValidateRange(start, end); err != nil {
		return core.Date{}, core.Date{}, err
	}
	return start, end, nil
}

// parseFilter reads a transaction filter from the query string. Every
// condition is optional.
func (s *Server) parseFilter(c *gin.Context) (store.Filter, error) {
	f := store.Filter{UserID: userID(c)}

	if name := strings.TrimSpace(c.Query("range")); name != "" {
		start, end, err := report.QuickRange(name, s.reports.Today().Time)
		if err != nil {
			return store.Filter{}, err
		}
		f.StartDate, f.EndDate = start, end
	} else {
		var err error
		if f.StartDate, err = optionalDate(c, "start"); err != nil {
			return store.Filter{}, err
		}
		if f.EndDate, err = optionalDate(c, "end"); err != nil {
			return store.Filter{}, err
		}
	}

	typ, err := optionalType(c, "type")
	if err != nil {
		return store.Filter{}, err
	}
	f.Type = typ
	f.CategoryID = sanitizeInput(c.Query("category_id"))

	if f.MinAmount, err = optionalAmount(c, "min_amount"); err != nil {
		return store.Filter{}, err
	}
	if f.MaxAmount, err = optionalAmount(c, "max_amount"); err != nil {
		return store.Filter{}, err
	}

	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxLimit {
			return store.Filter{}, fmt.Errorf("%w: limit must be between 0 and %d", errBadRequest, maxLimit)
		}
		f.Limit = n
	}
	return f, nil
}

// parseMonths reads months (default 6) and anchor (default today).
func parseMonths(c *gin.Context) (int, core.Date, error) {
	months := defaultMonths
	if v := strings.TrimSpace(c.Query("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxMonths {
			return 0, core.Date{}, fmt.Errorf("%w: months must be between 1 and %d", errBadRequest, maxMonths)
		}
		months = n
	}
	anchor, err := optionalDate(c, "anchor")
	if err != nil {
		return 0, core.Date{}, err
	}
	return months, anchor, nil
}

func optionalDate(c *gin.Context, key string) (core.Date, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(v)
}

func optionalType(c *gin.Context, key string) (core.TransactionType, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return "", nil
	}
	return core.ParseTransactionType(v)
}

func optionalAmount(c *gin.Context, key string) (*core.Money, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	m, err := core.ParseAmount(v)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// bindJSON decodes the request body into v.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

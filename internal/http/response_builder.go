package http

import (
	"errors"
	"fmt"
	"net/http"

	"carteira/internal/core"
	"carteira/internal/export"
	"carteira/internal/log"
	"carteira/internal/report"
	"carteira/internal/services"
	"carteira/internal/store"

	"github.com/gin-gonic/gin"
)

// errBadRequest marks request bodies and query values that could not be read.
var errBadRequest = errors.New("bad request")

var validationErrors = []error{
	errBadRequest,
	core.ErrInvalidAmount,
	core.ErrInvalidType,
	core.ErrInvalidDate,
	core.ErrDescriptionTooLong,
	core.ErrEmptyName,
	core.ErrCategoryTypeMismatch,
	report.ErrInvalidRange,
	store.ErrInvalidFilter,
	services.ErrUnknownCategory,
}

// statusFor maps service errors to HTTP status codes. A malformed stored
// amount wraps core.ErrInvalidAmount, so it is checked before validation.
func statusFor(err error) int {
	var amountErr *core.AmountError
	switch {
	case errors.As(err, &amountErr), errors.Is(err, core.ErrAmountOverflow), errors.Is(err, export.ErrNothingToExport):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDefaultCategory):
		return http.StatusForbidden
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Internal errors are logged and their
// message is not sent to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		ctx := c.Request.Context()
		log.FromContext(ctx).ErrorContext(ctx, "Request failed",
			log.FieldPath, c.Request.URL.Path,
			log.FieldError, err)
		msg = "internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// respondFile sends an export as a download.
func respondFile(c *gin.Context, f export.File) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	c.Data(http.StatusOK, export.ContentType, f.Content)
}

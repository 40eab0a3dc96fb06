package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/dto"
)

// ErrorHandler recovers from panics and renders the last error a handler
// attached with c.Error as a dto.ErrorResponse
func ErrorHandler(logger coreport.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Panic recovered in API request", map[string]any{
					"error":      rec,
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"client_ip":  c.ClientIP(),
					"request_id": coreport.RequestID(c.Request.Context()),
					"user_agent": c.Request.UserAgent(),
				})

				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
					Code:    errs.ErrorCode(errs.ErrInternalServer),
					Message: "Internal server error",
				})
			}
		}()

		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		err := last.Err
		status := StatusCode(err)

		fields := map[string]any{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"status":     status,
			"request_id": coreport.RequestID(c.Request.Context()),
			"error":      err.Error(),
		}
		var logged interface{ LogFields() map[string]any }
		if errors.As(err, &logged) {
			for k, v := range logged.LogFields() {
				fields[k] = v
			}
		}
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", fields)
		} else {
			logger.Debug("Request rejected", fields)
		}

		resp := dto.ErrorResponse{
			Code:    errs.ErrorCode(err),
			Message: errs.Message(err),
		}
		var verr *errs.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		c.AbortWithStatusJSON(status, resp)
	}
}

// StatusCode maps a domain error to its HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, errs.ErrStoreUnavailable), errors.Is(err, errs.ErrDatabaseConnection):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrPaymentFailed):
		return http.StatusInternalServerError
	case errors.Is(err, errs.ErrValidation),
		errors.Is(err, errs.ErrInvalidRequest),
		errors.Is(err, errs.ErrInvalidAmount),
		errors.Is(err, errs.ErrNegativeAmount),
		errors.Is(err, errs.ErrAmountOverflow),
		errors.Is(err, errs.ErrInsufficientBalance),
		errors.Is(err, errs.ErrInvalidPINFormat),
		errors.Is(err, errs.ErrInvalidPhone),
		errors.Is(err, errs.ErrUnknownNetwork),
		errors.Is(err, errs.ErrSelfTransfer):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrMissingSession), errors.Is(err, errs.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrIncorrectPIN), errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errs.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrDuplicateEmail),
		errors.Is(err, errs.ErrDuplicateTransaction),
		errors.Is(err, errs.ErrSubmissionNotPending),
		errors.Is(err, errs.ErrPINEntryCancelled):
		return http.StatusConflict
	case errors.Is(err, errs.ErrUserLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

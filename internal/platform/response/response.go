package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caribe-transfers/service-transfer/internal/platform/domain"
)

// ErrorBody is the error payload of the response envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// Envelope is the standard JSON response shape for non-quote endpoints.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta carries pagination metadata.
type Meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes 200 with a page of data.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total, Page: page, Limit: limit},
	})
}

// BadRequest writes 400 with a validation error.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Error: &ErrorBody{Code: string(domain.CodeValidation), Message: message},
	})
}

// Error maps err to an HTTP status. Errors that are not DomainErrors become 500
// without leaking their text.
func Error(c *gin.Context, err error) {
	de, ok := domain.AsDomainError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, Envelope{
			Error: &ErrorBody{Code: "INTERNAL_ERROR", Message: "internal server error"},
		})
		return
	}
	c.JSON(StatusFor(de.Code), Envelope{
		Error: &ErrorBody{Code: string(de.Code), Reason: de.Reason, Message: de.Message},
	})
}

// StatusFor returns the HTTP status for an error code.
func StatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

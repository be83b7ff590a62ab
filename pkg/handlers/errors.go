package handlers

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"

	"site-cms/pkg/apiclient"
	"site-cms/pkg/sections"
	"site-cms/pkg/services"
)

var errBadRequest = errors.New("bad request")

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

type requestError struct{ msg string }

func (e *requestError) Error() string       { return e.msg }
func (e *requestError) UserMessage() string { return e.msg }
func (e *requestError) Unwrap() error       { return errBadRequest }

// fail writes the JSON error for err. An unauthorized error also ends the
// session.
func (s *Server) fail(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var (
		fieldErrs validation.Errors
		schemaErr *sections.ValidationError
		apiErr    *apiclient.APIError
	)
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		s.unauthorized(c)
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrs})
	case errors.As(err, &schemaErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": schemaErr.Error(), "issues": schemaErr.Issues})
	case errors.Is(err, sections.ErrUnknownModuleType),
		errors.Is(err, sections.ErrInvalidContent),
		errors.Is(err, services.ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": apiclient.UserMessage(err, fallback)})
	case errors.Is(err, services.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": apiclient.UserMessage(err, "File is too large")})
	case errors.Is(err, apiclient.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": apiclient.UserMessage(err, "Not found")})
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		c.JSON(apiErr.StatusCode, gin.H{"error": apiclient.UserMessage(err, fallback)})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": apiclient.UserMessage(err, fallback)})
	}
}

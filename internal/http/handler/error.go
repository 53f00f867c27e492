package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ectdforge/internal/export"
	"ectdforge/internal/http/middleware"
	"ectdforge/internal/repository"
	"ectdforge/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeDomainError maps domain sentinel errors onto HTTP responses in one
// place. Unknown errors become an opaque 500.
func writeDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrSubmissionNotFound):
		return writeError(c, fiber.StatusNotFound, "SUBMISSION_NOT_FOUND", "submission not found")
	case errors.Is(err, repository.ErrDocumentNotFound):
		return writeError(c, fiber.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found")
	case errors.Is(err, repository.ErrDuplicateSequence):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_SEQUENCE", "sequence number already exists for application")
	case errors.Is(err, repository.ErrSubmissionExported):
		return writeError(c, fiber.StatusConflict, "SUBMISSION_EXPORTED", "submission is already exported")
	case errors.Is(err, repository.ErrInfrastructureUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "submission store unavailable")
	case errors.Is(err, export.ErrExportInProgress):
		return writeError(c, fiber.StatusConflict, "EXPORT_IN_PROGRESS", "an export is already running for this submission")
	case errors.Is(err, export.ErrTargetPathUnusable):
		return writeError(c, fiber.StatusBadRequest, "TARGET_UNUSABLE", "target directory cannot be used")
	case errors.Is(err, export.ErrValidationRequired):
		return writeError(c, fiber.StatusConflict, "VALIDATION_REQUIRED", "submission has unresolved validation errors")
	case errors.Is(err, service.ErrSourceNotFound):
		return writeError(c, fiber.StatusBadRequest, "SOURCE_NOT_FOUND", "source file not found")
	case errors.Is(err, service.ErrEmptyDocument):
		return writeError(c, fiber.StatusBadRequest, "EMPTY_DOCUMENT", "document content is empty")
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrApplicantRequired),
		errors.Is(err, service.ErrApplicationNumberRequired),
		errors.Is(err, service.ErrInvalidApplicationType),
		errors.Is(err, service.ErrInvalidContextOfUse),
		errors.Is(err, service.ErrNegativeSequence),
		errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}

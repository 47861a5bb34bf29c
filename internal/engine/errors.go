package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"shop-backend/internal/metadata"
)

var (
	ErrKindNotFound   = errors.New("kind not found")
	ErrRecordNotFound = errors.New("record not found")
)

// AppError is rendered as {"error": message, "code": code, "fields": {...}}.
type AppError struct {
	Code    string               `json:"code"`
	Status  int                  `json:"-"`
	Message string               `json:"error"`
	Fields  metadata.FieldErrors `json:"fields,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func KindNotFoundError(name string) *AppError {
	return &AppError{
		Code:    "KIND_NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("Unknown kind: %s", name),
	}
}

func RecordNotFoundError(kind, id string) *AppError {
	return &AppError{
		Code:    "RECORD_NOT_FOUND",
		Status:  404,
		Message: fmt.Sprintf("%s with id %s not found", kind, id),
	}
}

func ValidationError(fields metadata.FieldErrors) *AppError {
	return &AppError{
		Code:    "VALIDATION_FAILED",
		Status:  400,
		Message: "Validation failed",
		Fields:  fields,
	}
}

func AuthenticationFailedError(msg string) *AppError {
	return &AppError{Code: "AUTHENTICATION_FAILED", Status: 401, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

func TokenExpiredError(msg string) *AppError {
	return &AppError{Code: "TOKEN_EXPIRED", Status: 400, Message: msg}
}

func TokenInvalidError(msg string) *AppError {
	return &AppError{Code: "TOKEN_INVALID", Status: 400, Message: msg}
}

func InvalidPayloadError(msg string) *AppError {
	return &AppError{Code: "INVALID_PAYLOAD", Status: 400, Message: msg}
}

// toAppError maps service sentinels to their HTTP form. Unknown errors pass through.
func toAppError(err error, kind, id string) error {
	var fe metadata.FieldErrors
	switch {
	case errors.Is(err, ErrKindNotFound):
		return KindNotFoundError(kind)
	case errors.Is(err, ErrRecordNotFound):
		return RecordNotFoundError(kind, id)
	case errors.As(err, &fe):
		return ValidationError(fe)
	}
	return err
}

// ErrorHandler is the Fiber error handler of the whole app.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(appErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(&AppError{Code: "HTTP_ERROR", Message: fiberErr.Message})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(&AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
	})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crosslane/bridge_service/internal/domain/entities"
	domainerrors "github.com/crosslane/bridge_service/internal/domain/errors"
)

// Error codes for responses built directly by handlers. Domain errors
// carry their own codes.
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInvalidID      = "INVALID_ID"
	ErrCodeInvalidAmount  = "INVALID_AMOUNT"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// respondDomainError maps a domain error onto the HTTP status it deserves
// and emits the standard error payload.
func respondDomainError(c *gin.Context, err error) {
	status := statusForError(err)

	code := domainerrors.GetErrorCode(err)
	if code == "" {
		code = ErrCodeInternalError
	}

	message := err.Error()
	var domainErr *domainerrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		message = domainErr.Message
	}

	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: domainerrors.GetErrorDetails(err),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domainerrors.ErrBridgePaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, domainerrors.ErrDailyLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domainerrors.ErrChainNotSupported),
		errors.Is(err, domainerrors.ErrTransactionExpired),
		errors.Is(err, domainerrors.ErrInsufficientStake),
		errors.Is(err, domainerrors.ErrBondTooLow),
		errors.Is(err, domainerrors.ErrInvalidSignature),
		errors.Is(err, domainerrors.ErrInsufficientShare):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainerrors.ErrQuorumNotReached),
		errors.Is(err, domainerrors.ErrAlreadyExecuted),
		errors.Is(err, domainerrors.ErrTransactionCancelled),
		errors.Is(err, domainerrors.ErrChallengeActive),
		errors.Is(err, domainerrors.ErrChallengeResolved),
		errors.Is(err, domainerrors.ErrValidatorNotActive),
		errors.Is(err, domainerrors.ErrInsufficientLiquidity):
		return http.StatusConflict
	case domainerrors.IsNotFound(err):
		return http.StatusNotFound
	case domainerrors.IsAlreadyExists(err), domainerrors.IsConflict(err):
		return http.StatusConflict
	case domainerrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case domainerrors.IsUnauthorized(err):
		return http.StatusUnauthorized
	case domainerrors.IsForbidden(err):
		return http.StatusForbidden
	case domainerrors.IsServiceUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

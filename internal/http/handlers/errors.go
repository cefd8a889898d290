package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/speakup/internal/account"
	"github.com/geocoder89/speakup/internal/errutil"
	"github.com/geocoder89/speakup/internal/security"
)

var kindStatus = map[account.Kind]int{
	account.KindEmailAlreadyRegistered: http.StatusConflict,
	account.KindWeakPassword:           http.StatusBadRequest,
	account.KindInvalidCredentials:     http.StatusUnauthorized,
	account.KindAccountNotActivated:    http.StatusForbidden,
	account.KindUserNotFound:           http.StatusNotFound,
	account.KindTokenMismatch:          http.StatusBadRequest,
	account.KindTokenExpired:           http.StatusBadRequest,
	account.KindAlreadyActivated:       http.StatusConflict,
	account.KindInvalidToken:           http.StatusUnauthorized,
	account.KindPermissionDenied:       http.StatusForbidden,
	account.KindSelfDeleteForbidden:    http.StatusBadRequest,
	account.KindInvalidInput:           http.StatusBadRequest,
}

// StatusFor maps an account error kind onto its HTTP status.
func StatusFor(kind account.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondAccountError writes the response for an error returned by the
// account service. Faults are logged and answered with a generic message.
func RespondAccountError(ctx *gin.Context, log *slog.Logger, err error) {
	kind := account.KindOf(err)
	status := StatusFor(kind)

	if status == http.StatusInternalServerError {
		errutil.LogError(ctx.Request.Context(), log, "account operation failed", err,
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
		)
		RespondError(ctx, status, strings.ToLower(string(kind)), faultMessage(kind), nil)
		return
	}

	var details interface{}
	var violation *security.PolicyViolation
	if errors.As(err, &violation) {
		details = gin.H{"rules": violation.Rules}
	}

	message := err.Error()
	if kind == account.KindInvalidToken {
		ctx.Header("WWW-Authenticate", "Bearer")
		message = "Could not validate credentials"
	}

	RespondError(ctx, status, strings.ToLower(string(kind)), message, details)
}

func faultMessage(kind account.Kind) string {
	switch kind {
	case account.KindEmailDispatchFailure:
		return "Could not send email. Please try again later."
	case account.KindStorageFailure:
		return "Could not store the uploaded file."
	default:
		return "Internal server error"
	}
}

package account

import (
	"fmt"

	"github.com/samber/oops"
)

// Kind names an outcome of the account core. Every error returned by Service
// carries exactly one kind as its oops code.
type Kind string

const (
	KindEmailAlreadyRegistered Kind = "EMAIL_ALREADY_REGISTERED"
	KindWeakPassword           Kind = "WEAK_PASSWORD"
	KindInvalidCredentials     Kind = "INVALID_CREDENTIALS"
	KindAccountNotActivated    Kind = "ACCOUNT_NOT_ACTIVATED"
	KindUserNotFound           Kind = "USER_NOT_FOUND"
	KindTokenMismatch          Kind = "TOKEN_MISMATCH"
	KindTokenExpired           Kind = "TOKEN_EXPIRED"
	KindAlreadyActivated       Kind = "ALREADY_ACTIVATED"
	KindInvalidToken           Kind = "INVALID_TOKEN"
	KindPermissionDenied       Kind = "PERMISSION_DENIED"
	KindSelfDeleteForbidden    Kind = "SELF_DELETE_FORBIDDEN"
	KindHashingFailure         Kind = "HASHING_FAILURE"
	KindEmailDispatchFailure   Kind = "EMAIL_DISPATCH_FAILURE"

	KindInvalidInput   Kind = "INVALID_INPUT"
	KindStorageFailure Kind = "STORAGE_FAILURE"
	KindInternal       Kind = "INTERNAL"
)

// IsFault reports whether the kind is an infrastructure fault rather than an
// expected outcome the caller can act on.
func (k Kind) IsFault() bool {
	switch k {
	case KindHashingFailure, KindEmailDispatchFailure, KindStorageFailure, KindInternal:
		return true
	}
	return false
}

// KindOf extracts the kind from err. Errors that did not come from this
// package are reported as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	code := fmt.Sprint(oopsErr.Code())
	if code == "" || code == "<nil>" {
		return KindInternal
	}
	return Kind(code)
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func fail(kind Kind, format string, args ...any) error {
	return oops.Code(string(kind)).Errorf(format, args...)
}

func fault(kind Kind, operation string, err error) error {
	return oops.Code(string(kind)).
		With("operation", operation).
		Wrap(err)
}

// reject wraps a validation error, keeping its message for the caller.
func reject(kind Kind, err error) error {
	return oops.Code(string(kind)).Wrap(err)
}

package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CommunityErrorSignatureInvalid = "COMMUNITY_SIGNATURE_INVALID"
	CommunityErrorBadInput         = "COMMUNITY_BAD_INPUT"
	CommunityErrorEventUnhandled   = "COMMUNITY_EVENT_UNHANDLED"
	CommunityErrorNotFound         = "COMMUNITY_NOT_FOUND"
	CommunityErrorStoreFailed      = "COMMUNITY_STORE_FAILED"
	CommunityErrorInternal         = "COMMUNITY_INTERNAL_ERROR"
)

// MapError converts any error into a go-errors envelope carrying an HTTP
// code and one of the COMMUNITY_* text codes.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureCommunityErrorEnvelope(richErr)
	}
	if goerrors.Is(err, ErrCommunityNotFound) {
		return ensureCommunityErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryNotFound, err.Error()).
				WithTextCode(CommunityErrorNotFound),
		)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return NewCommunityError(err.Error(), goerrors.CategoryAuth, CommunityErrorSignatureInvalid)
	case strings.Contains(msg, "not found"):
		return NewCommunityError(err.Error(), goerrors.CategoryNotFound, CommunityErrorNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return NewCommunityError(err.Error(), goerrors.CategoryBadInput, CommunityErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	if mapped != nil && mapped.TextCode == "INTERNAL_ERROR" {
		mapped.TextCode = CommunityErrorInternal
	}
	return ensureCommunityErrorEnvelope(mapped)
}

func NewCommunityError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureCommunityErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

// WrapStoreError marks err as a failed store mutation while keeping the
// original error reachable through errors.Is.
func WrapStoreError(err error, operation string) *goerrors.Error {
	if err == nil {
		return nil
	}
	return ensureCommunityErrorEnvelope(
		goerrors.Wrap(err, goerrors.CategoryOperation, "core: "+operation+" failed").
			WithCode(http.StatusInternalServerError).
			WithTextCode(CommunityErrorStoreFailed),
	)
}

func ensureCommunityErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = HTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultCommunityTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultCommunityTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CommunityErrorBadInput
	case goerrors.CategoryNotFound:
		return CommunityErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return CommunityErrorSignatureInvalid
	case goerrors.CategoryOperation, goerrors.CategoryExternal:
		return CommunityErrorStoreFailed
	default:
		return CommunityErrorInternal
	}
}

// HTTPStatus reports the status used for a category at the read API.
// Webhook deliveries use their own fixed status table.
func HTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusBadRequest
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrCommunityNotFound) {
		return true
	}
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryNotFound
}

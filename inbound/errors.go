package inbound

import (
	"net/http"

	"github.com/goliatone/go-communities/core"
	goerrors "github.com/goliatone/go-errors"
)

const (
	MessagePayloadTooLarge  = "Payload too large"
	MessageMethodNotAllowed = "Method not allowed"
	MessageNotFound         = "Not found"
	MessageInternalError    = "Internal Server Error"
	MessageInvalidData      = "Invalid data"
)

func inboundError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func inboundWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := inboundError(message, category, code, textCode, metadata)
	err.Source = source
	return err
}

func inboundBadInput(message string, metadata map[string]any) *goerrors.Error {
	return inboundError(
		message,
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		core.CommunityErrorBadInput,
		metadata,
	)
}

func inboundInternal(source error, metadata map[string]any) *goerrors.Error {
	return inboundWrapError(
		source,
		goerrors.CategoryInternal,
		"inbound: request failed",
		http.StatusInternalServerError,
		core.CommunityErrorInternal,
		metadata,
	)
}

// statusFor maps an error to the read API status. Internal failures never
// leak their message.
func statusFor(err error) (int, string) {
	mapped := core.MapError(err)
	if mapped == nil {
		return http.StatusOK, ""
	}
	code := mapped.Code
	if code == 0 {
		code = core.HTTPStatus(mapped.Category)
	}
	if code >= http.StatusInternalServerError {
		return code, MessageInternalError
	}
	if mapped.Category == goerrors.CategoryNotFound {
		return code, MessageNotFound
	}
	return code, mapped.Message
}

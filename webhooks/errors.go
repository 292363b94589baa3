package webhooks

import (
	"net/http"

	"github.com/goliatone/go-communities/core"
	goerrors "github.com/goliatone/go-errors"
)

// Response messages written back to the identity provider.
const (
	MessageInvalidSignature    = "Invalid webhook signature"
	MessageInvalidData         = "Invalid data"
	MessageEventNotHandled     = "Event type not handled"
	MessageInternalServerError = "Internal Server Error"

	MessageOrganizationCreated = "Organization created"
	MessageInvitationCreated   = "Invitation created"
	MessageMembershipCreated   = "Membership created"
	MessageMembershipDeleted   = "Membership deleted"
	MessageOrganizationUpdated = "Organization updated"
	MessageOrganizationDeleted = "Organization deleted"
)

// webhookWrapError builds a fresh envelope around source. goerrors.Wrap
// would clone an existing envelope and keep its category, which hides the
// stage that failed.
func webhookWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	err.Source = source
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func signatureError(source error, metadata map[string]any) *goerrors.Error {
	return webhookWrapError(
		source,
		goerrors.CategoryAuth,
		MessageInvalidSignature,
		http.StatusBadRequest,
		core.CommunityErrorSignatureInvalid,
		metadata,
	)
}

func invalidDataError(source error, metadata map[string]any) *goerrors.Error {
	return webhookWrapError(
		source,
		goerrors.CategoryBadInput,
		MessageInvalidData,
		http.StatusBadRequest,
		core.CommunityErrorBadInput,
		metadata,
	)
}

// validationError keeps ozzo field errors on the envelope so logs name the
// missing fields.
func validationError(source error, metadata map[string]any) *goerrors.Error {
	err := goerrors.FromOzzoValidation(source, MessageInvalidData).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.CommunityErrorBadInput)
	if err.Source == nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func unhandledEventError(source error, metadata map[string]any) *goerrors.Error {
	return webhookWrapError(
		source,
		goerrors.CategoryBadInput,
		MessageEventNotHandled,
		http.StatusBadRequest,
		core.CommunityErrorEventUnhandled,
		metadata,
	)
}

func storeFailureError(source error, metadata map[string]any) *goerrors.Error {
	textCode := core.CommunityErrorStoreFailed
	if core.IsNotFound(source) {
		textCode = core.CommunityErrorNotFound
	}
	return webhookWrapError(
		source,
		goerrors.CategoryOperation,
		MessageInternalServerError,
		http.StatusInternalServerError,
		textCode,
		metadata,
	)
}

func internalError(source error, metadata map[string]any) *goerrors.Error {
	return webhookWrapError(
		source,
		goerrors.CategoryInternal,
		MessageInternalServerError,
		http.StatusInternalServerError,
		core.CommunityErrorInternal,
		metadata,
	)
}

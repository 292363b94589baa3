package webhooks

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate rejects empty strings only. Whitespace-only values are kept as sent.

func (e OrganizationCreated) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Slug, validation.Required),
		validation.Field(&e.CreatedBy, validation.Required),
	)
}

// Validate accepts any invitation; invitations are only logged.
func (InvitationCreated) Validate() error { return nil }

func (r OrganizationRef) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required),
	)
}

func (d PublicUserData) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.UserID, validation.Required),
	)
}

func (m Membership) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Organization),
		validation.Field(&m.PublicUserData),
	)
}

func (e OrganizationUpdated) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Slug, validation.Required),
	)
}

func (e OrganizationDeleted) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
	)
}

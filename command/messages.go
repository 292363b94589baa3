package command

import (

	"github.com/goliatone/go-communities/core"
)

const (
	TypeCreateCommunity = "communities.command.community.create"
	TypeUpdateCommunity = "communities.command.community.update"
	TypeDeleteCommunity = "communities.command.community.delete"
	TypeAddMember       = "communities.command.member.add"
	TypeRemoveMember    = "communities.command.member.remove"
)

type CreateCommunityMessage struct {
	Input core.CreateCommunityInput
}

func (CreateCommunityMessage) Type() string { return TypeCreateCommunity }

func (m CreateCommunityMessage) Validate() error {
	return requireFields(
		field{"id", m.Input.ID},
		field{"name", m.Input.Name},
		field{"slug", m.Input.Slug},
		field{"created_by", m.Input.CreatedBy},
	)
}

type UpdateCommunityMessage struct {
	Input core.UpdateCommunityInput
}

func (UpdateCommunityMessage) Type() string { return TypeUpdateCommunity }

func (m UpdateCommunityMessage) Validate() error {
	return requireFields(
		field{"id", m.Input.ID},
		field{"name", m.Input.Name},
		field{"slug", m.Input.Slug},
	)
}

type DeleteCommunityMessage struct {
	CommunityID string
}

func (DeleteCommunityMessage) Type() string { return TypeDeleteCommunity }

func (m DeleteCommunityMessage) Validate() error {
	return requireFields(field{"community_id", m.CommunityID})
}

type AddMemberMessage struct {
	Input core.MembershipInput
}

func (AddMemberMessage) Type() string { return TypeAddMember }

func (m AddMemberMessage) Validate() error {
	return validateMembership(m.Input)
}

type RemoveMemberMessage struct {
	Input core.MembershipInput
}

func (RemoveMemberMessage) Type() string { return TypeRemoveMember }

func (m RemoveMemberMessage) Validate() error {
	return validateMembership(m.Input)
}

type field struct {
	name  string
	value string
}

// requireFields reports the first blank field.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return commandValidationError(f.name, "is required")
		}
	}
	return nil
}

func validateMembership(in core.MembershipInput) error {
	return requireFields(
		field{"community_id", in.CommunityID},
		field{"user_id", in.UserID},
	)
}

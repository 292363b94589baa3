package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateCommunityMessage] = (*CreateCommunityCommand)(nil)
	_ gocmd.Commander[UpdateCommunityMessage] = (*UpdateCommunityCommand)(nil)
	_ gocmd.Commander[DeleteCommunityMessage] = (*DeleteCommunityCommand)(nil)
	_ gocmd.Commander[AddMemberMessage]       = (*AddMemberCommand)(nil)
	_ gocmd.Commander[RemoveMemberMessage]    = (*RemoveMemberCommand)(nil)

	_ gocmd.Message = CreateCommunityMessage{}
	_ gocmd.Message = UpdateCommunityMessage{}
	_ gocmd.Message = DeleteCommunityMessage{}
	_ gocmd.Message = AddMemberMessage{}
	_ gocmd.Message = RemoveMemberMessage{}
)

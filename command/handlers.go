package command

import (
	"context"

	"github.com/goliatone/go-communities/core"
	gocmd "github.com/goliatone/go-command"
)

// SourceCommand tags store calls made through the command bus.
const SourceCommand = "command"

type CreateCommunityCommand struct {
	store      core.CommunityStore
	defaultBio string
}

func NewCreateCommunityCommand(store core.CommunityStore) *CreateCommunityCommand {
	return &CreateCommunityCommand{store: store, defaultBio: core.DefaultCommunityBio}
}

// WithDefaultBio sets the bio used when the message leaves it blank.
func (c *CreateCommunityCommand) WithDefaultBio(bio string) *CreateCommunityCommand {
	if c != nil {
		c.defaultBio = bio
	}
	return c
}

func (c *CreateCommunityCommand) Execute(ctx context.Context, msg CreateCommunityMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: create community store is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	in := msg.Input
	if in.Bio == "" {
		in.Bio = c.defaultBio
	}
	out, err := c.store.CreateCommunity(withCommandSource(ctx), in)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateCommunityCommand struct {
	store core.CommunityStore
}

func NewUpdateCommunityCommand(store core.CommunityStore) *UpdateCommunityCommand {
	return &UpdateCommunityCommand{store: store}
}

func (c *UpdateCommunityCommand) Execute(ctx context.Context, msg UpdateCommunityMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: update community store is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.store.UpdateCommunity(withCommandSource(ctx), msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteCommunityCommand struct {
	store core.CommunityStore
}

func NewDeleteCommunityCommand(store core.CommunityStore) *DeleteCommunityCommand {
	return &DeleteCommunityCommand{store: store}
}

func (c *DeleteCommunityCommand) Execute(ctx context.Context, msg DeleteCommunityMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: delete community store is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.store.DeleteCommunity(withCommandSource(ctx), msg.CommunityID)
}

type AddMemberCommand struct {
	store core.CommunityStore
}

func NewAddMemberCommand(store core.CommunityStore) *AddMemberCommand {
	return &AddMemberCommand{store: store}
}

func (c *AddMemberCommand) Execute(ctx context.Context, msg AddMemberMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: add member store is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.store.AddMember(withCommandSource(ctx), msg.Input)
}

type RemoveMemberCommand struct {
	store core.CommunityStore
}

func NewRemoveMemberCommand(store core.CommunityStore) *RemoveMemberCommand {
	return &RemoveMemberCommand{store: store}
}

func (c *RemoveMemberCommand) Execute(ctx context.Context, msg RemoveMemberMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: remove member store is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.store.RemoveMember(withCommandSource(ctx), msg.Input)
}

func withCommandSource(ctx context.Context) context.Context {
	if core.SourceFromContext(ctx) != "" {
		return ctx
	}
	return core.ContextWithSource(ctx, SourceCommand)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}

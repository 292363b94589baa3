package communities

import (
	"fmt"
	"strings"

	communitycommand "github.com/goliatone/go-communities/command"
)

type Commands struct {
	CreateCommunity *communitycommand.CreateCommunityCommand
	UpdateCommunity *communitycommand.UpdateCommunityCommand
	DeleteCommunity *communitycommand.DeleteCommunityCommand
	AddMember       *communitycommand.AddMemberCommand
	RemoveMember    *communitycommand.RemoveMemberCommand
}

// Facade exposes the community mutations as go-command handlers bound to
// one store.
type Facade struct {
	store    CommunityStore
	reader   CommunityReader
	commands Commands
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	defaultBio string
	reader     CommunityReader
}

func WithFacadeDefaultBio(bio string) FacadeOption {
	return func(options *facadeOptions) {
		options.defaultBio = bio
	}
}

func WithFacadeReader(reader CommunityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.reader = reader
	}
}

func NewFacade(store CommunityStore, opts ...FacadeOption) (*Facade, error) {
	if store == nil {
		return nil, fmt.Errorf("communities: community store is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.reader
	if reader == nil {
		reader, _ = store.(CommunityReader)
	}

	create := communitycommand.NewCreateCommunityCommand(store)
	if strings.TrimSpace(cfg.defaultBio) != "" {
		create = create.WithDefaultBio(cfg.defaultBio)
	}
	return &Facade{
		store:  store,
		reader: reader,
		commands: Commands{
			CreateCommunity: create,
			UpdateCommunity: communitycommand.NewUpdateCommunityCommand(store),
			DeleteCommunity: communitycommand.NewDeleteCommunityCommand(store),
			AddMember:       communitycommand.NewAddMemberCommand(store),
			RemoveMember:    communitycommand.NewRemoveMemberCommand(store),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Store() CommunityStore {
	if f == nil {
		return nil
	}
	return f.store
}

// Reader is nil when neither an explicit reader nor a readable store was
// supplied.
func (f *Facade) Reader() CommunityReader {
	if f == nil {
		return nil
	}
	return f.reader
}

package communities

import (
	"context"
	"testing"

	communitycommand "github.com/goliatone/go-communities/command"
)

func TestNewFacade_WiresCommands(t *testing.T) {
	store := NewMemoryCommunityStore()
	facade, err := NewFacade(store)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.CreateCommunity == nil || commands.UpdateCommunity == nil || commands.DeleteCommunity == nil ||
		commands.AddMember == nil || commands.RemoveMember == nil {
		t.Fatalf("expected every command to be wired: %+v", commands)
	}
	if facade.Reader() == nil {
		t.Fatalf("expected memory store to double as reader")
	}
	if facade.Store() != store {
		t.Fatalf("expected facade to keep the store")
	}
}

func TestFacade_CommandsDelegateToStore(t *testing.T) {
	ctx := context.Background()
	facade, err := NewFacade(NewMemoryCommunityStore(), WithFacadeDefaultBio("custom bio"))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	if err := facade.Commands().CreateCommunity.Execute(ctx, communitycommand.CreateCommunityMessage{
		Input: CreateCommunityInput{ID: "org_1", Name: "Acme", Slug: "acme", CreatedBy: "user_1"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := facade.Commands().AddMember.Execute(ctx, communitycommand.AddMemberMessage{
		Input: MembershipInput{CommunityID: "org_1", UserID: "user_2"},
	}); err != nil {
		t.Fatalf("add member: %v", err)
	}

	community, err := facade.Reader().GetCommunity(ctx, "org_1")
	if err != nil {
		t.Fatalf("get community: %v", err)
	}
	if community.Bio != "custom bio" {
		t.Fatalf("expected facade default bio, got %q", community.Bio)
	}
	members, err := facade.Reader().ListMembers(ctx, "org_1")
	if err != nil || len(members) != 1 || members[0].UserID != "user_2" {
		t.Fatalf("unexpected members %+v (%v)", members, err)
	}

	if err := facade.Commands().DeleteCommunity.Execute(ctx, communitycommand.DeleteCommunityMessage{CommunityID: "org_1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := facade.Reader().GetCommunity(ctx, "org_1"); err == nil {
		t.Fatalf("expected deleted community to be gone")
	}
}

func TestNewFacade_RequiresStore(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected nil store to fail")
	}
	var facade *Facade
	if facade.Store() != nil || facade.Reader() != nil {
		t.Fatalf("expected nil facade accessors to be nil")
	}
}

package gocommand

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command"
	communitycommand "github.com/goliatone/go-communities/command"
	"github.com/goliatone/go-communities/core"
)

type okMessage struct{}

func (okMessage) Type() string { return "communities.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "communities.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "communities.command.test" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestRegisterCommunityCommands_DispatchesToStore(t *testing.T) {
	ctx := context.Background()
	store := core.NewMemoryCommunityStore()
	adapter := NewRegistryAdapter(nil)

	subs, err := RegisterCommunityCommands(adapter, store)
	if err != nil {
		t.Fatalf("register community commands: %v", err)
	}
	defer subs.Unsubscribe()
	if len(subs) != 5 {
		t.Fatalf("expected 5 subscriptions, got %d", len(subs))
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(ctx, communitycommand.CreateCommunityMessage{Input: core.CreateCommunityInput{
		ID: "org_1", Name: "Acme", Slug: "acme", CreatedBy: "user_1",
	}}); err != nil {
		t.Fatalf("dispatch create: %v", err)
	}
	if err := Dispatch(ctx, communitycommand.AddMemberMessage{Input: core.MembershipInput{
		CommunityID: "org_1", UserID: "user_2",
	}}); err != nil {
		t.Fatalf("dispatch add member: %v", err)
	}

	members, err := store.ListMembers(ctx, "org_1")
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].UserID != "user_2" {
		t.Fatalf("unexpected members %+v", members)
	}

	if err := Dispatch(ctx, communitycommand.DeleteCommunityMessage{CommunityID: "org_1"}); err != nil {
		t.Fatalf("dispatch delete: %v", err)
	}
	if _, err := store.GetCommunity(ctx, "org_1"); !errors.Is(err, core.ErrCommunityNotFound) {
		t.Fatalf("expected community to be deleted, got %v", err)
	}
}

func TestRegisterCommunityCommands_RequiresStore(t *testing.T) {
	if _, err := RegisterCommunityCommands(NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected nil store to fail")
	}
	var adapter *RegistryAdapter
	if _, err := RegisterCommunityCommands(adapter, core.NewMemoryCommunityStore()); err == nil {
		t.Fatalf("expected nil adapter to fail")
	}
}

type funcMessage struct{}

func (funcMessage) Type() string { return "communities.test.func" }

func TestSubscribeCommand_AcceptsCommandFunc(t *testing.T) {
	calls := 0
	sub := SubscribeCommand[funcMessage](command.CommandFunc[funcMessage](func(context.Context, funcMessage) error {
		calls++
		return nil
	}))
	if err := Dispatch(context.Background(), funcMessage{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	Subscriptions{sub}.Unsubscribe()
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

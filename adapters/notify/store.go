package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-communities/core"
	glog "github.com/goliatone/go-logger/glog"
)

type MemberChange struct {
	CommunityID string `json:"community_id"`
	UserID      string `json:"user_id"`
}

type CommunityDeleted struct {
	CommunityID string `json:"community_id"`
}

// NotifyingStore publishes a change notification after each successful
// mutation of the wrapped store. Publish failures are logged and never fail
// the mutation.
//
// When the wrapped store is a core.CommunityReader, a create of an existing
// community and a delete of a missing one publish nothing. Without a reader,
// or when that lookup fails, those notices are at least once. Member notices
// are always published.
type NotifyingStore struct {
	base      core.CommunityStore
	publisher Publisher
	logger    core.Logger
	now       func() time.Time
}

type Option func(*NotifyingStore)

func WithLogger(logger core.Logger) Option {
	return func(s *NotifyingStore) {
		s.logger = glog.Ensure(logger)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *NotifyingStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewNotifyingStore(base core.CommunityStore, publisher Publisher, opts ...Option) (*NotifyingStore, error) {
	if base == nil {
		return nil, fmt.Errorf("notify: base store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("notify: publisher is required")
	}
	store := &NotifyingStore{
		base:      base,
		publisher: publisher,
		logger:    glog.Nop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *NotifyingStore) CreateCommunity(ctx context.Context, in core.CreateCommunityInput) (core.Community, error) {
	checked, existed := s.communityExists(ctx, in.ID)
	community, err := s.base.CreateCommunity(ctx, in)
	if err != nil {
		return core.Community{}, err
	}
	if checked && existed {
		return community, nil
	}
	s.publish(ctx, ActionCommunityCreated, community)
	return community, nil
}

func (s *NotifyingStore) AddMember(ctx context.Context, in core.MembershipInput) error {
	if err := s.base.AddMember(ctx, in); err != nil {
		return err
	}
	s.publish(ctx, ActionMemberAdded, MemberChange{CommunityID: in.CommunityID, UserID: in.UserID})
	return nil
}

func (s *NotifyingStore) RemoveMember(ctx context.Context, in core.MembershipInput) error {
	if err := s.base.RemoveMember(ctx, in); err != nil {
		return err
	}
	s.publish(ctx, ActionMemberRemoved, MemberChange{CommunityID: in.CommunityID, UserID: in.UserID})
	return nil
}

func (s *NotifyingStore) UpdateCommunity(ctx context.Context, in core.UpdateCommunityInput) (core.Community, error) {
	community, err := s.base.UpdateCommunity(ctx, in)
	if err != nil {
		return core.Community{}, err
	}
	s.publish(ctx, ActionCommunityUpdated, community)
	return community, nil
}

func (s *NotifyingStore) DeleteCommunity(ctx context.Context, id string) error {
	checked, existed := s.communityExists(ctx, id)
	if err := s.base.DeleteCommunity(ctx, id); err != nil {
		return err
	}
	if checked && !existed {
		return nil
	}
	s.publish(ctx, ActionCommunityDeleted, CommunityDeleted{CommunityID: id})
	return nil
}

// GetCommunity and ListMembers pass through when the base store can read.
func (s *NotifyingStore) GetCommunity(ctx context.Context, id string) (core.Community, error) {
	reader, ok := s.base.(core.CommunityReader)
	if !ok {
		return core.Community{}, fmt.Errorf("notify: base store %T cannot read", s.base)
	}
	return reader.GetCommunity(ctx, id)
}

func (s *NotifyingStore) ListMembers(ctx context.Context, communityID string) ([]core.Member, error) {
	reader, ok := s.base.(core.CommunityReader)
	if !ok {
		return nil, fmt.Errorf("notify: base store %T cannot read", s.base)
	}
	return reader.ListMembers(ctx, communityID)
}

// communityExists reports whether the lookup ran and, if so, whether id was
// stored.
func (s *NotifyingStore) communityExists(ctx context.Context, id string) (checked bool, existed bool) {
	reader, ok := s.base.(core.CommunityReader)
	if !ok {
		return false, false
	}
	_, err := reader.GetCommunity(ctx, id)
	switch {
	case err == nil:
		return true, true
	case errors.Is(err, core.ErrCommunityNotFound):
		return true, false
	default:
		return false, false
	}
}

func (s *NotifyingStore) publish(ctx context.Context, action string, data any) {
	env := newEnvelope(action, data, s.now(), core.SourceFromContext(ctx))
	if err := s.publisher.Publish(ctx, env); err != nil {
		core.LogWithFields(ctx, s.logger, "warn", "change notification not published", map[string]any{
			"action":      action,
			"envelope_id": env.Meta.ID,
			"error":       err.Error(),
		})
	}
}

var (
	_ core.CommunityStore  = (*NotifyingStore)(nil)
	_ core.CommunityReader = (*NotifyingStore)(nil)
)

package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryCommunityStore keeps communities and memberships in process memory.
// It honours the same idempotency rules as the SQL store.
type MemoryCommunityStore struct {
	mu          sync.RWMutex
	communities map[string]Community
	members     map[string]map[string]Member
	Now         func() time.Time
}

func NewMemoryCommunityStore() *MemoryCommunityStore {
	return &MemoryCommunityStore{
		communities: map[string]Community{},
		members:     map[string]map[string]Member{},
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryCommunityStore) CreateCommunity(_ context.Context, in CreateCommunityInput) (Community, error) {
	if s == nil {
		return Community{}, fmt.Errorf("core: memory community store is nil")
	}
	id := in.ID
	if id == "" {
		return Community{}, fmt.Errorf("core: community id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureMaps()
	if existing, ok := s.communities[id]; ok {
		return existing, nil
	}
	now := s.now()
	community := Community{
		ID:        id,
		Name:      in.Name,
		Slug:      in.Slug,
		Image:     in.Image,
		Bio:       in.Bio,
		CreatedBy: in.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.communities[id] = community
	return community, nil
}

func (s *MemoryCommunityStore) AddMember(_ context.Context, in MembershipInput) error {
	if s == nil {
		return fmt.Errorf("core: memory community store is nil")
	}
	communityID := in.CommunityID
	userID := in.UserID

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureMaps()
	if _, ok := s.communities[communityID]; !ok {
		return ErrCommunityNotFound
	}
	members := s.members[communityID]
	if members == nil {
		members = map[string]Member{}
		s.members[communityID] = members
	}
	if _, ok := members[userID]; ok {
		return nil
	}
	members[userID] = Member{CommunityID: communityID, UserID: userID, CreatedAt: s.now()}
	return nil
}

func (s *MemoryCommunityStore) RemoveMember(_ context.Context, in MembershipInput) error {
	if s == nil {
		return fmt.Errorf("core: memory community store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if members := s.members[in.CommunityID]; members != nil {
		delete(members, in.UserID)
	}
	return nil
}

func (s *MemoryCommunityStore) UpdateCommunity(_ context.Context, in UpdateCommunityInput) (Community, error) {
	if s == nil {
		return Community{}, fmt.Errorf("core: memory community store is nil")
	}
	id := in.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	community, ok := s.communities[id]
	if !ok {
		return Community{}, ErrCommunityNotFound
	}
	community.Name = in.Name
	community.Slug = in.Slug
	community.Image = in.Image
	community.UpdatedAt = s.now()
	s.communities[id] = community
	return community, nil
}

func (s *MemoryCommunityStore) DeleteCommunity(_ context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("core: memory community store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.communities, id)
	delete(s.members, id)
	return nil
}

func (s *MemoryCommunityStore) GetCommunity(_ context.Context, id string) (Community, error) {
	if s == nil {
		return Community{}, fmt.Errorf("core: memory community store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	community, ok := s.communities[id]
	if !ok {
		return Community{}, ErrCommunityNotFound
	}
	return community, nil
}

// ListMembers returns members ordered by user id.
func (s *MemoryCommunityStore) ListMembers(_ context.Context, communityID string) ([]Member, error) {
	if s == nil {
		return nil, fmt.Errorf("core: memory community store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.communities[communityID]; !ok {
		return nil, ErrCommunityNotFound
	}
	members := make([]Member, 0, len(s.members[communityID]))
	for _, member := range s.members[communityID] {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

func (s *MemoryCommunityStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *MemoryCommunityStore) ensureMaps() {
	if s.communities == nil {
		s.communities = map[string]Community{}
	}
	if s.members == nil {
		s.members = map[string]map[string]Member{}
	}
}

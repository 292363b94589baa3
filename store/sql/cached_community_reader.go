package sqlstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goliatone/go-communities/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const (
	communityCacheKeyPrefix = "go-communities::community::v1"
	membersCacheKeyPrefix   = "go-communities::members::v1"
)

// CommunityRepository is a store that can also serve reads.
type CommunityRepository interface {
	core.CommunityStore
	core.CommunityReader
}

// CachedCommunityReader serves GetCommunity and ListMembers through a cache
// and forwards mutations to the base store, evicting the keys each mutation
// touches once the base store has committed. Errors are never cached.
type CachedCommunityReader struct {
	base  CommunityRepository
	cache repositorycache.CacheService
}

func NewCachedCommunityReader(
	base CommunityRepository,
	cacheService repositorycache.CacheService,
) (*CachedCommunityReader, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base community repository is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: community cache service is required")
	}
	return &CachedCommunityReader{base: base, cache: cacheService}, nil
}

// CommunityCacheKey returns go-communities::community::v1::<id> with the id
// URL-path escaped.
func CommunityCacheKey(id string) string {
	return communityCacheKeyPrefix + "::" + url.PathEscape(id)
}

func MembersCacheKey(communityID string) string {
	return membersCacheKeyPrefix + "::" + url.PathEscape(communityID)
}

func (s *CachedCommunityReader) GetCommunity(ctx context.Context, id string) (core.Community, error) {
	if err := s.ready(); err != nil {
		return core.Community{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, CommunityCacheKey(id), func(ctx context.Context) (core.Community, error) {
		return s.base.GetCommunity(ctx, id)
	})
}

func (s *CachedCommunityReader) ListMembers(ctx context.Context, communityID string) ([]core.Member, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	members, err := repositorycache.GetOrFetch(ctx, s.cache, MembersCacheKey(communityID), func(ctx context.Context) ([]core.Member, error) {
		fetched, fetchErr := s.base.ListMembers(ctx, communityID)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return cloneMembers(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneMembers(members), nil
}

func (s *CachedCommunityReader) CreateCommunity(ctx context.Context, in core.CreateCommunityInput) (core.Community, error) {
	if err := s.ready(); err != nil {
		return core.Community{}, err
	}
	community, err := s.base.CreateCommunity(ctx, in)
	if err != nil {
		return core.Community{}, err
	}
	return community, s.evict(ctx, CommunityCacheKey(in.ID), MembersCacheKey(in.ID))
}

func (s *CachedCommunityReader) AddMember(ctx context.Context, in core.MembershipInput) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.base.AddMember(ctx, in); err != nil {
		return err
	}
	return s.evict(ctx, MembersCacheKey(in.CommunityID))
}

func (s *CachedCommunityReader) RemoveMember(ctx context.Context, in core.MembershipInput) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.base.RemoveMember(ctx, in); err != nil {
		return err
	}
	return s.evict(ctx, MembersCacheKey(in.CommunityID))
}

func (s *CachedCommunityReader) UpdateCommunity(ctx context.Context, in core.UpdateCommunityInput) (core.Community, error) {
	if err := s.ready(); err != nil {
		return core.Community{}, err
	}
	community, err := s.base.UpdateCommunity(ctx, in)
	if err != nil {
		return core.Community{}, err
	}
	return community, s.evict(ctx, CommunityCacheKey(in.ID))
}

func (s *CachedCommunityReader) DeleteCommunity(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.base.DeleteCommunity(ctx, id); err != nil {
		return err
	}
	return s.evict(ctx, CommunityCacheKey(id), MembersCacheKey(id))
}

func (s *CachedCommunityReader) ready() error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached community reader is not configured")
	}
	return nil
}

func (s *CachedCommunityReader) evict(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func cloneMembers(members []core.Member) []core.Member {
	if members == nil {
		return nil
	}
	out := make([]core.Member, len(members))
	copy(out, members)
	return out
}

package sqlstore

import "github.com/goliatone/go-communities/core"

var (
	_ core.CommunityStore         = (*CommunityStore)(nil)
	_ core.CommunityReader        = (*CommunityStore)(nil)
	_ CommunityRepository         = (*CachedCommunityReader)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)

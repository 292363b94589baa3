package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Service is the instrumented community store. Every mutation and read
// goes through observeOperation so it is logged and counted once.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	store             CommunityStore
	reader            CommunityReader
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Store             CommunityStore
	Reader            CommunityReader
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("communities", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("communities"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = MapError
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.store == nil || builder.reader == nil) && builder.repositoryFactory != nil {
		var stores StoreProvider
		switch factory := builder.repositoryFactory.(type) {
		case RepositoryStoreFactory:
			built, buildErr := factory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			stores = built
		case StoreProvider:
			stores = factory
		}
		if stores != nil {
			if builder.store == nil {
				builder.store = stores.CommunityStore()
			}
			if builder.reader == nil {
				builder.reader = stores.CommunityReader()
			}
		}
	}
	if builder.store == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: community store is required"))
	}
	if builder.reader == nil {
		if reader, ok := builder.store.(CommunityReader); ok {
			builder.reader = reader
		}
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		store:             builder.store,
		reader:            builder.reader,
		now:               builder.now,
	}, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Store:             s.store,
		Reader:            s.reader,
	}
}

func (s *Service) CreateCommunity(ctx context.Context, in CreateCommunityInput) (community Community, err error) {
	if s == nil || s.store == nil {
		return Community{}, MapError(fmt.Errorf("core: community store is required"))
	}
	startedAt := s.clock()
	fields := withSource(ctx, map[string]any{
		"community_id": in.ID,
		"slug":         in.Slug,
		"created_by":   in.CreatedBy,
	})
	defer func() {
		s.observeOperation(ctx, startedAt, "create_community", err, fields)
	}()

	if in.ID == "" {
		err = s.mapError(fmt.Errorf("core: community id is required"))
		return Community{}, err
	}
	community, err = s.store.CreateCommunity(ctx, in)
	if err != nil {
		err = s.storeError(err, "create community")
		return Community{}, err
	}
	return community, nil
}

func (s *Service) AddMember(ctx context.Context, in MembershipInput) (err error) {
	if s == nil || s.store == nil {
		return MapError(fmt.Errorf("core: community store is required"))
	}
	startedAt := s.clock()
	fields := withSource(ctx, map[string]any{
		"community_id": in.CommunityID,
		"user_id":      in.UserID,
	})
	defer func() {
		s.observeOperation(ctx, startedAt, "add_member", err, fields)
	}()

	if err = validateMembership(in); err != nil {
		err = s.mapError(err)
		return err
	}
	if err = s.store.AddMember(ctx, in); err != nil {
		err = s.storeError(err, "add member")
		return err
	}
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, in MembershipInput) (err error) {
	if s == nil || s.store == nil {
		return MapError(fmt.Errorf("core: community store is required"))
	}
	startedAt := s.clock()
	fields := withSource(ctx, map[string]any{
		"community_id": in.CommunityID,
		"user_id":      in.UserID,
	})
	defer func() {
		s.observeOperation(ctx, startedAt, "remove_member", err, fields)
	}()

	if err = validateMembership(in); err != nil {
		err = s.mapError(err)
		return err
	}
	if err = s.store.RemoveMember(ctx, in); err != nil {
		err = s.storeError(err, "remove member")
		return err
	}
	return nil
}

func (s *Service) UpdateCommunity(ctx context.Context, in UpdateCommunityInput) (community Community, err error) {
	if s == nil || s.store == nil {
		return Community{}, MapError(fmt.Errorf("core: community store is required"))
	}
	startedAt := s.clock()
	fields := withSource(ctx, map[string]any{
		"community_id": in.ID,
		"slug":         in.Slug,
	})
	defer func() {
		s.observeOperation(ctx, startedAt, "update_community", err, fields)
	}()

	if in.ID == "" {
		err = s.mapError(fmt.Errorf("core: community id is required"))
		return Community{}, err
	}
	community, err = s.store.UpdateCommunity(ctx, in)
	if err != nil {
		err = s.storeError(err, "update community")
		return Community{}, err
	}
	return community, nil
}

func (s *Service) DeleteCommunity(ctx context.Context, id string) (err error) {
	if s == nil || s.store == nil {
		return MapError(fmt.Errorf("core: community store is required"))
	}
	startedAt := s.clock()
	fields := withSource(ctx, map[string]any{
		"community_id": id,
	})
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_community", err, fields)
	}()

	if id == "" {
		err = s.mapError(fmt.Errorf("core: community id is required"))
		return err
	}
	if err = s.store.DeleteCommunity(ctx, id); err != nil {
		err = s.storeError(err, "delete community")
		return err
	}
	return nil
}

func (s *Service) GetCommunity(ctx context.Context, id string) (community Community, err error) {
	if s == nil || s.reader == nil {
		return Community{}, MapError(fmt.Errorf("core: community reader is required"))
	}
	startedAt := s.clock()
	fields := withSource(ctx, map[string]any{"community_id": id})
	defer func() {
		s.observeOperation(ctx, startedAt, "get_community", err, fields)
	}()

	community, err = s.reader.GetCommunity(ctx, id)
	if err != nil {
		err = s.mapError(err)
		return Community{}, err
	}
	return community, nil
}

func (s *Service) ListMembers(ctx context.Context, communityID string) (members []Member, err error) {
	if s == nil || s.reader == nil {
		return nil, MapError(fmt.Errorf("core: community reader is required"))
	}
	startedAt := s.clock()
	fields := withSource(ctx, map[string]any{"community_id": communityID})
	defer func() {
		fields["count"] = len(members)
		s.observeOperation(ctx, startedAt, "list_members", err, fields)
	}()

	members, err = s.reader.ListMembers(ctx, communityID)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return members, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return MapError(err)
	}
	if mapped := s.errorMapper(err); mapped != nil {
		return mapped
	}
	return err
}

// storeError keeps not-found distinct from other store failures so callers
// can tell a missing community from a broken database.
func (s *Service) storeError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) {
		return s.mapError(err)
	}
	return WrapStoreError(err, operation)
}

func (s *Service) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}

func validateMembership(in MembershipInput) error {
	if in.CommunityID == "" {
		return fmt.Errorf("core: community id is required")
	}
	if in.UserID == "" {
		return fmt.Errorf("core: user id is required")
	}
	return nil
}

type sourceContextKey struct{}

// ContextWithSource tags ctx with the caller surface ("webhook", "command")
// so store operations can be attributed in logs and metrics.
func ContextWithSource(ctx context.Context, source string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sourceContextKey{}, strings.TrimSpace(source))
}

func SourceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	source, _ := ctx.Value(sourceContextKey{}).(string)
	return source
}

func withSource(ctx context.Context, fields map[string]any) map[string]any {
	if source := SourceFromContext(ctx); source != "" {
		fields["source"] = source
	}
	return fields
}

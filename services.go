package communities

import "github.com/goliatone/go-communities/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Community = core.Community
type Member = core.Member
type CreateCommunityInput = core.CreateCommunityInput
type UpdateCommunityInput = core.UpdateCommunityInput
type MembershipInput = core.MembershipInput

type CommunityStore = core.CommunityStore
type CommunityReader = core.CommunityReader
type MetricsRecorder = core.MetricsRecorder

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithCommunityStore    = core.WithCommunityStore
	WithCommunityReader   = core.WithCommunityReader
	WithClock             = core.WithClock
)

var ErrCommunityNotFound = core.ErrCommunityNotFound

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// NewMemoryCommunityStore returns the in-process store used for tests and
// single-instance deployments.
func NewMemoryCommunityStore() *core.MemoryCommunityStore {
	return core.NewMemoryCommunityStore()
}

package core

import (
	"context"
	"errors"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

var ErrCommunityNotFound = errors.New("core: community not found")

// InboundRequest is a transport-neutral view of one webhook delivery.
type InboundRequest struct {
	ProviderID string
	Surface    string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Message    string
	Metadata   map[string]any
}

type Community struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Image     string    `json:"image"`
	Bio       string    `json:"bio"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Member struct {
	CommunityID string    `json:"community_id"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateCommunityInput struct {
	ID        string
	Name      string
	Slug      string
	Image     string
	Bio       string
	CreatedBy string
}

type UpdateCommunityInput struct {
	ID    string
	Name  string
	Slug  string
	Image string
}

type MembershipInput struct {
	CommunityID string
	UserID      string
}

// CommunityStore is the mutation surface the webhook dispatcher drives.
// Creates and member additions are insert-if-absent; removals and deletes
// succeed when nothing matches.
type CommunityStore interface {
	CreateCommunity(ctx context.Context, in CreateCommunityInput) (Community, error)
	AddMember(ctx context.Context, in MembershipInput) error
	RemoveMember(ctx context.Context, in MembershipInput) error
	UpdateCommunity(ctx context.Context, in UpdateCommunityInput) (Community, error)
	DeleteCommunity(ctx context.Context, id string) error
}

type CommunityReader interface {
	GetCommunity(ctx context.Context, id string) (Community, error)
	ListMembers(ctx context.Context, communityID string) ([]Member, error)
}

type StoreProvider interface {
	CommunityStore() CommunityStore
	CommunityReader() CommunityReader
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
